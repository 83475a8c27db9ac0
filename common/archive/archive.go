// Copyright (C) MongoDB, Inc. 2014-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package archive reads and writes the gzip-compressed tar archives that the
// chive archiver uploads, and gunzips single compressed dump files.
package archive

import (
	"archive/tar"
	"compress/gzip"
	"io"
	"path"
	"strings"

	"github.com/pkg/errors"
)

const (
	GzipSuffix  = ".gz"
	TarGzSuffix = ".tar.gz"
	TgzSuffix   = ".tgz"
)

// Format is the encoding of a dump file, derived from its name.
type Format int

const (
	FormatUnknown Format = iota
	FormatBSON
	FormatJSON
	FormatTarGz
)

func (f Format) String() string {
	switch f {
	case FormatBSON:
		return "bson"
	case FormatJSON:
		return "json"
	case FormatTarGz:
		return "tar.gz"
	}
	return "unknown"
}

// FormatOf returns the dump format named by the suffix of name. Single dump
// files may additionally be gzip-compressed.
func FormatOf(name string) Format {
	if IsTarGz(name) {
		return FormatTarGz
	}
	switch {
	case strings.HasSuffix(TrimGzip(name), ".bson"):
		return FormatBSON
	case strings.HasSuffix(TrimGzip(name), ".json"):
		return FormatJSON
	}
	return FormatUnknown
}

// Member describes one regular file inside an archive.
type Member struct {
	Name string
	Size int64
}

// IsTarGz reports whether name looks like a gzip-compressed tar archive.
func IsTarGz(name string) bool {
	return strings.HasSuffix(name, TarGzSuffix) || strings.HasSuffix(name, TgzSuffix)
}

// IsGzip reports whether name is gzip-compressed, archive or not.
func IsGzip(name string) bool {
	return strings.HasSuffix(name, GzipSuffix) || strings.HasSuffix(name, TgzSuffix)
}

// TrimGzip strips a trailing .gz from name.
func TrimGzip(name string) string {
	return strings.TrimSuffix(name, GzipSuffix)
}

// Gunzip wraps r in a gzip reader. The caller closes the returned reader.
func Gunzip(r io.Reader) (io.ReadCloser, error) {
	zr, err := gzip.NewReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open gzip stream")
	}
	return zr, nil
}

// WalkTarGz calls fn for every regular file in the gzip-compressed tar stream
// r, in archive order. The body passed to fn is only valid until fn returns.
// Walking stops at the first error returned by fn, which is passed through
// unwrapped.
func WalkTarGz(r io.Reader, fn func(m Member, body io.Reader) error) error {
	zr, err := Gunzip(r)
	if err != nil {
		return err
	}
	defer zr.Close()

	tr := tar.NewReader(zr)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errors.Wrap(err, "failed to read tar header")
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}

		name := path.Clean(strings.TrimPrefix(hdr.Name, "/"))
		if err := fn(Member{Name: name, Size: hdr.Size}, tr); err != nil {
			return err
		}
	}
}
