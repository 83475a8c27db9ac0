// Copyright (C) MongoDB, Inc. 2014-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package archive

import (
	"archive/tar"
	"compress/gzip"
	"io"
	"time"

	"github.com/pkg/errors"
)

// File is one entry to be written by WriteTarGz. This is useful for
// synthesizing archives in tests.
type File struct {
	Name string
	Body []byte
}

// WriteTarGz writes files to w as a gzip-compressed tar archive.
func WriteTarGz(w io.Writer, files []File) error {
	zw := gzip.NewWriter(w)
	tw := tar.NewWriter(zw)

	for _, f := range files {
		hdr := &tar.Header{
			Name:     f.Name,
			Mode:     0o644,
			Size:     int64(len(f.Body)),
			ModTime:  time.Unix(0, 0),
			Typeflag: tar.TypeReg,
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return errors.Wrapf(err, "failed to write tar header for %#q", f.Name)
		}
		if _, err := tw.Write(f.Body); err != nil {
			return errors.Wrapf(err, "failed to write %#q to archive", f.Name)
		}
	}

	if err := tw.Close(); err != nil {
		return errors.Wrap(err, "failed to finish tar stream")
	}
	return errors.Wrap(zw.Close(), "failed to finish gzip stream")
}

// Gzip writes body to w gzip-compressed.
func Gzip(w io.Writer, body []byte) error {
	zw := gzip.NewWriter(w)
	if _, err := zw.Write(body); err != nil {
		return errors.Wrap(err, "failed to write gzip stream")
	}
	return errors.Wrap(zw.Close(), "failed to finish gzip stream")
}
