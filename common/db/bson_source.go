// Copyright (C) MongoDB, Inc. 2014-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package db

import (
	"encoding/binary"
	"fmt"
	"io"
)

// BSONSource reads a stream of concatenated BSON documents, such as the
// contents of a .bson dump file, one document at a time.
type BSONSource struct {
	reader  io.Reader
	err     error
	count   int
	maxSize int32
}

// NewBSONSource returns a BSONSource reading from r that rejects documents
// larger than MaxBSONSize.
func NewBSONSource(r io.Reader) *BSONSource {
	return &BSONSource{reader: r, maxSize: MaxBSONSize}
}

// SetMaxSize changes the largest document the source accepts. Streams whose
// documents are never sent to the server as-is, such as a dump envelope, may
// exceed MaxBSONSize.
func (bs *BSONSource) SetMaxSize(size int32) *BSONSource {
	bs.maxSize = size
	return bs
}

// Err returns any error that stopped the stream. A clean end of input is not
// an error.
func (bs *BSONSource) Err() error {
	return bs.err
}

// LoadNext reads the next document and returns its raw bytes, or nil when the
// stream is exhausted or broken. Check Err to tell the two apart.
func (bs *BSONSource) LoadNext() []byte {
	if bs.err != nil {
		return nil
	}

	var header [4]byte
	n, err := io.ReadFull(bs.reader, header[:])
	if err == io.EOF && n == 0 {
		return nil
	}
	if err != nil {
		bs.err = fmt.Errorf("reading bson length header after %d documents: %w", bs.count, normalizeEOF(err))
		return nil
	}

	size := int32(binary.LittleEndian.Uint32(header[:]))
	if size < 5 {
		bs.err = fmt.Errorf("invalid bson size %d at document %d", size, bs.count)
		return nil
	}
	if size > bs.maxSize {
		bs.err = fmt.Errorf("bson document %d is %d bytes, more than the %d byte limit", bs.count, size, bs.maxSize)
		return nil
	}

	doc := make([]byte, size)
	copy(doc, header[:])
	if _, err := io.ReadFull(bs.reader, doc[4:]); err != nil {
		bs.err = fmt.Errorf("reading bson document %d: %w", bs.count, normalizeEOF(err))
		return nil
	}
	if doc[size-1] != 0x00 {
		bs.err = fmt.Errorf("bson document %d is not null terminated", bs.count)
		return nil
	}

	bs.count++
	return doc
}

func normalizeEOF(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}
