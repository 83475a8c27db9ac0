// Copyright (C) MongoDB, Inc. 2014-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package chiverestore

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/go-chive/chive-tools/common/archive"
	"github.com/go-chive/chive-tools/common/db"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

// DocsField holds the archived documents inside a dump file's envelope.
const DocsField = "docs"

// MaxEnvelopeSize bounds a .bson dump's envelope. It wraps every archived
// document, so only the int32 length header limits it; each document inside
// is still held to db.MaxBSONSize by the server.
const MaxEnvelopeSize = math.MaxInt32

var errEmptyDump = errors.New("dump contains no values")

// readEnvelope decodes the first top-level value of a dump. JSON dumps whose
// first value is an array are read as the docs array itself.
func readEnvelope(format archive.Format, r io.Reader) (bson.Raw, error) {
	switch format {
	case archive.FormatBSON:
		source := db.NewBSONSource(r).SetMaxSize(MaxEnvelopeSize)
		doc := source.LoadNext()
		if doc == nil {
			if err := source.Err(); err != nil {
				return nil, err
			}
			return nil, errEmptyDump
		}
		envelope := bson.Raw(doc)
		if err := envelope.Validate(); err != nil {
			return nil, fmt.Errorf("invalid bson: %w", err)
		}
		return envelope, nil

	case archive.FormatJSON:
		var first json.RawMessage
		if err := json.NewDecoder(r).Decode(&first); err != nil {
			if err == io.EOF {
				return nil, errEmptyDump
			}
			return nil, fmt.Errorf("invalid json: %w", err)
		}
		first = bytes.TrimLeft(first, " \t\r\n")
		switch {
		case len(first) > 0 && first[0] == '[':
			first = append(append([]byte(`{"`+DocsField+`":`), first...), '}')
		case len(first) == 0 || first[0] != '{':
			return nil, fmt.Errorf("top-level json value is not a document")
		}

		var envelope bson.Raw
		if err := bson.UnmarshalExtJSON(first, false, &envelope); err != nil {
			return nil, fmt.Errorf("invalid extended json: %w", err)
		}
		return envelope, nil
	}

	return nil, fmt.Errorf("unsupported dump format %v", format)
}

// envelopeDocuments returns the documents under the envelope's docs field. A
// missing or null docs field holds no documents.
func envelopeDocuments(envelope bson.Raw) ([]bson.Raw, error) {
	value, err := envelope.LookupErr(DocsField)
	if err != nil || value.Type == bsontype.Null {
		return nil, nil
	}
	if value.Type != bsontype.Array {
		return nil, fmt.Errorf("%#q is %v, not an array", DocsField, value.Type)
	}

	values, err := value.Array().Values()
	if err != nil {
		return nil, fmt.Errorf("invalid %#q array: %w", DocsField, err)
	}

	docs := make([]bson.Raw, 0, len(values))
	for i, v := range values {
		if v.Type != bsontype.EmbeddedDocument {
			return nil, fmt.Errorf("element %d of %#q is %v, not a document", i, DocsField, v.Type)
		}
		doc := v.Document()
		if err := doc.Validate(); err != nil {
			return nil, fmt.Errorf("element %d of %#q is invalid: %w", i, DocsField, err)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// decodeDump reads every document archived in a single dump.
func decodeDump(name string, format archive.Format, r io.Reader) ([]bson.Raw, error) {
	envelope, err := readEnvelope(format, r)
	if err != nil {
		return nil, &DecodeError{File: name, Err: err}
	}
	docs, err := envelopeDocuments(envelope)
	if err != nil {
		return nil, &DecodeError{File: name, Err: err}
	}
	return docs, nil
}
