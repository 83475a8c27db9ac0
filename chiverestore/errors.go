// Copyright (C) MongoDB, Inc. 2014-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package chiverestore

import (
	"fmt"
)

// DecodeError reports dump file content that is not valid BSON or Extended
// JSON, is empty, or does not have the expected envelope shape.
type DecodeError struct {
	File string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode %v: %v", e.File, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// StoreError reports a failed lookup or insert against the collection.
// Inserted and Failed carry what a partially applied bulk write reported.
type StoreError struct {
	File     string
	Op       string
	Inserted int64
	Failed   int64
	Err      error
}

func (e *StoreError) Error() string {
	if e.Inserted > 0 || e.Failed > 0 {
		return fmt.Sprintf("%v failed for %v after %d inserted and %d failed: %v",
			e.Op, e.File, e.Inserted, e.Failed, e.Err)
	}
	return fmt.Sprintf("%v failed for %v: %v", e.Op, e.File, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// MissingFieldError reports a document without a required field. It is only
// returned when documents without _id are rejected.
type MissingFieldError struct {
	File  string
	Field string
	Index int
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("document %d in %v has no %v field", e.Index, e.File, e.Field)
}

// Unwrap returns nil; a MissingFieldError has no underlying cause.
func (e *MissingFieldError) Unwrap() error {
	return nil
}
