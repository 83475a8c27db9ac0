// Copyright (C) MongoDB, Inc. 2014-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package chiverestore

import (
	"github.com/go-chive/chive-tools/common/db"
	"github.com/go-chive/chive-tools/common/log"
	"github.com/go-chive/chive-tools/common/util"
	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/mongo"
)

// Result encapsulates the outcome of a bulk insert.
type Result struct {
	Successes int64
	Failures  int64
	Err       error
}

// combineWith sums the successes and failures from both results and the overwrites the existing Err with the Err from
// the provided result.
func (result *Result) combineWith(other Result) {
	result.Successes += other.Successes
	result.Failures += other.Failures
	result.Err = other.Err
}

// withErr returns a copy of the current result with the provided error
func (result Result) withErr(err error) Result {
	result.Err = err
	return result
}

// NewResultFromBulkResult counts what a bulk write reported, including the
// partial outcome of a failed one.
func NewResultFromBulkResult(result *mongo.BulkWriteResult, err error) Result {
	var nSuccess int64
	if result != nil {
		nSuccess = result.InsertedCount
	}

	// if a write concern error is encountered, the failure count may be inaccurate.
	return Result{nSuccess, db.WriteErrorCount(err), err}
}

// FileResult is the outcome of restoring one dump file. Archive members are
// reported as <archive>/<member>.
type FileResult struct {
	File string

	// Documents is how many documents the file's envelope held.
	Documents int64

	// Inserted is how many documents the store confirmed, or with --dryRun
	// how many would have been inserted.
	Inserted int64

	// Existing documents had an _id the collection already held.
	Existing int64

	// Repeated documents had an _id seen earlier in the same file.
	Repeated int64

	// WithoutID documents were inserted with a server assigned _id.
	WithoutID int64

	// Duplicates failed with duplicate key errors under --ignoreDuplicates.
	Duplicates int64

	Err error
}

// Failed reports whether the file could not be fully restored.
func (fr FileResult) Failed() bool {
	return fr.Err != nil
}

func (fr FileResult) log(dryRun bool) {
	switch {
	case fr.Err != nil:
		log.Logvf(log.Always, "error processing %v: %v", fr.File, fr.Err)
	case fr.Documents == 0:
		log.Logvf(log.Always, "no documents in %v", fr.File)
	case dryRun:
		log.Logvf(log.Always, "would insert %v new %v from %v", fr.Inserted,
			util.Pluralize(int(fr.Inserted), "document", "documents"), fr.File)
	case fr.Inserted == 0 && fr.Duplicates == 0:
		log.Logvf(log.Always, "all documents in %v already exist", fr.File)
	default:
		log.Logvf(log.Always, "inserted %v new %v from %v", fr.Inserted,
			util.Pluralize(int(fr.Inserted), "document", "documents"), fr.File)
	}

	if fr.Repeated > 0 {
		log.Logvf(log.Info, "skipped %v %v repeated within %v", fr.Repeated,
			util.Pluralize(int(fr.Repeated), "document", "documents"), fr.File)
	}
	if fr.Duplicates > 0 {
		log.Logvf(log.Info, "skipped %v %v from %v that failed with duplicate key errors", fr.Duplicates,
			util.Pluralize(int(fr.Duplicates), "document", "documents"), fr.File)
	}
	if fr.WithoutID > 0 {
		log.Logvf(log.DebugLow, "%v %v in %v had no %v", fr.WithoutID,
			util.Pluralize(int(fr.WithoutID), "document", "documents"), fr.File, IDField)
	}
}

// Summary collects the per-file outcomes of a restore run.
type Summary struct {
	Files    []FileResult
	Inserted int64

	// Err is set when the run stopped before processing every file.
	Err error
}

func (s *Summary) add(fr FileResult) {
	s.Files = append(s.Files, fr)
	s.Inserted += fr.Inserted
}

// Failures returns the results of files that failed.
func (s Summary) Failures() []FileResult {
	return lo.Filter(s.Files, func(fr FileResult, _ int) bool { return fr.Failed() })
}

func (s Summary) log(dryRun bool) {
	verb := "inserted"
	if dryRun {
		verb = "would insert"
	}
	failures := len(s.Failures())
	log.Logvf(log.Always, "done. %v %v new %v in total from %v %v, %v %v failed",
		verb, s.Inserted, util.Pluralize(int(s.Inserted), "document", "documents"),
		len(s.Files), util.Pluralize(len(s.Files), "file", "files"),
		failures, util.Pluralize(failures, "file", "files"))
}
