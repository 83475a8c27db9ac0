// Copyright (C) MongoDB, Inc. 2014-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package chiverestore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/go-chive/chive-tools/common/archive"
	"github.com/go-chive/chive-tools/common/log"
	"github.com/go-chive/chive-tools/common/util"
)

// Restorer restores dump files into a single collection, one file at a time.
type Restorer struct {
	collection Collection
	opts       OutputOptions
}

// NewRestorer returns a Restorer writing into collection.
func NewRestorer(collection Collection, opts *OutputOptions) *Restorer {
	r := &Restorer{collection: collection}
	if opts != nil {
		r.opts = *opts
	}
	return r
}

// ListDumpFiles returns the names of the regular files in dir that look like
// dump files or dump archives, sorted by name. Subdirectories are not read.
func ListDumpFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("error reading directory %v: %w", dir, err)
	}

	var names []string
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		if archive.FormatOf(entry.Name()) == archive.FormatUnknown {
			log.Logvf(log.DebugHigh, "skipping %v, not a dump file", entry.Name())
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}

// Restore restores every dump file in dir. A file that fails is logged and
// recorded in the summary, and the run moves on to the next file unless
// --stopOnError is set. The returned error is non-nil only if the directory
// could not be listed or the run was stopped early; the summary's totals
// cover every file processed until then.
func (r *Restorer) Restore(ctx context.Context, dir string) (Summary, error) {
	var summary Summary

	names, err := ListDumpFiles(dir)
	if err != nil {
		return summary, err
	}
	log.Logvf(log.Info, "found %v dump %v in %v", len(names), util.Pluralize(len(names), "file", "files"), dir)

	for _, name := range names {
		if ctx.Err() != nil {
			log.Logvf(log.Always, "terminating restore before %v", name)
			summary.Err = util.ErrTerminated
			break
		}

		filePath := filepath.Join(dir, name)
		log.Logvf(log.Always, "processing %v", name)

		var results []FileResult
		if archive.FormatOf(name) == archive.FormatTarGz {
			results, err = r.restoreArchive(ctx, name, filePath)
			if err == util.ErrTerminated {
				log.Logvf(log.Always, "terminating restore of %v", name)
				summary.Err = err
			}
		} else {
			fr, err := r.RestoreFile(ctx, filePath)
			fr.File = name
			fr.Err = err
			results = []FileResult{fr}
		}

		for _, fr := range results {
			fr.log(r.opts.DryRun)
			summary.add(fr)
			if fr.Err != nil && r.opts.StopOnError && summary.Err == nil {
				summary.Err = fmt.Errorf("stopping after error in %v: %w", fr.File, fr.Err)
			}
		}
		if summary.Err != nil {
			break
		}
	}

	summary.log(r.opts.DryRun)
	return summary, summary.Err
}

// RestoreFile restores a single .bson or .json dump, optionally gzipped, and
// reports what happened to its documents. A partial insert still reports the
// confirmed count alongside the error.
func (r *Restorer) RestoreFile(ctx context.Context, filePath string) (FileResult, error) {
	name := filepath.Base(filePath)
	fr := FileResult{File: name}

	format := archive.FormatOf(name)
	if format != archive.FormatBSON && format != archive.FormatJSON {
		return fr, &DecodeError{File: name, Err: fmt.Errorf("not a .bson or .json dump")}
	}

	file, err := os.Open(filePath)
	if err != nil {
		return fr, &DecodeError{File: name, Err: err}
	}
	defer file.Close()

	return r.restoreStream(ctx, name, file)
}

// restoreArchive restores every dump member of a .tar.gz archive. Members
// are reported individually; an unreadable archive is reported as one
// failed result for the archive itself. The error is non-nil only when the
// walk was stopped early by cancellation or --stopOnError.
func (r *Restorer) restoreArchive(ctx context.Context, name, filePath string) ([]FileResult, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return []FileResult{{File: name, Err: &DecodeError{File: name, Err: err}}}, nil
	}
	defer file.Close()

	var results []FileResult
	stopped := false
	err = archive.WalkTarGz(file, func(m archive.Member, body io.Reader) error {
		memberName := path.Join(name, m.Name)
		format := archive.FormatOf(m.Name)
		if format != archive.FormatBSON && format != archive.FormatJSON {
			log.Logvf(log.DebugLow, "skipping %v, not a dump file", memberName)
			return nil
		}
		if ctx.Err() != nil {
			stopped = true
			return util.ErrTerminated
		}

		fr, err := r.restoreStream(ctx, memberName, body)
		fr.Err = err
		results = append(results, fr)
		if err != nil && r.opts.StopOnError {
			stopped = true
			return err
		}
		return nil
	})
	if err != nil && !stopped {
		results = append(results, FileResult{File: name, Err: &DecodeError{File: name, Err: err}})
		return results, nil
	}
	return results, err
}

// restoreStream decodes one dump and inserts the documents whose _id the
// collection does not hold yet.
func (r *Restorer) restoreStream(ctx context.Context, name string, body io.Reader) (FileResult, error) {
	fr := FileResult{File: name}
	format := archive.FormatOf(name)

	if archive.IsGzip(name) {
		zr, err := archive.Gunzip(body)
		if err != nil {
			return fr, &DecodeError{File: name, Err: err}
		}
		defer zr.Close()
		body = zr
	}

	docs, err := decodeDump(name, format, body)
	if err != nil {
		return fr, err
	}
	fr.Documents = int64(len(docs))
	if len(docs) == 0 {
		return fr, nil
	}

	p, err := partitionByID(name, docs, r.opts.RejectMissingID)
	if err != nil {
		return fr, err
	}
	fr.Repeated = p.repeated
	fr.WithoutID = p.withoutID

	existing := mapset.NewThreadUnsafeSet[string]()
	for _, batch := range idLookupBatches(p.lookup) {
		found, err := r.collection.FindExistingIDs(ctx, batch)
		if err != nil {
			return fr, &StoreError{File: name, Op: "lookup", Err: err}
		}
		for _, id := range found {
			existing.Add(idKey(id))
		}
	}
	fr.Existing = int64(existing.Cardinality())

	toInsert := p.novel(existing)
	log.Logvf(log.DebugLow, "%v: %v documents, %v already present, %v to insert",
		name, len(docs), fr.Existing, len(toInsert))
	if len(toInsert) == 0 {
		return fr, nil
	}
	if r.opts.DryRun {
		fr.Inserted = int64(len(toInsert))
		return fr, nil
	}

	result := r.collection.InsertDocuments(ctx, toInsert)
	fr.Inserted = result.Successes
	if result.Err != nil {
		return fr, &StoreError{
			File:     name,
			Op:       "insert",
			Inserted: result.Successes,
			Failed:   result.Failures,
			Err:      result.Err,
		}
	}
	fr.Duplicates = result.Failures
	return fr, nil
}
