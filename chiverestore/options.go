// Copyright (C) MongoDB, Inc. 2014-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package chiverestore

import (
	"fmt"

	"github.com/go-chive/chive-tools/common/options"
)

// Usage describes basic usage of chiverestore.
var Usage = `<options>

Restore archived BSON or JSON dump files into a MongoDB collection, skipping
documents whose _id is already present.

Dump files are read from --dir (default: the current directory) or downloaded
from an S3 bucket with --s3Bucket. Each file holds a document with a "docs"
array; .gz files and .tar.gz archives are expanded.`

// DefaultDir is where dump files are read from when neither --dir nor
// --s3Bucket is given.
const DefaultDir = "."

// InputOptions defines the set of options to use in locating dump files.
type InputOptions struct {
	Dir      string `long:"dir" value-name:"<directory-path>" description:"directory to read dump files from (defaults to the current directory)"`
	S3Bucket string `long:"s3Bucket" value-name:"<bucket>" description:"download dump files from this S3 bucket instead of reading --dir"`
	S3Prefix string `long:"s3Prefix" value-name:"<prefix>" description:"only download objects whose key starts with this prefix"`
	S3Region string `long:"s3Region" value-name:"<region>" description:"AWS region of the S3 bucket (defaults to us-east-1)"`
}

// Name returns a human-readable group name for input options.
func (*InputOptions) Name() string {
	return "input"
}

// ConfigFileFields lets the input options be set from --config and CHIVE_*
// environment variables.
func (inputOpts *InputOptions) ConfigFileFields() map[string]*string {
	return map[string]*string{
		"dir":      &inputOpts.Dir,
		"s3bucket": &inputOpts.S3Bucket,
		"s3prefix": &inputOpts.S3Prefix,
		"s3region": &inputOpts.S3Region,
	}
}

// UsesS3 reports whether dump files come from S3.
func (inputOpts *InputOptions) UsesS3() bool {
	return inputOpts.S3Bucket != ""
}

// OutputOptions defines the set of options for writing restored documents.
type OutputOptions struct {
	BatchSize                int  `long:"batchSize" value-name:"<count>" description:"split each file's insert into bulk writes of this many documents (0 writes each file in one bulk write)"`
	IgnoreDuplicates         bool `long:"ignoreDuplicates" description:"insert unordered and skip documents that fail with duplicate key errors"`
	RejectMissingID          bool `long:"rejectMissingId" description:"fail a file if any of its documents has no _id, instead of inserting them with a new ObjectId"`
	DryRun                   bool `long:"dryRun" description:"look up existing documents and report what would be inserted without writing"`
	StopOnError              bool `long:"stopOnError" description:"stop restoring at the first file that fails"`
	BypassDocumentValidation bool `long:"bypassDocumentValidation" description:"bypass document validation"`
}

// Name returns a human-readable group name for output options.
func (*OutputOptions) Name() string {
	return "output"
}

// Options contains all the possible options used to configure chiverestore.
type Options struct {
	*options.ToolOptions
	*InputOptions
	*OutputOptions
	ParsedArgs []string
}

// ParseOptions reads the command line arguments, config file and environment
// and returns the resulting options.
func ParseOptions(rawArgs []string, versionStr, gitCommit string) (Options, error) {
	opts := options.New("chiverestore", versionStr, gitCommit, Usage)

	inputOpts := &InputOptions{}
	opts.AddOptions(inputOpts)
	outputOpts := &OutputOptions{}
	opts.AddOptions(outputOpts)

	extraArgs, err := opts.ParseArgs(rawArgs)
	if err != nil {
		return Options{}, err
	}

	return Options{opts, inputOpts, outputOpts, extraArgs}, nil
}

// Validate checks option combinations that go-flags cannot express and
// fills in the default directory.
func (opts Options) Validate() error {
	if len(opts.ParsedArgs) > 0 {
		return fmt.Errorf("too many positional arguments: %v", opts.ParsedArgs)
	}
	if opts.Namespace.DB == "" {
		return fmt.Errorf("no database specified; use --db, CHIVE_DB or the db config file key")
	}
	if opts.Namespace.Collection == "" {
		return fmt.Errorf("no collection specified; use --collection, CHIVE_COLLECTION or the collection config file key")
	}
	if opts.BatchSize < 0 {
		return fmt.Errorf("--batchSize must not be negative, got %d", opts.BatchSize)
	}
	if opts.UsesS3() && opts.Dir != "" {
		return fmt.Errorf("cannot use --dir with --s3Bucket")
	}
	if !opts.UsesS3() && (opts.S3Prefix != "" || opts.S3Region != "") {
		return fmt.Errorf("--s3Prefix and --s3Region require --s3Bucket")
	}
	if !opts.UsesS3() && opts.Dir == "" {
		opts.Dir = DefaultDir
	}
	return nil
}
