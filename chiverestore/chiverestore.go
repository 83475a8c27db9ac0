// Copyright (C) MongoDB, Inc. 2014-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package chiverestore restores archived dump files into a MongoDB
// collection without re-inserting documents that are already there.
package chiverestore

import (
	"context"
	"fmt"
	"os"

	"github.com/go-chive/chive-tools/common/db"
	"github.com/go-chive/chive-tools/common/log"
	"github.com/go-chive/chive-tools/common/options"
	"github.com/go-chive/chive-tools/common/s3fetch"
)

// ChiveRestore is a container for the user-specified options and the
// connection used for running chiverestore.
type ChiveRestore struct {
	ToolOptions   *options.ToolOptions
	InputOptions  *InputOptions
	OutputOptions *OutputOptions

	SessionProvider *db.SessionProvider

	restorer *Restorer
}

// New validates opts and connects to the server.
func New(ctx context.Context, opts Options) (*ChiveRestore, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	provider, err := db.NewSessionProvider(ctx, *opts.ToolOptions)
	if err != nil {
		return nil, fmt.Errorf("error connecting to host: %w", err)
	}

	return NewWithSessionProvider(opts, provider), nil
}

// NewWithSessionProvider builds a ChiveRestore around an existing connection.
func NewWithSessionProvider(opts Options, provider *db.SessionProvider) *ChiveRestore {
	collection := NewMongoCollection(provider.Collection(*opts.Namespace), opts.OutputOptions)
	return &ChiveRestore{
		ToolOptions:     opts.ToolOptions,
		InputOptions:    opts.InputOptions,
		OutputOptions:   opts.OutputOptions,
		SessionProvider: provider,
		restorer:        NewRestorer(collection, opts.OutputOptions),
	}
}

// Restore restores every dump file from the configured source.
func (cr *ChiveRestore) Restore(ctx context.Context) (Summary, error) {
	dir := cr.InputOptions.Dir
	if cr.InputOptions.UsesS3() {
		fetcher, err := s3fetch.New(ctx, cr.InputOptions.S3Region)
		if err != nil {
			return Summary{}, err
		}
		dir, err = fetcher.FetchAll(ctx, cr.InputOptions.S3Bucket, cr.InputOptions.S3Prefix)
		if err != nil {
			return Summary{}, err
		}
		defer func() {
			if err := os.RemoveAll(dir); err != nil {
				log.Logvf(log.Always, "failed to remove download directory %v: %v", dir, err)
			}
		}()
	}
	if dir == "" {
		dir = DefaultDir
	}

	if cr.OutputOptions.DryRun {
		log.Logvf(log.Always, "dry run: no documents will be written to %v", cr.ToolOptions.Namespace)
	} else {
		log.Logvf(log.Info, "restoring into %v", cr.ToolOptions.Namespace)
	}
	return cr.restorer.Restore(ctx, dir)
}

// Close disconnects from the server.
func (cr *ChiveRestore) Close() {
	cr.SessionProvider.Close()
}
