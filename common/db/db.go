// Copyright (C) MongoDB, Inc. 2014-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package db implements the connection to MongoDB used by the chive tools,
// along with BSON stream decoding and buffered bulk inserts.
package db

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-chive/chive-tools/common/log"
	"github.com/go-chive/chive-tools/common/options"
	"github.com/go-chive/chive-tools/common/util"
	"go.mongodb.org/mongo-driver/mongo"
	mopt "go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
)

// MongoDB enforced limits.
const (
	MaxBSONSize = 16 * 1024 * 1024 // 16MB - maximum BSON document size
)

// Default port for integration tests
const (
	DefaultTestPort = "33333"
)

// Used to manage database sessions
type SessionProvider struct {
	sync.Mutex

	// the master client used for operations
	client *mongo.Client
}

// Returns a mongo.Client connected to the database server for which the
// session provider is configured.
func (sp *SessionProvider) GetSession() (*mongo.Client, error) {
	sp.Lock()
	defer sp.Unlock()

	if sp.client == nil {
		return nil, errors.New("SessionProvider already closed")
	}

	return sp.client, nil
}

// Close closes the master session in the connection pool
func (sp *SessionProvider) Close() {
	sp.Lock()
	defer sp.Unlock()
	if sp.client != nil {
		_ = sp.client.Disconnect(context.Background())
		sp.client = nil
	}
}

// Collection provides the collection named by the tool's namespace options.
func (sp *SessionProvider) Collection(ns options.Namespace) *mongo.Collection {
	return sp.client.Database(ns.DB).Collection(ns.Collection)
}

// NewSessionProvider constructs a session provider, including a connected client.
func NewSessionProvider(ctx context.Context, opts options.ToolOptions) (*SessionProvider, error) {
	clientopt, err := configureClient(opts)
	if err != nil {
		return nil, fmt.Errorf("error configuring the connector: %v", err)
	}

	log.Logvf(log.DebugLow, "connecting to %v", util.SanitizeURI(opts.URI.ConnectionString))
	client, err := mongo.Connect(ctx, clientopt)
	if err != nil {
		return nil, err
	}
	err = client.Ping(ctx, nil)
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("could not connect to server: %v", err)
	}

	// create the provider
	return &SessionProvider{client: client}, nil
}

// configure the client according to the options set in the uri and in the
// provided ToolOptions, with ToolOptions having precedence.
func configureClient(opts options.ToolOptions) (*mopt.ClientOptions, error) {
	if opts.URI == nil || opts.URI.ConnectionString == "" {
		// Tests construct options by hand and don't always set a URI.
		if err := opts.NormalizeOptionsAndURI(); err != nil {
			return nil, err
		}
	}

	clientopt := mopt.Client().ApplyURI(opts.URI.ConnectionString)
	if err := clientopt.Validate(); err != nil {
		return nil, err
	}

	if opts.Connection != nil {
		clientopt.SetConnectTimeout(time.Duration(opts.Timeout) * time.Second)
		if opts.ServerSelectionTimeout > 0 {
			clientopt.SetServerSelectionTimeout(time.Duration(opts.ServerSelectionTimeout) * time.Second)
		}
	}

	if clientopt.AppName == nil && opts.AppName != "" {
		clientopt.SetAppName(opts.AppName)
	}

	if clientopt.WriteConcern == nil {
		// If no write concern was specified, default to majority
		clientopt.SetWriteConcern(writeconcern.Majority())
	}

	if opts.Auth != nil && (opts.Auth.Username != "" || opts.Auth.Password != "") {
		cred := mopt.Credential{}
		if clientopt.Auth != nil {
			cred = *clientopt.Auth
		}
		if opts.Auth.Username != "" {
			cred.Username = opts.Auth.Username
		}
		if opts.Auth.Password != "" {
			cred.Password = opts.Auth.Password
			cred.PasswordSet = true
		}
		clientopt.SetAuth(cred)
	}

	return clientopt, nil
}
