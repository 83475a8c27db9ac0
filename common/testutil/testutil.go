// Copyright (C) MongoDB, Inc. 2014-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package testutil implements functions for filtering and configuring tests.
package testutil

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/go-chive/chive-tools/common/db"
	"github.com/go-chive/chive-tools/common/options"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"
)

const uriEnvVar = "TOOLS_TESTING_MONGOD"

// GetBareSession returns a mongo.Client from the environment or
// from a default host and port.
func GetBareSession() (*mongo.Client, error) {
	sessionProvider, _, err := GetBareSessionProvider()
	if err != nil {
		return nil, err
	}
	return sessionProvider.GetSession()
}

// GetBareSessionProvider returns a session provider from the environment or
// from a default host and port.
func GetBareSessionProvider() (*db.SessionProvider, *options.ToolOptions, error) {
	toolOptions, err := GetToolOptions()
	if err != nil {
		return nil, nil, fmt.Errorf(
			"error getting tool options to create a bare session provider: %w",
			err,
		)
	}

	sessionProvider, err := db.NewSessionProvider(context.Background(), *toolOptions)
	if err != nil {
		return nil, nil, err
	}

	return sessionProvider, toolOptions, nil
}

// GetToolOptions returns options pointing at the test server named by
// TOOLS_TESTING_MONGOD, or at localhost on the default test port.
func GetToolOptions() (*options.ToolOptions, error) {
	uri := os.Getenv(uriEnvVar)
	if uri == "" {
		uri = "mongodb://localhost:" + db.DefaultTestPort + "/"
	}
	if _, err := connstring.ParseAndValidate(uri); err != nil {
		return nil, fmt.Errorf(
			"%#q from the %#q env var is not a valid connection string: %w",
			uri,
			uriEnvVar,
			err,
		)
	}

	toolOptions := options.New("chive-tools-test", "", "", "")
	toolOptions.URI.ConnectionString = uri
	toolOptions.Namespace.DB = "chive-test"
	if err := toolOptions.NormalizeOptionsAndURI(); err != nil {
		return nil, err
	}
	return toolOptions, nil
}

// DropDatabase drops the named database, failing the test on error.
func DropDatabase(t *testing.T, client *mongo.Client, name string) {
	err := client.Database(name).Drop(context.Background())
	require.NoError(t, err, "dropping database %#q", name)
}
