// Copyright (C) MongoDB, Inc. 2014-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package testtype gates tests on the kind of environment they need.
package testtype

import (
	"os"
	"strconv"
	"testing"
)

const (
	// UnitTestType tests need nothing beyond the Go toolchain. They run
	// unless TOOLS_TESTING_UNIT is explicitly set to a false value.
	UnitTestType = "TOOLS_TESTING_UNIT"

	// IntegrationTestType tests need a running mongod, addressed by
	// TOOLS_TESTING_MONGOD or localhost on the default test port.
	IntegrationTestType = "TOOLS_TESTING_INTEGRATION"
)

// HasTestType returns whether the given test type is enabled.
func HasTestType(testType string) bool {
	envVal, ok := os.LookupEnv(testType)
	if !ok {
		return testType == UnitTestType
	}
	enabled, err := strconv.ParseBool(envVal)
	return err == nil && enabled
}

// SkipUnlessTestType skips the current test unless the given test type is
// enabled.
func SkipUnlessTestType(t *testing.T, testType string) {
	if !HasTestType(testType) {
		t.SkipNow()
	}
}
