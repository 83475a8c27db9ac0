// Copyright (C) MongoDB, Inc. 2014-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package util provides commonly used utility functions.
package util

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Exit codes shared by the tools.
const (
	ExitSuccess    int = 0
	ExitFailure    int = 1
	ExitError      int = 1
	ExitBadOptions int = 3
	ExitKill       int = 4
)

var ErrTerminated = errors.New("received termination signal")

// Pluralize takes an amount and two strings denoting the singular
// and plural noun the amount represents. If the amount is singular,
// the singular form is returned; otherwise plural is returned. E.g.
//
//	Pluralize(X, "mouse", "mice")
//	  -> 0 mice, 1 mouse, 2 mice, ...
func Pluralize(amount int, singular, plural string) string {
	if amount == 1 {
		return singular
	}
	return plural
}

// ShortUsage returns the hint printed after an option error.
func ShortUsage(tool string) string {
	return fmt.Sprintf("try '%v --help' for more information", tool)
}

var uriCredentials = regexp.MustCompile(`^(mongodb(?:\+srv)?://)[^@/?]*@`)

// SanitizeURI removes the credentials from a connection string so it can be
// logged.
func SanitizeURI(uri string) string {
	return uriCredentials.ReplaceAllString(uri, "${1}[**REDACTED**]@")
}

const (
	maxDBNameLength = 64
	invalidDBChars  = "/\\. \"$*<>:|?"
)

// ValidateDBName validates that a string is a valid name for a mongodb database.
func ValidateDBName(database string) error {
	if len(database) == 0 {
		return fmt.Errorf("database name cannot be empty")
	}
	if len(database) >= maxDBNameLength {
		return fmt.Errorf("database name '%v' is longer than %v characters", database, maxDBNameLength-1)
	}
	if strings.ContainsAny(database, invalidDBChars) || strings.ContainsRune(database, 0) {
		return fmt.Errorf("database name '%v' contains an illegal character", database)
	}
	return nil
}

// ValidateCollectionGrammar validates the rules for a collection name,
// without forbidding the system namespaces.
func ValidateCollectionGrammar(collection string) error {
	if len(collection) == 0 {
		return fmt.Errorf("collection name cannot be an empty string")
	}
	if strings.Contains(collection, "$") {
		return fmt.Errorf("collection name '%v' can't contain $", collection)
	}
	if strings.ContainsRune(collection, 0) {
		return fmt.Errorf("collection name '%v' can't contain null characters", collection)
	}
	return nil
}

// ValidateCollectionName validates that a string is a valid name for a
// collection the tools are allowed to write to.
func ValidateCollectionName(collection string) error {
	if err := ValidateCollectionGrammar(collection); err != nil {
		return err
	}
	if strings.HasPrefix(collection, "system.") {
		return fmt.Errorf("collection name '%v' is a system collection", collection)
	}
	return nil
}

// ValidateFullNamespace validates a "db.collection" namespace.
func ValidateFullNamespace(namespace string) error {
	database, collection, found := strings.Cut(namespace, ".")
	if !found {
		return fmt.Errorf("namespace '%v' is missing a collection name", namespace)
	}
	if err := ValidateDBName(database); err != nil {
		return err
	}
	return ValidateCollectionName(collection)
}
