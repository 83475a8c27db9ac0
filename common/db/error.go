// Copyright (C) MongoDB, Inc. 2014-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package db

import (
	"errors"

	"github.com/go-chive/chive-tools/common/log"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	// ignorable errors
	ErrDuplicateKeyCode = 11000
)

var ignorableWriteErrorCodes = map[int]bool{ErrDuplicateKeyCode: true}

const (
	continueThroughErrorFormat = "continuing through error: %v"
)

// FilterError determines whether an error needs to be propagated back to the
// user or can be continued through. If an error cannot be ignored, a non-nil
// error is returned. If an error can be continued through, it is logged and
// nil is returned.
func FilterError(stopOnError bool, err error) error {
	if err == nil || stopOnError || !CanIgnoreError(err) {
		return err
	}

	var bwe mongo.BulkWriteException
	if errors.As(err, &bwe) {
		for _, be := range bwe.WriteErrors {
			log.Logvf(log.DebugLow, continueThroughErrorFormat, be.Message)
		}
	} else {
		log.Logvf(log.DebugLow, continueThroughErrorFormat, err)
	}
	return nil
}

// CanIgnoreError returns whether the tools can continue when encountering the
// given error. Currently, only duplicate key errors are ignorable.
func CanIgnoreError(err error) bool {
	if err == nil {
		return true
	}

	var writeException mongo.WriteException
	if errors.As(err, &writeException) {
		if writeException.WriteConcernError != nil {
			return false
		}
		for _, writeErr := range writeException.WriteErrors {
			if !ignorableWriteErrorCodes[writeErr.Code] {
				return false
			}
		}
		return len(writeException.WriteErrors) > 0
	}

	var bulkException mongo.BulkWriteException
	if errors.As(err, &bulkException) {
		if bulkException.WriteConcernError != nil {
			log.Logvf(log.Always, "write concern error when inserting documents: %v", bulkException.WriteConcernError)
			return false
		}
		for _, writeErr := range bulkException.WriteErrors {
			if !ignorableWriteErrorCodes[writeErr.Code] {
				return false
			}
		}
		return len(bulkException.WriteErrors) > 0
	}

	var commandErr mongo.CommandError
	if errors.As(err, &commandErr) {
		return ignorableWriteErrorCodes[int(commandErr.Code)]
	}

	return false
}

// WriteErrorCount returns how many documents a bulk write reported as failed.
func WriteErrorCount(err error) int64 {
	var bulkException mongo.BulkWriteException
	if errors.As(err, &bulkException) {
		return int64(len(bulkException.WriteErrors))
	}
	return 0
}
