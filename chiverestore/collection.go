// Copyright (C) MongoDB, Inc. 2014-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package chiverestore

import (
	"context"
	"fmt"

	"github.com/go-chive/chive-tools/common/db"
	"github.com/go-chive/chive-tools/common/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	mopt "go.mongodb.org/mongo-driver/mongo/options"
)

// Collection is the store a Restorer writes into.
type Collection interface {
	// FindExistingIDs returns the subset of ids already present.
	FindExistingIDs(ctx context.Context, ids []bson.RawValue) ([]bson.RawValue, error)

	// InsertDocuments inserts docs and reports how many were confirmed. The
	// Result is filled in even when the insert fails partway.
	InsertDocuments(ctx context.Context, docs []bson.Raw) Result
}

// MongoCollection is a Collection backed by a MongoDB collection.
type MongoCollection struct {
	collection *mongo.Collection
	opts       OutputOptions
}

// NewMongoCollection wraps collection, inserting as configured by opts.
func NewMongoCollection(collection *mongo.Collection, opts *OutputOptions) *MongoCollection {
	mc := &MongoCollection{collection: collection}
	if opts != nil {
		mc.opts = *opts
	}
	return mc
}

// FindExistingIDs queries {_id: {$in: ids}} with an _id-only projection.
func (mc *MongoCollection) FindExistingIDs(ctx context.Context, ids []bson.RawValue) ([]bson.RawValue, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	filter := bson.D{{Key: IDField, Value: bson.D{{Key: "$in", Value: ids}}}}
	findOpts := mopt.Find().SetProjection(bson.D{{Key: IDField, Value: 1}}).SetBatchSize(int32(len(ids)))
	cursor, err := mc.collection.Find(ctx, filter, findOpts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var existing []bson.RawValue
	for cursor.Next(ctx) {
		id, err := cursor.Current.LookupErr(IDField)
		if err != nil {
			return nil, fmt.Errorf("server returned a document without %v: %w", IDField, err)
		}
		// cursor.Current is reused by the next batch
		id.Value = append([]byte(nil), id.Value...)
		existing = append(existing, id)
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return existing, nil
}

// InsertDocuments bulk-inserts docs, in writes of --batchSize documents if
// set. Writes are ordered unless duplicate key errors are being ignored, in
// which case those errors are counted as failures and not returned.
func (mc *MongoCollection) InsertDocuments(ctx context.Context, docs []bson.Raw) Result {
	var bulk *db.BufferedBulkInserter
	if mc.opts.IgnoreDuplicates {
		bulk = db.NewUnorderedBufferedBulkInserter(mc.collection, mc.opts.BatchSize)
	} else {
		bulk = db.NewOrderedBufferedBulkInserter(mc.collection, mc.opts.BatchSize)
	}
	bulk.SetBypassDocumentValidation(mc.opts.BypassDocumentValidation)

	var result Result
	for _, doc := range docs {
		result.combineWith(NewResultFromBulkResult(bulk.InsertRaw(ctx, doc)))
		result.Err = db.FilterError(!mc.opts.IgnoreDuplicates, result.Err)
		if result.Err != nil {
			return result
		}
	}

	// flush the remaining docs
	result.combineWith(NewResultFromBulkResult(bulk.Flush(ctx)))
	if result.Failures > 0 {
		log.Logvf(log.DebugLow, "%v documents failed to insert into %v", result.Failures, mc.collection.Name())
	}
	return result.withErr(db.FilterError(!mc.opts.IgnoreDuplicates, result.Err))
}
