// Copyright (C) MongoDB, Inc. 2014-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package chiverestore

import (
	"context"
	"errors"

	"github.com/go-chive/chive-tools/common/db"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// memCollection is an in-memory Collection with a unique _id index.
type memCollection struct {
	docs map[string]bson.Raw

	// ids that exist but are invisible to lookups, as if written by another
	// process between the lookup and the insert
	hidden map[string]bool

	// ignoreDuplicates mirrors MongoCollection with --ignoreDuplicates
	ignoreDuplicates bool

	lookupErr error

	// insertErr is returned once failAfter documents of a call are in
	insertErr error
	failAfter int

	lookupBatches []int
	insertCalls   int

	// inserted holds every document written, in write order
	inserted []bson.Raw
}

func newMemCollection() *memCollection {
	return &memCollection{
		docs:   map[string]bson.Raw{},
		hidden: map[string]bool{},
	}
}

func (mc *memCollection) FindExistingIDs(_ context.Context, ids []bson.RawValue) ([]bson.RawValue, error) {
	mc.lookupBatches = append(mc.lookupBatches, len(ids))
	if mc.lookupErr != nil {
		return nil, mc.lookupErr
	}
	var found []bson.RawValue
	for _, id := range ids {
		// answer with the _id as stored, like the server does
		if doc, ok := mc.docs[idKey(id)]; ok {
			found = append(found, doc.Lookup(IDField))
		}
	}
	return found, nil
}

func (mc *memCollection) InsertDocuments(_ context.Context, docs []bson.Raw) Result {
	mc.insertCalls++
	var result Result
	var writeErrors []mongo.BulkWriteError

	for i, doc := range docs {
		if mc.insertErr != nil && i == mc.failAfter {
			result.Err = mc.insertErr
			return result
		}

		key := ""
		if id, err := doc.LookupErr(IDField); err == nil {
			key = idKey(id)
		} else {
			oid := primitive.NewObjectID()
			key = idKey(bson.RawValue{Type: bsontype.ObjectID, Value: oid[:]})
		}

		_, stored := mc.docs[key]
		if stored || mc.hidden[key] {
			writeErrors = append(writeErrors, mongo.BulkWriteError{
				WriteError: mongo.WriteError{Index: i, Code: db.ErrDuplicateKeyCode, Message: "E11000 duplicate key error"},
			})
			result.Failures++
			if !mc.ignoreDuplicates {
				result.Err = mongo.BulkWriteException{WriteErrors: writeErrors}
				return result
			}
			continue
		}

		mc.docs[key] = doc
		mc.inserted = append(mc.inserted, doc)
		result.Successes++
	}

	if len(writeErrors) > 0 && !mc.ignoreDuplicates {
		result.Err = mongo.BulkWriteException{WriteErrors: writeErrors}
	}
	return result
}

// seed stores docs as if written before the restore.
func (mc *memCollection) seed(docs ...bson.D) {
	for _, doc := range docs {
		raw, err := bson.Marshal(doc)
		if err != nil {
			panic(err)
		}
		mc.docs[idKey(bson.Raw(raw).Lookup(IDField))] = raw
	}
}

// get returns the stored document with the given _id, or nil.
func (mc *memCollection) get(id interface{}) bson.Raw {
	raw, err := bson.Marshal(bson.D{{Key: IDField, Value: id}})
	if err != nil {
		panic(err)
	}
	return mc.docs[idKey(bson.Raw(raw).Lookup(IDField))]
}

// hide makes id conflict on insert without being visible to lookups.
func (mc *memCollection) hide(id interface{}) {
	raw, err := bson.Marshal(bson.D{{Key: IDField, Value: id}})
	if err != nil {
		panic(err)
	}
	mc.hidden[idKey(bson.Raw(raw).Lookup(IDField))] = true
}

var errConnectionReset = errors.New("connection reset by peer")
