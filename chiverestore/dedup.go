// Copyright (C) MongoDB, Inc. 2014-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package chiverestore

import (
	"math"
	"math/big"
	"strconv"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

// IDField is the field the collection keys documents by.
const IDField = "_id"

// LookupBatchSize caps how many _id values go into a single $in query.
const LookupBatchSize = 1000

// numberKeyType tags numeric ids, which the server compares by value
// whatever their BSON type.
const numberKeyType = 'n'

// idKey identifies an _id value the way the unique _id index does: int32 1,
// int64 1, 1.0 and decimal 1.00 share a key, "1" does not. Numbers nested in
// documents and arrays compare by value too; field names and order still
// matter.
func idKey(v bson.RawValue) string {
	var b strings.Builder
	writeIDKey(&b, v)
	return b.String()
}

func writeIDKey(b *strings.Builder, v bson.RawValue) {
	switch v.Type {
	case bsontype.Int32, bsontype.Int64, bsontype.Double, bsontype.Decimal128:
		b.WriteByte(numberKeyType)
		writeLenPrefixed(b, numberKey(v))

	case bsontype.EmbeddedDocument, bsontype.Array:
		elems, err := bson.Raw(v.Value).Elements()
		if err != nil {
			b.WriteByte(byte(v.Type))
			b.Write(v.Value)
			return
		}
		b.WriteByte(byte(v.Type))
		b.WriteString(strconv.Itoa(len(elems)))
		b.WriteByte('{')
		for _, elem := range elems {
			if v.Type == bsontype.EmbeddedDocument {
				writeLenPrefixed(b, elem.Key())
			}
			writeIDKey(b, elem.Value())
		}
		b.WriteByte('}')

	default:
		b.WriteByte(byte(v.Type))
		b.Write(v.Value)
	}
}

func writeLenPrefixed(b *strings.Builder, s string) {
	b.WriteString(strconv.Itoa(len(s)))
	b.WriteByte(':')
	b.WriteString(s)
}

// numberKey renders a numeric value as its exact rational value, so equal
// numbers of any type render the same.
func numberKey(v bson.RawValue) string {
	r := new(big.Rat)
	switch v.Type {
	case bsontype.Int32:
		r.SetInt64(int64(v.Int32()))
	case bsontype.Int64:
		r.SetInt64(v.Int64())
	case bsontype.Double:
		f := v.Double()
		switch {
		case math.IsNaN(f):
			return "NaN"
		case math.IsInf(f, 1):
			return "+Inf"
		case math.IsInf(f, -1):
			return "-Inf"
		}
		r.SetFloat64(f)
	case bsontype.Decimal128:
		d := v.Decimal128()
		switch {
		case d.IsNaN():
			return "NaN"
		case d.IsInf() > 0:
			return "+Inf"
		case d.IsInf() < 0:
			return "-Inf"
		}
		coeff, exp, err := d.BigInt()
		if err != nil {
			return d.String()
		}
		r.SetInt(coeff)
		if exp != 0 {
			pow := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(abs(exp))), nil)
			if exp > 0 {
				r.Mul(r, new(big.Rat).SetInt(pow))
			} else {
				r.Quo(r, new(big.Rat).SetInt(pow))
			}
		}
	}
	return r.RatString()
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// partition is a file's documents in input order, minus repeats.
type partition struct {
	docs []bson.Raw

	// ids parallels docs; the zero RawValue marks a document with no _id
	ids []bson.RawValue

	// ids to check against the collection, in input order
	lookup []bson.RawValue

	// documents inserted without a lookup because they carry no _id
	withoutID int64

	// documents whose _id already appeared earlier in the same file
	repeated int64
}

// partitionByID drops repeats within the file, keeping the first occurrence,
// and collects the ids to look up. With rejectMissingID set, the first
// document without _id fails the whole file.
func partitionByID(file string, docs []bson.Raw, rejectMissingID bool) (partition, error) {
	var p partition
	seen := mapset.NewThreadUnsafeSet[string]()

	for i, doc := range docs {
		id, err := doc.LookupErr(IDField)
		if err != nil {
			if rejectMissingID {
				return partition{}, &MissingFieldError{File: file, Field: IDField, Index: i}
			}
			p.docs = append(p.docs, doc)
			p.ids = append(p.ids, bson.RawValue{})
			p.withoutID++
			continue
		}
		if !seen.Add(idKey(id)) {
			p.repeated++
			continue
		}
		p.docs = append(p.docs, doc)
		p.ids = append(p.ids, id)
		p.lookup = append(p.lookup, id)
	}
	return p, nil
}

// idLookupBatches splits ids into $in query batches.
func idLookupBatches(ids []bson.RawValue) [][]bson.RawValue {
	return lo.Chunk(ids, LookupBatchSize)
}

// novel returns the documents to insert in input order: those without an _id
// and those whose _id is not in existing.
func (p partition) novel(existing mapset.Set[string]) []bson.Raw {
	return lo.Filter(p.docs, func(_ bson.Raw, i int) bool {
		return p.ids[i].Type == 0 || !existing.Contains(idKey(p.ids[i]))
	})
}
