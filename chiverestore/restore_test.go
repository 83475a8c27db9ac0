// Copyright (C) MongoDB, Inc. 2014-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package chiverestore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-chive/chive-tools/common/archive"
	"github.com/go-chive/chive-tools/common/log"
	"github.com/go-chive/chive-tools/common/testtype"
	"github.com/go-chive/chive-tools/common/util"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

// captureLog redirects the tool logger for the rest of the test.
func captureLog(t *testing.T) *bytes.Buffer {
	var buf bytes.Buffer
	log.SetWriter(&buf)
	t.Cleanup(func() { log.SetWriter(os.Stderr) })
	return &buf
}

func writeFile(t *testing.T, dir, name string, data []byte) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(filepath.Join(dir, name)), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0o644))
}

// bsonEnvelope marshals docs into a .bson dump envelope.
func bsonEnvelope(t *testing.T, docs ...bson.D) []byte {
	t.Helper()
	arr := bson.A{}
	for _, doc := range docs {
		arr = append(arr, doc)
	}
	data, err := bson.Marshal(bson.D{{Key: DocsField, Value: arr}})
	require.NoError(t, err)
	return data
}

// jsonEnvelope builds a .json dump envelope holding docs with the given
// integer ids.
func jsonEnvelope(ids ...int) []byte {
	docs := make([]string, 0, len(ids))
	for _, id := range ids {
		docs = append(docs, fmt.Sprintf(`{"_id": %d, "name": "doc-%d"}`, id, id))
	}
	return []byte(`{"docs": [` + strings.Join(docs, ", ") + `]}`)
}

func gzipped(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, archive.Gzip(&buf, data))
	return buf.Bytes()
}

func ignoreErr() cmp.Option {
	return cmpopts.IgnoreFields(FileResult{}, "Err")
}

func TestRestoreExample(t *testing.T) {
	testtype.SkipUnlessTestType(t, testtype.UnitTestType)
	ctx := context.Background()

	dir := t.TempDir()
	writeFile(t, dir, "users.json", jsonEnvelope(1, 2, 3))
	coll := newMemCollection()
	restorer := NewRestorer(coll, &OutputOptions{})

	t.Run("first run inserts every document", func(t *testing.T) {
		logs := captureLog(t)
		summary, err := restorer.Restore(ctx, dir)
		require.NoError(t, err)
		assert.EqualValues(t, 3, summary.Inserted)
		assert.Len(t, coll.docs, 3)
		assert.Contains(t, logs.String(), "processing users.json")
		assert.Contains(t, logs.String(), "inserted 3 new documents from users.json")
		assert.Contains(t, logs.String(), "done. inserted 3 new documents in total from 1 file, 0 files failed")
	})

	t.Run("second run inserts nothing", func(t *testing.T) {
		logs := captureLog(t)
		summary, err := restorer.Restore(ctx, dir)
		require.NoError(t, err)
		assert.EqualValues(t, 0, summary.Inserted)
		assert.Len(t, coll.docs, 3)
		assert.Contains(t, logs.String(), "all documents in users.json already exist")
		assert.Equal(t, 1, coll.insertCalls, "no insert should be attempted")

		require.Len(t, summary.Files, 1)
		assert.EqualValues(t, 3, summary.Files[0].Existing)
	})
}

func TestRestoreInsertsOnlyNovelDocuments(t *testing.T) {
	testtype.SkipUnlessTestType(t, testtype.UnitTestType)
	ctx := context.Background()

	coll := newMemCollection()
	coll.seed(
		bson.D{{Key: IDField, Value: int32(1)}, {Key: "name", Value: "original"}},
		bson.D{{Key: IDField, Value: int32(2)}},
	)

	dir := t.TempDir()
	writeFile(t, dir, "mixed.bson", bsonEnvelope(t,
		bson.D{{Key: IDField, Value: int32(1)}, {Key: "name", Value: "archived"}},
		bson.D{{Key: IDField, Value: int32(2)}},
		bson.D{{Key: IDField, Value: int32(3)}},
		bson.D{{Key: "name", Value: "no id"}},
		bson.D{{Key: IDField, Value: "1"}},
		bson.D{{Key: "name", Value: "no id either"}},
		bson.D{{Key: IDField, Value: int64(1)}},
	))

	summary, err := NewRestorer(coll, nil).Restore(ctx, dir)
	require.NoError(t, err)

	// 3 and "1" are new ids, plus two documents without _id; int64(1)
	// repeats the first document's id
	want := []FileResult{{
		File:      "mixed.bson",
		Documents: 7,
		Inserted:  4,
		Existing:  2,
		Repeated:  1,
		WithoutID: 2,
	}}
	if diff := cmp.Diff(want, summary.Files, ignoreErr()); diff != "" {
		t.Errorf("unexpected file results (-want +got):\n%s", diff)
	}
	assert.EqualValues(t, 4, summary.Inserted)
	assert.Len(t, coll.docs, 6)

	name, err := coll.get(int32(1)).LookupErr("name")
	require.NoError(t, err)
	assert.Equal(t, "original", name.StringValue(), "existing documents are never overwritten")
}

func TestRestoreNumericIDsCompareByValue(t *testing.T) {
	testtype.SkipUnlessTestType(t, testtype.UnitTestType)
	ctx := context.Background()

	t.Run("a stored double matches a json integer", func(t *testing.T) {
		coll := newMemCollection()
		coll.seed(bson.D{{Key: IDField, Value: float64(1)}, {Key: "name", Value: "stored"}})

		dir := t.TempDir()
		writeFile(t, dir, "a.json", []byte(`{"docs": [{"_id": 1}]}`))

		summary, err := NewRestorer(coll, nil).Restore(ctx, dir)
		require.NoError(t, err)
		require.Empty(t, summary.Failures())
		assert.EqualValues(t, 0, summary.Inserted)
		assert.EqualValues(t, 1, summary.Files[0].Existing)
		assert.Zero(t, coll.insertCalls, "nothing should be sent to insert")
	})

	t.Run("mixed numeric types against stored int64, double and decimal", func(t *testing.T) {
		coll := newMemCollection()
		coll.seed(
			bson.D{{Key: IDField, Value: int64(1)}},
			bson.D{{Key: IDField, Value: float64(2)}},
			bson.D{{Key: IDField, Value: mustDecimal(t, "3.00")}},
		)

		dir := t.TempDir()
		writeFile(t, dir, "a.json", []byte(`{"docs": [
			{"_id": 1}, {"_id": {"$numberLong": "2"}}, {"_id": 3.0},
			{"_id": 4}, {"_id": 4.5}, {"_id": "1"}
		]}`))

		summary, err := NewRestorer(coll, nil).Restore(ctx, dir)
		require.NoError(t, err)
		require.Empty(t, summary.Failures())
		assert.EqualValues(t, 3, summary.Files[0].Existing)
		assert.EqualValues(t, 3, summary.Inserted)
		assert.Len(t, coll.docs, 6)
	})
}

func TestRestoreKeepsDocumentOrder(t *testing.T) {
	testtype.SkipUnlessTestType(t, testtype.UnitTestType)
	ctx := context.Background()

	coll := newMemCollection()
	coll.seed(bson.D{{Key: IDField, Value: int32(2)}})

	dir := t.TempDir()
	writeFile(t, dir, "a.bson", bsonEnvelope(t,
		bson.D{{Key: "seq", Value: int32(0)}},
		bson.D{{Key: IDField, Value: int32(1)}, {Key: "seq", Value: int32(1)}},
		bson.D{{Key: IDField, Value: int32(2)}, {Key: "seq", Value: int32(2)}},
		bson.D{{Key: "seq", Value: int32(3)}},
		bson.D{{Key: IDField, Value: int32(4)}, {Key: "seq", Value: int32(4)}},
		bson.D{{Key: "seq", Value: int32(5)}},
	))

	summary, err := NewRestorer(coll, nil).Restore(ctx, dir)
	require.NoError(t, err)
	assert.EqualValues(t, 5, summary.Inserted)

	var order []int32
	for _, doc := range coll.inserted {
		order = append(order, doc.Lookup("seq").Int32())
	}
	assert.Equal(t, []int32{0, 1, 3, 4, 5}, order)
}

func TestRestoreEmptyDocs(t *testing.T) {
	testtype.SkipUnlessTestType(t, testtype.UnitTestType)
	ctx := context.Background()

	dir := t.TempDir()
	writeFile(t, dir, "a_empty.json", []byte(`{"docs": []}`))
	writeFile(t, dir, "b_missing.json", []byte(`{"archivedAt": 1700000000}`))
	writeFile(t, dir, "c_null.json", []byte(`{"docs": null}`))
	writeFile(t, dir, "d_empty.bson", bsonEnvelope(t))
	writeFile(t, dir, "e_empty_array.json", []byte(`[]`))

	logs := captureLog(t)
	coll := newMemCollection()
	summary, err := NewRestorer(coll, nil).Restore(ctx, dir)
	require.NoError(t, err)

	require.Len(t, summary.Files, 5)
	assert.Empty(t, summary.Failures())
	assert.EqualValues(t, 0, summary.Inserted)
	assert.Zero(t, coll.insertCalls)
	assert.Empty(t, coll.lookupBatches)
	for _, name := range []string{"a_empty.json", "b_missing.json", "c_null.json", "d_empty.bson", "e_empty_array.json"} {
		assert.Contains(t, logs.String(), "no documents in "+name)
	}
}

func TestRestoreContinuesPastBadFiles(t *testing.T) {
	testtype.SkipUnlessTestType(t, testtype.UnitTestType)
	ctx := context.Background()

	dir := t.TempDir()
	writeFile(t, dir, "a_garbage.bson", []byte("definitely not bson"))
	writeFile(t, dir, "b_empty.json", []byte("  \n"))
	writeFile(t, dir, "c_empty.bson", nil)
	writeFile(t, dir, "d_broken.json", []byte(`{"docs": [{"_id": 1}`))
	writeFile(t, dir, "e_docs_not_array.json", []byte(`{"docs": {"_id": 1}}`))
	writeFile(t, dir, "f_element_not_doc.json", []byte(`{"docs": [{"_id": 1}, 2]}`))
	writeFile(t, dir, "g_scalar.json", []byte(`42`))
	writeFile(t, dir, "h_good.json", jsonEnvelope(10, 11))
	writeFile(t, dir, "i_bad_gzip.json.gz", []byte("not gzip"))

	logs := captureLog(t)
	coll := newMemCollection()
	summary, err := NewRestorer(coll, nil).Restore(ctx, dir)
	require.NoError(t, err, "per-file failures do not fail the run")

	require.Len(t, summary.Files, 9)
	failures := summary.Failures()
	require.Len(t, failures, 8)
	for _, fr := range failures {
		var decodeErr *DecodeError
		assert.True(t, errors.As(fr.Err, &decodeErr), "%v: %v", fr.File, fr.Err)
		assert.Equal(t, fr.File, decodeErr.File)
		assert.Contains(t, logs.String(), "error processing "+fr.File+": ")
	}

	assert.EqualValues(t, 2, summary.Inserted)
	assert.NotNil(t, coll.get(int32(10)))
	assert.Contains(t, logs.String(), "inserted 2 new documents from h_good.json")
	assert.Contains(t, logs.String(), "8 files failed")
}

func TestRestoreTotalIsSumOfFiles(t *testing.T) {
	testtype.SkipUnlessTestType(t, testtype.UnitTestType)
	ctx := context.Background()

	dir := t.TempDir()
	writeFile(t, dir, "1.json", jsonEnvelope(1, 2))
	writeFile(t, dir, "2.json", jsonEnvelope(2, 3, 4))
	writeFile(t, dir, "3.json", jsonEnvelope(4, 5, 6, 7))

	summary, err := NewRestorer(newMemCollection(), nil).Restore(ctx, dir)
	require.NoError(t, err)

	var sum int64
	for _, fr := range summary.Files {
		sum += fr.Inserted
	}
	assert.Equal(t, sum, summary.Inserted)
	assert.EqualValues(t, 7, summary.Inserted)
	assert.Equal(t, []int64{2, 2, 3}, []int64{summary.Files[0].Inserted, summary.Files[1].Inserted, summary.Files[2].Inserted})
}

func TestRestoreDumpFormats(t *testing.T) {
	testtype.SkipUnlessTestType(t, testtype.UnitTestType)
	ctx := context.Background()

	var tarball bytes.Buffer
	require.NoError(t, archive.WriteTarGz(&tarball, []archive.File{
		{Name: "users.bson", Body: bsonEnvelope(t, bson.D{{Key: IDField, Value: int32(40)}}, bson.D{{Key: IDField, Value: int32(41)}})},
		{Name: "README", Body: []byte("ignored")},
		{Name: "nested/orders.json", Body: jsonEnvelope(42)},
		{Name: "bad.json", Body: []byte("{")},
		{Name: "compressed.json.gz", Body: gzipped(t, jsonEnvelope(43))},
	}))

	dir := t.TempDir()
	writeFile(t, dir, "archive_1700000000.json", []byte(`[{"_id": 20}, {"_id": 21}]`))
	writeFile(t, dir, "canonical.json", []byte(`{"docs": [{"_id": {"$oid": "5f1e8b9a2c3d4e5f6a7b8c9d"}, "at": {"$date": "2024-01-02T03:04:05Z"}}]}`))
	writeFile(t, dir, "compressed.bson.gz", gzipped(t, bsonEnvelope(t, bson.D{{Key: IDField, Value: int32(30)}})))
	writeFile(t, dir, "users_archive_1700000100.tar.gz", tarball.Bytes())
	writeFile(t, dir, "notes.txt", []byte("not a dump"))
	writeFile(t, dir, "subdir/hidden.json", jsonEnvelope(99))

	coll := newMemCollection()
	summary, err := NewRestorer(coll, nil).Restore(ctx, dir)
	require.NoError(t, err)

	var names []string
	for _, fr := range summary.Files {
		names = append(names, fr.File)
	}
	assert.Equal(t, []string{
		"archive_1700000000.json",
		"canonical.json",
		"compressed.bson.gz",
		"users_archive_1700000100.tar.gz/users.bson",
		"users_archive_1700000100.tar.gz/nested/orders.json",
		"users_archive_1700000100.tar.gz/bad.json",
		"users_archive_1700000100.tar.gz/compressed.json.gz",
	}, names)

	failures := summary.Failures()
	require.Len(t, failures, 1)
	assert.Equal(t, "users_archive_1700000100.tar.gz/bad.json", failures[0].File)

	assert.EqualValues(t, 8, summary.Inserted)
	assert.Nil(t, coll.get(int32(99)), "subdirectories are not read")
	for _, id := range []int32{20, 21, 30, 40, 41, 42, 43} {
		assert.NotNil(t, coll.get(id), "document %d", id)
	}
}

func TestRestoreCorruptArchive(t *testing.T) {
	testtype.SkipUnlessTestType(t, testtype.UnitTestType)

	dir := t.TempDir()
	writeFile(t, dir, "broken.tgz", []byte("not a tarball"))
	writeFile(t, dir, "ok.json", jsonEnvelope(1))

	summary, err := NewRestorer(newMemCollection(), nil).Restore(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, summary.Files, 2)

	var decodeErr *DecodeError
	require.True(t, errors.As(summary.Files[0].Err, &decodeErr))
	assert.Equal(t, "broken.tgz", decodeErr.File)
	assert.EqualValues(t, 1, summary.Inserted)
}

func TestRestoreRepeatedIDsKeepFirst(t *testing.T) {
	testtype.SkipUnlessTestType(t, testtype.UnitTestType)

	dir := t.TempDir()
	writeFile(t, dir, "dups.json", []byte(`{"docs": [{"_id": 1, "v": "first"}, {"_id": 2}, {"_id": 1, "v": "second"}]}`))

	coll := newMemCollection()
	summary, err := NewRestorer(coll, nil).Restore(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, summary.Files, 1)
	assert.NoError(t, summary.Files[0].Err)
	assert.EqualValues(t, 2, summary.Inserted)
	assert.EqualValues(t, 1, summary.Files[0].Repeated)

	v, err := coll.get(int32(1)).LookupErr("v")
	require.NoError(t, err)
	assert.Equal(t, "first", v.StringValue())
}

func TestRestoreRejectMissingID(t *testing.T) {
	testtype.SkipUnlessTestType(t, testtype.UnitTestType)

	dir := t.TempDir()
	writeFile(t, dir, "partial.json", []byte(`{"docs": [{"_id": 1}, {"name": "anonymous"}, {"_id": 2}]}`))

	coll := newMemCollection()
	summary, err := NewRestorer(coll, &OutputOptions{RejectMissingID: true}).Restore(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, summary.Files, 1)

	var missing *MissingFieldError
	require.True(t, errors.As(summary.Files[0].Err, &missing))
	assert.Equal(t, &MissingFieldError{File: "partial.json", Field: "_id", Index: 1}, missing)
	assert.Empty(t, coll.docs, "nothing is written when a document is rejected")
	assert.Empty(t, coll.lookupBatches)
}

func TestRestoreLookupBatches(t *testing.T) {
	testtype.SkipUnlessTestType(t, testtype.UnitTestType)

	ids := make([]int, 2500)
	for i := range ids {
		ids[i] = i
	}
	dir := t.TempDir()
	writeFile(t, dir, "big.json", jsonEnvelope(ids...))

	coll := newMemCollection()
	summary, err := NewRestorer(coll, nil).Restore(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, []int{1000, 1000, 500}, coll.lookupBatches)
	assert.EqualValues(t, 2500, summary.Inserted)
	assert.Equal(t, 1, coll.insertCalls, "novel documents go out in one insert")
}

func TestRestoreStoreErrors(t *testing.T) {
	testtype.SkipUnlessTestType(t, testtype.UnitTestType)
	ctx := context.Background()

	t.Run("lookup failure", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "a.json", jsonEnvelope(1, 2))
		writeFile(t, dir, "b.json", jsonEnvelope(3))

		coll := newMemCollection()
		coll.lookupErr = errConnectionReset
		summary, err := NewRestorer(coll, nil).Restore(ctx, dir)
		require.NoError(t, err)
		require.Len(t, summary.Failures(), 2)

		var storeErr *StoreError
		require.True(t, errors.As(summary.Files[0].Err, &storeErr))
		assert.Equal(t, "lookup", storeErr.Op)
		assert.ErrorIs(t, summary.Files[0].Err, errConnectionReset)
		assert.Zero(t, coll.insertCalls)
	})

	t.Run("partial insert still counts", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "a.json", jsonEnvelope(1, 2, 3, 4))
		writeFile(t, dir, "b.json", jsonEnvelope(5))

		coll := newMemCollection()
		coll.insertErr = errConnectionReset
		coll.failAfter = 2
		summary, err := NewRestorer(coll, nil).Restore(ctx, dir)
		require.NoError(t, err)

		var storeErr *StoreError
		require.True(t, errors.As(summary.Files[0].Err, &storeErr))
		assert.Equal(t, "insert", storeErr.Op)
		assert.EqualValues(t, 2, storeErr.Inserted)
		assert.EqualValues(t, 2, summary.Files[0].Inserted)
		assert.ErrorIs(t, storeErr, errConnectionReset)

		// b.json has a single document, so it fits before failAfter
		assert.NoError(t, summary.Files[1].Err)
		assert.EqualValues(t, 3, summary.Inserted)
	})

	t.Run("a concurrent writer causes a duplicate key error", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "a.json", jsonEnvelope(1, 2, 3))

		coll := newMemCollection()
		coll.hide(int32(2))
		summary, err := NewRestorer(coll, nil).Restore(ctx, dir)
		require.NoError(t, err)

		var storeErr *StoreError
		require.True(t, errors.As(summary.Files[0].Err, &storeErr))
		assert.EqualValues(t, 1, storeErr.Inserted)
		assert.EqualValues(t, 1, storeErr.Failed)
	})

	t.Run("duplicate keys are skipped when ignored", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "a.json", jsonEnvelope(1, 2, 3))

		coll := newMemCollection()
		coll.ignoreDuplicates = true
		coll.hide(int32(2))
		logs := captureLog(t)
		summary, err := NewRestorer(coll, &OutputOptions{IgnoreDuplicates: true}).Restore(ctx, dir)
		require.NoError(t, err)
		require.Empty(t, summary.Failures())
		assert.EqualValues(t, 2, summary.Inserted)
		assert.EqualValues(t, 1, summary.Files[0].Duplicates)
		assert.Contains(t, logs.String(), "inserted 2 new documents from a.json")
	})
}

func TestRestoreDryRun(t *testing.T) {
	testtype.SkipUnlessTestType(t, testtype.UnitTestType)

	dir := t.TempDir()
	writeFile(t, dir, "users.json", jsonEnvelope(1, 2, 3))

	coll := newMemCollection()
	logs := captureLog(t)
	summary, err := NewRestorer(coll, &OutputOptions{DryRun: true}).Restore(context.Background(), dir)
	require.NoError(t, err)
	assert.EqualValues(t, 3, summary.Inserted)
	assert.Empty(t, coll.docs)
	assert.Zero(t, coll.insertCalls)
	assert.Equal(t, []int{3}, coll.lookupBatches)
	assert.Contains(t, logs.String(), "would insert 3 new documents from users.json")
	assert.Contains(t, logs.String(), "done. would insert 3 new documents in total")
}

func TestRestoreStopOnError(t *testing.T) {
	testtype.SkipUnlessTestType(t, testtype.UnitTestType)

	dir := t.TempDir()
	writeFile(t, dir, "a.json", jsonEnvelope(1))
	writeFile(t, dir, "b.json", []byte("{oops"))
	writeFile(t, dir, "c.json", jsonEnvelope(2))

	coll := newMemCollection()
	summary, err := NewRestorer(coll, &OutputOptions{StopOnError: true}).Restore(context.Background(), dir)
	require.Error(t, err)

	var decodeErr *DecodeError
	assert.True(t, errors.As(err, &decodeErr))
	assert.Len(t, summary.Files, 2)
	assert.EqualValues(t, 1, summary.Inserted)
	assert.Nil(t, coll.get(int32(2)))
}

func TestRestoreCancelled(t *testing.T) {
	testtype.SkipUnlessTestType(t, testtype.UnitTestType)

	dir := t.TempDir()
	writeFile(t, dir, "a.json", jsonEnvelope(1))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	coll := newMemCollection()
	summary, err := NewRestorer(coll, nil).Restore(ctx, dir)
	assert.ErrorIs(t, err, util.ErrTerminated)
	assert.Equal(t, util.ErrTerminated, summary.Err)
	assert.Empty(t, summary.Files)
	assert.Empty(t, coll.docs)
}

func TestRestoreMissingDirectory(t *testing.T) {
	testtype.SkipUnlessTestType(t, testtype.UnitTestType)

	_, err := NewRestorer(newMemCollection(), nil).Restore(context.Background(), filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestRestoreFileDirectly(t *testing.T) {
	testtype.SkipUnlessTestType(t, testtype.UnitTestType)
	ctx := context.Background()

	dir := t.TempDir()
	writeFile(t, dir, "users.bson", bsonEnvelope(t, bson.D{{Key: IDField, Value: "alice"}}, bson.D{{Key: IDField, Value: "bob"}}))
	restorer := NewRestorer(newMemCollection(), nil)

	fr, err := restorer.RestoreFile(ctx, filepath.Join(dir, "users.bson"))
	require.NoError(t, err)
	assert.EqualValues(t, 2, fr.Inserted)

	fr, err = restorer.RestoreFile(ctx, filepath.Join(dir, "users.bson"))
	require.NoError(t, err)
	assert.EqualValues(t, 0, fr.Inserted)
	assert.EqualValues(t, 2, fr.Existing)

	_, err = restorer.RestoreFile(ctx, filepath.Join(dir, "missing.json"))
	var decodeErr *DecodeError
	assert.True(t, errors.As(err, &decodeErr))

	_, err = restorer.RestoreFile(ctx, filepath.Join(dir, "notes.txt"))
	assert.True(t, errors.As(err, &decodeErr))
}
