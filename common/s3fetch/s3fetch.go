// Copyright (C) MongoDB, Inc. 2014-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package s3fetch downloads dump files uploaded by the chive archiver from an
// S3 bucket into a local directory.
package s3fetch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/go-chive/chive-tools/common/archive"
	"github.com/go-chive/chive-tools/common/log"
	"github.com/go-chive/chive-tools/common/util"
	"github.com/samber/lo"
)

const DefaultRegion = "us-east-1"

// Client is the part of the S3 API a Fetcher uses.
type Client interface {
	s3.ListObjectsV2APIClient
	manager.DownloadAPIClient
}

// Fetcher lists and downloads dump objects from S3.
type Fetcher struct {
	client     Client
	downloader *manager.Downloader
}

// Object is a dump object selected for download.
type Object struct {
	Key       string
	LocalName string
	Size      int64
}

// New returns a Fetcher using the default AWS credential chain.
func New(ctx context.Context, region string) (*Fetcher, error) {
	if region == "" {
		region = DefaultRegion
	}
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS config: %w", err)
	}
	return NewWithClient(s3.NewFromConfig(cfg)), nil
}

// NewWithClient returns a Fetcher that talks to S3 through client.
func NewWithClient(client Client) *Fetcher {
	return &Fetcher{
		client:     client,
		downloader: manager.NewDownloader(client),
	}
}

// List returns every dump object under prefix in bucket, sorted by key.
func (f *Fetcher) List(ctx context.Context, bucket, prefix string) ([]Object, error) {
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
	}
	if prefix != "" {
		input.Prefix = aws.String(prefix)
	}

	var objects []types.Object
	paginator := s3.NewListObjectsV2Paginator(f.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list objects in s3://%s/%s: %w", bucket, prefix, err)
		}
		objects = append(objects, page.Contents...)
	}

	return SelectDumps(objects, prefix), nil
}

// SelectDumps keeps the objects whose key names a dump file and assigns each
// a local file name. Keys are made relative to prefix and any remaining
// slashes become underscores, so two keys never map to the same file.
func SelectDumps(objects []types.Object, prefix string) []Object {
	selected := lo.FilterMap(objects, func(obj types.Object, _ int) (Object, bool) {
		key := aws.ToString(obj.Key)
		if key == "" || strings.HasSuffix(key, "/") {
			return Object{}, false
		}
		if archive.FormatOf(key) == archive.FormatUnknown {
			return Object{}, false
		}
		rel := strings.TrimPrefix(strings.TrimPrefix(key, prefix), "/")
		return Object{
			Key:       key,
			LocalName: strings.ReplaceAll(rel, "/", "_"),
			Size:      aws.ToInt64(obj.Size),
		}, true
	})
	selected = lo.UniqBy(selected, func(obj Object) string { return obj.LocalName })
	sort.Slice(selected, func(i, j int) bool { return selected[i].Key < selected[j].Key })
	return selected
}

// Download writes obj from bucket into dir, using the object's local name.
func (f *Fetcher) Download(ctx context.Context, bucket string, obj Object, dir string) (string, error) {
	target := filepath.Join(dir, obj.LocalName)
	file, err := os.Create(target)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", target, err)
	}

	n, err := f.downloader.Download(ctx, file, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(obj.Key),
	})
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(target)
		return "", fmt.Errorf("failed to download s3://%s/%s: %w", bucket, obj.Key, err)
	}

	log.Logvf(log.DebugLow, "downloaded s3://%s/%s (%d bytes) to %s", bucket, obj.Key, n, target)
	return target, nil
}

// FetchAll downloads every dump object under prefix into a new temporary
// directory and returns its path. The caller removes the directory.
func (f *Fetcher) FetchAll(ctx context.Context, bucket, prefix string) (string, error) {
	objects, err := f.List(ctx, bucket, prefix)
	if err != nil {
		return "", err
	}
	log.Logvf(log.Info, "found %d dump %s in s3://%s/%s",
		len(objects), util.Pluralize(len(objects), "object", "objects"), bucket, prefix)

	dir, err := os.MkdirTemp("", "chiverestore-")
	if err != nil {
		return "", fmt.Errorf("failed to create download directory: %w", err)
	}

	for _, obj := range objects {
		if err := ctx.Err(); err != nil {
			_ = os.RemoveAll(dir)
			return "", err
		}
		if _, err := f.Download(ctx, bucket, obj, dir); err != nil {
			_ = os.RemoveAll(dir)
			return "", err
		}
	}
	return dir, nil
}
