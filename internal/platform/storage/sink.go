// Package storage provides the output sinks that persist downloaded price data.
package storage

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gocloud.dev/blob"

	"stock_retriever/internal/feature/download/usecase"
)

// Sink is a usecase.Sink that owns resources to release after the batch.
type Sink interface {
	usecase.Sink
	Close() error
}

var (
	_ Sink = (*FileSink)(nil)
	_ Sink = (*BucketSink)(nil)
)

// OpenSink returns a BucketSink for bucketURL, or a FileSink on the local filesystem when bucketURL is empty.
func OpenSink(ctx context.Context, bucketURL string) (Sink, error) {
	if bucketURL == "" {
		return NewFileSink(), nil
	}
	bkt, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, fmt.Errorf("open bucket %s: %w", bucketURL, err)
	}
	return NewBucketSink(bkt), nil
}

// FileSink writes each response to a local file, replacing any previous content.
// Parent directories must already exist.
type FileSink struct {
	perm os.FileMode
}

// NewFileSink creates a FileSink that writes files with mode 0644.
func NewFileSink() *FileSink {
	return &FileSink{perm: 0o644}
}

func (s *FileSink) Write(_ context.Context, path string, data []byte) error {
	return os.WriteFile(path, data, s.perm)
}

func (s *FileSink) Close() error { return nil }

// BucketSink writes each response as an object in a gocloud.dev bucket.
type BucketSink struct {
	bucket *blob.Bucket
}

// NewBucketSink wraps an opened bucket. Close closes the bucket.
func NewBucketSink(bucket *blob.Bucket) *BucketSink {
	return &BucketSink{bucket: bucket}
}

func (s *BucketSink) Write(ctx context.Context, path string, data []byte) error {
	// Object keys are relative to the bucket root.
	key := strings.TrimLeft(path, "/")
	return s.bucket.WriteAll(ctx, key, data, &blob.WriterOptions{ContentType: "text/csv"})
}

func (s *BucketSink) Close() error {
	return s.bucket.Close()
}
