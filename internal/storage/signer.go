// Package storage exposes read access to externally stored media. The core
// only ever handles opaque object references; bytes never flow through it.
package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// URLSigner produces short-lived viewing URLs for opaque object references.
type URLSigner interface {
	SignedURL(ctx context.Context, ref string, ttl time.Duration) (string, error)
}

// S3Signer presigns GET requests against a single media bucket.
type S3Signer struct {
	presign *s3.PresignClient
	bucket  string
}

// NewS3Signer creates a signer for the given bucket.
func NewS3Signer(client *s3.Client, bucket string) *S3Signer {
	return &S3Signer{presign: s3.NewPresignClient(client), bucket: bucket}
}

var _ URLSigner = (*S3Signer)(nil)

// SignedURL returns a presigned GET URL for ref, valid for ttl. Refs written
// as s3://bucket/key are honored; bare keys resolve against the configured
// bucket.
func (s *S3Signer) SignedURL(ctx context.Context, ref string, ttl time.Duration) (string, error) {
	bucket, key := s.resolve(ref)
	if key == "" {
		return "", fmt.Errorf("empty object reference")
	}
	out, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", key, err)
	}
	return out.URL, nil
}

func (s *S3Signer) resolve(ref string) (bucket, key string) {
	if rest, ok := strings.CutPrefix(ref, "s3://"); ok {
		if b, k, found := strings.Cut(rest, "/"); found {
			return b, k
		}
		return rest, ""
	}
	return s.bucket, strings.TrimPrefix(ref, "/")
}

// NoopSigner returns the reference unchanged. Useful in development when no
// object store is configured.
type NoopSigner struct{}

func (NoopSigner) SignedURL(ctx context.Context, ref string, ttl time.Duration) (string, error) {
	return ref, nil
}

var _ URLSigner = NoopSigner{}
