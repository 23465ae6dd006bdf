// Package archive copies raw meeting audio to S3-compatible object storage.
package archive

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// Options configures the S3 client.
type Options struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

// PutObjectAPI is the subset of the S3 client used by Store.
type PutObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Store writes audio uploads to a bucket.
type Store struct {
	client PutObjectAPI
	bucket string
	now    func() time.Time
}

// New creates a Store backed by a real S3 client.
// A custom Endpoint (MinIO and friends) switches to path-style addressing.
func New(ctx context.Context, opts Options) (*Store, error) {
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(opts.Region)}
	if opts.AccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, ""),
		))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})

	return NewWithClient(client, opts.Bucket), nil
}

// NewWithClient creates a Store around an existing client.
func NewWithClient(client PutObjectAPI, bucket string) *Store {
	return &Store{client: client, bucket: bucket, now: time.Now}
}

// Key returns the object key for an upload: audio/<username>/<yyyy>/<mm>/<uuid><ext>.
func Key(username, filename string, at time.Time) string {
	ext := strings.ToLower(filepath.Ext(filename))
	at = at.UTC()
	return fmt.Sprintf("audio/%s/%04d/%02d/%s%s", username, at.Year(), int(at.Month()), uuid.NewString(), ext)
}

// PutAudio uploads body and returns the object key.
func (s *Store) PutAudio(ctx context.Context, username, filename string, body io.Reader) (string, error) {
	key := Key(username, filename, s.now())

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   body,
	})
	if err != nil {
		return "", fmt.Errorf("failed to archive audio: %w", err)
	}

	return key, nil
}
