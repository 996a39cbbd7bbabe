// Package storage reads garment reference images kept in S3.
package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/fitly/tryon/pkg/errors"
)

// ObjectAPI is the subset of the S3 API used by Client.
type ObjectAPI interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// Client provides S3 storage operations
type Client struct {
	api     ObjectAPI
	bucket  string
	maxSize int64
}

// Options configures NewClient.
type Options struct {
	Bucket string
	Region string
	// Anonymous skips credential resolution, for public catalog buckets.
	Anonymous bool
	// MaxSize caps the bytes read per object.
	MaxSize int64
}

// NewClient creates a new S3 client
func NewClient(ctx context.Context, opts Options) (*Client, error) {
	slog.Info("s3_client_init", "bucket", opts.Bucket, "region", opts.Region, "anonymous", opts.Anonymous)

	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(opts.Region)}
	if opts.Anonymous {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(aws.AnonymousCredentials{}))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		slog.Error("aws_config_load_failed", "error", err)
		return nil, errors.Wrap(err, "failed to load AWS config")
	}

	slog.Info("s3_client_created", "bucket", opts.Bucket)

	return NewClientWithAPI(s3.NewFromConfig(cfg), opts.Bucket, opts.MaxSize), nil
}

// NewClientWithAPI wraps an existing S3 API implementation.
func NewClientWithAPI(api ObjectAPI, bucket string, maxSize int64) *Client {
	return &Client{api: api, bucket: bucket, maxSize: maxSize}
}

// ParseRef splits an s3://bucket/key reference. A bare key resolves against
// the client's default bucket.
func (c *Client) ParseRef(ref string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(ref, "s3://")
	if !ok {
		key = strings.TrimPrefix(ref, "/")
		if key == "" {
			return "", "", fmt.Errorf("empty s3 key")
		}
		if c.bucket == "" {
			return "", "", fmt.Errorf("no bucket configured for key %q", key)
		}
		return c.bucket, key, nil
	}
	bucket, key, ok = strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("malformed s3 reference %q", ref)
	}
	return bucket, key, nil
}

// Fetch reads an object fully into memory and returns it with its content type.
func (c *Client) Fetch(ctx context.Context, ref string) ([]byte, string, error) {
	bucket, key, err := c.ParseRef(ref)
	if err != nil {
		return nil, "", err
	}
	slog.Info("s3_fetch_start", "bucket", bucket, "s3_key", key)

	result, err := c.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		slog.Error("s3_get_object_failed", "bucket", bucket, "s3_key", key, "error", err)
		return nil, "", errors.Wrap(err, "failed to get object from S3")
	}
	defer result.Body.Close()

	var body io.Reader = result.Body
	if c.maxSize > 0 {
		body = io.LimitReader(result.Body, c.maxSize+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		slog.Error("s3_read_failed", "s3_key", key, "error", err)
		return nil, "", errors.Wrap(err, "failed to read object")
	}
	if c.maxSize > 0 && int64(len(data)) > c.maxSize {
		return nil, "", fmt.Errorf("object %s exceeds max size %d", key, c.maxSize)
	}

	contentType := aws.ToString(result.ContentType)
	slog.Info("s3_fetch_complete", "s3_key", key, "size_bytes", len(data), "content_type", contentType)

	return data, contentType, nil
}

// Exists checks if an object exists in S3
func (c *Client) Exists(ctx context.Context, ref string) (bool, error) {
	bucket, key, err := c.ParseRef(ref)
	if err != nil {
		return false, err
	}

	_, err = c.api.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})

	if err != nil {
		// Check if it's a NotFound error
		if strings.Contains(err.Error(), "NotFound") {
			slog.Info("s3_object_not_found", "s3_key", key)
			return false, nil
		}
		slog.Error("s3_head_object_failed", "s3_key", key, "error", err)
		return false, errors.Wrap(err, "failed to check object existence")
	}

	return true, nil
}
