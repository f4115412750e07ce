package blobstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

const backendS3 = "s3"

// S3Options configures the S3-backed blob store.
type S3Options struct {
	Bucket string
	Prefix string
	Region string
}

// S3Store keeps blob bytes in an S3 bucket under content-addressed keys. Incoming
// streams are spooled to a local temp file to compute the digest before the object
// is uploaded, so the CAS key contract matches the local backend.
type S3Store struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3Store creates an S3 blob store from ambient AWS credentials.
func NewS3Store(ctx context.Context, opts S3Options) (*S3Store, error) {
	bucket := strings.TrimSpace(opts.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}

	var loadOpts []func(*awsconfig.LoadOptions) error
	if region := strings.TrimSpace(opts.Region); region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return &S3Store{
		client: s3.NewFromConfig(awsCfg),
		bucket: bucket,
		prefix: strings.TrimSpace(opts.Prefix),
	}, nil
}

// Backend reports the backend name recorded on file rows.
func (c *S3Store) Backend() string {
	return backendS3
}

func (c *S3Store) objectKey(key string) string {
	if c.prefix == "" {
		return key
	}
	return c.prefix + "/" + key
}

// Put spools the stream locally to compute SHA-256, then uploads by digest key.
func (c *S3Store) Put(ctx context.Context, r io.Reader) (PutResult, error) {
	var zero PutResult
	if c == nil || c.client == nil {
		return zero, fmt.Errorf("blob store is not configured")
	}
	if r == nil {
		return zero, fmt.Errorf("reader is required")
	}
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	tmp, err := os.CreateTemp("", "s3put-*")
	if err != nil {
		return zero, err
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}()

	h := sha256.New()
	n, err := io.Copy(io.MultiWriter(tmp, h), r)
	if err != nil {
		return zero, err
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return zero, err
	}

	digest := hex.EncodeToString(h.Sum(nil))
	key := casKeyFromDigest(digest)
	_, err = c.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(c.bucket),
		Key:           aws.String(c.objectKey(key)),
		Body:          tmp,
		ContentLength: aws.Int64(n),
	})
	if err != nil {
		return zero, fmt.Errorf("put blob to s3: %w", err)
	}

	return PutResult{SHA256: digest, SizeBytes: n, Key: key}, nil
}

// Open returns the object body stream. Missing keys surface as fs.ErrNotExist,
// matching the local backend.
func (c *S3Store) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if c == nil || c.client == nil {
		return nil, fmt.Errorf("blob store is not configured")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, fmt.Errorf("blob key is required")
	}

	out, err := c.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(c.objectKey(key)),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		var notFound *types.NotFound
		if errors.As(err, &noSuchKey) || errors.As(err, &notFound) {
			return nil, fmt.Errorf("blob %s: %w", key, fs.ErrNotExist)
		}
		return nil, fmt.Errorf("get blob from s3: %w", err)
	}
	return out.Body, nil
}

// Delete removes a blob object. Deleting a missing key is a no-op on S3 already.
func (c *S3Store) Delete(ctx context.Context, key string) error {
	if c == nil || c.client == nil {
		return fmt.Errorf("blob store is not configured")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("blob key is required")
	}

	_, err := c.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(c.objectKey(key)),
	})
	if err != nil {
		return fmt.Errorf("delete blob from s3: %w", err)
	}
	return nil
}

// Healthy verifies the bucket is reachable.
func (c *S3Store) Healthy(ctx context.Context) error {
	if c == nil || c.client == nil {
		return fmt.Errorf("blob store is not configured")
	}
	_, err := c.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(c.bucket)})
	if err != nil {
		return fmt.Errorf("head bucket %s: %w", c.bucket, err)
	}
	return nil
}

var _ Store = (*LocalCAS)(nil)
var _ Store = (*S3Store)(nil)
