package s3

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"go.uber.org/zap"

	"github.com/ebogdum/drivefs/backends"
	"github.com/ebogdum/drivefs/config"
)

// S3Adapter implements the backends.ObjectStore interface for S3-compatible stores
type S3Adapter struct {
	client               s3iface.S3API
	bucketName           string
	region               string
	serverSideEncryption string
	kmsKeyID             string
	logger               *zap.Logger
}

// NewS3Adapter creates a new S3 storage adapter and makes sure the bucket exists.
// Any bucket check failure other than "not found" is returned.
func NewS3Adapter(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (*S3Adapter, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("S3 bucket name is required")
	}

	awsConfig := &aws.Config{
		Region:     aws.String(cfg.Region),
		DisableSSL: aws.Bool(!cfg.UseSSL),
	}

	if cfg.AccessKey != "" || cfg.SecretKey != "" {
		awsConfig.Credentials = credentials.NewStaticCredentials(cfg.AccessKey, cfg.SecretKey, "")
	}

	// Custom endpoint for MinIO and other S3-compatible servers
	if cfg.Endpoint != "" {
		awsConfig.Endpoint = aws.String(cfg.Endpoint)
		awsConfig.S3ForcePathStyle = aws.Bool(cfg.ForcePathStyle)
		awsConfig.S3DisableContentMD5Validation = aws.Bool(true)
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	adapter := NewS3AdapterWithClient(s3.New(sess), cfg, logger)
	if err := adapter.EnsureBucket(ctx); err != nil {
		return nil, err
	}

	return adapter, nil
}

// NewS3AdapterWithClient wraps an existing S3 client without touching the bucket
func NewS3AdapterWithClient(client s3iface.S3API, cfg config.StorageConfig, logger *zap.Logger) *S3Adapter {
	return &S3Adapter{
		client:               client,
		bucketName:           cfg.Bucket,
		region:               cfg.Region,
		serverSideEncryption: cfg.ServerSideEncryption,
		kmsKeyID:             cfg.KMSKeyID,
		logger:               logger,
	}
}

// Bucket returns the configured bucket name
func (a *S3Adapter) Bucket() string {
	return a.bucketName
}

// EnsureBucket checks the bucket with HeadBucket and creates it on a not-found answer.
// Losing a creation race to another process is not an error.
func (a *S3Adapter) EnsureBucket(ctx context.Context) error {
	_, err := a.client.HeadBucketWithContext(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(a.bucketName),
	})
	if err == nil {
		a.logger.Info("Bucket exists", zap.String("bucket", a.bucketName))
		return nil
	}

	if !isBucketMissing(err) {
		a.logger.Error("Failed to check bucket", zap.String("bucket", a.bucketName), zap.Error(err))
		return fmt.Errorf("failed to access S3 bucket %s: %w", a.bucketName, err)
	}

	a.logger.Info("Bucket does not exist, creating", zap.String("bucket", a.bucketName))

	input := &s3.CreateBucketInput{
		Bucket: aws.String(a.bucketName),
	}
	// us-east-1 rejects an explicit location constraint
	if a.region != "" && a.region != "us-east-1" {
		input.CreateBucketConfiguration = &s3.CreateBucketConfiguration{
			LocationConstraint: aws.String(a.region),
		}
	}

	if _, err := a.client.CreateBucketWithContext(ctx, input); err != nil {
		if isBucketAlreadyPresent(err) {
			a.logger.Info("Bucket created concurrently", zap.String("bucket", a.bucketName))
			return nil
		}
		return fmt.Errorf("failed to create S3 bucket %s: %w", a.bucketName, err)
	}

	a.logger.Info("Bucket created", zap.String("bucket", a.bucketName))
	return nil
}

// Close closes any resources used by the S3 adapter
func (a *S3Adapter) Close() error {
	// No resources to close for S3
	return nil
}

// copySource builds the URL-encoded "bucket/key" value CopyObject expects
func (a *S3Adapter) copySource(key string) string {
	segments := strings.Split(key, "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return url.PathEscape(a.bucketName) + "/" + strings.Join(segments, "/")
}

func trimETag(etag string) string {
	return strings.Trim(etag, `"`)
}

// isS3NotFound reports a missing object. A missing bucket is not a missing
// object: it stays a backend failure after startup.
func isS3NotFound(err error) bool {
	var aerr awserr.Error
	if errors.As(err, &aerr) {
		switch aerr.Code() {
		case s3.ErrCodeNoSuchKey, "NotFound":
			return true
		}
	}
	return false
}

// isBucketMissing reports a HeadBucket answer for a bucket that does not exist.
// HeadBucket responses carry no body, so a bare 404 counts as well.
func isBucketMissing(err error) bool {
	var aerr awserr.Error
	if errors.As(err, &aerr) && aerr.Code() == s3.ErrCodeNoSuchBucket {
		return true
	}

	var reqErr awserr.RequestFailure
	return errors.As(err, &reqErr) && reqErr.StatusCode() == http.StatusNotFound
}

// isBucketAlreadyPresent reports a create-bucket race lost to another writer
func isBucketAlreadyPresent(err error) bool {
	var aerr awserr.Error
	if errors.As(err, &aerr) {
		switch aerr.Code() {
		case s3.ErrCodeBucketAlreadyOwnedByYou, s3.ErrCodeBucketAlreadyExists:
			return true
		}
	}
	return false
}

// wrapError converts an SDK error into a wrapped error, mapping not-found answers
// to backends.ErrNotFound
func wrapError(err error, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	if isS3NotFound(err) {
		return fmt.Errorf("%s: %w", msg, backends.ErrNotFound)
	}
	return fmt.Errorf("%s: %w", msg, err)
}
