package s3

import (
	"context"
	"io"
	"mime"
	"path"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3"
	"go.uber.org/zap"

	"github.com/ebogdum/drivefs/backends"
)

// PutObject writes a single object
func (a *S3Adapter) PutObject(ctx context.Context, key string, body io.ReadSeeker, contentType string) error {
	putInput := &s3.PutObjectInput{
		Bucket: aws.String(a.bucketName),
		Key:    aws.String(key),
		Body:   body,
	}

	// Set server-side encryption if configured
	if a.serverSideEncryption != "" {
		putInput.ServerSideEncryption = aws.String(a.serverSideEncryption)
		if a.serverSideEncryption == "aws:kms" && a.kmsKeyID != "" {
			putInput.SSEKMSKeyId = aws.String(a.kmsKeyID)
		}
	}

	if contentType == "" {
		contentType = backends.ContentType(key)
	}
	putInput.ContentType = aws.String(contentType)

	if _, err := a.client.PutObjectWithContext(ctx, putInput); err != nil {
		return wrapError(err, "failed to put object %s", key)
	}

	a.logger.Debug("Object written to S3",
		zap.String("bucket", a.bucketName),
		zap.String("key", key))

	return nil
}

// GetObject opens an object for reading
func (a *S3Adapter) GetObject(ctx context.Context, key string) (io.ReadCloser, *backends.ObjectInfo, error) {
	result, err := a.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, nil, wrapError(err, "failed to get object %s", key)
	}

	info := &backends.ObjectInfo{
		Key:          key,
		Size:         aws.Int64Value(result.ContentLength),
		ContentType:  aws.StringValue(result.ContentType),
		ETag:         trimETag(aws.StringValue(result.ETag)),
		LastModified: aws.TimeValue(result.LastModified),
	}

	a.logger.Debug("Object opened from S3",
		zap.String("bucket", a.bucketName),
		zap.String("key", key))

	return result.Body, info, nil
}

// HeadObject gets object metadata
func (a *S3Adapter) HeadObject(ctx context.Context, key string) (*backends.ObjectInfo, error) {
	result, err := a.client.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(a.bucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, wrapError(err, "failed to stat object %s", key)
	}

	return &backends.ObjectInfo{
		Key:          key,
		Size:         aws.Int64Value(result.ContentLength),
		ContentType:  aws.StringValue(result.ContentType),
		ETag:         trimETag(aws.StringValue(result.ETag)),
		LastModified: aws.TimeValue(result.LastModified),
	}, nil
}

// CopyObject copies srcKey to dstKey inside the bucket
func (a *S3Adapter) CopyObject(ctx context.Context, srcKey, dstKey string) error {
	copyInput := &s3.CopyObjectInput{
		Bucket:     aws.String(a.bucketName),
		CopySource: aws.String(a.copySource(srcKey)),
		Key:        aws.String(dstKey),
	}

	if a.serverSideEncryption != "" {
		copyInput.ServerSideEncryption = aws.String(a.serverSideEncryption)
		if a.serverSideEncryption == "aws:kms" && a.kmsKeyID != "" {
			copyInput.SSEKMSKeyId = aws.String(a.kmsKeyID)
		}
	}

	if _, err := a.client.CopyObjectWithContext(ctx, copyInput); err != nil {
		return wrapError(err, "failed to copy object %s to %s", srcKey, dstKey)
	}

	a.logger.Debug("Object copied in S3",
		zap.String("bucket", a.bucketName),
		zap.String("src", srcKey),
		zap.String("dst", dstKey))

	return nil
}

// DeleteObject removes a single object
func (a *S3Adapter) DeleteObject(ctx context.Context, key string) error {
	_, err := a.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(a.bucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil
		}
		return wrapError(err, "failed to delete object %s", key)
	}

	a.logger.Debug("Object deleted from S3",
		zap.String("bucket", a.bucketName),
		zap.String("key", key))

	return nil
}

// PresignGetObject returns a signed download URL valid for ttl
func (a *S3Adapter) PresignGetObject(ctx context.Context, key string, ttl time.Duration) (string, error) {
	req, _ := a.client.GetObjectRequest(&s3.GetObjectInput{
		Bucket:                     aws.String(a.bucketName),
		Key:                        aws.String(key),
		ResponseContentDisposition: aws.String(mime.FormatMediaType("attachment", map[string]string{"filename": path.Base(key)})),
	})
	req.SetContext(ctx)

	signed, err := req.Presign(ttl)
	if err != nil {
		return "", wrapError(err, "failed to presign object %s", key)
	}
	return signed, nil
}
