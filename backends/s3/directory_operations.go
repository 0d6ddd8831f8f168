package s3

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3"
	"go.uber.org/zap"

	"github.com/ebogdum/drivefs/backends"
)

// ListPage issues a single ListObjectsV2 request.
// With a delimiter, immediate subfolders come back as common prefixes.
func (a *S3Adapter) ListPage(ctx context.Context, in backends.ListInput) (*backends.ListPage, error) {
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(a.bucketName),
		Prefix: aws.String(in.Prefix),
	}
	if in.Delimiter != "" {
		input.Delimiter = aws.String(in.Delimiter)
	}
	if in.ContinuationToken != "" {
		input.ContinuationToken = aws.String(in.ContinuationToken)
	}
	if in.MaxKeys > 0 {
		input.MaxKeys = aws.Int64(int64(in.MaxKeys))
	}

	result, err := a.client.ListObjectsV2WithContext(ctx, input)
	if err != nil {
		return nil, wrapError(err, "failed to list objects under %s", in.Prefix)
	}

	page := &backends.ListPage{}

	for _, commonPrefix := range result.CommonPrefixes {
		if commonPrefix.Prefix == nil {
			continue
		}
		page.CommonPrefixes = append(page.CommonPrefixes, *commonPrefix.Prefix)
	}

	for _, object := range result.Contents {
		if object.Key == nil {
			continue
		}
		page.Objects = append(page.Objects, backends.ObjectInfo{
			Key:          *object.Key,
			Size:         aws.Int64Value(object.Size),
			ETag:         trimETag(aws.StringValue(object.ETag)),
			LastModified: aws.TimeValue(object.LastModified),
		})
	}

	if aws.BoolValue(result.IsTruncated) && result.NextContinuationToken != nil {
		page.NextContinuationToken = *result.NextContinuationToken
	}

	return page, nil
}

// DeleteObjects removes a batch of keys with a single DeleteObjects call
func (a *S3Adapter) DeleteObjects(ctx context.Context, keys []string) ([]backends.DeleteFailure, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	if len(keys) > backends.MaxDeleteBatch {
		return nil, fmt.Errorf("%d keys: %w", len(keys), backends.ErrBatchTooLarge)
	}

	objects := make([]*s3.ObjectIdentifier, 0, len(keys))
	for _, key := range keys {
		objects = append(objects, &s3.ObjectIdentifier{Key: aws.String(key)})
	}

	result, err := a.client.DeleteObjectsWithContext(ctx, &s3.DeleteObjectsInput{
		Bucket: aws.String(a.bucketName),
		Delete: &s3.Delete{
			Objects: objects,
			Quiet:   aws.Bool(true),
		},
	})
	if err != nil {
		return nil, wrapError(err, "failed to delete %d objects", len(keys))
	}

	var failures []backends.DeleteFailure
	for _, e := range result.Errors {
		failures = append(failures, backends.DeleteFailure{
			Key:     aws.StringValue(e.Key),
			Code:    aws.StringValue(e.Code),
			Message: aws.StringValue(e.Message),
		})
	}

	a.logger.Debug("Batch deleted from S3",
		zap.String("bucket", a.bucketName),
		zap.Int("requested", len(keys)),
		zap.Int("failed", len(failures)))

	return failures, nil
}
