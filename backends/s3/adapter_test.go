package s3

import (
	"context"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ebogdum/drivefs/backends"
	"github.com/ebogdum/drivefs/config"
)

// fakeS3 records calls and serves canned answers. Unimplemented methods panic
// through the nil embedded interface.
type fakeS3 struct {
	s3iface.S3API

	headBucketErr   error
	createBucketErr error
	createInputs    []*s3.CreateBucketInput

	putInputs    []*s3.PutObjectInput
	copyInputs   []*s3.CopyObjectInput
	deleteInputs []*s3.DeleteObjectsInput
	deleteErr    error
	deleteOut    *s3.DeleteObjectsOutput

	listInputs []*s3.ListObjectsV2Input
	listOut    *s3.ListObjectsV2Output
	listErr    error

	deleteObjectErr error

	headErr error
}

func (f *fakeS3) HeadBucketWithContext(ctx aws.Context, in *s3.HeadBucketInput, opts ...request.Option) (*s3.HeadBucketOutput, error) {
	return &s3.HeadBucketOutput{}, f.headBucketErr
}

func (f *fakeS3) CreateBucketWithContext(ctx aws.Context, in *s3.CreateBucketInput, opts ...request.Option) (*s3.CreateBucketOutput, error) {
	f.createInputs = append(f.createInputs, in)
	return &s3.CreateBucketOutput{}, f.createBucketErr
}

func (f *fakeS3) PutObjectWithContext(ctx aws.Context, in *s3.PutObjectInput, opts ...request.Option) (*s3.PutObjectOutput, error) {
	f.putInputs = append(f.putInputs, in)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) HeadObjectWithContext(ctx aws.Context, in *s3.HeadObjectInput, opts ...request.Option) (*s3.HeadObjectOutput, error) {
	if f.headErr != nil {
		return nil, f.headErr
	}
	return &s3.HeadObjectOutput{
		ContentLength: aws.Int64(42),
		ContentType:   aws.String("text/plain"),
		ETag:          aws.String(`"abc"`),
	}, nil
}

func (f *fakeS3) GetObjectWithContext(ctx aws.Context, in *s3.GetObjectInput, opts ...request.Option) (*s3.GetObjectOutput, error) {
	return &s3.GetObjectOutput{
		Body:          io.NopCloser(strings.NewReader("payload")),
		ContentLength: aws.Int64(7),
		ETag:          aws.String(`"etag"`),
	}, nil
}

func (f *fakeS3) CopyObjectWithContext(ctx aws.Context, in *s3.CopyObjectInput, opts ...request.Option) (*s3.CopyObjectOutput, error) {
	f.copyInputs = append(f.copyInputs, in)
	return &s3.CopyObjectOutput{}, nil
}

func (f *fakeS3) DeleteObjectWithContext(ctx aws.Context, in *s3.DeleteObjectInput, opts ...request.Option) (*s3.DeleteObjectOutput, error) {
	if f.deleteObjectErr != nil {
		return nil, f.deleteObjectErr
	}
	return nil, awserr.NewRequestFailure(awserr.New(s3.ErrCodeNoSuchKey, "gone", nil), http.StatusNotFound, "req")
}

func (f *fakeS3) DeleteObjectsWithContext(ctx aws.Context, in *s3.DeleteObjectsInput, opts ...request.Option) (*s3.DeleteObjectsOutput, error) {
	f.deleteInputs = append(f.deleteInputs, in)
	if f.deleteErr != nil {
		return nil, f.deleteErr
	}
	if f.deleteOut != nil {
		return f.deleteOut, nil
	}
	return &s3.DeleteObjectsOutput{}, nil
}

func (f *fakeS3) ListObjectsV2WithContext(ctx aws.Context, in *s3.ListObjectsV2Input, opts ...request.Option) (*s3.ListObjectsV2Output, error) {
	f.listInputs = append(f.listInputs, in)
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.listOut, nil
}

func newTestAdapter(client s3iface.S3API, region string) *S3Adapter {
	return NewS3AdapterWithClient(client, config.StorageConfig{
		Bucket: "drive",
		Region: region,
	}, zap.NewNop())
}

func TestEnsureBucket(t *testing.T) {
	notFound := awserr.NewRequestFailure(awserr.New("NotFound", "Not Found", nil), http.StatusNotFound, "req")
	forbidden := awserr.NewRequestFailure(awserr.New("Forbidden", "Forbidden", nil), http.StatusForbidden, "req")

	tests := []struct {
		name          string
		region        string
		headErr       error
		createErr     error
		wantErr       bool
		wantCreate    bool
		wantLocConstr string
	}{
		{name: "exists", region: "eu-west-1"},
		{name: "missing creates with constraint", region: "eu-west-1", headErr: notFound, wantCreate: true, wantLocConstr: "eu-west-1"},
		{name: "missing in us-east-1", region: "us-east-1", headErr: notFound, wantCreate: true},
		{name: "no such bucket code", region: "us-east-1", headErr: noSuchBucket(), wantCreate: true},
		{
			name:       "create race owned by us",
			region:     "eu-west-1",
			headErr:    notFound,
			createErr:  awserr.New(s3.ErrCodeBucketAlreadyOwnedByYou, "owned", nil),
			wantCreate: true, wantLocConstr: "eu-west-1",
		},
		{
			name:       "create fails",
			region:     "eu-west-1",
			headErr:    notFound,
			createErr:  awserr.New("AccessDenied", "denied", nil),
			wantCreate: true, wantLocConstr: "eu-west-1",
			wantErr: true,
		},
		{name: "access denied is fatal", region: "eu-west-1", headErr: forbidden, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeS3{headBucketErr: tt.headErr, createBucketErr: tt.createErr}
			err := newTestAdapter(fake, tt.region).EnsureBucket(context.Background())

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}

			if !tt.wantCreate {
				assert.Empty(t, fake.createInputs)
				return
			}
			require.Len(t, fake.createInputs, 1)
			in := fake.createInputs[0]
			if tt.wantLocConstr == "" {
				assert.Nil(t, in.CreateBucketConfiguration)
			} else {
				require.NotNil(t, in.CreateBucketConfiguration)
				assert.Equal(t, tt.wantLocConstr, aws.StringValue(in.CreateBucketConfiguration.LocationConstraint))
			}
		})
	}
}

func TestPutObjectDefaultsContentType(t *testing.T) {
	fake := &fakeS3{}
	adapter := NewS3AdapterWithClient(fake, config.StorageConfig{
		Bucket:               "drive",
		ServerSideEncryption: "aws:kms",
		KMSKeyID:             "key-1",
	}, zap.NewNop())

	require.NoError(t, adapter.PutObject(context.Background(), "user-1-files/a/photo.PNG", strings.NewReader("x"), ""))
	require.Len(t, fake.putInputs, 1)
	in := fake.putInputs[0]
	assert.Equal(t, "image/png", aws.StringValue(in.ContentType))
	assert.Equal(t, "aws:kms", aws.StringValue(in.ServerSideEncryption))
	assert.Equal(t, "key-1", aws.StringValue(in.SSEKMSKeyId))
}

func TestHeadObjectNotFound(t *testing.T) {
	fake := &fakeS3{
		headErr: awserr.NewRequestFailure(awserr.New("NotFound", "Not Found", nil), http.StatusNotFound, "req"),
	}
	_, err := newTestAdapter(fake, "").HeadObject(context.Background(), "user-1-files/none")
	assert.ErrorIs(t, err, backends.ErrNotFound)

	fake.headErr = nil
	info, err := newTestAdapter(fake, "").HeadObject(context.Background(), "user-1-files/a.txt")
	require.NoError(t, err)
	assert.Equal(t, int64(42), info.Size)
	assert.Equal(t, "abc", info.ETag)
}

func TestGetObject(t *testing.T) {
	body, info, err := newTestAdapter(&fakeS3{}, "").GetObject(context.Background(), "user-1-files/a.txt")
	require.NoError(t, err)
	defer body.Close()

	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
	assert.Equal(t, "etag", info.ETag)
}

func TestDeleteObjectMissingIsNotAnError(t *testing.T) {
	assert.NoError(t, newTestAdapter(&fakeS3{}, "").DeleteObject(context.Background(), "user-1-files/none"))
}

func noSuchBucket() error {
	return awserr.NewRequestFailure(awserr.New(s3.ErrCodeNoSuchBucket, "The specified bucket does not exist", nil), http.StatusNotFound, "req")
}

func TestMissingBucketIsNotMissingObject(t *testing.T) {
	fake := &fakeS3{deleteObjectErr: noSuchBucket(), listErr: noSuchBucket(), headErr: noSuchBucket()}
	adapter := newTestAdapter(fake, "")
	ctx := context.Background()

	err := adapter.DeleteObject(ctx, "user-1-files/a.txt")
	require.Error(t, err)
	assert.NotErrorIs(t, err, backends.ErrNotFound)

	_, err = adapter.ListPage(ctx, backends.ListInput{Prefix: "user-1-files/", Delimiter: "/"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, backends.ErrNotFound)

	_, err = adapter.HeadObject(ctx, "user-1-files/a.txt")
	require.Error(t, err)
	assert.NotErrorIs(t, err, backends.ErrNotFound)
}

func TestCopyObjectEscapesSource(t *testing.T) {
	fake := &fakeS3{}
	adapter := newTestAdapter(fake, "")

	require.NoError(t, adapter.CopyObject(context.Background(), "user-1-files/my docs/a+b.txt", "user-1-files/new/a+b.txt"))
	require.Len(t, fake.copyInputs, 1)
	assert.Equal(t, "drive/user-1-files/my%20docs/a+b.txt", aws.StringValue(fake.copyInputs[0].CopySource))
	assert.Equal(t, "user-1-files/new/a+b.txt", aws.StringValue(fake.copyInputs[0].Key))
}

func TestListPage(t *testing.T) {
	modified := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	fake := &fakeS3{
		listOut: &s3.ListObjectsV2Output{
			CommonPrefixes: []*s3.CommonPrefix{{Prefix: aws.String("user-1-files/a/")}},
			Contents: []*s3.Object{{
				Key:          aws.String("user-1-files/b.txt"),
				Size:         aws.Int64(3),
				ETag:         aws.String(`"e1"`),
				LastModified: aws.Time(modified),
			}},
			IsTruncated:           aws.Bool(true),
			NextContinuationToken: aws.String("next"),
		},
	}

	page, err := newTestAdapter(fake, "").ListPage(context.Background(), backends.ListInput{
		Prefix:            "user-1-files/",
		Delimiter:         "/",
		ContinuationToken: "tok",
		MaxKeys:           10,
	})
	require.NoError(t, err)

	require.Len(t, fake.listInputs, 1)
	in := fake.listInputs[0]
	assert.Equal(t, "drive", aws.StringValue(in.Bucket))
	assert.Equal(t, "/", aws.StringValue(in.Delimiter))
	assert.Equal(t, "tok", aws.StringValue(in.ContinuationToken))
	assert.Equal(t, int64(10), aws.Int64Value(in.MaxKeys))

	assert.Equal(t, []string{"user-1-files/a/"}, page.CommonPrefixes)
	require.Len(t, page.Objects, 1)
	assert.Equal(t, backends.ObjectInfo{Key: "user-1-files/b.txt", Size: 3, ETag: "e1", LastModified: modified}, page.Objects[0])
	assert.Equal(t, "next", page.NextContinuationToken)
}

func TestListPageRecursiveOmitsDelimiter(t *testing.T) {
	fake := &fakeS3{listOut: &s3.ListObjectsV2Output{}}
	page, err := newTestAdapter(fake, "").ListPage(context.Background(), backends.ListInput{Prefix: "user-1-files/a/"})
	require.NoError(t, err)
	assert.Nil(t, fake.listInputs[0].Delimiter)
	assert.Nil(t, fake.listInputs[0].ContinuationToken)
	assert.Empty(t, page.NextContinuationToken)
}

func TestDeleteObjects(t *testing.T) {
	fake := &fakeS3{
		deleteOut: &s3.DeleteObjectsOutput{
			Errors: []*s3.Error{{Key: aws.String("k2"), Code: aws.String("AccessDenied"), Message: aws.String("denied")}},
		},
	}
	adapter := newTestAdapter(fake, "")

	failures, err := adapter.DeleteObjects(context.Background(), []string{"k1", "k2"})
	require.NoError(t, err)
	assert.Equal(t, []backends.DeleteFailure{{Key: "k2", Code: "AccessDenied", Message: "denied"}}, failures)

	require.Len(t, fake.deleteInputs, 1)
	assert.True(t, aws.BoolValue(fake.deleteInputs[0].Delete.Quiet))
	assert.Len(t, fake.deleteInputs[0].Delete.Objects, 2)

	_, err = adapter.DeleteObjects(context.Background(), make([]string, backends.MaxDeleteBatch+1))
	assert.ErrorIs(t, err, backends.ErrBatchTooLarge)
	assert.Len(t, fake.deleteInputs, 1)

	failures, err = adapter.DeleteObjects(context.Background(), nil)
	assert.NoError(t, err)
	assert.Empty(t, failures)
}

func TestPresignGetObject(t *testing.T) {
	sess := session.Must(session.NewSession(&aws.Config{
		Region:           aws.String("us-east-1"),
		Credentials:      credentials.NewStaticCredentials("AKID", "SECRET", ""),
		Endpoint:         aws.String("http://localhost:9000"),
		S3ForcePathStyle: aws.Bool(true),
	}))
	adapter := newTestAdapter(s3.New(sess), "us-east-1")

	signed, err := adapter.PresignGetObject(context.Background(), "user-1-files/docs/report.pdf", 15*time.Minute)
	require.NoError(t, err)

	u, err := url.Parse(signed)
	require.NoError(t, err)
	assert.Equal(t, "/drive/user-1-files/docs/report.pdf", u.Path)
	assert.Equal(t, "900", u.Query().Get("X-Amz-Expires"))
	assert.Equal(t, "attachment; filename=report.pdf", u.Query().Get("response-content-disposition"))

	signed, err = adapter.PresignGetObject(context.Background(), `user-1-files/docs/say "hi"; x.txt`, time.Minute)
	require.NoError(t, err)
	u, err = url.Parse(signed)
	require.NoError(t, err)

	disposition, params, err := mime.ParseMediaType(u.Query().Get("response-content-disposition"))
	require.NoError(t, err)
	assert.Equal(t, "attachment", disposition)
	assert.Equal(t, `say "hi"; x.txt`, params["filename"])
}
