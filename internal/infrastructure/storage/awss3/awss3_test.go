package awss3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"collectorkit/internal/domain"
	"collectorkit/internal/domain/entities"
)

// mockAPI answers each call with the matching func field.
type mockAPI struct {
	put    func(*s3.PutObjectInput) (*s3.PutObjectOutput, error)
	get    func(*s3.GetObjectInput) (*s3.GetObjectOutput, error)
	del    func(*s3.DeleteObjectInput) (*s3.DeleteObjectOutput, error)
	head   func(*s3.HeadObjectInput) (*s3.HeadObjectOutput, error)
	list   func(*s3.ListObjectsV2Input) (*s3.ListObjectsV2Output, error)
	delete int
}

func (m *mockAPI) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	return m.put(in)
}

func (m *mockAPI) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	return m.get(in)
}

func (m *mockAPI) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	m.delete++
	return m.del(in)
}

func (m *mockAPI) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	return m.head(in)
}

func (m *mockAPI) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	return m.list(in)
}

func TestPutAndGet(t *testing.T) {
	var stored []byte
	api := &mockAPI{
		put: func(in *s3.PutObjectInput) (*s3.PutObjectOutput, error) {
			body, err := io.ReadAll(in.Body)
			require.NoError(t, err)
			stored = body
			assert.Equal(t, "text/csv", aws.ToString(in.ContentType))
			return &s3.PutObjectOutput{ETag: aws.String(`"abc"`)}, nil
		},
		get: func(in *s3.GetObjectInput) (*s3.GetObjectOutput, error) {
			return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(string(stored)))}, nil
		},
	}
	store := NewWithAPI(api)
	ctx := context.Background()

	info, err := store.Put(ctx, "readings", "2024/01.csv", []byte("a,b"), entities.ObjectAttrs{ContentType: "text/csv"})
	require.NoError(t, err)
	assert.Equal(t, "abc", info.ETag)
	assert.Equal(t, int64(3), info.Size)

	data, err := store.Get(ctx, "readings", "2024/01.csv")
	require.NoError(t, err)
	assert.Equal(t, "a,b", string(data))
}

func TestDeleteMissingIsNotFound(t *testing.T) {
	api := &mockAPI{
		head: func(*s3.HeadObjectInput) (*s3.HeadObjectOutput, error) {
			return nil, &types.NotFound{}
		},
		del: func(*s3.DeleteObjectInput) (*s3.DeleteObjectOutput, error) {
			return &s3.DeleteObjectOutput{}, nil
		},
	}
	err := NewWithAPI(api).Delete(context.Background(), "b", "gone")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Zero(t, api.delete)
}

func TestListPaginatesAndLimits(t *testing.T) {
	calls := 0
	api := &mockAPI{
		list: func(in *s3.ListObjectsV2Input) (*s3.ListObjectsV2Output, error) {
			calls++
			if in.ContinuationToken == nil {
				return &s3.ListObjectsV2Output{
					Contents:              []types.Object{{Key: aws.String("a")}, {Key: aws.String("b")}},
					IsTruncated:           aws.Bool(true),
					NextContinuationToken: aws.String("next"),
				}, nil
			}
			return &s3.ListObjectsV2Output{
				Contents: []types.Object{{Key: aws.String("c"), LastModified: aws.Time(time.Unix(10, 0))}},
			}, nil
		},
	}
	store := NewWithAPI(api)

	all, err := store.List(context.Background(), "b", entities.ObjectQuery{})
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Equal(t, 2, calls)

	calls = 0
	two, err := store.List(context.Background(), "b", entities.ObjectQuery{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, two, 2)
	assert.Equal(t, 1, calls)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"no such key", &types.NoSuchKey{}, domain.ErrNotFound},
		{"no such bucket", &types.NoSuchBucket{}, domain.ErrNotFound},
		{"access denied", &smithy.GenericAPIError{Code: "AccessDenied"}, domain.ErrAccessDenied},
		{"slow down", &smithy.GenericAPIError{Code: "SlowDown"}, domain.ErrTransient},
		{"server fault", &smithy.GenericAPIError{Code: "Weird", Fault: smithy.FaultServer}, domain.ErrTransient},
		{"connection refused", &smithy.OperationError{
			ServiceID:     "S3",
			OperationName: "GetObject",
			Err: &smithyhttp.RequestSendError{Err: &net.OpError{
				Op:  "dial",
				Net: "tcp",
				Err: errors.New("connect: connection refused"),
			}},
		}, domain.ErrTransient},
		{"dns failure", &net.DNSError{Err: "no such host", Name: "s3.invalid"}, domain.ErrTransient},
		{"truncated body", fmt.Errorf("read body: %w", io.ErrUnexpectedEOF), domain.ErrTransient},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, classify("op", tt.err), tt.want)
		})
	}

	plain := errors.New("boom")
	err := classify("op", plain)
	assert.ErrorIs(t, err, plain)
	assert.Empty(t, domain.Code(err))
}
