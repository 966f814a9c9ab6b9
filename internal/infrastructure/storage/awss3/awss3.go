// Package awss3 is the Amazon S3 (and S3-compatible) BlobStore backend.
package awss3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"

	"collectorkit/internal/domain"
	"collectorkit/internal/domain/entities"
	"collectorkit/internal/ports/output"
)

var _ output.BlobStore = (*Store)(nil)

// API is the subset of the S3 client used by Store.
type API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, opts ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, opts ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

type Store struct {
	api API
}

// New loads the default AWS credential chain. A non-empty endpoint targets an
// S3-compatible service with path-style addressing.
func New(ctx context.Context, region, endpoint string) (*Store, error) {
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(region),
		config.WithRetryMaxAttempts(1),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})
	return &Store{api: client}, nil
}

// NewWithAPI wraps an existing client.
func NewWithAPI(api API) *Store {
	return &Store{api: api}
}

func (s *Store) Put(ctx context.Context, bucket, name string, data []byte, attrs entities.ObjectAttrs) (*entities.ObjectInfo, error) {
	in := &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(name),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		Metadata:      attrs.Metadata,
	}
	if attrs.ContentType != "" {
		in.ContentType = aws.String(attrs.ContentType)
	}
	out, err := s.api.PutObject(ctx, in)
	if err != nil {
		return nil, classify(fmt.Sprintf("s3 put %s/%s", bucket, name), err)
	}
	return &entities.ObjectInfo{
		Bucket:      bucket,
		Name:        name,
		Size:        int64(len(data)),
		ContentType: attrs.ContentType,
		ETag:        strings.Trim(aws.ToString(out.ETag), `"`),
		Metadata:    attrs.Metadata,
	}, nil
}

func (s *Store) Get(ctx context.Context, bucket, name string) ([]byte, error) {
	op := fmt.Sprintf("s3 get %s/%s", bucket, name)
	out, err := s.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(name),
	})
	if err != nil {
		return nil, classify(op, err)
	}
	defer out.Body.Close()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, domain.Wrap(op, domain.ErrTransient, err)
	}
	return data, nil
}

func (s *Store) Delete(ctx context.Context, bucket, name string) error {
	op := fmt.Sprintf("s3 delete %s/%s", bucket, name)
	// DeleteObject succeeds on missing keys; check with HeadObject first so callers see NotFound.
	if _, err := s.Stat(ctx, bucket, name); err != nil {
		return err
	}
	if _, err := s.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(name),
	}); err != nil {
		return classify(op, err)
	}
	return nil
}

func (s *Store) Stat(ctx context.Context, bucket, name string) (*entities.ObjectInfo, error) {
	out, err := s.api.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(name),
	})
	if err != nil {
		return nil, classify(fmt.Sprintf("s3 stat %s/%s", bucket, name), err)
	}
	return &entities.ObjectInfo{
		Bucket:      bucket,
		Name:        name,
		Size:        aws.ToInt64(out.ContentLength),
		ContentType: aws.ToString(out.ContentType),
		ETag:        strings.Trim(aws.ToString(out.ETag), `"`),
		Metadata:    out.Metadata,
		UpdatedAt:   aws.ToTime(out.LastModified).UTC(),
	}, nil
}

func (s *Store) List(ctx context.Context, bucket string, query entities.ObjectQuery) ([]entities.ObjectInfo, error) {
	in := &s3.ListObjectsV2Input{Bucket: aws.String(bucket)}
	if query.Prefix != "" {
		in.Prefix = aws.String(query.Prefix)
	}
	out := []entities.ObjectInfo{}
	for {
		page, err := s.api.ListObjectsV2(ctx, in)
		if err != nil {
			return nil, classify("s3 list "+bucket, err)
		}
		for _, obj := range page.Contents {
			out = append(out, entities.ObjectInfo{
				Bucket:    bucket,
				Name:      aws.ToString(obj.Key),
				Size:      aws.ToInt64(obj.Size),
				ETag:      strings.Trim(aws.ToString(obj.ETag), `"`),
				UpdatedAt: aws.ToTime(obj.LastModified).UTC(),
			})
			if query.Limit > 0 && len(out) == query.Limit {
				return out, nil
			}
		}
		if !aws.ToBool(page.IsTruncated) || page.NextContinuationToken == nil {
			return out, nil
		}
		in.ContinuationToken = page.NextContinuationToken
	}
}

// classify maps S3 failures onto the domain error kinds.
func classify(op string, err error) error {
	var noKey *types.NoSuchKey
	var noBucket *types.NoSuchBucket
	var notFound *types.NotFound
	if errors.As(err, &noKey) || errors.As(err, &noBucket) || errors.As(err, &notFound) {
		return domain.Wrap(op, domain.ErrNotFound, err)
	}

	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		switch code := respErr.HTTPStatusCode(); {
		case code == http.StatusNotFound:
			return domain.Wrap(op, domain.ErrNotFound, err)
		case code == http.StatusUnauthorized || code == http.StatusForbidden:
			return domain.Wrap(op, domain.ErrAccessDenied, err)
		case code == http.StatusTooManyRequests || code >= 500:
			return domain.Wrap(op, domain.ErrTransient, err)
		}
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NoSuchBucket", "NotFound":
			return domain.Wrap(op, domain.ErrNotFound, err)
		case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch", "ExpiredToken":
			return domain.Wrap(op, domain.ErrAccessDenied, err)
		case "SlowDown", "RequestTimeout", "InternalError", "ServiceUnavailable", "Throttling":
			return domain.Wrap(op, domain.ErrTransient, err)
		}
		if apiErr.ErrorFault() == smithy.FaultServer {
			return domain.Wrap(op, domain.ErrTransient, err)
		}
	}

	// No response at all: refused, reset, DNS or a truncated body.
	var sendErr *smithyhttp.RequestSendError
	var nerr net.Error
	if errors.As(err, &sendErr) || errors.As(err, &nerr) || errors.Is(err, io.ErrUnexpectedEOF) {
		return domain.Wrap(op, domain.ErrTransient, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
