// Package storage is the client -> bucket -> object facade over a BlobStore
// backend. It enforces upload limits and retries transient backend failures.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path"
	"strings"
	"time"

	"collectorkit/internal/domain"
	"collectorkit/internal/domain/entities"
	"collectorkit/internal/observability/metrics"
	"collectorkit/internal/ports/output"
	"collectorkit/pkg/textutil"
)

const (
	DefaultMaxFileSize = 10 << 20
	DefaultAttempts    = 3
	DefaultTimeout     = 30 * time.Second
	DefaultBackoff     = 200 * time.Millisecond
	maxBackoff         = 5 * time.Second
)

// Client owns the retry policy and upload limits shared by its buckets.
type Client struct {
	backend     output.BlobStore
	maxFileSize int64
	allowed     []string
	attempts    int
	timeout     time.Duration
	backoff     time.Duration
	logger      *slog.Logger
	sleep       func(ctx context.Context, d time.Duration) error
	latency     *latencyRecorder
}

// Option configures a Client.
type Option func(*Client)

// WithMaxFileSize caps upload payloads in bytes.
func WithMaxFileSize(n int64) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxFileSize = n
		}
	}
}

// WithAllowedFileTypes restricts uploads to the given extensions. No
// extensions means any type is accepted.
func WithAllowedFileTypes(exts ...string) Option {
	return func(c *Client) { c.allowed = exts }
}

// WithRetry sets the total number of attempts per operation and the first
// backoff delay, doubled after each failure.
func WithRetry(attempts int, backoff time.Duration) Option {
	return func(c *Client) {
		if attempts > 0 {
			c.attempts = attempts
		}
		if backoff >= 0 {
			c.backoff = backoff
		}
	}
}

// WithTimeout bounds every single attempt.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

func NewClient(backend output.BlobStore, opts ...Option) (*Client, error) {
	if backend == nil {
		return nil, errors.New("storage: nil backend")
	}
	c := &Client{
		backend:     backend,
		maxFileSize: DefaultMaxFileSize,
		attempts:    DefaultAttempts,
		timeout:     DefaultTimeout,
		backoff:     DefaultBackoff,
		logger:      slog.Default(),
		sleep:       sleepContext,
		latency:     newLatencyRecorder(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Bucket returns a handle on name. No I/O happens until an operation runs.
func (c *Client) Bucket(name string) *Bucket {
	return &Bucket{client: c, name: name}
}

// Upload stores r at objectPath, written as "bucket/object/name".
func (c *Client) Upload(ctx context.Context, objectPath string, r io.Reader, opts UploadOptions) (*entities.ObjectInfo, error) {
	bucket, name, err := splitPath(objectPath)
	if err != nil {
		return nil, err
	}
	return c.Bucket(bucket).Upload(ctx, name, r, opts)
}

// Download reads the object at objectPath, written as "bucket/object/name".
func (c *Client) Download(ctx context.Context, objectPath string) ([]byte, error) {
	bucket, name, err := splitPath(objectPath)
	if err != nil {
		return nil, err
	}
	return c.Bucket(bucket).Object(name).Download(ctx)
}

// Object returns the handle for objectPath, written as "bucket/object/name".
func (c *Client) Object(objectPath string) (*Object, error) {
	bucket, name, err := splitPath(objectPath)
	if err != nil {
		return nil, err
	}
	return c.Bucket(bucket).Object(name), nil
}

// Latency returns the latency summary recorded for op.
func (c *Client) Latency(op string) LatencySummary {
	return c.latency.summary(op)
}

// do runs fn until it succeeds, fails for good, or the attempts run out.
func (c *Client) do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	start := time.Now()
	var err error
	for attempt := 1; ; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
		err = fn(attemptCtx)
		cancel()
		if err != nil && ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
			err = domain.Wrap(op+": attempt timed out", domain.ErrTransient, err)
		}
		if err == nil || !domain.IsRetryable(err) || attempt >= c.attempts {
			break
		}

		delay := c.backoffFor(attempt)
		metrics.StorageRetry(op)
		c.logger.Debug("storage: retrying", "op", op, "attempt", attempt, "delay", delay, "error", err)
		if serr := c.sleep(ctx, delay); serr != nil {
			err = fmt.Errorf("%s: %w", op, serr)
			break
		}
	}

	elapsed := time.Since(start)
	c.latency.record(op, elapsed)
	metrics.ObserveStorage(op, resultLabel(err), elapsed)
	return err
}

func (c *Client) backoffFor(attempt int) time.Duration {
	d := c.backoff
	for i := 1; i < attempt && d < maxBackoff; i++ {
		d *= 2
	}
	return min(d, maxBackoff)
}

func resultLabel(err error) string {
	if err == nil {
		return metrics.ResultSuccess
	}
	if code := domain.Code(err); code != "" {
		return code
	}
	return metrics.ResultError
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Bucket is a named container of objects.
type Bucket struct {
	client *Client
	name   string
}

func (b *Bucket) Name() string { return b.name }

// UploadOptions describes the object being written.
type UploadOptions struct {
	ContentType string
	Metadata    map[string]string
}

// Upload reads r fully, checks it against the client limits and stores it
// under name. The payload is buffered so that retries can replay it.
func (b *Bucket) Upload(ctx context.Context, name string, r io.Reader, opts UploadOptions) (*entities.ObjectInfo, error) {
	op := fmt.Sprintf("upload %s/%s", b.name, name)
	if err := validateObject(b.name, name); err != nil {
		return nil, domain.Wrap(op, domain.ErrValidationFailed, err)
	}
	c := b.client
	if len(c.allowed) > 0 && !textutil.IsAllowedFileType(name, c.allowed...) {
		return nil, domain.Wrap(op, domain.ErrFileTypeNotAllowed, fmt.Errorf("extension %q", textutil.FileExtension(name)))
	}

	data, err := io.ReadAll(io.LimitReader(r, c.maxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("%s: read payload: %w", op, err)
	}
	if int64(len(data)) > c.maxFileSize {
		return nil, domain.Wrap(op, domain.ErrFileTooLarge, fmt.Errorf("limit is %d bytes", c.maxFileSize))
	}

	attrs := entities.ObjectAttrs{
		ContentType: opts.ContentType,
		Metadata:    opts.Metadata,
	}
	if attrs.ContentType == "" {
		attrs.ContentType = detectContentType(name, data)
	}

	var info *entities.ObjectInfo
	err = c.do(ctx, "upload", func(ctx context.Context) error {
		var perr error
		info, perr = c.backend.Put(ctx, b.name, name, bytes.Clone(data), attrs)
		return perr
	})
	if err != nil {
		return nil, err
	}
	return info, nil
}

// Object returns a handle on the object called name.
func (b *Bucket) Object(name string) *Object {
	return &Object{bucket: b, name: name}
}

// ListOptions filters Objects.
type ListOptions struct {
	Prefix string
	Limit  int
}

// Objects lists the bucket's objects in name order.
func (b *Bucket) Objects(ctx context.Context, opts ListOptions) ([]entities.ObjectInfo, error) {
	if err := validateNames(b.name, ""); err != nil {
		return nil, domain.Wrap("list "+b.name, domain.ErrValidationFailed, err)
	}
	var out []entities.ObjectInfo
	err := b.client.do(ctx, "list", func(ctx context.Context) error {
		var lerr error
		out, lerr = b.client.backend.List(ctx, b.name, entities.ObjectQuery{Prefix: opts.Prefix, Limit: opts.Limit})
		return lerr
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []entities.ObjectInfo{}
	}
	return out, nil
}

// Object is a named blob inside a bucket.
type Object struct {
	bucket *Bucket
	name   string
}

func (o *Object) Name() string { return o.name }

func (o *Object) Download(ctx context.Context) ([]byte, error) {
	if err := validateObject(o.bucket.name, o.name); err != nil {
		return nil, domain.Wrap("download", domain.ErrValidationFailed, err)
	}
	c := o.bucket.client
	var data []byte
	err := c.do(ctx, "download", func(ctx context.Context) error {
		var gerr error
		data, gerr = c.backend.Get(ctx, o.bucket.name, o.name)
		return gerr
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (o *Object) Delete(ctx context.Context) error {
	if err := validateObject(o.bucket.name, o.name); err != nil {
		return domain.Wrap("delete", domain.ErrValidationFailed, err)
	}
	c := o.bucket.client
	return c.do(ctx, "delete", func(ctx context.Context) error {
		return c.backend.Delete(ctx, o.bucket.name, o.name)
	})
}

func (o *Object) Info(ctx context.Context) (*entities.ObjectInfo, error) {
	if err := validateObject(o.bucket.name, o.name); err != nil {
		return nil, domain.Wrap("info", domain.ErrValidationFailed, err)
	}
	c := o.bucket.client
	var info *entities.ObjectInfo
	err := c.do(ctx, "info", func(ctx context.Context) error {
		var serr error
		info, serr = c.backend.Stat(ctx, o.bucket.name, o.name)
		return serr
	})
	if err != nil {
		return nil, err
	}
	return info, nil
}

func splitPath(objectPath string) (string, string, error) {
	bucket, name, ok := strings.Cut(strings.TrimPrefix(objectPath, "/"), "/")
	if !ok || bucket == "" || name == "" {
		return "", "", domain.Wrap(fmt.Sprintf("object path %q", objectPath), domain.ErrValidationFailed, errors.New("expected bucket/object"))
	}
	return bucket, name, nil
}

func validateObject(bucket, name string) error {
	if name == "" {
		return errors.New("empty object name")
	}
	return validateNames(bucket, name)
}

// validateNames rejects bad bucket names and object names that escape the
// bucket. An empty name only checks the bucket.
func validateNames(bucket, name string) error {
	if bucket == "" || strings.ContainsAny(bucket, `/\`) || strings.HasPrefix(bucket, ".") {
		return fmt.Errorf("invalid bucket name %q", bucket)
	}
	if name == "" {
		return nil
	}
	clean := path.Clean(name)
	if clean != name || strings.HasPrefix(name, "/") || clean == ".." || strings.HasPrefix(clean, "../") {
		return fmt.Errorf("invalid object name %q", name)
	}
	return nil
}

func detectContentType(name string, data []byte) string {
	if ext := path.Ext(name); ext != "" {
		if ct := mime.TypeByExtension(strings.ToLower(ext)); ct != "" {
			return ct
		}
	}
	return http.DetectContentType(data)
}
