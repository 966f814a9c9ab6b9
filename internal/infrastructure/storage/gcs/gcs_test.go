package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"cloud.google.com/go/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"

	"collectorkit/internal/domain"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"object missing", storage.ErrObjectNotExist, domain.ErrNotFound},
		{"bucket missing", fmt.Errorf("attrs: %w", storage.ErrBucketNotExist), domain.ErrNotFound},
		{"forbidden", &googleapi.Error{Code: http.StatusForbidden}, domain.ErrAccessDenied},
		{"unauthorized", &googleapi.Error{Code: http.StatusUnauthorized}, domain.ErrAccessDenied},
		{"rate limited", &googleapi.Error{Code: http.StatusTooManyRequests}, domain.ErrTransient},
		{"server error", &googleapi.Error{Code: http.StatusBadGateway}, domain.ErrTransient},
		{"truncated body", io.ErrUnexpectedEOF, domain.ErrTransient},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classify("op", tt.err)
			assert.ErrorIs(t, err, tt.want)
			assert.ErrorIs(t, err, tt.err)
		})
	}

	err := classify("op", &googleapi.Error{Code: http.StatusBadRequest})
	assert.Empty(t, domain.Code(err))

	plain := errors.New("boom")
	assert.ErrorIs(t, classify("op", plain), plain)
	assert.False(t, domain.IsRetryable(classify("op", plain)))
}

func TestToInfo(t *testing.T) {
	info := toInfo(&storage.ObjectAttrs{Bucket: "b", Name: "n", Size: 3, ContentType: "text/plain", Etag: "e"})
	assert.Equal(t, "b", info.Bucket)
	assert.Equal(t, int64(3), info.Size)
	assert.Equal(t, "e", info.ETag)
	assert.NotNil(t, toInfo(nil))
}

func TestStatSendsOneRequestPerAttempt(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, `{"error":{"code":503,"message":"unavailable"}}`)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	store, err := New(ctx, srv.URL+"/storage/v1/")
	require.NoError(t, err)
	defer store.Close()

	_, err = store.Stat(ctx, "readings", "2024/01.csv")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrTransient)
	assert.Equal(t, int32(1), requests.Load())
}
