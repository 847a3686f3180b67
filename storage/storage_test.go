package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectKey(t *testing.T) {
	now := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		filename string
		want     string
	}{
		{"plain name", "report.pdf", "2025-01-15/1736899200000-report.pdf"},
		{"unix path", "/tmp/uploads/report.pdf", "2025-01-15/1736899200000-report.pdf"},
		{"windows path", `C:\Users\ceo\deck.pptx`, "2025-01-15/1736899200000-deck.pptx"},
		{"empty", "", "2025-01-15/1736899200000-upload"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ObjectKey(now, tt.filename))
		})
	}
}

func TestObjectKey_UsesUTCDate(t *testing.T) {
	loc := time.FixedZone("UTC+9", 9*3600)
	now := time.Date(2025, 1, 16, 3, 0, 0, 0, loc) // 2025-01-15T18:00Z
	assert.True(t, strings.HasPrefix(ObjectKey(now, "a.txt"), "2025-01-15/"))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"access denied", &smithy.GenericAPIError{Code: "AccessDenied"}, ErrPermission},
		{"missing bucket", &smithy.GenericAPIError{Code: "NoSuchBucket"}, ErrIntegrity},
		{"precondition", &smithy.GenericAPIError{Code: "PreconditionFailed"}, ErrIntegrity},
		{"rls text", errors.New("new row violates row-level security policy"), ErrPermission},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(fmt.Errorf("wrapped: %w", tt.err))
			assert.ErrorIs(t, got, tt.want)
		})
	}

	plain := errors.New("connection reset")
	assert.Same(t, plain, Classify(plain))
	assert.NoError(t, Classify(nil))
}

func TestS3Store_SignedURL(t *testing.T) {
	store, err := NewS3Store(context.Background(), S3Config{
		Endpoint:     "https://project.supabase.co/storage/v1/s3",
		Region:       "us-east-1",
		AccessKey:    "access",
		SecretKey:    "secret",
		UsePathStyle: true,
	})
	require.NoError(t, err)

	url, err := store.SignedURL(context.Background(), "ctod", "2025-01-15/1-report.pdf", time.Hour)
	require.NoError(t, err)
	assert.Contains(t, url, "/storage/v1/s3/ctod/2025-01-15/1-report.pdf")
	assert.Contains(t, url, "X-Amz-Expires=3600")
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()

	require.NoError(t, m.Put(ctx, "ceod", "k", bytes.NewBufferString("hello"), 5, "text/plain"))
	assert.True(t, m.Has("ceod", "k"))

	err := m.Put(ctx, "ceod", "k", bytes.NewBufferString("again"), 5, "text/plain")
	assert.ErrorIs(t, err, ErrIntegrity)

	url, err := m.SignedURL(ctx, "ceod", "k", 10*time.Minute)
	require.NoError(t, err)
	assert.Contains(t, url, "expires=600")

	require.NoError(t, m.Remove(ctx, "ceod", "k"))
	assert.Equal(t, 0, m.Len())

	m.FailPut = fmt.Errorf("%w: bucket policy", ErrPermission)
	err = m.Put(ctx, "ceod", "k2", bytes.NewBufferString("x"), 1, "")
	assert.ErrorIs(t, err, ErrPermission)
}
