package storage

import (
	"context"
	"strings"
	"testing"

	"github.com/nidaro/nidaro-backend/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStorage(baseURL string) *S3Storage {
	return NewS3Storage(config.S3Config{
		Region:          "ap-south-1",
		Bucket:          "nidaro-evidence",
		AccessKeyID:     "AKIATESTKEY",
		SecretAccessKey: "test-secret",
		BaseURL:         baseURL,
	})
}

func TestPresignUpload(t *testing.T) {
	s := newTestStorage("")

	upload, err := s.PresignUpload(context.Background(), "evidence/acc-1", "Invoice.PDF", "application/pdf")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(upload.Key, "evidence/acc-1/"))
	assert.True(t, strings.HasSuffix(upload.Key, ".pdf"))
	assert.Contains(t, upload.UploadURL, "nidaro-evidence")
	assert.Contains(t, upload.UploadURL, "X-Amz-Signature=")
	assert.Equal(t, "https://nidaro-evidence.s3.ap-south-1.amazonaws.com/"+upload.Key, upload.FileURL)
}

func TestPresignUploadWithBaseURL(t *testing.T) {
	s := newTestStorage("https://cdn.nidaro.in/")

	upload, err := s.PresignUpload(context.Background(), "evidence", "photo.png", "image/png")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.nidaro.in/"+upload.Key, upload.FileURL)
}

func TestValidateUpload(t *testing.T) {
	allowed := config.DefaultSecurityConfig().AllowedFileTypes

	tests := []struct {
		name        string
		filename    string
		contentType string
		wantErr     error
	}{
		{"Image", "photo.JPG", "image/jpeg", nil},
		{"Document", "invoice.pdf", "application/pdf", nil},
		{"Disallowed type", "run.exe", "application/octet-stream", ErrContentTypeNotAllowed},
		{"Extension mismatch", "photo.exe", "image/png", ErrExtensionMismatch},
		{"No extension", "photo", "image/png", ErrExtensionMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUpload(tt.filename, tt.contentType, allowed)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}
