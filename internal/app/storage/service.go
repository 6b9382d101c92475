/*
Package storage keeps uploaded media in an S3-compatible bucket and hands out
short-lived download links for it.
*/
package storage

import (
	"context"
	"io"
	"time"
)

// ServiceConfig holds the configuration required to connect to the storage service.
type ServiceConfig struct {
	BucketName      string
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string

	// PublicBaseURL, when set, is a public origin serving the bucket directly.
	PublicBaseURL string
}

// Service is the file storage used by the upload endpoints.
type Service interface {
	// Upload stores body under key.
	Upload(ctx context.Context, key, contentType string, body io.Reader) error

	// PresignDownload returns a URL granting read access to key for duration.
	PresignDownload(ctx context.Context, key string, duration time.Duration) (string, error)

	// PublicURL returns the direct public URL of key, or "" when the bucket is private.
	PublicURL(key string) string
}

// NewService returns the S3-compatible implementation of Service.
func NewService(ctx context.Context, cfg ServiceConfig) (Service, error) {
	return newS3Client(ctx, cfg)
}
