// File: internal/filestorage/firebase.go
package filestorage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	gcs "cloud.google.com/go/storage"
	"go.uber.org/zap"
)

// FirebaseStorage writes objects to a Cloud Storage bucket through the
// Firebase Admin SDK.
type FirebaseStorage struct {
	bucket     *gcs.BucketHandle
	bucketName string
	logger     *zap.Logger
}

// NewFirebaseStorage wraps an opened bucket handle.
func NewFirebaseStorage(bucket *gcs.BucketHandle, bucketName string, logger *zap.Logger) *FirebaseStorage {
	return &FirebaseStorage{bucket: bucket, bucketName: bucketName, logger: logger}
}

func (s *FirebaseStorage) Upload(ctx context.Context, objectPath, contentType string, r io.Reader) (string, error) {
	cleanPath, err := cleanObjectPath(objectPath)
	if err != nil {
		return "", err
	}

	w := s.bucket.Object(cleanPath).NewWriter(ctx)
	w.ContentType = contentType
	w.CacheControl = "public, max-age=31536000"

	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		s.logger.Error("Failed to stream object to bucket", zap.String("path", cleanPath), zap.Error(err))
		return "", fmt.Errorf("uploading %s: %w", cleanPath, err)
	}
	if err := w.Close(); err != nil {
		s.logger.Error("Failed to finalize object upload", zap.String("path", cleanPath), zap.Error(err))
		return "", fmt.Errorf("finalizing %s: %w", cleanPath, err)
	}
	return cleanPath, nil
}

// PublicURL is the storage.googleapis.com address of the object.
func (s *FirebaseStorage) PublicURL(objectPath string) string {
	segments := strings.Split(strings.TrimLeft(objectPath, "/"), "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", s.bucketName, strings.Join(segments, "/"))
}
