// File: internal/filestorage/storage.go
package filestorage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"marketplace_backend/internal/config"
	"marketplace_backend/internal/firebase"

	"go.uber.org/zap"
)

// Storage is the blob store listing media is written to. Objects are
// addressed by slash-separated paths; nothing in the submission flow ever
// deletes an object.
type Storage interface {
	Upload(ctx context.Context, objectPath, contentType string, r io.Reader) (string, error)
	PublicURL(objectPath string) string
}

// NewStorage selects the Storage implementation named by STORAGE_DRIVER.
func NewStorage(cfg *config.Config, fb *firebase.FirebaseService, logger *zap.Logger) (Storage, error) {
	switch cfg.StorageDriver {
	case config.StorageDriverFirebase:
		if fb == nil {
			return nil, fmt.Errorf("firebase storage selected but Firebase is not initialized")
		}
		bucket, err := fb.Bucket(context.Background())
		if err != nil {
			return nil, err
		}
		return NewFirebaseStorage(bucket, fb.BucketName(), logger.Named("FirebaseStorage")), nil
	case config.StorageDriverLocal:
		return NewLocalStorage(cfg.StorageLocalPath, cfg.StoragePublicBaseURL, logger.Named("LocalStorage"))
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}

// cleanObjectPath rejects absolute paths and parent traversal.
func cleanObjectPath(objectPath string) (string, error) {
	p := strings.TrimSpace(objectPath)
	if p == "" {
		return "", fmt.Errorf("object path cannot be empty")
	}
	if strings.HasPrefix(p, "/") || strings.Contains(p, `\`) {
		return "", fmt.Errorf("invalid object path %q", objectPath)
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return "", fmt.Errorf("invalid object path %q", objectPath)
		}
	}
	return p, nil
}
