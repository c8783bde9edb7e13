// File: internal/filestorage/local.go
package filestorage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// LocalStorage writes objects below a directory on disk. The directory is
// served over HTTP at publicBaseURL.
type LocalStorage struct {
	storagePath   string
	publicBaseURL string
	logger        *zap.Logger
}

// NewLocalStorage creates a LocalStorage rooted at storagePath.
func NewLocalStorage(storagePath, publicBaseURL string, logger *zap.Logger) (*LocalStorage, error) {
	if storagePath == "" {
		return nil, fmt.Errorf("storage path cannot be empty")
	}
	if err := os.MkdirAll(storagePath, os.ModePerm); err != nil {
		logger.Error("Failed to create storage path directory", zap.String("path", storagePath), zap.Error(err))
		return nil, fmt.Errorf("failed to create storage path %s: %w", storagePath, err)
	}
	logger.Info("LocalStorage initialized", zap.String("storagePath", storagePath))
	return &LocalStorage{
		storagePath:   storagePath,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		logger:        logger,
	}, nil
}

// Root is the directory objects are written to.
func (s *LocalStorage) Root() string {
	return s.storagePath
}

// Upload copies r to objectPath and returns the stored path.
func (s *LocalStorage) Upload(ctx context.Context, objectPath, contentType string, r io.Reader) (string, error) {
	cleanPath, err := cleanObjectPath(objectPath)
	if err != nil {
		s.logger.Warn("Rejected object path", zap.String("objectPath", objectPath), zap.Error(err))
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	destinationPath := filepath.Join(s.storagePath, filepath.FromSlash(cleanPath))
	if err := os.MkdirAll(filepath.Dir(destinationPath), os.ModePerm); err != nil {
		s.logger.Error("Failed to create directory for object", zap.String("path", destinationPath), zap.Error(err))
		return "", fmt.Errorf("failed to create directory for %s: %w", cleanPath, err)
	}

	dst, err := os.Create(destinationPath)
	if err != nil {
		s.logger.Error("Failed to create destination file", zap.String("path", destinationPath), zap.Error(err))
		return "", fmt.Errorf("failed to create file %s: %w", cleanPath, err)
	}

	if _, err = io.Copy(dst, r); err != nil {
		dst.Close()
		os.Remove(destinationPath)
		s.logger.Error("Failed to write object", zap.String("path", destinationPath), zap.Error(err))
		return "", fmt.Errorf("failed to save file %s: %w", cleanPath, err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(destinationPath)
		return "", fmt.Errorf("failed to close file %s: %w", cleanPath, err)
	}

	s.logger.Debug("Object stored", zap.String("path", cleanPath), zap.String("contentType", contentType))
	return cleanPath, nil
}

// PublicURL joins the public base URL and the object path.
func (s *LocalStorage) PublicURL(objectPath string) string {
	return s.publicBaseURL + "/" + strings.TrimLeft(objectPath, "/")
}
