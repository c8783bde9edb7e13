// File: internal/upload/pipeline.go
package upload

import (
	"context"
	"fmt"
	"time"

	"marketplace_backend/internal/config"
	"marketplace_backend/internal/filestorage"
	"marketplace_backend/internal/platform/metrics"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	ImageSubfolder    = "images"
	DocumentSubfolder = "documents"
)

// StoredFile is one uploaded blob.
type StoredFile struct {
	Key          string `json:"key,omitempty"`
	OriginalName string `json:"original_name"`
	StoragePath  string `json:"storage_path"`
	PublicURL    string `json:"public_url"`
	ContentType  string `json:"content_type"`
	Size         int64  `json:"size"`
}

// DocumentUpload pairs a verification document with its upload-step key.
type DocumentUpload struct {
	Key  string
	File File
}

// Pipeline turns user files into public blobs.
type Pipeline struct {
	storage filestorage.Storage
	opts    ImageOptions
	logger  *zap.Logger
}

// NewPipeline creates a Pipeline writing to storage.
func NewPipeline(storage filestorage.Storage, cfg *config.Config, logger *zap.Logger) *Pipeline {
	opts := DefaultImageOptions()
	if cfg != nil {
		opts = ImageOptions{MaxDimension: cfg.ImageMaxDimension, Quality: cfg.ImageJPEGQuality}
	}
	return &Pipeline{storage: storage, opts: opts, logger: logger.Named("UploadPipeline")}
}

// UploadImage compresses and stores the listing image. Any error is a
// warning for the caller; the listing proceeds without an image.
func (p *Pipeline) UploadImage(ctx context.Context, ownerID string, f File) (*StoredFile, error) {
	compressed, err := CompressImage(f, p.opts)
	if err != nil {
		p.logger.Warn("Listing image could not be compressed", zap.String("file", f.Name), zap.Error(err))
		return nil, err
	}
	stored, err := p.put(ctx, "image", ownerID, ImageSubfolder, compressed)
	if err != nil {
		p.logger.Warn("Listing image upload failed", zap.String("file", f.Name), zap.Error(err))
		return nil, err
	}
	stored.OriginalName = f.Name
	return stored, nil
}

// ValidateDocuments runs ValidateFile over every document.
func ValidateDocuments(docs []DocumentUpload) error {
	for _, d := range docs {
		if err := ValidateFile(d.File); err != nil {
			return fmt.Errorf("document %q: %w", d.Key, err)
		}
	}
	return nil
}

// UploadDocuments stores all documents concurrently. Either every document
// is returned, in input order, or an error naming the first failed file.
// Uploads that completed before the failure stay in storage.
func (p *Pipeline) UploadDocuments(ctx context.Context, ownerID string, docs []DocumentUpload) ([]StoredFile, error) {
	if len(docs) == 0 {
		return nil, nil
	}
	if err := ValidateDocuments(docs); err != nil {
		return nil, err
	}

	results := make([]StoredFile, len(docs))
	var g errgroup.Group
	for i, d := range docs {
		i, d := i, d
		g.Go(func() error {
			stored, err := p.put(ctx, "document", ownerID, DocumentSubfolder, d.File)
			if err != nil {
				return fmt.Errorf("failed to upload document %q: %w", d.File.Name, err)
			}
			stored.Key = d.Key
			results[i] = *stored
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		p.logger.Error("Document batch upload failed", zap.Int("documents", len(docs)), zap.Error(err))
		return nil, err
	}
	return results, nil
}

func (p *Pipeline) put(ctx context.Context, kind, ownerID, subfolder string, f File) (*StoredFile, error) {
	start := time.Now()
	objectPath := ObjectPath(ownerID, subfolder, f.Name)

	storedPath, err := p.storage.Upload(ctx, objectPath, f.ContentType, f.Reader())
	result := "ok"
	if err != nil {
		result = "error"
	}
	metrics.UploadDuration.WithLabelValues(kind, result).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}

	return &StoredFile{
		OriginalName: f.Name,
		StoragePath:  storedPath,
		PublicURL:    p.storage.PublicURL(storedPath),
		ContentType:  f.ContentType,
		Size:         f.Size,
	}, nil
}
