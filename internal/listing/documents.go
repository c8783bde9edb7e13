// File: internal/listing/documents.go
package listing

import (
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const (
	SchemaListingDocuments = "listing_documents"
	SchemaLegacyDocuments  = "documents"
)

// documentSchema adapts the canonical Document to one physical table shape.
type documentSchema struct {
	name   string
	insert func(db *gorm.DB, docs []Document) error
	load   func(db *gorm.DB, listingID uuid.UUID) ([]Document, error)
}

// documentSchemas are tried in order; a schema mismatch falls through to the next.
var documentSchemas = []documentSchema{
	{name: SchemaListingDocuments, insert: insertListingDocuments, load: loadListingDocuments},
	{name: SchemaLegacyDocuments, insert: insertLegacyDocuments, load: loadLegacyDocuments},
}

func insertListingDocuments(db *gorm.DB, docs []Document) error {
	rows := make([]ListingDocument, 0, len(docs))
	for _, d := range docs {
		rows = append(rows, ListingDocument{
			ListingID:    d.ListingID,
			DocumentType: d.Type,
			OriginalName: d.OriginalName,
			StorageURL:   d.URL,
			StoragePath:  d.StoragePath,
			SizeBytes:    d.Size,
			MimeType:     d.ContentType,
			UploadedBy:   d.UploadedBy,
		})
	}
	return db.Create(&rows).Error
}

func loadListingDocuments(db *gorm.DB, listingID uuid.UUID) ([]Document, error) {
	var rows []ListingDocument
	if err := db.Where("listing_id = ?", listingID).Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	docs := make([]Document, 0, len(rows))
	for _, r := range rows {
		docs = append(docs, Document{
			ListingID:    r.ListingID,
			Type:         r.DocumentType,
			OriginalName: r.OriginalName,
			URL:          r.StorageURL,
			StoragePath:  r.StoragePath,
			Size:         r.SizeBytes,
			ContentType:  r.MimeType,
			UploadedBy:   r.UploadedBy,
		})
	}
	return docs, nil
}

func insertLegacyDocuments(db *gorm.DB, docs []Document) error {
	rows := make([]LegacyDocument, 0, len(docs))
	for _, d := range docs {
		rows = append(rows, LegacyDocument{
			ListingID: d.ListingID,
			DocType:   d.Type,
			Name:      d.OriginalName,
			URL:       d.URL,
		})
	}
	return db.Create(&rows).Error
}

func loadLegacyDocuments(db *gorm.DB, listingID uuid.UUID) ([]Document, error) {
	var rows []LegacyDocument
	if err := db.Where("listing_id = ?", listingID).Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	docs := make([]Document, 0, len(rows))
	for _, r := range rows {
		docs = append(docs, Document{
			ListingID:    r.ListingID,
			Type:         r.DocType,
			OriginalName: r.Name,
			URL:          r.URL,
		})
	}
	return docs, nil
}

// isSchemaMismatch reports whether err means the table or a column does not
// exist, as opposed to a data or connectivity failure.
func isSchemaMismatch(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// undefined_table, undefined_column
		return pgErr.Code == "42P01" || pgErr.Code == "42703"
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "no such table") ||
		strings.Contains(msg, "no such column") ||
		strings.Contains(msg, "has no column named")
}
