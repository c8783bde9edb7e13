// File: internal/listing/repository.go
package listing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"marketplace_backend/internal/common"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrSlugAlreadyAssigned is returned when a listing already carries a slug.
var ErrSlugAlreadyAssigned = errors.New("listing slug already assigned")

// ErrNoDocumentSchema is returned when neither documents table accepted the rows.
var ErrNoDocumentSchema = errors.New("no compatible documents table")

// Repository defines the interface for listing data operations.
type Repository interface {
	CreateBase(ctx context.Context, listing *Listing) error
	AssignSlug(ctx context.Context, id uuid.UUID, slug string) error
	SetImage(ctx context.Context, id uuid.UUID, url, path string) error
	CreateDetails(ctx context.Context, details Details) error
	RegisterDocuments(ctx context.Context, docs []Document) (string, error)
	FindDocuments(ctx context.Context, listingID uuid.UUID) ([]Document, error)
	WithinTransaction(ctx context.Context, fn func(repo Repository) error) error

	FindByID(ctx context.Context, id uuid.UUID, withDocuments bool) (*Listing, error)
	FindBySlug(ctx context.Context, slug string) (*Listing, error)
	FindByOwner(ctx context.Context, userID string, activeOnly bool, page, pageSize int) ([]Listing, *common.Pagination, error)
	FindByStatus(ctx context.Context, status ListingStatus, page, pageSize int) ([]Listing, *common.Pagination, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to ListingStatus, reason *string) error
	MarkSold(ctx context.Context, id uuid.UUID, userID string, price *float64, closedAt time.Time) error
	FindAllForSync(ctx context.Context, offset, limit int) ([]Listing, error)
	FindIncomplete(ctx context.Context, createdBefore time.Time) ([]Listing, error)
	FlagNeedsAttention(ctx context.Context, ids []uuid.UUID) (int64, error)
}

type gormRepository struct {
	db   *gorm.DB
	inTx bool
}

// NewGORMRepository creates a new GORM listing repository.
func NewGORMRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

// preloader applies common preloads for listings.
func (r *gormRepository) preloader(query *gorm.DB) *gorm.DB {
	return query.Preload("BusinessDetails").
		Preload("FranchiseDetails").
		Preload("InvestmentDetails")
}

// WithinTransaction runs fn against a repository bound to a single
// transaction. Any error returned by fn rolls everything back.
func (r *gormRepository) WithinTransaction(ctx context.Context, fn func(repo Repository) error) error {
	if r.inTx {
		return fn(r)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormRepository{db: tx, inTx: true})
	})
}

// savepoint runs op behind a savepoint when inside a transaction, so a
// failure of op leaves the surrounding transaction usable.
func (r *gormRepository) savepoint(db *gorm.DB, name string, op func(db *gorm.DB) error) error {
	if !r.inTx {
		return op(db)
	}
	if err := db.SavePoint(name).Error; err != nil {
		return fmt.Errorf("failed to create savepoint %s: %w", name, err)
	}
	if err := op(db); err != nil {
		if rbErr := db.RollbackTo(name).Error; rbErr != nil {
			return fmt.Errorf("%w (rollback to %s failed: %v)", err, name, rbErr)
		}
		return err
	}
	return nil
}

// CreateBase inserts the listing row only; details and documents are written separately.
func (r *gormRepository) CreateBase(ctx context.Context, listing *Listing) error {
	if listing.Status == "" {
		listing.Status = StatusPending
	}
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(listing).Error; err != nil {
		if isUniqueViolation(err) {
			return common.ErrConflict.WithDetails("A listing with this identifier already exists.")
		}
		return fmt.Errorf("failed to create listing: %w", err)
	}
	return nil
}

// isUniqueViolation matches translated gorm errors and raw driver messages
// from postgres ("unique constraint") and sqlite ("UNIQUE constraint failed").
func isUniqueViolation(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(strings.ToLower(err.Error()), "unique constraint")
}

// AssignSlug sets the slug only if none is set yet.
func (r *gormRepository) AssignSlug(ctx context.Context, id uuid.UUID, slug string) error {
	db := r.db.WithContext(ctx)
	return r.savepoint(db, "listing_slug", func(db *gorm.DB) error {
		res := db.Model(&Listing{}).
			Where("id = ? AND slug IS NULL", id).
			Update("slug", slug)
		if res.Error != nil {
			return fmt.Errorf("failed to assign slug: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrSlugAlreadyAssigned
		}
		return nil
	})
}

// SetImage attaches an image uploaded after the base row was written.
func (r *gormRepository) SetImage(ctx context.Context, id uuid.UUID, url, path string) error {
	res := r.db.WithContext(ctx).Model(&Listing{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"image_url": url, "image_path": path})
	if res.Error != nil {
		return fmt.Errorf("failed to attach listing image: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return common.ErrNotFound.WithDetails("Listing not found.")
	}
	return nil
}

// CreateDetails inserts the type-specific detail row.
func (r *gormRepository) CreateDetails(ctx context.Context, details Details) error {
	if details == nil || details.detailListingID() == uuid.Nil {
		return fmt.Errorf("failed to create listing details: missing listing id")
	}
	db := r.db.WithContext(ctx)
	var err error
	switch d := details.(type) {
	case *BusinessDetails:
		err = db.Create(d).Error
	case *FranchiseDetails:
		err = db.Create(d).Error
	case *InvestmentDetails:
		err = db.Create(d).Error
	default:
		return fmt.Errorf("failed to create listing details: unsupported type %T", details)
	}
	if err != nil {
		return fmt.Errorf("failed to create %s details: %w", details.Kind(), err)
	}
	return nil
}

// RegisterDocuments writes docs to the first documents table the database
// has, returning that table's name.
func (r *gormRepository) RegisterDocuments(ctx context.Context, docs []Document) (string, error) {
	if len(docs) == 0 {
		return "", nil
	}
	db := r.db.WithContext(ctx)
	var mismatches []error
	for _, schema := range documentSchemas {
		insert := schema.insert
		err := r.savepoint(db, "documents_"+schema.name, func(db *gorm.DB) error {
			return insert(db, docs)
		})
		if err == nil {
			return schema.name, nil
		}
		if !isSchemaMismatch(err) {
			return "", fmt.Errorf("failed to register documents in %s: %w", schema.name, err)
		}
		mismatches = append(mismatches, fmt.Errorf("%s: %w", schema.name, err))
	}
	return "", fmt.Errorf("%w: %w", ErrNoDocumentSchema, errors.Join(mismatches...))
}

// FindDocuments loads a listing's documents from whichever table holds them.
func (r *gormRepository) FindDocuments(ctx context.Context, listingID uuid.UUID) ([]Document, error) {
	db := r.db.WithContext(ctx)
	for _, schema := range documentSchemas {
		docs, err := schema.load(db, listingID)
		if err == nil {
			if len(docs) > 0 {
				return docs, nil
			}
			continue
		}
		if !isSchemaMismatch(err) {
			return nil, fmt.Errorf("failed to load documents from %s: %w", schema.name, err)
		}
	}
	return []Document{}, nil
}

// FindByID retrieves a listing by its ID.
func (r *gormRepository) FindByID(ctx context.Context, id uuid.UUID, withDocuments bool) (*Listing, error) {
	var listing Listing
	err := r.preloader(r.db.WithContext(ctx)).First(&listing, "listings.id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound.WithDetails("Listing not found.")
		}
		return nil, err
	}
	if withDocuments {
		docs, err := r.FindDocuments(ctx, id)
		if err != nil {
			return nil, err
		}
		listing.Documents = docs
	}
	return &listing, nil
}

// FindBySlug retrieves a listing by its public slug.
func (r *gormRepository) FindBySlug(ctx context.Context, slug string) (*Listing, error) {
	var listing Listing
	err := r.preloader(r.db.WithContext(ctx)).First(&listing, "listings.slug = ?", slug).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound.WithDetails("Listing not found.")
		}
		return nil, err
	}
	return &listing, nil
}

func (r *gormRepository) paginate(query *gorm.DB, page, pageSize int) ([]Listing, *common.Pagination, error) {
	var total int64
	if err := query.Session(&gorm.Session{}).Model(&Listing{}).Count(&total).Error; err != nil {
		return nil, nil, fmt.Errorf("failed to count listings: %w", err)
	}
	var listings []Listing
	err := r.preloader(query).
		Order("listings.created_at DESC").
		Offset(common.Offset(page, pageSize)).
		Limit(pageSize).
		Find(&listings).Error
	if err != nil {
		return nil, nil, fmt.Errorf("failed to find listings: %w", err)
	}
	return listings, common.NewPagination(total, page, pageSize), nil
}

// FindByOwner returns a seller's listings, newest first. activeOnly drops sold listings.
func (r *gormRepository) FindByOwner(ctx context.Context, userID string, activeOnly bool, page, pageSize int) ([]Listing, *common.Pagination, error) {
	query := r.db.WithContext(ctx).Model(&Listing{}).Where("listings.user_id = ?", userID)
	if activeOnly {
		query = query.Where("listings.status <> ?", StatusSold)
	}
	return r.paginate(query, page, pageSize)
}

// FindByStatus returns listings in a given status, newest first.
func (r *gormRepository) FindByStatus(ctx context.Context, status ListingStatus, page, pageSize int) ([]Listing, *common.Pagination, error) {
	query := r.db.WithContext(ctx).Model(&Listing{}).Where("listings.status = ?", status)
	return r.paginate(query, page, pageSize)
}

// UpdateStatus moves a listing from one status to another. It fails with a
// conflict if the listing is no longer in the from status.
func (r *gormRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to ListingStatus, reason *string) error {
	updates := map[string]interface{}{"status": to}
	if to == StatusRejected {
		updates["rejection_reason"] = reason
	}
	res := r.db.WithContext(ctx).Model(&Listing{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("failed to update listing status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return common.ErrConflict.WithDetails(fmt.Sprintf("Listing is no longer %s.", from))
	}
	return nil
}

// MarkSold closes an approved listing owned by userID.
func (r *gormRepository) MarkSold(ctx context.Context, id uuid.UUID, userID string, price *float64, closedAt time.Time) error {
	res := r.db.WithContext(ctx).Model(&Listing{}).
		Where("id = ? AND user_id = ? AND status = ?", id, userID, StatusApproved).
		Updates(map[string]interface{}{
			"status":     StatusSold,
			"sold_price": price,
			"closed_at":  closedAt,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to mark listing sold: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return common.ErrConflict.WithDetails("Only approved listings can be marked as sold.")
	}
	return nil
}

// FindAllForSync returns a batch of approved listings for re-indexing.
func (r *gormRepository) FindAllForSync(ctx context.Context, offset, limit int) ([]Listing, error) {
	var listings []Listing
	err := r.preloader(r.db.WithContext(ctx)).
		Where("listings.status = ?", StatusApproved).
		Order("listings.created_at ASC, listings.id ASC").
		Offset(offset).
		Limit(limit).
		Find(&listings).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load listings for sync: %w", err)
	}
	return listings, nil
}

// FindIncomplete returns pending listings created before createdBefore that
// have no slug or no detail row and have not been flagged yet.
func (r *gormRepository) FindIncomplete(ctx context.Context, createdBefore time.Time) ([]Listing, error) {
	var listings []Listing
	err := r.db.WithContext(ctx).
		Where("listings.status = ? AND listings.needs_attention = ? AND listings.created_at < ?", StatusPending, false, createdBefore).
		Where(r.db.
			Where("listings.slug IS NULL").
			Or("NOT EXISTS (SELECT 1 FROM business_details d WHERE d.listing_id = listings.id) AND " +
				"NOT EXISTS (SELECT 1 FROM franchise_details d WHERE d.listing_id = listings.id) AND " +
				"NOT EXISTS (SELECT 1 FROM investment_details d WHERE d.listing_id = listings.id)")).
		Order("listings.created_at ASC").
		Find(&listings).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find incomplete listings: %w", err)
	}
	return listings, nil
}

// FlagNeedsAttention marks listings for moderator follow-up.
func (r *gormRepository) FlagNeedsAttention(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).Model(&Listing{}).
		Where("id IN ?", ids).
		Update("needs_attention", true)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to flag listings: %w", res.Error)
	}
	return res.RowsAffected, nil
}
