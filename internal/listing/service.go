// File: internal/listing/service.go
package listing

import (
	"context"
	"strings"
	"time"

	"marketplace_backend/internal/common"
	"marketplace_backend/internal/notification"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Indexer keeps the public search projection of listings current.
type Indexer interface {
	Index(ctx context.Context, listing *Listing) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// NopIndexer is used when no search backend is configured.
type NopIndexer struct{}

func (NopIndexer) Index(context.Context, *Listing) error { return nil }
func (NopIndexer) Delete(context.Context, uuid.UUID) error { return nil }

// Service defines the interface for listing-related business logic.
type Service interface {
	GetBySlug(ctx context.Context, slug string) (*Listing, error)
	GetMyListings(ctx context.Context, userID string, activeOnly bool, page, pageSize int) ([]Listing, *common.Pagination, error)
	GetForOwner(ctx context.Context, id uuid.UUID, userID string) (*Listing, error)

	// Moderation
	ListPending(ctx context.Context, page, pageSize int) ([]Listing, *common.Pagination, error)
	Approve(ctx context.Context, id uuid.UUID) (*Listing, error)
	Reject(ctx context.Context, id uuid.UUID, reason string) (*Listing, error)

	MarkSold(ctx context.Context, id uuid.UUID, userID string, price *float64, closedAt *time.Time) (*Listing, error)

	// Jobs related (can be called by cron jobs)
	SweepIncomplete(ctx context.Context, grace time.Duration) (int64, error)
}

// ServiceImplementation implements the listing Service interface.
type ServiceImplementation struct {
	repo                Repository
	notificationService notification.Service
	indexer             Indexer
	logger              *zap.Logger
	now                 func() time.Time
}

var _ Service = (*ServiceImplementation)(nil)

// NewService creates a new listing service.
func NewService(
	repo Repository,
	notificationService notification.Service,
	indexer Indexer,
	logger *zap.Logger,
) *ServiceImplementation {
	if indexer == nil {
		indexer = NopIndexer{}
	}
	return &ServiceImplementation{
		repo:                repo,
		notificationService: notificationService,
		indexer:             indexer,
		logger:              logger.Named("ListingService"),
		now:                 time.Now,
	}
}

// GetBySlug returns a publicly visible listing. Pending and rejected
// listings are reported as not found.
func (s *ServiceImplementation) GetBySlug(ctx context.Context, slug string) (*Listing, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, common.ErrNotFound.WithDetails("Listing not found.")
	}
	l, err := s.repo.FindBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if !l.Status.Public() {
		return nil, common.ErrNotFound.WithDetails("Listing not found.")
	}
	return l, nil
}

func (s *ServiceImplementation) GetMyListings(ctx context.Context, userID string, activeOnly bool, page, pageSize int) ([]Listing, *common.Pagination, error) {
	listings, pagination, err := s.repo.FindByOwner(ctx, userID, activeOnly, page, pageSize)
	if err != nil {
		s.logger.Error("Failed to load seller listings", zap.String("userID", userID), zap.Error(err))
		return nil, nil, common.ErrInternalServer.WithDetails("Could not load your listings.")
	}
	return listings, pagination, nil
}

// GetForOwner returns a listing with its documents if userID owns it.
func (s *ServiceImplementation) GetForOwner(ctx context.Context, id uuid.UUID, userID string) (*Listing, error) {
	l, err := s.repo.FindByID(ctx, id, true)
	if err != nil {
		return nil, err
	}
	if l.UserID != userID {
		// Do not reveal that the listing exists.
		return nil, common.ErrNotFound.WithDetails("Listing not found.")
	}
	return l, nil
}

func (s *ServiceImplementation) ListPending(ctx context.Context, page, pageSize int) ([]Listing, *common.Pagination, error) {
	listings, pagination, err := s.repo.FindByStatus(ctx, StatusPending, page, pageSize)
	if err != nil {
		s.logger.Error("Failed to load moderation queue", zap.Error(err))
		return nil, nil, common.ErrInternalServer.WithDetails("Could not load pending listings.")
	}
	return listings, pagination, nil
}

func (s *ServiceImplementation) Approve(ctx context.Context, id uuid.UUID) (*Listing, error) {
	l, err := s.transition(ctx, id, StatusApproved, nil)
	if err != nil {
		return nil, err
	}
	if err := s.indexer.Index(ctx, l); err != nil {
		s.logger.Warn("Failed to index approved listing", zap.String("listingID", id.String()), zap.Error(err))
	}
	s.notify(ctx, l, notification.ListingApproved, "")
	return l, nil
}

func (s *ServiceImplementation) Reject(ctx context.Context, id uuid.UUID, reason string) (*Listing, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, common.ErrBadRequest.WithDetails("A rejection reason is required.")
	}
	l, err := s.transition(ctx, id, StatusRejected, &reason)
	if err != nil {
		return nil, err
	}
	if err := s.indexer.Delete(ctx, id); err != nil {
		s.logger.Warn("Failed to remove rejected listing from index", zap.String("listingID", id.String()), zap.Error(err))
	}
	s.notify(ctx, l, notification.ListingRejected, reason)
	return l, nil
}

// MarkSold closes an approved listing. closedAt defaults to now.
func (s *ServiceImplementation) MarkSold(ctx context.Context, id uuid.UUID, userID string, price *float64, closedAt *time.Time) (*Listing, error) {
	l, err := s.GetForOwner(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if !l.Status.CanTransitionTo(StatusSold) {
		return nil, common.ErrConflict.WithDetails("Only approved listings can be marked as sold.")
	}
	if price != nil && *price <= 0 {
		return nil, common.ErrBadRequest.WithDetails("Sold price must be greater than 0.")
	}
	at := s.now().UTC()
	if closedAt != nil {
		at = closedAt.UTC()
	}
	if err := s.repo.MarkSold(ctx, id, userID, price, at); err != nil {
		return nil, err
	}

	l.Status = StatusSold
	l.SoldPrice = price
	l.ClosedAt = &at
	if err := s.indexer.Delete(ctx, id); err != nil {
		s.logger.Warn("Failed to remove sold listing from index", zap.String("listingID", id.String()), zap.Error(err))
	}
	s.notify(ctx, l, notification.ListingSold, "")
	return l, nil
}

// SweepIncomplete flags pending listings left without a slug or details for
// longer than grace, returning how many were flagged.
func (s *ServiceImplementation) SweepIncomplete(ctx context.Context, grace time.Duration) (int64, error) {
	listings, err := s.repo.FindIncomplete(ctx, s.now().Add(-grace))
	if err != nil {
		return 0, err
	}
	if len(listings) == 0 {
		return 0, nil
	}
	ids := make([]uuid.UUID, 0, len(listings))
	for _, l := range listings {
		ids = append(ids, l.ID)
	}
	flagged, err := s.repo.FlagNeedsAttention(ctx, ids)
	if err != nil {
		return 0, err
	}
	s.logger.Info("Flagged incomplete listings for moderation", zap.Int64("count", flagged))
	return flagged, nil
}

func (s *ServiceImplementation) transition(ctx context.Context, id uuid.UUID, to ListingStatus, reason *string) (*Listing, error) {
	l, err := s.repo.FindByID(ctx, id, false)
	if err != nil {
		return nil, err
	}
	if !l.Status.CanTransitionTo(to) {
		return nil, common.ErrConflict.WithDetails("Cannot move a " + string(l.Status) + " listing to " + string(to) + ".")
	}
	if to == StatusApproved && l.Slug == nil {
		if err := s.assignMissingSlug(ctx, l); err != nil {
			return nil, err
		}
	}
	if err := s.repo.UpdateStatus(ctx, id, l.Status, to, reason); err != nil {
		return nil, err
	}
	l.Status = to
	if to == StatusRejected {
		l.RejectionReason = reason
	}
	s.logger.Info("Listing status changed", zap.String("listingID", id.String()), zap.String("status", string(to)))
	return l, nil
}

// assignMissingSlug gives a listing whose slug step degraded at submission a
// public URL. Approval is refused while none can be assigned.
func (s *ServiceImplementation) assignMissingSlug(ctx context.Context, l *Listing) error {
	slug := GenerateSlug(l.Title, l.ID)
	if err := s.repo.AssignSlug(ctx, l.ID, slug); err != nil {
		s.logger.Warn("Failed to assign slug before approval", zap.String("listingID", l.ID.String()), zap.Error(err))
		return common.ErrConflict.WithDetails("This listing has no public URL yet and one could not be assigned. Try again later.")
	}
	l.Slug = &slug
	s.logger.Info("Assigned missing slug before approval", zap.String("listingID", l.ID.String()), zap.String("slug", slug))
	return nil
}

// notify is best effort; the status change already happened.
func (s *ServiceImplementation) notify(ctx context.Context, l *Listing, notifType notification.NotificationType, detail string) {
	if s.notificationService == nil {
		return
	}
	if err := s.notificationService.NotifyListing(ctx, l.UserID, l.ID, notifType, l.Title, detail); err != nil {
		s.logger.Warn("Failed to notify seller", zap.String("listingID", l.ID.String()), zap.String("type", string(notifType)), zap.Error(err))
	}
}
