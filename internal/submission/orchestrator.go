// File: internal/submission/orchestrator.go
package submission

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"marketplace_backend/internal/common"
	"marketplace_backend/internal/config"
	"marketplace_backend/internal/draft"
	"marketplace_backend/internal/listing"
	"marketplace_backend/internal/notification"
	"marketplace_backend/internal/platform/metrics"
	"marketplace_backend/internal/shared"
	"marketplace_backend/internal/upload"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
)

// ErrUnauthenticated is returned when no signed-in user is on the context.
var ErrUnauthenticated = common.ErrUnauthorized.WithDetails("You must be signed in to submit a listing.")

// ProfileEnsurer creates the seller's profile row on first submission.
type ProfileEnsurer interface {
	EnsureProfile(ctx context.Context, s *shared.Session) error
}

// Uploader moves submitted files into blob storage.
type Uploader interface {
	UploadImage(ctx context.Context, ownerID string, f upload.File) (*upload.StoredFile, error)
	UploadDocuments(ctx context.Context, ownerID string, docs []upload.DocumentUpload) ([]upload.StoredFile, error)
}

// DraftCache is the seller's autosaved draft.
type DraftCache interface {
	Clear(ctx context.Context, userID string) error
}

// Notifier tells the seller their listing was received.
type Notifier interface {
	NotifyListing(ctx context.Context, userID string, listingID uuid.UUID, notifType notification.NotificationType, title, detail string) error
}

// SubmitRequest is a reviewed draft plus the files selected for it.
type SubmitRequest struct {
	Draft     *draft.Draft
	Image     *upload.File
	Documents []upload.DocumentUpload
}

// Result describes the listing a submission produced.
type Result struct {
	ListingID       uuid.UUID             `json:"listing_id"`
	Slug            *string               `json:"slug"`
	SlugPending     bool                  `json:"slug_pending"`
	Status          listing.ListingStatus `json:"status"`
	ImageURL        *string               `json:"image_url"`
	StorageWarning  bool                  `json:"storage_warning"`
	Documents       []listing.Document    `json:"documents"`
	DocumentSchema  string                `json:"document_schema,omitempty"`
	RedirectTo      string                `json:"redirect_to"`
	RedirectAfterMs int64                 `json:"redirect_after_ms"`
	Warnings        []string              `json:"warnings,omitempty"`
}

func (r *Result) warn(msg string) {
	r.Warnings = append(r.Warnings, msg)
}

// Orchestrator turns a reviewed draft into a persisted pending listing.
type Orchestrator struct {
	identity      shared.IdentityProvider
	profiles      ProfileEnsurer
	listings      listing.Repository
	uploads       Uploader
	drafts        DraftCache
	notifier      Notifier
	mode          string
	redirectPath  string
	redirectDelay time.Duration
	now           func() time.Time
	logger        *zap.Logger
}

// NewOrchestrator creates an Orchestrator. cfg selects the consistency mode
// and the post-submit redirect.
func NewOrchestrator(
	identity shared.IdentityProvider,
	profiles ProfileEnsurer,
	listings listing.Repository,
	uploads Uploader,
	drafts DraftCache,
	notifier Notifier,
	cfg *config.Config,
	logger *zap.Logger,
) *Orchestrator {
	return &Orchestrator{
		identity:      identity,
		profiles:      profiles,
		listings:      listings,
		uploads:       uploads,
		drafts:        drafts,
		notifier:      notifier,
		mode:          cfg.SubmissionConsistency,
		redirectPath:  cfg.SubmissionRedirectPath,
		redirectDelay: cfg.SubmissionRedirectDelay,
		now:           time.Now,
		logger:        logger.Named("SubmissionOrchestrator"),
	}
}

// submission is the state of one Submit call.
type submission struct {
	session *shared.Session
	req     SubmitRequest
	base    *listing.Listing
	details listing.Details
	result  *Result
}

// Submit runs the submission. Validation failures come back as a 422
// APIError carrying draft.ValidationErrors; any other fatal step returns an
// APIError whose message is safe to show the seller.
func (o *Orchestrator) Submit(ctx context.Context, req SubmitRequest) (*Result, error) {
	start := time.Now()
	defer func() {
		metrics.SubmissionDuration.WithLabelValues(o.mode).Observe(time.Since(start).Seconds())
	}()

	session, err := o.identity.CurrentUser(ctx)
	if err != nil {
		return nil, ErrUnauthenticated
	}
	if req.Draft == nil {
		return nil, common.ErrBadRequest.WithDetails("A listing draft is required.")
	}
	if err := attachFileRefs(req); err != nil {
		return nil, err
	}

	// Everything that can be rejected without touching storage is checked first.
	if err := upload.ValidateDocuments(req.Documents); err != nil {
		return nil, common.ErrBadRequest.WithDetails(err.Error())
	}
	if errs := draft.Validate(draft.StepReview, req.Draft, o.now()); len(errs) > 0 {
		o.countOutcome(req.Draft, "invalid")
		return nil, common.NewValidationAPIError(errs)
	}

	s, err := o.prepare(session, req)
	if err != nil {
		return nil, err
	}

	if err := o.profiles.EnsureProfile(ctx, session); err != nil {
		o.degraded(s, "profile", "Your profile could not be updated; you can complete it later.", err)
	}

	if o.mode == config.ConsistencyBestEffort {
		err = o.runBestEffort(ctx, s)
	} else {
		err = o.runTransactional(ctx, s)
	}
	if err != nil {
		o.countOutcome(req.Draft, "failed")
		return nil, err
	}

	o.finish(ctx, s)
	o.countOutcome(req.Draft, "created")
	return s.result, nil
}

// attachFileRefs records the submitted files on the draft so the media
// step validates what is actually being uploaded. A document the draft
// declares without a matching file is rejected.
func attachFileRefs(req SubmitRequest) error {
	d := req.Draft
	if req.Image != nil {
		d.Image = &draft.FileRef{Name: req.Image.Name, Size: req.Image.Size, ContentType: req.Image.ContentType}
	}
	uploaded := make(map[string]struct{}, len(req.Documents))
	for _, doc := range req.Documents {
		uploaded[doc.Key] = struct{}{}
	}
	var missing []string
	for key := range d.Documents {
		if _, ok := uploaded[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return common.ErrBadRequest.WithDetails(fmt.Sprintf("No file was uploaded for document %q.", missing[0]))
	}
	if len(req.Documents) == 0 {
		return nil
	}
	if d.Documents == nil {
		d.Documents = make(map[string]draft.FileRef, len(req.Documents))
	}
	for _, doc := range req.Documents {
		d.Documents[doc.Key] = draft.FileRef{Name: doc.File.Name, Size: doc.File.Size, ContentType: doc.File.ContentType}
	}
	return nil
}

func (o *Orchestrator) prepare(session *shared.Session, req SubmitRequest) (*submission, error) {
	d := req.Draft
	id := uuid.New()
	details, err := listing.DetailsFromDraft(id, d)
	if err != nil {
		return nil, common.ErrBadRequest.WithDetails("Please choose a listing type.")
	}
	snapshot, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot draft: %w", err)
	}

	base := &listing.Listing{
		UserID:        session.UserID,
		ListingType:   d.ListingType,
		Title:         d.Title(),
		Status:        listing.StatusPending,
		Plan:          d.EffectivePlan(),
		Industry:      d.Industry,
		Country:       d.Country,
		City:          d.City,
		DraftSnapshot: datatypes.JSON(snapshot),
	}
	base.ID = id

	return &submission{
		session: session,
		req:     req,
		base:    base,
		details: details,
		result: &Result{
			ListingID:       id,
			Status:          listing.StatusPending,
			Documents:       []listing.Document{},
			RedirectTo:      o.redirectPath,
			RedirectAfterMs: o.redirectDelay.Milliseconds(),
		},
	}, nil
}

// runTransactional uploads every file first, then writes all rows in one
// transaction so a fatal error leaves no partial listing behind.
func (o *Orchestrator) runTransactional(ctx context.Context, s *submission) error {
	var (
		image     *upload.StoredFile
		imageErr  error
		stored    []upload.StoredFile
		uploadsEg errgroup.Group
	)
	if s.req.Image != nil {
		uploadsEg.Go(func() error {
			image, imageErr = o.uploads.UploadImage(ctx, s.session.UserID, *s.req.Image)
			return nil
		})
	}
	uploadsEg.Go(func() error {
		var err error
		stored, err = o.uploads.UploadDocuments(ctx, s.session.UserID, s.req.Documents)
		return err
	})
	if err := uploadsEg.Wait(); err != nil {
		return o.fatal(s, "documents", "Your documents could not be uploaded", err)
	}
	o.applyImage(s, image, imageErr)
	if image != nil {
		s.base.ImageURL = &image.PublicURL
		s.base.ImagePath = &image.StoragePath
	}
	docs := o.documentRecords(s, stored)

	err := o.listings.WithinTransaction(ctx, func(tx listing.Repository) error {
		if err := tx.CreateBase(ctx, s.base); err != nil {
			return stepError{"listing", "Your listing could not be created", err}
		}
		o.assignSlug(ctx, tx, s)
		if err := tx.CreateDetails(ctx, s.details); err != nil {
			return stepError{"details", "Your listing details could not be saved", err}
		}
		schema, err := tx.RegisterDocuments(ctx, docs)
		if err != nil {
			return stepError{"documents", "Your documents could not be saved", err}
		}
		s.result.DocumentSchema = schema
		return nil
	})
	if err != nil {
		// The slug was rolled back with everything else.
		s.result.Slug, s.result.SlugPending = nil, false
		var se stepError
		if errors.As(err, &se) {
			return o.fatal(s, se.step, se.msg, se.err)
		}
		return o.fatal(s, "transaction", "Your listing could not be created", err)
	}
	s.result.Documents = docs
	return nil
}

// runBestEffort writes rows as soon as their inputs are ready. A fatal
// error after the base insert leaves the listing for the incomplete sweep.
func (o *Orchestrator) runBestEffort(ctx context.Context, s *submission) error {
	var (
		image    *upload.StoredFile
		imageErr error
		first    errgroup.Group
	)
	if s.req.Image != nil {
		first.Go(func() error {
			image, imageErr = o.uploads.UploadImage(ctx, s.session.UserID, *s.req.Image)
			return nil
		})
	}
	first.Go(func() error {
		return o.listings.CreateBase(ctx, s.base)
	})
	if err := first.Wait(); err != nil {
		return o.fatal(s, "listing", "Your listing could not be created", err)
	}
	o.applyImage(s, image, imageErr)
	if image != nil {
		if err := o.listings.SetImage(ctx, s.base.ID, image.PublicURL, image.StoragePath); err != nil {
			s.result.ImageURL = nil
			o.degraded(s, "image", "Your listing image could not be attached; you can add it later.", err)
			s.result.StorageWarning = true
		}
	}

	o.assignSlug(ctx, o.listings, s)

	var second errgroup.Group
	second.Go(func() error {
		if err := o.listings.CreateDetails(ctx, s.details); err != nil {
			return stepError{"details", "Your listing details could not be saved", err}
		}
		return nil
	})
	second.Go(func() error {
		stored, err := o.uploads.UploadDocuments(ctx, s.session.UserID, s.req.Documents)
		if err != nil {
			return stepError{"documents", "Your documents could not be uploaded", err}
		}
		docs := o.documentRecords(s, stored)
		schema, err := o.listings.RegisterDocuments(ctx, docs)
		if err != nil {
			return stepError{"documents", "Your documents could not be saved", err}
		}
		s.result.DocumentSchema = schema
		s.result.Documents = docs
		return nil
	})
	if err := second.Wait(); err != nil {
		var se stepError
		if errors.As(err, &se) {
			return o.fatal(s, se.step, se.msg, se.err)
		}
		return o.fatal(s, "listing", "Your listing could not be completed", err)
	}
	return nil
}

func (o *Orchestrator) applyImage(s *submission, image *upload.StoredFile, err error) {
	if err != nil {
		s.result.StorageWarning = true
		o.degraded(s, "image", "Your listing image could not be processed; the listing was saved without it.", err)
		return
	}
	if image != nil {
		s.result.ImageURL = &image.PublicURL
	}
}

// assignSlug is the only place a slug is generated for a listing.
func (o *Orchestrator) assignSlug(ctx context.Context, repo listing.Repository, s *submission) {
	slug := listing.GenerateSlug(s.base.Title, s.base.ID)
	if err := repo.AssignSlug(ctx, s.base.ID, slug); err != nil {
		s.result.SlugPending = true
		o.degraded(s, "slug", "Your listing link is still being prepared.", err)
		return
	}
	s.base.Slug = &slug
	s.result.Slug = &slug
}

func (o *Orchestrator) documentRecords(s *submission, stored []upload.StoredFile) []listing.Document {
	docs := make([]listing.Document, 0, len(stored))
	for _, f := range stored {
		docs = append(docs, listing.Document{
			ListingID:    s.base.ID,
			Key:          f.Key,
			Type:         listing.DocumentTypeForKey(f.Key),
			OriginalName: f.OriginalName,
			URL:          f.PublicURL,
			StoragePath:  f.StoragePath,
			Size:         f.Size,
			ContentType:  f.ContentType,
			UploadedBy:   s.session.UserID,
		})
	}
	return docs
}

func (o *Orchestrator) finish(ctx context.Context, s *submission) {
	if err := o.drafts.Clear(ctx, s.session.UserID); err != nil {
		o.logger.Warn("Failed to clear draft after submission", zap.String("userID", s.session.UserID), zap.Error(err))
		metrics.SubmissionDegradedTotal.WithLabelValues("draft_clear").Inc()
	}
	if o.notifier != nil {
		if err := o.notifier.NotifyListing(ctx, s.session.UserID, s.base.ID, notification.ListingSubmitted, s.base.Title, ""); err != nil {
			o.logger.Warn("Failed to notify seller of submission", zap.String("listingID", s.base.ID.String()), zap.Error(err))
			metrics.SubmissionDegradedTotal.WithLabelValues("notification").Inc()
		}
	}
	o.logger.Info("Listing submitted",
		zap.String("listingID", s.base.ID.String()),
		zap.String("userID", s.session.UserID),
		zap.String("listingType", string(s.base.ListingType)),
		zap.String("consistency", o.mode),
		zap.Bool("storageWarning", s.result.StorageWarning),
		zap.Bool("slugPending", s.result.SlugPending),
		zap.Int("documents", len(s.result.Documents)),
	)
}

func (o *Orchestrator) degraded(s *submission, step, msg string, err error) {
	o.logger.Warn("Submission step degraded",
		zap.String("step", step),
		zap.String("listingID", s.base.ID.String()),
		zap.String("userID", s.session.UserID),
		zap.Error(err),
	)
	metrics.SubmissionDegradedTotal.WithLabelValues(step).Inc()
	s.result.warn(msg)
}

func (o *Orchestrator) fatal(s *submission, step, msg string, err error) error {
	o.logger.Error("Submission failed",
		zap.String("step", step),
		zap.String("listingID", s.base.ID.String()),
		zap.String("userID", s.session.UserID),
		zap.String("consistency", o.mode),
		zap.Error(err),
	)
	if apiErr, ok := common.IsAPIError(err); ok && apiErr.StatusCode < 500 {
		return apiErr
	}
	return common.ErrInternalServer.WithDetails(msg + ": " + common.NormalizeError(err))
}

func (o *Orchestrator) countOutcome(d *draft.Draft, outcome string) {
	metrics.SubmissionsTotal.WithLabelValues(string(d.ListingType), outcome).Inc()
}

// stepError tags an error with the submission step that produced it.
type stepError struct {
	step string
	msg  string
	err  error
}

func (e stepError) Error() string { return e.step + ": " + e.err.Error() }

func (e stepError) Unwrap() error { return e.err }
