// File: internal/draft/service.go
package draft

import (
	"context"
	"errors"
	"fmt"
	"time"

	"marketplace_backend/internal/common"
	"marketplace_backend/internal/platform/metrics"

	"go.uber.org/zap"
)

// Cache is the session storage the service works against.
type Cache interface {
	Save(ctx context.Context, key string, s *Session) error
	Load(ctx context.Context, key string) (*Session, error)
	Flush(ctx context.Context, key string) error
	Clear(ctx context.Context, key string) error
}

var _ Cache = (*Autosaver)(nil)

// SessionView is what the API returns for a seller's current draft.
type SessionView struct {
	Step        Step      `json:"step"`
	StepLabel   string    `json:"step_label"`
	Draft       Draft     `json:"draft"`
	CanContinue bool      `json:"can_continue"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Service defines the interface for draft wizard operations.
type Service interface {
	Current(ctx context.Context, userID string) (*SessionView, error)
	Patch(ctx context.Context, userID string, patch []byte) (*SessionView, error)
	Next(ctx context.Context, userID string) (*SessionView, ValidationErrors, error)
	Back(ctx context.Context, userID string) (*SessionView, error)
	Edit(ctx context.Context, userID string, step Step) (*SessionView, error)
	Validate(ctx context.Context, userID string) (*SessionView, ValidationErrors, error)
	Flush(ctx context.Context, userID string) error
	Clear(ctx context.Context, userID string) error
}

// ServiceImplementation implements Service. Operations for one seller run
// one at a time.
type ServiceImplementation struct {
	cache  Cache
	now    func() time.Time
	logger *zap.Logger
	locks  stripedMutex
}

// NewService creates a new draft service.
func NewService(cache Cache, logger *zap.Logger) *ServiceImplementation {
	return &ServiceImplementation{cache: cache, now: time.Now, logger: logger.Named("DraftService")}
}

func (s *ServiceImplementation) load(ctx context.Context, userID string) (*Session, error) {
	sess, err := s.cache.Load(ctx, userID)
	if errors.Is(err, ErrDraftNotFound) {
		return NewSession(s.now()), nil
	}
	if err != nil {
		s.logger.Error("Failed to load draft session", zap.String("userID", userID), zap.Error(err))
		return nil, fmt.Errorf("load draft: %w", err)
	}
	sess.Wizard.normalize()
	return sess, nil
}

func (s *ServiceImplementation) save(ctx context.Context, userID string, sess *Session) error {
	sess.UpdatedAt = s.now()
	if err := s.cache.Save(ctx, userID, sess); err != nil {
		s.logger.Error("Failed to save draft session", zap.String("userID", userID), zap.Error(err))
		if errors.Is(err, ErrClosed) {
			return common.ErrServiceUnavailable.WithDetails("Drafts cannot be saved while the server is shutting down.")
		}
		return fmt.Errorf("save draft: %w", err)
	}
	return nil
}

func (s *ServiceImplementation) view(sess *Session) *SessionView {
	return &SessionView{
		Step:        sess.Wizard.Step,
		StepLabel:   sess.Wizard.Step.Label(),
		Draft:       sess.Draft,
		CanContinue: sess.Wizard.CanContinue(&sess.Draft, s.now()),
		UpdatedAt:   sess.UpdatedAt,
	}
}

func (s *ServiceImplementation) mutate(ctx context.Context, userID string, fn func(*Session) error) (*SessionView, error) {
	l := s.locks.For(userID)
	l.Lock()
	defer l.Unlock()

	sess, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := fn(sess); err != nil {
		return s.view(sess), err
	}
	if err := s.save(ctx, userID, sess); err != nil {
		return nil, err
	}
	return s.view(sess), nil
}

// Current returns the seller's session, or a fresh one on step 1.
func (s *ServiceImplementation) Current(ctx context.Context, userID string) (*SessionView, error) {
	l := s.locks.For(userID)
	l.Lock()
	defer l.Unlock()

	sess, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.view(sess), nil
}

// Patch merges fields into the draft without moving the wizard.
func (s *ServiceImplementation) Patch(ctx context.Context, userID string, patch []byte) (*SessionView, error) {
	return s.mutate(ctx, userID, func(sess *Session) error {
		if err := sess.Draft.Apply(patch); err != nil {
			return common.ErrBadRequest.WithDetails(err.Error())
		}
		return nil
	})
}

// Next validates the current step and advances when it passes.
func (s *ServiceImplementation) Next(ctx context.Context, userID string) (*SessionView, ValidationErrors, error) {
	var errs ValidationErrors
	v, err := s.mutate(ctx, userID, func(sess *Session) error {
		errs = sess.Wizard.Next(&sess.Draft, s.now())
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	result := "advanced"
	if len(errs) > 0 {
		result = "blocked"
	}
	metrics.WizardTransitions.WithLabelValues("next", result).Inc()
	return v, errs, nil
}

func (s *ServiceImplementation) Back(ctx context.Context, userID string) (*SessionView, error) {
	v, err := s.mutate(ctx, userID, func(sess *Session) error {
		sess.Wizard.Back()
		return nil
	})
	if err == nil {
		metrics.WizardTransitions.WithLabelValues("back", "advanced").Inc()
	}
	return v, err
}

// Edit jumps from Review to step.
func (s *ServiceImplementation) Edit(ctx context.Context, userID string, step Step) (*SessionView, error) {
	v, err := s.mutate(ctx, userID, func(sess *Session) error {
		if err := sess.Wizard.EditFromReview(step); err != nil {
			if errors.Is(err, ErrNotOnReview) {
				return common.ErrConflict.WithDetails(err.Error())
			}
			return common.ErrBadRequest.WithDetails(err.Error())
		}
		return nil
	})
	result := "advanced"
	if err != nil {
		result = "blocked"
	}
	metrics.WizardTransitions.WithLabelValues("edit", result).Inc()
	return v, err
}

// Validate reports the current step's errors without transitioning.
func (s *ServiceImplementation) Validate(ctx context.Context, userID string) (*SessionView, ValidationErrors, error) {
	l := s.locks.For(userID)
	l.Lock()
	defer l.Unlock()

	sess, err := s.load(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	return s.view(sess), Validate(sess.Wizard.Step, &sess.Draft, s.now()), nil
}

func (s *ServiceImplementation) Flush(ctx context.Context, userID string) error {
	if err := s.cache.Flush(ctx, userID); err != nil {
		s.logger.Error("Failed to flush draft session", zap.String("userID", userID), zap.Error(err))
		return fmt.Errorf("flush draft: %w", err)
	}
	return nil
}

// Clear discards the seller's draft.
func (s *ServiceImplementation) Clear(ctx context.Context, userID string) error {
	l := s.locks.For(userID)
	l.Lock()
	defer l.Unlock()
	if err := s.cache.Clear(ctx, userID); err != nil {
		s.logger.Error("Failed to clear draft session", zap.String("userID", userID), zap.Error(err))
		return fmt.Errorf("clear draft: %w", err)
	}
	return nil
}
