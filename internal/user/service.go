// File: internal/user/service.go
package user

import (
	"context"
	"fmt"
	"strings"

	"marketplace_backend/internal/common"
	"marketplace_backend/internal/shared"

	"go.uber.org/zap"
)

// Service defines the interface for profile operations.
type Service interface {
	EnsureProfile(ctx context.Context, session *shared.Session) error
	GetProfile(ctx context.Context, id string) (*Profile, error)
	UpdateProfile(ctx context.Context, id string, req UpdateProfileRequest) (*Profile, error)
	RoleFor(ctx context.Context, id string) (string, error)
}

// ServiceImplementation implements Service.
type ServiceImplementation struct {
	repo   Repository
	logger *zap.Logger
}

var _ Service = (*ServiceImplementation)(nil)

// NewService creates a new profile service.
func NewService(repo Repository, logger *zap.Logger) *ServiceImplementation {
	return &ServiceImplementation{repo: repo, logger: logger}
}

// EnsureProfile creates a minimal profile for the session's user if none exists.
func (s *ServiceImplementation) EnsureProfile(ctx context.Context, session *shared.Session) error {
	if session == nil || session.UserID == "" {
		return shared.ErrNoSession
	}
	p := &Profile{ID: session.UserID, Role: common.RoleUser}
	if email := strings.TrimSpace(session.Email); email != "" {
		p.Email = &email
	}
	if name := strings.TrimSpace(session.Name); name != "" {
		p.FullName = &name
	}
	created, err := s.repo.EnsureProfile(ctx, p)
	if err != nil {
		s.logger.Error("Failed to ensure profile", zap.String("userID", session.UserID), zap.Error(err))
		return fmt.Errorf("ensure profile: %w", err)
	}
	if created {
		s.logger.Info("Created profile for new seller", zap.String("userID", session.UserID))
	}
	return nil
}

// GetProfile retrieves a profile by identity UID.
func (s *ServiceImplementation) GetProfile(ctx context.Context, id string) (*Profile, error) {
	return s.repo.FindByID(ctx, id)
}

// UpdateProfile changes the contact fields of a profile and returns the result.
func (s *ServiceImplementation) UpdateProfile(ctx context.Context, id string, req UpdateProfileRequest) (*Profile, error) {
	if err := s.repo.UpdateContact(ctx, id, req.FullName, req.Phone); err != nil {
		if _, ok := common.IsAPIError(err); ok {
			return nil, err
		}
		s.logger.Error("Failed to update profile", zap.String("userID", id), zap.Error(err))
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return s.repo.FindByID(ctx, id)
}

// RoleFor returns the stored role, defaulting to a plain user when no
// profile exists yet.
func (s *ServiceImplementation) RoleFor(ctx context.Context, id string) (string, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if common.HasCode(err, common.ErrNotFound) {
			return common.RoleUser, nil
		}
		return "", err
	}
	if p.Role == "" {
		return common.RoleUser, nil
	}
	return p.Role, nil
}
