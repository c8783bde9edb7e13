package user

import (
	"context"
	"errors"
	"testing"

	"marketplace_backend/internal/common"
	"marketplace_backend/internal/shared"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockUserRepository is a mock type for user.Repository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) EnsureProfile(ctx context.Context, p *Profile) (bool, error) {
	args := m.Called(ctx, p)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserRepository) FindByID(ctx context.Context, id string) (*Profile, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Profile), args.Error(1)
}

func (m *MockUserRepository) UpdateContact(ctx context.Context, id string, fullName, phone *string) error {
	args := m.Called(ctx, id, fullName, phone)
	return args.Error(0)
}

func TestService_EnsureProfileFromSession(t *testing.T) {
	repo := new(MockUserRepository)
	svc := NewService(repo, zap.NewNop())

	repo.On("EnsureProfile", mock.Anything, mock.MatchedBy(func(p *Profile) bool {
		return p.ID == "uid-1" && p.Email != nil && *p.Email == "jane@example.com" &&
			p.FullName != nil && *p.FullName == "Jane" && p.Role == common.RoleUser
	})).Return(true, nil).Once()

	err := svc.EnsureProfile(context.Background(), &shared.Session{UserID: "uid-1", Email: "jane@example.com", Name: "Jane"})
	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestService_EnsureProfileErrors(t *testing.T) {
	repo := new(MockUserRepository)
	svc := NewService(repo, zap.NewNop())

	assert.ErrorIs(t, svc.EnsureProfile(context.Background(), nil), shared.ErrNoSession)

	dbErr := errors.New("connection refused")
	repo.On("EnsureProfile", mock.Anything, mock.Anything).Return(false, dbErr)
	err := svc.EnsureProfile(context.Background(), &shared.Session{UserID: "uid-1"})
	assert.ErrorIs(t, err, dbErr)
}

func TestService_RoleFor(t *testing.T) {
	repo := new(MockUserRepository)
	svc := NewService(repo, zap.NewNop())
	ctx := context.Background()

	repo.On("FindByID", ctx, "admin-1").Return(&Profile{ID: "admin-1", Role: common.RoleAdmin}, nil)
	repo.On("FindByID", ctx, "new-1").Return(nil, common.ErrNotFound.WithDetails("Profile not found."))
	repo.On("FindByID", ctx, "broken").Return(nil, errors.New("timeout"))

	role, err := svc.RoleFor(ctx, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, common.RoleAdmin, role)

	role, err = svc.RoleFor(ctx, "new-1")
	require.NoError(t, err)
	assert.Equal(t, common.RoleUser, role)

	_, err = svc.RoleFor(ctx, "broken")
	assert.Error(t, err)
}

func TestService_UpdateProfile(t *testing.T) {
	repo := new(MockUserRepository)
	svc := NewService(repo, zap.NewNop())
	ctx := context.Background()
	name := "Jane Seller"

	repo.On("UpdateContact", ctx, "uid-1", &name, (*string)(nil)).Return(nil)
	repo.On("FindByID", ctx, "uid-1").Return(&Profile{ID: "uid-1", FullName: &name}, nil)

	p, err := svc.UpdateProfile(ctx, "uid-1", UpdateProfileRequest{FullName: &name})
	require.NoError(t, err)
	assert.Equal(t, "Jane Seller", *p.FullName)

	repo.On("UpdateContact", ctx, "missing", &name, (*string)(nil)).Return(common.ErrNotFound.WithDetails("Profile not found."))
	_, err = svc.UpdateProfile(ctx, "missing", UpdateProfileRequest{FullName: &name})
	assert.True(t, common.HasCode(err, common.ErrNotFound))
}
