// File: internal/user/repository.go
package user

import (
	"context"
	"errors"
	"strings"

	"marketplace_backend/internal/common"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository defines the interface for profile data operations.
type Repository interface {
	// EnsureProfile inserts p unless a profile with the same ID exists and
	// reports whether a row was created.
	EnsureProfile(ctx context.Context, p *Profile) (bool, error)
	FindByID(ctx context.Context, id string) (*Profile, error)
	UpdateContact(ctx context.Context, id string, fullName, phone *string) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewGORMRepository creates a new GORM profile repository.
func NewGORMRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) EnsureProfile(ctx context.Context, p *Profile) (bool, error) {
	if p.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*p.Email))
		p.Email = &email
	}
	if p.Role == "" {
		p.Role = common.RoleUser
	}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		Create(p)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// FindByID retrieves a profile by identity UID.
func (r *gormRepository) FindByID(ctx context.Context, id string) (*Profile, error) {
	var p Profile
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound.WithDetails("Profile not found.")
		}
		return nil, err
	}
	return &p, nil
}

// UpdateContact changes the name and phone of a profile. Nil fields are left alone.
func (r *gormRepository) UpdateContact(ctx context.Context, id string, fullName, phone *string) error {
	updates := map[string]interface{}{}
	if fullName != nil {
		updates["full_name"] = strings.TrimSpace(*fullName)
	}
	if phone != nil {
		updates["phone"] = strings.TrimSpace(*phone)
	}
	if len(updates) == 0 {
		return nil
	}
	res := r.db.WithContext(ctx).Model(&Profile{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return common.ErrNotFound.WithDetails("Profile not found.")
	}
	return nil
}
