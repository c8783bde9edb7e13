// File: internal/user/model.go
package user

import (
	"time"
)

// Profile is the seller record keyed by the identity provider UID.
type Profile struct {
	ID        string    `gorm:"type:varchar(128);primaryKey" json:"id"`
	Email     *string   `gorm:"type:varchar(255);index" json:"email,omitempty"`
	FullName  *string   `gorm:"type:varchar(100)" json:"full_name,omitempty"`
	Phone     *string   `gorm:"type:varchar(32)" json:"phone,omitempty"`
	Role      string    `gorm:"type:varchar(50);not null;default:'user'" json:"role"` // "user" or "admin"
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for the Profile model.
func (Profile) TableName() string {
	return "profiles"
}

// --- DTOs (Data Transfer Objects) for API requests/responses ---

// UpdateProfileRequest defines the fields a seller may change on their profile.
type UpdateProfileRequest struct {
	FullName *string `json:"full_name,omitempty" binding:"omitempty,min=2,max=100"`
	Phone    *string `json:"phone,omitempty" binding:"omitempty,min=7,max=32"`
}

// ProfileResponse defines the structure for profile data sent in API responses.
type ProfileResponse struct {
	ID        string    `json:"id"`
	Email     *string   `json:"email,omitempty"`
	FullName  *string   `json:"full_name,omitempty"`
	Phone     *string   `json:"phone,omitempty"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ToProfileResponse converts a Profile model to a ProfileResponse DTO.
func ToProfileResponse(p *Profile) ProfileResponse {
	return ProfileResponse{
		ID:        p.ID,
		Email:     p.Email,
		FullName:  p.FullName,
		Phone:     p.Phone,
		Role:      p.Role,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}
