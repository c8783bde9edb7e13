// File: internal/user/handler.go
package user

import (
	"errors"

	"marketplace_backend/internal/common"
	"marketplace_backend/internal/shared"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// Handler struct holds dependencies for profile handlers.
type Handler struct {
	service Service
	logger  *zap.Logger
}

// NewHandler creates a new profile handler.
func NewHandler(service Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes sets up the routes for the current seller's profile.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, authMW gin.HandlerFunc) {
	profileGroup := router.Group("/profile")
	profileGroup.Use(authMW)
	{
		profileGroup.GET("", h.getProfile)
		profileGroup.PUT("", h.updateProfile)
	}
}

func (h *Handler) getProfile(c *gin.Context) {
	session, ok := shared.SessionFromContext(c.Request.Context())
	if !ok {
		h.logger.Error("Session not found in context for /profile", zap.String("path", c.Request.URL.Path))
		common.RespondWithError(c, common.ErrUnauthorized.WithDetails("User identifier missing."))
		return
	}
	if err := h.service.EnsureProfile(c.Request.Context(), session); err != nil {
		common.RespondWithError(c, err)
		return
	}
	p, err := h.service.GetProfile(c.Request.Context(), session.UserID)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Profile retrieved successfully.", ToProfileResponse(p))
}

func (h *Handler) updateProfile(c *gin.Context) {
	session, ok := shared.SessionFromContext(c.Request.Context())
	if !ok {
		common.RespondWithError(c, common.ErrUnauthorized.WithDetails("User identifier missing."))
		return
	}
	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Profile update: Invalid request body", zap.Error(err))
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			common.RespondWithError(c, common.NewValidationAPIError(common.FormatValidationErrors(ve)))
			return
		}
		common.RespondWithError(c, common.ErrBadRequest.WithDetails(err.Error()))
		return
	}
	if err := h.service.EnsureProfile(c.Request.Context(), session); err != nil {
		common.RespondWithError(c, err)
		return
	}
	p, err := h.service.UpdateProfile(c.Request.Context(), session.UserID, req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Profile updated successfully.", ToProfileResponse(p))
}
