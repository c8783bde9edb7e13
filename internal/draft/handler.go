// File: internal/draft/handler.go
package draft

import (
	"io"
	"strconv"

	"marketplace_backend/internal/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const maxPatchBytes = 1 << 20

// Handler struct holds dependencies for draft handlers.
type Handler struct {
	service Service
	logger  *zap.Logger
}

// NewHandler creates a new draft handler.
func NewHandler(service Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes sets up the routes for the seller's current draft.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, authMW gin.HandlerFunc) {
	drafts := router.Group("/drafts/current")
	drafts.Use(authMW)
	{
		drafts.GET("", h.current)
		drafts.PATCH("", h.patch)
		drafts.DELETE("", h.clear)
		drafts.POST("/next", h.next)
		drafts.POST("/back", h.back)
		drafts.POST("/edit/:step", h.edit)
		drafts.POST("/validate", h.validate)
		drafts.POST("/flush", h.flush)
	}
}

func (h *Handler) userID(c *gin.Context) (string, bool) {
	userID := common.GetUserIDFromContext(c)
	if userID == "" {
		h.logger.Error("User ID not found in context for draft operation", zap.String("path", c.Request.URL.Path))
		common.RespondWithError(c, common.ErrUnauthorized.WithDetails("User identifier missing."))
		return "", false
	}
	return userID, true
}

func (h *Handler) current(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}
	v, err := h.service.Current(c.Request.Context(), userID)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Draft retrieved successfully.", v)
}

func (h *Handler) patch(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxPatchBytes))
	if err != nil {
		common.RespondWithError(c, common.ErrBadRequest.WithDetails("Could not read request body."))
		return
	}
	v, err := h.service.Patch(c.Request.Context(), userID, body)
	if err != nil {
		h.logger.Warn("Draft patch rejected", zap.String("userID", userID), zap.Error(err))
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Draft saved.", v)
}

func (h *Handler) next(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}
	v, errs, err := h.service.Next(c.Request.Context(), userID)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	if len(errs) > 0 {
		common.RespondWithError(c, common.NewValidationAPIError(errs))
		return
	}
	common.RespondOK(c, "Moved to the next step.", v)
}

func (h *Handler) back(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}
	v, err := h.service.Back(c.Request.Context(), userID)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Moved to the previous step.", v)
}

func (h *Handler) edit(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}
	n, err := strconv.Atoi(c.Param("step"))
	if err != nil {
		common.RespondWithError(c, common.ErrBadRequest.WithDetails("Step must be a number."))
		return
	}
	v, err := h.service.Edit(c.Request.Context(), userID, Step(n))
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Editing step.", v)
}

func (h *Handler) validate(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}
	v, errs, err := h.service.Validate(c.Request.Context(), userID)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	if errs == nil {
		errs = ValidationErrors{}
	}
	common.RespondOK(c, "Validation complete.", gin.H{"session": v, "errors": errs})
}

func (h *Handler) flush(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}
	if err := h.service.Flush(c.Request.Context(), userID); err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondNoContent(c)
}

func (h *Handler) clear(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}
	if err := h.service.Clear(c.Request.Context(), userID); err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondNoContent(c)
}
