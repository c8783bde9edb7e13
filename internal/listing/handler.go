// File: internal/listing/handler.go
package listing

import (
	"errors"
	"strconv"

	"marketplace_backend/internal/common"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Handler struct holds dependencies for listing handlers.
type Handler struct {
	service Service
	logger  *zap.Logger
}

// NewHandler creates a new listing handler.
func NewHandler(service Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes sets up the routes for listing operations. Submission
// (POST /listings) is registered by the submission handler.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, authMW gin.HandlerFunc, adminRoleMW gin.HandlerFunc) {
	listingGroup := router.Group("/listings")
	{
		listingGroup.GET("/slug/:slug", h.getBySlug)

		authedListingGroup := listingGroup.Group("")
		authedListingGroup.Use(authMW)
		{
			authedListingGroup.GET("/mine", h.getMyListings)
			authedListingGroup.GET("/:id", h.getOwnListing)
			authedListingGroup.POST("/:id/sold", h.markSold)
		}
	}

	adminGroup := router.Group("/admin/listings")
	adminGroup.Use(authMW)
	adminGroup.Use(adminRoleMW)
	{
		adminGroup.GET("/pending", h.listPending)
		adminGroup.POST("/:id/approve", h.approve)
		adminGroup.POST("/:id/reject", h.reject)
	}
}

func parseListingID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.RespondWithError(c, common.ErrBadRequest.WithDetails("Invalid listing ID format."))
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) requireUser(c *gin.Context) (string, bool) {
	userID := common.GetUserIDFromContext(c)
	if userID == "" {
		h.logger.Error("User ID not found in context for listing operation", zap.String("path", c.Request.URL.Path))
		common.RespondWithError(c, common.ErrUnauthorized.WithDetails("User identifier missing."))
		return "", false
	}
	return userID, true
}

func (h *Handler) getBySlug(c *gin.Context) {
	l, err := h.service.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Listing retrieved successfully.", ToListingResponse(l, false))
}

func (h *Handler) getMyListings(c *gin.Context) {
	userID, ok := h.requireUser(c)
	if !ok {
		return
	}
	activeOnly, _ := strconv.ParseBool(c.DefaultQuery("active", "false"))
	page, pageSize := common.GetPaginationParams(c)

	listings, pagination, err := h.service.GetMyListings(c.Request.Context(), userID, activeOnly, page, pageSize)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondPaginated(c, "Your listings retrieved successfully.", ToListingResponses(listings, false), pagination)
}

func (h *Handler) getOwnListing(c *gin.Context) {
	userID, ok := h.requireUser(c)
	if !ok {
		return
	}
	id, ok := parseListingID(c)
	if !ok {
		return
	}
	l, err := h.service.GetForOwner(c.Request.Context(), id, userID)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Listing retrieved successfully.", ToListingResponse(l, true))
}

func (h *Handler) markSold(c *gin.Context) {
	userID, ok := h.requireUser(c)
	if !ok {
		return
	}
	id, ok := parseListingID(c)
	if !ok {
		return
	}
	var req MarkSoldRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.respondBindError(c, err)
			return
		}
	}
	l, err := h.service.MarkSold(c.Request.Context(), id, userID, req.SoldPrice, req.ClosedAt)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Listing marked as sold.", ToListingResponse(l, false))
}

func (h *Handler) listPending(c *gin.Context) {
	page, pageSize := common.GetPaginationParams(c)
	listings, pagination, err := h.service.ListPending(c.Request.Context(), page, pageSize)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondPaginated(c, "Pending listings retrieved successfully.", ToListingResponses(listings, false), pagination)
}

func (h *Handler) approve(c *gin.Context) {
	id, ok := parseListingID(c)
	if !ok {
		return
	}
	l, err := h.service.Approve(c.Request.Context(), id)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Listing approved.", ToListingResponse(l, false))
}

func (h *Handler) reject(c *gin.Context) {
	id, ok := parseListingID(c)
	if !ok {
		return
	}
	var req RejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondBindError(c, err)
		return
	}
	l, err := h.service.Reject(c.Request.Context(), id, req.Reason)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Listing rejected.", ToListingResponse(l, false))
}

func (h *Handler) respondBindError(c *gin.Context, err error) {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		common.RespondWithError(c, common.NewValidationAPIError(common.FormatValidationErrors(ve)))
		return
	}
	common.RespondWithError(c, common.ErrBadRequest.WithDetails("Invalid request payload: "+err.Error()))
}
