// File: internal/notification/handler.go
package notification

import (
	"net/http"

	"marketplace_backend/internal/common"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Handler struct {
	service Service
	logger  *zap.Logger
}

func NewHandler(service Service, logger *zap.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes sets up the routes for notification operations.
// All routes in this group should be authenticated.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("", h.getNotifications)
	router.GET("/unread-count", h.getUnreadCount)
	router.POST("/:notification_id/mark-read", h.markNotificationAsRead)
	router.POST("/mark-all-read", h.markAllNotificationsAsRead)
}

func (h *Handler) getNotifications(c *gin.Context) {
	userID := common.GetUserIDFromContext(c)
	if userID == "" {
		common.RespondWithError(c, common.ErrUnauthorized.WithDetails("User ID not found in token."))
		return
	}

	page, pageSize := common.GetPaginationParams(c)
	filter := ListFilter{UnreadOnly: c.Query("unread") == "true"}
	if raw := c.Query("listing_id"); raw != "" {
		listingID, err := uuid.Parse(raw)
		if err != nil {
			common.RespondWithError(c, common.ErrBadRequest.WithDetails("Invalid listing ID format."))
			return
		}
		filter.ListingID = &listingID
	}

	notifications, pagination, err := h.service.GetNotificationsForUser(c.Request.Context(), userID, filter, page, pageSize)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondPaginated(c, "Notifications retrieved successfully.", notifications, pagination)
}

func (h *Handler) getUnreadCount(c *gin.Context) {
	userID := common.GetUserIDFromContext(c)
	if userID == "" {
		common.RespondWithError(c, common.ErrUnauthorized.WithDetails("User ID not found in token."))
		return
	}
	count, err := h.service.CountUnread(c.Request.Context(), userID)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Unread notifications counted.", gin.H{"unread": count})
}

func (h *Handler) markNotificationAsRead(c *gin.Context) {
	userID := common.GetUserIDFromContext(c)
	if userID == "" {
		common.RespondWithError(c, common.ErrUnauthorized.WithDetails("User ID not found in token."))
		return
	}

	notificationID, err := uuid.Parse(c.Param("notification_id"))
	if err != nil {
		common.RespondWithError(c, common.ErrBadRequest.WithDetails("Invalid notification ID format."))
		return
	}

	if err := h.service.MarkNotificationAsRead(c.Request.Context(), notificationID, userID); err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondSuccess(c, http.StatusOK, "Notification marked as read successfully.", nil)
}

func (h *Handler) markAllNotificationsAsRead(c *gin.Context) {
	userID := common.GetUserIDFromContext(c)
	if userID == "" {
		common.RespondWithError(c, common.ErrUnauthorized.WithDetails("User ID not found in token."))
		return
	}

	count, err := h.service.MarkAllUserNotificationsAsRead(c.Request.Context(), userID)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "All notifications marked as read successfully.", gin.H{"updated": count})
}
