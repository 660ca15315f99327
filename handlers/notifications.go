package handlers

import (
	"net/http"

	"homezy/services/notification"
	"homezy/utils"

	"github.com/gin-gonic/gin"
)

// NotificationsHandler serves a user's notification feed.
type NotificationsHandler struct {
	Service notification.NotificationService
}

// NewNotificationsHandler creates a NotificationsHandler.
func NewNotificationsHandler(service notification.NotificationService) *NotificationsHandler {
	return &NotificationsHandler{Service: service}
}

// List returns the requester's notifications, newest first.
func (h *NotificationsHandler) List(c *gin.Context) {
	userID := c.GetString("userID")
	unreadOnly := c.Query("unread") == "true"

	notifications, err := h.Service.ListForUser(c.Request.Context(), userID, unreadOnly)
	if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "failed to list notifications", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": notifications})
}

// MarkRead flags one notification as read.
func (h *NotificationsHandler) MarkRead(c *gin.Context) {
	userID := c.GetString("userID")
	if err := h.Service.MarkRead(c.Request.Context(), userID, c.Param("notificationID")); err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "failed to mark notification read", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Notification marked as read"})
}
