package handlers

import (
	"log"
	"net/http"
	"strconv"

	"provdesk/internal/common"
	"provdesk/internal/services"

	"github.com/labstack/echo/v4"
)

// NotificationHandlers serves the admin notification feed.
type NotificationHandlers struct {
	notifySvc services.NotificationService
}

func NewNotificationHandlers(notifySvc services.NotificationService) *NotificationHandlers {
	return &NotificationHandlers{notifySvc: notifySvc}
}

// List returns notifications, unread-only unless ?all=true.
func (h *NotificationHandlers) List(c echo.Context) error {
	if err := requireAdmin(c); err != nil {
		return err
	}

	onlyUnread := c.QueryParam("all") != "true"
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	notifications, err := h.notifySvc.List(c.Request().Context(), onlyUnread, limit)
	if err != nil {
		log.Printf("list notifications: %v", err)
		return common.SendError(c, http.StatusInternalServerError, "could not list notifications")
	}
	return c.JSON(http.StatusOK, echo.Map{"notifications": notifications, "count": len(notifications)})
}

// MarkAllRead marks everything unread up to now. New notifications arriving
// during the call stay unread.
func (h *NotificationHandlers) MarkAllRead(c echo.Context) error {
	if err := requireAdmin(c); err != nil {
		return err
	}

	n, err := h.notifySvc.MarkAllRead(c.Request().Context())
	if err != nil {
		log.Printf("mark notifications read: %v", err)
		return common.SendError(c, http.StatusInternalServerError, "could not mark notifications read")
	}
	return c.JSON(http.StatusOK, echo.Map{"marked": n})
}
