package handlers

import (
	"log"
	"net/http"
	"strings"
	"time"

	"provdesk/internal/common"
	"provdesk/internal/models"
	"provdesk/internal/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// UsersHandlers exposes the admin user-management RPC on POST /users.
// Every action requires an admin token; the JWT middleware rejects
// anonymous calls before the role check here runs.
type UsersHandlers struct {
	approvalSvc services.ApprovalService
	activitySvc services.ActivityService
}

func NewUsersHandlers(approvalSvc services.ApprovalService, activitySvc services.ActivityService) *UsersHandlers {
	return &UsersHandlers{
		approvalSvc: approvalSvc,
		activitySvc: activitySvc,
	}
}

type usersRequest struct {
	Action string `json:"action"`

	// list filters
	Status        string `json:"status"`
	Limit         int    `json:"limit"`
	Offset        int    `json:"offset"`
	OnlyPending   bool   `json:"only_pending"`
	ActivitySince string `json:"since"`
	ActivityType  string `json:"activity_type"`
	ForUserID     string `json:"for_user_id"`

	// mutations
	UserID     string `json:"user_id"`
	Reason     string `json:"reason"`
	RequestID  string `json:"request_id"`
	Approve    *bool  `json:"approve"`
	AdminNotes string `json:"admin_notes"`
}

func (h *UsersHandlers) Dispatch(c echo.Context) error {
	if err := requireAdmin(c); err != nil {
		return err
	}

	var req usersRequest
	if err := c.Bind(&req); err != nil {
		return common.SendError(c, http.StatusBadRequest, "invalid request body")
	}

	switch strings.TrimSpace(req.Action) {
	case "list_users":
		return h.listUsers(c, &req)
	case "suspend_user":
		return h.suspendUser(c, &req)
	case "reactivate_user":
		return h.reactivateUser(c, &req)
	case "get_access_requests":
		return h.listAccessRequests(c, &req)
	case "process_access_request":
		return h.processAccessRequest(c, &req)
	case "get_activities":
		return h.getActivities(c, &req)
	default:
		return common.SendError(c, http.StatusBadRequest, "unknown action")
	}
}

func (h *UsersHandlers) listUsers(c echo.Context, req *usersRequest) error {
	users, err := h.approvalSvc.ListUsers(c.Request().Context(), req.Status, req.Limit, req.Offset)
	if err != nil {
		log.Printf("list users: %v", err)
		return common.SendError(c, http.StatusInternalServerError, "could not list users")
	}

	out := make([]*models.PublicProfile, 0, len(users))
	for _, u := range users {
		out = append(out, u.Public())
	}
	return c.JSON(http.StatusOK, echo.Map{"users": out, "count": len(out)})
}

func (h *UsersHandlers) suspendUser(c echo.Context, req *usersRequest) error {
	id, err := uuid.Parse(req.UserID)
	if err != nil {
		return common.SendError(c, http.StatusBadRequest, "invalid user_id")
	}
	user, err := h.approvalSvc.Suspend(c.Request().Context(), id, req.Reason, adminActor(c))
	if err != nil {
		return transitionError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"user": user.Public()})
}

func (h *UsersHandlers) reactivateUser(c echo.Context, req *usersRequest) error {
	id, err := uuid.Parse(req.UserID)
	if err != nil {
		return common.SendError(c, http.StatusBadRequest, "invalid user_id")
	}
	user, err := h.approvalSvc.Reactivate(c.Request().Context(), id, adminActor(c))
	if err != nil {
		return transitionError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"user": user.Public()})
}

func (h *UsersHandlers) listAccessRequests(c echo.Context, req *usersRequest) error {
	requests, err := h.approvalSvc.ListAccessRequests(c.Request().Context(), req.OnlyPending, req.Limit, req.Offset)
	if err != nil {
		log.Printf("list access requests: %v", err)
		return common.SendError(c, http.StatusInternalServerError, "could not list access requests")
	}
	return c.JSON(http.StatusOK, echo.Map{"requests": requests, "count": len(requests)})
}

func (h *UsersHandlers) processAccessRequest(c echo.Context, req *usersRequest) error {
	id, err := uuid.Parse(req.RequestID)
	if err != nil {
		return common.SendError(c, http.StatusBadRequest, "invalid request_id")
	}
	if req.Approve == nil {
		return common.SendError(c, http.StatusBadRequest, "approve is required")
	}

	processed, err := h.approvalSvc.ProcessAccessRequest(c.Request().Context(), id, *req.Approve, req.AdminNotes, adminActor(c))
	if err != nil {
		return transitionError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"request": processed})
}

func (h *UsersHandlers) getActivities(c echo.Context, req *usersRequest) error {
	filter := &models.ActivityFilter{}
	if req.ActivityType != "" {
		filter.Action = &req.ActivityType
	}
	if req.ForUserID != "" {
		id, err := uuid.Parse(req.ForUserID)
		if err != nil {
			return common.SendError(c, http.StatusBadRequest, "invalid for_user_id")
		}
		filter.UserID = &id
	}
	if req.ActivitySince != "" {
		since, err := time.Parse(time.RFC3339, req.ActivitySince)
		if err != nil {
			return common.SendError(c, http.StatusBadRequest, "since must be RFC3339")
		}
		filter.Since = &since
	}

	records, err := h.activitySvc.Query(c.Request().Context(), filter, req.Limit)
	if err != nil {
		log.Printf("query activities: %v", err)
		return common.SendError(c, http.StatusInternalServerError, "could not query activities")
	}
	return c.JSON(http.StatusOK, echo.Map{"activities": records, "count": len(records)})
}
