package handlers

import (
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"provdesk/internal/caching"
	"provdesk/internal/common"
	"provdesk/internal/models"
	"provdesk/internal/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// AuthHandlers exposes the single-endpoint auth RPC. Every request is a
// POST with an "action" discriminator; unknown actions are a 400.
type AuthHandlers struct {
	loginSvc    services.LoginService
	approvalSvc services.ApprovalService
	cacheSvc    caching.CacheService
}

func NewAuthHandlers(loginSvc services.LoginService, approvalSvc services.ApprovalService, cacheSvc caching.CacheService) *AuthHandlers {
	return &AuthHandlers{
		loginSvc:    loginSvc,
		approvalSvc: approvalSvc,
		cacheSvc:    cacheSvc,
	}
}

type authRequest struct {
	Action       string `json:"action"`
	Email        string `json:"email"`
	Password     string `json:"password"`
	Credential   string `json:"credential"`
	RefreshToken string `json:"refresh_token"`

	// request_access fields
	Name    string `json:"name"`
	Company string `json:"company"`
	Reason  string `json:"reason"`

	// admin actions
	UserID string `json:"user_id"`
}

// Dispatch routes POST /auth by action.
func (h *AuthHandlers) Dispatch(c echo.Context) error {
	var req authRequest
	if err := c.Bind(&req); err != nil {
		return common.SendError(c, http.StatusBadRequest, "invalid request body")
	}

	switch strings.TrimSpace(req.Action) {
	case "login":
		return h.login(c, &req)
	case "login-google":
		return h.loginGoogle(c, &req)
	case "login-admin", "admin_login":
		return h.loginAdmin(c, &req)
	case "refresh":
		return h.refresh(c, &req)
	case "logout":
		return h.logout(c, &req)
	case "request_access":
		return h.requestAccess(c, &req)
	case "approve_user":
		return h.approveUser(c, &req)
	case "reject_user":
		return h.rejectUser(c, &req)
	case "get_stats":
		return h.getStats(c)
	default:
		return common.SendError(c, http.StatusBadRequest, "unknown action")
	}
}

func (h *AuthHandlers) login(c echo.Context, req *authRequest) error {
	ip := common.ClientIP(c.Request())
	if limited, _ := h.cacheSvc.IsRateLimited(c.Request().Context(), "login:"+ip, 10, time.Minute); limited {
		return common.SendError(c, http.StatusTooManyRequests, "too many login attempts")
	}

	tokens, user, err := h.loginSvc.LoginWithPassword(c.Request().Context(), req.Email, req.Password, ip, c.Request().UserAgent())
	if err != nil {
		return h.loginError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"tokens": tokens, "user": user.Public()})
}

func (h *AuthHandlers) loginGoogle(c echo.Context, req *authRequest) error {
	tokens, user, err := h.loginSvc.LoginWithGoogle(c.Request().Context(), req.Credential, common.ClientIP(c.Request()), c.Request().UserAgent())
	if err != nil {
		if errors.Is(err, models.ErrPendingApproval) && user != nil {
			return common.SendNotApproved(c, user.Status)
		}
		return h.loginError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"tokens": tokens, "user": user.Public()})
}

func (h *AuthHandlers) loginAdmin(c echo.Context, req *authRequest) error {
	ip := common.ClientIP(c.Request())
	if limited, _ := h.cacheSvc.IsRateLimited(c.Request().Context(), "admin_login:"+ip, 5, 5*time.Minute); limited {
		return common.SendError(c, http.StatusTooManyRequests, "too many login attempts")
	}

	tokens, err := h.loginSvc.LoginAsAdmin(c.Request().Context(), req.Password, ip, c.Request().UserAgent())
	if err != nil {
		return h.loginError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"tokens": tokens})
}

func (h *AuthHandlers) refresh(c echo.Context, req *authRequest) error {
	if strings.TrimSpace(req.RefreshToken) == "" {
		return common.SendError(c, http.StatusBadRequest, "refresh_token is required")
	}
	tokens, err := h.loginSvc.RefreshSession(c.Request().Context(), req.RefreshToken)
	if err != nil {
		var notApproved *models.AccountNotApprovedError
		if errors.As(err, &notApproved) {
			return common.SendNotApproved(c, notApproved.Status)
		}
		return common.SendError(c, http.StatusUnauthorized, "session expired")
	}
	return c.JSON(http.StatusOK, echo.Map{"tokens": tokens})
}

func (h *AuthHandlers) logout(c echo.Context, req *authRequest) error {
	if err := h.loginSvc.Logout(c.Request().Context(), bearerToken(c), req.RefreshToken, common.ClientIP(c.Request())); err != nil {
		log.Printf("logout: %v", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "logged out"})
}

func (h *AuthHandlers) requestAccess(c echo.Context, req *authRequest) error {
	ip := common.ClientIP(c.Request())
	if limited, _ := h.cacheSvc.IsRateLimited(c.Request().Context(), "request_access:"+ip, 3, time.Hour); limited {
		return common.SendError(c, http.StatusTooManyRequests, "too many requests")
	}

	request, err := h.approvalSvc.RequestAccess(c.Request().Context(), req.Name, req.Email, req.Company, req.Reason, ip)
	if err != nil {
		var verr *models.ValidationError
		if errors.As(err, &verr) {
			return common.SendError(c, http.StatusBadRequest, verr.Message)
		}
		log.Printf("request access: %v", err)
		return common.SendError(c, http.StatusInternalServerError, "could not submit request")
	}
	return c.JSON(http.StatusCreated, echo.Map{"request_id": request.ID, "message": "request received"})
}

func (h *AuthHandlers) approveUser(c echo.Context, req *authRequest) error {
	if err := requireAdmin(c); err != nil {
		return err
	}
	id, err := uuid.Parse(req.UserID)
	if err != nil {
		return common.SendError(c, http.StatusBadRequest, "invalid user_id")
	}
	user, err := h.approvalSvc.Approve(c.Request().Context(), id, adminActor(c))
	if err != nil {
		return transitionError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"user": user.Public()})
}

func (h *AuthHandlers) rejectUser(c echo.Context, req *authRequest) error {
	if err := requireAdmin(c); err != nil {
		return err
	}
	id, err := uuid.Parse(req.UserID)
	if err != nil {
		return common.SendError(c, http.StatusBadRequest, "invalid user_id")
	}
	user, err := h.approvalSvc.Reject(c.Request().Context(), id, req.Reason, adminActor(c))
	if err != nil {
		return transitionError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"user": user.Public()})
}

func (h *AuthHandlers) getStats(c echo.Context) error {
	if err := requireAdmin(c); err != nil {
		return err
	}
	stats, err := h.approvalSvc.Stats(c.Request().Context())
	if err != nil {
		log.Printf("stats: %v", err)
		return common.SendError(c, http.StatusInternalServerError, "could not load stats")
	}
	return c.JSON(http.StatusOK, stats)
}

func (h *AuthHandlers) loginError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, models.ErrInvalidCredentials), errors.Is(err, models.ErrUserNotFound):
		return common.SendError(c, http.StatusUnauthorized, "invalid credentials")
	default:
		var notApproved *models.AccountNotApprovedError
		if errors.As(err, &notApproved) {
			return common.SendNotApproved(c, notApproved.Status)
		}
		var verr *models.ValidationError
		if errors.As(err, &verr) {
			return common.SendError(c, http.StatusBadRequest, verr.Message)
		}
		log.Printf("login: %v", err)
		return common.SendError(c, http.StatusInternalServerError, "login failed")
	}
}

// transitionError maps lifecycle errors to the wire statuses shared by the
// auth and users RPCs.
func transitionError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, models.ErrUserNotFound):
		return common.SendError(c, http.StatusNotFound, "user not found")
	case errors.Is(err, models.ErrInvalidTransition):
		return common.SendError(c, http.StatusConflict, "transition not allowed from current status")
	case errors.Is(err, models.ErrAlreadyProcessed):
		return common.SendError(c, http.StatusConflict, "request already processed")
	default:
		var verr *models.ValidationError
		if errors.As(err, &verr) {
			return common.SendError(c, http.StatusBadRequest, verr.Message)
		}
		log.Printf("admin action: %v", err)
		return common.SendError(c, http.StatusInternalServerError, "operation failed")
	}
}

// requireAdmin gates admin-only actions on the role claim set by the JWT
// middleware.
func requireAdmin(c echo.Context) error {
	role, ok := common.GetRoleFromContext(c.Request().Context())
	if !ok || role != models.RoleAdmin {
		return common.SendError(c, http.StatusForbidden, "admin access required")
	}
	return nil
}

// adminActor labels ledger entries. Admin tokens carry the nil UUID, so the
// label falls back to the static principal name.
func adminActor(c echo.Context) string {
	if id, ok := common.GetUserIDFromContext(c.Request().Context()); ok && id != uuid.Nil {
		return id.String()
	}
	return "admin"
}

func bearerToken(c echo.Context) string {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}
