package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"log"
	"strings"

	"provdesk/internal/backend"
	"provdesk/internal/common"
	"provdesk/internal/models"

	"github.com/google/uuid"
)

// LoginService orchestrates the three sign-in paths against whichever
// backend adapter is active. Input validation always runs before any
// backend call.
type LoginService interface {
	LoginWithPassword(ctx context.Context, email, password, ip, userAgent string) (*models.TokenResponse, *models.User, error)
	LoginWithGoogle(ctx context.Context, assertion, ip, userAgent string) (*models.TokenResponse, *models.User, error)
	LoginAsAdmin(ctx context.Context, password, ip, userAgent string) (*models.TokenResponse, error)
	RefreshSession(ctx context.Context, refreshToken string) (*models.TokenResponse, error)
	Logout(ctx context.Context, accessToken, refreshToken, ip string) error
}

type loginService struct {
	adapter       backend.Adapter
	authSvc       AuthService
	approvalSvc   ApprovalService
	activitySvc   ActivityService
	verifier      GoogleVerifier
	adminPassword string
}

func NewLoginService(adapter backend.Adapter, authSvc AuthService, approvalSvc ApprovalService, activitySvc ActivityService, verifier GoogleVerifier, adminPassword string) LoginService {
	return &loginService{
		adapter:       adapter,
		authSvc:       authSvc,
		approvalSvc:   approvalSvc,
		activitySvc:   activitySvc,
		verifier:      verifier,
		adminPassword: adminPassword,
	}
}

func (s *loginService) LoginWithPassword(ctx context.Context, email, password, ip, userAgent string) (*models.TokenResponse, *models.User, error) {
	if err := common.ValidateEmail(email); err != nil {
		return nil, nil, models.NewValidationError("email", err.Error())
	}
	if len(password) < 6 {
		return nil, nil, models.NewValidationError("password", "password must be at least 6 characters")
	}

	user, err := s.adapter.Authenticate(ctx, backend.Credentials{Email: email, Password: password})
	if err != nil {
		// an unknown email is indistinguishable from a wrong password
		if errors.Is(err, models.ErrUserNotFound) {
			return nil, nil, models.ErrInvalidCredentials
		}
		return nil, nil, err
	}

	return s.issueFor(ctx, user, models.ActionLogin, ip, userAgent)
}

// LoginWithGoogle verifies the ID-token assertion, then either signs the
// matching account in or registers it as pending. First-time OAuth users
// always get ErrPendingApproval back, never a token, unless the demo
// backend auto-approved them.
func (s *loginService) LoginWithGoogle(ctx context.Context, assertion, ip, userAgent string) (*models.TokenResponse, *models.User, error) {
	if strings.TrimSpace(assertion) == "" {
		return nil, nil, models.NewValidationError("assertion", "google credential is required")
	}

	claim, err := s.verifier.Verify(ctx, assertion)
	if err != nil {
		return nil, nil, models.ErrInvalidCredentials
	}

	user, err := s.adapter.Authenticate(ctx, backend.Credentials{Email: claim.Email, GoogleID: claim.Subject})
	if errors.Is(err, models.ErrUserNotFound) {
		created, cerr := s.approvalSvc.CreateAccount(ctx, backend.Profile{
			Email:    claim.Email,
			Name:     claim.Name,
			PhotoURL: claim.Picture,
			GoogleID: claim.Subject,
		})
		if cerr != nil {
			return nil, nil, cerr
		}
		if created.Status != models.StatusApproved {
			return nil, created, models.ErrPendingApproval
		}
		user, err = created, nil
	}
	if err != nil {
		return nil, nil, err
	}

	return s.issueFor(ctx, user, models.ActionLogin, ip, userAgent)
}

// LoginAsAdmin checks the master password. The admin is not a row in the
// user store; the principal exists only in configuration, so its token
// carries the nil UUID as subject.
func (s *loginService) LoginAsAdmin(ctx context.Context, password, ip, userAgent string) (*models.TokenResponse, error) {
	if s.adminPassword == "" {
		return nil, models.ErrBackendUnavailable
	}
	if subtle.ConstantTimeCompare([]byte(password), []byte(s.adminPassword)) != 1 {
		return nil, models.ErrInvalidCredentials
	}

	tokens, err := s.authSvc.GenerateTokens(ctx, uuid.Nil, models.RoleAdmin)
	if err != nil {
		return nil, err
	}

	s.appendActivity(nil, models.ActionAdminLogin, ip, userAgent)
	return tokens, nil
}

// RefreshSession rotates the refresh token and re-checks the account's
// standing, so a user suspended or rejected mid-session cannot keep the
// session alive through refresh alone.
func (s *loginService) RefreshSession(ctx context.Context, refreshToken string) (*models.TokenResponse, error) {
	tokens, err := s.authSvc.RefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	// the admin principal has no user row to check
	if tokens.Role == models.RoleAdmin {
		return tokens, nil
	}

	userID, err := uuid.Parse(tokens.UserID)
	if err != nil {
		return nil, models.ErrSessionExpired
	}
	status, err := s.adapter.FetchUserStatus(ctx, userID)
	if err != nil {
		return nil, models.ErrSessionExpired
	}
	if status != models.StatusApproved {
		refreshType := "refresh_token"
		if err := s.authSvc.RevokeToken(ctx, tokens.RefreshToken, &refreshType); err != nil {
			log.Printf("revoke refresh token for %s account: %v", status, err)
		}
		return nil, &models.AccountNotApprovedError{Status: status}
	}
	return tokens, nil
}

// Logout blacklists the access token and drops the refresh token. Both
// revocations are best-effort; the logout record is always appended.
func (s *loginService) Logout(ctx context.Context, accessToken, refreshToken, ip string) error {
	s.appendActivity(nil, models.ActionLogout, ip, "")

	if refreshToken != "" {
		refreshType := "refresh_token"
		if err := s.authSvc.RevokeToken(ctx, refreshToken, &refreshType); err != nil {
			log.Printf("revoke refresh token: %v", err)
		}
	}
	if accessToken == "" {
		return nil
	}
	return s.authSvc.RevokeToken(ctx, accessToken, nil)
}

func (s *loginService) issueFor(ctx context.Context, user *models.User, action, ip, userAgent string) (*models.TokenResponse, *models.User, error) {
	tokens, err := s.authSvc.GenerateTokens(ctx, user.ID, models.RoleUser)
	if err != nil {
		return nil, nil, err
	}

	// last-login is informational, a failed touch must not block sign-in
	if err := s.adapter.TouchLastLogin(ctx, user.ID); err != nil {
		log.Printf("touch last login for %s: %v", user.ID, err)
	}

	id := user.ID
	s.appendActivity(&id, action, ip, userAgent)
	return tokens, user, nil
}

func (s *loginService) appendActivity(userID *uuid.UUID, action, ip, userAgent string) {
	rec := &models.ActivityRecord{UserID: userID, Action: action}
	if ip != "" {
		rec.IP = &ip
	}
	if userAgent != "" {
		rec.UserAgent = &userAgent
	}
	s.activitySvc.Append(rec)
}
