package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"provdesk/internal/common"
	"provdesk/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/sync/singleflight"
)

const (
	// adminSessionWindow is the wall-clock validity of an admin login,
	// measured from the recorded login time rather than the token exp.
	adminSessionWindow = 24 * time.Hour

	// expiryLeeway treats a token expiring within this margin as already
	// expired, so a request never leaves with a token that dies in flight.
	// Kept under 10s: a token surviving 10s of clock skew must still count
	// as valid without forcing a refresh.
	expiryLeeway = 5 * time.Second

	defaultTimeout = 10 * time.Second
)

// Manager is the client-side session: it logs in against the auth RPC,
// persists the token material, refreshes transparently and decorates
// outgoing requests. Safe for concurrent use.
type Manager struct {
	baseURL string
	client  *http.Client
	store   TokenStore
	sf      singleflight.Group
	now     func() time.Time
}

func NewManager(baseURL string, store TokenStore) *Manager {
	return &Manager{
		baseURL: baseURL,
		client:  &http.Client{Timeout: defaultTimeout},
		store:   store,
		now:     time.Now,
	}
}

type tokenPayload struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	Role         string `json:"role"`
	UserID       string `json:"user_id"`
}

type authResponse struct {
	Tokens *tokenPayload   `json:"tokens"`
	User   json.RawMessage `json:"user"`
	Error  string          `json:"error"`
	Status string          `json:"status"`
}

// LoginWithPassword signs in with email and password. Validation failures
// surface before any network traffic.
func (m *Manager) LoginWithPassword(ctx context.Context, email, password string) error {
	if err := common.ValidateEmail(email); err != nil {
		return models.NewValidationError("email", err.Error())
	}
	if len(password) < 6 {
		return models.NewValidationError("password", "password must be at least 6 characters")
	}

	resp, err := m.postAuth(ctx, map[string]string{
		"action":   "login",
		"email":    email,
		"password": password,
	})
	if err != nil {
		return err
	}
	return m.storeLogin(resp, false)
}

// LoginWithGoogle exchanges a Google ID-token assertion. A freshly
// registered account comes back as ErrPendingApproval.
func (m *Manager) LoginWithGoogle(ctx context.Context, credential string) error {
	if credential == "" {
		return models.NewValidationError("credential", "google credential is required")
	}

	resp, err := m.postAuth(ctx, map[string]string{
		"action":     "login-google",
		"credential": credential,
	})
	if err != nil {
		return err
	}
	return m.storeLogin(resp, false)
}

// LoginAsAdmin checks the master password and records the wall-clock login
// time that bounds the admin session.
func (m *Manager) LoginAsAdmin(ctx context.Context, masterPassword string) error {
	if masterPassword == "" {
		return models.NewValidationError("password", "password is required")
	}

	resp, err := m.postAuth(ctx, map[string]string{
		"action":   "login-admin",
		"password": masterPassword,
	})
	if err != nil {
		return err
	}
	return m.storeLogin(resp, true)
}

// AdminSessionValid reports whether the recorded admin login is still
// inside the 24h window. A missing or unparseable record is invalid.
func (m *Manager) AdminSessionValid() bool {
	raw, ok := m.store.Get(KeyAdminLoginTime)
	if !ok {
		return false
	}
	loginTime, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return false
	}
	return m.now().Sub(loginTime) < adminSessionWindow
}

// Logout tells the server to revoke the tokens, then clears local state.
// The local clear happens even when the server call fails.
func (m *Manager) Logout(ctx context.Context) error {
	access, _ := m.store.Get(KeyAccessToken)
	refresh, _ := m.store.Get(KeyRefreshToken)

	if access != "" || refresh != "" {
		payload := map[string]string{"action": "logout", "refresh_token": refresh}
		req, err := m.newAuthRequest(ctx, payload)
		if err == nil {
			if access != "" {
				req.Header.Set("Authorization", "Bearer "+access)
			}
			if resp, derr := m.client.Do(req); derr == nil {
				resp.Body.Close()
			}
		}
	}

	return m.store.Clear()
}

// EnsureAuthenticated returns an access token that is valid for at least
// the leeway window, refreshing at most once. No network traffic happens
// while the stored token is still good.
func (m *Manager) EnsureAuthenticated(ctx context.Context) (string, error) {
	access, ok := m.store.Get(KeyAccessToken)
	if !ok {
		return "", models.ErrSessionExpired
	}
	if !m.needsRefresh(access) {
		return access, nil
	}
	return m.Refresh(ctx)
}

// Refresh exchanges the stored refresh token for a new pair. Concurrent
// callers share a single exchange. Any refresh failure other than a
// network fault ends the session.
func (m *Manager) Refresh(ctx context.Context) (string, error) {
	v, err, _ := m.sf.Do("refresh", func() (interface{}, error) {
		return m.doRefresh(ctx)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (m *Manager) doRefresh(ctx context.Context) (string, error) {
	refresh, ok := m.store.Get(KeyRefreshToken)
	if !ok {
		m.store.Clear()
		return "", models.ErrSessionExpired
	}

	resp, err := m.postAuth(ctx, map[string]string{
		"action":        "refresh",
		"refresh_token": refresh,
	})
	if err != nil {
		if errors.Is(err, models.ErrNetwork) {
			return "", err
		}
		m.store.Clear()
		return "", models.ErrSessionExpired
	}
	if resp.Tokens == nil {
		m.store.Clear()
		return "", models.ErrSessionExpired
	}

	if err := m.store.Set(KeyAccessToken, resp.Tokens.AccessToken); err != nil {
		return "", err
	}
	if err := m.store.Set(KeyRefreshToken, resp.Tokens.RefreshToken); err != nil {
		return "", err
	}
	return resp.Tokens.AccessToken, nil
}

// AuthenticatedDo performs req with a bearer token, retrying exactly once
// after a 401 with a freshly refreshed token. Requests with a body must be
// built with a GetBody (http.NewRequest does this for common body types).
func (m *Manager) AuthenticatedDo(req *http.Request) (*http.Response, error) {
	token, err := m.EnsureAuthenticated(req.Context())
	if err != nil {
		return nil, err
	}

	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := m.client.Do(req)
	if err != nil {
		return nil, wireError(err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}
	resp.Body.Close()

	token, err = m.Refresh(req.Context())
	if err != nil {
		return nil, err
	}

	retry := req.Clone(req.Context())
	if req.GetBody != nil {
		body, berr := req.GetBody()
		if berr != nil {
			return nil, berr
		}
		retry.Body = body
	}
	retry.Header.Set("Authorization", "Bearer "+token)

	resp, err = m.client.Do(retry)
	if err != nil {
		return nil, wireError(err)
	}
	return resp, nil
}

// CurrentUser returns the cached profile snapshot from the last login.
func (m *Manager) CurrentUser() (json.RawMessage, bool) {
	raw, ok := m.store.Get(KeyUser)
	if !ok {
		return nil, false
	}
	return json.RawMessage(raw), true
}

// needsRefresh inspects the exp claim locally, without verifying the
// signature; verification is the server's job.
func (m *Manager) needsRefresh(access string) bool {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(access, claims); err != nil {
		return true
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return true
	}
	return !exp.Time.After(m.now().Add(expiryLeeway))
}

func (m *Manager) storeLogin(resp *authResponse, admin bool) error {
	if resp.Tokens == nil {
		return fmt.Errorf("malformed login response")
	}
	if err := m.store.Set(KeyAccessToken, resp.Tokens.AccessToken); err != nil {
		return err
	}
	if err := m.store.Set(KeyRefreshToken, resp.Tokens.RefreshToken); err != nil {
		return err
	}
	if len(resp.User) > 0 {
		if err := m.store.Set(KeyUser, string(resp.User)); err != nil {
			return err
		}
	}
	if admin {
		return m.store.Set(KeyAdminLoginTime, m.now().Format(time.RFC3339))
	}
	return nil
}

func (m *Manager) newAuthRequest(ctx context.Context, payload any) (*http.Request, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/auth", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func (m *Manager) postAuth(ctx context.Context, payload any) (*authResponse, error) {
	req, err := m.newAuthRequest(ctx, payload)
	if err != nil {
		return nil, err
	}

	httpResp, err := m.client.Do(req)
	if err != nil {
		return nil, wireError(err)
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(httpResp.Body, 1<<20))
	if err != nil {
		return nil, wireError(err)
	}

	var resp authResponse
	if err := json.Unmarshal(raw, &resp); err != nil && httpResp.StatusCode < 300 {
		return nil, fmt.Errorf("malformed response: %w", err)
	}

	switch {
	case httpResp.StatusCode < 300:
		return &resp, nil
	case httpResp.StatusCode == http.StatusUnauthorized:
		return nil, models.ErrInvalidCredentials
	case httpResp.StatusCode == http.StatusForbidden:
		if resp.Status != "" {
			return nil, &models.AccountNotApprovedError{Status: resp.Status}
		}
		return nil, models.ErrPendingApproval
	case httpResp.StatusCode == http.StatusBadRequest:
		return nil, models.NewValidationError("request", resp.Error)
	case httpResp.StatusCode >= 500:
		return nil, models.ErrBackendUnavailable
	default:
		return nil, fmt.Errorf("unexpected status %d: %s", httpResp.StatusCode, resp.Error)
	}
}

// wireError folds transport faults into the network sentinel so callers
// can retry without inspecting url.Error internals.
func wireError(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", models.ErrNetwork, err)
}
