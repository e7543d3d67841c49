package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"provdesk/internal/backend"
	"provdesk/internal/caching"
	"provdesk/internal/common"
	"provdesk/internal/models"
	"provdesk/internal/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCache struct {
	mu   sync.Mutex
	data map[string]string
}

func newStubCache() caching.CacheService {
	return &stubCache{data: map[string]string{}}
}

func (s *stubCache) SetString(ctx context.Context, k, v string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[k] = v
	return nil
}

func (s *stubCache) GetString(ctx context.Context, k string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data[k], nil
}

func (s *stubCache) Delete(ctx context.Context, k string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, k)
	return nil
}

func (s *stubCache) SetJSON(ctx context.Context, k string, v interface{}, ttl time.Duration) error {
	return nil
}

func (s *stubCache) GetJSON(ctx context.Context, k string, dest interface{}) (bool, error) {
	return false, nil
}

func (s *stubCache) IsRateLimited(ctx context.Context, k string, limit int, window time.Duration) (bool, error) {
	return false, nil
}

func (s *stubCache) Ping(ctx context.Context) error { return nil }

type authTestEnv struct {
	handlers    *AuthHandlers
	adapter     backend.Adapter
	approvalSvc services.ApprovalService
	activitySvc services.ActivityService
}

func newAuthTestEnv(t *testing.T) *authTestEnv {
	t.Helper()

	adapter := backend.NewLocalAdapter(false)
	cache := newStubCache()
	authSvc := services.NewAuthService(cache, "test-secret", 15*time.Minute, time.Hour, 24*time.Hour)
	activitySvc := services.NewActivityService(adapter.Store().Activities, nil, "")
	t.Cleanup(activitySvc.Close)
	notifySvc := services.NewNotificationService(adapter.Store().Notifications)
	approvalSvc := services.NewApprovalService(adapter, activitySvc, notifySvc, cache)
	loginSvc := services.NewLoginService(adapter, authSvc, approvalSvc, activitySvc, services.NewInsecureGoogleVerifier(), "master-pass")

	return &authTestEnv{
		handlers:    NewAuthHandlers(loginSvc, approvalSvc, cache),
		adapter:     adapter,
		approvalSvc: approvalSvc,
		activitySvc: activitySvc,
	}
}

func (env *authTestEnv) do(t *testing.T, body string, asAdmin bool) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/auth", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if asAdmin {
		ctx := context.WithValue(req.Context(), common.UserIDKey, uuid.Nil)
		ctx = context.WithValue(ctx, common.RoleKey, models.RoleAdmin)
		req = req.WithContext(ctx)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	require.NoError(t, env.handlers.Dispatch(c))
	return rec
}

func TestDispatch_UnknownAction(t *testing.T) {
	env := newAuthTestEnv(t)
	rec := env.do(t, `{"action":"self_approve"}`, false)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "unknown action")
}

func TestDispatch_AdminLoginWrongPassword(t *testing.T) {
	env := newAuthTestEnv(t)
	rec := env.do(t, `{"action":"login-admin","password":"wrong"}`, false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDispatch_AdminLoginSuccessAndAlias(t *testing.T) {
	env := newAuthTestEnv(t)

	for _, action := range []string{"login-admin", "admin_login"} {
		rec := env.do(t, `{"action":"`+action+`","password":"master-pass"}`, false)
		require.Equal(t, http.StatusOK, rec.Code, action)

		var body struct {
			Tokens *models.TokenResponse `json:"tokens"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.NotNil(t, body.Tokens)
		assert.Equal(t, models.RoleAdmin, body.Tokens.Role)
		assert.NotEmpty(t, body.Tokens.AccessToken)
	}
}

func TestDispatch_LoginUnknownEmail(t *testing.T) {
	env := newAuthTestEnv(t)
	rec := env.do(t, `{"action":"login","email":"nobody@isp.example","password":"secret123"}`, false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid credentials")
}

func TestDispatch_LoginPendingAccountReturns403WithStatus(t *testing.T) {
	env := newAuthTestEnv(t)
	_, err := env.approvalSvc.CreateAccount(context.Background(), backend.Profile{
		Email:    "maria@isp.example",
		Name:     "Maria Silva",
		Password: "secret123",
	})
	require.NoError(t, err)

	rec := env.do(t, `{"action":"login","email":"maria@isp.example","password":"secret123"}`, false)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	var body common.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, models.StatusPending, body.Status)
}

func TestDispatch_LoginValidationError(t *testing.T) {
	env := newAuthTestEnv(t)
	rec := env.do(t, `{"action":"login","email":"not-an-email","password":"secret123"}`, false)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDispatch_RequestAccess(t *testing.T) {
	env := newAuthTestEnv(t)
	rec := env.do(t, `{"action":"request_access","name":"Maria Silva","email":"maria@isp.example","company":"ISP Norte","reason":"dashboard access"}`, false)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), "request_id")
}

func TestDispatch_ApproveUserRequiresAdmin(t *testing.T) {
	env := newAuthTestEnv(t)
	user, err := env.approvalSvc.CreateAccount(context.Background(), backend.Profile{
		Email:    "maria@isp.example",
		Password: "secret123",
	})
	require.NoError(t, err)

	rec := env.do(t, `{"action":"approve_user","user_id":"`+user.ID.String()+`"}`, false)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, `{"action":"approve_user","user_id":"`+user.ID.String()+`"}`, true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), models.StatusApproved)
}

func TestDispatch_RejectTwiceConflicts(t *testing.T) {
	env := newAuthTestEnv(t)
	user, err := env.approvalSvc.CreateAccount(context.Background(), backend.Profile{
		Email:    "maria@isp.example",
		Password: "secret123",
	})
	require.NoError(t, err)

	body := `{"action":"reject_user","user_id":"` + user.ID.String() + `","reason":"not a fit"}`
	rec := env.do(t, body, true)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, body, true)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestDispatch_GetStats(t *testing.T) {
	env := newAuthTestEnv(t)
	_, err := env.approvalSvc.CreateAccount(context.Background(), backend.Profile{
		Email:    "maria@isp.example",
		Password: "secret123",
	})
	require.NoError(t, err)

	rec := env.do(t, `{"action":"get_stats"}`, true)
	require.Equal(t, http.StatusOK, rec.Code)

	var stats models.Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 1, stats.TotalUsers)
	assert.Equal(t, 1, stats.PendingUsers)
}

func TestDispatch_RefreshRoundTrip(t *testing.T) {
	env := newAuthTestEnv(t)
	_, err := env.adapter.CreateApprovedAccount(context.Background(), backend.Profile{
		Email:    "maria@isp.example",
		Password: "secret123",
	}, "admin1")
	require.NoError(t, err)

	rec := env.do(t, `{"action":"login","email":"maria@isp.example","password":"secret123"}`, false)
	require.Equal(t, http.StatusOK, rec.Code)

	var login struct {
		Tokens *models.TokenResponse `json:"tokens"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &login))
	require.NotNil(t, login.Tokens)

	rec = env.do(t, `{"action":"refresh","refresh_token":"`+login.Tokens.RefreshToken+`"}`, false)
	require.Equal(t, http.StatusOK, rec.Code)

	// the presented refresh token was rotated out
	rec = env.do(t, `{"action":"refresh","refresh_token":"`+login.Tokens.RefreshToken+`"}`, false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
