package session

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"provdesk/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mintToken(t *testing.T, exp time.Time) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte("irrelevant"))
	require.NoError(t, err)
	return signed
}

// authServerStub counts hits per action and serves canned token pairs.
type authServerStub struct {
	mu       sync.Mutex
	hits     map[string]int
	refresh  func(w http.ResponseWriter)
	loginErr int // non-zero forces this HTTP status on login actions
	status   string
}

func (s *authServerStub) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		action := body["action"]

		s.mu.Lock()
		if s.hits == nil {
			s.hits = map[string]int{}
		}
		s.hits[action]++
		s.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		switch action {
		case "login", "login-admin", "login-google":
			if s.loginErr != 0 {
				w.WriteHeader(s.loginErr)
				json.NewEncoder(w).Encode(map[string]string{"error": "denied", "status": s.status})
				return
			}
			json.NewEncoder(w).Encode(map[string]any{
				"tokens": map[string]string{
					"access_token":  mintToken(t, time.Now().Add(15*time.Minute)),
					"refresh_token": "refresh-1",
				},
				"user": map[string]string{"email": "maria@isp.example"},
			})
		case "refresh":
			if s.refresh != nil {
				s.refresh(w)
				return
			}
			json.NewEncoder(w).Encode(map[string]any{
				"tokens": map[string]string{
					"access_token":  mintToken(t, time.Now().Add(15*time.Minute)),
					"refresh_token": "refresh-2",
				},
			})
		case "logout":
			json.NewEncoder(w).Encode(map[string]string{"message": "logged out"})
		default:
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{"error": "unknown action"})
		}
	}
}

func (s *authServerStub) hitCount(action string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[action]
}

func newTestManager(t *testing.T, stub *authServerStub) (*Manager, *MemoryTokenStore, *httptest.Server) {
	srv := httptest.NewServer(stub.handler(t))
	t.Cleanup(srv.Close)
	store := NewMemoryTokenStore()
	return NewManager(srv.URL, store), store, srv
}

func TestLoginWithPassword_ValidationBeforeNetwork(t *testing.T) {
	stub := &authServerStub{}
	m, _, _ := newTestManager(t, stub)

	err := m.LoginWithPassword(context.Background(), "not-an-email", "secret123")
	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)

	err = m.LoginWithPassword(context.Background(), "maria@isp.example", "short")
	require.ErrorAs(t, err, &verr)

	assert.Equal(t, 0, stub.hitCount("login"), "validation failures must not reach the server")
}

func TestLoginWithPassword_StoresSession(t *testing.T) {
	stub := &authServerStub{}
	m, store, _ := newTestManager(t, stub)

	require.NoError(t, m.LoginWithPassword(context.Background(), "maria@isp.example", "secret123"))

	_, ok := store.Get(KeyAccessToken)
	assert.True(t, ok)
	_, ok = store.Get(KeyRefreshToken)
	assert.True(t, ok)
	user, ok := m.CurrentUser()
	require.True(t, ok)
	assert.Contains(t, string(user), "maria@isp.example")
}

func TestLogin_BadCredentials(t *testing.T) {
	stub := &authServerStub{loginErr: http.StatusUnauthorized}
	m, _, _ := newTestManager(t, stub)

	err := m.LoginWithPassword(context.Background(), "maria@isp.example", "wrong-pass")
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)
}

func TestLoginWithGoogle_PendingApproval(t *testing.T) {
	stub := &authServerStub{loginErr: http.StatusForbidden, status: "pending"}
	m, store, _ := newTestManager(t, stub)

	err := m.LoginWithGoogle(context.Background(), "google-assertion")
	assert.ErrorIs(t, err, models.ErrPendingApproval)

	var notApproved *models.AccountNotApprovedError
	require.ErrorAs(t, err, &notApproved)
	assert.Equal(t, "pending", notApproved.Status)

	_, ok := store.Get(KeyAccessToken)
	assert.False(t, ok, "no session material on a pending account")
}

func TestEnsureAuthenticated_ValidTokenNoNetwork(t *testing.T) {
	stub := &authServerStub{}
	m, store, _ := newTestManager(t, stub)

	token := mintToken(t, time.Now().Add(10*time.Minute))
	require.NoError(t, store.Set(KeyAccessToken, token))

	got, err := m.EnsureAuthenticated(context.Background())
	require.NoError(t, err)
	assert.Equal(t, token, got)
	assert.Equal(t, 0, stub.hitCount("refresh"))
}

func TestEnsureAuthenticated_ClockSkewTokenNotRefreshed(t *testing.T) {
	stub := &authServerStub{}
	m, store, _ := newTestManager(t, stub)

	// A token with 10 seconds left is still usable and must not trigger
	// a refresh round trip.
	token := mintToken(t, time.Now().Add(10*time.Second))
	require.NoError(t, store.Set(KeyAccessToken, token))

	got, err := m.EnsureAuthenticated(context.Background())
	require.NoError(t, err)
	assert.Equal(t, token, got)
	assert.Equal(t, 0, stub.hitCount("refresh"))
}

func TestEnsureAuthenticated_ExpiredTokenRefreshesOnce(t *testing.T) {
	stub := &authServerStub{}
	m, store, _ := newTestManager(t, stub)

	require.NoError(t, store.Set(KeyAccessToken, mintToken(t, time.Now().Add(-time.Minute))))
	require.NoError(t, store.Set(KeyRefreshToken, "refresh-1"))

	got, err := m.EnsureAuthenticated(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, got)
	assert.Equal(t, 1, stub.hitCount("refresh"))

	stored, _ := store.Get(KeyRefreshToken)
	assert.Equal(t, "refresh-2", stored, "refresh token rotated")
}

func TestRefresh_ConcurrentCallersShareOneExchange(t *testing.T) {
	stub := &authServerStub{
		refresh: func(w http.ResponseWriter) {
			time.Sleep(50 * time.Millisecond) // widen the contention window
			json.NewEncoder(w).Encode(map[string]any{
				"tokens": map[string]string{
					"access_token":  "shared-access",
					"refresh_token": "refresh-2",
				},
			})
		},
	}
	m, store, _ := newTestManager(t, stub)
	require.NoError(t, store.Set(KeyRefreshToken, "refresh-1"))

	var wg sync.WaitGroup
	var failures atomic.Int32
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			token, err := m.Refresh(context.Background())
			if err != nil || token != "shared-access" {
				failures.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(0), failures.Load())
	assert.Equal(t, 1, stub.hitCount("refresh"), "concurrent refreshes collapse into one exchange")
}

func TestRefresh_RejectionEndsSession(t *testing.T) {
	stub := &authServerStub{
		refresh: func(w http.ResponseWriter) {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"error": "session expired"})
		},
	}
	m, store, _ := newTestManager(t, stub)
	require.NoError(t, store.Set(KeyAccessToken, mintToken(t, time.Now().Add(-time.Minute))))
	require.NoError(t, store.Set(KeyRefreshToken, "refresh-1"))

	_, err := m.EnsureAuthenticated(context.Background())
	assert.ErrorIs(t, err, models.ErrSessionExpired)

	_, ok := store.Get(KeyAccessToken)
	assert.False(t, ok, "local session cleared after a rejected refresh")
}

func TestAdminSessionValid_24hWallClock(t *testing.T) {
	stub := &authServerStub{}
	m, _, _ := newTestManager(t, stub)

	start := time.Now()
	m.now = func() time.Time { return start }
	require.NoError(t, m.LoginAsAdmin(context.Background(), "master-pass"))
	assert.True(t, m.AdminSessionValid())

	m.now = func() time.Time { return start.Add(23 * time.Hour) }
	assert.True(t, m.AdminSessionValid())

	// one second past the window forces a fresh admin login
	m.now = func() time.Time { return start.Add(24*time.Hour + time.Second) }
	assert.False(t, m.AdminSessionValid())
}

func TestLogout_ClearsStoreEvenWhenServerFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	store := NewMemoryTokenStore()
	require.NoError(t, store.Set(KeyAccessToken, "access"))
	require.NoError(t, store.Set(KeyRefreshToken, "refresh"))

	m := NewManager(srv.URL, store)
	require.NoError(t, m.Logout(context.Background()))

	_, ok := store.Get(KeyAccessToken)
	assert.False(t, ok)
	_, ok = store.Get(KeyRefreshToken)
	assert.False(t, ok)
}

func TestAuthenticatedDo_RetriesOnceAfter401(t *testing.T) {
	stub := &authServerStub{}
	authSrv := httptest.NewServer(stub.handler(t))
	t.Cleanup(authSrv.Close)

	var apiHits atomic.Int32
	apiSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if apiHits.Add(1) == 1 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		assert.NotEmpty(t, r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(apiSrv.Close)

	store := NewMemoryTokenStore()
	require.NoError(t, store.Set(KeyAccessToken, mintToken(t, time.Now().Add(10*time.Minute))))
	require.NoError(t, store.Set(KeyRefreshToken, "refresh-1"))
	m := NewManager(authSrv.URL, store)

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, apiSrv.URL+"/users", nil)
	require.NoError(t, err)

	resp, err := m.AuthenticatedDo(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(2), apiHits.Load(), "exactly one retry")
	assert.Equal(t, 1, stub.hitCount("refresh"))
}

func TestLogin_NetworkFault(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	m := NewManager(srv.URL, NewMemoryTokenStore())
	err := m.LoginWithPassword(context.Background(), "maria@isp.example", "secret123")
	assert.ErrorIs(t, err, models.ErrNetwork)
}
