package services

import (
	"context"
	"testing"
	"time"

	"provdesk/internal/backend"
	"provdesk/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

func mintGoogleAssertion(t *testing.T, sub, email, name string) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub":   sub,
		"email": email,
		"name":  name,
		"exp":   time.Now().Add(time.Hour).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte("unverified"))
	require.NoError(t, err)
	return signed
}

type LoginServiceTestSuite struct {
	suite.Suite
	adapter     backend.Adapter
	ledger      *recordingActivityService
	notifier    *countingNotificationService
	approvalSvc ApprovalService
	service     LoginService
	ctx         context.Context
}

func (suite *LoginServiceTestSuite) SetupTest() {
	suite.adapter = backend.NewLocalAdapter(false)
	suite.ledger = &recordingActivityService{}
	suite.notifier = newCountingNotificationService()
	cache := newFakeCacheService()
	authSvc := NewAuthService(cache, "test-secret", 15*time.Minute, time.Hour, 24*time.Hour)
	suite.approvalSvc = NewApprovalService(suite.adapter, suite.ledger, suite.notifier, cache)
	suite.service = NewLoginService(suite.adapter, authSvc, suite.approvalSvc, suite.ledger, NewInsecureGoogleVerifier(), "master-pass")
	suite.ctx = context.Background()
}

func (suite *LoginServiceTestSuite) approvedUser(email, password string) *models.User {
	user, err := suite.adapter.CreateApprovedAccount(suite.ctx, backend.Profile{
		Email:    email,
		Name:     "Maria Silva",
		Password: password,
	}, "admin1")
	require.NoError(suite.T(), err)
	return user
}

func (suite *LoginServiceTestSuite) TestPasswordLogin_Success() {
	user := suite.approvedUser("maria@isp.example", "secret123")

	tokens, got, err := suite.service.LoginWithPassword(suite.ctx, "maria@isp.example", "secret123", "10.0.0.1", "cli/1.0")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), user.ID, got.ID)
	assert.Equal(suite.T(), models.RoleUser, tokens.Role)
	assert.Contains(suite.T(), suite.ledger.actions(), models.ActionLogin)

	stored, err := suite.adapter.Store().Users.GetByID(suite.ctx, user.ID)
	require.NoError(suite.T(), err)
	assert.NotNil(suite.T(), stored.LastLogin)
}

func (suite *LoginServiceTestSuite) TestPasswordLogin_ValidationBeforeBackend() {
	_, _, err := suite.service.LoginWithPassword(suite.ctx, "not-an-email", "secret123", "", "")
	var verr *models.ValidationError
	require.ErrorAs(suite.T(), err, &verr)

	_, _, err = suite.service.LoginWithPassword(suite.ctx, "maria@isp.example", "short", "", "")
	require.ErrorAs(suite.T(), err, &verr)

	assert.Empty(suite.T(), suite.ledger.actions())
}

func (suite *LoginServiceTestSuite) TestPasswordLogin_UnknownEmailMasked() {
	_, _, err := suite.service.LoginWithPassword(suite.ctx, "nobody@isp.example", "secret123", "", "")
	assert.ErrorIs(suite.T(), err, models.ErrInvalidCredentials)
}

func (suite *LoginServiceTestSuite) TestGoogleLogin_FirstLoginRegistersPending() {
	assertion := mintGoogleAssertion(suite.T(), "google-sub-1", "maria@isp.example", "Maria Silva")

	tokens, user, err := suite.service.LoginWithGoogle(suite.ctx, assertion, "", "")
	assert.ErrorIs(suite.T(), err, models.ErrPendingApproval)
	assert.Nil(suite.T(), tokens)
	require.NotNil(suite.T(), user)
	assert.Equal(suite.T(), models.StatusPending, user.Status)

	// account creation raised exactly one new-user notification
	assert.Equal(suite.T(), 1, suite.notifier.count(models.NotificationNewUser))

	// second attempt while still pending: approval gate, no new account
	_, _, err = suite.service.LoginWithGoogle(suite.ctx, assertion, "", "")
	status, ok := backend.IsNotApproved(err)
	require.True(suite.T(), ok)
	assert.Equal(suite.T(), models.StatusPending, status)
	assert.Equal(suite.T(), 1, suite.notifier.count(models.NotificationNewUser))
}

func (suite *LoginServiceTestSuite) TestGoogleLogin_ApprovedAccountGetsTokens() {
	assertion := mintGoogleAssertion(suite.T(), "google-sub-1", "maria@isp.example", "Maria Silva")

	_, user, err := suite.service.LoginWithGoogle(suite.ctx, assertion, "", "")
	require.ErrorIs(suite.T(), err, models.ErrPendingApproval)

	_, err = suite.approvalSvc.Approve(suite.ctx, user.ID, "admin1")
	require.NoError(suite.T(), err)

	tokens, got, err := suite.service.LoginWithGoogle(suite.ctx, assertion, "", "")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), user.ID, got.ID)
	assert.NotEmpty(suite.T(), tokens.AccessToken)
}

func (suite *LoginServiceTestSuite) TestAdminLogin_MasterPassword() {
	_, err := suite.service.LoginAsAdmin(suite.ctx, "wrong", "", "")
	assert.ErrorIs(suite.T(), err, models.ErrInvalidCredentials)

	tokens, err := suite.service.LoginAsAdmin(suite.ctx, "master-pass", "10.0.0.1", "")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.RoleAdmin, tokens.Role)
	assert.Equal(suite.T(), int((24 * time.Hour).Seconds()), tokens.ExpiresIn)
	assert.Contains(suite.T(), suite.ledger.actions(), models.ActionAdminLogin)
}

func (suite *LoginServiceTestSuite) TestAdminLogin_DisabledWithoutPassword() {
	svc := NewLoginService(suite.adapter, nil, suite.approvalSvc, suite.ledger, NewInsecureGoogleVerifier(), "")
	_, err := svc.LoginAsAdmin(suite.ctx, "anything", "", "")
	assert.ErrorIs(suite.T(), err, models.ErrBackendUnavailable)
}

func (suite *LoginServiceTestSuite) TestRefreshSession_ApprovedUser() {
	suite.approvedUser("maria@isp.example", "secret123")
	tokens, _, err := suite.service.LoginWithPassword(suite.ctx, "maria@isp.example", "secret123", "", "")
	require.NoError(suite.T(), err)

	refreshed, err := suite.service.RefreshSession(suite.ctx, tokens.RefreshToken)
	require.NoError(suite.T(), err)
	assert.NotEqual(suite.T(), tokens.RefreshToken, refreshed.RefreshToken)
}

func (suite *LoginServiceTestSuite) TestRefreshSession_SuspendedUserCutOff() {
	user := suite.approvedUser("maria@isp.example", "secret123")
	tokens, _, err := suite.service.LoginWithPassword(suite.ctx, "maria@isp.example", "secret123", "", "")
	require.NoError(suite.T(), err)

	_, err = suite.approvalSvc.Suspend(suite.ctx, user.ID, "abuse", "admin1")
	require.NoError(suite.T(), err)

	_, err = suite.service.RefreshSession(suite.ctx, tokens.RefreshToken)
	var notApproved *models.AccountNotApprovedError
	require.ErrorAs(suite.T(), err, &notApproved)
	assert.Equal(suite.T(), models.StatusSuspended, notApproved.Status)
}

func TestLoginServiceTestSuite(t *testing.T) {
	suite.Run(t, new(LoginServiceTestSuite))
}
