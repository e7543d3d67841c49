package backend

import (
	"context"
	"errors"
	"time"

	"provdesk/internal/models"
	"provdesk/internal/repositories"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Credentials for password login. GoogleID is set instead of Password when
// the identity was already verified against a Google assertion; the password
// check is skipped in that case.
type Credentials struct {
	Email    string
	Password string
	GoogleID string
}

// Profile is the caller-supplied part of a new account. Status is never
// accepted from callers; adapters assign it.
type Profile struct {
	Email    string
	Name     string
	PhotoURL string
	Company  string
	GoogleID string
	Password string // empty for OAuth accounts
}

// Store bundles the per-backend data access the approval machine, ledger
// and dispatcher run on. Every backend provides all four.
type Store struct {
	Users         repositories.UserRepository
	Requests      repositories.AccessRequestRepository
	Activities    repositories.ActivityRepository
	Notifications repositories.NotificationRepository
}

// Adapter abstracts the three credential/data backends behind one capability
// set so the services above it stay backend-agnostic. One concrete adapter is
// selected at startup; nothing branches on the backend per call.
type Adapter interface {
	Name() string
	// Authenticate resolves credentials to an approved user. It fails with
	// models.ErrUserNotFound for unknown accounts, models.ErrInvalidCredentials
	// on a password mismatch and *models.AccountNotApprovedError for any
	// account outside the approved state.
	Authenticate(ctx context.Context, creds Credentials) (*models.User, error)
	// CreateAccount creates a pending account. The local demo backend may
	// auto-approve OAuth accounts when configured to.
	CreateAccount(ctx context.Context, profile Profile) (*models.User, error)
	// CreateApprovedAccount exists for exactly one flow: an admin approving
	// an access request, where the user enters life already approved.
	CreateApprovedAccount(ctx context.Context, profile Profile, approvedBy string) (*models.User, error)
	FetchUserStatus(ctx context.Context, id uuid.UUID) (string, error)
	LogActivity(ctx context.Context, rec *models.ActivityRecord) error
	TouchLastLogin(ctx context.Context, id uuid.UUID) error
	Store() *Store
}

// authenticateAgainst implements the credential check shared by the backends
// that hold their own password hashes (Supabase and local).
func authenticateAgainst(ctx context.Context, users repositories.UserRepository, creds Credentials) (*models.User, error) {
	user, err := users.GetByEmail(ctx, creds.Email)
	if err != nil {
		return nil, err
	}

	if creds.GoogleID == "" {
		if user.PasswordHash == "" {
			return nil, models.ErrInvalidCredentials
		}
		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(creds.Password)); err != nil {
			return nil, models.ErrInvalidCredentials
		}
	}

	if user.Status != models.StatusApproved {
		return nil, &models.AccountNotApprovedError{Status: user.Status}
	}
	return user, nil
}

func newUserFromProfile(profile Profile, status string) *models.User {
	user := &models.User{
		ID:        uuid.New(),
		Email:     profile.Email,
		Name:      profile.Name,
		Status:    status,
		CreatedAt: time.Now(),
	}
	if profile.PhotoURL != "" {
		user.PhotoURL = &profile.PhotoURL
	}
	if profile.Company != "" {
		user.Company = &profile.Company
	}
	if profile.GoogleID != "" {
		user.GoogleID = &profile.GoogleID
	}
	return user
}

func hashProfilePassword(user *models.User, password string) error {
	if password == "" {
		return nil
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	user.PasswordHash = string(hashed)
	return nil
}

// IsNotApproved reports whether err is the approval gate firing and returns
// the account status it carries.
func IsNotApproved(err error) (string, bool) {
	var notApproved *models.AccountNotApprovedError
	if errors.As(err, &notApproved) {
		return notApproved.Status, true
	}
	return "", false
}
