package backend

import (
	"context"
	"time"

	"provdesk/internal/models"
	"provdesk/internal/repositories"

	"github.com/google/uuid"
)

// supabaseAdapter runs against the Supabase-hosted Postgres through the pgx
// repositories. It is the production backend.
type supabaseAdapter struct {
	store *Store
}

func NewSupabaseAdapter(db repositories.Database) Adapter {
	return &supabaseAdapter{
		store: &Store{
			Users:         repositories.NewUserRepo(db),
			Requests:      repositories.NewAccessRequestRepo(db),
			Activities:    repositories.NewActivityRepo(db),
			Notifications: repositories.NewNotificationRepo(db),
		},
	}
}

func (a *supabaseAdapter) Name() string { return "supabase" }

func (a *supabaseAdapter) Store() *Store { return a.store }

func (a *supabaseAdapter) Authenticate(ctx context.Context, creds Credentials) (*models.User, error) {
	return authenticateAgainst(ctx, a.store.Users, creds)
}

func (a *supabaseAdapter) CreateAccount(ctx context.Context, profile Profile) (*models.User, error) {
	user := newUserFromProfile(profile, models.StatusPending)
	if err := hashProfilePassword(user, profile.Password); err != nil {
		return nil, err
	}
	if err := a.store.Users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (a *supabaseAdapter) CreateApprovedAccount(ctx context.Context, profile Profile, approvedBy string) (*models.User, error) {
	user := newUserFromProfile(profile, models.StatusApproved)
	now := time.Now()
	user.ApprovedAt = &now
	user.ApprovedBy = &approvedBy
	if err := hashProfilePassword(user, profile.Password); err != nil {
		return nil, err
	}
	if err := a.store.Users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (a *supabaseAdapter) FetchUserStatus(ctx context.Context, id uuid.UUID) (string, error) {
	user, err := a.store.Users.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	return user.Status, nil
}

func (a *supabaseAdapter) LogActivity(ctx context.Context, rec *models.ActivityRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	return a.store.Activities.Create(ctx, rec)
}

func (a *supabaseAdapter) TouchLastLogin(ctx context.Context, id uuid.UUID) error {
	return a.store.Users.TouchLastLogin(ctx, id)
}
