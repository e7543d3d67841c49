package backend

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"provdesk/internal/models"

	"github.com/google/uuid"
)

// localAdapter is the offline/demo backend: the whole store lives in process
// memory. It is also the deterministic fallback when no real backend is
// configured or reachable.
type localAdapter struct {
	store       *Store
	autoApprove bool
}

// NewLocalAdapter builds the demo backend. When autoApprove is set, OAuth
// account creation skips the approval queue; password accounts always start
// pending.
func NewLocalAdapter(autoApprove bool) Adapter {
	return &localAdapter{
		store: &Store{
			Users:         &memoryUserRepo{users: make(map[uuid.UUID]*models.User)},
			Requests:      &memoryRequestRepo{requests: make(map[uuid.UUID]*models.AccessRequest)},
			Activities:    &memoryActivityRepo{},
			Notifications: &memoryNotificationRepo{},
		},
		autoApprove: autoApprove,
	}
}

func (a *localAdapter) Name() string { return "local" }

func (a *localAdapter) Store() *Store { return a.store }

func (a *localAdapter) Authenticate(ctx context.Context, creds Credentials) (*models.User, error) {
	return authenticateAgainst(ctx, a.store.Users, creds)
}

func (a *localAdapter) CreateAccount(ctx context.Context, profile Profile) (*models.User, error) {
	status := models.StatusPending
	if a.autoApprove && profile.GoogleID != "" {
		status = models.StatusApproved
	}
	user := newUserFromProfile(profile, status)
	if status == models.StatusApproved {
		now := time.Now()
		demo := "demo"
		user.ApprovedAt = &now
		user.ApprovedBy = &demo
	}
	if err := hashProfilePassword(user, profile.Password); err != nil {
		return nil, err
	}
	if err := a.store.Users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (a *localAdapter) CreateApprovedAccount(ctx context.Context, profile Profile, approvedBy string) (*models.User, error) {
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

func (a *localAdapter) FetchUserStatus(ctx context.Context, id uuid.UUID) (string, error) {
	user, err := a.store.Users.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	return user.Status, nil
}

func (a *localAdapter) LogActivity(ctx context.Context, rec *models.ActivityRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	return a.store.Activities.Create(ctx, rec)
}

func (a *localAdapter) TouchLastLogin(ctx context.Context, id uuid.UUID) error {
	return a.store.Users.TouchLastLogin(ctx, id)
}

// In-memory repository implementations. These satisfy the same interfaces as
// the pgx repositories so the services cannot tell the backends apart.

type memoryUserRepo struct {
	mu    sync.RWMutex
	users map[uuid.UUID]*models.User
}

func (r *memoryUserRepo) Create(ctx context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == user.Email {
			return fmt.Errorf("user with email '%s' already exists", user.Email)
		}
	}
	clone := *user
	r.users[user.ID] = &clone
	return nil
}

func (r *memoryUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if u, ok := r.users[id]; ok {
		clone := *u
		return &clone, nil
	}
	return nil, models.ErrUserNotFound
}

func (r *memoryUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if u.Email == email {
			clone := *u
			return &clone, nil
		}
	}
	return nil, models.ErrUserNotFound
}

func (r *memoryUserRepo) Update(ctx context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.users[user.ID]
	if !ok {
		return models.ErrUserNotFound
	}
	clone := *user
	clone.CreatedAt = existing.CreatedAt // immutable
	r.users[user.ID] = &clone
	return nil
}

func (r *memoryUserRepo) List(ctx context.Context, status string, limit, offset int) ([]*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var users []*models.User
	for _, u := range r.users {
		if status != "" && status != "all" && u.Status != status {
			continue
		}
		clone := *u
		users = append(users, &clone)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].CreatedAt.After(users[j].CreatedAt) })
	if offset >= len(users) {
		return nil, nil
	}
	users = users[offset:]
	if limit > 0 && len(users) > limit {
		users = users[:limit]
	}
	return users, nil
}

func (r *memoryUserRepo) TouchLastLogin(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok && u.Status == models.StatusApproved {
		now := time.Now()
		u.LastLogin = &now
	}
	return nil
}

func (r *memoryUserRepo) CountByStatus(ctx context.Context) (map[string]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	counts := make(map[string]int)
	for _, u := range r.users {
		counts[u.Status]++
	}
	return counts, nil
}

type memoryRequestRepo struct {
	mu       sync.Mutex
	requests map[uuid.UUID]*models.AccessRequest
}

func (r *memoryRequestRepo) Create(ctx context.Context, req *models.AccessRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *req
	if clone.CreatedAt.IsZero() {
		clone.CreatedAt = time.Now()
	}
	r.requests[req.ID] = &clone
	return nil
}

func (r *memoryRequestRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.AccessRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if req, ok := r.requests[id]; ok {
		clone := *req
		return &clone, nil
	}
	return nil, models.ErrUserNotFound
}

func (r *memoryRequestRepo) List(ctx context.Context, onlyUnprocessed bool, limit, offset int) ([]*models.AccessRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var requests []*models.AccessRequest
	for _, req := range r.requests {
		if onlyUnprocessed && req.Processed {
			continue
		}
		clone := *req
		requests = append(requests, &clone)
	}
	sort.Slice(requests, func(i, j int) bool { return requests[i].CreatedAt.After(requests[j].CreatedAt) })
	if offset >= len(requests) {
		return nil, nil
	}
	requests = requests[offset:]
	if limit > 0 && len(requests) > limit {
		requests = requests[:limit]
	}
	return requests, nil
}

func (r *memoryRequestRepo) MarkProcessed(ctx context.Context, id uuid.UUID, approved bool, notes, processedBy string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requests[id]
	if !ok {
		return false, models.ErrUserNotFound
	}
	if req.Processed {
		return false, nil
	}
	now := time.Now()
	req.Processed = true
	req.Approved = approved
	req.AdminNotes = &notes
	req.ProcessedAt = &now
	req.ProcessedBy = &processedBy
	return true, nil
}

type memoryActivityRepo struct {
	mu      sync.Mutex
	records []*models.ActivityRecord
}

func (r *memoryActivityRepo) Create(ctx context.Context, rec *models.ActivityRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *rec
	if clone.CreatedAt.IsZero() {
		clone.CreatedAt = time.Now()
	}
	r.records = append(r.records, &clone)
	return nil
}

func (r *memoryActivityRepo) Query(ctx context.Context, filter *models.ActivityFilter, limit int) ([]*models.ActivityRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if filter == nil {
		filter = &models.ActivityFilter{}
	}
	var out []*models.ActivityRecord
	// records are appended in time order; walk backwards for recent-first
	for i := len(r.records) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		rec := r.records[i]
		if filter.UserID != nil && (rec.UserID == nil || *rec.UserID != *filter.UserID) {
			continue
		}
		if filter.Action != nil && rec.Action != *filter.Action {
			continue
		}
		if filter.Since != nil && rec.CreatedAt.Before(*filter.Since) {
			continue
		}
		clone := *rec
		out = append(out, &clone)
	}
	return out, nil
}

func (r *memoryActivityRepo) CountSince(ctx context.Context, since string) (int, error) {
	cutoff, err := time.Parse(time.RFC3339, since)
	if err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, rec := range r.records {
		if !rec.CreatedAt.Before(cutoff) {
			count++
		}
	}
	return count, nil
}

type memoryNotificationRepo struct {
	mu            sync.Mutex
	notifications []*models.AdminNotification
}

func (r *memoryNotificationRepo) Create(ctx context.Context, n *models.AdminNotification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *n
	if clone.CreatedAt.IsZero() {
		clone.CreatedAt = time.Now()
	}
	r.notifications = append(r.notifications, &clone)
	return nil
}

func (r *memoryNotificationRepo) List(ctx context.Context, onlyUnread bool, limit int) ([]*models.AdminNotification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.AdminNotification
	for i := len(r.notifications) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		n := r.notifications[i]
		if onlyUnread && n.Read {
			continue
		}
		clone := *n
		out = append(out, &clone)
	}
	return out, nil
}

func (r *memoryNotificationRepo) MarkAllRead(ctx context.Context, before time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	marked := 0
	for _, n := range r.notifications {
		if !n.Read && !n.CreatedAt.After(before) {
			n.Read = true
			marked++
		}
	}
	return marked, nil
}
