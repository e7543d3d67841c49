package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"provdesk/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeNotificationRepo stores notifications in memory and honors the
// before-instant contract of MarkAllRead.
type fakeNotificationRepo struct {
	mu        sync.Mutex
	items     []*models.AdminNotification
	createErr error
}

func (f *fakeNotificationRepo) Create(ctx context.Context, n *models.AdminNotification) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = append(f.items, n)
	return nil
}

func (f *fakeNotificationRepo) List(ctx context.Context, onlyUnread bool, limit int) ([]*models.AdminNotification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*models.AdminNotification{}
	for _, n := range f.items {
		if onlyUnread && n.Read {
			continue
		}
		out = append(out, n)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeNotificationRepo) MarkAllRead(ctx context.Context, before time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, item := range f.items {
		if !item.Read && !item.CreatedAt.After(before) {
			item.Read = true
			n++
		}
	}
	return n, nil
}

func TestNotificationService_NewUserCreatesRecord(t *testing.T) {
	repo := &fakeNotificationRepo{}
	svc := NewNotificationService(repo)

	user := &models.User{ID: uuid.New(), Name: "Maria Silva", Email: "maria@isp.example"}
	svc.NewUser(context.Background(), user)

	list, err := svc.List(context.Background(), true, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, models.NotificationNewUser, list[0].Type)
	assert.Contains(t, list[0].Message, "maria@isp.example")
	assert.Equal(t, user.ID.String(), list[0].Data["userId"])
}

func TestNotificationService_FailureIsSwallowed(t *testing.T) {
	repo := &fakeNotificationRepo{createErr: errors.New("backend down")}
	svc := NewNotificationService(repo)

	// must not panic or propagate
	svc.NewUser(context.Background(), &models.User{ID: uuid.New()})
	svc.AccessRequested(context.Background(), &models.AccessRequest{ID: uuid.New()})
}

func TestNotificationService_MarkAllReadSnapshot(t *testing.T) {
	repo := &fakeNotificationRepo{}
	svc := NewNotificationService(repo).(*notificationService)

	frozen := time.Now()
	svc.now = func() time.Time { return frozen }

	require.NoError(t, svc.Notify(context.Background(), models.NotificationNewUser, "a", "a", nil))
	require.NoError(t, svc.Notify(context.Background(), models.NotificationNewUser, "b", "b", nil))

	// a notification created after the captured instant stays unread
	svc.now = func() time.Time { return frozen.Add(time.Minute) }
	late := &models.AdminNotification{ID: uuid.New(), CreatedAt: frozen.Add(2 * time.Minute)}
	require.NoError(t, repo.Create(context.Background(), late))

	svc.now = func() time.Time { return frozen.Add(time.Minute) }
	marked, err := svc.MarkAllRead(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, marked)

	unread, err := svc.List(context.Background(), true, 0)
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Equal(t, late.ID, unread[0].ID)
}
