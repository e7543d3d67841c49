package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"provdesk/internal/models"
	"provdesk/internal/repositories"

	"github.com/google/uuid"
)

// NotificationService creates admin-facing notification records as side
// effects of the approval workflow. Creation is best-effort at call sites:
// callers log failures and keep going.
type NotificationService interface {
	Notify(ctx context.Context, typ models.NotificationType, title, message string, data models.JSONB) error
	NewUser(ctx context.Context, user *models.User)
	AccessRequested(ctx context.Context, req *models.AccessRequest)
	List(ctx context.Context, onlyUnread bool, limit int) ([]*models.AdminNotification, error)
	// MarkAllRead flips only notifications that existed when the call was
	// made; one created mid-operation stays unread.
	MarkAllRead(ctx context.Context) (int, error)
}

type notificationService struct {
	repo repositories.NotificationRepository
	now  func() time.Time
}

func NewNotificationService(repo repositories.NotificationRepository) NotificationService {
	return &notificationService{repo: repo, now: time.Now}
}

func (s *notificationService) Notify(ctx context.Context, typ models.NotificationType, title, message string, data models.JSONB) error {
	n := &models.AdminNotification{
		ID:        uuid.New(),
		Type:      typ,
		Title:     title,
		Message:   message,
		Data:      data,
		Read:      false,
		CreatedAt: s.now(),
	}
	return s.repo.Create(ctx, n)
}

// NewUser notifies admins that a fresh signup is waiting in the approval
// queue. Fire-and-forget: a failure is logged and swallowed.
func (s *notificationService) NewUser(ctx context.Context, user *models.User) {
	err := s.Notify(ctx, models.NotificationNewUser,
		"Novo usuário cadastrado",
		fmt.Sprintf("%s (%s) se cadastrou e aguarda aprovação", user.Name, user.Email),
		models.JSONB{"userId": user.ID.String()})
	if err != nil {
		log.Printf("Failed to create new-user notification: %v", err)
	}
}

func (s *notificationService) AccessRequested(ctx context.Context, req *models.AccessRequest) {
	err := s.Notify(ctx, models.NotificationAccessRequest,
		"Nova solicitação de acesso",
		fmt.Sprintf("%s (%s) da empresa %s solicita acesso", req.Name, req.Email, req.Company),
		models.JSONB{"requestId": req.ID.String()})
	if err != nil {
		log.Printf("Failed to create access-request notification: %v", err)
	}
}

func (s *notificationService) List(ctx context.Context, onlyUnread bool, limit int) ([]*models.AdminNotification, error) {
	if limit <= 0 || limit > 200 {
		limit = DefaultQueryLimit
	}
	return s.repo.List(ctx, onlyUnread, limit)
}

func (s *notificationService) MarkAllRead(ctx context.Context) (int, error) {
	// capture the instant before touching storage
	return s.repo.MarkAllRead(ctx, s.now())
}
