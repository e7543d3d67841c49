package services

import (
	"context"
	"strings"
	"time"

	"provdesk/internal/backend"
	"provdesk/internal/caching"
	"provdesk/internal/models"

	"github.com/google/uuid"
)

const statsCacheTTL = 60 * time.Second

// ApprovalService owns the user lifecycle: pending → approved / rejected /
// suspended, with suspended → approved as the single reactivation edge. All
// transitions are admin-triggered; there is no self-service path. It also
// runs the access-request flow, which is the one way a user can enter life
// already approved.
type ApprovalService interface {
	CreateAccount(ctx context.Context, profile backend.Profile) (*models.User, error)

	Approve(ctx context.Context, userID uuid.UUID, adminActor string) (*models.User, error)
	Reject(ctx context.Context, userID uuid.UUID, reason, adminActor string) (*models.User, error)
	Suspend(ctx context.Context, userID uuid.UUID, reason, adminActor string) (*models.User, error)
	Reactivate(ctx context.Context, userID uuid.UUID, adminActor string) (*models.User, error)

	RequestAccess(ctx context.Context, name, email, company, reason, ip string) (*models.AccessRequest, error)
	ProcessAccessRequest(ctx context.Context, requestID uuid.UUID, approve bool, notes, adminActor string) (*models.AccessRequest, error)

	ListUsers(ctx context.Context, status string, limit, offset int) ([]*models.User, error)
	ListAccessRequests(ctx context.Context, onlyUnprocessed bool, limit, offset int) ([]*models.AccessRequest, error)
	Stats(ctx context.Context) (*models.Stats, error)
}

type approvalService struct {
	adapter     backend.Adapter
	activitySvc ActivityService
	notifySvc   NotificationService
	cacheSvc    caching.CacheService
	now         func() time.Time
}

func NewApprovalService(adapter backend.Adapter, activitySvc ActivityService, notifySvc NotificationService, cacheSvc caching.CacheService) ApprovalService {
	return &approvalService{
		adapter:     adapter,
		activitySvc: activitySvc,
		notifySvc:   notifySvc,
		cacheSvc:    cacheSvc,
		now:         time.Now,
	}
}

// CreateAccount registers a pending account and raises the new-user
// notification. The caller never chooses the initial status.
func (s *approvalService) CreateAccount(ctx context.Context, profile backend.Profile) (*models.User, error) {
	user, err := s.adapter.CreateAccount(ctx, profile)
	if err != nil {
		return nil, err
	}
	s.notifySvc.NewUser(ctx, user)
	return user, nil
}

func (s *approvalService) Approve(ctx context.Context, userID uuid.UUID, adminActor string) (*models.User, error) {
	user, err := s.adapter.Store().Users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Status != models.StatusPending {
		return nil, models.ErrInvalidTransition
	}

	now := s.now()
	user.Status = models.StatusApproved
	user.ApprovedAt = &now
	user.ApprovedBy = &adminActor

	if err := s.adapter.Store().Users.Update(ctx, user); err != nil {
		return nil, err
	}
	s.logAdminAction(models.ActionUserApproved, user.ID, nil)
	return user, nil
}

// Reject is reachable from pending or approved. Rejecting from approved
// retains the approval history fields; a user never holds rejection and
// suspension reasons at the same time.
func (s *approvalService) Reject(ctx context.Context, userID uuid.UUID, reason, adminActor string) (*models.User, error) {
	user, err := s.adapter.Store().Users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Status != models.StatusPending && user.Status != models.StatusApproved {
		return nil, models.ErrInvalidTransition
	}

	now := s.now()
	user.Status = models.StatusRejected
	user.RejectedAt = &now
	user.RejectionReason = &reason
	user.SuspendedAt = nil
	user.SuspensionReason = nil

	if err := s.adapter.Store().Users.Update(ctx, user); err != nil {
		return nil, err
	}
	s.logAdminAction(models.ActionUserRejected, user.ID, &reason)
	return user, nil
}

func (s *approvalService) Suspend(ctx context.Context, userID uuid.UUID, reason, adminActor string) (*models.User, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, models.NewValidationError("reason", "suspension reason is required")
	}

	user, err := s.adapter.Store().Users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Status != models.StatusApproved {
		return nil, models.ErrInvalidTransition
	}

	now := s.now()
	user.Status = models.StatusSuspended
	user.SuspendedAt = &now
	user.SuspensionReason = &reason
	user.RejectedAt = nil
	user.RejectionReason = nil

	if err := s.adapter.Store().Users.Update(ctx, user); err != nil {
		return nil, err
	}
	s.logAdminAction(models.ActionUserSuspended, user.ID, &reason)
	return user, nil
}

// Reactivate is the single allowed edge back to approved. It clears the
// suspension fields and leaves the original approval untouched.
func (s *approvalService) Reactivate(ctx context.Context, userID uuid.UUID, adminActor string) (*models.User, error) {
	user, err := s.adapter.Store().Users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Status != models.StatusSuspended {
		return nil, models.ErrInvalidTransition
	}

	now := s.now()
	user.Status = models.StatusApproved
	user.SuspendedAt = nil
	user.SuspensionReason = nil
	user.ReactivatedAt = &now

	if err := s.adapter.Store().Users.Update(ctx, user); err != nil {
		return nil, err
	}
	s.logAdminAction(models.ActionUserReactivated, user.ID, nil)
	return user, nil
}

func (s *approvalService) RequestAccess(ctx context.Context, name, email, company, reason, ip string) (*models.AccessRequest, error) {
	if strings.TrimSpace(name) == "" || strings.TrimSpace(company) == "" || strings.TrimSpace(reason) == "" {
		return nil, models.NewValidationError("request", "name, company and reason are required")
	}
	if strings.TrimSpace(email) == "" || !strings.Contains(email, "@") {
		return nil, models.NewValidationError("email", "a valid email is required")
	}

	req := &models.AccessRequest{
		ID:        uuid.New(),
		Name:      name,
		Email:     email,
		Company:   company,
		Reason:    reason,
		CreatedAt: s.now(),
	}
	if ip != "" {
		req.IP = &ip
	}

	if err := s.adapter.Store().Requests.Create(ctx, req); err != nil {
		return nil, err
	}

	s.activitySvc.Append(&models.ActivityRecord{Action: models.ActionAccessRequested, IP: req.IP})
	s.notifySvc.AccessRequested(ctx, req)
	return req, nil
}

// ProcessAccessRequest terminal-mutates a request exactly once. Approving
// creates the user directly in the approved state, sourced from the request
// fields — the one case where an account skips pending.
func (s *approvalService) ProcessAccessRequest(ctx context.Context, requestID uuid.UUID, approve bool, notes, adminActor string) (*models.AccessRequest, error) {
	updated, err := s.adapter.Store().Requests.MarkProcessed(ctx, requestID, approve, notes, adminActor)
	if err != nil {
		return nil, err
	}
	if !updated {
		return nil, models.ErrAlreadyProcessed
	}

	req, err := s.adapter.Store().Requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}

	if approve {
		_, err := s.adapter.CreateApprovedAccount(ctx, backend.Profile{
			Email:   req.Email,
			Name:    req.Name,
			Company: req.Company,
		}, adminActor)
		if err != nil {
			return nil, err
		}
	}

	s.logAdminAction(models.ActionAccessRequestProcessed, uuid.Nil, &notes)
	return req, nil
}

func (s *approvalService) ListUsers(ctx context.Context, status string, limit, offset int) ([]*models.User, error) {
	if limit <= 0 || limit > 200 {
		limit = DefaultQueryLimit
	}
	return s.adapter.Store().Users.List(ctx, status, limit, offset)
}

func (s *approvalService) ListAccessRequests(ctx context.Context, onlyUnprocessed bool, limit, offset int) ([]*models.AccessRequest, error) {
	if limit <= 0 || limit > 200 {
		limit = DefaultQueryLimit
	}
	return s.adapter.Store().Requests.List(ctx, onlyUnprocessed, limit, offset)
}

func (s *approvalService) Stats(ctx context.Context) (*models.Stats, error) {
	cached := &models.Stats{}
	if hit, err := s.cacheSvc.GetJSON(ctx, "stats", cached); err == nil && hit {
		return cached, nil
	}

	counts, err := s.adapter.Store().Users.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}

	stats := &models.Stats{
		PendingUsers:   counts[models.StatusPending],
		ApprovedUsers:  counts[models.StatusApproved],
		RejectedUsers:  counts[models.StatusRejected],
		SuspendedUsers: counts[models.StatusSuspended],
	}
	for _, n := range counts {
		stats.TotalUsers += n
	}

	if today, err := s.activitySvc.CountToday(ctx); err == nil {
		stats.TodayActivities = today
	}

	// stale stats are fine for a dashboard widget
	_ = s.cacheSvc.SetJSON(ctx, "stats", stats, statsCacheTTL)
	return stats, nil
}

// logAdminAction appends an admin-triggered record referring to the target
// entity. Best-effort by contract.
func (s *approvalService) logAdminAction(action string, targetID uuid.UUID, reason *string) {
	rec := &models.ActivityRecord{Action: action, Reason: reason}
	if targetID != uuid.Nil {
		id := targetID
		rec.UserID = &id
	}
	s.activitySvc.Append(rec)
}
