package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"provdesk/internal/models"
	"provdesk/internal/repositories"

	"github.com/google/uuid"
)

const (
	// DefaultQueryLimit caps ledger queries when callers pass no limit.
	DefaultQueryLimit = 50
	// RecentActivityLimit is what the dashboard widgets ask for.
	RecentActivityLimit = 10

	appendQueueSize = 256
	appendTimeout   = 5 * time.Second
)

// ActivityService is the append-only audit ledger. Appends are best-effort:
// they are handed to a background worker and a write failure is logged, never
// propagated, so audit trouble cannot fail a login or an admin action.
type ActivityService interface {
	// Append enqueues a record without blocking. A full queue drops the
	// record with a log line rather than stalling the caller.
	Append(rec *models.ActivityRecord)
	Query(ctx context.Context, filter *models.ActivityFilter, limit int) ([]*models.ActivityRecord, error)
	CountToday(ctx context.Context) (int, error)
	// ExportSnapshot serializes the most recent ledger window and archives
	// it in object storage. Run daily by the scheduler.
	ExportSnapshot(ctx context.Context) (string, error)
	// Close drains the queue. Only tests and shutdown call it.
	Close()
}

type activityService struct {
	repo     repositories.ActivityRepository
	archive  ArchiveService
	bucket   string
	queue    chan *models.ActivityRecord
	wg       sync.WaitGroup
	stopOnce sync.Once
}

func NewActivityService(repo repositories.ActivityRepository, archive ArchiveService, bucket string) ActivityService {
	s := &activityService{
		repo:    repo,
		archive: archive,
		bucket:  bucket,
		queue:   make(chan *models.ActivityRecord, appendQueueSize),
	}
	s.wg.Add(1)
	go s.worker()
	return s
}

func (s *activityService) worker() {
	defer s.wg.Done()
	for rec := range s.queue {
		ctx, cancel := context.WithTimeout(context.Background(), appendTimeout)
		if err := s.repo.Create(ctx, rec); err != nil {
			log.Printf("Failed to write activity record (%s): %v", rec.Action, err)
		}
		cancel()
	}
}

func (s *activityService) Append(rec *models.ActivityRecord) {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	select {
	case s.queue <- rec:
	default:
		log.Printf("Activity queue full, dropping record (%s)", rec.Action)
	}
}

func (s *activityService) Query(ctx context.Context, filter *models.ActivityFilter, limit int) ([]*models.ActivityRecord, error) {
	if limit <= 0 || limit > 1000 {
		limit = DefaultQueryLimit
	}
	return s.repo.Query(ctx, filter, limit)
}

func (s *activityService) CountToday(ctx context.Context) (int, error) {
	midnight := time.Now().Truncate(24 * time.Hour)
	return s.repo.CountSince(ctx, midnight.Format(time.RFC3339))
}

func (s *activityService) ExportSnapshot(ctx context.Context) (string, error) {
	if s.archive == nil {
		return "", ErrArchiveDisabled
	}
	since := time.Now().Add(-24 * time.Hour)
	records, err := s.repo.Query(ctx, &models.ActivityFilter{Since: &since}, 1000)
	if err != nil {
		return "", fmt.Errorf("failed to read ledger for export: %w", err)
	}

	data, err := json.Marshal(records)
	if err != nil {
		return "", err
	}

	objectName := fmt.Sprintf("activity/%s.json", time.Now().Format("2006-01-02"))
	if err := s.archive.Upload(ctx, s.bucket, objectName, data); err != nil {
		return "", fmt.Errorf("failed to archive ledger snapshot: %w", err)
	}
	return objectName, nil
}

func (s *activityService) Close() {
	s.stopOnce.Do(func() {
		close(s.queue)
		s.wg.Wait()
	})
}
