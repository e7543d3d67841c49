package background

import (
	"context"
	"log"
	"sync"
	"time"

	"provdesk/internal/services"

	"github.com/go-co-op/gocron/v2"
)

// JobScheduler owns the recurring maintenance work: token cleanup, the
// daily activity archive and the stats cache warm-up.
type JobScheduler struct {
	scheduler   gocron.Scheduler
	authSvc     services.AuthService
	activitySvc services.ActivityService
	approvalSvc services.ApprovalService
	jobs        map[string]gocron.Job
	mu          sync.RWMutex
}

func NewJobScheduler(authSvc services.AuthService, activitySvc services.ActivityService, approvalSvc services.ApprovalService) *JobScheduler {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		log.Fatalf("Failed to create scheduler: %v", err)
	}

	js := &JobScheduler{
		scheduler:   scheduler,
		authSvc:     authSvc,
		activitySvc: activitySvc,
		approvalSvc: approvalSvc,
		jobs:        make(map[string]gocron.Job),
	}

	js.registerJobs()
	return js
}

func (js *JobScheduler) Start() error {
	log.Printf("Starting background job scheduler")
	js.scheduler.Start()
	return nil
}

func (js *JobScheduler) Stop() error {
	log.Printf("Stopping background job scheduler")
	return js.scheduler.Shutdown()
}

func (js *JobScheduler) registerJobs() {
	tokenJob, err := js.scheduler.NewJob(
		gocron.DurationJob(1*time.Hour),
		gocron.NewTask(js.cleanupTokens),
		gocron.WithName("token-cleanup"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		log.Printf("Failed to create token cleanup job: %v", err)
	} else {
		js.register("token-cleanup", tokenJob)
	}

	archiveJob, err := js.scheduler.NewJob(
		gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(2, 0, 0))),
		gocron.NewTask(js.exportActivities),
		gocron.WithName("activity-archive"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		log.Printf("Failed to create activity archive job: %v", err)
	} else {
		js.register("activity-archive", archiveJob)
	}

	statsJob, err := js.scheduler.NewJob(
		gocron.DurationJob(5*time.Minute),
		gocron.NewTask(js.warmStatsCache),
		gocron.WithName("stats-cache-warm"),
	)
	if err != nil {
		log.Printf("Failed to create stats warm job: %v", err)
	} else {
		js.register("stats-cache-warm", statsJob)
	}
}

func (js *JobScheduler) register(name string, job gocron.Job) {
	js.mu.Lock()
	defer js.mu.Unlock()
	js.jobs[name] = job
}

func (js *JobScheduler) cleanupTokens() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := js.authSvc.CleanupExpiredTokens(ctx); err != nil {
		log.Printf("Token cleanup failed: %v", err)
	}
}

func (js *JobScheduler) exportActivities() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	object, err := js.activitySvc.ExportSnapshot(ctx)
	if err != nil {
		log.Printf("Activity archive failed: %v", err)
		return
	}
	log.Printf("Activity archive written: %s", object)
}

func (js *JobScheduler) warmStatsCache() {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if _, err := js.approvalSvc.Stats(ctx); err != nil {
		log.Printf("Stats cache warm failed: %v", err)
	}
}
