package cron

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/ultraintel/counselor-api/services"
)

// CronManager schedules the background maintenance jobs
type CronManager struct {
	cron       *cron.Cron
	interviews *services.InterviewService
	sessionTTL time.Duration
}

// NewCronManager creates a new cron manager
func NewCronManager(interviews *services.InterviewService, sessionTTL time.Duration) *CronManager {
	// Seconds precision, matching the schedule expressions below
	c := cron.New(cron.WithSeconds())

	return &CronManager{
		cron:       c,
		interviews: interviews,
		sessionTTL: sessionTTL,
	}
}

// Start registers and starts all jobs
func (m *CronManager) Start() error {
	log.Println("Starting cron jobs...")

	// Every 10 minutes: finalize idle sessions
	_, err := m.cron.AddFunc("0 */10 * * * *", func() {
		m.logJobStart("expire_stale_sessions")
		m.ExpireStaleSessions()
	})
	if err != nil {
		return err
	}

	m.cron.Start()
	log.Println("Cron jobs started successfully")
	return nil
}

// Stop stops the scheduler and waits for running jobs
func (m *CronManager) Stop() {
	log.Println("Stopping cron jobs...")
	ctx := m.cron.Stop()
	<-ctx.Done()
	log.Println("Cron jobs stopped")
}

// ExpireStaleSessions closes interviews idle longer than the session TTL
func (m *CronManager) ExpireStaleSessions() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	expired := m.interviews.ExpireStale(ctx, m.sessionTTL)
	if expired > 0 {
		log.Printf("[CRON] finalized %d stale session(s)", expired)
	}
}

func (m *CronManager) logJobStart(jobName string) {
	log.Printf("[CRON] Running job: %s at %s", jobName, time.Now().Format(time.RFC3339))
}
