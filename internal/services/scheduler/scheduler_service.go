package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/placefinder/internal/common"
	"github.com/ternarybob/placefinder/internal/models"
)

// Reloader rebuilds the served indices
type Reloader interface {
	Reload(ctx context.Context) (*models.IndexManifest, error)
}

// Service runs index reloads on a cron schedule
type Service struct {
	reloader Reloader
	timeout  time.Duration
	cron     *cron.Cron
	logger   arbor.ILogger

	mu           sync.Mutex // Protects isProcessing, running, lastRun, lastError
	isProcessing bool
	running      bool
	entryID      cron.EntryID
	lastRun      *time.Time
	lastError    string
}

// NewService creates a reload scheduler. timeout bounds a single reload (0 = none).
func NewService(reloader Reloader, timeout time.Duration, logger arbor.ILogger) *Service {
	return &Service{
		reloader: reloader,
		timeout:  timeout,
		cron:     cron.New(),
		logger:   logger,
	}
}

// Start schedules reloads with a five-field cron expression
func (s *Service) Start(cronExpr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler already running")
	}
	if err := common.ValidateReloadSchedule(cronExpr); err != nil {
		return err
	}

	id, err := s.cron.AddFunc(cronExpr, s.runScheduledReload)
	if err != nil {
		return fmt.Errorf("failed to add cron job: %w", err)
	}
	s.entryID = id
	s.cron.Start()
	s.running = true

	s.logger.Info().
		Str("cron_expr", cronExpr).
		Str("next_run", s.cron.Entry(id).Next.Format(time.RFC3339)).
		Msg("Index reload scheduler started")

	return nil
}

// Stop halts the scheduler and waits for a running reload to finish
func (s *Service) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	<-s.cron.Stop().Done()
	s.logger.Info().Msg("Index reload scheduler stopped")
	return nil
}

// LastRun returns when the last scheduled reload finished and its error, if any
func (s *Service) LastRun() (*time.Time, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRun, s.lastError
}

func (s *Service) runScheduledReload() {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().
				Str("panic", fmt.Sprintf("%v", r)).
				Msg("Panic recovered in scheduled reload")
		}
	}()

	s.mu.Lock()
	if s.isProcessing {
		s.mu.Unlock()
		s.logger.Debug().Msg("Previous reload still running, skipping this cycle")
		return
	}
	s.isProcessing = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.isProcessing = false
		s.mu.Unlock()
	}()

	ctx := context.Background()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	manifest, err := s.reloader.Reload(ctx)

	now := time.Now()
	s.mu.Lock()
	s.lastRun = &now
	s.lastError = ""
	if err != nil {
		s.lastError = err.Error()
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Error().Err(err).Dur("duration", time.Since(start)).Msg("Scheduled index reload failed")
		return
	}

	s.logger.Info().
		Str("generation", manifest.Generation).
		Int("records", manifest.Total()).
		Dur("duration", time.Since(start)).
		Msg("Scheduled index reload completed")
}
