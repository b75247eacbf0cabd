package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"file_cleanup/internal/config"
	"file_cleanup/internal/logger"
)

// Runner is what the scheduler triggers; *Service implements it.
type Runner interface {
	Cleanup(ctx context.Context, req CleanupRequest) (*CleanupReport, error)
	EmptyRecycler(ctx context.Context, req PurgeRequest) (*PurgeReport, error)
}

// Scheduler runs cleanups and recycler purges on cron schedules. Jobs never
// overlap: a run still in progress when the next one is due skips it.
type Scheduler struct {
	runner  Runner
	cfg     config.ScheduleConfig
	cron    *cron.Cron
	jobMu   sync.Mutex
	mu      sync.Mutex
	running bool
}

func NewScheduler(runner Runner, cfg config.ScheduleConfig) *Scheduler {
	cronLogger := cron.PrintfLogger(logger.Info)
	return &Scheduler{
		runner: runner,
		cfg:    cfg,
		cron:   cron.New(cron.WithChain(cron.SkipIfStillRunning(cronLogger))),
	}
}

// Start validates and registers the configured schedules and starts the cron
// loop. Empty schedules are skipped. The scheduler stops when ctx is done.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cfg.Cleanup == "" && s.cfg.EmptyRecycler == "" {
		return fmt.Errorf("no schedule configured (set SCHEDULE_CLEANUP or SCHEDULE_EMPTY_RECYCLER)")
	}

	if s.cfg.Cleanup != "" {
		if err := s.add(s.cfg.Cleanup, func() { s.runCleanup(ctx) }); err != nil {
			return err
		}
		logger.Info.Printf("Scheduled cleanup of %s at %q (age: %s)", s.cfg.Folder, s.cfg.Cleanup, s.cfg.CleanupAge)
	}
	if s.cfg.EmptyRecycler != "" {
		if err := s.add(s.cfg.EmptyRecycler, func() { s.runEmptyRecycler(ctx) }); err != nil {
			return err
		}
		logger.Info.Printf("Scheduled recycler purge of %s at %q (age: %s)", s.cfg.Folder, s.cfg.EmptyRecycler, s.cfg.RecyclerAge)
	}

	s.cron.Start()
	s.running = true

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

func (s *Scheduler) add(spec string, job func()) error {
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", spec, err)
	}
	if _, err := s.cron.AddFunc(spec, job); err != nil {
		return fmt.Errorf("failed to schedule %q: %w", spec, err)
	}
	return nil
}

func (s *Scheduler) runCleanup(ctx context.Context) {
	s.jobMu.Lock()
	defer s.jobMu.Unlock()

	logger.Info.Printf("Starting scheduled cleanup of %s", s.cfg.Folder)
	report, err := s.runner.Cleanup(ctx, CleanupRequest{
		Folder:    s.cfg.Folder,
		Age:       s.cfg.CleanupAge,
		Recursive: s.cfg.Recursive,
	})
	if err != nil {
		logger.Error.Printf("Scheduled cleanup failed: %v", err)
		return
	}
	logger.Info.Printf("Scheduled cleanup completed: %s", report.Summary())
}

func (s *Scheduler) runEmptyRecycler(ctx context.Context) {
	s.jobMu.Lock()
	defer s.jobMu.Unlock()

	logger.Info.Printf("Starting scheduled recycler purge of %s", s.cfg.Folder)
	report, err := s.runner.EmptyRecycler(ctx, PurgeRequest{
		Folder:    s.cfg.Folder,
		Age:       s.cfg.RecyclerAge,
		Recursive: s.cfg.Recursive,
	})
	if err != nil {
		logger.Error.Printf("Scheduled recycler purge failed: %v", err)
		return
	}
	logger.Info.Printf("Scheduled recycler purge completed: %s", report.Summary())
}

// Stop stops the scheduler and waits for running jobs to complete.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		<-s.cron.Stop().Done()
		s.running = false
		logger.Info.Println("Scheduler stopped")
	}
}

func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// NextRun returns the earliest upcoming job time, or nil when nothing is
// scheduled.
func (s *Scheduler) NextRun() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	var next *time.Time
	for _, e := range s.cron.Entries() {
		if e.Next.IsZero() {
			continue
		}
		if next == nil || e.Next.Before(*next) {
			t := e.Next
			next = &t
		}
	}
	return next
}
