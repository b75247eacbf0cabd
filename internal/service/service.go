// Package service runs cleanups on behalf of the CLI, the scheduler and the
// backend UI.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"file_cleanup/internal/cleanup"
	"file_cleanup/internal/config"
	"file_cleanup/internal/database"
	"file_cleanup/internal/logger"
	"file_cleanup/internal/resource"
	"file_cleanup/internal/slack"
)

var (
	ErrInvalidAge     = cleanup.ErrInvalidAge
	ErrUnknownFolder  = errors.New("unknown folder")
	ErrInvalidPattern = errors.New("invalid deny pattern")
)

type Service struct {
	db       *database.DB
	registry *resource.Registry
	events   *resource.Dispatcher
	repo     *cleanup.Repository
	mover    *cleanup.Mover
	purger   *cleanup.Purger
	slack    *slack.Client
	now      func() time.Time
}

// New opens the configured storages on db and wires the cleanup components.
func New(ctx context.Context, cfg *config.Config, db *database.DB) (*Service, error) {
	fileDeny, err := cleanup.CompilePattern(cfg.FileNameDenyPattern)
	if err != nil {
		return nil, fmt.Errorf("FILE_NAME_DENY_PATTERN: %w", err)
	}
	pathDeny, err := cleanup.CompilePattern(cfg.PathDenyPattern)
	if err != nil {
		return nil, fmt.Errorf("PATH_DENY_PATTERN: %w", err)
	}

	events := resource.NewDispatcher()
	registry, err := resource.OpenRegistry(ctx, cfg, db, events)
	if err != nil {
		return nil, err
	}

	limiter := cleanup.NewLimiter(cfg.OpsPerSecond)
	s := &Service{
		db:       db,
		registry: registry,
		events:   events,
		repo: cleanup.NewRepository(db, registry, cleanup.RepositoryOptions{
			FileDenyPattern:   fileDeny,
			PathDenyPattern:   pathDeny,
			IncludeScanFolder: cfg.CollectionIncludeScanFolder,
		}),
		mover:  cleanup.NewMover(limiter),
		purger: cleanup.NewPurger(limiter),
		now:    time.Now,
	}
	if cfg.SlackAPIToken != "" {
		s.slack = slack.NewClient(cfg.SlackAPIToken, cfg.SlackChannel)
	}

	s.registerListeners()
	return s, nil
}

func (s *Service) Close() error {
	return s.registry.Close()
}

func (s *Service) Registry() *resource.Registry {
	return s.registry
}

// ValidateNotifier checks the Slack token when reporting is enabled.
func (s *Service) ValidateNotifier(ctx context.Context) error {
	if s.slack == nil {
		return nil
	}
	auth, err := s.slack.ValidateAuth(ctx)
	if err != nil {
		return err
	}
	logger.Info.Printf("Reporting to Slack as %s (team: %s)", auth.User, auth.Team)
	return nil
}

// Folder resolves a combined folder identifier. Unknown storages and
// missing folders yield ErrUnknownFolder.
func (s *Service) Folder(ctx context.Context, combined string) (*resource.Folder, error) {
	folder, err := s.registry.Folder(ctx, combined)
	if errors.Is(err, resource.ErrFolderNotFound) || errors.Is(err, resource.ErrStorageNotFound) {
		return nil, fmt.Errorf("%w [%s]: %v", ErrUnknownFolder, combined, err)
	}
	if err != nil {
		return nil, err
	}
	return folder, nil
}

// DefaultFolder is the root folder of the first configured storage.
func (s *Service) DefaultFolder() (*resource.Folder, error) {
	storage, err := s.registry.Default()
	if err != nil {
		return nil, err
	}
	return storage.RootFolder(), nil
}

// FindUnused lists the unused files of a folder regardless of their age.
func (s *Service) FindUnused(ctx context.Context, folder *resource.Folder, recursive bool) ([]*cleanup.UnusedFile, error) {
	return s.repo.FindUnusedFiles(ctx, folder, cleanup.ScanOptions{
		Recursive:      recursive,
		ReferenceTimes: cleanup.NewReferenceTimes(s.db),
	})
}

// OpenFile opens the content of the file with uid.
func (s *Service) OpenFile(ctx context.Context, uid int64) (*resource.File, io.ReadCloser, error) {
	f, err := s.registry.FileByUID(ctx, uid)
	if err != nil {
		return nil, nil, err
	}
	r, err := f.Storage().Open(ctx, f)
	if err != nil {
		return nil, nil, err
	}
	return f, r, nil
}

func parseAge(raw string) (cleanup.Age, error) {
	if raw == "" {
		raw = cleanup.DefaultAge
	}
	return cleanup.ParseAge(raw)
}

// compileOptional compiles raw when set; nil leaves the configured default.
func compileOptional(raw *string) (*cleanup.Pattern, error) {
	if raw == nil {
		return nil, nil
	}
	p, err := cleanup.CompilePattern(*raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPattern, err)
	}
	return p, nil
}
