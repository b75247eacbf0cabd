package cleanup

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/time/rate"

	"file_cleanup/internal/logger"
	"file_cleanup/internal/resource"
)

// Failure records a file an operation could not process.
type Failure struct {
	Name       string
	Identifier string
	Err        error
}

// Message is the file name followed by the error, as shown to users.
func (f Failure) Message() string {
	return fmt.Sprintf("%s [%v]", f.Name, f.Err)
}

func newFailure(f *resource.File, err error) Failure {
	return Failure{Name: f.Name(), Identifier: f.CombinedIdentifier(), Err: err}
}

// NewLimiter returns a limiter allowing opsPerSecond storage mutations, or
// nil (unlimited) when opsPerSecond is not positive.
func NewLimiter(opsPerSecond float64) *rate.Limiter {
	if opsPerSecond <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(opsPerSecond), 1)
}

func wait(ctx context.Context, limiter *rate.Limiter) error {
	if limiter == nil {
		return nil
	}
	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter error: %w", err)
	}
	return nil
}

// Mover moves files into the recycler folder next to them.
type Mover struct {
	limiter *rate.Limiter
}

// NewMover creates a mover throttled by limiter; nil means unlimited.
func NewMover(limiter *rate.Limiter) *Mover {
	return &Mover{limiter: limiter}
}

// Move moves f into the recycler folder of its parent, creating the recycler
// folder first when needed. Errors keep resource.ErrPermission and
// resource.ErrFileNotFound in their chain.
func (m *Mover) Move(ctx context.Context, f *resource.File) (*resource.File, error) {
	if err := wait(ctx, m.limiter); err != nil {
		return nil, err
	}

	recycler, err := m.recyclerFor(ctx, f.Parent())
	if err != nil {
		return nil, err
	}

	moved, err := f.Storage().MoveFile(ctx, f, recycler)
	if err != nil {
		return nil, fmt.Errorf("move %s to recycler: %w", f.CombinedIdentifier(), err)
	}
	return moved, nil
}

func (m *Mover) recyclerFor(ctx context.Context, parent *resource.Folder) (*resource.Folder, error) {
	recycler, err := parent.Subfolder(ctx, resource.RecyclerFolderName)
	if err == nil {
		return recycler, nil
	}
	if !errors.Is(err, resource.ErrFolderNotFound) {
		return nil, err
	}

	recycler, err = parent.Storage().CreateFolder(ctx, parent, resource.RecyclerFolderName)
	if errors.Is(err, resource.ErrExists) {
		return parent.Subfolder(ctx, resource.RecyclerFolderName)
	}
	if err != nil {
		return nil, fmt.Errorf("create recycler folder in %s: %w", parent.ReadablePath(), err)
	}
	return recycler, nil
}

// MoveAll moves every file, continuing past failures.
func (m *Mover) MoveAll(ctx context.Context, files []*UnusedFile) (int, []Failure) {
	var (
		moved    int
		failures []Failure
	)
	for _, u := range files {
		if err := ctx.Err(); err != nil {
			failures = append(failures, newFailure(u.File(), err))
			continue
		}
		if _, err := m.Move(ctx, u.File()); err != nil {
			logger.LogFileSkipped("Recycling", u.File().CombinedIdentifier(), err)
			failures = append(failures, newFailure(u.File(), err))
			continue
		}
		moved++
	}
	return moved, failures
}
