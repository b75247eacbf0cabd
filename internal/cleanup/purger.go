package cleanup

import (
	"context"

	"golang.org/x/time/rate"

	"file_cleanup/internal/logger"
	"file_cleanup/internal/resource"
)

// Purger permanently deletes recycled files.
type Purger struct {
	limiter *rate.Limiter
}

// NewPurger creates a purger throttled by limiter; nil means unlimited.
func NewPurger(limiter *rate.Limiter) *Purger {
	return &Purger{limiter: limiter}
}

func (p *Purger) Delete(ctx context.Context, f *resource.File) error {
	if err := wait(ctx, p.limiter); err != nil {
		return err
	}
	return f.Storage().DeleteFile(ctx, f)
}

// DeleteAll deletes every file, continuing past failures.
func (p *Purger) DeleteAll(ctx context.Context, files []*resource.File) (int, []Failure) {
	var (
		deleted  int
		failures []Failure
	)
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			failures = append(failures, newFailure(f, err))
			continue
		}
		if err := p.Delete(ctx, f); err != nil {
			logger.LogFileSkipped("Purging", f.CombinedIdentifier(), err)
			failures = append(failures, newFailure(f, err))
			continue
		}
		deleted++
	}
	return deleted, failures
}
