package service

import (
	"context"

	"file_cleanup/internal/resource"
)

// registerListeners stamps the move time of every file moved through a
// storage, so the purger can age recycled files from the moment they were
// recycled.
func (s *Service) registerListeners() {
	s.events.OnFileMoved(func(ctx context.Context, ev resource.FileMovedEvent) error {
		return s.db.SetLastMove(ctx, ev.File.UID(), ev.Time.Unix())
	})
}
