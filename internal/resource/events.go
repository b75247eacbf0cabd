package resource

import (
	"context"
	"sync"
	"time"

	"file_cleanup/internal/logger"
)

// FileMovedEvent is dispatched after a file was moved to another folder.
type FileMovedEvent struct {
	File   *File
	Source string // identifier before the move
	Time   time.Time
}

// FileDeletedEvent is dispatched after a file was removed from its storage.
type FileDeletedEvent struct {
	File *File
	Time time.Time
}

type (
	FileMovedListener   func(ctx context.Context, ev FileMovedEvent) error
	FileDeletedListener func(ctx context.Context, ev FileDeletedEvent) error
)

// Dispatcher fans storage events out to registered listeners. A failing
// listener is logged and does not undo the storage operation.
type Dispatcher struct {
	mu      sync.RWMutex
	moved   []FileMovedListener
	deleted []FileDeletedListener
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{}
}

func (d *Dispatcher) OnFileMoved(fn FileMovedListener) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.moved = append(d.moved, fn)
}

func (d *Dispatcher) OnFileDeleted(fn FileDeletedListener) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.deleted = append(d.deleted, fn)
}

func (d *Dispatcher) fileMoved(ctx context.Context, ev FileMovedEvent) {
	if d == nil {
		return
	}
	d.mu.RLock()
	listeners := append([]FileMovedListener(nil), d.moved...)
	d.mu.RUnlock()

	for _, fn := range listeners {
		if err := fn(ctx, ev); err != nil {
			logger.Error.Printf("File moved listener failed for %s: %v", ev.File.CombinedIdentifier(), err)
		}
	}
}

func (d *Dispatcher) fileDeleted(ctx context.Context, ev FileDeletedEvent) {
	if d == nil {
		return
	}
	d.mu.RLock()
	listeners := append([]FileDeletedListener(nil), d.deleted...)
	d.mu.RUnlock()

	for _, fn := range listeners {
		if err := fn(ctx, ev); err != nil {
			logger.Error.Printf("File deleted listener failed for %s: %v", ev.File.CombinedIdentifier(), err)
		}
	}
}
