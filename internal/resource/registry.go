package resource

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"file_cleanup/internal/config"
	"file_cleanup/internal/logger"
)

// Registry holds the configured storages by id.
type Registry struct {
	index    Index
	storages map[int]*Storage
	order    []int
}

func NewRegistry(index Index) *Registry {
	return &Registry{
		index:    index,
		storages: make(map[int]*Storage),
	}
}

// OpenRegistry creates a driver and storage for every configured storage.
func OpenRegistry(ctx context.Context, cfg *config.Config, index Index, events *Dispatcher) (*Registry, error) {
	r := NewRegistry(index)

	for _, sc := range cfg.Storages {
		driver, err := openDriver(ctx, sc)
		if err != nil {
			r.Close()
			return nil, fmt.Errorf("failed to open storage %d: %w", sc.ID, err)
		}

		s := NewStorage(Options{
			ID:                sc.ID,
			Name:              sc.Name,
			Driver:            driver,
			Index:             index,
			PublicURL:         sc.PublicURL,
			ProcessedPatterns: cfg.ProcessedFolderPatterns,
			Events:            events,
		})
		if err := r.Add(s); err != nil {
			driver.Close()
			r.Close()
			return nil, err
		}
		logger.Debug.Printf("Opened %s storage %d (%s)", s.Type(), s.ID(), s.Name())
	}

	return r, nil
}

func openDriver(ctx context.Context, sc config.StorageConfig) (Driver, error) {
	switch sc.Driver {
	case config.StorageDriverLocal:
		return NewLocalDriver(sc.Path)
	case config.StorageDriverS3:
		return NewS3Driver(ctx, S3Config{
			Bucket:    sc.Bucket,
			Prefix:    sc.Prefix,
			Region:    sc.Region,
			Endpoint:  sc.Endpoint,
			AccessKey: sc.AccessKey,
			SecretKey: sc.SecretKey,
		})
	default:
		return nil, fmt.Errorf("unknown storage driver %q", sc.Driver)
	}
}

// Add registers s. The first storage added is the default one.
func (r *Registry) Add(s *Storage) error {
	if _, ok := r.storages[s.ID()]; ok {
		return fmt.Errorf("storage %d registered twice", s.ID())
	}
	r.storages[s.ID()] = s
	r.order = append(r.order, s.ID())
	return nil
}

func (r *Registry) Storage(id int) (*Storage, error) {
	s, ok := r.storages[id]
	if !ok {
		return nil, fmt.Errorf("storage %d: %w", id, ErrStorageNotFound)
	}
	return s, nil
}

// Storages returns the storages in registration order.
func (r *Registry) Storages() []*Storage {
	out := make([]*Storage, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.storages[id])
	}
	return out
}

func (r *Registry) Default() (*Storage, error) {
	if len(r.order) == 0 {
		return nil, ErrStorageNotFound
	}
	return r.storages[r.order[0]], nil
}

// Folder resolves a combined identifier such as "1:/images/" or a bare path.
func (r *Registry) Folder(ctx context.Context, combined string) (*Folder, error) {
	id, identifier := ParseCombinedIdentifier(combined)
	s, err := r.Storage(id)
	if err != nil {
		return nil, err
	}
	return s.Folder(ctx, identifier)
}

// FileByUID resolves an index uid to a stored file.
func (r *Registry) FileByUID(ctx context.Context, uid int64) (*File, error) {
	rec, err := r.index.FileByUID(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("file %s: %w", strconv.FormatInt(uid, 10), err)
	}
	s, err := r.Storage(rec.Storage)
	if err != nil {
		return nil, err
	}
	return s.FileByRecord(ctx, rec)
}

func (r *Registry) Close() error {
	var errs []error
	for _, id := range r.order {
		if err := r.storages[id].driver.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
