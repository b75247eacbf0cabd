package cleanup

import (
	"context"
	"time"
)

// ReferenceStore counts the database rows using a file.
type ReferenceStore interface {
	CountRefIndex(ctx context.Context, fileUID int64) (int, error)
	CountFileReferences(ctx context.Context, fileUID int64) (int, error)
	LastReferenceRemoval(ctx context.Context, fileUID int64) (int64, error)
}

// ReferenceTimes caches the last reference removal per file for the
// duration of one scan. It is not safe for concurrent use.
type ReferenceTimes struct {
	store ReferenceStore
	times map[int64]time.Time
}

func NewReferenceTimes(store ReferenceStore) *ReferenceTimes {
	return &ReferenceTimes{store: store, times: make(map[int64]time.Time)}
}

// LastRemoval returns when a reference to the file was last removed, the
// zero time when none ever was.
func (r *ReferenceTimes) LastRemoval(ctx context.Context, uid int64) (time.Time, error) {
	if t, ok := r.times[uid]; ok {
		return t, nil
	}

	ts, err := r.store.LastReferenceRemoval(ctx, uid)
	if err != nil {
		return time.Time{}, err
	}

	var t time.Time
	if ts > 0 {
		t = time.Unix(ts, 0)
	}
	r.times[uid] = t
	return t, nil
}
