package cleanup

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"file_cleanup/internal/resource"
)

func TestMoverCreatesRecyclerFolder(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t, map[string]string{
		"/images/logo.png":    "logo",
		"/images/gallery.png": "gallery",
	})

	unused, err := fx.repository(t, defaultOptions()).FindUnusedFiles(ctx, fx.folder(t, "/images/"), ScanOptions{})
	require.NoError(t, err)
	require.Len(t, unused, 2)

	moved, failures := NewMover(nil).MoveAll(ctx, unused)
	assert.Equal(t, 2, moved)
	assert.Empty(t, failures)

	assert.True(t, fx.exists("/images/_recycler_/logo.png"))
	assert.True(t, fx.exists("/images/_recycler_/gallery.png"))
	assert.False(t, fx.exists("/images/logo.png"))

	// Recycled files are no longer candidates
	unused, err = fx.repository(t, defaultOptions()).FindUnusedFiles(ctx, fx.folder(t, "/images/"), ScanOptions{Recursive: true})
	require.NoError(t, err)
	assert.Empty(t, unused)
}

func TestMoverKeepsExistingRecycledFile(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t, map[string]string{
		"/logo.png":            "new",
		"/_recycler_/logo.png": "old",
	})

	unused, err := fx.repository(t, defaultOptions()).FindUnusedFiles(ctx, fx.storage.RootFolder(), ScanOptions{})
	require.NoError(t, err)
	require.Len(t, unused, 1)

	moved, err := NewMover(nil).Move(ctx, unused[0].File())
	require.NoError(t, err)
	assert.Equal(t, "/_recycler_/logo_01.png", moved.Identifier())

	content, err := os.ReadFile(filepath.Join(fx.root, "_recycler_", "logo.png"))
	require.NoError(t, err)
	assert.Equal(t, "old", string(content))
}

func TestMoverStampsLastMoveThroughListener(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t, map[string]string{"/a.pdf": "a"})

	stamped := time.Unix(1700000000, 0)
	fx.events.OnFileMoved(func(ctx context.Context, ev resource.FileMovedEvent) error {
		return fx.db.SetLastMove(ctx, ev.File.UID(), stamped.Unix())
	})

	unused, err := fx.repository(t, defaultOptions()).FindUnusedFiles(ctx, fx.storage.RootFolder(), ScanOptions{})
	require.NoError(t, err)
	require.Len(t, unused, 1)

	_, err = NewMover(nil).Move(ctx, unused[0].File())
	require.NoError(t, err)

	files, err := fx.repository(t, defaultOptions()).FindRecyclerFiles(ctx, fx.storage.RootFolder(), false, nil)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, stamped, files[0].LastMove())
	assert.Equal(t, stamped, RecycledTime(files[0]))
}

func TestMoverReportsMissingFiles(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t, map[string]string{"/gone.txt": "x", "/kept.txt": "y"})

	unused, err := fx.repository(t, defaultOptions()).FindUnusedFiles(ctx, fx.storage.RootFolder(), ScanOptions{})
	require.NoError(t, err)
	require.Len(t, unused, 2)

	require.NoError(t, os.Remove(filepath.Join(fx.root, "gone.txt")))

	moved, failures := NewMover(nil).MoveAll(ctx, unused)
	assert.Equal(t, 1, moved)
	require.Len(t, failures, 1)
	assert.Equal(t, "gone.txt", failures[0].Name)
	assert.True(t, errors.Is(failures[0].Err, resource.ErrFileNotFound))
	assert.Contains(t, failures[0].Message(), "gone.txt [")
}

func TestMoverPermissionDenied(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced for root")
	}

	ctx := context.Background()
	fx := newFixture(t, map[string]string{"/locked/a.txt": "a"})

	unused, err := fx.repository(t, defaultOptions()).FindUnusedFiles(ctx, fx.folder(t, "/locked/"), ScanOptions{})
	require.NoError(t, err)
	require.Len(t, unused, 1)

	locked := filepath.Join(fx.root, "locked")
	require.NoError(t, os.Chmod(locked, 0555))
	t.Cleanup(func() { os.Chmod(locked, 0755) })

	_, err = NewMover(nil).Move(ctx, unused[0].File())
	assert.ErrorIs(t, err, resource.ErrPermission)
}

func TestPurgerDeleteAll(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t, map[string]string{
		"/_recycler_/a.txt": "a",
		"/_recycler_/b.txt": "b",
	})

	files, err := fx.repository(t, defaultOptions()).FindRecyclerFiles(ctx, fx.storage.RootFolder(), false, nil)
	require.NoError(t, err)
	require.Len(t, files, 2)

	require.NoError(t, os.Remove(filepath.Join(fx.root, "_recycler_", "b.txt")))

	deleted, failures := NewPurger(NewLimiter(1000)).DeleteAll(ctx, files)
	assert.Equal(t, 1, deleted)
	require.Len(t, failures, 1)
	assert.Equal(t, "b.txt", failures[0].Name)
	assert.False(t, fx.exists("/_recycler_/a.txt"))
}

func TestNewLimiter(t *testing.T) {
	assert.Nil(t, NewLimiter(0))
	assert.Nil(t, NewLimiter(-1))
	assert.NotNil(t, NewLimiter(5))
}
