package cleanup

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"file_cleanup/internal/config"
	"file_cleanup/internal/database"
	"file_cleanup/internal/resource"
)

type fixture struct {
	root     string
	db       *database.DB
	registry *resource.Registry
	storage  *resource.Storage
	events   *resource.Dispatcher
}

// newFixture creates storage 1 on a temp directory holding files
// (identifier => content) and an empty database.
func newFixture(t *testing.T, files map[string]string) *fixture {
	t.Helper()
	ctx := context.Background()

	fx := &fixture{root: t.TempDir(), events: resource.NewDispatcher()}
	for identifier := range files {
		fx.write(t, identifier, files[identifier])
	}

	db, err := database.New(database.DriverSQLite, filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	fx.db = db

	cfg := &config.Config{
		Storages: []config.StorageConfig{
			{ID: 1, Name: "fileadmin", Driver: config.StorageDriverLocal, Path: fx.root, PublicURL: "/fileadmin/"},
		},
	}
	registry, err := resource.OpenRegistry(ctx, cfg, db, fx.events)
	require.NoError(t, err)
	t.Cleanup(func() { registry.Close() })
	fx.registry = registry

	fx.storage, err = registry.Storage(1)
	require.NoError(t, err)
	return fx
}

func (fx *fixture) write(t *testing.T, identifier, content string) {
	t.Helper()
	p := filepath.Join(fx.root, filepath.FromSlash(identifier))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0644))
}

func (fx *fixture) touch(t *testing.T, identifier string, mtime time.Time) {
	t.Helper()
	p := filepath.Join(fx.root, filepath.FromSlash(identifier))
	require.NoError(t, os.Chtimes(p, mtime, mtime))
}

func (fx *fixture) exists(identifier string) bool {
	_, err := os.Stat(filepath.Join(fx.root, filepath.FromSlash(identifier)))
	return err == nil
}

// uid indexes identifier and returns its uid.
func (fx *fixture) uid(t *testing.T, identifier string) int64 {
	t.Helper()
	rec, err := fx.db.IndexFile(context.Background(), 1, identifier, path.Base(identifier), 0, 0)
	require.NoError(t, err)
	return rec.UID
}

func (fx *fixture) folder(t *testing.T, identifier string) *resource.Folder {
	t.Helper()
	f, err := fx.storage.Folder(context.Background(), identifier)
	require.NoError(t, err)
	return f
}

func (fx *fixture) reference(t *testing.T, identifier string, n int) {
	t.Helper()
	uid := fx.uid(t, identifier)
	for i := 0; i < n; i++ {
		require.NoError(t, fx.db.InsertRefIndex(context.Background(), database.RefIndexRow{
			Tablename: "tt_content", RecUID: int64(i + 1), Field: "image", RefTable: "sys_file", RefUID: uid,
		}))
	}
}

func (fx *fixture) repository(t *testing.T, opts RepositoryOptions) *Repository {
	t.Helper()
	return NewRepository(fx.db, fx.registry, opts)
}

func defaultOptions() RepositoryOptions {
	return RepositoryOptions{FileDenyPattern: MustCompilePattern(config.DefaultFileNameDenyPattern)}
}

func identifiers(files []*UnusedFile) []string {
	var out []string
	for _, f := range files {
		out = append(out, f.File().Identifier())
	}
	return out
}

func fileIdentifiers(files []*resource.File) []string {
	var out []string
	for _, f := range files {
		out = append(out, f.Identifier())
	}
	return out
}
