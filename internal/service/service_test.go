package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	slackapi "github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"file_cleanup/internal/config"
	"file_cleanup/internal/database"
	"file_cleanup/internal/slack"
)

type testEnv struct {
	root string
	db   *database.DB
	svc  *Service
}

func newTestEnv(t *testing.T, files map[string]string) *testEnv {
	t.Helper()

	env := &testEnv{root: t.TempDir()}
	for identifier, content := range files {
		env.write(t, identifier, content)
	}

	db, err := database.New(database.DriverSQLite, filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	env.db = db

	cfg := &config.Config{
		FileNameDenyPattern:     config.DefaultFileNameDenyPattern,
		ProcessedFolderPatterns: []string{"_processed_*"},
		Storages: []config.StorageConfig{
			{ID: 1, Name: "fileadmin", Driver: config.StorageDriverLocal, Path: env.root, PublicURL: "/fileadmin/"},
		},
	}
	svc, err := New(context.Background(), cfg, db)
	require.NoError(t, err)
	t.Cleanup(func() { svc.Close() })
	env.svc = svc
	return env
}

func (env *testEnv) path(identifier string) string {
	return filepath.Join(env.root, filepath.FromSlash(identifier))
}

func (env *testEnv) write(t *testing.T, identifier, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(env.path(identifier)), 0755))
	require.NoError(t, os.WriteFile(env.path(identifier), []byte(content), 0644))
}

func (env *testEnv) age(t *testing.T, d time.Duration, identifiers ...string) {
	t.Helper()
	mtime := time.Now().Add(-d)
	for _, identifier := range identifiers {
		require.NoError(t, os.Chtimes(env.path(identifier), mtime, mtime))
	}
}

func (env *testEnv) exists(identifier string) bool {
	_, err := os.Stat(env.path(identifier))
	return err == nil
}

func (env *testEnv) reference(t *testing.T, identifier string) {
	t.Helper()
	ctx := context.Background()
	rec, err := env.db.IndexFile(ctx, 1, identifier, filepath.Base(identifier), 0, 0)
	require.NoError(t, err)
	require.NoError(t, env.db.InsertRefIndex(ctx, database.RefIndexRow{
		Tablename: "tt_content", RecUID: 1, Field: "image", RefTable: "sys_file", RefUID: rec.UID,
	}))
}

func (env *testEnv) uid(t *testing.T, identifier string) int64 {
	t.Helper()
	rec, err := env.db.IndexFile(context.Background(), 1, identifier, filepath.Base(identifier), 0, 0)
	require.NoError(t, err)
	return rec.UID
}

func TestCleanupMovesUnusedFiles(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, map[string]string{
		"/images/logo.png":   "logo",
		"/images/hero.jpg":   "hero",
		"/images/index.html": "<html></html>",
	})
	env.age(t, 60*24*time.Hour, "/images/logo.png", "/images/hero.jpg", "/images/index.html")
	env.reference(t, "/images/hero.jpg")

	report, err := env.svc.Cleanup(ctx, CleanupRequest{Folder: "1:/images/", Age: "1 month"})
	require.NoError(t, err)

	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, "1:/images/", report.Folder)
	assert.Equal(t, 1, report.Found)
	require.Len(t, report.Eligible, 1)
	assert.Equal(t, "/images/logo.png", report.Eligible[0].File().Identifier())
	assert.Equal(t, 1, report.Moved)
	assert.Empty(t, report.Failures)

	assert.True(t, env.exists("/images/_recycler_/logo.png"))
	assert.True(t, env.exists("/images/hero.jpg"))
	assert.True(t, env.exists("/images/index.html"))

	lastMove, err := env.db.LastMove(ctx, report.Eligible[0].File().UID())
	require.NoError(t, err)
	assert.NotZero(t, lastMove)
}

func TestCleanupKeepsRecentFiles(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, map[string]string{
		"/docs/new.pdf": "new",
		"/docs/old.pdf": "old",
	})
	env.age(t, 60*24*time.Hour, "/docs/old.pdf")

	report, err := env.svc.Cleanup(ctx, CleanupRequest{Folder: "1:/docs/", Age: "1 month"})
	require.NoError(t, err)

	assert.Equal(t, 2, report.Found)
	assert.Equal(t, 1, report.Moved)
	assert.True(t, env.exists("/docs/new.pdf"))
	assert.True(t, env.exists("/docs/_recycler_/old.pdf"))
}

func TestCleanupNothingToMove(t *testing.T) {
	env := newTestEnv(t, map[string]string{"/docs/new.pdf": "new"})

	report, err := env.svc.Cleanup(context.Background(), CleanupRequest{Folder: "1:/docs/"})
	require.NoError(t, err)
	assert.Equal(t, 0, report.Moved)
	assert.Empty(t, report.Eligible)
	assert.Contains(t, report.Summary(), "Moved 0 file(s)")
}

func TestCleanupDryRunMatchesRealRun(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, map[string]string{
		"/a.txt":     "a",
		"/sub/b.txt": "b",
		"/sub/c.txt": "c",
	})
	env.age(t, 400*24*time.Hour, "/a.txt", "/sub/b.txt", "/sub/c.txt")
	env.reference(t, "/sub/c.txt")

	req := CleanupRequest{Folder: "1:/", Age: "1 year", Recursive: true, DryRun: true}
	dry, err := env.svc.Cleanup(ctx, req)
	require.NoError(t, err)
	assert.True(t, dry.DryRun)
	assert.Equal(t, 0, dry.Moved)
	assert.True(t, env.exists("/a.txt"))
	assert.True(t, env.exists("/sub/b.txt"))
	assert.Contains(t, dry.Summary(), "Dry run: 2 of 2")

	req.DryRun = false
	run, err := env.svc.Cleanup(ctx, req)
	require.NoError(t, err)

	var dryIDs, runIDs []string
	for _, u := range dry.Eligible {
		dryIDs = append(dryIDs, u.File().Identifier())
	}
	for _, u := range run.Eligible {
		runIDs = append(runIDs, u.File().Identifier())
	}
	assert.Equal(t, dryIDs, runIDs)
	assert.Equal(t, 2, run.Moved)
	assert.True(t, env.exists("/_recycler_/a.txt"))
	assert.True(t, env.exists("/sub/_recycler_/b.txt"))
}

func TestCleanupPatternOverrides(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, map[string]string{
		"/index.html": "x",
		"/keep.log":   "y",
	})
	env.age(t, 60*24*time.Hour, "/index.html", "/keep.log")

	fileDeny := "/\\.log$/"
	report, err := env.svc.Cleanup(ctx, CleanupRequest{Folder: "1:/", FileDenyPattern: &fileDeny, DryRun: true})
	require.NoError(t, err)
	require.Len(t, report.Eligible, 1)
	assert.Equal(t, "/index.html", report.Eligible[0].File().Identifier())

	empty := ""
	report, err = env.svc.Cleanup(ctx, CleanupRequest{Folder: "1:/", FileDenyPattern: &empty, DryRun: true})
	require.NoError(t, err)
	assert.Len(t, report.Eligible, 2)

	pathDeny := "#^/fileadmin/keep#"
	report, err = env.svc.Cleanup(ctx, CleanupRequest{Folder: "1:/", PathDenyPattern: &pathDeny, DryRun: true})
	require.NoError(t, err)
	assert.Empty(t, report.Eligible)
}

func TestCleanupRejectsInvalidInput(t *testing.T) {
	env := newTestEnv(t, map[string]string{"/images/logo.png": "logo"})
	env.age(t, 60*24*time.Hour, "/images/logo.png")

	badPattern := "/[/"
	tests := []struct {
		name string
		req  CleanupRequest
		want error
	}{
		{"invalid age", CleanupRequest{Folder: "1:/images/", Age: "soon"}, ErrInvalidAge},
		{"missing folder", CleanupRequest{Folder: "1:/missing/"}, ErrUnknownFolder},
		{"unknown storage", CleanupRequest{Folder: "9:/images/"}, ErrUnknownFolder},
		{"invalid pattern", CleanupRequest{Folder: "1:/images/", FileDenyPattern: &badPattern}, ErrInvalidPattern},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report, err := env.svc.Cleanup(context.Background(), tt.req)
			assert.ErrorIs(t, err, tt.want)
			assert.Nil(t, report)
			assert.True(t, env.exists("/images/logo.png"))
		})
	}
}

func TestEmptyRecyclerHonorsAge(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, map[string]string{"/images/logo.png": "logo"})
	env.age(t, 60*24*time.Hour, "/images/logo.png")

	// The file itself is old, but it was only just recycled
	moved, err := env.svc.Cleanup(ctx, CleanupRequest{Folder: "1:/images/"})
	require.NoError(t, err)
	require.Equal(t, 1, moved.Moved)

	env.svc.now = func() time.Time { return time.Now().Add(24 * time.Hour) }

	report, err := env.svc.EmptyRecycler(ctx, PurgeRequest{Folder: "1:/images/", Age: "1 month"})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Found)
	assert.Empty(t, report.Eligible)
	assert.Equal(t, 0, report.Deleted)
	assert.True(t, env.exists("/images/_recycler_/logo.png"))

	report, err = env.svc.EmptyRecycler(ctx, PurgeRequest{Folder: "1:/images/", Age: "0 days", DryRun: true})
	require.NoError(t, err)
	assert.Len(t, report.Eligible, 1)
	assert.Equal(t, 0, report.Deleted)
	assert.True(t, env.exists("/images/_recycler_/logo.png"))

	report, err = env.svc.EmptyRecycler(ctx, PurgeRequest{Folder: "1:/images/", Age: "0 days"})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Deleted)
	assert.Empty(t, report.Failures)
	assert.False(t, env.exists("/images/_recycler_/logo.png"))
}

func TestEmptyRecyclerRecursive(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, map[string]string{
		"/_recycler_/a.txt":          "a",
		"/sub/_recycler_/b.txt":      "b",
		"/sub/_recycler_/index.html": "c",
	})
	env.svc.now = func() time.Time { return time.Now().Add(time.Hour) }

	report, err := env.svc.EmptyRecycler(ctx, PurgeRequest{Folder: "1:/", Age: "0 days"})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Deleted)
	assert.True(t, env.exists("/sub/_recycler_/b.txt"))

	report, err = env.svc.EmptyRecycler(ctx, PurgeRequest{Folder: "1:/", Age: "0 days", Recursive: true})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Deleted)
	assert.False(t, env.exists("/sub/_recycler_/b.txt"))
	assert.True(t, env.exists("/sub/_recycler_/index.html"))
}

func TestEmptyRecyclerRejectsInvalidAge(t *testing.T) {
	env := newTestEnv(t, map[string]string{"/_recycler_/a.txt": "a"})

	_, err := env.svc.EmptyRecycler(context.Background(), PurgeRequest{Folder: "1:/", Age: "-1 day"})
	assert.ErrorIs(t, err, ErrInvalidAge)
	assert.True(t, env.exists("/_recycler_/a.txt"))
}

func TestMoveSelected(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, map[string]string{
		"/images/a.png": "a",
		"/images/b.png": "b",
	})

	uids := []int64{env.uid(t, "/images/a.png"), env.uid(t, "/images/b.png"), 9999}
	report := env.svc.MoveSelected(ctx, uids)

	assert.Equal(t, 2, report.Moved)
	require.Len(t, report.Notifications, 1)
	assert.Equal(t, SeveritySuccess, report.Notifications[0].Severity)
	assert.Equal(t, "Moved 2 files to recycler", report.Notifications[0].Message)
	assert.True(t, env.exists("/images/_recycler_/a.png"))
	assert.True(t, env.exists("/images/_recycler_/b.png"))
}

func TestMoveSelectedSkipsVanishedFiles(t *testing.T) {
	env := newTestEnv(t, map[string]string{"/gone.png": "x"})
	uid := env.uid(t, "/gone.png")
	require.NoError(t, os.Remove(env.path("/gone.png")))

	report := env.svc.MoveSelected(context.Background(), []int64{uid})
	assert.Equal(t, 0, report.Moved)
	require.Len(t, report.Notifications, 1)
	assert.Equal(t, SeverityWarning, report.Notifications[0].Severity)
	assert.Equal(t, "No files moved", report.Notifications[0].Message)
}

func TestMoveSelectedPermissionDenied(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced for root")
	}

	env := newTestEnv(t, map[string]string{"/locked/a.png": "a"})
	uid := env.uid(t, "/locked/a.png")

	locked := env.path("/locked")
	require.NoError(t, os.Chmod(locked, 0555))
	t.Cleanup(func() { os.Chmod(locked, 0755) })

	report := env.svc.MoveSelected(context.Background(), []int64{uid})
	assert.Equal(t, 0, report.Moved)
	require.Len(t, report.Notifications, 2)
	assert.Equal(t, SeverityError, report.Notifications[0].Severity)
	assert.Equal(t, "You are not allowed to create a _recycler_ folder in fileadmin/locked/", report.Notifications[0].Message)
	assert.Equal(t, "No files moved", report.Notifications[1].Message)
}

func TestCleanupPostsSlackReport(t *testing.T) {
	var (
		mu     sync.Mutex
		titles []string
	)
	mux := http.NewServeMux()
	mux.HandleFunc("/chat.postMessage", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		mu.Lock()
		titles = append(titles, r.FormValue("text"))
		mu.Unlock()
		json.NewEncoder(w).Encode(map[string]any{"ok": true, "channel": "C1", "ts": "1.2"})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	env := newTestEnv(t, map[string]string{"/a.txt": "a"})
	env.age(t, 60*24*time.Hour, "/a.txt")
	env.svc.slack = slack.NewClient("xoxb-test", "C1", slackapi.OptionAPIURL(srv.URL+"/"))

	_, err := env.svc.Cleanup(context.Background(), CleanupRequest{Folder: "1:/", DryRun: true})
	require.NoError(t, err)
	_, err = env.svc.Cleanup(context.Background(), CleanupRequest{Folder: "1:/"})
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"Cleanup of 1:/ finished"}, titles)
}
