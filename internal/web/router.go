// Package web serves the backend page listing unused files.
package web

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"file_cleanup/internal/cleanup"
	"file_cleanup/internal/logger"
	"file_cleanup/internal/metrics"
	"file_cleanup/internal/resource"
	"file_cleanup/internal/service"
)

// Backend is the part of the service the pages use.
type Backend interface {
	Folder(ctx context.Context, combined string) (*resource.Folder, error)
	DefaultFolder() (*resource.Folder, error)
	FindUnused(ctx context.Context, folder *resource.Folder, recursive bool) ([]*cleanup.UnusedFile, error)
	MoveSelected(ctx context.Context, uids []int64) *service.MoveReport
	OpenFile(ctx context.Context, uid int64) (*resource.File, io.ReadCloser, error)
}

// NewRouter creates the chi router serving the backend pages, file previews,
// metrics and a liveness probe.
func NewRouter(backend Backend) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(5 * time.Minute))

	p := newPages(backend)
	r.Get("/", p.list)
	r.Post("/cleanup", p.cleanup)
	r.Get("/file/{uid}", p.file)

	r.Handle("/metrics", metrics.Handler())
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("ok\n"))
	})

	return r
}

// requestLogger logs each request and counts it by route pattern.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		metrics.RecordHTTPRequest(r.Method, route, status)

		logger.Debug.Printf("[%s] %s %s %d %dB %s", middleware.GetReqID(r.Context()),
			r.Method, r.URL.Path, status, ww.BytesWritten(), time.Since(start))
	})
}
