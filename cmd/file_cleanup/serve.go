package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"file_cleanup/internal/logger"
	"file_cleanup/internal/web"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the backend page listing unused files",
	Long: `Serve the backend page listing the unused files of a folder. Selected files can
be moved to their recycler folders from the page. Prometheus metrics are served on
/metrics and a liveness probe on /health.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides HTTP_ADDR)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext(cmd.Context())
	defer stop()

	a, err := openApp(ctx, "serve")
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.svc.ValidateNotifier(ctx); err != nil {
		return NewConfigError("SLACK_BOT_TOKEN", err.Error())
	}

	addr := a.cfg.HTTPAddr
	if serveAddr != "" {
		addr = serveAddr
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           web.NewRouter(a.svc),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info.Printf("Serving backend on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return NewCommandError("serve", fmt.Errorf("listen on %s: %w", addr, err))
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info.Println("Shutting down backend")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
