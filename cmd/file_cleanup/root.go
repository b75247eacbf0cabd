package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"file_cleanup/internal/config"
	"file_cleanup/internal/database"
	"file_cleanup/internal/logger"
	"file_cleanup/internal/service"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "file_cleanup",
	Short: "Move unused files to recycler folders and purge old recycled files",
	Long: `file_cleanup looks for files in the configured storages that are neither
referenced by content nor part of a file collection. Such files are moved into a
_recycler_ folder next to them. Files that stayed in a recycler folder longer than
a given age can be deleted with empty-recycler.

Configuration is read from the environment and an optional .env file.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// app is what every command works with once configuration is loaded.
type app struct {
	cfg *config.Config
	db  *database.DB
	svc *service.Service
}

// openApp loads the configuration, initializes logging and opens the
// database and storages.
func openApp(ctx context.Context, command string) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, NewConfigError("environment", err.Error())
	}

	level := logger.ParseLogLevel(cfg.LogLevel)
	if verbose {
		level = logger.LevelDebug
	}
	if err := logger.Init(logger.Options{
		Path:       cfg.LogPath,
		Level:      level,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		MaxAgeDays: cfg.LogMaxAgeDays,
		Stderr:     command == "serve" || command == "schedule",
	}); err != nil {
		return nil, NewConfigError("LOG_PATH", err.Error())
	}

	db, err := database.New(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return nil, NewCommandError(command, err)
	}
	logger.Debug.Printf("Using %s database", db.Driver())

	svc, err := service.New(ctx, cfg, db)
	if err != nil {
		db.Close()
		return nil, NewCommandError(command, err)
	}

	return &app{cfg: cfg, db: db, svc: svc}, nil
}

func (a *app) Close() {
	if err := a.svc.Close(); err != nil {
		logger.Warn.Printf("Failed to close storages: %v", err)
	}
	if err := a.db.Close(); err != nil {
		logger.Warn.Printf("Failed to close database: %v", err)
	}
}

// optionalFlag returns the flag value when it was given on the command line.
func optionalFlag(cmd *cobra.Command, name string) *string {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, err := cmd.Flags().GetString(name)
	if err != nil {
		return nil
	}
	return &v
}
