package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"file_cleanup/internal/cleanup"
	"file_cleanup/internal/service"
)

var (
	cleanupAge       string
	cleanupRecursive bool
	cleanupDryRun    bool
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup <folder>",
	Short: "Move unused files to recycler folders",
	Long: `Move files that are not referenced and not part of a file collection into a
_recycler_ folder next to them. Only files unused for longer than --age are moved.

The folder is a combined identifier such as "1:/user_upload/"; a bare path uses
storage 1.`,
	Example: `  file_cleanup cleanup 1:/user_upload/ --age "3 months" --recursive
  file_cleanup cleanup 1:/ -r -d -v -f '/\.(html|htaccess)$/i'`,
	Args: cobra.ExactArgs(1),
	RunE: runCleanup,
}

func init() {
	f := cleanupCmd.Flags()
	f.StringVarP(&cleanupAge, "age", "a", cleanup.DefaultAge, "only move files unused for longer than this (e.g. \"1 month\", \"2 weeks\")")
	f.StringP("file-deny-pattern", "f", "", "regular expression for file names to keep (overrides FILE_NAME_DENY_PATTERN)")
	f.StringP("path-deny-pattern", "p", "", "regular expression for public URLs to keep (overrides PATH_DENY_PATTERN)")
	f.BoolVarP(&cleanupRecursive, "recursive", "r", false, "include subfolders")
	f.BoolVarP(&cleanupDryRun, "dry-run", "d", false, "list the files without moving them")

	rootCmd.AddCommand(cleanupCmd)
}

func runCleanup(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext(cmd.Context())
	defer stop()

	a, err := openApp(ctx, "cleanup")
	if err != nil {
		return err
	}
	defer a.Close()

	report, err := a.svc.Cleanup(ctx, service.CleanupRequest{
		Folder:          args[0],
		Age:             cleanupAge,
		FileDenyPattern: optionalFlag(cmd, "file-deny-pattern"),
		PathDenyPattern: optionalFlag(cmd, "path-deny-pattern"),
		Recursive:       cleanupRecursive,
		DryRun:          cleanupDryRun,
	})
	if err != nil {
		return NewCommandError("cleanup", err)
	}

	printCleanupReport(cmd.OutOrStdout(), report, verbose)
	return nil
}

func printCleanupReport(out io.Writer, r *service.CleanupReport, verbose bool) {
	if verbose {
		fmt.Fprintf(out, "Found %d un-used files\n", r.Found)
		for _, u := range r.Eligible {
			fmt.Fprintf(out, "File: %s: %s < %s\n", u.File().PublicURL(),
				u.EffectiveTime().Format("20060102"), r.Cutoff.Format("20060102"))
		}
		fmt.Fprintf(out, "Found %d un-used files older than %s\n", len(r.Eligible), r.Cutoff.Format("20060102"))
	}
	for _, f := range r.Failures {
		fmt.Fprintf(out, "Failed to move %s\n", f.Message())
	}
	if r.DryRun {
		fmt.Fprintln(out, r.Summary())
		return
	}
	fmt.Fprintf(out, "Moved %d file(s) to recycler folders\n", r.Moved)
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
