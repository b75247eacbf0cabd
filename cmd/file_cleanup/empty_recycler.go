package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"file_cleanup/internal/cleanup"
	"file_cleanup/internal/service"
)

var (
	recyclerAge       string
	recyclerRecursive bool
	recyclerDryRun    bool
)

var emptyRecyclerCmd = &cobra.Command{
	Use:   "empty-recycler <folder>",
	Short: "Delete files that stayed in recycler folders longer than --age",
	Long: `Delete files from _recycler_ folders once they were moved there longer than
--age ago. Without --recursive only the recycler folder directly inside <folder>
is emptied.`,
	Example: `  file_cleanup empty-recycler 1:/ --recursive --age "2 weeks"`,
	Args:    cobra.ExactArgs(1),
	RunE:    runEmptyRecycler,
}

func init() {
	f := emptyRecyclerCmd.Flags()
	f.StringVarP(&recyclerAge, "age", "a", cleanup.DefaultAge, "only delete files recycled longer ago than this")
	f.StringP("file-deny-pattern", "f", "", "regular expression for file names to keep (overrides FILE_NAME_DENY_PATTERN)")
	f.BoolVarP(&recyclerRecursive, "recursive", "r", false, "include recycler folders of subfolders")
	f.BoolVarP(&recyclerDryRun, "dry-run", "d", false, "list the files without deleting them")

	rootCmd.AddCommand(emptyRecyclerCmd)
}

func runEmptyRecycler(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext(cmd.Context())
	defer stop()

	a, err := openApp(ctx, "empty-recycler")
	if err != nil {
		return err
	}
	defer a.Close()

	report, err := a.svc.EmptyRecycler(ctx, service.PurgeRequest{
		Folder:          args[0],
		Age:             recyclerAge,
		FileDenyPattern: optionalFlag(cmd, "file-deny-pattern"),
		Recursive:       recyclerRecursive,
		DryRun:          recyclerDryRun,
	})
	if err != nil {
		return NewCommandError("empty-recycler", err)
	}

	printPurgeReport(cmd.OutOrStdout(), report, verbose)
	return nil
}

func printPurgeReport(out io.Writer, r *service.PurgeReport, verbose bool) {
	if verbose {
		fmt.Fprintf(out, "Found %d files in recycler folders\n", r.Found)
		for _, f := range r.Eligible {
			fmt.Fprintf(out, "File: %s%s: %s < %s\n", f.Parent().ReadablePath(), f.Name(),
				cleanup.RecycledTime(f).Format("20060102"), r.Cutoff.Format("20060102"))
		}
		fmt.Fprintf(out, "Found %d files recycled before %s\n", len(r.Eligible), r.Cutoff.Format("20060102"))
	}
	for _, f := range r.Failures {
		fmt.Fprintf(out, "Failed to remove %s\n", f.Message())
	}
	if r.DryRun {
		fmt.Fprintln(out, r.Summary())
		return
	}
	fmt.Fprintf(out, "Removed %d file(s) from recycler folders\n", r.Deleted)
}
