package service

import (
	"context"
	"strconv"
	"strings"

	"file_cleanup/internal/cleanup"
	"file_cleanup/internal/logger"
	"file_cleanup/internal/slack"
)

// maxReportedFailures caps the failure lines posted with one report.
const maxReportedFailures = 10

func (s *Service) notifyCleanup(ctx context.Context, r *CleanupReport) {
	if r.DryRun {
		return
	}
	s.notify(ctx, slack.Report{
		Title:  "Cleanup of " + r.Folder + " finished",
		Text:   r.Summary() + failureLines(r.Failures),
		Failed: len(r.Failures) > 0,
		Fields: []slack.Field{
			{Title: "Unused", Value: strconv.Itoa(r.Found)},
			{Title: "Older than", Value: r.Age},
			{Title: "Moved", Value: strconv.Itoa(r.Moved)},
			{Title: "Failed", Value: strconv.Itoa(len(r.Failures))},
		},
	})
}

func (s *Service) notifyPurge(ctx context.Context, r *PurgeReport) {
	if r.DryRun {
		return
	}
	s.notify(ctx, slack.Report{
		Title:  "Recycler of " + r.Folder + " emptied",
		Text:   r.Summary() + failureLines(r.Failures),
		Failed: len(r.Failures) > 0,
		Fields: []slack.Field{
			{Title: "Recycled", Value: strconv.Itoa(r.Found)},
			{Title: "Older than", Value: r.Age},
			{Title: "Deleted", Value: strconv.Itoa(r.Deleted)},
			{Title: "Failed", Value: strconv.Itoa(len(r.Failures))},
		},
	})
}

// notify posts a report when Slack is configured. Failing to report never
// fails the run.
func (s *Service) notify(ctx context.Context, r slack.Report) {
	if s.slack == nil {
		return
	}
	if _, err := s.slack.PostReport(ctx, r); err != nil {
		logger.Warn.Printf("Failed to post report %q: %v", r.Title, err)
	}
}

func failureLines(failures []cleanup.Failure) string {
	if len(failures) == 0 {
		return ""
	}

	var b strings.Builder
	for i, f := range failures {
		if i == maxReportedFailures {
			b.WriteString("\n... and " + strconv.Itoa(len(failures)-i) + " more")
			break
		}
		b.WriteString("\n")
		b.WriteString(f.Message())
	}
	return b.String()
}
