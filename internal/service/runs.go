package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"file_cleanup/internal/cleanup"
	"file_cleanup/internal/logger"
	"file_cleanup/internal/metrics"
	"file_cleanup/internal/resource"
)

// CleanupRequest describes one cleanup run. Nil patterns use the configured
// defaults; an empty pattern disables its filter.
type CleanupRequest struct {
	Folder          string
	Age             string
	FileDenyPattern *string
	PathDenyPattern *string
	Recursive       bool
	DryRun          bool
}

// CleanupReport is the outcome of a cleanup run.
type CleanupReport struct {
	RunID    string
	Folder   string
	Age      string
	Cutoff   time.Time
	DryRun   bool
	Found    int
	Eligible []*cleanup.UnusedFile
	Moved    int
	Failures []cleanup.Failure
}

func (r *CleanupReport) Summary() string {
	if r.DryRun {
		return fmt.Sprintf("Dry run: %d of %d unused files in %s are older than %s",
			len(r.Eligible), r.Found, r.Folder, r.Cutoff.Format(time.DateOnly))
	}
	return fmt.Sprintf("Moved %d file(s) to recycler folders (%d eligible, %d failed)",
		r.Moved, len(r.Eligible), len(r.Failures))
}

// PurgeRequest describes one empty-recycler run.
type PurgeRequest struct {
	Folder          string
	Age             string
	FileDenyPattern *string
	Recursive       bool
	DryRun          bool
}

// PurgeReport is the outcome of an empty-recycler run.
type PurgeReport struct {
	RunID    string
	Folder   string
	Age      string
	Cutoff   time.Time
	DryRun   bool
	Found    int
	Eligible []*resource.File
	Deleted  int
	Failures []cleanup.Failure
}

func (r *PurgeReport) Summary() string {
	if r.DryRun {
		return fmt.Sprintf("Dry run: %d of %d recycled files in %s are older than %s",
			len(r.Eligible), r.Found, r.Folder, r.Cutoff.Format(time.DateOnly))
	}
	return fmt.Sprintf("Deleted %d file(s) from recycler folders (%d eligible, %d failed)",
		r.Deleted, len(r.Eligible), len(r.Failures))
}

// Cleanup moves the unused files of a folder that became unused before the
// requested age into recycler folders. Invalid input is rejected before any
// file is touched.
func (s *Service) Cleanup(ctx context.Context, req CleanupRequest) (*CleanupReport, error) {
	started := time.Now()
	report, err := s.cleanup(ctx, req)
	metrics.RecordRun(metrics.RunCleanup, err, time.Since(started))
	if err != nil {
		return nil, err
	}

	metrics.RecordFound(metrics.RunCleanup, len(report.Eligible))
	if !report.DryRun {
		metrics.RecordFileOperations("move", report.Moved, len(report.Failures))
	}
	s.notifyCleanup(ctx, report)
	return report, nil
}

func (s *Service) cleanup(ctx context.Context, req CleanupRequest) (*CleanupReport, error) {
	age, err := parseAge(req.Age)
	if err != nil {
		return nil, err
	}
	fileDeny, err := compileOptional(req.FileDenyPattern)
	if err != nil {
		return nil, err
	}
	pathDeny, err := compileOptional(req.PathDenyPattern)
	if err != nil {
		return nil, err
	}
	folder, err := s.Folder(ctx, req.Folder)
	if err != nil {
		return nil, err
	}

	report := &CleanupReport{
		RunID:  uuid.New().String(),
		Folder: folder.CombinedIdentifier(),
		Age:    age.String(),
		Cutoff: age.Cutoff(s.now().Truncate(time.Second)),
		DryRun: req.DryRun,
	}
	logger.Info.Printf("[%s] Cleanup of %s (recursive: %v, dry run: %v, cutoff: %s)",
		report.RunID, report.Folder, req.Recursive, req.DryRun, report.Cutoff.Format(time.RFC3339))

	unused, err := s.repo.FindUnusedFiles(ctx, folder, cleanup.ScanOptions{
		Recursive:       req.Recursive,
		FileDenyPattern: fileDeny,
		PathDenyPattern: pathDeny,
		ReferenceTimes:  cleanup.NewReferenceTimes(s.db),
	})
	if err != nil {
		return nil, err
	}
	report.Found = len(unused)

	for _, u := range unused {
		expired := cleanup.Expired(u.EffectiveTime(), report.Cutoff)
		logger.Debug.Printf("[%s] %s: %s < %s: %v", report.RunID, u.File().PublicURL(),
			u.EffectiveTime().Format(time.DateOnly), report.Cutoff.Format(time.DateOnly), expired)
		if expired {
			report.Eligible = append(report.Eligible, u)
		}
	}
	logger.Info.Printf("[%s] Found %d unused files, %d older than %s",
		report.RunID, report.Found, len(report.Eligible), report.Cutoff.Format(time.DateOnly))

	if req.DryRun {
		return report, nil
	}

	report.Moved, report.Failures = s.mover.MoveAll(ctx, report.Eligible)
	logger.Info.Printf("[%s] %s", report.RunID, report.Summary())
	return report, nil
}

// EmptyRecycler deletes files that entered a recycler folder before the
// requested age. Invalid input is rejected before any file is touched.
func (s *Service) EmptyRecycler(ctx context.Context, req PurgeRequest) (*PurgeReport, error) {
	started := time.Now()
	report, err := s.emptyRecycler(ctx, req)
	metrics.RecordRun(metrics.RunEmptyRecycler, err, time.Since(started))
	if err != nil {
		return nil, err
	}

	metrics.RecordFound(metrics.RunEmptyRecycler, len(report.Eligible))
	if !report.DryRun {
		metrics.RecordFileOperations("delete", report.Deleted, len(report.Failures))
	}
	s.notifyPurge(ctx, report)
	return report, nil
}

func (s *Service) emptyRecycler(ctx context.Context, req PurgeRequest) (*PurgeReport, error) {
	age, err := parseAge(req.Age)
	if err != nil {
		return nil, err
	}
	fileDeny, err := compileOptional(req.FileDenyPattern)
	if err != nil {
		return nil, err
	}
	folder, err := s.Folder(ctx, req.Folder)
	if err != nil {
		return nil, err
	}

	report := &PurgeReport{
		RunID:  uuid.New().String(),
		Folder: folder.CombinedIdentifier(),
		Age:    age.String(),
		Cutoff: age.Cutoff(s.now().Truncate(time.Second)),
		DryRun: req.DryRun,
	}
	logger.Info.Printf("[%s] Emptying recycler folders of %s (recursive: %v, dry run: %v, cutoff: %s)",
		report.RunID, report.Folder, req.Recursive, req.DryRun, report.Cutoff.Format(time.RFC3339))

	files, err := s.repo.FindRecyclerFiles(ctx, folder, req.Recursive, fileDeny)
	if err != nil {
		return nil, err
	}
	report.Found = len(files)

	for _, f := range files {
		recycled := cleanup.RecycledTime(f)
		expired := cleanup.Expired(recycled, report.Cutoff)
		logger.Debug.Printf("[%s] %s%s: %s < %s: %v", report.RunID, f.Parent().ReadablePath(), f.Name(),
			recycled.Format(time.DateOnly), report.Cutoff.Format(time.DateOnly), expired)
		if expired {
			report.Eligible = append(report.Eligible, f)
		}
	}
	logger.Info.Printf("[%s] Found %d recycled files, %d longer than since %s",
		report.RunID, report.Found, len(report.Eligible), report.Cutoff.Format(time.DateOnly))

	if req.DryRun {
		return report, nil
	}

	report.Deleted, report.Failures = s.purger.DeleteAll(ctx, report.Eligible)
	for _, f := range report.Failures {
		logger.Warn.Printf("[%s] Failed to remove %s", report.RunID, f.Message())
	}
	logger.Info.Printf("[%s] %s", report.RunID, report.Summary())
	return report, nil
}
