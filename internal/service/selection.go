package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"file_cleanup/internal/logger"
	"file_cleanup/internal/metrics"
	"file_cleanup/internal/resource"
)

// Severity of a notification shown in the backend.
type Severity string

const (
	SeverityNotice  Severity = "notice"
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

type Notification struct {
	Severity Severity
	Title    string
	Message  string
}

// MoveReport is the outcome of recycling a selection of files.
type MoveReport struct {
	Moved         int
	Notifications []Notification
}

// MoveSelected moves the files with the given uids into their recycler
// folders. Files that no longer exist are skipped without notice. The last
// notification always summarizes the outcome.
func (s *Service) MoveSelected(ctx context.Context, uids []int64) *MoveReport {
	started := time.Now()
	report := &MoveReport{}
	failed := 0

	for _, uid := range uids {
		f, err := s.registry.FileByUID(ctx, uid)
		if resource.IsNotFound(err) {
			logger.Debug.Printf("Skipping missing file %d: %v", uid, err)
			continue
		}
		if err != nil {
			logger.LogFileSkipped("Recycling", fmt.Sprintf("uid %d", uid), err)
			failed++
			continue
		}

		_, err = s.mover.Move(ctx, f)
		switch {
		case err == nil:
			report.Moved++
		case resource.IsNotFound(err):
			logger.Debug.Printf("Skipping vanished file %s: %v", f.CombinedIdentifier(), err)
		case errors.Is(err, resource.ErrPermission):
			logger.LogFileSkipped("Recycling", f.CombinedIdentifier(), err)
			failed++
			report.Notifications = append(report.Notifications, Notification{
				Severity: SeverityError,
				Title:    "Error",
				Message: fmt.Sprintf("You are not allowed to create a %s folder in %s",
					resource.RecyclerFolderName, f.Parent().ReadablePath()),
			})
		default:
			logger.LogFileSkipped("Recycling", f.CombinedIdentifier(), err)
			failed++
		}
	}

	if report.Moved > 0 {
		report.Notifications = append(report.Notifications, Notification{
			Severity: SeveritySuccess,
			Title:    "Success",
			Message:  fmt.Sprintf("Moved %d files to recycler", report.Moved),
		})
	} else {
		report.Notifications = append(report.Notifications, Notification{
			Severity: SeverityWarning,
			Title:    "Warning",
			Message:  "No files moved",
		})
	}

	metrics.RecordFileOperations("move", report.Moved, failed)
	metrics.RecordRun(metrics.RunMoveSelected, nil, time.Since(started))
	logger.Info.Printf("Moved %d of %d selected files to recycler", report.Moved, len(uids))
	return report
}
