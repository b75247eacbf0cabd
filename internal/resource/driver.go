package resource

import (
	"context"
	"errors"
	"io"
	"time"
)

var (
	ErrFolderNotFound  = errors.New("folder does not exist")
	ErrFileNotFound    = errors.New("file does not exist")
	ErrStorageNotFound = errors.New("storage does not exist")
	ErrPermission      = errors.New("insufficient permissions")
	ErrExists          = errors.New("target already exists")
)

// FileInfo is what a driver knows about a stored file.
type FileInfo struct {
	Identifier string
	Size       int64
	ModTime    time.Time
}

// Driver is the interface for storage backends. Identifiers are absolute
// slash-separated paths; folder identifiers end with a slash.
type Driver interface {
	// Type returns the driver type identifier ("local", "s3").
	Type() string

	FolderExists(ctx context.Context, folder string) (bool, error)
	FileExists(ctx context.Context, identifier string) (bool, error)
	CreateFolder(ctx context.Context, folder string) error

	// ListFiles returns the files of folder, or of its whole subtree when
	// recursive is set. Hidden entries are skipped.
	ListFiles(ctx context.Context, folder string, recursive bool) ([]FileInfo, error)

	// ListFolders returns the subfolders of folder, or the whole subtree
	// when recursive is set. Hidden entries are skipped.
	ListFolders(ctx context.Context, folder string, recursive bool) ([]string, error)

	Stat(ctx context.Context, identifier string) (FileInfo, error)
	Open(ctx context.Context, identifier string) (io.ReadCloser, error)

	// Move renames a file; dst must not exist.
	Move(ctx context.Context, src, dst string) error
	Delete(ctx context.Context, identifier string) error

	// Close releases any resources held by the driver.
	Close() error
}
