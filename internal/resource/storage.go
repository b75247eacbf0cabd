package resource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/IGLOU-EU/go-wildcard"

	"file_cleanup/internal/database"
	"file_cleanup/internal/logger"
)

// DefaultProcessedPatterns match the folders holding derived files
// (thumbnails, crops) generated from originals.
var DefaultProcessedPatterns = []string{"_processed_*"}

// maxUniqueSuffix bounds the "_NN" suffixes tried when a move target exists.
const maxUniqueSuffix = 99

// Index is the file index a storage keeps in sync with its driver.
type Index interface {
	IndexFile(ctx context.Context, storage int, identifier, name string, size, modified int64) (database.FileRecord, error)
	FileByUID(ctx context.Context, uid int64) (database.FileRecord, error)
	RenameFile(ctx context.Context, uid int64, identifier, name string) error
	RemoveFile(ctx context.Context, uid int64) error
}

// Options configures a Storage.
type Options struct {
	ID                int
	Name              string
	Driver            Driver
	Index             Index
	PublicURL         string
	ProcessedPatterns []string
	Events            *Dispatcher
	Now               func() time.Time
}

// Storage combines a driver with the file index. Every file it returns
// carries the uid of its index row.
type Storage struct {
	id        int
	name      string
	driver    Driver
	index     Index
	publicURL string
	processed []string
	events    *Dispatcher
	now       func() time.Time
}

func NewStorage(opts Options) *Storage {
	s := &Storage{
		id:        opts.ID,
		name:      opts.Name,
		driver:    opts.Driver,
		index:     opts.Index,
		publicURL: strings.TrimSuffix(opts.PublicURL, "/"),
		processed: opts.ProcessedPatterns,
		events:    opts.Events,
		now:       opts.Now,
	}
	if s.name == "" {
		s.name = fmt.Sprintf("Storage %d", s.id)
	}
	if s.processed == nil {
		s.processed = DefaultProcessedPatterns
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

func (s *Storage) ID() int      { return s.id }
func (s *Storage) Name() string { return s.name }
func (s *Storage) Type() string { return s.driver.Type() }

func (s *Storage) RootFolder() *Folder {
	return &Folder{storage: s, identifier: "/"}
}

// HasFolder reports whether identifier names an existing folder.
func (s *Storage) HasFolder(ctx context.Context, identifier string) (bool, error) {
	return s.driver.FolderExists(ctx, NormalizeFolder(identifier))
}

// Folder returns the folder at identifier or ErrFolderNotFound.
func (s *Storage) Folder(ctx context.Context, identifier string) (*Folder, error) {
	identifier = NormalizeFolder(identifier)
	ok, err := s.HasFolder(ctx, identifier)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%s: %w", CombinedIdentifier(s.id, identifier), ErrFolderNotFound)
	}
	return &Folder{storage: s, identifier: identifier}, nil
}

// CreateFolder creates name inside parent.
func (s *Storage) CreateFolder(ctx context.Context, parent *Folder, name string) (*Folder, error) {
	identifier := NormalizeFolder(parent.identifier + name)
	if err := s.driver.CreateFolder(ctx, identifier); err != nil {
		return nil, err
	}
	logger.Info.Printf("Created folder %s", CombinedIdentifier(s.id, identifier))
	return &Folder{storage: s, identifier: identifier}, nil
}

// Files lists the files of folder (or its subtree) and indexes each one.
// A file that cannot be indexed is logged and left out.
func (s *Storage) Files(ctx context.Context, folder *Folder, recursive bool) ([]*File, error) {
	infos, err := s.driver.ListFiles(ctx, folder.identifier, recursive)
	if err != nil {
		return nil, err
	}

	files := make([]*File, 0, len(infos))
	for _, info := range infos {
		f, err := s.indexed(ctx, info)
		if err != nil {
			logger.LogFileSkipped("Indexing", CombinedIdentifier(s.id, info.Identifier), err)
			continue
		}
		files = append(files, f)
	}
	return files, nil
}

// Folders lists the subfolders of folder, or every folder below it.
func (s *Storage) Folders(ctx context.Context, folder *Folder, recursive bool) ([]*Folder, error) {
	ids, err := s.driver.ListFolders(ctx, folder.identifier, recursive)
	if err != nil {
		return nil, err
	}
	folders := make([]*Folder, 0, len(ids))
	for _, id := range ids {
		folders = append(folders, &Folder{storage: s, identifier: NormalizeFolder(id)})
	}
	return folders, nil
}

// FileByRecord resolves an index row against the driver. Files whose row
// outlived the stored object yield ErrFileNotFound.
func (s *Storage) FileByRecord(ctx context.Context, rec database.FileRecord) (*File, error) {
	info, err := s.driver.Stat(ctx, rec.Identifier)
	if err != nil {
		return nil, err
	}
	return s.newFile(rec, info), nil
}

// MoveFile moves f into target. An existing file of the same name makes the
// moved file take the next free "_NN" suffix.
func (s *Storage) MoveFile(ctx context.Context, f *File, target *Folder) (*File, error) {
	dst, err := s.uniqueIdentifier(ctx, target, f.name)
	if err != nil {
		return nil, err
	}

	if err := s.driver.Move(ctx, f.identifier, dst); err != nil {
		return nil, err
	}

	name := baseName(dst)
	if err := s.index.RenameFile(ctx, f.uid, dst, name); err != nil {
		// The file already moved; the stale row is fixed by the next listing
		logger.Error.Printf("Failed to update index for moved file %s: %v", f.CombinedIdentifier(), err)
	}

	moved := *f
	moved.identifier = dst
	moved.name = name

	logger.Debug.Printf("Moved %s to %s", f.CombinedIdentifier(), moved.CombinedIdentifier())
	s.events.fileMoved(ctx, FileMovedEvent{File: &moved, Source: f.identifier, Time: s.now()})
	return &moved, nil
}

func (s *Storage) uniqueIdentifier(ctx context.Context, folder *Folder, name string) (string, error) {
	candidate := folder.identifier + name
	exists, err := s.driver.FileExists(ctx, candidate)
	if err != nil || !exists {
		return candidate, err
	}

	ext := path.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for i := 1; i <= maxUniqueSuffix; i++ {
		candidate = fmt.Sprintf("%s%s_%02d%s", folder.identifier, stem, i, ext)
		exists, err = s.driver.FileExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("no free name for %s in %s: %w", name, folder.CombinedIdentifier(), ErrExists)
}

// DeleteFile removes f from the driver and the index.
func (s *Storage) DeleteFile(ctx context.Context, f *File) error {
	if err := s.driver.Delete(ctx, f.identifier); err != nil {
		return err
	}
	if err := s.index.RemoveFile(ctx, f.uid); err != nil {
		logger.Error.Printf("Failed to remove index row of deleted file %s: %v", f.CombinedIdentifier(), err)
	}

	logger.Debug.Printf("Deleted %s", f.CombinedIdentifier())
	s.events.fileDeleted(ctx, FileDeletedEvent{File: f, Time: s.now()})
	return nil
}

func (s *Storage) Open(ctx context.Context, f *File) (io.ReadCloser, error) {
	return s.driver.Open(ctx, f.identifier)
}

// IsProcessingPath reports whether identifier lies inside a folder holding
// derived files.
func (s *Storage) IsProcessingPath(identifier string) bool {
	parts := segments(identifier)
	if len(parts) > 0 && !strings.HasSuffix(identifier, "/") {
		parts = parts[:len(parts)-1]
	}
	for _, part := range parts {
		for _, pattern := range s.processed {
			if wildcard.Match(pattern, part) {
				return true
			}
		}
	}
	return false
}

func (s *Storage) indexed(ctx context.Context, info FileInfo) (*File, error) {
	rec, err := s.index.IndexFile(ctx, s.id, info.Identifier, baseName(info.Identifier), info.Size, info.ModTime.Unix())
	if err != nil {
		return nil, err
	}
	return s.newFile(rec, info), nil
}

func (s *Storage) newFile(rec database.FileRecord, info FileInfo) *File {
	f := &File{
		storage:    s,
		uid:        rec.UID,
		identifier: info.Identifier,
		name:       baseName(info.Identifier),
		size:       info.Size,
		modTime:    info.ModTime,
	}
	if rec.LastMove > 0 {
		f.lastMove = time.Unix(rec.LastMove, 0)
	}
	return f
}

func (s *Storage) publicURLFor(identifier string) string {
	parts := segments(identifier)
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return s.publicURL + "/" + strings.Join(parts, "/")
}

// Folder is a folder inside a storage. Identifiers end with a slash.
type Folder struct {
	storage    *Storage
	identifier string
}

func (f *Folder) Storage() *Storage  { return f.storage }
func (f *Folder) Identifier() string { return f.identifier }
func (f *Folder) Name() string       { return baseName(f.identifier) }
func (f *Folder) IsRoot() bool       { return f.identifier == "/" }

func (f *Folder) CombinedIdentifier() string {
	return CombinedIdentifier(f.storage.id, f.identifier)
}

// ReadablePath is the folder path prefixed with the storage name.
func (f *Folder) ReadablePath() string {
	return f.storage.name + f.identifier
}

// Parent returns the containing folder; the root is its own parent.
func (f *Folder) Parent() *Folder {
	if f.IsRoot() {
		return f
	}
	return &Folder{storage: f.storage, identifier: parentFolder(f.identifier)}
}

// Subfolder returns the child folder called name if it exists.
func (f *Folder) Subfolder(ctx context.Context, name string) (*Folder, error) {
	return f.storage.Folder(ctx, f.identifier+name)
}

// File is a stored file together with its index row.
type File struct {
	storage    *Storage
	uid        int64
	identifier string
	name       string
	size       int64
	modTime    time.Time
	lastMove   time.Time
}

func (f *File) Storage() *Storage  { return f.storage }
func (f *File) UID() int64         { return f.uid }
func (f *File) Identifier() string { return f.identifier }
func (f *File) Name() string       { return f.name }
func (f *File) Size() int64        { return f.size }
func (f *File) ModTime() time.Time { return f.modTime }
func (f *File) Parent() *Folder {
	return &Folder{storage: f.storage, identifier: parentFolder(f.identifier)}
}
func (f *File) PublicURL() string { return f.storage.publicURLFor(f.identifier) }
func (f *File) IsProcessed() bool { return f.storage.IsProcessingPath(f.identifier) }
func (f *File) Extension() string { return strings.ToLower(strings.TrimPrefix(path.Ext(f.name), ".")) }

// LastMove is the time the file was last moved, zero when never recorded.
func (f *File) LastMove() time.Time { return f.lastMove }

func (f *File) CombinedIdentifier() string {
	return CombinedIdentifier(f.storage.id, f.identifier)
}

// InRecycler reports whether any folder above the file is a recycler folder.
func (f *File) InRecycler() bool {
	parts := segments(f.identifier)
	for _, p := range parts[:max(len(parts)-1, 0)] {
		if p == RecyclerFolderName {
			return true
		}
	}
	return false
}

// IsImage reports whether the file can be shown as a thumbnail.
func (f *File) IsImage() bool {
	imageTypes := map[string]bool{
		"jpg":  true,
		"jpeg": true,
		"png":  true,
		"gif":  true,
		"webp": true,
		"svg":  true,
		"bmp":  true,
	}
	return imageTypes[f.Extension()]
}

// IsNotFound reports whether err means the file or folder is gone.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrFileNotFound) || errors.Is(err, ErrFolderNotFound) || errors.Is(err, database.ErrNotFound)
}
