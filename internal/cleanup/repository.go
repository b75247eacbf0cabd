// Package cleanup decides which files are unused, moves them into recycler
// folders and purges recycled files once they are old enough.
package cleanup

import (
	"context"
	"errors"
	"sort"
	"time"

	"file_cleanup/internal/logger"
	"file_cleanup/internal/resource"
)

// Store is the database view the repository needs.
type Store interface {
	ReferenceStore
	CollectionStore
}

// RepositoryOptions holds the defaults used when a scan does not pass its
// own deny patterns.
type RepositoryOptions struct {
	FileDenyPattern   *Pattern
	PathDenyPattern   *Pattern
	IncludeScanFolder bool
}

// Repository finds unused and recycled files.
type Repository struct {
	store             Store
	folders           FolderResolver
	fileDeny          *Pattern
	pathDeny          *Pattern
	includeScanFolder bool
}

func NewRepository(store Store, folders FolderResolver, opts RepositoryOptions) *Repository {
	return &Repository{
		store:             store,
		folders:           folders,
		fileDeny:          opts.FileDenyPattern,
		pathDeny:          opts.PathDenyPattern,
		includeScanFolder: opts.IncludeScanFolder,
	}
}

// ScanOptions controls one FindUnusedFiles call. Nil patterns fall back to
// the repository defaults; an empty pattern disables its filter.
type ScanOptions struct {
	Recursive       bool
	FileDenyPattern *Pattern
	PathDenyPattern *Pattern
	ReferenceTimes  *ReferenceTimes
}

// UnusedFile is a file without references together with the time its last
// reference was removed.
type UnusedFile struct {
	file          *resource.File
	lastReference time.Time
}

func NewUnusedFile(f *resource.File, lastReference time.Time) *UnusedFile {
	return &UnusedFile{file: f, lastReference: lastReference}
}

// File returns the underlying stored file.
func (u *UnusedFile) File() *resource.File { return u.file }

// LastReferenceTime is zero when the file never lost a reference.
func (u *UnusedFile) LastReferenceTime() time.Time { return u.lastReference }

// EffectiveTime is the time the file became unused: the last reference
// removal, or the modification time when unknown. Second precision.
func (u *UnusedFile) EffectiveTime() time.Time {
	if !u.lastReference.IsZero() {
		return u.lastReference
	}
	return u.file.ModTime().Truncate(time.Second)
}

// RecycledTime is the time a file entered the recycler: its last move, or
// the modification time when no move was recorded. Second precision.
func RecycledTime(f *resource.File) time.Time {
	if t := f.LastMove(); !t.IsZero() {
		return t
	}
	return f.ModTime().Truncate(time.Second)
}

// FindUnusedFiles returns the files below folder that are not referenced,
// not part of a collection, not denied by pattern and not already recycled
// or derived from another file. The result is sorted by identifier.
func (r *Repository) FindUnusedFiles(ctx context.Context, folder *resource.Folder, opts ScanOptions) ([]*UnusedFile, error) {
	fileDeny := opts.FileDenyPattern
	if fileDeny == nil {
		fileDeny = r.fileDeny
	}
	pathDeny := opts.PathDenyPattern
	if pathDeny == nil {
		pathDeny = r.pathDeny
	}
	times := opts.ReferenceTimes
	if times == nil {
		times = NewReferenceTimes(r.store)
	}

	collections, err := NewCollectionSet(ctx, r.store, r.folders, folder.Storage().ID(), folder.Identifier(), r.includeScanFolder)
	if err != nil {
		return nil, err
	}

	files, err := folder.Storage().Files(ctx, folder, opts.Recursive)
	if err != nil {
		return nil, err
	}

	var unused []*UnusedFile
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if f.InRecycler() || f.IsProcessed() {
			continue
		}
		if fileDeny.MatchString(f.Name()) || pathDeny.MatchString(f.PublicURL()) {
			logger.Debug.Printf("Denied by pattern: %s", f.CombinedIdentifier())
			continue
		}

		count, err := r.ReferenceCount(ctx, f)
		if err != nil {
			logger.LogFileSkipped("Reference count", f.CombinedIdentifier(), err)
			continue
		}
		if count != 0 {
			continue
		}
		if collections.Contains(f.UID()) {
			continue
		}

		lastReference, err := times.LastRemoval(ctx, f.UID())
		if err != nil {
			logger.Warn.Printf("Failed to get last reference removal of %s: %v", f.CombinedIdentifier(), err)
		}
		unused = append(unused, NewUnusedFile(f, lastReference))
	}

	sort.SliceStable(unused, func(i, j int) bool {
		return unused[i].file.Identifier() < unused[j].file.Identifier()
	})

	logger.Info.Printf("Found %d unused of %d files in %s", len(unused), len(files), folder.CombinedIdentifier())
	return unused, nil
}

// ReferenceCount returns the larger of the reference index count and the
// file reference count. The same use is often recorded in both.
func (r *Repository) ReferenceCount(ctx context.Context, f *resource.File) (int, error) {
	refIndex, err := r.store.CountRefIndex(ctx, f.UID())
	if err != nil {
		return 0, err
	}
	fileReferences, err := r.store.CountFileReferences(ctx, f.UID())
	if err != nil {
		return 0, err
	}
	return max(refIndex, fileReferences), nil
}

// FindRecyclerFiles returns the files held in recycler folders. Without
// recursion only the recycler folder directly inside folder is used,
// otherwise every recycler folder below it. Files matching fileDeny (or the
// repository default when nil) are left out.
func (r *Repository) FindRecyclerFiles(ctx context.Context, folder *resource.Folder, recursive bool, fileDeny *Pattern) ([]*resource.File, error) {
	if fileDeny == nil {
		fileDeny = r.fileDeny
	}

	recyclers, err := r.recyclerFolders(ctx, folder, recursive)
	if err != nil {
		return nil, err
	}

	var files []*resource.File
	for _, recycler := range recyclers {
		found, err := recycler.Storage().Files(ctx, recycler, false)
		if err != nil {
			return nil, err
		}
		for _, f := range found {
			if fileDeny.MatchString(f.Name()) {
				continue
			}
			files = append(files, f)
		}
	}

	sort.SliceStable(files, func(i, j int) bool { return files[i].Identifier() < files[j].Identifier() })
	logger.Info.Printf("Found %d files in %d recycler folders of %s", len(files), len(recyclers), folder.CombinedIdentifier())
	return files, nil
}

func (r *Repository) recyclerFolders(ctx context.Context, folder *resource.Folder, recursive bool) ([]*resource.Folder, error) {
	if !recursive {
		recycler, err := folder.Subfolder(ctx, resource.RecyclerFolderName)
		if errors.Is(err, resource.ErrFolderNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return []*resource.Folder{recycler}, nil
	}

	all, err := folder.Storage().Folders(ctx, folder, true)
	if err != nil {
		return nil, err
	}
	var recyclers []*resource.Folder
	for _, f := range all {
		if f.Name() == resource.RecyclerFolderName {
			recyclers = append(recyclers, f)
		}
	}
	return recyclers, nil
}
