package cleanup

import (
	"context"
	"fmt"

	"file_cleanup/internal/database"
	"file_cleanup/internal/logger"
	"file_cleanup/internal/resource"
)

// CollectionStore loads file collections.
type CollectionStore interface {
	FolderCollections(ctx context.Context, scanFolder string, includeSelf bool) ([]database.FileCollection, error)
	CategoryCollections(ctx context.Context) ([]database.FileCollection, error)
	CategoryFileUIDs(ctx context.Context, category int64) ([]int64, error)
}

// FolderResolver resolves a combined folder identifier.
type FolderResolver interface {
	Folder(ctx context.Context, combined string) (*resource.Folder, error)
}

// CollectionSet holds the uids of every file protected by a file collection
// relevant to one scan.
type CollectionSet struct {
	uids map[int64]struct{}
}

// NewCollectionSet loads the folder collections below the scanned folder and
// every category collection, and flattens their files. The collection on the
// scanned folder itself only counts when includeScanFolder is set.
func NewCollectionSet(ctx context.Context, store CollectionStore, folders FolderResolver, storageID int, folder string, includeScanFolder bool) (*CollectionSet, error) {
	set := &CollectionSet{uids: make(map[int64]struct{})}
	scan := resource.CombinedIdentifier(storageID, resource.NormalizeFolder(folder))

	folderCollections, err := store.FolderCollections(ctx, scan, includeScanFolder)
	if err != nil {
		return nil, err
	}
	for _, c := range folderCollections {
		if err := set.addFolderCollection(ctx, folders, c); err != nil {
			// A collection pointing at a removed folder protects nothing
			logger.Warn.Printf("Skipping collection %d (%s): %v", c.UID, c.Title, err)
		}
	}

	categoryCollections, err := store.CategoryCollections(ctx)
	if err != nil {
		return nil, err
	}
	for _, c := range categoryCollections {
		uids, err := store.CategoryFileUIDs(ctx, c.Category)
		if err != nil {
			return nil, fmt.Errorf("collection %d: %w", c.UID, err)
		}
		for _, uid := range uids {
			set.uids[uid] = struct{}{}
		}
	}

	logger.Debug.Printf("Loaded %d folder and %d category collections protecting %d files for %s",
		len(folderCollections), len(categoryCollections), len(set.uids), scan)
	return set, nil
}

func (s *CollectionSet) addFolderCollection(ctx context.Context, folders FolderResolver, c database.FileCollection) error {
	f, err := folders.Folder(ctx, c.FolderIdentifier)
	if err != nil {
		return err
	}
	files, err := f.Storage().Files(ctx, f, c.Recursive)
	if err != nil {
		return err
	}
	for _, file := range files {
		s.uids[file.UID()] = struct{}{}
	}
	return nil
}

// Contains reports whether the file with uid belongs to a collection.
func (s *CollectionSet) Contains(uid int64) bool {
	_, ok := s.uids[uid]
	return ok
}
