package resource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
)

// LocalDriver stores files below a directory of the local filesystem.
type LocalDriver struct {
	root string
}

// NewLocalDriver creates a driver rooted at basePath, which must exist.
func NewLocalDriver(basePath string) (*LocalDriver, error) {
	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve storage path %s: %w", basePath, err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage path %s: %w", abs, mapOSError(err, ErrFolderNotFound))
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage path %s is not a directory", abs)
	}

	return &LocalDriver{root: abs}, nil
}

func (d *LocalDriver) Type() string { return "local" }

func (d *LocalDriver) Close() error { return nil }

func (d *LocalDriver) abs(identifier string) string {
	return filepath.Join(d.root, filepath.FromSlash(path.Clean("/"+identifier)))
}

func (d *LocalDriver) FolderExists(ctx context.Context, folder string) (bool, error) {
	info, err := os.Stat(d.abs(folder))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, mapOSError(err, ErrFolderNotFound)
	}
	return info.IsDir(), nil
}

func (d *LocalDriver) FileExists(ctx context.Context, identifier string) (bool, error) {
	info, err := os.Stat(d.abs(identifier))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, mapOSError(err, ErrFileNotFound)
	}
	return !info.IsDir(), nil
}

func (d *LocalDriver) CreateFolder(ctx context.Context, folder string) error {
	if err := os.Mkdir(d.abs(folder), 0755); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("create folder %s: %w", folder, ErrExists)
		}
		return fmt.Errorf("create folder %s: %w", folder, mapOSError(err, ErrFolderNotFound))
	}
	return nil
}

func (d *LocalDriver) ListFiles(ctx context.Context, folder string, recursive bool) ([]FileInfo, error) {
	var files []FileInfo

	err := d.walk(ctx, folder, recursive, func(identifier string, entry fs.DirEntry) error {
		if entry.IsDir() || !entry.Type().IsRegular() {
			return nil
		}
		info, err := entry.Info()
		if err != nil {
			return err
		}
		files = append(files, FileInfo{
			Identifier: identifier,
			Size:       info.Size(),
			ModTime:    info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Identifier < files[j].Identifier })
	return files, nil
}

func (d *LocalDriver) ListFolders(ctx context.Context, folder string, recursive bool) ([]string, error) {
	var folders []string

	err := d.walk(ctx, folder, recursive, func(identifier string, entry fs.DirEntry) error {
		if entry.IsDir() {
			folders = append(folders, identifier+"/")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(folders)
	return folders, nil
}

// walk visits the entries below folder, skipping hidden ones.
func (d *LocalDriver) walk(ctx context.Context, folder string, recursive bool, fn func(identifier string, entry fs.DirEntry) error) error {
	folder = NormalizeFolder(folder)
	root := d.abs(folder)

	err := filepath.WalkDir(root, func(p string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if p == root {
			return nil
		}
		if isHidden(entry.Name()) {
			if entry.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		rel, err := filepath.Rel(d.root, p)
		if err != nil {
			return err
		}
		if err := fn("/"+filepath.ToSlash(rel), entry); err != nil {
			return err
		}

		if entry.IsDir() && !recursive {
			return filepath.SkipDir
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("list %s: %w", folder, mapOSError(err, ErrFolderNotFound))
	}
	return nil
}

func (d *LocalDriver) Stat(ctx context.Context, identifier string) (FileInfo, error) {
	info, err := os.Stat(d.abs(identifier))
	if err != nil {
		return FileInfo{}, fmt.Errorf("stat %s: %w", identifier, mapOSError(err, ErrFileNotFound))
	}
	if info.IsDir() {
		return FileInfo{}, fmt.Errorf("stat %s: %w", identifier, ErrFileNotFound)
	}
	return FileInfo{Identifier: NormalizeFile(identifier), Size: info.Size(), ModTime: info.ModTime()}, nil
}

func (d *LocalDriver) Open(ctx context.Context, identifier string) (io.ReadCloser, error) {
	f, err := os.Open(d.abs(identifier))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", identifier, mapOSError(err, ErrFileNotFound))
	}
	return f, nil
}

func (d *LocalDriver) Move(ctx context.Context, src, dst string) error {
	if _, err := os.Lstat(d.abs(dst)); err == nil {
		return fmt.Errorf("move %s to %s: %w", src, dst, ErrExists)
	}
	if err := os.Rename(d.abs(src), d.abs(dst)); err != nil {
		return fmt.Errorf("move %s to %s: %w", src, dst, mapOSError(err, ErrFileNotFound))
	}
	return nil
}

func (d *LocalDriver) Delete(ctx context.Context, identifier string) error {
	if err := os.Remove(d.abs(identifier)); err != nil {
		return fmt.Errorf("delete %s: %w", identifier, mapOSError(err, ErrFileNotFound))
	}
	return nil
}

// mapOSError translates filesystem errors into the package sentinels while
// keeping the original error in the chain.
func mapOSError(err error, notFound error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w: %w", notFound, err)
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("%w: %w", ErrPermission, err)
	default:
		return err
	}
}
