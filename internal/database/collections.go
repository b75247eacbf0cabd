package database

import (
	"context"
	"fmt"
)

const (
	CollectionTypeFolder   = "folder"
	CollectionTypeCategory = "category"
	CollectionTypeStatic   = "static"
)

// FileCollection is a named grouping of files. Folder collections carry a
// combined folder identifier, category collections a category uid.
type FileCollection struct {
	UID              int64
	Title            string
	Type             string
	FolderIdentifier string
	Recursive        bool
	Category         int64
}

const collectionColumns = `uid, title, type, folder_identifier, recursive, category`

func (db *DB) queryCollections(ctx context.Context, query string, args ...any) ([]FileCollection, error) {
	rows, err := db.query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []FileCollection
	for rows.Next() {
		var (
			c         FileCollection
			recursive int
		)
		if err := rows.Scan(&c.UID, &c.Title, &c.Type, &c.FolderIdentifier, &recursive, &c.Category); err != nil {
			return nil, err
		}
		c.Recursive = recursive != 0
		out = append(out, c)
	}
	return out, rows.Err()
}

// FolderCollections returns folder collections whose combined folder
// identifier lies below scanFolder (a combined identifier ending in /). The
// collection on scanFolder itself is only included when includeSelf is set.
func (db *DB) FolderCollections(ctx context.Context, scanFolder string, includeSelf bool) ([]FileCollection, error) {
	query := `SELECT ` + collectionColumns + ` FROM sys_file_collection
		WHERE deleted = 0 AND type = ? AND substr(folder_identifier, 1, length(CAST(? AS TEXT))) = ?`
	args := []any{CollectionTypeFolder, scanFolder, scanFolder}
	if !includeSelf {
		query += ` AND folder_identifier <> ?`
		args = append(args, scanFolder)
	}
	query += ` ORDER BY uid`

	out, err := db.queryCollections(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load folder collections under %s: %w", scanFolder, err)
	}
	return out, nil
}

// CategoryCollections returns every category collection.
func (db *DB) CategoryCollections(ctx context.Context) ([]FileCollection, error) {
	out, err := db.queryCollections(ctx, `SELECT `+collectionColumns+` FROM sys_file_collection
		WHERE deleted = 0 AND type = ? ORDER BY uid`, CollectionTypeCategory)
	if err != nil {
		return nil, fmt.Errorf("failed to load category collections: %w", err)
	}
	return out, nil
}

// CategoryFileUIDs returns the files tagged with a category, either through
// their metadata record or directly.
func (db *DB) CategoryFileUIDs(ctx context.Context, category int64) ([]int64, error) {
	rows, err := db.query(ctx, `
		SELECT m.file FROM sys_category_record_mm mm
		JOIN sys_file_metadata m ON m.uid = mm.uid_foreign
		WHERE mm.uid_local = ? AND mm.tablenames = ?
		UNION
		SELECT mm.uid_foreign FROM sys_category_record_mm mm
		WHERE mm.uid_local = ? AND mm.tablenames = ?`,
		category, metadataTable, category, fileTable,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load files of category %d: %w", category, err)
	}
	defer rows.Close()

	var uids []int64
	for rows.Next() {
		var uid int64
		if err := rows.Scan(&uid); err != nil {
			return nil, err
		}
		uids = append(uids, uid)
	}
	return uids, rows.Err()
}

func (db *DB) InsertCollection(ctx context.Context, c FileCollection) (int64, error) {
	recursive := 0
	if c.Recursive {
		recursive = 1
	}

	var uid int64
	err := db.queryRow(ctx, `
		INSERT INTO sys_file_collection (title, type, folder_identifier, recursive, category)
		VALUES (?, ?, ?, ?, ?)
		RETURNING uid`,
		c.Title, c.Type, c.FolderIdentifier, recursive, c.Category,
	).Scan(&uid)
	if err != nil {
		return 0, fmt.Errorf("failed to insert collection %q: %w", c.Title, err)
	}
	return uid, nil
}

// InsertCategoryRecord tags a record (sys_file or sys_file_metadata) with a category.
func (db *DB) InsertCategoryRecord(ctx context.Context, category int64, tablename string, uid int64) error {
	_, err := db.exec(ctx, `
		INSERT INTO sys_category_record_mm (uid_local, uid_foreign, tablenames, fieldname)
		VALUES (?, ?, ?, 'categories')`,
		category, uid, tablename,
	)
	if err != nil {
		return fmt.Errorf("failed to tag %s:%d with category %d: %w", tablename, uid, category, err)
	}
	return nil
}
