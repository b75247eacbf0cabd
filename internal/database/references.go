package database

import (
	"context"
	"fmt"
)

const (
	fileTable     = "sys_file"
	metadataTable = "sys_file_metadata"
)

// RefIndexRow is a generic cross-reference row.
type RefIndexRow struct {
	Hash      string
	Tablename string
	RecUID    int64
	Field     string
	RefTable  string
	RefUID    int64
}

// FileReference is a row of the file-reference join table.
type FileReference struct {
	UIDLocal   int64
	Tablenames string
	UIDForeign int64
	Fieldname  string
	Tstamp     int64
	Deleted    bool
}

// CountRefIndex counts reference index rows pointing at a file. Rows owned by
// file metadata are not a use of the file.
func (db *DB) CountRefIndex(ctx context.Context, fileUID int64) (int, error) {
	var n int
	err := db.queryRow(ctx, `
		SELECT COUNT(recuid) FROM sys_refindex
		WHERE ref_table = ? AND ref_uid = ? AND tablename <> ?`,
		fileTable, fileUID, metadataTable,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count refindex rows for file %d: %w", fileUID, err)
	}
	return n, nil
}

// CountFileReferences counts live file-reference rows pointing at a file.
func (db *DB) CountFileReferences(ctx context.Context, fileUID int64) (int, error) {
	var n int
	err := db.queryRow(ctx, `
		SELECT COUNT(uid) FROM sys_file_reference
		WHERE table_local = ? AND uid_local = ? AND deleted = 0`,
		fileTable, fileUID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count file references for file %d: %w", fileUID, err)
	}
	return n, nil
}

// LastReferenceRemoval returns the newest tstamp of a deleted reference to the
// file, 0 when none was ever removed.
func (db *DB) LastReferenceRemoval(ctx context.Context, fileUID int64) (int64, error) {
	var ts int64
	err := db.queryRow(ctx, `
		SELECT COALESCE(MAX(tstamp), 0) FROM sys_file_reference
		WHERE uid_local = ? AND deleted = 1`,
		fileUID,
	).Scan(&ts)
	if err != nil {
		return 0, fmt.Errorf("failed to get last reference removal for file %d: %w", fileUID, err)
	}
	return ts, nil
}

func (db *DB) InsertRefIndex(ctx context.Context, row RefIndexRow) error {
	if row.Hash == "" {
		row.Hash = fmt.Sprintf("%s:%d:%s:%s:%d", row.Tablename, row.RecUID, row.Field, row.RefTable, row.RefUID)
	}
	_, err := db.exec(ctx, `
		INSERT INTO sys_refindex (hash, tablename, recuid, field, ref_table, ref_uid)
		VALUES (?, ?, ?, ?, ?, ?)`,
		row.Hash, row.Tablename, row.RecUID, row.Field, row.RefTable, row.RefUID,
	)
	if err != nil {
		return fmt.Errorf("failed to insert refindex row %s: %w", row.Hash, err)
	}
	return nil
}

func (db *DB) InsertFileReference(ctx context.Context, ref FileReference) (int64, error) {
	deleted := 0
	if ref.Deleted {
		deleted = 1
	}

	var uid int64
	err := db.queryRow(ctx, `
		INSERT INTO sys_file_reference (uid_local, table_local, tablenames, uid_foreign, fieldname, tstamp, deleted)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING uid`,
		ref.UIDLocal, fileTable, ref.Tablenames, ref.UIDForeign, ref.Fieldname, ref.Tstamp, deleted,
	).Scan(&uid)
	if err != nil {
		return 0, fmt.Errorf("failed to insert file reference for file %d: %w", ref.UIDLocal, err)
	}
	return uid, nil
}
