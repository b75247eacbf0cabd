package database

import (
	"context"
	"fmt"

	"file_cleanup/internal/logger"
)

// FileRecord is one row of the file index.
type FileRecord struct {
	UID              int64
	Storage          int
	Identifier       string
	Name             string
	Size             int64
	ModificationDate int64 // unix seconds
	LastMove         int64 // unix seconds, 0 when never moved
}

const fileColumns = `uid, storage, identifier, name, size, modification_date, last_move`

type scanner interface {
	Scan(dest ...any) error
}

func scanFile(row scanner) (FileRecord, error) {
	var f FileRecord
	err := row.Scan(&f.UID, &f.Storage, &f.Identifier, &f.Name, &f.Size, &f.ModificationDate, &f.LastMove)
	return f, err
}

// IndexFile upserts the index row for a file found in a storage and returns it.
func (db *DB) IndexFile(ctx context.Context, storage int, identifier, name string, size, modified int64) (FileRecord, error) {
	query := `
		INSERT INTO sys_file (storage, identifier, name, size, modification_date)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (storage, identifier) DO UPDATE SET
			name = excluded.name,
			size = excluded.size,
			modification_date = excluded.modification_date
		RETURNING ` + fileColumns

	f, err := scanFile(db.queryRow(ctx, query, storage, identifier, name, size, modified))
	if err != nil {
		logger.Error.Printf("Database error indexing file %d:%s: %v", storage, identifier, err)
		return FileRecord{}, fmt.Errorf("failed to index file %d:%s: %w", storage, identifier, err)
	}

	logger.Debug.Printf("Indexed file %d:%s as uid %d", storage, identifier, f.UID)
	return f, nil
}

// FileByUID returns the index row for uid or ErrNotFound.
func (db *DB) FileByUID(ctx context.Context, uid int64) (FileRecord, error) {
	f, err := scanFile(db.queryRow(ctx, `SELECT `+fileColumns+` FROM sys_file WHERE uid = ?`, uid))
	if err != nil {
		return FileRecord{}, notFound(err)
	}
	return f, nil
}

// FileByIdentifier returns the index row for a storage path or ErrNotFound.
func (db *DB) FileByIdentifier(ctx context.Context, storage int, identifier string) (FileRecord, error) {
	f, err := scanFile(db.queryRow(ctx,
		`SELECT `+fileColumns+` FROM sys_file WHERE storage = ? AND identifier = ?`, storage, identifier))
	if err != nil {
		return FileRecord{}, notFound(err)
	}
	return f, nil
}

// RenameFile points the index row at its new location after a move.
func (db *DB) RenameFile(ctx context.Context, uid int64, identifier, name string) error {
	_, err := db.exec(ctx, `UPDATE sys_file SET identifier = ?, name = ? WHERE uid = ?`, identifier, name, uid)
	if err != nil {
		return fmt.Errorf("failed to rename file %d: %w", uid, err)
	}
	return nil
}

// SetLastMove stamps the time a file was last moved.
func (db *DB) SetLastMove(ctx context.Context, uid int64, ts int64) error {
	_, err := db.exec(ctx, `UPDATE sys_file SET last_move = ? WHERE uid = ?`, ts, uid)
	if err != nil {
		return fmt.Errorf("failed to set last move of file %d: %w", uid, err)
	}
	return nil
}

// LastMove returns the last move timestamp of a file, 0 when unknown.
func (db *DB) LastMove(ctx context.Context, uid int64) (int64, error) {
	var ts int64
	err := db.queryRow(ctx, `SELECT last_move FROM sys_file WHERE uid = ?`, uid).Scan(&ts)
	if err != nil {
		if notFound(err) == ErrNotFound {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get last move of file %d: %w", uid, err)
	}
	return ts, nil
}

// RemoveFile deletes the index row of a removed file.
func (db *DB) RemoveFile(ctx context.Context, uid int64) error {
	_, err := db.exec(ctx, `DELETE FROM sys_file WHERE uid = ?`, uid)
	if err != nil {
		return fmt.Errorf("failed to remove file record %d: %w", uid, err)
	}
	return nil
}

// InsertMetadata adds a metadata row for a file and returns its uid.
func (db *DB) InsertMetadata(ctx context.Context, fileUID int64) (int64, error) {
	var uid int64
	err := db.queryRow(ctx, `INSERT INTO sys_file_metadata (file) VALUES (?) RETURNING uid`, fileUID).Scan(&uid)
	if err != nil {
		return 0, fmt.Errorf("failed to insert metadata for file %d: %w", fileUID, err)
	}
	return uid, nil
}
