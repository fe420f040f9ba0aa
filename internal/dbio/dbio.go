/*
SPDX-License-Identifier: GPL-3.0-or-later

Copyright (C) 2026 The merge-jwl-go Authors

This file is part of merge-jwl-go.

merge-jwl-go is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

merge-jwl-go is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with merge-jwl-go. If not, see https://www.gnu.org/licenses/.
*/

// Package dbio reads and writes the embedded SQLite database that a backup
// archive carries, translating its rows to and from internal/model.Model.
//
// It opens the database through database/sql with the pure-Go
// modernc.org/sqlite driver rather than a cgo binding: this package has to
// stay buildable for GOOS=js GOARCH=wasm (the original tool's browser
// embedding target), which rules out any driver that shells out to the C
// SQLite amalgamation.
package dbio

import (
	"database/sql"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"github.com/abdon-gadgets/merge-jwl-go/internal/merge"
	"github.com/abdon-gadgets/merge-jwl-go/internal/model"
)

const sqliteHeader = "SQLite format 3\x00"

const wantUserVersion = 8

// insertOrder is the fixed table order original_source's own writer uses.
var insertOrder = []string{
	"LastModified", "Location", "Bookmark", "InputField",
	"UserMark", "Note", "BlockRange", "Tag", "TagMap",
}

// Read decodes a SQLite file's bytes into a Model.
func Read(data []byte) (*model.Model, error) {
	normalized, err := normalizeFormatVersion(data, 1)
	if err != nil {
		return nil, err
	}

	path, cleanup, err := stageTempFile(normalized)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("dbio: open: %w", err)
	}
	defer db.Close()

	if err := checkUserVersion(db); err != nil {
		return nil, err
	}
	if err := checkForeignKeys(db); err != nil {
		return nil, err
	}
	if err := checkPlaylistMediaEmpty(db); err != nil {
		return nil, err
	}

	m := &model.Model{}
	var readErr error
	if m.SchemaSQL, readErr = readSchema(db); readErr != nil {
		return nil, readErr
	}
	if m.LastModified, readErr = readLastModified(db); readErr != nil {
		return nil, readErr
	}
	if m.Locations, readErr = readLocations(db); readErr != nil {
		return nil, readErr
	}
	if m.Notes, readErr = readNotes(db); readErr != nil {
		return nil, readErr
	}
	if m.InputFields, readErr = readInputFields(db); readErr != nil {
		return nil, readErr
	}
	if m.Tags, readErr = readTags(db); readErr != nil {
		return nil, readErr
	}
	if m.TagMaps, readErr = readTagMaps(db); readErr != nil {
		return nil, readErr
	}
	if m.BlockRanges, readErr = readBlockRanges(db); readErr != nil {
		return nil, readErr
	}
	if m.Bookmarks, readErr = readBookmarks(db); readErr != nil {
		return nil, readErr
	}
	if m.UserMarks, readErr = readUserMarks(db); readErr != nil {
		return nil, readErr
	}
	return m, nil
}

// Write recreates a fresh SQLite database from m's schema text and rows,
// returning its on-disk bytes with the write-format version set to 2.
func Write(m *model.Model) ([]byte, error) {
	f, err := os.CreateTemp("", "mergejwl-*.sqlite")
	if err != nil {
		return nil, fmt.Errorf("dbio: create temp file: %w", err)
	}
	path := f.Name()
	f.Close()
	defer os.Remove(path)

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("dbio: open: %w", err)
	}
	defer db.Close()

	for _, stmt := range m.SchemaSQL {
		if _, err := db.Exec(stmt); err != nil {
			return nil, fmt.Errorf("dbio: apply schema: %w", err)
		}
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", wantUserVersion)); err != nil {
		return nil, fmt.Errorf("dbio: set user_version: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return nil, fmt.Errorf("dbio: begin transaction: %w", err)
	}
	if err := writeRows(tx, m); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("dbio: commit: %w", err)
	}
	db.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("dbio: read back temp file: %w", err)
	}
	return normalizeFormatVersion(data, 2)
}

func writeRows(tx *sql.Tx, m *model.Model) error {
	for _, table := range insertOrder {
		log.Debug().Str("table", table).Msg("writing table")
		var err error
		switch table {
		case "LastModified":
			_, err = tx.Exec("INSERT INTO LastModified VALUES (?)", m.LastModified)
		case "Location":
			err = writeLocations(tx, m.Locations)
		case "Bookmark":
			err = writeBookmarks(tx, m.Bookmarks)
		case "InputField":
			err = writeInputFields(tx, m.InputFields)
		case "UserMark":
			err = writeUserMarks(tx, m.UserMarks)
		case "Note":
			err = writeNotes(tx, m.Notes)
		case "BlockRange":
			err = writeBlockRanges(tx, m.BlockRanges)
		case "Tag":
			err = writeTags(tx, m.Tags)
		case "TagMap":
			err = writeTagMaps(tx, m.TagMaps)
		}
		if err != nil {
			return fmt.Errorf("dbio: write %s: %w", table, err)
		}
	}
	return nil
}

// normalizeFormatVersion copies data and rewrites the file-format
// read/write version bytes at offset 18-19 to the requested value (1 for
// the in-memory read/write form, 2 for the on-disk form), validating the
// header magic and accepting only the two values SQLite itself uses.
func normalizeFormatVersion(data []byte, want byte) ([]byte, error) {
	if len(data) < 20 || string(data[:16]) != sqliteHeader {
		return nil, fmt.Errorf("dbio: invalid header")
	}
	out := make([]byte, len(data))
	copy(out, data)
	switch {
	case out[18] == 1 && out[19] == 1:
	case out[18] == 2 && out[19] == 2:
	default:
		return nil, fmt.Errorf("dbio: unknown file format read/write version %d/%d", out[18], out[19])
	}
	out[18], out[19] = want, want
	return out, nil
}

func stageTempFile(data []byte) (path string, cleanup func(), err error) {
	f, err := os.CreateTemp("", "mergejwl-read-*.sqlite")
	if err != nil {
		return "", nil, fmt.Errorf("dbio: create temp file: %w", err)
	}
	path = f.Name()
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(path)
		return "", nil, fmt.Errorf("dbio: write temp file: %w", err)
	}
	f.Close()
	return path, func() { os.Remove(path) }, nil
}

func checkUserVersion(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("dbio: read user_version: %w", err)
	}
	if version != wantUserVersion {
		return fmt.Errorf("dbio: unsupported user_version %d", version)
	}
	return nil
}

func checkForeignKeys(db *sql.DB) error {
	rows, err := db.Query("PRAGMA foreign_key_check")
	if err != nil {
		return fmt.Errorf("dbio: foreign_key_check: %w", err)
	}
	defer rows.Close()

	var violations []string
	for rows.Next() {
		var table string
		var rowID sql.NullInt64
		var parent string
		var fkid sql.NullInt64
		if err := rows.Scan(&table, &rowID, &parent, &fkid); err != nil {
			return fmt.Errorf("dbio: scan foreign_key_check row: %w", err)
		}
		violations = append(violations, fmt.Sprintf("%s(row %d) -> %s", table, rowID.Int64, parent))
	}
	if len(violations) > 0 {
		return fmt.Errorf("%w: %v", merge.ErrForeignKeyViolation, violations)
	}
	return rows.Err()
}

func checkPlaylistMediaEmpty(db *sql.DB) error {
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM PlaylistMedia").Scan(&count); err != nil {
		return fmt.Errorf("dbio: count PlaylistMedia: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("%w: PlaylistMedia merge", merge.ErrNotImplemented)
	}
	return nil
}

func readSchema(db *sql.DB) ([]string, error) {
	rows, err := db.Query("SELECT sql FROM sqlite_master WHERE sql IS NOT NULL")
	if err != nil {
		return nil, fmt.Errorf("dbio: read schema: %w", err)
	}
	defer rows.Close()

	var schema []string
	for rows.Next() {
		var stmt string
		if err := rows.Scan(&stmt); err != nil {
			return nil, fmt.Errorf("dbio: scan schema row: %w", err)
		}
		schema = append(schema, stmt)
	}
	return schema, rows.Err()
}

func readLastModified(db *sql.DB) (string, error) {
	var lastModified string
	if err := db.QueryRow("SELECT LastModified FROM LastModified").Scan(&lastModified); err != nil {
		return "", fmt.Errorf("dbio: read LastModified: %w", err)
	}
	return lastModified, nil
}
