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

package dbio

import (
	"database/sql"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

const testSchema = `
CREATE TABLE LastModified (LastModified TEXT NOT NULL);
CREATE TABLE Location (
	LocationId INTEGER PRIMARY KEY,
	BookNumber INTEGER,
	ChapterNumber INTEGER,
	DocumentId INTEGER,
	Track INTEGER,
	IssueTagNumber INTEGER NOT NULL,
	KeySymbol TEXT,
	MepsLanguage INTEGER NOT NULL,
	Type INTEGER NOT NULL,
	Title TEXT
);
CREATE TABLE UserMark (
	UserMarkId INTEGER PRIMARY KEY,
	ColorIndex INTEGER NOT NULL,
	LocationId INTEGER NOT NULL,
	StyleIndex INTEGER NOT NULL,
	UserMarkGuid TEXT NOT NULL,
	Version INTEGER NOT NULL
);
CREATE TABLE Note (
	NoteId INTEGER PRIMARY KEY,
	Guid TEXT NOT NULL,
	UserMarkId INTEGER,
	LocationId INTEGER,
	Title TEXT,
	Content TEXT,
	LastModified TEXT NOT NULL,
	BlockType INTEGER NOT NULL,
	BlockIdentifier INTEGER
);
CREATE TABLE BlockRange (
	BlockRangeId INTEGER PRIMARY KEY,
	BlockType INTEGER NOT NULL,
	Identifier INTEGER NOT NULL,
	StartToken INTEGER,
	EndToken INTEGER,
	UserMarkId INTEGER NOT NULL
);
CREATE TABLE Bookmark (
	BookmarkId INTEGER PRIMARY KEY,
	LocationId INTEGER NOT NULL,
	PublicationLocationId INTEGER NOT NULL,
	Slot INTEGER NOT NULL,
	Title TEXT NOT NULL,
	Snippet TEXT,
	BlockType INTEGER NOT NULL,
	BlockIdentifier INTEGER
);
CREATE TABLE Tag (
	TagId INTEGER PRIMARY KEY,
	Type INTEGER NOT NULL,
	Name TEXT NOT NULL,
	ImageFilename TEXT
);
CREATE TABLE TagMap (
	TagMapId INTEGER PRIMARY KEY,
	PlaylistItemId INTEGER,
	LocationId INTEGER,
	NoteId INTEGER,
	TagId INTEGER NOT NULL,
	Position INTEGER NOT NULL
);
CREATE TABLE InputField (
	LocationId INTEGER NOT NULL,
	TextTag TEXT NOT NULL,
	Value TEXT NOT NULL
);
CREATE TABLE PlaylistMedia (
	PlaylistItemId INTEGER NOT NULL
);
`

// buildTestDatabase creates a throwaway SQLite file with testSchema
// applied, the given user_version, and one Location/Bookmark row so
// Read has something to walk, returning its on-disk bytes.
func buildTestDatabase(t *testing.T, userVersion int) []byte {
	t.Helper()

	f, err := os.CreateTemp("", "dbio-fixture-*.sqlite")
	require.NoError(t, err)
	path := f.Name()
	f.Close()
	defer os.Remove(path)

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	for _, stmt := range splitStatements(testSchema) {
		_, err := db.Exec(stmt)
		require.NoError(t, err)
	}
	_, err = db.Exec(fmt.Sprintf("PRAGMA user_version = %d", userVersion))
	require.NoError(t, err)

	_, err = db.Exec("INSERT INTO LastModified VALUES ('2026-01-01T00:00:00Z')")
	require.NoError(t, err)
	_, err = db.Exec("INSERT INTO Location VALUES (1, 66, 1, NULL, NULL, 0, 'nwt', 1, 0, NULL)")
	require.NoError(t, err)
	_, err = db.Exec("INSERT INTO Bookmark VALUES (1, 1, 1, 0, 'Genesis 1', NULL, 0, NULL)")
	require.NoError(t, err)

	db.Close()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return data
}

func splitStatements(schema string) []string {
	var out []string
	var cur string
	for _, line := range splitLines(schema) {
		cur += line + "\n"
		if hasSuffixSemicolon(line) {
			out = append(out, cur)
			cur = ""
		}
	}
	return out
}

func splitLines(s string) []string {
	var lines []string
	start := 0
	for i, c := range s {
		if c == '\n' {
			lines = append(lines, s[start:i])
			start = i + 1
		}
	}
	if start < len(s) {
		lines = append(lines, s[start:])
	}
	return lines
}

func hasSuffixSemicolon(line string) bool {
	trimmed := line
	for len(trimmed) > 0 && (trimmed[len(trimmed)-1] == ' ' || trimmed[len(trimmed)-1] == '\t' || trimmed[len(trimmed)-1] == '\r') {
		trimmed = trimmed[:len(trimmed)-1]
	}
	return len(trimmed) > 0 && trimmed[len(trimmed)-1] == ';'
}

func TestNormalizeFormatVersion_RewritesReadWriteBytes(t *testing.T) {
	data := buildTestDatabase(t, wantUserVersion)

	toReadForm, err := normalizeFormatVersion(data, 1)
	require.NoError(t, err)
	assert.Equal(t, byte(1), toReadForm[18])
	assert.Equal(t, byte(1), toReadForm[19])

	toWriteForm, err := normalizeFormatVersion(toReadForm, 2)
	require.NoError(t, err)
	assert.Equal(t, byte(2), toWriteForm[18])
	assert.Equal(t, byte(2), toWriteForm[19])
}

func TestNormalizeFormatVersion_RejectsBadHeader(t *testing.T) {
	_, err := normalizeFormatVersion([]byte("not a sqlite file"), 1)
	assert.Error(t, err)
}

func TestNormalizeFormatVersion_RejectsUnknownVersionBytes(t *testing.T) {
	data := buildTestDatabase(t, wantUserVersion)
	data[18], data[19] = 9, 9
	_, err := normalizeFormatVersion(data, 1)
	assert.Error(t, err)
}

func TestRead_RejectsWrongUserVersion(t *testing.T) {
	data := buildTestDatabase(t, 1)
	_, err := Read(data)
	assert.Error(t, err)
}

func TestRead_RejectsNonEmptyPlaylistMedia(t *testing.T) {
	f, err := os.CreateTemp("", "dbio-fixture-*.sqlite")
	require.NoError(t, err)
	path := f.Name()
	f.Close()
	defer os.Remove(path)

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	for _, stmt := range splitStatements(testSchema) {
		_, err := db.Exec(stmt)
		require.NoError(t, err)
	}
	_, err = db.Exec(fmt.Sprintf("PRAGMA user_version = %d", wantUserVersion))
	require.NoError(t, err)
	_, err = db.Exec("INSERT INTO LastModified VALUES ('2026-01-01T00:00:00Z')")
	require.NoError(t, err)
	_, err = db.Exec("INSERT INTO PlaylistMedia VALUES (1)")
	require.NoError(t, err)
	db.Close()

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	_, err = Read(data)
	assert.Error(t, err)
}

func TestReadThenWrite_RoundTripsRows(t *testing.T) {
	data := buildTestDatabase(t, wantUserVersion)

	m, err := Read(data)
	require.NoError(t, err)
	require.Len(t, m.Locations, 1)
	require.Len(t, m.Bookmarks, 1)
	assert.Equal(t, "2026-01-01T00:00:00Z", m.LastModified)
	assert.Equal(t, uint32(66), *m.Locations[0].BookNumber)
	assert.Nil(t, m.Locations[0].DocumentID)
	assert.Equal(t, "nwt", *m.Locations[0].KeySymbol)

	out, err := Write(m)
	require.NoError(t, err)

	reread, err := Read(out)
	require.NoError(t, err)
	assert.Equal(t, m.Locations, reread.Locations)
	assert.Equal(t, m.Bookmarks, reread.Bookmarks)
	assert.Equal(t, m.LastModified, reread.LastModified)
}
