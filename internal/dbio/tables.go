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

	"github.com/abdon-gadgets/merge-jwl-go/internal/model"
)

func nullU32(n sql.NullInt64) *uint32 {
	if !n.Valid {
		return nil
	}
	v := uint32(n.Int64)
	return &v
}

func nullStr(n sql.NullString) *string {
	if !n.Valid {
		return nil
	}
	v := n.String
	return &v
}

func argU32(p *uint32) any {
	if p == nil {
		return nil
	}
	return *p
}

func argStr(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

func readLocations(db *sql.DB) ([]model.Location, error) {
	rows, err := db.Query("SELECT LocationId, BookNumber, ChapterNumber, DocumentId, Track, IssueTagNumber, KeySymbol, MepsLanguage, Type, Title FROM Location")
	if err != nil {
		return nil, fmt.Errorf("dbio: query Location: %w", err)
	}
	defer rows.Close()

	var out []model.Location
	for rows.Next() {
		var l model.Location
		var book, chapter, doc, track sql.NullInt64
		var keySymbol, title sql.NullString
		if err := rows.Scan(&l.LocationID, &book, &chapter, &doc, &track, &l.IssueTagNumber, &keySymbol, &l.MepsLanguage, &l.Type, &title); err != nil {
			return nil, fmt.Errorf("dbio: scan Location: %w", err)
		}
		l.BookNumber = nullU32(book)
		l.ChapterNumber = nullU32(chapter)
		l.DocumentID = nullU32(doc)
		l.Track = nullU32(track)
		l.KeySymbol = nullStr(keySymbol)
		l.Title = nullStr(title)
		out = append(out, l)
	}
	return out, rows.Err()
}

func writeLocations(tx *sql.Tx, rows []model.Location) error {
	stmt, err := tx.Prepare("INSERT INTO Location VALUES (?,?,?,?,?,?,?,?,?,?)")
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, l := range rows {
		if _, err := stmt.Exec(l.LocationID, argU32(l.BookNumber), argU32(l.ChapterNumber), argU32(l.DocumentID),
			argU32(l.Track), l.IssueTagNumber, argStr(l.KeySymbol), l.MepsLanguage, l.Type, argStr(l.Title)); err != nil {
			return err
		}
	}
	return nil
}

func readNotes(db *sql.DB) ([]model.Note, error) {
	rows, err := db.Query("SELECT NoteId, Guid, UserMarkId, LocationId, Title, Content, LastModified, BlockType, BlockIdentifier FROM Note")
	if err != nil {
		return nil, fmt.Errorf("dbio: query Note: %w", err)
	}
	defer rows.Close()

	var out []model.Note
	for rows.Next() {
		var n model.Note
		var userMarkID, locationID, blockIdentifier sql.NullInt64
		var title, content sql.NullString
		if err := rows.Scan(&n.NoteID, &n.GUID, &userMarkID, &locationID, &title, &content, &n.LastModified, &n.BlockType, &blockIdentifier); err != nil {
			return nil, fmt.Errorf("dbio: scan Note: %w", err)
		}
		n.UserMarkID = nullU32(userMarkID)
		n.LocationID = nullU32(locationID)
		n.Title = nullStr(title)
		n.Content = nullStr(content)
		n.BlockIdentifier = nullU32(blockIdentifier)
		out = append(out, n)
	}
	return out, rows.Err()
}

func writeNotes(tx *sql.Tx, rows []model.Note) error {
	stmt, err := tx.Prepare("INSERT INTO Note VALUES (?,?,?,?,?,?,?,?,?)")
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, n := range rows {
		if _, err := stmt.Exec(n.NoteID, n.GUID, argU32(n.UserMarkID), argU32(n.LocationID),
			argStr(n.Title), argStr(n.Content), n.LastModified, n.BlockType, argU32(n.BlockIdentifier)); err != nil {
			return err
		}
	}
	return nil
}

func readInputFields(db *sql.DB) ([]model.InputField, error) {
	rows, err := db.Query("SELECT LocationId, TextTag, Value FROM InputField")
	if err != nil {
		return nil, fmt.Errorf("dbio: query InputField: %w", err)
	}
	defer rows.Close()

	var out []model.InputField
	for rows.Next() {
		var f model.InputField
		if err := rows.Scan(&f.LocationID, &f.TextTag, &f.Value); err != nil {
			return nil, fmt.Errorf("dbio: scan InputField: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func writeInputFields(tx *sql.Tx, rows []model.InputField) error {
	stmt, err := tx.Prepare("INSERT INTO InputField VALUES (?,?,?)")
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, f := range rows {
		if _, err := stmt.Exec(f.LocationID, f.TextTag, f.Value); err != nil {
			return err
		}
	}
	return nil
}

func readTags(db *sql.DB) ([]model.Tag, error) {
	rows, err := db.Query("SELECT TagId, Type, Name, ImageFilename FROM Tag")
	if err != nil {
		return nil, fmt.Errorf("dbio: query Tag: %w", err)
	}
	defer rows.Close()

	var out []model.Tag
	for rows.Next() {
		var t model.Tag
		var imageFilename sql.NullString
		if err := rows.Scan(&t.TagID, &t.Type, &t.Name, &imageFilename); err != nil {
			return nil, fmt.Errorf("dbio: scan Tag: %w", err)
		}
		t.ImageFilename = nullStr(imageFilename)
		out = append(out, t)
	}
	return out, rows.Err()
}

func writeTags(tx *sql.Tx, rows []model.Tag) error {
	stmt, err := tx.Prepare("INSERT INTO Tag VALUES (?,?,?,?)")
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, t := range rows {
		if _, err := stmt.Exec(t.TagID, t.Type, t.Name, argStr(t.ImageFilename)); err != nil {
			return err
		}
	}
	return nil
}

func readTagMaps(db *sql.DB) ([]model.TagMap, error) {
	rows, err := db.Query("SELECT TagMapId, PlaylistItemId, LocationId, NoteId, TagId, Position FROM TagMap")
	if err != nil {
		return nil, fmt.Errorf("dbio: query TagMap: %w", err)
	}
	defer rows.Close()

	var out []model.TagMap
	for rows.Next() {
		var t model.TagMap
		var playlistItemID, locationID, noteID sql.NullInt64
		if err := rows.Scan(&t.TagMapID, &playlistItemID, &locationID, &noteID, &t.TagID, &t.Position); err != nil {
			return nil, fmt.Errorf("dbio: scan TagMap: %w", err)
		}
		t.PlaylistItemID = nullU32(playlistItemID)
		t.LocationID = nullU32(locationID)
		t.NoteID = nullU32(noteID)
		out = append(out, t)
	}
	return out, rows.Err()
}

func writeTagMaps(tx *sql.Tx, rows []model.TagMap) error {
	stmt, err := tx.Prepare("INSERT INTO TagMap VALUES (?,?,?,?,?,?)")
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, t := range rows {
		if _, err := stmt.Exec(t.TagMapID, argU32(t.PlaylistItemID), argU32(t.LocationID), argU32(t.NoteID), t.TagID, t.Position); err != nil {
			return err
		}
	}
	return nil
}

func readBlockRanges(db *sql.DB) ([]model.BlockRange, error) {
	rows, err := db.Query("SELECT BlockRangeId, BlockType, Identifier, StartToken, EndToken, UserMarkId FROM BlockRange")
	if err != nil {
		return nil, fmt.Errorf("dbio: query BlockRange: %w", err)
	}
	defer rows.Close()

	var out []model.BlockRange
	for rows.Next() {
		var b model.BlockRange
		var start, end sql.NullInt64
		if err := rows.Scan(&b.BlockRangeID, &b.BlockType, &b.Identifier, &start, &end, &b.UserMarkID); err != nil {
			return nil, fmt.Errorf("dbio: scan BlockRange: %w", err)
		}
		b.StartToken = nullU32(start)
		b.EndToken = nullU32(end)
		out = append(out, b)
	}
	return out, rows.Err()
}

func writeBlockRanges(tx *sql.Tx, rows []model.BlockRange) error {
	stmt, err := tx.Prepare("INSERT INTO BlockRange VALUES (?,?,?,?,?,?)")
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, b := range rows {
		if _, err := stmt.Exec(b.BlockRangeID, b.BlockType, b.Identifier, argU32(b.StartToken), argU32(b.EndToken), b.UserMarkID); err != nil {
			return err
		}
	}
	return nil
}

func readBookmarks(db *sql.DB) ([]model.Bookmark, error) {
	rows, err := db.Query("SELECT BookmarkId, LocationId, PublicationLocationId, Slot, Title, Snippet, BlockType, BlockIdentifier FROM Bookmark")
	if err != nil {
		return nil, fmt.Errorf("dbio: query Bookmark: %w", err)
	}
	defer rows.Close()

	var out []model.Bookmark
	for rows.Next() {
		var b model.Bookmark
		var snippet sql.NullString
		var blockIdentifier sql.NullInt64
		if err := rows.Scan(&b.BookmarkID, &b.LocationID, &b.PublicationLocationID, &b.Slot, &b.Title, &snippet, &b.BlockType, &blockIdentifier); err != nil {
			return nil, fmt.Errorf("dbio: scan Bookmark: %w", err)
		}
		b.Snippet = nullStr(snippet)
		b.BlockIdentifier = nullU32(blockIdentifier)
		out = append(out, b)
	}
	return out, rows.Err()
}

func writeBookmarks(tx *sql.Tx, rows []model.Bookmark) error {
	stmt, err := tx.Prepare("INSERT INTO Bookmark VALUES (?,?,?,?,?,?,?,?)")
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, b := range rows {
		if _, err := stmt.Exec(b.BookmarkID, b.LocationID, b.PublicationLocationID, b.Slot, b.Title, argStr(b.Snippet), b.BlockType, argU32(b.BlockIdentifier)); err != nil {
			return err
		}
	}
	return nil
}

func readUserMarks(db *sql.DB) ([]model.UserMark, error) {
	rows, err := db.Query("SELECT UserMarkId, ColorIndex, LocationId, StyleIndex, UserMarkGuid, Version FROM UserMark")
	if err != nil {
		return nil, fmt.Errorf("dbio: query UserMark: %w", err)
	}
	defer rows.Close()

	var out []model.UserMark
	for rows.Next() {
		var u model.UserMark
		if err := rows.Scan(&u.UserMarkID, &u.ColorIndex, &u.LocationID, &u.StyleIndex, &u.GUID, &u.Version); err != nil {
			return nil, fmt.Errorf("dbio: scan UserMark: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func writeUserMarks(tx *sql.Tx, rows []model.UserMark) error {
	stmt, err := tx.Prepare("INSERT INTO UserMark VALUES (?,?,?,?,?,?)")
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, u := range rows {
		if _, err := stmt.Exec(u.UserMarkID, u.ColorIndex, u.LocationID, u.StyleIndex, u.GUID, u.Version); err != nil {
			return err
		}
	}
	return nil
}
