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

// Package model holds the in-memory, normalized representation of one
// backup's user data: eight ordered row sequences plus the schema text and
// last-modified stamp read straight off the embedded SQLite file.
//
// Model is pure data. Cleaning (internal/cleaner) and merging
// (internal/merge) mutate it; nothing here decodes or encodes bytes.
package model

// Model is one backup's full set of normalized rows.
//
// All foreign keys are plain uint32 row-ids — never pointers — so a Model
// can be drained, rewritten, and partially consumed without invalidating
// any other row's view of it.
type Model struct {
	SchemaSQL    []string
	LastModified string

	Locations   []Location
	Notes       []Note
	InputFields []InputField
	Tags        []Tag
	TagMaps     []TagMap
	BlockRanges []BlockRange
	Bookmarks   []Bookmark
	UserMarks   []UserMark
}

// Location.Type values.
const (
	LocationTypeStandard  = 0
	LocationTypePublisher = 1
	LocationTypeUnknown2  = 2
	LocationTypeUnknown3  = 3
)

// Location is a reference into a publication or the Bible: a chapter, a
// verse, a paragraph, or (Type == LocationTypePublisher) the publication
// itself, as pointed to by Bookmark.PublicationLocationID.
type Location struct {
	LocationID      uint32
	BookNumber      *uint32
	ChapterNumber   *uint32
	DocumentID      *uint32
	Track           *uint32
	IssueTagNumber  uint32
	KeySymbol       *string
	MepsLanguage    uint32
	Type            uint32
	Title           *string
}

// Value returns the location's value-identity tuple: every field except
// LocationID and Title. Two Locations with equal Value() denote the same
// place and must collapse into one row across a merge.
func (l Location) Value() LocationValue {
	return LocationValue{
		BookNumber:     deref(l.BookNumber),
		HasBookNumber:  l.BookNumber != nil,
		ChapterNumber:  deref(l.ChapterNumber),
		HasChapter:     l.ChapterNumber != nil,
		DocumentID:     deref(l.DocumentID),
		HasDocument:    l.DocumentID != nil,
		Track:          deref(l.Track),
		HasTrack:       l.Track != nil,
		IssueTagNumber: l.IssueTagNumber,
		KeySymbol:      derefStr(l.KeySymbol),
		HasKeySymbol:   l.KeySymbol != nil,
		MepsLanguage:   l.MepsLanguage,
		Type:           l.Type,
	}
}

// LocationValue is Location's value-identity, usable as a map key.
// Presence flags are kept alongside each optional field because a nil and
// a zero value are different identities (e.g. "no chapter" vs "chapter 0").
type LocationValue struct {
	BookNumber     uint32
	HasBookNumber  bool
	ChapterNumber  uint32
	HasChapter     bool
	DocumentID     uint32
	HasDocument    bool
	Track          uint32
	HasTrack       bool
	IssueTagNumber uint32
	KeySymbol      string
	HasKeySymbol   bool
	MepsLanguage   uint32
	Type           uint32
}

// UserMark is one highlight: a color applied to a Location, identified
// across backups by GUID rather than by row-id.
type UserMark struct {
	UserMarkID  uint32
	ColorIndex  uint32
	LocationID  uint32
	StyleIndex  uint32
	GUID        string
	Version     uint32
}

// BlockRange.BlockType values.
const (
	BlockRangeTypePublication = 1
	BlockRangeTypeBible       = 2
)

// BlockRange is a token span within a paragraph or verse that a UserMark
// highlights.
type BlockRange struct {
	BlockRangeID uint32
	BlockType    uint32
	Identifier   uint32
	StartToken   *uint32
	EndToken     *uint32
	UserMarkID   uint32
}

// Note.BlockType values.
const (
	NoteBlockTypeDocument  = 0
	NoteBlockTypeParagraph = 1
	NoteBlockTypeVerse     = 2
)

// Note is a user-authored annotation, optionally tied to a UserMark and/or a
// Location, identified across backups by GUID.
type Note struct {
	NoteID          uint32
	GUID            string
	UserMarkID      *uint32
	LocationID      *uint32
	Title           *string
	Content         *string
	LastModified    string
	BlockType       uint32
	BlockIdentifier *uint32
}

// Bookmark is one of the ten colored "bookmark" slots attached to a
// publication location.
type Bookmark struct {
	BookmarkID             uint32
	LocationID             uint32
	PublicationLocationID  uint32
	Slot                   uint32
	Title                  string
	Snippet                *string
	BlockType              uint32
	BlockIdentifier        *uint32
}

// Tag.Type values.
const (
	TagTypeFavorite  = 0
	TagTypeUserTag   = 1
	TagTypeUnknown2  = 2
)

// Tag is a user-defined label (or the built-in Favorite tag), identified
// across backups by (Type, Name).
type Tag struct {
	TagID         uint32
	Type          uint32
	Name          string
	ImageFilename *string
}

// TagValue is Tag's value-identity, usable as a map key.
type TagValue struct {
	Type uint32
	Name string
}

// Value returns the tag's (type, name) identity.
func (t Tag) Value() TagValue {
	return TagValue{Type: t.Type, Name: t.Name}
}

// TagMap is the junction row attaching a Tag to exactly one of a playlist
// item, a Location, or a Note.
type TagMap struct {
	TagMapID       uint32
	PlaylistItemID *uint32
	LocationID     *uint32
	NoteID         *uint32
	TagID          uint32
	Position       uint32
}

// InputField is a free-text field (unknown semantics upstream) keyed by
// (LocationID, TextTag).
type InputField struct {
	LocationID uint32
	TextTag    string
	Value      string
}

func deref(p *uint32) uint32 {
	if p == nil {
		return 0
	}
	return *p
}

func derefStr(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
