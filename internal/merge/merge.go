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

// Package merge implements the deterministic, in-memory merge engine: a
// left fold over input model.Models that unions their normalized record
// sets into one, reconciling primary keys, foreign keys, identity
// equivalence, slot contention, range overlap, tag-position uniqueness,
// and last-writer-wins note content.
package merge

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/abdon-gadgets/merge-jwl-go/internal/guid"
	"github.com/abdon-gadgets/merge-jwl-go/internal/locationmerge"
	"github.com/abdon-gadgets/merge-jwl-go/internal/model"
)

// Merge folds models[1:] into models[0] and returns the resulting model
// plus the ordered list of diagnostic messages produced along the way.
// models[0] is mutated in place and returned as dst; every other input is
// drained (its slices are emptied) as its rows are consumed.
//
// Merge requires at least one model. A failure aborts the whole fold —
// the caller must discard whatever dst has become.
func Merge(models ...*model.Model) (*model.Model, []Message, error) {
	if len(models) < 1 {
		return nil, nil, ErrEmptyInput
	}
	dst := models[0]
	var messages []Message
	for _, src := range models[1:] {
		p := newPass(src, dst)
		if err := p.run(&messages); err != nil {
			if errors.Is(err, locationmerge.ErrUnknownLocation) {
				err = fmt.Errorf("%w: %w", ErrForeignKeyViolation, err)
			}
			return nil, nil, err
		}
	}
	return dst, messages, nil
}

// passState models the per-pass lifecycle named in the spec:
// Constructed → BookmarksDone → UserMarksDone → NotesDone →
// BlockRangesDone → TagsDone → TagMapsDone → InputFieldsDone.
// It exists to make step ordering an explicit, checkable invariant rather
// than an implicit consequence of the function body.
type passState int

const (
	stateConstructed passState = iota
	stateBookmarksDone
	stateUserMarksDone
	stateNotesDone
	stateBlockRangesDone
	stateTagsDone
	stateTagMapsDone
	stateInputFieldsDone
)

// pass holds the state scoped to folding one source model into dst.
type pass struct {
	src *model.Model
	dst *model.Model

	userMarkTranslate map[uint32]uint32
	noteTranslate     map[uint32]uint32
	tagTranslate      map[uint32]uint32
	loc               *locationmerge.Merge

	state passState
}

func newPass(src, dst *model.Model) *pass {
	return &pass{
		src:               src,
		dst:               dst,
		userMarkTranslate: make(map[uint32]uint32),
		noteTranslate:     make(map[uint32]uint32),
		tagTranslate:      make(map[uint32]uint32),
		loc:               locationmerge.New(src, dst),
		state:             stateConstructed,
	}
}

func (p *pass) run(messages *[]Message) error {
	if err := p.advance(stateConstructed, stateBookmarksDone, p.mergeBookmarks(messages)); err != nil {
		return err
	}
	if err := p.advance(stateBookmarksDone, stateUserMarksDone, p.mergeUserMarks()); err != nil {
		return err
	}
	if err := p.advance(stateUserMarksDone, stateNotesDone, p.mergeNotes(messages)); err != nil {
		return err
	}
	if err := p.advance(stateNotesDone, stateBlockRangesDone, p.mergeBlockRanges()); err != nil {
		return err
	}
	if err := p.advance(stateBlockRangesDone, stateTagsDone, p.mergeTags()); err != nil {
		return err
	}
	if err := p.advance(stateTagsDone, stateTagMapsDone, p.mergeTagMaps()); err != nil {
		return err
	}
	return p.advance(stateTagMapsDone, stateInputFieldsDone, p.mergeInputFields())
}

func (p *pass) advance(from, to passState, err error) error {
	if err != nil {
		return err
	}
	if p.state != from {
		return fmt.Errorf("merge: internal state error: expected %d, got %d", from, p.state)
	}
	p.state = to
	return nil
}

// mergeBookmarks is step 1. Bookmarks and UserMarks merge before Notes and
// BlockRanges because Notes may reference UserMarks and BlockRanges always
// do; Locations are interned lazily on demand.
func (p *pass) mergeBookmarks(messages *[]Message) error {
	if len(p.src.Bookmarks) == 0 {
		return nil
	}
	maxID := maxBookmarkID(p.dst.Bookmarks)
	src := p.src.Bookmarks
	p.src.Bookmarks = nil

	for _, b := range src {
		locID, err := p.loc.Intern(&p.dst.Locations, b.LocationID)
		if err != nil {
			return err
		}
		srcPubLocationID := b.PublicationLocationID
		pubLocID, err := p.loc.Intern(&p.dst.Locations, srcPubLocationID)
		if err != nil {
			return err
		}
		b.LocationID = locID
		b.PublicationLocationID = pubLocID

		maxID++
		b.BookmarkID = maxID

		slots := make([]uint32, 0, 8)
		for _, existing := range p.dst.Bookmarks {
			if existing.PublicationLocationID == pubLocID {
				slots = append(slots, existing.Slot)
			}
		}
		slots = append(slots, 10)

		taken := false
		for _, s := range slots {
			if s == b.Slot {
				taken = true
				break
			}
		}
		if taken {
			sort.Slice(slots, func(i, j int) bool { return slots[i] < slots[j] })
			free, ok := lowestFreeSlot(slots)
			if !ok {
				value, _ := p.loc.CachedValue(srcPubLocationID)
				var keySymbol *string
				if value.HasKeySymbol {
					ks := value.KeySymbol
					keySymbol = &ks
				}
				log.Debug().Str("bookmark_title", b.Title).Msg("all bookmark slots are filled")
				*messages = append(*messages, BookmarkOverflow(keySymbol, value.IssueTagNumber, b.Title, b.Snippet))
				continue
			}
			b.Slot = free
		}
		p.dst.Bookmarks = append(p.dst.Bookmarks, b)
	}
	return nil
}

// lowestFreeSlot returns the lowest non-negative integer i < 10 such that i
// is not present in sorted (ascending), matching the spec's "sort
// ascending and take the first index where slots[i] != i" rule.
func lowestFreeSlot(sorted []uint32) (uint32, bool) {
	for i, s := range sorted {
		if s != uint32(i) {
			return uint32(i), true
		}
	}
	return 0, false
}

func maxBookmarkID(bookmarks []model.Bookmark) uint32 {
	var max uint32
	for _, b := range bookmarks {
		if b.BookmarkID > max {
			max = b.BookmarkID
		}
	}
	return max
}

// mergeUserMarks is step 2.
func (p *pass) mergeUserMarks() error {
	if len(p.src.UserMarks) == 0 {
		return nil
	}
	guidByDst := make(map[guid.Key]uint32, len(p.dst.UserMarks))
	for _, u := range p.dst.UserMarks {
		key, err := guid.Parse(u.GUID)
		if err != nil {
			return err
		}
		guidByDst[key] = u.UserMarkID
	}
	maxID := maxUserMarkID(p.dst.UserMarks)

	src := p.src.UserMarks
	p.src.UserMarks = nil

	for _, u := range src {
		if _, dup := p.userMarkTranslate[u.UserMarkID]; dup {
			return fmt.Errorf("%w: user mark %d", ErrDuplicateSourceID, u.UserMarkID)
		}
		key, err := guid.Parse(u.GUID)
		if err != nil {
			return err
		}
		if existing, ok := guidByDst[key]; ok {
			p.userMarkTranslate[u.UserMarkID] = existing
			continue
		}
		locID, err := p.loc.Intern(&p.dst.Locations, u.LocationID)
		if err != nil {
			return err
		}
		maxID++
		srcID := u.UserMarkID
		u.UserMarkID = maxID
		u.LocationID = locID
		p.userMarkTranslate[srcID] = u.UserMarkID
		p.dst.UserMarks = append(p.dst.UserMarks, u)
	}
	return nil
}

func maxUserMarkID(userMarks []model.UserMark) uint32 {
	var max uint32
	for _, u := range userMarks {
		if u.UserMarkID > max {
			max = u.UserMarkID
		}
	}
	return max
}

// mergeNotes is step 3. A Note's UserMarkID and LocationID are never
// rewritten when it is updated in place — only on first insertion.
func (p *pass) mergeNotes(messages *[]Message) error {
	if len(p.src.Notes) == 0 {
		return nil
	}
	guidIndex := make(map[guid.Key]int, len(p.dst.Notes))
	for i, n := range p.dst.Notes {
		key, err := guid.Parse(n.GUID)
		if err != nil {
			return err
		}
		guidIndex[key] = i
	}
	maxID := maxNoteID(p.dst.Notes)

	src := p.src.Notes
	p.src.Notes = nil
	var newNotes []model.Note

	for _, n := range src {
		key, err := guid.Parse(n.GUID)
		if err != nil {
			return err
		}
		if idx, ok := guidIndex[key]; ok {
			existing := &p.dst.Notes[idx]
			srcTime, err := time.Parse(time.RFC3339, n.LastModified)
			if err != nil {
				return fmt.Errorf("%w: %v", ErrBadTimestamp, err)
			}
			dstTime, err := time.Parse(time.RFC3339, existing.LastModified)
			if err != nil {
				return fmt.Errorf("%w: %v", ErrBadTimestamp, err)
			}

			var before, after NoteText
			if dstTime.Before(srcTime) {
				before = NoteText{Title: existing.Title, Content: existing.Content, LastModified: existing.LastModified}
				existing.Title = n.Title
				existing.Content = n.Content
				existing.LastModified = n.LastModified
				after = NoteText{Title: existing.Title, Content: existing.Content, LastModified: existing.LastModified}
			} else {
				before = NoteText{Title: n.Title, Content: n.Content, LastModified: n.LastModified}
				after = NoteText{Title: existing.Title, Content: existing.Content, LastModified: existing.LastModified}
			}
			if !before.equal(after) {
				*messages = append(*messages, NoteUpdate(before, after))
			}
			p.noteTranslate[n.NoteID] = existing.NoteID
			continue
		}

		maxID++
		newID := maxID
		srcID := n.NoteID
		p.noteTranslate[srcID] = newID
		n.NoteID = newID
		if n.UserMarkID != nil {
			translated, ok := p.userMarkTranslate[*n.UserMarkID]
			if !ok {
				return fmt.Errorf("%w: note %d user mark %d", ErrForeignKeyViolation, srcID, *n.UserMarkID)
			}
			n.UserMarkID = &translated
		}
		if n.LocationID != nil {
			locID, err := p.loc.Intern(&p.dst.Locations, *n.LocationID)
			if err != nil {
				return err
			}
			n.LocationID = &locID
		}
		newNotes = append(newNotes, n)
	}
	p.dst.Notes = append(p.dst.Notes, newNotes...)
	return nil
}

func maxNoteID(notes []model.Note) uint32 {
	var max uint32
	for _, n := range notes {
		if n.NoteID > max {
			max = n.NoteID
		}
	}
	return max
}

// mergeBlockRanges is step 4. The overlap predicate is intentionally
// asymmetric: a is an already-accepted range (one already in dst, or one
// accepted earlier in this pass), b is the incoming candidate.
func (p *pass) mergeBlockRanges() error {
	if len(p.src.BlockRanges) == 0 {
		return nil
	}
	maxID := maxBlockRangeID(p.dst.BlockRanges)
	groupByUserMark := make(map[uint32][]model.BlockRange, len(p.dst.UserMarks))
	for _, r := range p.dst.BlockRanges {
		groupByUserMark[r.UserMarkID] = append(groupByUserMark[r.UserMarkID], r)
	}

	src := p.src.BlockRanges
	p.src.BlockRanges = nil

	for _, br := range src {
		dstUserMarkID, ok := p.userMarkTranslate[br.UserMarkID]
		if !ok {
			return fmt.Errorf("%w: block range %d user mark %d", ErrForeignKeyViolation, br.BlockRangeID, br.UserMarkID)
		}
		group := groupByUserMark[dstUserMarkID]
		overlaps := false
		for _, accepted := range group {
			if blockRangesOverlap(accepted, br) {
				overlaps = true
				break
			}
		}
		if overlaps {
			log.Debug().Uint32("block_range_id", br.BlockRangeID).Msg("dropping overlapping block range")
			continue
		}
		groupByUserMark[dstUserMarkID] = append(group, br)
		maxID++
		br.BlockRangeID = maxID
		br.UserMarkID = dstUserMarkID
		p.dst.BlockRanges = append(p.dst.BlockRanges, br)
	}
	return nil
}

func blockRangesOverlap(a, b model.BlockRange) bool {
	if tokensEqual(a.StartToken, b.StartToken) && tokensEqual(a.EndToken, b.EndToken) {
		return true
	}
	if a.StartToken == nil || a.EndToken == nil || b.StartToken == nil || b.EndToken == nil {
		return false
	}
	return *b.StartToken < *a.EndToken && *b.EndToken > *a.StartToken
}

func tokensEqual(a, b *uint32) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func maxBlockRangeID(ranges []model.BlockRange) uint32 {
	var max uint32
	for _, r := range ranges {
		if r.BlockRangeID > max {
			max = r.BlockRangeID
		}
	}
	return max
}

// mergeTags is step 5. Tags must merge before TagMaps.
func (p *pass) mergeTags() error {
	if len(p.src.Tags) == 0 {
		return nil
	}
	index := make(map[model.TagValue]uint32, len(p.dst.Tags))
	for _, t := range p.dst.Tags {
		index[t.Value()] = t.TagID
	}
	maxID := maxTagID(p.dst.Tags)

	src := p.src.Tags
	p.src.Tags = nil
	var newTags []model.Tag

	for _, t := range src {
		if existing, ok := index[t.Value()]; ok {
			p.tagTranslate[t.TagID] = existing
			continue
		}
		maxID++
		p.tagTranslate[t.TagID] = maxID
		t.TagID = maxID
		newTags = append(newTags, t)
	}
	p.dst.Tags = append(p.dst.Tags, newTags...)
	return nil
}

func maxTagID(tags []model.Tag) uint32 {
	var max uint32
	for _, t := range tags {
		if t.TagID > max {
			max = t.TagID
		}
	}
	return max
}

type tagTarget struct {
	tagID, targetID uint32
}

// mergeTagMaps is step 6, followed by a position-renumbering pass that
// repairs the (TagID, Position) uniqueness invariant after insertions.
func (p *pass) mergeTagMaps() error {
	if len(p.src.TagMaps) == 0 {
		return nil
	}
	maxID := maxTagMapID(p.dst.TagMaps)
	byLocation := make(map[tagTarget]struct{}, len(p.dst.TagMaps))
	byNote := make(map[tagTarget]struct{}, len(p.dst.TagMaps))
	for _, t := range p.dst.TagMaps {
		if t.LocationID != nil {
			byLocation[tagTarget{t.TagID, *t.LocationID}] = struct{}{}
		}
		if t.NoteID != nil {
			byNote[tagTarget{t.TagID, *t.NoteID}] = struct{}{}
		}
	}

	src := p.src.TagMaps
	p.src.TagMaps = nil

	for _, tm := range src {
		tagID, ok := p.tagTranslate[tm.TagID]
		if !ok {
			return fmt.Errorf("%w: tag map %d tag %d", ErrForeignKeyViolation, tm.TagMapID, tm.TagID)
		}
		tm.TagID = tagID

		set := 0
		if tm.PlaylistItemID != nil {
			set++
		}
		if tm.LocationID != nil {
			set++
		}
		if tm.NoteID != nil {
			set++
		}
		if set != 1 {
			return fmt.Errorf("%w: tag map %d", ErrCheckConstraintViolation, tm.TagMapID)
		}

		switch {
		case tm.LocationID != nil:
			locID, err := p.loc.Intern(&p.dst.Locations, *tm.LocationID)
			if err != nil {
				return err
			}
			key := tagTarget{tagID, locID}
			if _, dup := byLocation[key]; dup {
				continue
			}
			maxID++
			tm.TagMapID = maxID
			tm.LocationID = &locID
			p.dst.TagMaps = append(p.dst.TagMaps, tm)
			byLocation[key] = struct{}{}
		case tm.NoteID != nil:
			noteID, ok := p.noteTranslate[*tm.NoteID]
			if !ok {
				return fmt.Errorf("%w: tag map %d note %d", ErrForeignKeyViolation, tm.TagMapID, *tm.NoteID)
			}
			key := tagTarget{tagID, noteID}
			if _, dup := byNote[key]; dup {
				continue
			}
			maxID++
			tm.TagMapID = maxID
			tm.NoteID = &noteID
			p.dst.TagMaps = append(p.dst.TagMaps, tm)
			byNote[key] = struct{}{}
		default:
			// PlaylistItemID set: playlist tag maps are deliberately
			// unimplemented and dropped silently.
		}
	}

	p.normalizeTagMapPositions()
	return nil
}

func (p *pass) normalizeTagMapPositions() {
	sort.SliceStable(p.dst.TagMaps, func(i, j int) bool {
		return p.dst.TagMaps[i].Position < p.dst.TagMaps[j].Position
	})
	next := make(map[uint32]uint32, len(p.dst.Tags))
	for i := range p.dst.TagMaps {
		tm := &p.dst.TagMaps[i]
		tm.Position = next[tm.TagID]
		next[tm.TagID]++
	}
}

func maxTagMapID(tagMaps []model.TagMap) uint32 {
	var max uint32
	for _, t := range tagMaps {
		if t.TagMapID > max {
			max = t.TagMapID
		}
	}
	return max
}

// mergeInputFields is step 7: InputField merging is not implemented.
func (p *pass) mergeInputFields() error {
	if len(p.src.InputFields) == 0 {
		return nil
	}
	return ErrNotImplemented
}
