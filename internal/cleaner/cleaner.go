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

// Package cleaner removes rows from a single model.Model that have become
// unreachable — BlockRanges whose UserMark is gone or whose UserMark
// already has a newer range, and Locations nothing references any more.
// Cleaning runs before a merge so the merge engine can treat a missing
// parent as a bug (ErrForeignKeyViolation) instead of a condition it has
// to tolerate.
package cleaner

import (
	"github.com/rs/zerolog/log"

	"github.com/abdon-gadgets/merge-jwl-go/internal/model"
)

// Clean mutates m in place, dropping rows made unreachable by missing
// ancestors or disallowed duplicates, and returns the number of rows
// removed. It is infallible on a well-formed Model and idempotent: a
// second call always returns 0.
func Clean(m *model.Model) int {
	removed := cleanBlockRanges(m)
	removed += cleanLocations(m)
	return removed
}

// cleanBlockRanges drops BlockRanges whose UserMark no longer exists, then
// keeps only the first (highest row-id) range seen per UserMarkID among
// the survivors — the application's UI shows a single canonical range per
// highlight, and repeated imports otherwise accumulate shadow ranges.
//
// Iterating in reverse row-id order and keeping the first range seen per
// UserMarkID is a stable "last write wins by row-id" rule.
func cleanBlockRanges(m *model.Model) int {
	ranges := m.BlockRanges
	if len(ranges) == 0 {
		return 0
	}
	userMarkIDs := make(map[uint32]struct{}, len(m.UserMarks))
	for _, u := range m.UserMarks {
		userMarkIDs[u.UserMarkID] = struct{}{}
	}

	retained := make([]model.BlockRange, 0, len(ranges))
	seen := make(map[uint32]struct{}, len(ranges))
	for i := len(ranges) - 1; i >= 0; i-- {
		r := ranges[i]
		if _, ok := userMarkIDs[r.UserMarkID]; !ok {
			log.Debug().Uint32("block_range_id", r.BlockRangeID).Msg("removing redundant block range: user mark gone")
			continue
		}
		if _, dup := seen[r.UserMarkID]; dup {
			log.Debug().Uint32("block_range_id", r.BlockRangeID).Msg("removing redundant block range: duplicate user mark")
			continue
		}
		seen[r.UserMarkID] = struct{}{}
		retained = append(retained, r)
	}
	// retained was built newest-first (reverse row-id); restore row-id order.
	for i, j := 0, len(retained)-1; i < j; i, j = i+1, j-1 {
		retained[i], retained[j] = retained[j], retained[i]
	}

	removed := len(ranges) - len(retained)
	m.BlockRanges = retained
	return removed
}

// cleanLocations drops Locations nothing references any more, preserving
// the order of the rows that remain.
func cleanLocations(m *model.Model) int {
	inUse := locationIDsInUse(m)
	locations := m.Locations
	retained := make([]model.Location, 0, len(locations))
	for _, l := range locations {
		if _, ok := inUse[l.LocationID]; ok {
			retained = append(retained, l)
		} else {
			log.Debug().Uint32("location_id", l.LocationID).Msg("removing redundant location")
		}
	}
	removed := len(locations) - len(retained)
	m.Locations = retained
	return removed
}

func locationIDsInUse(m *model.Model) map[uint32]struct{} {
	inUse := make(map[uint32]struct{}, len(m.Locations))
	for _, b := range m.Bookmarks {
		inUse[b.LocationID] = struct{}{}
		inUse[b.PublicationLocationID] = struct{}{}
	}
	for _, n := range m.Notes {
		if n.LocationID != nil {
			inUse[*n.LocationID] = struct{}{}
		}
	}
	for _, u := range m.UserMarks {
		inUse[u.LocationID] = struct{}{}
	}
	for _, t := range m.TagMaps {
		if t.LocationID != nil {
			inUse[*t.LocationID] = struct{}{}
		}
	}
	log.Debug().Int("count", len(inUse)).Msg("found location ids in use")
	return inUse
}
