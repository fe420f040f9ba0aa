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

// Package locationmerge interns Locations across one (source, destination)
// pair of models: it maps each source Location id to a destination
// Location id, creating a new destination Location only when the source
// Location's value-identity tuple is novel to the destination.
//
// A Merge is scoped to a single pass of the merge engine's left fold — a
// fresh one is built per source model.
package locationmerge

import (
	"errors"
	"fmt"

	"github.com/abdon-gadgets/merge-jwl-go/internal/model"
)

// ErrUnknownLocation is returned by Intern when the source location id was
// not present in the source model at construction time — a foreign key
// violation, fatal to the whole merge.
var ErrUnknownLocation = errors.New("location foreign key violation")

type cached struct {
	dstID uint32
	value model.LocationValue
}

// Merge holds the interning state for one source model being folded into
// one destination model.
type Merge struct {
	srcByID    map[uint32]model.Location
	dstByValue map[model.LocationValue]uint32
	translate  map[uint32]cached
	maxID      uint32
}

// New builds a Merge over src's Locations (which are drained out of src —
// source Location identity must not survive past the pass that owns it)
// and dst's existing Locations.
func New(src *model.Model, dst *model.Model) *Merge {
	srcByID := make(map[uint32]model.Location, len(src.Locations))
	for _, l := range src.Locations {
		srcByID[l.LocationID] = l
	}
	src.Locations = nil

	dstByValue := make(map[model.LocationValue]uint32, len(dst.Locations))
	var maxID uint32
	for _, l := range dst.Locations {
		dstByValue[l.Value()] = l.LocationID
		if l.LocationID > maxID {
			maxID = l.LocationID
		}
	}

	return &Merge{
		srcByID:    srcByID,
		dstByValue: dstByValue,
		translate:  make(map[uint32]cached, len(srcByID)),
		maxID:      maxID,
	}
}

// Intern translates a source Location id into a destination Location id,
// appending a new destination Location to dstLocations when the source
// Location's value tuple has not been seen in the destination before.
//
// Title is not part of Location's identity: when a destination Location
// with the same value tuple already exists, its title is kept even if the
// source's title differs.
func (m *Merge) Intern(dstLocations *[]model.Location, srcLocationID uint32) (uint32, error) {
	if c, ok := m.translate[srcLocationID]; ok {
		return c.dstID, nil
	}

	loc, ok := m.srcByID[srcLocationID]
	if !ok {
		return 0, fmt.Errorf("%w: source location id %d", ErrUnknownLocation, srcLocationID)
	}
	delete(m.srcByID, srcLocationID)
	value := loc.Value()

	if dstID, ok := m.dstByValue[value]; ok {
		m.translate[srcLocationID] = cached{dstID: dstID, value: value}
		return dstID, nil
	}

	m.maxID++
	newID := m.maxID
	loc.LocationID = newID
	*dstLocations = append(*dstLocations, loc)
	m.dstByValue[value] = newID
	m.translate[srcLocationID] = cached{dstID: newID, value: value}
	return newID, nil
}

// CachedValue returns the value tuple recorded for a source location id
// that has already been interned. It lets a caller recover identity-bearing
// fields (such as KeySymbol) for diagnostics without re-walking the source
// model, which Intern has already drained.
func (m *Merge) CachedValue(srcLocationID uint32) (model.LocationValue, bool) {
	c, ok := m.translate[srcLocationID]
	return c.value, ok
}
