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

package locationmerge

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdon-gadgets/merge-jwl-go/internal/model"
)

func strp(s string) *string { return &s }

func TestIntern_NewValueAppendsToDestination(t *testing.T) {
	src := &model.Model{Locations: []model.Location{
		{LocationID: 1, KeySymbol: strp("nwt"), MepsLanguage: 0, Type: model.LocationTypeStandard},
	}}
	dst := &model.Model{}
	m := New(src, dst)

	id, err := m.Intern(&dst.Locations, 1)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), id)
	assert.Len(t, dst.Locations, 1)
}

func TestIntern_ExistingValueReusesDestinationRow(t *testing.T) {
	src := &model.Model{Locations: []model.Location{
		{LocationID: 7, KeySymbol: strp("nwt"), Title: strp("source title")},
	}}
	dst := &model.Model{Locations: []model.Location{
		{LocationID: 3, KeySymbol: strp("nwt"), Title: strp("dest title")},
	}}
	m := New(src, dst)

	id, err := m.Intern(&dst.Locations, 7)
	require.NoError(t, err)
	assert.Equal(t, uint32(3), id)
	assert.Len(t, dst.Locations, 1)
	assert.Equal(t, "dest title", *dst.Locations[0].Title)
}

func TestIntern_RepeatCallsAreCached(t *testing.T) {
	src := &model.Model{Locations: []model.Location{{LocationID: 1}}}
	dst := &model.Model{}
	m := New(src, dst)

	first, err := m.Intern(&dst.Locations, 1)
	require.NoError(t, err)
	second, err := m.Intern(&dst.Locations, 1)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, dst.Locations, 1)
}

func TestIntern_UnknownSourceIDIsFatal(t *testing.T) {
	src := &model.Model{Locations: []model.Location{{LocationID: 1}}}
	dst := &model.Model{}
	m := New(src, dst)

	_, err := m.Intern(&dst.Locations, 99)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownLocation))
}

func TestIntern_DistinctValuesGetDistinctIDs(t *testing.T) {
	src := &model.Model{Locations: []model.Location{
		{LocationID: 1, BookNumber: func() *uint32 { v := uint32(1); return &v }()},
		{LocationID: 2, BookNumber: func() *uint32 { v := uint32(2); return &v }()},
	}}
	dst := &model.Model{}
	m := New(src, dst)

	a, err := m.Intern(&dst.Locations, 1)
	require.NoError(t, err)
	b, err := m.Intern(&dst.Locations, 2)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
	assert.Len(t, dst.Locations, 2)
}

func TestCachedValue_ReturnsValueAfterIntern(t *testing.T) {
	src := &model.Model{Locations: []model.Location{
		{LocationID: 1, KeySymbol: strp("w"), IssueTagNumber: 20230100},
	}}
	dst := &model.Model{}
	m := New(src, dst)

	_, err := m.Intern(&dst.Locations, 1)
	require.NoError(t, err)

	value, ok := m.CachedValue(1)
	require.True(t, ok)
	assert.True(t, value.HasKeySymbol)
	assert.Equal(t, "w", value.KeySymbol)
	assert.Equal(t, uint32(20230100), value.IssueTagNumber)
}
