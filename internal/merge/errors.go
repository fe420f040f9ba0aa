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

package merge

import (
	"errors"

	"github.com/abdon-gadgets/merge-jwl-go/internal/guid"
)

// Error kinds surfaced by Merge. All of them are fatal: the caller
// discards whatever destination model it was building and does not retry
// locally. Check with errors.Is.
var (
	// ErrEmptyInput is returned when Merge is called with fewer than one
	// model.Model.
	ErrEmptyInput = errors.New("merge: at least one model is required")

	// ErrInvalidGUID re-exports guid.ErrInvalidGUID: a UserMark or Note
	// GUID fails the 36-char hex-with-dashes shape.
	ErrInvalidGUID = guid.ErrInvalidGUID

	// ErrForeignKeyViolation is returned when a source row references an
	// id absent from the corresponding parent table, or a within-pass
	// translation map lookup misses.
	ErrForeignKeyViolation = errors.New("merge: foreign key violation")

	// ErrCheckConstraintViolation is returned when a TagMap has zero or
	// more than one of {playlist item, location, note} set.
	ErrCheckConstraintViolation = errors.New("merge: check constraint violation")

	// ErrDuplicateSourceID is returned when the same source UserMark
	// row-id appears twice within one source model.
	ErrDuplicateSourceID = errors.New("merge: duplicate source id")

	// ErrBadTimestamp is returned when a Note's LastModified is not
	// parseable RFC3339.
	ErrBadTimestamp = errors.New("merge: bad timestamp")

	// ErrNotImplemented is returned for source InputField rows, which
	// this merge engine does not yet know how to reconcile.
	ErrNotImplemented = errors.New("merge: not implemented")
)
