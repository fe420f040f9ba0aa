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

// Package guid normalizes the canonical 36-character hyphenated identifiers
// used by UserMark.GUID and Note.GUID into a value usable as an equality
// and hash key. It is not meant for round-tripping back to a string.
package guid

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/google/uuid"
)

// ErrInvalidGUID is returned when input does not have the 36-byte
// XXXXXXXX-XXXX-XXXX-XXXX-XXXXXXXXXXXX shape (hex with dashes at positions
// 8, 13, 18, 23).
var ErrInvalidGUID = errors.New("invalid guid")

// Key is a value-identity key for a parsed GUID, suitable for use as a map
// key and for equality comparisons.
type Key [16]byte

// Parse validates input as a canonical 8-4-4-4-12 hex-with-dashes GUID and
// returns its 128-bit value. google/uuid.Parse accepts several historical
// shapes (braces, urn:uuid: prefix, no dashes at all) that the backup
// format never produces, so the length is checked up front to reject those
// before handing the rest of the validation (dash positions, hex digits)
// to uuid.Parse.
func Parse(input string) (Key, error) {
	if len(input) != 36 {
		return Key{}, fmt.Errorf("%w: %q: wrong length", ErrInvalidGUID, input)
	}
	u, err := uuid.Parse(input)
	if err != nil {
		return Key{}, fmt.Errorf("%w: %q: %v", ErrInvalidGUID, input, err)
	}
	return Key(u), nil
}

// Int returns the 128-bit integer whose high-to-low bytes correspond to the
// concatenation of the GUID's five hex groups in order — i.e. the GUID's 16
// raw bytes read big-endian. This is exactly uuid.UUID's own byte layout,
// since the canonical string form is the hex of those 16 bytes with dashes
// inserted, so no reordering is needed beyond what uuid.Parse already did.
func (k Key) Int() *big.Int {
	return new(big.Int).SetBytes(k[:])
}
