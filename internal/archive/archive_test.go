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

package archive

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeHash_MatchesKnownVector(t *testing.T) {
	assert.Equal(t, "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9", computeHash([]byte("hello world")))
}

func baseManifest(deviceName string) *Manifest {
	return &Manifest{
		Name:         "UserDataBackup_2026-01-01",
		CreationDate: "2026-01-01",
		Version:      1,
		Type:         1,
		UserDataBackup: UserDataBackup{
			LastModifiedDate: "2026-01-01T00:00:00Z",
			DeviceName:       deviceName,
			DatabaseName:     "userData.db",
			Hash:             computeHash([]byte("db-bytes")),
			SchemaVersion:    8,
		},
	}
}

func TestSaveThenLoad_RoundTrips(t *testing.T) {
	db := []byte("db-bytes")
	manifest := baseManifest("phone")
	path := filepath.Join(t.TempDir(), "backup.jwlibrary")

	require.NoError(t, Save(path, manifest, db))

	backup, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, *manifest, backup.Manifest)
	assert.Equal(t, db, backup.Database)
}

func TestLoad_RejectsHashMismatch(t *testing.T) {
	manifest := baseManifest("phone")
	manifest.UserDataBackup.Hash = computeHash([]byte("something-else"))
	path := filepath.Join(t.TempDir(), "backup.jwlibrary")

	require.NoError(t, Save(path, manifest, []byte("db-bytes")))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_RejectsUnsupportedVersion(t *testing.T) {
	manifest := baseManifest("phone")
	manifest.Version = 2
	path := filepath.Join(t.TempDir(), "backup.jwlibrary")

	require.NoError(t, Save(path, manifest, []byte("db-bytes")))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_RejectsUnsupportedSchemaVersion(t *testing.T) {
	manifest := baseManifest("phone")
	manifest.UserDataBackup.SchemaVersion = 7
	path := filepath.Join(t.TempDir(), "backup.jwlibrary")

	require.NoError(t, Save(path, manifest, []byte("db-bytes")))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestMergeManifest_DedupesDeviceNamesAndComputesHash(t *testing.T) {
	inputs := []*Manifest{baseManifest("phone"), baseManifest("phone"), baseManifest("tablet")}
	db := []byte("merged-db-bytes")

	merged := MergeManifest(inputs, db, "2026-07-31", "🔁")

	assert.Equal(t, "UserDataBackup_2026-07-31_Merge", merged.Name)
	assert.Equal(t, "phone🔁tablet (merge-jwl)", merged.UserDataBackup.DeviceName)
	assert.Equal(t, computeHash(db), merged.UserDataBackup.Hash)
	assert.Equal(t, inputs[0].UserDataBackup.DatabaseName, merged.UserDataBackup.DatabaseName)
	assert.Equal(t, inputs[0].UserDataBackup.SchemaVersion, merged.UserDataBackup.SchemaVersion)
}

func TestMergeManifest_OnlyCollapsesConsecutiveRepeats(t *testing.T) {
	inputs := []*Manifest{baseManifest("phone"), baseManifest("tablet"), baseManifest("phone")}

	merged := MergeManifest(inputs, []byte("db"), "2026-07-31", "🔁")

	assert.Equal(t, "phone🔁tablet🔁phone (merge-jwl)", merged.UserDataBackup.DeviceName)
}

func TestMergeManifest_SingleDeviceNameHasNoSeparator(t *testing.T) {
	inputs := []*Manifest{baseManifest("phone"), baseManifest("phone")}

	merged := MergeManifest(inputs, []byte("db"), "2026-07-31", "🔁")

	assert.Equal(t, "phone (merge-jwl)", merged.UserDataBackup.DeviceName)
}
