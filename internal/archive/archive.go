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

// Package archive reads and writes .jwlibrary backup archives: a zip
// container holding a manifest.json sidecar and an embedded SQLite
// database, self-describing through a SHA-256 hash recorded in the
// manifest.
package archive

import (
	"archive/zip"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/flate"
)

const manifestEntryName = "manifest.json"

const (
	wantVersion       = 1
	wantSchemaVersion = 8
)

// Manifest is the JSON sidecar every .jwlibrary archive carries,
// describing the embedded database without requiring it to be opened.
type Manifest struct {
	Name           string         `json:"name"`
	CreationDate   string         `json:"creationDate"`
	Version        int            `json:"version"`
	Type           int            `json:"type"`
	UserDataBackup UserDataBackup `json:"userDataBackup"`
}

// UserDataBackup is the manifest's description of the embedded database.
type UserDataBackup struct {
	LastModifiedDate string `json:"lastModifiedDate"`
	DeviceName       string `json:"deviceName"`
	DatabaseName     string `json:"databaseName"`
	Hash             string `json:"hash"`
	SchemaVersion    int    `json:"schemaVersion"`
}

// Backup is one loaded archive: its manifest and its raw database bytes.
type Backup struct {
	Manifest Manifest
	Database []byte
}

// Load reads the .jwlibrary archive at path, validates its manifest and
// the embedded database's hash, and returns both.
func Load(path string) (*Backup, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("archive: read %s: %w", path, err)
	}

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("archive: open zip: %w", err)
	}

	manifestFile, err := zr.Open(manifestEntryName)
	if err != nil {
		return nil, fmt.Errorf("archive: find manifest entry: %w", err)
	}
	manifestBytes, err := io.ReadAll(manifestFile)
	manifestFile.Close()
	if err != nil {
		return nil, fmt.Errorf("archive: read manifest entry: %w", err)
	}

	var manifest Manifest
	if err := json.Unmarshal(manifestBytes, &manifest); err != nil {
		return nil, fmt.Errorf("archive: decode manifest: %w", err)
	}
	if manifest.Version != wantVersion {
		return nil, fmt.Errorf("archive: unsupported archive version %d", manifest.Version)
	}
	if manifest.UserDataBackup.SchemaVersion != wantSchemaVersion {
		return nil, fmt.Errorf("archive: unsupported schema version %d", manifest.UserDataBackup.SchemaVersion)
	}

	dbFile, err := zr.Open(manifest.UserDataBackup.DatabaseName)
	if err != nil {
		return nil, fmt.Errorf("archive: find database entry %q: %w", manifest.UserDataBackup.DatabaseName, err)
	}
	dbBytes, err := io.ReadAll(dbFile)
	dbFile.Close()
	if err != nil {
		return nil, fmt.Errorf("archive: read database entry: %w", err)
	}

	if got := computeHash(dbBytes); got != manifest.UserDataBackup.Hash {
		return nil, fmt.Errorf("archive: database hash mismatch: manifest says %s, got %s", manifest.UserDataBackup.Hash, got)
	}

	return &Backup{Manifest: manifest, Database: dbBytes}, nil
}

// Save writes manifest and database to path as a .jwlibrary archive,
// using the flate compressor for both entries.
func Save(path string, manifest *Manifest, database []byte) error {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	zw.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(w, flate.DefaultCompression)
	})
	zw.SetComment("")

	manifestBytes, err := json.Marshal(manifest)
	if err != nil {
		return fmt.Errorf("archive: encode manifest: %w", err)
	}

	mw, err := zw.CreateHeader(&zip.FileHeader{Name: manifestEntryName, Method: zip.Deflate})
	if err != nil {
		return fmt.Errorf("archive: create manifest entry: %w", err)
	}
	if _, err := mw.Write(manifestBytes); err != nil {
		return fmt.Errorf("archive: write manifest entry: %w", err)
	}

	dw, err := zw.CreateHeader(&zip.FileHeader{Name: manifest.UserDataBackup.DatabaseName, Method: zip.Deflate})
	if err != nil {
		return fmt.Errorf("archive: create database entry: %w", err)
	}
	if _, err := dw.Write(database); err != nil {
		return fmt.Errorf("archive: write database entry: %w", err)
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("archive: finalize zip: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("archive: write %s: %w", path, err)
	}
	return nil
}

// MergeManifest builds the manifest for a merged archive: its name and
// hash describe the new database, its device name joins the input
// device names with consecutive runs of the same name collapsed to one
// (the same rule as Rust's Vec::dedup, not a full-list unique), and
// everything else is carried over from the first input manifest.
func MergeManifest(inputs []*Manifest, database []byte, date, deviceSeparator string) *Manifest {
	base := inputs[0]
	hash := computeHash(database)

	var names []string
	for _, m := range inputs {
		name := m.UserDataBackup.DeviceName
		if len(names) == 0 || names[len(names)-1] != name {
			names = append(names, name)
		}
	}
	deviceName := fmt.Sprintf("%s (merge-jwl)", joinDeviceNames(names, deviceSeparator))

	return &Manifest{
		Name:         fmt.Sprintf("UserDataBackup_%s_Merge", date),
		CreationDate: date,
		Version:      base.Version,
		Type:         base.Type,
		UserDataBackup: UserDataBackup{
			LastModifiedDate: base.UserDataBackup.LastModifiedDate,
			DeviceName:       deviceName,
			DatabaseName:     base.UserDataBackup.DatabaseName,
			Hash:             hash,
			SchemaVersion:    base.UserDataBackup.SchemaVersion,
		},
	}
}

func joinDeviceNames(names []string, sep string) string {
	out := ""
	for i, n := range names {
		if i > 0 {
			out += sep
		}
		out += n
	}
	return out
}

func computeHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
