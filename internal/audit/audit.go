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

// Package audit records a durable trail of merge runs in Postgres, for
// operators who run merge-jwl-go repeatedly against the same devices and
// want a history of what happened. It is entirely optional: merge-jwl-go
// runs standalone with no audit DSN configured.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/lib/pq"
)

// Store records merge Runs in Postgres.
type Store struct {
	db *sql.DB
}

// Open connects to dsn. Callers should treat a connection failure as a
// warning, not a fatal error: an unreachable audit database must never
// stop a merge from completing.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("audit: open: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("audit: ping: %w", err)
	}
	if err := ensureSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("audit: ensure schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Run is one completed merge, recorded for later review.
type Run struct {
	InputArchives []string
	RowCounts     map[string]int
	MessageCounts map[string]int
	OutputHash    string
}

const createTableSQL = `
CREATE TABLE IF NOT EXISTS merge_runs (
	id             BIGSERIAL PRIMARY KEY,
	input_archives JSONB NOT NULL,
	row_counts     JSONB NOT NULL,
	message_counts JSONB NOT NULL,
	output_hash    TEXT NOT NULL,
	run_at         TIMESTAMPTZ NOT NULL DEFAULT now()
)`

func ensureSchema(db *sql.DB) error {
	_, err := db.Exec(createTableSQL)
	return err
}

// RecordRun persists one merge Run.
func (s *Store) RecordRun(ctx context.Context, run Run) error {
	inputArchives, err := json.Marshal(run.InputArchives)
	if err != nil {
		return fmt.Errorf("audit: encode input archives: %w", err)
	}
	rowCounts, err := json.Marshal(run.RowCounts)
	if err != nil {
		return fmt.Errorf("audit: encode row counts: %w", err)
	}
	messageCounts, err := json.Marshal(run.MessageCounts)
	if err != nil {
		return fmt.Errorf("audit: encode message counts: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO merge_runs (input_archives, row_counts, message_counts, output_hash)
		VALUES ($1, $2, $3, $4)
	`, inputArchives, rowCounts, messageCounts, run.OutputHash)
	if err != nil {
		return fmt.Errorf("audit: insert run: %w", err)
	}
	return nil
}
