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

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/abdon-gadgets/merge-jwl-go/internal/archive"
	"github.com/abdon-gadgets/merge-jwl-go/internal/audit"
	"github.com/abdon-gadgets/merge-jwl-go/internal/bootstrap"
	"github.com/abdon-gadgets/merge-jwl-go/internal/cleaner"
	"github.com/abdon-gadgets/merge-jwl-go/internal/dbio"
	"github.com/abdon-gadgets/merge-jwl-go/internal/logging"
	"github.com/abdon-gadgets/merge-jwl-go/internal/merge"
	"github.com/abdon-gadgets/merge-jwl-go/internal/model"
)

// stage names the coarse phases of a merge run, surfaced to the operator
// through the optional progress callback.
type stage int

const (
	stageLoad stage = iota
	stageMerge
	stageStore
	stagePack
)

func (s stage) String() string {
	switch s {
	case stageLoad:
		return "load"
	case stageMerge:
		return "merge"
	case stageStore:
		return "store"
	case stagePack:
		return "pack"
	default:
		return "unknown"
	}
}

func main() {
	flags, err := bootstrap.ParseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	cfg, err := bootstrap.LoadConfig(flags)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if err := logging.Setup(cfg.LogLevel, cfg.LogFile); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if len(flags.Archives) < 2 {
		log.Fatal().Msg("provide at least 2 input .jwlibrary archives")
	}

	var auditStore *audit.Store
	if cfg.AuditDSN != "" {
		auditStore, err = audit.Open(cfg.AuditDSN)
		if err != nil {
			log.Warn().Err(err).Msg("audit store unavailable, continuing without it")
			auditStore = nil
		} else {
			defer auditStore.Close()
		}
	}

	outputPath, err := run(flags.Archives, cfg.OutDir, cfg.DeviceNameSeparator, auditStore, func(s stage) {
		log.Info().Str("stage", s.String()).Msg("progress")
	})
	if err != nil {
		log.Fatal().Err(err).Msg("merge failed")
	}

	log.Info().Str("output", outputPath).Msg("finished")
}

func run(archivePaths []string, outDir, deviceSeparator string, auditStore *audit.Store, progress func(stage)) (string, error) {
	progress(stageLoad)

	var models []*model.Model
	var manifests []*archive.Manifest
	rowCounts := map[string]int{}

	for _, path := range archivePaths {
		backup, err := archive.Load(path)
		if err != nil {
			return "", fmt.Errorf("load %s: %w", path, err)
		}
		m, err := dbio.Read(backup.Database)
		if err != nil {
			return "", fmt.Errorf("decode database in %s: %w", path, err)
		}
		removed := cleaner.Clean(m)
		log.Info().Str("archive", path).Int("rows_removed", removed).Msg("cleaned backup")

		rowCounts["bookmarks"] += len(m.Bookmarks)
		rowCounts["user_marks"] += len(m.UserMarks)
		rowCounts["notes"] += len(m.Notes)
		rowCounts["block_ranges"] += len(m.BlockRanges)
		rowCounts["tags"] += len(m.Tags)
		rowCounts["tag_maps"] += len(m.TagMaps)
		rowCounts["input_fields"] += len(m.InputFields)
		rowCounts["locations"] += len(m.Locations)

		models = append(models, m)
		manifests = append(manifests, &backup.Manifest)
	}

	progress(stageMerge)
	merged, messages, err := merge.Merge(models...)
	if err != nil {
		return "", fmt.Errorf("merge: %w", err)
	}

	messageCounts := map[string]int{}
	for _, msg := range messages {
		switch msg.Kind {
		case merge.KindNoteUpdate:
			messageCounts["note_update"]++
			title := ""
			if msg.After.Title != nil {
				title = *msg.After.Title
			}
			log.Info().Str("title", title).Msg("note updated by newer source")
		case merge.KindBookmarkOverflow:
			messageCounts["bookmark_overflow"]++
			log.Info().Str("title", msg.Title).Msg("bookmark dropped: publication already has 10 bookmarks")
		}
	}

	progress(stageStore)
	dbBytes, err := dbio.Write(merged)
	if err != nil {
		return "", fmt.Errorf("encode merged database: %w", err)
	}

	progress(stagePack)
	date := time.Now().UTC().Format("2006-01-02")
	outManifest := archive.MergeManifest(manifests, dbBytes, date, deviceSeparator)
	outPath := filepath.Join(outDir, outManifest.Name+".jwlibrary")
	if err := archive.Save(outPath, outManifest, dbBytes); err != nil {
		return "", fmt.Errorf("pack output archive: %w", err)
	}

	if auditStore != nil {
		sum := outManifest.UserDataBackup.Hash
		if err := auditStore.RecordRun(context.Background(), audit.Run{
			InputArchives: archivePaths,
			RowCounts:     rowCounts,
			MessageCounts: messageCounts,
			OutputHash:    sum,
		}); err != nil {
			log.Warn().Err(err).Msg("failed to record audit run")
		}
	}

	return outPath, nil
}
