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

// Package bootstrap resolves merge-jwl-go's configuration from flags, then
// environment variables, then the YAML config file, then built-in
// defaults — flags win.
package bootstrap

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/abdon-gadgets/merge-jwl-go/internal/config"
)

// Flags holds the subset of merge-jwl-go's command-line flags that feed
// configuration resolution, plus the positional archive paths.
type Flags struct {
	ConfigPath string
	OutDir     string
	LogLevel   string
	LogFile    string
	AuditDSN   string
	Archives   []string
}

// ParseFlags parses args (normally os.Args[1:]) into Flags.
func ParseFlags(args []string) (*Flags, error) {
	fs := flag.NewFlagSet("mergejwl", flag.ContinueOnError)
	configFlag := fs.String("config", "config.yaml", "Path to config file")
	outDir := fs.String("out-dir", "", "Override output directory")
	logLevel := fs.String("log-level", "", "Override log level (debug, info, warn, error)")
	logFile := fs.String("log-file", "", "Override path to log file")
	auditDSN := fs.String("audit-dsn", "", "Postgres DSN for recording merge runs")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	return &Flags{
		ConfigPath: *configFlag,
		OutDir:     *outDir,
		LogLevel:   *logLevel,
		LogFile:    *logFile,
		AuditDSN:   *auditDSN,
		Archives:   fs.Args(),
	}, nil
}

// LoadConfig resolves the final Config by layering, in increasing
// priority: built-in defaults, the YAML file (created with defaults if
// absent), environment variables, then command-line flags.
func LoadConfig(f *Flags) (*config.Config, error) {
	configPath := resolvePath(f.ConfigPath, "MERGEJWL_CONFIG", "config.yaml")

	if err := config.EnsureDefaultConfig(configPath); err != nil {
		return nil, fmt.Errorf("bootstrap: create default config: %w", err)
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: load config: %w", err)
	}

	config.ApplyEnvOverrides(cfg)

	if f.OutDir != "" {
		cfg.OutDir = f.OutDir
	}
	if f.LogLevel != "" {
		cfg.LogLevel = f.LogLevel
	}
	if f.LogFile != "" {
		cfg.LogFile = f.LogFile
	}
	if f.AuditDSN != "" {
		cfg.AuditDSN = f.AuditDSN
	}
	if cfg.DeviceNameSeparator == "" {
		cfg.DeviceNameSeparator = config.DefaultDeviceNameSeparator
	}
	return cfg, nil
}

func resolvePath(flagVal, envVar, fallback string) string {
	if flagVal != "" {
		return absPath(flagVal)
	}
	if val := os.Getenv(envVar); val != "" {
		return absPath(val)
	}
	return absPath(fallback)
}

func absPath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return abs
}
