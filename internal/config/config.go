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

// Package config provides configuration loading for merge-jwl-go. It
// supports loading configuration from a YAML file and allows environment
// variable overrides, following the same split as the teacher's
// internal/config: config.go for the struct and loader,
// default.go for the zero-config bootstrap file.
package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultDeviceNameSeparator joins deduped input device names in the
// output manifest, matching original_source's own separator.
const DefaultDeviceNameSeparator = "🔁"

// Config is merge-jwl-go's full runtime configuration.
type Config struct {
	OutDir             string `yaml:"out_dir"`
	OutputNameTemplate string `yaml:"output_name_template"`
	LogLevel           string `yaml:"log_level"`
	LogFile            string `yaml:"log_file"`
	AuditDSN           string `yaml:"audit_dsn"`
	DeviceNameSeparator string `yaml:"device_name_separator"`
}

// LoadConfig reads and parses a YAML configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnvOverrides overlays environment variables onto cfg, taking
// priority over whatever the YAML file set.
func ApplyEnvOverrides(cfg *Config) {
	if val := os.Getenv("MERGEJWL_OUT_DIR"); val != "" {
		cfg.OutDir = val
	}
	if val := os.Getenv("MERGEJWL_OUTPUT_NAME_TEMPLATE"); val != "" {
		cfg.OutputNameTemplate = val
	}
	if val := os.Getenv("MERGEJWL_LOG_LEVEL"); val != "" {
		cfg.LogLevel = val
	}
	if val := os.Getenv("MERGEJWL_LOG_FILE"); val != "" {
		cfg.LogFile = val
	}
	if val := os.Getenv("MERGEJWL_AUDIT_DSN"); val != "" {
		cfg.AuditDSN = val
	}
	if val := os.Getenv("MERGEJWL_DEVICE_NAME_SEPARATOR"); val != "" {
		cfg.DeviceNameSeparator = val
	}
}
