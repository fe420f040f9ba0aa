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

package config

import (
	"os"
	"path/filepath"
)

// defaultConfigYAML is the minimal configuration written the first time
// merge-jwl-go runs against a config path that doesn't exist yet, enabling
// zero-configuration startup.
const defaultConfigYAML = `out_dir: "."
output_name_template: "UserDataBackup_{{.Date}}_Merge"
log_level: "info"
log_file: ""
audit_dsn: ""
device_name_separator: "🔁"
`

// EnsureDefaultConfig creates path with defaultConfigYAML if it does not
// already exist. Existing configuration files are never overwritten.
func EnsureDefaultConfig(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return err
		}
		return os.WriteFile(path, []byte(defaultConfigYAML), 0644)
	}
	return nil
}
