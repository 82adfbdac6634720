// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package paths

import (
	"os"
	"path/filepath"
	"strings"
)

const appDirName = "pdf-toolbox"

// GetConfigDir returns the pdf-toolbox configuration directory
func GetConfigDir() string {
	// Check for explicit override first
	if dir := os.Getenv("PDF_TOOLBOX_CONFIG_DIR"); dir != "" {
		return dir
	}

	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, appDirName)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "." + appDirName
	}
	return filepath.Join(home, "."+appDirName)
}

// GetConfigFile returns the path to the main config file
func GetConfigFile() string {
	return filepath.Join(GetConfigDir(), "config.yaml")
}

// GetTempDir returns the directory used for scratch files
func GetTempDir() string {
	if dir := os.Getenv("PDF_TOOLBOX_TEMP_DIR"); dir != "" {
		return dir
	}
	return os.TempDir()
}

// NormalizePath cleans a path and converts separators for the current platform
func NormalizePath(path string) string {
	if path == "" {
		return ""
	}
	return filepath.Clean(filepath.FromSlash(path))
}

// JoinPath joins path elements using the platform-appropriate separator
func JoinPath(elements ...string) string {
	return filepath.Join(elements...)
}

// SafeBaseName returns the final element of an uploaded filename with any
// directory components (either separator style) stripped.
func SafeBaseName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == ".." {
		return "upload.pdf"
	}
	return name
}

// ValidatePath validates a path for the current platform
func ValidatePath(path string) error {
	if path == "" {
		return nil // Empty path is valid
	}

	if strings.ContainsRune(path, 0) {
		return &PathValidationError{
			Path:   path,
			Reason: "contains null byte",
		}
	}

	return nil
}

// PathValidationError represents a path validation error
type PathValidationError struct {
	Path   string
	Reason string
}

func (e *PathValidationError) Error() string {
	return "invalid path '" + e.Path + "': " + e.Reason
}
