// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package artifact describes downloadable files produced by tools.
package artifact

import (
	"archive/zip"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"pdf-toolbox/internal/paths"
)

// Common MIME types
const (
	MIMEPDF      = "application/pdf"
	MIMEZip      = "application/zip"
	MIMEText     = "text/plain"
	MIMEMarkdown = "text/markdown"
	MIMEDocx     = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MIMECSV      = "text/csv"
	MIMEJSON     = "application/json"
)

// Artifact is a named, typed blob offered for download
type Artifact struct {
	Name string `json:"name"`
	MIME string `json:"mime"`
	Data []byte `json:"-"`
}

// New builds an artifact
func New(name, mime string, data []byte) Artifact {
	return Artifact{Name: name, MIME: mime, Data: data}
}

// Size returns the payload length
func (a Artifact) Size() int {
	return len(a.Data)
}

// Zip bundles files into a single ZIP artifact. Entry order is preserved.
func Zip(name string, files []Artifact) (Artifact, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	seen := make(map[string]bool, len(files))

	for _, f := range files {
		if seen[f.Name] {
			return Artifact{}, fmt.Errorf("duplicate zip entry %q", f.Name)
		}
		seen[f.Name] = true

		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     f.Name,
			Method:   zip.Deflate,
			Modified: time.Now(),
		})
		if err != nil {
			return Artifact{}, fmt.Errorf("failed to add %s: %w", f.Name, err)
		}
		if _, err := w.Write(f.Data); err != nil {
			return Artifact{}, fmt.Errorf("failed to write %s: %w", f.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return Artifact{}, fmt.Errorf("failed to finish zip: %w", err)
	}
	return New(name, MIMEZip, buf.Bytes()), nil
}

// Unzip reads every entry of a ZIP archive. Used by callers that need to
// inspect bundled output.
func Unzip(data []byte) ([]Artifact, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to read zip: %w", err)
	}
	out := make([]Artifact, 0, len(zr.File))
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		var b bytes.Buffer
		_, err = b.ReadFrom(rc)
		rc.Close()
		if err != nil {
			return nil, err
		}
		out = append(out, Artifact{Name: f.Name, Data: b.Bytes()})
	}
	return out, nil
}

// Save writes the artifact under dir and returns the written path
func (a Artifact) Save(dir string) (string, error) {
	if err := paths.ValidatePath(dir); err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", dir, err)
	}
	target := filepath.Join(dir, paths.SafeBaseName(a.Name))
	if err := os.WriteFile(target, a.Data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", target, err)
	}
	return target, nil
}
