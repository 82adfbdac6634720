// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

//go:build mage

// Package main contains Mage build targets for pdf-toolbox.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binDir     = "bin"
	binName    = "pdf-toolbox"
	cmdPkg     = "./cmd/pdf-toolbox"
	versionPkg = "pdf-toolbox/internal/version"
)

// Default target when mage is run without arguments
var Default = Build

// ldflags stamps version information into the binary
func ldflags() string {
	version := os.Getenv("VERSION")
	if version == "" {
		version = "0.0.0-development"
	}
	commit, err := sh.Output("git", "rev-parse", "--short", "HEAD")
	if err != nil {
		commit = "unknown"
	}
	return strings.Join([]string{
		"-s", "-w",
		fmt.Sprintf("-X %s.Version=%s", versionPkg, version),
		fmt.Sprintf("-X %s.GitCommit=%s", versionPkg, commit),
		fmt.Sprintf("-X %s.BuildDate=%s", versionPkg, time.Now().UTC().Format(time.RFC3339)),
	}, " ")
}

func build(tags ...string) error {
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", binDir, err)
	}
	out := filepath.Join(binDir, binName)
	args := []string{"build", "-ldflags", ldflags(), "-o", out}
	if len(tags) > 0 {
		args = append(args, "-tags", strings.Join(tags, ","))
	}
	args = append(args, cmdPkg)
	if err := sh.RunV("go", args...); err != nil {
		return fmt.Errorf("go build: %w", err)
	}
	fmt.Printf("Built %s\n", out)
	return nil
}

// Build compiles the CLI binary into bin/ without OCR support.
func Build() error {
	return build()
}

// BuildOCR compiles the binary with Tesseract OCR. Needs the tesseract and
// leptonica development headers.
func BuildOCR() error {
	return build("ocr")
}

// Test runs the unit tests.
func Test() error {
	return sh.RunV("go", "test", "./...")
}

// TestOCR runs the unit tests including the Tesseract-backed OCR tests.
func TestOCR() error {
	return sh.RunV("go", "test", "-tags", "ocr", "./...")
}

// Fmt formats the Go sources.
func Fmt() error {
	return sh.RunV("gofmt", "-l", "-w", "cmd", "internal", "magefiles")
}

// Lint runs go vet for both build variants.
func Lint() error {
	mg.Deps(Fmt)
	if err := sh.RunV("go", "vet", "./..."); err != nil {
		return err
	}
	return sh.RunV("go", "vet", "-tags", "ocr", "./...")
}

// Serve builds and starts the web UI.
func Serve() error {
	mg.Deps(Build)
	return sh.RunV(filepath.Join(binDir, binName), "serve")
}

// Clean removes build output.
func Clean() error {
	return sh.Rm(binDir)
}
