// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package processing implements page-level PDF operations on in-memory
// documents using pdfcpu.
package processing

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"pdf-toolbox/internal/observability"
	"pdf-toolbox/internal/resilience"
)

var disableConfigDir sync.Once

// Engine runs pdfcpu operations
type Engine struct {
	// observer handles observability and metrics
	observer *observability.StandardObserver

	// pdfConfig contains pdfcpu configuration
	pdfConfig *model.Configuration
}

// NewEngine creates a new Engine. A nil observer disables logging.
func NewEngine(observer *observability.StandardObserver) *Engine {
	if observer == nil {
		observer = observability.NewStandardObserver(observability.ObservabilityOff, nil)
	}

	// pdfcpu writes a config directory on first use unless told otherwise
	disableConfigDir.Do(func() { model.ConfigPath = "disable" })

	pdfConfig := model.NewDefaultConfiguration()
	pdfConfig.ValidationMode = model.ValidationRelaxed

	return &Engine{
		observer:  observer,
		pdfConfig: pdfConfig,
	}
}

// conf returns a fresh copy of the configuration; pdfcpu mutates it during runs.
func (e *Engine) conf() *model.Configuration {
	c := *e.pdfConfig
	return &c
}

// readContext parses and validates a document
func (e *Engine) readContext(data []byte) (*model.Context, error) {
	if len(data) == 0 {
		return nil, resilience.NewInvalidInputError("no PDF provided")
	}
	ctx, err := api.ReadContext(bytes.NewReader(data), e.conf())
	if err != nil {
		return nil, resilience.NewInvalidInputError("could not read PDF: %v", err)
	}
	if err := api.ValidateContext(ctx); err != nil {
		return nil, resilience.NewInvalidInputError("invalid PDF: %v", err)
	}
	return ctx, nil
}

// PageCount returns the number of pages in the document
func (e *Engine) PageCount(data []byte) (int, error) {
	ctx, err := e.readContext(data)
	if err != nil {
		return 0, err
	}
	return ctx.PageCount, nil
}

// Validate checks that data is a readable PDF
func (e *Engine) Validate(data []byte) error {
	_, err := e.readContext(data)
	return err
}

// run executes one pdfcpu read-modify-write operation and times it
func (e *Engine) run(op string, data []byte, fn func(rs io.ReadSeeker, w io.Writer, conf *model.Configuration) error) ([]byte, error) {
	finish := e.observer.StartTiming("processing", op, "")

	var out bytes.Buffer
	if err := fn(bytes.NewReader(data), &out, e.conf()); err != nil {
		finish(false, map[string]interface{}{"error": err.Error()})
		return nil, fmt.Errorf("%s failed: %w", op, err)
	}

	finish(true, map[string]interface{}{"in_bytes": len(data), "out_bytes": out.Len()})
	return out.Bytes(), nil
}
