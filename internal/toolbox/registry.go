// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package toolbox

import (
	"context"
	"fmt"
	"sync"
	"time"

	"pdf-toolbox/internal/observability"
	"pdf-toolbox/internal/resilience"
)

// Registry holds tools in registration order
type Registry struct {
	tools    map[string]*Tool
	order    []string
	metrics  *Metrics
	observer *observability.StandardObserver
}

// Category groups tools for the sidebar
type Category struct {
	Name  string  `json:"name"`
	Tools []*Tool `json:"tools"`
}

// NewRegistry creates an empty registry
func NewRegistry(observer *observability.StandardObserver) *Registry {
	if observer == nil {
		observer = observability.NewStandardObserver(observability.ObservabilityOff, nil)
	}
	return &Registry{
		tools:    make(map[string]*Tool),
		metrics:  NewMetrics(),
		observer: observer,
	}
}

// Register adds a tool. Registering the same name twice panics.
func (r *Registry) Register(t *Tool) {
	if t == nil || t.Name == "" || t.Run == nil {
		panic("toolbox: tool needs a name and a run function")
	}
	if _, exists := r.tools[t.Name]; exists {
		panic(fmt.Sprintf("toolbox: tool %q registered twice", t.Name))
	}
	r.tools[t.Name] = t
	r.order = append(r.order, t.Name)
}

// Get looks a tool up by name
func (r *Registry) Get(name string) (*Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// List returns every tool in registration order
func (r *Registry) List() []*Tool {
	out := make([]*Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name])
	}
	return out
}

// Categories groups the tools, known categories first and in their fixed
// order, anything else after them in first-seen order.
func (r *Registry) Categories() []Category {
	index := make(map[string]int)
	var cats []Category
	for _, name := range categoryOrder {
		index[name] = len(cats)
		cats = append(cats, Category{Name: name})
	}
	for _, t := range r.List() {
		i, ok := index[t.Category]
		if !ok {
			i = len(cats)
			index[t.Category] = i
			cats = append(cats, Category{Name: t.Category})
		}
		cats[i].Tools = append(cats[i].Tools, t)
	}

	out := cats[:0]
	for _, c := range cats {
		if len(c.Tools) > 0 {
			out = append(out, c)
		}
	}
	return out
}

// Metrics returns the run statistics
func (r *Registry) Metrics() *Metrics {
	return r.metrics
}

// Run executes a tool by name, filling in parameter defaults
func (r *Registry) Run(ctx context.Context, name string, req *Request) (*Result, error) {
	t, ok := r.Get(name)
	if !ok {
		return nil, resilience.NewInvalidInputError("unknown tool %q", name)
	}
	if req == nil {
		req = NewRequest(nil, nil)
	}
	if req.Params == nil {
		req.Params = make(map[string]string)
	}
	for _, p := range t.Params {
		if _, set := req.Params[p.Name]; !set && p.Default != "" {
			req.Params[p.Name] = p.Default
		}
	}
	if !t.MultiFile && len(req.Files) > 1 {
		req.Files = req.Files[:1]
	}

	fileName := ""
	if len(req.Files) > 0 {
		fileName = req.Files[0].Name
	}
	finish := r.observer.StartTiming("toolbox", name, fileName)
	start := time.Now()

	res, err := t.Run(ctx, req)
	elapsed := time.Since(start).Milliseconds()
	if err != nil {
		r.metrics.RecordError(name, resilience.ClassifyError(err).Type.String())
		finish(false, map[string]interface{}{"error": err.Error()})
		return nil, err
	}
	if res == nil {
		res = &Result{}
	}

	r.metrics.RecordRun(name, elapsed)
	finish(true, map[string]interface{}{"artifacts": len(res.Artifacts), "files": len(req.Files)})
	return res, nil
}

// Metrics collects per-tool usage counters
type Metrics struct {
	mu          sync.Mutex
	runs        int64
	durationMs  map[string]int64
	toolRuns    map[string]int64
	errorCounts map[string]int64
}

// NewMetrics creates an empty collector
func NewMetrics() *Metrics {
	return &Metrics{
		durationMs:  make(map[string]int64),
		toolRuns:    make(map[string]int64),
		errorCounts: make(map[string]int64),
	}
}

// RecordRun records a successful run
func (m *Metrics) RecordRun(tool string, durationMs int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs++
	m.toolRuns[tool]++
	m.durationMs[tool] += durationMs
}

// RecordError records a failed run by error type
func (m *Metrics) RecordError(tool, errorType string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCounts[errorType]++
}

// Summary returns a copy of the counters
func (m *Metrics) Summary() map[string]interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	return map[string]interface{}{
		"runs":        m.runs,
		"tool_runs":   copyCounts(m.toolRuns),
		"duration_ms": copyCounts(m.durationMs),
		"errors":      copyCounts(m.errorCounts),
	}
}

func copyCounts(in map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
