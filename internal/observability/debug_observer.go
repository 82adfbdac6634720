// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package observability

import (
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// DebugObserver traces nested processing steps
type DebugObserver struct {
	logger *logrus.Logger
	mu     sync.Mutex
	indent int
}

func newDebugObserver(logger *logrus.Logger) *DebugObserver {
	return &DebugObserver{logger: logger}
}

// StartStep begins a processing step with indentation
func (d *DebugObserver) StartStep(component, step, target string) func(success bool, details string) {
	start := time.Now()

	d.mu.Lock()
	prefix := strings.Repeat("  ", d.indent)
	d.indent++
	d.mu.Unlock()

	d.logger.Debugf("%s> %s: %s (%s)", prefix, component, step, target)

	return func(success bool, details string) {
		d.mu.Lock()
		d.indent--
		prefix := strings.Repeat("  ", d.indent)
		d.mu.Unlock()

		ms := time.Since(start).Milliseconds()
		if success {
			d.logger.Debugf("%s< %s: %s completed (%dms) %s", prefix, component, step, ms, details)
		} else {
			d.logger.Debugf("%s! %s: %s failed (%dms) %s", prefix, component, step, ms, details)
		}
	}
}

// LogDetail logs a detail within the current step
func (d *DebugObserver) LogDetail(component, detail string) {
	d.mu.Lock()
	prefix := strings.Repeat("  ", d.indent)
	d.mu.Unlock()
	d.logger.Debugf("%s   - %s: %s", prefix, component, detail)
}

// LogMetric logs a metric value
func (d *DebugObserver) LogMetric(component, metric string, value interface{}) {
	d.mu.Lock()
	prefix := strings.Repeat("  ", d.indent)
	d.mu.Unlock()
	d.logger.Debugf("%s   # %s: %s = %v", prefix, component, metric, value)
}
