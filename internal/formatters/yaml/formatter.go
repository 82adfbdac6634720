// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package yaml

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"pdf-toolbox/internal/formatters"
)

// Formatter implements YAML output formatting
type Formatter struct{}

// NewFormatter creates a new YAML formatter
func NewFormatter() *Formatter {
	return &Formatter{}
}

func (f *Formatter) Name() string {
	return "yaml"
}

func (f *Formatter) Description() string {
	return "YAML format output, same keys as the JSON format"
}

func (f *Formatter) FileExtension() string {
	return ".yaml"
}

func (f *Formatter) Format(out formatters.Output, options formatters.FormatterOptions) (string, error) {
	// Tool data only carries json tags; a JSON round trip keeps the keys
	// identical across both formats.
	raw, err := json.Marshal(out)
	if err != nil {
		return "", fmt.Errorf("failed to encode result: %w", err)
	}
	var generic map[string]interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return "", fmt.Errorf("failed to encode result: %w", err)
	}

	data, err := yaml.Marshal(generic)
	if err != nil {
		return "", fmt.Errorf("failed to encode YAML: %w", err)
	}
	return string(data), nil
}

func init() {
	formatters.Register(NewFormatter())
}
