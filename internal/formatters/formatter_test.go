// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package formatters_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdf-toolbox/internal/formatters"
	_ "pdf-toolbox/internal/formatters/json"
	_ "pdf-toolbox/internal/formatters/text"
	_ "pdf-toolbox/internal/formatters/yaml"
)

type pageInfo struct {
	Page  int    `json:"page"`
	Label string `json:"label,omitempty"`
}

func sample() formatters.Output {
	return formatters.Output{
		Tool: "metadata",
		Text: "Found 2 pages.\n",
		Data: []pageInfo{{Page: 1, Label: "cover"}, {Page: 2}},
	}
}

func TestList(t *testing.T) {
	assert.Equal(t, []string{"json", "text", "yaml"}, formatters.List())
}

func TestExportUnknown(t *testing.T) {
	_, err := formatters.Export("xml", sample(), formatters.FormatterOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Available formats: json, text, yaml")
}

func TestText(t *testing.T) {
	out, err := formatters.Export("text", sample(), formatters.FormatterOptions{NoColor: true})
	require.NoError(t, err)
	assert.Equal(t, "Found 2 pages.\n[\n  {\n    \"page\": 1,\n    \"label\": \"cover\"\n  },\n  {\n    \"page\": 2\n  }\n]\n", out)

	withFiles := formatters.Output{Tool: "merge", Text: "Merged 2 files.", Data: map[string]int{"n": 2}, Files: []string{"out/merged.pdf"}}
	out, err = formatters.Export("text", withFiles, formatters.FormatterOptions{NoColor: true})
	require.NoError(t, err)
	assert.Equal(t, "Merged 2 files.\nWrote out/merged.pdf\n", out)
}

func TestJSON(t *testing.T) {
	out, err := formatters.Export("json", sample(), formatters.FormatterOptions{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"tool":"metadata","text":"Found 2 pages.\n","data":[{"page":1,"label":"cover"},{"page":2}]}`, out)
}

func TestYAMLUsesJSONKeys(t *testing.T) {
	out, err := formatters.Export("yaml", sample(), formatters.FormatterOptions{})
	require.NoError(t, err)
	assert.Contains(t, out, "tool: metadata\n")
	assert.Contains(t, out, "- label: cover\n")
	assert.Contains(t, out, "  page: 1\n")
	assert.NotContains(t, out, "files:")
}
