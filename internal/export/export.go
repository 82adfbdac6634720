// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package export converts the text of a PDF into plain text, markdown and
// Word documents.
package export

import (
	"strings"

	"pdf-toolbox/internal/artifact"
	"pdf-toolbox/internal/observability"
	"pdf-toolbox/internal/pdftext"
	"pdf-toolbox/internal/resilience"
	"pdf-toolbox/internal/structured"
)

// Exporter produces export artifacts and optionally keeps a copy on disk
type Exporter struct {
	outputDir string
	observer  *observability.StandardObserver
}

// NewExporter returns an exporter. Exports are also saved under outputDir
// unless it is empty.
func NewExporter(outputDir string, observer *observability.StandardObserver) *Exporter {
	if observer == nil {
		observer = observability.NewStandardObserver(observability.ObservabilityOff, nil)
	}
	return &Exporter{outputDir: outputDir, observer: observer}
}

func open(data []byte) (*pdftext.Document, error) {
	if len(data) == 0 {
		return nil, resilience.NewInvalidInputError("no PDF provided")
	}
	doc, err := pdftext.Open(data)
	if err != nil {
		return nil, resilience.NewInvalidInputError("could not read PDF: %v", err)
	}
	return doc, nil
}

func (e *Exporter) finish(op string, a artifact.Artifact) (artifact.Artifact, error) {
	done := e.observer.StartTiming("export", op, a.Name)
	if e.outputDir != "" {
		if _, err := a.Save(e.outputDir); err != nil {
			done(false, map[string]interface{}{"error": err.Error()})
			return artifact.Artifact{}, err
		}
	}
	done(true, map[string]interface{}{"bytes": a.Size()})
	return a, nil
}

// ExportText writes the extracted text to export.txt
func (e *Exporter) ExportText(data []byte) (artifact.Artifact, error) {
	doc, err := open(data)
	if err != nil {
		return artifact.Artifact{}, err
	}
	return e.finish("text", artifact.New("export.txt", artifact.MIMEText, []byte(doc.Text())))
}

// ExportMarkdown writes export.md, using layout analysis when it produces
// something and escaped plain paragraphs otherwise.
func (e *Exporter) ExportMarkdown(data []byte) (artifact.Artifact, error) {
	doc, err := open(data)
	if err != nil {
		return artifact.Artifact{}, err
	}

	md, err := structured.Markdown(data)
	if err != nil || md == "" {
		if err != nil {
			e.observer.Logger().WithError(err).Debug("layout markdown unavailable, using plain text")
		}
		md = PlainMarkdown(doc.Pages())
	}
	return e.finish("markdown", artifact.New("export.md", artifact.MIMEMarkdown, []byte(md+"\n")))
}

// ExportWord writes export.docx
func (e *Exporter) ExportWord(data []byte) (artifact.Artifact, error) {
	doc, err := open(data)
	if err != nil {
		return artifact.Artifact{}, err
	}

	title := doc.Info()["Title"]
	body, err := BuildDocx(title, doc.Pages())
	if err != nil {
		return artifact.Artifact{}, err
	}
	return e.finish("word", artifact.New("export.docx", artifact.MIMEDocx, body))
}

// PlainMarkdown renders page texts as markdown paragraphs, one per line,
// with pages separated by a horizontal rule.
func PlainMarkdown(pages []string) string {
	var blocks []string
	for _, page := range pages {
		var paras []string
		for _, line := range strings.Split(page, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				paras = append(paras, EscapeMarkdownLine(line))
			}
		}
		if len(paras) > 0 {
			blocks = append(blocks, strings.Join(paras, "\n\n"))
		}
	}
	return strings.Join(blocks, "\n\n---\n\n")
}

// EscapeMarkdownLine keeps a line of plain text from being read as block
// markup (headings, quotes, lists, tables, rules).
func EscapeMarkdownLine(line string) string {
	if line == "" {
		return line
	}
	switch line[0] {
	case '#', '>', '-', '+', '*', '=', '|', '`', '~', '_':
		return `\` + line
	}
	i := 0
	for i < len(line) && line[i] >= '0' && line[i] <= '9' {
		i++
	}
	if i > 0 && i < len(line) && (line[i] == '.' || line[i] == ')') {
		return line[:i] + `\` + line[i:]
	}
	return line
}
