// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package toolbox

import (
	"context"
	"fmt"
	"strings"

	"pdf-toolbox/internal/analysis"
	"pdf-toolbox/internal/artifact"
	"pdf-toolbox/internal/images"
	"pdf-toolbox/internal/ocr"
	"pdf-toolbox/internal/pdftext"
	"pdf-toolbox/internal/processing"
	"pdf-toolbox/internal/resilience"
	"pdf-toolbox/internal/tables"
)

// SourcePreviewChars is how much of each retrieved chunk is shown
const SourcePreviewChars = 800

// NewDefaultRegistry registers every built-in tool
func NewDefaultRegistry(svc *Services) *Registry {
	r := NewRegistry(svc.Observer)
	for _, t := range Builtin(svc) {
		r.Register(t)
	}
	return r
}

// Builtin returns the built-in tools in menu order
func Builtin(svc *Services) []*Tool {
	return []*Tool{
		splitTool(svc),
		mergeTool(svc),
		extractRangeTool(svc),
		removePagesTool(svc),

		highlightTool(svc),
		extractImagesTool(svc),
		extractTablesTool(svc),
		ocrTool(svc),
		reorderTool(svc),
		rotateTool(svc),
		watermarkTool(svc),
		metadataTool(svc),

		extractTextTool(svc),
		summarizeTool(svc),
		askTool(svc),

		exportWordTool(svc),
		exportTextTool(svc),
		exportMarkdownTool(svc),
	}
}

func files(as ...artifact.Artifact) *Result {
	return &Result{Artifacts: as}
}

func pageParam(name, label, def string) Param {
	return Param{Name: name, Label: label, Kind: KindNumber, Default: def, Min: intPtr(1), Step: 1}
}

func splitTool(svc *Services) *Tool {
	return &Tool{
		Name:        "split",
		Title:       "Split PDF Pages",
		Category:    CategoryProcessing,
		Description: "Split a PDF into one file per page, downloaded as a ZIP.",
		View:        ViewFiles,
		Params: []Param{
			{Name: "mode", Label: "Split mode", Kind: KindSelect, Default: "all", Options: []Option{
				{Value: "all", Label: "All Pages"},
				{Value: "range", Label: "Page Range"},
				{Value: "single", Label: "Single Page"},
			}},
			withShowIf(pageParam("start", "Start page", "1"), "mode=range"),
			withShowIf(pageParam("end", "End page", ""), "mode=range"),
			withShowIf(pageParam("page", "Page", "1"), "mode=single"),
		},
		Run: func(ctx context.Context, req *Request) (*Result, error) {
			f, err := req.File()
			if err != nil {
				return nil, err
			}
			count, err := svc.Engine.PageCount(f.Data)
			if err != nil {
				return nil, err
			}

			start, end := 1, count
			switch req.String("mode") {
			case "", "all":
			case "range":
				if start, err = req.Int("start", 1); err != nil {
					return nil, err
				}
				if end, err = req.Int("end", count); err != nil {
					return nil, err
				}
			case "single":
				page, err := req.Int("page", 1)
				if err != nil {
					return nil, err
				}
				start, end = page, page
			default:
				return nil, resilience.NewInvalidInputError("unknown split mode %q", req.String("mode"))
			}

			a, err := svc.Engine.SplitPages(f.Data, start, end)
			if err != nil {
				return nil, err
			}
			res := files(a)
			res.Text = fmt.Sprintf("Split pages %d-%d into %d files.", start, end, end-start+1)
			return res, nil
		},
	}
}

func withShowIf(p Param, cond string) Param {
	p.ShowIf = cond
	return p
}

func mergeTool(svc *Services) *Tool {
	return &Tool{
		Name:        "merge",
		Title:       "Merge PDFs",
		Category:    CategoryProcessing,
		Description: "Combine several PDFs into one, in upload order.",
		MultiFile:   true,
		View:        ViewFiles,
		Run: func(ctx context.Context, req *Request) (*Result, error) {
			if len(req.Files) == 0 {
				return nil, resilience.NewInvalidInputError("please upload at least one PDF file")
			}
			docs := make([][]byte, len(req.Files))
			for i, f := range req.Files {
				docs[i] = f.Data
			}
			a, err := svc.Engine.MergePDFs(docs...)
			if err != nil {
				return nil, err
			}
			res := files(a)
			res.Text = fmt.Sprintf("Merged %d files.", len(docs))
			return res, nil
		},
	}
}

func extractRangeTool(svc *Services) *Tool {
	return &Tool{
		Name:        "extract_range",
		Title:       "Extract Page Range",
		Category:    CategoryProcessing,
		Description: "Copy a range of pages into a new PDF.",
		View:        ViewFiles,
		Params:      []Param{pageParam("start", "Start page", "1"), pageParam("end", "End page", "")},
		Run: func(ctx context.Context, req *Request) (*Result, error) {
			f, err := req.File()
			if err != nil {
				return nil, err
			}
			count, err := svc.Engine.PageCount(f.Data)
			if err != nil {
				return nil, err
			}
			start, err := req.Int("start", 1)
			if err != nil {
				return nil, err
			}
			end, err := req.Int("end", count)
			if err != nil {
				return nil, err
			}
			a, err := svc.Engine.ExtractPageRange(f.Data, start, end)
			if err != nil {
				return nil, err
			}
			return files(a), nil
		},
	}
}

func removePagesTool(svc *Services) *Tool {
	return &Tool{
		Name:        "remove_pages",
		Title:       "Remove First/Last Pages",
		Category:    CategoryProcessing,
		Description: "Drop the first and/or last page.",
		View:        ViewFiles,
		Params: []Param{
			{Name: "first", Label: "Remove first page", Kind: KindCheckbox, Default: "true"},
			{Name: "last", Label: "Remove last page", Kind: KindCheckbox},
		},
		Run: func(ctx context.Context, req *Request) (*Result, error) {
			f, err := req.File()
			if err != nil {
				return nil, err
			}
			a, err := svc.Engine.RemoveFirstLastPages(f.Data, req.Bool("first"), req.Bool("last"))
			if err != nil {
				return nil, err
			}
			return files(a), nil
		},
	}
}

func highlightTool(svc *Services) *Tool {
	return &Tool{
		Name:        "highlight",
		Title:       "Keyword Search & Highlight",
		Category:    CategoryAdvanced,
		Description: "Find a keyword (case-insensitive) and highlight every occurrence.",
		View:        ViewJSON,
		Params:      []Param{{Name: "keyword", Label: "Keyword", Kind: KindText, Placeholder: "Enter keyword to highlight"}},
		Run: func(ctx context.Context, req *Request) (*Result, error) {
			f, err := req.File()
			if err != nil {
				return nil, err
			}
			keyword := req.String("keyword")
			hr, err := svc.Engine.HighlightKeyword(f.Data, keyword)
			if err != nil {
				return nil, err
			}
			res := files(hr.Artifact)
			res.Data = hr
			if hr.Total == 0 {
				res.Text = fmt.Sprintf("No matches found for %q.", keyword)
			} else {
				res.Text = fmt.Sprintf("Found %d matches for %q on %d pages.", hr.Total, keyword, len(hr.MatchesPerPage))
			}
			return res, nil
		},
	}
}

func extractImagesTool(svc *Services) *Tool {
	return &Tool{
		Name:        "extract_images",
		Title:       "Extract Images",
		Category:    CategoryAdvanced,
		Description: "Pull every embedded image out of the PDF.",
		View:        ViewImages,
		Run: func(ctx context.Context, req *Request) (*Result, error) {
			f, err := req.File()
			if err != nil {
				return nil, err
			}
			raws, err := svc.Engine.ExtractImages(f.Data)
			if err != nil {
				return nil, err
			}
			if len(raws) == 0 {
				return &Result{Text: "No images found.", Data: []images.Info{}}, nil
			}

			infos := make([]images.Info, len(raws))
			entries := make([]artifact.Artifact, len(raws))
			for i, raw := range raws {
				infos[i] = images.Describe(raw)
				entries[i] = artifact.New(raw.Name(), "image/"+raw.Ext, raw.Data)
			}
			zipped, err := artifact.Zip("images.zip", entries)
			if err != nil {
				return nil, err
			}
			return &Result{
				Text:      fmt.Sprintf("Extracted %d images.", len(raws)),
				Data:      infos,
				Artifacts: []artifact.Artifact{zipped},
			}, nil
		},
	}
}

func extractTablesTool(svc *Services) *Tool {
	return &Tool{
		Name:        "extract_tables",
		Title:       "Extract Tables",
		Category:    CategoryAdvanced,
		Description: "Detect tables from text layout and export them as CSV.",
		View:        ViewTables,
		Run: func(ctx context.Context, req *Request) (*Result, error) {
			f, err := req.File()
			if err != nil {
				return nil, err
			}
			if err := svc.Engine.Validate(f.Data); err != nil {
				return nil, err
			}
			doc, err := pdftext.Open(f.Data)
			if err != nil {
				return nil, resilience.NewInvalidInputError("could not read PDF: %v", err)
			}
			found, err := svc.Tables.Detect(doc)
			if err != nil {
				return nil, err
			}
			if len(found) == 0 {
				return &Result{Text: "No tables detected."}, nil
			}
			bundle, err := tables.Bundle(found)
			if err != nil {
				return nil, err
			}
			return &Result{
				Text:      fmt.Sprintf("Detected %d tables.", len(found)),
				Data:      found,
				Artifacts: []artifact.Artifact{bundle},
			}, nil
		},
	}
}

func ocrTool(svc *Services) *Tool {
	langs := ocr.Languages(svc.Config.OCR.Languages)
	opts := make([]Option, len(langs))
	for i, l := range langs {
		opts[i] = Option{Value: l.Code, Label: l.Name}
	}
	return &Tool{
		Name:        "ocr",
		Title:       "OCR Scanned PDF",
		Category:    CategoryAdvanced,
		Description: "Recognize text in scanned pages with Tesseract.",
		View:        ViewText,
		Params: []Param{{
			Name: "language", Label: "OCR language", Kind: KindSelect,
			Default: svc.Config.OCR.DefaultLanguage, Options: opts,
		}},
		Run: func(ctx context.Context, req *Request) (*Result, error) {
			f, err := req.File()
			if err != nil {
				return nil, err
			}
			text, err := svc.OCR.Scan(ctx, f.Data, ocr.Options{
				Language:    req.String("language"),
				Allowed:     svc.Config.OCR.Languages,
				PageSegMode: svc.Config.OCR.PageSegMode,
				Workers:     svc.Config.OCR.Workers,
			})
			if err != nil {
				return nil, err
			}
			if strings.TrimSpace(text) == "" {
				return &Result{Text: "No text recognized."}, nil
			}
			return &Result{Text: text}, nil
		},
	}
}

func reorderTool(svc *Services) *Tool {
	return &Tool{
		Name:        "reorder",
		Title:       "Reorder Pages",
		Category:    CategoryAdvanced,
		Description: "Write pages in a new order. Page numbers start at 0.",
		View:        ViewFiles,
		Params: []Param{{
			Name: "order", Label: "New page order (0-indexed, comma-separated)", Kind: KindText,
			Placeholder: "e.g. 2,0,1",
		}},
		Run: func(ctx context.Context, req *Request) (*Result, error) {
			f, err := req.File()
			if err != nil {
				return nil, err
			}
			order := req.IntList("order")
			if len(order) == 0 {
				return nil, resilience.NewInvalidInputError("please enter a page order such as 2,0,1")
			}
			a, err := svc.Engine.ReorderPages(f.Data, order)
			if err != nil {
				return nil, err
			}
			return files(a), nil
		},
	}
}

func rotateTool(svc *Services) *Tool {
	return &Tool{
		Name:        "rotate",
		Title:       "Rotate Pages",
		Category:    CategoryAdvanced,
		Description: "Rotate selected pages clockwise. Page numbers start at 0.",
		View:        ViewFiles,
		Params: []Param{
			{Name: "pages", Label: "Pages to rotate (0-indexed, comma-separated)", Kind: KindText, Placeholder: "e.g. 0,2"},
			{Name: "angle", Label: "Rotation angle", Kind: KindNumber, Default: "90", Min: intPtr(0), Max: intPtr(360), Step: 90},
		},
		Run: func(ctx context.Context, req *Request) (*Result, error) {
			f, err := req.File()
			if err != nil {
				return nil, err
			}
			pages := req.IntList("pages")
			if len(pages) == 0 {
				return nil, resilience.NewInvalidInputError("please enter the pages to rotate, such as 0,2")
			}
			angle, err := req.Int("angle", 90)
			if err != nil {
				return nil, err
			}
			a, err := svc.Engine.RotatePages(f.Data, pages, angle)
			if err != nil {
				return nil, err
			}
			return files(a), nil
		},
	}
}

func watermarkTool(svc *Services) *Tool {
	return &Tool{
		Name:        "watermark",
		Title:       "Add Watermark",
		Category:    CategoryAdvanced,
		Description: "Stamp a text watermark on every page.",
		View:        ViewFiles,
		Params:      []Param{{Name: "text", Label: "Watermark text", Kind: KindText, Default: processing.DefaultWatermark}},
		Run: func(ctx context.Context, req *Request) (*Result, error) {
			f, err := req.File()
			if err != nil {
				return nil, err
			}
			a, err := svc.Engine.AddWatermark(f.Data, req.String("text"))
			if err != nil {
				return nil, err
			}
			return files(a), nil
		},
	}
}

func metadataTool(svc *Services) *Tool {
	return &Tool{
		Name:        "metadata",
		Title:       "Extract Metadata",
		Category:    CategoryAdvanced,
		Description: "Show the document information dictionary and properties.",
		View:        ViewJSON,
		Run: func(ctx context.Context, req *Request) (*Result, error) {
			f, err := req.File()
			if err != nil {
				return nil, err
			}
			md, err := svc.Engine.ExtractMetadata(f.Data)
			if err != nil {
				return nil, err
			}
			return &Result{Data: md}, nil
		},
	}
}

// documentText extracts selectable text after checking the file is a PDF
func documentText(svc *Services, data []byte) (string, error) {
	if err := svc.Engine.Validate(data); err != nil {
		return "", err
	}
	doc, err := pdftext.Open(data)
	if err != nil {
		return "", resilience.NewInvalidInputError("could not read PDF: %v", err)
	}
	return doc.Text(), nil
}

func extractTextTool(svc *Services) *Tool {
	return &Tool{
		Name:        "extract_text",
		Title:       "Extract Text",
		Category:    CategoryAnalysis,
		Description: "Extract the selectable text of every page.",
		View:        ViewText,
		Run: func(ctx context.Context, req *Request) (*Result, error) {
			f, err := req.File()
			if err != nil {
				return nil, err
			}
			text, err := documentText(svc, f.Data)
			if err != nil {
				return nil, err
			}
			if strings.TrimSpace(text) == "" {
				return &Result{Text: "No selectable text found. The PDF may be scanned; try OCR Scanned PDF."}, nil
			}
			return &Result{Text: text}, nil
		},
	}
}

func summarizeTool(svc *Services) *Tool {
	return &Tool{
		Name:        "summarize",
		Title:       "Summarize PDF",
		Category:    CategoryAnalysis,
		Description: "Summarize the document in 6-10 bullet points with an LLM.",
		View:        ViewText,
		Run: func(ctx context.Context, req *Request) (*Result, error) {
			f, err := req.File()
			if err != nil {
				return nil, err
			}
			text, err := documentText(svc, f.Data)
			if err != nil {
				return nil, err
			}
			summary, err := svc.Summarizer().SummarizeText(ctx, text)
			if err != nil {
				return nil, err
			}
			return &Result{Text: summary}, nil
		},
	}
}

// AnswerView is the structured result of a question
type AnswerView struct {
	Answer  string          `json:"answer"`
	Sources []SourcePreview `json:"sources"`
}

// SourcePreview is a retrieved chunk cut for display
type SourcePreview struct {
	Text      string  `json:"text"`
	PageStart int     `json:"page_start,omitempty"`
	PageEnd   int     `json:"page_end,omitempty"`
	Score     float64 `json:"score"`
}

func askTool(svc *Services) *Tool {
	return &Tool{
		Name:        "ask",
		Title:       "Ask Questions on PDF (RAG)",
		Category:    CategoryAnalysis,
		Description: "Answer a question from the most relevant passages of the document.",
		View:        ViewAnswer,
		Params:      []Param{{Name: "question", Label: "Your question", Kind: KindText, Placeholder: "What is this document about?"}},
		Run: func(ctx context.Context, req *Request) (*Result, error) {
			f, err := req.File()
			if err != nil {
				return nil, err
			}
			question := req.String("question")
			if question == "" {
				return nil, resilience.NewInvalidInputError("please enter a question")
			}
			if err := svc.Engine.Validate(f.Data); err != nil {
				return nil, err
			}
			answerer, err := svc.Answerer(ctx)
			if err != nil {
				return nil, err
			}
			ans, err := answerer.Ask(ctx, f.Data, question)
			if err != nil {
				return nil, err
			}

			view := AnswerView{Answer: ans.Answer}
			var b strings.Builder
			b.WriteString(ans.Answer)
			b.WriteString("\n\nSources:")
			for i, s := range ans.Sources {
				preview := analysis.Truncate(s.Text, SourcePreviewChars)
				view.Sources = append(view.Sources, SourcePreview{Text: preview, PageStart: s.PageStart, PageEnd: s.PageEnd, Score: s.Score})
				fmt.Fprintf(&b, "\n\n[%d] %s", i+1, preview)
			}
			return &Result{Text: b.String(), Data: view}, nil
		},
	}
}

func exportWordTool(svc *Services) *Tool {
	return &Tool{
		Name:        "export_docx",
		Title:       "Export to Word (.docx)",
		Category:    CategoryExport,
		Description: "Convert the text of the PDF into a Word document.",
		View:        ViewFiles,
		Run: func(ctx context.Context, req *Request) (*Result, error) {
			f, err := req.File()
			if err != nil {
				return nil, err
			}
			a, err := svc.Exporter.ExportWord(f.Data)
			if err != nil {
				return nil, err
			}
			return files(a), nil
		},
	}
}

func exportTextTool(svc *Services) *Tool {
	return &Tool{
		Name:        "export_txt",
		Title:       "Export to Text (.txt)",
		Category:    CategoryExport,
		Description: "Save the extracted text as a plain text file.",
		View:        ViewFiles,
		Run: func(ctx context.Context, req *Request) (*Result, error) {
			f, err := req.File()
			if err != nil {
				return nil, err
			}
			a, err := svc.Exporter.ExportText(f.Data)
			if err != nil {
				return nil, err
			}
			return files(a), nil
		},
	}
}

func exportMarkdownTool(svc *Services) *Tool {
	return &Tool{
		Name:        "export_md",
		Title:       "Export to Markdown (.md)",
		Category:    CategoryExport,
		Description: "Save the document as markdown, keeping headings, lists and tables where detected.",
		View:        ViewFiles,
		Run: func(ctx context.Context, req *Request) (*Result, error) {
			f, err := req.File()
			if err != nil {
				return nil, err
			}
			a, err := svc.Exporter.ExportMarkdown(f.Data)
			if err != nil {
				return nil, err
			}
			return files(a), nil
		},
	}
}
