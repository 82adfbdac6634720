// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package processing

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"pdf-toolbox/internal/pdftext"
)

// RawImage is an image stream pulled out of a page
type RawImage struct {
	Page  int    // 1-indexed
	Index int    // 1-indexed position on the page
	Ext   string // file extension without dot
	Data  []byte
}

// Name is the archive entry name for the image
func (r RawImage) Name() string {
	return fmt.Sprintf("page_%d_img_%d.%s", r.Page, r.Index, r.Ext)
}

// ExtractImages returns every embedded image, ordered by page and then by
// object number.
func (e *Engine) ExtractImages(data []byte) ([]RawImage, error) {
	if err := e.Validate(data); err != nil {
		return nil, err
	}

	finish := e.observer.StartTiming("processing", "extract_images", "")
	pages, err := api.ExtractImagesRaw(bytes.NewReader(data), nil, e.conf())
	if err != nil {
		finish(false, map[string]interface{}{"error": err.Error()})
		return nil, fmt.Errorf("image extraction failed: %w", err)
	}

	var out []RawImage
	for _, byObj := range pages {
		objNrs := make([]int, 0, len(byObj))
		for nr := range byObj {
			objNrs = append(objNrs, nr)
		}
		sort.Ints(objNrs)

		for _, nr := range objNrs {
			img := byObj[nr]
			buf, err := io.ReadAll(img)
			if err != nil {
				finish(false, map[string]interface{}{"error": err.Error()})
				return nil, fmt.Errorf("failed to read image object %d: %w", nr, err)
			}
			ext := strings.ToLower(img.FileType)
			if ext == "" {
				ext = "png"
			}
			out = append(out, RawImage{Page: img.PageNr, Data: buf, Ext: ext})
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Page < out[j].Page })
	perPage := map[int]int{}
	for i := range out {
		perPage[out[i].Page]++
		out[i].Index = perPage[out[i].Page]
	}

	finish(true, map[string]interface{}{"images": len(out)})
	return out, nil
}

// Metadata is the document information shown by the metadata tool
type Metadata struct {
	Title        string `json:"title"`
	Author       string `json:"author"`
	Subject      string `json:"subject"`
	Keywords     string `json:"keywords"`
	Creator      string `json:"creator"`
	Producer     string `json:"producer"`
	CreationDate string `json:"creationDate"`
	ModDate      string `json:"modDate"`
	PageCount    int    `json:"page_count"`
	Version      string `json:"pdf_version"`
	Encrypted    bool   `json:"encrypted"`
}

// ExtractMetadata reads the Info dictionary and basic document properties
func (e *Engine) ExtractMetadata(data []byte) (*Metadata, error) {
	ctx, err := e.readContext(data)
	if err != nil {
		return nil, err
	}

	md := &Metadata{
		PageCount: ctx.PageCount,
		Version:   ctx.XRefTable.Version().String(),
		Encrypted: ctx.XRefTable.Encrypt != nil,
	}

	doc, err := pdftext.Open(data)
	if err != nil {
		// Structural fields are still useful on their own
		return md, nil
	}
	info := doc.Info()
	md.Title = info["Title"]
	md.Author = info["Author"]
	md.Subject = info["Subject"]
	md.Keywords = info["Keywords"]
	md.Creator = info["Creator"]
	md.Producer = info["Producer"]
	md.CreationDate = info["CreationDate"]
	md.ModDate = info["ModDate"]
	return md, nil
}
