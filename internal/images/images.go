// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package images describes extracted PDF images: dimensions, a PNG preview
// thumbnail and, for JPEGs, a short EXIF summary.
package images

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"strings"

	"github.com/rwcarlsen/goexif/exif"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"pdf-toolbox/internal/processing"
)

// ThumbnailSize is the longest edge of generated previews, in pixels
const ThumbnailSize = 256

// maxDecodePixels caps the images Describe fully decodes for a thumbnail.
// Larger ones are reported from their header alone.
var maxDecodePixels int64 = 40_000_000

// Info is what the UI shows for one extracted image
type Info struct {
	Name      string            `json:"name"`
	Page      int               `json:"page"`
	Index     int               `json:"index"`
	Format    string            `json:"format"`
	Width     int               `json:"width"`
	Height    int               `json:"height"`
	Bytes     int               `json:"bytes"`
	Thumbnail string            `json:"thumbnail,omitempty"` // data: URI
	EXIF      map[string]string `json:"exif,omitempty"`
}

// Describe decodes img and builds its Info. Images the decoders cannot read
// still get an entry without dimensions or thumbnail, and images over
// maxDecodePixels get dimensions but no thumbnail.
func Describe(img processing.RawImage) Info {
	info := Info{
		Name:   img.Name(),
		Page:   img.Page,
		Index:  img.Index,
		Format: img.Ext,
		Bytes:  len(img.Data),
	}

	if cfg, format, err := image.DecodeConfig(bytes.NewReader(img.Data)); err == nil {
		info.Format = format
		info.Width, info.Height = cfg.Width, cfg.Height
		if int64(cfg.Width)*int64(cfg.Height) <= maxDecodePixels {
			info.Thumbnail = thumbnailURI(img.Data)
		}
	}

	if info.Format == "jpeg" || info.Format == "jpg" {
		info.EXIF = EXIFSummary(img.Data)
	}
	return info
}

func thumbnailURI(data []byte) string {
	decoded, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return ""
	}
	thumb, err := Thumbnail(decoded, ThumbnailSize)
	if err != nil {
		return ""
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(thumb)
}

// Thumbnail scales src so its longest edge is at most maxEdge and encodes it as PNG
func Thumbnail(src image.Image, maxEdge int) ([]byte, error) {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return nil, fmt.Errorf("empty image")
	}

	if w > maxEdge || h > maxEdge {
		if w >= h {
			h = max(1, h*maxEdge/w)
			w = maxEdge
		} else {
			w = max(1, w*maxEdge/h)
			h = maxEdge
		}
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, fmt.Errorf("failed to encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}

var exifFields = []exif.FieldName{
	exif.Make,
	exif.Model,
	exif.DateTimeOriginal,
	exif.Software,
	exif.Orientation,
	exif.PixelXDimension,
	exif.PixelYDimension,
}

// EXIFSummary returns a handful of common EXIF tags, or nil when the JPEG
// carries no EXIF block.
func EXIFSummary(data []byte) map[string]string {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return nil
	}

	out := make(map[string]string)
	for _, name := range exifFields {
		tag, err := x.Get(name)
		if err != nil {
			continue
		}
		val := tag.String()
		if s, err := tag.StringVal(); err == nil {
			val = s
		}
		val = strings.Trim(val, "\" \x00")
		if val != "" {
			out[string(name)] = val
		}
	}
	if lat, long, err := x.LatLong(); err == nil {
		out["GPS"] = fmt.Sprintf("%.5f, %.5f", lat, long)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
