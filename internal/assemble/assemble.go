// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package assemble drives the per-document pipeline: rasterize the PDF,
// transcribe each page in physical order, and write one Markdown file.
package assemble

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/scottkwong/pdf-to-md/internal/raster"
	"github.com/scottkwong/pdf-to-md/internal/transcribe"
	"github.com/scottkwong/pdf-to-md/pkg/types"
)

// fragmentSeparator joins per-page Markdown fragments. Fragments are opaque
// strings; the blank line keeps adjacent Markdown blocks from fusing.
const fragmentSeparator = "\n\n"

// Assembler converts one PDF at a time. All fields are read-only after
// construction, so one Assembler is shared safely across batch workers.
type Assembler struct {
	Raster  raster.Rasterizer
	Text    raster.TextExtractor
	Backend transcribe.Backend

	// Transcription carries the retry budget for per-page calls.
	Transcription types.TranscriptionConfig

	// TempDir is the parent for per-document scratch directories. Empty
	// means the system default.
	TempDir string

	// PageCount reports the page total of a PDF before any rasterization.
	// Defaults to the pdfcpu-backed raster.PageCount.
	PageCount func(pdfPath string) (int, error)
}

// New builds an Assembler with the production page counter.
func New(r raster.Rasterizer, t raster.TextExtractor, b transcribe.Backend, tcfg types.TranscriptionConfig) *Assembler {
	return &Assembler{
		Raster:        r,
		Text:          t,
		Backend:       b,
		Transcription: tcfg,
		PageCount:     raster.PageCount,
	}
}

// ConvertPDF converts one PDF to <output_dir>/<basename>.md and returns the
// output path and page count.
//
// A failed page aborts the whole document: the output is written to a
// temporary path and renamed only after every page has succeeded, so no
// partial document is ever left in place. In verbose mode each page's
// Markdown is echoed to w as it arrives.
func (a *Assembler) ConvertPDF(ctx context.Context, pdfPath string, cfg types.ConversionConfig, w io.Writer) (string, int, error) {
	base := strings.TrimSuffix(filepath.Base(pdfPath), filepath.Ext(pdfPath))

	outDir := cfg.OutputDir
	if outDir == "" {
		outDir = filepath.Dir(pdfPath)
	}

	pageCount, err := a.PageCount(pdfPath)
	if err != nil {
		return "", 0, err
	}

	// Per-document scratch dir so concurrent documents never collide.
	scratch, err := os.MkdirTemp(a.TempDir, "pdf-to-md-"+base+"-")
	if err != nil {
		return "", 0, fmt.Errorf("creating scratch directory: %w", err)
	}
	defer os.RemoveAll(scratch)

	images, err := a.Raster.Rasterize(ctx, pdfPath, scratch)
	if err != nil {
		return "", 0, err
	}
	if len(images) != pageCount {
		return "", 0, fmt.Errorf(
			"rasterizing %s: produced %d page images for a %d-page document",
			pdfPath, len(images), pageCount,
		)
	}

	var texts []string
	if cfg.Mode == types.ModeVisionText {
		texts, err = a.Text.ExtractText(ctx, pdfPath, pageCount)
		if err != nil {
			return "", 0, err
		}
		if len(texts) != len(images) {
			return "", 0, fmt.Errorf(
				"extracting text from %s: %d page texts for %d page images",
				pdfPath, len(texts), len(images),
			)
		}
	}

	// Pages are transcribed strictly in physical order; the per-page
	// network call is the run's dominant cost.
	fragments := make([]string, 0, pageCount)
	for i, imagePath := range images {
		page := transcribe.Page{Index: i, ImagePath: imagePath}
		if texts != nil {
			page.PriorText = texts[i]
		}

		markdown, err := transcribe.WithRetry(ctx, a.Backend, page, a.Transcription.MaxRetries)
		if err != nil {
			return "", 0, fmt.Errorf("transcribing %s: %w", pdfPath, err)
		}
		fragments = append(fragments, markdown)

		if cfg.Verbose {
			fmt.Fprintln(w, markdown)
		}
	}

	outPath := filepath.Join(outDir, base+".md")
	if err := writeAtomic(outPath, strings.Join(fragments, fragmentSeparator)); err != nil {
		return "", 0, fmt.Errorf("writing %s: %w", outPath, err)
	}

	return outPath, pageCount, nil
}

// writeAtomic writes content to path via a temporary sibling and rename, so
// a write failure never leaves a truncated output file.
func writeAtomic(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(content), 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
