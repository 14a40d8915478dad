// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package raster renders PDF pages to images and extracts per-page plain
// text by shelling out to the poppler utilities (pdftoppm, pdftotext).
// Both capabilities are expressed as interfaces so tests substitute fakes.
package raster

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"github.com/scottkwong/pdf-to-md/pkg/types"
)

const (
	binPdftoppm  = "pdftoppm"
	binPdftotext = "pdftotext"

	// pagePrefix is the output filename prefix passed to pdftoppm.
	pagePrefix = "page"
)

// pageImagePattern matches pdftoppm output files: page-1.png, page-01.png, ...
// pdftoppm zero-pads the page number to the width of the last page, so the
// numeric capture is what orders the files, never the lexical name.
var pageImagePattern = regexp.MustCompile(`^` + pagePrefix + `-(\d+)\.png$`)

// Rasterizer produces one image file per page of a PDF, in physical page
// order, written under outDir.
type Rasterizer interface {
	Rasterize(ctx context.Context, pdfPath, outDir string) ([]string, error)
}

// TextExtractor returns the plain text of each page of a PDF, indexed
// identically to the rasterized images.
type TextExtractor interface {
	ExtractText(ctx context.Context, pdfPath string, pageCount int) ([]string, error)
}

// executor abstracts command execution for testing.
type executor interface {
	LookPath(file string) (string, error)
	Run(ctx context.Context, name string, args []string, stdout io.Writer) error
}

// osExecutor is the production executor backed by os/exec.
type osExecutor struct{}

func (o *osExecutor) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

func (o *osExecutor) Run(ctx context.Context, name string, args []string, stdout io.Writer) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = stdout
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := bytes.TrimSpace(stderr.Bytes()); len(msg) > 0 {
			return fmt.Errorf("%s: %w: %s", name, err, msg)
		}
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

var defaultExec executor = &osExecutor{}

// Detect verifies that the poppler binaries required by mode are on PATH.
// Absence is a fatal startup error, reported before any file is touched.
func Detect(mode types.Mode) error {
	return detect(defaultExec, mode)
}

func detect(exec executor, mode types.Mode) error {
	if _, err := exec.LookPath(binPdftoppm); err != nil {
		return fmt.Errorf("%s not found on PATH (install poppler-utils): %w", binPdftoppm, err)
	}
	if mode == types.ModeVisionText {
		if _, err := exec.LookPath(binPdftotext); err != nil {
			return fmt.Errorf("%s not found on PATH (required for mode %q): %w", binPdftotext, mode, err)
		}
	}
	return nil
}

// Poppler implements Rasterizer and TextExtractor over the poppler
// command-line utilities.
type Poppler struct {
	dpi  int
	exec executor
}

// NewPoppler creates a poppler-backed rasterizer at the configured
// resolution. A zero DPI falls back to 150.
func NewPoppler(cfg types.RasterConfig) *Poppler {
	dpi := cfg.DPI
	if dpi <= 0 {
		dpi = 150
	}
	return &Poppler{dpi: dpi, exec: defaultExec}
}

// Rasterize renders every page of the PDF to a PNG under outDir and returns
// the image paths in page order.
func (p *Poppler) Rasterize(ctx context.Context, pdfPath, outDir string) ([]string, error) {
	args := []string{
		"-png",
		"-r", strconv.Itoa(p.dpi),
		pdfPath,
		filepath.Join(outDir, pagePrefix),
	}
	if err := p.exec.Run(ctx, binPdftoppm, args, io.Discard); err != nil {
		return nil, fmt.Errorf("rasterizing %s: %w", pdfPath, err)
	}

	images, err := collectPageImages(outDir)
	if err != nil {
		return nil, fmt.Errorf("rasterizing %s: %w", pdfPath, err)
	}
	if len(images) == 0 {
		return nil, fmt.Errorf("rasterizing %s: %s produced no page images", pdfPath, binPdftoppm)
	}
	return images, nil
}

// ExtractText runs pdftotext once per page so the results index 1:1 with
// the rasterized images.
func (p *Poppler) ExtractText(ctx context.Context, pdfPath string, pageCount int) ([]string, error) {
	texts := make([]string, 0, pageCount)
	for page := 1; page <= pageCount; page++ {
		var out bytes.Buffer
		args := []string{
			"-f", strconv.Itoa(page),
			"-l", strconv.Itoa(page),
			pdfPath,
			"-",
		}
		if err := p.exec.Run(ctx, binPdftotext, args, &out); err != nil {
			return nil, fmt.Errorf("extracting text from %s page %d: %w", pdfPath, page, err)
		}
		texts = append(texts, out.String())
	}
	return texts, nil
}

// collectPageImages lists pdftoppm output under dir sorted by page number.
func collectPageImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading image directory %s: %w", dir, err)
	}

	type pageImage struct {
		page int
		path string
	}
	var images []pageImage

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		m := pageImagePattern.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		page, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		images = append(images, pageImage{page: page, path: filepath.Join(dir, entry.Name())})
	}

	sort.Slice(images, func(i, j int) bool { return images[i].page < images[j].page })

	paths := make([]string, len(images))
	for i, img := range images {
		paths[i] = img.path
	}
	return paths, nil
}
