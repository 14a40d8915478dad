// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package assemble

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/scottkwong/pdf-to-md/internal/transcribe"
	"github.com/scottkwong/pdf-to-md/pkg/types"
)

// fakeRasterizer writes numbered page images into outDir.
type fakeRasterizer struct {
	pages int
	err   error
}

func (f *fakeRasterizer) Rasterize(_ context.Context, _ string, outDir string) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	var paths []string
	for i := 1; i <= f.pages; i++ {
		path := filepath.Join(outDir, fmt.Sprintf("page-%d.png", i))
		if err := os.WriteFile(path, []byte("png"), 0o644); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// fakeTextExtractor returns one canned text per page.
type fakeTextExtractor struct {
	err error
}

func (f *fakeTextExtractor) ExtractText(_ context.Context, _ string, pageCount int) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	texts := make([]string, pageCount)
	for i := range texts {
		texts[i] = fmt.Sprintf("extracted text %d", i+1)
	}
	return texts, nil
}

// recordingBackend returns a deterministic fragment per page and records
// what it was asked to transcribe.
type recordingBackend struct {
	pages    []transcribe.Page
	failPage int // 1-based page whose transcription always fails; 0 = never
}

func (r *recordingBackend) Transcribe(_ context.Context, page transcribe.Page) (string, error) {
	r.pages = append(r.pages, page)
	if r.failPage > 0 && page.Index == r.failPage-1 {
		return "", fmt.Errorf("model unavailable")
	}
	return fmt.Sprintf("## Page %d", page.Index+1), nil
}

func testAssembler(t *testing.T, pages int, backend transcribe.Backend) *Assembler {
	t.Helper()
	return &Assembler{
		Raster:        &fakeRasterizer{pages: pages},
		Text:          &fakeTextExtractor{},
		Backend:       backend,
		Transcription: types.TranscriptionConfig{MaxRetries: 1},
		TempDir:       t.TempDir(),
		PageCount:     func(string) (int, error) { return pages, nil },
	}
}

func TestConvertPDF_OrderedFragments(t *testing.T) {
	outDir := t.TempDir()
	backend := &recordingBackend{}
	a := testAssembler(t, 3, backend)

	outPath, pages, err := a.ConvertPDF(context.Background(), "statements.pdf",
		types.ConversionConfig{Mode: types.ModeVision, OutputDir: outDir}, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("ConvertPDF() error: %v", err)
	}
	if pages != 3 {
		t.Errorf("pages = %d, want 3", pages)
	}
	if outPath != filepath.Join(outDir, "statements.md") {
		t.Errorf("outPath = %q, want statements.md in output dir", outPath)
	}

	content, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatal(err)
	}
	want := "## Page 1\n\n## Page 2\n\n## Page 3"
	if string(content) != want {
		t.Errorf("output = %q, want fragments joined by blank lines in page order", content)
	}

	// Vision-only mode must not attach prior text.
	for _, p := range backend.pages {
		if p.PriorText != "" {
			t.Errorf("page %d carried prior text in vision-only mode", p.Index)
		}
	}
}

func TestConvertPDF_VisionTextMode(t *testing.T) {
	backend := &recordingBackend{}
	a := testAssembler(t, 2, backend)

	_, _, err := a.ConvertPDF(context.Background(), "doc.pdf",
		types.ConversionConfig{Mode: types.ModeVisionText, OutputDir: t.TempDir()}, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("ConvertPDF() error: %v", err)
	}

	if len(backend.pages) != 2 {
		t.Fatalf("backend saw %d pages, want 2", len(backend.pages))
	}
	for i, p := range backend.pages {
		want := fmt.Sprintf("extracted text %d", i+1)
		if p.PriorText != want {
			t.Errorf("page %d prior text = %q, want %q", i, p.PriorText, want)
		}
	}
}

func TestConvertPDF_DeterministicRerun(t *testing.T) {
	outDir := t.TempDir()
	a := testAssembler(t, 2, &recordingBackend{})
	cfg := types.ConversionConfig{Mode: types.ModeVision, OutputDir: outDir}

	outPath, _, err := a.ConvertPDF(context.Background(), "doc.pdf", cfg, &bytes.Buffer{})
	if err != nil {
		t.Fatal(err)
	}
	first, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatal(err)
	}

	if _, _, err := a.ConvertPDF(context.Background(), "doc.pdf", cfg, &bytes.Buffer{}); err != nil {
		t.Fatal(err)
	}
	second, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatal(err)
	}

	if !bytes.Equal(first, second) {
		t.Error("re-running with a deterministic backend must produce byte-identical output")
	}
}

func TestConvertPDF_PageFailureLeavesNoOutput(t *testing.T) {
	outDir := t.TempDir()
	a := testAssembler(t, 3, &recordingBackend{failPage: 2})

	_, _, err := a.ConvertPDF(context.Background(), "doc.pdf",
		types.ConversionConfig{Mode: types.ModeVision, OutputDir: outDir}, &bytes.Buffer{})
	if err == nil {
		t.Fatal("ConvertPDF() = nil error, want page failure to abort the document")
	}

	entries, readErr := os.ReadDir(outDir)
	if readErr != nil {
		t.Fatal(readErr)
	}
	if len(entries) != 0 {
		t.Errorf("output dir not empty after abort: %v", entries)
	}
}

func TestConvertPDF_ScratchCleanedUp(t *testing.T) {
	scratchParent := t.TempDir()
	a := testAssembler(t, 2, &recordingBackend{})
	a.TempDir = scratchParent

	t.Run("after success", func(t *testing.T) {
		_, _, err := a.ConvertPDF(context.Background(), "doc.pdf",
			types.ConversionConfig{Mode: types.ModeVision, OutputDir: t.TempDir()}, &bytes.Buffer{})
		if err != nil {
			t.Fatal(err)
		}
		assertEmptyDir(t, scratchParent)
	})

	t.Run("after failure", func(t *testing.T) {
		a.Backend = &recordingBackend{failPage: 1}
		_, _, err := a.ConvertPDF(context.Background(), "doc.pdf",
			types.ConversionConfig{Mode: types.ModeVision, OutputDir: t.TempDir()}, &bytes.Buffer{})
		if err == nil {
			t.Fatal("want failure")
		}
		assertEmptyDir(t, scratchParent)
	})
}

func assertEmptyDir(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("scratch parent not cleaned: %v", entries)
	}
}

func TestConvertPDF_CountMismatch(t *testing.T) {
	a := testAssembler(t, 3, &recordingBackend{})
	// pdfcpu says 5 pages, rasterizer only produced 3.
	a.PageCount = func(string) (int, error) { return 5, nil }

	_, _, err := a.ConvertPDF(context.Background(), "doc.pdf",
		types.ConversionConfig{Mode: types.ModeVision, OutputDir: t.TempDir()}, &bytes.Buffer{})
	if err == nil || !strings.Contains(err.Error(), "page images") {
		t.Fatalf("ConvertPDF() = %v, want image-count mismatch error", err)
	}
}

func TestConvertPDF_UnreadablePDF(t *testing.T) {
	a := testAssembler(t, 0, &recordingBackend{})
	a.PageCount = func(path string) (int, error) {
		return 0, fmt.Errorf("unreadable PDF %s: encrypted", path)
	}

	_, _, err := a.ConvertPDF(context.Background(), "locked.pdf",
		types.ConversionConfig{Mode: types.ModeVision, OutputDir: t.TempDir()}, &bytes.Buffer{})
	if err == nil || !strings.Contains(err.Error(), "locked.pdf") {
		t.Fatalf("ConvertPDF() = %v, want per-file input error", err)
	}
}

func TestConvertPDF_VerboseEchoesFragments(t *testing.T) {
	var out bytes.Buffer
	a := testAssembler(t, 2, &recordingBackend{})

	_, _, err := a.ConvertPDF(context.Background(), "doc.pdf",
		types.ConversionConfig{Mode: types.ModeVision, OutputDir: t.TempDir(), Verbose: true}, &out)
	if err != nil {
		t.Fatal(err)
	}

	for _, want := range []string{"## Page 1", "## Page 2"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("verbose output missing %q:\n%s", want, out.String())
		}
	}
}

func TestConvertPDF_DefaultOutputDirIsSourceDir(t *testing.T) {
	srcDir := t.TempDir()
	pdfPath := filepath.Join(srcDir, "report.pdf")
	if err := os.WriteFile(pdfPath, []byte("pdf"), 0o644); err != nil {
		t.Fatal(err)
	}

	a := testAssembler(t, 1, &recordingBackend{})
	outPath, _, err := a.ConvertPDF(context.Background(), pdfPath,
		types.ConversionConfig{Mode: types.ModeVision}, &bytes.Buffer{})
	if err != nil {
		t.Fatal(err)
	}
	if outPath != filepath.Join(srcDir, "report.md") {
		t.Errorf("outPath = %q, want alongside the source PDF", outPath)
	}
}
