// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package batch discovers PDF files and dispatches per-file conversions,
// sequentially or across a bounded worker pool. Each file's outcome is
// independent; one failure never aborts its siblings.
package batch

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/scottkwong/pdf-to-md/pkg/types"
)

// Converter converts one PDF to Markdown. Satisfied by assemble.Assembler;
// tests supply a fake.
type Converter interface {
	ConvertPDF(ctx context.Context, pdfPath string, cfg types.ConversionConfig, w io.Writer) (string, int, error)
}

// Result holds the per-file outcomes of a batch run, in discovery order.
type Result struct {
	Files []types.FileResult
}

// Converted returns the number of files that produced an output document.
func (r Result) Converted() int {
	return r.count(types.StatusConverted)
}

// Failed returns the number of files that failed.
func (r Result) Failed() int {
	return r.count(types.StatusFailed)
}

func (r Result) count(status types.FileStatus) int {
	n := 0
	for _, f := range r.Files {
		if f.Status == status {
			n++
		}
	}
	return n
}

// HasFailures reports whether any file failed, driving the non-zero exit.
func (r Result) HasFailures() bool {
	return r.Failed() > 0
}

// Discover resolves the input path to a list of PDF files. A single file is
// returned as-is after an extension check; a directory is enumerated at the
// top level, or fully when recursive is set. Paths are returned sorted so
// sequential runs process in a deterministic order.
func Discover(root string, recursive bool) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("input path %s: %w", root, err)
	}

	if !info.IsDir() {
		if !isPDF(root) {
			return nil, fmt.Errorf("input file %s is not a PDF", root)
		}
		return []string{root}, nil
	}

	var files []string
	if recursive {
		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && isPDF(path) {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walking %s: %w", root, err)
		}
	} else {
		entries, err := os.ReadDir(root)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", root, err)
		}
		for _, entry := range entries {
			if !entry.IsDir() && isPDF(entry.Name()) {
				files = append(files, filepath.Join(root, entry.Name()))
			}
		}
	}

	sort.Strings(files)
	return files, nil
}

func isPDF(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".pdf")
}

// Run converts every file, printing per-file status and a summary to w.
// Sequential mode processes in discovery order; parallel mode dispatches
// whole-file conversions across an errgroup bounded by cfg.Workers. Results
// land in an index-addressed slice, so report order is deterministic
// regardless of completion order.
func Run(ctx context.Context, c Converter, files []string, ccfg types.ConversionConfig, bcfg types.BatchConfig, w io.Writer) Result {
	results := make([]types.FileResult, len(files))

	workers := 1
	if bcfg.Parallel {
		workers = bcfg.Workers
		if workers <= 0 {
			workers = runtime.NumCPU()
		}
	}

	if workers <= 1 {
		for i, path := range files {
			results[i] = convertOne(ctx, c, path, ccfg, w)
		}
	} else {
		// Workers share one status writer; serialize it.
		sw := &syncWriter{w: w}
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(workers)
		for i, path := range files {
			i, path := i, path
			g.Go(func() error {
				results[i] = convertOne(gctx, c, path, ccfg, sw)
				return nil
			})
		}
		g.Wait()
	}

	result := Result{Files: results}
	fmt.Fprintf(w, "\nBatch summary: %d converted, %d failed (total: %d)\n",
		result.Converted(), result.Failed(), len(files))
	return result
}

// convertOne runs a single conversion and folds the outcome into a
// FileResult. Failures are always reported here, regardless of verbosity.
func convertOne(ctx context.Context, c Converter, path string, cfg types.ConversionConfig, w io.Writer) types.FileResult {
	outPath, pages, err := c.ConvertPDF(ctx, path, cfg, w)
	if err != nil {
		fmt.Fprintf(w, "failed:  %s (%v)\n", path, err)
		return types.FileResult{
			Source: path,
			Status: types.StatusFailed,
			Error:  err.Error(),
		}
	}

	fmt.Fprintf(w, "converted: %s -> %s (%d pages)\n", path, outPath, pages)
	return types.FileResult{
		Source: path,
		Output: outPath,
		Status: types.StatusConverted,
		Pages:  pages,
	}
}

// syncWriter serializes concurrent status writes from pool workers.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}
