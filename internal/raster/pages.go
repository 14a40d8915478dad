// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package raster

import (
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// PageCount returns the number of pages in the PDF. It doubles as the
// up-front input check: a corrupt or encrypted PDF fails here, before any
// subprocess or network call is made for the file.
func PageCount(pdfPath string) (int, error) {
	n, err := api.PageCountFile(pdfPath)
	if err != nil {
		return 0, fmt.Errorf("unreadable PDF %s: %w", pdfPath, err)
	}
	if n < 1 {
		return 0, fmt.Errorf("PDF %s has no pages", pdfPath)
	}
	return n, nil
}
