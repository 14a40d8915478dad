// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// FileStatus indicates the outcome of converting one source PDF.
type FileStatus string

const (
	StatusConverted FileStatus = "converted"
	StatusFailed    FileStatus = "failed"
	StatusSkipped   FileStatus = "skipped"
)

// FileResult records the outcome of one file in a batch run. Each file's
// success or failure is independent of its siblings.
type FileResult struct {
	// Source is the input PDF path.
	Source string `json:"source" yaml:"source"`

	// Output is the written Markdown path, empty on failure.
	Output string `json:"output,omitempty" yaml:"output,omitempty"`

	// Status is the conversion outcome.
	Status FileStatus `json:"status" yaml:"status"`

	// Error holds the failure reason when Status is StatusFailed.
	Error string `json:"error,omitempty" yaml:"error,omitempty"`

	// Pages is the number of pages transcribed on success.
	Pages int `json:"pages,omitempty" yaml:"pages,omitempty"`
}
