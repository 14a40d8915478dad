// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"time"
)

// Mode selects what the transcription backend receives for each page.
type Mode string

const (
	// ModeVision sends only the rendered page image.
	ModeVision Mode = "v"

	// ModeVisionText sends the page image plus plain text extracted from
	// the same page, as grounding for the model.
	ModeVisionText Mode = "vt"
)

// Valid reports whether m is a recognized processing mode.
func (m Mode) Valid() bool {
	return m == ModeVision || m == ModeVisionText
}

// ParseMode validates a mode string from the CLI.
func ParseMode(s string) (Mode, error) {
	m := Mode(s)
	if !m.Valid() {
		return "", fmt.Errorf("invalid mode %q: valid modes are %q and %q", s, ModeVision, ModeVisionText)
	}
	return m, nil
}

// HTTPConfig holds shared HTTP settings for components that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "pdf-to-md/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// TranscriptionConfig holds settings for the page transcription stage.
type TranscriptionConfig struct {
	HTTPConfig `yaml:",inline"`

	// Model is the multimodal completion model identifier (e.g. "gpt-4o").
	Model string `json:"model" yaml:"model"`

	// APIKey is the authentication key for the completion API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// MaxTokens caps the completion length per page (default 4096).
	MaxTokens int `json:"max_tokens" yaml:"max_tokens"`

	// MaxRetries is the number of retry attempts per page (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// RasterConfig holds settings for page rasterization.
type RasterConfig struct {
	// DPI is the rasterization resolution (default 150). Fixed per run so
	// every page reaches the model at consistent quality.
	DPI int `json:"dpi" yaml:"dpi"`
}

// ConversionConfig holds per-document settings for the assembler.
type ConversionConfig struct {
	// Mode selects vision-only or vision-and-text transcription.
	Mode Mode `json:"mode" yaml:"mode"`

	// OutputDir is where Markdown files are written. Empty means alongside
	// each source PDF.
	OutputDir string `json:"output_dir" yaml:"output_dir"`

	// Verbose echoes each page's Markdown to stdout as it arrives.
	Verbose bool `json:"verbose" yaml:"verbose"`
}

// BatchConfig holds settings for multi-file runs.
type BatchConfig struct {
	// Recursive enumerates PDFs in nested subdirectories.
	Recursive bool `json:"recursive" yaml:"recursive"`

	// Parallel dispatches whole-file conversions across a worker pool.
	Parallel bool `json:"parallel" yaml:"parallel"`

	// Workers bounds the pool size when Parallel is set (default NumCPU).
	Workers int `json:"workers" yaml:"workers"`

	// ReportPath, when non-empty, is where the YAML run report is written.
	ReportPath string `json:"report_path,omitempty" yaml:"report_path,omitempty"`
}

// PipelineConfig groups all stage configurations. It is built once at
// startup and passed by reference; components never read ambient state.
type PipelineConfig struct {
	Raster        RasterConfig        `json:"raster" yaml:"raster"`
	Transcription TranscriptionConfig `json:"transcription" yaml:"transcription"`
	Conversion    ConversionConfig    `json:"conversion" yaml:"conversion"`
	Batch         BatchConfig         `json:"batch" yaml:"batch"`
}
