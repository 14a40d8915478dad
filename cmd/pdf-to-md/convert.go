// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/scottkwong/pdf-to-md/internal/assemble"
	"github.com/scottkwong/pdf-to-md/internal/batch"
	"github.com/scottkwong/pdf-to-md/internal/raster"
	"github.com/scottkwong/pdf-to-md/internal/secrets"
	"github.com/scottkwong/pdf-to-md/internal/transcribe"
	"github.com/scottkwong/pdf-to-md/pkg/types"
)

const (
	defaultModel     = "gpt-4o"
	defaultTimeout   = 120 * time.Second
	defaultDPI       = 150
	defaultUserAgent = "pdf-to-md/0.1"
)

func init() {
	rootCmd.Flags().StringP("output-dir", "o", "", "output directory (default: alongside each source PDF)")
	rootCmd.Flags().StringP("mode", "m", string(types.ModeVisionText), "'v' = vision-only, 'vt' = vision-and-text")
	rootCmd.Flags().BoolP("verbose", "v", false, "print each page's Markdown to stdout")
	rootCmd.Flags().BoolP("recursive", "r", false, "recurse into subdirectories when input is a directory")
	rootCmd.Flags().BoolP("parallel", "p", false, "process discovered files concurrently (directory mode only)")
	rootCmd.Flags().Int("workers", 0, "worker pool size for --parallel (default: number of CPUs)")
	rootCmd.Flags().Duration("timeout", 0, "per-request HTTP timeout (default 120s)")
	rootCmd.Flags().String("model", "", "completion model identifier (default gpt-4o)")
	rootCmd.Flags().Int("dpi", 0, "rasterization resolution (default 150)")
	rootCmd.Flags().String("report", "", "write a YAML run report to this file")
}

func runConvert(cmd *cobra.Command, args []string) error {
	cfg, err := pipelineConfig(cmd)
	if err != nil {
		return err
	}

	// Fatal configuration checks, before any file is touched: the API
	// credential and the rasterizer binaries.
	apiKey, err := secrets.Require(secrets.DefaultEnvFile)
	if err != nil {
		return err
	}
	cfg.Transcription.APIKey = apiKey

	if err := raster.Detect(cfg.Conversion.Mode); err != nil {
		return err
	}

	input := args[0]
	if cfg.Batch.Parallel {
		info, err := os.Stat(input)
		if err != nil {
			return fmt.Errorf("input path %s: %w", input, err)
		}
		if !info.IsDir() {
			return fmt.Errorf("--parallel requires a directory input")
		}
	}

	files, err := batch.Discover(input, cfg.Batch.Recursive)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Fprintf(os.Stderr, "no PDF files found under %s\n", input)
		return nil
	}

	poppler := raster.NewPoppler(cfg.Raster)
	backend := transcribe.NewOpenAIBackend(cfg.Transcription)
	assembler := assemble.New(poppler, poppler, backend, cfg.Transcription)

	// Interrupts cancel in-flight work cleanly: scratch dirs are removed
	// and no partially written document is renamed into place.
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	started := time.Now()
	result := batch.Run(ctx, assembler, files, cfg.Conversion, cfg.Batch, os.Stdout)

	if cfg.Batch.ReportPath != "" {
		if err := batch.WriteReport(cfg.Batch.ReportPath, started, result); err != nil {
			return err
		}
	}

	if result.HasFailures() {
		return fmt.Errorf("%d file(s) failed conversion", result.Failed())
	}
	return nil
}

// pipelineConfig assembles the run configuration once: explicit flag, then
// viper (config file or PDF_TO_MD_* environment), then the hard default.
func pipelineConfig(cmd *cobra.Command) (*types.PipelineConfig, error) {
	mode, err := types.ParseMode(stringSetting(cmd, "mode", string(types.ModeVisionText)))
	if err != nil {
		return nil, err
	}

	outputDir := stringSetting(cmd, "output-dir", "")
	verbose, _ := cmd.Flags().GetBool("verbose")
	recursive, _ := cmd.Flags().GetBool("recursive")
	parallel, _ := cmd.Flags().GetBool("parallel")
	workers := intSetting(cmd, "workers", 0)
	reportPath := stringSetting(cmd, "report", "")

	timeout := durationSetting(cmd, "timeout", defaultTimeout)
	model := stringSetting(cmd, "model", defaultModel)
	dpi := intSetting(cmd, "dpi", defaultDPI)

	return &types.PipelineConfig{
		Raster: types.RasterConfig{DPI: dpi},
		Transcription: types.TranscriptionConfig{
			HTTPConfig: types.HTTPConfig{
				Timeout:   timeout,
				UserAgent: defaultUserAgent,
			},
			Model:      model,
			MaxRetries: 3,
		},
		Conversion: types.ConversionConfig{
			Mode:      mode,
			OutputDir: outputDir,
			Verbose:   verbose,
		},
		Batch: types.BatchConfig{
			Recursive:  recursive,
			Parallel:   parallel,
			Workers:    workers,
			ReportPath: reportPath,
		},
	}, nil
}

func stringSetting(cmd *cobra.Command, name, fallback string) string {
	if cmd.Flags().Changed(name) {
		v, _ := cmd.Flags().GetString(name)
		return v
	}
	if v := viper.GetString(viperKey(name)); v != "" {
		return v
	}
	if v, _ := cmd.Flags().GetString(name); v != "" {
		return v
	}
	return fallback
}

func intSetting(cmd *cobra.Command, name string, fallback int) int {
	if cmd.Flags().Changed(name) {
		v, _ := cmd.Flags().GetInt(name)
		return v
	}
	if v := viper.GetInt(viperKey(name)); v != 0 {
		return v
	}
	return fallback
}

func durationSetting(cmd *cobra.Command, name string, fallback time.Duration) time.Duration {
	if cmd.Flags().Changed(name) {
		v, _ := cmd.Flags().GetDuration(name)
		return v
	}
	if v := viper.GetDuration(viperKey(name)); v != 0 {
		return v
	}
	return fallback
}

// viperKey maps a flag name to its config key (dashes become underscores).
func viperKey(flag string) string {
	switch flag {
	case "output-dir":
		return "output_dir"
	default:
		return flag
	}
}
