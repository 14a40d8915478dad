// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the pdf-to-md CLI. It converts PDF
// documents to Markdown by rasterizing each page and transcribing the page
// images with a hosted multimodal completion model.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is set at build time via ldflags.
var version = "dev"

// rootCmd is the base command; converting is the tool's single job, so the
// root command carries the input path directly instead of a subcommand.
var rootCmd = &cobra.Command{
	Use:   "pdf-to-md <path_to_pdf_or_directory>",
	Short: "Convert PDF files to Markdown with a multimodal model",
	Long: `pdf-to-md renders each page of a PDF to an image, sends the images (and
optionally extracted page text) to a hosted multimodal completion model with
a fixed transcription prompt, and joins the per-page Markdown responses into
one <basename>.md file per document.

A directory input converts every PDF it contains; --recursive descends into
subdirectories and --parallel dispatches files across a worker pool. The API
credential is read from OPENAI_API_KEY or a local .env file.`,
	Args: cobra.ExactArgs(1),
	RunE: runConvert,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./pdf-to-md.yaml or ~/.config/pdf-to-md/config.yaml)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("pdf-to-md")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "pdf-to-md"))
		}
	}

	viper.SetEnvPrefix("PDF_TO_MD")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
