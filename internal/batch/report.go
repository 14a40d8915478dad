// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package batch

import (
	"fmt"
	"os"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/scottkwong/pdf-to-md/pkg/types"
)

// Report is the YAML document written after a batch run when --report is set.
type Report struct {
	StartedAt time.Time          `yaml:"started_at"`
	Converted int                `yaml:"converted"`
	Failed    int                `yaml:"failed"`
	Total     int                `yaml:"total"`
	Files     []types.FileResult `yaml:"files"`
}

// WriteReport marshals the run result to a YAML file at path.
func WriteReport(path string, startedAt time.Time, result Result) error {
	report := Report{
		StartedAt: startedAt.UTC(),
		Converted: result.Converted(),
		Failed:    result.Failed(),
		Total:     len(result.Files),
		Files:     result.Files,
	}

	data, err := yaml.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing report %s: %w", path, err)
	}
	return nil
}
