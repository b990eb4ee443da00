package report

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/KaramelBytes/chartloom-cli/internal/charts"
	"github.com/KaramelBytes/chartloom-cli/internal/utils"
)

// ManifestName is the file written next to the report.
const ManifestName = "charts.yaml"

// Manifest records what one run produced so a draft can be re-rendered
// without calling the model again.
type Manifest struct {
	RunID     string               `yaml:"run_id"`
	Generated time.Time            `yaml:"generated"`
	Template  string               `yaml:"template,omitempty"`
	Draft     string               `yaml:"draft"`
	Report    string               `yaml:"report,omitempty"`
	Charts    []charts.ChartResult `yaml:"charts"`
}

// WriteManifest saves m as YAML.
func WriteManifest(path string, m *Manifest) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	return utils.SafeWriteFile(path, data)
}

// ReadManifest loads a manifest written by WriteManifest.
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	return &m, nil
}
