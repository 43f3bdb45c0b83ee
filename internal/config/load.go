package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads and decodes a job file. Files ending in .yaml or .yml decode as
// YAML, everything else as JSON.
func Load(path string) (*Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var job Job
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &job); err != nil {
			return nil, fmt.Errorf("config: decode %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(data, &job); err != nil {
			return nil, fmt.Errorf("config: decode %s: %w", path, err)
		}
	}

	if job.Sink.Options == nil {
		job.Sink.Options = Options{}
	}
	return &job, nil
}
