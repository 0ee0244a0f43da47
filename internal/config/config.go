package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads a Spec from a YAML file. If path is empty, it searches
// a short list of conventional default locations.
func LoadConfig(path string) (*Spec, error) {
	if path == "" {
		for _, candidate := range []string{"procdrive.yaml", "procdrive.yml"} {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
		if path == "" {
			return nil, fmt.Errorf("config: no config file found in default locations")
		}
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var spec Spec
	if err := yaml.NewDecoder(f).Decode(&spec); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	applyDefaults(&spec)
	return &spec, nil
}
