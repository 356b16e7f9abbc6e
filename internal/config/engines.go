package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// EngineSpec describes one entry of the AI engine registry.
type EngineSpec struct {
	Slug        string `yaml:"slug"`
	DisplayName string `yaml:"display_name"`
}

type engineRegistryFile struct {
	Engines []EngineSpec `yaml:"engines"`
}

// DefaultEngines is the registry used when no ENGINES_FILE is given.
func DefaultEngines() []EngineSpec {
	return []EngineSpec{
		{Slug: "chatgpt", DisplayName: "ChatGPT"},
		{Slug: "perplexity", DisplayName: "Perplexity"},
		{Slug: "google-ai", DisplayName: "Google AI"},
	}
}

// LoadEngines reads the engine registry from a YAML file. An empty path
// returns DefaultEngines.
func LoadEngines(path string) ([]EngineSpec, error) {
	if path == "" {
		return DefaultEngines(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read engines file: %w", err)
	}

	var file engineRegistryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse engines file: %w", err)
	}

	seen := make(map[string]bool)
	for i, e := range file.Engines {
		if e.Slug == "" {
			return nil, fmt.Errorf("engine %d: slug is required", i)
		}
		if seen[e.Slug] {
			return nil, fmt.Errorf("engine %d: duplicate slug %q", i, e.Slug)
		}
		seen[e.Slug] = true
		if e.DisplayName == "" {
			file.Engines[i].DisplayName = e.Slug
		}
	}

	return file.Engines, nil
}
