package models

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ProductProfile is a reusable run definition kept as a YAML document,
// loaded by the CLI one-shot mode and by configured schedules.
type ProductProfile struct {
	Name    string            `yaml:"name"`
	Product string            `yaml:"product"`
	Target  int               `yaml:"target"`
	ICP     map[string]string `yaml:"icp,omitempty"`
}

// LoadProductProfile reads and validates a profile YAML file.
func LoadProductProfile(path string) (*ProductProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile %s: %w", path, err)
	}

	var profile ProductProfile
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("failed to parse profile %s: %w", path, err)
	}

	if strings.TrimSpace(profile.Product) == "" {
		return nil, fmt.Errorf("profile %s: product description is required", path)
	}
	if profile.Target <= 0 {
		profile.Target = 10
	}
	if profile.Name == "" {
		profile.Name = strings.TrimSuffix(strings.TrimSuffix(path, ".yaml"), ".yml")
	}

	return &profile, nil
}

// ToRequest converts the profile into a run request.
func (p *ProductProfile) ToRequest() RunRequest {
	return RunRequest{
		Product: p.Product,
		Target:  p.Target,
		ICP:     p.ICP,
	}
}
