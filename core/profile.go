package core

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DecodeProfile is a named, file-loadable preset for a decode call: the
// decoder.Options fields plus which LM adapter to use. The CLI's --profile
// flag loads one of these instead of requiring every option on the command
// line; explicit flags still override whatever the profile sets.
type DecodeProfile struct {
	BeamSize      int     `yaml:"beam_size"`
	BeamSizeToken int     `yaml:"beam_size_token"`
	BeamThreshold float64 `yaml:"beam_threshold"`
	LMWeight      float64 `yaml:"lm_weight"`

	LMKind   string `yaml:"lm_kind"`
	ARPAPath string `yaml:"arpa_path"`
	Vocab    string `yaml:"vocab_path"`
}

// LoadProfile reads a YAML decode profile from path.
func LoadProfile(path string) (*DecodeProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profile %s: %w", path, err)
	}

	var profile DecodeProfile
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("parse profile %s: %w", path, err)
	}
	return &profile, nil
}
