package skillset

import (
	"context"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/adebench/adebench/pkg/logger"
)

// DefaultConfigPath is where the harness looks for the skill-sets
// document unless told otherwise.
const DefaultConfigPath = "skill_sets.yaml"

// Loader reads and validates a skill-sets document from disk.
type Loader struct {
	path string
}

// NewLoader creates a loader for the document at the given path.
func NewLoader(path string) *Loader {
	if path == "" {
		path = DefaultConfigPath
	}
	return &Loader{path: path}
}

// Path returns the document path the loader reads from.
func (l *Loader) Path() string {
	return l.path
}

// Load parses and validates the document. Every failure, whether the
// file is missing, the YAML is malformed, or validation rejects the
// content, is reported as a *LoadError so callers can tell loading
// problems apart from resolution problems.
func (l *Loader) Load(ctx context.Context) (*Config, error) {
	log := logger.G(ctx).WithField("path", l.path)
	log.Debug("loading skill sets")

	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, &LoadError{Path: l.path, Err: err}
	}

	config := &Config{}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, &LoadError{Path: l.path, Err: errors.Wrap(err, "malformed yaml")}
	}

	if err := config.Validate(); err != nil {
		return nil, &LoadError{Path: l.path, Err: err}
	}

	log.WithField("count", len(config.Sets)).Debug("loaded skill sets")
	return config, nil
}

// Parse builds a validated config from an in-memory document, used by
// tests and by callers that already hold the bytes.
func Parse(data []byte) (*Config, error) {
	config := &Config{}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, errors.Wrap(err, "malformed yaml")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}
