package listfiles

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"listfiles/pkg/output"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// Config holds the resolved options of one run. It is not modified once Run starts.
type Config struct {
	Directory   string   `yaml:"directory"`    // Root directory to search.
	Pattern     string   `yaml:"pattern"`      // Glob pattern, e.g. "*.go".
	Recursive   bool     `yaml:"recursive"`    // Search all subdirectories.
	Excludes    []string `yaml:"exclude"`      // Regular expressions searched in relative paths.
	IgnoreFiles []string `yaml:"ignore_files"` // Gitignore-style pattern files.
	Hidden      bool     `yaml:"hidden"`       // Include dotfiles and dot-directories.
	Output      string   `yaml:"output"`       // Output file; empty means standard output.
	Append      bool     `yaml:"append"`       // Append without asking.
	IfExists    string   `yaml:"if_exists"`    // Conflict policy for an existing output file.
	NamesOnly   bool     `yaml:"names_only"`   // Omit file contents.
	Verbose     bool     `yaml:"verbose"`
	NoColor     bool     `yaml:"no_color"`
}

// DefaultConfig returns the configuration used when nothing is specified.
func DefaultConfig() Config {
	return Config{
		Directory: ".",
		Hidden:    true,
		IfExists:  string(output.PolicyPrompt),
	}
}

// LoadConfigFile decodes a YAML file over cfg. Keys absent from the file keep
// their current values; unknown keys are rejected.
func LoadConfigFile(fsys afero.Fs, path string, cfg *Config) error {
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// Policy returns the effective conflict policy. Append always wins.
func (c Config) Policy() (output.Policy, error) {
	if c.Append {
		return output.PolicyAppend, nil
	}
	if c.IfExists == "" {
		return output.PolicyPrompt, nil
	}
	return output.ParsePolicy(c.IfExists)
}

// Validate checks the options that cannot be checked by discovery itself.
func (c Config) Validate() error {
	if c.Pattern == "" {
		return errors.New("a file pattern is required")
	}
	if _, err := c.Policy(); err != nil {
		return err
	}
	return nil
}
