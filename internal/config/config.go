// Package config carries the small set of ambient, global-by-convention
// values a toolchain needs but this one threads explicitly instead: the
// module version, recognized source extensions, and a REPL configuration
// file loaded with gopkg.in/yaml.v3. There are no mutable package-level
// toggles; per-run switches travel as an explicit config.Options value.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Version is this module's version string.
var Version = "0.1.0"

// SourceFileExt is the canonical source file extension.
const SourceFileExt = ".roc"

// SourceFileExtensions lists every extension recognized as Roc source.
var SourceFileExtensions = []string{".roc"}

// HasSourceExt reports whether path ends in a recognized source extension.
func HasSourceExt(path string) bool {
	for _, ext := range SourceFileExtensions {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}

// TrimSourceExt removes a recognized source extension from name, if present.
func TrimSourceExt(name string) string {
	for _, ext := range SourceFileExtensions {
		if strings.HasSuffix(name, ext) {
			return name[:len(name)-len(ext)]
		}
	}
	return name
}

// Options is the explicit, non-global configuration threaded through a
// single REPL session or pipeline run. An empty Prompt means the session's
// default.
type Options struct {
	NoColor  bool
	NoHeader bool
	Prompt   string
}

// ReplFile is the shape of ~/.rocrepl.yaml: user-level REPL defaults.
type ReplFile struct {
	Prompt   string `yaml:"prompt"`
	NoColor  bool   `yaml:"no_color"`
	NoHeader bool   `yaml:"no_header"`
}

// DefaultReplFile returns the built-in defaults used when no config file is
// present.
func DefaultReplFile() ReplFile {
	return ReplFile{Prompt: "» "}
}

// LoadReplFile reads and parses the REPL config file at path. A missing
// file is not an error: it returns the defaults unchanged.
func LoadReplFile(path string) (ReplFile, error) {
	rf := DefaultReplFile()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return rf, nil
		}
		return rf, fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return rf, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return rf, nil
}

// DefaultReplFilePath returns ~/.rocrepl.yaml, the conventional location a
// REPL session looks for its config file.
func DefaultReplFilePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".rocrepl.yaml"), nil
}
