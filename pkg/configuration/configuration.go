// Package configuration provides the .depscout.yaml configuration file
// model.
package configuration

import (
	"os"

	"github.com/depscout/depscout/pkg/encoding"
)

// DefaultConfigurationName is the name of the configuration file that scan
// operations look for in the working directory.
const DefaultConfigurationName = ".depscout.yaml"

// Root specifies a directory to scan and the categories requested for it.
type Root struct {
	// Path is the directory path.
	Path string `yaml:"path"`
	// Categories are the names of the categories whose files should be
	// collected under this root.
	Categories []string `yaml:"categories"`
}

// Category names a file category and the glob patterns that classify files
// into it.
type Category struct {
	// Name is the category name.
	Name string `yaml:"name"`
	// Patterns are doublestar glob patterns. Patterns without a slash are
	// matched against file base names, patterns with a slash against whole
	// slash-separated paths.
	Patterns []string `yaml:"patterns"`
}

// Configuration is the depscout configuration file structure.
type Configuration struct {
	// Log is the log level name.
	Log string `yaml:"log"`
	// Roots are the directories to scan.
	Roots []Root `yaml:"roots"`
	// Categories are the file categories to collect.
	Categories []Category `yaml:"categories"`
	// Excludes are inline gitignore-syntax exclude patterns.
	Excludes []string `yaml:"excludes"`
	// ExcludeFrom are paths of gitignore-syntax files whose rules compose
	// after (and hence take precedence over) the inline excludes.
	ExcludeFrom []string `yaml:"excludeFrom"`
	// NoDefaultExcludes disables the implicit rule set that excludes hidden
	// (dot-prefixed) entries.
	NoDefaultExcludes bool `yaml:"noDefaultExcludes"`
}

// loadFromPath is the internal loading function. We keep it separate from
// Load so that we can get full test coverage using temporary files.
func loadFromPath(path string) (*Configuration, error) {
	// Create a configuration that we can decode into. Nothing will be
	// modified in this structure if the configuration file doesn't exist.
	result := &Configuration{}

	// Attempt to load the configuration from disk.
	if err := encoding.LoadAndUnmarshalYAML(path, result); err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	}

	// Return the configuration.
	return result, nil
}

// Load loads the configuration file at the specified path and populates a
// Configuration structure. If the file does not exist, this function returns
// a structure with the default configuration values. The returned structure
// is not re-used, so its members can be freely mutated.
func Load(path string) (*Configuration, error) {
	return loadFromPath(path)
}
