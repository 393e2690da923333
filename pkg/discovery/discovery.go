// Package discovery drives a traversal on behalf of callers that want
// project files grouped into categories, applying gitignore-style exclusion
// along the way. It is the reference consumer of the traversal engine: it
// owns the feedback loop between traversal steps and the SkipDir/Add
// mutation hooks.
package discovery

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pkg/errors"

	"github.com/depscout/depscout/pkg/filesystem"
	"github.com/depscout/depscout/pkg/identifier"
	"github.com/depscout/depscout/pkg/ignore"
	"github.com/depscout/depscout/pkg/logging"
	"github.com/depscout/depscout/pkg/traversal"
)

// Category names a file category and the glob patterns that classify files
// into it. Patterns without a slash are matched against file base names,
// patterns containing a slash against whole slash-separated paths.
type Category struct {
	// Name is the category name, used as the traversal payload tag.
	Name string
	// Patterns are doublestar glob patterns.
	Patterns []string
}

// Options configures a Scanner.
type Options struct {
	// Categories are the file categories to collect.
	Categories []Category
	// Excludes are inline gitignore-syntax exclude patterns. Anchored
	// patterns are interpreted relative to each scanned root.
	Excludes []string
	// ExcludeFrom are paths of gitignore-syntax files whose rules compose
	// after (and hence take precedence over) the inline excludes. Files that
	// don't exist are skipped with a warning.
	ExcludeFrom []string
	// DisableDefaultExcludes disables the implicit rule set that excludes
	// hidden (dot-prefixed) entries.
	DisableDefaultExcludes bool
}

// Result is the outcome of a scan.
type Result struct {
	// RunID is a collision-resistant identifier for this scan run.
	RunID string
	// FilesByCategory maps category names to the files collected for them,
	// in traversal order.
	FilesByCategory map[string][]string
	// Directories is the number of distinct directories visited.
	Directories uint64
	// Files is the number of non-excluded files encountered.
	Files uint64
}

// root records a requested scan root and its category tags.
type root struct {
	path       string
	categories []string
}

// Scanner discovers files by category under a set of requested roots. It is
// single-use, like the traverser it drives.
type Scanner struct {
	// options are the scanner options.
	options Options
	// roots are the requested roots, in registration order.
	roots []root
	// logger is the scan logger.
	logger *logging.Logger
}

// NewScanner creates a scanner with the specified options. The logger may be
// nil.
func NewScanner(options Options, logger *logging.Logger) *Scanner {
	return &Scanner{
		options: options,
		logger:  logger,
	}
}

// AddRoot registers a directory to scan, tagged with the named categories.
// Registration is cheap; the path isn't validated until Scan.
func (s *Scanner) AddRoot(path string, categories ...string) {
	s.roots = append(s.roots, root{path: path, categories: categories})
}

// buildRuleset compiles the exclusion ruleset: default hidden-entry rules
// (unless disabled), then inline excludes, then exclude-from files, so that
// later sources take precedence under last-match-wins semantics.
func (s *Scanner) buildRuleset() (*ignore.Ruleset, error) {
	ruleset := ignore.NewRuleset()
	if !s.options.DisableDefaultExcludes {
		ruleset.Append(ignore.DefaultRules()...)
	}

	// Inline patterns have no natural base directory. Anchored patterns are
	// instead anchored to each requested root that is a directory, mirroring
	// how per-root ignore files would behave.
	for _, pattern := range s.options.Excludes {
		rule, err := ignore.ParseRule(pattern, "")
		if err == nil {
			ruleset.Append(rule)
			continue
		} else if errors.Is(err, ignore.ErrNoRule) {
			continue
		}
		var ruleErr *ignore.RuleError
		if !errors.As(err, &ruleErr) {
			return nil, errors.Wrapf(err, "unable to parse exclude pattern %q", pattern)
		}
		for _, root := range s.roots {
			anchored, err := ignore.ParseRule(pattern, root.path)
			if err != nil {
				return nil, errors.Wrapf(err, "unable to parse exclude pattern %q", pattern)
			}
			ruleset.Append(anchored)
		}
	}

	// Exclude-from files anchor to their containing directories.
	for _, path := range s.options.ExcludeFrom {
		rules, err := ignore.ParseFile(path, s.logger)
		if err != nil {
			if os.IsNotExist(errors.Cause(err)) {
				s.logger.Warnf("cannot find %s, skipping", path)
				continue
			}
			return nil, errors.Wrapf(err, "unable to read exclude patterns from %s", path)
		}
		ruleset.Append(rules...)
	}

	return ruleset, nil
}

// classify indicates whether or not a file belongs to a category.
func classify(category Category, path string) bool {
	for _, pattern := range category.Patterns {
		var candidate string
		if strings.ContainsRune(pattern, '/') {
			candidate = filepath.ToSlash(path)
		} else {
			candidate = filepath.Base(path)
		}
		if matched, err := doublestar.Match(pattern, candidate); err == nil && matched {
			return true
		}
	}
	return false
}

// uniqueTags deduplicates attached category tags, preserving first-occurrence
// order. Attachment lists accumulate duplicates when a directory is
// registered repeatedly.
func uniqueTags(tags []string) []string {
	var result []string
	seen := make(map[string]bool, len(tags))
	for _, tag := range tags {
		if !seen[tag] {
			seen[tag] = true
			result = append(result, tag)
		}
	}
	return result
}

// Scan performs the scan. It fails with a filesystem.NotADirectoryError if a
// registered root is not a directory, and propagates any filesystem error
// encountered mid-traversal.
func (s *Scanner) Scan() (*Result, error) {
	// Compile the exclusion ruleset.
	ruleset, err := s.buildRuleset()
	if err != nil {
		return nil, err
	}

	// Index the categories by name.
	categories := make(map[string]Category, len(s.options.Categories))
	for _, category := range s.options.Categories {
		categories[category.Name] = category
	}

	// Register the roots. An explicitly requested root overrides its own
	// exclusion, which may surprise the user, so warn about the overlap. The
	// overlap check uses the absolute path, since a relative root (most
	// notably ".") would otherwise read as a hidden entry. Root identities
	// are recorded so that the exclusion pruning below can honor the
	// override.
	traverser := traversal.New[string](s.logger.Sublogger("traversal"))
	rootIdentities := make(map[filesystem.Identity]bool, len(s.roots))
	for _, root := range s.roots {
		abs, err := filepath.Abs(root.path)
		if err != nil {
			return nil, errors.Wrap(err, "unable to resolve root path")
		}
		if ruleset.Match(abs, true) {
			s.logger.Warnf("%s is both requested and excluded; it will be scanned", root.path)
		}
		if err := traverser.Add(root.path, root.categories...); err != nil {
			return nil, err
		}
		identity, err := filesystem.IdentityOf(root.path)
		if err != nil {
			return nil, err
		}
		rootIdentities[identity] = true
	}

	// Generate a run identifier.
	runID, err := identifier.New(identifier.PrefixScan)
	if err != nil {
		return nil, errors.Wrap(err, "unable to generate run identifier")
	}
	s.logger.Debugf("starting scan %s", runID)

	// Drive the traversal, pruning excluded subdirectories before requesting
	// each next step and classifying the surviving files.
	result := &Result{
		RunID:           runID,
		FilesByCategory: make(map[string][]string),
	}
	cursor := traverser.Traverse()
	for cursor.Next() {
		step := cursor.Step()
		result.Directories++

		for _, subdirectory := range step.Subdirectories {
			if !ruleset.Match(subdirectory, true) {
				continue
			}
			// An excluded directory that was requested as a root in its own
			// right still has to be scanned.
			identity, err := filesystem.IdentityOf(subdirectory)
			if err != nil {
				return nil, errors.Wrap(err, "unable to identify excluded directory")
			}
			if rootIdentities[identity] {
				continue
			}
			s.logger.Debugf("skipping excluded directory %s", subdirectory)
			if err := traverser.SkipDir(subdirectory); err != nil {
				return nil, errors.Wrap(err, "unable to skip excluded directory")
			}
		}

		tags := uniqueTags(step.Attached)
		for _, file := range step.Files {
			if ruleset.Match(file, false) {
				continue
			}
			result.Files++
			for _, tag := range tags {
				category, ok := categories[tag]
				if !ok {
					continue
				}
				if classify(category, file) {
					result.FilesByCategory[tag] = append(result.FilesByCategory[tag], file)
				}
			}
		}
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}

	// Success.
	return result, nil
}
