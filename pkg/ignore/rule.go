// Package ignore compiles gitignore-syntax pattern lines into path-matching
// predicates with last-match-wins negation semantics.
package ignore

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"
)

// ErrNoRule indicates that a pattern line produces no rule: a blank line, a
// comment, or a bare "/" (which matches nothing).
var ErrNoRule = errors.New("pattern does not produce a rule")

// RuleError indicates that a pattern line cannot be turned into a usable
// rule.
type RuleError struct {
	// Message describes the problem.
	Message string
	// Pattern is the offending pattern line.
	Pattern string
}

// Error implements error.Error.
func (e *RuleError) Error() string {
	return fmt.Sprintf("%s: %q", e.Message, e.Pattern)
}

// Rule is a single ignore rule, parsed from a gitignore pattern line.
type Rule struct {
	// Pattern is the original pattern text, retained for diagnostics.
	Pattern string
	// Negated indicates whether or not the rule un-ignores what it matches.
	Negated bool
	// DirectoryOnly indicates whether or not the rule only matches
	// directories (and, transitively, paths within them).
	DirectoryOnly bool
	// Anchored indicates whether or not the rule is anchored to BaseDir
	// rather than matching at any depth.
	Anchored bool
	// BaseDir is the directory relative to which candidate paths are
	// interpreted. It may be empty for unanchored rules.
	BaseDir string
	// regex is the compiled matching expression.
	regex *regexp.Regexp
}

// String provides a human-readable representation of the rule.
func (r *Rule) String() string {
	return r.Pattern
}

// Patterns used to collapse runs of multiple asterisks that aren't adjacent
// to a path separator (and hence aren't recursive-descent wildcards) into
// single within-segment wildcards.
var (
	collapseAsterisksLeft  = regexp.MustCompile(`([^/])\*{2,}`)
	collapseAsterisksRight = regexp.MustCompile(`\*{2,}([^/])`)
)

// ParseRule parses a single gitignore pattern line into a Rule. The baseDir
// argument provides the anchor for anchored rules (those containing a
// non-trailing slash) and may be empty for rule sources without an associated
// directory, in which case anchored patterns fail with a RuleError.
//
// Lines that deliberately produce no rule (blank lines, comments, a bare "/")
// fail with ErrNoRule, which callers parsing whole files should treat as a
// skip rather than a failure. Malformed wildcard constructs never fail: they
// degrade to literal matching.
func ParseRule(pattern string, baseDir string) (*Rule, error) {
	// Retain the exact original text for diagnostics.
	original := pattern

	// Discard blank lines and comments.
	if strings.TrimSpace(pattern) == "" || pattern[0] == '#' {
		return nil, ErrNoRule
	}

	// A leading exclamation point negates the rule and doesn't participate in
	// matching. Escaped variants are unescaped further below.
	var negated bool
	if pattern[0] == '!' {
		negated = true
		pattern = pattern[1:]
	}

	// Runs of two or more asterisks not adjacent to a slash behave like a
	// single within-segment wildcard.
	pattern = collapseAsterisksLeft.ReplaceAllString(pattern, "${1}*")
	pattern = collapseAsterisksRight.ReplaceAllString(pattern, "*${1}")

	// A pattern consisting solely of a slash matches nothing.
	if strings.TrimRight(pattern, " \t") == "/" {
		return nil, ErrNoRule
	}

	// A trailing slash restricts the rule to directories and doesn't
	// participate in matching.
	directoryOnly := strings.HasSuffix(pattern, "/")

	// Any other slash anchors the rule to the base directory.
	var anchored bool
	if len(pattern) > 0 {
		anchored = strings.Contains(pattern[:len(pattern)-1], "/")
	}

	// Strip a leading slash, a de-anchoring leading double-asterisk, and the
	// directory-only trailing slash.
	pattern = strings.TrimPrefix(pattern, "/")
	if strings.HasPrefix(pattern, "**") {
		pattern = pattern[2:]
		anchored = false
	}
	pattern = strings.TrimPrefix(pattern, "/")
	pattern = strings.TrimSuffix(pattern, "/")

	// Unescape a leading "\#" or "\!".
	if strings.HasPrefix(pattern, `\#`) || strings.HasPrefix(pattern, `\!`) {
		pattern = pattern[1:]
	}

	// Trailing spaces are ignored unless escaped with a backslash, which also
	// stops further trimming.
	for strings.HasSuffix(pattern, " ") && !strings.HasSuffix(pattern, `\ `) {
		pattern = pattern[:len(pattern)-1]
	}
	pattern = strings.ReplaceAll(pattern, `\ `, " ")

	// Anchored rules are meaningless without an anchor.
	if anchored && baseDir == "" {
		return nil, &RuleError{
			Message: "anchored pattern without base directory",
			Pattern: original,
		}
	}

	// Success.
	return &Rule{
		Pattern:       original,
		Negated:       negated,
		DirectoryOnly: directoryOnly,
		Anchored:      anchored,
		BaseDir:       baseDir,
		regex:         translate(pattern, anchored, directoryOnly, negated),
	}, nil
}

// translate converts a preprocessed pattern into its matching expression. It
// never fails: untranslatable constructs degrade to literal matching.
func translate(pattern string, anchored, directoryOnly, negated bool) *regexp.Regexp {
	literal := pattern
	var expression strings.Builder

	// Anchored rules match from the start of the (base-relative) path;
	// unanchored rules match whole trailing segments at any depth.
	if anchored {
		expression.WriteString("^")
	} else {
		expression.WriteString("(^|[/])")
	}

	// Translate the pattern segment constructs.
	for len(pattern) > 0 {
		switch {
		case strings.HasPrefix(pattern, "**/"):
			expression.WriteString("(.*[/])?")
			pattern = pattern[3:]
		case strings.HasPrefix(pattern, "**"):
			expression.WriteString(".*")
			pattern = pattern[2:]
		case pattern[0] == '*':
			expression.WriteString("[^/]*")
			pattern = pattern[1:]
		case pattern[0] == '?':
			expression.WriteString("[^/]")
			pattern = pattern[1:]
		case pattern[0] == '/':
			expression.WriteString("[/]")
			pattern = pattern[1:]
		case pattern[0] == '[':
			fragment, rest := translateCharacterClass(pattern)
			expression.WriteString(fragment)
			pattern = rest
		default:
			character, size := utf8.DecodeRuneInString(pattern)
			expression.WriteString(regexp.QuoteMeta(string(character)))
			pattern = pattern[size:]
		}
	}

	// Non-directory rules must consume the entire remaining path. Directory
	// rules also match anything beneath the directory. Directory negations
	// require the trailing separator that Match synthesizes for directories,
	// so that they un-ignore only the directory itself.
	if directoryOnly {
		if negated {
			expression.WriteString("[/]$")
		} else {
			expression.WriteString("([/]|$)")
		}
	} else {
		expression.WriteString("$")
	}

	// Compile the expression. Compilation can only fail on a degenerate
	// character class that slipped through translateCharacterClass, in which
	// case the whole pattern degrades to a literal match.
	regex, err := regexp.Compile(expression.String())
	if err != nil {
		var fallback strings.Builder
		if anchored {
			fallback.WriteString("^")
		} else {
			fallback.WriteString("(^|[/])")
		}
		fallback.WriteString(regexp.QuoteMeta(literal))
		fallback.WriteString("$")
		regex = regexp.MustCompile(fallback.String())
	}
	return regex
}

// translateCharacterClass translates a leading "[...]" character class,
// returning the translated fragment and the remainder of the pattern. An
// unterminated or degenerate class degrades to literal matching.
func translateCharacterClass(pattern string) (string, string) {
	// Find the closing bracket. Without one, the opening bracket is literal.
	end := strings.IndexByte(pattern, ']')
	if end < 0 {
		return `\[`, pattern[1:]
	}

	// Extract and sanitize the class body. Backslashes are escaped and
	// separators never match a character class.
	inside, rest := pattern[1:end], pattern[end+1:]
	cleaned := strings.ReplaceAll(inside, `\`, `\\`)
	cleaned = strings.ReplaceAll(cleaned, "/", "")

	// A leading caret is a literal caret; a leading exclamation point negates
	// the class.
	if strings.HasPrefix(cleaned, "^") {
		cleaned = `\` + cleaned
	} else if strings.HasPrefix(cleaned, "!") {
		cleaned = "^" + cleaned[1:]
	}

	// A class whose sanitized body is empty (e.g. "[/]") can't be expressed,
	// so it degrades to a literal bracketed string.
	if cleaned == "" || cleaned == "^" {
		return regexp.QuoteMeta("[" + inside + "]"), rest
	}

	// Success.
	return "[" + cleaned + "]", rest
}

// Match indicates whether or not the rule matches the specified path. The
// directory flag indicates whether the path references a directory, which
// both directory-only restriction and directory-only negation depend on.
func (r *Rule) Match(path string, directory bool) bool {
	// Compute the candidate path relative to the rule's base directory, with
	// separators normalized. Paths outside the base directory never match.
	var candidate string
	if r.BaseDir != "" {
		relative, err := filepath.Rel(r.BaseDir, path)
		if err != nil {
			return false
		}
		candidate = filepath.ToSlash(relative)
		if candidate == ".." || strings.HasPrefix(candidate, "../") {
			return false
		}
	} else {
		candidate = filepath.ToSlash(path)
	}
	candidate = strings.TrimPrefix(candidate, "./")

	// Directory-only negation rules are written to require a trailing
	// separator, so synthesize one when testing a directory.
	if r.Negated && r.DirectoryOnly && directory {
		candidate += "/"
	}

	// Run the match.
	match := r.regex.FindStringIndex(candidate)
	if match == nil {
		return false
	}

	// A directory-only rule whose match consumed the entire path matched the
	// candidate itself rather than something beneath it, which only counts if
	// the candidate is a directory.
	if r.DirectoryOnly && !directory && match[1] == len(candidate) {
		return false
	}

	// Success.
	return true
}
