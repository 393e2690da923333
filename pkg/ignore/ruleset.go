package ignore

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/depscout/depscout/pkg/logging"
)

// Predicate is a compiled ignore predicate. It indicates whether or not the
// specified path should be ignored, with the directory flag indicating
// whether the path references a directory.
type Predicate func(path string, directory bool) bool

// Ruleset composes an ordered list of rules into a single match predicate
// with ignore-file semantics: when any negated rule is present, the most
// recently declared matching rule determines the outcome, allowing a narrower
// later rule to re-include something a broader earlier rule excluded.
type Ruleset struct {
	// rules are the rules, in declaration order.
	rules []*Rule
	// negatedRuleCount is the number of rules in the set that are negated.
	negatedRuleCount uint
}

// NewRuleset creates a ruleset from the specified rules.
func NewRuleset(rules ...*Rule) *Ruleset {
	result := &Ruleset{}
	result.Append(rules...)
	return result
}

// Append adds rules to the set. Appended rules are declared "later" than all
// existing rules and hence take precedence over them.
func (s *Ruleset) Append(rules ...*Rule) {
	for _, rule := range rules {
		s.rules = append(s.rules, rule)
		if rule.Negated {
			s.negatedRuleCount++
		}
	}
}

// Len returns the number of rules in the set.
func (s *Ruleset) Len() int {
	return len(s.rules)
}

// Match indicates whether or not the specified path should be ignored. The
// directory flag indicates whether the path references a directory.
func (s *Ruleset) Match(path string, directory bool) bool {
	// Without negated rules, a path is ignored if and only if any rule
	// matches, and evaluation order is irrelevant.
	if s.negatedRuleCount == 0 {
		for _, rule := range s.rules {
			if rule.Match(path, directory) {
				return true
			}
		}
		return false
	}

	// Otherwise the last matching rule in declaration order decides.
	for i := len(s.rules) - 1; i >= 0; i-- {
		if s.rules[i].Match(path, directory) {
			return !s.rules[i].Negated
		}
	}
	return false
}

// Predicate returns the ruleset's match predicate.
func (s *Ruleset) Predicate() Predicate {
	return s.Match
}

// ParseLines parses gitignore-syntax lines into rules, skipping lines that
// produce no rule (blank lines, comments, bare slashes). The baseDir argument
// anchors anchored patterns and may be empty, in which case an anchored
// pattern fails with a RuleError. The logger may be nil.
func ParseLines(lines []string, baseDir string, logger *logging.Logger) ([]*Rule, error) {
	var rules []*Rule
	for index, line := range lines {
		rule, err := ParseRule(strings.TrimSuffix(line, "\n"), baseDir)
		if err != nil {
			if errors.Is(err, ErrNoRule) {
				continue
			}
			return nil, errors.Wrapf(err, "line %d", index+1)
		}
		logger.Debugf("parsed rule %q (line %d)", rule.Pattern, index+1)
		rules = append(rules, rule)
	}
	return rules, nil
}

// ParseFile reads gitignore-syntax rules from the specified file. The base
// directory for anchored patterns is the directory containing the file. The
// logger may be nil.
func ParseFile(path string, logger *logging.Logger) ([]*Rule, error) {
	// Open the file.
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "unable to open pattern file")
	}
	defer file.Close()

	// Read its lines.
	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "unable to read pattern file")
	}

	// Parse them, anchoring to the file's directory.
	return ParseLines(lines, filepath.Dir(path), logger)
}

// DefaultRules returns the implicit rule set that ignores all hidden
// (dot-prefixed) entries. Callers that want hidden entries traversed must
// override this default explicitly.
func DefaultRules() []*Rule {
	rule, err := ParseRule(".*", "")
	if err != nil {
		panic("unable to parse default hidden-entry rule")
	}
	return []*Rule{rule}
}
