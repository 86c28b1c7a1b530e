package pattern

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/lumohealth/companion/backend/internal/model/safety"
)

// compiledRule holds one rule with its match machinery prepared at load.
type compiledRule struct {
	rule     safety.Rule
	index    int
	keywords []*regexp.Regexp
	phrases  []string
	patterns []*regexp.Regexp
}

// Matcher evaluates free text against one compiled rule set. It is pure and
// deterministic: compiled once at load, immutable afterwards, safe for
// concurrent use. Swapping in a new rule-set version means building a new
// Matcher, never touching one already in service.
type Matcher struct {
	version string
	rules   []compiledRule
}

// NewMatcher compiles a rule set. Malformed input (no rules, a rule with no
// terms, an invalid pattern) fails here, at startup, not per request.
func NewMatcher(set safety.RuleSet) (*Matcher, error) {
	if len(set.Rules) == 0 {
		return nil, fmt.Errorf("rule set %q has no rules", set.Version)
	}

	compiled := make([]compiledRule, 0, len(set.Rules))
	for i, rule := range set.Rules {
		if rule.Name == "" {
			return nil, fmt.Errorf("rule set %q: rule %d has no name", set.Version, i)
		}
		if len(rule.Keywords) == 0 && len(rule.Phrases) == 0 && len(rule.Patterns) == 0 {
			return nil, fmt.Errorf("rule set %q: rule %q has no keywords, phrases or patterns", set.Version, rule.Name)
		}

		cr := compiledRule{rule: rule, index: i}
		for _, kw := range rule.Keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw == "" {
				continue
			}
			re, err := regexp.Compile(`\b` + regexp.QuoteMeta(kw) + `\b`)
			if err != nil {
				return nil, fmt.Errorf("rule set %q: rule %q keyword %q: %w", set.Version, rule.Name, kw, err)
			}
			cr.keywords = append(cr.keywords, re)
		}
		for _, ph := range rule.Phrases {
			ph = strings.ToLower(strings.TrimSpace(ph))
			if ph != "" {
				cr.phrases = append(cr.phrases, ph)
			}
		}
		for _, pat := range rule.Patterns {
			re, err := regexp.Compile("(?i)" + pat)
			if err != nil {
				return nil, fmt.Errorf("rule set %q: rule %q pattern %q: %w", set.Version, rule.Name, pat, err)
			}
			cr.patterns = append(cr.patterns, re)
		}
		compiled = append(compiled, cr)
	}

	return &Matcher{version: set.Version, rules: compiled}, nil
}

// Version returns the rule-set version this matcher was compiled from.
func (m *Matcher) Version() string {
	return m.version
}

// Match returns every rule hit in the text. Matching case-folds the input
// and normalizes curly apostrophes; spans refer to the normalized text.
// Results are ordered by rule declaration order, then by span start.
func (m *Matcher) Match(text string) []safety.Match {
	normalized := Normalize(text)
	if normalized == "" {
		return nil
	}

	var matches []safety.Match
	for _, cr := range m.rules {
		matches = append(matches, cr.matchIn(normalized)...)
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].RuleIndex != matches[j].RuleIndex {
			return matches[i].RuleIndex < matches[j].RuleIndex
		}
		return matches[i].Span.Start < matches[j].Span.Start
	})
	return matches
}

func (cr compiledRule) matchIn(normalized string) []safety.Match {
	var out []safety.Match

	appendSpan := func(loc []int) {
		if loc == nil {
			return
		}
		out = append(out, safety.Match{
			RuleName:   cr.rule.Name,
			Category:   cr.rule.Category,
			Matched:    normalized[loc[0]:loc[1]],
			Span:       safety.Span{Start: loc[0], End: loc[1]},
			Severity:   cr.rule.Severity,
			Urgency:    cr.rule.Urgency,
			Confidence: cr.rule.Confidence,
			RuleIndex:  cr.index,
		})
	}

	for _, re := range cr.keywords {
		appendSpan(re.FindStringIndex(normalized))
	}
	for _, ph := range cr.phrases {
		if idx := strings.Index(normalized, ph); idx >= 0 {
			appendSpan([]int{idx, idx + len(ph)})
		}
	}
	for _, re := range cr.patterns {
		appendSpan(re.FindStringIndex(normalized))
	}
	return out
}

// Normalize lowercases, trims and unifies apostrophes so rule terms written
// with plain quotes still hit user text typed with curly ones.
func Normalize(text string) string {
	normalized := strings.ToLower(strings.TrimSpace(text))
	return strings.NewReplacer("’", "'", "‘", "'").Replace(normalized)
}
