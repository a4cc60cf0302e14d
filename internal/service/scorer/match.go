package scorer

import (
	"strings"
	"sync"

	"github.com/fairyhunter13/ai-candidate-screener/internal/service/catalog"
)

// MatchFunc reports whether a job skill and a candidate skill name the same thing.
type MatchFunc func(jobSkill, candidateSkill string) bool

// shortToken marks skills like "r", "c" or "go" that the word matcher only
// accepts on equality.
const shortToken = 2

var (
	defaultMatcherOnce sync.Once
	defaultMatcher     MatchFunc
)

// SkillsMatch is the canonical matcher over the built-in catalog aliases.
func SkillsMatch(a, b string) bool {
	defaultMatcherOnce.Do(func() { defaultMatcher = NewMatcher(catalog.Default()) })
	return defaultMatcher(a, b)
}

// NewMatcher returns the default matcher. Both names are canonicalised through
// cat, lower-cased and trimmed, then accepted when either contains the other:
// "sql" matches "postgresql" and "java" matches "javascript".
func NewMatcher(cat *catalog.Catalog) MatchFunc {
	return func(a, b string) bool {
		a, b = canonical(cat, a), canonical(cat, b)
		if a == "" || b == "" {
			return false
		}
		return strings.Contains(a, b) || strings.Contains(b, a)
	}
}

// NewWordMatcher is the stricter variant selectable with WithMatcher. It
// accepts equality or whole-word containment, so "machine learning" matches
// "machine learning engineering" but "java" does not match "javascript".
func NewWordMatcher(cat *catalog.Catalog) MatchFunc {
	return func(a, b string) bool {
		a, b = canonical(cat, a), canonical(cat, b)
		if a == "" || b == "" {
			return false
		}
		if a == b {
			return true
		}
		if len(a) <= shortToken || len(b) <= shortToken {
			return false
		}
		return containsWord(a, b) || containsWord(b, a)
	}
}

func canonical(cat *catalog.Catalog, s string) string {
	return strings.TrimSpace(strings.ToLower(cat.Canonical(s)))
}

// containsWord reports whether needle occurs in s bounded by non-alphanumerics.
func containsWord(s, needle string) bool {
	for from := 0; from <= len(s)-len(needle); {
		i := strings.Index(s[from:], needle)
		if i < 0 {
			return false
		}
		start := from + i
		end := start + len(needle)
		if (start == 0 || !isAlnum(s[start-1])) && (end == len(s) || !isAlnum(s[end])) {
			return true
		}
		from = start + 1
	}
	return false
}

func isAlnum(c byte) bool {
	return ('a' <= c && c <= 'z') || ('0' <= c && c <= '9')
}

// MatchAny reports whether skill matches any candidate skill.
func MatchAny(match MatchFunc, skill string, candidate []string) bool {
	for _, c := range candidate {
		if match(skill, c) {
			return true
		}
	}
	return false
}
