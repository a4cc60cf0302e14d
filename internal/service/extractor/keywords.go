package extractor

import (
	"regexp"
	"sort"
	"strings"

	"github.com/jdkato/prose/v2"
)

var (
	wordToken = regexp.MustCompile(`[a-z][a-z0-9+#]*`)
	nounToken = regexp.MustCompile(`^[a-z][a-z0-9+#]*$`)
)

var stopWords = toSet(
	"a", "about", "above", "after", "again", "against", "all", "also", "and", "any", "are", "as",
	"at", "be", "because", "been", "before", "being", "below", "between", "both", "but", "by",
	"can", "could", "did", "do", "does", "doing", "down", "during", "each", "etc", "few", "for",
	"from", "further", "had", "has", "have", "having", "her", "here", "hers", "him", "his", "how",
	"into", "its", "just", "may", "more", "most", "must", "our", "ours", "off", "once", "only",
	"other", "out", "over", "own", "per", "same", "she", "should", "some", "such", "than", "that",
	"the", "their", "theirs", "them", "then", "there", "these", "they", "this", "those", "through",
	"too", "under", "until", "very", "was", "were", "what", "when", "where", "which", "while",
	"who", "whom", "why", "will", "with", "within", "would", "you", "your", "yours", "yourself",
	"not", "nor", "who", "any", "well", "like", "able", "using", "use", "work", "working",
	"strong", "good", "great", "new", "join", "looking", "plus", "preferred", "required",
	"years", "year", "yrs", "experience", "including", "least", "via", "one", "two", "three",
)

// extractKeywords ranks the nouns and proper nouns of text by frequency,
// keeping the first n. Words shorter than three characters and stop words are
// dropped; ties keep first-occurrence order.
func extractKeywords(text string, n int) []string {
	counts := map[string]int{}
	var order []string
	for _, w := range nouns(text) {
		if len(w) <= 2 {
			continue
		}
		if _, stop := stopWords[w]; stop {
			continue
		}
		if counts[w] == 0 {
			order = append(order, w)
		}
		counts[w]++
	}
	sort.SliceStable(order, func(i, j int) bool { return counts[order[i]] > counts[order[j]] })
	if len(order) > n {
		order = order[:n]
	}
	return order
}

// nouns returns the lower-cased NN* tokens of text. The tagger sees the
// original casing; when it fails every word is kept.
func nouns(text string) []string {
	doc, err := prose.NewDocument(text, prose.WithExtraction(false))
	if err != nil {
		return wordToken.FindAllString(strings.ToLower(text), -1)
	}
	var out []string
	for _, tok := range doc.Tokens() {
		if !strings.HasPrefix(tok.Tag, "NN") {
			continue
		}
		if w := strings.ToLower(tok.Text); nounToken.MatchString(w) {
			out = append(out, w)
		}
	}
	return out
}

func toSet(words ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
