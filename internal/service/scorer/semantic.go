package scorer

import (
	"math"
	"regexp"
	"sort"
	"strings"
)

const (
	// neutralSemantic is reported when either side has no text.
	neutralSemantic = 50.0
	maxFeatures     = 1000
)

var semanticToken = regexp.MustCompile(`[a-z0-9][a-z0-9+#]+`)

var englishStop = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(`a about above after again against all also am an and any are as at be
		because been before being below between both but by can could did do does doing down during each
		few for from further had has have having he her here hers herself him himself his how i if in into
		is it its itself just me more most my myself no nor not of off on once only or other our ours
		ourselves out over own same she should so some such than that the their theirs them themselves then
		there these they this those through to too under until up very was we were what when where which
		while who whom why will with you your yours yourself yourselves`) {
		englishStop[w] = struct{}{}
	}
}

// TFIDFSimilarity returns the cosine similarity of two documents, scaled to
// [0,100], over unigram and bigram TF-IDF vectors fitted on just these two
// documents with smoothed idf. Empty input yields the neutral score 50.
func TFIDFSimilarity(docA, docB string) float64 {
	ta, tb := terms(docA), terms(docB)
	if len(ta) == 0 || len(tb) == 0 {
		return neutralSemantic
	}
	vocab := topVocabulary(ta, tb, maxFeatures)
	va, vb := weigh(ta, tb, vocab)
	sim := cosine(va, vb)
	if math.IsNaN(sim) {
		return neutralSemantic
	}
	return clamp(sim * 100)
}

func terms(doc string) map[string]int {
	var words []string
	for _, w := range semanticToken.FindAllString(strings.ToLower(doc), -1) {
		if _, stop := englishStop[w]; !stop {
			words = append(words, w)
		}
	}
	out := make(map[string]int, len(words)*2)
	for i, w := range words {
		out[w]++
		if i > 0 {
			out[words[i-1]+" "+w]++
		}
	}
	return out
}

// topVocabulary keeps the maxN terms with the highest corpus frequency,
// returned in lexical order so the weighted vectors sum in a fixed order.
func topVocabulary(a, b map[string]int, maxN int) []string {
	total := make(map[string]int, len(a)+len(b))
	for t, n := range a {
		total[t] += n
	}
	for t, n := range b {
		total[t] += n
	}
	vocab := make([]string, 0, len(total))
	for t := range total {
		vocab = append(vocab, t)
	}
	if len(vocab) > maxN {
		sort.Slice(vocab, func(i, j int) bool {
			if total[vocab[i]] != total[vocab[j]] {
				return total[vocab[i]] > total[vocab[j]]
			}
			return vocab[i] < vocab[j]
		})
		vocab = vocab[:maxN]
	}
	sort.Strings(vocab)
	return vocab
}

// weigh returns dense TF-IDF vectors indexed by vocab.
func weigh(a, b map[string]int, vocab []string) ([]float64, []float64) {
	const docs = 2.0
	va := make([]float64, len(vocab))
	vb := make([]float64, len(vocab))
	for i, t := range vocab {
		df := 0.0
		if a[t] > 0 {
			df++
		}
		if b[t] > 0 {
			df++
		}
		idf := math.Log((1+docs)/(1+df)) + 1
		va[i] = float64(a[t]) * idf
		vb[i] = float64(b[t]) * idf
	}
	return va, vb
}

func cosine(a, b []float64) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
