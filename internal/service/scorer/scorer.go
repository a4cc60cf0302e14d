// Package scorer computes how well a candidate profile fits a job's requirements.
package scorer

import (
	"fmt"
	"math"
	"strings"

	"github.com/fairyhunter13/ai-candidate-screener/internal/domain"
	"github.com/fairyhunter13/ai-candidate-screener/internal/service/catalog"
	"github.com/fairyhunter13/ai-candidate-screener/internal/service/extractor"
)

// Component weights of the overall score. They sum to 1.
const (
	WeightSkills     = 0.40
	WeightExperience = 0.35
	WeightEducation  = 0.25
)

const (
	requiredShare   = 0.7
	preferredShare  = 0.3
	maxListed       = 20
	maxNamedMissing = 3
	// belowMinCap keeps anyone short of the minimum under the 80 awarded at the minimum.
	belowMinCap    = 79.9
	atMinScore     = 80.0
	perExtraYear   = 5.0
	surplusToShow  = 2.0
	neutralKeyword = 100.0
)

// Scorer is stateless and safe for concurrent use.
type Scorer struct {
	match MatchFunc
}

// Option configures a Scorer.
type Option func(*Scorer)

// WithMatcher replaces the skill matching strategy.
func WithMatcher(m MatchFunc) Option {
	return func(s *Scorer) {
		if m != nil {
			s.match = m
		}
	}
}

// New builds a scorer whose matcher canonicalises skills through cat.
func New(cat *catalog.Catalog, opts ...Option) *Scorer {
	if cat == nil {
		cat = catalog.Default()
	}
	s := &Scorer{match: NewMatcher(cat)}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Matcher returns the strategy used for skill comparison.
func (s *Scorer) Matcher() MatchFunc { return s.match }

// Score never panics. A failure inside one dimension zeroes that dimension and
// records the error in its gap text; a failure outside yields an all-zero
// breakdown with an "error" explanation.
func (s *Scorer) Score(p domain.CandidateProfile, req domain.JobRequirements) (out domain.ScoreBreakdown) {
	defer func() {
		if r := recover(); r != nil {
			out = domain.ScoreBreakdown{
				MatchedSkills:   []string{},
				MissingSkills:   []string{},
				GapExplanations: map[string]string{domain.GapError: fmt.Sprintf("Error calculating score: %v", r)},
			}
		}
	}()

	gaps := make(map[string]string, 3)
	sk := s.skills(p, req)
	gaps[domain.GapSkills] = sk.gap

	exp, expGap, expText := experience(p, req)
	gaps[domain.GapExperience] = expText

	edu, eduText := education(p, req)
	gaps[domain.GapEducation] = eduText

	out = domain.ScoreBreakdown{
		Skills:          clamp(sk.score),
		Experience:      clamp(exp),
		Education:       clamp(edu),
		Keyword:         clamp(keywordScore(p, req)),
		Semantic:        clamp(semanticScore(p, req)),
		MatchedSkills:   sk.matched,
		MissingSkills:   sk.missing,
		ExperienceGap:   expGap,
		GapExplanations: gaps,
	}
	out.Overall = clamp(WeightSkills*out.Skills + WeightExperience*out.Experience + WeightEducation*out.Education)
	out.Explanation = Explain(p, out)
	return out
}

type skillsResult struct {
	score            float64
	matched, missing []string
	gap              string
}

func (s *Scorer) skills(p domain.CandidateProfile, req domain.JobRequirements) (res skillsResult) {
	defer func() {
		if r := recover(); r != nil {
			res = skillsResult{matched: []string{}, missing: []string{}, gap: fmt.Sprintf("Error calculating skills: %v", r)}
		}
	}()

	have := p.FlatSkills()
	var matchedReq, missingReq, matchedPref, missingPref []string
	for _, k := range req.RequiredSkills {
		if MatchAny(s.match, k, have) {
			matchedReq = append(matchedReq, k)
		} else {
			missingReq = append(missingReq, k)
		}
	}
	for _, k := range req.PreferredSkills {
		if MatchAny(s.match, k, have) {
			matchedPref = append(matchedPref, k)
		} else {
			missingPref = append(missingPref, k)
		}
	}

	reqRate := float64(len(matchedReq)) / math.Max(1, float64(len(req.RequiredSkills)))
	prefRate := float64(len(matchedPref)) / math.Max(1, float64(len(req.PreferredSkills)))
	res.score = 100 * (requiredShare*reqRate + preferredShare*prefRate)
	res.matched = capList(append(matchedReq, matchedPref...), maxListed)
	res.missing = capList(append(missingReq, missingPref...), maxListed)

	var parts []string
	if len(missingReq) > 0 {
		parts = append(parts, fmt.Sprintf("Missing %d required skills: %s",
			len(missingReq), strings.Join(capList(missingReq, maxNamedMissing), ", ")))
	}
	if len(missingPref) > 0 {
		parts = append(parts, fmt.Sprintf("Missing %d preferred skills", len(missingPref)))
	}
	res.gap = strings.Join(parts, "; ")
	if res.gap == "" {
		res.gap = "No significant skill gaps"
	}
	return res
}

func experience(p domain.CandidateProfile, req domain.JobRequirements) (score, gap float64, text string) {
	defer func() {
		if r := recover(); r != nil {
			score, gap, text = 0, 0, fmt.Sprintf("Error calculating experience: %v", r)
		}
	}()

	have := p.TotalExperienceYears.Float()
	need := math.Max(0, req.MinExperience)
	switch {
	case need == 0:
		score = 100
	case have >= need:
		score = math.Min(100, atMinScore+(have-need)*perExtraYear)
	default:
		score = math.Min(belowMinCap, 100*have/need)
	}

	diff := need - have
	switch {
	case diff > 0:
		gap = diff
		text = fmt.Sprintf("Needs %.1f more years of experience", diff)
	case -diff > surplusToShow:
		text = fmt.Sprintf("Has %.1f years more than required", -diff)
	default:
		text = "Meets experience requirements"
	}
	return score, gap, text
}

func education(p domain.CandidateProfile, req domain.JobRequirements) (score float64, text string) {
	defer func() {
		if r := recover(); r != nil {
			score, text = 0, fmt.Sprintf("Error calculating education: %v", r)
		}
	}()

	level, degree := HighestDegree(p)
	floor := req.EducationFloor
	switch {
	case floor <= domain.EducationNone || level >= floor:
		score = 100
	case level > domain.EducationNone:
		score = 100 * float64(level) / float64(floor)
	default:
		score = 0
	}

	switch {
	case level >= floor:
		text = "Meets education requirements"
	case level == domain.EducationNone:
		text = "No formal education listed"
	default:
		text = fmt.Sprintf("Has %s, may need higher qualification", degree)
	}
	return score, text
}

// HighestDegree returns the best recognised degree on the profile and its text.
func HighestDegree(p domain.CandidateProfile) (domain.EducationLevel, string) {
	best, degree := domain.EducationNone, ""
	for _, e := range p.Education {
		lower := strings.ToLower(e.Degree)
		if lvl := extractor.HighestEducation(lower); lvl > best {
			best, degree = lvl, strings.TrimSpace(lower)
		}
	}
	return best, degree
}

func keywordScore(p domain.CandidateProfile, req domain.JobRequirements) float64 {
	if len(req.Keywords) == 0 {
		return neutralKeyword
	}
	parts := []string{p.Summary}
	for _, e := range p.Experience {
		parts = append(parts, e.Description)
	}
	for _, pr := range p.Projects {
		parts = append(parts, pr.Description)
	}
	text := strings.ToLower(strings.Join(parts, " "))
	hits := 0
	for _, k := range req.Keywords {
		if strings.Contains(text, strings.ToLower(k)) {
			hits++
		}
	}
	return 100 * float64(hits) / float64(len(req.Keywords))
}

func semanticScore(p domain.CandidateProfile, req domain.JobRequirements) (score float64) {
	defer func() {
		if r := recover(); r != nil {
			score = neutralSemantic
		}
	}()
	parts := []string{p.Summary}
	for _, e := range p.Experience {
		parts = append(parts, e.Description)
	}
	return TFIDFSimilarity(req.RawText, strings.TrimSpace(strings.Join(parts, " ")))
}

func capList(in []string, n int) []string {
	if in == nil {
		return []string{}
	}
	if len(in) > n {
		return append([]string(nil), in[:n]...)
	}
	return in
}

func clamp(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}
