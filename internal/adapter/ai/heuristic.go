package ai

import (
	"context"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	obs "github.com/fairyhunter13/ai-candidate-screener/internal/adapter/observability"
	"github.com/fairyhunter13/ai-candidate-screener/internal/domain"
	"github.com/fairyhunter13/ai-candidate-screener/internal/service/catalog"
	"github.com/fairyhunter13/ai-candidate-screener/internal/service/scorer"
)

const (
	missingSkillPrefix = "Missing required skill: "
	substantialAnswer  = 200.0

	weightRequired  = 0.5
	weightGaps      = 0.3
	weightSubstance = 0.2
)

// HeuristicEvaluator scores answers without a model. The boost is
// maxBoost * (0.5*required-skill mentions + 0.3*gap-skill mentions + 0.2*substance).
type HeuristicEvaluator struct {
	cat      *catalog.Catalog
	match    scorer.MatchFunc
	maxBoost float64
}

// NewHeuristicEvaluator uses the built-in catalog when cat is nil.
func NewHeuristicEvaluator(cat *catalog.Catalog, maxBoost float64) *HeuristicEvaluator {
	if cat == nil {
		cat = catalog.Default()
	}
	if maxBoost <= 0 {
		maxBoost = DefaultMaxBoost
	}
	return &HeuristicEvaluator{cat: cat, match: scorer.NewWordMatcher(cat), maxBoost: maxBoost}
}

// EvaluateAnswers never fails.
func (h *HeuristicEvaluator) EvaluateAnswers(_ context.Context, req domain.EvaluationRequest) (float64, error) {
	start := time.Now()
	text := strings.Join(strings.Fields(strings.ToLower(strings.Join(req.Answers, "\n"))), " ")
	mentions := []string{text}
	for _, hit := range h.cat.Scan(text) {
		mentions = append(mentions, hit.Skill)
	}

	required := h.share(req.Requirements.RequiredSkills, mentions, 0.5)
	var gapSkills []string
	for _, g := range req.Analysis.CriticalGaps {
		if s, ok := strings.CutPrefix(g, missingSkillPrefix); ok {
			gapSkills = append(gapSkills, s)
		}
	}
	gaps := h.share(gapSkills, mentions, 1)

	var runes int
	for _, a := range req.Answers {
		runes += utf8.RuneCountInString(strings.TrimSpace(a))
	}
	substance := 0.0
	if n := len(req.Answers); n > 0 {
		substance = math.Min(1, float64(runes)/float64(n)/substantialAnswer)
	}

	boost := h.maxBoost * (weightRequired*required + weightGaps*gaps + weightSubstance*substance)
	obs.ObserveAnswerEval("heuristic", "ok", time.Since(start))
	return boost, nil
}

// share is the fraction of skills mentioned, or empty when there are none.
func (h *HeuristicEvaluator) share(skills, mentions []string, empty float64) float64 {
	if len(skills) == 0 {
		return empty
	}
	n := 0
	for _, s := range skills {
		if scorer.MatchAny(h.match, s, mentions) {
			n++
		}
	}
	return float64(n) / float64(len(skills))
}
