// Package brain turns a score breakdown into a calibrated confidence and a
// screening decision with human-readable reasoning.
package brain

import (
	"fmt"
	"math"
	"strings"

	"github.com/fairyhunter13/ai-candidate-screener/internal/domain"
	"github.com/fairyhunter13/ai-candidate-screener/internal/service/scorer"
)

// Confidence weights. They sum to 1.
const (
	weightOverall   = 0.40
	weightCoverage  = 0.30
	weightExpRatio  = 0.20
	weightStability = 0.10
	gapPenalty      = 0.1
)

const (
	maxSkillGaps        = 3
	noSkillsCoverage    = 0.5
	noMinimumExpRatio   = 0.8
	experienceGapFactor = 0.7
	exceedsFactor       = 1.2
	lowSkillsGap        = 40.0
	strongSkills        = 80.0
	weakSkills          = 50.0
	fewSkills           = 3
)

// Brain is bound to one job. It holds no mutable state; Analyze is a pure
// function of its arguments and the bound requirements.
type Brain struct {
	req   domain.JobRequirements
	match scorer.MatchFunc
}

// New binds a brain to req. A nil matcher selects scorer.SkillsMatch.
func New(req domain.JobRequirements, match scorer.MatchFunc) *Brain {
	if match == nil {
		match = scorer.SkillsMatch
	}
	return &Brain{req: req, match: match}
}

// Analyze computes the confidence, tier, decision and reasoning for a candidate.
func (b *Brain) Analyze(p domain.CandidateProfile, s domain.ScoreBreakdown) domain.AgentAnalysis {
	gaps := b.CriticalGaps(p, s)
	confidence := b.Confidence(p, s, len(gaps))
	level := domain.LevelFor(confidence)
	decision := Decide(level, len(gaps))
	return domain.AgentAnalysis{
		Decision:        decision,
		Confidence:      confidence,
		ConfidenceLevel: level,
		Reasoning:       b.reasoning(decision, confidence, s, p.TotalExperienceYears.Float(), len(gaps)),
		CriticalGaps:    gaps,
		MissingInfo:     MissingInfo(p),
	}
}

// Confidence is the weighted blend of overall score, skill coverage, experience
// ratio and a stability term penalised per critical gap, clamped to [0,1].
func (b *Brain) Confidence(p domain.CandidateProfile, s domain.ScoreBreakdown, gapCount int) float64 {
	c := weightOverall*(s.Overall/100) +
		weightCoverage*b.coverage(p) +
		weightExpRatio*b.experienceRatio(p) +
		weightStability*(1-gapPenalty*float64(gapCount))
	return math.Max(0, math.Min(1, c))
}

func (b *Brain) coverage(p domain.CandidateProfile) float64 {
	jobSkills := b.req.AllSkills()
	if len(jobSkills) == 0 {
		return noSkillsCoverage
	}
	have := p.FlatSkills()
	n := 0
	for _, k := range jobSkills {
		if scorer.MatchAny(b.match, k, have) {
			n++
		}
	}
	return float64(n) / float64(len(jobSkills))
}

func (b *Brain) experienceRatio(p domain.CandidateProfile) float64 {
	if b.req.MinExperience <= 0 {
		return noMinimumExpRatio
	}
	return math.Min(1, p.TotalExperienceYears.Float()/b.req.MinExperience)
}

// CriticalGaps lists up to three missing required skills in requirement order,
// then an experience shortfall, then very low skill alignment.
func (b *Brain) CriticalGaps(p domain.CandidateProfile, s domain.ScoreBreakdown) []string {
	gaps := []string{}
	have := p.FlatSkills()
	for _, k := range b.req.RequiredSkills {
		if len(gaps) == maxSkillGaps {
			break
		}
		if !scorer.MatchAny(b.match, k, have) {
			gaps = append(gaps, "Missing required skill: "+k)
		}
	}
	years := p.TotalExperienceYears.Float()
	if minExp := b.req.MinExperience; minExp > 0 && years < experienceGapFactor*minExp {
		gaps = append(gaps, fmt.Sprintf("Experience gap: %.1f years below requirement", minExp-years))
	}
	if s.Skills < lowSkillsGap {
		gaps = append(gaps, "Very low technical skill alignment")
	}
	return gaps
}

// Decide maps a tier and critical gap count to a decision.
// HIGH is the only tier where gaps change the outcome.
func Decide(level domain.ConfidenceLevel, gapCount int) domain.Decision {
	switch level {
	case domain.ConfidenceVeryHigh:
		return domain.DecisionAutoShortlist
	case domain.ConfidenceHigh:
		if gapCount == 0 {
			return domain.DecisionAutoShortlist
		}
		return domain.DecisionAskQuestions
	case domain.ConfidenceMedium:
		return domain.DecisionAskQuestions
	default:
		// LOW, VERY_LOW and anything unrecognised
		return domain.DecisionAutoReject
	}
}

func (b *Brain) reasoning(d domain.Decision, confidence float64, s domain.ScoreBreakdown, years float64, gapCount int) []string {
	pct := confidence * 100
	var out []string
	switch d {
	case domain.DecisionAutoShortlist:
		out = append(out,
			fmt.Sprintf("Strong match with %.0f%% confidence", pct),
			fmt.Sprintf("Overall score: %.1f%%", s.Overall))
	case domain.DecisionAskQuestions:
		out = append(out, fmt.Sprintf("Promising candidate but needs clarification (%.0f%% confidence)", pct))
		if gapCount > 0 {
			out = append(out, fmt.Sprintf("Has %d areas needing discussion", gapCount))
		}
	case domain.DecisionAutoReject:
		out = append(out, fmt.Sprintf("Below hiring threshold (%.0f%% confidence)", pct))
		if gapCount > 0 {
			out = append(out, fmt.Sprintf("Multiple critical gaps identified (%d issues)", gapCount))
		}
	}

	minExp := b.req.MinExperience
	if s.Skills >= strongSkills {
		out = append(out, "✓ Strong technical skills alignment")
	}
	if minExp > 0 && years >= exceedsFactor*minExp {
		out = append(out, "✓ Exceeds experience requirements")
	}
	if s.Skills < weakSkills {
		out = append(out, "✗ Significant skill gaps")
	}
	if minExp > 0 && years < experienceGapFactor*minExp {
		out = append(out, "✗ Below required experience level")
	}
	return out
}

// MissingInfo flags absent profile data. It is advisory and never affects the decision.
func MissingInfo(p domain.CandidateProfile) []string {
	missing := []string{}
	if strings.TrimSpace(p.Contact.Email) == "" {
		missing = append(missing, "Email address not found")
	}
	if strings.TrimSpace(p.Contact.Phone) == "" {
		missing = append(missing, "Phone number not found")
	}
	if len(p.Experience) == 0 {
		missing = append(missing, "No work experience listed")
	}
	if len(p.Education) == 0 {
		missing = append(missing, "No education details found")
	}
	if p.SkillCount() < fewSkills {
		missing = append(missing, "Very few skills listed")
	}
	return missing
}
