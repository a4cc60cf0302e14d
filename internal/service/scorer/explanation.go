package scorer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fairyhunter13/ai-candidate-screener/internal/domain"
)

// Explain renders the narrative for a computed breakdown.
func Explain(p domain.CandidateProfile, b domain.ScoreBreakdown) domain.MatchExplanation {
	ex := domain.MatchExplanation{
		Strengths:       []string{},
		Weaknesses:      []string{},
		Recommendations: []string{},
	}

	switch {
	case b.Overall >= 80:
		ex.Summary = "Excellent match! This candidate meets most requirements."
	case b.Overall >= 60:
		ex.Summary = "Good match. Candidate has relevant skills but may have some gaps."
	case b.Overall >= 40:
		ex.Summary = "Moderate match. Consider if willing to train or if skills are transferable."
	default:
		ex.Summary = "Low match. Significant gaps in required qualifications."
	}

	if b.Skills >= 70 {
		ex.Strengths = append(ex.Strengths, fmt.Sprintf("Strong skills match (%d matching skills)", len(b.MatchedSkills)))
	}
	if b.Experience >= 80 {
		ex.Strengths = append(ex.Strengths, fmt.Sprintf("Meets experience requirement (%s years)", formatYears(p.TotalExperienceYears.Float())))
	}
	if b.Education >= 90 {
		ex.Strengths = append(ex.Strengths, "Meets education requirements")
	}

	if b.Skills < 60 {
		ex.Weaknesses = append(ex.Weaknesses, fmt.Sprintf("Missing %d required skills", len(b.MissingSkills)))
	}
	if b.ExperienceGap > 0 {
		ex.Weaknesses = append(ex.Weaknesses, fmt.Sprintf("Needs %s more years of experience", formatYears(b.ExperienceGap)))
	}
	if b.Education < 70 {
		ex.Weaknesses = append(ex.Weaknesses, "May not meet education requirements")
	}

	switch {
	case b.Overall >= 70:
		ex.Recommendations = append(ex.Recommendations, "Recommend for interview")
	case b.Overall >= 50:
		ex.Recommendations = append(ex.Recommendations, "Consider for phone screen")
		if len(b.MissingSkills) > 0 {
			ex.Recommendations = append(ex.Recommendations,
				"Assess proficiency in: "+strings.Join(capList(b.MissingSkills, maxNamedMissing), ", "))
		}
	default:
		ex.Recommendations = append(ex.Recommendations, "Consider other candidates first")
	}
	return ex
}

// formatYears prints whole numbers without decimals and others with one.
func formatYears(v float64) string {
	if v == float64(int64(v)) {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'f', 1, 64)
}
