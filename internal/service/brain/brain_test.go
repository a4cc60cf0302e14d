package brain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/ai-candidate-screener/internal/domain"
	"github.com/fairyhunter13/ai-candidate-screener/internal/service/scorer"
)

func candidate(years float64, skills ...string) domain.CandidateProfile {
	return domain.CandidateProfile{
		Contact:              domain.Contact{Name: "Sam", Email: "sam@example.com", Phone: "+44 20 7946 0000"},
		Skills:               domain.SkillSet{"general": skills},
		TotalExperienceYears: domain.Years(years),
	}
}

var platformJob = domain.JobRequirements{
	RequiredSkills:  []string{"python", "aws"},
	PreferredSkills: []string{"docker"},
	MinExperience:   3,
}

func TestAnalyze_JuniorMissingSkill(t *testing.T) {
	t.Parallel()
	p := candidate(1, "python")
	s := scorer.New(nil).Score(p, platformJob)
	a := New(platformJob, nil).Analyze(p, s)

	assert.Equal(t, []string{
		"Missing required skill: aws",
		"Experience gap: 2.0 years below requirement",
		"Very low technical skill alignment",
	}, a.CriticalGaps)

	want := 0.40*(s.Overall/100) + 0.30*(1.0/3) + 0.20*(1.0/3) + 0.10*(1-0.3)
	assert.InDelta(t, want, a.Confidence, 1e-12)
	assert.Equal(t, domain.ConfidenceMedium, a.ConfidenceLevel)
	assert.Equal(t, domain.DecisionAskQuestions, a.Decision)
	assert.Equal(t, []string{
		"Promising candidate but needs clarification (44% confidence)",
		"Has 3 areas needing discussion",
		"✗ Significant skill gaps",
		"✗ Below required experience level",
	}, a.Reasoning)
	assert.Equal(t, []string{"No work experience listed", "No education details found", "Very few skills listed"}, a.MissingInfo)
}

func TestAnalyze_StrongSenior(t *testing.T) {
	t.Parallel()
	p := candidate(6, "python", "aws", "docker")
	p.Education = []domain.EducationEntry{{Degree: "BSc", Institution: "U"}, {Degree: "Bachelor of Engineering"}}
	p.Experience = []domain.ExperienceEntry{{Title: "Engineer", Company: "Acme", Years: 6}}
	s := scorer.New(nil).Score(p, platformJob)
	a := New(platformJob, nil).Analyze(p, s)

	assert.Empty(t, a.CriticalGaps)
	assert.GreaterOrEqual(t, a.Confidence, 0.85)
	assert.Equal(t, domain.ConfidenceVeryHigh, a.ConfidenceLevel)
	assert.Equal(t, domain.DecisionAutoShortlist, a.Decision)
	require.NotEmpty(t, a.Reasoning)
	assert.Equal(t, "Strong match with 99% confidence", a.Reasoning[0])
	assert.Contains(t, a.Reasoning, "✓ Strong technical skills alignment")
	assert.Contains(t, a.Reasoning, "✓ Exceeds experience requirements")
	assert.Empty(t, a.MissingInfo)
}

func TestCriticalGaps_KeepsFirstThreeMissingInOrder(t *testing.T) {
	t.Parallel()
	req := domain.JobRequirements{RequiredSkills: []string{"go", "rust", "kafka", "redis", "docker"}}
	gaps := New(req, nil).CriticalGaps(candidate(0), domain.ScoreBreakdown{Skills: 50})
	assert.Equal(t, []string{
		"Missing required skill: go",
		"Missing required skill: rust",
		"Missing required skill: kafka",
	}, gaps)
}

func TestCriticalGaps_UsesCanonicalMatcher(t *testing.T) {
	t.Parallel()
	req := domain.JobRequirements{RequiredSkills: []string{"machine learning", "kubernetes"}}
	gaps := New(req, nil).CriticalGaps(candidate(0, "ML", "k8s"), domain.ScoreBreakdown{Skills: 100})
	assert.Empty(t, gaps)
}

func TestConfidence_EdgeDefaults(t *testing.T) {
	t.Parallel()
	b := New(domain.JobRequirements{}, nil)
	// no skills: coverage 0.5, no minimum: ratio 0.8
	got := b.Confidence(candidate(0), domain.ScoreBreakdown{Overall: 100}, 0)
	assert.InDelta(t, 0.40+0.30*0.5+0.20*0.8+0.10, got, 1e-12)

	assert.InDelta(t, 0.0, b.Confidence(candidate(0), domain.ScoreBreakdown{}, 100), 1e-12, "clamped at zero")
}

func TestDecide(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		level domain.ConfidenceLevel
		gaps  int
		want  domain.Decision
	}{
		{"very_high_with_gaps", domain.ConfidenceVeryHigh, 3, domain.DecisionAutoShortlist},
		{"high_clean", domain.ConfidenceHigh, 0, domain.DecisionAutoShortlist},
		{"high_with_gap", domain.ConfidenceHigh, 1, domain.DecisionAskQuestions},
		{"medium", domain.ConfidenceMedium, 0, domain.DecisionAskQuestions},
		{"low", domain.ConfidenceLow, 0, domain.DecisionAutoReject},
		{"very_low", domain.ConfidenceVeryLow, 0, domain.DecisionAutoReject},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Decide(tt.level, tt.gaps))
		})
	}
}

func TestDecide_Monotonicity(t *testing.T) {
	t.Parallel()
	at := func(c float64) domain.Decision { return Decide(domain.LevelFor(c), 0) }
	assert.Equal(t, domain.DecisionAskQuestions, at(0.69))
	assert.Equal(t, domain.DecisionAutoShortlist, at(0.70))
	assert.Equal(t, domain.DecisionAutoReject, at(0.49))
	assert.Equal(t, domain.DecisionAskQuestions, at(0.50))
	assert.Equal(t, domain.ConfidenceHigh, domain.LevelFor(0.849999))
}

func TestAnalyze_Deterministic(t *testing.T) {
	t.Parallel()
	p := candidate(2, "python", "docker")
	s := scorer.New(nil).Score(p, platformJob)
	b := New(platformJob, nil)
	assert.Equal(t, b.Analyze(p, s), b.Analyze(p, s))
}

func TestReasoning_RejectLines(t *testing.T) {
	t.Parallel()
	req := domain.JobRequirements{RequiredSkills: []string{"rust"}, MinExperience: 5}
	p := candidate(0)
	s := scorer.New(nil).Score(p, req)
	a := New(req, nil).Analyze(p, s)
	require.Equal(t, domain.DecisionAutoReject, a.Decision)
	assert.Contains(t, a.Reasoning[0], "Below hiring threshold (")
	assert.Equal(t, "Multiple critical gaps identified (3 issues)", a.Reasoning[1])
}

func TestMissingInfo(t *testing.T) {
	t.Parallel()
	assert.Equal(t, []string{
		"Email address not found",
		"Phone number not found",
		"No work experience listed",
		"No education details found",
		"Very few skills listed",
	}, MissingInfo(domain.CandidateProfile{}))

	p := candidate(1, "a", "b", "c")
	p.Experience = []domain.ExperienceEntry{{Title: "x"}}
	p.Education = []domain.EducationEntry{{Degree: "y"}}
	assert.Empty(t, MissingInfo(p))
}
