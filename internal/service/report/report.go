// Package report renders a stored ranking as a plain-text document for
// recruiters.
package report

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"text/template"

	"github.com/fairyhunter13/ai-candidate-screener/internal/domain"
)

const (
	maxKeySkills    = 5
	maxListedSkills = 10
)

var rule = strings.Repeat("=", 80)

var funcs = template.FuncMap{
	"rule":  func() string { return rule },
	"pct":   func(v float64) string { return strconv.FormatFloat(v, 'f', 1, 64) + "%" },
	"years": years,
	"head":  head,
	"join":  func(s []string) string { return strings.Join(s, ", ") },
	"inc":   func(i int) int { return i + 1 },
	"conf":  func(c float64) string { return fmt.Sprintf("%.0f%%", c*100) },
}

var tmpl = template.Must(template.New("ranking").Funcs(funcs).Parse(`{{rule}}
CANDIDATE RANKING REPORT
{{rule}}

Position: {{.Requirements.Title}}
Required Experience: {{years .Requirements.MinExperience}}+ years
Key Skills: {{join (head .Requirements.RequiredSkills 5)}}

{{rule}}
Total Candidates Evaluated: {{len .Candidates}}
{{rule}}
{{range $i, $c := .Candidates}}
{{rule}}
RANK #{{inc $i}}: {{$c.Profile.Contact.Name}}
{{rule}}
Overall Match Score: {{pct $c.Score.Overall}}
Email: {{$c.Profile.Contact.Email}}
Phone: {{$c.Profile.Contact.Phone}}
Total Experience: {{years $c.Profile.TotalExperienceYears.Float}} years
Decision: {{$c.Analysis.Decision}} ({{conf $c.Analysis.Confidence}} confidence, {{$c.Analysis.ConfidenceLevel}})

Score Breakdown:
  • Skills Match: {{pct $c.Score.Skills}}
  • Experience Match: {{pct $c.Score.Experience}}
  • Education Match: {{pct $c.Score.Education}}
{{with $c.Score.MatchedSkills}}
✓ Matched Skills ({{len .}}):
  {{join (head . 10)}}
{{end}}{{with $c.Score.MissingSkills}}
✗ Missing Skills ({{len .}}):
  {{join (head . 10)}}
{{end}}
Assessment: {{$c.Score.Explanation.Summary}}
{{with $c.Score.Explanation.Strengths}}
Strengths:
{{range .}}  ✓ {{.}}
{{end}}{{end}}{{with $c.Score.Explanation.Weaknesses}}
Weaknesses:
{{range .}}  ✗ {{.}}
{{end}}{{end}}{{with $c.Score.Explanation.Recommendations}}
Recommendation:
{{range .}}  → {{.}}
{{end}}{{end}}{{end}}`))

// Render writes the ranking in rank order. Candidates are expected to be
// sorted already.
func Render(r domain.CandidateRanking) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, r); err != nil {
		return "", fmt.Errorf("op=report.Render: %w", err)
	}
	return buf.String(), nil
}

func years(v float64) string {
	if v == float64(int64(v)) {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'f', 1, 64)
}

func head(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
