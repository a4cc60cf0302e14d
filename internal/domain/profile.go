package domain

import (
	"bytes"
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Contact holds candidate contact details.
type Contact struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// ExperienceEntry is one role from a résumé.
type ExperienceEntry struct {
	Title       string `json:"title"`
	Company     string `json:"company"`
	Duration    string `json:"duration"`
	Years       Years  `json:"years"`
	Description string `json:"description,omitempty"`
}

// EducationEntry is one degree from a résumé.
type EducationEntry struct {
	Degree      string    `json:"degree"`
	Institution string    `json:"institution"`
	Year        FlexiText `json:"year"`
}

// Project is an optional résumé project.
type Project struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// CandidateProfile is structured résumé data. It is produced upstream and is
// read-only input for scoring.
type CandidateProfile struct {
	Contact              Contact           `json:"contact"`
	Skills               SkillSet          `json:"skills"`
	Experience           []ExperienceEntry `json:"experience"`
	Education            []EducationEntry  `json:"education"`
	Projects             []Project         `json:"projects,omitempty"`
	Summary              string            `json:"summary,omitempty"`
	TotalExperienceYears Years             `json:"total_experience_years"`
}

// FlatSkills returns every skill lower-cased, trimmed and deduplicated in
// category order then list order. Categories are visited in sorted order.
func (p CandidateProfile) FlatSkills() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, cat := range p.Skills.Categories() {
		for _, s := range p.Skills[cat] {
			s = strings.ToLower(strings.TrimSpace(s))
			if s == "" {
				continue
			}
			if _, ok := seen[s]; ok {
				continue
			}
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	return out
}

// SkillCount returns the number of listed skills across all categories.
func (p CandidateProfile) SkillCount() int {
	n := 0
	for _, list := range p.Skills {
		n += len(list)
	}
	return n
}

// SkillSet maps a category name to its skills.
type SkillSet map[string][]string

// GeneralSkillCategory receives skills supplied as a flat list.
const GeneralSkillCategory = "general"

// Categories returns the category names sorted.
func (s SkillSet) Categories() []string {
	cats := make([]string, 0, len(s))
	for c := range s {
		cats = append(cats, c)
	}
	sortStrings(cats)
	return cats
}

// UnmarshalJSON accepts either a category map or a flat list of skills.
func (s *SkillSet) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*s = nil
		return nil
	}
	if b[0] == '[' {
		var list []string
		if err := json.Unmarshal(b, &list); err != nil {
			return err
		}
		*s = SkillSet{GeneralSkillCategory: list}
		return nil
	}
	var m map[string][]string
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	*s = m
	return nil
}

// Years is a non-negative year count that tolerates loosely typed input:
// numbers, numeric strings ("3", "2.5 years") and junk ("N/A" becomes 0).
type Years float64

var leadingNumber = regexp.MustCompile(`-?\d+(?:\.\d+)?`)

func (y *Years) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*y = 0
		return nil
	}
	var f float64
	if b[0] == '"' {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			*y = 0
			return nil
		}
		f = parseLooseFloat(str)
	} else if err := json.Unmarshal(b, &f); err != nil {
		f = 0
	}
	*y = Years(sanitizeYears(f))
	return nil
}

// Float returns the coerced value, never negative or NaN.
func (y Years) Float() float64 { return sanitizeYears(float64(y)) }

func parseLooseFloat(s string) float64 {
	s = strings.TrimSpace(s)
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	if m := leadingNumber.FindString(s); m != "" {
		f, _ := strconv.ParseFloat(m, 64)
		return f
	}
	return 0
}

func sanitizeYears(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0
	}
	return f
}

// FlexiText decodes either a JSON string or number into text.
type FlexiText string

func (t *FlexiText) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*t = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = FlexiText(s)
		return nil
	}
	*t = FlexiText(string(b))
	return nil
}
