// Package extractor turns free-form job description text into structured
// JobRequirements. It never fails: anything it cannot find degrades to a default.
package extractor

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/fairyhunter13/ai-candidate-screener/internal/domain"
	"github.com/fairyhunter13/ai-candidate-screener/internal/service/catalog"
)

const (
	// DefaultTitle is used when no line looks like a job title.
	DefaultTitle = "Position Not Specified"
	// MaxKeywords caps JobRequirements.Keywords.
	MaxKeywords = 20

	titleScanLines = 5
	titleMaxLen    = 100
	contextWindow  = 100
	sectionLength  = 500
	freshMaxYears  = 2.0
)

var (
	experiencePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(\d+(?:\.\d+)?)\+?\s*(?:to|-)?\s*(\d+(?:\.\d+)?)?\s*(?:years?|yrs?)`),
		regexp.MustCompile(`(\d+(?:\.\d+)?)\+\s*(?:years?|yrs?)`),
	}
	freshCues     = []string{"fresher", "entry level", "entry-level", "0 years", "no experience"}
	titleCues     = []string{"position", "role", "job title", "hiring for"}
	requiredCues  = []string{"required", "must have", "mandatory", "essential"}
	preferredCues = []string{"preferred", "nice to have", "plus", "bonus"}

	// sub-section headers must open a line, optionally after bullet marks
	mustHeader = regexp.MustCompile(`(?m)^[ \t*#•-]*(?:must[ -]have|required|requirements|essential|mandatory)`)
	niceHeader = regexp.MustCompile(`(?m)^[ \t*#•-]*(?:nice[ -]to[ -]have|preferred|plus|bonus|optional)`)
)

// Extractor is safe for concurrent use.
type Extractor struct {
	cat *catalog.Catalog
}

// New returns an extractor backed by cat. A nil catalog selects the built-in one.
func New(cat *catalog.Catalog) *Extractor {
	if cat == nil {
		cat = catalog.Default()
	}
	return &Extractor{cat: cat}
}

// Catalog exposes the catalog the extractor scans with.
func (e *Extractor) Catalog() *catalog.Catalog { return e.cat }

// Parse extracts requirements from raw job text.
func (e *Extractor) Parse(text string) domain.JobRequirements {
	lower := strings.ToLower(text)
	minExp, maxExp := extractExperience(lower)
	required, preferred := e.extractSkills(lower)
	return domain.JobRequirements{
		Title:           extractTitle(text),
		MinExperience:   minExp,
		MaxExperience:   maxExp,
		RequiredSkills:  required,
		PreferredSkills: preferred,
		EducationFloor:  HighestEducation(lower),
		Keywords:        extractKeywords(text, MaxKeywords),
		RawText:         text,
		CatalogVersion:  e.cat.Version(),
	}
}

func extractTitle(text string) string {
	seen := 0
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		seen++
		if seen > titleScanLines {
			break
		}
		if len(line) >= titleMaxLen {
			continue
		}
		if containsAny(strings.ToLower(line), titleCues) {
			return line
		}
	}
	seen = 0
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		seen++
		if seen > titleScanLines {
			break
		}
		if n := len(strings.Fields(line)); n >= 3 && n <= 10 && len(line) > 10 && len(line) < titleMaxLen {
			return line
		}
	}
	return DefaultTitle
}

func extractExperience(lower string) (float64, *float64) {
	for _, re := range experiencePatterns {
		m := re.FindStringSubmatch(lower)
		if m == nil {
			continue
		}
		minExp, _ := strconv.ParseFloat(m[1], 64)
		var maxExp *float64
		if len(m) > 2 && m[2] != "" {
			if v, err := strconv.ParseFloat(m[2], 64); err == nil && v >= minExp {
				maxExp = &v
			}
		}
		return minExp, maxExp
	}
	if containsAny(lower, freshCues) {
		v := freshMaxYears
		return 0, &v
	}
	return 0, nil
}

type skillClass int

const (
	classNone skillClass = iota
	classPreferred
	classRequired
)

func (e *Extractor) extractSkills(lower string) ([]string, []string) {
	hits := e.cat.Scan(lower)

	// window classification for every hit, in order of first appearance
	order := make([]string, 0, len(hits))
	window := make(map[string]skillClass, len(hits))
	for _, h := range hits {
		name := e.cat.Canonical(h.Skill)
		if _, ok := window[name]; ok {
			continue
		}
		order = append(order, name)
		window[name] = classifyWindow(lower, h.Start)
	}

	// dedicated sub-sections override the window when they mention the skill
	section := make(map[string]skillClass)
	for _, h := range e.cat.Scan(sectionAfter(lower, mustHeader, niceHeader)) {
		section[e.cat.Canonical(h.Skill)] = classRequired
	}
	for _, h := range e.cat.Scan(sectionAfter(lower, niceHeader, mustHeader)) {
		name := e.cat.Canonical(h.Skill)
		if section[name] != classRequired {
			section[name] = classPreferred
		}
	}

	var required, preferred []string
	for _, name := range order {
		cls := window[name]
		if s, ok := section[name]; ok {
			cls = s
		}
		if cls == classPreferred {
			preferred = append(preferred, name)
		} else {
			required = append(required, name)
		}
	}
	return required, preferred
}

func classifyWindow(lower string, at int) skillClass {
	lo := at - contextWindow
	if lo < 0 {
		lo = 0
	}
	hi := at + contextWindow
	if hi > len(lower) {
		hi = len(lower)
	}
	ctx := lower[lo:hi]
	switch {
	case containsAny(ctx, requiredCues):
		return classRequired
	case containsAny(ctx, preferredCues):
		return classPreferred
	default:
		return classRequired
	}
}

// sectionAfter returns the text following the first header match, up to
// sectionLength bytes and cut short where a header of the other kind begins.
func sectionAfter(lower string, header, other *regexp.Regexp) string {
	loc := header.FindStringIndex(lower)
	if loc == nil {
		return ""
	}
	end := loc[1] + sectionLength
	if end > len(lower) {
		end = len(lower)
	}
	body := lower[loc[1]:end]
	if cut := other.FindStringIndex(body); cut != nil {
		body = body[:cut[0]]
	}
	return body
}

var educationKeywords = []struct {
	re    *regexp.Regexp
	level domain.EducationLevel
}{
	{wordPattern("phd"), domain.EducationDoctorate},
	{wordPattern("ph.d"), domain.EducationDoctorate},
	{wordPattern("doctorate"), domain.EducationDoctorate},
	{wordPattern("masters"), domain.EducationMaster},
	{wordPattern("master's"), domain.EducationMaster},
	{wordPattern("master"), domain.EducationMaster},
	{wordPattern("m.tech"), domain.EducationMaster},
	{wordPattern("m.sc"), domain.EducationMaster},
	{wordPattern("mba"), domain.EducationMaster},
	{wordPattern("bachelors"), domain.EducationBachelor},
	{wordPattern("bachelor's"), domain.EducationBachelor},
	{wordPattern("bachelor"), domain.EducationBachelor},
	{wordPattern("b.tech"), domain.EducationBachelor},
	{wordPattern("b.sc"), domain.EducationBachelor},
	{wordPattern("b.e"), domain.EducationBachelor},
	{wordPattern("associate degree"), domain.EducationAssociate},
	{wordPattern("associate's"), domain.EducationAssociate},
	{wordPattern("diploma"), domain.EducationDiploma},
	{wordPattern("high school"), domain.EducationDiploma},
}

// roles that contain degree words without naming a degree
var educationNoise = strings.NewReplacer("scrum master", "", "master data", "", "webmaster", "")

// HighestEducation returns the highest degree level named in lower-cased text.
func HighestEducation(lower string) domain.EducationLevel {
	lower = educationNoise.Replace(lower)
	best := domain.EducationNone
	for _, k := range educationKeywords {
		if k.level > best && k.re.MatchString(lower) {
			best = k.level
		}
	}
	return best
}

func wordPattern(s string) *regexp.Regexp {
	return regexp.MustCompile(`(?:^|[^a-z0-9])` + regexp.QuoteMeta(s) + `(?:$|[^a-z0-9])`)
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
