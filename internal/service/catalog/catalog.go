// Package catalog holds the versioned skill vocabulary used to recognise skills
// in job descriptions and to normalise skill names before matching.
package catalog

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/fairyhunter13/ai-candidate-screener/internal/config"
)

// DefaultVersion tags the built-in catalog.
const DefaultVersion = "builtin-1"

// Catalog is immutable after construction and safe for concurrent use.
type Catalog struct {
	version    string
	categories map[string][]string
	aliases    map[string]string
	terms      []term
}

type term struct {
	name     string
	category string
	re       *regexp.Regexp
}

var defaultCategories = map[string][]string{
	"programming_languages": {
		"python", "java", "javascript", "sql", "numpy", "pandas", "scikit-learn", "sklearn",
		"c++", "r", "typescript", "c#", "ruby", "php", "swift", "kotlin", "go", "rust", "scala",
		"html", "css",
	},
	"ml_ai": {
		"machine learning", "deep learning", "nlp", "natural language processing", "computer vision",
		"cnn", "rnn", "lstm", "transformer", "transformers", "opencv", "yolo", "spacy", "bert", "gpt",
		"hugging face", "neural network", "data science", "ai",
	},
	"frameworks": {
		"tensorflow", "pytorch", "keras", "flask", "fastapi", "streamlit", "django", "react",
		"node.js", "express", "angular", "vue", "spring", "springboot", "laravel", "graphql",
		"rest api", "microservices",
	},
	"cloud_tools": {
		"aws", "azure", "gcp", "google cloud", "docker", "kubernetes", "git", "github", "gitlab",
		"jenkins", "ci/cd", "terraform", "agile", "scrum",
	},
	"databases": {
		"mysql", "postgresql", "mongodb", "redis", "sqlite", "dynamodb", "cassandra", "oracle",
		"sql server",
	},
}

var defaultAliases = map[string]string{
	"ml":                          "machine learning",
	"js":                          "javascript",
	"ts":                          "typescript",
	"golang":                      "go",
	"k8s":                         "kubernetes",
	"postgres":                    "postgresql",
	"sklearn":                     "scikit-learn",
	"nodejs":                      "node.js",
	"node":                        "node.js",
	"natural language processing": "nlp",
	"transformers":                "transformer",
	"neural networks":             "neural network",
	"huggingface":                 "hugging face",
	"spring boot":                 "springboot",
	"google cloud":                "gcp",
	"google cloud platform":       "gcp",
	"amazon web services":         "aws",
	"ci cd":                       "ci/cd",
	"cicd":                        "ci/cd",
	"restful api":                 "rest api",
}

// Default returns the built-in catalog.
func Default() *Catalog {
	c, err := New(DefaultVersion, defaultCategories, defaultAliases)
	if err != nil {
		panic(err)
	}
	return c
}

// Load returns the catalog at path, or the built-in one when path is empty.
func Load(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}
	f, err := config.LoadSkillCatalogFile(path)
	if err != nil {
		return nil, err
	}
	aliases := f.Aliases
	if aliases == nil {
		aliases = defaultAliases
	}
	return New(f.Version, f.Categories, aliases)
}

// New builds a catalog. Terms are lower-cased and deduplicated.
func New(version string, categories map[string][]string, aliases map[string]string) (*Catalog, error) {
	if strings.TrimSpace(version) == "" {
		return nil, fmt.Errorf("op=catalog.New: empty version")
	}
	c := &Catalog{
		version:    version,
		categories: make(map[string][]string, len(categories)),
		aliases:    make(map[string]string, len(aliases)),
	}
	for k, v := range aliases {
		c.aliases[normalize(k)] = normalize(v)
	}

	cats := make([]string, 0, len(categories))
	for cat := range categories {
		cats = append(cats, cat)
	}
	sort.Strings(cats)

	seen := map[string]struct{}{}
	for _, cat := range cats {
		for _, raw := range categories[cat] {
			name := normalize(raw)
			if name == "" {
				continue
			}
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			c.categories[cat] = append(c.categories[cat], name)
			c.terms = append(c.terms, term{name: name, category: cat, re: boundaryPattern(name)})
		}
	}
	if len(c.terms) == 0 {
		return nil, fmt.Errorf("op=catalog.New: catalog %q has no skills", version)
	}
	return c, nil
}

// boundaryPattern matches the term when it is not glued to other letters or
// digits. \b is unusable for terms like "c++" or "c#".
func boundaryPattern(name string) *regexp.Regexp {
	return regexp.MustCompile(`(?:^|[^a-z0-9])` + regexp.QuoteMeta(name) + `(?:$|[^a-z0-9])`)
}

// Version identifies the catalog contents; it is part of cache keys.
func (c *Catalog) Version() string { return c.version }

// Size is the number of distinct terms.
func (c *Catalog) Size() int { return len(c.terms) }

// Categories returns a copy of the category table.
func (c *Catalog) Categories() map[string][]string {
	out := make(map[string][]string, len(c.categories))
	for k, v := range c.categories {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// Hit is one catalog term found in a text.
type Hit struct {
	Skill    string
	Category string
	// Start and End are byte offsets of the term inside the lower-cased text.
	Start, End int
}

// Scan returns the first occurrence of every catalog term in lowerText, which
// must already be lower-cased. Hits are ordered by position.
func (c *Catalog) Scan(lowerText string) []Hit {
	var hits []Hit
	for _, t := range c.terms {
		loc := t.re.FindStringIndex(lowerText)
		if loc == nil {
			continue
		}
		start, end := loc[0], loc[1]
		// trim the boundary characters captured around the term
		if idx := strings.Index(lowerText[start:end], t.name); idx >= 0 {
			start += idx
			end = start + len(t.name)
		}
		hits = append(hits, Hit{Skill: t.name, Category: t.category, Start: start, End: end})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Start < hits[j].Start })
	return hits
}

// Canonical normalises a skill name and resolves aliases.
func (c *Catalog) Canonical(skill string) string {
	s := normalize(skill)
	if a, ok := c.aliases[s]; ok {
		return a
	}
	return s
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
