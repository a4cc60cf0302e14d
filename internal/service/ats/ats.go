// Package ats grades how well a parsed résumé survived applicant-tracking
// style parsing. The result is advisory and is reported next to the ranking.
package ats

import (
	"regexp"
	"strings"

	"github.com/fairyhunter13/ai-candidate-screener/internal/domain"
)

// FriendlyThreshold is the minimum score considered ATS friendly.
const FriendlyThreshold = 70

// Issue texts in check order.
const (
	IssueContact    = "Contact information missing or incomplete"
	IssueSections   = "Standard sections not clearly defined"
	IssueSkills     = "Skills section missing or poorly formatted"
	IssueExperience = "Work experience section needs improvement"
	IssueEducation  = "Education section missing or incomplete"
	IssueDates      = "Dates should be in standard format (MM/YYYY)"
	IssueFormatting = "Complex formatting detected - use simple text"
)

const minSkills = 5

type check struct {
	issue   string
	penalty int
	pass    func(domain.CandidateProfile) bool
}

var checks = []check{
	{IssueContact, 20, hasFullContact},
	{IssueSections, 15, hasStandardSections},
	{IssueSkills, 15, func(p domain.CandidateProfile) bool { return p.SkillCount() >= minSkills }},
	{IssueExperience, 15, hasStructuredRole},
	{IssueEducation, 10, func(p domain.CandidateProfile) bool { return len(p.Education) > 0 }},
	{IssueDates, 10, hasStandardDates},
	{IssueFormatting, 15, looksSimple},
}

// Validate scores p out of 100 and lists the failed checks.
func Validate(p domain.CandidateProfile) domain.ATSReport {
	score := 100
	issues := []string{}
	for _, c := range checks {
		if !c.pass(p) {
			score -= c.penalty
			issues = append(issues, c.issue)
		}
	}
	return domain.ATSReport{Score: score, ATSFriendly: score >= FriendlyThreshold, Issues: issues}
}

func hasFullContact(p domain.CandidateProfile) bool {
	c := p.Contact
	return notBlank(c.Name) && notBlank(c.Email) && notBlank(c.Phone)
}

func hasAnyContact(p domain.CandidateProfile) bool {
	c := p.Contact
	return notBlank(c.Name) || notBlank(c.Email) || notBlank(c.Phone)
}

// at least three of contact, experience, education and skills
func hasStandardSections(p domain.CandidateProfile) bool {
	n := 0
	for _, ok := range []bool{hasAnyContact(p), len(p.Experience) > 0, len(p.Education) > 0, p.SkillCount() > 0} {
		if ok {
			n++
		}
	}
	return n >= 3
}

func hasStructuredRole(p domain.CandidateProfile) bool {
	for _, e := range p.Experience {
		if notBlank(e.Company) && notBlank(e.Title) {
			return true
		}
	}
	return false
}

var standardDate = regexp.MustCompile(`(?i)\b(?:\d{1,2}/\d{4}|(?:jan|feb|mar|apr|may|jun|jul|aug|sep|sept|oct|nov|dec)[a-z]*\.?\s+\d{4}|(?:19|20)\d{2}|present|current)\b`)

// Every non-empty duration must contain a recognisable date.
func hasStandardDates(p domain.CandidateProfile) bool {
	for _, e := range p.Experience {
		d := strings.TrimSpace(e.Duration)
		if d != "" && !standardDate.MatchString(d) {
			return false
		}
	}
	return true
}

// Layouts with tables or columns tend to lose either the contact block or
// every experience and education entry during parsing.
func looksSimple(p domain.CandidateProfile) bool {
	return hasAnyContact(p) && (len(p.Experience) > 0 || len(p.Education) > 0)
}

func notBlank(s string) bool { return strings.TrimSpace(s) != "" }
