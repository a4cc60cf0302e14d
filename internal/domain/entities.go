package domain

import (
	"context"
	"errors"
	"time"
)

// Error taxonomy (sentinels)
var (
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrRateLimited       = errors.New("rate limited")
	ErrUpstreamTimeout   = errors.New("upstream timeout")
	ErrUpstreamRateLimit = errors.New("upstream rate limit")
	ErrSchemaInvalid     = errors.New("schema invalid")
	ErrInternal          = errors.New("internal error")
)

// Gap explanation dimensions used as keys of ScoreBreakdown.GapExplanations.
const (
	GapSkills     = "skills"
	GapExperience = "experience"
	GapEducation  = "education"
	GapError      = "error"
)

// JobRequirements is the structured form of a job posting.
// Invariants: skills lower-cased and deduplicated; a skill is never both
// required and preferred; MinExperience >= 0.
// Values are treated as immutable once produced by the extractor.
type JobRequirements struct {
	Title           string         `json:"title"`
	MinExperience   float64        `json:"min_experience"`
	MaxExperience   *float64       `json:"max_experience"`
	RequiredSkills  []string       `json:"required_skills"`
	PreferredSkills []string       `json:"preferred_skills"`
	EducationFloor  EducationLevel `json:"education_floor"`
	Keywords        []string       `json:"keywords"`
	RawText         string         `json:"raw_text,omitempty"`
	CatalogVersion  string         `json:"catalog_version,omitempty"`
}

// AllSkills returns required followed by preferred skills.
func (j JobRequirements) AllSkills() []string {
	out := make([]string, 0, len(j.RequiredSkills)+len(j.PreferredSkills))
	out = append(out, j.RequiredSkills...)
	return append(out, j.PreferredSkills...)
}

// ScoreBreakdown is the scorer output for one candidate against one job.
// Invariant: every component is within [0,100] and Overall is the fixed convex
// combination of Skills, Experience and Education.
type ScoreBreakdown struct {
	Overall         float64           `json:"overall"`
	Skills          float64           `json:"skills"`
	Experience      float64           `json:"experience"`
	Education       float64           `json:"education"`
	Keyword         float64           `json:"keyword"`
	Semantic        float64           `json:"semantic"`
	MatchedSkills   []string          `json:"matched_skills"`
	MissingSkills   []string          `json:"missing_skills"`
	ExperienceGap   float64           `json:"experience_gap"`
	GapExplanations map[string]string `json:"gap_explanations"`
	Explanation     MatchExplanation  `json:"explanation"`
}

// MatchExplanation is the human-readable narrative attached to a score.
type MatchExplanation struct {
	Summary         string   `json:"summary"`
	Strengths       []string `json:"strengths"`
	Weaknesses      []string `json:"weaknesses"`
	Recommendations []string `json:"recommendations"`
}

// AgentAnalysis is the decision brain output. A re-evaluation produces a new
// value; existing values are never mutated.
type AgentAnalysis struct {
	Decision        Decision        `json:"decision"`
	Confidence      float64         `json:"confidence"`
	ConfidenceLevel ConfidenceLevel `json:"confidence_level"`
	Reasoning       []string        `json:"reasoning"`
	CriticalGaps    []string        `json:"critical_gaps"`
	MissingInfo     []string        `json:"missing_info"`
}

// Clone returns a deep copy of the analysis.
func (a AgentAnalysis) Clone() AgentAnalysis {
	a.Reasoning = append([]string(nil), a.Reasoning...)
	a.CriticalGaps = append([]string(nil), a.CriticalGaps...)
	a.MissingInfo = append([]string(nil), a.MissingInfo...)
	return a
}

// ATSReport is an advisory resume-quality check; it never affects decisions.
type ATSReport struct {
	Score       int      `json:"score"`
	ATSFriendly bool     `json:"ats_friendly"`
	Issues      []string `json:"issues"`
}

// RankedCandidate is one row of a CandidateRanking.
type RankedCandidate struct {
	Profile  CandidateProfile `json:"profile"`
	Score    ScoreBreakdown   `json:"score"`
	Analysis AgentAnalysis    `json:"analysis"`
	ATS      ATSReport        `json:"ats"`
}

// DecisionSummary counts candidates per decision.
type DecisionSummary struct {
	Shortlisted    int `json:"shortlisted"`
	NeedsQuestions int `json:"needs_questions"`
	Rejected       int `json:"rejected"`
}

// CandidateRanking is the per-job ranking, sorted by Score.Overall descending.
// It is rebuilt on every match run and replaced as a whole.
type CandidateRanking struct {
	JobID        string            `json:"job_id"`
	RunID        string            `json:"run_id"`
	Requirements JobRequirements   `json:"requirements"`
	Candidates   []RankedCandidate `json:"candidates"`
	Version      int64             `json:"version"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// Summary returns decision counts across all candidates.
func (r CandidateRanking) Summary() DecisionSummary {
	var s DecisionSummary
	for _, c := range r.Candidates {
		switch c.Analysis.Decision {
		case DecisionAutoShortlist:
			s.Shortlisted++
		case DecisionAskQuestions:
			s.NeedsQuestions++
		case DecisionAutoReject:
			s.Rejected++
		}
	}
	return s
}

// Top returns a copy of the ranking limited to the first n candidates.
// n <= 0 keeps every candidate.
func (r CandidateRanking) Top(n int) CandidateRanking {
	if n <= 0 || n >= len(r.Candidates) {
		return r
	}
	r.Candidates = append([]RankedCandidate(nil), r.Candidates[:n]...)
	return r
}

// IndexOf returns the position of the candidate with the given email, or -1.
func (r CandidateRanking) IndexOf(email string) int {
	for i, c := range r.Candidates {
		if equalFoldTrim(c.Profile.Contact.Email, email) {
			return i
		}
	}
	return -1
}

// Repositories (ports)

type RankingRepository interface {
	// Save replaces the whole ranking for r.JobID. A positive expectedVersion
	// must match the stored version or ErrConflict is returned.
	Save(ctx Context, r CandidateRanking, expectedVersion int64) (CandidateRanking, error)
	Get(ctx Context, jobID string) (CandidateRanking, error)
}

// RequirementsCache stores extracted requirements keyed by job text.
type RequirementsCache interface {
	Get(ctx Context, jobText string) (JobRequirements, bool, error)
	Set(ctx Context, jobText string, req JobRequirements) error
}

// EvaluationRequest carries the follow-up Q&A for one candidate.
type EvaluationRequest struct {
	JobID        string
	Questions    []string
	Answers      []string
	Requirements JobRequirements
	Profile      CandidateProfile
	Analysis     AgentAnalysis
}

// AnswerEvaluator (port) returns a single confidence boost for a Q&A round.
type AnswerEvaluator interface {
	EvaluateAnswers(ctx Context, req EvaluationRequest) (float64, error)
}

// Events (port)

type RankingCompletedEvent struct {
	JobID        string          `json:"job_id"`
	RunID        string          `json:"run_id"`
	JobTitle     string          `json:"job_title"`
	Candidates   int             `json:"candidates"`
	Summary      DecisionSummary `json:"summary"`
	TopCandidate string          `json:"top_candidate,omitempty"`
	OccurredAt   time.Time       `json:"occurred_at"`
}

type CandidateReevaluatedEvent struct {
	JobID         string    `json:"job_id"`
	Email         string    `json:"email"`
	OldConfidence float64   `json:"old_confidence"`
	NewConfidence float64   `json:"new_confidence"`
	OldDecision   Decision  `json:"old_decision"`
	NewDecision   Decision  `json:"new_decision"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// RankTaskPayload is the async rank request carried over the queue. RunID is
// assigned at enqueue time so a redelivered request stores and announces the
// same run.
type RankTaskPayload struct {
	JobID          string             `json:"job_id"`
	JobDescription string             `json:"job_description"`
	Candidates     []CandidateProfile `json:"candidates"`
	RequestID      string             `json:"request_id,omitempty"`
	RunID          string             `json:"run_id,omitempty"`
}

type EventPublisher interface {
	PublishRankingCompleted(ctx Context, ev RankingCompletedEvent) error
	PublishCandidateReevaluated(ctx Context, ev CandidateReevaluatedEvent) error
}

type Queue interface {
	EnqueueRank(ctx Context, payload RankTaskPayload) (string, error)
}

// Context is an alias to allow decoupling from std context in domain.
type Context = context.Context
