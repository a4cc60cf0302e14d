// Package reeval revises a screening decision after the candidate answers
// follow-up questions.
package reeval

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/fairyhunter13/ai-candidate-screener/internal/domain"
	"github.com/fairyhunter13/ai-candidate-screener/internal/observability"
	"github.com/fairyhunter13/ai-candidate-screener/internal/service/brain"
)

const (
	// DefaultMinAnswerLength is the trimmed length an answer must exceed.
	DefaultMinAnswerLength = 10
	// UnansweredConfidence is forced when any question is left unanswered.
	UnansweredConfidence = 0.20
	UnansweredReason     = "Auto-rejected: Did not respond to follow-up questions"
)

// Input is one Q&A round for a candidate currently in ASK_QUESTIONS.
type Input struct {
	JobID        string
	Analysis     domain.AgentAnalysis
	Questions    []string
	Answers      []string
	Requirements domain.JobRequirements
	Profile      domain.CandidateProfile
}

// Loop is safe for concurrent use.
type Loop struct {
	eval     domain.AnswerEvaluator
	minLen   int
	maxBoost float64
	timeout  time.Duration
}

// Option configures a Loop.
type Option func(*Loop)

// WithMinAnswerLength sets the trimmed length an answer must exceed.
func WithMinAnswerLength(n int) Option { return func(l *Loop) { l.minLen = n } }

// WithMaxBoost caps the evaluator's boost; zero or less disables the cap.
func WithMaxBoost(v float64) Option { return func(l *Loop) { l.maxBoost = v } }

// WithTimeout bounds each evaluator call.
func WithTimeout(d time.Duration) Option { return func(l *Loop) { l.timeout = d } }

// New returns a loop. A nil evaluator always yields a zero boost.
func New(eval domain.AnswerEvaluator, opts ...Option) *Loop {
	l := &Loop{eval: eval, minLen: DefaultMinAnswerLength}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Answered reports whether every expected answer is present and its trimmed
// text is longer than minLen characters. With no questions and no answers
// nothing was answered.
func Answered(questions, answers []string, minLen int) bool {
	expected := len(questions)
	if len(answers) > expected {
		expected = len(answers)
	}
	if expected == 0 {
		return false
	}
	for i := 0; i < expected; i++ {
		if i >= len(answers) || utf8.RuneCountInString(strings.TrimSpace(answers[i])) <= minLen {
			return false
		}
	}
	return true
}

// Reevaluate returns a new analysis; in.Analysis is never modified. Evaluator
// failures count as a zero boost.
func (l *Loop) Reevaluate(ctx context.Context, in Input) domain.AgentAnalysis {
	out := in.Analysis.Clone()
	if !Answered(in.Questions, in.Answers, l.minLen) {
		out.Decision = domain.DecisionAutoReject
		out.Confidence = UnansweredConfidence
		out.ConfidenceLevel = domain.LevelFor(UnansweredConfidence)
		out.Reasoning = append(out.Reasoning, UnansweredReason)
		return out
	}

	old := in.Analysis.Confidence
	boost := l.boost(ctx, in)
	next := math.Min(1, old+boost)
	out.Confidence = next
	out.ConfidenceLevel = domain.LevelFor(next)
	out.Decision = brain.Decide(out.ConfidenceLevel, len(out.CriticalGaps))
	out.Reasoning = append(out.Reasoning, fmt.Sprintf("Re-evaluated after Q&A: confidence %.2f → %.2f", old, next))
	return out
}

func (l *Loop) boost(ctx context.Context, in Input) float64 {
	if l.eval == nil {
		return 0
	}
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}
	v, err := l.eval.EvaluateAnswers(ctx, domain.EvaluationRequest{
		JobID:        in.JobID,
		Questions:    in.Questions,
		Answers:      in.Answers,
		Requirements: in.Requirements,
		Profile:      in.Profile,
		Analysis:     in.Analysis,
	})
	if err != nil {
		observability.LoggerFromContext(ctx).Warn("answer evaluation failed, using zero boost",
			slog.String("job_id", in.JobID),
			slog.String("email", in.Profile.Contact.Email),
			slog.Any("error", err))
		return 0
	}
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if l.maxBoost > 0 && v > l.maxBoost {
		return l.maxBoost
	}
	return v
}
