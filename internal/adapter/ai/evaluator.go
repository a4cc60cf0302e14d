// Package ai provides answer evaluators that turn follow-up Q&A into a
// confidence boost.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/fairyhunter13/ai-candidate-screener/internal/adapter/ai/tokencount"
	obs "github.com/fairyhunter13/ai-candidate-screener/internal/adapter/observability"
	"github.com/fairyhunter13/ai-candidate-screener/internal/config"
	"github.com/fairyhunter13/ai-candidate-screener/internal/domain"
	"github.com/fairyhunter13/ai-candidate-screener/internal/observability"
	"github.com/fairyhunter13/ai-candidate-screener/internal/service/ratelimiter"
)

const (
	// DefaultMaxBoost caps a single Q&A round.
	DefaultMaxBoost = 0.3

	evaluatorName     = "llm"
	maxResponseTokens = 64
	bodySnippetLen    = 512
)

// ErrCircuitOpen is returned while the breaker rejects calls.
var ErrCircuitOpen = errors.New("circuit open")

const systemPrompt = `You review a job candidate's answers to follow-up screening questions.
Judge whether the answers resolve the listed gaps with concrete, credible detail.
Respond with JSON only: {"confidence_boost": <number between 0 and %.2f>}.
Use 0 for evasive, generic or off-topic answers.`

// HTTPEvaluator calls an OpenAI-compatible chat completions endpoint.
type HTTPEvaluator struct {
	cfg       config.Config
	hc        *http.Client
	breaker   *CircuitBreaker
	limiter   ratelimiter.Limiter
	tokens    *tokencount.Counter
	maxBoost  float64
	maxPrompt int
}

// NewHTTPEvaluator builds an evaluator from cfg. limiter may be nil.
func NewHTTPEvaluator(cfg config.Config, limiter ratelimiter.Limiter) *HTTPEvaluator {
	transport := otelhttp.NewTransport(http.DefaultTransport,
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return fmt.Sprintf("AnswerEval %s %s", r.Method, r.URL.Host)
		}),
	)
	maxBoost := cfg.AnswerEvalMaxBoost
	if maxBoost <= 0 {
		maxBoost = DefaultMaxBoost
	}
	return &HTTPEvaluator{
		cfg:       cfg,
		hc:        &http.Client{Timeout: cfg.AnswerEvalTimeout, Transport: transport},
		breaker:   NewCircuitBreaker("answer-eval"),
		limiter:   limiter,
		tokens:    tokencount.NewCounter(cfg.AnswerEvalModel),
		maxBoost:  maxBoost,
		maxPrompt: cfg.AnswerEvalMaxPromptToken,
	}
}

func (e *HTTPEvaluator) backoffConfig() *backoff.ExponentialBackOff {
	expo := backoff.NewExponentialBackOff()
	expo.MaxElapsedTime, expo.InitialInterval, expo.MaxInterval, expo.Multiplier = e.cfg.GetAIBackoffConfig()
	return expo
}

// EvaluateAnswers returns a boost in [0, maxBoost].
func (e *HTTPEvaluator) EvaluateAnswers(ctx context.Context, req domain.EvaluationRequest) (boost float64, err error) {
	start := time.Now()
	outcome := "ok"
	defer func() { obs.ObserveAnswerEval(evaluatorName, outcome, time.Since(start)) }()

	if strings.TrimSpace(e.cfg.AnswerEvalAPIKey) == "" {
		outcome = "error"
		return 0, fmt.Errorf("%w: ANSWER_EVAL_API_KEY missing", domain.ErrInvalidArgument)
	}
	if e.limiter != nil {
		ok, wait, lerr := e.limiter.Allow(ctx, ratelimiter.BucketAnswerEval, 1)
		if lerr != nil {
			slog.Warn("answer eval limiter unavailable", slog.Any("error", lerr))
		}
		if !ok {
			outcome = "rate_limited"
			return 0, fmt.Errorf("op=ai.EvaluateAnswers: %w: retry in %s", domain.ErrRateLimited, wait)
		}
	}
	if !e.breaker.Allow() {
		outcome = "circuit_open"
		return 0, fmt.Errorf("op=ai.EvaluateAnswers: %w", ErrCircuitOpen)
	}

	content, err := e.chat(ctx, fmt.Sprintf(systemPrompt, e.maxBoost), e.userPrompt(req))
	if err != nil {
		e.breaker.RecordFailure()
		outcome = "error"
		return 0, fmt.Errorf("op=ai.EvaluateAnswers: %w", err)
	}
	e.breaker.RecordSuccess()

	v, err := parseBoost(content)
	if err != nil {
		outcome = "invalid_response"
		return 0, fmt.Errorf("op=ai.EvaluateAnswers: %w", err)
	}
	return clampBoost(v, e.maxBoost), nil
}

// userPrompt lays out the context and trims answers to the prompt budget.
func (e *HTTPEvaluator) userPrompt(req domain.EvaluationRequest) string {
	var head strings.Builder
	fmt.Fprintf(&head, "Position: %s\n", orDefault(req.Requirements.Title, "Not specified"))
	if len(req.Requirements.RequiredSkills) > 0 {
		fmt.Fprintf(&head, "Required skills: %s\n", strings.Join(req.Requirements.RequiredSkills, ", "))
	}
	fmt.Fprintf(&head, "Current confidence: %.2f (%s)\n", req.Analysis.Confidence, req.Analysis.ConfidenceLevel)
	if len(req.Analysis.CriticalGaps) > 0 {
		fmt.Fprintf(&head, "Open gaps:\n- %s\n", strings.Join(req.Analysis.CriticalGaps, "\n- "))
	}
	head.WriteString("\nQuestions and answers:\n")

	budget := e.maxPrompt
	if budget > 0 {
		budget -= e.tokens.ChatTokens(systemPrompt, head.String())
	}
	n := len(req.Questions)
	if len(req.Answers) > n {
		n = len(req.Answers)
	}
	perAnswer := 0
	if budget > 0 && n > 0 {
		perAnswer = budget / n
	}

	var qa strings.Builder
	for i := 0; i < n; i++ {
		q, a := "", ""
		if i < len(req.Questions) {
			q = req.Questions[i]
		}
		if i < len(req.Answers) {
			a = strings.TrimSpace(req.Answers[i])
		}
		if e.maxPrompt > 0 {
			a = e.tokens.Truncate(a, perAnswer-e.tokens.Count(q)-8)
		}
		fmt.Fprintf(&qa, "Q%d: %s\nA%d: %s\n", i+1, q, i+1, a)
	}
	return head.String() + qa.String()
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (e *HTTPEvaluator) chat(ctx context.Context, system, user string) (string, error) {
	endpoint := strings.TrimRight(e.cfg.AnswerEvalBaseURL, "/") + "/chat/completions"
	b, err := json.Marshal(map[string]any{
		"model":           e.cfg.AnswerEvalModel,
		"temperature":     0,
		"max_tokens":      maxResponseTokens,
		"response_format": map[string]string{"type": "json_object"},
		"messages": []map[string]string{
			{"role": "system", "content": system},
			{"role": "user", "content": user},
		},
	})
	if err != nil {
		return "", err
	}
	lg := observability.LoggerFromContext(ctx)

	var out chatResponse
	op := func() error {
		r, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(b))
		if err != nil {
			return backoff.Permanent(err)
		}
		r.Header.Set("Authorization", "Bearer "+e.cfg.AnswerEvalAPIKey)
		r.Header.Set("Content-Type", "application/json")
		if rid := observability.RequestIDFromContext(ctx); rid != "" {
			r.Header.Set("X-Request-Id", rid)
		}
		resp, err := e.hc.Do(r)
		if err != nil {
			return err
		}
		defer func() { _ = resp.Body.Close() }()
		body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return err
		}
		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			lg.Warn("answer eval provider rate limited", slog.Int("status", resp.StatusCode))
			return fmt.Errorf("%w: status 429", domain.ErrUpstreamRateLimit)
		case resp.StatusCode >= 400 && resp.StatusCode < 500:
			lg.Warn("answer eval provider 4xx", slog.Int("status", resp.StatusCode), slog.String("body", snippet(body)))
			return backoff.Permanent(fmt.Errorf("chat status %d", resp.StatusCode))
		case resp.StatusCode < 200 || resp.StatusCode >= 300:
			lg.Error("answer eval provider non-2xx", slog.Int("status", resp.StatusCode), slog.String("body", snippet(body)))
			return fmt.Errorf("chat status %d", resp.StatusCode)
		}
		if err := json.Unmarshal(body, &out); err != nil {
			return backoff.Permanent(fmt.Errorf("%w: %v", domain.ErrSchemaInvalid, err))
		}
		return nil
	}
	if err := backoff.Retry(op, backoff.WithContext(e.backoffConfig(), ctx)); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: %v", domain.ErrUpstreamTimeout, err)
		}
		return "", err
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("%w: empty choices", domain.ErrSchemaInvalid)
	}
	return out.Choices[0].Message.Content, nil
}

// parseBoost reads {"confidence_boost": x} from a model reply, tolerating
// markdown fences and surrounding prose.
func parseBoost(content string) (float64, error) {
	s := strings.TrimSpace(content)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	if obj := firstObject(s); obj != "" {
		s = obj
	}
	var v struct {
		Boost *float64 `json:"confidence_boost"`
	}
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrSchemaInvalid, err)
	}
	if v.Boost == nil {
		return 0, fmt.Errorf("%w: confidence_boost missing", domain.ErrSchemaInvalid)
	}
	return *v.Boost, nil
}

// firstObject returns the first balanced {...} in s, or "".
func firstObject(s string) string {
	start := strings.Index(s, "{")
	if start < 0 {
		return ""
	}
	depth := 0
	for i := start; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

func clampBoost(v, maxBoost float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	return math.Min(v, maxBoost)
}

func snippet(b []byte) string {
	if len(b) > bodySnippetLen {
		b = b[:bodySnippetLen]
	}
	return string(b)
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
