package app

import (
	"log/slog"

	goredis "github.com/redis/go-redis/v9"

	"github.com/fairyhunter13/ai-candidate-screener/internal/adapter/ai"
	rediscache "github.com/fairyhunter13/ai-candidate-screener/internal/adapter/cache/redis"
	"github.com/fairyhunter13/ai-candidate-screener/internal/config"
	"github.com/fairyhunter13/ai-candidate-screener/internal/domain"
	"github.com/fairyhunter13/ai-candidate-screener/internal/service/catalog"
	"github.com/fairyhunter13/ai-candidate-screener/internal/service/extractor"
	"github.com/fairyhunter13/ai-candidate-screener/internal/service/ratelimiter"
	"github.com/fairyhunter13/ai-candidate-screener/internal/service/reeval"
	"github.com/fairyhunter13/ai-candidate-screener/internal/service/scorer"
	"github.com/fairyhunter13/ai-candidate-screener/internal/usecase"
)

// Deps are the infrastructure handles shared by the server and the worker.
// Redis, Events and Queue may be nil.
type Deps struct {
	Catalog  *catalog.Catalog
	Redis    *goredis.Client
	Rankings domain.RankingRepository
	Events   domain.EventPublisher
	Queue    domain.Queue
}

// Services groups the usecases exposed over HTTP and the queue.
type Services struct {
	Rank       usecase.RankService
	Enqueue    usecase.EnqueueService
	Query      usecase.QueryService
	Reevaluate usecase.ReevaluateService
	Evaluator  domain.AnswerEvaluator
}

// BuildServices assembles the screening engine around d.
func BuildServices(cfg config.Config, d Deps) Services {
	cat := d.Catalog
	if cat == nil {
		cat = catalog.Default()
	}
	var cache domain.RequirementsCache
	var limiter ratelimiter.Limiter
	if d.Redis != nil {
		cache = rediscache.NewRequirementsCache(d.Redis, cat.Version(), cfg.RequirementsCacheTTL)
		limiter = ratelimiter.NewRedisLimiter(d.Redis, map[string]ratelimiter.BucketConfig{
			ratelimiter.BucketAnswerEval: ratelimiter.PerMinute(cfg.AnswerEvalPerMin),
		})
	}

	ev := BuildEvaluator(cfg, cat, limiter)
	loop := reeval.New(ev,
		reeval.WithMinAnswerLength(cfg.MinAnswerLength),
		reeval.WithMaxBoost(cfg.AnswerEvalMaxBoost),
		reeval.WithTimeout(cfg.AnswerEvalTimeout),
	)

	return Services{
		Rank:       usecase.NewRankService(extractor.New(cat), scorer.New(cat), cache, d.Rankings, d.Events, cfg.ScoreWorkers, cfg.MaxCandidates),
		Enqueue:    usecase.NewEnqueueService(d.Queue, cfg.MaxCandidates),
		Query:      usecase.NewQueryService(d.Rankings),
		Reevaluate: usecase.NewReevaluateService(d.Rankings, loop, d.Events),
		Evaluator:  ev,
	}
}

// BuildEvaluator selects the LLM evaluator when an API key is configured and
// the catalog heuristic otherwise.
func BuildEvaluator(cfg config.Config, cat *catalog.Catalog, limiter ratelimiter.Limiter) domain.AnswerEvaluator {
	if cfg.AnswerEvalEnabled() {
		slog.Info("answer evaluator: llm", slog.String("model", cfg.AnswerEvalModel), slog.String("base_url", cfg.AnswerEvalBaseURL))
		return ai.NewHTTPEvaluator(cfg, limiter)
	}
	slog.Info("answer evaluator: heuristic")
	return ai.NewHeuristicEvaluator(cat, cfg.AnswerEvalMaxBoost)
}
