package postgres

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/fairyhunter13/ai-candidate-screener/internal/domain"
)

// RankingRepo persists one ranking per job across ranking_runs and
// ranking_entries.
type RankingRepo struct{ Pool PgxPool }

// NewRankingRepo constructs a RankingRepo with the given pool.
func NewRankingRepo(p PgxPool) *RankingRepo { return &RankingRepo{Pool: p} }

func startSpan(ctx domain.Context, name, op string) (domain.Context, trace.Span) {
	ctx, span := otel.Tracer("repo.rankings").Start(ctx, name)
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", op),
	)
	return ctx, span
}

// Save replaces the stored ranking for rk.JobID in a single transaction. The
// run row is locked first; with expectedVersion > 0 a version mismatch returns
// ErrConflict and nothing is written. The returned ranking carries the new version.
func (r *RankingRepo) Save(ctx domain.Context, rk domain.CandidateRanking, expectedVersion int64) (domain.CandidateRanking, error) {
	ctx, span := startSpan(ctx, "rankings.Save", "UPSERT")
	defer span.End()
	span.SetAttributes(attribute.String("job.id", rk.JobID), attribute.Int("candidates", len(rk.Candidates)))

	if rk.JobID == "" {
		return domain.CandidateRanking{}, fmt.Errorf("op=ranking.save: %w: job id required", domain.ErrInvalidArgument)
	}
	reqJSON, err := json.Marshal(rk.Requirements)
	if err != nil {
		return domain.CandidateRanking{}, fmt.Errorf("op=ranking.save: %w", err)
	}

	tx, err := r.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return domain.CandidateRanking{}, fmt.Errorf("op=ranking.save: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var current int64
	exists := true
	err = tx.QueryRow(ctx, `SELECT version FROM ranking_runs WHERE job_id=$1 FOR UPDATE`, rk.JobID).Scan(&current)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		exists = false
	case err != nil:
		return domain.CandidateRanking{}, fmt.Errorf("op=ranking.save: %w", err)
	}
	if expectedVersion > 0 && current != expectedVersion {
		return domain.CandidateRanking{}, fmt.Errorf("op=ranking.save: %w: version %d, expected %d", domain.ErrConflict, current, expectedVersion)
	}
	next := current + 1

	if exists {
		_, err = tx.Exec(ctx,
			`UPDATE ranking_runs SET run_id=$2, job_title=$3, requirements=$4, version=$5, created_at=$6, updated_at=$7 WHERE job_id=$1`,
			rk.JobID, rk.RunID, rk.Requirements.Title, reqJSON, next, rk.CreatedAt, rk.UpdatedAt)
	} else {
		var tag pgconn.CommandTag
		tag, err = tx.Exec(ctx,
			`INSERT INTO ranking_runs (job_id, run_id, job_title, requirements, version, created_at, updated_at)
			 VALUES ($1,$2,$3,$4,$5,$6,$7) ON CONFLICT (job_id) DO NOTHING`,
			rk.JobID, rk.RunID, rk.Requirements.Title, reqJSON, next, rk.CreatedAt, rk.UpdatedAt)
		if err == nil && tag.RowsAffected() == 0 {
			// another writer created the run between our lock attempt and insert
			return domain.CandidateRanking{}, fmt.Errorf("op=ranking.save: %w: concurrent create", domain.ErrConflict)
		}
	}
	if err != nil {
		return domain.CandidateRanking{}, fmt.Errorf("op=ranking.save: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM ranking_entries WHERE job_id=$1`, rk.JobID); err != nil {
		return domain.CandidateRanking{}, fmt.Errorf("op=ranking.save: %w", err)
	}
	for i, c := range rk.Candidates {
		profile, score, analysis, atsReport, err := marshalEntry(c)
		if err != nil {
			return domain.CandidateRanking{}, fmt.Errorf("op=ranking.save: %w", err)
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO ranking_entries (job_id, position, email, profile, score, analysis, ats) VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			rk.JobID, i, c.Profile.Contact.Email, profile, score, analysis, atsReport); err != nil {
			return domain.CandidateRanking{}, fmt.Errorf("op=ranking.save: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.CandidateRanking{}, fmt.Errorf("op=ranking.save: %w", err)
	}
	rk.Version = next
	return rk, nil
}

// Get loads the ranking for jobID with candidates in stored order.
func (r *RankingRepo) Get(ctx domain.Context, jobID string) (domain.CandidateRanking, error) {
	ctx, span := startSpan(ctx, "rankings.Get", "SELECT")
	defer span.End()
	span.SetAttributes(attribute.String("job.id", jobID))

	out := domain.CandidateRanking{JobID: jobID}
	var reqJSON []byte
	err := r.Pool.QueryRow(ctx,
		`SELECT run_id, requirements, version, created_at, updated_at FROM ranking_runs WHERE job_id=$1`, jobID).
		Scan(&out.RunID, &reqJSON, &out.Version, &out.CreatedAt, &out.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.CandidateRanking{}, fmt.Errorf("op=ranking.get: %w", domain.ErrNotFound)
		}
		return domain.CandidateRanking{}, fmt.Errorf("op=ranking.get: %w", err)
	}
	if err := json.Unmarshal(reqJSON, &out.Requirements); err != nil {
		return domain.CandidateRanking{}, fmt.Errorf("op=ranking.get: %w: requirements: %v", domain.ErrSchemaInvalid, err)
	}

	rows, err := r.Pool.Query(ctx,
		`SELECT profile, score, analysis, ats FROM ranking_entries WHERE job_id=$1 ORDER BY position`, jobID)
	if err != nil {
		return domain.CandidateRanking{}, fmt.Errorf("op=ranking.get: %w", err)
	}
	defer rows.Close()
	out.Candidates = []domain.RankedCandidate{}
	for rows.Next() {
		var profile, score, analysis, atsReport []byte
		if err := rows.Scan(&profile, &score, &analysis, &atsReport); err != nil {
			return domain.CandidateRanking{}, fmt.Errorf("op=ranking.get: %w", err)
		}
		c, err := unmarshalEntry(profile, score, analysis, atsReport)
		if err != nil {
			return domain.CandidateRanking{}, fmt.Errorf("op=ranking.get: %w: entry: %v", domain.ErrSchemaInvalid, err)
		}
		out.Candidates = append(out.Candidates, c)
	}
	if err := rows.Err(); err != nil {
		return domain.CandidateRanking{}, fmt.Errorf("op=ranking.get: %w", err)
	}
	return out, nil
}

func marshalEntry(c domain.RankedCandidate) (profile, score, analysis, atsReport []byte, err error) {
	if profile, err = json.Marshal(c.Profile); err != nil {
		return
	}
	if score, err = json.Marshal(c.Score); err != nil {
		return
	}
	if analysis, err = json.Marshal(c.Analysis); err != nil {
		return
	}
	atsReport, err = json.Marshal(c.ATS)
	return
}

func unmarshalEntry(profile, score, analysis, atsReport []byte) (domain.RankedCandidate, error) {
	var c domain.RankedCandidate
	for _, part := range []struct {
		raw []byte
		dst any
	}{{profile, &c.Profile}, {score, &c.Score}, {analysis, &c.Analysis}, {atsReport, &c.ATS}} {
		if err := json.Unmarshal(part.raw, part.dst); err != nil {
			return domain.RankedCandidate{}, err
		}
	}
	return c, nil
}
