package postgres_test

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type rowStub struct{ scan func(dest ...any) error }

func (r rowStub) Scan(dest ...any) error {
	if r.scan == nil {
		return errors.New("no row configured")
	}
	return r.scan(dest...)
}

type execCall struct {
	sql  string
	args []any
}

// txStub records statements; unimplemented pgx.Tx methods panic via the nil embed.
type txStub struct {
	pgx.Tx
	row        rowStub
	execs      []execCall
	execErrAt  int
	insertTag  string
	commitErr  error
	committed  bool
	rolledBack bool
}

func (t *txStub) QueryRow(_ context.Context, _ string, _ ...any) pgx.Row { return t.row }

func (t *txStub) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	t.execs = append(t.execs, execCall{sql: strings.TrimSpace(sql), args: args})
	if t.execErrAt == len(t.execs) {
		return pgconn.CommandTag{}, errors.New("exec failed")
	}
	if strings.HasPrefix(strings.TrimSpace(sql), "INSERT INTO ranking_runs") {
		tag := t.insertTag
		if tag == "" {
			tag = "INSERT 0 1"
		}
		return pgconn.NewCommandTag(tag), nil
	}
	return pgconn.NewCommandTag("OK"), nil
}

func (t *txStub) Commit(_ context.Context) error {
	if t.commitErr != nil {
		return t.commitErr
	}
	t.committed = true
	return nil
}

func (t *txStub) Rollback(_ context.Context) error {
	if !t.committed {
		t.rolledBack = true
	}
	return nil
}

type rowsStub struct {
	pgx.Rows
	data   [][]byte
	i      int
	err    error
	closed bool
}

// each data element holds the four JSON columns joined by \x00
func (r *rowsStub) Next() bool {
	r.i++
	return r.i <= len(r.data)
}

func (r *rowsStub) Scan(dest ...any) error {
	parts := strings.Split(string(r.data[r.i-1]), "\x00")
	for j, d := range dest {
		*(d.(*[]byte)) = []byte(parts[j])
	}
	return nil
}

func (r *rowsStub) Err() error { return r.err }
func (r *rowsStub) Close()     { r.closed = true }

type poolStub struct {
	tx       *txStub
	beginErr error
	row      rowStub
	rows     *rowsStub
	queryErr error
	execErr  error
	execTag  string
	execSQL  []string
}

func (p *poolStub) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	p.execSQL = append(p.execSQL, sql)
	return pgconn.NewCommandTag(p.execTag), p.execErr
}

func (p *poolStub) QueryRow(_ context.Context, _ string, _ ...any) pgx.Row { return p.row }

func (p *poolStub) Query(_ context.Context, _ string, _ ...any) (pgx.Rows, error) {
	if p.queryErr != nil {
		return nil, p.queryErr
	}
	return p.rows, nil
}

func (p *poolStub) BeginTx(_ context.Context, _ pgx.TxOptions) (pgx.Tx, error) {
	if p.beginErr != nil {
		return nil, p.beginErr
	}
	return p.tx, nil
}
