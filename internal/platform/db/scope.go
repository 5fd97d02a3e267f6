package db

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/registration-demo/registration/internal/platform/httpx"
)

// Querier is the subset of pgx shared by *pgxpool.Pool and pgx.Tx.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Beginner starts transactions. *pgxpool.Pool satisfies it.
type Beginner interface {
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
}

type scopeKey struct{}

type scope struct {
	tx    pgx.Tx
	mu    sync.Mutex
	hooks []func(context.Context)
}

func scopeFrom(ctx context.Context) *scope {
	s, _ := ctx.Value(scopeKey{}).(*scope)
	return s
}

func (s *scope) addHook(fn func(context.Context)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, fn)
}

func (s *scope) runHooks(ctx context.Context) {
	s.mu.Lock()
	hooks := s.hooks
	s.hooks = nil
	s.mu.Unlock()
	for _, fn := range hooks {
		fn(ctx)
	}
}

// Conn returns the transaction bound to ctx, or fallback when none is bound.
func Conn(ctx context.Context, fallback Querier) Querier {
	if s := scopeFrom(ctx); s != nil {
		return s.tx
	}
	return fallback
}

// AfterCommit defers fn until the transaction bound to ctx has committed.
// Hooks are dropped when the transaction rolls back. Without a bound
// transaction fn runs immediately.
func AfterCommit(ctx context.Context, fn func(context.Context)) {
	if s := scopeFrom(ctx); s != nil {
		s.addHook(fn)
		return
	}
	fn(ctx)
}

// WithTx executes fn within a read-committed transaction bound to the context
// passed to fn. After-commit hooks run once the commit succeeds.
func WithTx(ctx context.Context, pool Beginner, fn func(ctx context.Context) error) error {
	tx, err := pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("platform/db: begin tx: %w", err)
	}
	s := &scope{tx: tx}

	defer func() {
		_ = tx.Rollback(context.WithoutCancel(ctx))
	}()

	if err := fn(context.WithValue(ctx, scopeKey{}, s)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("platform/db: commit tx: %w", err)
	}

	s.runHooks(context.WithoutCancel(ctx))
	return nil
}

// Scope binds one transaction to every request passing through it. The
// transaction commits when the handler answers with a status below 400 and
// rolls back otherwise, including when the handler panics. The commit happens
// before the status line reaches the client, so a failed commit turns the
// response into a 500. After-commit hooks run once the handler has returned.
func Scope(pool Beginner, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			tx, err := pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
			if err != nil {
				logger.Error("begin request transaction", slog.Any("error", err))
				httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
				return
			}
			s := &scope{tx: tx}
			wrapped := &scopedWriter{ResponseWriter: w, ctx: ctx, scope: s, logger: logger}

			defer func() {
				if !wrapped.finished {
					wrapped.rollback()
				}
			}()

			next.ServeHTTP(wrapped, r.WithContext(context.WithValue(ctx, scopeKey{}, s)))

			if !wrapped.wroteHeader {
				wrapped.WriteHeader(http.StatusOK)
			}
			if wrapped.committed {
				s.runHooks(context.WithoutCancel(ctx))
			}
		})
	}
}

type scopedWriter struct {
	http.ResponseWriter
	ctx         context.Context
	scope       *scope
	logger      *slog.Logger
	wroteHeader bool
	finished    bool
	committed   bool
	failed      bool
}

func (w *scopedWriter) WriteHeader(status int) {
	if w.wroteHeader {
		return
	}
	w.wroteHeader = true
	if status >= http.StatusBadRequest {
		w.rollback()
		w.ResponseWriter.WriteHeader(status)
		return
	}
	w.finished = true
	if err := w.scope.tx.Commit(w.ctx); err != nil {
		w.logger.Error("commit request transaction", slog.Any("error", err))
		_ = w.scope.tx.Rollback(context.WithoutCancel(w.ctx))
		w.failed = true
		w.Header().Del("Content-Length")
		httpx.Problem(w.ResponseWriter, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	w.committed = true
	w.ResponseWriter.WriteHeader(status)
}

func (w *scopedWriter) Write(data []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	if w.failed {
		return len(data), nil
	}
	return w.ResponseWriter.Write(data)
}

func (w *scopedWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

func (w *scopedWriter) rollback() {
	if w.finished {
		return
	}
	w.finished = true
	if err := w.scope.tx.Rollback(context.WithoutCancel(w.ctx)); err != nil {
		w.logger.Warn("rollback request transaction", slog.Any("error", err))
	}
}
