package idempotency

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"multilend/internal/apperr"
	"multilend/internal/domain/outcome"
)

const (
	DefaultTTL = 24 * time.Hour
	// how long an in-flight request holds its key
	lockTTL = 60 * time.Second
)

var (
	ErrNotFound = errors.New("idempotency record not found")

	reKey = regexp.MustCompile(`^[A-Za-z0-9_-]{8,128}$`)
)

// Record is the cached response of a completed request.
type Record struct {
	Status    int       `json:"status"`
	Body      []byte    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// Store persists records by key. Get returns ErrNotFound for unknown keys
// and for keys that are only reserved.
type Store interface {
	Get(ctx context.Context, key string) (*Record, error)
	Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
	Save(ctx context.Context, key string, rec Record, ttl time.Duration) error
}

type Response struct {
	Status int
	Body   []byte
}

// Guard deduplicates retried mutating requests. Replays are keyed on the
// idempotency key alone; the payload of a retry is not compared.
type Guard struct {
	store Store
	ttl   time.Duration
	log   *slog.Logger
	now   func() time.Time
}

func NewGuard(store Store, ttl time.Duration, log *slog.Logger) *Guard {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Guard{store: store, ttl: ttl, log: log, now: func() time.Time { return time.Now().UTC() }}
}

func ValidateKey(key string) error {
	if !reKey.MatchString(key) {
		return apperr.New(apperr.KindInvalidIdempotencyToken, "Idempotency-Key must be 8-128 characters of [A-Za-z0-9_-]")
	}
	return nil
}

// SubmitWithKey replays the cached response for key if one exists and
// otherwise runs op, caching its response when it succeeded (status < 400).
// A failure to read or write the store never fails the request: op still
// runs and the outcome is SkippedDegraded.
func (g *Guard) SubmitWithKey(ctx context.Context, key string, op func(ctx context.Context) (Response, error)) (Response, outcome.Outcome, error) {
	return g.SubmitScoped(ctx, "", key, op)
}

// SubmitScoped is SubmitWithKey with the client key namespaced by scope
// (route and requester), so two callers never share a record.
func (g *Guard) SubmitScoped(ctx context.Context, scope, key string, op func(ctx context.Context) (Response, error)) (Response, outcome.Outcome, error) {
	if err := ValidateKey(key); err != nil {
		return Response{}, outcome.Outcome{}, err
	}
	if scope != "" {
		key = scope + "|" + key
	}

	rec, err := g.store.Get(ctx, key)
	switch {
	case err == nil:
		return Response{Status: rec.Status, Body: rec.Body}, outcome.Replayed(), nil
	case !errors.Is(err, ErrNotFound):
		return g.runDegraded(ctx, op, fmt.Errorf("read: %w", err))
	}

	reserved, err := g.store.Reserve(ctx, key, lockTTL)
	if err != nil {
		return g.runDegraded(ctx, op, fmt.Errorf("reserve: %w", err))
	}
	if !reserved {
		// lost the race: the winner may have finished in between
		if rec, err := g.store.Get(ctx, key); err == nil {
			return Response{Status: rec.Status, Body: rec.Body}, outcome.Replayed(), nil
		}
		return Response{}, outcome.Outcome{}, apperr.Conflict("a request with this idempotency key is already in progress")
	}

	resp, err := op(ctx)
	if err != nil || resp.Status >= 400 {
		g.release(ctx, key)
		return resp, outcome.Committed(), err
	}

	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := g.store.Save(saveCtx, key, Record{Status: resp.Status, Body: resp.Body, CreatedAt: g.now()}, g.ttl); err != nil {
		g.log.Warn("idempotency record not persisted", "key", key, "error", err)
		return resp, outcome.Degraded("idempotency record not persisted: " + err.Error()), nil
	}
	return resp, outcome.Committed(), nil
}

func (g *Guard) runDegraded(ctx context.Context, op func(ctx context.Context) (Response, error), cause error) (Response, outcome.Outcome, error) {
	g.log.Warn("idempotency store unavailable; running unguarded", "error", cause)
	resp, err := op(ctx)
	return resp, outcome.Degraded("idempotency store unavailable: " + cause.Error()), err
}

func (g *Guard) release(ctx context.Context, key string) {
	relCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := g.store.Release(relCtx, key); err != nil {
		g.log.Warn("idempotency lock not released", "key", key, "error", err)
	}
}
