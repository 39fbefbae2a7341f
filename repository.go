package jwxt

import (
	"context"
	"errors"
	"fmt"
)

// BaseRepository is the building block every page repository embeds. It
// wires an action-shaped fetch to the engine's single-flight re-login so
// that a burst of concurrent expired fetches produces exactly one fresh
// login.
type BaseRepository struct {
	engine *Engine
}

// NewBaseRepository binds a repository base to an engine.
func NewBaseRepository(e *Engine) *BaseRepository {
	return &BaseRepository{engine: e}
}

// Engine exposes the underlying engine for repositories that need the
// fetcher or session predicates directly.
func (r *BaseRepository) Engine() *Engine {
	if r == nil {
		return nil
	}
	return r.engine
}

// FetchWithReauth runs action and, if it failed with ErrSessionExpired,
// re-authenticates exactly once and retries the action exactly once. The
// re-login is serialized through the engine's mutex with a double check
// inside the critical section: whichever waiter gets the lock first does
// the login, the rest find a valid session and skip straight to their
// retry. Any other error passes through untouched.
func (r *BaseRepository) FetchWithReauth(ctx context.Context, action func(context.Context) (string, error)) (string, error) {
	if r == nil || r.engine == nil {
		return "", ErrEngineNotReady
	}

	body, err := action(ctx)
	if err == nil || !errors.Is(err, ErrSessionExpired) {
		return body, err
	}

	if rerr := r.relogin(ctx); rerr != nil {
		// Keep the expiry as the caller-visible cause; the login
		// failure rides along for diagnostics.
		return "", fmt.Errorf("%w: re-login failed: %v", err, rerr)
	}

	return action(ctx)
}

// relogin is the single-flight section. The context is detached from the
// caller's cancellation: a fresh session benefits every waiter, so one
// caller giving up must not abort the login the others are blocked on.
// The login's own timeout still bounds it.
func (r *BaseRepository) relogin(ctx context.Context) error {
	e := r.engine
	e.reloginMu.Lock()
	defer e.reloginMu.Unlock()

	if e.HasValidSession() && e.CheckSessionValidity(ctx) {
		return nil
	}

	lctx := context.WithoutCancel(ctx)
	if err := e.Login(lctx, true); err != nil {
		e.metricInc(MetricReloginFailure)
		e.emitAudit(ctx, auditEventReloginFailure, false, "", err, nil)
		return err
	}

	e.metricInc(MetricReloginSuccess)
	e.emitAudit(ctx, auditEventReloginSuccess, true, "", nil, nil)
	return nil
}
