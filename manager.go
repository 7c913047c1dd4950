package gcmutility

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/neodroidpune/GCMUtility/prefs"
	"golang.org/x/sync/singleflight"
)

// Registrar obtains a registration token for a sender ID from the push
// service. gcm.Client is the production implementation.
type Registrar interface {
	Register(ctx context.Context, senderID string) (string, error)
}

// RegistrarFunc adapts a function to Registrar.
type RegistrarFunc func(ctx context.Context, senderID string) (string, error)

func (f RegistrarFunc) Register(ctx context.Context, senderID string) (string, error) {
	return f(ctx, senderID)
}

// Option configures Manager.
type Option func(*Manager)

// WithLogger sets a custom logger for Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithAvailability sets the service-availability check. Without it the
// service is assumed to be available.
func WithAvailability(a Availability) Option {
	return func(m *Manager) {
		m.availability = a
	}
}

// WithCallbackExecutor sets how Handler notifications are delivered. exec
// receives each notification as a func and must run it exactly once, for
// example by posting it to the caller's event loop. By default notifications
// run on whichever goroutine completes the attempt.
func WithCallbackExecutor(exec func(func())) Option {
	return func(m *Manager) {
		m.execute = exec
	}
}

// Manager registers with the push service and caches the token.
// A Manager is safe for concurrent use.
type Manager struct {
	registrar    Registrar
	store        *prefs.Preferences
	version      VersionSource
	availability Availability
	logger       *slog.Logger
	execute      func(func())

	// inflight coalesces concurrent network registrations per sender ID.
	inflight singleflight.Group
}

// NewManager creates a Manager. store holds the cached RegistrationRecord and
// version yields the running application's version code.
func NewManager(registrar Registrar, store *prefs.Preferences, version VersionSource, opts ...Option) *Manager {
	m := &Manager{
		registrar:    registrar,
		store:        store,
		version:      version,
		availability: AlwaysAvailable,
		logger:       slog.Default(),
		execute:      func(fn func()) { fn() },
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Register starts a registration attempt for senderID.
//
// Rejections and cache hits are complete when Register returns. Otherwise
// the network call runs in a background goroutine and the returned Attempt
// completes when it finishes. Failures are not retried.
func (m *Manager) Register(ctx context.Context, senderID string) *Attempt {
	return m.start(ctx, senderID, nil)
}

// RegisterWithHandler is Register with notifications delivered to h through
// the Manager's callback executor.
func (m *Manager) RegisterWithHandler(ctx context.Context, senderID string, h Handler) *Attempt {
	return m.start(ctx, senderID, h)
}

// Cached returns the stored record and whether it is valid for the running
// application version.
func (m *Manager) Cached(ctx context.Context) (RegistrationRecord, bool, error) {
	version, err := currentVersion(m.version)
	if err != nil {
		return RegistrationRecord{}, false, err
	}
	rec, ok, err := loadRecord(ctx, m.store)
	if err != nil {
		return RegistrationRecord{}, false, err
	}
	return rec, ok && rec.ValidFor(version), nil
}

func (m *Manager) start(ctx context.Context, senderID string, h Handler) *Attempt {
	a := newAttempt(uuid.NewString())
	logger := m.logger.With("attempt", a.id, "sender_id", senderID)

	if senderID == "" {
		m.finish(a, h, StateRejected, Result{Outcome: OutcomeError, Err: ErrEmptySenderID})
		return a
	}

	a.setState(StateCheckingService)
	if status := m.availability.Availability(ctx); status != ServiceSuccess {
		serr := &ServiceError{Status: status}
		logger.Info("Push service not available", "status", status.String(), "recoverable", status.UserRecoverable())
		m.finish(a, h, StateRejected, Result{Outcome: OutcomeError, Err: serr})
		return a
	}

	version, err := currentVersion(m.version)
	if err != nil {
		logger.Error("Cannot read application version", "error", err)
		m.finish(a, h, StateFailed, Result{Outcome: OutcomeError, Err: err})
		return a
	}

	rec, ok, err := loadRecord(ctx, m.store)
	switch {
	case err != nil:
		logger.Warn("failed to load cached registration; attempting fresh registration", "error", err)
	case !ok:
		logger.Debug("Registration not found")
	case rec.AppVersion != version:
		logger.Debug("App version changed", "cached_version", rec.AppVersion, "current_version", version)
	default:
		logger.Debug("Registration already exists, reusing token", "app_version", version)
		m.finish(a, h, StateCachedHit, Result{Outcome: OutcomeSuccess, Token: rec.Token, Cached: true})
		return a
	}

	a.setState(StateRegistering)
	if h != nil {
		m.execute(h.OnPreRegister)
	}
	go m.registerInBackground(ctx, a, h, logger, senderID, version)
	return a
}

// registerInBackground performs the network registration and persists the
// token. Concurrent attempts for the same sender share one network call,
// which is detached from any single caller's cancellation. Each attempt
// still gives up on its own ctx.
func (m *Manager) registerInBackground(ctx context.Context, a *Attempt, h Handler, logger *slog.Logger, senderID string, version int) {
	ch := m.inflight.DoChan(senderID, func() (any, error) {
		callCtx := context.WithoutCancel(ctx)
		token, err := m.registrar.Register(callCtx, senderID)
		if err != nil {
			return "", err
		}
		if token == "" {
			return "", ErrEmptyToken
		}
		logger.Info("Saving registration", "app_version", version, "token_prefix", truncate(token, 20))
		if err := storeRecord(callCtx, m.store, RegistrationRecord{Token: token, AppVersion: version}); err != nil {
			return token, err
		}
		return token, nil
	})

	var (
		token string
		err   error
	)
	select {
	case r := <-ch:
		token, _ = r.Val.(string)
		err = r.Err
		if r.Shared {
			logger.Debug("Joined in-flight registration")
		}
	case <-ctx.Done():
		err = ctx.Err()
	}

	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			logger.Debug("Registration cancelled", "error", err)
		} else {
			logger.Error("Registration failed", "error", err)
		}
		m.finish(a, h, StateFailed, Result{Outcome: OutcomeError, Token: token, Err: fmt.Errorf("register: %w", err)})
		return
	}
	m.finish(a, h, StateSucceeded, Result{Outcome: OutcomeSuccess, Token: token})
}

func (m *Manager) finish(a *Attempt, h Handler, state State, res Result) {
	res.AttemptID = a.id
	a.complete(state, res)
	if h == nil {
		return
	}
	if res.OK() {
		m.execute(func() { h.OnPostRegister(res.Token) })
	} else {
		m.execute(func() { h.OnError(res.Message()) })
	}
}

// Attempt tracks one registration attempt.
type Attempt struct {
	id     string
	state  atomic.Int32
	done   chan struct{}
	result Result
}

func newAttempt(id string) *Attempt {
	return &Attempt{id: id, done: make(chan struct{})}
}

// ID returns the attempt's unique identifier, also logged as "attempt".
func (a *Attempt) ID() string { return a.id }

// State returns the current lifecycle state.
func (a *Attempt) State() State { return State(a.state.Load()) }

// Done is closed once the attempt has an outcome.
func (a *Attempt) Done() <-chan struct{} { return a.done }

// Result returns the outcome if the attempt is done.
func (a *Attempt) Result() (Result, bool) {
	select {
	case <-a.done:
		return a.result, true
	default:
		return Result{}, false
	}
}

// Wait blocks until the attempt is done or ctx is cancelled. The returned
// error is the outcome's error, or ctx.Err() if waiting was abandoned.
// Abandoning the wait does not stop the attempt.
func (a *Attempt) Wait(ctx context.Context) (Result, error) {
	select {
	case <-a.done:
		return a.result, a.result.Err
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

func (a *Attempt) setState(s State) { a.state.Store(int32(s)) }

func (a *Attempt) complete(s State, res Result) {
	a.result = res
	a.setState(s)
	close(a.done)
}

// truncate returns the first maxLen characters of s, or s itself if shorter.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen]
}
