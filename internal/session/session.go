// Package session holds the client's belief about who is signed in.
//
// A Manager is created once at startup and handed to every consumer. It is a
// small state machine:
//
//	Uninitialized → Loading → {Authenticated, Anonymous} → Loading → ...
//
// Operations that change the session (Bootstrap, Refresh, SignIn, SignUp,
// SignOut, Invalidate) are serialized, so the final state is always the result
// of the last operation to finish. Concurrent Bootstrap/Refresh calls share one
// current-user fetch. A cancelled context never changes the session: the
// backend still holds whatever credential it held before.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/taskwiz/taskwiz/internal/cli/apierr"
	"github.com/taskwiz/taskwiz/internal/cli/client"
	"github.com/taskwiz/taskwiz/internal/cli/validate"
)

// ErrNotAuthenticated is returned by RequireUser when nobody is signed in.
var ErrNotAuthenticated = errors.New("not authenticated. Please run 'taskwiz signin' first")

// Phase is the state machine position.
type Phase int

const (
	PhaseUninitialized Phase = iota
	PhaseLoading
	PhaseAuthenticated
	PhaseAnonymous
)

func (p Phase) String() string {
	switch p {
	case PhaseUninitialized:
		return "uninitialized"
	case PhaseLoading:
		return "loading"
	case PhaseAuthenticated:
		return "authenticated"
	case PhaseAnonymous:
		return "anonymous"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// State is a snapshot of the session. User is never mutated in place.
type State struct {
	Phase         Phase
	User          *client.User
	Authenticated bool
	Loading       bool
	Err           string
}

// AuthAPI is the backend surface the manager drives. *client.Client implements it.
type AuthAPI interface {
	SignIn(ctx context.Context, email, password string) error
	SignUp(ctx context.Context, email, password string) error
	SignOut(ctx context.Context) error
	CurrentUser(ctx context.Context) (*client.User, error)
}

// Options configures a Manager.
type Options struct {
	Logger zerolog.Logger
	// OnSignedOut runs after every sign-out and after an authenticated session
	// is invalidated; the presentation layer uses it to send the user to sign-in.
	OnSignedOut func()
}

// Manager owns the process-wide session state.
type Manager struct {
	api         AuthAPI
	logger      zerolog.Logger
	onSignedOut func()

	// opMu serializes session-mutating operations.
	opMu sync.Mutex

	mu      sync.Mutex
	state   State
	subs    map[int]func(State)
	nextSub int

	// pending holds committed transitions not yet delivered to subscribers.
	pending    []State
	delivering bool

	flightMu sync.Mutex
	flight   *fetchCall
}

type fetchCall struct {
	done chan struct{}
	user *client.User
	err  error
}

// New creates a Manager in the Uninitialized phase.
func New(api AuthAPI, opts Options) *Manager {
	return &Manager{
		api:         api,
		logger:      opts.Logger,
		onSignedOut: opts.OnSignedOut,
		state:       State{Phase: PhaseUninitialized},
		subs:        make(map[int]func(State)),
	}
}

// State returns the current snapshot.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// RequireUser returns the signed-in user or ErrNotAuthenticated.
func (m *Manager) RequireUser() (*client.User, error) {
	s := m.State()
	if !s.Authenticated || s.User == nil {
		return nil, ErrNotAuthenticated
	}
	return s.User, nil
}

// Subscribe registers fn to receive every state transition, in commit order.
// Delivery happens after the operation has released its lock and before it
// returns, so fn may call back into the Manager. When another goroutine is
// already delivering, that goroutine delivers the new transitions too.
func (m *Manager) Subscribe(fn func(State)) (unsubscribe func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subs, id)
	}
}

// commit replaces the state and queues it for subscribers. Callers hold opMu
// and call notify once they have released it.
func (m *Manager) commit(next State) {
	m.mu.Lock()
	m.state = next
	m.pending = append(m.pending, next)
	m.mu.Unlock()
}

// notify delivers queued transitions. It must not be called with opMu held.
// A nested call from a subscriber returns at once and the outer loop picks up
// whatever the subscriber committed.
func (m *Manager) notify() {
	m.mu.Lock()
	if m.delivering {
		m.mu.Unlock()
		return
	}
	m.delivering = true

	for len(m.pending) > 0 {
		next := m.pending[0]
		m.pending = m.pending[1:]
		subs := make([]func(State), 0, len(m.subs))
		for _, fn := range m.subs {
			subs = append(subs, fn)
		}
		m.mu.Unlock()

		for _, fn := range subs {
			fn(next)
		}

		m.mu.Lock()
	}
	m.delivering = false
	m.mu.Unlock()
}

func (m *Manager) setLoading() {
	s := m.State()
	s.Phase = PhaseLoading
	s.Loading = true
	s.Err = ""
	m.commit(s)
}

func anonymous(errMsg string) State {
	return State{Phase: PhaseAnonymous, Err: errMsg}
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// Bootstrap fetches the current user and settles into Authenticated or
// Anonymous. A failure is never fatal: the error is recorded in State.Err and
// also returned for callers that want it.
func (m *Manager) Bootstrap(ctx context.Context) error {
	_, err := m.fetch(ctx)
	return err
}

// Refresh re-validates the session with the backend.
func (m *Manager) Refresh(ctx context.Context) error {
	return m.Bootstrap(ctx)
}

// fetch coalesces concurrent callers onto one in-flight current-user call.
func (m *Manager) fetch(ctx context.Context) (*client.User, error) {
	m.flightMu.Lock()
	if call := m.flight; call != nil {
		m.flightMu.Unlock()
		select {
		case <-call.done:
			return call.user, call.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	call := &fetchCall{done: make(chan struct{})}
	m.flight = call
	m.flightMu.Unlock()

	m.opMu.Lock()
	if err := ctx.Err(); err != nil {
		// Gave up while another operation ran; leave its result in place.
		call.err = err
	} else {
		call.user, call.err = m.fetchLocked(ctx, m.State())
	}
	m.opMu.Unlock()

	m.flightMu.Lock()
	m.flight = nil
	m.flightMu.Unlock()
	close(call.done)

	m.notify()
	return call.user, call.err
}

// fetchLocked requires opMu. A cancelled fetch is no verdict on the
// credential, so prev is restored instead of settling into Anonymous.
func (m *Manager) fetchLocked(ctx context.Context, prev State) (*client.User, error) {
	m.setLoading()

	user, err := m.api.CurrentUser(ctx)
	if err != nil {
		if isCancellation(err) {
			m.logger.Debug().Err(err).Msg("Session check cancelled")
			m.commit(prev)
			return nil, err
		}
		m.logger.Debug().Err(err).Msg("No valid session")
		m.commit(anonymous(apierr.Message(err)))
		return nil, err
	}

	m.logger.Debug().Str("user_id", user.ID).Msg("Session established")
	m.commit(State{Phase: PhaseAuthenticated, User: user, Authenticated: true})
	return user, nil
}

// SignIn authenticates and then re-reads the current user from the backend.
// On failure the session is Anonymous, State.Err holds the reason, and the
// error is returned so the caller can keep its form open.
func (m *Manager) SignIn(ctx context.Context, email, password string) error {
	return m.authenticate(ctx, "sign in", m.api.SignIn, email, password)
}

// SignUp registers and signs in; same contract as SignIn.
func (m *Manager) SignUp(ctx context.Context, email, password string) error {
	return m.authenticate(ctx, "sign up", m.api.SignUp, email, password)
}

func (m *Manager) authenticate(ctx context.Context, action string, call func(context.Context, string, string) error, email, password string) error {
	defer m.notify()
	m.opMu.Lock()
	defer m.opMu.Unlock()

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s cancelled: %w", action, err)
	}

	if err := validate.Credentials(email, password); err != nil {
		// Rejected before any request; an existing session is left alone.
		s := m.State()
		if s.Phase == PhaseUninitialized || s.Phase == PhaseLoading {
			s.Phase = PhaseAnonymous
		}
		s.Loading = false
		s.Err = apierr.Message(err)
		m.commit(s)
		return err
	}

	prev := m.State()
	m.setLoading()

	if err := call(ctx, email, password); err != nil {
		if isCancellation(err) {
			m.commit(prev)
			return fmt.Errorf("%s cancelled: %w", action, err)
		}
		m.logger.Info().Err(err).Str("email", email).Msgf("Failed to %s", action)
		m.commit(anonymous(apierr.Message(err)))
		return fmt.Errorf("%s failed: %w", action, err)
	}

	if _, err := m.fetchLocked(ctx, prev); err != nil {
		return fmt.Errorf("%s succeeded but the session could not be verified: %w", action, err)
	}
	return nil
}

// SignOut ends the session. The backend call is best-effort: whatever it
// returns, local state is reset to Anonymous and OnSignedOut fires.
func (m *Manager) SignOut(ctx context.Context) {
	m.opMu.Lock()
	if err := m.api.SignOut(ctx); err != nil {
		m.logger.Warn().Err(err).Msg("Sign out failed on server; local session cleared")
	}
	m.commit(anonymous(""))
	m.opMu.Unlock()

	m.notify()
	if m.onSignedOut != nil {
		m.onSignedOut()
	}
}

// Invalidate drops an authenticated session whose credential the backend no
// longer accepts (expired or revoked token).
func (m *Manager) Invalidate(reason string) {
	m.opMu.Lock()
	wasAuthenticated := m.State().Authenticated
	if wasAuthenticated {
		m.logger.Info().Str("reason", reason).Msg("Session expired")
		m.commit(anonymous(reason))
	}
	m.opMu.Unlock()

	m.notify()
	if wasAuthenticated && m.onSignedOut != nil {
		m.onSignedOut()
	}
}
