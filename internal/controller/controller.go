// Package controller drives the session lifecycle: it checks the session,
// fetches trade history, computes portfolio stats and publishes view-states.
package controller

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"tradesim/internal/gateway"
	"tradesim/internal/logging"
	"tradesim/internal/models"
)

// API is the subset of the gateway the controller needs.
type API interface {
	Login(ctx context.Context, email, password string) (gateway.AuthResult, error)
	Signup(ctx context.Context, username, email, password string) (gateway.AuthResult, error)
	Profile(ctx context.Context) (models.UserIdentity, error)
	UpdateProfile(ctx context.Context, update gateway.ProfileUpdate) (models.UserIdentity, error)
	TradeHistory(ctx context.Context) ([]models.TradeRecord, error)
}

// Sessions is the session store as seen by the controller.
type Sessions interface {
	Get() models.Session
	Set(ctx context.Context, token string, user *models.UserIdentity) error
	UpdateUser(ctx context.Context, user models.UserIdentity) error
	Clear(ctx context.Context) error
	ClearIfToken(ctx context.Context, token string) (bool, error)
}

// Publisher receives every published view-state. Publish is called with
// the controller lock held and must not call back into the Controller.
type Publisher interface {
	Publish(ViewState)
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ViewState)

// Publish calls f(v).
func (f PublisherFunc) Publish(v ViewState) { f(v) }

// Controller is the session state machine.
type Controller struct {
	mu      sync.Mutex
	state   State
	epoch   uint64
	pending bool
	last    ViewState

	sessions Sessions
	api      API
	pub      Publisher
	logger   zerolog.Logger
}

// New creates a controller in the Uninitialized state.
func New(sessions Sessions, api API, pub Publisher, logger zerolog.Logger) *Controller {
	if pub == nil {
		pub = PublisherFunc(func(ViewState) {})
	}
	return &Controller{
		sessions: sessions,
		api:      api,
		pub:      pub,
		logger:   logger.With().Str("component", "controller").Logger(),
	}
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// View returns the last published view-state.
func (c *Controller) View() ViewState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

// Activate enters Checking and resolves it. While an activation is pending
// a second call is a no-op and returns false. It also returns false when
// the result was discarded because the controller was torn down meanwhile.
func (c *Controller) Activate(ctx context.Context) (ViewState, bool) {
	c.mu.Lock()
	if c.pending {
		view := c.last
		c.mu.Unlock()
		c.logger.Debug().Msg("Activation already pending")
		return view, false
	}
	c.pending = true
	epoch := c.epoch
	c.publishLocked(ViewState{State: Checking})
	c.mu.Unlock()

	return c.check(ctx, epoch)
}

// Retry re-enters Checking from a retryable Error state.
func (c *Controller) Retry(ctx context.Context) (ViewState, bool) {
	c.mu.Lock()
	if c.state != Error || !c.last.Retryable {
		view := c.last
		c.mu.Unlock()
		return view, false
	}
	c.mu.Unlock()
	return c.Activate(ctx)
}

// Teardown abandons any in-flight activation. Late responses are discarded.
func (c *Controller) Teardown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetLocked()
	c.last = ViewState{State: Uninitialized, Epoch: c.epoch}
}

// Logout clears the session and publishes a redirect. It is the only
// client-initiated teardown.
func (c *Controller) Logout(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.resetLocked()
	err := c.sessions.Clear(ctx)
	if err != nil {
		c.logger.Error().Err(err).Msg("Failed to persist logout")
	}
	c.publishLocked(ViewState{State: Uninitialized, Redirect: true})
	return err
}

func (c *Controller) check(ctx context.Context, epoch uint64) (ViewState, bool) {
	logger := logging.WithEpoch(logging.WithOperation(c.logger, "activate"), epoch)

	sess := c.sessions.Get()
	outcome := Outcome{HasToken: sess.IsAuthenticated()}
	if outcome.HasToken {
		outcome.Trades, outcome.Err = c.api.TradeHistory(ctx)
	} else {
		logger.Debug().Msg("No session, skipping fetch")
	}

	t := Decide(sess.User, outcome)

	c.mu.Lock()
	defer c.mu.Unlock()

	if epoch != c.epoch {
		logger.Debug().Uint64("current_epoch", c.epoch).Msg("Discarding stale activation result")
		return c.last, false
	}
	c.pending = false

	if t.ClearSession && !c.clearStaleLocked(ctx, sess.Token) {
		// another request already cleared this token and published the redirect
		c.state = t.Next
		t.View.Epoch = c.epoch
		c.last = t.View
		return t.View, true
	}

	if outcome.Err != nil {
		logger.Warn().Err(outcome.Err).Str("next", t.Next.String()).Msg("Activation failed")
	}
	return c.publishLocked(t.View), true
}

// handleUnauthorized applies a 401 seen outside an activation. It reports
// whether this call cleared the session.
func (c *Controller) handleUnauthorized(ctx context.Context, epoch uint64, token string, err error) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if epoch != c.epoch {
		return false
	}
	if !c.clearStaleLocked(ctx, token) {
		return false
	}
	c.publishLocked(ViewState{State: Unauthenticated, Redirect: true, Message: errorMessage(err)})
	return true
}

// clearStaleLocked clears the session if it still holds token.
func (c *Controller) clearStaleLocked(ctx context.Context, token string) bool {
	cleared, err := c.sessions.ClearIfToken(ctx, token)
	if err != nil {
		// the in-memory session is gone even if persisting failed
		c.logger.Error().Err(err).Msg("Failed to persist session clear")
	}
	return cleared
}

func (c *Controller) resetLocked() {
	c.epoch++
	c.pending = false
	c.state = Uninitialized
}

func (c *Controller) publishLocked(view ViewState) ViewState {
	view.Epoch = c.epoch
	c.state = view.State
	c.last = view
	c.pub.Publish(view)
	return view
}
