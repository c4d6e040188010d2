package controller

import (
	"context"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	apperrors "tradesim/internal/errors"
	"tradesim/internal/gateway"
	"tradesim/internal/models"
	"tradesim/internal/session"
	"tradesim/internal/store"
)

// fakeAPI is a scripted API. Nil funcs fail the test when called.
type fakeAPI struct {
	t  *testing.T
	mu sync.Mutex

	calls map[string]int

	login         func(email, password string) (gateway.AuthResult, error)
	signup        func(username, email, password string) (gateway.AuthResult, error)
	profile       func() (models.UserIdentity, error)
	updateProfile func(gateway.ProfileUpdate) (models.UserIdentity, error)
	tradeHistory  func() ([]models.TradeRecord, error)
}

func newFakeAPI(t *testing.T) *fakeAPI {
	return &fakeAPI{t: t, calls: make(map[string]int)}
}

func (f *fakeAPI) record(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[name]++
}

func (f *fakeAPI) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeAPI) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *fakeAPI) Login(ctx context.Context, email, password string) (gateway.AuthResult, error) {
	f.record("login")
	if f.login == nil {
		f.t.Error("unexpected Login call")
		return gateway.AuthResult{}, apperrors.NewFailureError(500, "unexpected", nil)
	}
	return f.login(email, password)
}

func (f *fakeAPI) Signup(ctx context.Context, username, email, password string) (gateway.AuthResult, error) {
	f.record("signup")
	if f.signup == nil {
		f.t.Error("unexpected Signup call")
		return gateway.AuthResult{}, apperrors.NewFailureError(500, "unexpected", nil)
	}
	return f.signup(username, email, password)
}

func (f *fakeAPI) Profile(ctx context.Context) (models.UserIdentity, error) {
	f.record("profile")
	if f.profile == nil {
		f.t.Error("unexpected Profile call")
		return models.UserIdentity{}, apperrors.NewFailureError(500, "unexpected", nil)
	}
	return f.profile()
}

func (f *fakeAPI) UpdateProfile(ctx context.Context, update gateway.ProfileUpdate) (models.UserIdentity, error) {
	f.record("update_profile")
	if f.updateProfile == nil {
		f.t.Error("unexpected UpdateProfile call")
		return models.UserIdentity{}, apperrors.NewFailureError(500, "unexpected", nil)
	}
	return f.updateProfile(update)
}

func (f *fakeAPI) TradeHistory(ctx context.Context) ([]models.TradeRecord, error) {
	f.record("trade_history")
	if f.tradeHistory == nil {
		f.t.Error("unexpected TradeHistory call")
		return nil, apperrors.NewFailureError(500, "unexpected", nil)
	}
	return f.tradeHistory()
}

// recorder collects published view-states.
type recorder struct {
	mu    sync.Mutex
	views []ViewState
}

func (r *recorder) Publish(v ViewState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.views = append(r.views, v)
}

func (r *recorder) all() []ViewState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ViewState(nil), r.views...)
}

func (r *recorder) redirects() int {
	n := 0
	for _, v := range r.all() {
		if v.Redirect {
			n++
		}
	}
	return n
}

func (r *recorder) states() []State {
	var out []State
	for _, v := range r.all() {
		out = append(out, v.State)
	}
	return out
}

type fixture struct {
	ctl      *Controller
	api      *fakeAPI
	sessions *session.Store
	pub      *recorder
}

func newFixture(t *testing.T, token string) *fixture {
	t.Helper()
	ctx := context.Background()
	sessions, err := session.Open(ctx, store.NewMemoryStore(), zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if token != "" {
		if err := sessions.Set(ctx, token, &models.UserIdentity{ID: "3", Username: "ana", Email: "ana@example.com"}); err != nil {
			t.Fatal(err)
		}
	}

	api := newFakeAPI(t)
	pub := &recorder{}
	return &fixture{
		ctl:      New(sessions, api, pub, zerolog.Nop()),
		api:      api,
		sessions: sessions,
		pub:      pub,
	}
}

func trade(symbol, pl string) models.TradeRecord {
	rec := models.TradeRecord{Symbol: symbol, Side: models.TradeSideSell}
	if pl != "" {
		rec.ProfitLoss = models.NewOptionalDecimal(decimal.RequireFromString(pl))
	}
	return rec
}

// gate blocks callers until released and reports arrivals.
type gate struct {
	arrived chan struct{}
	release chan struct{}
}

func newGate() *gate {
	return &gate{arrived: make(chan struct{}, 16), release: make(chan struct{})}
}

func (g *gate) wait() {
	g.arrived <- struct{}{}
	<-g.release
}

func (g *gate) awaitArrivals(n int) {
	for i := 0; i < n; i++ {
		<-g.arrived
	}
}
