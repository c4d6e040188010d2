package controller

import (
	"context"
	"reflect"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	apperrors "tradesim/internal/errors"
	"tradesim/internal/models"
)

func TestActivateWithoutTokenSkipsNetwork(t *testing.T) {
	f := newFixture(t, "")

	view, ok := f.ctl.Activate(context.Background())
	if !ok {
		t.Fatal("activation should complete")
	}
	if view.State != Unauthenticated || !view.Redirect {
		t.Errorf("view = %+v", view)
	}
	if n := f.api.total(); n != 0 {
		t.Errorf("expected no API calls, got %d", n)
	}
	if got := f.pub.states(); !reflect.DeepEqual(got, []State{Checking, Unauthenticated}) {
		t.Errorf("published states = %v", got)
	}
}

func TestActivateAuthenticated(t *testing.T) {
	f := newFixture(t, "tok")
	f.api.tradeHistory = func() ([]models.TradeRecord, error) {
		return []models.TradeRecord{trade("AAPL", "500"), trade("MSFT", "-200"), trade("TSLA", "300")}, nil
	}

	view, _ := f.ctl.Activate(context.Background())

	if view.State != Authenticated || f.ctl.State() != Authenticated {
		t.Fatalf("view = %+v", view)
	}
	if view.User == nil || view.User.Username != "ana" {
		t.Errorf("user = %+v", view.User)
	}
	if len(view.Trades) != 3 || view.Stats.TotalTrades != 3 {
		t.Errorf("trades = %d, stats = %+v", len(view.Trades), view.Stats)
	}
	if !view.Stats.PortfolioValue.Equal(decimal.NewFromInt(100600)) {
		t.Errorf("portfolio value = %s", view.Stats.PortfolioValue)
	}
	if !view.Stats.SuccessRate.Equal(decimal.RequireFromString("66.7")) {
		t.Errorf("success rate = %s", view.Stats.SuccessRate)
	}
}

func TestActivateUnauthorizedClearsSession(t *testing.T) {
	f := newFixture(t, "expired")
	f.api.tradeHistory = func() ([]models.TradeRecord, error) {
		return nil, apperrors.NewUnauthorizedError("Token expired")
	}

	view, _ := f.ctl.Activate(context.Background())

	if view.State != Unauthenticated || !view.Redirect || view.Message != "Token expired" {
		t.Errorf("view = %+v", view)
	}
	if f.sessions.IsAuthenticated() {
		t.Error("session should be cleared")
	}
	if f.pub.redirects() != 1 {
		t.Errorf("redirects = %d", f.pub.redirects())
	}
}

func TestActivateFailureKeepsSession(t *testing.T) {
	f := newFixture(t, "tok")
	fail := true
	f.api.tradeHistory = func() ([]models.TradeRecord, error) {
		if fail {
			return nil, apperrors.NewFailureError(0, "unable to reach the trading server", nil)
		}
		return []models.TradeRecord{trade("AAPL", "10")}, nil
	}

	view, _ := f.ctl.Activate(context.Background())
	if view.State != Error || !view.Retryable || view.Redirect {
		t.Fatalf("view = %+v", view)
	}
	if view.Message != "unable to reach the trading server" {
		t.Errorf("message = %q", view.Message)
	}
	if !f.sessions.IsAuthenticated() {
		t.Fatal("a failure must not clear the session")
	}

	fail = false
	view, ok := f.ctl.Retry(context.Background())
	if !ok || view.State != Authenticated {
		t.Errorf("retry view = %+v, %v", view, ok)
	}
	if n := f.api.count("trade_history"); n != 2 {
		t.Errorf("trade history calls = %d", n)
	}
}

func TestRetryOutsideErrorIsNoop(t *testing.T) {
	f := newFixture(t, "")
	if _, ok := f.ctl.Retry(context.Background()); ok {
		t.Error("retry from Uninitialized should be a no-op")
	}
	if len(f.pub.all()) != 0 {
		t.Error("nothing should be published")
	}
}

func TestSecondActivationWhilePendingIsNoop(t *testing.T) {
	f := newFixture(t, "tok")
	g := newGate()
	f.api.tradeHistory = func() ([]models.TradeRecord, error) {
		g.wait()
		return []models.TradeRecord{trade("AAPL", "1")}, nil
	}

	done := make(chan ViewState)
	go func() {
		view, _ := f.ctl.Activate(context.Background())
		done <- view
	}()
	g.awaitArrivals(1)

	view, ok := f.ctl.Activate(context.Background())
	if ok {
		t.Error("second activation should be a no-op")
	}
	if view.State != Checking {
		t.Errorf("pending view = %+v", view)
	}

	close(g.release)
	if first := <-done; first.State != Authenticated {
		t.Errorf("first activation = %+v", first)
	}
	if n := f.api.count("trade_history"); n != 1 {
		t.Errorf("trade history calls = %d, want 1", n)
	}
}

func TestTeardownDiscardsLateResponse(t *testing.T) {
	f := newFixture(t, "tok")
	g := newGate()
	f.api.tradeHistory = func() ([]models.TradeRecord, error) {
		g.wait()
		return []models.TradeRecord{trade("AAPL", "1")}, nil
	}

	type result struct {
		view ViewState
		ok   bool
	}
	done := make(chan result)
	go func() {
		view, ok := f.ctl.Activate(context.Background())
		done <- result{view, ok}
	}()
	g.awaitArrivals(1)

	f.ctl.Teardown()
	close(g.release)

	r := <-done
	if r.ok {
		t.Error("late response should be discarded")
	}
	if f.ctl.State() != Uninitialized {
		t.Errorf("state = %v", f.ctl.State())
	}
	for _, v := range f.pub.all() {
		if v.State == Authenticated {
			t.Error("stale result was published")
		}
	}
}

func TestTeardownDiscardsLateUnauthorized(t *testing.T) {
	f := newFixture(t, "tok")
	g := newGate()
	f.api.tradeHistory = func() ([]models.TradeRecord, error) {
		g.wait()
		return nil, apperrors.NewUnauthorizedError("")
	}

	done := make(chan struct{})
	go func() {
		f.ctl.Activate(context.Background())
		close(done)
	}()
	g.awaitArrivals(1)
	f.ctl.Teardown()
	close(g.release)
	<-done

	if f.pub.redirects() != 0 {
		t.Error("a torn-down activation must not publish")
	}
}

func TestConcurrentUnauthorizedClearsOnce(t *testing.T) {
	for i := 0; i < 20; i++ {
		f := newFixture(t, "tok")
		g := newGate()
		f.api.tradeHistory = func() ([]models.TradeRecord, error) {
			g.wait()
			return nil, apperrors.NewUnauthorizedError("")
		}
		f.api.profile = func() (models.UserIdentity, error) {
			g.wait()
			return models.UserIdentity{}, apperrors.NewUnauthorizedError("")
		}

		var wg sync.WaitGroup
		wg.Add(3)
		go func() {
			defer wg.Done()
			f.ctl.Activate(context.Background())
		}()
		go func() {
			defer wg.Done()
			f.ctl.RefreshProfile(context.Background())
		}()
		go func() {
			defer wg.Done()
			f.ctl.RefreshProfile(context.Background())
		}()
		g.awaitArrivals(3)
		close(g.release)
		wg.Wait()

		if n := f.pub.redirects(); n != 1 {
			t.Fatalf("run %d: redirects = %d, want 1", i, n)
		}
		if f.sessions.IsAuthenticated() {
			t.Fatalf("run %d: session not cleared", i)
		}
		if f.ctl.State() != Unauthenticated {
			t.Fatalf("run %d: state = %v", i, f.ctl.State())
		}
	}
}

func TestActivationIsIdempotent(t *testing.T) {
	f := newFixture(t, "tok")
	f.api.tradeHistory = func() ([]models.TradeRecord, error) {
		return []models.TradeRecord{trade("AAPL", "12.5"), trade("AAPL", ""), trade("MSFT", "-3")}, nil
	}

	first, _ := f.ctl.Activate(context.Background())
	second, _ := f.ctl.Activate(context.Background())

	if !first.Stats.Equal(*second.Stats) {
		t.Errorf("stats differ: %+v vs %+v", first.Stats, second.Stats)
	}
}

func TestLogout(t *testing.T) {
	f := newFixture(t, "tok")
	f.api.tradeHistory = func() ([]models.TradeRecord, error) { return nil, nil }
	f.ctl.Activate(context.Background())

	if err := f.ctl.Logout(context.Background()); err != nil {
		t.Fatal(err)
	}
	if f.sessions.IsAuthenticated() {
		t.Error("logout should clear the session")
	}
	if f.ctl.State() != Uninitialized {
		t.Errorf("state = %v", f.ctl.State())
	}
	last := f.ctl.View()
	if !last.Redirect {
		t.Errorf("logout should publish a redirect, got %+v", last)
	}
}

func TestLogoutDiscardsInFlightActivation(t *testing.T) {
	f := newFixture(t, "tok")
	g := newGate()
	f.api.tradeHistory = func() ([]models.TradeRecord, error) {
		g.wait()
		return []models.TradeRecord{trade("AAPL", "1")}, nil
	}

	done := make(chan bool)
	go func() {
		_, ok := f.ctl.Activate(context.Background())
		done <- ok
	}()
	g.awaitArrivals(1)
	f.ctl.Logout(context.Background())
	close(g.release)

	if <-done {
		t.Error("activation from before logout should be discarded")
	}
	if f.ctl.State() != Uninitialized {
		t.Errorf("state = %v", f.ctl.State())
	}
}
