package controller

import (
	"tradesim/internal/analytics"
	apperrors "tradesim/internal/errors"
	"tradesim/internal/models"
)

// State is a controller lifecycle state.
type State int

const (
	Uninitialized State = iota
	Checking
	Authenticated
	Unauthenticated
	Error
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Checking:
		return "checking"
	case Authenticated:
		return "authenticated"
	case Unauthenticated:
		return "unauthenticated"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// ViewState is what the controller publishes to the presentation layer.
type ViewState struct {
	State  State                  `json:"state"`
	User   *models.UserIdentity   `json:"user,omitempty"`
	Stats  *models.PortfolioStats `json:"stats,omitempty"`
	Trades []models.TradeRecord   `json:"trades,omitempty"`

	// Message is a displayable error for the Error and Unauthenticated states.
	Message string `json:"message,omitempty"`
	// Redirect asks the presentation layer to send the user to login.
	Redirect bool `json:"redirect"`
	// Retryable marks an Error state that Retry can re-enter.
	Retryable bool `json:"retryable"`

	Epoch uint64 `json:"epoch"`
}

// MarshalText renders the state name in JSON output.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Outcome is the result of the Checking step.
type Outcome struct {
	HasToken bool
	Trades   []models.TradeRecord
	Err      error
}

// Transition is the decided next state and the effects to perform.
type Transition struct {
	Next         State
	ClearSession bool
	View         ViewState
}

// Decide computes the transition out of Checking. It performs no I/O.
func Decide(user *models.UserIdentity, o Outcome) Transition {
	if !o.HasToken {
		return Transition{
			Next: Unauthenticated,
			View: ViewState{State: Unauthenticated, Redirect: true},
		}
	}

	if o.Err != nil {
		switch apperrors.KindOf(o.Err) {
		case apperrors.KindUnauthorized:
			return Transition{
				Next:         Unauthenticated,
				ClearSession: true,
				View:         ViewState{State: Unauthenticated, Redirect: true, Message: errorMessage(o.Err)},
			}
		case apperrors.KindNoSession:
			// the token vanished between the check and the fetch
			return Transition{
				Next: Unauthenticated,
				View: ViewState{State: Unauthenticated, Redirect: true},
			}
		default:
			return Transition{
				Next: Error,
				View: ViewState{State: Error, User: user, Message: errorMessage(o.Err), Retryable: true},
			}
		}
	}

	stats := analytics.ComputeStats(o.Trades)
	return Transition{
		Next: Authenticated,
		View: ViewState{State: Authenticated, User: user, Stats: &stats, Trades: o.Trades},
	}
}

func errorMessage(err error) string {
	var apiErr *apperrors.APIError
	if apperrors.As(err, &apiErr) {
		return apiErr.Message
	}
	return err.Error()
}
