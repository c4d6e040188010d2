// Package models provides domain models for the trading simulator client.
package models

import (
	"encoding/json"
	"strings"
)

// TradeSide represents the side of a trade.
type TradeSide string

const (
	TradeSideBuy  TradeSide = "buy"
	TradeSideSell TradeSide = "sell"
)

// ParseTradeSide normalizes a side as sent by the API. Unknown values are
// kept lowercased so they still render.
func ParseTradeSide(s string) TradeSide {
	return TradeSide(strings.ToLower(strings.TrimSpace(s)))
}

// IsValid returns true for buy and sell.
func (s TradeSide) IsValid() bool {
	return s == TradeSideBuy || s == TradeSideSell
}

// UserIdentity is the profile of the logged-in user.
type UserIdentity struct {
	ID       RecordID `json:"id"`
	Username string   `json:"username"`
	Email    string   `json:"email"`
	Name     string   `json:"name,omitempty"`
}

// DisplayName returns the name, falling back to the username.
func (u UserIdentity) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Username
}

// DecodeUserIdentity decodes a profile payload. The API may return the
// identity bare or wrapped as {"user": {...}}.
func DecodeUserIdentity(data []byte) (UserIdentity, error) {
	var wrapped struct {
		User *UserIdentity `json:"user"`
	}
	if err := json.Unmarshal(data, &wrapped); err == nil && wrapped.User != nil {
		return *wrapped.User, nil
	}

	var user UserIdentity
	if err := json.Unmarshal(data, &user); err != nil {
		return UserIdentity{}, err
	}
	return user, nil
}

// Session is the authenticated identity state held between login and logout.
// An empty Token means unauthenticated regardless of User.
type Session struct {
	Token string
	User  *UserIdentity
}

// IsAuthenticated returns true if a token is present.
func (s Session) IsAuthenticated() bool {
	return s.Token != ""
}

// RecordID is an identifier that the API may send as a number or a string.
type RecordID string

// UnmarshalJSON accepts JSON numbers and strings.
func (id *RecordID) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		*id = ""
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = RecordID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = RecordID(n.String())
	return nil
}
