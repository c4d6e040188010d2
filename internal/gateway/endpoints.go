package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/shopspring/decimal"

	apperrors "tradesim/internal/errors"
	"tradesim/internal/models"
)

// API paths.
const (
	PathLogin    = "/api/auth/login"
	PathRegister = "/api/auth/register"
	PathProfile  = "/api/auth/profile"
	PathHistory  = "/api/trade/history"
	PathLTP      = "/api/stocks/ltp"
)

// AuthResult is the payload of a successful login or signup.
type AuthResult struct {
	Token string               `json:"token"`
	User  *models.UserIdentity `json:"user"`
}

// ProfileUpdate is the body of PUT /api/auth/profile. Password fields are
// omitted unless a new password is being set.
type ProfileUpdate struct {
	Name            string `json:"name"`
	CurrentPassword string `json:"currentPassword,omitempty"`
	NewPassword     string `json:"newPassword,omitempty"`
}

// Login exchanges credentials for a token.
func (c *Client) Login(ctx context.Context, email, password string) (AuthResult, error) {
	body := map[string]string{"email": email, "password": password}
	return c.authenticate(ctx, PathLogin, body)
}

// Signup registers a new account and returns its token.
func (c *Client) Signup(ctx context.Context, username, email, password string) (AuthResult, error) {
	body := map[string]string{"username": username, "email": email, "password": password}
	return c.authenticate(ctx, PathRegister, body)
}

func (c *Client) authenticate(ctx context.Context, path string, body interface{}) (AuthResult, error) {
	raw, err := c.Request(ctx, http.MethodPost, path, body, false)
	if err != nil {
		return AuthResult{}, err
	}

	var result AuthResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return AuthResult{}, malformed(err)
	}
	if result.Token == "" {
		return AuthResult{}, apperrors.NewFailureError(http.StatusOK, "response did not include a token", nil)
	}
	return result, nil
}

// Profile fetches the identity of the session user.
func (c *Client) Profile(ctx context.Context) (models.UserIdentity, error) {
	raw, err := c.Request(ctx, http.MethodGet, PathProfile, nil, true)
	if err != nil {
		return models.UserIdentity{}, err
	}
	user, err := models.DecodeUserIdentity(raw)
	if err != nil {
		return models.UserIdentity{}, malformed(err)
	}
	return user, nil
}

// UpdateProfile submits a profile change and returns the updated identity.
func (c *Client) UpdateProfile(ctx context.Context, update ProfileUpdate) (models.UserIdentity, error) {
	raw, err := c.Request(ctx, http.MethodPut, PathProfile, update, true)
	if err != nil {
		return models.UserIdentity{}, err
	}
	user, err := models.DecodeUserIdentity(raw)
	if err != nil {
		return models.UserIdentity{}, malformed(err)
	}
	return user, nil
}

// TradeHistory fetches the trade records of the session user.
func (c *Client) TradeHistory(ctx context.Context) ([]models.TradeRecord, error) {
	raw, err := c.Request(ctx, http.MethodGet, PathHistory, nil, true)
	if err != nil {
		return nil, err
	}
	trades, err := models.DecodeTradeHistory(raw)
	if err != nil {
		return nil, malformed(err)
	}
	return trades, nil
}

// LTP fetches the last traded price of symbol. No session is required.
func (c *Client) LTP(ctx context.Context, symbol string) (decimal.Decimal, error) {
	path := PathLTP + "?symbol=" + url.QueryEscape(symbol)
	raw, err := c.Request(ctx, http.MethodGet, path, nil, false)
	if err != nil {
		return decimal.Zero, err
	}

	var payload struct {
		LTP models.OptionalDecimal `json:"ltp"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return decimal.Zero, malformed(err)
	}
	if !payload.LTP.Valid {
		return decimal.Zero, apperrors.NewFailureError(http.StatusOK, "no price available for "+symbol, nil)
	}
	return payload.LTP.Decimal, nil
}

func malformed(err error) error {
	return apperrors.NewFailureError(http.StatusOK, "unexpected response from server", err)
}
