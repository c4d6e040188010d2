package controller

import (
	"context"

	apperrors "tradesim/internal/errors"
	"tradesim/internal/gateway"
	"tradesim/internal/logging"
	"tradesim/internal/models"
	"tradesim/internal/security"
)

// ProfileForm is the profile edit form. Password fields are only sent
// when NewPassword is set.
type ProfileForm struct {
	Name            string
	CurrentPassword string
	NewPassword     string
	ConfirmPassword string
}

// Login validates the credentials, authenticates and stores the session.
// Any in-flight activation belongs to the previous session and is
// discarded.
func (c *Controller) Login(ctx context.Context, email, password string) (models.Session, error) {
	if err := security.ValidateCredentials(email, password); err != nil {
		return models.Session{}, err
	}
	result, err := c.api.Login(ctx, email, password)
	if err != nil {
		return models.Session{}, err
	}
	return c.establish(ctx, result)
}

// Signup validates the form, registers the account and stores the session.
func (c *Controller) Signup(ctx context.Context, username, email, password string) (models.Session, error) {
	if err := security.ValidateSignup(username, email, password); err != nil {
		return models.Session{}, err
	}
	result, err := c.api.Signup(ctx, username, email, password)
	if err != nil {
		return models.Session{}, err
	}
	return c.establish(ctx, result)
}

func (c *Controller) establish(ctx context.Context, result gateway.AuthResult) (models.Session, error) {
	c.mu.Lock()
	c.resetLocked()
	err := c.sessions.Set(ctx, result.Token, result.User)
	c.last = ViewState{State: Uninitialized, Epoch: c.epoch}
	c.mu.Unlock()
	if err != nil {
		return models.Session{}, err
	}

	if result.User == nil {
		// older servers return only the token
		if _, err := c.RefreshProfile(ctx); err != nil {
			c.logger.Warn().Err(err).Msg("Logged in but failed to fetch profile")
		}
	}
	return c.sessions.Get(), nil
}

// RefreshProfile re-fetches the identity and replaces the cached user.
func (c *Controller) RefreshProfile(ctx context.Context) (models.UserIdentity, error) {
	epoch, token := c.begin()

	user, err := c.api.Profile(ctx)
	if err != nil {
		c.onError(ctx, "refresh_profile", epoch, token, err)
		return models.UserIdentity{}, err
	}
	if err := c.adoptUser(ctx, epoch, user); err != nil {
		return models.UserIdentity{}, err
	}
	return user, nil
}

// UpdateProfile validates the form, submits it and caches the returned
// identity. Validation failures never reach the network.
func (c *Controller) UpdateProfile(ctx context.Context, form ProfileForm) (models.UserIdentity, error) {
	if err := security.ValidatePasswordChange(form.CurrentPassword, form.NewPassword, form.ConfirmPassword); err != nil {
		return models.UserIdentity{}, err
	}

	update := gateway.ProfileUpdate{Name: form.Name}
	if form.NewPassword != "" {
		update.CurrentPassword = form.CurrentPassword
		update.NewPassword = form.NewPassword
	}

	epoch, token := c.begin()

	user, err := c.api.UpdateProfile(ctx, update)
	if err != nil {
		c.onError(ctx, "update_profile", epoch, token, err)
		return models.UserIdentity{}, err
	}
	if err := c.adoptUser(ctx, epoch, user); err != nil {
		return models.UserIdentity{}, err
	}
	return user, nil
}

// begin captures the epoch and the token a request is issued under.
func (c *Controller) begin() (uint64, string) {
	c.mu.Lock()
	epoch := c.epoch
	c.mu.Unlock()
	return epoch, c.sessions.Get().Token
}

func (c *Controller) onError(ctx context.Context, op string, epoch uint64, token string, err error) {
	logger := logging.WithEpoch(logging.WithOperation(c.logger, op), epoch)
	if apperrors.KindOf(err) == apperrors.KindUnauthorized {
		if c.handleUnauthorized(ctx, epoch, token, err) {
			logger.Info().Msg("Session rejected by server, cleared")
		}
		return
	}
	logger.Warn().Err(err).Msg("Request failed")
}

// adoptUser stores a fresh identity and republishes the authenticated view.
func (c *Controller) adoptUser(ctx context.Context, epoch uint64, user models.UserIdentity) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if epoch != c.epoch {
		return nil
	}
	if err := c.sessions.UpdateUser(ctx, user); err != nil {
		return err
	}
	if c.state == Authenticated {
		view := c.last
		u := user
		view.User = &u
		c.publishLocked(view)
	}
	return nil
}
