package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/cobra"

	apperrors "tradesim/internal/errors"
	"tradesim/internal/models"
	"tradesim/internal/security"
)

// addAuthCommands adds authentication commands.
func addAuthCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newLoginCmd(app))
	rootCmd.AddCommand(newSignupCmd(app))
	rootCmd.AddCommand(newLogoutCmd(app))
	rootCmd.AddCommand(newStatusCmd(app))
}

func newLoginCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in to the trading simulator",
		Long: `Log in with email and password. Missing values are prompted for.

The session is stored locally and reused until you log out or the server
rejects it.`,
		Example: `  tradesim login
  tradesim login --email ana@example.com`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.output(cmd)
			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()

			p := newPrompter(cmd)
			email, _ := cmd.Flags().GetString("email")
			password, _ := cmd.Flags().GetString("password")
			if email == "" {
				email = p.ask("Email: ")
			}
			if password == "" {
				password = p.ask("Password: ")
			}

			ctl, err := app.Controller(ctx)
			if err != nil {
				return err
			}
			sess, err := ctl.Login(ctx, strings.TrimSpace(email), password)
			if err != nil {
				output.Error("Login failed: %s", describeError(err))
				return reported(err)
			}
			return showSession(output, sess, "✓ Logged in")
		},
	}

	cmd.Flags().String("email", "", "account email")
	cmd.Flags().String("password", "", "account password (prompted when omitted)")
	return cmd
}

func newSignupCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create a new simulator account",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.output(cmd)
			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()

			p := newPrompter(cmd)
			username, _ := cmd.Flags().GetString("username")
			email, _ := cmd.Flags().GetString("email")
			password, _ := cmd.Flags().GetString("password")
			if username == "" {
				username = p.ask("Username: ")
			}
			if email == "" {
				email = p.ask("Email: ")
			}
			if password == "" {
				password = p.ask("Password: ")
			}

			ctl, err := app.Controller(ctx)
			if err != nil {
				return err
			}
			sess, err := ctl.Signup(ctx, strings.TrimSpace(username), strings.TrimSpace(email), password)
			if err != nil {
				output.Error("Signup failed: %s", describeError(err))
				return reported(err)
			}
			return showSession(output, sess, "✓ Account created")
		},
	}

	cmd.Flags().String("username", "", "username")
	cmd.Flags().String("email", "", "account email")
	cmd.Flags().String("password", "", "password, at least 6 characters (prompted when omitted)")
	return cmd
}

func newLogoutCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.output(cmd)
			ctl, err := app.Controller(cmd.Context())
			if err != nil {
				return err
			}
			if err := ctl.Logout(cmd.Context()); err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]bool{"authenticated": false})
			}
			output.Success("✓ Logged out")
			return nil
		},
	}
}

func newStatusCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the stored session without contacting the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.output(cmd)
			sessions, err := app.Sessions(cmd.Context())
			if err != nil {
				return err
			}
			return showSession(output, sessions.Get(), "")
		},
	}
}

type sessionStatus struct {
	Authenticated bool                 `json:"authenticated"`
	User          *models.UserIdentity `json:"user,omitempty"`
	Token         string               `json:"token,omitempty"`
	ExpiresAt     *time.Time           `json:"expires_at,omitempty"`
}

func showSession(output *Output, sess models.Session, headline string) error {
	status := sessionStatus{
		Authenticated: sess.IsAuthenticated(),
		Token:         security.MaskCredential(sess.Token),
		ExpiresAt:     tokenExpiry(sess.Token),
	}
	if status.Authenticated {
		status.User = sess.User
	}

	if output.IsJSON() {
		return output.JSON(status)
	}

	if !status.Authenticated {
		output.Warning("Not logged in. Run 'tradesim login' to start a session.")
		return nil
	}
	if headline != "" {
		output.Success(headline)
	}
	if sess.User != nil {
		output.Printf("  User:    %s (%s)\n", sess.User.DisplayName(), sess.User.Email)
	}
	output.Printf("  Token:   %s\n", status.Token)
	if status.ExpiresAt != nil {
		output.Printf("  Expires: %s\n", FormatDateTime(*status.ExpiresAt))
	}
	return nil
}

// tokenExpiry reads the exp claim of a JWT without verifying it.
func tokenExpiry(token string) *time.Time {
	if token == "" {
		return nil
	}
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil || claims.ExpiresAt == nil {
		return nil
	}
	t := claims.ExpiresAt.Time
	return &t
}

// describeError turns a command error into a one-line message.
func describeError(err error) string {
	var validation *apperrors.ValidationError
	if errors.As(err, &validation) {
		return validation.Message
	}

	var apiErr *apperrors.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Kind {
		case apperrors.KindNoSession:
			return "not logged in, run 'tradesim login'"
		}
		if apiErr.StatusCode > 0 {
			return fmt.Sprintf("%s (HTTP %d)", apiErr.Message, apiErr.StatusCode)
		}
		return apiErr.Message
	}
	return err.Error()
}

// reportedError marks an error the command already printed.
type reportedError struct{ err error }

func (r reportedError) Error() string { return r.err.Error() }
func (r reportedError) Unwrap() error { return r.err }

func reported(err error) error {
	if err == nil {
		return nil
	}
	return reportedError{err}
}

// prompter reads answers from the command's stdin.
type prompter struct {
	in  *bufio.Reader
	out io.Writer
}

func newPrompter(cmd *cobra.Command) *prompter {
	return &prompter{in: bufio.NewReader(cmd.InOrStdin()), out: cmd.ErrOrStderr()}
}

func (p *prompter) ask(label string) string {
	fmt.Fprint(p.out, label)
	line, _ := p.in.ReadString('\n')
	return strings.TrimRight(line, "\r\n")
}
