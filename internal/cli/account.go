package cli

import (
	"github.com/spf13/cobra"

	"tradesim/internal/controller"
	"tradesim/internal/models"
)

// addAccountCommands adds profile commands.
func addAccountCommands(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "View or update your profile",
	}
	cmd.AddCommand(newProfileShowCmd(app))
	cmd.AddCommand(newProfileUpdateCmd(app))
	rootCmd.AddCommand(cmd)
}

func newProfileShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Fetch and show your profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.output(cmd)
			ctl, err := app.Controller(cmd.Context())
			if err != nil {
				return err
			}

			user, err := ctl.RefreshProfile(cmd.Context())
			if err != nil {
				output.Error("Could not load profile: %s", describeError(err))
				return reported(err)
			}
			if output.IsJSON() {
				return output.JSON(user)
			}
			showProfile(output, user)
			return nil
		},
	}
}

func newProfileUpdateCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Change your display name or password",
		Example: `  tradesim profile update --name "Ana Lima"
  tradesim profile update --current-password old --new-password secret1 --confirm-password secret1`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.output(cmd)
			ctl, err := app.Controller(cmd.Context())
			if err != nil {
				return err
			}

			form := controller.ProfileForm{}
			form.Name, _ = cmd.Flags().GetString("name")
			form.CurrentPassword, _ = cmd.Flags().GetString("current-password")
			form.NewPassword, _ = cmd.Flags().GetString("new-password")
			form.ConfirmPassword, _ = cmd.Flags().GetString("confirm-password")

			if !cmd.Flags().Changed("name") {
				// default to the cached name
				if user := currentUser(app, cmd); user != nil {
					form.Name = user.Name
				}
			}

			user, err := ctl.UpdateProfile(cmd.Context(), form)
			if err != nil {
				output.Error("Profile update failed: %s", describeError(err))
				return reported(err)
			}
			if output.IsJSON() {
				return output.JSON(user)
			}
			output.Success("✓ Profile updated")
			showProfile(output, user)
			return nil
		},
	}

	cmd.Flags().String("name", "", "display name")
	cmd.Flags().String("current-password", "", "current password, required to set a new one")
	cmd.Flags().String("new-password", "", "new password, at least 6 characters")
	cmd.Flags().String("confirm-password", "", "repeat the new password")
	return cmd
}

func currentUser(app *App, cmd *cobra.Command) *models.UserIdentity {
	sessions, err := app.Sessions(cmd.Context())
	if err != nil {
		return nil
	}
	return sessions.Get().User
}

func showProfile(output *Output, user models.UserIdentity) {
	output.Printf("  ID:       %s\n", user.ID)
	output.Printf("  Username: %s\n", user.Username)
	output.Printf("  Email:    %s\n", user.Email)
	if user.Name != "" {
		output.Printf("  Name:     %s\n", user.Name)
	}
}
