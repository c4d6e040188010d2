package cli

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"tradesim/internal/analytics"
	"tradesim/internal/controller"
	apperrors "tradesim/internal/errors"
	"tradesim/internal/models"
	"tradesim/pkg/utils"
)

// recentTrades is how many trades the dashboard lists.
const recentTrades = 5

// addPortfolioCommands adds dashboard and history commands.
func addPortfolioCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newDashboardCmd(app))
	rootCmd.AddCommand(newHistoryCmd(app))
}

func newDashboardCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Show portfolio value, profit/loss and success rate",
		Long: `Fetch the trade history and show portfolio statistics.

Portfolio value is the starting capital plus realized profit/loss. A trade
counts as successful when its profit/loss is positive.`,
		Example: `  tradesim dashboard
  tradesim dashboard --retries 3`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.output(cmd)
			retries, _ := cmd.Flags().GetInt("retries")

			view, err := activate(cmd.Context(), app, retries)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				if err := output.JSON(view); err != nil {
					return err
				}
				return viewError(view)
			}
			if view.State != controller.Authenticated {
				return renderFailure(output, view)
			}

			renderDashboard(output, view)
			return nil
		},
	}

	cmd.Flags().Int("retries", 0, "retry this many times when the server is unreachable")
	return cmd
}

func newHistoryCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List trade history",
		Example: `  tradesim history --limit 20
  tradesim history --by-symbol`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.output(cmd)
			bySymbol, _ := cmd.Flags().GetBool("by-symbol")
			limit, _ := cmd.Flags().GetInt("limit")

			view, err := activate(cmd.Context(), app, 0)
			if err != nil {
				return err
			}
			if view.State != controller.Authenticated {
				if output.IsJSON() {
					if err := output.JSON(view); err != nil {
						return err
					}
					return viewError(view)
				}
				return renderFailure(output, view)
			}

			if bySymbol {
				groups := analytics.BySymbol(view.Trades)
				if output.IsJSON() {
					return output.JSON(groups)
				}
				renderSymbolStats(output, groups)
				return nil
			}

			trades := newestFirst(view.Trades)
			if limit > 0 && len(trades) > limit {
				trades = trades[:limit]
			}
			if output.IsJSON() {
				return output.JSON(trades)
			}
			renderTrades(output, trades)
			return nil
		},
	}

	cmd.Flags().Bool("by-symbol", false, "aggregate statistics per symbol")
	cmd.Flags().Int("limit", 0, "show at most this many trades (0 for all)")
	return cmd
}

// activate runs the controller, retrying an unreachable server.
func activate(ctx context.Context, app *App, retries int) (controller.ViewState, error) {
	ctl, err := app.Controller(ctx)
	if err != nil {
		return controller.ViewState{}, err
	}

	view, _ := ctl.Activate(ctx)
	if view.State != controller.Error || retries <= 0 {
		return view, nil
	}

	cfg := utils.DefaultRetryConfig()
	cfg.MaxAttempts = retries
	cfg.ShouldRetry = func(error) bool { return view.Retryable }

	err = utils.Retry(ctx, cfg, func(attempt int) error {
		app.Logger.Info().Int("attempt", attempt+1).Int("retries", retries).Msg("Retrying dashboard fetch")
		view, _ = ctl.Retry(ctx)
		return viewError(view)
	})
	if err != nil && ctx.Err() != nil {
		return view, ctx.Err()
	}
	return view, nil
}

// viewError is the command error for a non-authenticated view.
func viewError(view controller.ViewState) error {
	switch view.State {
	case controller.Authenticated:
		return nil
	case controller.Error:
		return apperrors.Wrap(apperrors.ErrRequestFailed, view.Message)
	default:
		return apperrors.ErrNoSession
	}
}

func renderFailure(output *Output, view controller.ViewState) error {
	if view.Redirect {
		if view.Message != "" {
			output.Warning("Session ended: %s", view.Message)
		}
		output.Warning("Not logged in. Run 'tradesim login' to start a session.")
	} else {
		output.Error("Could not load trades: %s", view.Message)
		if view.Retryable {
			output.Dim("Your session is intact. Run the command again or pass --retries.")
		}
	}
	return reported(viewError(view))
}

func renderDashboard(output *Output, view controller.ViewState) {
	stats := view.Stats
	name := "trader"
	if view.User != nil {
		name = view.User.DisplayName()
	}

	output.Box(fmt.Sprintf("Portfolio of %s", name), []string{
		fmt.Sprintf("Portfolio value:  %s", output.Money(stats.PortfolioValue)),
		fmt.Sprintf("Profit/loss:      %s", output.PnL(stats.ProfitLoss)),
		fmt.Sprintf("Total trades:     %d", stats.TotalTrades),
		fmt.Sprintf("Success rate:     %s", FormatPercent(stats.SuccessRate)),
		fmt.Sprintf("Starting capital: %s", output.Money(analytics.BaseCapital)),
	})

	if len(view.Trades) == 0 {
		output.Dim("No trades yet.")
		return
	}

	output.Println()
	output.Bold("Recent trades")
	trades := newestFirst(view.Trades)
	if len(trades) > recentTrades {
		trades = trades[:recentTrades]
	}
	renderTrades(output, trades)
}

func renderTrades(output *Output, trades []models.TradeRecord) {
	if len(trades) == 0 {
		output.Dim("No trades yet.")
		return
	}

	table := NewTable(output, "DATE", "SYMBOL", "SIDE", "QTY", "PRICE", "P/L", "STATUS")
	for _, t := range trades {
		pl := "-"
		if t.ProfitLoss.Valid {
			pl = output.PnL(t.ProfitLoss.Decimal)
		}
		price := "-"
		if t.Price.Valid {
			price = output.Money(t.Price.Decimal)
		}
		table.AddRow(
			FormatDateTime(t.CreatedAt),
			t.Symbol,
			string(t.Side),
			FormatOptional(t.Quantity),
			price,
			pl,
			TruncateString(t.Status, 12),
		)
	}
	table.Render()
}

func renderSymbolStats(output *Output, groups []models.SymbolStats) {
	if len(groups) == 0 {
		output.Dim("No trades yet.")
		return
	}

	table := NewTable(output, "SYMBOL", "TRADES", "P/L", "SUCCESS")
	for _, g := range groups {
		table.AddRow(g.Symbol, fmt.Sprintf("%d", g.TotalTrades), output.PnL(g.ProfitLoss), FormatPercent(g.SuccessRate))
	}
	table.Render()
}

// newestFirst returns a copy of trades sorted by creation time, newest
// first. Trades without a timestamp keep their order at the end.
func newestFirst(trades []models.TradeRecord) []models.TradeRecord {
	sorted := make([]models.TradeRecord, len(trades))
	copy(sorted, trades)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i].CreatedAt, sorted[j].CreatedAt
		if a.IsZero() != b.IsZero() {
			return b.IsZero()
		}
		return a.After(b)
	})
	return sorted
}
