package cli

import (
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"tradesim/internal/security"
)

// addMarketCommands adds price lookup commands.
func addMarketCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newLTPCmd(app))
}

type quote struct {
	Symbol string           `json:"symbol"`
	LTP    *decimal.Decimal `json:"ltp,omitempty"`
	Error  string           `json:"error,omitempty"`
}

func newLTPCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "ltp SYMBOL [SYMBOL...]",
		Short:   "Show the last traded price of one or more symbols",
		Example: `  tradesim ltp AAPL MSFT`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.output(cmd)

			symbols := make([]string, 0, len(args))
			for _, arg := range args {
				if err := security.ValidateSymbol(arg); err != nil {
					output.Error("%s: %s", arg, describeError(err))
					return reported(err)
				}
				symbols = append(symbols, security.NormalizeSymbol(arg))
			}

			gw, err := app.Gateway(cmd.Context())
			if err != nil {
				return err
			}

			var (
				quotes  []quote
				lastErr error
			)
			for _, sym := range symbols {
				price, err := gw.LTP(cmd.Context(), sym)
				if err != nil {
					lastErr = err
					quotes = append(quotes, quote{Symbol: sym, Error: describeError(err)})
					continue
				}
				p := price
				quotes = append(quotes, quote{Symbol: sym, LTP: &p})
			}

			if output.IsJSON() {
				if err := output.JSON(quotes); err != nil {
					return err
				}
				return reported(lastErr)
			}

			table := NewTable(output, "SYMBOL", "LTP")
			for _, q := range quotes {
				if q.LTP == nil {
					table.AddRow(q.Symbol, output.ColoredString(ColorRed, q.Error))
					continue
				}
				table.AddRow(q.Symbol, output.Money(*q.LTP))
			}
			table.Render()
			return reported(lastErr)
		},
	}
}
