package models

import "github.com/shopspring/decimal"

// PortfolioStats are aggregate metrics derived from a trade history.
// They are recomputed on every fetch and never persisted.
type PortfolioStats struct {
	TotalTrades    int             `json:"total_trades"`
	ProfitLoss     decimal.Decimal `json:"profit_loss"`
	PortfolioValue decimal.Decimal `json:"portfolio_value"`
	SuccessRate    decimal.Decimal `json:"success_rate"`
}

// Equal compares stats by value.
func (s PortfolioStats) Equal(o PortfolioStats) bool {
	return s.TotalTrades == o.TotalTrades &&
		s.ProfitLoss.Equal(o.ProfitLoss) &&
		s.PortfolioValue.Equal(o.PortfolioValue) &&
		s.SuccessRate.Equal(o.SuccessRate)
}

// SymbolStats are PortfolioStats restricted to one symbol. Base capital is
// not allocated per symbol, so PortfolioValue equals ProfitLoss.
type SymbolStats struct {
	Symbol string `json:"symbol"`
	PortfolioStats
}
