// Package analytics derives portfolio statistics from trade history.
//
// Every function here is pure: no I/O, no clock, no shared state. Sums use
// decimal arithmetic so the result is independent of traversal order.
package analytics

import (
	"sort"

	"github.com/shopspring/decimal"

	"tradesim/internal/models"
)

// BaseCapital is the fixed starting virtual balance against which profit
// and loss are measured.
var BaseCapital = decimal.NewFromInt(100000)

// successRatePlaces is the number of decimal places kept in SuccessRate.
const successRatePlaces = 1

var hundred = decimal.NewFromInt(100)

// accumulator is the single-pass state shared by ComputeStats and BySymbol.
type accumulator struct {
	total      int
	successful int
	profitLoss decimal.Decimal
}

func (a *accumulator) add(t models.TradeRecord) {
	a.total++
	if !t.ProfitLoss.Valid {
		return
	}
	a.profitLoss = a.profitLoss.Add(t.ProfitLoss.Decimal)
	if t.ProfitLoss.Decimal.IsPositive() {
		a.successful++
	}
}

func (a *accumulator) stats(base decimal.Decimal) models.PortfolioStats {
	return models.PortfolioStats{
		TotalTrades:    a.total,
		ProfitLoss:     a.profitLoss,
		PortfolioValue: base.Add(a.profitLoss),
		SuccessRate:    SuccessRate(a.successful, a.total),
	}
}

// ComputeStats aggregates a trade history. It is total: the empty history
// yields zero trades, zero profit/loss, BaseCapital and a zero success rate.
//
// A trade is successful iff its profit/loss is present and strictly
// positive. Trades with absent profit/loss count towards TotalTrades only.
func ComputeStats(trades []models.TradeRecord) models.PortfolioStats {
	var acc accumulator
	for _, t := range trades {
		acc.add(t)
	}
	return acc.stats(BaseCapital)
}

// SuccessRate returns 100*successful/total rounded half away from zero to
// one decimal place, or zero when total is zero.
func SuccessRate(successful, total int) decimal.Decimal {
	if total <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(successful)).
		Mul(hundred).
		Div(decimal.NewFromInt(int64(total))).
		Round(successRatePlaces)
}

// BySymbol groups trades by symbol and aggregates each group with the same
// rules as ComputeStats. Results are sorted by symbol.
func BySymbol(trades []models.TradeRecord) []models.SymbolStats {
	groups := make(map[string]*accumulator)
	for _, t := range trades {
		acc, ok := groups[t.Symbol]
		if !ok {
			acc = &accumulator{}
			groups[t.Symbol] = acc
		}
		acc.add(t)
	}

	result := make([]models.SymbolStats, 0, len(groups))
	for symbol, acc := range groups {
		result = append(result, models.SymbolStats{
			Symbol:         symbol,
			PortfolioStats: acc.stats(decimal.Zero),
		})
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Symbol < result[j].Symbol
	})
	return result
}
