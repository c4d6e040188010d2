package models

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

// TradeRecord is one buy or sell event as returned by the trade history
// endpoint. The client holds a read-only snapshot; any field may be absent.
type TradeRecord struct {
	ID         RecordID        `json:"id"`
	Symbol     string          `json:"symbol"`
	Side       TradeSide       `json:"type"`
	Quantity   OptionalDecimal `json:"quantity"`
	Price      OptionalDecimal `json:"price"`
	ProfitLoss OptionalDecimal `json:"profit_loss"`
	Status     string          `json:"status"`
	CreatedAt  time.Time       `json:"created_at"`
}

// naiveTimestampLayouts are ISO forms without a zone, read as UTC.
var naiveTimestampLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// tradeRecordWire mirrors the payload with every field kept raw so a single
// malformed field never rejects the whole record.
type tradeRecordWire struct {
	ID            json.RawMessage `json:"id"`
	Symbol        json.RawMessage `json:"symbol"`
	Type          json.RawMessage `json:"type"`
	TradeType     json.RawMessage `json:"trade_type"`
	Quantity      OptionalDecimal `json:"quantity"`
	Price         OptionalDecimal `json:"price"`
	PricePerShare OptionalDecimal `json:"price_per_share"`
	ProfitLoss    OptionalDecimal `json:"profit_loss"`
	Status        json.RawMessage `json:"status"`
	CreatedAt     json.RawMessage `json:"created_at"`
}

// UnmarshalJSON decodes leniently. It only fails when the payload is not a
// JSON object.
func (t *TradeRecord) UnmarshalJSON(data []byte) error {
	var w tradeRecordWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	var id RecordID
	if len(w.ID) > 0 {
		if err := id.UnmarshalJSON(w.ID); err != nil {
			id = ""
		}
	}

	side := rawString(w.Type)
	if side == "" {
		side = rawString(w.TradeType)
	}

	price := w.Price
	if !price.Valid {
		price = w.PricePerShare
	}

	*t = TradeRecord{
		ID:         id,
		Symbol:     strings.ToUpper(strings.TrimSpace(rawString(w.Symbol))),
		Side:       ParseTradeSide(side),
		Quantity:   w.Quantity,
		Price:      price,
		ProfitLoss: w.ProfitLoss,
		Status:     rawString(w.Status),
		CreatedAt:  ParseTimestamp(rawString(w.CreatedAt)),
	}
	return nil
}

// ParseTimestamp parses RFC 3339 and the naive ISO forms the API emits.
// Malformed input yields the zero time.
func ParseTimestamp(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return ts
	}
	for _, layout := range naiveTimestampLayouts {
		if ts, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return ts
		}
	}
	return time.Time{}
}

// rawString returns the string value of a raw JSON field, or "" when the
// field is absent or not a string.
func rawString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// DecodeTradeHistory decodes the {"trades": [...]} payload of the trade
// history endpoint. Array elements that are not JSON objects are not trade
// records and are skipped; a missing or null array is an empty history.
func DecodeTradeHistory(data []byte) ([]TradeRecord, error) {
	var payload struct {
		Trades []json.RawMessage `json:"trades"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, err
	}

	trades := make([]TradeRecord, 0, len(payload.Trades))
	for _, raw := range payload.Trades {
		raw = bytes.TrimSpace(raw)
		if len(raw) == 0 || raw[0] != '{' {
			continue
		}
		var record TradeRecord
		if err := json.Unmarshal(raw, &record); err != nil {
			continue
		}
		trades = append(trades, record)
	}
	return trades, nil
}
