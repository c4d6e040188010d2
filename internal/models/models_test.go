package models

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestOptionalDecimalDecoding(t *testing.T) {
	tests := []struct {
		name  string
		input string
		valid bool
		want  string
	}{
		{"integer", `500`, true, "500"},
		{"negative float", `-200.25`, true, "-200.25"},
		{"exponent", `1e3`, true, "1000"},
		{"numeric string", `"300"`, true, "300"},
		{"padded numeric string", `"  42.5 "`, true, "42.5"},
		{"null", `null`, false, ""},
		{"empty string", `""`, false, ""},
		{"whitespace string", `"   "`, false, ""},
		{"non numeric string", `"n/a"`, false, ""},
		{"trailing garbage", `"12abc"`, false, ""},
		{"boolean", `true`, false, ""},
		{"object", `{"amount": 5}`, false, ""},
		{"array", `[1, 2]`, false, ""},
		{"largest exponent", `1e18`, true, "1e18"},
		{"smallest exponent", `"1e-18"`, true, "0.000000000000000001"},
		{"huge exponent", `1e200000000`, false, ""},
		{"huge exponent string", `"1e200000000"`, false, ""},
		{"tiny exponent", `"1e-200000000"`, false, ""},
		{"exponent just out of range", `1e19`, false, ""},
		{"too many fraction digits", `0.0000000000000000001`, false, ""},
		{"long digit string", `"` + strings.Repeat("9", 65) + `"`, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got OptionalDecimal
			if err := json.Unmarshal([]byte(tt.input), &got); err != nil {
				t.Fatalf("decoding must never fail, got %v", err)
			}
			if got.Valid != tt.valid {
				t.Fatalf("Valid = %v, want %v", got.Valid, tt.valid)
			}
			if tt.valid && !got.Decimal.Equal(decimal.RequireFromString(tt.want)) {
				t.Errorf("value = %s, want %s", got.Decimal, tt.want)
			}
		})
	}
}

func TestOptionalDecimalMarshal(t *testing.T) {
	present := NewOptionalDecimal(decimal.RequireFromString("12.50"))
	data, err := json.Marshal(struct {
		A OptionalDecimal `json:"a"`
		B OptionalDecimal `json:"b"`
	}{A: present})
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"a":12.5,"b":null}` {
		t.Errorf("unexpected JSON: %s", data)
	}
}

func TestTradeRecordLenientDecoding(t *testing.T) {
	payload := `{
		"id": 17,
		"symbol": " aapl ",
		"trade_type": "BUY",
		"quantity": "10",
		"price_per_share": 150.25,
		"profit_loss": "oops",
		"status": "EXECUTED",
		"created_at": "2024-03-01T14:30:00.123456"
	}`

	var rec TradeRecord
	if err := json.Unmarshal([]byte(payload), &rec); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if rec.ID != "17" {
		t.Errorf("ID = %q, want 17", rec.ID)
	}
	if rec.Symbol != "AAPL" {
		t.Errorf("Symbol = %q, want AAPL", rec.Symbol)
	}
	if rec.Side != TradeSideBuy {
		t.Errorf("Side = %q, want buy", rec.Side)
	}
	if !rec.Quantity.Valid || !rec.Quantity.Decimal.Equal(decimal.NewFromInt(10)) {
		t.Errorf("Quantity = %v", rec.Quantity)
	}
	if !rec.Price.Valid || rec.Price.Decimal.String() != "150.25" {
		t.Errorf("Price = %v", rec.Price)
	}
	if rec.ProfitLoss.Valid {
		t.Error("malformed profit_loss must decode as absent")
	}
	want := time.Date(2024, 3, 1, 14, 30, 0, 123456000, time.UTC)
	if !rec.CreatedAt.Equal(want) {
		t.Errorf("CreatedAt = %v, want %v", rec.CreatedAt, want)
	}
}

func TestTradeRecordMalformedFields(t *testing.T) {
	payload := `{"id": {"x": 1}, "symbol": 5, "type": null, "created_at": "yesterday"}`

	var rec TradeRecord
	if err := json.Unmarshal([]byte(payload), &rec); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.ID != "" || rec.Symbol != "" || rec.Side != "" {
		t.Errorf("expected empty fields, got %+v", rec)
	}
	if !rec.CreatedAt.IsZero() {
		t.Errorf("expected zero time, got %v", rec.CreatedAt)
	}
	if rec.ProfitLoss.Valid {
		t.Error("missing profit_loss must be absent")
	}
}

func TestDecodeTradeHistory(t *testing.T) {
	payload := `{"trades": [
		{"id": "a", "symbol": "TSLA", "type": "sell", "profit_loss": 500},
		null,
		42,
		{"id": "b", "symbol": "MSFT", "type": "buy"}
	]}`

	trades, err := DecodeTradeHistory([]byte(payload))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(trades) != 2 {
		t.Fatalf("expected 2 records, got %d", len(trades))
	}
	if trades[0].Side != TradeSideSell || !trades[0].ProfitLoss.Valid {
		t.Errorf("unexpected first record: %+v", trades[0])
	}

	empty, err := DecodeTradeHistory([]byte(`{}`))
	if err != nil || len(empty) != 0 {
		t.Errorf("missing trades should be empty, got %v, %v", empty, err)
	}

	if _, err := DecodeTradeHistory([]byte(`{"trades": "nope"}`)); err == nil {
		t.Error("a non-array trades field should fail")
	}
}

func TestDecodeUserIdentity(t *testing.T) {
	bare := `{"id": 3, "username": "ana", "email": "ana@example.com"}`
	wrapped := `{"user": {"id": "3", "username": "ana", "email": "ana@example.com", "name": "Ana"}}`

	u1, err := DecodeUserIdentity([]byte(bare))
	if err != nil {
		t.Fatal(err)
	}
	u2, err := DecodeUserIdentity([]byte(wrapped))
	if err != nil {
		t.Fatal(err)
	}
	if u1.ID != "3" || u2.ID != "3" {
		t.Errorf("IDs = %q, %q", u1.ID, u2.ID)
	}
	if u1.DisplayName() != "ana" || u2.DisplayName() != "Ana" {
		t.Errorf("display names = %q, %q", u1.DisplayName(), u2.DisplayName())
	}
}

func TestSessionIsAuthenticated(t *testing.T) {
	user := &UserIdentity{Username: "ana"}
	if (Session{User: user}).IsAuthenticated() {
		t.Error("a user without a token is not authenticated")
	}
	if !(Session{Token: "t"}).IsAuthenticated() {
		t.Error("a token alone is authenticated")
	}
}
