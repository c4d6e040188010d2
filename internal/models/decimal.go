package models

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// OptionalDecimal is a numeric field that may be absent or malformed in API
// payloads. Decoding never fails: anything that is not a JSON number or a
// string holding a decimal literal decodes as absent.
type OptionalDecimal struct {
	Decimal decimal.Decimal
	Valid   bool
}

// NewOptionalDecimal returns a present value.
func NewOptionalDecimal(d decimal.Decimal) OptionalDecimal {
	return OptionalDecimal{Decimal: d, Valid: true}
}

// Bounds on accepted literals. Arithmetic between decimals rescales to the
// smaller exponent, so an unbounded exponent makes a single Add unbounded.
const (
	maxLiteralLength = 64
	maxExponent      = 18
)

// ParseOptionalDecimal parses a decimal literal. Empty, whitespace-only,
// non-numeric and out-of-range strings yield an absent value.
func ParseOptionalDecimal(s string) OptionalDecimal {
	s = strings.TrimSpace(s)
	if s == "" || len(s) > maxLiteralLength {
		return OptionalDecimal{}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return OptionalDecimal{}
	}
	if exp := d.Exponent(); exp < -maxExponent || exp > maxExponent {
		return OptionalDecimal{}
	}
	return NewOptionalDecimal(d)
}

// UnmarshalJSON implements json.Unmarshaler.
func (o *OptionalDecimal) UnmarshalJSON(data []byte) error {
	*o = decodeOptionalDecimal(data)
	return nil
}

// MarshalJSON writes the number unquoted, or null when absent.
func (o OptionalDecimal) MarshalJSON() ([]byte, error) {
	if !o.Valid {
		return []byte("null"), nil
	}
	return []byte(o.Decimal.String()), nil
}

// String returns the decimal text or "-" when absent.
func (o OptionalDecimal) String() string {
	if !o.Valid {
		return "-"
	}
	return o.Decimal.String()
}

func decodeOptionalDecimal(data []byte) OptionalDecimal {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return OptionalDecimal{}
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return OptionalDecimal{}
		}
		return ParseOptionalDecimal(s)
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		return ParseOptionalDecimal(string(data))
	default:
		// null, booleans, objects and arrays
		return OptionalDecimal{}
	}
}
