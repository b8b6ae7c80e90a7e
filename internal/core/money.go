// Package core holds the budget and expense domain types shared by every
// layer: money as integer cents, calendar dates, entities and their
// validation rules, and the domain error taxonomy.
//
// Monetary amounts are kept as int64 cents end to end. Aggregation over the
// spent cache is therefore exact integer arithmetic; deleting every expense
// under a budget drives spent back to exactly zero, never a floating-point
// residual.
package core

import (
	"strconv"
	"strings"
	"unicode"
)

// Money is a monetary amount in cents.
type Money struct {
	Cents int64
}

// ParseAmount converts a decimal string into Money with half-up rounding on
// the third decimal place. Both dot (12.34) and comma (12,34) separators are
// accepted. Signs are rejected: amounts are strictly positive.
//
//	ParseAmount("80.25") -> Money{8025}
//	ParseAmount("1.005") -> Money{101}
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return Money{}, ErrInvalidAmount
	}

	intPart, fracPart, found := strings.Cut(s, ".")
	if found && strings.Contains(fracPart, ".") {
		return Money{}, ErrInvalidAmount
	}
	if intPart == "" {
		intPart = "0"
	}
	for _, r := range intPart + fracPart {
		if !unicode.IsDigit(r) {
			return Money{}, ErrInvalidAmount
		}
	}

	whole, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	// Guard the *100 below against overflow.
	const maxWhole = (1<<63 - 1) / 100
	if whole > maxWhole {
		return Money{}, ErrInvalidAmount
	}

	var frac int64
	if len(fracPart) > 0 {
		frac = int64(fracPart[0]-'0') * 10
		if len(fracPart) > 1 {
			frac += int64(fracPart[1] - '0')
			if len(fracPart) > 2 && fracPart[2] >= '5' {
				frac++
			}
		}
	}

	cents := whole*100 + frac
	if cents <= 0 {
		return Money{}, ErrInvalidAmount
	}
	return Money{Cents: cents}, nil
}

// Validate reports whether the amount is a usable positive value.
func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// String renders the amount with two decimals and a dot separator, the shape
// used in API responses.
func (m Money) String() string {
	cents := m.Cents
	neg := cents < 0
	if neg {
		cents = -cents
	}
	s := strconv.FormatInt(cents/100, 10) + "." + pad2(cents%100)
	if neg {
		return "-" + s
	}
	return s
}

func pad2(n int64) string {
	if n < 10 {
		return "0" + strconv.FormatInt(n, 10)
	}
	return strconv.FormatInt(n, 10)
}
