// Package money parses and formats the ledger's single currency.
package money

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Symbol is the only currency the ledger knows about.
const Symbol = "₩"

var (
	// "15,5k" style: comma followed by exactly one digit and a suffix is a decimal point.
	decimalCommaRe = regexp.MustCompile(`^(\d+),(\d)([kKmM])$`)
	amountRe       = regexp.MustCompile(`^(\d+)(?:\.(\d+))?([kKmM])?$`)
)

// ParseAmount parses a single amount token such as "150K", "2.8M", "15,5k"
// or "2,800,000". The boolean is false when the token is not amount-shaped,
// which callers must treat differently from a parsed zero.
func ParseAmount(token string) (int64, bool) {
	s := strings.TrimSpace(token)
	s = strings.ReplaceAll(s, Symbol, "")
	s = strings.Join(strings.Fields(s), "")
	if s == "" {
		return 0, false
	}

	if m := decimalCommaRe.FindStringSubmatch(s); m != nil {
		s = m[1] + "." + m[2] + m[3]
	} else {
		s = strings.ReplaceAll(s, ",", "")
	}

	m := amountRe.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}

	var mult int64 = 1
	switch strings.ToUpper(m[3]) {
	case "K":
		mult = 1_000
	case "M":
		mult = 1_000_000
	}

	whole, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, false
	}

	// Fractional part is scaled with integer math and truncated.
	var f int64
	if frac := m[2]; frac != "" && mult > 1 {
		digits := len(strconv.FormatInt(mult, 10)) - 1
		if len(frac) > digits {
			frac = frac[:digits]
		}
		f, err = strconv.ParseInt(frac, 10, 64)
		if err != nil {
			return 0, false
		}
		for i := len(frac); i < digits; i++ {
			f *= 10
		}
	}

	if whole > (math.MaxInt64-f)/mult {
		return 0, false
	}
	value := whole*mult + f

	return value, true
}

// Format renders an amount the way replies show it: ₩2.8M, ₩150K, ₩900.
func Format(amount int64) string {
	sign := ""
	abs := amount
	if amount < 0 {
		sign = "-"
		abs = -amount
	}

	switch {
	case abs >= 1_000_000:
		return fmt.Sprintf("%s%s%.1fM", sign, Symbol, float64(abs)/1_000_000)
	case abs >= 1_000:
		return fmt.Sprintf("%s%s%.0fK", sign, Symbol, float64(abs)/1_000)
	}
	return fmt.Sprintf("%s%s%d", sign, Symbol, abs)
}

// FormatFull renders the exact amount with thousands separators: ₩2,800,000.
func FormatFull(amount int64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	digits := strconv.FormatInt(amount, 10)

	var sb strings.Builder
	pre := len(digits) % 3
	if pre > 0 {
		sb.WriteString(digits[:pre])
	}
	for i := pre; i < len(digits); i += 3 {
		if sb.Len() > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(digits[i : i+3])
	}
	return sign + Symbol + sb.String()
}
