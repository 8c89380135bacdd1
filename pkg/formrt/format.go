package formrt

import (
	"math"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

const maxDecimalPlaces = 10

// CurrencySymbol prefixes currency-formatted values.
const CurrencySymbol = "$"

func parseFormat(s string) Format {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatCurrency:
		return FormatCurrency
	case FormatPercentage:
		return FormatPercentage
	default:
		return FormatNumber
	}
}

// FormatValue renders a calculation result with thousands separators and a
// fixed number of decimals. Percentages are not multiplied: 12.5 is "12.50%".
func FormatValue(v float64, format Format, decimals int) string {
	decimals = min(max(decimals, 0), maxDecimalPlaces)
	rounded := roundHalfAway(v, decimals)

	switch format {
	case FormatCurrency:
		if rounded < 0 {
			return "-" + CurrencySymbol + groupDigits(-rounded, decimals)
		}
		return CurrencySymbol + groupDigits(rounded, decimals)

	case FormatPercentage:
		return groupDigits(rounded, decimals) + "%"

	default:
		return groupDigits(rounded, decimals)
	}
}

// roundHalfAway rounds to the given decimals, halves away from zero, and
// never returns negative zero.
func roundHalfAway(v float64, decimals int) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	scale := math.Pow(10, float64(decimals))
	r := math.Round(v*scale) / scale
	if r == 0 {
		return 0
	}
	return r
}

func groupDigits(v float64, decimals int) string {
	// A printer holds an internal buffer, so one per call.
	p := message.NewPrinter(language.English)
	return p.Sprint(number.Decimal(v, number.Scale(decimals)))
}
