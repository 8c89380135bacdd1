package formrt

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func orderFields() []Field {
	return []Field{
		{ID: "f_qty", Label: "Quantity", Type: TypeNumber},
		{ID: "f_price", Label: "Price", Type: TypeNumber},
		{ID: "f_tax", Label: "Tax", Type: TypeSlider},
		{ID: "f_note", Label: "Note", Type: TypeShortText},
	}
}

func TestCalculateByLabel(t *testing.T) {
	answers := AnswerMap{"f_qty": float64(3), "f_price": float64(10), "f_tax": float64(2)}
	formula := CalculationFormula{Expression: "{Quantity} * {Price} + {Tax}", Format: FormatCurrency, DecimalPlaces: 2}

	result := Calculate(orderFields(), answers, formula)
	assert.Equal(t, float64(32), result.Value)
	assert.Equal(t, "$32.00", result.Display)
}

func TestCalculateExpressions(t *testing.T) {
	fields := orderFields()
	answers := AnswerMap{"f_qty": "4.5", "f_price": float64(-3), "f_tax": float64(-2), "f_note": "hello"}

	tests := []struct {
		name       string
		expression string
		want       float64
	}{
		{"precedence", "2 + 3 * 4", 14},
		{"parentheses", "(2 + 3) * 4", 20},
		{"division", "{Quantity} / 2", 2.25},
		{"string answer coerces", "{f_qty} * 2", 9},
		{"negative references", "{Price} - {Tax}", -1},
		{"negative squared", "{Price} * {Price}", 9},
		{"unary minus on reference", "-{Price}", 3},
		{"non numeric answer is zero", "{Note} + 1", 1},
		{"missing answer is zero", "{Quantity} + {Missing}", 4.5},
		{"division by zero", "1 / 0", 0},
		{"zero over zero", "{Note} / {Note}", 0},
		{"identifiers are rejected", "{Quantity} + foo", 0},
		{"exponent operator is rejected", "2 ** 3", 0},
		{"modulo is rejected", "10 % 3", 0},
		{"strings are rejected", `"a" + "b"`, 0},
		{"syntax error", "{Quantity} +", 0},
		{"integer literal beyond int64", "99999999999999999999 + 1", 0},
		{"empty", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Calculate(fields, answers, CalculationFormula{Expression: tt.expression, Format: FormatNumber, DecimalPlaces: 2})
			assert.InDelta(t, tt.want, result.Value, 1e-9)
		})
	}
}

func TestCalculateFailureDisplaysZero(t *testing.T) {
	result := Calculate(nil, nil, CalculationFormula{Expression: "1 / (1 - 1)", Format: FormatPercentage, DecimalPlaces: 1})
	assert.Equal(t, CalcResult{Value: 0, Display: "0.0%"}, result)
}

func TestFindReferencePrecedence(t *testing.T) {
	fields := []Field{
		{ID: "a", Label: "b", Type: TypeNumber},
		{ID: "b", Label: "x", Type: TypeNumber},
		{ID: "c", Label: "Total", Type: TypeNumber},
		{ID: "d", Label: "Total", Type: TypeNumber},
	}

	// Ids win over labels.
	require.NotNil(t, FindReference(fields, "b"))
	assert.Equal(t, "b", FindReference(fields, "b").ID)

	// Equal labels resolve to the first in scan order.
	assert.Equal(t, "c", FindReference(fields, "Total").ID)
	assert.Nil(t, FindReference(fields, "nope"))

	answers := AnswerMap{"a": float64(100), "b": float64(7), "c": float64(1), "d": float64(2)}
	assert.Equal(t, "7.0 + 1.0", Substitute("{b} + { Total }", fields, answers))
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		name     string
		value    float64
		format   Format
		decimals int
		want     string
	}{
		{"number with separators", 1234567.891, FormatNumber, 2, "1,234,567.89"},
		{"number no decimals rounds half away", 2.5, FormatNumber, 0, "3"},
		{"negative half away", -2.5, FormatNumber, 0, "-3"},
		{"exact binary half", 0.125, FormatNumber, 2, "0.13"},
		{"pads decimals", 7, FormatNumber, 3, "7.000"},
		{"currency", 1234.5, FormatCurrency, 2, "$1,234.50"},
		{"negative currency", -5, FormatCurrency, 2, "-$5.00"},
		{"percentage is not multiplied", 12.5, FormatPercentage, 1, "12.5%"},
		{"negative zero", -0.001, FormatNumber, 2, "0.00"},
		{"unknown format is number", 3, Format("roman"), 1, "3.0"},
		{"decimals below zero clamp", 3.7, FormatNumber, -4, "4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatValue(tt.value, tt.format, tt.decimals))
		})
	}
}

func TestValidateFormula(t *testing.T) {
	fields := orderFields()

	tests := []struct {
		name       string
		expression string
		kind       FormulaErrorKind
		field      string
	}{
		{"missing field", "{Missing} + 1", FormulaUnknownField, "Missing"},
		{"empty", "   ", FormulaEmpty, ""},
		{"unclosed parenthesis", "({Quantity} + 1", FormulaUnbalanced, ""},
		{"closing before opening", ")({Quantity}", FormulaUnbalanced, ""},
		{"non numeric field", "{Note} * 2", FormulaNonNumeric, "Note"},
		{"dangling operator", "{Quantity} +", FormulaInvalid, ""},
		{"identifier", "{Quantity} * rate", FormulaInvalid, ""},
		{"stray brace", "{Quantity} }", FormulaInvalid, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFormula(tt.expression, fields)
			require.Error(t, err)

			var ferr *FormulaError
			require.True(t, errors.As(err, &ferr))
			assert.Equal(t, tt.kind, ferr.Kind)
			assert.Equal(t, tt.field, ferr.Field)
			assert.NotEmpty(t, ferr.Reason)
		})
	}

	t.Run("invalid reason is a single line", func(t *testing.T) {
		err := ValidateFormula("{Quantity} +", fields)
		var ferr *FormulaError
		require.True(t, errors.As(err, &ferr))
		assert.True(t, strings.HasPrefix(ferr.Reason, "Invalid expression: "))
		assert.NotContains(t, ferr.Reason, "\n")
		assert.NotContains(t, ferr.Reason, "| ")
	})

	t.Run("missing field is named in the message", func(t *testing.T) {
		err := ValidateFormula("{Missing} + 1", fields)
		assert.Contains(t, err.Error(), "Missing")
	})

	t.Run("valid expressions", func(t *testing.T) {
		assert.NoError(t, ValidateFormula("{Quantity} * {Price} + {Tax}", fields))
		assert.NoError(t, ValidateFormula("({f_qty} + 1) / 2", fields))
		// Division by zero under the dummy values is still a valid formula.
		assert.NoError(t, ValidateFormula("{Quantity} / ({Price} - {Tax})", fields))
	})
}
