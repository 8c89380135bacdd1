package formrt

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Operator is a comparison applied by a LogicCondition.
type Operator string

const (
	OpEquals      Operator = "equals"
	OpNotEquals   Operator = "not_equals"
	OpContains    Operator = "contains"
	OpGreaterThan Operator = "greater_than"
	OpLessThan    Operator = "less_than"
	OpIsEmpty     Operator = "is_empty"
	OpIsNotEmpty  Operator = "is_not_empty"
)

// Operators lists every operator the evaluator understands.
var Operators = []Operator{
	OpEquals, OpNotEquals, OpContains, OpGreaterThan, OpLessThan, OpIsEmpty, OpIsNotEmpty,
}

// Known reports whether the operator is one of Operators.
func (o Operator) Known() bool {
	switch o {
	case OpEquals, OpNotEquals, OpContains, OpGreaterThan, OpLessThan, OpIsEmpty, OpIsNotEmpty:
		return true
	default:
		return false
	}
}

// Apply compares a raw answer against the condition value.
// Unknown operators are false.
func (o Operator) Apply(answer any, value string) bool {
	switch o {
	case OpEquals:
		return Stringify(answer) == value

	case OpNotEquals:
		return Stringify(answer) != value

	case OpContains:
		return strings.Contains(strings.ToLower(Stringify(answer)), strings.ToLower(value))

	case OpGreaterThan:
		return ToNumber(answer) > ToNumber(value)

	case OpLessThan:
		return ToNumber(answer) < ToNumber(value)

	case OpIsEmpty:
		return isEmpty(answer)

	case OpIsNotEmpty:
		return !isEmpty(answer)

	default:
		return false
	}
}

// isEmpty is true for missing answers and answers that stringify to blank text.
func isEmpty(answer any) bool {
	if answer == nil {
		return true
	}
	return strings.TrimSpace(Stringify(answer)) == ""
}

// Stringify renders a raw answer as text: strings pass through, numbers use
// their shortest decimal form, arrays join with ", " and other structured
// values become compact JSON. nil is "".
func Stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return formatFloat(t)
	case float32:
		return formatFloat(float64(t))
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case int32:
		return strconv.FormatInt(int64(t), 10)
	case json.Number:
		return t.String()
	case []any:
		parts := make([]string, len(t))
		for i, item := range t {
			parts[i] = Stringify(item)
		}
		return strings.Join(parts, ", ")
	case []string:
		return strings.Join(t, ", ")
	default:
		data, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprintf("%v", t)
		}
		return string(data)
	}
}

func formatFloat(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return ""
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// ToNumber coerces a raw answer to a finite number. Missing, non-numeric
// and non-finite values are 0.
func ToNumber(v any) float64 {
	var n float64
	switch t := v.(type) {
	case nil:
		return 0
	case float64:
		n = t
	case float32:
		n = float64(t)
	case int:
		n = float64(t)
	case int64:
		n = float64(t)
	case int32:
		n = float64(t)
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return 0
		}
		n = f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0
		}
		n = f
	default:
		return 0
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0
	}
	return n
}
