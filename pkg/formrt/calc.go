package formrt

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/parser"
)

// CalcResult is the value of a calculated field and its display form.
type CalcResult struct {
	Value   float64 `json:"value"`
	Display string  `json:"display"`
}

var placeholderPattern = regexp.MustCompile(`\{([^{}]*)\}`)

var errNonFinite = errors.New("expression is not a finite number")

// Calculate evaluates a formula against the current answers. Any failure
// (unknown reference, bad syntax, non-finite result) degrades to 0 so a
// broken formula never blocks rendering.
func Calculate(fields []Field, answers AnswerMap, formula CalculationFormula) CalcResult {
	result, _ := calculate(fields, answers, formula)
	return result
}

// calculate also reports why the value degraded to 0, for diagnostics.
func calculate(fields []Field, answers AnswerMap, formula CalculationFormula) (CalcResult, error) {
	substituted, missing := substitute(formula.Expression, fields, func(f *Field) float64 {
		return ToNumber(answers[f.ID])
	})

	value, err := evaluateArithmetic(substituted)
	if err == nil && len(missing) > 0 {
		err = fmt.Errorf("unknown field reference %q", missing[0])
	}

	return CalcResult{
		Value:   value,
		Display: FormatValue(value, formula.Format, formula.DecimalPlaces),
	}, err
}

// Substitute replaces every {name} placeholder with the numeric answer of
// the referenced field. Unknown references become 0.
func Substitute(expression string, fields []Field, answers AnswerMap) string {
	out, _ := substitute(expression, fields, func(f *Field) float64 {
		return ToNumber(answers[f.ID])
	})
	return out
}

// substitute rewrites placeholders using value and returns the names it could not resolve.
func substitute(expression string, fields []Field, value func(*Field) float64) (string, []string) {
	var missing []string
	out := placeholderPattern.ReplaceAllStringFunc(expression, func(match string) string {
		name := strings.TrimSpace(match[1 : len(match)-1])
		f := FindReference(fields, name)
		if f == nil {
			missing = append(missing, name)
			return numberLiteral(0)
		}
		return numberLiteral(value(f))
	})
	return out, missing
}

// FindReference resolves a formula reference. Ids are matched before labels;
// among equal labels the first field in scan order wins.
func FindReference(fields []Field, name string) *Field {
	for i := range fields {
		if fields[i].ID == name {
			return &fields[i]
		}
	}
	for i := range fields {
		if fields[i].Label == name {
			return &fields[i]
		}
	}
	return nil
}

// numberLiteral always yields a float literal so very large values never
// overflow the integer lexer; negatives are parenthesised.
func numberLiteral(v float64) string {
	if v == 0 {
		v = 0 // drop negative zero
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	if v < 0 {
		return "(" + s + ")"
	}
	return s
}

// evaluateArithmetic evaluates an expression made only of numbers, + - * /
// and parentheses, with the usual precedence. Non-finite results are 0.
func evaluateArithmetic(src string) (float64, error) {
	if strings.TrimSpace(src) == "" {
		return 0, fmt.Errorf("empty expression")
	}

	tree, err := parser.Parse(src)
	if err != nil {
		return 0, fmt.Errorf("parse: %w", err)
	}
	guard := &arithmeticGuard{}
	ast.Walk(&tree.Node, guard)
	if guard.err != nil {
		return 0, guard.err
	}

	program, err := expr.Compile(src, expr.AsFloat64())
	if err != nil {
		return 0, fmt.Errorf("compile: %w", err)
	}
	out, err := expr.Run(program, nil)
	if err != nil {
		return 0, fmt.Errorf("run: %w", err)
	}

	value, ok := out.(float64)
	if !ok {
		return 0, fmt.Errorf("expression produced %T", out)
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, errNonFinite
	}
	return value, nil
}

// arithmeticGuard rejects any node that is not a number or one of the four
// arithmetic operators, so identifiers, calls, strings and the rest of the
// expression language never reach the compiler.
type arithmeticGuard struct {
	err error
}

func (g *arithmeticGuard) Visit(node *ast.Node) {
	if g.err != nil {
		return
	}
	switch n := (*node).(type) {
	case *ast.IntegerNode, *ast.FloatNode:
	case *ast.UnaryNode:
		if n.Operator != "-" && n.Operator != "+" {
			g.err = fmt.Errorf("unsupported operator %q", n.Operator)
		}
	case *ast.BinaryNode:
		switch n.Operator {
		case "+", "-", "*", "/":
		default:
			g.err = fmt.Errorf("unsupported operator %q", n.Operator)
		}
	default:
		g.err = fmt.Errorf("unsupported token in expression")
	}
}

// dummyReferenceValue stands in for every reference during validation.
const dummyReferenceValue = 1

// ValidateFormula is the authoring-time check for a formula expression. It
// returns nil when the expression is usable, otherwise a *FormulaError with a
// human-readable reason.
func ValidateFormula(expression string, fields []Field) error {
	if strings.TrimSpace(expression) == "" {
		return &FormulaError{Kind: FormulaEmpty, Reason: "Expression is empty"}
	}

	depth := 0
	for _, r := range expression {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return &FormulaError{Kind: FormulaUnbalanced, Reason: "Unbalanced parentheses: unexpected ')'"}
			}
		}
	}
	if depth != 0 {
		return &FormulaError{Kind: FormulaUnbalanced, Reason: "Unbalanced parentheses: missing ')'"}
	}

	for _, match := range placeholderPattern.FindAllStringSubmatch(expression, -1) {
		name := strings.TrimSpace(match[1])
		f := FindReference(fields, name)
		if f == nil {
			return &FormulaError{
				Kind:   FormulaUnknownField,
				Field:  name,
				Reason: fmt.Sprintf("Field '%s' not found", name),
			}
		}
		if !f.Type.IsNumeric() {
			return &FormulaError{
				Kind:   FormulaNonNumeric,
				Field:  name,
				Reason: fmt.Sprintf("Field '%s' is not numeric (type %s)", name, f.Type),
			}
		}
	}

	substituted, _ := substitute(expression, fields, func(*Field) float64 { return dummyReferenceValue })
	if strings.ContainsAny(substituted, "{}") {
		return &FormulaError{Kind: FormulaInvalid, Reason: "Invalid expression: stray brace"}
	}
	// A division by zero under the dummy values is not a syntax problem.
	if _, err := evaluateArithmetic(substituted); err != nil && !errors.Is(err, errNonFinite) {
		// Headline only: the caret diagram below it points into the substituted text.
		reason, _, _ := strings.Cut(err.Error(), "\n")
		return &FormulaError{Kind: FormulaInvalid, Reason: "Invalid expression: " + strings.TrimSpace(reason)}
	}
	return nil
}
