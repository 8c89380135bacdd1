package formrt

import (
	"errors"
	"fmt"
)

var (
	ErrMalformedLogic   = errors.New("formrt: malformed conditional logic")
	ErrMalformedFormula = errors.New("formrt: malformed calculation formula")
)

// DiagnosticKind classifies a degraded, non-fatal problem found during a render pass.
type DiagnosticKind string

const (
	DiagParse      DiagnosticKind = "parse"      // Stored payload did not parse
	DiagReference  DiagnosticKind = "reference"  // Unknown field id, label or ref
	DiagEvaluation DiagnosticKind = "evaluation" // Expression could not be computed
)

// Diagnostic describes what the render pass degraded and where.
type Diagnostic struct {
	Kind    DiagnosticKind `json:"kind"`
	FieldID string         `json:"field_id,omitempty"`
	Message string         `json:"message"`
}

// FormulaErrorKind classifies why the authoring-time validator rejected a formula.
type FormulaErrorKind string

const (
	FormulaEmpty        FormulaErrorKind = "empty"
	FormulaUnbalanced   FormulaErrorKind = "unbalanced_parentheses"
	FormulaUnknownField FormulaErrorKind = "unknown_field"
	FormulaNonNumeric   FormulaErrorKind = "non_numeric_field"
	FormulaInvalid      FormulaErrorKind = "invalid_expression"
)

// FormulaError is returned by ValidateFormula.
type FormulaError struct {
	Kind   FormulaErrorKind `json:"kind"`
	Field  string           `json:"field,omitempty"`
	Reason string           `json:"reason"`
}

func (e *FormulaError) Error() string {
	return fmt.Sprintf("invalid formula: %s", e.Reason)
}
