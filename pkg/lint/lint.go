// Package lint provides static analysis for form definitions.
// It detects authoring problems without evaluating the form.
package lint

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"

	"github.com/dlovans/formrt/pkg/formrt"
)

// Issue represents a problem found during static analysis.
type Issue struct {
	Severity string `json:"severity"` // "error", "warning"
	Field    string `json:"field,omitempty"`
	Rule     string `json:"rule,omitempty"`
	Message  string `json:"message"`
}

// Result contains all issues found by the linter.
type Result struct {
	Valid  bool    `json:"valid"`
	Issues []Issue `json:"issues"`
}

// Rule names reported in Issue.Rule.
const (
	RuleDuplicateID      = "duplicate_id"
	RuleDuplicateRef     = "duplicate_ref"
	RuleUnknownType      = "unknown_type"
	RuleMalformedLogic   = "malformed_logic"
	RuleUnknownTarget    = "unknown_target"
	RuleSelfReference    = "self_reference"
	RuleUnknownOperator  = "unknown_operator"
	RuleMissingFormula   = "missing_formula"
	RuleMalformedFormula = "malformed_formula"
	RuleInvalidFormula   = "invalid_formula"
	RuleStrayFormula     = "stray_formula"
	RuleInvalidPattern   = "invalid_pattern"
	RuleUnknownRecall    = "unknown_recall"
	RuleLayout           = "layout"
)

// Run performs static analysis on a JSON form definition.
func Run(jsonText string) (*Result, error) {
	var form formrt.Form
	if err := json.Unmarshal([]byte(jsonText), &form); err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	return Check(&form), nil
}

// Check performs static analysis on a decoded form. Issues are reported in
// field order so output is stable.
func Check(form *formrt.Form) *Result {
	result := &Result{
		Valid:  true,
		Issues: make([]Issue, 0),
	}

	fields := formrt.SortFields(form.Fields)

	// Check 1: Identity
	ids := make(map[string]bool, len(fields))
	refs := make(map[string]formrt.FieldType, len(fields))
	for _, f := range fields {
		if ids[f.ID] {
			result.addError(f.ID, RuleDuplicateID, fmt.Sprintf("field id '%s' is used more than once", f.ID))
		}
		ids[f.ID] = true

		if f.Ref != "" {
			if _, dup := refs[f.Ref]; dup {
				result.addError(f.ID, RuleDuplicateRef, fmt.Sprintf("ref '%s' is used more than once", f.Ref))
			} else {
				refs[f.Ref] = f.Type
			}
		}

		if !f.Type.Known() {
			result.addWarning(f.ID, RuleUnknownType, fmt.Sprintf("field '%s' has unknown type '%s'", f.ID, f.Type))
		}
		if f.Width != "" && f.Width.Normalize() != f.Width {
			result.addWarning(f.ID, RuleLayout, fmt.Sprintf("width '%s' is not full, half or quarter; renders full", f.Width))
		}
	}

	// Check 2: Conditional logic
	for _, f := range fields {
		checkLogic(result, f, ids)
	}

	// Check 3: Calculations
	for _, f := range fields {
		checkFormula(result, f, fields)
	}

	// Check 4: Validation patterns
	for _, f := range fields {
		if f.ValidationRules == nil || f.ValidationRules.Pattern == "" {
			continue
		}
		if _, err := regexp.Compile(f.ValidationRules.Pattern); err != nil {
			result.addError(f.ID, RuleInvalidPattern, fmt.Sprintf("pattern does not compile: %v", err))
		}
	}

	// Check 5: Recall tokens
	hiddenRefs := make(map[string]bool)
	for ref, t := range refs {
		if t == formrt.TypeHidden {
			hiddenRefs[ref] = true
		}
	}
	checkTemplate := func(fieldID, where, template string) {
		for _, token := range formrt.RecallRefs(template) {
			kind, name := token[0], token[1]
			switch kind {
			case formrt.RecallField:
				if t, ok := refs[name]; !ok || t == formrt.TypeCalculated {
					result.addWarning(fieldID, RuleUnknownRecall, fmt.Sprintf("%s recalls unknown field ref '%s'", where, name))
				}
			case formrt.RecallVar:
				if t, ok := refs[name]; !ok || t != formrt.TypeCalculated {
					result.addWarning(fieldID, RuleUnknownRecall, fmt.Sprintf("%s recalls '%s', which is not a calculated field ref", where, name))
				}
			case formrt.RecallHidden:
				if _, static := form.Params[name]; !static && !hiddenRefs[name] {
					result.addWarning(fieldID, RuleUnknownRecall, fmt.Sprintf("%s recalls hidden value '%s' that no hidden field or static param declares", where, name))
				}
			case formrt.RecallParam:
				// Supplied by the embedding page at render time.
			default:
				result.addWarning(fieldID, RuleUnknownRecall, fmt.Sprintf("%s uses unknown recall kind '%s'", where, kind))
			}
		}
	}
	checkTemplate("", "title", form.Title)
	checkTemplate("", "description", form.Description)
	checkTemplate("", "thank you message", form.ThankYouMessage)
	checkTemplate("", "redirect url", form.RedirectURL)
	for _, f := range fields {
		checkTemplate(f.ID, "label", f.Label)
		checkTemplate(f.ID, "description", f.Description)
		checkTemplate(f.ID, "placeholder", f.Placeholder)
	}

	// Check 6: Layout
	if form.Layout != nil && form.Layout.Columns < 1 {
		result.addWarning("", RuleLayout, fmt.Sprintf("layout has %d columns; renders as 1", form.Layout.Columns))
	}

	return result
}

func checkLogic(result *Result, f formrt.Field, ids map[string]bool) {
	if f.ConditionalLogic == nil {
		return
	}
	logic, ok := f.ConditionalLogic.Logic()
	if !ok {
		result.addError(f.ID, RuleMalformedLogic, fmt.Sprintf("%v; the field will always show", f.ConditionalLogic.Err()))
		return
	}

	for i, c := range logic.Conditions {
		switch {
		case c.FieldID == f.ID:
			result.addWarning(f.ID, RuleSelfReference, fmt.Sprintf("condition %d depends on the field's own answer", i+1))
		case !ids[c.FieldID]:
			result.addError(f.ID, RuleUnknownTarget, fmt.Sprintf("condition %d references unknown field '%s'", i+1, c.FieldID))
		}
		if !c.Operator.Known() {
			result.addError(f.ID, RuleUnknownOperator, fmt.Sprintf("condition %d uses unknown operator '%s'; it never matches", i+1, c.Operator))
		}
	}
}

func checkFormula(result *Result, f formrt.Field, fields []formrt.Field) {
	if f.Type != formrt.TypeCalculated {
		if f.Calculations != nil {
			result.addWarning(f.ID, RuleStrayFormula, fmt.Sprintf("field '%s' is not calculated; its formula is ignored", f.ID))
		}
		return
	}

	if f.Calculations == nil {
		result.addWarning(f.ID, RuleMissingFormula, "calculated field has no formula; its value is 0")
		return
	}
	formula, ok := f.Calculations.Formula()
	if !ok {
		result.addError(f.ID, RuleMalformedFormula, fmt.Sprintf("%v; its value is 0", f.Calculations.Err()))
		return
	}

	if err := formrt.ValidateFormula(formula.Expression, fields); err != nil {
		var ferr *formrt.FormulaError
		if errors.As(err, &ferr) && ferr.Kind == formrt.FormulaEmpty {
			result.addWarning(f.ID, RuleMissingFormula, "calculated field has an empty expression; its value is 0")
			return
		}
		result.addError(f.ID, RuleInvalidFormula, err.Error())
	}
}

// Errors returns the error-severity issues sorted by field.
func (r *Result) Errors() []Issue {
	var out []Issue
	for _, issue := range r.Issues {
		if issue.Severity == "error" {
			out = append(out, issue)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Field < out[j].Field })
	return out
}

func (r *Result) addError(field, rule, message string) {
	r.Valid = false
	r.Issues = append(r.Issues, Issue{
		Severity: "error",
		Field:    field,
		Rule:     rule,
		Message:  message,
	})
}

func (r *Result) addWarning(field, rule, message string) {
	r.Issues = append(r.Issues, Issue{
		Severity: "warning",
		Field:    field,
		Rule:     rule,
		Message:  message,
	})
}
