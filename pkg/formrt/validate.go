package formrt

import (
	"fmt"
	"regexp"
	"unicode/utf8"
)

// Status summarises answer validation of the visible fields.
type Status string

const (
	StatusReady      Status = "READY"      // Every visible check passes
	StatusIncomplete Status = "INCOMPLETE" // A required visible field is empty
	StatusInvalid    Status = "INVALID"    // A value breaks a rule
)

// ValidationError is an answer check failure on one field.
type ValidationError struct {
	FieldID string `json:"field_id"`
	Rule    string `json:"rule"` // required, min, max, min_length, max_length, pattern
	Message string `json:"message"`
}

// ValidateAnswers checks the validation rules of the given fields, which
// should already be filtered to the visible ones: hidden fields never fail.
// Display-only, calculated and hidden-type fields are skipped.
func ValidateAnswers(fields []Field, answers AnswerMap) []ValidationError {
	errs := make([]ValidationError, 0)
	for _, f := range fields {
		if f.ValidationRules == nil || !f.Type.IsAnswerable() {
			continue
		}
		errs = append(errs, validateField(f, answers[f.ID])...)
	}
	return errs
}

func validateField(f Field, answer any) []ValidationError {
	rules := f.ValidationRules
	var errs []ValidationError
	add := func(rule, msg string) {
		if rules.Message != "" {
			msg = rules.Message
		}
		errs = append(errs, ValidationError{FieldID: f.ID, Rule: rule, Message: msg})
	}

	if isEmpty(answer) {
		if rules.Required {
			add("required", fmt.Sprintf("'%s' is required", displayName(f)))
		}
		// Nothing else to check on an empty answer.
		return errs
	}

	if rules.Min != nil || rules.Max != nil {
		n := ToNumber(answer)
		if rules.Min != nil && n < *rules.Min {
			add("min", fmt.Sprintf("'%s' must be at least %s", displayName(f), formatFloat(*rules.Min)))
		}
		if rules.Max != nil && n > *rules.Max {
			add("max", fmt.Sprintf("'%s' must be at most %s", displayName(f), formatFloat(*rules.Max)))
		}
	}

	text := Stringify(answer)
	length := utf8.RuneCountInString(text)
	if rules.MinLength != nil && length < *rules.MinLength {
		add("min_length", fmt.Sprintf("'%s' is too short (minimum %d characters)", displayName(f), *rules.MinLength))
	}
	if rules.MaxLength != nil && length > *rules.MaxLength {
		add("max_length", fmt.Sprintf("'%s' is too long (maximum %d characters)", displayName(f), *rules.MaxLength))
	}

	if rules.Pattern != "" {
		re, err := regexp.Compile(rules.Pattern)
		// An uncompilable pattern is an authoring problem the linter reports; it never blocks a respondent.
		if err == nil && !re.MatchString(text) {
			add("pattern", fmt.Sprintf("'%s' has an invalid format", displayName(f)))
		}
	}

	return errs
}

func displayName(f Field) string {
	if f.Label != "" {
		return f.Label
	}
	return f.ID
}

// DetermineStatus derives the document status from validation errors.
func DetermineStatus(errs []ValidationError) Status {
	incomplete := false
	for _, e := range errs {
		if e.Rule != "required" {
			return StatusInvalid
		}
		incomplete = true
	}
	if incomplete {
		return StatusIncomplete
	}
	return StatusReady
}
