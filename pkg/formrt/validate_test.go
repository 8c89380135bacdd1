package formrt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func ptr[T any](v T) *T { return &v }

func TestValidateAnswers(t *testing.T) {
	tests := []struct {
		name   string
		field  Field
		answer any
		rules  []string
	}{
		{
			name:   "required missing",
			field:  Field{ID: "f", Type: TypeShortText, ValidationRules: &ValidationRules{Required: true}},
			answer: nil,
			rules:  []string{"required"},
		},
		{
			name:   "required blank",
			field:  Field{ID: "f", Type: TypeShortText, ValidationRules: &ValidationRules{Required: true, MinLength: ptr(3)}},
			answer: "  ",
			rules:  []string{"required"},
		},
		{
			name:   "optional empty skips other rules",
			field:  Field{ID: "f", Type: TypeNumber, ValidationRules: &ValidationRules{Min: ptr(1.0)}},
			answer: "",
			rules:  nil,
		},
		{
			name:   "below min",
			field:  Field{ID: "f", Type: TypeNumber, ValidationRules: &ValidationRules{Min: ptr(1.0), Max: ptr(5.0)}},
			answer: float64(0.5),
			rules:  []string{"min"},
		},
		{
			name:   "above max from string",
			field:  Field{ID: "f", Type: TypeSlider, ValidationRules: &ValidationRules{Max: ptr(5.0)}},
			answer: "6",
			rules:  []string{"max"},
		},
		{
			name:   "length counts runes",
			field:  Field{ID: "f", Type: TypeShortText, ValidationRules: &ValidationRules{MaxLength: ptr(4)}},
			answer: "ÅÄÖÜ",
			rules:  nil,
		},
		{
			name:   "too short and bad pattern",
			field:  Field{ID: "f", Type: TypeShortText, ValidationRules: &ValidationRules{MinLength: ptr(5), Pattern: `^\d+$`}},
			answer: "ab",
			rules:  []string{"min_length", "pattern"},
		},
		{
			name:   "too long",
			field:  Field{ID: "f", Type: TypeLongText, ValidationRules: &ValidationRules{MaxLength: ptr(2)}},
			answer: "abc",
			rules:  []string{"max_length"},
		},
		{
			name:   "uncompilable pattern is ignored",
			field:  Field{ID: "f", Type: TypeShortText, ValidationRules: &ValidationRules{Pattern: `([`}},
			answer: "anything",
			rules:  nil,
		},
		{
			name:   "display only fields are skipped",
			field:  Field{ID: "f", Type: TypeHeading, ValidationRules: &ValidationRules{Required: true}},
			answer: nil,
			rules:  nil,
		},
		{
			name:   "calculated fields are skipped",
			field:  Field{ID: "f", Type: TypeCalculated, ValidationRules: &ValidationRules{Required: true}},
			answer: nil,
			rules:  nil,
		},
		{
			name:   "no rules",
			field:  Field{ID: "f", Type: TypeShortText},
			answer: nil,
			rules:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := ValidateAnswers([]Field{tt.field}, AnswerMap{"f": tt.answer})
			var rules []string
			for _, e := range errs {
				assert.Equal(t, "f", e.FieldID)
				assert.NotEmpty(t, e.Message)
				rules = append(rules, e.Rule)
			}
			assert.Equal(t, tt.rules, rules)
		})
	}
}

func TestValidateMessages(t *testing.T) {
	field := Field{ID: "f_age", Label: "Age", Type: TypeNumber, ValidationRules: &ValidationRules{Min: ptr(18.0)}}
	errs := ValidateAnswers([]Field{field}, AnswerMap{"f_age": float64(12)})
	assert.Equal(t, []ValidationError{{FieldID: "f_age", Rule: "min", Message: "'Age' must be at least 18"}}, errs)

	field.ValidationRules.Message = "Adults only"
	errs = ValidateAnswers([]Field{field}, AnswerMap{"f_age": float64(12)})
	assert.Equal(t, "Adults only", errs[0].Message)

	// Unlabelled fields are named by id.
	errs = ValidateAnswers([]Field{{ID: "f_x", Type: TypeEmail, ValidationRules: &ValidationRules{Required: true}}}, nil)
	assert.Equal(t, "'f_x' is required", errs[0].Message)
}

func TestDetermineStatus(t *testing.T) {
	assert.Equal(t, StatusReady, DetermineStatus(nil))
	assert.Equal(t, StatusIncomplete, DetermineStatus([]ValidationError{{Rule: "required"}}))
	assert.Equal(t, StatusInvalid, DetermineStatus([]ValidationError{{Rule: "required"}, {Rule: "pattern"}}))
}
