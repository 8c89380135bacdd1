// Package formrt is the deterministic form runtime shared by every render
// surface. Given a form definition, the current answers and the external
// parameters it packs the visual grid, decides field visibility, computes
// calculated fields and resolves personalized text.
package formrt

// Form is the root container for a form definition.
// Only `fields` is required. Everything else falls back to defaults.
type Form struct {
	ID              string            `json:"id,omitempty"`
	Title           string            `json:"title,omitempty"`             // May contain recall tokens
	Description     string            `json:"description,omitempty"`       // May contain recall tokens
	ThankYouMessage string            `json:"thank_you_message,omitempty"` // May contain recall tokens
	RedirectURL     string            `json:"redirect_url,omitempty"`      // May contain recall tokens
	Layout          *LayoutConfig     `json:"layout,omitempty"`            // nil = DefaultLayoutConfig()
	Fields          []Field           `json:"fields"`                      // REQUIRED
	Params          map[string]string `json:"params,omitempty"`            // Static embed parameters
}

// FieldType is the closed set of field kinds the runtime knows about.
type FieldType string

const (
	TypeShortText      FieldType = "short_text"
	TypeLongText       FieldType = "long_text"
	TypeEmail          FieldType = "email"
	TypePhone          FieldType = "phone"
	TypeURL            FieldType = "url"
	TypeNumber         FieldType = "number"
	TypeSlider         FieldType = "slider"
	TypeRange          FieldType = "range"
	TypeRating         FieldType = "rating"
	TypeDropdown       FieldType = "dropdown"
	TypeMultipleChoice FieldType = "multiple_choice"
	TypeCheckboxes     FieldType = "checkboxes"
	TypeYesNo          FieldType = "yes_no"
	TypeDate           FieldType = "date"
	TypeFileUpload     FieldType = "file_upload"
	TypeCalculated     FieldType = "calculated"
	TypeHidden         FieldType = "hidden"
	TypeHeading        FieldType = "heading"
	TypeParagraph      FieldType = "paragraph"
	TypeDivider        FieldType = "divider"
	TypeStatement      FieldType = "statement"
)

// IsNumeric reports whether a formula may reference fields of this type.
func (t FieldType) IsNumeric() bool {
	switch t {
	case TypeNumber, TypeSlider, TypeRange, TypeRating:
		return true
	default:
		return false
	}
}

// IsDisplayOnly reports whether the field only renders content and never holds an answer.
func (t FieldType) IsDisplayOnly() bool {
	switch t {
	case TypeHeading, TypeParagraph, TypeDivider, TypeStatement:
		return true
	default:
		return false
	}
}

// Known reports whether t is one of the declared field types.
func (t FieldType) Known() bool {
	switch t {
	case TypeShortText, TypeLongText, TypeEmail, TypePhone, TypeURL,
		TypeNumber, TypeSlider, TypeRange, TypeRating,
		TypeDropdown, TypeMultipleChoice, TypeCheckboxes, TypeYesNo,
		TypeDate, TypeFileUpload, TypeCalculated, TypeHidden,
		TypeHeading, TypeParagraph, TypeDivider, TypeStatement:
		return true
	default:
		return false
	}
}

// IsAnswerable reports whether a respondent types or picks a value for the field.
func (t FieldType) IsAnswerable() bool {
	return !t.IsDisplayOnly() && t != TypeCalculated && t != TypeHidden
}

// Width is the authored width of a field on the grid.
type Width string

const (
	WidthFull    Width = "full"
	WidthHalf    Width = "half"
	WidthQuarter Width = "quarter"
)

// Normalize maps unknown or empty widths to WidthFull.
func (w Width) Normalize() Width {
	switch w {
	case WidthFull, WidthHalf, WidthQuarter:
		return w
	default:
		return WidthFull
	}
}

// Field is one input or display unit of a form.
// ID is volatile; Ref is the author-chosen stable name used by recall tokens.
type Field struct {
	ID               string           `json:"id"`
	Ref              string           `json:"ref,omitempty"`
	Type             FieldType        `json:"type"`
	Label            string           `json:"label"`
	Description      string           `json:"description,omitempty"`
	Placeholder      string           `json:"placeholder,omitempty"`
	Width            Width            `json:"width,omitempty"`
	OrderIndex       int              `json:"order_index"`
	ConditionalLogic *LogicPayload    `json:"conditional_logic,omitempty"` // nil = always visible
	Calculations     *FormulaPayload  `json:"calculations,omitempty"`      // nil = no formula
	ValidationRules  *ValidationRules `json:"validation_rules,omitempty"`
}

// AnswerMap maps field ids to raw answer values (string, number, bool, array or object).
// The runtime never mutates it.
type AnswerMap map[string]any

// GridGap is the spacing between grid cells.
type GridGap string

const (
	GapSmall  GridGap = "sm"
	GapMedium GridGap = "md"
	GapLarge  GridGap = "lg"
)

// LayoutConfig is the grid configuration of a form.
type LayoutConfig struct {
	Columns    int     `json:"columns"`
	GridGap    GridGap `json:"gridGap"`
	Responsive bool    `json:"responsive"`
}

// DefaultLayoutConfig is used when a form carries no layout.
func DefaultLayoutConfig() LayoutConfig {
	return LayoutConfig{Columns: 4, GridGap: GapMedium, Responsive: true}
}

// FieldPosition is the packed grid cell of a field. Height is always 1.
type FieldPosition struct {
	ID     string `json:"id"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// Action decides what a satisfied condition chain does to its field.
type Action string

const (
	ActionShow Action = "show"
	ActionHide Action = "hide"
)

// LogicOperator joins a condition to the one that follows it.
type LogicOperator string

const (
	LogicAnd LogicOperator = "AND"
	LogicOr  LogicOperator = "OR"
)

// ConditionalLogic is the parsed show/hide rule of a field.
type ConditionalLogic struct {
	Action     Action           `json:"action"`
	Conditions []LogicCondition `json:"conditions"`
}

// LogicCondition compares another field's answer against Value.
// LogicOperator is stored looking forward: it joins this condition with the next one.
type LogicCondition struct {
	ID            string        `json:"id,omitempty"`
	FieldID       string        `json:"fieldId"`
	Operator      Operator      `json:"operator"`
	Value         string        `json:"value"`
	LogicOperator LogicOperator `json:"logicOperator,omitempty"`
}

// Format controls how a calculation result is displayed.
type Format string

const (
	FormatNumber     Format = "number"
	FormatCurrency   Format = "currency"
	FormatPercentage Format = "percentage"
)

// CalculationFormula is the parsed formula of a calculated field.
type CalculationFormula struct {
	ID            string `json:"id,omitempty"`
	Expression    string `json:"expression"`
	Format        Format `json:"format"`
	DecimalPlaces int    `json:"decimalPlaces"`
}

// ValidationRules are the optional answer checks of a field.
type ValidationRules struct {
	Required  bool     `json:"required,omitempty"`
	Min       *float64 `json:"min,omitempty"`
	Max       *float64 `json:"max,omitempty"`
	MinLength *int     `json:"minLength,omitempty"`
	MaxLength *int     `json:"maxLength,omitempty"`
	Pattern   string   `json:"pattern,omitempty"`
	Message   string   `json:"message,omitempty"` // Overrides the generated message
}

// RecallContext is rebuilt on every evaluation from the answers, the
// external parameters and the calculation results.
type RecallContext struct {
	AnswersByRef map[string]string `json:"answersByRef"`
	URLParams    map[string]string `json:"urlParams"`
	Variables    map[string]string `json:"variables"`
}
