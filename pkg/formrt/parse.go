package formrt

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// LogicPayload is the stored conditional logic of a field. Stored payloads
// arrive either as a JSON object or as a string holding encoded JSON. They are
// parsed once; anything that does not parse becomes the malformed variant,
// which keeps the field visible.
type LogicPayload struct {
	logic ConditionalLogic
	err   error
	raw   json.RawMessage
}

// NewLogic wraps already structured logic.
func NewLogic(logic ConditionalLogic) *LogicPayload {
	return &LogicPayload{logic: logic}
}

// ParseLogic parses a stored payload. It never fails; check Err for the malformed variant.
func ParseLogic(data []byte) *LogicPayload {
	p := &LogicPayload{raw: append(json.RawMessage(nil), data...)}
	p.logic, p.err = decodeLogic(data)
	return p
}

// Logic returns the parsed logic and true, or false for the malformed variant.
func (p *LogicPayload) Logic() (ConditionalLogic, bool) {
	if p == nil || p.err != nil {
		return ConditionalLogic{}, false
	}
	return p.logic, true
}

// Err is non-nil for the malformed variant.
func (p *LogicPayload) Err() error {
	if p == nil {
		return nil
	}
	return p.err
}

func (p *LogicPayload) UnmarshalJSON(data []byte) error {
	*p = *ParseLogic(data)
	return nil
}

func (p LogicPayload) MarshalJSON() ([]byte, error) {
	if p.err != nil {
		if len(p.raw) == 0 {
			return []byte("null"), nil
		}
		// Malformed payloads round-trip untouched so an editor can still repair them.
		return p.raw, nil
	}
	return json.Marshal(p.logic)
}

type rawCondition struct {
	ID            string `json:"id"`
	FieldID       string `json:"fieldId"`
	Operator      string `json:"operator"`
	Value         any    `json:"value"`
	LogicOperator string `json:"logicOperator"`
}

type rawLogic struct {
	Action     string         `json:"action"`
	Conditions []rawCondition `json:"conditions"`
}

func decodeLogic(data []byte) (ConditionalLogic, error) {
	body, err := unwrapEncoded(data)
	if err != nil {
		return ConditionalLogic{}, fmt.Errorf("%w: %v", ErrMalformedLogic, err)
	}

	var raw rawLogic
	if err := json.Unmarshal(body, &raw); err != nil {
		return ConditionalLogic{}, fmt.Errorf("%w: %v", ErrMalformedLogic, err)
	}

	action := Action(strings.ToLower(strings.TrimSpace(raw.Action)))
	switch action {
	case ActionShow, ActionHide:
	case "":
		action = ActionShow
	default:
		return ConditionalLogic{}, fmt.Errorf("%w: unknown action %q", ErrMalformedLogic, raw.Action)
	}

	logic := ConditionalLogic{Action: action, Conditions: make([]LogicCondition, 0, len(raw.Conditions))}
	for _, c := range raw.Conditions {
		logic.Conditions = append(logic.Conditions, LogicCondition{
			ID:            c.ID,
			FieldID:       c.FieldID,
			Operator:      Operator(c.Operator),
			Value:         Stringify(c.Value),
			LogicOperator: parseLogicOperator(c.LogicOperator),
		})
	}
	return logic, nil
}

func parseLogicOperator(s string) LogicOperator {
	switch LogicOperator(strings.ToUpper(strings.TrimSpace(s))) {
	case LogicOr:
		return LogicOr
	case LogicAnd:
		return LogicAnd
	default:
		return ""
	}
}

// FormulaPayload is the stored formula of a calculated field. Like
// LogicPayload it accepts objects or string-encoded JSON; the malformed
// variant evaluates as an absent formula.
type FormulaPayload struct {
	formula CalculationFormula
	err     error
	raw     json.RawMessage
}

// NewFormula wraps an already structured formula.
func NewFormula(formula CalculationFormula) *FormulaPayload {
	return &FormulaPayload{formula: formula}
}

// ParseFormula parses a stored payload. It never fails; check Err for the malformed variant.
func ParseFormula(data []byte) *FormulaPayload {
	p := &FormulaPayload{raw: append(json.RawMessage(nil), data...)}
	p.formula, p.err = decodeFormula(data)
	return p
}

// Formula returns the parsed formula and true, or false for the malformed variant.
func (p *FormulaPayload) Formula() (CalculationFormula, bool) {
	if p == nil || p.err != nil {
		return CalculationFormula{}, false
	}
	return p.formula, true
}

// Err is non-nil for the malformed variant.
func (p *FormulaPayload) Err() error {
	if p == nil {
		return nil
	}
	return p.err
}

func (p *FormulaPayload) UnmarshalJSON(data []byte) error {
	*p = *ParseFormula(data)
	return nil
}

func (p FormulaPayload) MarshalJSON() ([]byte, error) {
	if p.err != nil {
		if len(p.raw) == 0 {
			return []byte("null"), nil
		}
		return p.raw, nil
	}
	return json.Marshal(p.formula)
}

type rawFormula struct {
	ID            string `json:"id"`
	Expression    string `json:"expression"`
	Format        string `json:"format"`
	DecimalPlaces *int   `json:"decimalPlaces"`
}

const defaultDecimalPlaces = 2

func decodeFormula(data []byte) (CalculationFormula, error) {
	body, err := unwrapEncoded(data)
	if err != nil {
		return CalculationFormula{}, fmt.Errorf("%w: %v", ErrMalformedFormula, err)
	}

	var raw rawFormula
	if err := json.Unmarshal(body, &raw); err != nil {
		return CalculationFormula{}, fmt.Errorf("%w: %v", ErrMalformedFormula, err)
	}

	formula := CalculationFormula{
		ID:            raw.ID,
		Expression:    raw.Expression,
		Format:        parseFormat(raw.Format),
		DecimalPlaces: defaultDecimalPlaces,
	}
	if raw.DecimalPlaces != nil {
		formula.DecimalPlaces = *raw.DecimalPlaces
	}
	return formula, nil
}

// unwrapEncoded returns the JSON object inside data, decoding one level of
// string encoding when the payload was stored as a JSON string.
func unwrapEncoded(data []byte) ([]byte, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty payload")
	}
	if trimmed[0] == '"' {
		var inner string
		if err := json.Unmarshal(trimmed, &inner); err != nil {
			return nil, err
		}
		trimmed = bytes.TrimSpace([]byte(inner))
	}
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("expected an object")
	}
	return trimmed, nil
}
