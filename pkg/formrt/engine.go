package formrt

import (
	"encoding/json"
	"fmt"
)

// Request is the JSON input of Run: a form definition plus the live answers
// and the external parameters captured by the hosting page.
type Request struct {
	Form    Form              `json:"form"`
	Answers AnswerMap         `json:"answers"`
	Params  map[string]string `json:"params,omitempty"`
}

// FieldText holds the resolved templates of one field.
type FieldText struct {
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
	Placeholder string `json:"placeholder,omitempty"`
}

// Texts holds every resolved template of a render pass.
type Texts struct {
	Title           string               `json:"title,omitempty"`
	Description     string               `json:"description,omitempty"`
	ThankYouMessage string               `json:"thank_you_message,omitempty"`
	RedirectURL     string               `json:"redirect_url,omitempty"`
	Fields          map[string]FieldText `json:"fields"`
}

// RenderResult is everything a render surface needs for one pass.
type RenderResult struct {
	Visible      []string          `json:"visible"` // Field ids in declaration order
	Hidden       []string          `json:"hidden"`
	Layout       Layout            `json:"layout"`
	Grid         GridCSS           `json:"grid"`
	Calculations CalcResults       `json:"calculations"`
	Recall       RecallContext     `json:"recall"`
	Texts        Texts             `json:"texts"`
	Errors       []ValidationError `json:"errors"`
	Status       Status            `json:"status"`
	Diagnostics  []Diagnostic      `json:"diagnostics,omitempty"`
}

// Engine holds the inputs of one render pass.
type Engine struct {
	form        *Form
	fields      []Field
	answers     AnswerMap
	params      map[string]string
	diagnostics []Diagnostic
}

// NewEngine prepares a render pass. Fields are ordered by order_index,
// static form params are merged under the caller's params and reserved
// embed params are stripped. Neither answers nor params are mutated.
func NewEngine(form *Form, answers AnswerMap, params map[string]string) *Engine {
	merged := make(map[string]string, len(form.Params)+len(params))
	for name, value := range form.Params {
		merged[name] = value
	}
	for name, value := range params {
		merged[name] = value
	}

	e := &Engine{
		form:        form,
		fields:      SortFields(form.Fields),
		params:      StripReservedParams(merged),
		diagnostics: make([]Diagnostic, 0),
	}
	e.answers = e.effectiveAnswers(answers)
	return e
}

// Evaluate runs one render pass: visibility, then calculation, then recall,
// then layout. Recall depends on the first two, so the order is fixed.
// Definition problems never fail the pass; they degrade and are reported
// as diagnostics. cache may be nil.
func Evaluate(form *Form, answers AnswerMap, params map[string]string, cache LayoutCache) *RenderResult {
	return NewEngine(form, answers, params).Evaluate(cache)
}

func (e *Engine) Evaluate(cache LayoutCache) *RenderResult {
	e.checkLogic()

	// 1. Visibility
	visible := make([]Field, 0, len(e.fields))
	result := &RenderResult{
		Visible: make([]string, 0, len(e.fields)),
		Hidden:  make([]string, 0),
	}
	for _, f := range e.fields {
		if IsVisible(f, e.answers) {
			visible = append(visible, f)
			result.Visible = append(result.Visible, f.ID)
		} else {
			result.Hidden = append(result.Hidden, f.ID)
		}
	}

	// 2. Calculation
	result.Calculations = e.computeCalculations()

	// 3. Recall
	result.Recall = BuildRecallContext(visible, e.answers, e.params, result.Calculations)
	result.Texts = e.resolveTexts(visible, result.Recall)

	// 4. Layout
	cfg := e.layoutConfig()
	rendered := make([]Field, 0, len(visible))
	for _, f := range visible {
		if f.Type != TypeHidden {
			rendered = append(rendered, f)
		}
	}
	result.Layout = Pack(rendered, cfg, cache)
	result.Grid = Grid(cfg)

	// 5. Answer validation
	result.Errors = ValidateAnswers(visible, e.answers)
	result.Status = DetermineStatus(result.Errors)

	result.Diagnostics = e.diagnostics
	return result
}

// Answers returns the answers the pass evaluates against, including
// hidden-type fields filled from params.
func (e *Engine) Answers() AnswerMap {
	return e.answers
}

// Params returns the merged, stripped external parameters.
func (e *Engine) Params() map[string]string {
	return e.params
}

// effectiveAnswers copies answers and fills unanswered hidden-type fields
// from the param named by their ref.
func (e *Engine) effectiveAnswers(answers AnswerMap) AnswerMap {
	out := make(AnswerMap, len(answers))
	for id, v := range answers {
		out[id] = v
	}
	for _, f := range e.fields {
		if f.Type != TypeHidden || f.Ref == "" || !isEmpty(out[f.ID]) {
			continue
		}
		if v, ok := e.params[f.Ref]; ok {
			out[f.ID] = v
		}
	}
	return out
}

func (e *Engine) layoutConfig() LayoutConfig {
	if e.form.Layout == nil {
		return DefaultLayoutConfig()
	}
	return *e.form.Layout
}

// checkLogic reports malformed logic and conditions pointing at unknown fields.
func (e *Engine) checkLogic() {
	known := make(map[string]bool, len(e.fields))
	for _, f := range e.fields {
		known[f.ID] = true
	}

	for _, f := range e.fields {
		if f.ConditionalLogic == nil {
			continue
		}
		logic, ok := f.ConditionalLogic.Logic()
		if !ok {
			e.addDiagnostic(DiagParse, f.ID, fmt.Sprintf("%v; field stays visible", f.ConditionalLogic.Err()))
			continue
		}
		for _, c := range logic.Conditions {
			if !known[c.FieldID] {
				e.addDiagnostic(DiagReference, f.ID, fmt.Sprintf("condition references unknown field '%s'", c.FieldID))
			}
		}
	}
}

// computeCalculations evaluates every calculated field, visible or not.
func (e *Engine) computeCalculations() CalcResults {
	results := make(CalcResults)
	for _, f := range e.fields {
		if f.Type != TypeCalculated {
			continue
		}

		formula := CalculationFormula{Format: FormatNumber, DecimalPlaces: defaultDecimalPlaces}
		if f.Calculations != nil {
			parsed, ok := f.Calculations.Formula()
			if ok {
				formula = parsed
			} else {
				e.addDiagnostic(DiagParse, f.ID, fmt.Sprintf("%v; value is 0", f.Calculations.Err()))
			}
		}
		if formula.Expression == "" {
			results[f.ID] = CalcResult{Value: 0, Display: FormatValue(0, formula.Format, formula.DecimalPlaces)}
			continue
		}

		result, err := calculate(e.fields, e.answers, formula)
		if err != nil {
			e.addDiagnostic(DiagEvaluation, f.ID, err.Error())
		}
		results[f.ID] = result
	}
	return results
}

func (e *Engine) resolveTexts(visible []Field, ctx RecallContext) Texts {
	texts := Texts{
		Title:           Resolve(e.form.Title, ctx),
		Description:     Resolve(e.form.Description, ctx),
		ThankYouMessage: Resolve(e.form.ThankYouMessage, ctx),
		RedirectURL:     Resolve(e.form.RedirectURL, ctx),
		Fields:          make(map[string]FieldText, len(visible)),
	}
	for _, f := range visible {
		texts.Fields[f.ID] = FieldText{
			Label:       Resolve(f.Label, ctx),
			Description: Resolve(f.Description, ctx),
			Placeholder: Resolve(f.Placeholder, ctx),
		}
	}
	return texts
}

func (e *Engine) addDiagnostic(kind DiagnosticKind, fieldID, message string) {
	e.diagnostics = append(e.diagnostics, Diagnostic{
		Kind:    kind,
		FieldID: fieldID,
		Message: message,
	})
}

// Run evaluates a JSON Request and returns the JSON RenderResult.
// Only input that is not valid JSON fails; definition problems degrade.
func Run(jsonText string) (string, error) {
	var req Request
	if err := json.Unmarshal([]byte(jsonText), &req); err != nil {
		return "", fmt.Errorf("unmarshal: %w", err)
	}

	result := Evaluate(&req.Form, req.Answers, req.Params, nil)

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal: %w", err)
	}
	return string(out), nil
}
