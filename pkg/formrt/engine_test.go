package formrt

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const orderFormJSON = `{
	"id": "form_order",
	"title": "Order for {{field:name}}",
	"thank_you_message": "Thanks {{field:name}}, your total is {{var:total}} ({{param:campaign}})",
	"redirect_url": "https://shop.example/done?c={{hidden:campaign}}&t={{var:total}}",
	"layout": {"columns": 4, "gridGap": "sm", "responsive": true},
	"params": {"campaign": "static"},
	"fields": [
		{"id": "f_total", "ref": "total", "type": "calculated", "label": "Total", "width": "half", "order_index": 5,
		 "calculations": {"expression": "{Quantity} * {Price}", "format": "currency", "decimalPlaces": 2}},
		{"id": "f_name", "ref": "name", "type": "short_text", "label": "Name", "width": "half", "order_index": 0,
		 "placeholder": "Your name", "validation_rules": {"required": true}},
		{"id": "f_email", "type": "email", "label": "Email", "width": "half", "order_index": 1},
		{"id": "f_qty", "type": "number", "label": "Quantity", "width": "quarter", "order_index": 2,
		 "validation_rules": {"min": 1, "max": 10}},
		{"id": "f_price", "type": "number", "label": "Price", "width": "quarter", "order_index": 3},
		{"id": "f_vip", "type": "short_text", "label": "VIP code for {{field:name}}", "width": "full", "order_index": 4,
		 "conditional_logic": {"action": "show", "conditions": [{"id": "c1", "fieldId": "f_qty", "operator": "greater_than", "value": "5"}]},
		 "validation_rules": {"required": true}},
		{"id": "f_campaign", "ref": "campaign", "type": "hidden", "label": "Campaign", "order_index": 6}
	]
}`

func loadOrderForm(t *testing.T) *Form {
	t.Helper()
	var form Form
	require.NoError(t, json.Unmarshal([]byte(orderFormJSON), &form))
	return &form
}

func TestEvaluateOrderForm(t *testing.T) {
	form := loadOrderForm(t)
	answers := AnswerMap{"f_name": "Ana", "f_qty": float64(3), "f_price": "12.5"}

	result := Evaluate(form, answers, map[string]string{"campaign": "spring", "theme": "dark"}, nil)

	t.Run("visibility follows order_index", func(t *testing.T) {
		assert.Equal(t, []string{"f_name", "f_email", "f_qty", "f_price", "f_total", "f_campaign"}, result.Visible)
		assert.Equal(t, []string{"f_vip"}, result.Hidden)
	})

	t.Run("calculations", func(t *testing.T) {
		assert.Equal(t, CalcResults{"f_total": {Value: 37.5, Display: "$37.50"}}, result.Calculations)
	})

	t.Run("recall context", func(t *testing.T) {
		// Caller params override static ones; reserved names never reach recall.
		assert.Equal(t, map[string]string{"campaign": "spring"}, result.Recall.URLParams)
		assert.Equal(t, map[string]string{"total": "37.5"}, result.Recall.Variables)
		// The hidden field is filled from its param.
		assert.Equal(t, "spring", result.Recall.AnswersByRef["campaign"])
	})

	t.Run("texts", func(t *testing.T) {
		assert.Equal(t, "Order for Ana", result.Texts.Title)
		assert.Equal(t, "Thanks Ana, your total is 37.5 (spring)", result.Texts.ThankYouMessage)
		assert.Equal(t, "https://shop.example/done?c=spring&t=37.5", result.Texts.RedirectURL)
		assert.Equal(t, "Your name", result.Texts.Fields["f_name"].Placeholder)
		assert.NotContains(t, result.Texts.Fields, "f_vip")
	})

	t.Run("layout skips hidden-type fields", func(t *testing.T) {
		assert.Equal(t, []FieldPosition{
			{ID: "f_name", X: 0, Y: 0, Width: 2, Height: 1},
			{ID: "f_email", X: 2, Y: 0, Width: 2, Height: 1},
			{ID: "f_qty", X: 0, Y: 1, Width: 1, Height: 1},
			{ID: "f_price", X: 1, Y: 1, Width: 1, Height: 1},
			{ID: "f_total", X: 2, Y: 1, Width: 2, Height: 1},
		}, result.Layout.Positions)
		assert.Equal(t, "small", result.Grid.GapToken)
	})

	t.Run("hidden required field does not block", func(t *testing.T) {
		assert.Empty(t, result.Errors)
		assert.Equal(t, StatusReady, result.Status)
		assert.Empty(t, result.Diagnostics)
	})

	t.Run("answers are not mutated", func(t *testing.T) {
		assert.Equal(t, AnswerMap{"f_name": "Ana", "f_qty": float64(3), "f_price": "12.5"}, answers)
	})
}

func TestEvaluateRevealsConditionalField(t *testing.T) {
	form := loadOrderForm(t)
	result := Evaluate(form, AnswerMap{"f_name": "Bo", "f_qty": float64(6), "f_price": float64(2)}, nil, nil)

	assert.Contains(t, result.Visible, "f_vip")
	assert.Equal(t, "VIP code for Bo", result.Texts.Fields["f_vip"].Label)
	assert.Equal(t, StatusIncomplete, result.Status)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "f_vip", result.Errors[0].FieldID)

	// Static param applies when the caller sends none.
	assert.Equal(t, "static", result.Recall.URLParams["campaign"])
}

func TestEvaluateDegradesGracefully(t *testing.T) {
	form := &Form{
		Title: "{{var:broken}}|{{var:calc}}",
		Fields: []Field{
			{ID: "a", Type: TypeNumber, Label: "A", ConditionalLogic: ParseLogic([]byte(`"{oops"`))},
			{ID: "b", Type: TypeShortText, Label: "B", ConditionalLogic: ParseLogic([]byte(
				`{"action": "show", "conditions": [{"fieldId": "ghost", "operator": "is_empty", "value": ""}]}`))},
			{ID: "broken", Ref: "broken", Type: TypeCalculated, Label: "Broken", Calculations: ParseFormula([]byte(`"not an object"`))},
			{ID: "calc", Ref: "calc", Type: TypeCalculated, Label: "Calc", Calculations: NewFormula(CalculationFormula{
				Expression: "{A} / {Missing}", Format: FormatNumber, DecimalPlaces: 1,
			})},
		},
	}

	var result *RenderResult
	require.NotPanics(t, func() {
		result = Evaluate(form, AnswerMap{"a": float64(4)}, nil, nil)
	})

	assert.Equal(t, []string{"a", "b", "broken", "calc"}, result.Visible)
	assert.Equal(t, CalcResult{Value: 0, Display: "0.00"}, result.Calculations["broken"])
	assert.Equal(t, CalcResult{Value: 0, Display: "0.0"}, result.Calculations["calc"])
	assert.Equal(t, "0|0", result.Texts.Title)

	kinds := make(map[DiagnosticKind][]string)
	for _, d := range result.Diagnostics {
		kinds[d.Kind] = append(kinds[d.Kind], d.FieldID)
	}
	assert.Equal(t, []string{"a", "broken"}, kinds[DiagParse])
	assert.Equal(t, []string{"b"}, kinds[DiagReference])
	assert.Equal(t, []string{"calc"}, kinds[DiagEvaluation])
}

func TestEvaluateUsesDefaultLayout(t *testing.T) {
	form := &Form{Fields: widthFields(WidthQuarter, WidthQuarter, WidthQuarter, WidthQuarter, WidthQuarter)}
	result := Evaluate(form, nil, nil, nil)

	assert.Equal(t, DefaultLayoutConfig().Columns, result.Grid.Columns)
	assert.Equal(t, FieldPosition{ID: "e", X: 0, Y: 1, Width: 1, Height: 1}, result.Layout.Positions[4])
}

func TestEvaluateWithCache(t *testing.T) {
	form := loadOrderForm(t)
	cache := NewMemoryLayoutCache(0)

	first := Evaluate(form, AnswerMap{"f_qty": float64(1)}, nil, cache)
	// Answer changes that keep visibility reuse the cached layout.
	second := Evaluate(form, AnswerMap{"f_qty": float64(2)}, nil, cache)
	assert.Equal(t, first.Layout, second.Layout)
	assert.Equal(t, 1, cache.Len())

	// Revealing a field changes the key.
	Evaluate(form, AnswerMap{"f_qty": float64(9)}, nil, cache)
	assert.Equal(t, 2, cache.Len())
}

func TestRun(t *testing.T) {
	request := `{"form": ` + orderFormJSON + `, "answers": {"f_name": "Ana", "f_qty": 2, "f_price": 5}, "params": {"campaign": "x"}}`

	out, err := Run(request)
	require.NoError(t, err)

	var result RenderResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, StatusReady, result.Status)
	assert.Equal(t, "$10.00", result.Calculations["f_total"].Display)
	assert.Equal(t, "Thanks Ana, your total is 10 (x)", result.Texts.ThankYouMessage)

	again, err := Run(request)
	require.NoError(t, err)
	assert.Equal(t, out, again, "identical inputs render identically")

	_, err = Run(`{"form": `)
	assert.Error(t, err)
}
