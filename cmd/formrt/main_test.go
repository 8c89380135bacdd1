package main

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dlovans/formrt/pkg/formrt"
)

func TestToJSON(t *testing.T) {
	t.Run("json passes through", func(t *testing.T) {
		out, err := toJSON([]byte(`  {"fields": []}  `), ".json")
		require.NoError(t, err)
		assert.Equal(t, `{"fields": []}`, string(out))
	})

	t.Run("yaml form", func(t *testing.T) {
		out, err := toJSON([]byte(`
title: Hello {{field:name}}
layout:
  columns: 2
  gridGap: sm
fields:
  - id: f_name
    ref: name
    type: short_text
    label: Name
    width: half
  - id: f_qty
    type: number
    label: Qty
    order_index: 1
    conditional_logic:
      action: show
      conditions:
        - fieldId: f_name
          operator: is_not_empty
          value: ""
`), ".yaml")
		require.NoError(t, err)

		var form formrt.Form
		require.NoError(t, json.Unmarshal(out, &form))
		assert.Equal(t, 2, form.Layout.Columns)
		require.Len(t, form.Fields, 2)
		assert.NoError(t, form.Fields[1].ConditionalLogic.Err())

		result := formrt.Evaluate(&form, formrt.AnswerMap{"f_name": "Ana"}, nil, nil)
		assert.Equal(t, "Hello Ana", result.Texts.Title)
		assert.Equal(t, []string{"f_name", "f_qty"}, result.Visible)
	})

	t.Run("invalid yaml", func(t *testing.T) {
		_, err := toJSON([]byte("fields: [unclosed"), ".yml")
		assert.Error(t, err)
	})
}

func TestParseParams(t *testing.T) {
	assert.Equal(t, map[string]string{"utm_source": "ads", "ref": "x=y", "empty": ""},
		parseParams("utm_source=ads&ref=x=y&empty=&novalue&=skip"))
}
