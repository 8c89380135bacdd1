package formrt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func recallFields() []Field {
	return []Field{
		{ID: "f_name", Ref: "name", Type: TypeShortText},
		{ID: "f_colors", Ref: "colors", Type: TypeCheckboxes},
		{ID: "f_agree", Ref: "agree", Type: TypeYesNo},
		{ID: "f_addr", Ref: "addr", Type: TypeShortText},
		{ID: "f_age", Ref: "age", Type: TypeNumber},
		{ID: "f_noref", Type: TypeShortText},
		{ID: "f_blank", Ref: "blank", Type: TypeShortText},
		{ID: "f_score", Ref: "score", Type: TypeCalculated},
	}
}

func TestResolveExample(t *testing.T) {
	template := "Hi {{field:name}}, code {{param:ref}}, total {{var:score}}"
	params := map[string]string{"ref": "X1"}
	calcs := CalcResults{"f_score": {Value: 42, Display: "42.00"}}

	ctx := BuildRecallContext(recallFields(), AnswerMap{"f_name": "Ana"}, params, calcs)
	assert.Equal(t, "Hi Ana, code X1, total 42", Resolve(template, ctx))

	ctx = BuildRecallContext(recallFields(), AnswerMap{}, params, calcs)
	assert.Equal(t, "Hi , code X1, total 42", Resolve(template, ctx))
}

func TestBuildRecallContext(t *testing.T) {
	answers := AnswerMap{
		"f_name":   "Ana",
		"f_colors": []any{"red", "blue"},
		"f_agree":  true,
		"f_addr":   map[string]any{"city": "Lund", "zip": "22100"},
		"f_age":    float64(31),
		"f_noref":  "dropped",
		"f_blank":  "",
	}
	calcs := CalcResults{"f_score": {Value: 12.5, Display: "12.50"}}

	ctx := BuildRecallContext(recallFields(), answers, map[string]string{"utm": "mail"}, calcs)

	assert.Equal(t, map[string]string{
		"name":   "Ana",
		"colors": "red, blue",
		"agree":  "true",
		"addr":   `{"city":"Lund","zip":"22100"}`,
		"age":    "31",
	}, ctx.AnswersByRef)
	assert.Equal(t, map[string]string{"utm": "mail"}, ctx.URLParams)
	assert.Equal(t, map[string]string{"score": "12.5"}, ctx.Variables)
}

func TestResolveTokens(t *testing.T) {
	ctx := RecallContext{
		AnswersByRef: map[string]string{"name": "Ana"},
		URLParams:    map[string]string{"source": "ads"},
		Variables:    map[string]string{"total": "9"},
	}

	tests := []struct {
		name     string
		template string
		want     string
	}{
		{"whitespace inside braces", "Hello {{ field : name }}!", "Hello Ana!"},
		{"hidden is a synonym of param", "{{hidden:source}}/{{param:source}}", "ads/ads"},
		{"unknown kind is empty", "[{{secret:name}}]", "[]"},
		{"unknown kind with digits is empty", "[{{x1:y}}] [{{my_kind:name}}]", "[] []"},
		{"miss is empty", "[{{var:nothing}}]", "[]"},
		{"kinds are case sensitive", "[{{FIELD:name}}]", "[]"},
		{"no tokens", "Plain text", "Plain text"},
		{"single braces are left alone", "{name} and {{field:name}}", "{name} and Ana"},
		{"invalid name is not a token", "{{field:full name}}", "{{field:full name}}"},
		{"repeated tokens", "{{field:name}} {{field:name}}", "Ana Ana"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Resolve(tt.template, ctx))
		})
	}
}

func TestResolvePtr(t *testing.T) {
	ctx := RecallContext{AnswersByRef: map[string]string{"name": "Ana"}}
	assert.Equal(t, "", ResolvePtr(nil, ctx))

	tpl := "Hi {{field:name}}"
	assert.Equal(t, "Hi Ana", ResolvePtr(&tpl, ctx))
}

func TestRecallRefs(t *testing.T) {
	refs := RecallRefs("{{field:a}} {{ var : b }} {{nope}}")
	assert.Equal(t, [][2]string{{"field", "a"}, {"var", "b"}}, refs)
}
