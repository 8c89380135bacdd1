package formrt

import (
	"regexp"
	"strings"
)

// Recall token kinds.
const (
	RecallField  = "field"
	RecallParam  = "param"
	RecallHidden = "hidden"
	RecallVar    = "var"
)

var recallPattern = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_]+)\s*:\s*([A-Za-z0-9_]+)\s*\}\}`)

// CalcResults maps calculated field ids to their results for one render pass.
type CalcResults map[string]CalcResult

// BuildRecallContext assembles the lookup tables for Resolve. calculated
// must come from the calculation pass of the same render; the resolver never
// calculates on its own.
func BuildRecallContext(fields []Field, answers AnswerMap, params map[string]string, calculated CalcResults) RecallContext {
	ctx := RecallContext{
		AnswersByRef: make(map[string]string),
		URLParams:    make(map[string]string, len(params)),
		Variables:    make(map[string]string),
	}

	for name, value := range params {
		ctx.URLParams[name] = value
	}

	for _, f := range fields {
		if f.Ref == "" {
			continue
		}
		if f.Type == TypeCalculated {
			if result, ok := calculated[f.ID]; ok {
				ctx.Variables[f.Ref] = formatFloat(result.Value)
			}
			continue
		}
		if text := Stringify(answers[f.ID]); text != "" {
			ctx.AnswersByRef[f.Ref] = text
		}
	}

	return ctx
}

// Resolve substitutes every {{kind:name}} token in template. Unknown kinds
// and missing names become empty text; a token never survives into the output.
func Resolve(template string, ctx RecallContext) string {
	if template == "" || !strings.Contains(template, "{{") {
		return template
	}
	return recallPattern.ReplaceAllStringFunc(template, func(token string) string {
		m := recallPattern.FindStringSubmatch(token)
		return ctx.lookup(m[1], m[2])
	})
}

// ResolvePtr resolves an optional template; nil resolves to "".
func ResolvePtr(template *string, ctx RecallContext) string {
	if template == nil {
		return ""
	}
	return Resolve(*template, ctx)
}

func (c RecallContext) lookup(kind, name string) string {
	switch kind {
	case RecallField:
		return c.AnswersByRef[name]
	case RecallParam, RecallHidden:
		return c.URLParams[name]
	case RecallVar:
		return c.Variables[name]
	default:
		return ""
	}
}

// RecallRefs lists the kind:name pairs referenced by template, in order.
func RecallRefs(template string) [][2]string {
	var refs [][2]string
	for _, m := range recallPattern.FindAllStringSubmatch(template, -1) {
		refs = append(refs, [2]string{m[1], m[2]})
	}
	return refs
}
