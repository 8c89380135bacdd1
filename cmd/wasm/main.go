//go:build js && wasm

// Package main provides WASM bindings for the form runtime.
// The authoring canvas, the modal preview and the embeddable widget all
// call these so every surface renders a form identically.
package main

import (
	"encoding/json"
	"syscall/js"

	"github.com/dlovans/formrt/pkg/formrt"
	"github.com/dlovans/formrt/pkg/lint"
)

// layoutCache lives as long as the page, so it memoizes across render passes.
var layoutCache = formrt.NewMemoryLayoutCache(256)

func main() {
	js.Global().Set("FormrtEvaluate", js.FuncOf(formrtEvaluate))
	js.Global().Set("FormrtValidateFormula", js.FuncOf(formrtValidateFormula))
	js.Global().Set("FormrtLint", js.FuncOf(formrtLint))
	js.Global().Set("FormrtVerify", js.FuncOf(formrtVerify))
	js.Global().Set("FormrtResetLayoutCache", js.FuncOf(func(this js.Value, args []js.Value) any {
		layoutCache.Reset()
		return nil
	}))

	// Keep the Go runtime alive
	select {}
}

// formrtEvaluate runs one render pass.
// Usage: FormrtEvaluate(requestJsonString) -> { result: object, error?: string }
func formrtEvaluate(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return makeError("FormrtEvaluate requires 1 argument: requestJson")
	}

	var req formrt.Request
	if err := json.Unmarshal([]byte(args[0].String()), &req); err != nil {
		return makeError("invalid request: " + err.Error())
	}

	result := formrt.Evaluate(&req.Form, req.Answers, req.Params, layoutCache)
	return makeResult(result)
}

// formrtValidateFormula checks a formula while it is being authored.
// Usage: FormrtValidateFormula(expression, fieldsJsonString) -> { valid: boolean, error?: string, kind?: string }
func formrtValidateFormula(this js.Value, args []js.Value) any {
	if len(args) < 2 {
		return makeError("FormrtValidateFormula requires 2 arguments: expression, fieldsJson")
	}

	var fields []formrt.Field
	if err := json.Unmarshal([]byte(args[1].String()), &fields); err != nil {
		return makeError("invalid fields: " + err.Error())
	}

	err := formrt.ValidateFormula(args[0].String(), fields)
	if err == nil {
		return map[string]any{"valid": true}
	}

	response := map[string]any{
		"valid": false,
		"error": err.Error(),
	}
	if ferr, ok := err.(*formrt.FormulaError); ok {
		response["kind"] = string(ferr.Kind)
		response["error"] = ferr.Reason
		if ferr.Field != "" {
			response["field"] = ferr.Field
		}
	}
	return response
}

// formrtLint runs static analysis on a form definition.
// Usage: FormrtLint(formJsonString) -> { result: object, error?: string }
func formrtLint(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return makeError("FormrtLint requires 1 argument: formJson")
	}

	result, err := lint.Run(args[0].String())
	if err != nil {
		return makeError(err.Error())
	}
	return makeResult(result)
}

// formrtVerify replays a saved render.
// Usage: FormrtVerify(resultJson, requestJson) -> { valid: boolean, error?: string }
func formrtVerify(this js.Value, args []js.Value) any {
	if len(args) < 2 {
		return makeError("FormrtVerify requires 2 arguments: resultJson, requestJson")
	}

	valid, err := formrt.Verify(args[0].String(), args[1].String())
	if err != nil {
		return map[string]any{
			"valid": false,
			"error": err.Error(),
		}
	}

	return map[string]any{
		"valid": valid,
	}
}

// makeError creates a JS-friendly error response
func makeError(msg string) map[string]any {
	return map[string]any{
		"error": msg,
	}
}

// makeResult converts v into plain JS values through JSON, since js.ValueOf
// only accepts maps, slices and primitives.
func makeResult(v any) map[string]any {
	data, err := json.Marshal(v)
	if err != nil {
		return makeError(err.Error())
	}

	var result any
	if err := json.Unmarshal(data, &result); err != nil {
		// Fall back to string if parsing fails
		return map[string]any{
			"result": string(data),
		}
	}

	return map[string]any{
		"result": result,
	}
}
