package formrt

import (
	"encoding/json"
	"fmt"
	"slices"
)

// Verify checks that resultJSON is what the engine derives from requestJSON.
// It replays the render pass and compares visibility, positions, span
// tokens, the grid declaration, calculations, resolved texts, answer errors
// and status, so a saved render can be proven reproducible from the
// persisted definition alone.
func Verify(resultJSON, requestJSON string) (bool, error) {
	var submitted RenderResult
	if err := json.Unmarshal([]byte(resultJSON), &submitted); err != nil {
		return false, fmt.Errorf("unmarshal result: %w", err)
	}

	var req Request
	if err := json.Unmarshal([]byte(requestJSON), &req); err != nil {
		return false, fmt.Errorf("unmarshal request: %w", err)
	}

	replayed := Evaluate(&req.Form, req.Answers, req.Params, nil)

	if !slices.Equal(submitted.Visible, replayed.Visible) {
		return false, fmt.Errorf("visible fields mismatch: got %v, expected %v", submitted.Visible, replayed.Visible)
	}
	if !slices.Equal(submitted.Hidden, replayed.Hidden) {
		return false, fmt.Errorf("hidden fields mismatch: got %v, expected %v", submitted.Hidden, replayed.Hidden)
	}

	if len(submitted.Layout.Positions) != len(replayed.Layout.Positions) {
		return false, fmt.Errorf("position count mismatch: got %d, expected %d",
			len(submitted.Layout.Positions), len(replayed.Layout.Positions))
	}
	for i, want := range replayed.Layout.Positions {
		if got := submitted.Layout.Positions[i]; got != want {
			return false, fmt.Errorf("position of '%s' mismatch: got %+v, expected %+v", want.ID, got, want)
		}
	}

	if !slices.Equal(submitted.Layout.Spans, replayed.Layout.Spans) {
		return false, fmt.Errorf("span tokens mismatch: got %v, expected %v", submitted.Layout.Spans, replayed.Layout.Spans)
	}
	if submitted.Grid != replayed.Grid {
		return false, fmt.Errorf("grid mismatch: got %+v, expected %+v", submitted.Grid, replayed.Grid)
	}

	for id, want := range replayed.Calculations {
		got, ok := submitted.Calculations[id]
		if !ok {
			return false, fmt.Errorf("calculation '%s' missing in result", id)
		}
		if got != want {
			return false, fmt.Errorf("calculation '%s' mismatch: got %v (%s), expected %v (%s)",
				id, got.Value, got.Display, want.Value, want.Display)
		}
	}

	if err := compareTexts(submitted.Texts, replayed.Texts); err != nil {
		return false, err
	}

	if !slices.Equal(submitted.Errors, replayed.Errors) {
		return false, fmt.Errorf("answer errors mismatch: got %+v, expected %+v", submitted.Errors, replayed.Errors)
	}
	if submitted.Status != replayed.Status {
		return false, fmt.Errorf("status mismatch: got %s, expected %s", submitted.Status, replayed.Status)
	}

	return true, nil
}

func compareTexts(got, want Texts) error {
	check := func(name, g, w string) error {
		if g != w {
			return fmt.Errorf("%s mismatch: got %q, expected %q", name, g, w)
		}
		return nil
	}
	for _, err := range []error{
		check("title", got.Title, want.Title),
		check("description", got.Description, want.Description),
		check("thank you message", got.ThankYouMessage, want.ThankYouMessage),
		check("redirect url", got.RedirectURL, want.RedirectURL),
	} {
		if err != nil {
			return err
		}
	}
	for id, w := range want.Fields {
		if g := got.Fields[id]; g != w {
			return fmt.Errorf("text of field '%s' mismatch: got %+v, expected %+v", id, g, w)
		}
	}
	return nil
}
