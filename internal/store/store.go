// Package store persists form definitions for the render service.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/dlovans/formrt/pkg/formrt"
)

var (
	ErrFormNotFound = errors.New("form not found")
	ErrInvalidForm  = errors.New("invalid form")
)

// FormStore handles persistence of form definitions.
type FormStore interface {
	Create(ctx context.Context, form *formrt.Form) (string, error)
	Get(ctx context.Context, id string) (*formrt.Form, error)
	Update(ctx context.Context, form *formrt.Form) error
	Delete(ctx context.Context, id string) error
}

// Prepare checks a form before it is stored and assigns ids to the form,
// its fields and its conditions where the author left them empty.
func Prepare(form *formrt.Form) error {
	if form == nil || form.Fields == nil {
		return fmt.Errorf("%w: fields are required", ErrInvalidForm)
	}
	if form.ID == "" {
		form.ID = uuid.NewString()
	}

	seen := make(map[string]bool, len(form.Fields))
	for i := range form.Fields {
		f := &form.Fields[i]
		if f.ID == "" {
			f.ID = uuid.NewString()
		}
		if seen[f.ID] {
			return fmt.Errorf("%w: duplicate field id '%s'", ErrInvalidForm, f.ID)
		}
		seen[f.ID] = true

		if f.ConditionalLogic == nil {
			continue
		}
		logic, ok := f.ConditionalLogic.Logic()
		if !ok {
			// Malformed payloads are stored as sent so an editor can repair them.
			continue
		}
		changed := false
		for j := range logic.Conditions {
			if logic.Conditions[j].ID == "" {
				logic.Conditions[j].ID = uuid.NewString()
				changed = true
			}
		}
		if changed {
			f.ConditionalLogic = formrt.NewLogic(logic)
		}
	}
	return nil
}

// clone deep-copies a form through its JSON form, which also keeps malformed
// payloads byte for byte.
func clone(form *formrt.Form) (*formrt.Form, error) {
	data, err := json.Marshal(form)
	if err != nil {
		return nil, err
	}
	var out formrt.Form
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
