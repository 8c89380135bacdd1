package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/dlovans/formrt/internal/store"
	"github.com/dlovans/formrt/internal/telemetry"
	"github.com/dlovans/formrt/pkg/formrt"
	"github.com/dlovans/formrt/pkg/lint"
)

// maxBodyBytes bounds every request body.
const maxBodyBytes = 4 << 20

// ValidateFormulaRequest is the request body for POST /v1/formulas/validate.
type ValidateFormulaRequest struct {
	Expression string         `json:"expression"`
	Fields     []formrt.Field `json:"fields"`
}

// ValidateFormulaResponse reports whether a formula is usable.
type ValidateFormulaResponse struct {
	Valid bool                 `json:"valid"`
	Error *formrt.FormulaError `json:"error,omitempty"`
}

// EvaluateFormRequest is the request body for POST /v1/forms/{formId}/evaluate.
type EvaluateFormRequest struct {
	Answers formrt.AnswerMap  `json:"answers"`
	Params  map[string]string `json:"params,omitempty"`
}

// LintFailure is returned when a form is rejected by the linter.
type LintFailure struct {
	Error  string       `json:"error"`
	Issues []lint.Issue `json:"issues"`
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// Evaluate handles POST /v1/evaluate
func (h *Handler) Evaluate(w http.ResponseWriter, r *http.Request) {
	var req formrt.Request
	if !decode(w, r, &req) {
		return
	}
	if req.Form.Fields == nil {
		writeError(w, http.StatusBadRequest, "form.fields is required")
		return
	}

	params := formrt.ParamsFromQuery(req.Params, r.URL.Query())
	result := h.evaluate(r.Context(), "inline", &req.Form, req.Answers, params)
	writeJSON(w, http.StatusOK, result)
}

// EvaluateForm handles POST /v1/forms/{formId}/evaluate
func (h *Handler) EvaluateForm(w http.ResponseWriter, r *http.Request) {
	formID := mux.Vars(r)["formId"]

	var req EvaluateFormRequest
	if !decode(w, r, &req) {
		return
	}

	form, err := h.store.Get(r.Context(), formID)
	if err != nil {
		h.storeError(w, err)
		return
	}

	params := formrt.ParamsFromQuery(req.Params, r.URL.Query())
	result := h.evaluate(r.Context(), "stored", form, req.Answers, params)
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) evaluate(ctx context.Context, source string, form *formrt.Form, answers formrt.AnswerMap, params map[string]string) *formrt.RenderResult {
	ctx, span := telemetry.StartEvaluation(ctx, form.ID, len(form.Fields))
	start := time.Now()

	var cache formrt.LayoutCache
	if h.cache != nil {
		cache = h.cache(ctx)
	}
	if cache != nil && h.metrics != nil {
		cache = h.metrics.Counting(ctx, cache)
	}

	result := formrt.Evaluate(form, answers, params, cache)

	if h.metrics != nil {
		h.metrics.RecordEvaluation(ctx, source, result, time.Since(start))
	}
	telemetry.EndEvaluation(span, result)

	for _, d := range result.Diagnostics {
		h.log.Debug().
			Str("form_id", form.ID).
			Str("field_id", d.FieldID).
			Str("kind", string(d.Kind)).
			Msg(d.Message)
	}
	return result
}

// ValidateFormula handles POST /v1/formulas/validate
func (h *Handler) ValidateFormula(w http.ResponseWriter, r *http.Request) {
	var req ValidateFormulaRequest
	if !decode(w, r, &req) {
		return
	}

	err := formrt.ValidateFormula(req.Expression, req.Fields)
	if h.metrics != nil {
		h.metrics.RecordFormulaCheck(r.Context(), err)
	}
	if err == nil {
		writeJSON(w, http.StatusOK, ValidateFormulaResponse{Valid: true})
		return
	}

	var ferr *formrt.FormulaError
	if !errors.As(err, &ferr) {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, ValidateFormulaResponse{Valid: false, Error: ferr})
}

// Lint handles POST /v1/lint
func (h *Handler) Lint(w http.ResponseWriter, r *http.Request) {
	var form formrt.Form
	if !decode(w, r, &form) {
		return
	}
	writeJSON(w, http.StatusOK, lint.Check(&form))
}

// CreateForm handles POST /v1/forms
func (h *Handler) CreateForm(w http.ResponseWriter, r *http.Request) {
	var form formrt.Form
	if !decode(w, r, &form) {
		return
	}
	if err := store.Prepare(&form); err != nil {
		h.storeError(w, err)
		return
	}
	if !h.lintOK(w, &form) {
		return
	}

	id, err := h.store.Create(r.Context(), &form)
	if err != nil {
		h.storeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"formId": id})
}

// GetForm handles GET /v1/forms/{formId}
func (h *Handler) GetForm(w http.ResponseWriter, r *http.Request) {
	form, err := h.store.Get(r.Context(), mux.Vars(r)["formId"])
	if err != nil {
		h.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, form)
}

// UpdateForm handles PUT /v1/forms/{formId}
func (h *Handler) UpdateForm(w http.ResponseWriter, r *http.Request) {
	var form formrt.Form
	if !decode(w, r, &form) {
		return
	}
	form.ID = mux.Vars(r)["formId"]
	if err := store.Prepare(&form); err != nil {
		h.storeError(w, err)
		return
	}
	if !h.lintOK(w, &form) {
		return
	}

	if err := h.store.Update(r.Context(), &form); err != nil {
		h.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"formId": form.ID})
}

// DeleteForm handles DELETE /v1/forms/{formId}
func (h *Handler) DeleteForm(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Delete(r.Context(), mux.Vars(r)["formId"]); err != nil {
		h.storeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// lintOK rejects forms with lint errors. Warnings never block saving.
func (h *Handler) lintOK(w http.ResponseWriter, form *formrt.Form) bool {
	result := lint.Check(form)
	if result.Valid {
		return true
	}
	writeJSON(w, http.StatusUnprocessableEntity, LintFailure{
		Error:  "form has lint errors",
		Issues: result.Errors(),
	})
	return false
}

func (h *Handler) storeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrFormNotFound):
		writeError(w, http.StatusNotFound, "form not found")
	case errors.Is(err, store.ErrInvalidForm):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		h.log.Error().Err(err).Msg("form store failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
