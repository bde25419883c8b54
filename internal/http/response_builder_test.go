package http

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTMXResponseBuilderWritesTriggers(t *testing.T) {
	rec := httptest.NewRecorder()
	NewHTMXResponse().
		TriggerExpensesChanged(2026, 8).
		Trigger("form:reset", struct{}{}).
		BodyHTML(`<div class="success">ok</div>`).
		Write(rec)

	assert.Equal(t, 200, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, `<div class="success">ok</div>`, rec.Body.String())

	var triggers map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(rec.Header().Get("HX-Trigger")), &triggers))
	assert.Contains(t, triggers, "expenses:changed")
	assert.Contains(t, triggers, "form:reset")
	assert.JSONEq(t, `{"year":2026,"month":8}`, string(triggers["expenses:changed"]))
}

func TestErrorResponseEscapesMessage(t *testing.T) {
	rec := httptest.NewRecorder()
	BadRequestError(`<script>alert(1)</script>`).Write(rec)

	assert.Equal(t, 400, rec.Code)
	assert.NotContains(t, rec.Body.String(), "<script>")
	assert.Contains(t, rec.Body.String(), "&lt;script&gt;")
}

func TestWriteJSONError(t *testing.T) {
	rec := httptest.NewRecorder()
	writeJSONError(rec, 401, "authentication required")

	assert.Equal(t, 401, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error":"authentication required"}`, rec.Body.String())
}
