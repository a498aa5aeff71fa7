package utils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	resp := ErrorResponse("Hold not found", "no live hold")
	resp.Code = "HOLD_NOT_FOUND"

	require.NoError(t, WriteJSON(rec, http.StatusNotFound, resp))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "HOLD_NOT_FOUND", body["code"])
	assert.NotContains(t, body, "retryable")
	assert.NotContains(t, body, "data")
}

func TestSuccessResponse(t *testing.T) {
	resp := SuccessResponse("ok", map[string]int{"available": 3})
	assert.True(t, resp.Success)
	assert.False(t, resp.Timestamp.IsZero())
	assert.Empty(t, resp.Error)
}
