package authapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegisterFeatures(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	RegisterFeatures(mux, "/api/v1/")

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/features", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		Success bool     `json:"success"`
		Message string   `json:"message"`
		Data    []string `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.True(t, body.Success)
	require.Equal(t, "Features fetched successfully", body.Message)
	require.Equal(t, Features, body.Data)

	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/features", nil))
	require.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}
