package main

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukex/agentopt/pkg/cmd"
	"github.com/dukex/agentopt/pkg/persistence/file"
)

func setupTestAPI(t *testing.T) *API {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	persist := file.NewPersistence(t.TempDir())
	opt := cmd.NewOptimizer(cmd.OptimizerConfig{
		APIKey:         "test-key",
		SuggesterModel: "gpt-4o",
	}, logger, nil)

	return NewAPI(logger, persist, opt)
}

func TestRootEndpoint(t *testing.T) {
	app := setupTestAPI(t).App()

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "Agentopt API", string(body))
}

func TestHealthEndpoint(t *testing.T) {
	app := setupTestAPI(t).App()

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestListOptimizationsStartsEmpty(t *testing.T) {
	app := setupTestAPI(t).App()

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/optimizations/", nil))
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestGetUnknownOptimizationReturns404(t *testing.T) {
	app := setupTestAPI(t).App()

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/optimizations/nope", nil))
	require.NoError(t, err)

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
