package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lexcodex/lplsense/framework/index"
	"github.com/lexcodex/lplsense/framework/lpl"
)

func newTestAPI(t *testing.T) *APIServer {
	t.Helper()
	manager := index.NewIndexManager(nil, nil, index.IndexConfig{}, nil)
	_, err := manager.IndexContent(context.Background(), "Target.busclass", targetText)
	require.NoError(t, err)
	_, err = manager.IndexContent(context.Background(), "Importer.busclass", importerText)
	require.NoError(t, err)
	return &APIServer{Manager: manager}
}

func TestAPIResolve(t *testing.T) {
	api := newTestAPI(t)
	body, _ := json.Marshal(ResolveRequest{File: "Importer.busclass", Line: 8, Character: 31})
	req := httptest.NewRequest(http.MethodPost, "/api/resolve", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp ResolveResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "class", resp.Kind)
	require.Equal(t, "Target", resp.Name)
	require.Len(t, resp.Definitions, 1)
	require.Equal(t, "Target.busclass", resp.Definitions[0].File)
}

func TestAPIResolveRejectsGet(t *testing.T) {
	api := newTestAPI(t)
	rec := httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/resolve", nil))
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestAPIOutlineAndDiagnostics(t *testing.T) {
	api := newTestAPI(t)

	rec := httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/outline?file=Target.busclass", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"kind":"class"`)
	var outline []lpl.Symbol
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &outline))
	require.NotEmpty(t, outline)
	require.Equal(t, "Target", outline[0].Name)
	require.Equal(t, lpl.KindClass, outline[0].Kind)

	rec = httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/outline?file=Nope.busclass", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/diagnostics", nil))
	var diags []lpl.Diagnostic
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &diags))
	require.Len(t, diags, 1)
	require.Equal(t, "Target.busclass", diags[0].File)
}

func TestAPIClassesAndReport(t *testing.T) {
	api := newTestAPI(t)

	rec := httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/classes", nil))
	var classes []lpl.ClassSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &classes))
	require.Len(t, classes, 2)
	require.Equal(t, "Importer", classes[0].Name)
	require.Equal(t, []string{"CreateSingleTarget"}, classes[0].Actions)

	rec = httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/report?class=Importer", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ActionName,IsRestricted,ValidWhen\nCreateSingleTarget,,\n", rec.Body.String())

	rec = httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/report?class=Nope", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}
