package handlers

import (
	"encoding/json"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"retail-analytics/internal/report"
)

func createTestOLAPHandlers(t *testing.T) *OLAPHandlers {
	t.Helper()
	logger := slog.Default()
	reports := report.NewGenerator(t.TempDir(), logger)
	return NewOLAPHandlers(createTestAnalytics(), reports, logger)
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode JSON: %v", err)
	}
	return response
}

func TestOLAPHandlers_HandleRollUp(t *testing.T) {
	handlers := createTestOLAPHandlers(t)

	req := httptest.NewRequest(http.MethodGet, "/api/olap/rollup?dimension=date&from=month&to=year", nil)
	w := httptest.NewRecorder()

	handlers.HandleRollUp(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	response := decodeEnvelope(t, w)
	if success, ok := response["success"].(bool); !ok || !success {
		t.Error("expected success=true in response")
	}

	data, ok := response["data"].(map[string]interface{})
	if !ok {
		t.Fatal("expected data object in response")
	}
	cells, ok := data["cells"].([]interface{})
	if !ok || len(cells) != 2 {
		t.Errorf("expected 2 yearly cells, got %v", data["cells"])
	}
}

func TestOLAPHandlers_HandleRollUp_HierarchyViolation(t *testing.T) {
	handlers := createTestOLAPHandlers(t)

	req := httptest.NewRequest(http.MethodGet, "/api/olap/rollup?dimension=date&from=year&to=month", nil)
	w := httptest.NewRecorder()

	handlers.HandleRollUp(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", w.Code)
	}

	response := decodeEnvelope(t, w)
	if success, ok := response["success"].(bool); !ok || success {
		t.Error("expected success=false in response")
	}

	errObj, ok := response["error"].(map[string]interface{})
	if !ok {
		t.Fatal("expected error object in response")
	}
	if code := errObj["code"]; code != "HIERARCHY_VIOLATION" {
		t.Errorf("expected HIERARCHY_VIOLATION, got %v", code)
	}
}

func TestOLAPHandlers_HandleRollUp_UnknownDimension(t *testing.T) {
	handlers := createTestOLAPHandlers(t)

	req := httptest.NewRequest(http.MethodGet, "/api/olap/rollup?dimension=weekday&from=day&to=month", nil)
	w := httptest.NewRecorder()

	handlers.HandleRollUp(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", w.Code)
	}

	response := decodeEnvelope(t, w)
	errObj, ok := response["error"].(map[string]interface{})
	if !ok {
		t.Fatal("expected error object in response")
	}
	if code := errObj["code"]; code != "VALIDATION_ERROR" {
		t.Errorf("expected VALIDATION_ERROR, got %v", code)
	}
}

func TestOLAPHandlers_HandleDrillDown(t *testing.T) {
	handlers := createTestOLAPHandlers(t)

	req := httptest.NewRequest(http.MethodGet, "/api/olap/drilldown?dimension=date&from=year&to=month", nil)
	w := httptest.NewRecorder()

	handlers.HandleDrillDown(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	response := decodeEnvelope(t, w)
	data := response["data"].(map[string]interface{})
	cells, ok := data["cells"].([]interface{})
	if !ok || len(cells) != 3 {
		t.Errorf("expected 3 monthly cells, got %v", data["cells"])
	}
}

func TestOLAPHandlers_HandleSlice(t *testing.T) {
	handlers := createTestOLAPHandlers(t)

	req := httptest.NewRequest(http.MethodGet, "/api/olap/slice?field=country&value=United+Kingdom", nil)
	w := httptest.NewRecorder()

	handlers.HandleSlice(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	response := decodeEnvelope(t, w)
	data := response["data"].(map[string]interface{})
	summary, ok := data["summary"].(map[string]interface{})
	if !ok {
		t.Fatal("expected summary in response")
	}
	if rows := summary["rows"]; rows != float64(2) {
		t.Errorf("expected 2 matching rows, got %v", rows)
	}
}

func TestOLAPHandlers_HandleDice(t *testing.T) {
	handlers := createTestOLAPHandlers(t)

	body := `{"predicates":[{"field":"country","op":"eq","value":"United Kingdom"},{"field":"amount","op":"ge","bound":12}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/olap/dice", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	handlers.HandleDice(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	response := decodeEnvelope(t, w)
	data := response["data"].(map[string]interface{})
	summary := data["summary"].(map[string]interface{})
	if rows := summary["rows"]; rows != float64(1) {
		t.Errorf("expected 1 matching row, got %v", rows)
	}
}

func TestOLAPHandlers_HandleDice_InvalidBody(t *testing.T) {
	handlers := createTestOLAPHandlers(t)

	req := httptest.NewRequest(http.MethodPost, "/api/olap/dice", strings.NewReader("{not json"))
	w := httptest.NewRecorder()

	handlers.HandleDice(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", w.Code)
	}
}

func TestOLAPHandlers_HandlePivot(t *testing.T) {
	handlers := createTestOLAPHandlers(t)

	// Measure and aggregation fall back to amount/sum.
	req := httptest.NewRequest(http.MethodGet, "/api/olap/pivot?rows=country&columns=year", nil)
	w := httptest.NewRecorder()

	handlers.HandlePivot(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	response := decodeEnvelope(t, w)
	data := response["data"].(map[string]interface{})
	grand, ok := data["grand_total"].(float64)
	if !ok || math.Abs(grand-51) > 1e-9 {
		t.Errorf("expected grand_total=51, got %v", data["grand_total"])
	}
	labels, ok := data["row_labels"].([]interface{})
	if !ok || len(labels) != 2 {
		t.Errorf("expected 2 row labels, got %v", data["row_labels"])
	}
}

func TestOLAPHandlers_HandlePivot_UnknownAggregation(t *testing.T) {
	handlers := createTestOLAPHandlers(t)

	req := httptest.NewRequest(http.MethodGet, "/api/olap/pivot?rows=country&columns=year&agg=median", nil)
	w := httptest.NewRecorder()

	handlers.HandlePivot(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", w.Code)
	}
}

func TestOLAPHandlers_HandleReport(t *testing.T) {
	handlers := createTestOLAPHandlers(t)

	req := httptest.NewRequest(http.MethodGet, "/api/report", nil)
	w := httptest.NewRecorder()

	handlers.HandleReport(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("expected text/plain content type, got %q", ct)
	}

	body := w.Body.String()
	if !strings.Contains(body, "EXECUTIVE SUMMARY") {
		t.Error("report should contain the executive summary")
	}
	if !strings.Contains(body, "OLAP SUMMARY") {
		t.Error("report should contain the OLAP summary")
	}
}
