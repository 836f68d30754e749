package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"retail-analytics/internal/models"
	"retail-analytics/internal/services"
)

func createTestAnalytics() *services.Analytics {
	a := services.NewAnalytics()
	testData := []models.Transaction{
		{
			InvoiceNo:   "536365",
			Date:        time.Date(2010, 1, 15, 0, 0, 0, 0, time.UTC),
			CustomerID:  "17850",
			Country:     "United Kingdom",
			StockCode:   "85123A",
			Description: "WHITE HANGING HEART T-LIGHT HOLDER",
			UnitPrice:   2.55,
			Quantity:    6,
			Amount:      15.30,
		},
		{
			InvoiceNo:   "536366",
			Date:        time.Date(2010, 2, 10, 0, 0, 0, 0, time.UTC),
			CustomerID:  "13047",
			Country:     "France",
			StockCode:   "22423",
			Description: "REGENCY CAKESTAND 3 TIER",
			UnitPrice:   12.75,
			Quantity:    2,
			Amount:      25.50,
		},
		{
			InvoiceNo:   "536370",
			Date:        time.Date(2011, 3, 5, 0, 0, 0, 0, time.UTC),
			CustomerID:  "17850",
			Country:     "United Kingdom",
			StockCode:   "85123A",
			Description: "WHITE HANGING HEART T-LIGHT HOLDER",
			UnitPrice:   2.55,
			Quantity:    4,
			Amount:      10.20,
		},
	}
	a.SetData(testData)
	return a
}

func TestNewAPIHandlers(t *testing.T) {
	analytics := createTestAnalytics()
	logger := slog.Default()
	handlers := NewAPIHandlers(analytics, logger)

	if handlers == nil {
		t.Fatal("NewAPIHandlers() returned nil")
	}

	if handlers.analytics != analytics {
		t.Error("NewAPIHandlers() should set analytics field")
	}
}

func TestAPIHandlers_HandleCountryRevenue(t *testing.T) {
	analytics := createTestAnalytics()
	logger := slog.Default()
	handlers := NewAPIHandlers(analytics, logger)

	req := httptest.NewRequest(http.MethodGet, "/api/country-revenue", nil)
	w := httptest.NewRecorder()

	handlers.HandleCountryRevenue(w, req)

	// Check status code
	if w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	// Check content type
	contentType := w.Header().Get("Content-Type")
	if contentType != "application/json" {
		t.Errorf("expected content-type 'application/json', got %q", contentType)
	}

	// Check cache control
	cacheControl := w.Header().Get("Cache-Control")
	if cacheControl != "public, max-age=300" {
		t.Errorf("expected cache-control 'public, max-age=300', got %q", cacheControl)
	}

	// Check JSON response structure (wrapped in the success envelope)
	var response map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode JSON: %v", err)
	}

	if success, ok := response["success"].(bool); !ok || !success {
		t.Error("expected success=true in response")
	}

	if data, ok := response["data"]; !ok {
		t.Error("expected data field in response")
	} else if dataSlice, ok := data.([]interface{}); !ok || len(dataSlice) != 2 {
		t.Errorf("expected 2 countries in data array, got %v", data)
	}
}

func TestAPIHandlers_HandleTopProducts(t *testing.T) {
	analytics := createTestAnalytics()
	logger := slog.Default()
	handlers := NewAPIHandlers(analytics, logger)

	req := httptest.NewRequest(http.MethodGet, "/api/top-products", nil)
	w := httptest.NewRecorder()

	handlers.HandleTopProducts(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected content-type 'application/json', got %q", ct)
	}

	if cc := w.Header().Get("Cache-Control"); cc != "public, max-age=300" {
		t.Errorf("expected cache-control 'public, max-age=300', got %q", cc)
	}

	var response map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode JSON: %v", err)
	}

	if success, ok := response["success"].(bool); !ok || !success {
		t.Error("expected success=true in response")
	}
}

func TestAPIHandlers_HandleMonthlySales(t *testing.T) {
	analytics := createTestAnalytics()
	logger := slog.Default()
	handlers := NewAPIHandlers(analytics, logger)

	req := httptest.NewRequest(http.MethodGet, "/api/monthly-sales", nil)
	w := httptest.NewRecorder()

	handlers.HandleMonthlySales(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected content-type 'application/json', got %q", ct)
	}

	var response map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode JSON: %v", err)
	}

	if success, ok := response["success"].(bool); !ok || !success {
		t.Error("expected success=true in response")
	}
}

func TestAPIHandlers_HandleHealth(t *testing.T) {
	analytics := createTestAnalytics()
	logger := slog.Default()
	handlers := NewAPIHandlers(analytics, logger)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	handlers.HandleHealth(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected content-type 'application/json', got %q", ct)
	}

	var response map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode JSON: %v", err)
	}

	if success, ok := response["success"].(bool); !ok || !success {
		t.Error("expected success=true in response")
	}

	if data, ok := response["data"].(map[string]interface{}); !ok {
		t.Error("expected health data in response")
	} else {
		if status, ok := data["status"].(string); !ok || status != "healthy" {
			t.Errorf("expected status 'healthy', got %q", status)
		}

		if timestamp, ok := data["timestamp"].(string); !ok || timestamp == "" {
			t.Error("expected non-empty timestamp")
		} else {
			if _, err := time.Parse(time.RFC3339, timestamp); err != nil {
				t.Errorf("invalid timestamp format: %v", err)
			}
		}
	}
}

func TestAPIHandlers_HandleStats(t *testing.T) {
	analytics := createTestAnalytics()
	logger := slog.Default()
	handlers := NewAPIHandlers(analytics, logger)

	req := httptest.NewRequest(http.MethodGet, "/admin/stats", nil)
	w := httptest.NewRecorder()

	handlers.HandleStats(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	var response map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode JSON: %v", err)
	}

	if success, ok := response["success"].(bool); !ok || !success {
		t.Error("expected success=true in response")
	}

	if data, ok := response["data"].(map[string]interface{}); !ok {
		t.Error("expected stats data in response")
	} else if rc, ok := data["record_count"].(float64); !ok || rc != 3 {
		t.Errorf("expected record_count=3, got %v", data["record_count"])
	}
}

// Test that handlers set correct headers consistently
func TestAPIHandlers_HeaderConsistency(t *testing.T) {
	analytics := createTestAnalytics()
	logger := slog.Default()
	handlers := NewAPIHandlers(analytics, logger)

	apiEndpoints := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"country-revenue", handlers.HandleCountryRevenue},
		{"top-products", handlers.HandleTopProducts},
		{"monthly-sales", handlers.HandleMonthlySales},
	}

	for _, endpoint := range apiEndpoints {
		t.Run(endpoint.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			w := httptest.NewRecorder()

			endpoint.handler(w, req)

			if ct := w.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("expected content-type 'application/json', got %q", ct)
			}

			if cc := w.Header().Get("Cache-Control"); cc != "public, max-age=300" {
				t.Errorf("expected cache-control 'public, max-age=300', got %q", cc)
			}

			var response map[string]interface{}
			if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
				t.Errorf("response should be valid JSON: %v", err)
			}

			if success, ok := response["success"].(bool); !ok || !success {
				t.Error("expected success=true in response")
			}
		})
	}
}

// Test that health endpoint doesn't set cache headers
func TestAPIHandlers_HealthNoCaching(t *testing.T) {
	analytics := createTestAnalytics()
	logger := slog.Default()
	handlers := NewAPIHandlers(analytics, logger)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	handlers.HandleHealth(w, req)

	if cc := w.Header().Get("Cache-Control"); cc != "" {
		t.Errorf("health endpoint should not set cache-control, got %q", cc)
	}

	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected content-type 'application/json', got %q", ct)
	}
}

// Test response body format validation
func TestAPIHandlers_ResponseFormat(t *testing.T) {
	analytics := createTestAnalytics()
	logger := slog.Default()
	handlers := NewAPIHandlers(analytics, logger)

	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"country-revenue", handlers.HandleCountryRevenue},
		{"top-products", handlers.HandleTopProducts},
		{"monthly-sales", handlers.HandleMonthlySales},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			w := httptest.NewRecorder()

			tt.handler(w, req)

			if w.Code != http.StatusOK {
				t.Fatalf("expected status 200, got %d", w.Code)
			}

			body := w.Body.String()

			if !strings.HasPrefix(body, "{") || !strings.HasSuffix(strings.TrimSpace(body), "}") {
				t.Errorf("expected JSON object response, got: %s", body)
			}

			var response map[string]interface{}
			if err := json.NewDecoder(strings.NewReader(body)).Decode(&response); err != nil {
				t.Errorf("should be valid JSON: %v", err)
			}

			if success, ok := response["success"].(bool); !ok || !success {
				t.Error("expected success=true in response")
			}

			if _, ok := response["data"]; !ok {
				t.Error("expected data field in response")
			}
		})
	}
}
