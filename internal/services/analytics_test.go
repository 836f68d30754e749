package services

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"retail-analytics/internal/models"
)

const csvHeader = "Invoice,StockCode,Description,Quantity,InvoiceDate,Price,Customer ID,Country"

func createTempCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "retail.csv")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func sampleFacts() []models.Transaction {
	return []models.Transaction{
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
			Date:        time.Date(2010, 2, 16, 0, 0, 0, 0, time.UTC),
			CustomerID:  "13047",
			Country:     "France",
			StockCode:   "22423",
			Description: "REGENCY CAKESTAND 3 TIER",
			UnitPrice:   12.75,
			Quantity:    2,
			Amount:      25.50,
		},
	}
}

func TestNewAnalytics(t *testing.T) {
	a := NewAnalytics()
	if a == nil {
		t.Fatal("NewAnalytics() returned nil")
	}
	if a.precomputed == nil {
		t.Error("precomputed should be initialized")
	}
	if a.logger == nil {
		t.Error("logger should be initialized")
	}
}

func TestAnalytics_SetData(t *testing.T) {
	a := NewAnalytics()
	a.SetData(sampleFacts())

	if a.precomputed.RecordCount != 2 {
		t.Errorf("Expected RecordCount = 2, got %d", a.precomputed.RecordCount)
	}

	if got := len(a.Transactions()); got != 2 {
		t.Errorf("Transactions() length = %d, want 2", got)
	}

	if len(a.CountryRevenue()) != 2 {
		t.Error("CountryRevenue() should return data")
	}
	if len(a.TopProducts(20)) != 2 {
		t.Error("TopProducts() should return data")
	}
	if len(a.MonthlySales()) != 2 {
		t.Error("MonthlySales() should return data")
	}
}

func TestAnalytics_LoadFromCSV_ValidData(t *testing.T) {
	validCSV := csvHeader + `
536365,85123A,WHITE HANGING HEART T-LIGHT HOLDER,6,2010-01-15 08:26:00,2.55,17850.0,United Kingdom
536366,22423,REGENCY CAKESTAND 3 TIER,2,2010-02-16,12.75,13047.0,France`

	f := createTempCSV(t, validCSV)

	a := NewAnalytics()
	if err := a.LoadFromCSV(context.Background(), f); err != nil {
		t.Fatalf("LoadFromCSV() with valid data should not error, got: %v", err)
	}

	facts := a.Transactions()
	if len(facts) != 2 {
		t.Fatalf("expected 2 facts, got %d", len(facts))
	}

	// Float customer IDs from the upstream export are normalized.
	if facts[0].CustomerID != "17850" {
		t.Errorf("CustomerID = %q, want %q", facts[0].CustomerID, "17850")
	}

	// Amount is derived from quantity and unit price.
	if math.Abs(facts[0].Amount-15.30) > 1e-9 {
		t.Errorf("Amount = %v, want 15.30", facts[0].Amount)
	}

	if len(a.CountryRevenue()) != 2 {
		t.Error("Should have loaded country revenue data")
	}
}

func TestAnalytics_LoadFromCSV_AmountColumn(t *testing.T) {
	csvWithAmount := csvHeader + `,Total_Amount
536365,85123A,HOLDER,6,2010-01-15,2.55,17850,United Kingdom,99.99`

	f := createTempCSV(t, csvWithAmount)

	a := NewAnalytics()
	if err := a.LoadFromCSV(context.Background(), f); err != nil {
		t.Fatalf("LoadFromCSV() error: %v", err)
	}

	facts := a.Transactions()
	if len(facts) != 1 {
		t.Fatalf("expected 1 fact, got %d", len(facts))
	}
	if facts[0].Amount != 99.99 {
		t.Errorf("Amount = %v, want the explicit column value 99.99", facts[0].Amount)
	}
}

func TestAnalytics_LoadFromCSV_Cleaning(t *testing.T) {
	tests := []struct {
		name string
		row  string
	}{
		{
			name: "missing customer id",
			row:  "536365,85123A,HOLDER,6,2010-01-15,2.55,,United Kingdom",
		},
		{
			name: "zero quantity",
			row:  "536365,85123A,HOLDER,0,2010-01-15,2.55,17850,United Kingdom",
		},
		{
			name: "negative quantity",
			row:  "C536379,85123A,HOLDER,-1,2010-01-15,2.55,17850,United Kingdom",
		},
		{
			name: "negative price",
			row:  "536365,85123A,HOLDER,6,2010-01-15,-2.55,17850,United Kingdom",
		},
		{
			name: "unparseable date",
			row:  "536365,85123A,HOLDER,6,not-a-date,2.55,17850,United Kingdom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// One good row keeps the load from failing outright.
			goodRow := "536400,22423,CAKESTAND,2,2010-02-16,12.75,13047,France"
			f := createTempCSV(t, csvHeader+"\n"+tt.row+"\n"+goodRow)

			a := NewAnalytics()
			if err := a.LoadFromCSV(context.Background(), f); err != nil {
				t.Fatalf("LoadFromCSV() error: %v", err)
			}

			if got := len(a.Transactions()); got != 1 {
				t.Errorf("expected dirty row to be dropped, got %d facts", got)
			}
			if a.droppedRows.Load() != 1 {
				t.Errorf("droppedRows = %d, want 1", a.droppedRows.Load())
			}
		})
	}
}

func TestAnalytics_LoadFromCSV_InvalidData(t *testing.T) {
	tests := []struct {
		name string
		csv  string
	}{
		{
			name: "empty file",
			csv:  "",
		},
		{
			name: "missing required columns",
			csv:  "h1,h2,h3\n1,2,3",
		},
		{
			name: "header only",
			csv:  csvHeader,
		},
		{
			name: "all rows dirty",
			csv:  csvHeader + "\n536365,85123A,HOLDER,6,2010-01-15,2.55,,United Kingdom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := createTempCSV(t, tt.csv)

			a := NewAnalytics()
			if err := a.LoadFromCSV(context.Background(), f); err == nil {
				t.Error("LoadFromCSV() should error")
			}
		})
	}
}

func TestAnalytics_CountryRevenue_Sorted(t *testing.T) {
	a := NewAnalytics()
	a.SetData([]models.Transaction{
		{Country: "United Kingdom", CustomerID: "C1", Amount: 10},
		{Country: "United Kingdom", CustomerID: "C2", Amount: 10},
		{Country: "France", CustomerID: "C3", Amount: 100},
	})

	result := a.CountryRevenue()
	if len(result) != 2 {
		t.Fatalf("expected 2 countries, got %d", len(result))
	}

	if result[0].Country != "France" {
		t.Errorf("expected France first (highest revenue), got %s", result[0].Country)
	}
	if result[1].UniqueCustomers != 2 {
		t.Errorf("United Kingdom UniqueCustomers = %d, want 2", result[1].UniqueCustomers)
	}
}

func TestAnalytics_MonthlySales(t *testing.T) {
	a := NewAnalytics()
	a.SetData([]models.Transaction{
		{Date: time.Date(2010, 1, 15, 0, 0, 0, 0, time.UTC), Amount: 999.99},
		{Date: time.Date(2010, 1, 16, 0, 0, 0, 0, time.UTC), Amount: 29.99},
		{Date: time.Date(2010, 2, 1, 0, 0, 0, 0, time.UTC), Amount: 199.99},
	})

	result := a.MonthlySales()
	if len(result) != 2 {
		t.Fatalf("expected 2 months, got %d", len(result))
	}

	// Ascending by month.
	if result[0].Month != "2010-01" || result[1].Month != "2010-02" {
		t.Errorf("months out of order: %s, %s", result[0].Month, result[1].Month)
	}
	if result[0].Revenue < 1029.0 {
		t.Errorf("January revenue should be ~1029.98, got %f", result[0].Revenue)
	}
	if result[0].Transactions != 2 {
		t.Errorf("January transactions = %d, want 2", result[0].Transactions)
	}
}

func TestAnalytics_TopProducts(t *testing.T) {
	a := NewAnalytics()
	a.SetData([]models.Transaction{
		{StockCode: "SKU1", Description: "Laptop", Amount: 100, Quantity: 1},
		{StockCode: "SKU1", Description: "Laptop", Amount: 100, Quantity: 1},
		{StockCode: "SKU2", Description: "Mouse", Amount: 30, Quantity: 3},
	})

	result := a.TopProducts(20)
	if len(result) != 2 {
		t.Fatalf("expected 2 products, got %d", len(result))
	}

	if result[0].StockCode != "SKU1" || result[0].Revenue != 200 {
		t.Errorf("expected SKU1 with revenue 200 first, got %+v", result[0])
	}
	if result[1].UnitsSold != 3 {
		t.Errorf("SKU2 UnitsSold = %d, want 3", result[1].UnitsSold)
	}

	if got := len(a.TopProducts(1)); got != 1 {
		t.Errorf("TopProducts(1) length = %d, want 1", got)
	}
}

func TestAnalytics_ConcurrentAccess(t *testing.T) {
	a := NewAnalytics()
	a.SetData(sampleFacts())

	done := make(chan bool, 10)
	for i := 0; i < 10; i++ {
		go func() {
			defer func() { done <- true }()

			_ = a.Transactions()
			_ = a.CountryRevenue()
			_ = a.TopProducts(20)
			_ = a.MonthlySales()
			_ = a.Stats()
		}()
	}

	for i := 0; i < 10; i++ {
		<-done
	}
}

func TestAnalytics_EmptyData(t *testing.T) {
	a := NewAnalytics()

	if len(a.CountryRevenue()) != 0 {
		t.Error("CountryRevenue() should return empty slice")
	}
	if len(a.TopProducts(20)) != 0 {
		t.Error("TopProducts() should return empty slice")
	}
	if len(a.MonthlySales()) != 0 {
		t.Error("MonthlySales() should return empty slice")
	}
	if len(a.Transactions()) != 0 {
		t.Error("Transactions() should return empty slice")
	}
}

func TestAnalytics_Refresh(t *testing.T) {
	a := NewAnalytics()
	if err := a.Refresh(context.Background()); err == nil {
		t.Error("Refresh() without a prior load should error")
	}
}

func BenchmarkAnalytics_SetData(b *testing.B) {
	facts := make([]models.Transaction, 10000)
	for i := range facts {
		facts[i] = models.Transaction{
			InvoiceNo:  fmt.Sprintf("5363%d", i),
			Date:       time.Date(2010, time.Month(i%12+1), i%28+1, 0, 0, 0, 0, time.UTC),
			CustomerID: fmt.Sprintf("C%d", i%500),
			Country:    "United Kingdom",
			StockCode:  fmt.Sprintf("SKU%d", i%100),
			Quantity:   i%10 + 1,
			UnitPrice:  2.5,
			Amount:     float64(i%10+1) * 2.5,
		}
	}

	a := NewAnalytics()
	b.ResetTimer()
	for b.Loop() {
		a.SetData(facts)
	}
}
