package services

import (
	"bufio"
	"context"
	"encoding/csv"
	"encoding/gob"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang/snappy"
	"golang.org/x/sync/errgroup"

	"retail-analytics/internal/models"
)

const (
	batchSize    = 5000
	maxWorkers   = 8
	cacheVersion = "v2"
	cacheDir     = ".cache"
)

var dateLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02-01-2006 15:04",
}

// Dataset holds the precomputed dashboard aggregates derived from the fact
// table at load time.
type Dataset struct {
	CountryRevenue []models.CountryRevenue `json:"country_revenue"`
	MonthlySales   []models.MonthlyData    `json:"monthly_sales"`
	TopProducts    []models.ProductRevenue `json:"top_products"`
	LastModified   time.Time               `json:"last_modified"`
	RecordCount    int64                   `json:"record_count"`
}

// Analytics ingests the cleaned retail CSV and keeps two things in memory:
// the full fact table (consumed by the cube aggregator) and precomputed
// dashboard aggregates. Cleaning follows the upstream rules: rows without a
// customer ID and rows with non-positive quantities are dropped, and the
// amount column is derived from quantity and unit price when absent.
type Analytics struct {
	mu          sync.RWMutex
	facts       []models.Transaction
	precomputed *Dataset
	csvPath     string
	droppedRows atomic.Int64
	logger      *slog.Logger
}

func NewAnalytics() *Analytics {
	return &Analytics{
		precomputed: &Dataset{},
		logger:      slog.Default(),
	}
}

// SetData replaces the fact table with an in-memory slice. Used by tests and
// by callers that bypass CSV ingestion.
func (a *Analytics) SetData(facts []models.Transaction) {
	precomputed := computeDataset(facts)

	a.mu.Lock()
	a.facts = facts
	a.precomputed = precomputed
	a.mu.Unlock()
}

// LoadFromCSV parses, cleans, and aggregates the fact table from a CSV file.
// A snappy-compressed gob cache keyed by the source path is used when it is
// newer than the file.
func (a *Analytics) LoadFromCSV(ctx context.Context, filename string) error {
	a.mu.Lock()
	a.csvPath = filename
	a.mu.Unlock()

	if entry, err := a.loadFromCache(filename); err == nil {
		if info, err := os.Stat(filename); err == nil && info.ModTime().Before(entry.Dataset.LastModified) {
			a.mu.Lock()
			a.facts = entry.Facts
			a.precomputed = entry.Dataset
			a.mu.Unlock()
			a.logger.Info("loaded fact table from cache", "records", entry.Dataset.RecordCount)
			return nil
		}
	}

	start := time.Now()
	a.logger.Info("processing CSV file", "filename", filename)

	if err := a.streamProcessCSV(ctx, filename); err != nil {
		return fmt.Errorf("process csv: %w", err)
	}

	if err := a.saveToCache(filename); err != nil {
		a.logger.Warn("failed to save cache", "error", err)
	}

	a.mu.RLock()
	count := a.precomputed.RecordCount
	a.mu.RUnlock()

	duration := time.Since(start)
	a.logger.Info("csv processing complete",
		"records", count,
		"dropped", a.droppedRows.Load(),
		"duration", duration,
		"rate", fmt.Sprintf("%.0f records/sec", float64(count)/duration.Seconds()))

	return nil
}

// Refresh re-ingests the CSV the fact table was last loaded from. Used by
// the periodic reload job.
func (a *Analytics) Refresh(ctx context.Context) error {
	a.mu.RLock()
	path := a.csvPath
	a.mu.RUnlock()

	if path == "" {
		return fmt.Errorf("no source file to refresh from")
	}
	return a.LoadFromCSV(ctx, path)
}

func (a *Analytics) streamProcessCSV(ctx context.Context, filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("open file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(bufio.NewReaderSize(file, 1024*1024))
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return fmt.Errorf("empty file")
	}
	if err != nil {
		return fmt.Errorf("read header: %w", err)
	}

	cols, err := mapColumns(header)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxWorkers)

	var (
		mu      sync.Mutex
		batches [][]models.Transaction
		dropped int64
	)

	dispatch := func(records [][]string, index int) {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			parsed := make([]models.Transaction, 0, len(records))
			var skipped int64
			for _, record := range records {
				tx, ok := parseFactRow(record, cols)
				if !ok {
					skipped++
					continue
				}
				parsed = append(parsed, tx)
			}

			mu.Lock()
			for len(batches) <= index {
				batches = append(batches, nil)
			}
			batches[index] = parsed
			dropped += skipped
			mu.Unlock()
			return nil
		})
	}

	batchIndex := 0
	batch := make([][]string, 0, batchSize)

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("read record: %w", err)
		}

		batch = append(batch, record)
		if len(batch) >= batchSize {
			dispatch(batch, batchIndex)
			batchIndex++
			batch = make([][]string, 0, batchSize)
		}
	}
	if len(batch) > 0 {
		dispatch(batch, batchIndex)
	}

	if err := g.Wait(); err != nil {
		return err
	}

	var facts []models.Transaction
	for _, b := range batches {
		facts = append(facts, b...)
	}

	if len(facts) == 0 {
		return fmt.Errorf("no valid records found")
	}

	a.droppedRows.Store(dropped)
	a.SetData(facts)
	return nil
}

type columnIndexes struct {
	invoice  int
	stock    int
	desc     int
	quantity int
	date     int
	price    int
	customer int
	country  int
	amount   int // -1 when the source has no precomputed amount column
}

func mapColumns(header []string) (columnIndexes, error) {
	idx := func(names ...string) int {
		for i, h := range header {
			h = strings.ToLower(strings.TrimSpace(h))
			for _, n := range names {
				if h == n {
					return i
				}
			}
		}
		return -1
	}

	cols := columnIndexes{
		invoice:  idx("invoice", "invoiceno"),
		stock:    idx("stockcode"),
		desc:     idx("description"),
		quantity: idx("quantity"),
		date:     idx("invoicedate"),
		price:    idx("price", "unitprice"),
		customer: idx("customer id", "customerid"),
		country:  idx("country"),
		amount:   idx("total_amount", "totalamount"),
	}

	for name, i := range map[string]int{
		"invoice": cols.invoice, "stockcode": cols.stock, "quantity": cols.quantity,
		"invoicedate": cols.date, "price": cols.price, "customer id": cols.customer,
		"country": cols.country,
	} {
		if i < 0 {
			return cols, fmt.Errorf("missing required column %q", name)
		}
	}
	return cols, nil
}

func parseFactRow(record []string, cols columnIndexes) (models.Transaction, bool) {
	field := func(i int) string {
		if i < 0 || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	customer := field(cols.customer)
	if customer == "" {
		return models.Transaction{}, false
	}
	// Customer IDs come out of the upstream cleaning step as floats ("17850.0").
	customer = strings.TrimSuffix(customer, ".0")

	quantity, err := strconv.Atoi(field(cols.quantity))
	if err != nil || quantity <= 0 {
		return models.Transaction{}, false
	}

	price, err := strconv.ParseFloat(field(cols.price), 64)
	if err != nil || price < 0 {
		return models.Transaction{}, false
	}

	date, ok := parseInvoiceDate(field(cols.date))
	if !ok {
		return models.Transaction{}, false
	}

	amount := float64(quantity) * price
	if raw := field(cols.amount); cols.amount >= 0 && raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			amount = v
		}
	}

	return models.Transaction{
		InvoiceNo:   field(cols.invoice),
		Date:        date,
		CustomerID:  customer,
		Country:     field(cols.country),
		StockCode:   field(cols.stock),
		Description: field(cols.desc),
		UnitPrice:   price,
		Quantity:    quantity,
		Amount:      amount,
	}, true
}

func parseInvoiceDate(raw string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func computeDataset(facts []models.Transaction) *Dataset {
	type countryAcc struct {
		revenue   float64
		rows      int
		customers map[string]struct{}
	}
	type monthAcc struct {
		revenue float64
		rows    int
	}
	type productAcc struct {
		desc    string
		revenue float64
		units   int
	}

	countries := make(map[string]*countryAcc)
	months := make(map[string]*monthAcc)
	products := make(map[string]*productAcc)

	for _, tx := range facts {
		ca, ok := countries[tx.Country]
		if !ok {
			ca = &countryAcc{customers: make(map[string]struct{})}
			countries[tx.Country] = ca
		}
		ca.revenue += tx.Amount
		ca.rows++
		ca.customers[tx.CustomerID] = struct{}{}

		month := tx.Date.Format("2006-01")
		ma, ok := months[month]
		if !ok {
			ma = &monthAcc{}
			months[month] = ma
		}
		ma.revenue += tx.Amount
		ma.rows++

		pa, ok := products[tx.StockCode]
		if !ok {
			pa = &productAcc{desc: tx.Description}
			products[tx.StockCode] = pa
		}
		pa.revenue += tx.Amount
		pa.units += tx.Quantity
	}

	ds := &Dataset{
		LastModified: time.Now(),
		RecordCount:  int64(len(facts)),
	}

	for country, acc := range countries {
		ds.CountryRevenue = append(ds.CountryRevenue, models.CountryRevenue{
			Country:         country,
			TotalRevenue:    acc.revenue,
			Transactions:    acc.rows,
			UniqueCustomers: len(acc.customers),
		})
	}
	slices.SortFunc(ds.CountryRevenue, func(a, b models.CountryRevenue) int {
		switch {
		case a.TotalRevenue > b.TotalRevenue:
			return -1
		case a.TotalRevenue < b.TotalRevenue:
			return 1
		default:
			return strings.Compare(a.Country, b.Country)
		}
	})

	for month, acc := range months {
		ds.MonthlySales = append(ds.MonthlySales, models.MonthlyData{
			Month:        month,
			Revenue:      acc.revenue,
			Transactions: acc.rows,
		})
	}
	slices.SortFunc(ds.MonthlySales, func(a, b models.MonthlyData) int {
		return strings.Compare(a.Month, b.Month)
	})

	for code, acc := range products {
		ds.TopProducts = append(ds.TopProducts, models.ProductRevenue{
			StockCode:   code,
			Description: acc.desc,
			Revenue:     acc.revenue,
			UnitsSold:   acc.units,
		})
	}
	slices.SortFunc(ds.TopProducts, func(a, b models.ProductRevenue) int {
		switch {
		case a.Revenue > b.Revenue:
			return -1
		case a.Revenue < b.Revenue:
			return 1
		default:
			return strings.Compare(a.StockCode, b.StockCode)
		}
	})

	return ds
}

// cache management

type cacheEntry struct {
	Facts   []models.Transaction
	Dataset *Dataset
}

func (a *Analytics) cacheFilename(csvPath string) string {
	return fmt.Sprintf("%s/%s_%s.gob.sz", cacheDir, strings.ReplaceAll(csvPath, "/", "_"), cacheVersion)
}

func (a *Analytics) saveToCache(csvPath string) error {
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return err
	}

	file, err := os.Create(a.cacheFilename(csvPath))
	if err != nil {
		return err
	}
	defer file.Close()

	a.mu.RLock()
	entry := cacheEntry{Facts: a.facts, Dataset: a.precomputed}
	a.mu.RUnlock()

	writer := snappy.NewBufferedWriter(file)
	if err := gob.NewEncoder(writer).Encode(entry); err != nil {
		writer.Close()
		return err
	}
	return writer.Close()
}

func (a *Analytics) loadFromCache(csvPath string) (*cacheEntry, error) {
	file, err := os.Open(a.cacheFilename(csvPath))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var entry cacheEntry
	if err := gob.NewDecoder(snappy.NewReader(file)).Decode(&entry); err != nil {
		return nil, err
	}
	if entry.Dataset == nil {
		return nil, fmt.Errorf("cache entry missing dataset")
	}
	return &entry, nil
}

// read accessors

// Transactions returns the current fact table snapshot. The slice is
// replaced wholesale on reload and never mutated in place, so callers may
// read it without copying.
func (a *Analytics) Transactions() []models.Transaction {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.facts
}

func (a *Analytics) CountryRevenue() []models.CountryRevenue {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.precomputed.CountryRevenue
}

func (a *Analytics) MonthlySales() []models.MonthlyData {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.precomputed.MonthlySales
}

func (a *Analytics) TopProducts(limit int) []models.ProductRevenue {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if len(a.precomputed.TopProducts) <= limit {
		return a.precomputed.TopProducts
	}
	return a.precomputed.TopProducts[:limit]
}

func (a *Analytics) Stats() map[string]any {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return map[string]any{
		"record_count":   a.precomputed.RecordCount,
		"dropped_rows":   a.droppedRows.Load(),
		"last_processed": a.precomputed.LastModified,
		"countries":      len(a.precomputed.CountryRevenue),
		"products":       len(a.precomputed.TopProducts),
		"months":         len(a.precomputed.MonthlySales),
	}
}
