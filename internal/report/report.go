// Package report renders plain-text analysis reports: the executive summary
// of the cleaned fact table and fixed-width renderings of cube results.
package report

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"retail-analytics/internal/cube"
	"retail-analytics/internal/models"
)

const highValueThreshold = 5000

type Generator struct {
	outputDir string
	logger    *slog.Logger
}

func NewGenerator(outputDir string, logger *slog.Logger) *Generator {
	return &Generator{outputDir: outputDir, logger: logger}
}

// ExecutiveSummary renders the top-level business summary of the fact table.
func (g *Generator) ExecutiveSummary(facts []models.Transaction) string {
	var b strings.Builder
	rule := strings.Repeat("=", 80)
	line := strings.Repeat("-", 80)

	fmt.Fprintln(&b, rule)
	fmt.Fprintln(&b, "RETAIL ANALYTICS - EXECUTIVE SUMMARY")
	fmt.Fprintln(&b, rule)
	fmt.Fprintf(&b, "\nReport Generated: %s\n\n", time.Now().Format("2006-01-02 15:04:05"))

	invoices := make(map[string]struct{})
	customers := make(map[string]struct{})
	products := make(map[string]struct{})
	countries := make(map[string]struct{})
	customerTotals := make(map[string]float64)
	productRevenue := make(map[string]float64)
	countryRevenue := make(map[string]float64)
	productNames := make(map[string]string)

	var totalRevenue, totalPrice float64
	var totalQuantity int
	amounts := make([]float64, 0, len(facts))
	var minDate, maxDate time.Time

	for _, tx := range facts {
		invoices[tx.InvoiceNo] = struct{}{}
		customers[tx.CustomerID] = struct{}{}
		products[tx.StockCode] = struct{}{}
		countries[tx.Country] = struct{}{}

		totalRevenue += tx.Amount
		totalPrice += tx.UnitPrice
		totalQuantity += tx.Quantity
		amounts = append(amounts, tx.Amount)

		customerTotals[tx.CustomerID] += tx.Amount
		productRevenue[tx.StockCode] += tx.Amount
		countryRevenue[tx.Country] += tx.Amount
		if productNames[tx.StockCode] == "" {
			productNames[tx.StockCode] = tx.Description
		}

		if minDate.IsZero() || tx.Date.Before(minDate) {
			minDate = tx.Date
		}
		if maxDate.IsZero() || tx.Date.After(maxDate) {
			maxDate = tx.Date
		}
	}

	fmt.Fprintln(&b, "DATA OVERVIEW")
	fmt.Fprintln(&b, line)
	fmt.Fprintf(&b, "Total Records: %s\n", formatInt(len(facts)))
	fmt.Fprintf(&b, "Total Revenue: %s\n", formatCurrency(totalRevenue))
	fmt.Fprintf(&b, "Total Transactions (Invoices): %s\n", formatInt(len(invoices)))
	fmt.Fprintf(&b, "Active Customers: %s\n", formatInt(len(customers)))
	fmt.Fprintf(&b, "Products: %s\n", formatInt(len(products)))
	fmt.Fprintf(&b, "Countries: %s\n", formatInt(len(countries)))

	fmt.Fprintln(&b, "\n\nSALES METRICS")
	fmt.Fprintln(&b, line)
	if n := len(facts); n > 0 {
		fmt.Fprintf(&b, "Average Transaction Value: %s\n", formatCurrency(totalRevenue/float64(n)))
		fmt.Fprintf(&b, "Median Transaction Value: %s\n", formatCurrency(median(amounts)))
		fmt.Fprintf(&b, "Average Order Quantity: %.2f units\n", float64(totalQuantity)/float64(n))
		fmt.Fprintf(&b, "Average Unit Price: %s\n", formatCurrency(totalPrice/float64(n)))
	}

	fmt.Fprintln(&b, "\n\nCUSTOMER ANALYTICS")
	fmt.Fprintln(&b, line)
	if len(customerTotals) > 0 {
		var sum, max float64
		min := -1.0
		highValue := 0
		for _, total := range customerTotals {
			sum += total
			if total > max {
				max = total
			}
			if min < 0 || total < min {
				min = total
			}
			if total > highValueThreshold {
				highValue++
			}
		}
		fmt.Fprintf(&b, "Average Customer Value: %s\n", formatCurrency(sum/float64(len(customerTotals))))
		fmt.Fprintf(&b, "Highest Customer Spending: %s\n", formatCurrency(max))
		fmt.Fprintf(&b, "Lowest Customer Spending: %s\n", formatCurrency(min))
		fmt.Fprintf(&b, "High-Value Customers (>%s): %s (%.1f%%)\n",
			formatCurrency(highValueThreshold),
			formatInt(highValue),
			float64(highValue)/float64(len(customerTotals))*100)
	}

	fmt.Fprintln(&b, "\n\nTOP 5 PRODUCTS BY REVENUE")
	fmt.Fprintln(&b, line)
	for i, entry := range topN(productRevenue, 5) {
		name := productNames[entry.key]
		if name == "" {
			name = entry.key
		}
		fmt.Fprintf(&b, "%d. %s: %s\n", i+1, name, formatCurrency(entry.value))
	}

	fmt.Fprintln(&b, "\n\nTOP 5 COUNTRIES BY REVENUE")
	fmt.Fprintln(&b, line)
	for i, entry := range topN(countryRevenue, 5) {
		fmt.Fprintf(&b, "%d. %s: %s\n", i+1, entry.key, formatCurrency(entry.value))
	}

	fmt.Fprintln(&b, "\n\nDATA COVERAGE")
	fmt.Fprintln(&b, line)
	if !minDate.IsZero() {
		fmt.Fprintf(&b, "Date Range: %s to %s\n",
			minDate.Format("2006-01-02"), maxDate.Format("2006-01-02"))
	}

	return b.String()
}

// OLAPSummary renders the yearly roll-up and a country-by-quarter pivot as
// text tables.
func (g *Generator) OLAPSummary(c *cube.Cube) (string, error) {
	var b strings.Builder
	rule := strings.Repeat("=", 80)

	fmt.Fprintln(&b, rule)
	fmt.Fprintln(&b, "OLAP SUMMARY")
	fmt.Fprintln(&b, rule)

	yearly, err := c.RollUp("date", cube.LevelMonth, cube.LevelYear)
	if err != nil {
		return "", err
	}
	fmt.Fprintln(&b, "\nYEARLY REVENUE (roll-up from monthly)")
	fmt.Fprint(&b, RenderAggregateTable(yearly))

	pivot, err := c.Pivot(cube.FieldCountry, cube.LevelQuarter, cube.MeasureAmount, cube.AggSum)
	if err != nil {
		return "", err
	}
	fmt.Fprintln(&b, "\nREVENUE BY COUNTRY AND QUARTER")
	fmt.Fprint(&b, RenderPivotTable(pivot))

	return b.String(), nil
}

// WriteExecutiveSummary writes the summary to the output directory and
// returns the file path.
func (g *Generator) WriteExecutiveSummary(facts []models.Transaction) (string, error) {
	if err := os.MkdirAll(g.outputDir, 0755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	path := filepath.Join(g.outputDir, "executive_summary.txt")
	content := g.ExecutiveSummary(facts)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}

	g.logger.Info("report written", "path", path, "bytes", len(content))
	return path, nil
}

// RenderAggregateTable renders roll-up/drill-down cells as a fixed-width
// table. Monetary columns are rounded for display only.
func RenderAggregateTable(cells []cube.AggregateCell) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%-12s %15s %15s %12s %10s %10s\n",
		"Member", "Revenue", "Avg", "Rows", "Qty", "Customers")
	for _, cell := range cells {
		fmt.Fprintf(&b, "%-12s %15.2f %15.2f %12d %10d %10d\n",
			cell.Member,
			cube.Round2(cell.TotalAmount),
			cube.Round2(cell.AvgAmount),
			cell.Transactions,
			cell.TotalQuantity,
			cell.UniqueCustomers)
	}
	return b.String()
}

// RenderPivotTable renders a pivot as a fixed-width cross-tabulation with
// row totals and a grand total.
func RenderPivotTable(t *cube.PivotTable) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%-24s", t.RowDimension)
	for _, col := range t.ColumnLabels {
		fmt.Fprintf(&b, " %12s", col)
	}
	fmt.Fprintf(&b, " %12s\n", "Total")

	for i, row := range t.RowLabels {
		fmt.Fprintf(&b, "%-24s", truncate(row, 24))
		for j := range t.ColumnLabels {
			fmt.Fprintf(&b, " %12.2f", cube.Round2(t.Cells[i][j]))
		}
		fmt.Fprintf(&b, " %12.2f\n", cube.Round2(t.RowTotals[i]))
	}

	fmt.Fprintf(&b, "%-24s", "Total")
	for j := range t.ColumnLabels {
		fmt.Fprintf(&b, " %12.2f", cube.Round2(t.ColumnTotals[j]))
	}
	fmt.Fprintf(&b, " %12.2f\n", cube.Round2(t.GrandTotal))

	return b.String()
}

type rankedEntry struct {
	key   string
	value float64
}

func topN(m map[string]float64, n int) []rankedEntry {
	entries := make([]rankedEntry, 0, len(m))
	for k, v := range m {
		entries = append(entries, rankedEntry{k, v})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].value != entries[j].value {
			return entries[i].value > entries[j].value
		}
		return entries[i].key < entries[j].key
	})
	if len(entries) > n {
		entries = entries[:n]
	}
	return entries
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

func formatCurrency(amount float64) string {
	negative := amount < 0
	if negative {
		amount = -amount
	}

	rounded := cube.Round2(amount)
	intPart := int64(rounded)
	decPart := int64(rounded*100+0.5) - intPart*100

	result := fmt.Sprintf("$%s.%02d", formatInt64(intPart), decPart)
	if negative {
		return "-" + result
	}
	return result
}

func formatInt(n int) string {
	return formatInt64(int64(n))
}

func formatInt64(n int64) string {
	if n < 0 {
		return "-" + formatInt64(-n)
	}
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	return fmt.Sprintf("%s,%03d", formatInt64(n/1000), n%1000)
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}
