package handlers

import (
	"encoding/json"
	"html/template"
	"log/slog"
	"net/http"
	"strings"

	"github.com/starfederation/datastar-go/datastar"

	"retail-analytics/internal/cube"
	"retail-analytics/internal/models"
	"retail-analytics/internal/report"
	"retail-analytics/internal/services"
)

const (
	maxTableRows = 50
	maxProducts  = 20
)

var countryTableTemplate = template.Must(template.New("countryTable").Parse(`
<div id="country-content">
<table class="modern-table">
<thead><tr><th>Country</th><th>Revenue</th><th>Transactions</th><th>Customers</th></tr></thead>
<tbody>
{{range $i, $item := .Data}}{{if lt $i $.MaxRows}}<tr>
<td>{{.Country}}</td>
<td><strong>${{printf "%.2f" .TotalRevenue}}</strong></td>
<td>{{.Transactions}}</td>
<td>{{.UniqueCustomers}}</td>
</tr>{{end}}{{end}}
</tbody>
</table>
</div>`))

type SSEHandlers struct {
	analytics *services.Analytics
	logger    *slog.Logger
}

func NewSSEHandlers(analytics *services.Analytics, logger *slog.Logger) *SSEHandlers {
	return &SSEHandlers{
		analytics: analytics,
		logger:    logger,
	}
}

type templateData struct {
	Data    interface{}
	MaxRows int
}

func (h *SSEHandlers) renderCountryTable(data []models.CountryRevenue) (string, error) {
	var buf strings.Builder

	if len(data) > maxTableRows {
		data = data[:maxTableRows]
	}

	tmplData := templateData{Data: data, MaxRows: maxTableRows}
	err := countryTableTemplate.Execute(&buf, tmplData)
	return buf.String(), err
}

func (h *SSEHandlers) HandleCountryRevenue(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	data := h.analytics.CountryRevenue()
	html, err := h.renderCountryTable(data)
	if err != nil {
		h.logger.Error("render country table", "error", err)
		return
	}

	sse.PatchElements(html)

	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

func (h *SSEHandlers) HandleTopProducts(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	data := h.analytics.TopProducts(maxProducts)
	jsonData, err := json.Marshal(map[string]any{
		"productsData": data,
	})
	if err != nil {
		h.logger.Error("marshal products data", "error", err)
		return
	}
	sse.PatchSignals(jsonData)

	sse.PatchElements(`<div id="products-content">✅ Products chart data loaded</div>`)

	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

func (h *SSEHandlers) HandleMonthlySales(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	data := h.analytics.MonthlySales()
	jsonData, err := json.Marshal(map[string]any{
		"monthlyData": data,
	})
	if err != nil {
		h.logger.Error("marshal monthly data", "error", err)
		return
	}
	sse.PatchSignals(jsonData)

	sse.PatchElements(`<div id="monthly-content">✅ Monthly sales chart data loaded</div>`)

	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

// HandleQuarterlyPivot streams the country-by-quarter revenue matrix as a
// rendered table fragment.
func (h *SSEHandlers) HandleQuarterlyPivot(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	c := cube.New(h.analytics.Transactions())
	table, err := c.Pivot(cube.FieldCountry, cube.LevelQuarter, cube.MeasureAmount, cube.AggSum)
	if err != nil {
		h.logger.Error("build quarterly pivot", "error", err)
		return
	}

	sse.PatchElements(`<div id="pivot-content"><pre class="pivot-table">` +
		template.HTMLEscapeString(report.RenderPivotTable(table)) + `</pre></div>`)

	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

func (h *SSEHandlers) HandleRefreshAll(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	countryData := h.analytics.CountryRevenue()
	html, err := h.renderCountryTable(countryData)
	if err != nil {
		h.logger.Error("render country table", "error", err)
		return
	}
	sse.PatchElements(html)

	productsData := h.analytics.TopProducts(maxProducts)
	monthlyData := h.analytics.MonthlySales()

	allSignals, err := json.Marshal(map[string]any{
		"productsData": productsData,
		"monthlyData":  monthlyData,
	})
	if err != nil {
		h.logger.Error("marshal all signals data", "error", err)
		return
	}
	sse.PatchSignals(allSignals)

	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}
