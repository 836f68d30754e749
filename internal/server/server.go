package server

import (
	"log/slog"
	"net/http"

	"retail-analytics/internal/handlers"
	"retail-analytics/internal/report"
	"retail-analytics/internal/services"
)

type Server struct {
	analytics    *services.Analytics
	mux          *http.ServeMux
	logger       *slog.Logger
	apiHandlers  *handlers.APIHandlers
	olapHandlers *handlers.OLAPHandlers
	sseHandlers  *handlers.SSEHandlers
}

type TemplateHandlers struct {
	Dashboard http.HandlerFunc
}

func NewServer(analytics *services.Analytics, reports *report.Generator, logger *slog.Logger, templateHandlers *TemplateHandlers) *Server {
	s := &Server{
		analytics:    analytics,
		mux:          http.NewServeMux(),
		logger:       logger,
		apiHandlers:  handlers.NewAPIHandlers(analytics, logger),
		olapHandlers: handlers.NewOLAPHandlers(analytics, reports, logger),
		sseHandlers:  handlers.NewSSEHandlers(analytics, logger),
	}
	s.setupRoutes(templateHandlers)
	return s
}

func (s *Server) setupRoutes(templateHandlers *TemplateHandlers) {
	// Dashboard routes
	s.mux.HandleFunc("GET /{$}", templateHandlers.Dashboard)
	s.mux.HandleFunc("GET /health", s.apiHandlers.HandleHealth)
	s.mux.HandleFunc("GET /admin/stats", s.apiHandlers.HandleStats)

	// REST API endpoints
	s.mux.HandleFunc("GET /api/country-revenue", s.apiHandlers.HandleCountryRevenue)
	s.mux.HandleFunc("GET /api/top-products", s.apiHandlers.HandleTopProducts)
	s.mux.HandleFunc("GET /api/monthly-sales", s.apiHandlers.HandleMonthlySales)

	// OLAP endpoints
	s.mux.HandleFunc("GET /api/olap/rollup", s.olapHandlers.HandleRollUp)
	s.mux.HandleFunc("GET /api/olap/drilldown", s.olapHandlers.HandleDrillDown)
	s.mux.HandleFunc("GET /api/olap/slice", s.olapHandlers.HandleSlice)
	s.mux.HandleFunc("POST /api/olap/dice", s.olapHandlers.HandleDice)
	s.mux.HandleFunc("GET /api/olap/pivot", s.olapHandlers.HandlePivot)
	s.mux.HandleFunc("GET /api/report", s.olapHandlers.HandleReport)

	// Datastar SSE endpoints
	s.mux.HandleFunc("GET /sse/country-revenue", s.sseHandlers.HandleCountryRevenue)
	s.mux.HandleFunc("GET /sse/top-products", s.sseHandlers.HandleTopProducts)
	s.mux.HandleFunc("GET /sse/monthly-sales", s.sseHandlers.HandleMonthlySales)
	s.mux.HandleFunc("GET /sse/quarterly-pivot", s.sseHandlers.HandleQuarterlyPivot)
	s.mux.HandleFunc("GET /sse/refresh-all", s.sseHandlers.HandleRefreshAll)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}
