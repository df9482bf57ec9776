// Package api serves the QC engine over HTTP.
package api

import (
	"net/http"

	"goiqc/adapters/excel"
	"goiqc/app"
	"goiqc/internal"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var apiLog = internal.DefaultLogger.With("API")

// Server represents the HTTP API server
type Server struct {
	router   *gin.Engine
	service  *app.EvaluationService
	writer   *excel.ReportWriter
	metrics  *Metrics
	gatherer prometheus.Gatherer
}

// NewServer creates the API server. Metrics are registered on reg and
// exposed on /metrics.
func NewServer(service *app.EvaluationService, reg *prometheus.Registry) *Server {
	s := &Server{
		router:   gin.New(),
		service:  service,
		writer:   excel.NewReportWriter(),
		metrics:  NewMetrics(reg),
		gatherer: reg,
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// Handler exposes the router, for tests and custom listeners
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupMiddleware() {
	if gin.Mode() != gin.TestMode {
		s.router.Use(gin.Logger())
	}
	s.router.Use(gin.Recovery())
	s.router.Use(s.metrics.Middleware())
}

func (s *Server) setupRoutes() {
	s.router.GET("/healthz", s.handleHealth)
	s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))

	api := s.router.Group("/api")
	api.GET("/sigma/:value", s.handleSigma)
	api.POST("/evaluate", s.handleEvaluate)

	labs := api.Group("/labs/:lab")
	labs.POST("/evaluate", s.handleEvaluateLab)
	labs.GET("/analytes", s.handleListAnalytes)

	analyte := labs.Group("/analytes/:key")
	analyte.GET("", s.handleGetAnalyte)
	analyte.PUT("", s.handlePutAnalyte)
	analyte.DELETE("", s.handleDeleteAnalyte)
	analyte.POST("/runs", s.handleAppendRuns)
	analyte.POST("/evaluate", s.handleEvaluateAnalyte)
	analyte.GET("/evaluations", s.handleHistory)
	analyte.GET("/report", s.handleReport)
	analyte.GET("/report.html", s.handleReportHTML)
	analyte.GET("/report.xlsx", s.handleReportXLSX)
}

// Start starts the web server
func (s *Server) Start(addr string) error {
	apiLog.Info("Starting IQC API on http://%s", addr)
	return s.router.Run(addr)
}
