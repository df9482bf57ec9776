package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"goiqc/app"
	"goiqc/domain/core"
	"goiqc/domain/qc"
	"goiqc/internal/errors"
	"goiqc/internal/report"
	"goiqc/internal/sigma"

	"github.com/gin-gonic/gin"
)

// runInput is one run in an append request
type runInput struct {
	Label  string              `json:"label"`
	Order  int64               `json:"order"`
	Values map[string]*float64 `json:"values" binding:"required"`
}

type appendRunsRequest struct {
	Runs []runInput `json:"runs" binding:"required,min=1,dive"`
}

type sigmaResponse struct {
	Sigma       float64           `json:"sigma"`
	Category    sigma.Category    `json:"category"`
	Rules       qc.RuleSet        `json:"rules"`
	Performance sigma.Performance `json:"performance"`
}

type labResult struct {
	Category    sigma.Category `json:"category"`
	Runs        int            `json:"runs"`
	Rejections  int            `json:"rejections"`
	Warnings    int            `json:"warnings"`
	Fingerprint core.Hash      `json:"fingerprint"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleSigma(c *gin.Context) {
	value, err := sigma.ParseSigma(c.Param("value"))
	if err != nil {
		s.respondError(c, errors.FromDomain(err))
		return
	}
	category, rules, err := sigma.Classify(value)
	if err != nil {
		s.respondError(c, errors.FromDomain(err))
		return
	}

	levels := 2
	if raw := c.Query("levels"); raw != "" {
		levels, err = strconv.Atoi(raw)
		if err != nil || levels < 1 {
			s.respondError(c, errors.InvalidInput(fmt.Sprintf("levels must be a positive integer, got %q", raw)))
			return
		}
	}

	c.JSON(http.StatusOK, sigmaResponse{
		Sigma:       value,
		Category:    category,
		Rules:       rules,
		Performance: sigma.Estimate(rules, levels),
	})
}

func (s *Server) handleEvaluate(c *gin.Context) {
	var in app.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		s.respondError(c, errors.InvalidInput(err.Error()))
		return
	}
	start := time.Now()
	out, err := s.service.Evaluate(c.Request.Context(), in)
	if err != nil {
		s.respondError(c, err)
		return
	}
	s.metrics.ObserveOutcome(out, time.Since(start))
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleEvaluateLab(c *gin.Context) {
	lab, ok := s.labParam(c)
	if !ok {
		return
	}
	start := time.Now()
	results, err := s.service.EvaluateLab(c.Request.Context(), lab)
	if err != nil {
		s.respondError(c, err)
		return
	}

	body := make(map[string]labResult, len(results))
	for key, out := range results {
		s.metrics.ObserveOutcome(out, time.Since(start))
		body[key.String()] = labResult{
			Category:    out.Category,
			Runs:        len(out.Report.Summary),
			Rejections:  out.Report.Rejections,
			Warnings:    out.Report.Warnings,
			Fingerprint: out.Report.Fingerprint,
		}
	}
	c.JSON(http.StatusOK, gin.H{"lab": lab, "analytes": body})
}

func (s *Server) handleListAnalytes(c *gin.Context) {
	lab, ok := s.labParam(c)
	if !ok {
		return
	}
	keys, err := s.service.ListAnalytes(c.Request.Context(), lab)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"lab": lab, "analytes": keys})
}

func (s *Server) handleGetAnalyte(c *gin.Context) {
	lab, key, ok := s.analyteParams(c)
	if !ok {
		return
	}
	state, err := s.service.GetAnalyte(c.Request.Context(), lab, key)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

func (s *Server) handlePutAnalyte(c *gin.Context) {
	lab, key, ok := s.analyteParams(c)
	if !ok {
		return
	}
	var update app.AnalyteUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		s.respondError(c, errors.InvalidInput(err.Error()))
		return
	}
	state, err := s.service.PutAnalyte(c.Request.Context(), lab, key, update)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

func (s *Server) handleDeleteAnalyte(c *gin.Context) {
	lab, key, ok := s.analyteParams(c)
	if !ok {
		return
	}
	if err := s.service.DeleteAnalyte(c.Request.Context(), lab, key); err != nil {
		s.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleAppendRuns(c *gin.Context) {
	lab, key, ok := s.analyteParams(c)
	if !ok {
		return
	}
	var req appendRunsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, errors.InvalidInput(err.Error()))
		return
	}

	runs := make([]qc.QCRun, len(req.Runs))
	for i, r := range req.Runs {
		runs[i] = qc.QCRun{ID: qc.RunID{Label: r.Label, Order: r.Order}, Values: r.Values}
	}
	state, err := s.service.AppendRuns(c.Request.Context(), lab, key, runs)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": len(state.Runs)})
}

func (s *Server) handleEvaluateAnalyte(c *gin.Context) {
	lab, key, ok := s.analyteParams(c)
	if !ok {
		return
	}
	start := time.Now()
	out, err := s.service.EvaluateAnalyte(c.Request.Context(), lab, key)
	if err != nil {
		s.respondError(c, err)
		return
	}
	s.metrics.ObserveOutcome(out, time.Since(start))
	c.JSON(http.StatusOK, gin.H{"evaluation_id": out.Record.ID, "outcome": out})
}

func (s *Server) handleHistory(c *gin.Context) {
	lab, key, ok := s.analyteParams(c)
	if !ok {
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil {
		s.respondError(c, errors.InvalidInput("limit must be an integer"))
		return
	}
	records, err := s.service.History(c.Request.Context(), lab, key, limit)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"evaluations": records})
}

func (s *Server) handleReport(c *gin.Context) {
	view, ok := s.reportView(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, view)
}

func (s *Server) handleReportHTML(c *gin.Context) {
	view, ok := s.reportView(c)
	if !ok {
		return
	}
	page := report.HTML(report.Document{
		Lab:    view.Lab.String(),
		Config: view.Config,
		Limits: view.Limits,
		Report: view.Report,
	})
	c.Data(http.StatusOK, "text/html; charset=utf-8", page)
}

func (s *Server) handleReportXLSX(c *gin.Context) {
	view, ok := s.reportView(c)
	if !ok {
		return
	}
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s-%s.xlsx"`, view.Lab, view.Analyte))
	c.Status(http.StatusOK)
	if err := s.writer.Write(view.Report, view.Limits, c.Writer); err != nil {
		apiLog.Error("xlsx export of %s/%s failed: %v", view.Lab, view.Analyte, err)
	}
}

func (s *Server) reportView(c *gin.Context) (*app.ReportView, bool) {
	lab, key, ok := s.analyteParams(c)
	if !ok {
		return nil, false
	}
	view, err := s.service.Report(c.Request.Context(), lab, key)
	if err != nil {
		s.respondError(c, err)
		return nil, false
	}
	return view, true
}

func (s *Server) labParam(c *gin.Context) (core.LabID, bool) {
	lab, err := core.ParseLabID(c.Param("lab"))
	if err != nil {
		s.respondError(c, errors.InvalidInput(err.Error()))
		return "", false
	}
	return lab, true
}

func (s *Server) analyteParams(c *gin.Context) (core.LabID, core.AnalyteKey, bool) {
	lab, ok := s.labParam(c)
	if !ok {
		return "", "", false
	}
	key, err := core.ParseAnalyteKey(c.Param("key"))
	if err != nil {
		s.respondError(c, errors.InvalidInput(err.Error()))
		return "", "", false
	}
	return lab, key, true
}

func (s *Server) respondError(c *gin.Context, err error) {
	status := errors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		apiLog.Error("%s %s: %v", c.Request.Method, c.FullPath(), err)
	}
	c.AbortWithStatusJSON(status, gin.H{
		"error": err.Error(),
		"code":  errors.GetCode(err),
	})
}
