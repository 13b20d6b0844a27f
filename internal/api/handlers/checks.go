package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"carewatch/internal/anomaly"
	"carewatch/internal/core"
	"carewatch/internal/monitor"
	"carewatch/internal/types"
)

// AlertChecker runs one evaluation pass over the enabled conditions.
type AlertChecker interface {
	EvaluateAll(ctx context.Context) (monitor.RunSummary, error)
}

// AnomalyAnalyzer runs one behavioural analysis pass.
type AnomalyAnalyzer interface {
	AnalyzeAndAlert(ctx context.Context) (anomaly.AnalysisSummary, error)
}

// CheckHandler exposes on-demand triggers for the two batch entry points.
// Both respond with the bare run summary.
type CheckHandler struct {
	checker  AlertChecker
	analyzer AnomalyAnalyzer
	logger   *slog.Logger
}

// NewCheckHandler creates a CheckHandler.
func NewCheckHandler(checker AlertChecker, analyzer AnomalyAnalyzer, l *slog.Logger) *CheckHandler {
	if l == nil {
		l = slog.Default()
	}
	return &CheckHandler{checker: checker, analyzer: analyzer, logger: l}
}

// RegisterRoutes mounts the trigger endpoints.
func (h *CheckHandler) RegisterRoutes(r chi.Router) {
	r.Post("/alert-checks", h.RunAlertCheck)
	r.Post("/anomaly-analyses", h.RunAnomalyAnalysis)
}

// RunAlertCheck handles POST /v1/alert-checks. Per-condition failures are
// part of a 200 response; only a failure to list conditions is an error.
func (h *CheckHandler) RunAlertCheck(w http.ResponseWriter, r *http.Request) {
	ctx := types.WithTriggerSource(r.Context(), "http")
	summary, err := h.checker.EvaluateAll(ctx)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	h.logger.InfoContext(ctx, "alert check completed",
		"checked", summary.Checked,
		"triggered", len(summary.Triggered),
		"failures", len(summary.Failures),
	)
	core.JSON(w, r, http.StatusOK, summary)
}

// RunAnomalyAnalysis handles POST /v1/anomaly-analyses. Any failure of the
// analysis is returned as an error and no alerts are created.
func (h *CheckHandler) RunAnomalyAnalysis(w http.ResponseWriter, r *http.Request) {
	ctx := types.WithTriggerSource(r.Context(), "http")
	summary, err := h.analyzer.AnalyzeAndAlert(ctx)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, summary)
}
