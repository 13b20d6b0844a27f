package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"carewatch/internal/alerts"
	"carewatch/internal/core"
	"carewatch/internal/types"
)

// AlertService is the lifecycle surface the alert handlers depend on.
type AlertService interface {
	ListAlerts(ctx context.Context, f types.AlertFilter) ([]*types.CaregiverAlert, error)
	GetAlert(ctx context.Context, id string) (*types.CaregiverAlert, error)
	CreateAlert(ctx context.Context, a *types.CaregiverAlert) (*types.CaregiverAlert, error)
	MarkRead(ctx context.Context, id string) (*types.CaregiverAlert, error)
	Resolve(ctx context.Context, id string) (*types.CaregiverAlert, error)
	UpdateAlert(ctx context.Context, id string, p types.AlertPatch) (*types.CaregiverAlert, error)
	DeleteAlert(ctx context.Context, id string) error
}

// CreateAlertRequest is the body of POST /v1/alerts.
type CreateAlertRequest struct {
	AlertType       types.AlertType   `json:"alert_type" validate:"required,max=100"`
	Severity        types.Severity    `json:"severity,omitempty" validate:"omitempty,severity"`
	Title           string            `json:"title" validate:"required,max=200"`
	Message         string            `json:"message"`
	PatternData     types.PatternData `json:"pattern_data,omitempty"`
	ConfidenceScore *float64          `json:"confidence_score,omitempty" validate:"omitempty,gte=0,lte=1"`
}

// AlertHandler serves /v1/alerts.
type AlertHandler struct {
	svc       AlertService
	validator *core.Validator
	logger    *slog.Logger
}

// NewAlertHandler creates an AlertHandler.
func NewAlertHandler(svc AlertService, v *core.Validator, l *slog.Logger) *AlertHandler {
	if l == nil {
		l = slog.Default()
	}
	return &AlertHandler{svc: svc, validator: v, logger: l}
}

// RegisterRoutes mounts the alert routes.
func (h *AlertHandler) RegisterRoutes(r chi.Router) {
	r.Route("/alerts", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.Get)
			r.Patch("/", h.Update)
			r.Delete("/", h.Delete)
			r.Post("/read", h.MarkRead)
			r.Post("/resolve", h.Resolve)
		})
	})
}

// List handles GET /v1/alerts.
//
// Query parameters: is_read, resolved (booleans), alert_type, severity,
// sort (created_date or -created_date, default newest first) and limit.
func (h *AlertHandler) List(w http.ResponseWriter, r *http.Request) {
	f, err := parseAlertFilter(r)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	list, err := h.svc.ListAlerts(r.Context(), f)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	if list == nil {
		list = []*types.CaregiverAlert{}
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{
		Data: list,
		Meta: &core.ListMeta{Count: len(list)},
	})
}

// Get handles GET /v1/alerts/{id}.
func (h *AlertHandler) Get(w http.ResponseWriter, r *http.Request) {
	a, err := h.svc.GetAlert(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: a})
}

// Create handles POST /v1/alerts.
func (h *AlertHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateAlertRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := alerts.CheckConfidence(req.AlertType, req.ConfidenceScore); err != nil {
		core.Error(w, r, err)
		return
	}

	a, err := h.svc.CreateAlert(r.Context(), &types.CaregiverAlert{
		AlertType:       req.AlertType,
		Severity:        req.Severity,
		Title:           req.Title,
		Message:         req.Message,
		PatternData:     req.PatternData,
		ConfidenceScore: req.ConfidenceScore,
	})
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusCreated, core.APIResponse{Data: a})
}

// Update handles PATCH /v1/alerts/{id} with a body of {is_read?, resolved?}.
func (h *AlertHandler) Update(w http.ResponseWriter, r *http.Request) {
	var patch types.AlertPatch
	if err := core.DecodeJSON(w, r, &patch); err != nil {
		core.Error(w, r, err)
		return
	}
	if patch.IsRead == nil && patch.Resolved == nil {
		core.Error(w, r, types.NewAppError(types.ErrCodeValidationRequest,
			"patch must set is_read or resolved", nil))
		return
	}

	a, err := h.svc.UpdateAlert(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: a})
}

// MarkRead handles POST /v1/alerts/{id}/read.
func (h *AlertHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	a, err := h.svc.MarkRead(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: a})
}

// Resolve handles POST /v1/alerts/{id}/resolve.
func (h *AlertHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	a, err := h.svc.Resolve(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: a})
}

// Delete handles DELETE /v1/alerts/{id}.
func (h *AlertHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.svc.DeleteAlert(r.Context(), id); err != nil {
		core.Error(w, r, err)
		return
	}
	h.logger.InfoContext(r.Context(), "alert deleted", "alert_id", id)
	w.WriteHeader(http.StatusNoContent)
}

const defaultAlertListLimit = 50

func parseAlertFilter(r *http.Request) (types.AlertFilter, error) {
	q := r.URL.Query()
	f := types.AlertFilter{
		AlertType: types.AlertType(q.Get("alert_type")),
		Severity:  types.Severity(q.Get("severity")),
		SortDesc:  true,
		Limit:     defaultAlertListLimit,
	}

	for name, dst := range map[string]**bool{"is_read": &f.IsRead, "resolved": &f.Resolved} {
		raw := q.Get(name)
		if raw == "" {
			continue
		}
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return f, badQuery(name, "must be true or false")
		}
		*dst = &b
	}

	switch sort := q.Get("sort"); strings.TrimSpace(sort) {
	case "", "-created_date":
	case "created_date":
		f.SortDesc = false
	default:
		return f, badQuery("sort", "must be created_date or -created_date")
	}

	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 500 {
			return f, badQuery("limit", "must be between 1 and 500")
		}
		f.Limit = n
	}
	return f, nil
}

func badQuery(param, msg string) error {
	return types.NewAppErrorWithDetails(types.ErrCodeValidationRequest,
		"invalid query parameter "+param+": "+msg, nil, map[string]any{"parameter": param})
}
