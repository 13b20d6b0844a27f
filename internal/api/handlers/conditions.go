package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"carewatch/internal/alerts"
	"carewatch/internal/core"
	"carewatch/internal/types"
)

// ConditionService is the registry surface the condition handlers depend on.
type ConditionService interface {
	ListConditions(ctx context.Context) ([]*types.AlertCondition, error)
	GetCondition(ctx context.Context, id string) (*types.AlertCondition, error)
	CreateCondition(ctx context.Context, in alerts.ConditionInput) (*types.AlertCondition, error)
	UpdateCondition(ctx context.Context, id string, in alerts.ConditionInput) (*types.AlertCondition, error)
	DeleteCondition(ctx context.Context, id string) error
}

// ConditionRequest is the body of POST and PUT on /v1/alert-conditions.
// last_triggered is not accepted; unknown fields are rejected.
type ConditionRequest struct {
	ConditionName      string              `json:"condition_name" validate:"required,max=200"`
	ConditionType      types.ConditionType `json:"condition_type" validate:"required,condition_type"`
	IsEnabled          *bool               `json:"is_enabled,omitempty"`
	ThresholdValue     float64             `json:"threshold_value" validate:"gte=0"`
	ThresholdUnit      types.ThresholdUnit `json:"threshold_unit,omitempty" validate:"threshold_unit"`
	CooldownMinutes    *int                `json:"cooldown_minutes,omitempty" validate:"omitempty,gte=1"`
	NotifyContacts     []string            `json:"notify_contacts" validate:"dive,required"`
	NotificationMethod []types.ChannelType `json:"notification_method" validate:"dive,channel_type"`
	Severity           types.Severity      `json:"severity,omitempty" validate:"omitempty,severity"`
}

func (req ConditionRequest) input() alerts.ConditionInput {
	return alerts.ConditionInput{
		ConditionName:      req.ConditionName,
		ConditionType:      req.ConditionType,
		IsEnabled:          req.IsEnabled,
		ThresholdValue:     req.ThresholdValue,
		ThresholdUnit:      req.ThresholdUnit,
		CooldownMinutes:    req.CooldownMinutes,
		NotifyContacts:     req.NotifyContacts,
		NotificationMethod: types.ChannelList(req.NotificationMethod),
		Severity:           req.Severity,
	}
}

// ConditionHandler serves /v1/alert-conditions.
type ConditionHandler struct {
	svc       ConditionService
	validator *core.Validator
	logger    *slog.Logger
}

func NewConditionHandler(svc ConditionService, v *core.Validator, l *slog.Logger) *ConditionHandler {
	if l == nil {
		l = slog.Default()
	}
	return &ConditionHandler{svc: svc, validator: v, logger: l}
}

func (h *ConditionHandler) RegisterRoutes(r chi.Router) {
	r.Route("/alert-conditions", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/{id}", h.Get)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
	})
}

func (h *ConditionHandler) List(w http.ResponseWriter, r *http.Request) {
	conds, err := h.svc.ListConditions(r.Context())
	if err != nil {
		core.Error(w, r, err)
		return
	}
	if conds == nil {
		conds = []*types.AlertCondition{}
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: conds, Meta: &core.ListMeta{Count: len(conds)}})
}

func (h *ConditionHandler) Get(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.GetCondition(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: c})
}

func (h *ConditionHandler) Create(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	c, err := h.svc.CreateCondition(r.Context(), req.input())
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusCreated, core.APIResponse{Data: c})
}

// Update replaces the editable fields of a condition. Omitted optional fields
// revert to their defaults.
func (h *ConditionHandler) Update(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	c, err := h.svc.UpdateCondition(r.Context(), chi.URLParam(r, "id"), req.input())
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: c})
}

func (h *ConditionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteCondition(r.Context(), chi.URLParam(r, "id")); err != nil {
		core.Error(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ConditionHandler) decode(w http.ResponseWriter, r *http.Request) (ConditionRequest, bool) {
	var req ConditionRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return req, false
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		h.logger.WarnContext(r.Context(), "condition request rejected", "error", err)
		core.Error(w, r, err)
		return req, false
	}
	return req, true
}
