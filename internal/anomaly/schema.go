package anomaly

import (
	"encoding/json"
	"fmt"

	"carewatch/internal/types"
)

// analysisSchema is the strict JSON Schema the text generator must satisfy.
var analysisSchema = map[string]any{
	"type":                 "object",
	"additionalProperties": false,
	"required":             []string{"anomalies", "overall_status", "summary"},
	"properties": map[string]any{
		"anomalies": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type":                 "object",
				"additionalProperties": false,
				"required":             []string{"type", "severity", "title", "description", "recommendation", "confidence"},
				"properties": map[string]any{
					"type":           map[string]any{"type": "string"},
					"severity":       map[string]any{"type": "string", "enum": []string{"low", "medium", "high", "critical"}},
					"title":          map[string]any{"type": "string"},
					"description":    map[string]any{"type": "string"},
					"recommendation": map[string]any{"type": "string"},
					"confidence":     map[string]any{"type": "number", "minimum": 0, "maximum": 1},
				},
			},
		},
		"overall_status": map[string]any{"type": "string", "enum": []string{"normal", "attention_needed", "concerning"}},
		"summary":        map[string]any{"type": "string"},
	},
}

// Anomaly is one validated finding.
type Anomaly struct {
	Type           string         `json:"type"`
	Severity       types.Severity `json:"severity"`
	Title          string         `json:"title"`
	Description    string         `json:"description"`
	Recommendation string         `json:"recommendation"`
	Confidence     float64        `json:"confidence"`
}

// Analysis is a validated text generator response.
type Analysis struct {
	Anomalies     []Anomaly `json:"anomalies"`
	OverallStatus string    `json:"overall_status"`
	Summary       string    `json:"summary"`
}

// wire shapes use pointers so a missing field is distinguishable from a zero.
type wireAnomaly struct {
	Type           *string  `json:"type"`
	Severity       *string  `json:"severity"`
	Title          *string  `json:"title"`
	Description    *string  `json:"description"`
	Recommendation *string  `json:"recommendation"`
	Confidence     *float64 `json:"confidence"`
}

type wireAnalysis struct {
	Anomalies     *[]wireAnomaly `json:"anomalies"`
	OverallStatus *string        `json:"overall_status"`
	Summary       *string        `json:"summary"`
}

func schemaError(msg string, details map[string]any) error {
	return types.NewAppErrorWithDetails(types.ErrCodeAnalysisSchema, msg, nil, details)
}

// parseAnalysis decodes and validates raw. Any violation rejects the whole
// response.
func parseAnalysis(raw []byte) (Analysis, error) {
	var w wireAnalysis
	if err := json.Unmarshal(raw, &w); err != nil {
		return Analysis{}, types.NewAppError(types.ErrCodeAnalysisSchema, "analysis is not valid JSON", err)
	}
	switch {
	case w.Anomalies == nil:
		return Analysis{}, schemaError("analysis is missing anomalies", map[string]any{"field": "anomalies"})
	case w.OverallStatus == nil:
		return Analysis{}, schemaError("analysis is missing overall_status", map[string]any{"field": "overall_status"})
	case w.Summary == nil:
		return Analysis{}, schemaError("analysis is missing summary", map[string]any{"field": "summary"})
	}

	out := Analysis{
		Anomalies:     make([]Anomaly, 0, len(*w.Anomalies)),
		OverallStatus: *w.OverallStatus,
		Summary:       *w.Summary,
	}
	for i, a := range *w.Anomalies {
		if field := missingField(a); field != "" {
			return Analysis{}, schemaError(
				fmt.Sprintf("anomaly %d is missing %s", i, field),
				map[string]any{"index": i, "field": field},
			)
		}
		if !types.Severity(*a.Severity).IsValid() {
			return Analysis{}, schemaError(
				fmt.Sprintf("anomaly %d has unknown severity %q", i, *a.Severity),
				map[string]any{"index": i, "field": "severity"},
			)
		}
		if *a.Confidence < 0 || *a.Confidence > 1 {
			return Analysis{}, schemaError(
				fmt.Sprintf("anomaly %d confidence %.3f is outside [0,1]", i, *a.Confidence),
				map[string]any{"index": i, "field": "confidence"},
			)
		}
		out.Anomalies = append(out.Anomalies, Anomaly{
			Type:           *a.Type,
			Severity:       types.Severity(*a.Severity),
			Title:          *a.Title,
			Description:    *a.Description,
			Recommendation: *a.Recommendation,
			Confidence:     *a.Confidence,
		})
	}
	return out, nil
}

func missingField(a wireAnomaly) string {
	switch {
	case a.Type == nil:
		return "type"
	case a.Severity == nil:
		return "severity"
	case a.Title == nil:
		return "title"
	case a.Description == nil:
		return "description"
	case a.Recommendation == nil:
		return "recommendation"
	case a.Confidence == nil:
		return "confidence"
	}
	return ""
}
