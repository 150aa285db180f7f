package api

import (
	"time"

	"doc-risk-eval/internal/analysis"
	"doc-risk-eval/internal/analyzer"
	"doc-risk-eval/internal/store"
)

// AnalyzeResponse is returned by POST /api/analyze.
type AnalyzeResponse struct {
	RequestID string            `json:"request_id"`
	Status    string            `json:"status"`
	State     analyzer.Snapshot `json:"state"`
}

// AnalysisDTO is the API representation of a history row.
type AnalysisDTO struct {
	ID               uint             `json:"id"`
	RequestID        string           `json:"request_id"`
	Filename         string           `json:"filename"`
	Status           string           `json:"status"`
	Score            string           `json:"score"`
	ClauseCount      int              `json:"clause_count"`
	Clauses          []analysis.Entry `json:"clauses"`
	ErrorKind        string           `json:"error_kind,omitempty"`
	ErrorMessage     string           `json:"error_message,omitempty"`
	HTTPStatus       int              `json:"http_status"`
	ProcessingTimeMs int64            `json:"processing_time_ms"`
	CreatedAt        time.Time        `json:"created_at"`
}

// HistoryResponse is the paginated response for GET /api/history.
type HistoryResponse struct {
	Items []AnalysisDTO `json:"items"`
	Total int64         `json:"total"`
}

// HealthResponse reports the front end and the analysis service status.
type HealthResponse struct {
	Status          string `json:"status"`
	AnalysisService string `json:"analysis_service"`
	Endpoint        string `json:"endpoint"`
	Error           string `json:"error,omitempty"`
	HistoryEnabled  bool   `json:"history_enabled"`
}

// FromModel converts a store.Analysis into the DTO representation.
func FromModel(a store.Analysis) AnalysisDTO {
	clauses := a.Clauses()
	if clauses == nil {
		clauses = []analysis.Entry{}
	}
	return AnalysisDTO{
		ID:               a.ID,
		RequestID:        a.RequestID,
		Filename:         a.Filename,
		Status:           a.Status,
		Score:            a.Score,
		ClauseCount:      a.ClauseCount,
		Clauses:          clauses,
		ErrorKind:        a.ErrorKind,
		ErrorMessage:     a.ErrorMessage,
		HTTPStatus:       a.HTTPStatus,
		ProcessingTimeMs: a.ProcessingTimeMs,
		CreatedAt:        a.CreatedAt,
	}
}
