package store

import (
	"encoding/json"
	"strings"
	"time"

	"doc-risk-eval/internal/analysis"
)

// Analysis status values.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Analysis is one submitted document and what the service returned for it.
type Analysis struct {
	ID               uint   `gorm:"primaryKey"`
	RequestID        string `gorm:"size:64;uniqueIndex"`
	Filename         string `gorm:"size:256;index"`
	Status           string `gorm:"size:32;index"`
	Score            string `gorm:"size:64"`
	ClauseCount      int
	ClausesJSON      string `gorm:"type:text"`
	ErrorKind        string `gorm:"size:32"`
	ErrorMessage     string `gorm:"type:text"`
	HTTPStatus       int
	ProcessingTimeMs int64
	CreatedAt        time.Time `gorm:"autoCreateTime"`
}

// SetClauses persists the rendered clause entries as JSON.
func (a *Analysis) SetClauses(entries []analysis.Entry) {
	a.ClauseCount = len(entries)
	if entries == nil {
		a.ClausesJSON = "[]"
		return
	}
	payload, _ := json.Marshal(entries)
	a.ClausesJSON = string(payload)
}

// Clauses returns the decoded clause entries.
func (a *Analysis) Clauses() []analysis.Entry {
	if strings.TrimSpace(a.ClausesJSON) == "" {
		return nil
	}
	var out []analysis.Entry
	if err := json.Unmarshal([]byte(a.ClausesJSON), &out); err != nil {
		return nil
	}
	return out
}
