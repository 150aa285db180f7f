package analysis

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Response is the payload returned by POST /analyze.
type Response struct {
	RiskScore      Score    `json:"risk_score"`
	RiskyClauses   []string `json:"risky_clauses"`
	RiskCategories []string `json:"risk_categories"`
	ClauseSeverity []string `json:"clause_severity"`
}

// Score is the overall risk score. It is never range checked: whatever the
// service sends is displayed, including out-of-range and missing values.
type Score struct {
	Value float64
	Valid bool
	raw   string
}

// NewScore returns a valid numeric score.
func NewScore(v float64) Score {
	return Score{Value: v, Valid: true}
}

// UnmarshalJSON accepts numbers, numeric strings and null. Any other value is
// kept verbatim so it can still be shown.
func (s *Score) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*s = Score{}
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		*s = NewScore(num)
		return nil
	}

	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		str = strings.TrimSpace(str)
		if v, err := strconv.ParseFloat(str, 64); err == nil {
			*s = NewScore(v)
			return nil
		}
		s.raw = str
		return nil
	}

	s.raw = string(data)
	return nil
}

// MarshalJSON writes the number when valid, null otherwise.
func (s Score) MarshalJSON() ([]byte, error) {
	if !s.Valid || math.IsNaN(s.Value) || math.IsInf(s.Value, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(s.Value)
}

// String formats the score the way it is displayed, without the percent sign.
func (s Score) String() string {
	switch {
	case s.Valid:
		return strconv.FormatFloat(s.Value, 'f', -1, 64)
	case s.raw != "":
		return s.raw
	default:
		return "NaN"
	}
}

// Percent is the score followed by a percent sign ("73%").
func (s Score) Percent() string {
	return s.String() + "%"
}
