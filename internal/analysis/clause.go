package analysis

import "strings"

// NoExplanation is shown when a clause carries no " - " delimiter.
const NoExplanation = "No explanation provided."

// Missing is shown for absent categories and severities.
const Missing = "-"

const clauseDelimiter = " - "

// SeverityClass drives how a clause is styled.
type SeverityClass string

const (
	SeverityHigh    SeverityClass = "high"
	SeverityMedium  SeverityClass = "medium"
	SeverityLow     SeverityClass = "low"
	SeverityUnknown SeverityClass = "unknown"
)

// ClassifySeverity maps a service severity label onto a display class.
func ClassifySeverity(label string) SeverityClass {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "high risk":
		return SeverityHigh
	case "medium risk":
		return SeverityMedium
	case "low risk":
		return SeverityLow
	default:
		return SeverityUnknown
	}
}

// Entry is one rendered risky clause.
type Entry struct {
	Number      int           `json:"number"`
	Text        string        `json:"text"`
	Explanation string        `json:"explanation"`
	Category    string        `json:"category"`
	Severity    string        `json:"severity"`
	Class       SeverityClass `json:"severity_class"`
}

// SplitClause separates the clause text from its explanation at the first
// " - ".
func SplitClause(raw string) (text, explanation string) {
	before, after, found := strings.Cut(raw, clauseDelimiter)
	if !found {
		return strings.TrimSpace(raw), NoExplanation
	}
	return strings.TrimSpace(before), strings.TrimSpace(after)
}

// Entries turns the response clauses into numbered entries in input order.
// Categories and severities are matched by index.
func (r Response) Entries() []Entry {
	if len(r.RiskyClauses) == 0 {
		return nil
	}
	entries := make([]Entry, 0, len(r.RiskyClauses))
	for i, raw := range r.RiskyClauses {
		text, explanation := SplitClause(raw)
		severity := valueAt(r.ClauseSeverity, i)
		entries = append(entries, Entry{
			Number:      i + 1,
			Text:        text,
			Explanation: explanation,
			Category:    valueAt(r.RiskCategories, i),
			Severity:    severity,
			Class:       ClassifySeverity(severity),
		})
	}
	return entries
}

func valueAt(values []string, i int) string {
	if i >= len(values) || strings.TrimSpace(values[i]) == "" {
		return Missing
	}
	return values[i]
}
