package analyzer

import (
	"sync"

	"doc-risk-eval/internal/analysis"
)

// Snapshot is a copy of the UI state.
type Snapshot struct {
	Score           string           `json:"score"`
	Indicator       string           `json:"indicator"`
	ClausesVisible  bool             `json:"clauses_visible"`
	Clauses         []analysis.Entry `json:"clauses"`
	ErrorVisible    bool             `json:"error_visible"`
	Error           *Message         `json:"error,omitempty"`
	FilenameVisible bool             `json:"filename_visible"`
	Filename        string           `json:"filename,omitempty"`
}

// State is a View that records every update. It is safe for concurrent use.
type State struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewState returns an empty state.
func NewState() *State {
	return &State{}
}

// Snapshot copies the current state.
func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.snap
	if s.snap.Clauses != nil {
		out.Clauses = append([]analysis.Entry(nil), s.snap.Clauses...)
	}
	if s.snap.Error != nil {
		msg := *s.snap.Error
		msg.Hints = append([]string(nil), msg.Hints...)
		out.Error = &msg
	}
	return out
}

func (s *State) update(fn func(*Snapshot)) {
	s.mu.Lock()
	fn(&s.snap)
	s.mu.Unlock()
}

func (s *State) SetScore(text string) {
	s.update(func(snap *Snapshot) { snap.Score = text })
}

func (s *State) SetIndicator(offset string) {
	s.update(func(snap *Snapshot) { snap.Indicator = offset })
}

func (s *State) ShowClauses(entries []analysis.Entry) {
	s.update(func(snap *Snapshot) {
		snap.ClausesVisible = true
		snap.Clauses = append([]analysis.Entry(nil), entries...)
	})
}

func (s *State) HideClauses() {
	s.update(func(snap *Snapshot) {
		snap.ClausesVisible = false
		snap.Clauses = nil
	})
}

func (s *State) ShowError(msg Message) {
	s.update(func(snap *Snapshot) {
		snap.ErrorVisible = true
		snap.Error = &msg
	})
}

func (s *State) ClearError() {
	s.update(func(snap *Snapshot) {
		snap.ErrorVisible = false
		snap.Error = nil
	})
}

func (s *State) ShowFilename(name string) {
	s.update(func(snap *Snapshot) {
		snap.FilenameVisible = true
		snap.Filename = name
	})
}

func (s *State) HideFilename() {
	s.update(func(snap *Snapshot) {
		snap.FilenameVisible = false
		snap.Filename = ""
	})
}

type multiView []View

// Views fans updates out to every view in order.
func Views(views ...View) View {
	return multiView(views)
}

func (m multiView) SetScore(text string) {
	for _, v := range m {
		v.SetScore(text)
	}
}

func (m multiView) SetIndicator(offset string) {
	for _, v := range m {
		v.SetIndicator(offset)
	}
}

func (m multiView) ShowClauses(entries []analysis.Entry) {
	for _, v := range m {
		v.ShowClauses(entries)
	}
}

func (m multiView) HideClauses() {
	for _, v := range m {
		v.HideClauses()
	}
}

func (m multiView) ShowError(msg Message) {
	for _, v := range m {
		v.ShowError(msg)
	}
}

func (m multiView) ClearError() {
	for _, v := range m {
		v.ClearError()
	}
}

func (m multiView) ShowFilename(name string) {
	for _, v := range m {
		v.ShowFilename(name)
	}
}

func (m multiView) HideFilename() {
	for _, v := range m {
		v.HideFilename()
	}
}
