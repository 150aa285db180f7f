package analyzer

import (
	"sync"

	"doc-risk-eval/internal/analysis"
)

// FileSelection holds at most one chosen document.
type FileSelection struct {
	mu  sync.Mutex
	doc *analysis.Document
}

// Select returns a selection holding doc.
func Select(doc analysis.Document) *FileSelection {
	return &FileSelection{doc: &doc}
}

// Set replaces the chosen document.
func (s *FileSelection) Set(doc analysis.Document) {
	s.mu.Lock()
	s.doc = &doc
	s.mu.Unlock()
}

func (s *FileSelection) Selected() (analysis.Document, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return analysis.Document{}, false
	}
	return *s.doc, true
}

func (s *FileSelection) Clear() {
	s.mu.Lock()
	s.doc = nil
	s.mu.Unlock()
}
