package analyzer

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"doc-risk-eval/internal/analysis"
)

type fakeService struct {
	calls atomic.Int32
	resp  analysis.Response
	err   error
	wait  chan struct{}
	got   analysis.Document
}

func (f *fakeService) Analyze(ctx context.Context, doc analysis.Document) (analysis.Response, error) {
	f.calls.Add(1)
	f.got = doc
	if f.wait != nil {
		select {
		case <-f.wait:
		case <-ctx.Done():
			return analysis.Response{}, ctx.Err()
		}
	}
	return f.resp, f.err
}

type memoryRecorder struct {
	outcomes []Outcome
}

func (m *memoryRecorder) RecordAnalysis(_ context.Context, outcome Outcome) error {
	m.outcomes = append(m.outcomes, outcome)
	return nil
}

func newTestAnalyzer(t *testing.T, svc Service, sel Selection) (*Analyzer, *State) {
	t.Helper()
	state := NewState()
	a, err := New(Config{Service: svc, Selection: sel, View: state, Endpoint: "http://localhost:8000"})
	if err != nil {
		t.Fatalf("new analyzer: %v", err)
	}
	return a, state
}

func TestRunWithoutFileSkipsNetwork(t *testing.T) {
	svc := &fakeService{}
	a, state := newTestAnalyzer(t, svc, &FileSelection{})

	outcome, err := a.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if svc.calls.Load() != 0 {
		t.Fatalf("expected no network calls, got %d", svc.calls.Load())
	}
	var validation *analysis.ValidationError
	if !errors.As(outcome.Err, &validation) {
		t.Fatalf("expected validation error, got %v", outcome.Err)
	}

	snap := state.Snapshot()
	if !snap.ErrorVisible || snap.Error == nil || snap.Error.Text != "Please select a file to analyze" {
		t.Fatalf("unexpected error region: %+v", snap.Error)
	}
	if snap.Error.Kind != KindValidation || len(snap.Error.Hints) != 0 {
		t.Fatalf("validation message should carry no hints: %+v", snap.Error)
	}
	if snap.Score != ErrorText || snap.Indicator != NeutralOffset || snap.FilenameVisible {
		t.Fatalf("unexpected state: %+v", snap)
	}
}

func TestRunRejectedDocumentSkipsNetwork(t *testing.T) {
	svc := &fakeService{}
	rec := &memoryRecorder{}
	state := NewState()
	reason := &analysis.ValidationError{Reason: "File exceeds the 1 MB upload limit", Err: analysis.ErrTooLarge}
	a, err := New(Config{
		Service:   svc,
		Selection: Select(analysis.RejectedDocument("big.pdf", reason)),
		View:      state,
		Recorder:  rec,
	})
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	outcome, err := a.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if svc.calls.Load() != 0 {
		t.Fatalf("rejected document must not reach the service, got %d calls", svc.calls.Load())
	}
	if !errors.Is(outcome.Err, analysis.ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", outcome.Err)
	}
	snap := state.Snapshot()
	if snap.Error == nil || snap.Error.Kind != KindValidation || snap.Error.Text != reason.Reason {
		t.Fatalf("unexpected error region %+v", snap.Error)
	}
	if snap.Score != ErrorText || snap.FilenameVisible {
		t.Fatalf("unexpected state %+v", snap)
	}
	if len(rec.outcomes) != 1 || rec.outcomes[0].Filename != "big.pdf" {
		t.Fatalf("rejection should be recorded, got %+v", rec.outcomes)
	}
}

func TestRunSuccessRendersScoreAndClauses(t *testing.T) {
	svc := &fakeService{resp: analysis.Response{
		RiskScore:      analysis.NewScore(73),
		RiskyClauses:   []string{"Limitation of liability - Caps damages unfairly", "Unilateral amendment"},
		RiskCategories: []string{"Liability", "Contract changes"},
		ClauseSeverity: []string{"high risk", "medium risk"},
	}}
	sel := Select(analysis.BytesDocument("msa.pdf", []byte("%PDF")))
	a, state := newTestAnalyzer(t, svc, sel)

	outcome, err := a.Run(context.Background())
	if err != nil || outcome.Failed() {
		t.Fatalf("unexpected failure: %v %v", err, outcome.Err)
	}
	if svc.got.Name != "msa.pdf" {
		t.Fatalf("service received %q", svc.got.Name)
	}

	snap := state.Snapshot()
	if snap.Score != "73%" || snap.Indicator != "73%" {
		t.Fatalf("unexpected score %q indicator %q", snap.Score, snap.Indicator)
	}
	if !snap.ClausesVisible || len(snap.Clauses) != 2 {
		t.Fatalf("expected two visible clauses, got %+v", snap.Clauses)
	}
	first, second := snap.Clauses[0], snap.Clauses[1]
	if first.Number != 1 || first.Text != "Limitation of liability" || first.Explanation != "Caps damages unfairly" {
		t.Fatalf("unexpected first clause %+v", first)
	}
	if second.Number != 2 || second.Text != "Unilateral amendment" || second.Explanation != analysis.NoExplanation {
		t.Fatalf("unexpected second clause %+v", second)
	}
	if first.Class != analysis.SeverityHigh || second.Class != analysis.SeverityMedium {
		t.Fatalf("unexpected severity classes %s %s", first.Class, second.Class)
	}
	if snap.ErrorVisible {
		t.Fatal("error region should be hidden on success")
	}
	if !snap.FilenameVisible || snap.Filename != "msa.pdf" {
		t.Fatalf("expected filename, got %+v", snap)
	}
	if _, ok := sel.Selected(); ok {
		t.Fatal("selection should be cleared after success")
	}
}

func TestRunEmptyClausesHidesPanel(t *testing.T) {
	for _, score := range []float64{0, 55, 100} {
		svc := &fakeService{resp: analysis.Response{RiskScore: analysis.NewScore(score), RiskyClauses: []string{}}}
		a, state := newTestAnalyzer(t, svc, Select(analysis.BytesDocument("nda.docx", []byte("x"))))
		if _, err := a.Run(context.Background()); err != nil {
			t.Fatalf("run: %v", err)
		}
		if snap := state.Snapshot(); snap.ClausesVisible || len(snap.Clauses) != 0 {
			t.Fatalf("score %v: clause panel should be hidden", score)
		}
	}
}

func TestRunAPIErrorShowsDetail(t *testing.T) {
	svc := &fakeService{err: &analysis.APIError{Status: 500, Message: "file too large"}}
	sel := Select(analysis.BytesDocument("huge.pdf", []byte("x")))
	a, state := newTestAnalyzer(t, svc, sel)

	if _, err := a.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	snap := state.Snapshot()
	if !snap.ErrorVisible || !strings.Contains(snap.Error.Text, "file too large") || !strings.Contains(snap.Error.Text, "500") {
		t.Fatalf("unexpected error region %+v", snap.Error)
	}
	if snap.ClausesVisible {
		t.Fatal("clause panel should stay hidden")
	}
	if snap.FilenameVisible {
		t.Fatal("filename should be hidden after failure")
	}
	if _, ok := sel.Selected(); !ok {
		t.Fatal("selection should survive a failed run")
	}
}

func TestRunNetworkErrorShowsGuidance(t *testing.T) {
	svc := &fakeService{err: &analysis.NetworkError{
		Endpoint:    "http://localhost:8000",
		Unreachable: true,
		Err:         errors.New("connect: connection refused"),
	}}
	a, state := newTestAnalyzer(t, svc, Select(analysis.BytesDocument("a.txt", []byte("x"))))

	if _, err := a.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	snap := state.Snapshot()
	if snap.Error == nil || snap.Error.Kind != KindNetwork {
		t.Fatalf("expected network message, got %+v", snap.Error)
	}
	if !strings.HasPrefix(snap.Error.Text, "Cannot reach") {
		t.Fatalf("unreachable server should be called out, got %q", snap.Error.Text)
	}
	found := false
	for _, hint := range snap.Error.Hints {
		if strings.Contains(hint, "running at http://localhost:8000") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected running-server hint, got %v", snap.Error.Hints)
	}
	if snap.FilenameVisible {
		t.Fatal("filename should be hidden")
	}
}

func TestRunClearsPreviousError(t *testing.T) {
	svc := &fakeService{err: &analysis.ParseError{Err: errors.New("bad json")}}
	sel := Select(analysis.BytesDocument("a.txt", []byte("x")))
	a, state := newTestAnalyzer(t, svc, sel)
	if _, err := a.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if snap := state.Snapshot(); snap.Error == nil || snap.Error.Kind != KindParse {
		t.Fatalf("expected parse error, got %+v", snap.Error)
	}

	svc.err = nil
	svc.resp = analysis.Response{RiskScore: analysis.NewScore(10)}
	if _, err := a.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	snap := state.Snapshot()
	if snap.ErrorVisible || snap.Error != nil {
		t.Fatalf("error region should be cleared, got %+v", snap.Error)
	}
	if snap.Score != "10%" {
		t.Fatalf("unexpected score %q", snap.Score)
	}
}

func TestRunRejectsOverlappingInvocation(t *testing.T) {
	svc := &fakeService{wait: make(chan struct{}), resp: analysis.Response{RiskScore: analysis.NewScore(20)}}
	a, state := newTestAnalyzer(t, svc, Select(analysis.BytesDocument("a.txt", []byte("x"))))

	done := make(chan error, 1)
	go func() {
		_, err := a.Run(context.Background())
		done <- err
	}()

	deadline := time.Now().Add(2 * time.Second)
	for svc.calls.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("first run never reached the service")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if snap := state.Snapshot(); snap.Score != LoadingText {
		t.Fatalf("expected loading placeholder, got %q", snap.Score)
	}

	if _, err := a.Run(context.Background()); !errors.Is(err, ErrInFlight) {
		t.Fatalf("expected ErrInFlight, got %v", err)
	}
	if snap := state.Snapshot(); snap.Score != LoadingText {
		t.Fatalf("rejected run must not touch the view, got %q", snap.Score)
	}

	close(svc.wait)
	if err := <-done; err != nil {
		t.Fatalf("first run: %v", err)
	}
	if snap := state.Snapshot(); snap.Score != "20%" {
		t.Fatalf("unexpected final score %q", snap.Score)
	}
	if svc.calls.Load() != 1 {
		t.Fatalf("expected exactly one call, got %d", svc.calls.Load())
	}
}

func TestRunRecordsOutcome(t *testing.T) {
	rec := &memoryRecorder{}
	svc := &fakeService{resp: analysis.Response{RiskScore: analysis.NewScore(42)}}
	state := NewState()
	a, err := New(Config{
		Service:   svc,
		Selection: Select(analysis.BytesDocument("a.txt", []byte("x"))),
		View:      state,
		Recorder:  rec,
	})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	outcome, err := a.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(rec.outcomes) != 1 || rec.outcomes[0].RequestID != outcome.RequestID || rec.outcomes[0].Filename != "a.txt" {
		t.Fatalf("unexpected recorded outcomes %+v", rec.outcomes)
	}
}

func TestViewsFanOut(t *testing.T) {
	a, b := NewState(), NewState()
	v := Views(a, b)
	v.SetScore("5%")
	v.ShowFilename("x.pdf")
	for _, s := range []*State{a, b} {
		snap := s.Snapshot()
		if snap.Score != "5%" || snap.Filename != "x.pdf" {
			t.Fatalf("unexpected snapshot %+v", snap)
		}
	}
}

func TestNewRequiresCollaborators(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatal("expected error without service")
	}
	if _, err := New(Config{Service: &fakeService{}}); err == nil {
		t.Fatal("expected error without selection")
	}
	if _, err := New(Config{Service: &fakeService{}, Selection: &FileSelection{}}); err == nil {
		t.Fatal("expected error without view")
	}
}
