// Package analyzer maps one document submission onto view updates: the
// loading state, the score and indicator, the clause list, the analyzed
// filename and the error region.
package analyzer

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"doc-risk-eval/internal/analysis"
	"doc-risk-eval/internal/riskapi"
)

const (
	// LoadingText fills the score while a request is in flight.
	LoadingText = "Analyzing..."
	// ErrorText fills the score after a failure.
	ErrorText = "Error"
	// NeutralOffset centers the indicator.
	NeutralOffset = "50%"
)

// ErrInFlight is returned when Run is triggered while a previous run on the
// same Analyzer has not finished.
var ErrInFlight = errors.New("an analysis is already in progress")

// Service is the remote analysis call.
type Service interface {
	Analyze(ctx context.Context, doc analysis.Document) (analysis.Response, error)
}

// View receives UI state updates.
type View interface {
	SetScore(text string)
	SetIndicator(offset string)
	ShowClauses(entries []analysis.Entry)
	HideClauses()
	ShowError(msg Message)
	ClearError()
	ShowFilename(name string)
	HideFilename()
}

// Selection is the currently chosen file.
type Selection interface {
	Selected() (analysis.Document, bool)
	Clear()
}

// Recorder stores the outcome of a run. Recording failures never affect the
// view.
type Recorder interface {
	RecordAnalysis(ctx context.Context, outcome Outcome) error
}

// Outcome summarizes one run.
type Outcome struct {
	RequestID string
	Filename  string
	Response  analysis.Response
	Err       error
	Message   Message
	Duration  time.Duration
}

// Failed reports whether the run ended in an error.
func (o Outcome) Failed() bool {
	return o.Err != nil
}

// Config wires an Analyzer.
type Config struct {
	Service   Service
	Selection Selection
	View      View
	Recorder  Recorder
	// Endpoint is quoted in troubleshooting hints.
	Endpoint string
}

// Analyzer runs document submissions against a view.
type Analyzer struct {
	service   Service
	selection Selection
	view      View
	recorder  Recorder
	endpoint  string
	inFlight  atomic.Bool
}

// New constructs an Analyzer.
func New(cfg Config) (*Analyzer, error) {
	if cfg.Service == nil {
		return nil, errors.New("analysis service required")
	}
	if cfg.Selection == nil {
		return nil, errors.New("selection required")
	}
	if cfg.View == nil {
		return nil, errors.New("view required")
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = riskapi.DefaultBaseURL
	}
	return &Analyzer{
		service:   cfg.Service,
		selection: cfg.Selection,
		view:      cfg.View,
		recorder:  cfg.Recorder,
		endpoint:  endpoint,
	}, nil
}

// Run submits the selected document and renders the result. The returned
// Outcome is also reflected in the view; ErrInFlight is returned without
// touching the view.
func (a *Analyzer) Run(ctx context.Context) (Outcome, error) {
	if !a.inFlight.CompareAndSwap(false, true) {
		return Outcome{}, ErrInFlight
	}
	defer a.inFlight.Store(false)

	start := time.Now()
	requestID := riskapi.RequestIDFromContext(ctx)
	ctx = riskapi.WithRequestID(ctx, requestID)

	a.view.ClearError()
	a.view.SetScore(LoadingText)
	a.view.SetIndicator(NeutralOffset)
	a.view.HideClauses()
	a.view.HideFilename()

	outcome := Outcome{RequestID: requestID}
	doc, ok := a.selection.Selected()
	switch {
	case ok && doc.Err() != nil:
		outcome.Filename = doc.Name
		outcome.Err = doc.Err()
	case !ok || !doc.Valid():
		outcome.Err = analysis.ErrNoFile
	default:
		outcome.Filename = doc.Name
		outcome.Response, outcome.Err = a.service.Analyze(ctx, doc)
	}
	outcome.Duration = time.Since(start)

	log := logrus.WithFields(logrus.Fields{
		"request_id": requestID,
		"file":       outcome.Filename,
		"elapsed_ms": outcome.Duration.Milliseconds(),
	})

	if outcome.Err != nil {
		outcome.Message = Describe(outcome.Err, a.endpoint)
		a.renderFailure(outcome.Message)
		log.WithError(outcome.Err).Warn("document analysis failed")
	} else {
		a.renderSuccess(outcome.Filename, outcome.Response)
		log.WithFields(logrus.Fields{
			"risk_score": outcome.Response.RiskScore.String(),
			"clauses":    len(outcome.Response.RiskyClauses),
		}).Info("document analyzed")
	}

	if a.recorder != nil {
		if err := a.recorder.RecordAnalysis(ctx, outcome); err != nil {
			log.WithError(err).Warn("record analysis")
		}
	}
	return outcome, nil
}

func (a *Analyzer) renderSuccess(filename string, resp analysis.Response) {
	a.view.SetScore(resp.RiskScore.Percent())
	a.view.SetIndicator(resp.RiskScore.Percent())

	if entries := resp.Entries(); len(entries) > 0 {
		a.view.ShowClauses(entries)
	} else {
		a.view.HideClauses()
	}

	a.selection.Clear()
	a.view.ShowFilename(filename)
}

func (a *Analyzer) renderFailure(msg Message) {
	a.view.SetScore(ErrorText)
	a.view.SetIndicator(NeutralOffset)
	a.view.HideClauses()
	a.view.HideFilename()
	a.view.ShowError(msg)
}
