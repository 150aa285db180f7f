package api

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"doc-risk-eval/internal/analysis"
	"doc-risk-eval/internal/analyzer"
	"doc-risk-eval/internal/riskapi"
	"doc-risk-eval/internal/store"
)

//go:embed templates/*.html
var templatesFS embed.FS

// HealthChecker probes the analysis service.
type HealthChecker interface {
	Health(ctx context.Context) (riskapi.Health, error)
}

// Config defines server dependencies.
type Config struct {
	Service        analyzer.Service
	Health         HealthChecker
	Endpoint       string
	History        *store.Database
	AllowedOrigins []string
	MaxUploadBytes int64
}

// Server wires HTTP handlers with the analyzer and the optional history.
type Server struct {
	service        analyzer.Service
	health         HealthChecker
	endpoint       string
	history        *store.Database
	allowedOrigins []string
	maxUpload      int64
	notifier       *StateNotifier
}

// NewServer constructs the web front end.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Service == nil {
		return nil, errors.New("analysis service required")
	}
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		endpoint = riskapi.DefaultBaseURL
	}
	maxUpload := cfg.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = 25 << 20
	}
	if cfg.History == nil {
		logrus.Info("analysis history disabled - no history path configured")
	}
	return &Server{
		service:        cfg.Service,
		health:         cfg.Health,
		endpoint:       endpoint,
		history:        cfg.History,
		allowedOrigins: cfg.AllowedOrigins,
		maxUpload:      maxUpload,
		notifier:       NewStateNotifier(),
	}, nil
}

// Notifier exposes the websocket broadcaster.
func (s *Server) Notifier() *StateNotifier {
	return s.notifier
}

// Router configures gin routes.
func (s *Server) Router() (*gin.Engine, error) {
	r := gin.Default()

	tmpl, err := template.New("").Funcs(template.FuncMap{
		"severityClass": severityClass,
	}).ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	r.SetHTMLTemplate(tmpl)

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowCredentials = false
	if len(s.allowedOrigins) == 0 {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = s.allowedOrigins
	}
	corsCfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept"}
	corsCfg.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	r.Use(cors.New(corsCfg))

	r.GET("/", s.handleIndex)
	r.POST("/", s.handleSubmitPage)

	api := r.Group("/api")
	{
		api.GET("/healthz", s.handleHealth)
		api.POST("/analyze", s.handleAnalyze)
		api.GET("/history", s.handleHistory)
		api.GET("/history/:requestID", s.handleHistoryItem)
		api.GET("/stream", s.handleStream)
	}

	return r, nil
}

type pageData struct {
	RequestID string
	State     analyzer.Snapshot
	Endpoint  string
}

func (s *Server) handleIndex(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", pageData{Endpoint: s.endpoint})
}

func (s *Server) handleSubmitPage(c *gin.Context) {
	requestID, outcome, snap := s.runAnalysis(c)
	status := http.StatusOK
	if outcome.Failed() {
		status = failureStatus(outcome.Err)
	}
	c.HTML(status, "index.html", pageData{RequestID: requestID, State: snap, Endpoint: s.endpoint})
}

func (s *Server) handleAnalyze(c *gin.Context) {
	requestID, outcome, snap := s.runAnalysis(c)
	resp := AnalyzeResponse{RequestID: requestID, Status: store.StatusCompleted, State: snap}
	if outcome.Failed() {
		resp.Status = store.StatusFailed
		c.JSON(failureStatus(outcome.Err), resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// runAnalysis runs one analyzer against the uploaded form file. Every request
// gets its own Analyzer, selection and state.
func (s *Server) runAnalysis(c *gin.Context) (string, analyzer.Outcome, analyzer.Snapshot) {
	requestID := uuid.NewString()
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxUpload)

	selection := &analyzer.FileSelection{}
	header, err := c.FormFile("file")
	switch {
	case err == nil:
		selection.Set(analysis.ReaderDocument(header.Filename, header.Size, func() (io.ReadCloser, error) {
			return header.Open()
		}))
	case isTooLarge(err):
		selection.Set(analysis.RejectedDocument("", &analysis.ValidationError{
			Reason: fmt.Sprintf("File exceeds the %d MB upload limit", s.maxUpload>>20),
			Err:    analysis.ErrTooLarge,
		}))
	case !errors.Is(err, http.ErrMissingFile):
		logrus.WithError(err).WithField("request_id", requestID).Debug("read upload form")
	}

	state := analyzer.NewState()
	cfg := analyzer.Config{
		Service:   s.service,
		Selection: selection,
		View:      analyzer.Views(state, newStreamView(s.notifier, requestID)),
		Endpoint:  s.endpoint,
	}
	if s.history != nil {
		cfg.Recorder = s.history
	}
	a, err := analyzer.New(cfg)
	if err != nil {
		logrus.WithError(err).Error("configure analyzer")
		msg := analyzer.Describe(err, s.endpoint)
		return requestID, analyzer.Outcome{RequestID: requestID, Err: err, Message: msg}, analyzer.Snapshot{
			Score: analyzer.ErrorText, Indicator: analyzer.NeutralOffset, ErrorVisible: true, Error: &msg,
		}
	}

	ctx := riskapi.WithRequestID(c.Request.Context(), requestID)
	outcome, err := a.Run(ctx)
	if err != nil {
		// A fresh analyzer is never busy; keep the state consistent anyway.
		outcome = analyzer.Outcome{RequestID: requestID, Err: err, Message: analyzer.Describe(err, s.endpoint)}
	}
	return requestID, outcome, state.Snapshot()
}

func (s *Server) handleHealth(c *gin.Context) {
	resp := HealthResponse{
		Status:          "ok",
		AnalysisService: "unknown",
		Endpoint:        s.endpoint,
		HistoryEnabled:  s.history != nil,
	}
	if s.health != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()
		health, err := s.health.Health(ctx)
		if err != nil {
			resp.AnalysisService = "unavailable"
			resp.Error = err.Error()
		} else {
			resp.AnalysisService = firstNonEmpty(health.Status, "ok")
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleHistory(c *gin.Context) {
	if s.history == nil {
		s.renderError(c, http.StatusNotFound, errors.New("analysis history is disabled"))
		return
	}
	offset, err := parseIntParam(c.Query("offset"), 0)
	if err != nil {
		s.renderError(c, http.StatusBadRequest, fmt.Errorf("offset: %w", err))
		return
	}
	limit, err := parseIntParam(c.Query("limit"), 50)
	if err != nil {
		s.renderError(c, http.StatusBadRequest, fmt.Errorf("limit: %w", err))
		return
	}
	if limit > 500 {
		limit = 500
	}

	rows, total, err := s.history.ListAnalyses(c.Request.Context(), store.HistoryQuery{
		Filename: c.Query("filename"),
		Status:   c.Query("status"),
		Offset:   offset,
		Limit:    limit,
	})
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}

	items := make([]AnalysisDTO, 0, len(rows))
	for _, row := range rows {
		items = append(items, FromModel(row))
	}
	c.JSON(http.StatusOK, HistoryResponse{Items: items, Total: total})
}

func (s *Server) handleHistoryItem(c *gin.Context) {
	if s.history == nil {
		s.renderError(c, http.StatusNotFound, errors.New("analysis history is disabled"))
		return
	}
	row, err := s.history.GetAnalysis(c.Request.Context(), c.Param("requestID"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.renderError(c, http.StatusNotFound, errors.New("analysis not found"))
			return
		}
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, FromModel(*row))
}

func (s *Server) handleStream(c *gin.Context) {
	upgrader := websocket.Upgrader{
		HandshakeTimeout:  5 * time.Second,
		EnableCompression: true,
		CheckOrigin: func(r *http.Request) bool {
			if len(s.allowedOrigins) == 0 {
				return true
			}
			origin := strings.TrimSpace(r.Header.Get("Origin"))
			for _, allowed := range s.allowedOrigins {
				if strings.EqualFold(origin, allowed) {
					return true
				}
			}
			return false
		},
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.WithError(err).Warn("upgrade websocket")
		return
	}

	client := s.notifier.Register(conn)
	logrus.WithField("remote", conn.RemoteAddr().String()).Info("state websocket connected")
	defer s.notifier.Unregister(client)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if !websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logrus.WithField("remote", conn.RemoteAddr().String()).Info("state websocket closed")
			} else {
				logrus.WithError(err).Warn("state websocket unexpected close")
			}
			break
		}
	}
}

func (s *Server) renderError(c *gin.Context, status int, err error) {
	c.JSON(status, gin.H{"error": err.Error()})
}

func failureStatus(err error) int {
	var validation *analysis.ValidationError
	switch {
	case errors.Is(err, analysis.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.As(err, &validation):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadGateway
	}
}

func isTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}

func severityClass(class analysis.SeverityClass) string {
	switch class {
	case analysis.SeverityHigh:
		return "severity-high"
	case analysis.SeverityMedium:
		return "severity-medium"
	case analysis.SeverityLow:
		return "severity-low"
	default:
		return "severity-default"
	}
}

func parseIntParam(value string, fallback int) (int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	if parsed < 0 {
		return 0, errors.New("must not be negative")
	}
	return parsed, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
