package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"doc-risk-eval/internal/analysis"
	"doc-risk-eval/internal/analyzer"
)

// Database wraps the GORM DB handle holding the analysis history.
type Database struct {
	gorm *gorm.DB
	mu   sync.Mutex
}

// Open initializes the SQLite-backed history at the provided path.
func Open(path string, silent bool) (*Database, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("history path required")
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history directory: %w", err)
		}
	}

	cfg := &gorm.Config{}
	if silent {
		cfg.Logger = logger.Default.LogMode(logger.Silent)
	}
	db, err := gorm.Open(sqlite.Open(path), cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.AutoMigrate(&Analysis{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	if err := db.Exec("PRAGMA journal_mode=WAL").Error; err != nil {
		logrus.WithError(err).Warn("enable WAL mode")
	}
	if err := db.Exec("PRAGMA synchronous=NORMAL").Error; err != nil {
		logrus.WithError(err).Warn("set synchronous pragma")
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_analyses_created_at ON analyses(created_at)").Error; err != nil {
		return nil, fmt.Errorf("apply indexes: %w", err)
	}
	return &Database{gorm: db}, nil
}

// Close closes the underlying database connection.
func (d *Database) Close() error {
	if d == nil {
		return nil
	}
	sqlDB, err := d.gorm.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// SaveAnalysis inserts a history row.
func (d *Database) SaveAnalysis(ctx context.Context, a *Analysis) error {
	if a == nil {
		return errors.New("analysis is nil")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gorm.WithContext(ctx).Create(a).Error
}

// RecordAnalysis stores the outcome of an analyzer run.
func (d *Database) RecordAnalysis(ctx context.Context, outcome analyzer.Outcome) error {
	if d == nil {
		return errors.New("database is nil")
	}
	return d.SaveAnalysis(ctx, FromOutcome(outcome))
}

// FromOutcome converts an analyzer outcome into a history row.
func FromOutcome(outcome analyzer.Outcome) *Analysis {
	row := &Analysis{
		RequestID:        outcome.RequestID,
		Filename:         outcome.Filename,
		ProcessingTimeMs: outcome.Duration.Milliseconds(),
	}
	if outcome.Failed() {
		row.Status = StatusFailed
		row.ErrorKind = outcome.Message.Kind
		row.ErrorMessage = outcome.Message.Text
		var apiErr *analysis.APIError
		if errors.As(outcome.Err, &apiErr) {
			row.HTTPStatus = apiErr.Status
		}
		row.SetClauses(nil)
		return row
	}
	row.Status = StatusCompleted
	row.Score = outcome.Response.RiskScore.String()
	row.HTTPStatus = 200
	row.SetClauses(outcome.Response.Entries())
	return row
}

// HistoryQuery filters and paginates history rows.
type HistoryQuery struct {
	Filename string
	Status   string
	Offset   int
	Limit    int
}

// ListAnalyses returns history rows, newest first, with the total match count.
func (d *Database) ListAnalyses(ctx context.Context, opts HistoryQuery) ([]Analysis, int64, error) {
	base := d.gorm.WithContext(ctx).Model(&Analysis{})
	if name := strings.TrimSpace(opts.Filename); name != "" {
		base = base.Where("filename LIKE ?", fmt.Sprintf("%%%s%%", name))
	}
	if status := strings.TrimSpace(opts.Status); status != "" {
		base = base.Where("status = ?", strings.ToLower(status))
	}

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query := base.Order("created_at DESC, id DESC").Offset(opts.Offset)
	if opts.Limit > 0 {
		query = query.Limit(opts.Limit)
	}
	var rows []Analysis
	if err := query.Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// GetAnalysis retrieves one row by request id.
func (d *Database) GetAnalysis(ctx context.Context, requestID string) (*Analysis, error) {
	var row Analysis
	if err := d.gorm.WithContext(ctx).Where("request_id = ?", requestID).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// ClearAnalyses removes all history rows.
func (d *Database) ClearAnalyses(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gorm.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&Analysis{}).Error
}
