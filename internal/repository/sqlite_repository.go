package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bytedance/sonic"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"go-medical-analyzer/pkg/models"
)

const maxRecent = 100

// AnalysisRecord is the stored form of an analysis. The full result is kept
// as JSON; the other columns exist for listing and lookup.
type AnalysisRecord struct {
	ID         string    `gorm:"primaryKey;size:36"`
	Provider   string    `gorm:"size:32;index"`
	TopLabel   string    `gorm:"size:128"`
	Severity   string    `gorm:"size:16"`
	Payload    string    `gorm:"type:text"`
	CreatedAt  time.Time `gorm:"index"`
	Confidence float64
}

func (AnalysisRecord) TableName() string {
	return "analyses"
}

type sqliteRepository struct {
	db *gorm.DB
}

// OpenSQLite opens (creating if needed) the history database at path.
func OpenSQLite(path string) (*gorm.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.AutoMigrate(&AnalysisRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return db, nil
}

// NewSQLiteRepository creates a history repository over an open database
func NewSQLiteRepository(db *gorm.DB) AnalysisRepository {
	return &sqliteRepository{db: db}
}

func (r *sqliteRepository) Save(ctx context.Context, result *models.AnalysisResult) error {
	if result.ID == "" {
		return fmt.Errorf("analysis has no id")
	}
	payload, err := sonic.MarshalString(result)
	if err != nil {
		return fmt.Errorf("encode analysis: %w", err)
	}

	record := &AnalysisRecord{
		ID:         result.ID,
		Provider:   result.Provider,
		Confidence: result.Confidence,
		Severity:   string(result.Severity),
		Payload:    payload,
		CreatedAt:  result.Timestamp,
	}
	if result.TopFinding != nil {
		record.TopLabel = result.TopFinding.Label
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	if err := r.db.WithContext(ctx).Save(record).Error; err != nil {
		return fmt.Errorf("save analysis %s: %w", result.ID, err)
	}
	return nil
}

func (r *sqliteRepository) Get(ctx context.Context, id string) (*models.AnalysisResult, error) {
	var record AnalysisRecord
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAnalysisNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find analysis %s: %w", id, err)
	}
	return decodeRecord(&record)
}

func (r *sqliteRepository) Recent(ctx context.Context, limit int) ([]*models.AnalysisResult, error) {
	if limit <= 0 || limit > maxRecent {
		limit = maxRecent
	}
	var records []AnalysisRecord
	if err := r.db.WithContext(ctx).Order("created_at desc").Limit(limit).Find(&records).Error; err != nil {
		return nil, fmt.Errorf("list analyses: %w", err)
	}

	results := make([]*models.AnalysisResult, 0, len(records))
	for i := range records {
		res, err := decodeRecord(&records[i])
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, nil
}

func decodeRecord(record *AnalysisRecord) (*models.AnalysisResult, error) {
	var res models.AnalysisResult
	if err := sonic.UnmarshalString(record.Payload, &res); err != nil {
		return nil, fmt.Errorf("decode analysis %s: %w", record.ID, err)
	}
	return &res, nil
}
