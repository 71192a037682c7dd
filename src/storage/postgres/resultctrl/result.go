package resultctrl

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"hunter/src/core/evaluation"
)

// ScoreResultRecord is the stored form of an evaluation.ScoreResult.
// Records are append-only; summaries are always recomputed from them, never
// stored.
type ScoreResultRecord struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	RunID     int64     `gorm:"not null;index" json:"run_id"`
	CaseID    string    `gorm:"not null" json:"case_id"`
	ModelName string    `gorm:"not null" json:"model_name"`
	Metric    string    `gorm:"not null" json:"metric"`
	Score     float64   `json:"score"`
	Rationale string    `gorm:"type:text" json:"rationale"`
	Error     string    `gorm:"type:text" json:"error"`
	LatencyMS int64     `json:"latency_ms"`
	CreatedAt time.Time `json:"created_at"`
}

func (ScoreResultRecord) TableName() string {
	return "score_results"
}

type ResultService struct {
	db        *gorm.DB
	snowflake *snowflake.Node
}

func NewResultService(db *gorm.DB) (*ResultService, error) {
	node, err := snowflake.NewNode(3) // Node number 3 for score results
	if err != nil {
		return nil, fmt.Errorf("failed to create snowflake node: %w", err)
	}

	return &ResultService{db: db, snowflake: node}, nil
}

// CreateBatch appends all results of a run in one insert.
func (s *ResultService) CreateBatch(ctx context.Context, runID int64, results []evaluation.ScoreResult) error {
	if len(results) == 0 {
		return nil
	}

	records := make([]ScoreResultRecord, 0, len(results))
	for _, r := range results {
		records = append(records, ScoreResultRecord{
			ID:        s.snowflake.Generate().Int64(),
			RunID:     runID,
			CaseID:    r.TestCaseID,
			ModelName: r.ModelName,
			Metric:    string(r.Metric),
			Score:     r.Score,
			Rationale: r.Rationale,
			Error:     r.Error,
			LatencyMS: r.LatencyMS,
		})
	}

	result := s.db.WithContext(ctx).Create(&records)
	if result.Error != nil {
		return fmt.Errorf("failed to create score results: %w", result.Error)
	}
	return nil
}

// GetByRunID returns the run's results in their core form.
func (s *ResultService) GetByRunID(ctx context.Context, runID int64) ([]evaluation.ScoreResult, error) {
	var records []ScoreResultRecord
	result := s.db.WithContext(ctx).Where("run_id = ?", runID).Order("id").Find(&records)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to get score results: %w", result.Error)
	}

	results := make([]evaluation.ScoreResult, 0, len(records))
	for _, rec := range records {
		results = append(results, evaluation.ScoreResult{
			TestCaseID: rec.CaseID,
			ModelName:  rec.ModelName,
			Metric:     evaluation.Metric(rec.Metric),
			Score:      rec.Score,
			Rationale:  rec.Rationale,
			Error:      rec.Error,
			LatencyMS:  rec.LatencyMS,
		})
	}
	return results, nil
}
