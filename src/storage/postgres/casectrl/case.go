package casectrl

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"hunter/src/core/evaluation"
)

// TestCaseRecord is the stored form of an evaluation.TestCase. Reference
// documents are packed into a JSON column; cases are immutable once written.
type TestCaseRecord struct {
	ID              int64     `gorm:"primaryKey" json:"id"`
	RunID           int64     `gorm:"not null;index" json:"run_id"`
	CaseID          string    `gorm:"not null" json:"case_id"`
	ModelName       string    `gorm:"not null" json:"model_name"`
	Question        string    `gorm:"not null" json:"question"`
	References      string    `gorm:"not null;type:text" json:"references"`
	CandidateAnswer string    `gorm:"not null;type:text" json:"candidate_answer"`
	LatencyMS       int64     `json:"latency_ms"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (TestCaseRecord) TableName() string {
	return "test_cases"
}

type CaseService struct {
	db        *gorm.DB
	snowflake *snowflake.Node
}

func NewCaseService(db *gorm.DB) (*CaseService, error) {
	node, err := snowflake.NewNode(2) // Node number 2 for test cases
	if err != nil {
		return nil, fmt.Errorf("failed to create snowflake node: %w", err)
	}

	return &CaseService{db: db, snowflake: node}, nil
}

// CreateBatch stores all cases of a run in one insert.
func (s *CaseService) CreateBatch(ctx context.Context, runID int64, cases []evaluation.TestCase) error {
	if len(cases) == 0 {
		return nil
	}

	records := make([]TestCaseRecord, 0, len(cases))
	for _, tc := range cases {
		refs, err := json.Marshal(tc.ReferenceDocuments)
		if err != nil {
			return fmt.Errorf("failed to marshal references for case %s: %w", tc.ID, err)
		}
		records = append(records, TestCaseRecord{
			ID:              s.snowflake.Generate().Int64(),
			RunID:           runID,
			CaseID:          tc.ID,
			ModelName:       tc.ModelName,
			Question:        tc.Question,
			References:      string(refs),
			CandidateAnswer: tc.CandidateAnswer,
			LatencyMS:       tc.LatencyMS,
		})
	}

	result := s.db.WithContext(ctx).Create(&records)
	if result.Error != nil {
		return fmt.Errorf("failed to create test cases: %w", result.Error)
	}
	return nil
}

// GetByRunID returns the run's cases in their core form.
func (s *CaseService) GetByRunID(ctx context.Context, runID int64) ([]evaluation.TestCase, error) {
	var records []TestCaseRecord
	result := s.db.WithContext(ctx).Where("run_id = ?", runID).Order("id").Find(&records)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to get test cases: %w", result.Error)
	}

	cases := make([]evaluation.TestCase, 0, len(records))
	for _, rec := range records {
		var refs []string
		if err := json.Unmarshal([]byte(rec.References), &refs); err != nil {
			return nil, fmt.Errorf("failed to unmarshal references for case %s: %w", rec.CaseID, err)
		}
		cases = append(cases, evaluation.TestCase{
			ID:                 rec.CaseID,
			Question:           rec.Question,
			ReferenceDocuments: refs,
			CandidateAnswer:    rec.CandidateAnswer,
			ModelName:          rec.ModelName,
			LatencyMS:          rec.LatencyMS,
		})
	}
	return cases, nil
}
