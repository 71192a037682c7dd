package runctrl

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

var ErrRunNotFound = errors.New("evaluation run not found")

type EvaluationRun struct {
	ID           int64     `gorm:"primaryKey" json:"id"`
	Name         string    `gorm:"not null" json:"name"`
	Status       RunStatus `gorm:"not null" json:"status"`
	Threshold    float64   `gorm:"not null" json:"threshold"`
	JudgeBackend string    `gorm:"not null" json:"judge_backend"`
	Error        *string   `json:"error,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (EvaluationRun) TableName() string {
	return "evaluation_runs"
}

type RunService struct {
	db        *gorm.DB
	snowflake *snowflake.Node
}

func NewRunService(db *gorm.DB) (*RunService, error) {
	node, err := snowflake.NewNode(1) // Node number 1 for runs
	if err != nil {
		return nil, fmt.Errorf("failed to create snowflake node: %w", err)
	}

	return &RunService{db: db, snowflake: node}, nil
}

func (s *RunService) Create(ctx context.Context, name, judgeBackend string, threshold float64) (*EvaluationRun, error) {
	run := &EvaluationRun{
		ID:           s.snowflake.Generate().Int64(),
		Name:         name,
		Status:       RunStatusPending,
		Threshold:    threshold,
		JudgeBackend: judgeBackend,
	}

	result := s.db.WithContext(ctx).Create(run)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to create evaluation run: %w", result.Error)
	}
	return run, nil
}

func (s *RunService) GetByID(ctx context.Context, id int64) (*EvaluationRun, error) {
	var run EvaluationRun
	result := s.db.WithContext(ctx).First(&run, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %d", ErrRunNotFound, id)
		}
		return nil, fmt.Errorf("failed to get evaluation run: %w", result.Error)
	}
	return &run, nil
}

func (s *RunService) List(ctx context.Context, offset, limit int) ([]EvaluationRun, error) {
	var runs []EvaluationRun
	result := s.db.WithContext(ctx).
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&runs)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list evaluation runs: %w", result.Error)
	}
	return runs, nil
}

func (s *RunService) UpdateStatus(ctx context.Context, id int64, status RunStatus, runErr *string) error {
	result := s.db.WithContext(ctx).Model(&EvaluationRun{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status": status,
		"error":  runErr,
	})
	if result.Error != nil {
		return fmt.Errorf("failed to update run status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %d", ErrRunNotFound, id)
	}
	return nil
}
