package job

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

const TaskTypeEvaluationRun = "evaluation_run"

// EvaluationRunPayload names the run a queued job should execute.
type EvaluationRunPayload struct {
	RunID int64 `json:"run_id"`
}

// RunExecutor executes a stored evaluation run. evalrun.Service satisfies
// it.
type RunExecutor interface {
	Execute(ctx context.Context, runID int64) error
}

type JobService struct {
	publisher message.Publisher
	repo      JobRepository
	logger    watermill.LoggerAdapter
	executor  RunExecutor
}

type JobMessage struct {
	JobID    int64           `json:"job_id"`
	TaskType string          `json:"task_type"`
	Payload  json.RawMessage `json:"payload"`
}

func NewJobService(
	publisher message.Publisher,
	repo JobRepository,
	logger watermill.LoggerAdapter,
	executor RunExecutor,
) *JobService {
	return &JobService{
		publisher: publisher,
		repo:      repo,
		logger:    logger,
		executor:  executor,
	}
}

// EnqueueEvaluationRun creates a job for the run and publishes it.
func (s *JobService) EnqueueEvaluationRun(ctx context.Context, runID int64) (*Job, error) {
	payload, err := json.Marshal(EvaluationRunPayload{RunID: runID})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal run payload: %w", err)
	}
	return s.EnqueueJob(ctx, TaskTypeEvaluationRun, payload)
}

// EnqueueJob stores a job record and publishes it to the queue.
func (s *JobService) EnqueueJob(ctx context.Context, taskType string, payload json.RawMessage) (*Job, error) {
	job, err := s.repo.Create(ctx, taskType, payload)
	if err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}

	msgPayload, err := json.Marshal(JobMessage{
		JobID:    job.ID,
		TaskType: job.TaskType,
		Payload:  job.Payload,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal job message: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), msgPayload)
	if err := s.publisher.Publish("jobs", msg); err != nil {
		return nil, fmt.Errorf("failed to publish job message: %w", err)
	}

	return job, nil
}

// ProcessJobMessage handles one queued message: load the record, mark it
// running, execute, and record the outcome.
func (s *JobService) ProcessJobMessage(msg *message.Message) error {
	var jobMsg JobMessage
	if err := json.Unmarshal(msg.Payload, &jobMsg); err != nil {
		return fmt.Errorf("failed to unmarshal job message: %w", err)
	}

	ctx := context.Background()

	job, err := s.repo.Get(ctx, jobMsg.JobID)
	if err != nil {
		return fmt.Errorf("failed to get job: %w", err)
	}

	if err := s.repo.MarkRunning(ctx, job.ID); err != nil {
		return fmt.Errorf("failed to mark job running: %w", err)
	}

	if err := s.processJob(ctx, job); err != nil {
		errStr := err.Error()
		if markErr := s.repo.MarkFinished(ctx, job.ID, JobStatusFailed, &errStr); markErr != nil {
			s.logger.Error("Failed to mark job failed", markErr, watermill.LogFields{
				"job_id": job.ID,
			})
		}
		return fmt.Errorf("failed to process job: %w", err)
	}

	if err := s.repo.MarkFinished(ctx, job.ID, JobStatusCompleted, nil); err != nil {
		return fmt.Errorf("failed to mark job completed: %w", err)
	}
	return nil
}

// processJob handles different types of jobs
func (s *JobService) processJob(ctx context.Context, job *Job) error {
	switch job.TaskType {
	case TaskTypeEvaluationRun:
		var payload EvaluationRunPayload
		if err := json.Unmarshal(job.Payload, &payload); err != nil {
			return fmt.Errorf("failed to unmarshal run payload: %w", err)
		}
		s.logger.Info("Executing evaluation run", watermill.LogFields{
			"job_id": job.ID,
			"run_id": payload.RunID,
		})
		return s.executor.Execute(ctx, payload.RunID)
	default:
		return fmt.Errorf("unknown task type: %s", job.TaskType)
	}
}
