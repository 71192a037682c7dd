// Package evalrun drives the lifecycle of persisted evaluation runs:
// pending -> running -> completed | failed. Scores are computed by the
// evaluation core and stored append-only; summaries are recomputed from
// stored results on every read.
package evalrun

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"hunter/src/core/evaluation"
	"hunter/src/log"
	"hunter/src/metrics"
	"hunter/src/report"
	"hunter/src/storage/postgres/casectrl"
	"hunter/src/storage/postgres/resultctrl"
	"hunter/src/storage/postgres/runctrl"
)

var ErrNoCases = errors.New("evaluation run has no test cases")

// RunView is one run with its recomputed summaries.
type RunView struct {
	Run               *runctrl.EvaluationRun                            `json:"run"`
	Summaries         map[evaluation.SummaryKey]evaluation.ModelSummary `json:"-"`
	SummaryList       []evaluation.ModelSummary                         `json:"summaries"`
	HallucinationRate float64                                           `json:"hallucinationRate"`
}

type Service struct {
	runs         *runctrl.RunService
	cases        *casectrl.CaseService
	results      *resultctrl.ResultService
	runner       *evaluation.Runner
	judgeBackend string
}

func NewService(
	runs *runctrl.RunService,
	cases *casectrl.CaseService,
	results *resultctrl.ResultService,
	runner *evaluation.Runner,
	judgeBackend string,
) (*Service, error) {
	if runner == nil {
		return nil, errors.New("runner is required")
	}

	return &Service{
		runs:         runs,
		cases:        cases,
		results:      results,
		runner:       runner,
		judgeBackend: judgeBackend,
	}, nil
}

// CreateRun stores a new pending run together with its immutable case set.
func (s *Service) CreateRun(ctx context.Context, name string, threshold float64, cases []evaluation.TestCase) (*runctrl.EvaluationRun, error) {
	if len(cases) == 0 {
		return nil, ErrNoCases
	}
	if threshold <= 0 || threshold > 1 {
		threshold = evaluation.DefaultPassThreshold
	}

	run, err := s.runs.Create(ctx, name, s.judgeBackend, threshold)
	if err != nil {
		return nil, err
	}

	if err := s.cases.CreateBatch(ctx, run.ID, cases); err != nil {
		failure := err.Error()
		if updateErr := s.runs.UpdateStatus(ctx, run.ID, runctrl.RunStatusFailed, &failure); updateErr != nil {
			log.Error(updateErr, "failed to mark run failed", "run", run.ID)
		}
		return nil, err
	}

	return run, nil
}

// Execute evaluates a pending run and stores its results. Partial results
// from a cancelled batch are stored before the failure is reported.
func (s *Service) Execute(ctx context.Context, runID int64) error {
	run, err := s.runs.GetByID(ctx, runID)
	if err != nil {
		return err
	}

	if err := s.runs.UpdateStatus(ctx, runID, runctrl.RunStatusRunning, nil); err != nil {
		return err
	}

	cases, err := s.cases.GetByRunID(ctx, runID)
	if err != nil {
		return s.fail(ctx, runID, err)
	}
	if len(cases) == 0 {
		return s.fail(ctx, runID, ErrNoCases)
	}

	log.Info("evaluating run", "run", runID, "name", run.Name, "cases", len(cases))
	batch, runErr := s.runner.Run(ctx, cases)

	if batch != nil {
		if storeErr := s.results.CreateBatch(ctx, runID, batch.Results); storeErr != nil {
			return s.fail(ctx, runID, storeErr)
		}
		metrics.ObserveResults(batch.Results)
		metrics.CasesEvaluatedTotal.WithLabelValues("rejected").Add(float64(len(batch.Rejected)))
		metrics.CasesEvaluatedTotal.WithLabelValues("scored").Add(float64(len(cases) - len(batch.Rejected)))
		for _, rej := range batch.Rejected {
			log.Info("case rejected", "run", runID, "case", rej.TestCaseID, "error", rej.Err.Error())
		}
	}

	if runErr != nil {
		return s.fail(ctx, runID, runErr)
	}

	if err := s.runs.UpdateStatus(ctx, runID, runctrl.RunStatusCompleted, nil); err != nil {
		return err
	}
	metrics.EvaluationRunsTotal.WithLabelValues("completed").Inc()
	return nil
}

// GetRun returns run status plus summaries recomputed from the stored
// result set under the run's own threshold.
func (s *Service) GetRun(ctx context.Context, runID int64) (*RunView, error) {
	run, err := s.runs.GetByID(ctx, runID)
	if err != nil {
		return nil, err
	}

	results, err := s.results.GetByRunID(ctx, runID)
	if err != nil {
		return nil, err
	}

	aggregator := evaluation.NewAggregator(evaluation.WithPassThreshold(run.Threshold))
	summaries, err := aggregator.Aggregate(results)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate run %d: %w", runID, err)
	}

	view := &RunView{
		Run:               run,
		Summaries:         summaries,
		HallucinationRate: aggregator.HallucinationRate(results),
	}
	for _, summary := range summaries {
		view.SummaryList = append(view.SummaryList, summary)
	}
	sortSummaries(view.SummaryList)
	return view, nil
}

// ListRuns returns recent runs without their summaries.
func (s *Service) ListRuns(ctx context.Context, offset, limit int) ([]runctrl.EvaluationRun, error) {
	return s.runs.List(ctx, offset, limit)
}

// Results returns the raw stored score results of a run.
func (s *Service) Results(ctx context.Context, runID int64) ([]evaluation.ScoreResult, error) {
	if _, err := s.runs.GetByID(ctx, runID); err != nil {
		return nil, err
	}
	return s.results.GetByRunID(ctx, runID)
}

// Report renders the markdown report for a run from its stored cases and
// results.
func (s *Service) Report(ctx context.Context, runID int64) (string, error) {
	run, err := s.runs.GetByID(ctx, runID)
	if err != nil {
		return "", err
	}

	cases, err := s.cases.GetByRunID(ctx, runID)
	if err != nil {
		return "", err
	}
	results, err := s.results.GetByRunID(ctx, runID)
	if err != nil {
		return "", err
	}

	aggregator := evaluation.NewAggregator(evaluation.WithPassThreshold(run.Threshold))
	summaries, err := aggregator.Aggregate(results)
	if err != nil {
		return "", fmt.Errorf("failed to aggregate run %d: %w", runID, err)
	}

	return report.Markdown(report.Data{
		Name:              run.Name,
		Threshold:         run.Threshold,
		Cases:             cases,
		Results:           results,
		Summaries:         summaries,
		HallucinationRate: aggregator.HallucinationRate(results),
	}), nil
}

func (s *Service) fail(ctx context.Context, runID int64, cause error) error {
	failure := cause.Error()
	if err := s.runs.UpdateStatus(ctx, runID, runctrl.RunStatusFailed, &failure); err != nil {
		log.Error(err, "failed to mark run failed", "run", runID)
	}
	metrics.EvaluationRunsTotal.WithLabelValues("failed").Inc()
	return cause
}

func sortSummaries(summaries []evaluation.ModelSummary) {
	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].ModelName != summaries[j].ModelName {
			return summaries[i].ModelName < summaries[j].ModelName
		}
		return summaries[i].Metric < summaries[j].Metric
	})
}
