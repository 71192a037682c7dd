package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"hunter/src/core/evaluation"
)

type submitCaseRequest struct {
	ID        string   `json:"id"`
	Model     string   `json:"model" binding:"required"`
	Question  string   `json:"question" binding:"required"`
	Reference []string `json:"reference" binding:"required"`
	Answer    string   `json:"answer" binding:"required"`
	LatencyMS int64    `json:"latency_ms"`
}

type createEvaluationRequest struct {
	Name      string              `json:"name" binding:"required"`
	Async     bool                `json:"async"`
	Threshold float64             `json:"threshold"`
	Cases     []submitCaseRequest `json:"cases" binding:"required"`
}

type caseValidationError struct {
	CaseID string `json:"caseId"`
	Error  string `json:"error"`
}

// CreateEvaluation godoc
// @Summary Submit an evaluation run
// @Tags evaluations
// @Accept json
// @Produce json
// @Param body body createEvaluationRequest true "Run definition"
// @Success 200 {object} evalrun.RunView
// @Success 202 {object} map[string]interface{}
// @Failure 400 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /evaluations [post]
func (h *Handler) CreateEvaluation(c *gin.Context) {
	var req createEvaluationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, err)
		return
	}

	cases := make([]evaluation.TestCase, 0, len(req.Cases))
	var invalid []caseValidationError
	for _, rc := range req.Cases {
		tc := evaluation.TestCase{
			ID:                 rc.ID,
			Question:           rc.Question,
			ReferenceDocuments: rc.Reference,
			CandidateAnswer:    rc.Answer,
			ModelName:          rc.Model,
			LatencyMS:          rc.LatencyMS,
		}
		if tc.ID == "" {
			tc.ID = uuid.NewString()
		}
		if err := tc.Validate(); err != nil {
			invalid = append(invalid, caseValidationError{CaseID: tc.ID, Error: err.Error()})
			continue
		}
		cases = append(cases, tc)
	}

	if len(invalid) > 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "INVALID_INPUT",
			Message: "one or more test cases failed validation",
			Details: invalid,
		})
		return
	}

	run, err := h.runService.CreateRun(c.Request.Context(), req.Name, req.Threshold, cases)
	if err != nil {
		sendError(c, 0, err)
		return
	}

	if req.Async {
		if h.jobService == nil {
			sendError(c, http.StatusServiceUnavailable, errNoJobQueue)
			return
		}
		if _, err := h.jobService.EnqueueEvaluationRun(c.Request.Context(), run.ID); err != nil {
			sendError(c, 0, err)
			return
		}
		sendJSON(c, http.StatusAccepted, gin.H{"runId": run.ID, "status": run.Status})
		return
	}

	if err := h.runService.Execute(c.Request.Context(), run.ID); err != nil {
		sendError(c, 0, err)
		return
	}

	view, err := h.runService.GetRun(c.Request.Context(), run.ID)
	if err != nil {
		sendError(c, 0, err)
		return
	}
	sendJSON(c, http.StatusOK, view)
}

// ListEvaluations godoc
// @Summary List recent evaluation runs
// @Tags evaluations
// @Produce json
// @Success 200 {array} runctrl.EvaluationRun
// @Failure 500 {object} ErrorResponse
// @Router /evaluations [get]
func (h *Handler) ListEvaluations(c *gin.Context) {
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	runs, err := h.runService.ListRuns(c.Request.Context(), offset, limit)
	if err != nil {
		sendError(c, 0, err)
		return
	}
	sendJSON(c, http.StatusOK, runs)
}

// GetEvaluation godoc
// @Summary Get run status and recomputed summaries
// @Tags evaluations
// @Produce json
// @Param id path int true "Run ID"
// @Success 200 {object} evalrun.RunView
// @Failure 404 {object} ErrorResponse
// @Router /evaluations/{id} [get]
func (h *Handler) GetEvaluation(c *gin.Context) {
	id, err := parseRunID(c)
	if err != nil {
		sendError(c, http.StatusBadRequest, err)
		return
	}

	view, err := h.runService.GetRun(c.Request.Context(), id)
	if err != nil {
		sendError(c, 0, err)
		return
	}
	sendJSON(c, http.StatusOK, view)
}

// GetEvaluationResults godoc
// @Summary Get raw score results of a run
// @Tags evaluations
// @Produce json
// @Param id path int true "Run ID"
// @Success 200 {array} evaluation.ScoreResult
// @Failure 404 {object} ErrorResponse
// @Router /evaluations/{id}/results [get]
func (h *Handler) GetEvaluationResults(c *gin.Context) {
	id, err := parseRunID(c)
	if err != nil {
		sendError(c, http.StatusBadRequest, err)
		return
	}

	results, err := h.runService.Results(c.Request.Context(), id)
	if err != nil {
		sendError(c, 0, err)
		return
	}
	sendJSON(c, http.StatusOK, results)
}

// GetEvaluationReport godoc
// @Summary Get the markdown report of a run
// @Tags evaluations
// @Produce plain
// @Param id path int true "Run ID"
// @Success 200 {string} string
// @Failure 404 {object} ErrorResponse
// @Router /evaluations/{id}/report [get]
func (h *Handler) GetEvaluationReport(c *gin.Context) {
	id, err := parseRunID(c)
	if err != nil {
		sendError(c, http.StatusBadRequest, err)
		return
	}

	md, err := h.runService.Report(c.Request.Context(), id)
	if err != nil {
		sendError(c, 0, err)
		return
	}
	c.Data(http.StatusOK, "text/markdown; charset=utf-8", []byte(md))
}

func parseRunID(c *gin.Context) (int64, error) {
	return strconv.ParseInt(c.Param("id"), 10, 64)
}
