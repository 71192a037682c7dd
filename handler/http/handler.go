// Package http exposes the evaluation service as a REST API.
package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"hunter/src/core/docstore"
	"hunter/src/core/evalrun"
	"hunter/src/core/evaluation"
	"hunter/src/infrastructure/job"
	"hunter/src/metrics"
	"hunter/src/storage/postgres/runctrl"
)

var errNoJobQueue = errors.New("async evaluation requires a job queue; start the server with AMQP configured")

type Handler struct {
	runService *evalrun.Service
	docStore   docstore.DocumentStore
	jobService *job.JobService
}

// NewHandler wires the API. jobService may be nil; async submission then
// responds 503.
func NewHandler(runService *evalrun.Service, docStore docstore.DocumentStore, jobService *job.JobService) *Handler {
	return &Handler{
		runService: runService,
		docStore:   docStore,
		jobService: jobService,
	}
}

// RegisterRoutes registers all API routes
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api/v1")

	// Evaluation routes
	api.POST("/evaluations", h.CreateEvaluation)
	api.GET("/evaluations", h.ListEvaluations)
	api.GET("/evaluations/:id", h.GetEvaluation)
	api.GET("/evaluations/:id/results", h.GetEvaluationResults)
	api.GET("/evaluations/:id/report", h.GetEvaluationReport)

	// Document routes
	api.POST("/documents", h.CreateDocument)
	api.GET("/documents", h.ListDocuments)
	api.GET("/documents/:id", h.GetDocument)

	// System routes
	api.GET("/health", h.CheckHealth)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))
}

// Common error response structure
type ErrorResponse struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func sendError(c *gin.Context, status int, err error) {
	var code string
	switch {
	case errors.Is(err, runctrl.ErrRunNotFound) || errors.Is(err, docstore.ErrDocumentNotFound):
		code = "NOT_FOUND"
		status = http.StatusNotFound
	case errors.Is(err, evaluation.ErrInvalidInput) || errors.Is(err, evalrun.ErrNoCases):
		code = "INVALID_INPUT"
		status = http.StatusBadRequest
	case errors.Is(err, evaluation.ErrJudgeUnavailable):
		code = "JUDGE_UNAVAILABLE"
		status = http.StatusServiceUnavailable
	default:
		if status == 0 {
			status = http.StatusInternalServerError
		}
		switch status {
		case http.StatusBadRequest:
			code = "BAD_REQUEST"
		case http.StatusServiceUnavailable:
			code = "SERVICE_UNAVAILABLE"
		default:
			code = "INTERNAL_ERROR"
		}
	}

	c.JSON(status, ErrorResponse{
		Code:    code,
		Message: err.Error(),
	})
}

func sendJSON(c *gin.Context, status int, data interface{}) {
	c.JSON(status, data)
}
