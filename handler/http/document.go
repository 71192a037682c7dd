package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

type createDocumentRequest struct {
	Title   string `json:"title"`
	Content string `json:"content" binding:"required"`
}

// CreateDocument godoc
// @Summary Add a reference document
// @Tags documents
// @Accept json
// @Produce json
// @Param body body createDocumentRequest true "Document"
// @Success 201 {object} docstore.Document
// @Failure 400 {object} ErrorResponse
// @Router /documents [post]
func (h *Handler) CreateDocument(c *gin.Context) {
	var req createDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, err)
		return
	}

	doc, err := h.docStore.Add(c.Request.Context(), req.Title, req.Content)
	if err != nil {
		sendError(c, http.StatusBadRequest, err)
		return
	}
	sendJSON(c, http.StatusCreated, doc)
}

// ListDocuments godoc
// @Summary List reference documents
// @Tags documents
// @Produce json
// @Success 200 {array} docstore.Document
// @Failure 500 {object} ErrorResponse
// @Router /documents [get]
func (h *Handler) ListDocuments(c *gin.Context) {
	docs, err := h.docStore.List(c.Request.Context())
	if err != nil {
		sendError(c, 0, err)
		return
	}
	sendJSON(c, http.StatusOK, docs)
}

// GetDocument godoc
// @Summary Get one reference document
// @Tags documents
// @Produce json
// @Param id path int true "Document ID"
// @Success 200 {object} docstore.Document
// @Failure 404 {object} ErrorResponse
// @Router /documents/{id} [get]
func (h *Handler) GetDocument(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		sendError(c, http.StatusBadRequest, err)
		return
	}

	doc, err := h.docStore.Get(c.Request.Context(), id)
	if err != nil {
		sendError(c, 0, err)
		return
	}
	sendJSON(c, http.StatusOK, doc)
}
