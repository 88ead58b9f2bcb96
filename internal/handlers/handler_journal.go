package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/finbooks/accounting_backend/internal/apperrors"
	portssvc "github.com/finbooks/accounting_backend/internal/core/ports/services"
	"github.com/finbooks/accounting_backend/internal/core/services"
	"github.com/finbooks/accounting_backend/internal/dto"
	"github.com/finbooks/accounting_backend/internal/middleware"
)

// journalHandler handles HTTP requests for posting and reading journal batches.
type journalHandler struct {
	postingService portssvc.PostingService
}

// newJournalHandler creates a new journalHandler.
func newJournalHandler(ps portssvc.PostingService) *journalHandler {
	return &journalHandler{postingService: ps}
}

// registerJournalRoutes registers routes related to journal batches.
func registerJournalRoutes(rg *gin.RouterGroup, postingService portssvc.PostingService) {
	h := newJournalHandler(postingService)

	batches := rg.Group("/journal-batches")
	{
		batches.POST("", h.postDocument)
		batches.GET("", h.listBatches)
		batches.GET("/:id", h.getBatch)
	}
}

// respondJournalError maps posting engine errors to HTTP statuses.
func respondJournalError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrUnbalancedJournal),
		errors.Is(err, services.ErrNoJournalLines),
		errors.Is(err, apperrors.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrDuplicate):
		// Same (company, doc type, doc ref) was already posted.
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

func (h *journalHandler) postDocument(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	companyID := c.Param("company_id")

	var req dto.PostingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for PostDocument", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("Acting user ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	req.CompanyID = companyID
	req.UserID = userID

	result, err := h.postingService.Post(c.Request.Context(), req, nil)
	if err != nil {
		logger.Warn("Failed to post document",
			slog.String("error", err.Error()),
			slog.String("doc_type", string(req.DocType)),
			slog.String("doc_ref", req.DocRef))
		respondJournalError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToJournalBatchResponse(&result.Batch, result.Lines))
}

func (h *journalHandler) getBatch(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	companyID := c.Param("company_id")
	batchID := c.Param("id")

	batch, lines, err := h.postingService.GetBatch(c.Request.Context(), companyID, batchID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			logger.Error("Failed to get batch", slog.String("error", err.Error()), slog.String("batch_id", batchID))
		}
		respondJournalError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToJournalBatchResponse(batch, lines))
}

func (h *journalHandler) listBatches(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	companyID := c.Param("company_id")

	var params dto.ListBatchesParams
	if err := c.ShouldBindQuery(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters: " + err.Error()})
		return
	}

	batches, nextToken, err := h.postingService.ListBatches(c.Request.Context(), companyID, params)
	if err != nil {
		logger.Error("Failed to list batches", slog.String("error", err.Error()), slog.String("company_id", companyID))
		respondJournalError(c, err)
		return
	}

	resp := dto.ListBatchesResponse{
		Batches:   make([]dto.JournalBatchResponse, len(batches)),
		NextToken: nextToken,
	}
	for i := range batches {
		resp.Batches[i] = dto.ToJournalBatchResponse(&batches[i], nil)
	}

	c.JSON(http.StatusOK, resp)
}
