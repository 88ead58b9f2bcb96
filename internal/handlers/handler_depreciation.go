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

// depreciationHandler handles HTTP requests for fixed assets, depreciation
// plans and runs.
type depreciationHandler struct {
	depreciationService portssvc.DepreciationService
}

// newDepreciationHandler creates a new depreciationHandler.
func newDepreciationHandler(ds portssvc.DepreciationService) *depreciationHandler {
	return &depreciationHandler{depreciationService: ds}
}

// registerDepreciationRoutes registers routes for assets and depreciation plans.
func registerDepreciationRoutes(rg *gin.RouterGroup, depreciationService portssvc.DepreciationService) {
	h := newDepreciationHandler(depreciationService)

	assets := rg.Group("/assets")
	{
		assets.POST("", h.createAsset)
		assets.GET("", h.listAssets)
		assets.GET("/:id", h.getAsset)
	}

	plans := rg.Group("/depreciation-plans")
	{
		plans.POST("", h.createPlan)
		plans.GET("/:id", h.getPlan)
		plans.PUT("/:id", h.updatePlan)
		plans.POST("/:id/activate", h.activatePlan)
		plans.GET("/:id/schedule", h.getSchedule)
		plans.POST("/run", h.runPlan)
	}
}

// respondDepreciationError maps depreciation engine errors to HTTP statuses.
func respondDepreciationError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrPlanExists),
		errors.Is(err, services.ErrPlanFrozen),
		errors.Is(err, services.ErrScheduleComplete),
		errors.Is(err, services.ErrPeriodOutOfSequence),
		errors.Is(err, apperrors.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrUnsupportedMethod),
		errors.Is(err, services.ErrPlanRefAmbiguous),
		errors.Is(err, apperrors.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

func (h *depreciationHandler) createAsset(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	companyID := c.Param("company_id")

	var req dto.CreateAssetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for CreateAsset", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	asset, err := h.depreciationService.CreateAsset(c.Request.Context(), companyID, req, userID)
	if err != nil {
		logger.Warn("Failed to create asset", slog.String("error", err.Error()), slog.String("company_id", companyID))
		respondDepreciationError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToAssetResponse(asset))
}

func (h *depreciationHandler) getAsset(c *gin.Context) {
	companyID := c.Param("company_id")
	assetID := c.Param("id")

	asset, err := h.depreciationService.GetAsset(c.Request.Context(), companyID, assetID)
	if err != nil {
		respondDepreciationError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToAssetResponse(asset))
}

func (h *depreciationHandler) listAssets(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	companyID := c.Param("company_id")

	assets, err := h.depreciationService.ListAssets(c.Request.Context(), companyID)
	if err != nil {
		logger.Error("Failed to list assets", slog.String("error", err.Error()), slog.String("company_id", companyID))
		respondDepreciationError(c, err)
		return
	}

	resp := make([]dto.AssetResponse, len(assets))
	for i := range assets {
		resp[i] = dto.ToAssetResponse(&assets[i])
	}
	c.JSON(http.StatusOK, gin.H{"assets": resp})
}

func (h *depreciationHandler) createPlan(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	companyID := c.Param("company_id")

	var req dto.CreatePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for CreatePlan", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	plan, err := h.depreciationService.CreatePlan(c.Request.Context(), companyID, req, userID)
	if err != nil {
		logger.Warn("Failed to create plan", slog.String("error", err.Error()), slog.String("asset_id", req.AssetID))
		respondDepreciationError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToPlanResponse(plan))
}

func (h *depreciationHandler) getPlan(c *gin.Context) {
	companyID := c.Param("company_id")
	planID := c.Param("id")

	plan, err := h.depreciationService.GetPlan(c.Request.Context(), companyID, planID)
	if err != nil {
		respondDepreciationError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToPlanResponse(plan))
}

func (h *depreciationHandler) updatePlan(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	companyID := c.Param("company_id")
	planID := c.Param("id")

	var req dto.UpdatePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for UpdatePlan", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	plan, err := h.depreciationService.UpdatePlan(c.Request.Context(), companyID, planID, req, userID)
	if err != nil {
		logger.Warn("Failed to update plan", slog.String("error", err.Error()), slog.String("plan_id", planID))
		respondDepreciationError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToPlanResponse(plan))
}

func (h *depreciationHandler) activatePlan(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	companyID := c.Param("company_id")
	planID := c.Param("id")

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	if err := h.depreciationService.ActivatePlan(c.Request.Context(), companyID, planID, userID); err != nil {
		logger.Warn("Failed to activate plan", slog.String("error", err.Error()), slog.String("plan_id", planID))
		respondDepreciationError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *depreciationHandler) getSchedule(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	companyID := c.Param("company_id")
	planID := c.Param("id")

	periods, posted, err := h.depreciationService.PreviewSchedule(c.Request.Context(), companyID, planID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			logger.Error("Failed to preview schedule", slog.String("error", err.Error()), slog.String("plan_id", planID))
		}
		respondDepreciationError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToScheduleResponse(planID, periods, posted))
}

func (h *depreciationHandler) runPlan(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	companyID := c.Param("company_id")

	var req dto.RunPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for RunPlan", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	outcome, err := h.depreciationService.RunPlan(c.Request.Context(), companyID, req, userID)
	if err != nil {
		logger.Warn("Failed to run plan",
			slog.String("error", err.Error()),
			slog.String("plan_id", req.PlanID),
			slog.String("asset_id", req.AssetID))
		respondDepreciationError(c, err)
		return
	}

	// An already-posted period replays the existing run rather than erroring.
	status := http.StatusCreated
	if outcome.Duplicate {
		status = http.StatusOK
	}
	c.JSON(status, dto.ToRunResponse(&outcome.Run, outcome.Duplicate))
}
