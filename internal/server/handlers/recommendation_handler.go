package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/agromarket/internal/service/matching"
)

const maxBatchFarms = 100

// RecommendationHandler exposes the match scorer over HTTP.
type RecommendationHandler struct {
	svc    matching.Recommender
	logger *zap.Logger
}

// NewRecommendationHandler constructs the HTTP handler adapter.
func NewRecommendationHandler(svc matching.Recommender, logger *zap.Logger) *RecommendationHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RecommendationHandler{svc: svc, logger: logger}
}

// ForFarm returns the ranked recommendations of one farm.
func (h *RecommendationHandler) ForFarm(c *gin.Context) {
	recs, err := h.svc.GetRecommendations(c.Request.Context(), c.Param("farmId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, recs)
}

type batchRequest struct {
	FarmIDs []string `json:"farmIds" binding:"required"`
}

// Batch returns recommendations for several farms keyed by farm id.
func (h *RecommendationHandler) Batch(c *gin.Context) {
	var req batchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid batch payload", zap.Error(err))
		badRequest(c, "invalid request body")
		return
	}
	if len(req.FarmIDs) == 0 || len(req.FarmIDs) > maxBatchFarms {
		badRequest(c, "farmIds must hold between 1 and 100 ids")
		return
	}

	out, err := h.svc.GetRecommendationsBatch(c.Request.Context(), req.FarmIDs)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}
