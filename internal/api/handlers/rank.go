package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"spain-energy/internal/api/models"
	"spain-energy/internal/pipeline"
)

const defaultRankLimit = 10

// RankHandler handles ranking-related requests
type RankHandler struct {
	svc      *pipeline.Service
	defaults Defaults
}

// NewRankHandler creates a new rank handler
func NewRankHandler(svc *pipeline.Service, defaults Defaults) *RankHandler {
	return &RankHandler{svc: svc, defaults: defaults}
}

// RankProfiles handles GET /api/v1/profiles/rank
func (h *RankHandler) RankProfiles(c *gin.Context) {
	var req models.RankQuery
	if err := c.ShouldBindQuery(&req); err != nil {
		respondError(c, http.StatusBadRequest, models.CodeInvalidRequest, err.Error())
		return
	}
	sel, err := h.defaults.SelectionFromQuery(req.SelectionQuery)
	if err != nil {
		respondAnalysisError(c, err)
		return
	}

	ranked, err := h.svc.RankProfiles(c.Request.Context(), sel, splitList(req.Profiles))
	if err != nil {
		respondAnalysisError(c, err)
		return
	}

	// Apply limit
	limit := req.Limit
	if limit <= 0 {
		limit = defaultRankLimit
	}
	if limit > len(ranked) {
		limit = len(ranked)
	}
	ranked = ranked[:limit]

	rankings := make([]models.Ranking, len(ranked))
	for i, r := range ranked {
		rankings[i] = models.Ranking{
			Rank:           i + 1,
			Profile:        r.Profile,
			Matched:        r.Matched,
			CapturedPrice:  r.CapturedPrice,
			CapturedFactor: r.CapturedFactor,
		}
	}
	c.JSON(http.StatusOK, models.RankResponse{Market: sel.Market, Rankings: rankings})
}
