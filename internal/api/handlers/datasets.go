package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"spain-energy/internal/api/models"
	"spain-energy/internal/pipeline"
)

// DatasetHandler lists the stored price series and PV profiles
type DatasetHandler struct {
	svc    *pipeline.Service
	logger *slog.Logger
}

func NewDatasetHandler(svc *pipeline.Service, logger *slog.Logger) *DatasetHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &DatasetHandler{svc: svc, logger: logger}
}

// ListMarkets handles GET /api/v1/markets
func (h *DatasetHandler) ListMarkets(c *gin.Context) {
	ids, err := h.svc.Markets(c.Request.Context())
	if err != nil {
		respondAnalysisError(c, err)
		return
	}
	markets := make([]models.MarketInfo, 0, len(ids))
	for _, id := range ids {
		markets = append(markets, models.MarketInfo{ID: id, Forecast: h.svc.IsForecast(id)})
	}
	c.JSON(http.StatusOK, gin.H{"markets": markets})
}

// ListProfiles handles GET /api/v1/profiles
func (h *DatasetHandler) ListProfiles(c *gin.Context) {
	profiles, err := h.svc.Profiles(c.Request.Context())
	if err != nil {
		respondAnalysisError(c, err)
		return
	}
	if profiles == nil {
		profiles = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"profiles": profiles})
}

// TypicalDay handles GET /api/v1/profiles/:name/typical-day
func (h *DatasetHandler) TypicalDay(c *gin.Context) {
	name := c.Param("name")
	hours, err := h.svc.TypicalDay(c.Request.Context(), name)
	if err != nil {
		respondAnalysisError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": name, "hours": hours})
}
