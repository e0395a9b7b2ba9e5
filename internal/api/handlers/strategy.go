package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"spain-energy/internal/api/models"
)

// StrategyHandler handles strategy-related requests
type StrategyHandler struct {
	defaults Defaults
}

// NewStrategyHandler creates a new strategy handler
func NewStrategyHandler(defaults Defaults) *StrategyHandler {
	return &StrategyHandler{defaults: defaults}
}

// ListStrategies handles GET /api/v1/strategies
func (h *StrategyHandler) ListStrategies(c *gin.Context) {
	var cycles []map[string]string
	for _, cy := range h.defaults.Cycles {
		cycles = append(cycles, map[string]string{"charge": cy.Charge.String(), "discharge": cy.Discharge.String()})
	}
	strategies := []models.StrategyInfo{
		{
			Name: "schedule",
			Description: "Fixed daily schedule. Charges from each cycle's charge time and discharges from its discharge time, " +
				"each window lasting the battery duration. The battery starts empty every day.",
			Parameters: []models.ParameterInfo{
				{
					Name:        "cycles",
					Type:        "list",
					Description: "One or two {charge, discharge} pairs in HH:MM; charge must precede discharge and cycles must not overlap",
					Default:     cycles,
				},
				{
					Name:        "power_mw",
					Type:        "float",
					Description: "Charge and discharge power in MW",
					Default:     h.defaults.Battery.PowerMW,
				},
				{
					Name:        "duration_hours",
					Type:        "float",
					Description: "Hours at full power; sets capacity and window length",
					Default:     h.defaults.Battery.DurationHours,
				},
				{
					Name:        "efficiency",
					Type:        "float",
					Description: "Round-trip efficiency in (0, 1], applied on discharge",
					Default:     h.defaults.Battery.Efficiency,
				},
			},
		},
	}
	c.JSON(http.StatusOK, gin.H{"strategies": strategies})
}
