package handlers

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"spain-energy/internal/api/models"
	"spain-energy/internal/config"
)

// BatteryHandler serves the battery presets of a directory of YAML files
type BatteryHandler struct {
	batteryDir string
	logger     *slog.Logger
}

// NewBatteryHandler creates a new battery handler. An empty dir means
// ./examples/batteries under the working directory.
func NewBatteryHandler(dir string, logger *slog.Logger) *BatteryHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if dir == "" {
		// Try to resolve relative to working directory first
		if wd, err := os.Getwd(); err == nil {
			dir = filepath.Join(wd, "examples", "batteries")
		} else {
			dir = "./examples/batteries"
		}
	}
	// Convert to absolute path for reliability
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	logger.Info("using battery directory", "dir", dir)
	return &BatteryHandler{batteryDir: dir, logger: logger}
}

// ListBatteries handles GET /api/v1/batteries
func (h *BatteryHandler) ListBatteries(c *gin.Context) {
	batteries := []models.BatteryInfo{}

	entries, err := os.ReadDir(h.batteryDir)
	if err != nil {
		h.logger.Warn("failed to read battery directory", "dir", h.batteryDir, "error", err)
		c.JSON(http.StatusOK, gin.H{"batteries": batteries})
		return
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		id := strings.TrimSuffix(entry.Name(), ".yaml")
		path := filepath.Join(h.batteryDir, entry.Name())
		b, err := config.LoadBatteryFile(path)
		if err != nil {
			h.logger.Warn("skipping invalid battery file", "file", path, "error", err)
			continue
		}
		name := b.Name
		if name == "" {
			name = id
		}
		batteries = append(batteries, models.BatteryInfo{
			ID:    id,
			Name:  name,
			File:  path,
			Specs: specsOf(b),
		})
	}
	c.JSON(http.StatusOK, gin.H{"batteries": batteries})
}

// Preset loads a battery preset by id (the file name without .yaml).
func (h *BatteryHandler) Preset(id string) (config.BatteryConfig, error) {
	if id == "" || strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
		return config.BatteryConfig{}, requestErr("invalid battery_id %q", id)
	}
	b, err := config.LoadBatteryFile(filepath.Join(h.batteryDir, id+".yaml"))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return config.BatteryConfig{}, requestErr("unknown battery_id %q", id)
		}
		return config.BatteryConfig{}, fmt.Errorf("load battery %s: %w", id, err)
	}
	return b, nil
}

func specsOf(b config.BatteryConfig) models.BatterySpecs {
	return models.BatterySpecs{
		PowerMW:       b.PowerMW,
		DurationHours: b.DurationHours,
		CapacityMWh:   b.ToSpec().CapacityMWh(),
		Efficiency:    b.Efficiency,
	}
}
