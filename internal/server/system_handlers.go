package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/coffersys/coffer/internal/database"
	"github.com/coffersys/coffer/internal/modules/layout"
	"github.com/coffersys/coffer/internal/workers"
)

// SystemHandlers serves process and database monitoring endpoints
type SystemHandlers struct {
	log           zerolog.Logger
	runsDB        *database.DB
	layoutService *layout.Service
	pool          *workers.Pool
	startedAt     time.Time
}

// NewSystemHandlers creates system monitoring handlers
func NewSystemHandlers(log zerolog.Logger, runsDB *database.DB, layoutService *layout.Service, pool *workers.Pool) *SystemHandlers {
	return &SystemHandlers{
		log:           log.With().Str("handler", "system").Logger(),
		runsDB:        runsDB,
		layoutService: layoutService,
		pool:          pool,
		startedAt:     time.Now(),
	}
}

// SystemStatsResponse reports host utilization and optimizer activity
type SystemStatsResponse struct {
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float64 `json:"memory_percent"`
	UptimeSeconds float64 `json:"uptime_seconds"`
	StoredRuns    int64   `json:"stored_runs"`
	Workers       int     `json:"workers"`
	LastChecked   string  `json:"last_checked"`
}

// DatabaseStatsResponse reports runs database file statistics
type DatabaseStatsResponse struct {
	Name          string  `json:"name"`
	Path          string  `json:"path"`
	SizeMB        float64 `json:"size_mb"`
	WALSizeMB     float64 `json:"wal_size_mb"`
	PageCount     int64   `json:"page_count"`
	PageSize      int64   `json:"page_size"`
	FreelistCount int64   `json:"freelist_count"`
	LastChecked   string  `json:"last_checked"`
}

// HandleSystemStats handles GET /api/system/stats
func (h *SystemHandlers) HandleSystemStats(w http.ResponseWriter, r *http.Request) {
	cpuAvg, memPercent := h.getSystemStats()

	runCount, err := h.layoutService.CountRuns()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to count stored runs")
		http.Error(w, "Failed to collect system stats", http.StatusInternalServerError)
		return
	}

	response := SystemStatsResponse{
		CPUPercent:    cpuAvg,
		MemoryPercent: memPercent,
		UptimeSeconds: time.Since(h.startedAt).Seconds(),
		StoredRuns:    runCount,
		Workers:       h.pool.Size(),
		LastChecked:   time.Now().Format(time.RFC3339),
	}

	h.writeJSON(w, response)
}

// HandleDatabaseStats handles GET /api/system/database/stats
func (h *SystemHandlers) HandleDatabaseStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.runsDB.GetStats()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to collect database stats")
		http.Error(w, "Failed to collect database stats", http.StatusInternalServerError)
		return
	}

	response := DatabaseStatsResponse{
		Name:          h.runsDB.Name(),
		Path:          h.runsDB.Path(),
		SizeMB:        float64(stats.SizeBytes) / 1024 / 1024,
		WALSizeMB:     float64(stats.WALSizeBytes) / 1024 / 1024,
		PageCount:     stats.PageCount,
		PageSize:      stats.PageSize,
		FreelistCount: stats.FreelistCount,
		LastChecked:   time.Now().Format(time.RFC3339),
	}

	h.writeJSON(w, response)
}

// getSystemStats reads CPU and RAM usage percentages. The CPU sample uses a
// short window so the endpoint stays responsive.
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}

	return cpuAvg, memStat.UsedPercent
}

func (h *SystemHandlers) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
