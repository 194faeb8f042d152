// Package layout applies the quantum-inspired engine to ceiling panel
// layout: partitioning a rectangular ceiling into an optimal grid of equal
// panels under gap, size and aspect-ratio constraints.
package layout

import "time"

// Default request values, all in millimetres except the aspect ratio.
const (
	DefaultPerimeterGapMM    = 200.0
	DefaultPanelGapMM        = 200.0
	DefaultTargetAspectRatio = 1.5
	DefaultMaxPanelSizeMM    = 2400.0

	// minPanelSizeMM is the smallest panel dimension considered buildable.
	// It caps the per-axis panel count and drives the undersize penalty.
	minPanelSizeMM = 200.0
)

// LayoutRequest describes one ceiling to partition. CeilingLengthMM and
// CeilingWidthMM are required; the remaining fields fall back to the defaults
// above when zero or negative.
type LayoutRequest struct {
	CeilingLengthMM   float64 `json:"ceiling_length_mm"`
	CeilingWidthMM    float64 `json:"ceiling_width_mm"`
	PerimeterGapMM    float64 `json:"perimeter_gap_mm"`
	PanelGapMM        float64 `json:"panel_gap_mm"`
	TargetAspectRatio float64 `json:"target_aspect_ratio"`
	MaxPanelSizeMM    float64 `json:"max_panel_size_mm"`
}

// withDefaults returns a copy with unset optional fields filled in.
func (r LayoutRequest) withDefaults() LayoutRequest {
	if r.PerimeterGapMM <= 0 {
		r.PerimeterGapMM = DefaultPerimeterGapMM
	}
	if r.PanelGapMM <= 0 {
		r.PanelGapMM = DefaultPanelGapMM
	}
	if r.TargetAspectRatio <= 0 {
		r.TargetAspectRatio = DefaultTargetAspectRatio
	}
	if r.MaxPanelSizeMM <= 0 {
		r.MaxPanelSizeMM = DefaultMaxPanelSizeMM
	}
	return r
}

// LayoutResult is the buildable layout decoded from the engine's best
// solution. Panel counts are exact integers and the geometry is recomputed
// from them, never from the continuous relaxation.
type LayoutResult struct {
	PanelsX                int     `json:"panels_x"`
	PanelsY                int     `json:"panels_y"`
	TotalPanels            int     `json:"total_panels"`
	PanelWidthMM           float64 `json:"panel_width_mm"`
	PanelHeightMM          float64 `json:"panel_height_mm"`
	AspectRatio            float64 `json:"aspect_ratio"`
	CoverageSQM            float64 `json:"coverage_sqm"`
	OptimizationIterations int     `json:"optimization_iterations"`
	ExecutionTimeMS        float64 `json:"execution_time_ms"`
	Fitness                float64 `json:"fitness"`
}

// LayoutOutcome bundles the decoded result with the engine's convergence
// trace, which the service persists and the stream endpoint replays.
type LayoutOutcome struct {
	Result  LayoutResult
	History []float64
}

// Run is one stored optimization run.
type Run struct {
	ID        string        `json:"id"`
	CreatedAt time.Time     `json:"created_at"`
	Request   LayoutRequest `json:"request"`
	Result    LayoutResult  `json:"result"`
	History   []float64     `json:"convergence_history,omitempty"`
}
