package layout

import (
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/coffersys/coffer/internal/modules/optimization"
)

// Penalty weights of the layout objective. The oversize term dominates so a
// physically impossible panel is never traded for prettier proportions.
const (
	oversizePenaltyWeight   = 1000.0
	aspectPenaltyWeight     = 100.0
	undersizePenaltyFlat    = 500.0
	panelCountPenaltyWeight = 5.0
	coveragePenaltyWeight   = 200.0
)

// Engine parameters tuned for the two-dimensional panel-grid search. The
// space is small, so a larger population with slower cooling and a higher
// tunneling rate beats the generic defaults.
const (
	layoutPopulationSize       = 75
	layoutTunnelingRate        = 0.15
	layoutInitialTemperature   = 2.0
	layoutCoolingRate          = 0.98
	layoutEntanglementStrength = 0.25
	layoutMaxIterations        = 150
)

// CeilingLayoutOptimizer drives the generic engine over the panel-grid
// problem: choose integer panel counts along each axis of the available span
// (the ceiling minus its perimeter gaps) minimizing a composite penalty.
//
// The optimizer is immutable; every call builds a fresh engine instance, so
// concurrent calls are safe.
type CeilingLayoutOptimizer struct {
	engineCfg optimization.Config
	log       zerolog.Logger
}

// NewCeilingLayoutOptimizer creates a layout optimizer. A non-zero seed makes
// every run reproducible.
func NewCeilingLayoutOptimizer(seed int64, log zerolog.Logger) *CeilingLayoutOptimizer {
	return &CeilingLayoutOptimizer{
		engineCfg: optimization.Config{
			PopulationSize:       layoutPopulationSize,
			TunnelingRate:        layoutTunnelingRate,
			InitialTemperature:   layoutInitialTemperature,
			CoolingRate:          layoutCoolingRate,
			EntanglementStrength: layoutEntanglementStrength,
			Seed:                 seed,
		},
		log: log.With().Str("component", "ceiling_layout_optimizer").Logger(),
	}
}

// OptimizeLayout solves the panel-grid problem for req.
func (c *CeilingLayoutOptimizer) OptimizeLayout(req LayoutRequest) (*LayoutOutcome, error) {
	return c.OptimizeLayoutWithHook(req, nil)
}

// OptimizeLayoutWithHook is OptimizeLayout with a per-generation observer,
// used by the progress stream endpoint. hook may be nil.
func (c *CeilingLayoutOptimizer) OptimizeLayoutWithHook(req LayoutRequest, hook optimization.IterationHook) (*LayoutOutcome, error) {
	req = req.withDefaults()

	if req.CeilingLengthMM <= 0 || req.CeilingWidthMM <= 0 {
		return nil, fmt.Errorf("%w: ceiling %gx%g mm", ErrInvalidDimensions, req.CeilingLengthMM, req.CeilingWidthMM)
	}

	availLength := req.CeilingLengthMM - 2*req.PerimeterGapMM
	availWidth := req.CeilingWidthMM - 2*req.PerimeterGapMM
	if availLength <= 0 || availWidth <= 0 {
		return nil, fmt.Errorf("%w: perimeter gap %g mm leaves no span in a %gx%g mm ceiling",
			ErrInvalidDimensions, req.PerimeterGapMM, req.CeilingLengthMM, req.CeilingWidthMM)
	}

	bounds := []optimization.Bound{
		{Min: 1, Max: math.Max(2, availLength/minPanelSizeMM)},
		{Min: 1, Max: math.Max(2, availWidth/minPanelSizeMM)},
	}

	cfg := c.engineCfg
	cfg.Hook = hook
	engine := optimization.NewQuantumInspiredOptimizer(cfg, c.log)

	start := time.Now()
	result, err := engine.Optimize(c.objective(availLength, availWidth, req), bounds, layoutMaxIterations, true)
	if err != nil {
		return nil, err
	}

	panelsX := panelCount(result.BestSolution[0])
	panelsY := panelCount(result.BestSolution[1])
	geo := computeGeometry(availLength, availWidth, req.PanelGapMM, panelsX, panelsY)

	outcome := &LayoutOutcome{
		Result: LayoutResult{
			PanelsX:                panelsX,
			PanelsY:                panelsY,
			TotalPanels:            geo.totalPanels,
			PanelWidthMM:           geo.panelWidth,
			PanelHeightMM:          geo.panelHeight,
			AspectRatio:            geo.aspectRatio,
			CoverageSQM:            geo.panelAreaSQM(),
			OptimizationIterations: result.Iterations,
			ExecutionTimeMS:        float64(result.ExecutionTime) / float64(time.Millisecond),
			Fitness:                result.BestFitness,
		},
		History: result.ConvergenceHistory,
	}

	c.log.Debug().
		Int("panels_x", panelsX).
		Int("panels_y", panelsY).
		Float64("fitness", result.BestFitness).
		Dur("elapsed", time.Since(start)).
		Msg("Layout optimized")

	return outcome, nil
}

// objective builds the composite penalty for one request. Candidate positions
// are truncated to integer panel counts before the geometry is evaluated.
func (c *CeilingLayoutOptimizer) objective(availLength, availWidth float64, req LayoutRequest) optimization.ObjectiveFunc {
	return func(position []float64) (float64, error) {
		nx := panelCount(position[0])
		ny := panelCount(position[1])
		geo := computeGeometry(availLength, availWidth, req.PanelGapMM, nx, ny)

		penalty := 0.0
		if geo.panelWidth > req.MaxPanelSizeMM {
			penalty += oversizePenaltyWeight * (geo.panelWidth - req.MaxPanelSizeMM)
		}
		if geo.panelHeight > req.MaxPanelSizeMM {
			penalty += oversizePenaltyWeight * (geo.panelHeight - req.MaxPanelSizeMM)
		}

		penalty += aspectPenaltyWeight * math.Abs(geo.aspectRatio-req.TargetAspectRatio)

		if geo.panelWidth < minPanelSizeMM || geo.panelHeight < minPanelSizeMM {
			penalty += undersizePenaltyFlat
		}

		penalty += panelCountPenaltyWeight * float64(geo.totalPanels)
		penalty += coveragePenaltyWeight * (1 - geo.coverageFraction(availLength, availWidth))

		return penalty, nil
	}
}

// panelCount truncates a continuous axis value to a buildable panel count,
// never below one.
func panelCount(value float64) int {
	n := int(math.Floor(value))
	if n < 1 {
		n = 1
	}
	return n
}

// geometry holds the exact panel dimensions implied by integer counts.
type geometry struct {
	panelWidth  float64
	panelHeight float64
	aspectRatio float64
	totalPanels int
}

// computeGeometry splits each available span into n panels with n-1 gaps
// between them. Large gap settings can drive a dimension to zero or below;
// the ratio is left to follow IEEE arithmetic there, and the undersize and
// coverage penalties take over.
func computeGeometry(availLength, availWidth, panelGap float64, nx, ny int) geometry {
	width := (availLength - float64(nx-1)*panelGap) / float64(nx)
	height := (availWidth - float64(ny-1)*panelGap) / float64(ny)

	ratio := math.Max(width, height) / math.Min(width, height)

	return geometry{
		panelWidth:  width,
		panelHeight: height,
		aspectRatio: ratio,
		totalPanels: nx * ny,
	}
}

// coverageFraction is the share of the available area covered by panels.
func (g geometry) coverageFraction(availLength, availWidth float64) float64 {
	return g.panelWidth * g.panelHeight * float64(g.totalPanels) / (availLength * availWidth)
}

// panelAreaSQM converts the total panel area to square metres.
func (g geometry) panelAreaSQM() float64 {
	return g.panelWidth * g.panelHeight * float64(g.totalPanels) / 1e6
}
