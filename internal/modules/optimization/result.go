package optimization

import "time"

// OptimizationResult is the outcome of a single Optimize call.
//
// BestSolution and BestFitness always derive from the elitist best-ever
// record, never from the final (possibly degraded) population. BestFitness
// and ConvergenceHistory are reported in the caller's orientation: when
// minimizing, lower is better and the history is non-increasing.
//
// The result is created once per call and never mutated afterwards; the
// caller owns it exclusively.
type OptimizationResult struct {
	BestSolution       []float64
	BestFitness        float64
	Iterations         int
	ConvergenceHistory []float64
	FinalPopulation    [][]float64
	ExecutionTime      time.Duration
}
