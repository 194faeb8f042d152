// Package optimization provides quantum-inspired stochastic optimization
// functionality: a population-based metaheuristic whose operators borrow
// quantum vocabulary (superposition sampling, amplitude-weighted selection,
// entanglement crossover, tunneling, interference) around a simulated
// annealing temperature schedule.
package optimization

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"
)

// ObjectiveFunc evaluates one candidate position. Implementations must be
// pure: the same position always yields the same value. A returned error is
// treated as a genuine evaluation failure and reaches the caller unmodified,
// aborting the run.
type ObjectiveFunc func(position []float64) (float64, error)

// Bound is the closed admissible interval for one search dimension.
type Bound struct {
	Min float64
	Max float64
}

// IterationHook observes generation progress. It is called once per
// generation with the 1-based iteration number, the current annealing
// temperature and the best fitness so far in the caller's orientation.
// Hooks must not block for long and must not call back into the optimizer.
type IterationHook func(iteration int, temperature, bestFitness float64)

const (
	tournamentSize          = 3
	phaseJitterSigma        = 0.1
	amplitudeNoiseSigma     = 0.05
	amplitudeFloor          = 0.1
	amplitudeDecay          = 0.9
	tunnelingPhaseShift     = math.Pi / 4
	tunnelingSigmaFactor    = 0.5
	interferenceProbability = 0.3
	convergenceStdDev       = 0.001
)

// Config holds the engine parameters. Zero or negative values fall back to
// the defaults, so a zero Config is usable as-is.
type Config struct {
	PopulationSize       int
	TunnelingRate        float64
	InitialTemperature   float64
	CoolingRate          float64
	EntanglementStrength float64

	// Seed fixes the pseudorandom source. With a non-zero seed every
	// Optimize call starts from the same generator state, making runs
	// reproducible. Zero seeds from the clock.
	Seed int64

	// Hook, when non-nil, is invoked once per generation.
	Hook IterationHook
}

func defaultConfig() Config {
	return Config{
		PopulationSize:       50,
		TunnelingRate:        0.1,
		InitialTemperature:   1.0,
		CoolingRate:          0.95,
		EntanglementStrength: 0.3,
	}
}

// QuantumInspiredOptimizer is the generic engine. It is immutable after
// construction: every Optimize call keeps its population, temperature,
// best-ever record and random source in call-local state, so one instance
// may be reused sequentially or, with Seed zero, concurrently.
type QuantumInspiredOptimizer struct {
	cfg Config
	log zerolog.Logger
}

// NewQuantumInspiredOptimizer creates an engine from cfg, filling unset
// fields with defaults.
func NewQuantumInspiredOptimizer(cfg Config, log zerolog.Logger) *QuantumInspiredOptimizer {
	def := defaultConfig()
	if cfg.PopulationSize <= 0 {
		cfg.PopulationSize = def.PopulationSize
	}
	if cfg.TunnelingRate <= 0 {
		cfg.TunnelingRate = def.TunnelingRate
	}
	if cfg.InitialTemperature <= 0 {
		cfg.InitialTemperature = def.InitialTemperature
	}
	if cfg.CoolingRate <= 0 {
		cfg.CoolingRate = def.CoolingRate
	}
	if cfg.EntanglementStrength <= 0 {
		cfg.EntanglementStrength = def.EntanglementStrength
	}

	return &QuantumInspiredOptimizer{
		cfg: cfg,
		log: log.With().Str("component", "quantum_optimizer").Logger(),
	}
}

// run carries all mutable state of one Optimize call.
type run struct {
	cfg         Config
	rng         *rand.Rand
	bounds      []Bound
	minimize    bool
	states      []*QuantumState
	bestEver    *QuantumState
	temperature float64
	history     []float64
}

// Optimize searches the hyper-rectangle described by bounds for the position
// minimizing (or maximizing) objective, running up to maxIterations
// generations or until the population fitness collapses below the
// convergence threshold.
//
// Internally the engine always maximizes; with minimize=true the objective is
// negated on evaluation and BestFitness is reported back in the original
// sign. Errors from the objective propagate unmodified and abort the run.
func (o *QuantumInspiredOptimizer) Optimize(
	objective ObjectiveFunc,
	bounds []Bound,
	maxIterations int,
	minimize bool,
) (*OptimizationResult, error) {
	if objective == nil {
		return nil, fmt.Errorf("optimization: nil objective function")
	}
	if err := validateBounds(bounds); err != nil {
		return nil, err
	}
	if maxIterations < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidIterations, maxIterations)
	}

	seed := o.cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	start := time.Now()
	r := &run{
		cfg:         o.cfg,
		rng:         rand.New(rand.NewSource(seed)),
		bounds:      bounds,
		minimize:    minimize,
		temperature: o.cfg.InitialTemperature,
	}
	r.initPopulation()

	o.log.Debug().
		Int("dimensions", len(bounds)).
		Int("population", o.cfg.PopulationSize).
		Int("max_iterations", maxIterations).
		Bool("minimize", minimize).
		Msg("Starting optimization run")

	iterations := 0
	for iter := 0; iter < maxIterations; iter++ {
		if err := r.evaluate(objective); err != nil {
			return nil, err
		}
		r.updateBestEver()

		best := r.callerFitness(r.bestEver.Fitness)
		r.history = append(r.history, best)
		iterations = iter + 1

		if o.cfg.Hook != nil {
			o.cfg.Hook(iterations, r.temperature, best)
		}

		r.selectNext()
		r.entangle()
		r.tunnel()
		r.interfere()
		r.temperature *= o.cfg.CoolingRate

		if r.converged() {
			o.log.Debug().
				Int("iteration", iterations).
				Msg("Population converged early")
			break
		}
	}

	finalPopulation := make([][]float64, len(r.states))
	for i, s := range r.states {
		finalPopulation[i] = s.Collapse()
	}

	result := &OptimizationResult{
		BestSolution:       r.bestEver.Collapse(),
		BestFitness:        r.callerFitness(r.bestEver.Fitness),
		Iterations:         iterations,
		ConvergenceHistory: r.history,
		FinalPopulation:    finalPopulation,
		ExecutionTime:      time.Since(start),
	}

	o.log.Debug().
		Int("iterations", result.Iterations).
		Float64("best_fitness", result.BestFitness).
		Dur("elapsed", result.ExecutionTime).
		Msg("Optimization run complete")

	return result, nil
}

func validateBounds(bounds []Bound) error {
	if len(bounds) == 0 {
		return fmt.Errorf("%w: no dimensions given", ErrInvalidBounds)
	}
	for i, b := range bounds {
		if b.Min > b.Max {
			return fmt.Errorf("%w: dimension %d has min %g > max %g", ErrInvalidBounds, i, b.Min, b.Max)
		}
	}
	return nil
}

// callerFitness converts an internal (always-maximized) fitness back into the
// caller's orientation.
func (r *run) callerFitness(fitness float64) float64 {
	if r.minimize {
		return -fitness
	}
	return fitness
}

// initPopulation samples positions uniformly inside the bounds. Amplitudes
// start at 1/sqrt(N), a normalized superposition over the population, and
// phases are spread uniformly over the full circle.
func (r *run) initPopulation() {
	amplitude := 1 / math.Sqrt(float64(r.cfg.PopulationSize))
	r.states = make([]*QuantumState, r.cfg.PopulationSize)
	for i := range r.states {
		position := make([]float64, len(r.bounds))
		for d, b := range r.bounds {
			position[d] = b.Min + r.rng.Float64()*(b.Max-b.Min)
		}
		r.states[i] = &QuantumState{
			Position:  position,
			Amplitude: amplitude,
			Phase:     r.rng.Float64() * 2 * math.Pi,
		}
	}
}

// evaluate collapses every state and scores it with the objective, flipping
// the sign when minimizing. A generation with no finite fitness at all is a
// degenerate run and fails explicitly instead of letting NaNs drift through
// selection.
func (r *run) evaluate(objective ObjectiveFunc) error {
	finite := 0
	for _, state := range r.states {
		value, err := objective(state.Collapse())
		if err != nil {
			return err
		}
		if r.minimize {
			value = -value
		}
		state.Fitness = value
		if !math.IsNaN(value) && !math.IsInf(value, 0) {
			finite++
		}
	}
	if finite == 0 {
		return ErrDegenerateFitness
	}
	return nil
}

// updateBestEver advances the elitist record. The record is deep-copied so
// later operator mutations cannot corrupt it. NaN fitness never wins.
func (r *run) updateBestEver() {
	for _, state := range r.states {
		if math.IsNaN(state.Fitness) {
			continue
		}
		if r.bestEver == nil || state.Fitness > r.bestEver.Fitness {
			r.bestEver = state.clone()
		}
	}
}

// selectNext builds the next generation from size-3 tournaments. Each winner
// is cloned with a small Gaussian phase perturbation so selection alone never
// produces aliased individuals.
func (r *run) selectNext() {
	next := make([]*QuantumState, 0, len(r.states))
	for len(next) < len(r.states) {
		winner := r.tournament().clone()
		winner.Phase += r.rng.NormFloat64() * phaseJitterSigma
		next = append(next, winner)
	}
	r.states = next
}

// tournament draws three contenders and picks one by an
// amplitude^2 * (fitness + eps) weighted draw. When the total weight is
// degenerate (zero, negative or non-finite) it falls back to the fittest
// contender.
func (r *run) tournament() *QuantumState {
	contenders := make([]*QuantumState, tournamentSize)
	for i := range contenders {
		contenders[i] = r.states[r.rng.Intn(len(r.states))]
	}

	weights := make([]float64, tournamentSize)
	total := 0.0
	for i, c := range contenders {
		w := c.Amplitude * c.Amplitude * (c.Fitness + weightEpsilon)
		if w < 0 || math.IsNaN(w) {
			w = 0
		}
		weights[i] = w
		total += w
	}

	if total <= 0 || math.IsNaN(total) || math.IsInf(total, 0) {
		return fittest(contenders)
	}

	draw := r.rng.Float64() * total
	for i, w := range weights {
		draw -= w
		if draw <= 0 {
			return contenders[i]
		}
	}
	return contenders[len(contenders)-1]
}

// fittest returns the contender with the highest fitness, skipping NaN values
// whenever a comparable alternative exists.
func fittest(contenders []*QuantumState) *QuantumState {
	best := contenders[0]
	for _, c := range contenders[1:] {
		if math.IsNaN(best.Fitness) && !math.IsNaN(c.Fitness) {
			best = c
			continue
		}
		if c.Fitness > best.Fitness {
			best = c
		}
	}
	return best
}

// entangle shuffles the generation and crosses consecutive pairs. Each pair
// yields two convex position mixes with a shared random coefficient. With
// probability EntanglementStrength the children's phases are correlated: both
// take the parents' average phase, the second offset by pi. Amplitudes are
// averaged with Gaussian noise and floored. An unpaired leftover passes
// through unchanged.
func (r *run) entangle() {
	n := len(r.states)
	shuffled := make([]*QuantumState, n)
	copy(shuffled, r.states)
	r.rng.Shuffle(n, func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	next := make([]*QuantumState, 0, n)
	for i := 0; i+1 < n; i += 2 {
		a, b := shuffled[i], shuffled[i+1]
		alpha := r.rng.Float64()

		childA := crossoverChild(a, b, alpha)
		childB := crossoverChild(b, a, alpha)

		if r.rng.Float64() < r.cfg.EntanglementStrength {
			shared := (a.Phase + b.Phase) / 2
			childA.Phase = shared
			childB.Phase = shared + math.Pi
		}

		childA.Amplitude = r.noisyAverageAmplitude(a, b)
		childB.Amplitude = r.noisyAverageAmplitude(a, b)

		next = append(next, childA, childB)
	}
	if n%2 == 1 {
		next = append(next, shuffled[n-1])
	}
	r.states = next
}

// crossoverChild mixes alpha of the first parent with (1-alpha) of the
// second. Phase is inherited from the dominant parent; fitness carries the
// same convex mix as the position so the convergence check stays meaningful
// between evaluations.
func crossoverChild(dominant, other *QuantumState, alpha float64) *QuantumState {
	position := make([]float64, len(dominant.Position))
	for i := range position {
		position[i] = alpha*dominant.Position[i] + (1-alpha)*other.Position[i]
	}
	return &QuantumState{
		Position:  position,
		Amplitude: (dominant.Amplitude + other.Amplitude) / 2,
		Phase:     dominant.Phase,
		Fitness:   alpha*dominant.Fitness + (1-alpha)*other.Fitness,
	}
}

func (r *run) noisyAverageAmplitude(a, b *QuantumState) float64 {
	amplitude := (a.Amplitude+b.Amplitude)/2 + r.rng.NormFloat64()*amplitudeNoiseSigma
	if amplitude < amplitudeFloor {
		amplitude = amplitudeFloor
	}
	return amplitude
}

// tunnel displaces individuals through fitness barriers. The jump probability
// and magnitude both scale with the annealing temperature, so exploration
// dies down as the run cools. Jumped positions are clamped back into bounds;
// the phase shift and amplitude decay mark the state as freshly tunneled.
func (r *run) tunnel() {
	for _, state := range r.states {
		if r.rng.Float64() >= r.cfg.TunnelingRate*r.temperature {
			continue
		}
		sigma := r.temperature * tunnelingSigmaFactor
		for d := range state.Position {
			jumped := state.Position[d] + r.rng.NormFloat64()*sigma
			state.Position[d] = clampToBound(jumped, r.bounds[d])
		}
		state.Phase += tunnelingPhaseShift
		state.Amplitude *= amplitudeDecay
		if state.Amplitude < amplitudeEpsilon {
			state.Amplitude = amplitudeEpsilon
		}
	}
}

func clampToBound(value float64, b Bound) float64 {
	return math.Max(b.Min, math.Min(b.Max, value))
}

// interfere merges each individual with its next neighbor (wrapping) with
// fixed probability. Partners are read from the pre-step population so the
// outcome does not depend on iteration order.
func (r *run) interfere() {
	current := r.states
	n := len(current)
	next := make([]*QuantumState, n)
	for i := range current {
		if r.rng.Float64() < interferenceProbability {
			next[i] = current[i].InterfereWith(current[(i+1)%n])
		} else {
			next[i] = current[i]
		}
	}
	r.states = next
}

// converged reports whether the population fitness spread has collapsed.
func (r *run) converged() bool {
	fitness := make([]float64, len(r.states))
	for i, s := range r.states {
		fitness[i] = s.Fitness
	}
	return stat.StdDev(fitness, nil) < convergenceStdDev
}
