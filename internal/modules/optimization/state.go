package optimization

import "math"

const (
	// amplitudeEpsilon keeps amplitudes strictly positive after mutation.
	amplitudeEpsilon = 1e-10

	// weightEpsilon guards zero denominators in interference mixing and
	// selection weighting.
	weightEpsilon = 1e-10
)

// QuantumState is one candidate solution in superposition form: a classical
// position vector plus the amplitude and phase that drive selection weighting
// and interference. Fitness is stored in the engine's internal orientation
// (higher is better).
type QuantumState struct {
	Position  []float64
	Amplitude float64
	Phase     float64
	Fitness   float64
}

// Collapse reads a classical solution out of the state. The returned slice is
// an independent copy, so repeated calls never mutate the state and always
// yield equal values.
func (s *QuantumState) Collapse() []float64 {
	position := make([]float64, len(s.Position))
	copy(position, s.Position)
	return position
}

// InterfereWith combines two states into a new one. Amplitudes compose like
// coherent waves, positions mix by relative amplitude, phase and fitness
// average. The operation is symmetric in its operands up to floating-point
// error, and the resulting position stays inside box bounds by convexity.
func (s *QuantumState) InterfereWith(other *QuantumState) *QuantumState {
	phaseDiff := s.Phase - other.Phase
	amplitude := math.Sqrt(s.Amplitude*s.Amplitude +
		other.Amplitude*other.Amplitude +
		2*s.Amplitude*other.Amplitude*math.Cos(phaseDiff))
	if amplitude < amplitudeEpsilon {
		amplitude = amplitudeEpsilon
	}

	weight := s.Amplitude / (s.Amplitude + other.Amplitude + weightEpsilon)
	position := make([]float64, len(s.Position))
	for i := range position {
		position[i] = weight*s.Position[i] + (1-weight)*other.Position[i]
	}

	return &QuantumState{
		Position:  position,
		Amplitude: amplitude,
		Phase:     (s.Phase + other.Phase) / 2,
		Fitness:   (s.Fitness + other.Fitness) / 2,
	}
}

// clone deep-copies the state so later mutation cannot corrupt the copy.
func (s *QuantumState) clone() *QuantumState {
	return &QuantumState{
		Position:  s.Collapse(),
		Amplitude: s.Amplitude,
		Phase:     s.Phase,
		Fitness:   s.Fitness,
	}
}
