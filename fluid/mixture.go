package fluid

// Mixture is an immutable record: an id plus a concentration for every
// specie present (§3 "Mixture"). It is produced by the mixing engines
// whenever streams merge at a node and is archived, never mutated.
type Mixture struct {
	ID             int
	Concentrations map[int]float64 // specie id -> concentration
}

// NewMixture returns a Mixture snapshot; the concentration map is copied
// so later callers cannot mutate an archived mixture.
func NewMixture(id int, concentrations map[int]float64) *Mixture {
	cp := make(map[int]float64, len(concentrations))
	for k, v := range concentrations {
		cp[k] = v
	}
	return &Mixture{ID: id, Concentrations: cp}
}

// Concentration returns the concentration of specieID, or 0 if absent.
func (m *Mixture) Concentration(specieID int) float64 {
	return m.Concentrations[specieID]
}

// SameComposition reports whether two mixtures carry the same
// concentration vector, used to dedup archived mixtures (§3, §5
// "Result Log" dedup-by-concentration).
func (m *Mixture) SameComposition(other *Mixture, tol float64) bool {
	if len(m.Concentrations) != len(other.Concentrations) {
		return false
	}
	for specie, c := range m.Concentrations {
		oc, ok := other.Concentrations[specie]
		if !ok {
			return false
		}
		d := c - oc
		if d < 0 {
			d = -d
		}
		if d > tol {
			return false
		}
	}
	return true
}

// Profile is a truncated Fourier-series concentration profile across a
// channel cross-section, ξ∈[0,1] (§4.5). It is shaped as a single-
// argument callable, the same role gosl/fun.Func plays for load
// functions elsewhere in the teacher lineage, but kept as a plain
// closure here since the upstream ξ-domain doesn't need fun.Func's
// extra (t,x) derivative hooks.
type Profile struct {
	A0    float64   // zeroth Fourier term (the average)
	An    []float64 // cosine coefficients a_1..a_N
	Eval  func(xi float64) float64
}

// DiffusiveMixture additionally carries, per specie, a cross-channel
// Profile produced by the topology analyzer (§4.5).
type DiffusiveMixture struct {
	ID       int
	Profiles map[int]Profile // specie id -> Profile
}
