package fluid

// MixtureArchive stores every mixture ever created during a simulation,
// deduplicating by concentration vector so two streams that happen to
// merge to the same composition share one archived record (§3 "Mixture"
// "dedup by concentration vector optional"; §6 "Result Log").
type MixtureArchive struct {
	mixtures []*Mixture
	byID     map[int]*Mixture
	tol      float64
	nextID   int
}

// NewMixtureArchive returns an archive with the default dedup tolerance.
func NewMixtureArchive() *MixtureArchive {
	return &MixtureArchive{byID: make(map[int]*Mixture), tol: 1e-9}
}

// Add records concentrations as a new mixture, reusing an existing
// archived mixture with the same composition (within tolerance) instead
// of allocating a duplicate id.
func (a *MixtureArchive) Add(concentrations map[int]float64) *Mixture {
	candidate := NewMixture(-1, concentrations)
	for _, m := range a.mixtures {
		if m.SameComposition(candidate, a.tol) {
			return m
		}
	}
	m := NewMixture(a.nextID, concentrations)
	a.nextID++
	a.mixtures = append(a.mixtures, m)
	a.byID[m.ID] = m
	return m
}

// Get returns the mixture registered under id, or nil.
func (a *MixtureArchive) Get(id int) *Mixture {
	return a.byID[id]
}

// Put registers an externally-constructed mixture (e.g. an injection's
// starting composition) under its own id, bypassing dedup.
func (a *MixtureArchive) Put(m *Mixture) {
	a.byID[m.ID] = m
	a.mixtures = append(a.mixtures, m)
	if m.ID >= a.nextID {
		a.nextID = m.ID + 1
	}
}

// All returns every archived mixture in creation order.
func (a *MixtureArchive) All() []*Mixture {
	return append([]*Mixture(nil), a.mixtures...)
}
