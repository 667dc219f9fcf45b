// Package fluid implements the continuous-phase fluid, chemical species,
// and mixture/diffusive-mixture value types from §3. A Mixture is an
// immutable record once created; a DiffusiveMixture additionally carries
// per-specie cross-channel concentration profiles (§4.5).
package fluid

// Fluid describes a continuous phase: viscosity and density, immutable
// once created except via explicit replacement by the caller.
type Fluid struct {
	ID        int
	Viscosity float64 // Pa·s
	Density   float64 // kg/m³
}

// Specie describes a chemical species carried by the mixing simulators.
type Specie struct {
	ID               int
	Diffusivity      float64 // m²/s
	SaturationConcen float64 // mol/m³
}
