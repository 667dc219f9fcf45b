// Package resistance implements the three interchangeable hydraulic
// resistance models from §4.1: a 1-D shape-factor model, a planar
// Poiseuille model, and a planar-Poiseuille model with a film-thickness
// correction for droplet-occupied channels. Dispatch is name-keyed, the
// same factory pattern mconduct uses for conductivity models.
package resistance

import (
	"math"

	"github.com/cda-tum/mmft-simulator-sub000/network"
	"github.com/cda-tum/mmft-simulator-sub000/simerr"
	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/fun"
	"github.com/cpmech/gosl/io"
)

// Model is the shared contract every resistance model satisfies (§4.1).
// A model that does not support droplet resistance must fail loudly
// (DropletResistance returns a Configuration error) rather than silently
// returning zero.
type Model interface {
	Name() string
	Viscosity() float64
	ChannelResistance(c *network.Channel) float64
	FactorA(c *network.Channel) float64
	SupportsDroplets() bool
	DropletResistance(c *network.Channel, volumeInsideChannel float64) (float64, error)
	RelativeDropletVelocity(c *network.Channel) float64
}

// New returns a resistance model by name, mirroring mconduct.New's
// allocator-table dispatch.
func New(name string, continuousPhaseViscosity float64) (Model, error) {
	allocator, ok := allocators[name]
	if !ok {
		return nil, chk.Err("resistance model %q is not available", name)
	}
	return allocator(continuousPhaseViscosity), nil
}

var allocators = map[string]func(mu float64) Model{
	"1d":              func(mu float64) Model { return &Model1D{mu: mu} },
	"poiseuille":      func(mu float64) Model { return &ModelPoiseuille{mu: mu} },
	"poiseuille-film": func(mu float64) Model { return NewModelPoiseuilleFilm(mu, 0.0, 1.28) },
}

// NewFromPrms builds a resistance model from the scenario file's
// per-simulator parameter bag (§6 "a simulation file: ... per-simulator
// parameters"), the same fun.Prms/fun.P named-parameter idiom the
// teacher's own constitutive models are configured from (e.g.
// mdl/solid's Init(ndim, pstress, prms fun.Prms)). Recognized keys:
// "mu" (continuous-phase viscosity, required), "surfaceTension" and
// "slipFactor" (poiseuille-film only, both optional).
func NewFromPrms(name string, prms fun.Prms) (Model, error) {
	var mu, surfaceTension, slipFactor float64
	haveMu := false
	for _, p := range prms {
		switch p.N {
		case "mu":
			mu = p.V
			haveMu = true
		case "surfaceTension":
			surfaceTension = p.V
		case "slipFactor":
			slipFactor = p.V
		}
	}
	if !haveMu {
		return nil, simerr.Configurationf("resistance", "parameter bag for model %q is missing \"mu\"", name)
	}
	if name == "poiseuille-film" {
		return NewModelPoiseuilleFilm(mu, surfaceTension, slipFactor), nil
	}
	return New(name, mu)
}

// factorA1D computes a(w,h) = 12 / (1 - 192·h·tanh(πw/2h) / (π⁵·w)), the
// rectangular-duct shape factor series truncated to its first term
// (§4.1 "1-D model").
func factorA1D(w, h float64) float64 {
	return 12.0 / (1.0 - 192.0*h*math.Tanh(math.Pi*w/(2*h))/(math.Pow(math.Pi, 5)*w))
}

// --- 1-D model --------------------------------------------------------

// Model1D implements the rectangular-duct shape-factor resistance model.
type Model1D struct {
	mu float64
}

func (m *Model1D) Name() string        { return "1d" }
func (m *Model1D) Viscosity() float64  { return m.mu }
func (m *Model1D) SupportsDroplets() bool { return true }

func (m *Model1D) FactorA(c *network.Channel) float64 {
	return factorA1D(c.Width, c.Height)
}

func (m *Model1D) ChannelResistance(c *network.Channel) float64 {
	a := m.FactorA(c)
	return c.Length * a * m.mu / (c.Width * c.Height * c.Height * c.Height)
}

// DropletResistance implements ΔR = 3·(V/(w·h))·a·μ / (w·h³) (§4.1).
func (m *Model1D) DropletResistance(c *network.Channel, volumeInsideChannel float64) (float64, error) {
	a := m.FactorA(c)
	dropletLength := volumeInsideChannel / (c.Width * c.Height)
	return 3.0 * dropletLength * a * m.mu / (c.Width * c.Height * c.Height * c.Height), nil
}

func (m *Model1D) RelativeDropletVelocity(c *network.Channel) float64 { return 1.0 }

// --- Planar Poiseuille model -------------------------------------------

// ModelPoiseuille implements the fixed shape-factor-12 planar Poiseuille
// model; it does not support droplet resistance.
type ModelPoiseuille struct {
	mu float64
}

func (m *ModelPoiseuille) Name() string           { return "poiseuille" }
func (m *ModelPoiseuille) Viscosity() float64     { return m.mu }
func (m *ModelPoiseuille) SupportsDroplets() bool { return false }
func (m *ModelPoiseuille) FactorA(c *network.Channel) float64 { return 12.0 }

func (m *ModelPoiseuille) ChannelResistance(c *network.Channel) float64 {
	return c.Length * 12.0 * m.mu / (c.Height * c.Width * c.Width * c.Width)
}

func (m *ModelPoiseuille) DropletResistance(c *network.Channel, volumeInsideChannel float64) (float64, error) {
	return 0, simerr.Configurationf(m.Name(), "planar Poiseuille model does not support droplet resistance")
}

func (m *ModelPoiseuille) RelativeDropletVelocity(c *network.Channel) float64 { return 1.0 }

// --- Planar Poiseuille with film-thickness correction ------------------

// ModelPoiseuilleFilm adds an additive droplet-resistance term derived
// from a uniform film thickness H∞, computed from the capillary number
// Ca = μ·v/σ via the Bretherton correlation
// H∞/(h/2) = 0.643·(3·Ca^(2/3))/(1+3.35·Ca^(2/3)). The velocity term v is
// the fraction of the channel volume the droplet occupies (see
// DropletResistance); the droplet/continuous viscosity ratio does not
// enter H∞, and the slip factor only sets RelativeDropletVelocity.
// SurfaceTension and the slip factor are model parameters; see DESIGN.md for the Open
// Question this resolves (the source declares but does not implement
// this model's film-thickness formula).
type ModelPoiseuilleFilm struct {
	mu             float64
	surfaceTension float64
	slipFactor     float64 // ≈1.28 default per §4.3 "Slip factor"; 1 means no slip
}

// NewModelPoiseuilleFilm constructs the film-corrected Poiseuille model.
// surfaceTension must be positive for droplet resistance to be computed;
// slipFactor defaults to 1 (no slip) when zero is passed.
func NewModelPoiseuilleFilm(mu, surfaceTension, slipFactor float64) *ModelPoiseuilleFilm {
	if slipFactor == 0 {
		slipFactor = 1.0
	}
	return &ModelPoiseuilleFilm{mu: mu, surfaceTension: surfaceTension, slipFactor: slipFactor}
}

func (m *ModelPoiseuilleFilm) Name() string           { return "poiseuille-film" }
func (m *ModelPoiseuilleFilm) Viscosity() float64     { return m.mu }
func (m *ModelPoiseuilleFilm) SupportsDroplets() bool { return true }
func (m *ModelPoiseuilleFilm) FactorA(c *network.Channel) float64 { return 12.0 }

func (m *ModelPoiseuilleFilm) ChannelResistance(c *network.Channel) float64 {
	return c.Length * 12.0 * m.mu / (c.Height * c.Width * c.Width * c.Width)
}

// filmThickness computes H∞ for the given channel (scaled by half its
// height) and velocity.
func (m *ModelPoiseuilleFilm) filmThickness(c *network.Channel, velocity float64) float64 {
	if m.surfaceTension <= 0 {
		return 0
	}
	ca := m.mu * math.Abs(velocity) / m.surfaceTension
	ca23 := math.Pow(ca, 2.0/3.0)
	ratio := 0.643 * (3.0 * ca23) / (1.0 + 3.35*ca23)
	halfHeight := c.Height / 2.0
	return ratio * halfHeight
}

// DropletResistance derives the additive resistance from the film
// thickness between the droplet and the channel wall: the droplet's
// effective cross-section shrinks by the film on each side, raising the
// local resistance over the length the droplet occupies.
func (m *ModelPoiseuilleFilm) DropletResistance(c *network.Channel, volumeInsideChannel float64) (float64, error) {
	dropletLength := volumeInsideChannel / (c.Width * c.Height)
	velocity := volumeInsideChannel / (c.Width * c.Height * c.Length) // nominal mean velocity proxy
	hInf := m.filmThickness(c, velocity)
	effectiveHeight := c.Height - 2*hInf
	if effectiveHeight <= 0 {
		return 0, simerr.Numericalf(io.Sf("channel #%d", c.ID), "film thickness consumes entire channel height")
	}
	rWithFilm := dropletLength * 12.0 * m.mu / (effectiveHeight * c.Width * c.Width * c.Width)
	rBase := dropletLength * 12.0 * m.mu / (c.Height * c.Width * c.Width * c.Width)
	return rWithFilm - rBase, nil
}

// RelativeDropletVelocity returns the droplet/continuous-phase velocity
// ratio (§4.1 "droplet resistance contract"), driven by the slip factor.
func (m *ModelPoiseuilleFilm) RelativeDropletVelocity(c *network.Channel) float64 {
	return m.slipFactor
}

// MustBePositive aborts the solve (§4.1 "Failure") if r is not a
// strictly positive resistance.
func MustBePositive(r float64, subject string) {
	if r <= 0 {
		chk.Panic("%s: computed a non-positive resistance (%g); this is a programming error", subject, r)
	}
}
