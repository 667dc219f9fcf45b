package topology

import (
	"math"

	"github.com/cda-tum/mmft-simulator-sub000/fluid"
	"github.com/cpmech/gosl/utl"
)

// MaxModes caps the number of retained Fourier modes before exponential
// damping makes higher ones numerically moot (§4.5 "Profile composition").
const MaxModes = 7

// ConstantSegment is one input to the analytical constant solution: a
// sub-arc of the downstream channel's width fed, at constantValue, by a
// straight upstream channel (§4.5 "analytical constant solution").
type ConstantSegment struct {
	Start, End    float64
	ConstantValue float64
}

// ComposeConstant implements the analytical constant solution: a
// piecewise-constant inflow advected/diffused a dimensionless distance
// x/L down a channel of Péclet number pe, truncated to modes terms.
func ComposeConstant(segments []ConstantSegment, pe, x float64, modes int) fluid.Profile {
	if modes <= 0 || modes > MaxModes {
		modes = MaxModes
	}
	var a0 float64
	for _, seg := range segments {
		a0 += (seg.End - seg.Start) * seg.ConstantValue
	}
	an := make([]float64, modes)
	for n := 1; n <= modes; n++ {
		var sum float64
		for _, seg := range segments {
			sum += seg.ConstantValue * (math.Sin(float64(n)*math.Pi*seg.End) - math.Sin(float64(n)*math.Pi*seg.Start))
		}
		damping := math.Exp(-float64(n*n) * math.Pi * math.Pi * x / pe)
		an[n-1] = (2.0 / (float64(n) * math.Pi)) * sum * damping
	}
	return newProfile(a0, an)
}

// FunctionSegment is one input to the analytical function solution: a
// sub-arc of the downstream channel fed by an upstream profile, remapped
// via (stretchFactor, upstreamStart) into the upstream channel's own
// ξ-domain (§4.5 "analytical function solution").
type FunctionSegment struct {
	Start, End      float64
	StretchFactor   float64
	UpstreamStart   float64
	UpstreamProfile fluid.Profile
}

// ComposeFunction projects a set of upstream profiles onto the
// downstream cosine basis by quadrature at resolution points per
// segment, then applies the same advection-diffusion damping as
// ComposeConstant.
func ComposeFunction(segments []FunctionSegment, pe, x float64, modes, resolution int) fluid.Profile {
	if modes <= 0 || modes > MaxModes {
		modes = MaxModes
	}
	if resolution < modes {
		resolution = modes * 4
	}

	var a0 float64
	an := make([]float64, modes)
	for _, seg := range segments {
		width := seg.End - seg.Start
		if width <= 0 {
			continue
		}
		xis := utl.LinSpace(seg.Start, seg.End, resolution)
		for i := 0; i < len(xis)-1; i++ {
			xiMid := 0.5 * (xis[i] + xis[i+1])
			dxi := xis[i+1] - xis[i]
			upstreamXi := seg.UpstreamStart + seg.StretchFactor*(xiMid-seg.Start)
			val := seg.UpstreamProfile.Eval(upstreamXi)
			a0 += val * dxi
			for n := 1; n <= modes; n++ {
				an[n-1] += val * math.Cos(float64(n)*math.Pi*xiMid) * dxi * 2.0
			}
		}
	}
	for n := 1; n <= modes; n++ {
		damping := math.Exp(-float64(n*n) * math.Pi * math.Pi * x / pe)
		an[n-1] *= damping
	}
	return newProfile(a0, an)
}

// newProfile builds a fluid.Profile whose Eval sums the truncated
// cosine series a0 + Σ an·cos(nπξ).
func newProfile(a0 float64, an []float64) fluid.Profile {
	coeffs := append([]float64(nil), an...)
	return fluid.Profile{
		A0: a0,
		An: coeffs,
		Eval: func(xi float64) float64 {
			v := a0
			for n, a := range coeffs {
				v += a * math.Cos(float64(n+1)*math.Pi*xi)
			}
			return v
		},
	}
}
