// Package orchestrator selects a simulation mode (Abstract×platform or
// Hybrid×platform) and drives the shared MNA solve plus the active
// transient engine through a single stepping loop until convergence, a
// runtime limit, or a numerical abort (§4, §5, §7).
package orchestrator

import (
	"github.com/cda-tum/mmft-simulator-sub000/droplet"
	"github.com/cda-tum/mmft-simulator-sub000/hybrid"
	"github.com/cda-tum/mmft-simulator-sub000/mixing"
	"github.com/cda-tum/mmft-simulator-sub000/mna"
	"github.com/cda-tum/mmft-simulator-sub000/network"
	"github.com/cda-tum/mmft-simulator-sub000/resistance"
	"github.com/cda-tum/mmft-simulator-sub000/simerr"
	"github.com/cpmech/gosl/io"
)

// Mode is the (mode tag, platform tag) pair that selects which engines
// the Orchestrator drives (§6 "simulation file": mode tag Abstract|Hybrid
// × platform tag Continuous|BigDroplet|Mixing|Membrane).
type Mode int

const (
	AbstractContinuous Mode = iota
	AbstractBigDroplet
	AbstractMixing
	AbstractMembrane
	HybridContinuous
	HybridConcentration
)

func (m Mode) String() string {
	switch m {
	case AbstractContinuous:
		return "Abstract/Continuous"
	case AbstractBigDroplet:
		return "Abstract/BigDroplet"
	case AbstractMixing:
		return "Abstract/Mixing"
	case AbstractMembrane:
		return "Abstract/Membrane"
	case HybridContinuous:
		return "Hybrid/Continuous"
	case HybridConcentration:
		return "Hybrid/Concentration"
	default:
		return "unknown"
	}
}

// Orchestrator is the composition root (§4.6's "Dynamic polymorphism"
// note): it holds the mode, the always-present MNA solver, and whichever
// of DropletEngine/MixingEngine/HybridCoupler the mode calls for, and
// calls into them in a fixed order each step.
type Orchestrator struct {
	Net    *network.Network
	Solver *mna.Solver
	Model  resistance.Model
	Mode   Mode

	DropletEngine *droplet.Simulator
	MixingEngine  *mixing.Simulator
	Hybrid        *hybrid.Coupler

	MaxIterations int
	MaxTime       float64

	Iterations int
	SimTime    float64

	// Quiescent is set once the active transient engine reports no
	// admissible event: neither its iteration count nor its simulated
	// time advances further, so Done must stop relying on the budget
	// check alone (§4.3 "no event was admissible ... should stop").
	Quiescent bool

	// hybridConverged is set once a hybrid coupling iteration reports
	// convergence.
	hybridConverged bool

	// Progress reports one line per step via gosl/io color helpers, the
	// way fem/fem.go and mdl/retention/testing.go narrate solver progress.
	Progress bool
}

// New validates that the engines required by mode are present and
// returns a ready Orchestrator (§7 "Configuration invalid ... thrown at
// setup time").
func New(net *network.Network, solver *mna.Solver, model resistance.Model, mode Mode, maxIterations int, maxTime float64) (*Orchestrator, error) {
	if model == nil {
		return nil, simerr.Configurationf("orchestrator", "no resistance model configured")
	}
	switch mode {
	case HybridContinuous, HybridConcentration:
		if model.Name() != "poiseuille" {
			return nil, simerr.Configurationf("orchestrator", "hybrid mode requires the Poiseuille resistance model")
		}
	}
	return &Orchestrator{
		Net: net, Solver: solver, Model: model, Mode: mode,
		MaxIterations: maxIterations, MaxTime: maxTime,
	}, nil
}

// Done reports whether the active engine has no further work, whether a
// hybrid coupling iteration has converged, or whether the Orchestrator
// is in a pure-continuous mode with no transient engine (one MNA solve
// and it is finished).
func (o *Orchestrator) Done() bool {
	if o.Quiescent {
		return true
	}
	switch o.Mode {
	case AbstractBigDroplet:
		return o.DropletEngine == nil || o.DropletEngine.Done()
	case AbstractMixing:
		return o.MixingEngine == nil || o.MixingEngine.Done()
	case HybridContinuous, HybridConcentration:
		return o.hybridConverged
	default:
		return o.Iterations > 0
	}
}

// Step advances the simulation by one unit of work: a bare MNA solve for
// the continuous/membrane modes, one droplet event for BigDroplet, one
// mixing step for Mixing, or one coupling iteration for the hybrid modes
// (§4 "Dependency order", §5 "the outer orchestrator advances one event
// at a time").
func (o *Orchestrator) Step() error {
	if o.Iterations >= o.MaxIterations {
		return simerr.RuntimeLimitf("orchestrator", "exceeded %d iterations", o.MaxIterations)
	}
	if o.SimTime > o.MaxTime {
		return simerr.RuntimeLimitf("orchestrator", "exceeded tMax=%g", o.MaxTime)
	}

	switch o.Mode {
	case AbstractContinuous, AbstractMembrane:
		if err := o.Solver.Solve(o.Net); err != nil {
			return err
		}
		o.Iterations++

	case AbstractBigDroplet:
		if o.DropletEngine == nil {
			return simerr.Configurationf("orchestrator", "BigDroplet mode requires a DropletEngine")
		}
		ev, err := o.DropletEngine.Step()
		if err != nil {
			return err
		}
		o.Iterations = o.DropletEngine.Iterations
		o.SimTime = o.DropletEngine.SimTime
		if ev == nil {
			o.Quiescent = true
			return nil
		}
		if o.Progress {
			io.Pfcyan("orchestrator: t=%.6g  %s\n", o.SimTime, ev.String())
		}
		return nil

	case AbstractMixing:
		if o.MixingEngine == nil {
			return simerr.Configurationf("orchestrator", "Mixing mode requires a MixingEngine")
		}
		if err := o.MixingEngine.Step(); err != nil {
			return err
		}
		o.Iterations = o.MixingEngine.Iterations
		o.SimTime = o.MixingEngine.SimTime
		return nil

	case HybridContinuous, HybridConcentration:
		if o.Hybrid == nil {
			return simerr.Configurationf("orchestrator", "hybrid modes require a Hybrid coupler")
		}
		done, err := o.Hybrid.Step()
		if err != nil {
			return err
		}
		o.Iterations++
		if o.Progress {
			io.Pfcyan("orchestrator: hybrid iteration %d converged=%v\n", o.Iterations, done)
		}
		if !done {
			return nil
		}
		o.hybridConverged = true

	default:
		return simerr.Configurationf("orchestrator", "unrecognized mode %v", o.Mode)
	}
	return nil
}

// Run steps until Done, MaxIterations, or MaxTime, reporting a
// RuntimeLimit error in the latter two cases (§7 "Runtime limit").
func (o *Orchestrator) Run() error {
	for !o.Done() {
		if err := o.Step(); err != nil {
			if o.Progress {
				io.Pfred("orchestrator: aborted: %v\n", err)
			}
			return err
		}
	}
	return nil
}
