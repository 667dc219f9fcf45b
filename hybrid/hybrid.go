// Package hybrid implements the Hybrid Abstract-CFD coupling loop (§4.6):
// a CFDSimulator interface standing in for an externally-implemented LBM
// solver, a relaxation update Scheme, and the Coupler that iterates MNA
// and the bound simulators to joint convergence.
package hybrid

import (
	"github.com/cda-tum/mmft-simulator-sub000/mna"
	"github.com/cda-tum/mmft-simulator-sub000/network"
	"github.com/cda-tum/mmft-simulator-sub000/resistance"
	"github.com/cda-tum/mmft-simulator-sub000/simerr"
)

// CFDSimulator is the full externally-implemented LBM handle (§6 "CFD
// simulator interface"). It is a superset of mna.HybridSimulator: the
// core only ever calls through that narrower interface during assembly,
// but the Coupler drives the simulator's own lifecycle (initialize,
// geometry/lattice prep, solve, convergence) through this one.
type CFDSimulator interface {
	mna.HybridSimulator

	Initialize(model resistance.Model) error
	LBMInit(viscosity, density float64) error
	PrepareGeometry() error
	PrepareLattice() error

	Solve()
	HasConverged() bool

	GetPressures() map[int]float64
	SetPressures(map[int]float64)
	GetFlowRates() map[int]float64
	SetFlowRates(map[int]float64)

	GetOpenings() map[int]network.Opening
	GetModule() *network.Module

	GetGroundNodes() map[int]bool
	SetGroundNodes(map[int]bool)

	SetInitialized(bool)

	// SetAlpha/SetBeta/SetTheta are driven by the update Scheme between
	// handshakes (§4.6 "Update scheme (Naive)"). Beta is stored per
	// opening but not read by the mna solver, which relaxes flow
	// openings by 5·Alpha.
	SetAlpha(nodeID int, alpha float64)
	SetBeta(nodeID int, beta float64)
	Beta(nodeID int) float64
	SetTheta(theta int)
}

// Scheme supplies the per-opening/per-module relaxation parameters
// between handshakes (§4.6 "Update scheme (Naive)").
type Scheme interface {
	Apply(sims []CFDSimulator)
}

// NaiveScheme stores per-opening alpha (pressure relaxation) and beta
// (flow relaxation) keyed by node id, and per-module theta (LBM steps per
// handshake) keyed by module id. SetAlphaUniform/SetBetaUniform/
// SetThetaUniform assign to every entry already present, or seed the
// given ids when the map is empty: the teacher's by-value map iteration idiom means the
// original mutates a local copy, not the stored map; this core's reading
// keeps that "assign to every stored entry" semantics deliberately (see
// DESIGN.md's Open Questions for the by-value-iteration redesign note).
type NaiveScheme struct {
	Alpha map[int]float64
	Beta  map[int]float64
	Theta map[int]int
}

// NewNaiveScheme returns a scheme with empty maps; populate via
// SetAlphaUniform/SetBetaUniform/SetThetaUniform or by writing the maps
// directly.
func NewNaiveScheme() *NaiveScheme {
	return &NaiveScheme{Alpha: make(map[int]float64), Beta: make(map[int]float64), Theta: make(map[int]int)}
}

// SetAlphaUniform sets alpha for every node id currently present in Alpha,
// or seeds it for nodeIDs if Alpha is empty.
func (s *NaiveScheme) SetAlphaUniform(value float64, nodeIDs ...int) {
	if len(s.Alpha) == 0 {
		for _, id := range nodeIDs {
			s.Alpha[id] = value
		}
		return
	}
	for id := range s.Alpha {
		s.Alpha[id] = value
	}
}

// SetBetaUniform is SetAlphaUniform's flow-relaxation counterpart.
func (s *NaiveScheme) SetBetaUniform(value float64, nodeIDs ...int) {
	if len(s.Beta) == 0 {
		for _, id := range nodeIDs {
			s.Beta[id] = value
		}
		return
	}
	for id := range s.Beta {
		s.Beta[id] = value
	}
}

// SetThetaUniform sets theta for every module id currently present in
// Theta, or seeds it for moduleIDs if Theta is empty.
func (s *NaiveScheme) SetThetaUniform(value int, moduleIDs ...int) {
	if len(s.Theta) == 0 {
		for _, id := range moduleIDs {
			s.Theta[id] = value
		}
		return
	}
	for id := range s.Theta {
		s.Theta[id] = value
	}
}

// Apply pushes the stored maps onto every simulator's own per-opening and
// per-module parameters ahead of the next handshake.
func (s *NaiveScheme) Apply(sims []CFDSimulator) {
	for _, sim := range sims {
		for nodeID, a := range s.Alpha {
			if _, ok := sim.OpeningRoles()[nodeID]; ok {
				sim.SetAlpha(nodeID, a)
			}
		}
		for nodeID, b := range s.Beta {
			if _, ok := sim.OpeningRoles()[nodeID]; ok {
				sim.SetBeta(nodeID, b)
			}
		}
		if theta, ok := s.Theta[sim.ModuleID()]; ok {
			sim.SetTheta(theta)
		}
	}
}

// Coupler runs the Hybrid Abstract-CFD coupling loop (§4.6): each outer
// iteration solves MNA with the hybrid extension, advances every bound
// CFD simulator by its scheduled theta, and repeats until both the
// pressure handshake and every simulator report convergence.
type Coupler struct {
	Net           *network.Network
	Solver        *mna.Solver
	Model         resistance.Model
	Scheme        Scheme
	MaxIterations int

	sims     []CFDSimulator
	hybrid   []mna.HybridSimulator
	byModule map[int]CFDSimulator
}

// NewCoupler validates the model/module-simulator bijection (§4.6
// "Failure modes") and returns a ready Coupler.
func NewCoupler(net *network.Network, solver *mna.Solver, model resistance.Model, scheme Scheme, maxIterations int, sims []CFDSimulator) (*Coupler, error) {
	if model == nil || model.Name() != "poiseuille" {
		return nil, simerr.Configurationf("hybrid", "hybrid mode requires the Poiseuille resistance model")
	}

	byModule := make(map[int]CFDSimulator, len(sims))
	for _, sim := range sims {
		mod := sim.GetModule()
		if mod == nil || net.Module(mod.ID) == nil {
			return nil, simerr.Configurationf("hybrid", "CFD simulator references an unknown module")
		}
		if _, dup := byModule[mod.ID]; dup {
			return nil, simerr.Configurationf("hybrid", "module %d bound to more than one CFD simulator", mod.ID)
		}
		byModule[mod.ID] = sim
	}
	for _, mod := range net.Modules() {
		if _, ok := byModule[mod.ID]; !ok {
			return nil, simerr.Configurationf("hybrid", "module %d has no bound CFD simulator", mod.ID)
		}
	}

	hybridSims := make([]mna.HybridSimulator, len(sims))
	for i, sim := range sims {
		hybridSims[i] = sim
	}
	return &Coupler{
		Net: net, Solver: solver, Model: model, Scheme: scheme,
		MaxIterations: maxIterations,
		sims:          sims, hybrid: hybridSims, byModule: byModule,
	}, nil
}

// Step runs one outer iteration of the coupling loop (§4.6 steps 1-2) and
// reports whether both convergence conditions hold (step 3's exit test).
func (c *Coupler) Step() (done bool, err error) {
	pressureConverged, err := c.Solver.SolveHybrid(c.Net, c.hybrid)
	if err != nil {
		return false, err
	}

	allConverged := true
	for _, sim := range c.sims {
		sim.Solve()
		if !sim.HasConverged() {
			allConverged = false
		}
	}

	if c.Scheme != nil {
		c.Scheme.Apply(c.sims)
	}

	return allConverged && pressureConverged, nil
}

// Run repeats Step until convergence or MaxIterations is exhausted,
// returning a RuntimeLimit error in the latter case (§4.6 step 3, §7
// "Runtime limit").
func (c *Coupler) Run() error {
	for i := 0; i < c.MaxIterations; i++ {
		done, err := c.Step()
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
	return simerr.RuntimeLimitf("hybrid", "coupling loop did not converge within %d iterations", c.MaxIterations)
}
