// Package mna implements the Modified Nodal Analysis solver (§4.2): it
// treats the network as an electrical analog (channels = resistors,
// pumps = sources), builds the system A·x=z as a dense matrix, solves it
// with gonum's mat.VecDense.SolveVec (an LU factorization for the square
// MNA matrix), and writes pressures and flow rates back onto the network.
package mna

import (
	"math"

	"github.com/cda-tum/mmft-simulator-sub000/network"
	"github.com/cda-tum/mmft-simulator-sub000/simerr"
	"github.com/cpmech/gosl/io"
	"github.com/cpmech/gosl/la"
	"gonum.org/v1/gonum/mat"
)

// OpeningRole classifies a CFD-module opening as the variable the
// hybrid handshake treats as fixed at that node (§4.2 "Hybrid mode
// extension").
type OpeningRole int

const (
	PressureGround OpeningRole = iota
	FlowGround
)

// InternalConductance is one edge of a CFD simulator's own internal
// channel graph, wired into G before the simulator is initialized so
// the first solve sees a "wired" module (§4.2).
type InternalConductance struct {
	NodeA, NodeB int
	Conductance  float64
}

// HybridSimulator is the minimal surface the MNA solver needs from a CFD
// simulator bound to a network.Module; hybrid.CFDSimulator implements a
// superset of this (§6).
type HybridSimulator interface {
	ModuleID() int
	Initialized() bool
	OpeningRoles() map[int]OpeningRole // nodeID -> role
	InternalConductances() []InternalConductance
	Pressure(nodeID int) float64
	FlowRate(nodeID int) float64
	SetPressure(nodeID int, p float64)
	SetFlowRate(nodeID int, q float64)
	Alpha(nodeID int) float64
}

// Solver builds and solves the MNA linear system for a network. It holds
// no per-call state; Solve and SolveHybrid are safe to call repeatedly as
// the network's resistances change between solves.
type Solver struct{}

// New returns a Solver.
func New() *Solver { return &Solver{} }

// Solve runs one continuous (non-hybrid) MNA solve over net, writing
// pressures, flow rates and pressure-pump flow rates back onto it.
func (s *Solver) Solve(net *network.Network) error {
	_, err := s.assembleAndSolve(net, nil)
	return err
}

// SolveHybrid runs one MNA solve with the hybrid extension (§4.2): each
// uninitialized simulator contributes its internal conductance graph to
// G; each initialized simulator's openings impose pressure or flow
// boundary conditions read from its buffers. After solving, every
// initialized simulator's buffers are updated by under-relaxation and
// pressureConverged reports whether every opening met tolerance.
func (s *Solver) SolveHybrid(net *network.Network, sims []HybridSimulator) (pressureConverged bool, err error) {
	return s.assembleAndSolve(net, sims)
}

// idx maps a non-ground node id to its row/column in G, in insertion
// order (§5 "matrix assembly is deterministic given ... insertion order").
type idx struct {
	pos map[int]int
}

func buildIdx(net *network.Network) *idx {
	m := make(map[int]int)
	for _, n := range net.Nodes() {
		if !n.Ground {
			m[n.ID] = len(m)
		}
	}
	return &idx{pos: m}
}

func (x *idx) of(nodeID int) (int, bool) {
	p, ok := x.pos[nodeID]
	return p, ok
}

func (s *Solver) assembleAndSolve(net *network.Network, sims []HybridSimulator) (pressureConverged bool, err error) {
	net.BuildGroups()
	nodeIdx := buildIdx(net)
	N := len(nodeIdx.pos)
	if N == 0 {
		return true, nil
	}

	// conducting[nodeID] is false for a group's own (tentative or
	// bootstrapped) reference node: that node gets a pin row/column
	// instead of ordinary pump coupling (§4.2 "Group-reference pumps").
	conducting := make(map[int]bool, N)
	for id := range nodeIdx.pos {
		conducting[id] = true
	}
	type groupPin struct {
		group *network.Group
		node  int
	}
	var pins []groupPin
	for _, g := range net.Groups() {
		if g.Grounded {
			continue // the group's ground node is a true network.Node.Ground, already excluded from N
		}
		ref := g.GroundNodeID
		if ref == 0 && !g.Initialized {
			ref = lowestIDMember(g)
		}
		conducting[ref] = false
		pins = append(pins, groupPin{group: g, node: ref})
	}

	P := len(net.PressurePumps()) + len(pins)
	n := N + P
	G := la.MatAlloc(n, n)
	z := make([]float64, n)

	// --- G: channel conductances ---
	for _, c := range net.Channels() {
		r := c.Resistance()
		resistanceMustBePositive(r, c.ID)
		g := 1.0 / r
		ia, aOK := nodeIdx.of(c.NodeA)
		ib, bOK := nodeIdx.of(c.NodeB)
		if aOK {
			G[ia][ia] += g
		}
		if bOK {
			G[ib][ib] += g
		}
		if aOK && bOK {
			G[ia][ib] -= g
			G[ib][ia] -= g
		}
	}

	// --- hybrid: uninitialized simulators contribute their internal graph ---
	for _, sim := range sims {
		if sim.Initialized() {
			continue
		}
		for _, ic := range sim.InternalConductances() {
			ia, aOK := nodeIdx.of(ic.NodeA)
			ib, bOK := nodeIdx.of(ic.NodeB)
			if aOK {
				G[ia][ia] += ic.Conductance
			}
			if bOK {
				G[ib][ib] += ic.Conductance
			}
			if aOK && bOK {
				G[ia][ib] -= ic.Conductance
				G[ib][ia] -= ic.Conductance
			}
		}
	}

	// --- B,C,e: pressure pumps ---
	pk := N
	for _, p := range net.PressurePumps() {
		if ia, ok := nodeIdx.of(p.NodeA); ok && conducting[p.NodeA] {
			G[ia][pk] = -1
			G[pk][ia] = -1
		}
		if ib, ok := nodeIdx.of(p.NodeB); ok && conducting[p.NodeB] {
			G[ib][pk] = 1
			G[pk][ib] = 1
		}
		z[pk] = p.Pressure
		pk++
	}

	// --- B,C,e: group-reference pins ---
	for _, pin := range pins {
		ref := pin.node
		ia := nodeIdx.pos[ref]
		G[ia][pk] = 1
		G[pk][ia] = 1
		if pin.group.Initialized {
			z[pk] = net.Node(ref).Pressure
		} else {
			z[pk] = 0
		}
		pk++
	}

	// --- hybrid: initialized simulators impose pressure/flow via openings ---
	for _, sim := range sims {
		if !sim.Initialized() {
			continue
		}
		for nodeID, role := range sim.OpeningRoles() {
			ia, ok := nodeIdx.of(nodeID)
			if !ok {
				continue
			}
			switch role {
			case PressureGround:
				G[ia][pk] = 1
				G[pk][ia] = 1
				z[pk] = sim.Pressure(nodeID)
				pk++
			case FlowGround:
				z[ia] += sim.FlowRate(nodeID)
			}
		}
	}

	// --- i: flow-rate pumps ---
	for _, p := range net.FlowRatePumps() {
		if ia, ok := nodeIdx.of(p.NodeA); ok && conducting[p.NodeA] {
			z[ia] -= p.FlowRate
		}
		if ib, ok := nodeIdx.of(p.NodeB); ok && conducting[p.NodeB] {
			z[ib] += p.FlowRate
		}
	}

	x, err := solveLinSys(G, z)
	if err != nil {
		return false, err
	}

	writeBackPressures(net, nodeIdx, x)
	writeBackChannels(net)
	writeBackPressurePumpFlows(net, N, x)
	writeBackFlowPumpDrops(net)
	bootstrapGroups(net, nodeIdx, x)

	if sims == nil {
		return true, nil
	}
	return relaxHybridBuffers(net, sims), nil
}

func lowestIDMember(g *network.Group) int {
	if len(g.NodeIDs) == 0 {
		return 0
	}
	min := g.NodeIDs[0]
	for _, id := range g.NodeIDs[1:] {
		if id < min {
			min = id
		}
	}
	return min
}

// solveLinSys assembles the dense gonum matrix and solves A·x=z with
// SolveVec, which factorizes the square matrix by LU; a singular or
// ill-conditioned system is returned as a Numerical error (§4.2
// "Failure").
func solveLinSys(G [][]float64, z []float64) ([]float64, error) {
	n := len(z)
	flat := make([]float64, 0, n*n)
	for i := 0; i < n; i++ {
		flat = append(flat, G[i]...)
	}
	A := mat.NewDense(n, n, flat)
	b := mat.NewVecDense(n, append([]float64(nil), z...))
	var x mat.VecDense
	if err := x.SolveVec(A, b); err != nil {
		return nil, simerr.Numericalf("mna", "rank-deficient MNA system: %v", err)
	}
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = x.AtVec(i)
	}
	return out, nil
}

func resistanceMustBePositive(r float64, channelID int) {
	if r <= 0 {
		panic(io.Sf("mna: channel #%d has non-positive resistance %g", channelID, r))
	}
}

func writeBackPressures(net *network.Network, idx *idx, x []float64) {
	for _, n := range net.Nodes() {
		if n.Ground {
			n.Pressure = 0
			continue
		}
		if pos, ok := idx.of(n.ID); ok {
			n.Pressure = x[pos]
		}
	}
}

func writeBackChannels(net *network.Network) {
	for _, c := range net.Channels() {
		a := net.Node(c.NodeA)
		b := net.Node(c.NodeB)
		c.PressureDrop = a.Pressure - b.Pressure
		c.FlowRate = c.PressureDrop / c.Resistance()
	}
}

func writeBackPressurePumpFlows(net *network.Network, N int, x []float64) {
	for i, p := range net.PressurePumps() {
		p.FlowRate = x[N+i]
	}
}

func writeBackFlowPumpDrops(net *network.Network) {
	for _, p := range net.FlowRatePumps() {
		a := net.Node(p.NodeA)
		b := net.Node(p.NodeB)
		p.PressureDrop = a.Pressure - b.Pressure
	}
}

// bootstrapGroups promotes the member with the lowest solved pressure to
// permanent reference for every group solved for the first time (§4.2
// "Group bootstrapping").
func bootstrapGroups(net *network.Network, idx *idx, x []float64) {
	for _, g := range net.Groups() {
		if g.Grounded || g.Initialized {
			continue
		}
		var best int
		bestP := math.Inf(1)
		for _, id := range g.NodeIDs {
			pos, ok := idx.of(id)
			if !ok {
				continue
			}
			if x[pos] < bestP {
				bestP = x[pos]
				best = id
			}
		}
		g.GroundNodeID = best
		g.Initialized = true
	}
}

// relaxHybridBuffers applies the under-relaxation update from §4.2
// ("After solving in hybrid mode ...") and reports whether every
// initialized simulator's openings met the pressure/flow tolerance.
func relaxHybridBuffers(net *network.Network, sims []HybridSimulator) bool {
	converged := true
	for _, sim := range sims {
		if !sim.Initialized() {
			continue
		}
		for nodeID, role := range sim.OpeningRoles() {
			n := net.Node(nodeID)
			if n == nil {
				continue
			}
			alpha := sim.Alpha(nodeID)
			switch role {
			case PressureGround:
				pOld := sim.Pressure(nodeID)
				pSolved := n.Pressure
				pNew := pOld + alpha*(pSolved-pOld)
				sim.SetPressure(nodeID, pNew)
				if math.Abs(pSolved-pOld) >= 1e-2 {
					converged = false
				}
			case FlowGround:
				qOld := sim.FlowRate(nodeID)
				qSolved := netFlowAt(net, nodeID)
				qNew := qOld + 5*alpha*(qSolved-qOld)
				sim.SetFlowRate(nodeID, qNew)
				if math.Abs(qSolved-qOld) >= 1e-2 {
					converged = false
				}
			}
		}
	}
	return converged
}

// netFlowAt sums the signed flow rate into nodeID across incident
// channels (positive = into the node), used to report the solved flow at
// a flow-ground opening back to its CFD simulator.
func netFlowAt(net *network.Network, nodeID int) float64 {
	var total float64
	for _, c := range net.ChannelsAt(nodeID) {
		if c.NodeB == nodeID {
			total += c.FlowRate
		} else {
			total -= c.FlowRate
		}
	}
	return total
}
