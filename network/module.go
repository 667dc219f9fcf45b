package network

import "math"

// Opening is a boundary cell of a CFD module that connects to the 1-D
// network: a node id, its outward unit normal, the channel width it
// presents to the network, and its radial angle around the module
// (derived, not stored redundantly — use Angle()).
type Opening struct {
	NodeID int
	Normal [2]float64
	Width  float64
}

// Angle returns the outward-normal direction normalized to [0, 2π).
func (o Opening) Angle() float64 {
	a := math.Atan2(o.Normal[1], o.Normal[0])
	if a < 0 {
		a += 2 * math.Pi
	}
	return a
}

// Module is an axis-aligned rectangle embedded in the network, standing
// in for a region that may be replaced by a 2-D LBM CFD domain in hybrid
// mode (§3 "CFD Module"). The rectangle spatially contains every opening
// node's position.
type Module struct {
	ID       int
	X, Y     float64 // lower-left corner
	W, H     float64
	NodeIDs  []int // boundary node ids, insertion order
	Openings map[int]Opening // keyed by NodeID
}

// NewModule creates an empty module at the given rectangle.
func NewModule(id int, x, y, w, h float64) *Module {
	return &Module{ID: id, X: x, Y: y, W: w, H: h, Openings: make(map[int]Opening)}
}

// AddOpening registers an opening at nodeID and records the node id in
// insertion order.
func (m *Module) AddOpening(nodeID int, normal [2]float64, width float64) {
	if _, exists := m.Openings[nodeID]; !exists {
		m.NodeIDs = append(m.NodeIDs, nodeID)
	}
	m.Openings[nodeID] = Opening{NodeID: nodeID, Normal: normal, Width: width}
}

// Contains reports whether the point (x,y) lies within the module
// rectangle (inclusive), used to validate that every opening node's
// position is spatially contained in its module.
func (m *Module) Contains(x, y float64) bool {
	return x >= m.X && x <= m.X+m.W && y >= m.Y && y <= m.Y+m.H
}
