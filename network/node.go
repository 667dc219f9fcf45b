// Package network implements the immutable-topology graph of nodes,
// channels, pumps, CFD modules and groups described in §3 of the
// specification. Entities are created once and kept in a single owning
// registry keyed by integer id; every cross-reference elsewhere in the
// simulator is a non-owning id, never a raw pointer back to the owner.
package network

// Node is a point in the plane. Geometry (X, Y) is immutable once the
// network is built; Pressure is rewritten by every MNA solve.
type Node struct {
	ID       int
	X, Y     float64
	Ground   bool
	Sink     bool
	Pressure float64
}

// NewNode creates a node at (x,y). Ground nodes carry a fixed pressure
// of 0 once solved.
func NewNode(id int, x, y float64) *Node {
	return &Node{ID: id, X: x, Y: y}
}
