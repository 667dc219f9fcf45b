package network

import "math"

// ChannelKind classifies a rectangular channel per §3.
type ChannelKind int

const (
	Normal ChannelKind = iota
	Bypass
	Cloggable
)

func (k ChannelKind) String() string {
	switch k {
	case Normal:
		return "normal"
	case Bypass:
		return "bypass"
	case Cloggable:
		return "cloggable"
	default:
		return "unknown"
	}
}

// Channel is a directed rectangular edge from NodeA to NodeB. Geometry
// (Height, Width, Length) is immutable; ResistanceIntrinsic,
// ResistanceDroplet, FlowRate and PressureDrop are rewritten per solve.
type Channel struct {
	ID     int
	NodeA  int
	NodeB  int
	Height float64
	Width  float64
	Length float64
	Kind   ChannelKind

	// ResistanceIntrinsic is the geometry+viscosity resistance from a
	// resistance.Model; ResistanceDroplet is the additive droplet-occupancy
	// term from the same model (§4.1).
	ResistanceIntrinsic float64
	ResistanceDroplet   float64

	FlowRate     float64 // positive means flow from NodeA to NodeB
	PressureDrop float64 // p(NodeA) - p(NodeB)
}

// Resistance returns the channel's total (intrinsic + droplet) resistance.
func (c *Channel) Resistance() float64 {
	return c.ResistanceIntrinsic + c.ResistanceDroplet
}

// Volume returns the channel's internal volume (height * width * length).
func (c *Channel) Volume() float64 {
	return c.Height * c.Width * c.Length
}

// DerivedLength computes the Euclidean length between two node positions,
// used when a channel's length is left unspecified (§3 "Length may be
// derived from node positions if unspecified").
func DerivedLength(a, b *Node) float64 {
	dx := b.X - a.X
	dy := b.Y - a.Y
	return math.Hypot(dx, dy)
}

// RadialAngle returns the angle, in [0, 2π), of the ray from NodeA
// towards NodeB along this channel (0 for a self-loop).
func (c *Channel) RadialAngle(nodes map[int]*Node) float64 {
	var from, to *Node
	if c.NodeA == c.NodeB {
		return 0
	}
	from, to = nodes[c.NodeA], nodes[c.NodeB]
	angle := math.Atan2(to.Y-from.Y, to.X-from.X)
	if angle < 0 {
		angle += 2 * math.Pi
	}
	return angle
}

// RadialAngleFrom returns the outward angle of this channel as seen from
// the given endpoint node id (the channel may be incident to a node as
// either its NodeA or its NodeB).
func (c *Channel) RadialAngleFrom(nodeID int, nodes map[int]*Node) float64 {
	a, b := nodes[c.NodeA], nodes[c.NodeB]
	var from, to *Node
	if nodeID == c.NodeA {
		from, to = a, b
	} else {
		from, to = b, a
	}
	angle := math.Atan2(to.Y-from.Y, to.X-from.X)
	if angle < 0 {
		angle += 2 * math.Pi
	}
	return angle
}

// OtherEnd returns the node id at the opposite end of the channel from nodeID.
func (c *Channel) OtherEnd(nodeID int) int {
	if nodeID == c.NodeA {
		return c.NodeB
	}
	return c.NodeA
}
