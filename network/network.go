package network

import (
	"sort"

	"github.com/cda-tum/mmft-simulator-sub000/simerr"
	"github.com/cpmech/gosl/io"
)

// Network is the shared, mostly-immutable topology workspace owned by
// the orchestrator (§5 "Shared-resource policy"). Every entity lives in
// exactly one registry here, keyed by its integer id; insertion order is
// kept alongside the maps because §5 requires matrix assembly to be
// deterministic given that order.
type Network struct {
	nodeOrder []int
	nodes     map[int]*Node

	channelOrder []int
	channels     map[int]*Channel

	pressurePumpOrder []int
	pressurePumps     map[int]*PressurePump

	flowPumpOrder []int
	flowPumps     map[int]*FlowRatePump

	moduleOrder []int
	modules     map[int]*Module

	groupOrder []int
	groups     map[int]*Group
}

// New returns an empty network.
func New() *Network {
	return &Network{
		nodes:         make(map[int]*Node),
		channels:      make(map[int]*Channel),
		pressurePumps: make(map[int]*PressurePump),
		flowPumps:     make(map[int]*FlowRatePump),
		modules:       make(map[int]*Module),
		groups:        make(map[int]*Group),
	}
}

// AddNode registers n. Panics on duplicate id (programming error, not a
// recoverable configuration mistake).
func (net *Network) AddNode(n *Node) {
	if _, exists := net.nodes[n.ID]; exists {
		panic("network: duplicate node id")
	}
	net.nodes[n.ID] = n
	net.nodeOrder = append(net.nodeOrder, n.ID)
}

// AddChannel registers c.
func (net *Network) AddChannel(c *Channel) {
	if _, exists := net.channels[c.ID]; exists {
		panic("network: duplicate channel id")
	}
	net.channels[c.ID] = c
	net.channelOrder = append(net.channelOrder, c.ID)
}

// AddPressurePump registers p.
func (net *Network) AddPressurePump(p *PressurePump) {
	if _, exists := net.pressurePumps[p.ID]; exists {
		panic("network: duplicate pressure pump id")
	}
	net.pressurePumps[p.ID] = p
	net.pressurePumpOrder = append(net.pressurePumpOrder, p.ID)
}

// AddFlowRatePump registers p.
func (net *Network) AddFlowRatePump(p *FlowRatePump) {
	if _, exists := net.flowPumps[p.ID]; exists {
		panic("network: duplicate flow-rate pump id")
	}
	net.flowPumps[p.ID] = p
	net.flowPumpOrder = append(net.flowPumpOrder, p.ID)
}

// AddModule registers m.
func (net *Network) AddModule(m *Module) {
	if _, exists := net.modules[m.ID]; exists {
		panic("network: duplicate module id")
	}
	net.modules[m.ID] = m
	net.moduleOrder = append(net.moduleOrder, m.ID)
}

// Node looks up a node by id.
func (net *Network) Node(id int) *Node { return net.nodes[id] }

// Channel looks up a channel by id.
func (net *Network) Channel(id int) *Channel { return net.channels[id] }

// PressurePump looks up a pressure pump by id.
func (net *Network) PressurePump(id int) *PressurePump { return net.pressurePumps[id] }

// FlowRatePump looks up a flow-rate pump by id.
func (net *Network) FlowRatePump(id int) *FlowRatePump { return net.flowPumps[id] }

// Module looks up a CFD module by id.
func (net *Network) Module(id int) *Module { return net.modules[id] }

// Nodes returns all nodes in insertion order.
func (net *Network) Nodes() []*Node {
	out := make([]*Node, len(net.nodeOrder))
	for i, id := range net.nodeOrder {
		out[i] = net.nodes[id]
	}
	return out
}

// Channels returns all channels in insertion order.
func (net *Network) Channels() []*Channel {
	out := make([]*Channel, len(net.channelOrder))
	for i, id := range net.channelOrder {
		out[i] = net.channels[id]
	}
	return out
}

// PressurePumps returns all pressure pumps in insertion order.
func (net *Network) PressurePumps() []*PressurePump {
	out := make([]*PressurePump, len(net.pressurePumpOrder))
	for i, id := range net.pressurePumpOrder {
		out[i] = net.pressurePumps[id]
	}
	return out
}

// FlowRatePumps returns all flow-rate pumps in insertion order.
func (net *Network) FlowRatePumps() []*FlowRatePump {
	out := make([]*FlowRatePump, len(net.flowPumpOrder))
	for i, id := range net.flowPumpOrder {
		out[i] = net.flowPumps[id]
	}
	return out
}

// Modules returns all CFD modules in insertion order.
func (net *Network) Modules() []*Module {
	out := make([]*Module, len(net.moduleOrder))
	for i, id := range net.moduleOrder {
		out[i] = net.modules[id]
	}
	return out
}

// Groups returns all groups in insertion order (valid only after BuildGroups).
func (net *Network) Groups() []*Group {
	out := make([]*Group, len(net.groupOrder))
	for i, id := range net.groupOrder {
		out[i] = net.groups[id]
	}
	return out
}

// GroupOf returns the group a node belongs to, or nil.
func (net *Network) GroupOf(nodeID int) *Group {
	for _, g := range net.Groups() {
		for _, id := range g.NodeIDs {
			if id == nodeID {
				return g
			}
		}
	}
	return nil
}

// ChannelsAt returns the channels incident to nodeID (as NodeA or NodeB),
// in insertion order.
func (net *Network) ChannelsAt(nodeID int) []*Channel {
	var out []*Channel
	for _, id := range net.channelOrder {
		c := net.channels[id]
		if c.NodeA == nodeID || c.NodeB == nodeID {
			out = append(out, c)
		}
	}
	return out
}

// Validate checks the topology invariants from §3/§7: every edge
// references a known node and every opening references a known module
// node contained in the module rectangle. Group membership is not
// checked.
func (net *Network) Validate() error {
	for _, c := range net.Channels() {
		if net.nodes[c.NodeA] == nil {
			return simerr.Topologyf(io.Sf("channel #%d", c.ID), "dangling edge: unknown node %d", c.NodeA)
		}
		if net.nodes[c.NodeB] == nil {
			return simerr.Topologyf(io.Sf("channel #%d", c.ID), "dangling edge: unknown node %d", c.NodeB)
		}
	}
	for _, p := range net.PressurePumps() {
		if net.nodes[p.NodeA] == nil || net.nodes[p.NodeB] == nil {
			return simerr.Topologyf(io.Sf("pressure pump #%d", p.ID), "dangling edge")
		}
	}
	for _, p := range net.FlowRatePumps() {
		if net.nodes[p.NodeA] == nil || net.nodes[p.NodeB] == nil {
			return simerr.Topologyf(io.Sf("flow-rate pump #%d", p.ID), "dangling edge")
		}
	}
	for _, m := range net.Modules() {
		for _, nid := range m.NodeIDs {
			n := net.nodes[nid]
			if n == nil {
				return simerr.Topologyf(io.Sf("module #%d", m.ID), "opening references unknown node %d", nid)
			}
			if !m.Contains(n.X, n.Y) {
				return simerr.Topologyf(io.Sf("module #%d", m.ID), "opening node %d lies outside module rectangle", nid)
			}
		}
	}
	return nil
}

// unionFind is a minimal disjoint-set structure used by BuildGroups.
type unionFind struct {
	parent map[int]int
}

func newUnionFind() *unionFind { return &unionFind{parent: make(map[int]int)} }

func (u *unionFind) find(x int) int {
	if _, ok := u.parent[x]; !ok {
		u.parent[x] = x
	}
	if u.parent[x] != x {
		u.parent[x] = u.find(u.parent[x])
	}
	return u.parent[x]
}

func (u *unionFind) union(a, b int) {
	ra, rb := u.find(a), u.find(b)
	if ra != rb {
		u.parent[ra] = rb
	}
}

// BuildGroups recomputes the network's connected-component groups from
// the current channel and pump topology (§3 "Group"). Existing
// Initialized/GroundNodeID state for a group whose node set is unchanged
// is preserved; new groups start uninitialized and are bootstrapped by
// the first MNA solve (§4.2 "Group bootstrapping").
func (net *Network) BuildGroups() {
	uf := newUnionFind()
	for _, n := range net.Nodes() {
		uf.find(n.ID)
	}
	for _, c := range net.Channels() {
		uf.union(c.NodeA, c.NodeB)
	}
	for _, p := range net.PressurePumps() {
		uf.union(p.NodeA, p.NodeB)
	}
	for _, p := range net.FlowRatePumps() {
		uf.union(p.NodeA, p.NodeB)
	}

	prior := net.groups
	byRoot := make(map[int]*Group)
	var rootsOrder []int
	for _, n := range net.Nodes() {
		root := uf.find(n.ID)
		g, ok := byRoot[root]
		if !ok {
			g = &Group{ID: len(rootsOrder)}
			byRoot[root] = g
			rootsOrder = append(rootsOrder, root)
		}
		g.NodeIDs = append(g.NodeIDs, n.ID)
		if n.Ground && !g.Grounded {
			g.Grounded = true
			g.GroundNodeID = n.ID
			g.Initialized = true
		}
	}
	for _, c := range net.Channels() {
		root := uf.find(c.NodeA)
		byRoot[root].ChannelIDs = append(byRoot[root].ChannelIDs, c.ID)
	}

	// carry over bootstrap state for groups whose node set is unchanged
	for _, root := range rootsOrder {
		g := byRoot[root]
		sort.Ints(g.NodeIDs)
		for _, old := range prior {
			if sameIntSet(old.NodeIDs, g.NodeIDs) && old.Initialized {
				g.Initialized = true
				g.GroundNodeID = old.GroundNodeID
				g.Grounded = old.Grounded
			}
		}
	}

	net.groups = make(map[int]*Group)
	net.groupOrder = nil
	for i, root := range rootsOrder {
		g := byRoot[root]
		g.ID = i
		net.groups[i] = g
		net.groupOrder = append(net.groupOrder, i)
	}
}

func sameIntSet(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	aCopy := append([]int(nil), a...)
	bCopy := append([]int(nil), b...)
	sort.Ints(aCopy)
	sort.Ints(bCopy)
	for i := range aCopy {
		if aCopy[i] != bCopy[i] {
			return false
		}
	}
	return true
}
