// Package topology implements the diffusive-mixing topology analyzer
// (§4.5): it orders a node's incident channels by radial bearing,
// apportions inflow among outflow channels by flow fraction, and
// composes truncated Fourier-series concentration profiles across each
// outflow's width.
package topology

import (
	"sort"

	"github.com/cda-tum/mmft-simulator-sub000/network"
	"github.com/cda-tum/mmft-simulator-sub000/simerr"
)

// Incident is one channel's contribution to a node's angular ordering
// (§4.5 "Topology step").
type Incident struct {
	ChannelID int
	Angle     float64
	Inflow    bool
	FlowRate  float64 // always positive magnitude
}

// FlowGroup is a maximal run of angularly-consecutive incident channels
// that all flow the same direction (§4.5 "concatenated flow groups").
type FlowGroup struct {
	Inflow   bool
	Channels []Incident
	Total    float64
}

// CollectIncident gathers every channel touching nodeID into an
// Incident, classified by the sign of its solved flow relative to the
// node and sorted ascending by outward radial angle.
func CollectIncident(net *network.Network, nodeID int) []Incident {
	nodes := make(map[int]*network.Node)
	for _, n := range net.Nodes() {
		nodes[n.ID] = n
	}
	var out []Incident
	for _, c := range net.ChannelsAt(nodeID) {
		outward := c.FlowRate
		if c.NodeB == nodeID {
			outward = -c.FlowRate
		}
		out = append(out, Incident{
			ChannelID: c.ID,
			Angle:     c.RadialAngleFrom(nodeID, nodes),
			Inflow:    outward < 0, // flow moving INTO the node
			FlowRate:  abs(outward),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Angle < out[j].Angle })
	return out
}

// ConcatenateFlowGroups merges angularly-consecutive same-direction
// incident channels into FlowGroups, wrapping around the 2π boundary
// (§4.5 "concatenated flow groups").
func ConcatenateFlowGroups(incident []Incident) []FlowGroup {
	if len(incident) == 0 {
		return nil
	}
	var groups []FlowGroup
	cur := FlowGroup{Inflow: incident[0].Inflow}
	for _, in := range incident {
		if len(cur.Channels) > 0 && in.Inflow != cur.Inflow {
			groups = append(groups, cur)
			cur = FlowGroup{Inflow: in.Inflow}
		}
		cur.Channels = append(cur.Channels, in)
		cur.Total += in.FlowRate
	}
	groups = append(groups, cur)

	// merge a wrap-around run: if the first and last group share a
	// direction and there are at least 2 groups, they are one angular run.
	if len(groups) > 1 && groups[0].Inflow == groups[len(groups)-1].Inflow {
		last := groups[len(groups)-1]
		groups[0].Channels = append(append([]Incident(nil), last.Channels...), groups[0].Channels...)
		groups[0].Total += last.Total
		groups = groups[:len(groups)-1]
	}
	return groups
}

// ValidateGroups enforces §4.5's two admissible junction shapes: a pure
// inflow-to-outflow fan (exactly one group of each kind), or a 4-way
// saddle (four single-channel groups alternating inflow/outflow).
func ValidateGroups(groups []FlowGroup) error {
	switch len(groups) {
	case 2:
		inflows, outflows := 0, 0
		for _, g := range groups {
			if g.Inflow {
				inflows++
			} else {
				outflows++
			}
		}
		if inflows == 1 && outflows == 1 {
			return nil
		}
	case 4:
		allSingle := true
		for _, g := range groups {
			if len(g.Channels) != 1 {
				allSingle = false
			}
		}
		alternating := groups[0].Inflow != groups[1].Inflow &&
			groups[1].Inflow != groups[2].Inflow &&
			groups[2].Inflow != groups[3].Inflow
		if allSingle && alternating {
			return nil
		}
	}
	return simerr.Topologyf("topology", "junction has %d flow groups, not a valid fan or saddle configuration", len(groups))
}

// OutflowSection records which sub-arc of a source inflow channel feeds
// an outflow channel, and how much flow it carries (§4.5 "Flow-fraction
// apportionment").
type OutflowSection struct {
	SourceChannelID int
	SectionStart    float64 // local fraction within the source inflow channel's own arc
	SectionEnd      float64
	FlowRate        float64
}

type arcSpan struct {
	channelID  int
	start, end float64 // cumulative fraction of the concatenated inflow arc [0,1]
}

// Apportion computes, for every outflow channel, the list of
// OutflowSections it draws from, by concatenating inflow channels along
// the angular axis into a [0,1] arc and having each outflow "eat" its
// own flow-rate fraction of that arc in angular order (§4.5
// "Flow-fraction apportionment").
func Apportion(groups []FlowGroup) (map[int][]OutflowSection, error) {
	var inflowChannels, outflowChannels []Incident
	for _, g := range groups {
		if g.Inflow {
			inflowChannels = append(inflowChannels, g.Channels...)
		} else {
			outflowChannels = append(outflowChannels, g.Channels...)
		}
	}
	var totalIn float64
	for _, c := range inflowChannels {
		totalIn += c.FlowRate
	}
	if totalIn <= 0 {
		return nil, simerr.Topologyf("topology", "junction has no positive inflow to apportion")
	}

	var arc []arcSpan
	var cursor float64
	for _, c := range inflowChannels {
		frac := c.FlowRate / totalIn
		arc = append(arc, arcSpan{channelID: c.ChannelID, start: cursor, end: cursor + frac})
		cursor += frac
	}

	out := make(map[int][]OutflowSection)
	var oCursor float64
	for _, oc := range outflowChannels {
		frac := oc.FlowRate / totalIn
		oStart, oEnd := oCursor, oCursor+frac
		oCursor = oEnd
		for _, span := range arc {
			lo := max(oStart, span.start)
			hi := min(oEnd, span.end)
			if hi <= lo {
				continue
			}
			spanLen := span.end - span.start
			localStart := (lo - span.start) / spanLen
			localEnd := (hi - span.start) / spanLen
			out[oc.ChannelID] = append(out[oc.ChannelID], OutflowSection{
				SourceChannelID: span.channelID,
				SectionStart:    localStart,
				SectionEnd:      localEnd,
				FlowRate:        (hi - lo) * totalIn,
			})
		}
	}
	return out, nil
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

func max(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func min(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
