// Package result implements the in-memory time-indexed snapshot log
// (§6 "Results", §4 "Result Log"): one Snapshot per saved state, plus the
// archive of every mixture ever created. Result serialization is an
// explicit Non-goal (spec.md §1) — Log only ever holds structured data
// for an in-process caller, never a writer.
package result

import (
	"github.com/cda-tum/mmft-simulator-sub000/droplet"
	"github.com/cda-tum/mmft-simulator-sub000/fluid"
	"github.com/cda-tum/mmft-simulator-sub000/mixing"
	"github.com/cda-tum/mmft-simulator-sub000/network"
)

// DropletSnapshot mirrors §6's `{dropletId: {boundaries[], fullyOccupiedChannelIds[]}}`.
type DropletSnapshot struct {
	Boundaries           []droplet.Boundary
	FullyOccupiedChannel []int
}

// MixturePosition mirrors one entry of §6's `{channelId: deque<MixturePosition>}`.
type MixturePosition struct {
	MixtureID int
	Position  float64
}

// Snapshot is one saved state: time, node pressures, channel flow rates,
// and whichever mode-specific payload applies (§6 "Results").
type Snapshot struct {
	Time      float64
	Pressures map[int]float64
	FlowRates map[int]float64

	Droplets map[int]DropletSnapshot    // populated in BigDroplet modes
	Fronts   map[int][]MixturePosition  // populated in Mixing/Concentration modes
	VTKPaths map[int]string             // populated in Hybrid modes; path is caller-supplied
}

// Log accumulates Snapshots plus the archive of every mixture ever
// created (§6 "The final result also archives every mixture ever
// created"). Archive is reused directly rather than copied, matching
// fluid.MixtureArchive's own dedup-by-composition contract.
type Log struct {
	Snapshots []Snapshot
	Archive   *fluid.MixtureArchive
}

// NewLog returns an empty Log backed by archive (pass nil to have NewLog
// create one — convenient for Abstract/Continuous or BigDroplet runs that
// never touch mixtures).
func NewLog(archive *fluid.MixtureArchive) *Log {
	if archive == nil {
		archive = fluid.NewMixtureArchive()
	}
	return &Log{Archive: archive}
}

// CaptureBase builds the mode-independent part of a Snapshot: every
// node's pressure and every channel's flow rate, read directly off net
// (§6 "time, {nodeId: pressure}, {edgeId: flowRate}").
func CaptureBase(net *network.Network, time float64) Snapshot {
	snap := Snapshot{Time: time, Pressures: make(map[int]float64), FlowRates: make(map[int]float64)}
	for _, n := range net.Nodes() {
		snap.Pressures[n.ID] = n.Pressure
	}
	for _, c := range net.Channels() {
		snap.FlowRates[c.ID] = c.FlowRate
	}
	return snap
}

// CaptureDroplets adds every NETWORK-or-Trapped droplet's boundaries and
// fully-occupied channel list to snap.
func CaptureDroplets(snap *Snapshot, sim *droplet.Simulator) {
	snap.Droplets = make(map[int]DropletSnapshot)
	for id, d := range sim.Droplets {
		if d.State != droplet.InNetwork && d.State != droplet.Trapped {
			continue
		}
		bs := make([]droplet.Boundary, 0, len(d.Boundaries))
		for _, b := range d.Boundaries {
			bs = append(bs, *b)
		}
		snap.Droplets[id] = DropletSnapshot{
			Boundaries:           bs,
			FullyOccupiedChannel: append([]int(nil), d.FullyOccupied...),
		}
	}
}

// CaptureFronts adds every channel's mixture-front deque to snap
// (§6 "{channelId: deque<MixturePosition>}").
func CaptureFronts(snap *Snapshot, net *network.Network, sim *mixing.Simulator) {
	snap.Fronts = make(map[int][]MixturePosition)
	for _, c := range net.Channels() {
		fronts := sim.Fronts(c.ID)
		if len(fronts) == 0 {
			continue
		}
		deque := make([]MixturePosition, len(fronts))
		for i, f := range fronts {
			deque[i] = MixturePosition{MixtureID: f.MixtureID, Position: f.Position}
		}
		snap.Fronts[c.ID] = deque
	}
}

// CaptureVTKPaths records a per-simulator VTK output path for hybrid
// snapshots (§6 "{simulatorId: vtkFilePath}"); VTK writing itself is out
// of scope (spec.md §1) — the caller supplies whatever path its own
// writer produced.
func CaptureVTKPaths(snap *Snapshot, paths map[int]string) {
	snap.VTKPaths = paths
}

// Append records snap in the log.
func (l *Log) Append(snap Snapshot) {
	l.Snapshots = append(l.Snapshots, snap)
}

// Last returns the most recently appended Snapshot, or the zero value
// with ok=false if the log is empty (used by the abort path in §7:
// "Numerical errors abort ... with full state preserved up to the last
// saved snapshot").
func (l *Log) Last() (Snapshot, bool) {
	if len(l.Snapshots) == 0 {
		return Snapshot{}, false
	}
	return l.Snapshots[len(l.Snapshots)-1], true
}
