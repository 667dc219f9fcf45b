// Package mixing implements the instantaneous-mixing simulator (§4.4):
// concentration fronts advect through channels, mix to a single uniform
// composition at every node under mass conservation, and emit into
// outgoing channels proportional to flow.
package mixing

import (
	"math"
	"sort"

	"github.com/cda-tum/mmft-simulator-sub000/fluid"
	"github.com/cda-tum/mmft-simulator-sub000/mna"
	"github.com/cda-tum/mmft-simulator-sub000/network"
	"github.com/cda-tum/mmft-simulator-sub000/simerr"
)

// Front is one entry of a channel's mixture-front deque: a mixture id
// and its relative position in [0,1] (§3 "Mixture-front record").
type Front struct {
	MixtureID int
	Position  float64
}

// Injection places a mixture at position 0 in a target channel at a
// given time; Permanent injections keep re-contributing to the channel's
// start node every step while active (§4.4 "Injection events").
type Injection struct {
	ID        int
	MixtureID int
	Channel   int
	Time      float64
	Permanent bool
	Performed bool

	// FlowRate is the standing inflow rate used while Permanent is true
	// (the "volume = Δt·|q_in|" contribution); ignored otherwise.
	FlowRate float64
}

// Simulator drives the instantaneous-mixing step loop over a network.
type Simulator struct {
	Net     *network.Network
	Solver  *mna.Solver
	Species []int

	MaxIterations int
	MaxTime       float64
	ResultCap     float64 // clamp Δt to "time until next result-write interval"; 0 disables

	Archive       *fluid.MixtureArchive
	channelFronts map[int][]Front
	filledEdge    map[int]int // channel id -> mixture id, for channels a single mixture fully occupies

	Injections []*Injection

	SimTime    float64
	Iterations int

	nextInjectionLookahead float64
}

// New returns a Simulator ready to accept injections.
func New(net *network.Network, solver *mna.Solver, species []int, maxIterations int, maxTime float64) *Simulator {
	return &Simulator{
		Net:           net,
		Solver:        solver,
		Species:       species,
		MaxIterations: maxIterations,
		MaxTime:       maxTime,
		Archive:       fluid.NewMixtureArchive(),
		channelFronts: make(map[int][]Front),
		filledEdge:    make(map[int]int),
	}
}

// AddInjection schedules inj.
func (s *Simulator) AddInjection(inj *Injection) {
	s.Injections = append(s.Injections, inj)
}

// Fronts returns a copy of channelID's mixture-front deque, ordered
// front-to-back (index 0 is closest to leaving the channel).
func (s *Simulator) Fronts(channelID int) []Front {
	return append([]Front(nil), s.channelFronts[channelID]...)
}

// Done reports whether the run has exhausted its iteration/time budget.
func (s *Simulator) Done() bool {
	return s.Iterations >= s.MaxIterations || s.SimTime >= s.MaxTime
}

// Step performs one instantaneous-mixing iteration (§4.4): compute the
// minimal time step, advect every front, mix at nodes with new inflow,
// emit downstream, and clean finished fronts.
func (s *Simulator) Step() error {
	if s.Done() {
		return simerr.RuntimeLimitf("mixing", "iteration/time budget exhausted (iterations=%d time=%g)", s.Iterations, s.SimTime)
	}
	if err := s.Solver.Solve(s.Net); err != nil {
		return err
	}

	dt := s.minimalTimeStep()
	dt = s.clampToNextInjection(dt)
	if s.ResultCap > 0 && dt > s.ResultCap {
		dt = s.ResultCap
	}

	inflows, err := s.advect(dt)
	if err != nil {
		return err
	}
	s.applyPermanentInjections(dt, inflows)

	newMixtures := s.mixAtNodes(inflows)
	s.emitDownstream(dt, newMixtures)
	s.performDueInjections(dt)
	s.clean()

	s.SimTime += dt
	s.Iterations++
	return nil
}

// minimalTimeStep returns the smallest Δt that advances at least one
// front to position 1 (§4.4 "Minimal time step").
func (s *Simulator) minimalTimeStep() float64 {
	best := math.Inf(1)
	for chID, fronts := range s.channelFronts {
		c := s.Net.Channel(chID)
		if c == nil || c.FlowRate == 0 || len(fronts) == 0 {
			continue
		}
		q := math.Abs(c.FlowRate)
		// fronts[0] is the foremost (highest position) entry.
		remaining := (1 - fronts[0].Position) * c.Volume() / q
		if remaining < best {
			best = remaining
		}
	}
	if math.IsInf(best, 1) {
		return s.MaxTime - s.SimTime
	}
	return best
}

func (s *Simulator) clampToNextInjection(dt float64) float64 {
	for _, inj := range s.Injections {
		if inj.Performed {
			continue
		}
		remaining := inj.Time - s.SimTime
		if remaining >= 0 && remaining < dt {
			dt = remaining
		}
	}
	return dt
}

// inflow is one MixtureInflow contribution arriving at a node.
type inflow struct {
	mixtureID int
	volume    float64
}

// advect moves every channel's fronts forward by dt and collects the
// MixtureInflow contributions of any front that reaches position 1
// (§4.4 steps 1).
func (s *Simulator) advect(dt float64) (map[int][]inflow, error) {
	inflows := make(map[int][]inflow)
	for chID, fronts := range s.channelFronts {
		c := s.Net.Channel(chID)
		if c == nil || c.FlowRate == 0 || len(fronts) == 0 {
			continue
		}
		q := math.Abs(c.FlowRate)
		for i := range fronts {
			fronts[i].Position = math.Min(1, fronts[i].Position+dt*q/c.Volume())
		}
		dest := c.NodeB
		if c.FlowRate < 0 {
			dest = c.NodeA
		}
		for len(fronts) > 0 && fronts[0].Position >= 1-1e-12 {
			volume := dt * q
			if volume < 0 {
				return nil, simerr.Numericalf("mixing", "negative inflow volume at channel #%d", chID)
			}
			inflows[dest] = append(inflows[dest], inflow{mixtureID: fronts[0].MixtureID, volume: volume})
			fronts = fronts[1:]
		}
		s.channelFronts[chID] = fronts
	}
	return inflows, nil
}

// applyPermanentInjections adds the standing inflow contribution for
// every active permanent injection (§4.4 "Permanent injections").
func (s *Simulator) applyPermanentInjections(dt float64, inflows map[int][]inflow) {
	for _, inj := range s.Injections {
		if !inj.Permanent || !inj.Performed {
			continue
		}
		c := s.Net.Channel(inj.Channel)
		if c == nil {
			continue
		}
		inflows[c.NodeA] = append(inflows[c.NodeA], inflow{mixtureID: inj.MixtureID, volume: dt * inj.FlowRate})
	}
}

// mixAtNodes merges every node's inflow list into a single new mixture
// under mass conservation (§4.4 step 2), archiving (and deduping) it.
func (s *Simulator) mixAtNodes(inflows map[int][]inflow) map[int]*fluid.Mixture {
	out := make(map[int]*fluid.Mixture)
	var nodeIDs []int
	for n := range inflows {
		nodeIDs = append(nodeIDs, n)
	}
	sort.Ints(nodeIDs)
	for _, nodeID := range nodeIDs {
		ins := inflows[nodeID]
		if len(ins) == 0 {
			continue
		}
		var totalVolume float64
		weighted := make(map[int]float64, len(s.Species))
		for _, in := range ins {
			m := s.Archive.Get(in.mixtureID)
			if m == nil {
				continue
			}
			totalVolume += in.volume
			for _, sp := range s.Species {
				weighted[sp] += m.Concentration(sp) * in.volume
			}
		}
		if totalVolume <= 0 {
			continue
		}
		conc := make(map[int]float64, len(weighted))
		for sp, w := range weighted {
			conc[sp] = w / totalVolume
		}
		out[nodeID] = s.Archive.Add(conc)
	}
	return out
}

// emitDownstream pushes the new mixture created at a node onto the back
// of every outgoing channel's deque (§4.4 step 3).
func (s *Simulator) emitDownstream(dt float64, newMixtures map[int]*fluid.Mixture) {
	for nodeID, m := range newMixtures {
		for _, c := range s.Net.ChannelsAt(nodeID) {
			outward := c.FlowRate
			if c.NodeB == nodeID {
				outward = -c.FlowRate
			}
			if outward <= 0 {
				continue
			}
			pos := dt * outward / c.Volume()
			s.channelFronts[c.ID] = append(s.channelFronts[c.ID], Front{MixtureID: m.ID, Position: pos})
		}
	}
}

// performDueInjections places every injection whose time has arrived at
// position 0 in its target channel (§4.4 "Injection events").
func (s *Simulator) performDueInjections(dt float64) {
	for _, inj := range s.Injections {
		if inj.Performed || inj.Time > s.SimTime+dt+1e-12 {
			continue
		}
		s.channelFronts[inj.Channel] = append(s.channelFronts[inj.Channel], Front{MixtureID: inj.MixtureID, Position: 0})
		if !inj.Permanent {
			inj.Performed = true
		} else {
			inj.Performed = true // marks the standing contribution as "active"; never cleared
		}
	}
}

// clean restores a single standing entry at position 1 for every channel
// whose front deque is empty and which is recorded as fully occupied by
// one mixture (§4.4 step 4); fronts that reached position 1 were already
// removed by advect.
func (s *Simulator) clean() {
	for chID, fronts := range s.channelFronts {
		if len(fronts) == 0 {
			if mixID, ok := s.filledEdge[chID]; ok {
				s.channelFronts[chID] = []Front{{MixtureID: mixID, Position: 1}}
			}
		}
	}
}

// MarkFullyOccupied records that channelID is, for now, occupied in its
// entirety by a single mixtureID (e.g. after a slow-draining upstream
// stretch), so clean() keeps a standing entry instead of leaving the
// channel's deque empty.
func (s *Simulator) MarkFullyOccupied(channelID, mixtureID int) {
	s.filledEdge[channelID] = mixtureID
}
