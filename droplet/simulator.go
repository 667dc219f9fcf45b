package droplet

import (
	"sort"

	"github.com/cda-tum/mmft-simulator-sub000/fluid"
	"github.com/cda-tum/mmft-simulator-sub000/mna"
	"github.com/cda-tum/mmft-simulator-sub000/network"
	"github.com/cda-tum/mmft-simulator-sub000/resistance"
	"github.com/cda-tum/mmft-simulator-sub000/simerr"
	"github.com/cpmech/gosl/utl"
)

// Simulator drives the event-driven droplet loop of §4.3 over a network,
// re-solving MNA with droplet resistance added before every event scan.
type Simulator struct {
	Net           *network.Network
	Solver        *mna.Solver
	Model         resistance.Model
	MaxIterations int
	MaxTime       float64
	StepCap       float64 // 0 disables the bounding timeStepEvent

	Droplets   map[int]*Droplet
	droplets   []int // insertion order
	Injections []*Injection
	Fluids     map[int]*fluid.Fluid

	Time       int
	SimTime    float64
	Iterations int

	nextBoundaryMergeGrace float64 // channel-merge distance tolerance, see applyMergeChannel
	nextFluidID            int     // next id handed to a merge's blended fluid
}

// New returns a Simulator ready to accept droplets and injections.
func New(net *network.Network, solver *mna.Solver, model resistance.Model, maxIterations int, maxTime float64) *Simulator {
	return &Simulator{
		Net:                    net,
		Solver:                 solver,
		Model:                  model,
		MaxIterations:          maxIterations,
		MaxTime:                maxTime,
		Droplets:               make(map[int]*Droplet),
		Fluids:                 make(map[int]*fluid.Fluid),
		nextBoundaryMergeGrace: 1e-6,
	}
}

// RegisterFluid records f under its own id so later merges can look its
// viscosity/density back up, and keeps the blended-fluid id counter ahead
// of every id the caller has assigned so far.
func (s *Simulator) RegisterFluid(f *fluid.Fluid) {
	s.Fluids[f.ID] = f
	if f.ID >= s.nextFluidID {
		s.nextFluidID = f.ID + 1
	}
}

// AddDroplet registers d with the simulator. d.State should be Injection
// until its Injection event fires.
func (s *Simulator) AddDroplet(d *Droplet) {
	s.Droplets[d.ID] = d
	s.droplets = append(s.droplets, d.ID)
}

// AddInjection schedules inj; the droplet it refers to must already be
// registered via AddDroplet, in state Injection.
func (s *Simulator) AddInjection(inj *Injection) {
	s.Injections = append(s.Injections, inj)
}

// Done reports whether the run has exhausted its iteration or time
// budget (§4.3 "Termination").
func (s *Simulator) Done() bool {
	return s.Iterations >= s.MaxIterations || s.SimTime >= s.MaxTime
}

// Step performs one iteration of the main loop (§4.3): recompute droplet
// resistances, re-solve MNA, update boundary flow rates, scan admissible
// events, advance the clock to the earliest one, and apply it. It
// returns the applied event, or nil if no event was admissible (the run
// is quiescent and should stop).
func (s *Simulator) Step() (Event, error) {
	if s.Done() {
		return nil, simerr.RuntimeLimitf("droplet", "iteration/time budget exhausted (iterations=%d time=%g)", s.Iterations, s.SimTime)
	}

	if err := s.applyDropletResistances(); err != nil {
		return nil, err
	}
	if err := s.Solver.Solve(s.Net); err != nil {
		return nil, err
	}
	s.updateBoundaryFlowRates()

	events := s.admissibleEvents()
	if len(events) == 0 {
		return nil, nil
	}
	sort.SliceStable(events, func(i, j int) bool { return byTimeThenPriority(events[i], events[j]) })
	head := events[0]

	s.advanceBoundaries(head.Time())
	s.SimTime += head.Time()
	if err := head.Apply(s); err != nil {
		return nil, err
	}
	s.Iterations++
	return head, nil
}

// applyDropletResistances folds every NETWORK droplet's occupied volume
// into its channels' Channel.Resistance via the resistance model, ahead
// of the MNA solve (§4.3 main loop, step 1).
func (s *Simulator) applyDropletResistances() error {
	for _, c := range s.Net.Channels() {
		c.ResistanceDroplet = 0
	}
	if !s.Model.SupportsDroplets() {
		return nil
	}
	for _, id := range s.droplets {
		d := s.Droplets[id]
		if d.State != InNetwork {
			continue
		}
		for _, chID := range d.Channels() {
			c := s.Net.Channel(chID)
			if c == nil {
				continue
			}
			vol := DropletVolumeInChannel(d, c)
			dr, err := s.Model.DropletResistance(c, vol)
			if err != nil {
				return err
			}
			c.ResistanceDroplet += dr
		}
	}
	return nil
}

// updateBoundaryFlowRates implements §4.3's per-boundary flow update:
// boundary flow = channel flow, apportioned among every boundary whose
// channel shares the same downstream reference node, weighted by the
// droplet volume each boundary's droplet currently carries in that
// channel (ratio 1 when no other droplet's boundary shares the node; a
// droplet whose head and tail share one channel counts its volume there
// once).
func (s *Simulator) updateBoundaryFlowRates() {
	type entry struct {
		d *Droplet
		b *Boundary
	}
	groups := make(map[int][]entry)
	for _, id := range s.droplets {
		d := s.Droplets[id]
		if d.State != InNetwork {
			continue
		}
		for _, b := range d.Boundaries {
			c := s.Net.Channel(b.Channel)
			if c == nil {
				continue
			}
			node := c.NodeB
			if c.FlowRate < 0 {
				node = c.NodeA
			}
			groups[node] = append(groups[node], entry{d: d, b: b})
		}
	}
	for _, es := range groups {
		var sum float64
		weights := make([]float64, len(es))
		counted := make(map[[2]int]bool)
		for i, e := range es {
			c := s.Net.Channel(e.b.Channel)
			weights[i] = DropletVolumeInChannel(e.d, c)
			key := [2]int{e.d.ID, c.ID}
			if !counted[key] {
				counted[key] = true
				sum += weights[i]
			}
		}
		for i, e := range es {
			c := s.Net.Channel(e.b.Channel)
			if sum <= 0 {
				e.b.FlowRate = c.FlowRate
				continue
			}
			e.b.FlowRate = c.FlowRate * weights[i] / sum
		}
	}
}

// advanceBoundaries moves every live boundary by Δposition =
// flowRate·Δt/channelVolume, clamped to [0,1] (§4.3 "Boundary motion").
func (s *Simulator) advanceBoundaries(dt float64) {
	for _, id := range s.droplets {
		d := s.Droplets[id]
		if d.State != InNetwork {
			continue
		}
		for _, b := range d.Boundaries {
			c := s.Net.Channel(b.Channel)
			if c == nil || b.FlowRate == 0 {
				continue
			}
			b.Position = utl.Max(0, utl.Min(1, b.Position+b.FlowRate*dt/c.Volume()))
		}
	}
}

// admissibleEvents scans every candidate event (§4.3 "Events"): pending
// injections, boundary arrivals with nonzero flow rate, and merge
// conditions, each with a non-negative Δt from the current clock.
func (s *Simulator) admissibleEvents() []Event {
	var out []Event

	for _, inj := range s.Injections {
		if inj.Performed {
			continue
		}
		dt := inj.Time - s.SimTime
		if dt < 0 {
			dt = 0
		}
		out = append(out, &injectionEvent{dt: dt, inj: inj})
	}

	for _, id := range s.droplets {
		d := s.Droplets[id]
		if d.State != InNetwork {
			continue
		}
		for _, b := range d.Boundaries {
			if b.FlowRate == 0 || b.State != Normal {
				continue
			}
			c := s.Net.Channel(b.Channel)
			if c == nil {
				continue
			}
			target := 0.0
			if b.FlowRate > 0 {
				target = 1.0
			}
			dt := (target - b.Position) * c.Volume() / b.FlowRate
			if dt < 0 {
				continue
			}
			if b.IsHead {
				out = append(out, &boundaryHeadEvent{dt: dt, d: d, b: b})
			} else {
				out = append(out, &boundaryTailEvent{dt: dt, d: d, b: b})
			}
		}
	}

	out = append(out, s.mergeEvents()...)

	if s.StepCap > 0 {
		out = append(out, &timeStepEvent{dt: s.StepCap})
	}
	return out
}

// mergeEvents finds pairs of NETWORK droplets whose boundaries currently
// sit at the same node in different channels (MergeBifurcation) or at
// effectively the same position within the same channel
// (MergeChannel), both admissible immediately (Δt=0).
func (s *Simulator) mergeEvents() []Event {
	var out []Event
	for i := 0; i < len(s.droplets); i++ {
		d1 := s.Droplets[s.droplets[i]]
		if d1.State != InNetwork {
			continue
		}
		for j := i + 1; j < len(s.droplets); j++ {
			d2 := s.Droplets[s.droplets[j]]
			if d2.State != InNetwork {
				continue
			}
			if node, ok := s.sharedBoundaryNode(d1, d2); ok {
				out = append(out, &mergeBifurcationEvent{dt: 0, d1: d1, d2: d2, node: node})
				continue
			}
			if ch, ok := s.sharedChannelClosing(d1, d2); ok {
				out = append(out, &mergeChannelEvent{dt: 0, d1: d1, d2: d2, channel: ch})
			}
		}
	}
	return out
}

func (s *Simulator) sharedBoundaryNode(d1, d2 *Droplet) (int, bool) {
	for _, b1 := range d1.Boundaries {
		c1 := s.Net.Channel(b1.Channel)
		if c1 == nil || !s.atChannelEnd(b1) {
			continue
		}
		n1 := boundaryNode(b1, c1)
		for _, b2 := range d2.Boundaries {
			c2 := s.Net.Channel(b2.Channel)
			if c2 == nil || c2.ID == c1.ID || !s.atChannelEnd(b2) {
				continue
			}
			n2 := boundaryNode(b2, c2)
			if n1 == n2 {
				return n1, true
			}
		}
	}
	return 0, false
}

// atChannelEnd reports whether b sits at one end of its channel, within
// the merge tolerance.
func (s *Simulator) atChannelEnd(b *Boundary) bool {
	return b.Position <= s.nextBoundaryMergeGrace || b.Position >= 1-s.nextBoundaryMergeGrace
}

func (s *Simulator) sharedChannelClosing(d1, d2 *Droplet) (int, bool) {
	for _, b1 := range d1.Boundaries {
		for _, b2 := range d2.Boundaries {
			if b1.Channel != b2.Channel {
				continue
			}
			if abs(b1.Position-b2.Position) <= s.nextBoundaryMergeGrace {
				return b1.Channel, true
			}
		}
	}
	return 0, false
}

// boundaryNode returns the node a boundary is effectively sitting at
// when its position has reached (or is closest to) an end of c.
func boundaryNode(b *Boundary, c *network.Channel) int {
	if b.Position >= 0.5 {
		return c.NodeB
	}
	return c.NodeA
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

// DropletVolumeInChannel returns the portion of d's volume currently
// located inside c: the whole c.Volume() if c is fully occupied, the
// fraction bounded by a single boundary's position and TowardsNodeA flag
// if c hosts exactly one of d's boundaries, or the span between d's two
// boundaries if both live in c (§4.3, §4.1 "droplet resistance
// contract").
func DropletVolumeInChannel(d *Droplet, c *network.Channel) float64 {
	for _, id := range d.FullyOccupied {
		if id == c.ID {
			return c.Volume()
		}
	}
	head, tail := d.Head(), d.Tail()
	headHere := head != nil && head.Channel == c.ID
	tailHere := tail != nil && tail.Channel == c.ID
	switch {
	case headHere && tailHere:
		lo, hi := head.Position, tail.Position
		if lo > hi {
			lo, hi = hi, lo
		}
		return (hi - lo) * c.Volume()
	case headHere:
		return boundaryFraction(head) * c.Volume()
	case tailHere:
		return boundaryFraction(tail) * c.Volume()
	default:
		return 0
	}
}

// boundaryFraction returns the occupied fraction of a channel on the
// droplet-volume side of a lone boundary.
func boundaryFraction(b *Boundary) float64 {
	if b.TowardsNodeA {
		return b.Position
	}
	return 1 - b.Position
}

// applyInjection places d's head and tail boundaries straddling
// inj.Position in inj.Channel, validated per §4.3 "Injection validity":
// volume/channelVolume < 1 and both edges stay within [0,1].
func (s *Simulator) applyInjection(inj *Injection) error {
	d := s.Droplets[inj.DropletID]
	if d == nil {
		return simerr.Configurationf("droplet", "injection #%d references unknown droplet #%d", inj.ID, inj.DropletID)
	}
	c := s.Net.Channel(inj.Channel)
	if c == nil {
		return simerr.Topologyf("droplet", "injection #%d references unknown channel #%d", inj.ID, inj.Channel)
	}
	fraction := d.Volume / c.Volume()
	if fraction >= 1 {
		return simerr.Configurationf("droplet", "droplet #%d (volume %g) does not fit in channel #%d (volume %g)", d.ID, d.Volume, c.ID, c.Volume())
	}
	half := fraction / 2
	tailPos := inj.Position - half
	headPos := inj.Position + half
	if tailPos < 0 || headPos > 1 {
		return simerr.Configurationf("droplet", "injection #%d of droplet #%d does not fit at position %g in channel #%d", inj.ID, d.ID, inj.Position, c.ID)
	}

	d.State = InNetwork
	d.Boundaries = []*Boundary{
		{Channel: c.ID, Position: headPos, TowardsNodeA: true, IsHead: true},
		{Channel: c.ID, Position: tailPos, TowardsNodeA: false, IsHead: false},
	}
	d.FullyOccupied = nil
	inj.Performed = true
	return nil
}

// applyBoundaryHead advances the droplet's leading edge into the next
// channel, picked as the non-bypass outgoing channel with the largest
// positive outward flow at the reached node; with no candidate the
// boundary parks in WAIT_OUTFLOW (§4.3 "BoundaryHead").
func (s *Simulator) applyBoundaryHead(d *Droplet, head *Boundary) error {
	exited := s.Net.Channel(head.Channel)
	if exited == nil {
		return simerr.Topologyf("droplet", "droplet #%d head channel #%d vanished", d.ID, head.Channel)
	}
	n := exited.NodeB
	if exited.FlowRate < 0 {
		n = exited.NodeA
	}

	next := bestOutwardChannel(s.Net, n, exited.ID)
	if next == nil {
		head.State = WaitOutflow
		return nil
	}

	tail := d.Tail()
	if tail == nil || tail.Channel != exited.ID {
		d.FullyOccupied = append(d.FullyOccupied, exited.ID)
	}

	head.Channel = next.ID
	head.TowardsNodeA = n == next.NodeA
	if n == next.NodeA {
		head.Position = 0
	} else {
		head.Position = 1
	}
	head.State = Normal
	return nil
}

// applyBoundaryTail advances the droplet's trailing edge: it consumes
// the next fully-occupied channel along the chain (or, if none remain,
// crosses into the head's own channel, reducing the droplet to a single
// partially-filled channel) (§4.3 "BoundaryTail").
func (s *Simulator) applyBoundaryTail(d *Droplet, tail *Boundary) error {
	exited := s.Net.Channel(tail.Channel)
	if exited == nil {
		return simerr.Topologyf("droplet", "droplet #%d tail channel #%d vanished", d.ID, tail.Channel)
	}
	n := exited.NodeB
	if exited.FlowRate < 0 {
		n = exited.NodeA
	}

	if idx, next := firstFullyOccupiedAt(s.Net, d, n); next != nil {
		d.FullyOccupied = append(d.FullyOccupied[:idx], d.FullyOccupied[idx+1:]...)
		placeTail(tail, next, n)
		return nil
	}

	if head := d.Head(); head != nil {
		if hc := s.Net.Channel(head.Channel); hc != nil && (hc.NodeA == n || hc.NodeB == n) && hc.ID != exited.ID {
			placeTail(tail, hc, n)
			return nil
		}
	}

	tail.State = WaitInflow
	return nil
}

func placeTail(tail *Boundary, next *network.Channel, n int) {
	tail.Channel = next.ID
	tail.TowardsNodeA = n == next.NodeB
	if n == next.NodeA {
		tail.Position = 0
	} else {
		tail.Position = 1
	}
	tail.State = Normal
}

func firstFullyOccupiedAt(net *network.Network, d *Droplet, node int) (int, *network.Channel) {
	for i, id := range d.FullyOccupied {
		c := net.Channel(id)
		if c != nil && (c.NodeA == node || c.NodeB == node) {
			return i, c
		}
	}
	return -1, nil
}

// bestOutwardChannel returns the non-bypass channel incident to node,
// other than excludeID, with the largest positive flow directed away
// from node.
func bestOutwardChannel(net *network.Network, node, excludeID int) *network.Channel {
	var best *network.Channel
	var bestFlow float64
	for _, c := range net.ChannelsAt(node) {
		if c.ID == excludeID || c.Kind == network.Bypass {
			continue
		}
		outward := c.FlowRate
		if c.NodeB == node {
			outward = -c.FlowRate
		}
		if outward > bestFlow {
			bestFlow = outward
			best = c
		}
	}
	return best
}

// applyMergeBifurcation combines two droplets meeting at a node from
// different channels into one, conserving volume and blending fluid
// composition by volume (§4.3 "MergeBifurcation"); the merged droplet
// keeps d1's identity and absorbs d2's channel chain behind it.
func (s *Simulator) applyMergeBifurcation(d1, d2 *Droplet, node int) error {
	return s.mergeDroplets(d1, d2)
}

// applyMergeChannel combines two droplets whose boundaries have closed
// to zero separation within a shared channel (§4.3 "MergeChannel").
func (s *Simulator) applyMergeChannel(d1, d2 *Droplet, channel int) error {
	return s.mergeDroplets(d1, d2)
}

// mergeDroplets folds d2 into d1: d1's new head/tail are whichever pair
// of the four boundaries are the outermost extremes of the combined
// chain, every channel either occupied in full or spanned becomes d1's
// FullyOccupied list, and d1's fluid becomes the volume-weighted blend of
// both droplets' fluids (§4.3). d2 is marked Sink (absorbed).
func (s *Simulator) mergeDroplets(d1, d2 *Droplet) error {
	chain := make([]int, 0, len(d1.FullyOccupied)+len(d2.FullyOccupied)+2)
	seen := make(map[int]bool)
	add := func(id int) {
		if !seen[id] {
			seen[id] = true
			chain = append(chain, id)
		}
	}
	if h := d1.Head(); h != nil {
		add(h.Channel)
	}
	for _, id := range d1.FullyOccupied {
		add(id)
	}
	if t := d1.Tail(); t != nil {
		add(t.Channel)
	}
	if h := d2.Head(); h != nil {
		add(h.Channel)
	}
	for _, id := range d2.FullyOccupied {
		add(id)
	}
	if t := d2.Tail(); t != nil {
		add(t.Channel)
	}

	newHead := outermostBoundary(d1.Head(), d2.Head(), d1.Tail(), d2.Tail(), true)
	newTail := outermostBoundary(d1.Head(), d2.Head(), d1.Tail(), d2.Tail(), false)
	if newHead == nil || newTail == nil {
		return simerr.Topologyf("droplet", "cannot determine merged boundaries for droplets #%d and #%d", d1.ID, d2.ID)
	}

	body := make([]int, 0, len(chain))
	for _, id := range chain {
		if id != newHead.Channel && id != newTail.Channel {
			body = append(body, id)
		}
	}

	mixed, err := s.blendFluids(d1.FluidID, d2.FluidID, d1.Volume, d2.Volume)
	if err != nil {
		return err
	}

	d1.Volume += d2.Volume
	d1.FluidID = mixed.ID
	d1.Boundaries = []*Boundary{newHead, newTail}
	d1.FullyOccupied = body
	d2.State = Sink
	d2.Boundaries = nil
	d2.FullyOccupied = nil
	return nil
}

// blendFluids computes the volume-weighted viscosity/density mix of the
// fluids carried into a merge (§4.3 "MergeBifurcation"/"MergeChannel": the
// merged droplet's fluid is the volume-weighted mix of both), registers
// the result as a new fluid, and returns it.
func (s *Simulator) blendFluids(id1, id2 int, v1, v2 float64) (*fluid.Fluid, error) {
	f1, ok := s.Fluids[id1]
	if !ok {
		return nil, simerr.Configurationf("droplet", "merge references unregistered fluid #%d", id1)
	}
	f2, ok := s.Fluids[id2]
	if !ok {
		return nil, simerr.Configurationf("droplet", "merge references unregistered fluid #%d", id2)
	}
	total := v1 + v2
	if total <= 0 {
		return nil, simerr.Configurationf("droplet", "cannot blend fluids #%d and #%d: non-positive combined volume %g", id1, id2, total)
	}
	w1, w2 := v1/total, v2/total
	mixed := &fluid.Fluid{
		ID:        s.nextFluidID,
		Viscosity: w1*f1.Viscosity + w2*f2.Viscosity,
		Density:   w1*f1.Density + w2*f2.Density,
	}
	s.RegisterFluid(mixed)
	return mixed, nil
}

// outermostBoundary picks, among the four candidate boundaries of two
// merging droplets, the new head (wantHead=true) or new tail
// (wantHead=false): the head/tail boundary already marked as such,
// preferring the one whose parked state is Normal (still advancing).
func outermostBoundary(h1, h2, t1, t2 *Boundary, wantHead bool) *Boundary {
	candidates := []*Boundary{h1, h2}
	if !wantHead {
		candidates = []*Boundary{t1, t2}
	}
	var chosen *Boundary
	for _, b := range candidates {
		if b == nil {
			continue
		}
		if chosen == nil || (chosen.State != Normal && b.State == Normal) {
			chosen = b
		}
	}
	return chosen
}
