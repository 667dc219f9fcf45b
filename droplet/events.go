package droplet

import (
	"github.com/cpmech/gosl/io"
)

// Event is one admissible state transition the simulator may apply next
// (§4.3 "Events"). Time is a delta from the simulator's current clock,
// not an absolute timestamp.
type Event interface {
	Time() float64
	Priority() int
	Apply(s *Simulator) error
	String() string
}

// byTimeThenPriority orders events the way the main loop picks its head:
// earliest time first, ties broken by ascending priority (§4.3 "Ordering").
func byTimeThenPriority(a, b Event) bool {
	if a.Time() != b.Time() {
		return a.Time() < b.Time()
	}
	return a.Priority() < b.Priority()
}

// injectionEvent fires a pending Injection once its time has arrived
// (priority 1).
type injectionEvent struct {
	dt  float64
	inj *Injection
}

func (e *injectionEvent) Time() float64     { return e.dt }
func (e *injectionEvent) Priority() int     { return 1 }
func (e *injectionEvent) String() string    { return io.Sf("injection of droplet #%d", e.inj.DropletID) }
func (e *injectionEvent) Apply(s *Simulator) error {
	return s.applyInjection(e.inj)
}

// boundaryHeadEvent fires when a droplet's leading boundary reaches the
// end of its channel (priority 1).
type boundaryHeadEvent struct {
	dt float64
	d  *Droplet
	b  *Boundary
}

func (e *boundaryHeadEvent) Time() float64  { return e.dt }
func (e *boundaryHeadEvent) Priority() int  { return 1 }
func (e *boundaryHeadEvent) String() string {
	return io.Sf("head of droplet #%d reaches end of channel #%d", e.d.ID, e.b.Channel)
}
func (e *boundaryHeadEvent) Apply(s *Simulator) error {
	return s.applyBoundaryHead(e.d, e.b)
}

// boundaryTailEvent fires when a droplet's trailing boundary reaches the
// end of its channel (priority 1).
type boundaryTailEvent struct {
	dt float64
	d  *Droplet
	b  *Boundary
}

func (e *boundaryTailEvent) Time() float64  { return e.dt }
func (e *boundaryTailEvent) Priority() int  { return 1 }
func (e *boundaryTailEvent) String() string {
	return io.Sf("tail of droplet #%d reaches end of channel #%d", e.d.ID, e.b.Channel)
}
func (e *boundaryTailEvent) Apply(s *Simulator) error {
	return s.applyBoundaryTail(e.d, e.b)
}

// mergeBifurcationEvent fires when two droplets' boundaries meet at the
// same node without sharing a channel (priority 0, ahead of ordinary
// boundary arrivals so merges are resolved before further motion).
type mergeBifurcationEvent struct {
	dt     float64
	d1, d2 *Droplet
	node   int
}

func (e *mergeBifurcationEvent) Time() float64 { return e.dt }
func (e *mergeBifurcationEvent) Priority() int { return 0 }
func (e *mergeBifurcationEvent) String() string {
	return io.Sf("droplets #%d and #%d merge at node #%d", e.d1.ID, e.d2.ID, e.node)
}
func (e *mergeBifurcationEvent) Apply(s *Simulator) error {
	return s.applyMergeBifurcation(e.d1, e.d2, e.node)
}

// mergeChannelEvent fires when two droplets share a channel and their
// boundaries close to zero separation (priority 0).
type mergeChannelEvent struct {
	dt      float64
	d1, d2  *Droplet
	channel int
}

func (e *mergeChannelEvent) Time() float64 { return e.dt }
func (e *mergeChannelEvent) Priority() int { return 0 }
func (e *mergeChannelEvent) String() string {
	return io.Sf("droplets #%d and #%d merge within channel #%d", e.d1.ID, e.d2.ID, e.channel)
}
func (e *mergeChannelEvent) Apply(s *Simulator) error {
	return s.applyMergeChannel(e.d1, e.d2, e.channel)
}

// timeStepEvent caps the clock advance between other events, so long
// intervals without any boundary or injection arrival still get a
// snapshot at a bounded cadence (priority 2, lowest: it only fires when
// nothing else would happen sooner).
type timeStepEvent struct {
	dt float64
}

func (e *timeStepEvent) Time() float64      { return e.dt }
func (e *timeStepEvent) Priority() int      { return 2 }
func (e *timeStepEvent) String() string     { return "time step" }
func (e *timeStepEvent) Apply(s *Simulator) error { return nil }
