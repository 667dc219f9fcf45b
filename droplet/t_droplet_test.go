package droplet

import (
	"testing"

	"github.com/cda-tum/mmft-simulator-sub000/fluid"
	"github.com/cda-tum/mmft-simulator-sub000/mna"
	"github.com/cda-tum/mmft-simulator-sub000/network"
	"github.com/cda-tum/mmft-simulator-sub000/resistance"
	"github.com/cpmech/gosl/chk"
)

// triangleNetwork builds a 3-node loop (0 -> 1 -> 2 -> 0) fed by a
// pressure pump from ground into node 0 and drained back to ground from
// node 2, with every channel the same size so flow direction is
// unambiguous: node 0 -> node 1 carries the largest outward flow at the
// injection node, giving the droplet's head a single correct choice.
func triangleNetwork() *network.Network {
	net := network.New()
	ground := network.NewNode(-1, 0, 0)
	ground.Ground = true
	net.AddNode(ground)
	net.AddNode(network.NewNode(0, 0, 0))
	net.AddNode(network.NewNode(1, 1, 0))
	net.AddNode(network.NewNode(2, 2, 0))

	mk := func(id, a, b int) *network.Channel {
		return &network.Channel{ID: id, NodeA: a, NodeB: b, Height: 1e-4, Width: 1e-4, Length: 1e-2, ResistanceIntrinsic: 1e10}
	}
	net.AddChannel(mk(0, 0, 1))
	net.AddChannel(mk(1, 1, 2))
	net.AddChannel(mk(2, 2, 0)) // closes the loop, low flow relative to 0->1->2

	net.AddPressurePump(&network.PressurePump{ID: 0, NodeA: -1, NodeB: 0, Pressure: 100})
	net.AddFlowRatePump(&network.FlowRatePump{ID: 0, NodeA: 2, NodeB: -1, FlowRate: 1e-9})
	return net
}

func Test_injection_validity(tst *testing.T) {
	chk.PrintTitle("injection validity")

	net := triangleNetwork()
	model, err := resistance.New("1d", 1e-3)
	if err != nil {
		tst.Errorf("resistance.New failed: %v", err)
		return
	}
	sim := New(net, mna.New(), model, 1000, 10)

	d := &Droplet{ID: 0, Volume: 5e-10, FluidID: 0, State: Injection}
	sim.AddDroplet(d)
	inj := &Injection{ID: 0, DropletID: 0, Channel: 0, Time: 0, Position: 0.5}
	sim.AddInjection(inj)

	if err := sim.applyInjection(inj); err != nil {
		tst.Errorf("applyInjection failed: %v", err)
		return
	}
	chk.IntAssert(len(d.Boundaries), 2)
	head, tail := d.Head(), d.Tail()
	if head.Position <= tail.Position {
		tst.Errorf("expected head.Position > tail.Position, got head=%g tail=%g", head.Position, tail.Position)
	}
	if head.Position < 0 || head.Position > 1 || tail.Position < 0 || tail.Position > 1 {
		tst.Errorf("boundary positions out of [0,1]: head=%g tail=%g", head.Position, tail.Position)
	}
}

func Test_injection_does_not_fit(tst *testing.T) {
	chk.PrintTitle("injection too large for channel")

	net := triangleNetwork()
	model, _ := resistance.New("1d", 1e-3)
	sim := New(net, mna.New(), model, 1000, 10)

	c := net.Channel(0)
	d := &Droplet{ID: 0, Volume: 2 * c.Volume(), FluidID: 0, State: Injection}
	sim.AddDroplet(d)
	inj := &Injection{ID: 0, DropletID: 0, Channel: 0, Time: 0, Position: 0.5}

	if err := sim.applyInjection(inj); err == nil {
		tst.Errorf("expected an error injecting a droplet larger than its channel")
	}
}

func Test_droplet_volume_conserved_across_step(tst *testing.T) {
	chk.PrintTitle("droplet volume conserved across a step")

	net := triangleNetwork()
	model, err := resistance.New("1d", 1e-3)
	if err != nil {
		tst.Errorf("resistance.New failed: %v", err)
		return
	}
	sim := New(net, mna.New(), model, 1000, 1e6)

	d := &Droplet{ID: 0, Volume: 5e-10, FluidID: 0, State: Injection}
	sim.AddDroplet(d)
	inj := &Injection{ID: 0, DropletID: 0, Channel: 0, Time: 0, Position: 0.5}
	sim.AddInjection(inj)

	initialVolume := d.Volume
	for i := 0; i < 8 && !sim.Done(); i++ {
		ev, err := sim.Step()
		if err != nil {
			tst.Errorf("Step %d failed: %v", i, err)
			return
		}
		if ev == nil {
			break
		}
		if d.State != Sink {
			if d.Volume != initialVolume {
				tst.Errorf("droplet volume changed outside a merge/sink transition: %g != %g", d.Volume, initialVolume)
			}
			for _, b := range d.Boundaries {
				if b.Position < 0 || b.Position > 1 {
					tst.Errorf("boundary position left [0,1]: %g", b.Position)
				}
			}
		}
	}
}

func Test_droplet_volume_in_channel_fully_occupied(tst *testing.T) {
	chk.PrintTitle("DropletVolumeInChannel: fully occupied channel")

	net := triangleNetwork()
	c := net.Channel(1)
	d := &Droplet{
		ID:            0,
		Volume:        c.Volume(),
		FullyOccupied: []int{1},
		Boundaries: []*Boundary{
			{Channel: 0, Position: 0.9, TowardsNodeA: true, IsHead: true},
			{Channel: 2, Position: 0.1, TowardsNodeA: false, IsHead: false},
		},
	}
	vol := DropletVolumeInChannel(d, c)
	chk.Scalar(tst, "fully occupied volume", 1e-15, vol, c.Volume())
}

func Test_merge_droplets_blends_fluid_by_volume(tst *testing.T) {
	chk.PrintTitle("mergeDroplets: merged fluid is the volume-weighted mix of both droplets' fluids")

	net := triangleNetwork()
	model, _ := resistance.New("1d", 1e-3)
	sim := New(net, mna.New(), model, 1000, 10)

	sim.RegisterFluid(&fluid.Fluid{ID: 0, Viscosity: 1e-3, Density: 1000})
	sim.RegisterFluid(&fluid.Fluid{ID: 1, Viscosity: 5e-3, Density: 1200})

	d1 := &Droplet{
		ID: 0, Volume: 3e-10, FluidID: 0, State: InNetwork,
		Boundaries: []*Boundary{
			{Channel: 0, Position: 0.8, TowardsNodeA: true, IsHead: true, State: Normal},
			{Channel: 0, Position: 0.2, TowardsNodeA: false, IsHead: false, State: Normal},
		},
	}
	d2 := &Droplet{
		ID: 1, Volume: 1e-10, FluidID: 1, State: InNetwork,
		Boundaries: []*Boundary{
			{Channel: 1, Position: 0.9, TowardsNodeA: true, IsHead: true, State: Normal},
			{Channel: 1, Position: 0.1, TowardsNodeA: false, IsHead: false, State: Normal},
		},
	}
	sim.AddDroplet(d1)
	sim.AddDroplet(d2)

	if err := sim.mergeDroplets(d1, d2); err != nil {
		tst.Errorf("mergeDroplets failed: %v", err)
		return
	}

	chk.Scalar(tst, "merged volume", 1e-15, d1.Volume, 4e-10)
	if d2.State != Sink {
		tst.Errorf("expected d2 to be absorbed into Sink, got %s", d2.State)
	}

	mixed, ok := sim.Fluids[d1.FluidID]
	if !ok {
		tst.Errorf("expected merge to register a new blended fluid under d1.FluidID=%d", d1.FluidID)
		return
	}
	chk.Scalar(tst, "blended viscosity (0.75*1e-3 + 0.25*5e-3)", 1e-12, mixed.Viscosity, 2e-3)
	chk.Scalar(tst, "blended density (0.75*1000 + 0.25*1200)", 1e-9, mixed.Density, 1050)
}

func Test_droplet_volume_in_channel_single_boundary(tst *testing.T) {
	chk.PrintTitle("DropletVolumeInChannel: single boundary fraction")

	net := triangleNetwork()
	c := net.Channel(0)
	d := &Droplet{
		Volume: 0.3 * c.Volume(),
		Boundaries: []*Boundary{
			{Channel: 0, Position: 0.3, TowardsNodeA: true, IsHead: true},
			{Channel: 2, Position: 0.9, TowardsNodeA: false, IsHead: false},
		},
	}
	vol := DropletVolumeInChannel(d, c)
	chk.Scalar(tst, "single-boundary volume", 1e-15, vol, 0.3*c.Volume())
}
