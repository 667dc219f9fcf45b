package result

import (
	"testing"

	"github.com/cda-tum/mmft-simulator-sub000/droplet"
	"github.com/cda-tum/mmft-simulator-sub000/mna"
	"github.com/cda-tum/mmft-simulator-sub000/network"
	"github.com/cda-tum/mmft-simulator-sub000/resistance"
	"github.com/cpmech/gosl/chk"
)

func simpleNetwork() *network.Network {
	net := network.New()
	ground := network.NewNode(-1, 1, 0)
	ground.Ground = true
	net.AddNode(ground)
	net.AddNode(network.NewNode(0, 0, 0))
	net.AddChannel(&network.Channel{ID: 0, NodeA: 0, NodeB: -1, Height: 1e-4, Width: 1e-4, Length: 1e-2, ResistanceIntrinsic: 1e10})
	net.AddPressurePump(&network.PressurePump{ID: 0, NodeA: -1, NodeB: 0, Pressure: 100})
	return net
}

func Test_capture_base_records_pressure_and_flow(tst *testing.T) {
	chk.PrintTitle("result: base capture records node pressure and channel flow")

	net := simpleNetwork()
	if err := mna.New().Solve(net); err != nil {
		tst.Errorf("Solve failed: %v", err)
		return
	}
	snap := CaptureBase(net, 0)
	chk.Scalar(tst, "node 0 pressure", 1e-9, snap.Pressures[0], 100)
	if _, ok := snap.FlowRates[0]; !ok {
		tst.Errorf("expected channel 0's flow rate to be captured")
	}
}

func Test_log_append_and_last(tst *testing.T) {
	chk.PrintTitle("result: log keeps the most recent snapshot")

	log := NewLog(nil)
	if _, ok := log.Last(); ok {
		tst.Errorf("expected an empty log to report no last snapshot")
	}
	log.Append(Snapshot{Time: 0})
	log.Append(Snapshot{Time: 1})
	last, ok := log.Last()
	if !ok || last.Time != 1 {
		tst.Errorf("expected the last snapshot to be at time 1, got %v ok=%v", last.Time, ok)
	}
}

func Test_capture_droplets_skips_non_network_states(tst *testing.T) {
	chk.PrintTitle("result: droplet capture only includes in-network/trapped droplets")

	net := simpleNetwork()
	model, err := resistance.New("1d", 1e-3)
	if err != nil {
		tst.Errorf("resistance.New failed: %v", err)
		return
	}
	sim := droplet.New(net, mna.New(), model, 10, 10)
	d1 := &droplet.Droplet{ID: 0, Volume: 1e-11, FluidID: 0, State: droplet.InNetwork,
		Boundaries: []*droplet.Boundary{{Channel: 0, Position: 0.2, IsHead: true}, {Channel: 0, Position: 0.1}}}
	d2 := &droplet.Droplet{ID: 1, Volume: 1e-11, FluidID: 0, State: droplet.Sink}
	sim.AddDroplet(d1)
	sim.AddDroplet(d2)

	var snap Snapshot
	CaptureDroplets(&snap, sim)
	if _, ok := snap.Droplets[0]; !ok {
		tst.Errorf("expected the in-network droplet to be captured")
	}
	if _, ok := snap.Droplets[1]; ok {
		tst.Errorf("expected the sunk droplet to be excluded")
	}
}
