package orchestrator

import (
	"testing"

	"github.com/cda-tum/mmft-simulator-sub000/droplet"
	"github.com/cda-tum/mmft-simulator-sub000/mna"
	"github.com/cda-tum/mmft-simulator-sub000/network"
	"github.com/cda-tum/mmft-simulator-sub000/resistance"
	"github.com/stretchr/testify/assert"
)

func lineNetwork() *network.Network {
	net := network.New()
	ground := network.NewNode(-1, 1, 0)
	ground.Ground = true
	net.AddNode(ground)
	net.AddNode(network.NewNode(0, 0, 0))
	net.AddChannel(&network.Channel{ID: 0, NodeA: 0, NodeB: -1, Height: 1e-4, Width: 1e-4, Length: 1e-2, ResistanceIntrinsic: 1e10})
	net.AddPressurePump(&network.PressurePump{ID: 0, NodeA: -1, NodeB: 0, Pressure: 100})
	return net
}

func Test_orchestrator_rejects_missing_model(tst *testing.T) {
	net := lineNetwork()
	_, err := New(net, mna.New(), nil, AbstractContinuous, 10, 1)
	assert.Error(tst, err)
}

func Test_orchestrator_rejects_hybrid_with_non_poiseuille(tst *testing.T) {
	net := lineNetwork()
	model, err := resistance.New("1d", 1e-3)
	assert.NoError(tst, err)
	_, err = New(net, mna.New(), model, HybridContinuous, 10, 1)
	assert.Error(tst, err)
}

func Test_orchestrator_continuous_mode_runs_one_solve(tst *testing.T) {
	net := lineNetwork()
	model, err := resistance.New("1d", 1e-3)
	assert.NoError(tst, err)
	o, err := New(net, mna.New(), model, AbstractContinuous, 5, 1)
	assert.NoError(tst, err)

	err = o.Run()
	assert.NoError(tst, err)
	assert.Equal(tst, 1, o.Iterations)
	assert.InDelta(tst, 100.0, net.Node(0).Pressure, 1e-6)
}

func Test_orchestrator_big_droplet_mode_drives_engine(tst *testing.T) {
	net := lineNetwork()
	model, err := resistance.New("1d", 1e-3)
	assert.NoError(tst, err)

	o, err := New(net, mna.New(), model, AbstractBigDroplet, 50, 10)
	assert.NoError(tst, err)
	o.DropletEngine = droplet.New(net, mna.New(), model, 50, 10)

	d := &droplet.Droplet{ID: 0, Volume: 1e-11, FluidID: 0, State: droplet.Injection}
	o.DropletEngine.AddDroplet(d)
	o.DropletEngine.AddInjection(&droplet.Injection{ID: 0, DropletID: 0, Channel: 0, Time: 0, Position: 0.1})

	err = o.Run()
	assert.NoError(tst, err)
	assert.True(tst, o.Done())
}

func Test_orchestrator_runtime_limit_exceeded(tst *testing.T) {
	net := lineNetwork()
	model, err := resistance.New("1d", 1e-3)
	assert.NoError(tst, err)
	o, err := New(net, mna.New(), model, AbstractBigDroplet, 1, 10)
	assert.NoError(tst, err)
	// DropletEngine's own budget is generous: the orchestrator's tighter
	// MaxIterations=1 must be what halts the loop, not the engine's own.
	o.DropletEngine = droplet.New(net, mna.New(), model, 1000, 10)

	d := &droplet.Droplet{ID: 0, Volume: 1e-11, FluidID: 0, State: droplet.Injection}
	o.DropletEngine.AddDroplet(d)
	o.DropletEngine.AddInjection(&droplet.Injection{ID: 0, DropletID: 0, Channel: 0, Time: 0, Position: 0.1})
	// force a second injection far in the future so Done() never reports
	// true on its own and the iteration cap is what halts the loop.
	o.DropletEngine.AddInjection(&droplet.Injection{ID: 1, DropletID: 0, Channel: 0, Time: 1e6, Position: 0.2})

	err = o.Run()
	assert.Error(tst, err)
}
