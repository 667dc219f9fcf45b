package network

import (
	"testing"

	"github.com/cpmech/gosl/chk"
)

func Test_duplicate_node_id_panics(tst *testing.T) {
	chk.PrintTitle("network: duplicate node id panics")

	defer func() {
		if r := recover(); r == nil {
			tst.Errorf("expected a panic on duplicate node id")
		}
	}()

	net := New()
	net.AddNode(NewNode(0, 0, 0))
	net.AddNode(NewNode(0, 1, 1))
}

func Test_channels_at_returns_incident_channels_in_insertion_order(tst *testing.T) {
	chk.PrintTitle("network: ChannelsAt returns incident channels in insertion order")

	net := New()
	net.AddNode(NewNode(0, 0, 0))
	net.AddNode(NewNode(1, 1, 0))
	net.AddNode(NewNode(2, 2, 0))
	net.AddChannel(&Channel{ID: 0, NodeA: 0, NodeB: 1, Height: 1e-4, Width: 1e-4, Length: 1e-2, ResistanceIntrinsic: 1})
	net.AddChannel(&Channel{ID: 1, NodeA: 1, NodeB: 2, Height: 1e-4, Width: 1e-4, Length: 1e-2, ResistanceIntrinsic: 1})

	at1 := net.ChannelsAt(1)
	if len(at1) != 2 {
		tst.Errorf("expected 2 channels incident to node 1, got %d", len(at1))
		return
	}
	chk.Ints(tst, "channel ids at node 1", []int{at1[0].ID, at1[1].ID}, []int{0, 1})

	at0 := net.ChannelsAt(0)
	if len(at0) != 1 || at0[0].ID != 0 {
		tst.Errorf("expected only channel 0 incident to node 0")
	}
}

func Test_build_groups_splits_disconnected_components(tst *testing.T) {
	chk.PrintTitle("network: BuildGroups splits disconnected components and marks ground groups")

	net := New()
	ground := NewNode(-1, 0, 0)
	ground.Ground = true
	net.AddNode(ground)
	net.AddNode(NewNode(0, 1, 0))
	net.AddNode(NewNode(1, 2, 0))
	net.AddChannel(&Channel{ID: 0, NodeA: -1, NodeB: 0, Height: 1e-4, Width: 1e-4, Length: 1e-2, ResistanceIntrinsic: 1})

	// nodes 1 and 2 form their own, ungrounded group
	net.AddNode(NewNode(2, 3, 0))
	net.AddChannel(&Channel{ID: 1, NodeA: 1, NodeB: 2, Height: 1e-4, Width: 1e-4, Length: 1e-2, ResistanceIntrinsic: 1})

	net.BuildGroups()
	groups := net.Groups()
	if len(groups) != 2 {
		tst.Errorf("expected 2 groups, got %d", len(groups))
		return
	}

	groundGroup := net.GroupOf(-1)
	if groundGroup == nil || !groundGroup.Grounded {
		tst.Errorf("expected the ground node's group to be marked Grounded")
	}

	otherGroup := net.GroupOf(1)
	if otherGroup == nil || otherGroup.Grounded {
		tst.Errorf("expected node 1's group to be ungrounded")
	}
	if otherGroup.Initialized {
		tst.Errorf("expected an ungrounded, never-solved group to start uninitialized")
	}
}

func Test_build_groups_preserves_bootstrap_state_across_rebuilds(tst *testing.T) {
	chk.PrintTitle("network: BuildGroups preserves Initialized/GroundNodeID when the node set is unchanged")

	net := New()
	net.AddNode(NewNode(0, 0, 0))
	net.AddNode(NewNode(1, 1, 0))
	net.AddChannel(&Channel{ID: 0, NodeA: 0, NodeB: 1, Height: 1e-4, Width: 1e-4, Length: 1e-2, ResistanceIntrinsic: 1})

	net.BuildGroups()
	g := net.Groups()[0]
	g.Initialized = true
	g.GroundNodeID = 1

	net.BuildGroups()
	g2 := net.GroupOf(0)
	if !g2.Initialized || g2.GroundNodeID != 1 {
		tst.Errorf("expected bootstrap state to survive a rebuild with the same node set")
	}
}

func Test_validate_rejects_dangling_channel(tst *testing.T) {
	chk.PrintTitle("network: Validate rejects a channel referencing an unknown node")

	net := New()
	net.AddNode(NewNode(0, 0, 0))
	net.AddChannel(&Channel{ID: 0, NodeA: 0, NodeB: 99, Height: 1e-4, Width: 1e-4, Length: 1e-2, ResistanceIntrinsic: 1})

	if err := net.Validate(); err == nil {
		tst.Errorf("expected Validate to reject a dangling channel")
	}
}

func Test_validate_rejects_opening_outside_module_rectangle(tst *testing.T) {
	chk.PrintTitle("network: Validate rejects an opening node outside its module rectangle")

	net := New()
	net.AddNode(NewNode(0, 100, 100)) // far outside the module below
	m := NewModule(0, 0, 0, 1, 1)
	m.AddOpening(0, [2]float64{1, 0}, 1e-4)
	net.AddModule(m)

	if err := net.Validate(); err == nil {
		tst.Errorf("expected Validate to reject an opening node outside its module rectangle")
	}
}

func Test_validate_accepts_well_formed_network(tst *testing.T) {
	chk.PrintTitle("network: Validate accepts a well-formed network with a module")

	net := New()
	net.AddNode(NewNode(0, 0.5, 0.5))
	m := NewModule(0, 0, 0, 1, 1)
	m.AddOpening(0, [2]float64{1, 0}, 1e-4)
	net.AddModule(m)

	if err := net.Validate(); err != nil {
		tst.Errorf("expected Validate to accept a well-formed network, got %v", err)
	}
}
