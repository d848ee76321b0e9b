package graphmixer

import (
	"testing"

	"github.com/chriskillpack/modplayer/ir"
)

func twoChannelGraphSong(t *testing.T) (*ir.Song, ir.NodeKey, ir.NodeKey) {
	t.Helper()
	g := ir.NewAudioGraph()
	ch0, err := g.AddNode(ir.Node{Type: ir.NodeTrackerChannel, TrackerChannelIndex: 0, Channels: ir.ChannelConfig{Ins: 2, Outs: 2}})
	if err != nil {
		t.Fatalf("AddNode ch0: %v", err)
	}
	ch1, err := g.AddNode(ir.Node{Type: ir.NodeTrackerChannel, TrackerChannelIndex: 1, Channels: ir.ChannelConfig{Ins: 2, Outs: 2}})
	if err != nil {
		t.Fatalf("AddNode ch1: %v", err)
	}
	if err := g.Connect(ir.Connection{From: ch0, To: g.Master(), Gain: ir.UnityGain}); err != nil {
		t.Fatalf("connect ch0: %v", err)
	}
	if err := g.Connect(ir.Connection{From: ch1, To: g.Master(), Gain: ir.UnityGain / 2}); err != nil {
		t.Fatalf("connect ch1: %v", err)
	}
	return &ir.Song{Graph: g}, ch0, ch1
}

// TestTopoOrderEndsWithMaster grounds spec §8 property 8: topological
// order always places Master last, and every node appears exactly once.
func TestTopoOrderEndsWithMaster(t *testing.T) {
	song, _, _ := twoChannelGraphSong(t)
	m, err := New(song, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	order := m.Order()
	if len(order) != 3 {
		t.Fatalf("order has %d nodes, want 3", len(order))
	}
	if order[len(order)-1] != song.Graph.Master() {
		t.Fatalf("last node in order = %v, want Master %v", order[len(order)-1], song.Graph.Master())
	}
}

// TestRenderBlockSumsChannelsAtGraphGain exercises the graph-sum
// cross-check of spec §8 property 8: Master's output equals the
// gain-weighted sum of every upstream node's output.
func TestRenderBlockSumsChannelsAtGraphGain(t *testing.T) {
	song, _, _ := twoChannelGraphSong(t)
	m, err := New(song, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	m.RenderChannel = func(channelIndex int, out AudioBuffer) {
		v := float32(channelIndex + 1) // channel 0 -> 1.0, channel 1 -> 2.0
		fill(out.Channels[0], v)
		fill(out.Channels[1], v)
	}

	master := m.RenderBlock()
	// channel0 contributes 1.0 at unity gain, channel1 contributes 2.0 at
	// half gain: 1.0 + 2.0*0.5 = 2.0
	want := float32(2.0)
	if got := master.Channels[0][0]; got != want {
		t.Fatalf("master left = %v, want %v", got, want)
	}
	if got := master.Channels[1][0]; got != want {
		t.Fatalf("master right = %v, want %v", got, want)
	}
}

// TestRenderBlockClearsBetweenCalls ensures no render-path allocation
// trick leaves stale energy from a previous block once a channel goes
// silent (spec §4.8/§9's allocation-free, repeatable render contract).
func TestRenderBlockClearsBetweenCalls(t *testing.T) {
	song, _, _ := twoChannelGraphSong(t)
	m, err := New(song, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	loud := true
	m.RenderChannel = func(channelIndex int, out AudioBuffer) {
		if loud {
			fill(out.Channels[0], 5)
			fill(out.Channels[1], 5)
		}
	}

	first := m.RenderBlock()
	if first.Channels[0][0] == 0 {
		t.Fatalf("expected non-zero output on first block")
	}

	loud = false
	second := m.RenderBlock()
	if second.Channels[0][0] != 0 {
		t.Fatalf("master left = %v after silent block, want 0 (stale energy not cleared)", second.Channels[0][0])
	}
}

func TestBypassNodeCopiesInputToOutput(t *testing.T) {
	g := ir.NewAudioGraph()
	passKey, err := g.AddNode(ir.Node{Type: ir.NodePassthrough, Bypass: true, Channels: ir.ChannelConfig{Ins: 2, Outs: 2}})
	if err != nil {
		t.Fatalf("AddNode: %v", err)
	}
	ch0, err := g.AddNode(ir.Node{Type: ir.NodeTrackerChannel, Channels: ir.ChannelConfig{Ins: 2, Outs: 2}})
	if err != nil {
		t.Fatalf("AddNode ch0: %v", err)
	}
	if err := g.Connect(ir.Connection{From: ch0, To: passKey, Gain: ir.UnityGain}); err != nil {
		t.Fatalf("connect ch0->pass: %v", err)
	}
	if err := g.Connect(ir.Connection{From: passKey, To: g.Master(), Gain: ir.UnityGain}); err != nil {
		t.Fatalf("connect pass->master: %v", err)
	}

	song := &ir.Song{Graph: g}
	m, err := New(song, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	m.RenderChannel = func(channelIndex int, out AudioBuffer) {
		fill(out.Channels[0], 3)
		fill(out.Channels[1], 3)
	}

	master := m.RenderBlock()
	if master.Channels[0][0] != 3 {
		t.Fatalf("master left through bypass node = %v, want 3", master.Channels[0][0])
	}
}
