package graphmixer

import "github.com/chriskillpack/modplayer/ir"

// RenderNode is the minimal shape a processing node must satisfy to sit in
// the graph (machine.Machine satisfies this structurally, keeping this
// package free of a dependency on the machine package).
type RenderNode interface {
	Render(in, out AudioBuffer)
}

// ChannelRenderer renders one tracker-channel node's live voices for the
// current block; the engine supplies this since only it knows the voice
// pool and channel controller.
type ChannelRenderer func(channelIndex int, out AudioBuffer)

// Mixer renders an ir.AudioGraph in topological order, once per BlockSize
// frames, generalizing the teacher's single fixed mixChannels call
// (mixer.go) into an arbitrary per-node render (spec §4.8).
type Mixer struct {
	graph   *ir.Song
	order   []ir.NodeKey
	buffers map[ir.NodeKey]AudioBuffer
	inputs  map[ir.NodeKey]AudioBuffer
	nodes   map[ir.NodeKey]RenderNode

	RenderChannel ChannelRenderer
}

// New builds a Mixer for song's graph, computing the topological order and
// allocating every node's buffer once (setup phase; never called during
// realtime render).
func New(song *ir.Song, nodes map[ir.NodeKey]RenderNode) (*Mixer, error) {
	order, err := song.Graph.TopoOrder()
	if err != nil {
		return nil, err
	}
	m := &Mixer{
		graph:   song,
		order:   order,
		buffers: make(map[ir.NodeKey]AudioBuffer, len(order)),
		inputs:  make(map[ir.NodeKey]AudioBuffer, len(order)),
		nodes:   nodes,
	}
	for _, k := range order {
		n, _ := song.Graph.Node(k)
		outs := n.Channels.Outs
		if outs <= 0 {
			outs = 2
		}
		ins := n.Channels.Ins
		if ins <= 0 {
			ins = 2
		}
		m.buffers[k] = NewAudioBuffer(outs)
		m.inputs[k] = NewAudioBuffer(ins)
	}
	return m, nil
}

// Order returns the graph's precomputed topological node order (spec §9's
// determinism requirement: callers that need to iterate every node once
// per tick, such as the engine ticking its machines, must use this fixed
// order instead of ranging over a map).
func (m *Mixer) Order() []ir.NodeKey { return m.order }

// RenderBlock clears every node's buffer, then walks the topological order
// once: accumulating each node's inputs from its incoming connections'
// already-rendered source buffers, running the node, and finally returning
// Master's output buffer.
func (m *Mixer) RenderBlock() AudioBuffer {
	for _, k := range m.order {
		m.buffers[k].Clear()
	}

	for _, k := range m.order {
		inBuf := m.inputs[k]
		inBuf.Clear()
		for _, c := range m.graph.Graph.Connections() {
			if c.To != k {
				continue
			}
			src := m.buffers[c.From]
			gain := float32(c.Gain) / float32(ir.UnityGain)
			inBuf.AddScaled(src, gain)
		}

		node, _ := m.graph.Graph.Node(k)
		out := m.buffers[k]

		switch {
		case node.Type == ir.NodeMaster:
			copyInto(out, inBuf)
		case node.Type == ir.NodeTrackerChannel && m.RenderChannel != nil:
			m.RenderChannel(node.TrackerChannelIndex, out)
		case node.Bypass:
			copyInto(out, inBuf)
		default:
			if rn, ok := m.nodes[k]; ok {
				rn.Render(inBuf, out)
			} else {
				copyInto(out, inBuf)
			}
		}
	}
	return m.buffers[m.graph.Graph.Master()]
}

func copyInto(dst, src AudioBuffer) {
	for c := range dst.Channels {
		if c < len(src.Channels) {
			copy(dst.Channels[c], src.Channels[c])
		}
	}
}
