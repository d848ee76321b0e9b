package ir

import "fmt"

// NodeType discriminates what an AudioGraph Node actually is.
type NodeType int

const (
	NodeMaster NodeType = iota
	NodeTrackerChannel
	NodeMachine
	NodePassthrough
)

// ChannelConfig describes a node's input/output channel counts.
type ChannelConfig struct {
	Ins  int
	Outs int
}

// Node is one vertex of the AudioGraph.
type Node struct {
	Type NodeType

	TrackerChannelIndex int    // valid when Type == NodeTrackerChannel
	MachineName         string // valid when Type == NodeMachine or NodePassthrough

	Params  map[int]int32
	Bypass  bool
	Channels ChannelConfig
}

// UnityGain is the fixed-point linear multiplier a "neutral wire" encodes
// (spec §3: "0x4000 encodes unity" for the BMX dialect; we use the same
// constant so gains round-trip cleanly through either format's loader).
const UnityGain int32 = 0x4000

// Connection is a directed, gain-scaled edge between two graph nodes.
type Connection struct {
	From, To           NodeKey
	FromChannel, ToChannel int
	Gain               int32 // fixed point, UnityGain == 1.0
}

// AudioGraph is a node graph with exactly one Master node; every node
// must reach Master and cycles are forbidden (spec §3 Invariants).
type AudioGraph struct {
	nodes       *SlotMap[Node]
	connections []Connection
	master      NodeKey
}

// NewAudioGraph builds an empty graph with its single Master node already
// inserted.
func NewAudioGraph() *AudioGraph {
	g := &AudioGraph{nodes: NewSlotMap[Node]()}
	g.master = g.nodes.Insert(Node{Type: NodeMaster, Channels: ChannelConfig{Ins: 2, Outs: 2}})
	return g
}

// Master returns the graph's single terminal sink node.
func (g *AudioGraph) Master() NodeKey { return g.master }

// AddNode inserts a new non-Master node and returns its key.
func (g *AudioGraph) AddNode(n Node) (NodeKey, error) {
	if n.Type == NodeMaster {
		return Nil, fmt.Errorf("ir: a graph may only have one Master node")
	}
	return g.nodes.Insert(n), nil
}

// Node resolves a NodeKey; ok is false if it doesn't exist.
func (g *AudioGraph) Node(k NodeKey) (Node, bool) {
	return g.nodes.Get(k)
}

// SetNode overwrites a node in place (used by edit commands, e.g.
// toggling Bypass or updating Params).
func (g *AudioGraph) SetNode(k NodeKey, n Node) bool {
	return g.nodes.Set(k, n)
}

// Connect adds a directed edge from -> to. Returns an error if either
// endpoint doesn't resolve, or if the edge would introduce a cycle.
func (g *AudioGraph) Connect(c Connection) error {
	if _, ok := g.nodes.Get(c.From); !ok {
		return fmt.Errorf("ir: connection source %v does not resolve", c.From)
	}
	if _, ok := g.nodes.Get(c.To); !ok {
		return fmt.Errorf("ir: connection destination %v does not resolve", c.To)
	}
	trial := append(append([]Connection{}, g.connections...), c)
	if _, err := topoSort(g.nodes, trial, g.master); err != nil {
		return err
	}
	g.connections = trial
	return nil
}

// Connections returns every edge currently in the graph.
func (g *AudioGraph) Connections() []Connection {
	return g.connections
}

// AllNodeKeys returns every node key currently present, in insertion
// order (used by engine setup to precompute buffers and topo order).
func (g *AudioGraph) AllNodeKeys() []NodeKey {
	keys := make([]NodeKey, 0, g.nodes.Len())
	for idx := 0; idx < len(g.nodes.slots); idx++ {
		s := &g.nodes.slots[idx]
		if s.used {
			keys = append(keys, Key{Index: uint32(idx), Gen: s.gen})
		}
	}
	return keys
}

// TopoOrder returns nodes in an order where every connection's source
// appears before its destination, with Master last. Returns an error if
// the graph has a cycle or some node has no path to Master (an empty
// graph with only Master is valid).
func (g *AudioGraph) TopoOrder() ([]NodeKey, error) {
	order, err := topoSort(g.nodes, g.connections, g.master)
	if err != nil {
		return nil, err
	}
	reaches := map[NodeKey]bool{g.master: true}
	for i := len(order) - 1; i >= 0; i-- {
		for _, c := range g.connections {
			if c.From == order[i] && reaches[c.To] {
				reaches[order[i]] = true
			}
		}
	}
	for _, k := range order {
		if !reaches[k] {
			return nil, fmt.Errorf("ir: node %v does not reach Master", k)
		}
	}
	return order, nil
}

func topoSort(nodes *SlotMap[Node], conns []Connection, master NodeKey) ([]NodeKey, error) {
	indeg := map[NodeKey]int{}
	adj := map[NodeKey][]NodeKey{}
	all := []NodeKey{}
	for idx := 0; idx < len(nodes.slots); idx++ {
		s := &nodes.slots[idx]
		if !s.used {
			continue
		}
		k := Key{Index: uint32(idx), Gen: s.gen}
		all = append(all, k)
		indeg[k] = 0
	}
	for _, c := range conns {
		adj[c.From] = append(adj[c.From], c.To)
		indeg[c.To]++
	}

	var queue []NodeKey
	for _, k := range all {
		if indeg[k] == 0 {
			queue = append(queue, k)
		}
	}

	var order []NodeKey
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		order = append(order, n)
		for _, next := range adj[n] {
			indeg[next]--
			if indeg[next] == 0 {
				queue = append(queue, next)
			}
		}
	}

	if len(order) != len(all) {
		return nil, fmt.Errorf("ir: audio graph contains a cycle")
	}

	// Move Master to the end; it should naturally sort last (nothing
	// connects out of it in a well-formed graph) but enforce it.
	final := make([]NodeKey, 0, len(order))
	for _, k := range order {
		if k != master {
			final = append(final, k)
		}
	}
	final = append(final, master)
	return final, nil
}
