package ir

// ChannelDefaults is one song-level channel's default playback state
// (spec §3 Song: "per-channel defaults: pan, volume, mute").
type ChannelDefaults struct {
	Pan    int // -64..+64
	Volume int // 0-64
	Mute   bool
}

// Song is the top-level, format-neutral container a parser builds and
// hands to the engine. It is immutable during one real-time render pass;
// the edit command system is the only mutator during playback.
type Song struct {
	Title string

	InitialBPMHundredths uint32 // BPM * 100
	InitialSpeed         int    // ticks per row, 1-31
	GlobalVolume         int    // 0-128
	RowsPerBeat          int    // default rows/beat, typically 4

	Samples     []Sample
	Instruments []Instrument
	Channels    []ChannelDefaults

	Graph *AudioGraph

	Tracks []Track

	// SampleKeys/InstrumentKeys are filled in by Engine construction,
	// mapping a parser's 0-based sample/instrument index to the stable
	// slot-map key the runtime uses (spec §3 Lifecycle).
	SampleKeys     []SampleKey
	InstrumentKeys []InstrumentKey
}

// Validate checks the IR invariants spec §3 requires before an Engine is
// allowed to construct from this Song: every NodeKey referenced resolves,
// and the graph is acyclic with Master reachable.
func (s *Song) Validate() error {
	if s.Graph == nil {
		return errMissingGraph
	}
	if _, err := s.Graph.TopoOrder(); err != nil {
		return err
	}
	for i := range s.Tracks {
		t := &s.Tracks[i]
		if t.MachineNode != nil {
			if _, ok := s.Graph.Node(*t.MachineNode); !ok {
				return errDanglingNodeRef
			}
		}
	}
	return nil
}

var (
	errMissingGraph    = simpleErr("ir: song has no audio graph")
	errDanglingNodeRef = simpleErr("ir: track references a node key that does not resolve in the graph")
)

type simpleErr string

func (e simpleErr) Error() string { return string(e) }
