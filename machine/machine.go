// Package machine is the processing-node contract the graph mixer drives:
// a Machine turns its input buffer into its output buffer once per render
// block, optionally reacting to SetParam calls from the edit/event layer.
// It generalizes the teacher's hand-wired mixChannels call into a pluggable
// node interface (spec §3 Node, §4.8).
package machine

import "github.com/chriskillpack/modplayer/graphmixer"

// Machine is implemented by every node kind an ir.AudioGraph can hold
// other than Track/Master (those are driven directly by the engine/mixer).
type Machine interface {
	// Init prepares the machine for the given sample rate and channel
	// count. Called once during Engine.Prepare, never on the render path.
	Init(sampleRate uint32, channels int)

	// Tick advances any control-rate state (envelopes, LFOs) by one
	// scheduler tick's worth of sub-beats.
	Tick(subBeats uint32)

	// Render consumes in and produces out for one BlockSize-frame block.
	// in may alias out's backing arrays for in-place machines; implementations
	// must not assume otherwise.
	Render(in, out graphmixer.AudioBuffer)

	// SetParam applies an edit/automation write to a machine-defined
	// parameter ID (spec §4.12 SetNodeParam).
	SetParam(paramID int, value int32)

	// Stop resets all transient render state (delay lines, envelope
	// phase) without discarding configuration, for transport stop/rewind.
	Stop()
}
