package machine

import "github.com/chriskillpack/modplayer/graphmixer"

// Passthrough copies its input to its output unchanged. Used for Node
// slots the graph needs structurally (a named send point) but that carry
// no processing of their own.
type Passthrough struct{}

func (p *Passthrough) Init(sampleRate uint32, channels int) {}
func (p *Passthrough) Tick(subBeats uint32)                 {}
func (p *Passthrough) SetParam(paramID int, value int32)    {}
func (p *Passthrough) Stop()                                {}

func (p *Passthrough) Render(in, out graphmixer.AudioBuffer) {
	for c := range out.Channels {
		if c >= len(in.Channels) {
			continue
		}
		copy(out.Channels[c], in.Channels[c])
	}
}
