package machine

import (
	"math"

	"github.com/chriskillpack/modplayer/graphmixer"
)

// ParamCutoffHz is Lowpass's only SetParam id; value is the cutoff
// frequency in Hz (encoded as an int32, e.g. 7000 for 7kHz).
const ParamCutoffHz = 0

// Lowpass is a one-pole low-pass filter, the kind vintage Amiga trackers
// apply to emulate the hardware's ~7kHz anti-aliasing filter. Adapted from
// first principles since neither the teacher nor the rest of the example
// pack carries a filter machine; the one-pole coefficient derivation
// (a = 1 - e^-2*pi*fc/fs) is standard DSP, not corpus-specific code.
type Lowpass struct {
	sampleRate uint32
	cutoffHz   float64
	a          float32
	state      []float32 // one pole state per channel
}

func (l *Lowpass) Init(sampleRate uint32, channels int) {
	l.sampleRate = sampleRate
	if l.cutoffHz == 0 {
		l.cutoffHz = 7000
	}
	l.recompute()
	l.state = make([]float32, channels)
}

func (l *Lowpass) recompute() {
	if l.sampleRate == 0 {
		return
	}
	w := 2 * math.Pi * l.cutoffHz / float64(l.sampleRate)
	l.a = float32(1 - math.Exp(-w))
}

func (l *Lowpass) Tick(subBeats uint32) {}

func (l *Lowpass) SetParam(paramID int, value int32) {
	if paramID == ParamCutoffHz {
		l.cutoffHz = float64(value)
		l.recompute()
	}
}

func (l *Lowpass) Stop() {
	for i := range l.state {
		l.state[i] = 0
	}
}

func (l *Lowpass) Render(in, out graphmixer.AudioBuffer) {
	for c := range out.Channels {
		if c >= len(in.Channels) || c >= len(l.state) {
			continue
		}
		s := l.state[c]
		src, dst := in.Channels[c], out.Channels[c]
		for i := range dst {
			s += l.a * (src[i] - s)
			dst[i] = s
		}
		l.state[c] = s
	}
}
