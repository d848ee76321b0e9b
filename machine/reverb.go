package machine

import (
	"github.com/chriskillpack/modplayer/graphmixer"
	"github.com/chriskillpack/modplayer/internal/comb"
)

// ParamMix is Reverb's SetParam id; value is the wet/dry mix scaled 0..100.
const ParamMix = 0

// Reverb adapts internal/comb's bounded-memory StereoReverb, built for
// interleaved int16 streams, into a planar-float32 graph Machine: it
// converts each block to int16, round-trips it through the comb network,
// and converts back, entirely within preallocated scratch buffers so the
// render path never allocates.
type Reverb struct {
	core *comb.StereoReverb

	decay, damp, mix float32
	sampleRate       uint32

	scratchIn  []int16
	scratchOut []int16
}

// NewReverb builds a Reverb machine with the given comb feedback, damping
// and initial wet/dry mix (0..1).
func NewReverb(decay, damp, mix float32) *Reverb {
	return &Reverb{decay: decay, damp: damp, mix: mix}
}

func (r *Reverb) Init(sampleRate uint32, channels int) {
	r.sampleRate = sampleRate
	r.core = comb.NewStereoReverb(graphmixer.BlockSize*4, r.decay, r.damp, r.mix, int(sampleRate))
	r.scratchIn = make([]int16, graphmixer.BlockSize*2)
	r.scratchOut = make([]int16, graphmixer.BlockSize*2)
}

func (r *Reverb) Tick(subBeats uint32) {}

func (r *Reverb) SetParam(paramID int, value int32) {
	if paramID == ParamMix {
		r.mix = float32(value) / 100
	}
}

func (r *Reverb) Stop() {
	if r.core != nil {
		r.core = comb.NewStereoReverb(graphmixer.BlockSize*4, r.decay, r.damp, r.mix, int(r.sampleRate))
	}
}

// Render processes one block of stereo (or mono-duplicated-to-stereo)
// audio through the comb network.
func (r *Reverb) Render(in, out graphmixer.AudioBuffer) {
	if r.core == nil || len(in.Channels) == 0 {
		for c := range out.Channels {
			copy(out.Channels[c], in.Channels[min(c, len(in.Channels)-1)])
		}
		return
	}

	l := in.Channels[0]
	rch := l
	if len(in.Channels) > 1 {
		rch = in.Channels[1]
	}
	for i := range l {
		r.scratchIn[i*2] = floatToInt16(l[i])
		r.scratchIn[i*2+1] = floatToInt16(rch[i])
	}

	r.core.InputSamples(r.scratchIn)
	got := r.core.GetAudio(r.scratchOut)
	for i := got / 2; i < len(l); i++ {
		r.scratchOut[i*2] = 0
		r.scratchOut[i*2+1] = 0
	}

	for c := range out.Channels {
		src := 0
		if c > 0 && len(in.Channels) > 1 {
			src = 1
		}
		dst := out.Channels[c]
		for i := range dst {
			dst[i] = int16ToFloat(r.scratchOut[i*2+src])
		}
	}
}

func floatToInt16(v float32) int16 {
	s := v * 32767
	if s > 32767 {
		return 32767
	}
	if s < -32768 {
		return -32768
	}
	return int16(s)
}

func int16ToFloat(v int16) float32 {
	return float32(v) / 32767
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
