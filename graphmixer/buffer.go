// Package graphmixer renders ir.AudioGraph in topological order into
// planar float32 buffers, adapting the teacher's mixChannelsStereo_Scalar
// accumulation loop (mixer_scalar.go) from a fixed channel-to-master mix
// into a general per-node, per-edge graph render (spec §4.8).
package graphmixer

// BlockSize is the fixed render quantum every node processes per call.
const BlockSize = 256

// AudioBuffer is planar (non-interleaved) float32 audio: one []float32 per
// channel, each BlockSize frames long. Nodes read their inputs and write
// their output into buffers owned by the mixer, never allocating on the
// render path.
type AudioBuffer struct {
	Channels [][]float32
}

// NewAudioBuffer allocates a buffer with the given channel count, zeroed.
// Setup-phase only.
func NewAudioBuffer(numChannels int) AudioBuffer {
	b := AudioBuffer{Channels: make([][]float32, numChannels)}
	for i := range b.Channels {
		b.Channels[i] = make([]float32, BlockSize)
	}
	return b
}

// Clear zeroes every sample in the buffer without reallocating.
func (b AudioBuffer) Clear() {
	for _, ch := range b.Channels {
		for i := range ch {
			ch[i] = 0
		}
	}
}

// AddScaled accumulates src*gain into b, channel for channel, down/up
// mixing mono<->stereo when the channel counts differ (spec §4.8's
// "connections auto-adapt mono/stereo").
func (b AudioBuffer) AddScaled(src AudioBuffer, gain float32) {
	if gain == 0 {
		return
	}
	switch {
	case len(src.Channels) == len(b.Channels):
		for c := range b.Channels {
			dst, s := b.Channels[c], src.Channels[c]
			for i := range dst {
				dst[i] += s[i] * gain
			}
		}
	case len(src.Channels) == 1 && len(b.Channels) == 2:
		s := src.Channels[0]
		for c := 0; c < 2; c++ {
			dst := b.Channels[c]
			for i := range dst {
				dst[i] += s[i] * gain
			}
		}
	case len(src.Channels) == 2 && len(b.Channels) == 1:
		l, r := src.Channels[0], src.Channels[1]
		dst := b.Channels[0]
		for i := range dst {
			dst[i] += (l[i] + r[i]) * 0.5 * gain
		}
	}
}
