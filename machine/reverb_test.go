package machine

import (
	"testing"

	"github.com/chriskillpack/modplayer/graphmixer"
)

func TestReverbRenderProducesFiniteOutput(t *testing.T) {
	r := NewReverb(0.5, 0.2, 0.3)
	r.Init(44100, 2)

	in := constBuffer(2, 0.25)
	out := graphmixer.NewAudioBuffer(2)
	for block := 0; block < 4; block++ {
		r.Render(in, out)
	}
	for c, ch := range out.Channels {
		for i, v := range ch {
			if v != v { // NaN check
				t.Fatalf("reverb produced NaN at channel %d frame %d", c, i)
			}
			if v > 4 || v < -4 {
				t.Fatalf("reverb output wildly out of range at channel %d frame %d: %v", c, i, v)
			}
		}
	}
}

func TestReverbSetParamUpdatesMix(t *testing.T) {
	r := NewReverb(0.5, 0.2, 0.3)
	r.SetParam(ParamMix, 75)
	if r.mix != 0.75 {
		t.Fatalf("mix = %v after SetParam(75), want 0.75", r.mix)
	}
}

func TestReverbStopRebuildsCore(t *testing.T) {
	r := NewReverb(0.5, 0.2, 0.3)
	r.Init(44100, 2)
	first := r.core

	r.Stop()
	if r.core == first {
		t.Fatalf("Stop() did not rebuild the comb network")
	}
}
