package machine

import (
	"math"
	"testing"

	"github.com/chriskillpack/modplayer/graphmixer"
)

func constBuffer(channels int, v float32) graphmixer.AudioBuffer {
	b := graphmixer.NewAudioBuffer(channels)
	for _, ch := range b.Channels {
		for i := range ch {
			ch[i] = v
		}
	}
	return b
}

func TestPassthroughCopiesInputVerbatim(t *testing.T) {
	var p Passthrough
	in := constBuffer(2, 0.5)
	out := graphmixer.NewAudioBuffer(2)

	p.Render(in, out)
	if out.Channels[0][0] != 0.5 || out.Channels[1][0] != 0.5 {
		t.Fatalf("passthrough output = (%v,%v), want (0.5,0.5)", out.Channels[0][0], out.Channels[1][0])
	}
}

func TestPassthroughIgnoresMissingInputChannel(t *testing.T) {
	var p Passthrough
	in := graphmixer.NewAudioBuffer(1)
	out := graphmixer.NewAudioBuffer(2)
	out.Channels[1][0] = 9

	p.Render(in, out)
	if out.Channels[1][0] != 9 {
		t.Fatalf("passthrough modified a channel absent from input")
	}
}

// TestLowpassConvergesOnDCInput exercises the one-pole filter's expected
// behavior: a constant input converges to that same constant at the
// output (DC gain of 1).
func TestLowpassConvergesOnDCInput(t *testing.T) {
	l := &Lowpass{}
	l.Init(44100, 2)

	in := constBuffer(2, 1.0)
	out := graphmixer.NewAudioBuffer(2)
	for block := 0; block < 50; block++ {
		l.Render(in, out)
	}
	if math.Abs(float64(out.Channels[0][graphmixer.BlockSize-1])-1.0) > 1e-3 {
		t.Fatalf("lowpass DC response = %v after 50 blocks, want ~1.0", out.Channels[0][graphmixer.BlockSize-1])
	}
}

func TestLowpassStopResetsState(t *testing.T) {
	l := &Lowpass{}
	l.Init(44100, 2)

	in := constBuffer(2, 1.0)
	out := graphmixer.NewAudioBuffer(2)
	l.Render(in, out)
	if l.state[0] == 0 {
		t.Fatalf("expected filter state to move away from 0 after rendering")
	}

	l.Stop()
	for _, s := range l.state {
		if s != 0 {
			t.Fatalf("Stop() left state = %v, want 0", s)
		}
	}
}

func TestLowpassSetParamChangesCutoff(t *testing.T) {
	l := &Lowpass{}
	l.Init(44100, 2)
	before := l.a

	l.SetParam(ParamCutoffHz, 200)
	if l.a == before {
		t.Fatalf("SetParam(ParamCutoffHz) did not change the filter coefficient")
	}
	if l.a <= 0 || l.a >= 1 {
		t.Fatalf("filter coefficient a = %v, want in (0,1)", l.a)
	}
}
