package voice

import (
	"testing"

	"github.com/chriskillpack/modplayer/ir"
)

func monoSample(frames int, loopType ir.LoopType, loopStart, loopEnd int) *ir.Sample {
	data := make([]int16, frames)
	for i := range data {
		data[i] = int16(i)
	}
	return &ir.Sample{
		Format: ir.FormatMono16, Data16: data, Frames: frames,
		LoopType: loopType, LoopStart: loopStart, LoopEnd: loopEnd,
	}
}

// TestRenderStopsExactlyAtSampleEnd exercises spec §8 property 3: a
// non-looping voice's rendered position never advances past the sample's
// frame count, and Render reports false exactly when it stops.
func TestRenderStopsExactlyAtSampleEnd(t *testing.T) {
	sample := monoSample(4, ir.LoopNone, 0, 0)
	v := &Voice{Playing: true, Volume: 64, LoopForward: true, Increment: 1 << FracBits}

	left := make([]float32, 1)
	right := make([]float32, 1)
	frames := 0
	for {
		playing := Render(v, sample, left, right)
		if !playing {
			break
		}
		frames++
		if frames > 100 {
			t.Fatalf("voice never stopped playing a 4-frame non-looping sample")
		}
	}
	if frames != sample.Frames {
		t.Fatalf("rendered %d frames before stopping, want %d", frames, sample.Frames)
	}
}

func TestRenderForwardLoopWrapsWithinLoopRange(t *testing.T) {
	sample := monoSample(6, ir.LoopForward, 2, 6)
	v := &Voice{Playing: true, Volume: 64, LoopForward: true, Increment: 1 << FracBits, Position: uint32(2) << FracBits}

	left := make([]float32, 1)
	right := make([]float32, 1)
	for i := 0; i < 40; i++ {
		if !Render(v, sample, left, right) {
			t.Fatalf("looping voice stopped playing at step %d", i)
		}
		frame := int(v.Position >> FracBits)
		if frame < sample.LoopStart || frame > sample.LoopEnd {
			t.Fatalf("step %d: position frame %d escaped loop range [%d,%d]", i, frame, sample.LoopStart, sample.LoopEnd)
		}
	}
}

func TestRenderPingPongLoopFlipsDirection(t *testing.T) {
	sample := monoSample(8, ir.LoopPingPong, 2, 6)
	v := &Voice{Playing: true, Volume: 64, LoopForward: true, Increment: 1 << FracBits}

	left := make([]float32, 1)
	right := make([]float32, 1)
	sawBackward := false
	for i := 0; i < 40; i++ {
		Render(v, sample, left, right)
		if !v.LoopForward {
			sawBackward = true
		}
	}
	if !sawBackward {
		t.Fatalf("ping-pong loop never reversed direction")
	}
}

func TestPanGainsFullLeftAndRightAndCenter(t *testing.T) {
	l, r := panGains(64, -64)
	if l != 1 || r != 0 {
		t.Fatalf("hard left pan = (%v,%v), want (1,0)", l, r)
	}
	l, r = panGains(64, 64)
	if l != 0 || r != 1 {
		t.Fatalf("hard right pan = (%v,%v), want (0,1)", l, r)
	}
	l, r = panGains(64, 0)
	if l != 1 || r != 1 {
		t.Fatalf("center pan = (%v,%v), want (1,1)", l, r)
	}
}

func TestRenderSilentOnNilOrEmptySample(t *testing.T) {
	v := &Voice{Playing: true, Volume: 64, Increment: 1 << FracBits}
	left := make([]float32, 4)
	right := make([]float32, 4)
	if Render(v, nil, left, right) {
		t.Fatalf("Render(nil sample) returned true")
	}
	if Render(v, &ir.Sample{Frames: 0}, left, right) {
		t.Fatalf("Render(empty sample) returned true")
	}
}
