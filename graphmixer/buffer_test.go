package graphmixer

import "testing"

func fill(ch []float32, v float32) {
	for i := range ch {
		ch[i] = v
	}
}

func TestAddScaledSameChannelCount(t *testing.T) {
	dst := NewAudioBuffer(2)
	src := NewAudioBuffer(2)
	fill(src.Channels[0], 1)
	fill(src.Channels[1], 2)

	dst.AddScaled(src, 0.5)
	if dst.Channels[0][0] != 0.5 {
		t.Fatalf("left = %v, want 0.5", dst.Channels[0][0])
	}
	if dst.Channels[1][0] != 1 {
		t.Fatalf("right = %v, want 1", dst.Channels[1][0])
	}
}

func TestAddScaledMonoIntoStereoDuplicates(t *testing.T) {
	dst := NewAudioBuffer(2)
	src := NewAudioBuffer(1)
	fill(src.Channels[0], 4)

	dst.AddScaled(src, 1)
	if dst.Channels[0][0] != 4 || dst.Channels[1][0] != 4 {
		t.Fatalf("stereo = (%v,%v), want (4,4)", dst.Channels[0][0], dst.Channels[1][0])
	}
}

func TestAddScaledStereoIntoMonoAverages(t *testing.T) {
	dst := NewAudioBuffer(1)
	src := NewAudioBuffer(2)
	fill(src.Channels[0], 2)
	fill(src.Channels[1], 6)

	dst.AddScaled(src, 1)
	if dst.Channels[0][0] != 4 {
		t.Fatalf("mono = %v, want 4 (average of 2 and 6)", dst.Channels[0][0])
	}
}

func TestAddScaledZeroGainIsNoOp(t *testing.T) {
	dst := NewAudioBuffer(2)
	src := NewAudioBuffer(2)
	fill(dst.Channels[0], 7)
	fill(src.Channels[0], 100)

	dst.AddScaled(src, 0)
	if dst.Channels[0][0] != 7 {
		t.Fatalf("zero-gain AddScaled modified destination: %v", dst.Channels[0][0])
	}
}

func TestClearZeroesBuffer(t *testing.T) {
	b := NewAudioBuffer(2)
	fill(b.Channels[0], 9)
	fill(b.Channels[1], 9)
	b.Clear()
	for c, ch := range b.Channels {
		for i, v := range ch {
			if v != 0 {
				t.Fatalf("channel %d frame %d = %v after Clear, want 0", c, i, v)
			}
		}
	}
}
