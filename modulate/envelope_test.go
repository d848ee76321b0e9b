package modulate

import (
	"testing"

	"github.com/chriskillpack/modplayer/ir"
)

// TestAdvanceFinishesAtExactTotal exercises spec §8 property 4: for a
// ModEnvelope without sustain/loop, Finished becomes true at exactly
// sum(dt[1..]) sub-beats, no earlier.
func TestAdvanceFinishesAtExactTotal(t *testing.T) {
	env := &ir.ModEnvelope{Points: []ir.ModBreakPoint{
		{Dt: 0, Value: 0, Curve: ir.CurveLinear},
		{Dt: 10, Value: 1, Curve: ir.CurveLinear},
		{Dt: 15, Value: 0, Curve: ir.CurveLinear},
	}}
	total := env.TotalSubBeats()
	if total != 25 {
		t.Fatalf("TotalSubBeats() = %d, want 25", total)
	}

	s := NewState(env)
	Advance(&s, env, uint32(total-1))
	if s.Finished {
		t.Fatalf("Finished became true before total sub-beats elapsed")
	}

	Advance(&s, env, 1)
	if !s.Finished {
		t.Fatalf("Finished false after exactly total sub-beats elapsed")
	}
}

func TestAdvanceOneStepAtATime(t *testing.T) {
	env := &ir.ModEnvelope{Points: []ir.ModBreakPoint{
		{Dt: 0, Value: 0, Curve: ir.CurveLinear},
		{Dt: 4, Value: 1, Curve: ir.CurveLinear},
	}}
	total := env.TotalSubBeats()

	s := NewState(env)
	var elapsed uint32
	for elapsed < uint32(total) {
		Advance(&s, env, 1)
		elapsed++
		if elapsed < uint32(total) && s.Finished {
			t.Fatalf("Finished early at elapsed=%d, total=%d", elapsed, total)
		}
	}
	if !s.Finished {
		t.Fatalf("not finished after %d 1-subbeat steps", elapsed)
	}
}

// TestVibratoNoModulationAtZeroSpeedDepth exercises the spec §8 boundary
// behavior: vibrato at speed=0, depth=0 does not modulate.
func TestVibratoNoModulationAtZeroSpeedDepth(t *testing.T) {
	mod := Vibrato(0, 0, 720720/24)
	env := &mod.Source
	s := NewState(env)
	for i := 0; i < 40; i++ {
		Advance(&s, env, 720720/24)
		if s.Value != 0 {
			t.Fatalf("vibrato(0,0) produced non-zero value %v at step %d", s.Value, i)
		}
	}
}

// TestVibratoCycleReturnsToZero mirrors spec §8 scenario 2: after one
// full cycle (4 * speed ticks), the offset returns to exactly 0.
func TestVibratoCycleReturnsToZero(t *testing.T) {
	const spt = 720720 / 24 // sub-beats per tick at a nominal tempo
	const speed = 4
	mod := Vibrato(speed, 8, spt)
	env := &mod.Source

	s := NewState(env)
	cycleTicks := 4 * speed
	for i := 0; i < cycleTicks; i++ {
		Advance(&s, env, spt)
	}
	if s.Value != 0 {
		t.Fatalf("after one full vibrato cycle value = %v, want 0", s.Value)
	}
	if !s.Looped {
		t.Fatalf("expected Looped=true on the tick that completes a cycle")
	}
}

func TestRetriggerZeroIntervalIsSafe(t *testing.T) {
	mod := Retrigger(0, 100)
	env := &mod.Source
	s := NewState(env)
	for i := 0; i < 10; i++ {
		Advance(&s, env, 50)
	}
	if s.Finished {
		t.Fatalf("looping retrigger envelope should never finish")
	}
}

func TestVolumeSlideClampsAtBounds(t *testing.T) {
	mod := VolumeSlide(60, 5, 100)
	if len(mod.Source.Points) != 2 {
		t.Fatalf("expected a 2-point ramp, got %d points", len(mod.Source.Points))
	}
	if got := mod.Source.Points[len(mod.Source.Points)-1].Value; got != 64 {
		t.Fatalf("VolumeSlide(60,+5) target = %v, want 64 (clamped)", got)
	}

	mod = VolumeSlide(60, -80, 100)
	if got := mod.Source.Points[len(mod.Source.Points)-1].Value; got != 0 {
		t.Fatalf("VolumeSlide(60,-80) target = %v, want 0 (clamped)", got)
	}
}

func TestPortaTowardCurrentIsNoOp(t *testing.T) {
	mod := TonePorta(400, 400, 4, 100)
	first, last := mod.Source.Points[0], mod.Source.Points[len(mod.Source.Points)-1]
	if first.Value != last.Value {
		t.Fatalf("TonePorta toward current period moved: %v -> %v", first.Value, last.Value)
	}
}
