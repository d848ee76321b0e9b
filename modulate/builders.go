package modulate

import (
	"github.com/chriskillpack/modplayer/ir"
)

// Amiga period bounds (spec §4.3 PortaUp/Down), inherited from the
// teacher's clamp constants in player.go's channelTick.
const (
	MinPeriod = 113
	MaxPeriod = 856
)

func u32(v int) uint32 {
	if v < 0 {
		return 0
	}
	return uint32(v)
}

func ceilDiv(a, b int) int {
	if b <= 0 {
		return 0
	}
	if a <= 0 {
		return 0
	}
	return (a + b - 1) / b
}

// VolumeSlide builds a two-point linear ramp from current volume toward 0
// (rate<0) or 64 (rate>0), Set mode.
func VolumeSlide(current, rate int, spt uint32) ir.Modulator {
	target := current
	if rate > 0 {
		target = 64
	} else if rate < 0 {
		target = 0
	}
	absRate := rate
	if absRate < 0 {
		absRate = -absRate
	}
	dur := spt
	if absRate > 0 {
		dur = uint32(ceilDiv(abs(target-current), absRate)) * spt
	}
	if dur == 0 {
		dur = spt
	}
	return ir.Modulator{
		Source: ir.ModEnvelope{Points: []ir.ModBreakPoint{
			{Dt: 0, Value: float32(current), Curve: ir.CurveLinear},
			{Dt: dur, Value: float32(target), Curve: ir.CurveLinear},
		}},
		Target: ir.ModTarget{Kind: ir.TargetChannel, Param: ir.ParamVolume},
		Mode:   ir.ModSet,
	}
}

// PortaUpDown builds a ramp from the current period toward the
// format-defined bounds. sign<0 means PortaUp (period decreases, pitch
// rises); sign>0 means PortaDown.
func PortaUpDown(current, rate, sign int, spt uint32) ir.Modulator {
	bound := MaxPeriod
	if sign < 0 {
		bound = MinPeriod
	}
	delta := abs(bound - current)
	dur := spt
	if rate > 0 {
		dur = uint32(ceilDiv(delta, rate)) * spt
	}
	if dur == 0 {
		dur = spt
	}
	return ir.Modulator{
		Source: ir.ModEnvelope{Points: []ir.ModBreakPoint{
			{Dt: 0, Value: float32(current), Curve: ir.CurveLinear},
			{Dt: dur, Value: float32(bound), Curve: ir.CurveLinear},
		}},
		Target: ir.ModTarget{Kind: ir.TargetChannel, Param: ir.ParamPeriod},
		Mode:   ir.ModSet,
	}
}

// TonePorta ramps from the current period toward targetPeriod at the
// given speed (period units/tick).
func TonePorta(current, target, speed int, spt uint32) ir.Modulator {
	delta := abs(target - current)
	dur := spt
	if speed > 0 {
		dur = uint32(ceilDiv(delta, speed)) * spt
	}
	if dur == 0 {
		dur = spt
	}
	return ir.Modulator{
		Source: ir.ModEnvelope{Points: []ir.ModBreakPoint{
			{Dt: 0, Value: float32(current), Curve: ir.CurveLinear},
			{Dt: dur, Value: float32(target), Curve: ir.CurveLinear},
		}},
		Target: ir.ModTarget{Kind: ir.TargetChannel, Param: ir.ParamPeriod},
		Mode:   ir.ModSet,
	}
}

func waveformCurve(_ int) ir.CurveKind {
	// Classic trackers support sine/ramp/square waveforms for
	// vibrato/tremolo; this engine implements the default sine shape via
	// CurveSineQuarter and treats other waveform selectors identically
	// at the envelope-builder layer (the channel controller is free to
	// special-case them before calling this builder).
	return ir.CurveSineQuarter
}

// Vibrato builds a five-point looping cycle (0,+depth,0,-depth,0) over
// the period, Add mode. speed=0 or depth=0 yields a flat (non-modulating)
// envelope per the boundary behavior in spec §8.
func Vibrato(speed, depth int, spt uint32) ir.Modulator {
	return lfoEnvelope(speed, depth, spt, ir.ParamPeriod)
}

// Tremolo is structurally identical to Vibrato, targeting Volume.
func Tremolo(speed, depth int, spt uint32) ir.Modulator {
	return lfoEnvelope(speed, depth, spt, ir.ParamVolume)
}

func lfoEnvelope(speed, depth int, spt uint32, param ir.ChannelParam) ir.Modulator {
	seg := uint32(speed) * spt
	if speed == 0 || depth == 0 {
		seg = spt // degenerate but still finite so the evaluator terminates a cycle
		depth = 0
	}
	d := float32(depth)
	start := uint16(0)
	end := uint16(4)
	pts := []ir.ModBreakPoint{
		{Dt: 0, Value: 0, Curve: waveformCurve(0)},
		{Dt: seg, Value: d, Curve: waveformCurve(0)},
		{Dt: seg, Value: 0, Curve: waveformCurve(0)},
		{Dt: seg, Value: -d, Curve: waveformCurve(0)},
		{Dt: seg, Value: 0, Curve: waveformCurve(0)},
	}
	return ir.Modulator{
		Source: ir.ModEnvelope{Points: pts, LoopRange: &ir.LoopRange{Start: start, End: end}},
		Target: ir.ModTarget{Kind: ir.TargetChannel, Param: param},
		Mode:   ir.ModAdd,
	}
}

// Arpeggio builds a three-step looping envelope offsetting the base
// period by 0, offsetX and offsetY for one tick each, Add mode.
func Arpeggio(offsetX, offsetY int, spt uint32) ir.Modulator {
	pts := []ir.ModBreakPoint{
		{Dt: 0, Value: 0, Curve: ir.CurveStep},
		{Dt: spt, Value: float32(offsetX), Curve: ir.CurveStep},
		{Dt: spt, Value: float32(offsetY), Curve: ir.CurveStep},
		{Dt: spt, Value: 0, Curve: ir.CurveStep},
	}
	return ir.Modulator{
		Source: ir.ModEnvelope{Points: pts, LoopRange: &ir.LoopRange{Start: 0, End: 3}},
		Target: ir.ModTarget{Kind: ir.TargetChannel, Param: ir.ParamPeriod},
		Mode:   ir.ModAdd,
	}
}

// Tremor builds a step envelope (1,0) lasting (on,off) ticks, looping,
// Multiply mode (gates the channel's current volume on/off).
func Tremor(on, off int, spt uint32) ir.Modulator {
	onDur := u32(on) * spt
	offDur := u32(off) * spt
	if onDur == 0 {
		onDur = spt
	}
	if offDur == 0 {
		offDur = spt
	}
	pts := []ir.ModBreakPoint{
		{Dt: 0, Value: 1, Curve: ir.CurveStep},
		{Dt: onDur, Value: 0, Curve: ir.CurveStep},
		{Dt: offDur, Value: 1, Curve: ir.CurveStep},
	}
	return ir.Modulator{
		Source: ir.ModEnvelope{Points: pts, LoopRange: &ir.LoopRange{Start: 0, End: 2}},
		Target: ir.ModTarget{Kind: ir.TargetChannel, Param: ir.ParamVolume},
		Mode:   ir.ModMultiply,
	}
}

// Retrigger builds a loop of period `interval` ticks; every loop-back
// dispatches a sample-position reset (Trigger mode). interval=0 is
// special-cased to a one-tick period so it never divides by zero or
// retriggers on every sample (spec §8 boundary behavior).
func Retrigger(interval int, spt uint32) ir.Modulator {
	if interval <= 0 {
		interval = 1
	}
	seg := uint32(interval) * spt
	pts := []ir.ModBreakPoint{
		{Dt: 0, Value: 0, Curve: ir.CurveStep},
		{Dt: seg, Value: 1, Curve: ir.CurveStep},
	}
	return ir.Modulator{
		Source: ir.ModEnvelope{Points: pts, LoopRange: &ir.LoopRange{Start: 0, End: 1}},
		Target: ir.ModTarget{Kind: ir.TargetChannel, Param: ir.ParamSamplePosition},
		Mode:   ir.ModTrigger,
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
