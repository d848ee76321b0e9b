// Package modulate evaluates ModEnvelope breakpoint curves and builds the
// envelopes behind every classic tracker effect (vibrato, tremolo,
// arpeggio, volume/portamento slides, tremor, retrigger). It generalizes
// the per-tick arithmetic the teacher's Player.channelTick hand-rolled
// for each effect (player.go) into one evaluator, per spec §4.3.
package modulate

import (
	"math"

	"github.com/chriskillpack/modplayer/ir"
)

// State is the runtime cursor over a ModEnvelope.
type State struct {
	Segment        uint16
	TimeInSegment  uint32
	Value          float32
	Finished       bool
	GateHeld       bool
	Looped         bool // set for one Advance call when a loop wrapped
}

// NewState starts a fresh evaluator at the envelope's first point's value.
func NewState(env *ir.ModEnvelope) State {
	var v float32
	if len(env.Points) > 0 {
		v = env.Points[0].Value
	}
	return State{Value: v}
}

// GateOff clears GateHeld so a sustained envelope resumes advancing.
func (s *State) GateOff() {
	s.GateHeld = false
}

// Advance moves the evaluator forward by delta sub-beat units, per the
// four-step procedure in spec §4.3.
func Advance(s *State, env *ir.ModEnvelope, delta uint32) {
	s.Looped = false
	if s.Finished || s.GateHeld {
		return
	}
	if len(env.Points) < 2 {
		s.Finished = true
		return
	}

	s.TimeInSegment += delta

	for {
		if int(s.Segment)+1 >= len(env.Points) {
			s.Finished = true
			return
		}
		from := env.Points[s.Segment]
		to := env.Points[s.Segment+1]

		if s.TimeInSegment >= to.Dt {
			s.Segment++
			s.TimeInSegment -= to.Dt
			s.Value = to.Value

			if env.SustainPoint != nil && *env.SustainPoint == s.Segment {
				s.GateHeld = true
				return
			}
			if env.LoopRange != nil && int(s.Segment) >= int(env.LoopRange.End) {
				s.Segment = env.LoopRange.Start
				if int(s.Segment) < len(env.Points) {
					s.Value = env.Points[s.Segment].Value
				}
				s.Looped = true
				// Re-evaluate against the new segment's boundary in case
				// delta carried past more than one full cycle.
				continue
			}
			if int(s.Segment)+1 >= len(env.Points) {
				s.Finished = true
				return
			}
			// Time carried past this boundary is spent against the next
			// segment; loop again to settle.
			if s.TimeInSegment == 0 {
				return
			}
			continue
		}

		from = env.Points[s.Segment]
		to = env.Points[s.Segment+1]
		t := float32(0)
		if to.Dt > 0 {
			t = float32(s.TimeInSegment) / float32(to.Dt)
		}
		s.Value = interp(from.Curve, from.Value, to.Value, t, from.ExpK)
		return
	}
}

func interp(curve ir.CurveKind, from, to, t, expK float32) float32 {
	switch curve {
	case ir.CurveStep:
		return from
	case ir.CurveLinear:
		return from + (to-from)*t
	case ir.CurveSineQuarter:
		return from + (to-from)*float32(math.Sin(float64(t)*math.Pi/2))
	case ir.CurveExponential:
		if expK == 0 {
			return from + (to-from)*t
		}
		// Skewed curve: k>0 starts slow, k<0 starts fast. Map through
		// t^(1+|k|) for k>0 and 1-(1-t)^(1+|k|) for k<0.
		var shaped float32
		if expK > 0 {
			shaped = float32(math.Pow(float64(t), 1.0+float64(expK)))
		} else {
			shaped = 1 - float32(math.Pow(float64(1-t), 1.0+float64(-expK)))
		}
		return from + (to-from)*shaped
	default:
		return from
	}
}
