package modformat

import "github.com/chriskillpack/modplayer/ir"

// modEffect translates one ProTracker MOD effect byte (nibble kind, x/y
// parameter nibbles) into the format-neutral ir.Effect, following the
// same byte assignment the teacher's effectSetSpeed/effectPatternBrk/
// effectVolumeSlide constants (player.go) partially name; the rest of
// the table is the standard ProTracker assignment those constants are
// drawn from.
func modEffect(kind, x, y int) ir.Effect {
	switch kind {
	case 0x0:
		if x == 0 && y == 0 {
			return ir.Effect{}
		}
		return ir.Effect{Kind: ir.EffectArpeggio, X: x, Y: y}
	case 0x1:
		return ir.Effect{Kind: ir.EffectPortaUp, X: x, Y: y}
	case 0x2:
		return ir.Effect{Kind: ir.EffectPortaDown, X: x, Y: y}
	case 0x3:
		return ir.Effect{Kind: ir.EffectTonePorta, X: x, Y: y}
	case 0x4:
		return ir.Effect{Kind: ir.EffectVibrato, X: x, Y: y}
	case 0x5:
		return ir.Effect{Kind: ir.EffectTonePortaVolSlide, X: x, Y: y}
	case 0x6:
		return ir.Effect{Kind: ir.EffectVibratoVolSlide, X: x, Y: y}
	case 0x7:
		return ir.Effect{Kind: ir.EffectTremolo, X: x, Y: y}
	case 0x8:
		return ir.Effect{Kind: ir.EffectSetPan, X: x, Y: y}
	case 0x9:
		return ir.Effect{Kind: ir.EffectSampleOffset, X: x, Y: y}
	case 0xA:
		return ir.Effect{Kind: ir.EffectVolumeSlide, X: x, Y: y}
	case 0xB:
		return ir.Effect{Kind: ir.EffectPositionJump, X: x, Y: y}
	case 0xC:
		return ir.Effect{Kind: ir.EffectSetVolume, X: x, Y: y}
	case 0xD:
		return ir.Effect{Kind: ir.EffectPatternBreak, X: x, Y: y}
	case 0xE:
		return modExtendedEffect(x, y)
	case 0xF:
		param := x<<4 | y
		if param < 0x20 {
			return ir.Effect{Kind: ir.EffectSetSpeed, X: x, Y: y}
		}
		return ir.Effect{Kind: ir.EffectSetTempo, X: x, Y: y}
	}
	return ir.Effect{}
}

// modExtendedEffect translates one Exy sub-effect; x selects the
// sub-command, y is its single-nibble parameter.
func modExtendedEffect(x, y int) ir.Effect {
	switch x {
	case 0x1:
		return ir.Effect{Kind: ir.EffectFinePortaUp, Y: y}
	case 0x2:
		return ir.Effect{Kind: ir.EffectFinePortaDown, Y: y}
	case 0x4:
		return ir.Effect{Kind: ir.EffectSetVibratoWaveform, Y: y}
	case 0x5:
		return ir.Effect{Kind: ir.EffectSetFineTune, Y: y}
	case 0x6:
		return ir.Effect{Kind: ir.EffectPatternLoop, Y: y}
	case 0x7:
		return ir.Effect{Kind: ir.EffectSetTremoloWaveform, Y: y}
	case 0x9:
		return ir.Effect{Kind: ir.EffectRetrigger, Y: y}
	case 0xA:
		return ir.Effect{Kind: ir.EffectFineVolSlideUp, Y: y}
	case 0xB:
		return ir.Effect{Kind: ir.EffectFineVolSlideDown, Y: y}
	case 0xC:
		return ir.Effect{Kind: ir.EffectNoteCut, Y: y}
	case 0xD:
		return ir.Effect{Kind: ir.EffectNoteDelay, Y: y}
	case 0xE:
		return ir.Effect{Kind: ir.EffectPatternDelay, Y: y}
	}
	return ir.Effect{}
}

// s3mEffect translates one ScreamTracker effect letter (1=A..26=Z) plus
// its parameter byte. The SetSpeed/PositionJump(PatternJump)/
// PatternBreak/TonePorta/PatternLoop cases follow the teacher's
// convertS3MEffect (s3m.go) exactly; the remaining letters fill in the
// rest of the standard ST3 effect table convertS3MEffect left as a
// no-op passthrough.
func s3mEffect(letter, param byte) ir.Effect {
	x, y := int(param>>4), int(param&0xF)
	switch letter {
	case 1: // A - set speed
		return ir.Effect{Kind: ir.EffectSetSpeed, X: x, Y: y}
	case 2: // B - position jump (pattern jump)
		return ir.Effect{Kind: ir.EffectPositionJump, X: x, Y: y}
	case 3: // C - pattern break
		return ir.Effect{Kind: ir.EffectPatternBreak, X: x, Y: y}
	case 4: // D - volume slide
		return ir.Effect{Kind: ir.EffectVolumeSlide, X: x, Y: y}
	case 5: // E - porta down
		return ir.Effect{Kind: ir.EffectPortaDown, X: x, Y: y}
	case 6: // F - porta up
		return ir.Effect{Kind: ir.EffectPortaUp, X: x, Y: y}
	case 7: // G - tone portamento
		return ir.Effect{Kind: ir.EffectTonePorta, X: x, Y: y}
	case 8: // H - vibrato
		return ir.Effect{Kind: ir.EffectVibrato, X: x, Y: y}
	case 9: // I - tremor
		return ir.Effect{Kind: ir.EffectTremor, X: x, Y: y}
	case 10: // J - arpeggio
		return ir.Effect{Kind: ir.EffectArpeggio, X: x, Y: y}
	case 11: // K - vibrato + volume slide
		return ir.Effect{Kind: ir.EffectVibratoVolSlide, X: x, Y: y}
	case 12: // L - tone porta + volume slide
		return ir.Effect{Kind: ir.EffectTonePortaVolSlide, X: x, Y: y}
	case 15: // O - sample offset
		return ir.Effect{Kind: ir.EffectSampleOffset, X: x, Y: y}
	case 17: // Q - retrigger + volume slide
		return ir.Effect{Kind: ir.EffectRetrigger, X: x, Y: y}
	case 18: // R - tremolo
		return ir.Effect{Kind: ir.EffectTremolo, X: x, Y: y}
	case 19: // S - special
		return s3mSpecialEffect(x, y)
	case 20: // T - set tempo
		return ir.Effect{Kind: ir.EffectSetTempo, X: x, Y: y}
	case 22: // V - set global volume
		return ir.Effect{Kind: ir.EffectSetGlobalVolume, X: x, Y: y}
	case 24: // X - set pan position
		return ir.Effect{Kind: ir.EffectSetPan, X: x, Y: y}
	}
	return ir.Effect{}
}

// s3mSpecialEffect translates one Sxy special sub-effect.
func s3mSpecialEffect(x, y int) ir.Effect {
	switch x {
	case 0x3:
		return ir.Effect{Kind: ir.EffectSetVibratoWaveform, Y: y}
	case 0x4:
		return ir.Effect{Kind: ir.EffectSetTremoloWaveform, Y: y}
	case 0x8:
		return ir.Effect{Kind: ir.EffectSetPan, Y: y}
	case 0xB:
		return ir.Effect{Kind: ir.EffectPatternLoop, Y: y}
	case 0xC:
		return ir.Effect{Kind: ir.EffectNoteCut, Y: y}
	case 0xD:
		return ir.Effect{Kind: ir.EffectNoteDelay, Y: y}
	case 0xE:
		return ir.Effect{Kind: ir.EffectPatternDelay, Y: y}
	}
	return ir.Effect{}
}
