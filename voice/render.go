package voice

import "github.com/chriskillpack/modplayer/ir"

// FracBits is the number of fractional bits in a Voice.Position/Increment
// fixed-point frame position (spec §4.5's "16.16 fixed point").
const FracBits = 16
const fracMask = (1 << FracBits) - 1

// Render advances v by n frames, accumulating its contribution (scaled by
// volume/panning, linearly interpolated between samples) into left/right.
// It is the per-voice inner loop the graph mixer's Track node drives once
// per render block; it never allocates. Returns false once playback has
// permanently ended (sample exhausted with no loop).
func Render(v *Voice, sample *ir.Sample, left, right []float32) bool {
	if sample == nil || sample.Frames == 0 || !v.Playing {
		return false
	}

	n := len(left)
	volL, volR := panGains(v.Volume, v.Panning)

	for i := 0; i < n; i++ {
		frame := int(v.Position >> FracBits)

		needsWrap := frame >= sample.Frames
		if sample.LoopType == ir.LoopPingPong && !v.LoopForward && frame < sample.LoopStart {
			needsWrap = true
		}
		if needsWrap {
			if !wrapLoop(v, sample) {
				v.Playing = false
				return false
			}
			frame = int(v.Position >> FracBits)
		}

		frac := float32(v.Position&fracMask) / float32(1<<FracBits)
		l0, r0 := sample.FrameAt(frame)
		nextFrame := frame + 1
		if !v.LoopForward {
			nextFrame = frame - 1
		}
		l1, r1 := sample.FrameAt(clampFrame(nextFrame, sample))

		l := (float32(l0)*(1-frac) + float32(l1)*frac) / 32768.0
		r := (float32(r0)*(1-frac) + float32(r1)*frac) / 32768.0

		left[i] += l * volL
		right[i] += r * volR

		advance(v, sample)
	}
	return v.Playing
}

func clampFrame(frame int, sample *ir.Sample) int {
	if frame >= sample.Frames {
		if sample.LoopType == ir.LoopNone {
			return sample.Frames - 1
		}
		return sample.LoopStart
	}
	return frame
}

func advance(v *Voice, sample *ir.Sample) {
	if v.LoopForward {
		v.Position += v.Increment
	} else {
		v.Position -= v.Increment
	}
}

// wrapLoop repositions v.Position after it ran past the sample (or before
// its loop start, for ping-pong), per the sample's LoopType. Returns false
// if the voice should stop instead.
func wrapLoop(v *Voice, sample *ir.Sample) bool {
	switch sample.LoopType {
	case ir.LoopNone:
		return false
	case ir.LoopForward, ir.LoopSustain:
		loopLen := sample.LoopEnd - sample.LoopStart
		if loopLen <= 0 {
			return false
		}
		over := (v.Position >> FracBits) - uint32(sample.LoopEnd)
		newFrame := sample.LoopStart + int(over)%loopLen
		v.Position = (uint32(newFrame) << FracBits) | (v.Position & fracMask)
		return true
	case ir.LoopPingPong:
		loopLen := sample.LoopEnd - sample.LoopStart
		if loopLen <= 0 {
			return false
		}
		newFrame := sample.LoopEnd - 1
		if !v.LoopForward {
			newFrame = sample.LoopStart
		}
		v.LoopForward = !v.LoopForward
		v.Position = (uint32(newFrame) << FracBits) | (v.Position & fracMask)
		return true
	}
	return false
}

// panGains converts a Volume (0-64) and Panning (-64..+64) pair into
// independent left/right linear gain multipliers.
func panGains(volume, panning int) (float32, float32) {
	vol := float32(volume) / 64.0
	pan := float32(panning) / 64.0
	if pan < -1 {
		pan = -1
	}
	if pan > 1 {
		pan = 1
	}
	l := vol * (1 - maxf(pan, 0))
	r := vol * (1 + minf(pan, 0))
	return l, r
}

func maxf(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}

func minf(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}
