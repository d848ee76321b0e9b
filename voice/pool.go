// Package voice implements the fixed-capacity, allocation-free voice pool
// (spec §4.5): allocation with priority-ordered stealing, NNA semantics,
// and per-voice sample rendering with linear interpolation. The render
// arithmetic (16.16 fixed-point position, mono/stereo mixing) is adapted
// from the teacher's Player.mixChannels (player.go).
package voice

import (
	"github.com/chriskillpack/modplayer/ir"
	"github.com/chriskillpack/modplayer/modulate"
)

// DefaultCapacity is the recommended minimum voice-pool size (spec §4.5).
const DefaultCapacity = 128

// State is a Voice's lifecycle state.
type State int

const (
	Active State = iota
	Released
	Fading
	Background
)

// Voice holds all runtime playback state for one sounding sample.
type Voice struct {
	inUse bool

	SampleKey  ir.SampleKey
	Channel    int // originating tracker-channel index, used to route render output
	Position   uint32 // 16.16 fixed point frame position
	Increment  uint32 // 16.16 fixed point frames/sample
	Playing    bool
	LoopForward bool // current direction for ping-pong loops

	VolumeEnv  modulate.State
	PanEnv     modulate.State
	PitchEnv   modulate.State

	Volume     int // 0-64
	Panning    int // -64..+64
	Note       int
	InstrumentID int

	St          State
	FadeSpeed   int
	FadeLevel   int // 0-65535

	insertOrder uint64
}

// InUse reports whether this slot currently holds a live voice.
func (v *Voice) InUse() bool { return v.inUse }

// Pool is the fixed-capacity collection of Voices.
type Pool struct {
	voices []Voice
	nextOrder uint64
	activeCount int
}

// NewPool allocates a pool with the given fixed capacity. This is setup
// phase; it is the only place voice.Pool allocates.
func NewPool(capacity int) *Pool {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Pool{voices: make([]Voice, capacity)}
}

// ActiveCount returns the number of occupied slots (spec invariant:
// voice_pool.active_count == occupied slot count).
func (p *Pool) ActiveCount() int { return p.activeCount }

// Capacity returns the fixed slot count.
func (p *Pool) Capacity() int { return len(p.voices) }

// VoiceAt returns a pointer to the voice in slot id.Index, or nil if the
// key is stale/out of range. Exposed for the channel controller and
// graph mixer to mutate/read voice state directly (no copying on the
// render hot path).
func (p *Pool) VoiceAt(id ir.VoiceId) *Voice {
	if int(id.Index) >= len(p.voices) {
		return nil
	}
	v := &p.voices[id.Index]
	if !v.inUse || id.Gen != uint32(v.insertOrder+1) {
		return nil
	}
	return v
}

// Allocate finds a free slot for a new voice, stealing per the priority
// order in spec §4.5 if the pool is full. It never fails.
func (p *Pool) Allocate(v Voice) ir.VoiceId {
	idx := p.findFreeSlot()
	if idx < 0 {
		idx = p.steal()
	}
	v.inUse = true
	v.insertOrder = p.nextOrder
	p.nextOrder++
	if !p.voices[idx].inUse {
		p.activeCount++
	}
	p.voices[idx] = v
	return ir.VoiceId{Index: uint32(idx), Gen: uint32(v.insertOrder + 1)}
}

func (p *Pool) findFreeSlot() int {
	for i := range p.voices {
		if !p.voices[i].inUse {
			return i
		}
	}
	return -1
}

// steal picks a slot to evict per priority: fading (lowest level) >
// released (lowest volume) > background (oldest) > active (oldest).
func (p *Pool) steal() int {
	best := -1
	bestFading := 1 << 30
	for i := range p.voices {
		if p.voices[i].St == Fading {
			if best == -1 || p.voices[i].FadeLevel < bestFading {
				best, bestFading = i, p.voices[i].FadeLevel
			}
		}
	}
	if best >= 0 {
		return best
	}

	bestVol := 1 << 30
	for i := range p.voices {
		if p.voices[i].St == Released {
			if best == -1 || p.voices[i].Volume < bestVol {
				best, bestVol = i, p.voices[i].Volume
			}
		}
	}
	if best >= 0 {
		return best
	}

	bestOrder := ^uint64(0)
	for i := range p.voices {
		if p.voices[i].St == Background {
			if best == -1 || p.voices[i].insertOrder < bestOrder {
				best, bestOrder = i, p.voices[i].insertOrder
			}
		}
	}
	if best >= 0 {
		return best
	}

	bestOrder = ^uint64(0)
	for i := range p.voices {
		if best == -1 || p.voices[i].insertOrder < bestOrder {
			best, bestOrder = i, p.voices[i].insertOrder
		}
	}
	return best
}

// Kill immediately frees a slot.
func (p *Pool) Kill(id ir.VoiceId) {
	v := p.VoiceAt(id)
	if v == nil {
		return
	}
	if v.inUse {
		p.activeCount--
	}
	*v = Voice{}
}

// Release transitions a voice to Released and gates off its volume
// envelope (spec §4.5).
func (p *Pool) Release(id ir.VoiceId) {
	v := p.VoiceAt(id)
	if v == nil {
		return
	}
	v.St = Released
	v.VolumeEnv.GateOff()
}

// Fade transitions a voice to Fading with the initial 65535 level; each
// tick decreases the level by speed until it reaps at zero.
func (p *Pool) Fade(id ir.VoiceId, speed int) {
	v := p.VoiceAt(id)
	if v == nil {
		return
	}
	v.St = Fading
	v.FadeSpeed = speed
	v.FadeLevel = 65535
}

// Background marks a voice as continuing to play independently of any
// channel (NNA Continue), per spec §4.6.
func (p *Pool) Background(id ir.VoiceId) {
	v := p.VoiceAt(id)
	if v == nil {
		return
	}
	v.St = Background
}

// TickAll advances instrument envelopes on every occupied voice and
// decrements fading levels by one tick's worth.
func (p *Pool) TickAll(env func(v *Voice), deltaSubBeats uint32) {
	for i := range p.voices {
		v := &p.voices[i]
		if !v.inUse {
			continue
		}
		if env != nil {
			env(v)
		}
		if v.St == Fading {
			v.FadeLevel -= v.FadeSpeed
			if v.FadeLevel < 0 {
				v.FadeLevel = 0
			}
		}
	}
}

// ReapFinished removes voices whose Fading level reached zero, plus every
// voice for which finished reports true (spec §4.5). Envelope completion
// and running off a non-looping sample are not checked here; they count
// only when finished reports them.
func (p *Pool) ReapFinished(finished func(v *Voice) bool) {
	for i := range p.voices {
		v := &p.voices[i]
		if !v.inUse {
			continue
		}
		if v.St == Fading && v.FadeLevel <= 0 {
			p.activeCount--
			*v = Voice{}
			continue
		}
		if finished != nil && finished(v) {
			p.activeCount--
			*v = Voice{}
		}
	}
}

// Each iterates every occupied voice slot; f must not add/remove voices.
func (p *Pool) Each(f func(id ir.VoiceId, v *Voice)) {
	for i := range p.voices {
		v := &p.voices[i]
		if v.inUse {
			f(ir.VoiceId{Index: uint32(i), Gen: uint32(v.insertOrder + 1)}, v)
		}
	}
}
