// Package channelctl is the per-channel tracker effect state machine: note
// triggering, NNA dispatch, and building/advancing the modulate.Modulator
// each row/tick effect implies. It generalizes the teacher's channel struct
// and Player.channelTick (player.go) from fixed MOD effect bytes into
// ir.EffectKind handling over the engine's voice pool (spec §4.3, §4.6).
package channelctl

import (
	"github.com/chriskillpack/modplayer/ir"
	"github.com/chriskillpack/modplayer/modulate"
	"github.com/chriskillpack/modplayer/voice"
)

// PeriodTable holds one octave's worth of Amiga period values per note
// index (0=C, 11=B), repeated across three octaves the way classic MOD
// note tables do (teacher's player.go periodTable).
var PeriodTable = []int{
	856, 808, 762, 720, 678, 640, 604, 570, 538, 508, 480, 453,
	428, 404, 381, 360, 339, 320, 302, 285, 269, 254, 240, 226,
	214, 202, 190, 180, 170, 160, 151, 143, 135, 127, 120, 113,
}

// FineTuning is the .12 fixed-point scale table for finetune values -8..+7
// (index 0..15, 8 = no adjustment), adapted from the teacher's fineTuning
// table (itself sourced from Micromod).
var FineTuning = []int{
	4340, 4308, 4277, 4247, 4216, 4186, 4156, 4126,
	4096, 4067, 4037, 4008, 3979, 3951, 3922, 3894,
}

// NoteToPeriod maps a MIDI note (relative to C-5 = Amiga note 0 at the
// table's middle octave) plus a finetune index into an Amiga period,
// scaled by FineTuning exactly as the teacher's channelTick does.
func NoteToPeriod(note int, finetune int) int {
	idx := note % 12
	octaveShift := note/12 - 4 // middle octave (C-5 area) maps to table row 1
	row := octaveShift + 1
	if row < 0 {
		row = 0
	}
	tableIdx := row*12 + idx
	if tableIdx < 0 {
		tableIdx = 0
	}
	if tableIdx >= len(PeriodTable) {
		tableIdx = len(PeriodTable) - 1
	}
	period := PeriodTable[tableIdx]
	if finetune < 0 {
		finetune = 0
	}
	if finetune > 15 {
		finetune = 15
	}
	return (period * FineTuning[finetune]) >> 12
}

// PeriodToIncrement converts an Amiga period and the engine's configured
// sample rate into a 16.16 fixed-point frames-per-output-sample increment,
// using the standard Amiga PAL clock the teacher's mixer assumes.
func PeriodToIncrement(period int, c4Speed int, sampleRate uint32) uint32 {
	if period <= 0 {
		period = 1
	}
	// Amiga hardware frequency for this period; c4Speed rescales it to the
	// sample's authored tuning when present (S3M/IT style samples).
	freq := 7093789.2 / (float64(period) * 2.0)
	if c4Speed > 0 {
		freq = freq * float64(c4Speed) / 8363.0
	}
	inc := (freq * 65536.0) / float64(sampleRate)
	if inc < 0 {
		inc = 0
	}
	return uint32(inc)
}

// Memory holds the per-channel effect parameter memory classic trackers
// reuse across rows when a row's parameter byte is 0 (spec §4.3 "effect
// memory").
type Memory struct {
	PortaUpSpeed   int
	PortaDownSpeed int
	TonePortaSpeed int
	TonePortaTarget int
	VolSlideRate   int
	VibratoSpeed   int
	VibratoDepth   int
	TremoloSpeed   int
	TremoloDepth   int
	RetriggerInterval int
	TremorOn, TremorOff int
	SampleOffset   int
}

// Channel is one tracker-driven channel's full runtime state.
type Channel struct {
	Voice      ir.VoiceId
	Instrument int
	Note       int
	Finetune   int
	Period     int
	Volume     int
	Panning    int

	Mem Memory

	activePitchMod  *ir.Modulator
	activeVolMod    *ir.Modulator
	pitchModState   modulate.State
	volModState     modulate.State
}

// Controller owns every tracker channel plus the voice pool backing them.
type Controller struct {
	Channels []Channel
	Pool     *voice.Pool
	SampleRate uint32
}

// New builds a Controller for numChannels tracker channels backed by pool.
func New(numChannels int, pool *voice.Pool, sampleRate uint32) *Controller {
	return &Controller{Channels: make([]Channel, numChannels), Pool: pool, SampleRate: sampleRate}
}

// TriggerNote starts a new note on channel ch, applying the instrument's
// NNA policy to whatever voice is already sounding there (spec §4.6).
func (c *Controller) TriggerNote(chIdx int, note int, instrument *ir.Instrument, instrumentID int, sample *ir.Sample, sampleKey ir.SampleKey, velocity uint8) {
	ch := &c.Channels[chIdx]

	if ch.Voice != ir.Nil {
		c.applyNNA(ch, instrument)
	}

	vol := int(velocity)
	if vol == 0 && sample != nil {
		vol = sample.DefaultVolume
	}
	pan := 0
	if sample != nil {
		pan = sample.DefaultPan
	}

	v := voice.Voice{
		SampleKey: sampleKey,
		Channel:   chIdx,
		Playing:   true,
		LoopForward: true,
		Volume:    vol,
		Panning:   pan,
		Note:      note,
		InstrumentID: instrumentID,
		St:        voice.Active,
	}
	if instrument != nil && instrument.VolumeEnvelope != nil {
		v.VolumeEnv = modulate.NewState(instrument.VolumeEnvelope)
	}
	ch.Voice = c.Pool.Allocate(v)
	ch.Instrument = instrumentID
	ch.Note = note
	ch.Volume = vol
	ch.Panning = pan
	if sample != nil {
		ch.Period = NoteToPeriod(note, 8)
		c.updateIncrement(ch, sample)
	}
}

// applyNNA disposes of the channel's current voice per the instrument's
// NewNoteAction before a new note overwrites ch.Voice.
func (c *Controller) applyNNA(ch *Channel, instrument *ir.Instrument) {
	action := ir.NNACut
	if instrument != nil {
		action = instrument.NewNoteAction
	}
	switch action {
	case ir.NNACut:
		c.Pool.Kill(ch.Voice)
	case ir.NNAContinue:
		c.Pool.Background(ch.Voice)
	case ir.NNAOff:
		c.Pool.Release(ch.Voice)
	case ir.NNAFade:
		c.Pool.Fade(ch.Voice, 256)
	}
	ch.Voice = ir.Nil
}

// GateOff processes an ir.PayloadGateOff/NoteOff event on chIdx (spec
// §4.6): with an instrument whose NNA is Continue, Off or Fade, the voice
// is backgrounded, released or faded accordingly and detached from the
// channel; with an NNACut instrument or no instrument, the voice is
// released (Released state, volume envelope gated off) and stays on the
// channel.
func (c *Controller) GateOff(chIdx int, instrument *ir.Instrument) {
	ch := &c.Channels[chIdx]
	if ch.Voice == ir.Nil {
		return
	}
	if instrument != nil && instrument.NewNoteAction != ir.NNACut {
		c.applyNNA(ch, instrument)
		return
	}
	c.Pool.Release(ch.Voice)
}

// ApplyRowEffect installs the modulator a row-level effect implies for
// channel chIdx, generalizing the per-case arithmetic in the teacher's
// Player.channelTick into modulate.Modulator construction (spec §4.3).
func (c *Controller) ApplyRowEffect(chIdx int, e ir.Effect, spt uint32) {
	ch := &c.Channels[chIdx]
	switch e.Kind {
	case ir.EffectArpeggio:
		m := modulate.Arpeggio(e.X, e.Y, spt)
		ch.activePitchMod = &m
		ch.pitchModState = modulate.NewState(&m.Source)
	case ir.EffectPortaUp:
		if e.Param() != 0 {
			ch.Mem.PortaUpSpeed = e.Param()
		}
		m := modulate.PortaUpDown(ch.Period, ch.Mem.PortaUpSpeed, -1, spt)
		ch.activePitchMod = &m
		ch.pitchModState = modulate.NewState(&m.Source)
	case ir.EffectPortaDown:
		if e.Param() != 0 {
			ch.Mem.PortaDownSpeed = e.Param()
		}
		m := modulate.PortaUpDown(ch.Period, ch.Mem.PortaDownSpeed, 1, spt)
		ch.activePitchMod = &m
		ch.pitchModState = modulate.NewState(&m.Source)
	case ir.EffectTonePorta:
		if e.Param() != 0 {
			ch.Mem.TonePortaSpeed = e.Param()
		}
		m := modulate.TonePorta(ch.Period, ch.Mem.TonePortaTarget, ch.Mem.TonePortaSpeed, spt)
		ch.activePitchMod = &m
		ch.pitchModState = modulate.NewState(&m.Source)
	case ir.EffectVibrato:
		if e.X != 0 {
			ch.Mem.VibratoSpeed = e.X
		}
		if e.Y != 0 {
			ch.Mem.VibratoDepth = e.Y
		}
		m := modulate.Vibrato(ch.Mem.VibratoSpeed, ch.Mem.VibratoDepth, spt)
		ch.activePitchMod = &m
		ch.pitchModState = modulate.NewState(&m.Source)
	case ir.EffectTremolo:
		if e.X != 0 {
			ch.Mem.TremoloSpeed = e.X
		}
		if e.Y != 0 {
			ch.Mem.TremoloDepth = e.Y
		}
		m := modulate.Tremolo(ch.Mem.TremoloSpeed, ch.Mem.TremoloDepth, spt)
		ch.activeVolMod = &m
		ch.volModState = modulate.NewState(&m.Source)
	case ir.EffectVolumeSlide, ir.EffectFineVolSlideUp, ir.EffectFineVolSlideDown:
		rate := e.X - e.Y
		if e.Param() != 0 {
			ch.Mem.VolSlideRate = rate
		}
		m := modulate.VolumeSlide(ch.Volume, ch.Mem.VolSlideRate, spt)
		ch.activeVolMod = &m
		ch.volModState = modulate.NewState(&m.Source)
	case ir.EffectTremor:
		if e.X != 0 || e.Y != 0 {
			ch.Mem.TremorOn, ch.Mem.TremorOff = e.X, e.Y
		}
		m := modulate.Tremor(ch.Mem.TremorOn, ch.Mem.TremorOff, spt)
		ch.activeVolMod = &m
		ch.volModState = modulate.NewState(&m.Source)
	case ir.EffectRetrigger:
		if e.Y != 0 {
			ch.Mem.RetriggerInterval = e.Y
		}
		m := modulate.Retrigger(ch.Mem.RetriggerInterval, spt)
		ch.activePitchMod = &m
		ch.pitchModState = modulate.NewState(&m.Source)
	case ir.EffectSetVolume:
		ch.Volume = e.Param()
		if ch.Volume > 64 {
			ch.Volume = 64
		}
	case ir.EffectSetPan:
		ch.Panning = (e.Param() - 128) / 2
	case ir.EffectSetFineTune:
		ch.Finetune = e.Y
	}
}

// ApplyTickEffect advances whichever modulator is active on chIdx by one
// tick and applies its value to the channel's live parameters (spec
// §4.3's per-tick phase, after row effects have been installed).
func (c *Controller) ApplyTickEffect(chIdx int, spt uint32) {
	ch := &c.Channels[chIdx]
	if ch.activePitchMod != nil {
		modulate.Advance(&ch.pitchModState, &ch.activePitchMod.Source, spt)
		applyParam(ch.activePitchMod.Mode, &ch.Period, ch.pitchModState.Value)
	}
	if ch.activeVolMod != nil {
		modulate.Advance(&ch.volModState, &ch.activeVolMod.Source, spt)
		applyParam(ch.activeVolMod.Mode, &ch.Volume, ch.volModState.Value)
	}
}

func applyParam(mode ir.ModMode, base *int, value float32) {
	switch mode {
	case ir.ModSet:
		*base = int(value)
	case ir.ModAdd:
		*base += int(value)
	case ir.ModMultiply:
		*base = int(float32(*base) * value)
	}
}

// UpdateIncrement recomputes the channel's voice's sample-position
// increment from its current period; call after any effect changes
// ch.Period.
func (c *Controller) UpdateIncrement(chIdx int, sample *ir.Sample) {
	c.updateIncrement(&c.Channels[chIdx], sample)
}

func (c *Controller) updateIncrement(ch *Channel, sample *ir.Sample) {
	v := c.Pool.VoiceAt(ch.Voice)
	if v == nil || sample == nil {
		return
	}
	v.Increment = PeriodToIncrement(ch.Period, sample.C4Speed, c.SampleRate)
	v.Volume = ch.Volume
	v.Panning = ch.Panning
}
