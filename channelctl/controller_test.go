package channelctl

import (
	"testing"

	"github.com/chriskillpack/modplayer/ir"
	"github.com/chriskillpack/modplayer/voice"
)

func newTestController() *Controller {
	return New(1, voice.NewPool(4), 44100)
}

var testSample = &ir.Sample{Frames: 1000, C4Speed: 8363, DefaultVolume: 50}

func TestTriggerNoteAllocatesAndRecordsState(t *testing.T) {
	c := newTestController()
	inst := &ir.Instrument{NewNoteAction: ir.NNACut}
	c.TriggerNote(0, 60, inst, 1, testSample, ir.SampleKey{}, 40)

	ch := &c.Channels[0]
	if ch.Voice == ir.Nil {
		t.Fatalf("TriggerNote did not allocate a voice")
	}
	if ch.Volume != 40 {
		t.Fatalf("Volume = %d, want 40 (explicit velocity)", ch.Volume)
	}
	v := c.Pool.VoiceAt(ch.Voice)
	if v == nil || !v.Playing {
		t.Fatalf("allocated voice is not playing")
	}
	if v.Increment == 0 {
		t.Fatalf("voice increment was never computed from period")
	}
}

func TestTriggerNoteZeroVelocityUsesSampleDefault(t *testing.T) {
	c := newTestController()
	inst := &ir.Instrument{NewNoteAction: ir.NNACut}
	c.TriggerNote(0, 60, inst, 1, testSample, ir.SampleKey{}, 0)
	if c.Channels[0].Volume != testSample.DefaultVolume {
		t.Fatalf("Volume = %d, want sample default %d", c.Channels[0].Volume, testSample.DefaultVolume)
	}
}

// TestNNACutKillsPreviousVoice exercises spec §4.6: NNACut frees the old
// voice outright when a new note retriggers the channel.
func TestNNACutKillsPreviousVoice(t *testing.T) {
	c := newTestController()
	inst := &ir.Instrument{NewNoteAction: ir.NNACut}
	c.TriggerNote(0, 60, inst, 1, testSample, ir.SampleKey{}, 40)
	oldVoice := c.Channels[0].Voice

	c.TriggerNote(0, 64, inst, 1, testSample, ir.SampleKey{}, 40)
	if c.Pool.VoiceAt(oldVoice) != nil {
		t.Fatalf("old voice still resolves after NNACut retrigger")
	}
	if c.Pool.ActiveCount() != 1 {
		t.Fatalf("ActiveCount() = %d, want 1 (old voice killed, not left dangling)", c.Pool.ActiveCount())
	}
}

// TestNNAContinueBackgroundsPreviousVoice exercises spec §4.6: NNAContinue
// detaches the old voice from the channel but leaves it sounding.
func TestNNAContinueBackgroundsPreviousVoice(t *testing.T) {
	c := newTestController()
	inst := &ir.Instrument{NewNoteAction: ir.NNAContinue}
	c.TriggerNote(0, 60, inst, 1, testSample, ir.SampleKey{}, 40)
	oldVoice := c.Channels[0].Voice

	c.TriggerNote(0, 64, inst, 1, testSample, ir.SampleKey{}, 40)
	old := c.Pool.VoiceAt(oldVoice)
	if old == nil {
		t.Fatalf("old voice was killed instead of backgrounded")
	}
	if old.St != voice.Background {
		t.Fatalf("old voice state = %v, want Background", old.St)
	}
	if c.Channels[0].Voice == oldVoice {
		t.Fatalf("channel still points at the backgrounded voice")
	}
}

func TestGateOffReleasesSustainedInstrument(t *testing.T) {
	c := newTestController()
	inst := &ir.Instrument{NewNoteAction: ir.NNACut}
	c.TriggerNote(0, 60, inst, 1, testSample, ir.SampleKey{}, 40)
	v := c.Channels[0].Voice

	c.GateOff(0, inst)
	got := c.Pool.VoiceAt(v)
	if got == nil || got.St != voice.Released {
		t.Fatalf("GateOff with NNACut instrument did not Release the voice")
	}
}

func TestGateOffOnNoVoiceIsNoOp(t *testing.T) {
	c := newTestController()
	c.GateOff(0, nil) // must not panic with no active voice
}

// TestApplyRowEffectPortaUpRemembersLastNonzeroParam exercises spec §4.3
// effect memory: a zero-parameter Portamento Up reuses the previous speed.
func TestApplyRowEffectPortaUpRemembersLastNonzeroParam(t *testing.T) {
	c := newTestController()
	c.Channels[0].Period = 400
	c.ApplyRowEffect(0, ir.Effect{Kind: ir.EffectPortaUp, X: 0, Y: 5}, 100)
	if c.Channels[0].Mem.PortaUpSpeed != 5 {
		t.Fatalf("PortaUpSpeed = %d, want 5", c.Channels[0].Mem.PortaUpSpeed)
	}

	c.ApplyRowEffect(0, ir.Effect{Kind: ir.EffectPortaUp, X: 0, Y: 0}, 100)
	if c.Channels[0].Mem.PortaUpSpeed != 5 {
		t.Fatalf("PortaUpSpeed changed to %d on a zero-parameter row, want memory retained at 5", c.Channels[0].Mem.PortaUpSpeed)
	}
	if c.Channels[0].activePitchMod == nil {
		t.Fatalf("ApplyRowEffect did not install a pitch modulator")
	}
}

func TestApplyTickEffectAdvancesActivePitchModulator(t *testing.T) {
	c := newTestController()
	c.Channels[0].Period = 400
	c.ApplyRowEffect(0, ir.Effect{Kind: ir.EffectPortaUp, X: 0, Y: 10}, 100)

	before := c.Channels[0].Period
	c.ApplyTickEffect(0, 100)
	if c.Channels[0].Period == before {
		t.Fatalf("ApplyTickEffect did not move Period away from %d", before)
	}
}

func TestNoteToPeriodMiddleOctave(t *testing.T) {
	got := NoteToPeriod(48, 8) // note 48 -> octaveShift 0 -> row 1, idx 0
	want := PeriodTable[12]
	if got != want {
		t.Fatalf("NoteToPeriod(48,8) = %d, want %d", got, want)
	}
}

func TestPeriodToIncrementScalesWithC4Speed(t *testing.T) {
	base := PeriodToIncrement(428, 0, 44100)
	doubled := PeriodToIncrement(428, 16726, 44100) // 2x default c4Speed (8363)
	if doubled < base*19/10 || doubled > base*21/10 {
		t.Fatalf("doubling c4Speed did not roughly double the increment: base=%d doubled=%d", base, doubled)
	}
}
