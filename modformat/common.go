// Package modformat adapts the teacher's MOD (mod.go) and S3M (s3m.go)
// file parsers into loaders that build a format-neutral ir.Song, instead
// of the teacher's own MOD-only Song/Player types (spec §4's
// "Supplemented features": reference tracker-format loaders).
package modformat

import "github.com/chriskillpack/modplayer/ir"

// buildChannelGraph constructs the AudioGraph a legacy tracker format
// needs: one NodeTrackerChannel node per channel, each wired directly to
// Master at unity gain (MOD/S3M have no mixer routing beyond a flat sum,
// spec §4.8).
func buildChannelGraph(numChannels int) (*ir.AudioGraph, error) {
	g := ir.NewAudioGraph()
	for ch := 0; ch < numChannels; ch++ {
		key, err := g.AddNode(ir.Node{
			Type:                ir.NodeTrackerChannel,
			TrackerChannelIndex: ch,
			Channels:            ir.ChannelConfig{Ins: 2, Outs: 2},
		})
		if err != nil {
			return nil, err
		}
		if err := g.Connect(ir.Connection{From: key, To: g.Master(), Gain: ir.UnityGain}); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// rawSample is what each format's sample reader fills in before
// toIRSample assembles the final ir.Sample; loop fields are 0/0 when the
// sample doesn't loop.
type rawSample struct {
	Name          string
	Data          []int8
	LoopStart     int
	LoopLen       int
	DefaultVolume int // 0-64
	C4Speed       int // 0 means "use the finetune-derived Amiga default"
}

func toIRSample(r rawSample) ir.Sample {
	s := ir.Sample{
		Name:          r.Name,
		Format:        ir.FormatMono8,
		Data8:         r.Data,
		Frames:        len(r.Data),
		DefaultVolume: r.DefaultVolume,
		C4Speed:       r.C4Speed,
	}
	if r.LoopLen > 1 {
		s.LoopType = ir.LoopForward
		s.LoopStart = r.LoopStart
		s.LoopEnd = r.LoopStart + r.LoopLen
	}
	if s.C4Speed <= 0 {
		s.C4Speed = amigaC4Speed
	}
	return s
}

// amigaC4Speed is the playback rate (frames/sec) a MOD sample reproduces
// MIDI note 60 at, derived from the Amiga period table's row for C-3
// (period 428 at the Amiga's fixed NTSC rate): equivalent to
// ntscClock/(428*2).
const amigaC4Speed = 8363

// instrumentFromSample builds the trivial one-sample-one-instrument
// Instrument a legacy tracker format uses: every MIDI note maps to the
// same sample (pitch comes entirely from playback rate, not sample
// selection), cut on retrigger (MOD/S3M have no NNA concept).
//
// sampleIdx is the 0-based index this sample will occupy in Song.Samples.
// Instrument.SampleMap must already hold the stable SampleKey the
// Engine's sample SlotMap will produce; Engine.Prepare inserts
// Song.Samples in order into an empty SlotMap, which deterministically
// hands out Key{Index: i, Gen: 1} for the i-th insert (ir/slotmap.go), so
// precomputing that same key here keeps the loader independent of any
// running Engine.
func instrumentFromSample(sampleIdx int, name string, defaultVolume int) ir.Instrument {
	key := ir.SampleKey{Index: uint32(sampleIdx), Gen: 1}
	inst := ir.Instrument{
		Name:          name,
		NewNoteAction: ir.NNACut,
		DefaultVolume: defaultVolume,
	}
	for i := range inst.SampleMap {
		inst.SampleMap[i] = key
	}
	return inst
}
