package engine

import (
	"testing"

	"github.com/chriskillpack/modplayer/graphmixer"
	"github.com/chriskillpack/modplayer/ir"
	"github.com/chriskillpack/modplayer/schedule"
)

func onePatternOneChannelSong() *ir.Song {
	p := &ir.Pattern{Rows: 4, Columns: 1, Shape: ir.ShapeTracker, Cells: make([]ir.Cell, 4)}
	p.CellAt(0, 0).Note = ir.Note{Kind: ir.NoteOn, MIDI: 60}
	p.CellAt(0, 0).Instrument = 1

	g := ir.NewAudioGraph()
	chNode, _ := g.AddNode(ir.Node{Type: ir.NodeTrackerChannel, Channels: ir.ChannelConfig{Ins: 2, Outs: 2}})
	g.Connect(ir.Connection{From: chNode, To: g.Master(), Gain: ir.UnityGain})

	var inst ir.Instrument
	inst.SampleMap[60] = ir.SampleKey{Index: 0, Gen: 1}
	inst.NewNoteAction = ir.NNACut

	data := make([]int16, 100000)
	for i := range data {
		data[i] = 30000
	}

	return &ir.Song{
		Title:                "test",
		InitialBPMHundredths: 12500,
		InitialSpeed:         6,
		RowsPerBeat:          4,
		GlobalVolume:         128,
		Samples:              []ir.Sample{{Format: ir.FormatMono16, Data16: data, Frames: len(data), C4Speed: 8363, DefaultVolume: 60}},
		Instruments:          []ir.Instrument{inst},
		Graph:                g,
		Tracks: []ir.Track{{
			NumChannels: 1,
			Clips:       []ir.Clip{{Kind: ir.ClipPattern, Pattern: p}},
			Sequence:    []ir.SeqEntry{{ClipIdx: 0}},
		}},
	}
}

func TestScheduleSongRequiresPrepare(t *testing.T) {
	e := New(44100, 16)
	if err := e.ScheduleSong(schedule.Options{}); err == nil {
		t.Fatalf("ScheduleSong before Prepare did not error")
	}
}

func TestPrepareRejectsInvalidSong(t *testing.T) {
	e := New(44100, 16)
	if err := e.Prepare(&ir.Song{}); err == nil {
		t.Fatalf("Prepare(song with no Graph) did not error")
	}
}

// TestRenderBlockEndToEndProducesAudio mirrors spec §8 scenario 1: a
// simple 1-channel song plays a note and the rendered block contains
// non-silent audio once the note has triggered.
func TestRenderBlockEndToEndProducesAudio(t *testing.T) {
	song := onePatternOneChannelSong()
	e := New(44100, 16)
	if err := e.Prepare(song); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if err := e.ScheduleSong(schedule.Options{}); err != nil {
		t.Fatalf("ScheduleSong: %v", err)
	}
	if !e.Playing() {
		t.Fatalf("Playing() = false immediately after ScheduleSong")
	}

	out := graphmixer.NewAudioBuffer(2)
	sawAudio := false
	for i := 0; i < 200 && !sawAudio; i++ {
		e.RenderBlock(out)
		for _, v := range out.Channels[0] {
			if v != 0 {
				sawAudio = true
				break
			}
		}
	}
	if !sawAudio {
		t.Fatalf("no non-silent audio rendered after 200 blocks")
	}
}

// TestStopSilencesOutput exercises the transport's stop/rewind contract:
// once stopped, RenderBlock clears its output instead of rendering.
func TestStopSilencesOutput(t *testing.T) {
	song := onePatternOneChannelSong()
	e := New(44100, 16)
	if err := e.Prepare(song); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if err := e.ScheduleSong(schedule.Options{}); err != nil {
		t.Fatalf("ScheduleSong: %v", err)
	}

	e.Stop()
	if e.Playing() {
		t.Fatalf("Playing() = true after Stop()")
	}

	out := graphmixer.NewAudioBuffer(2)
	out.Channels[0][0] = 5
	e.RenderBlock(out)
	if out.Channels[0][0] != 0 {
		t.Fatalf("RenderBlock after Stop left stale audio: %v", out.Channels[0][0])
	}
}

func TestPositionAdvancesMonotonically(t *testing.T) {
	song := onePatternOneChannelSong()
	e := New(44100, 16)
	if err := e.Prepare(song); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if err := e.ScheduleSong(schedule.Options{}); err != nil {
		t.Fatalf("ScheduleSong: %v", err)
	}

	out := graphmixer.NewAudioBuffer(2)
	prev := e.Position()
	for i := 0; i < 10; i++ {
		e.RenderBlock(out)
		cur := e.Position()
		if cur.Less(prev) {
			t.Fatalf("Position went backward: %v -> %v", prev, cur)
		}
		prev = cur
	}
}
