package schedule

import (
	"testing"

	"github.com/chriskillpack/modplayer/ir"
)

// buildPattern makes a Rows-row, 1-column pattern with a NoteOn on row 0
// and, if jumpTo >= 0, an EffectPositionJump(jumpTo) on the last row.
func buildPattern(rows, jumpTo int) *ir.Pattern {
	p := &ir.Pattern{Rows: rows, Columns: 1, Shape: ir.ShapeTracker, Cells: make([]ir.Cell, rows)}
	p.CellAt(0, 0).Note = ir.Note{Kind: ir.NoteOn, MIDI: 60}
	p.CellAt(0, 0).Instrument = 1
	if jumpTo >= 0 {
		p.CellAt(rows-1, 0).Effect = ir.Effect{Kind: ir.EffectPositionJump, X: 0, Y: jumpTo}
	}
	return p
}

func onePatternSong(rows int) *ir.Song {
	return &ir.Song{
		RowsPerBeat: 4,
		Tracks: []ir.Track{{
			NumChannels: 1,
			Clips:       []ir.Clip{{Kind: ir.ClipPattern, Pattern: buildPattern(rows, -1)}},
			Sequence:    []ir.SeqEntry{{ClipIdx: 0}},
		}},
	}
}

// TestPlaybackMapTimeNonDecreasing exercises spec §8 property 7: playback
// map entries have strictly non-decreasing time.
func TestPlaybackMapTimeNonDecreasing(t *testing.T) {
	song := &ir.Song{
		RowsPerBeat: 4,
		Tracks: []ir.Track{
			{NumChannels: 1, Clips: []ir.Clip{
				{Kind: ir.ClipPattern, Pattern: buildPattern(16, -1)},
				{Kind: ir.ClipPattern, Pattern: buildPattern(16, -1)},
			}, Sequence: []ir.SeqEntry{{ClipIdx: 0}, {ClipIdx: 1, Start: ir.MusicalTime{Beat: 4}}}},
			{NumChannels: 1, BaseChannel: 1, Clips: []ir.Clip{
				{Kind: ir.ClipPattern, Pattern: buildPattern(8, -1)},
			}, Sequence: []ir.SeqEntry{{ClipIdx: 0}}},
		},
	}

	res := Schedule(song, Options{})
	for i := 1; i < len(res.PlaybackMap); i++ {
		prev, cur := res.PlaybackMap[i-1].Time, res.PlaybackMap[i].Time
		if cur.Less(prev) {
			t.Fatalf("playback map entry %d time %v precedes entry %d time %v", i, cur, i-1, prev)
		}
	}
	for i := 1; i < len(res.Events); i++ {
		if res.Events[i].Time.Less(res.Events[i-1].Time) {
			t.Fatalf("event %d out of order: %v before %v", i, res.Events[i].Time, res.Events[i-1].Time)
		}
	}
}

// TestPositionJumpBackwardRespectsBudget mirrors spec §8 scenario 5: a
// 2-pattern, 64-row song whose last pattern jumps back to order 0 must
// stop at the replay budget (K * total song rows) instead of looping
// forever.
func TestPositionJumpBackwardRespectsBudget(t *testing.T) {
	const rows = 64
	song := &ir.Song{
		RowsPerBeat: 4,
		Tracks: []ir.Track{{
			NumChannels: 1,
			Clips: []ir.Clip{
				{Kind: ir.ClipPattern, Pattern: buildPattern(rows, -1)},
				{Kind: ir.ClipPattern, Pattern: buildPattern(rows, 0)},
			},
			Sequence: []ir.SeqEntry{{ClipIdx: 0}, {ClipIdx: 1}},
		}},
	}

	const k = 8
	res := Schedule(song, Options{ReplayBudgetK: k})

	if !res.BudgetHit {
		t.Fatalf("BudgetHit = false, want true for an infinitely looping track")
	}

	wantRows := k * (2 * rows)
	if len(res.PlaybackMap) != wantRows {
		t.Fatalf("PlaybackMap has %d entries, want %d (budget-bounded row count)", len(res.PlaybackMap), wantRows)
	}

	// A budget-exhausted track never gets its EndOfSong marker.
	for _, e := range res.Events {
		if e.Payload.Kind == ir.PayloadEndOfSong {
			t.Fatalf("EndOfSong emitted despite BudgetHit")
		}
	}
}

// TestPatternBreakAdvancesToNextClip exercises the spec §8 boundary
// behavior: PatternBreak to row 0 of the next pattern transitions cleanly.
func TestPatternBreakAdvancesToNextClip(t *testing.T) {
	p0 := buildPattern(8, -1)
	p0.CellAt(3, 0).Effect = ir.Effect{Kind: ir.EffectPatternBreak, X: 0, Y: 0}
	p1 := buildPattern(8, -1)

	song := &ir.Song{
		RowsPerBeat: 4,
		Tracks: []ir.Track{{
			NumChannels: 1,
			Clips:       []ir.Clip{{Kind: ir.ClipPattern, Pattern: p0}, {Kind: ir.ClipPattern, Pattern: p1}},
			Sequence:    []ir.SeqEntry{{ClipIdx: 0}, {ClipIdx: 1}},
		}},
	}

	res := Schedule(song, Options{})

	// Rows 0-3 of clip 0, then every row of clip 1: 4 + 8 = 12 rows.
	if len(res.PlaybackMap) != 12 {
		t.Fatalf("PlaybackMap has %d entries, want 12 (break truncates clip 0 to 4 rows)", len(res.PlaybackMap))
	}
	for i, pe := range res.PlaybackMap[:4] {
		if pe.ClipIdx != 0 || pe.Row != i {
			t.Fatalf("entry %d = %+v, want clip 0 row %d", i, pe, i)
		}
	}
	for i, pe := range res.PlaybackMap[4:] {
		if pe.ClipIdx != 1 || pe.Row != i {
			t.Fatalf("entry %d = %+v, want clip 1 row %d", i+4, pe, i)
		}
	}
}

// TestPositionJumpToCurrentFormsOnePatternLoop exercises the spec §8
// boundary behavior: a PositionJump to the currently-playing order index
// forms a one-pattern loop honoring the replay budget.
func TestPositionJumpToCurrentFormsOnePatternLoop(t *testing.T) {
	const rows = 4
	song := &ir.Song{
		RowsPerBeat: 4,
		Tracks: []ir.Track{{
			NumChannels: 1,
			Clips:       []ir.Clip{{Kind: ir.ClipPattern, Pattern: buildPattern(rows, 0)}},
			Sequence:    []ir.SeqEntry{{ClipIdx: 0}},
		}},
	}

	const k = 3
	res := Schedule(song, Options{ReplayBudgetK: k})

	if !res.BudgetHit {
		t.Fatalf("BudgetHit = false, want true for a self-jumping single pattern")
	}
	if want := k * rows; len(res.PlaybackMap) != want {
		t.Fatalf("PlaybackMap has %d entries, want %d", len(res.PlaybackMap), want)
	}
}

// TestTimeForPatternRowFindsAllOccurrences grounds edit.Apply's row-time
// lookups: in a single-pass song, row 0 occurs exactly once, at time zero.
func TestTimeForPatternRowFindsAllOccurrences(t *testing.T) {
	song := onePatternSong(4)
	times := TimeForPatternRow(song, 0, 0, 0)
	if len(times) != 1 {
		t.Fatalf("TimeForPatternRow returned %d times, want 1 for a single-pass song", len(times))
	}
	if !times[0].Equal((ir.MusicalTime{})) {
		t.Fatalf("first occurrence time = %v, want zero", times[0])
	}
}
