// Package schedule flattens a Song's tracks/sequences/patterns into a
// time-sorted event stream and a playback map, faithfully reproducing
// classic tracker flow control (position jump, pattern break, pattern
// loop, pattern delay). It generalizes the row-walk in the teacher's
// Player.sequenceTick (player.go) — which only ever advanced one global
// MOD order list — into an independent per-track walk, since this IR's
// Track owns its own Sequence (spec §3 Track, §4.4 Scheduler).
package schedule

import (
	"sort"

	"github.com/chriskillpack/modplayer/ir"
)

// DefaultReplayBudgetK bounds offline scheduling of songs whose flow
// control loops forever (spec §4.4, §9 Open Questions).
const DefaultReplayBudgetK = 8

// Options configures one Schedule() call.
type Options struct {
	ReplayBudgetK int  // 0 means DefaultReplayBudgetK
	Infinite      bool // not read by Schedule; every walk is budget-bounded
}

// PlaybackEntry is one row of the playback map: where in the song a
// given instant corresponds to, used to report position during loops.
type PlaybackEntry struct {
	Time     ir.MusicalTime
	TrackIdx int
	SeqIdx   int
	ClipIdx  int
	Row      int
}

// Result is everything Schedule produces.
type Result struct {
	Events      []ir.Event
	PlaybackMap []PlaybackEntry
	BudgetHit   bool
}

// Schedule walks every track's sequence and flattens it into a sorted
// event stream plus a playback map (spec §4.4). Deterministic: the same
// Song and Options always yields the same event stream.
func Schedule(song *ir.Song, opts Options) Result {
	k := opts.ReplayBudgetK
	if k <= 0 {
		k = DefaultReplayBudgetK
	}

	var songRows int
	for i := range song.Tracks {
		for c := range song.Tracks[i].Clips {
			if p := song.Tracks[i].Clips[c].Pattern; p != nil {
				songRows += p.Rows
			}
		}
	}
	if songRows == 0 {
		songRows = 1
	}
	budget := k * songRows

	var res Result
	for ti := range song.Tracks {
		rowsEmitted := walkTrack(song, ti, budget, &res)
		_ = rowsEmitted
	}

	sort.SliceStable(res.Events, func(i, j int) bool {
		return res.Events[i].Time.Less(res.Events[j].Time)
	})
	sort.SliceStable(res.PlaybackMap, func(i, j int) bool {
		return res.PlaybackMap[i].Time.Less(res.PlaybackMap[j].Time)
	})
	return res
}

type loopMarker struct {
	row          int
	remaining    int
	wasSet       bool
}

// walkTrack iteratively replays one track's sequence, honoring per-track
// flow control. Time only ever moves forward; a PositionJump/PatternLoop
// changes which cell is read next, not the clock, matching a realtime
// transport where a "loop back" replays patterns later in wall time
// (spec §4.4's "the scheduler is deterministic" + §9 "do not implement
// with coroutines; use a single iterative procedure").
func walkTrack(song *ir.Song, trackIdx int, budget int, res *Result) int {
	track := &song.Tracks[trackIdx]
	if len(track.Sequence) == 0 {
		return 0
	}

	rowsPerBeat := song.RowsPerBeat
	if rowsPerBeat <= 0 {
		rowsPerBeat = 4
	}

	seqIdx := 0
	row := 0
	clock := track.Sequence[0].Start
	rowsEmitted := 0
	// per-column loop state: column -> loopMarker, since "effect within a
	// column affects only that column's flow" (spec §4.4).
	colLoop := map[int]*loopMarker{}

	for seqIdx < len(track.Sequence) && rowsEmitted < budget {
		entry := &track.Sequence[seqIdx]
		if entry.ClipIdx >= uint16(len(track.Clips)) {
			seqIdx++
			continue
		}
		clip := &track.Clips[entry.ClipIdx]

		if clip.Kind == ir.ClipAutomation {
			emitAutomation(trackIdx, clip, entry, clock, res)
			seqIdx++
			row = 0
			if seqIdx < len(track.Sequence) {
				clock = track.Sequence[seqIdx].Start
			}
			continue
		}

		p := clip.Pattern
		if p == nil {
			seqIdx++
			continue
		}
		trpb := p.EffectiveRowsPerBeat(rowsPerBeat)

		advanced := false
		jumpToSeq := -1
		jumpToRow := 0

		for row < p.Rows && rowsEmitted < budget {
			rowTime := clock

			flow := emitRow(song, track, trackIdx, seqIdx, int(entry.ClipIdx), p, row, rowTime, res)
			rowsEmitted++

			res.PlaybackMap = append(res.PlaybackMap, PlaybackEntry{
				Time: rowTime, TrackIdx: trackIdx, SeqIdx: seqIdx, ClipIdx: int(entry.ClipIdx), Row: row,
			})

			nextRow := row + 1
			delayRows := 0

			for _, fc := range flow {
				switch fc.effect.Kind {
				case ir.EffectPositionJump:
					jumpToSeq = fc.effect.Param()
					jumpToRow = 0
				case ir.EffectPatternBreak:
					jumpToSeq = seqIdx + 1
					jumpToRow = fc.effect.X*10 + fc.effect.Y
				case ir.EffectPatternDelay:
					delayRows += fc.effect.Param()
				case ir.EffectPatternLoop:
					lm := colLoop[fc.col]
					if lm == nil {
						lm = &loopMarker{}
						colLoop[fc.col] = lm
					}
					if fc.effect.Y == 0 {
						lm.row = row
						lm.wasSet = true
					} else {
						if !lm.wasSet {
							lm.row = 0
						}
						if lm.remaining == 0 {
							lm.remaining = fc.effect.Y
							nextRow = lm.row
						} else {
							lm.remaining--
							if lm.remaining > 0 {
								nextRow = lm.row
							}
						}
					}
				}
			}

			clock = clock.AddRows(1+delayRows, trpb)
			row = nextRow

			if jumpToSeq >= 0 {
				advanced = true
				break
			}
		}

		if advanced {
			seqIdx = jumpToSeq
			row = jumpToRow
			if seqIdx >= 0 && seqIdx < len(track.Sequence) {
				// Keep the forward-moving clock; only reposition row/seq.
			} else {
				seqIdx = len(track.Sequence) // terminate
			}
			continue
		}

		seqIdx++
		row = 0
	}

	if rowsEmitted >= budget {
		res.BudgetHit = true
	}

	// EndOfSong marker for this track once its sequence is exhausted
	// (only emitted when we didn't stop purely because of the replay
	// budget, matching "live playback respects host policy").
	if !res.BudgetHit {
		res.Events = append(res.Events, ir.Event{
			Time:    clock,
			Target:  ir.EventTarget{Kind: ir.TargetEventGlobal},
			Payload: ir.EventPayload{Kind: ir.PayloadEndOfSong},
		})
	}

	return rowsEmitted
}

type flowEffect struct {
	col    int
	effect ir.Effect
}

// emitRow emits the Event set for one pattern row across all of its
// columns, returning the flow-control effects found (spec §4.4).
func emitRow(song *ir.Song, track *ir.Track, trackIdx, seqIdx, clipIdx int, p *ir.Pattern, row int, t ir.MusicalTime, res *Result) []flowEffect {
	var flow []flowEffect
	for col := 0; col < p.Columns; col++ {
		cell := p.CellAt(row, col)
		channel := uint8(track.BaseChannel + col)

		switch cell.Note.Kind {
		case ir.NoteOn:
			vel := uint8(64)
			if cell.Volume.Kind == ir.VolCmdSet {
				vel = uint8(cell.Volume.Value)
			}
			res.Events = append(res.Events, ir.Event{
				Time:   t,
				Target: ir.EventTarget{Kind: ir.TargetEventChannel, Channel: channel},
				Payload: ir.EventPayload{
					Kind: ir.PayloadNoteOn, Note: cell.Note.MIDI, Velocity: vel, Instrument: cell.Instrument,
				},
			})
		case ir.NoteOff:
			payloadKind := ir.PayloadNoteOff
			if sustainedInstrument(song, cell.Instrument) {
				payloadKind = ir.PayloadGateOff
			}
			res.Events = append(res.Events, ir.Event{
				Time:    t,
				Target:  ir.EventTarget{Kind: ir.TargetEventChannel, Channel: channel},
				Payload: ir.EventPayload{Kind: payloadKind},
			})
		}

		if cell.Effect.Kind != ir.EffectNone {
			res.Events = append(res.Events, ir.Event{
				Time:    t,
				Target:  ir.EventTarget{Kind: ir.TargetEventChannel, Channel: channel},
				Payload: ir.EventPayload{Kind: ir.PayloadEffect, Effect: cell.Effect},
			})

			switch cell.Effect.Kind {
			case ir.EffectPositionJump, ir.EffectPatternBreak, ir.EffectPatternLoop, ir.EffectPatternDelay:
				flow = append(flow, flowEffect{col: col, effect: cell.Effect})
			case ir.EffectSetSpeed, ir.EffectSetTempo, ir.EffectSetGlobalVolume:
				res.Events = append(res.Events, ir.Event{
					Time:    t,
					Target:  ir.EventTarget{Kind: ir.TargetEventGlobal},
					Payload: ir.EventPayload{Kind: ir.PayloadEffect, Effect: cell.Effect},
				})
			}
		}
	}
	return flow
}

func sustainedInstrument(song *ir.Song, instrumentCmd int) bool {
	if instrumentCmd <= 0 || instrumentCmd-1 >= len(song.Instruments) {
		return false
	}
	inst := &song.Instruments[instrumentCmd-1]
	return inst.VolumeEnvelope != nil && inst.VolumeEnvelope.SustainPoint != nil
}

// emitAutomation emits one SetParameter event per breakpoint. The event
// carries the owning track's index so a dispatcher can resolve which
// graph node the automation drives via Track.MachineNode (spec §4.4,
// §4.8's "automation clips target a track's machine node").
func emitAutomation(trackIdx int, clip *ir.Clip, entry *ir.SeqEntry, base ir.MusicalTime, res *Result) {
	for _, pt := range clip.Automation {
		res.Events = append(res.Events, ir.Event{
			Time:   pt.Time,
			Target: ir.EventTarget{Kind: ir.TargetEventGlobal},
			Payload: ir.EventPayload{
				Kind: ir.PayloadSetParameter, ParamID: clip.ParamID, Value: pt.Value, TrackIdx: trackIdx,
			},
		})
	}
}

// ScanRowFlowControl returns the flow-control effects present in a row,
// for use by edit-time row-expansion helpers (spec §4.4).
func ScanRowFlowControl(p *ir.Pattern, row int) []ir.Effect {
	var out []ir.Effect
	for col := 0; col < p.Columns; col++ {
		e := p.CellAt(row, col).Effect
		switch e.Kind {
		case ir.EffectPositionJump, ir.EffectPatternBreak, ir.EffectPatternLoop, ir.EffectPatternDelay:
			out = append(out, e)
		}
	}
	return out
}

// TimeForPatternRow returns every MusicalTime at which (trackIdx,
// clipIdx, row) plays, by re-walking the schedule and recording matches.
// Used by edit commands to find which future events a SetCell/pattern-op
// edit must replace (spec §4.4, §4.12).
func TimeForPatternRow(song *ir.Song, trackIdx, clipIdx, row int) []ir.MusicalTime {
	var times []ir.MusicalTime
	for _, pe := range Schedule(song, Options{}).PlaybackMap {
		if pe.TrackIdx == trackIdx && pe.ClipIdx == clipIdx && pe.Row == row {
			times = append(times, pe.Time)
		}
	}
	return times
}
