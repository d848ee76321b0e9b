// Package edit implements the data-only edit command system spec §4.12
// describes: a tagged Edit value plus Apply, which mutates a Song in
// place and surgically patches the live event queue so a running
// transport picks up the change without a full reschedule, wherever that
// is safe. It generalizes the teacher's complete absence of live editing
// (MOD has none) from the pure Pattern transforms in ir/patternops.go,
// using schedule.TimeForPatternRow to find when an edited row plays
// (spec §4.4/§4.12).
package edit

import (
	"fmt"

	clone "github.com/huandu/go-clone/generic"

	"github.com/chriskillpack/modplayer/eventqueue"
	"github.com/chriskillpack/modplayer/ir"
	"github.com/chriskillpack/modplayer/schedule"
)

// Kind discriminates an Edit's payload.
type Kind int

const (
	KindSetNodeParam Kind = iota
	KindSetNodeBypass
	KindSetCell
	KindRotatePattern
	KindReversePattern
	KindTransposePattern
	KindInvertPattern
	KindEuclideanFill
	kindRestoreColumn // only ever produced as an inverse, never issued directly
)

// Edit is a single, cheaply-copyable command; fields not relevant to Kind
// are ignored.
type Edit struct {
	Kind Kind

	// KindSetNodeParam / KindSetNodeBypass
	Node    ir.NodeKey
	ParamID int
	Value   int32
	Bypass  bool

	// KindSetCell and the pattern-wide ops all address one clip.
	TrackIdx int
	ClipIdx  int

	// KindSetCell
	Row  int
	Col  int
	Cell ir.Cell

	// KindRotatePattern / KindTransposePattern
	Amount int

	// KindInvertPattern
	Pivot int

	// KindEuclideanFill
	EuclideanK    int
	EuclideanNote uint8

	// kindRestoreColumn (inverse-only)
	snapshot []ir.Cell
}

// SnapshotSong deep-clones song, e.g. before a batch of edits a caller
// wants an undo point for beyond what a single Edit's algebraic inverse
// covers.
func SnapshotSong(song *ir.Song) *ir.Song {
	return clone.Clone(song)
}

// Apply performs e against song, patching queue's future (>= now) events
// to match, and returns the algebraic inverse Edit that undoes it (spec
// §4.12, §8 "applying an edit and its algebraic inverse restores the
// prior event stream").
func Apply(song *ir.Song, queue *eventqueue.Queue, now ir.MusicalTime, e Edit) (Edit, error) {
	switch e.Kind {
	case KindSetNodeParam:
		return applySetNodeParam(song, queue, now, e)
	case KindSetNodeBypass:
		return applySetNodeBypass(song, e)
	case KindSetCell:
		return applySetCell(song, queue, now, e)
	case KindRotatePattern:
		return applyPatternOp(song, queue, now, e, func(p *ir.Pattern) { ir.RotatePattern(p, e.Amount) }, Edit{Kind: KindRotatePattern, TrackIdx: e.TrackIdx, ClipIdx: e.ClipIdx, Amount: -e.Amount})
	case KindReversePattern:
		return applyPatternOp(song, queue, now, e, func(p *ir.Pattern) { ir.ReversePattern(p) }, Edit{Kind: KindReversePattern, TrackIdx: e.TrackIdx, ClipIdx: e.ClipIdx})
	case KindTransposePattern:
		return applyPatternOp(song, queue, now, e, func(p *ir.Pattern) { ir.TransposePattern(p, e.Amount) }, Edit{Kind: KindTransposePattern, TrackIdx: e.TrackIdx, ClipIdx: e.ClipIdx, Amount: -e.Amount})
	case KindInvertPattern:
		return applyPatternOp(song, queue, now, e, func(p *ir.Pattern) { ir.InvertPattern(p, e.Pivot) }, Edit{Kind: KindInvertPattern, TrackIdx: e.TrackIdx, ClipIdx: e.ClipIdx, Pivot: e.Pivot})
	case KindEuclideanFill:
		return applyEuclideanFill(song, queue, now, e)
	case kindRestoreColumn:
		return applyRestoreColumn(song, queue, now, e)
	}
	return Edit{}, fmt.Errorf("edit: unknown kind %d", e.Kind)
}

func applySetNodeParam(song *ir.Song, queue *eventqueue.Queue, now ir.MusicalTime, e Edit) (Edit, error) {
	node, ok := song.Graph.Node(e.Node)
	if !ok {
		return Edit{}, fmt.Errorf("edit: node %v does not resolve", e.Node)
	}
	old := int32(0)
	if node.Params != nil {
		old = node.Params[e.ParamID]
	} else {
		node.Params = map[int]int32{}
	}
	node.Params[e.ParamID] = e.Value
	song.Graph.SetNode(e.Node, node)

	if queue != nil {
		queue.Push(ir.Event{
			Time:    now,
			Target:  ir.EventTarget{Kind: ir.TargetEventNode, Node: e.Node},
			Payload: ir.EventPayload{Kind: ir.PayloadSetParameter, ParamID: e.ParamID, Value: e.Value},
		})
	}

	return Edit{Kind: KindSetNodeParam, Node: e.Node, ParamID: e.ParamID, Value: old}, nil
}

func applySetNodeBypass(song *ir.Song, e Edit) (Edit, error) {
	node, ok := song.Graph.Node(e.Node)
	if !ok {
		return Edit{}, fmt.Errorf("edit: node %v does not resolve", e.Node)
	}
	old := node.Bypass
	node.Bypass = e.Bypass
	song.Graph.SetNode(e.Node, node)
	return Edit{Kind: KindSetNodeBypass, Node: e.Node, Bypass: old}, nil
}

// applySetCell surgically replaces only the events this one cell
// produced, at every instant TimeForPatternRow says this row plays,
// leaving the rest of the queue untouched (spec §4.12's "surgical"
// requirement). It assumes the edited cell is not itself a flow-control
// effect that would change when other rows play; such edits should use
// a full pattern-wide reschedule instead.
func applySetCell(song *ir.Song, queue *eventqueue.Queue, now ir.MusicalTime, e Edit) (Edit, error) {
	if e.TrackIdx < 0 || e.TrackIdx >= len(song.Tracks) {
		return Edit{}, fmt.Errorf("edit: track index %d out of range", e.TrackIdx)
	}
	track := &song.Tracks[e.TrackIdx]
	if e.ClipIdx < 0 || e.ClipIdx >= len(track.Clips) {
		return Edit{}, fmt.Errorf("edit: clip index %d out of range", e.ClipIdx)
	}
	p := track.Clips[e.ClipIdx].Pattern
	if p == nil || p.Shape != ir.ShapeTracker {
		return Edit{}, fmt.Errorf("edit: clip %d has no tracker pattern", e.ClipIdx)
	}

	times := schedule.TimeForPatternRow(song, e.TrackIdx, e.ClipIdx, e.Row)

	old := *p.CellAt(e.Row, e.Col)
	*p.CellAt(e.Row, e.Col) = e.Cell

	if queue != nil {
		channel := uint8(track.BaseChannel + e.Col)
		replaceRowEvents(queue, now, channel, times, e.Cell)
	}

	inverse := e
	inverse.Cell = old
	return inverse, nil
}

func replaceRowEvents(queue *eventqueue.Queue, now ir.MusicalTime, channel uint8, times []ir.MusicalTime, cell ir.Cell) {
	isTarget := func(ev ir.Event) bool {
		if ev.Time.Less(now) {
			return false
		}
		if ev.Target.Kind != ir.TargetEventChannel || ev.Target.Channel != channel {
			return false
		}
		for _, t := range times {
			if ev.Time.Equal(t) {
				return true
			}
		}
		return false
	}
	queue.Retain(func(ev ir.Event) bool { return !isTarget(ev) })

	for _, t := range times {
		if t.Less(now) {
			continue
		}
		emitCellEvents(channel, cell, t, queue)
	}
}

func emitCellEvents(channel uint8, cell ir.Cell, t ir.MusicalTime, queue *eventqueue.Queue) {
	switch cell.Note.Kind {
	case ir.NoteOn:
		vel := uint8(64)
		if cell.Volume.Kind == ir.VolCmdSet {
			vel = uint8(cell.Volume.Value)
		}
		queue.Push(ir.Event{
			Time:   t,
			Target: ir.EventTarget{Kind: ir.TargetEventChannel, Channel: channel},
			Payload: ir.EventPayload{
				Kind: ir.PayloadNoteOn, Note: cell.Note.MIDI, Velocity: vel, Instrument: cell.Instrument,
			},
		})
	case ir.NoteOff:
		queue.Push(ir.Event{
			Time:    t,
			Target:  ir.EventTarget{Kind: ir.TargetEventChannel, Channel: channel},
			Payload: ir.EventPayload{Kind: ir.PayloadNoteOff},
		})
	}
	if cell.Effect.Kind != ir.EffectNone {
		queue.Push(ir.Event{
			Time:    t,
			Target:  ir.EventTarget{Kind: ir.TargetEventChannel, Channel: channel},
			Payload: ir.EventPayload{Kind: ir.PayloadEffect, Effect: cell.Effect},
		})
	}
}

// applyPatternOp runs a whole-pattern transform, then drops every
// not-yet-played event and replaces it with a fresh full schedule. This
// is the "whole-clip" counterpart to applySetCell's row-surgical patch:
// pattern-wide ops can touch every row's timing (rotation in particular
// reorders which row plays when), so a full reschedule-and-splice from
// `now` forward is simpler than re-deriving exactly which events moved.
func applyPatternOp(song *ir.Song, queue *eventqueue.Queue, now ir.MusicalTime, e Edit, op func(*ir.Pattern), inverse Edit) (Edit, error) {
	if e.TrackIdx < 0 || e.TrackIdx >= len(song.Tracks) {
		return Edit{}, fmt.Errorf("edit: track index %d out of range", e.TrackIdx)
	}
	track := &song.Tracks[e.TrackIdx]
	if e.ClipIdx < 0 || e.ClipIdx >= len(track.Clips) {
		return Edit{}, fmt.Errorf("edit: clip index %d out of range", e.ClipIdx)
	}
	p := track.Clips[e.ClipIdx].Pattern
	if p == nil {
		return Edit{}, fmt.Errorf("edit: clip %d has no pattern", e.ClipIdx)
	}

	op(p)
	if queue != nil {
		rescheduleFrom(song, queue, now)
	}
	return inverse, nil
}

func rescheduleFrom(song *ir.Song, queue *eventqueue.Queue, now ir.MusicalTime) {
	queue.Retain(func(ev ir.Event) bool { return ev.Time.Less(now) })
	res := schedule.Schedule(song, schedule.Options{})
	for _, ev := range res.Events {
		if !ev.Time.Less(now) {
			queue.Push(ev)
		}
	}
}

// applyEuclideanFill is not self-invertible (spec §4.2): it snapshots the
// target column first so its inverse is a column restore.
func applyEuclideanFill(song *ir.Song, queue *eventqueue.Queue, now ir.MusicalTime, e Edit) (Edit, error) {
	if e.TrackIdx < 0 || e.TrackIdx >= len(song.Tracks) {
		return Edit{}, fmt.Errorf("edit: track index %d out of range", e.TrackIdx)
	}
	track := &song.Tracks[e.TrackIdx]
	if e.ClipIdx < 0 || e.ClipIdx >= len(track.Clips) {
		return Edit{}, fmt.Errorf("edit: clip index %d out of range", e.ClipIdx)
	}
	p := track.Clips[e.ClipIdx].Pattern
	if p == nil {
		return Edit{}, fmt.Errorf("edit: clip %d has no pattern", e.ClipIdx)
	}

	snapshot := ir.SnapshotColumn(p, e.Col)
	ir.EuclideanFill(p, e.Col, e.EuclideanK, e.EuclideanNote)
	if queue != nil {
		rescheduleFrom(song, queue, now)
	}

	return Edit{Kind: kindRestoreColumn, TrackIdx: e.TrackIdx, ClipIdx: e.ClipIdx, Col: e.Col, snapshot: snapshot}, nil
}

func applyRestoreColumn(song *ir.Song, queue *eventqueue.Queue, now ir.MusicalTime, e Edit) (Edit, error) {
	track := &song.Tracks[e.TrackIdx]
	p := track.Clips[e.ClipIdx].Pattern
	if p == nil {
		return Edit{}, fmt.Errorf("edit: clip %d has no pattern", e.ClipIdx)
	}
	before := ir.SnapshotColumn(p, e.Col)
	ir.RestoreColumn(p, e.Col, e.snapshot)
	if queue != nil {
		rescheduleFrom(song, queue, now)
	}
	return Edit{Kind: kindRestoreColumn, TrackIdx: e.TrackIdx, ClipIdx: e.ClipIdx, Col: e.Col, snapshot: before}, nil
}
