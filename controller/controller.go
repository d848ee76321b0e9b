// Package controller is the single facade spec §4.11 names for driving
// playback: load_song, play/stop, position/track_position,
// render_frames_into, render_to_wav and apply_edit. It wraps engine.Engine
// the way the teacher's cmd/modplay.AudioPlayer (play.go) wraps a Player
// for a portaudio stream callback, generalized into a format-neutral,
// transport-agnostic facade any host (CLI, test harness, plugin) can
// drive, with the two-thread edit path spec §5 describes: an
// arbitrary control-thread goroutine calls ApplyEdit, and the thread
// that calls RenderFramesInto/RenderBlock is the only one to ever touch
// the Engine directly.
package controller

import (
	"fmt"
	"io"
	"sync/atomic"

	"github.com/chriskillpack/modplayer/edit"
	"github.com/chriskillpack/modplayer/engine"
	"github.com/chriskillpack/modplayer/graphmixer"
	"github.com/chriskillpack/modplayer/ir"
	"github.com/chriskillpack/modplayer/schedule"
	"github.com/chriskillpack/modplayer/wav"
)

// defaultEditQueueCapacity bounds the control->audio edit channel; a
// control thread that outruns it blocks on ApplyEdit rather than the
// audio thread ever blocking on a full queue.
const defaultEditQueueCapacity = 256

// Controller owns one Engine and the single-producer/single-consumer
// queue that lets a control thread hand it edit commands without ever
// taking a lock on the render path.
type Controller struct {
	eng *engine.Engine

	edits chan edit.Edit

	positionSubBeats atomic.Uint64 // ir.MusicalTime packed as Beat*SubBeatUnit+SubBeat
	playing          atomic.Bool
	finished         atomic.Bool

	sampleRate uint32
}

// New builds a Controller for the given output sample rate and voice
// pool capacity (spec §4.11 load_song's prerequisite Engine).
func New(sampleRate uint32, voiceCapacity int) *Controller {
	return &Controller{
		eng:        engine.New(sampleRate, voiceCapacity),
		edits:      make(chan edit.Edit, defaultEditQueueCapacity),
		sampleRate: sampleRate,
	}
}

// LoadSong prepares and schedules song, replacing any song currently
// loaded (spec §4.11 load_song). Call this from the control thread
// before the render thread starts calling RenderFramesInto.
func (c *Controller) LoadSong(song *ir.Song, opts schedule.Options) error {
	if err := c.eng.Prepare(song); err != nil {
		return err
	}
	if err := c.eng.ScheduleSong(opts); err != nil {
		return err
	}
	c.positionSubBeats.Store(0)
	c.playing.Store(true)
	c.finished.Store(false)
	return nil
}

// Play resumes the transport (spec §4.11 play).
func (c *Controller) Play() {
	c.playing.Store(true)
}

// Stop halts the transport; RenderFramesInto emits silence once stopped
// (spec §4.11 stop).
func (c *Controller) Stop() {
	c.playing.Store(false)
}

// Position returns the transport's current musical time. Safe to call
// from any goroutine (spec §4.11 position).
func (c *Controller) Position() ir.MusicalTime {
	return unpackTime(c.positionSubBeats.Load())
}

// Finished reports whether playback reached end-of-song (not just
// Stop()-halted).
func (c *Controller) Finished() bool { return c.finished.Load() }

// Playing reports whether the transport is currently advancing.
func (c *Controller) Playing() bool { return c.playing.Load() }

// TrackPosition resolves where in trackIdx's sequence/clip/row the
// transport currently sits, by scanning the engine's playback map for
// the latest entry at or before the current position (spec §4.11
// track_position). Returns ok=false if the track has no playback
// history yet (e.g. it has no sequence entries).
func (c *Controller) TrackPosition(trackIdx int) (entry schedule.PlaybackEntry, ok bool) {
	now := c.Position()
	for _, pe := range c.eng.PlaybackMap() {
		if pe.TrackIdx != trackIdx || now.Less(pe.Time) {
			continue
		}
		if !ok || entry.Time.Less(pe.Time) {
			entry, ok = pe, true
		}
	}
	return entry, ok
}

// RenderFramesInto renders numFrames audio frames into out (one []int16
// per output channel, each at least numFrames long), draining pending
// edits before every internal render block. Returns the number of
// frames actually written, which is only ever less than numFrames once
// playback finishes mid-request (spec §4.11 render_frames_into).
func (c *Controller) RenderFramesInto(out [][]int16, numFrames int) int {
	if len(out) == 0 {
		return 0
	}

	block := graphmixer.NewAudioBuffer(len(out))
	written := 0
	for written < numFrames {
		c.drainEdits()

		if !c.playing.Load() {
			for ch := range out {
				for i := written; i < numFrames; i++ {
					out[ch][i] = 0
				}
			}
			return numFrames
		}

		c.eng.RenderBlock(block)
		c.positionSubBeats.Store(packTime(c.eng.Position()))
		if !c.eng.Playing() {
			c.finished.Store(true)
			c.playing.Store(false)
		}

		n := graphmixer.BlockSize
		if remain := numFrames - written; remain < n {
			n = remain
		}
		for ch := range out {
			src := block.Channels[ch]
			dst := out[ch]
			for i := 0; i < n; i++ {
				dst[written+i] = floatToInt16(src[i])
			}
		}
		written += n

		if !c.playing.Load() {
			break
		}
	}
	return written
}

func floatToInt16(f float32) int16 {
	v := f * 32767.0
	switch {
	case v > 32767:
		return 32767
	case v < -32768:
		return -32768
	default:
		return int16(v)
	}
}

// RenderToWav renders the rest of the song (or up to maxFrames, if
// positive) to a 16-bit stereo WAV, reusing the teacher's wav.Writer
// (wav/wav.go) exactly as the CLI's own offline renderer would (spec
// §4.11 render_to_wav).
func (c *Controller) RenderToWav(ws io.WriteSeeker, maxFrames int) (int, error) {
	w, err := wav.NewWriter(ws, int(c.sampleRate))
	if err != nil {
		return 0, fmt.Errorf("controller: creating wav writer: %w", err)
	}

	const chunk = graphmixer.BlockSize * 16
	left := make([]int16, chunk)
	right := make([]int16, chunk)
	out := [][]int16{left, right}

	total := 0
	for maxFrames <= 0 || total < maxFrames {
		want := chunk
		if maxFrames > 0 && maxFrames-total < want {
			want = maxFrames - total
		}
		n := c.RenderFramesInto(out, want)
		if n == 0 {
			break
		}
		if err := w.WriteFrame([][]int16{left[:n], right[:n]}); err != nil {
			return total, fmt.Errorf("controller: writing wav frames: %w", err)
		}
		total += n
		if !c.playing.Load() && c.finished.Load() {
			break
		}
		if n < want {
			break
		}
	}

	if _, err := w.Finish(); err != nil {
		return total, fmt.Errorf("controller: finishing wav file: %w", err)
	}
	return total, nil
}

// ApplyEdit enqueues e for the render thread to apply before its next
// block (spec §4.11 apply_edit). Safe to call from any goroutine; blocks
// only if the edit queue is full, which would mean the render thread has
// stalled.
func (c *Controller) ApplyEdit(e edit.Edit) {
	c.edits <- e
}

// drainEdits applies every edit currently queued, called from the
// render thread only, immediately before each RenderBlock.
func (c *Controller) drainEdits() {
	for {
		select {
		case e := <-c.edits:
			song := c.eng.Song()
			if song == nil {
				continue
			}
			if _, err := edit.Apply(song, c.eng.Queue(), c.eng.Position(), e); err != nil {
				continue
			}
		default:
			return
		}
	}
}

func packTime(t ir.MusicalTime) uint64 {
	return t.Beat*uint64(ir.SubBeatUnit) + uint64(t.SubBeat)
}

func unpackTime(packed uint64) ir.MusicalTime {
	return ir.MusicalTime{
		Beat:    packed / uint64(ir.SubBeatUnit),
		SubBeat: uint32(packed % uint64(ir.SubBeatUnit)),
	}
}
