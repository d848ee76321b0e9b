// Package engine orchestrates every other package into the render loop:
// scheduling a Song into events, dispatching those events to channels and
// nodes, ticking the channel controllers and voice pool, and driving the
// graph mixer once per block. It generalizes the teacher's Player (which
// hard-wired a channel array straight to mixChannels) into the setup/
// realtime phase split spec §4.10 requires.
package engine

import (
	"fmt"

	"github.com/chriskillpack/modplayer/channelctl"
	"github.com/chriskillpack/modplayer/eventqueue"
	"github.com/chriskillpack/modplayer/graphmixer"
	"github.com/chriskillpack/modplayer/ir"
	"github.com/chriskillpack/modplayer/machine"
	"github.com/chriskillpack/modplayer/modulate"
	"github.com/chriskillpack/modplayer/schedule"
	"github.com/chriskillpack/modplayer/voice"
)

// Engine owns the voice pool, channel controllers, event queue and graph
// mixer for one Song. An Engine is not safe for concurrent use; the
// controller package gives the audio thread its own Engine instance.
type Engine struct {
	sampleRate uint32

	song *ir.Song

	samples     *ir.SlotMap[ir.Sample]
	instruments *ir.SlotMap[ir.Instrument]

	pool    *voice.Pool
	ctl     *channelctl.Controller
	queue   *eventqueue.Queue
	mixer   *graphmixer.Mixer
	machines      map[ir.NodeKey]machine.Machine
	machineOrder  []ir.NodeKey // topo order, machine-type nodes only; ticked in this fixed order, never by ranging the map (spec §9 determinism)

	tempo         *ir.TempoMap
	speed         int
	tempoTicks    int
	rowsPerBeat   int
	spt           uint32 // sub-beats per tick, recomputed on SetSpeed/SetTempo
	ticksInBeat   uint32 // accumulated sub-beats since the last tick boundary
	globalVolume  float32

	currentTime ir.MusicalTime
	playing     bool
	prepared    bool

	playbackMap []schedule.PlaybackEntry
}

// New constructs an Engine for the given output sample rate and voice-pool
// capacity. Setup phase only.
func New(sampleRate uint32, voiceCapacity int) *Engine {
	return &Engine{
		sampleRate:   sampleRate,
		pool:         voice.NewPool(voiceCapacity),
		globalVolume: 1.0,
	}
}

// Prepare validates song, builds the sample/instrument slot maps, the
// channel controllers, and the graph mixer's machine instances. Must be
// called before ScheduleSong; allocates freely (setup phase).
func (e *Engine) Prepare(song *ir.Song) error {
	if err := song.Validate(); err != nil {
		return fmt.Errorf("engine: invalid song: %w", err)
	}

	e.song = song
	e.samples = ir.NewSlotMap[ir.Sample]()
	e.instruments = ir.NewSlotMap[ir.Instrument]()

	song.SampleKeys = make([]ir.SampleKey, len(song.Samples))
	for i, s := range song.Samples {
		song.SampleKeys[i] = e.samples.Insert(s)
	}
	song.InstrumentKeys = make([]ir.InstrumentKey, len(song.Instruments))
	for i, inst := range song.Instruments {
		song.InstrumentKeys[i] = e.instruments.Insert(inst)
	}

	numChannels := 0
	for i := range song.Tracks {
		t := &song.Tracks[i]
		if t.BaseChannel+t.NumChannels > numChannels {
			numChannels = t.BaseChannel + t.NumChannels
		}
	}
	e.ctl = channelctl.New(numChannels, e.pool, e.sampleRate)

	e.machines = make(map[ir.NodeKey]machine.Machine)
	nodes := make(map[ir.NodeKey]graphmixer.RenderNode)
	for _, k := range song.Graph.AllNodeKeys() {
		n, _ := song.Graph.Node(k)
		if n.Type != ir.NodeMachine {
			continue
		}
		m := BuildMachine(n.MachineName)
		outs := n.Channels.Outs
		if outs <= 0 {
			outs = 2
		}
		m.Init(e.sampleRate, outs)
		e.machines[k] = m
		nodes[k] = m
	}

	mixer, err := graphmixer.New(song, nodes)
	if err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	e.mixer = mixer
	e.mixer.RenderChannel = e.renderChannel

	e.machineOrder = e.machineOrder[:0]
	for _, k := range mixer.Order() {
		if _, ok := e.machines[k]; ok {
			e.machineOrder = append(e.machineOrder, k)
		}
	}

	e.speed = song.InitialSpeed
	if e.speed <= 0 {
		e.speed = 6
	}
	e.rowsPerBeat = song.RowsPerBeat
	if e.rowsPerBeat <= 0 {
		e.rowsPerBeat = 4
	}
	e.tempo = ir.NewTempoMap(e.sampleRate, song.InitialBPMHundredths)
	e.spt = ir.SubBeatsPerTick(e.speed, e.rowsPerBeat)

	e.prepared = false
	return nil
}

// ScheduleSong flattens song into a sorted event stream and playback map,
// loads the queue, and marks the Engine prepared for realtime rendering
// (spec §4.10).
func (e *Engine) ScheduleSong(opts schedule.Options) error {
	if e.song == nil {
		return fmt.Errorf("engine: ScheduleSong called before Prepare")
	}
	res := schedule.Schedule(e.song, opts)
	e.queue = eventqueue.NewFromSorted(res.Events)
	e.playbackMap = res.PlaybackMap
	e.currentTime = ir.MusicalTime{}
	e.playing = true
	e.prepared = true
	return nil
}

// Playing reports whether the transport is still advancing (false after
// EndOfSong or an explicit Stop).
func (e *Engine) Playing() bool { return e.playing }

// Song returns the Engine's prepared Song, for callers (the controller's
// edit path) that mutate it in place between RenderBlock calls.
func (e *Engine) Song() *ir.Song { return e.song }

// Queue returns the Engine's live event queue, for callers that need to
// patch future events (the controller's edit path).
func (e *Engine) Queue() *eventqueue.Queue { return e.queue }

// PlaybackMap returns the flattened row-by-row playback map produced by
// the most recent ScheduleSong call, used to resolve a track's current
// position within its pattern (spec §4.11 track_position).
func (e *Engine) PlaybackMap() []schedule.PlaybackEntry { return e.playbackMap }

// Position returns the engine's current musical time.
func (e *Engine) Position() ir.MusicalTime { return e.currentTime }

// Stop halts the transport; the next RenderBlock call emits silence.
func (e *Engine) Stop() { e.playing = false }

// RenderBlock renders one BlockSize-frame block into out, advancing the
// transport. Must only be called after ScheduleSong (asserted via
// e.prepared). Never allocates.
func (e *Engine) RenderBlock(out graphmixer.AudioBuffer) {
	if !e.prepared {
		panic("engine: RenderBlock called before ScheduleSong")
	}
	if !e.playing {
		out.Clear()
		return
	}

	subPerFrame := e.tempo.SubBeatsPerSampleQ32()
	subPerBlock := (subPerFrame * uint64(graphmixer.BlockSize)) >> 32

	e.queue.DrainUntil(e.currentTime.Add(int64(subPerBlock)), e.dispatch)

	e.ticksInBeat += uint32(subPerBlock)
	for e.spt > 0 && e.ticksInBeat >= e.spt {
		e.ticksInBeat -= e.spt
		e.processTick()
	}

	rendered := e.mixer.RenderBlock()
	copyBuffer(out, rendered, e.globalVolume)

	e.currentTime = e.currentTime.Add(int64(subPerBlock))
}

func copyBuffer(dst, src graphmixer.AudioBuffer, gain float32) {
	for c := range dst.Channels {
		if c >= len(src.Channels) {
			continue
		}
		d, s := dst.Channels[c], src.Channels[c]
		for i := range d {
			d[i] = s[i] * gain
		}
	}
}

// renderChannel is graphmixer.ChannelRenderer: it renders every voice
// currently routed to channelIndex (live or NNA-backgrounded) into out.
func (e *Engine) renderChannel(channelIndex int, out graphmixer.AudioBuffer) {
	if len(out.Channels) == 0 {
		return
	}
	left := out.Channels[0]
	right := left
	if len(out.Channels) > 1 {
		right = out.Channels[1]
	}
	e.pool.Each(func(id ir.VoiceId, v *voice.Voice) {
		if v.Channel != channelIndex {
			return
		}
		sample, ok := e.samples.Get(v.SampleKey)
		if !ok {
			return
		}
		voice.Render(v, &sample, left, right)
	})
}

// dispatch applies one drained event's payload to its target (spec §4.4's
// dispatch phase of render_frame).
func (e *Engine) dispatch(ev *ir.Event) {
	switch ev.Target.Kind {
	case ir.TargetEventChannel:
		e.dispatchChannel(int(ev.Target.Channel), ev.Payload)
	case ir.TargetEventGlobal:
		e.dispatchGlobal(ev.Payload)
	case ir.TargetEventNode:
		e.dispatchNode(ev.Target.Node, ev.Payload)
	}
}

func (e *Engine) dispatchChannel(chIdx int, p ir.EventPayload) {
	if chIdx < 0 || chIdx >= len(e.ctl.Channels) {
		return
	}
	switch p.Kind {
	case ir.PayloadNoteOn:
		e.triggerNote(chIdx, p)
	case ir.PayloadNoteOff:
		e.ctl.GateOff(chIdx, e.instrumentFor(e.ctl.Channels[chIdx].Instrument))
	case ir.PayloadGateOff:
		e.ctl.GateOff(chIdx, e.instrumentFor(e.ctl.Channels[chIdx].Instrument))
	case ir.PayloadEffect:
		e.ctl.ApplyRowEffect(chIdx, p.Effect, e.spt)
		if sample := e.sampleForChannel(chIdx); sample != nil {
			e.ctl.UpdateIncrement(chIdx, sample)
		}
	}
}

func (e *Engine) triggerNote(chIdx int, p ir.EventPayload) {
	if p.Instrument <= 0 || p.Instrument > len(e.song.InstrumentKeys) {
		return
	}
	instKey := e.song.InstrumentKeys[p.Instrument-1]
	inst, ok := e.instruments.Get(instKey)
	if !ok {
		return
	}
	sampleKey := inst.SampleFor(int(p.Note))
	sample, ok := e.samples.Get(sampleKey)
	if !ok {
		return
	}
	e.ctl.TriggerNote(chIdx, int(p.Note), &inst, p.Instrument, &sample, sampleKey, p.Velocity)
}

func (e *Engine) instrumentFor(instrumentIdx int) *ir.Instrument {
	if instrumentIdx <= 0 || instrumentIdx > len(e.song.InstrumentKeys) {
		return nil
	}
	inst, ok := e.instruments.Get(e.song.InstrumentKeys[instrumentIdx-1])
	if !ok {
		return nil
	}
	return &inst
}

func (e *Engine) sampleForChannel(chIdx int) *ir.Sample {
	v := e.pool.VoiceAt(e.ctl.Channels[chIdx].Voice)
	if v == nil {
		return nil
	}
	s, ok := e.samples.Get(v.SampleKey)
	if !ok {
		return nil
	}
	return &s
}

func (e *Engine) dispatchGlobal(p ir.EventPayload) {
	switch p.Kind {
	case ir.PayloadEndOfSong:
		e.playing = false
	case ir.PayloadSetBPM:
		e.tempo.SetBPM(p.BPMHundredths)
	case ir.PayloadEffect:
		switch p.Effect.Kind {
		case ir.EffectSetSpeed:
			e.speed = p.Effect.Param()
			e.spt = ir.SubBeatsPerTick(e.speed, e.rowsPerBeat)
		case ir.EffectSetTempo:
			e.tempoTicks = p.Effect.Param()
			e.tempo.SetBPM(ir.EffectiveBPMHundredths(e.tempoTicks, e.speed, e.rowsPerBeat))
		case ir.EffectSetGlobalVolume:
			e.globalVolume = float32(p.Effect.Param()) / 128.0
		}
	case ir.PayloadSetParameter:
		// Automation clips are scheduled against Global (spec §4.4) but
		// name the owning track, whose MachineNode resolves the actual
		// graph node to apply the parameter to.
		if p.TrackIdx < 0 || p.TrackIdx >= len(e.song.Tracks) {
			return
		}
		node := e.song.Tracks[p.TrackIdx].MachineNode
		if node == nil {
			return
		}
		if m, ok := e.machines[*node]; ok {
			m.SetParam(p.ParamID, p.Value)
		}
	}
}

func (e *Engine) dispatchNode(node ir.NodeKey, p ir.EventPayload) {
	if p.Kind != ir.PayloadSetParameter {
		return
	}
	if m, ok := e.machines[node]; ok {
		m.SetParam(p.ParamID, p.Value)
	}
}

// processTick runs the per-tick phase: advance every channel's active
// modulator, push results to its voice, then age and reap the voice pool
// (spec §4.8's process_tick).
func (e *Engine) processTick() {
	for i := range e.ctl.Channels {
		e.ctl.ApplyTickEffect(i, e.spt)
		if sample := e.sampleForChannel(i); sample != nil {
			e.ctl.UpdateIncrement(i, sample)
		}
	}

	for _, k := range e.machineOrder {
		e.machines[k].Tick(e.spt)
	}

	e.pool.TickAll(func(v *voice.Voice) {
		if v.InstrumentID <= 0 || v.InstrumentID > len(e.song.Instruments) {
			return
		}
		inst := &e.song.Instruments[v.InstrumentID-1]
		if inst.VolumeEnvelope != nil {
			modulate.Advance(&v.VolumeEnv, inst.VolumeEnvelope, e.spt)
		}
	}, e.spt)

	e.pool.ReapFinished(func(v *voice.Voice) bool {
		return !v.Playing
	})
}
