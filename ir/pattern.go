package ir

// NoteKind discriminates a Cell's note field.
type NoteKind int

const (
	NoteNone NoteKind = iota
	NoteOn
	NoteOff
	NoteFade
)

// Note is a tagged note value: None, On(midiNote), Off or Fade.
type Note struct {
	Kind NoteKind
	MIDI uint8 // valid when Kind == NoteOn
}

// EffectKind enumerates every legacy tracker effect the scheduler and
// channel controller understand. Naming follows the teacher's effect
// constants (player.go, s3m.go) generalized into one tagged union
// instead of per-format byte codes.
type EffectKind int

const (
	EffectNone EffectKind = iota
	EffectArpeggio
	EffectPortaUp
	EffectPortaDown
	EffectTonePorta
	EffectTonePortaVolSlide
	EffectVibrato
	EffectVibratoVolSlide
	EffectTremolo
	EffectSetPan
	EffectSampleOffset
	EffectVolumeSlide
	EffectPositionJump
	EffectSetVolume
	EffectPatternBreak
	EffectSetSpeed
	EffectSetTempo
	EffectSetGlobalVolume
	EffectFineVolSlideUp
	EffectFineVolSlideDown
	EffectFinePortaUp
	EffectFinePortaDown
	EffectSetFineTune
	EffectPatternLoop
	EffectPatternDelay
	EffectNoteCut
	EffectNoteDelay
	EffectRetrigger
	EffectTremor
	EffectSetVibratoWaveform
	EffectSetTremoloWaveform
	EffectSetEnvelopePosition
)

// Effect is one row's effect command: a kind plus up to two nibble/byte
// parameters, matching the x/y parameter shape every tracker format uses.
type Effect struct {
	Kind EffectKind
	X    int // high nibble / first parameter
	Y    int // low nibble / second parameter
}

// Param returns X*16+Y, the combined byte parameter tracker formats store.
func (e Effect) Param() int { return e.X<<4 | e.Y }

// VolumeCommandKind discriminates the Cell's volume-column command.
type VolumeCommandKind int

const (
	VolCmdNone VolumeCommandKind = iota
	VolCmdSet
	VolCmdSlideUp
	VolCmdSlideDown
	VolCmdFineSlideUp
	VolCmdFineSlideDown
	VolCmdVibratoDepth
	VolCmdSetPan
	VolCmdPortaUp // panning slide style effects map here too for simplicity
	VolCmdPortaDown
	VolCmdToneParam
)

// VolumeCommand is the compact per-row command the volume column encodes
// in most tracker formats (IT/XM-style), distinct from the row Effect.
type VolumeCommand struct {
	Kind  VolumeCommandKind
	Value int
}

// Cell is one track-column/row intersection in a Tracker-shape Pattern.
type Cell struct {
	Note       Note
	Instrument int // 0 = keep current, 1..255 = index+1
	Volume     VolumeCommand
	Effect     Effect
}

// PatternShape discriminates the two data layouts a Pattern can hold.
type PatternShape int

const (
	ShapeTracker PatternShape = iota
	ShapeParams
)

// Pattern is either a grid of tracker Cells or a grid of per-parameter
// automation values ("Params" shape); a single Pattern has one shape.
type Pattern struct {
	Rows         int
	TicksPerRow  int
	RowsPerBeat  int // 0 means "use song default"
	Shape        PatternShape

	Cells  []Cell  // len == Rows*Columns when Shape == ShapeTracker
	Params []int32 // len == Rows*len(ParamIDs) when Shape == ShapeParams
	ParamIDs []int
	Columns int
}

// CellAt returns the cell at (row, col) in a Tracker-shape pattern.
func (p *Pattern) CellAt(row, col int) *Cell {
	return &p.Cells[row*p.Columns+col]
}

// EffectiveRowsPerBeat returns p.RowsPerBeat if set, otherwise the song
// default passed in.
func (p *Pattern) EffectiveRowsPerBeat(songDefault int) int {
	if p.RowsPerBeat > 0 {
		return p.RowsPerBeat
	}
	return songDefault
}
