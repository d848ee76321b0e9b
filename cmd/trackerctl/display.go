package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/chriskillpack/modplayer/ir"
)

var (
	white   = color.New(color.FgWhite).SprintfFunc()
	cyan    = color.New(color.FgCyan).SprintfFunc()
	magenta = color.New(color.FgMagenta).SprintfFunc()
	yellow  = color.New(color.FgYellow).SprintfFunc()
	blue    = color.New(color.FgHiBlue).SprintFunc()
)

var noteNames = [12]string{"C-", "C#", "D-", "D#", "E-", "F-", "F#", "G-", "G#", "A-", "A#", "B-"}

func noteName(n ir.Note) string {
	switch n.Kind {
	case ir.NoteOff:
		return "OFF"
	case ir.NoteFade:
		return "==="
	case ir.NoteOn:
		octave := int(n.MIDI)/12 - 1
		return fmt.Sprintf("%s%d", noteNames[n.MIDI%12], octave)
	default:
		return "..."
	}
}

// effectLetter prints the one-character mnemonic the teacher's colored
// display (cmd/modplay/play.go's formatNote) used for the packed MOD
// effect nibble, generalized to this IR's tagged EffectKind.
func effectLetter(k ir.EffectKind) byte {
	switch k {
	case ir.EffectArpeggio:
		return '0'
	case ir.EffectPortaUp:
		return '1'
	case ir.EffectPortaDown:
		return '2'
	case ir.EffectTonePorta:
		return '3'
	case ir.EffectVibrato:
		return '4'
	case ir.EffectTonePortaVolSlide:
		return '5'
	case ir.EffectVibratoVolSlide:
		return '6'
	case ir.EffectTremolo:
		return '7'
	case ir.EffectSetPan:
		return '8'
	case ir.EffectSampleOffset:
		return '9'
	case ir.EffectVolumeSlide:
		return 'A'
	case ir.EffectPositionJump:
		return 'B'
	case ir.EffectSetVolume:
		return 'C'
	case ir.EffectPatternBreak:
		return 'D'
	case ir.EffectSetSpeed, ir.EffectSetTempo:
		return 'F'
	case ir.EffectPatternLoop:
		return 'L'
	case ir.EffectRetrigger:
		return 'R'
	case ir.EffectTremor:
		return 'T'
	default:
		return '.'
	}
}

// formatCell writes one channel's cell in the teacher's pipe-delimited
// column style (cmd/modplay/play.go formatWide): note, instrument,
// volume, effect.
func formatCell(w io.Writer, col int, maxCol int, c ir.Cell) {
	fmt.Fprint(w, white("%s", noteName(c.Note)), " ", cyan("%2X", c.Instrument), " ")
	if c.Volume.Kind != ir.VolCmdNone {
		fmt.Fprint(w, yellow("%02X", c.Volume.Value))
	} else {
		fmt.Fprint(w, yellow(".."))
	}
	fmt.Fprint(w, " ", magenta("%c", effectLetter(c.Effect.Kind)), yellow("%X%X", c.Effect.X, c.Effect.Y))
	if col < maxCol-1 {
		fmt.Fprint(w, "|")
	}
}
