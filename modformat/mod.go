package modformat

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	"github.com/chriskillpack/modplayer/ir"
)

const (
	modRowsPerPattern  = 64
	modBytesPerChannel = 4
	modNumSamples      = 31
)

// LoadMOD parses a ProTracker-family MOD file into a format-neutral
// ir.Song, adapting the teacher's NewMODSongFromBytes (mod.go) field
// layout and quirks (a sample's recorded length may overshoot what
// remains in the file; the loop-overshoot correction lifted from
// MilkyTracker) into ir.Sample/ir.Pattern/ir.AudioGraph construction.
func LoadMOD(data []byte) (*ir.Song, error) {
	buf := bytes.NewReader(data)

	titleBytes := make([]byte, 20)
	if _, err := buf.Read(titleBytes); err != nil {
		return nil, fmt.Errorf("modformat: reading MOD title: %w", err)
	}
	title := strings.TrimRight(string(titleBytes), "\x00")

	raws := make([]rawSample, modNumSamples)
	for i := 0; i < modNumSamples; i++ {
		r, err := readMODSampleInfo(buf)
		if err != nil {
			return nil, fmt.Errorf("modformat: reading MOD sample %d header: %w", i, err)
		}
		raws[i] = r
	}

	orderHeader := struct {
		NumOrders uint8
		_         uint8
		OrderData [128]byte
	}{}
	if err := binary.Read(buf, binary.BigEndian, &orderHeader); err != nil {
		return nil, fmt.Errorf("modformat: reading MOD order table: %w", err)
	}
	orders := make([]byte, orderHeader.NumOrders)
	copy(orders, orderHeader.OrderData[:orderHeader.NumOrders])

	numPatterns := int(orders[0])
	for i := 1; i < 128; i++ {
		if int(orderHeader.OrderData[i]) > numPatterns {
			numPatterns = int(orderHeader.OrderData[i])
		}
	}
	numPatterns++

	sig := make([]byte, 4)
	if n, err := buf.Read(sig); n != 4 || err != nil {
		return nil, fmt.Errorf("modformat: reading MOD channel signature: %w", err)
	}
	channels, err := modChannelsFromSignature(sig)
	if err != nil {
		return nil, err
	}

	patterns := make([]*ir.Pattern, numPatterns)
	scratch := make([]byte, modRowsPerPattern*channels*modBytesPerChannel)
	for i := 0; i < numPatterns; i++ {
		if n, err := buf.Read(scratch); n != len(scratch) || err != nil {
			return nil, fmt.Errorf("modformat: reading MOD pattern %d: %w", i, err)
		}
		patterns[i] = modPatternFromBytes(scratch, channels)
	}

	for i := range raws {
		n := len(raws[i].Data)
		if n > buf.Len() {
			n = buf.Len()
		}
		raws[i].Data = raws[i].Data[:n]
		if n > 0 {
			if err := binary.Read(buf, binary.LittleEndian, raws[i].Data); err != nil {
				return nil, fmt.Errorf("modformat: reading MOD sample %d data: %w", i, err)
			}
		}
	}

	graph, err := buildChannelGraph(channels)
	if err != nil {
		return nil, fmt.Errorf("modformat: building channel graph: %w", err)
	}

	song := &ir.Song{
		Title:                title,
		InitialBPMHundredths: 12500,
		InitialSpeed:         6,
		GlobalVolume:         128,
		RowsPerBeat:          4,
		Graph:                graph,
		Samples:              make([]ir.Sample, modNumSamples),
		Instruments:          make([]ir.Instrument, modNumSamples),
	}
	for i, r := range raws {
		song.Samples[i] = toIRSample(r)
		song.Instruments[i] = instrumentFromSample(i, r.Name, r.DefaultVolume)
	}

	clips := make([]ir.Clip, numPatterns)
	for i, p := range patterns {
		clips[i] = ir.Clip{Kind: ir.ClipPattern, Pattern: p}
	}
	seq := make([]ir.SeqEntry, len(orders))
	for i, ord := range orders {
		seq[i] = ir.SeqEntry{ClipIdx: uint16(ord)}
	}
	song.Tracks = []ir.Track{{
		Name:        title,
		BaseChannel: 0,
		NumChannels: channels,
		Clips:       clips,
		Sequence:    seq,
	}}

	return song, nil
}

func modChannelsFromSignature(sig []byte) (int, error) {
	switch string(sig[2:]) {
	case "K.": // M.K.
		return 4, nil
	case "HN": // xCHN
		return int(sig[0]) - '0', nil
	case "CH": // xxCH
		return (int(sig[0])-'0')*10 + (int(sig[1]) - '0'), nil
	}
	return 0, fmt.Errorf("modformat: unrecognized MOD signature %q", string(sig))
}

func readMODSampleInfo(r *bytes.Reader) (rawSample, error) {
	data := struct {
		Name      [22]byte
		Length    uint16
		FineTune  uint8
		Volume    uint8
		LoopStart uint16
		LoopLen   uint16
	}{}
	if err := binary.Read(r, binary.BigEndian, &data); err != nil {
		return rawSample{}, err
	}

	length := int(data.Length) * 2
	loopStart := int(data.LoopStart) * 2
	loopLen := int(data.LoopLen) * 2
	if loopLen < 4 {
		loopLen = 0
	}
	// Loop data can overshoot the sample's end; MilkyTracker's correction:
	// first slide the loop start back, then clamp the length.
	if loopStart+loopLen > length {
		dx := loopStart + loopLen - length
		loopStart -= dx
		if loopStart+loopLen > length {
			dx = loopStart + loopLen - length
			loopLen -= dx
		}
	}
	if loopLen < 2 {
		loopLen = 0
	}

	finetune := int(data.FineTune&7) - int(data.FineTune&8) + 8
	return rawSample{
		Name:          strings.TrimRight(string(data.Name[:]), "\x00"),
		Data:          make([]int8, length),
		LoopStart:     loopStart,
		LoopLen:       loopLen,
		DefaultVolume: int(data.Volume),
		C4Speed:       finetuneToC4Speed(finetune),
	}, nil
}

// finetuneToC4Speed turns ProTracker's signed 4-bit finetune (range
// -8..+7, stored biased by +8) into a playback rate so the channel
// controller's pitch math (which only understands C4Speed) reproduces
// the same detune the original per-sample finetune table gave each of
// the 16 finetune steps.
func finetuneToC4Speed(finetune int) int {
	return int(math.Round(float64(amigaC4Speed) * math.Pow(2, float64(finetune-8)/96.0)))
}

func modPatternFromBytes(raw []byte, channels int) *ir.Pattern {
	p := &ir.Pattern{
		Rows:    modRowsPerPattern,
		Columns: channels,
		Shape:   ir.ShapeTracker,
		Cells:   make([]ir.Cell, modRowsPerPattern*channels),
	}
	for i := range p.Cells {
		nb := raw[i*modBytesPerChannel : (i+1)*modBytesPerChannel]
		p.Cells[i] = modCellFromBytes(nb)
	}
	return p
}

func modCellFromBytes(nb []byte) ir.Cell {
	period := int(nb[0]&0xF)<<8 | int(nb[1])
	sampleNum := int(nb[0]&0xF0) | int(nb[2]>>4)
	effectNibble := int(nb[2] & 0xF)
	x, y := int(nb[3]>>4), int(nb[3]&0xF)

	cell := ir.Cell{Instrument: sampleNum}
	if period > 0 {
		cell.Note = ir.Note{Kind: ir.NoteOn, MIDI: periodToMIDINote(period)}
	}

	if effectNibble == 0xC { // SetVolume doubles as the volume column
		cell.Volume = ir.VolumeCommand{Kind: ir.VolCmdSet, Value: x<<4 | y}
	} else {
		cell.Effect = modEffect(effectNibble, x, y)
	}
	return cell
}

// periodBase is the Amiga period for note C-(-1) in the libxmp-derived
// formula the teacher's periodToPlayerNote uses (mod.go); our MIDI scale
// sits one octave below that function's native output, so the constant
// is halved here (13696/2) to fold the -12 semitone correction directly
// into the log argument rather than subtracting after rounding.
const modPeriodBase = 13696.0 / 2

func periodToMIDINote(period int) uint8 {
	if period <= 0 {
		return 0
	}
	v := 12.0 * math.Log2(modPeriodBase/float64(period))
	note := int(math.Floor(v + 0.5))
	if note < 0 {
		note = 0
	}
	if note > 119 {
		note = 119
	}
	return uint8(note)
}
