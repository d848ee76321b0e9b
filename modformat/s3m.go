package modformat

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chriskillpack/modplayer/ir"
)

// ErrInvalidS3M is returned when the input is missing the SCRM magic.
var ErrInvalidS3M = errors.New("modformat: not a valid S3M file")

const s3mRowsPerPattern = 64

// LoadS3M parses a ScreamTracker 3 module into a format-neutral ir.Song,
// adapting the teacher's NewS3MSongFromBytes (s3m.go): parapointer-based
// sample/pattern indirection, signed-sample conversion via XOR 128, and
// the packed per-row byte-flag pattern format.
func LoadS3M(data []byte) (*ir.Song, error) {
	if len(data) < 48 || string(data[44:48]) != "SCRM" {
		return nil, ErrInvalidS3M
	}

	buf := bytes.NewReader(data)
	titleBytes := make([]byte, 28)
	if _, err := buf.Read(titleBytes); err != nil {
		return nil, fmt.Errorf("modformat: reading S3M title: %w", err)
	}
	title := strings.TrimRight(string(titleBytes), "\x00")

	header := struct {
		Pad             byte
		Filetype        byte
		_               uint16
		OrderCount      uint16
		NumInstruments  uint16
		NumPatterns     uint16
		Flags           uint16
		Tracker         uint16
		SampleFormat    uint16
		_               [4]byte // 'SCRM'
		Volume          uint8
		Speed           uint8
		Tempo           uint8
		MastVolume      uint8
		_               uint8
		Panning         uint8
		_               [8]byte
		_               [2]byte
		ChannelSettings [32]byte
	}{}
	if err := binary.Read(buf, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("modformat: reading S3M header: %w", err)
	}

	channels := 0
	for channels < 32 && header.ChannelSettings[channels] != 255 {
		channels++
	}

	orderBytes := make([]byte, header.OrderCount)
	if _, err := buf.Read(orderBytes); err != nil {
		return nil, fmt.Errorf("modformat: reading S3M order table: %w", err)
	}
	var orders []byte
	for _, pat := range orderBytes {
		if pat == 255 { // end of song marker
			break
		}
		orders = append(orders, pat)
	}

	paras := make([]uint16, int(header.NumInstruments)+int(header.NumPatterns))
	if err := binary.Read(buf, binary.LittleEndian, paras); err != nil {
		return nil, fmt.Errorf("modformat: reading S3M parapointers: %w", err)
	}

	raws := make([]rawSample, header.NumInstruments)
	for i := 0; i < int(header.NumInstruments); i++ {
		r, err := readS3MInstrument(buf, int64(paras[i])*16)
		if err != nil {
			return nil, fmt.Errorf("modformat: reading S3M instrument %d: %w", i, err)
		}
		raws[i] = r
	}

	patterns := make([]*ir.Pattern, header.NumPatterns)
	for i := 0; i < int(header.NumPatterns); i++ {
		p, err := readS3MPattern(buf, int64(paras[i+int(header.NumInstruments)])*16, channels)
		if err != nil {
			return nil, fmt.Errorf("modformat: reading S3M pattern %d: %w", i, err)
		}
		patterns[i] = p
	}

	graph, err := buildChannelGraph(channels)
	if err != nil {
		return nil, fmt.Errorf("modformat: building channel graph: %w", err)
	}

	song := &ir.Song{
		Title:                title,
		InitialBPMHundredths: uint32(header.Tempo) * 100,
		InitialSpeed:         int(header.Speed),
		GlobalVolume:         int(header.Volume) * 2,
		RowsPerBeat:          4,
		Graph:                graph,
		Samples:              make([]ir.Sample, len(raws)),
		Instruments:          make([]ir.Instrument, len(raws)),
	}
	for i, r := range raws {
		song.Samples[i] = toIRSample(r)
		song.Instruments[i] = instrumentFromSample(i, r.Name, r.DefaultVolume)
	}

	clips := make([]ir.Clip, len(patterns))
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

func readS3MInstrument(buf *bytes.Reader, offset int64) (rawSample, error) {
	if _, err := buf.Seek(offset, io.SeekStart); err != nil {
		return rawSample{}, err
	}
	hdr := struct {
		Type         byte
		Filename     [12]byte
		MemSegHi     byte
		MemSegLo     uint16
		SampleLength uint16
		_            uint16
		LoopBegin    uint16
		_            uint16
		LoopEnd      uint16
		_            uint16
		Volume       byte
		_            byte
		Packing      byte
		Flags        byte
		C2Speed      uint16
		_            uint16
		_            [12]byte
		Name         [28]byte
		Scrs         [4]byte
	}{}
	if err := binary.Read(buf, binary.LittleEndian, &hdr); err != nil {
		return rawSample{}, err
	}
	if hdr.Type > 1 {
		return rawSample{}, fmt.Errorf("unsupported sample type %d", hdr.Type)
	}
	if hdr.Flags&4 == 4 {
		return rawSample{}, fmt.Errorf("16-bit samples not currently supported")
	}

	r := rawSample{
		Name:          strings.TrimRight(string(hdr.Name[:]), "\x00"),
		Data:          make([]int8, hdr.SampleLength),
		LoopStart:     int(hdr.LoopBegin),
		LoopLen:       int(hdr.LoopEnd) - int(hdr.LoopBegin),
		DefaultVolume: int(hdr.Volume),
		C4Speed:       int(hdr.C2Speed),
	}
	if hdr.SampleLength == 0 {
		return r, nil
	}

	dataOffset := int64(uint(hdr.MemSegHi)<<16|uint(hdr.MemSegLo)) * 16
	if _, err := buf.Seek(dataOffset, io.SeekStart); err != nil {
		return rawSample{}, err
	}
	if err := binary.Read(buf, binary.LittleEndian, r.Data); err != nil {
		return rawSample{}, err
	}
	for j := range r.Data {
		r.Data[j] = int8(byte(r.Data[j]) ^ 128)
	}
	return r, nil
}

var s3mSkipTable = [8]int64{0, 2, 1, 3, 2, 4, 3, 5}

func readS3MPattern(buf *bytes.Reader, offset int64, channels int) (*ir.Pattern, error) {
	if _, err := buf.Seek(offset, io.SeekStart); err != nil {
		return nil, err
	}
	var packedLen int16
	if err := binary.Read(buf, binary.LittleEndian, &packedLen); err != nil {
		return nil, err
	}
	packedLen -= 2

	p := &ir.Pattern{
		Rows:    s3mRowsPerPattern,
		Columns: channels,
		Shape:   ir.ShapeTracker,
		Cells:   make([]ir.Cell, s3mRowsPerPattern*channels),
	}

	row := 0
	for packedLen > 0 {
		b, err := buf.ReadByte()
		if err != nil {
			return nil, err
		}
		packedLen--
		if b == 0 {
			row++
			if row >= s3mRowsPerPattern {
				break
			}
			continue
		}

		chn := int(b & 31)
		if chn >= channels {
			skip := s3mSkipTable[b>>5]
			if _, err := buf.Seek(skip, io.SeekCurrent); err != nil {
				return nil, err
			}
			packedLen -= int16(skip)
			continue
		}

		cell := p.CellAt(row, chn)

		if b&32 == 32 {
			noteByte, _ := buf.ReadByte()
			instr, _ := buf.ReadByte()
			packedLen -= 2
			if noteByte == 254 {
				cell.Note = ir.Note{Kind: ir.NoteOff}
			} else {
				octave, note := int(noteByte>>4), int(noteByte&0xF)
				cell.Note = ir.Note{Kind: ir.NoteOn, MIDI: uint8(12*octave + note)}
			}
			cell.Instrument = int(instr)
		}

		if b&64 == 64 {
			vol, _ := buf.ReadByte()
			packedLen--
			cell.Volume = ir.VolumeCommand{Kind: ir.VolCmdSet, Value: int(vol)}
		}

		if b&128 == 128 {
			letter, _ := buf.ReadByte()
			param, _ := buf.ReadByte()
			packedLen -= 2
			cell.Effect = s3mEffect(letter, param)
		}
	}

	return p, nil
}
