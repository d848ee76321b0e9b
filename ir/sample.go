package ir

// SampleFormat describes the shape of a Sample's raw audio data.
type SampleFormat int

const (
	FormatMono8 SampleFormat = iota
	FormatMono16
	FormatStereo8
	FormatStereo16
)

// LoopType mirrors the classic tracker loop kinds.
type LoopType int

const (
	LoopNone LoopType = iota
	LoopForward
	LoopPingPong
	LoopSustain
)

// Sample is one piece of raw audio data plus the playback metadata a
// Voice needs: loop points, default volume/pan, and the frame rate at
// which it reproduces MIDI note 60 (c4_speed).
type Sample struct {
	Name      string
	Format    SampleFormat
	Data8     []int8  // used by FormatMono8/FormatStereo8 (interleaved for stereo)
	Data16    []int16 // used by FormatMono16/FormatStereo16 (interleaved for stereo)
	Frames    int     // number of sample frames (not raw data elements)
	LoopStart int
	LoopEnd   int
	LoopType  LoopType

	DefaultVolume int // 0-64
	DefaultPan    int // -64..+64
	C4Speed       int // frames/sec at MIDI note 60
}

// Channels returns 1 for mono formats, 2 for stereo formats.
func (s *Sample) Channels() int {
	switch s.Format {
	case FormatStereo8, FormatStereo16:
		return 2
	default:
		return 1
	}
}

// FrameAt returns the (left, right) signed sample value at the given
// frame index, duplicating mono data into both channels. Out-of-range
// frames return silence; callers are expected to keep `frame` inside
// [0, Frames) via wraparound/clamp per spec invariant.
func (s *Sample) FrameAt(frame int) (int32, int32) {
	if frame < 0 || frame >= s.Frames {
		return 0, 0
	}
	switch s.Format {
	case FormatMono8:
		v := int32(s.Data8[frame]) << 8
		return v, v
	case FormatMono16:
		v := int32(s.Data16[frame])
		return v, v
	case FormatStereo8:
		l := int32(s.Data8[frame*2]) << 8
		r := int32(s.Data8[frame*2+1]) << 8
		return l, r
	case FormatStereo16:
		l := int32(s.Data16[frame*2])
		r := int32(s.Data16[frame*2+1])
		return l, r
	}
	return 0, 0
}
