// Command trackerctl is a terminal MOD/S3M player driving the
// controller package, adapting cmd/modplay/main.go's portaudio stream
// and scrolling colored pattern display into the controller.Controller
// facade (spec §4.11) and adding transport keybindings via
// atomicgo.dev/keyboard (spec §4.11 play/stop) in place of the
// teacher's SIGINT-only lifecycle.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"atomicgo.dev/keyboard"
	"atomicgo.dev/keyboard/keys"
	"github.com/gordonklaus/portaudio"

	"github.com/chriskillpack/modplayer/controller"
	"github.com/chriskillpack/modplayer/ir"
	"github.com/chriskillpack/modplayer/modformat"
	"github.com/chriskillpack/modplayer/schedule"
)

var (
	flagHz    = flag.Int("hz", 44100, "output hz")
	flagTrack = flag.Int("track", 0, "track index to display")
	flagWav   = flag.String("wav", "", "render to this WAV file instead of opening an audio device")
)

const (
	escape     = "\x1b["
	hideCursor = escape + "?25l"
	showCursor = escape + "?25h"
)

// loadSong tries S3M first (LoadS3M rejects anything missing the SCRM
// magic), then falls back to MOD, so the file extension need not match.
func loadSong(path string) (*ir.Song, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if song, err := modformat.LoadS3M(data); err == nil {
		return song, nil
	}
	return modformat.LoadMOD(data)
}

// renderToWavFile drives controller.RenderToWav to the end of the song,
// replacing the teacher's cmd/modwav (a second CLI built around the old
// Player, now superseded by this one -wav flag).
func renderToWavFile(ctl *controller.Controller, path string) {
	f, err := os.Create(path)
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()

	frames, err := ctl.RenderToWav(f, 0)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("wrote %d frames to %s\n", frames, path)
}

func main() {
	log.SetFlags(0)
	log.SetPrefix("trackerctl: ")
	flag.Parse()

	if len(flag.Args()) == 0 {
		log.Fatal("Missing module filename")
	}

	song, err := loadSong(flag.Arg(0))
	if err != nil {
		log.Fatal(err)
	}

	ctl := controller.New(uint32(*flagHz), 128)
	if err := ctl.LoadSong(song, schedule.Options{}); err != nil {
		log.Fatal(err)
	}

	if *flagWav != "" {
		renderToWavFile(ctl, *flagWav)
		return
	}

	if err := portaudio.Initialize(); err != nil {
		log.Fatal(err)
	}
	defer portaudio.Terminate()

	const scratchFrames = 512
	left := make([]int16, scratchFrames)
	right := make([]int16, scratchFrames)
	planar := [][]int16{left, right}

	streamCB := func(out []int16) {
		frames := len(out) / 2
		if frames > scratchFrames {
			frames = scratchFrames
		}
		n := ctl.RenderFramesInto(planar, frames)
		for i := 0; i < n; i++ {
			out[2*i] = left[i]
			out[2*i+1] = right[i]
		}
		for i := n; i < frames; i++ {
			out[2*i] = 0
			out[2*i+1] = 0
		}
	}

	stream, err := portaudio.OpenDefaultStream(0, 2, float64(*flagHz), portaudio.FramesPerBufferUnspecified, streamCB)
	if err != nil {
		log.Fatal(err)
	}
	defer stream.Close()

	stream.Start()
	defer stream.Stop()

	quit := make(chan struct{})
	var quitOnce sync.Once
	doQuit := func() {
		quitOnce.Do(func() {
			ctl.Stop()
			stream.Stop()
			fmt.Print(showCursor)
			close(quit)
		})
	}

	sigch := make(chan os.Signal, 1)
	signal.Notify(sigch, syscall.SIGINT)
	go func() {
		<-sigch
		doQuit()
	}()

	go func() {
		keyboard.Listen(func(key keys.Key) (stop bool, err error) {
			switch key.Code {
			case keys.CtrlC, keys.Escape:
				doQuit()
				return true, nil
			case keys.Space:
				if ctl.Playing() {
					ctl.Stop()
				} else {
					ctl.Play()
				}
			case keys.RuneKey:
				if key.String() == "q" {
					doQuit()
					return true, nil
				}
			}
			return false, nil
		})
	}()

	fmt.Print(hideCursor)
	fmt.Println(song.Title)

	track := *flagTrack
	if track < 0 || track >= len(song.Tracks) {
		track = 0
	}

	var lastRow = -1
	var lastClip = -1
	for {
		select {
		case <-quit:
			fmt.Print(showCursor)
			return
		default:
		}

		if ctl.Finished() {
			doQuit()
			continue
		}

		entry, ok := ctl.TrackPosition(track)
		if !ok || (entry.Row == lastRow && entry.ClipIdx == lastClip) {
			continue
		}
		lastRow, lastClip = entry.Row, entry.ClipIdx

		pattern := song.Tracks[track].Clips[entry.ClipIdx].Pattern
		if pattern == nil {
			continue
		}

		for i := -4; i <= 4; i++ {
			row := entry.Row + i
			if row < 0 || row >= pattern.Rows {
				fmt.Println()
				continue
			}

			if i == 0 {
				fmt.Print(blue(">>> "))
			} else {
				fmt.Print("    ")
			}

			maxCol := pattern.Columns
			if maxCol > 4 {
				maxCol = 4
			}
			for col := 0; col < maxCol; col++ {
				formatCell(os.Stdout, col, maxCol, *pattern.CellAt(row, col))
			}
			if pattern.Columns > 4 {
				fmt.Print(" ...")
			}
			if i == 0 {
				fmt.Print(blue(" <<<"))
			}
			fmt.Println()
		}
		fmt.Print(escape + "9F")
	}
}
