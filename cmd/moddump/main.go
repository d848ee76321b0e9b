// Command moddump prints the structure of a parsed MOD/S3M file: title,
// tracks, patterns, samples and instruments, adapted from the teacher's
// modplayer.SetDumpWriter debug hook into a dump of the new ir.Song the
// modformat package now produces.
package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/chriskillpack/modplayer/ir"
	"github.com/chriskillpack/modplayer/modformat"
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("moddump: ")

	if len(os.Args) <= 1 {
		log.Fatal("Missing song filename")
	}

	songFName := os.Args[1]
	songF, err := os.ReadFile(songFName)
	if err != nil {
		log.Fatal(err)
	}

	var song *ir.Song
	switch strings.ToLower(filepath.Ext(songFName)) {
	case ".mod":
		song, err = modformat.LoadMOD(songF)
	case ".s3m":
		song, err = modformat.LoadS3M(songF)
	default:
		err = fmt.Errorf("unsupported song %q", songFName)
	}
	if err != nil {
		log.Fatal(err)
	}

	dumpSong(os.Stdout, song)
}

func dumpSong(w *os.File, song *ir.Song) {
	fmt.Fprintf(w, "Title: %q\n", song.Title)
	fmt.Fprintf(w, "Speed=%d BPM=%.2f GlobalVolume=%d RowsPerBeat=%d\n",
		song.InitialSpeed, float64(song.InitialBPMHundredths)/100, song.GlobalVolume, song.RowsPerBeat)
	fmt.Fprintf(w, "Samples: %d  Instruments: %d\n", len(song.Samples), len(song.Instruments))
	for i, s := range song.Samples {
		if s.Name == "" && s.Frames == 0 {
			continue
		}
		fmt.Fprintf(w, "  [%2d] %-22q frames=%-8d loop=%v c4speed=%d\n", i, s.Name, s.Frames, s.LoopType != ir.LoopNone, s.C4Speed)
	}

	for ti, t := range song.Tracks {
		fmt.Fprintf(w, "Track %d %q: channels=%d clips=%d seq=%d\n", ti, t.Name, t.NumChannels, len(t.Clips), len(t.Sequence))
		for si, entry := range t.Sequence {
			clip := t.Clips[entry.ClipIdx]
			rows := 0
			if clip.Pattern != nil {
				rows = clip.Pattern.Rows
			}
			fmt.Fprintf(w, "  seq[%3d] -> clip %3d (%d rows)\n", si, entry.ClipIdx, rows)
		}
	}
}
