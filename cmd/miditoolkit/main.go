// This defines a small command-line smoke-test for the miditoolkit
// library: it opens an SMF file, parses every track, and prints the
// file-wide statistics computed by the statistics engine.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	miditoolkit "github.com/arduano/miditoolkit-go"
)

func run() int {
	var filename string
	var workers int
	flag.StringVar(&filename, "input_file", "", "The .mid file to open.")
	flag.IntVar(&workers, "workers", 4, "Number of worker goroutines used "+
		"to scan channels concurrently.")
	flag.Parse()
	if filename == "" {
		fmt.Printf("Invalid arguments. Run with -help for more information.\n")
		return 1
	}

	inputFile, e := os.Open(filename)
	if e != nil {
		fmt.Printf("Couldn't open %s: %s\n", filename, e)
		return 1
	}
	defer inputFile.Close()

	source, e := miditoolkit.ReadRAMSource(inputFile)
	if e != nil {
		fmt.Printf("Couldn't read %s into memory: %s\n", filename, e)
		return 1
	}

	file, e := miditoolkit.ParseFile(source)
	if e != nil {
		fmt.Printf("Couldn't parse %s: %s\n", filename, e)
		return 1
	}
	fmt.Printf("Parsed %s OK. Format %d, %d tracks, PPQ %d.\n",
		filename, file.Format(), file.TrackCount(), file.PPQ())

	streams, e := file.OpenAllTracks()
	if e != nil {
		fmt.Printf("Couldn't open tracks in %s: %s\n", filename, e)
		return 1
	}

	pool := miditoolkit.NewWorkerPool(workers)
	stats, e := miditoolkit.GetChannelsArrayStatistics[uint64](context.Background(), pool, streams)
	if e != nil {
		fmt.Printf("Couldn't compute statistics for %s: %s\n", filename, e)
		return 1
	}

	fmt.Printf("Total events: %d (%d note-on, %d note-off, %d other)\n",
		stats.Group.TotalEventCount, stats.Group.NoteOnCount,
		stats.Group.NoteOffCount, stats.Group.OtherEventCount())
	fmt.Printf("Total duration: %s\n", stats.Group.CalculateTotalDuration(file.PPQ()))
	for i, c := range stats.Channels {
		if c.TotalEventCount == 0 {
			continue
		}
		fmt.Printf("  track %d: %d events, %d note-on, %d note-off\n",
			i, c.TotalEventCount, c.NoteOnCount, c.NoteOffCount)
	}
	return 0
}

func main() {
	os.Exit(run())
}
