package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/daviddao/boxline/pkg/gamelog"
	"github.com/daviddao/boxline/pkg/wire"
)

// cmdWatch tails the log and prints events as they are appended. The
// stream is reassembled with a wire.Parser, so chunk boundaries from the
// log never split a record.
func (a *app) cmdWatch(args []string) int {
	flags := flag.NewFlagSet("watch", flag.ContinueOnError)
	fromStart := flags.Bool("from-start", false, "replay existing events before tailing")
	jsonOut := flags.Bool("json", false, "JSON output (one object per line)")
	if err := flags.Parse(args); err != nil {
		return 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle ctrl-c gracefully.
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		cancel()
	}()

	// Position after the header (or at the tail), then subscribe.
	from := int64(wire.HeaderSize)
	index := 0
	if !*fromStart {
		data, _, err := a.log.Read(ctx, 0)
		if errors.Is(err, gamelog.ErrNotFound) {
			fmt.Fprintln(os.Stderr, "boxline: no game log yet (run 'boxline init')")
			return 1
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "boxline: watch: %v\n", err)
			return 1
		}
		if len(data) >= wire.HeaderSize {
			complete := (len(data) - wire.HeaderSize) / wire.RecordSize
			index = complete
			from = int64(wire.HeaderSize + complete*wire.RecordSize)
		}
	}

	ch, err := a.log.Subscribe(ctx, from)
	if errors.Is(err, gamelog.ErrNotFound) {
		fmt.Fprintln(os.Stderr, "boxline: no game log yet (run 'boxline init')")
		return 1
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "boxline: watch: %v\n", err)
		return 1
	}

	fmt.Fprintln(os.Stderr, "watching the game log (ctrl-c to stop)")
	var p wire.Parser
	for chunk := range ch {
		if chunk.Err != nil {
			fmt.Fprintf(os.Stderr, "boxline: watch: %v\n", chunk.Err)
			return 1
		}
		events, err := p.Feed(chunk.Data)
		if err != nil {
			fmt.Fprintf(os.Stderr, "boxline: watch: %v\n", err)
			return 1
		}
		for _, e := range events {
			if *jsonOut {
				printJSONLine(map[string]interface{}{
					"index": index, "edge": e.Edge, "team": e.Team, "seen_at": time.Now().UTC(),
				})
			} else {
				coord, _ := a.grid.EdgeCoordOf(e.Edge)
				fmt.Printf("[%d] edge %d (%d,%d,%s) team %d\n", index, e.Edge, coord.X, coord.Y, coord.O, e.Team)
			}
			index++
		}
	}
	fmt.Fprintln(os.Stderr, "\nstopped")
	return 0
}
