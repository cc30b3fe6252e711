package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/daviddao/boxline/pkg/gamelog"
	"github.com/daviddao/boxline/pkg/wire"
)

// cmdEvents reads the raw log and prints the decoded records. It goes
// straight to the log, not through the engine: no replay, no quota, just
// the stream.
func (a *app) cmdEvents(args []string) int {
	flags := flag.NewFlagSet("events", flag.ContinueOnError)
	since := flags.Int("since", 0, "first record index to print")
	limit := flags.Int("limit", 100, "maximum records to print (0 = all)")
	jsonOut := flags.Bool("json", false, "JSON output (one object per line)")
	if err := flags.Parse(args); err != nil {
		return 1
	}

	ctx := context.Background()
	data, _, err := a.log.Read(ctx, 0)
	if errors.Is(err, gamelog.ErrNotFound) {
		fmt.Fprintln(os.Stderr, "boxline: no game log yet (run 'boxline init')")
		return 1
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "boxline: events: %v\n", err)
		return 1
	}
	if len(data) < wire.HeaderSize {
		fmt.Fprintf(os.Stderr, "boxline: events: log is %d bytes, shorter than the header\n", len(data))
		return 1
	}
	epoch, err := wire.DecodeHeader(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "boxline: events: %v\n", err)
		return 1
	}

	var p wire.Parser
	events, err := p.Feed(data[wire.HeaderSize:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "boxline: events: %v\n", err)
		return 1
	}
	if p.Buffered() != 0 {
		fmt.Fprintf(os.Stderr, "boxline: warning: %d trailing bytes of a torn record\n", p.Buffered())
	}

	if !*jsonOut {
		fmt.Printf("epoch %s, %d events\n", epoch.Format("2006-01-02 15:04:05.000"), len(events))
	}
	printed := 0
	for i, e := range events {
		if i < *since {
			continue
		}
		if *limit > 0 && printed >= *limit {
			break
		}
		printed++
		if *jsonOut {
			printJSONLine(map[string]interface{}{"index": i, "edge": e.Edge, "team": e.Team})
		} else {
			coord, _ := a.grid.EdgeCoordOf(e.Edge)
			fmt.Printf("  [%d] edge %d (%d,%d,%s) team %d\n", i, e.Edge, coord.X, coord.Y, coord.O, e.Team)
		}
	}
	return 0
}
