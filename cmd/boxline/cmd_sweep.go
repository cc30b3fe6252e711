package main

import (
	"flag"
	"fmt"
	"os"
	"time"
)

// cmdSweep prunes quota rows idle past the inactivity threshold. Run it
// from cron or a systemd timer; it is independent of the game engine.
func (a *app) cmdSweep(args []string) int {
	flags := flag.NewFlagSet("sweep", flag.ContinueOnError)
	jsonOut := flags.Bool("json", false, "JSON output")
	if err := flags.Parse(args); err != nil {
		return 1
	}

	pruned, err := a.quota.Sweep(time.Now())
	if err != nil {
		fmt.Fprintf(os.Stderr, "boxline: sweep: %v\n", err)
		return 1
	}
	remaining, _ := a.quota.Count()

	if *jsonOut {
		printJSON(map[string]interface{}{"pruned": pruned, "remaining": remaining})
	} else {
		fmt.Printf("pruned %d idle quota row(s), %d remaining\n", pruned, remaining)
	}
	return 0
}
