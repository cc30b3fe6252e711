package main

import (
	"context"
	"flag"
	"fmt"
	"os"
)

// cmdInit forces initialization: it creates the log with a fresh epoch if
// absent, otherwise replays it, and prints where the game stands.
func (a *app) cmdInit(args []string) int {
	flags := flag.NewFlagSet("init", flag.ContinueOnError)
	jsonOut := flags.Bool("json", false, "JSON output")
	if err := flags.Parse(args); err != nil {
		return 1
	}

	st, err := a.engine().Status(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "boxline: init: %v\n", err)
		return 1
	}

	if *jsonOut {
		printJSON(map[string]interface{}{
			"epoch":         st.Epoch,
			"grid":          fmt.Sprintf("%dx%d", a.grid.W, a.grid.H),
			"edges_placed":  st.EdgesPlaced,
			"boxes_claimed": st.BoxesClaimed,
		})
	} else {
		fmt.Printf("game epoch %s, grid %dx%d\n", st.Epoch.Format("2006-01-02 15:04:05.000"), a.grid.W, a.grid.H)
		fmt.Printf("replayed %d edges, %d boxes claimed\n", st.EdgesPlaced, st.BoxesClaimed)
	}
	return 0
}
