package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/daviddao/boxline/pkg/state"
)

func (a *app) cmdStatus(args []string) int {
	flags := flag.NewFlagSet("status", flag.ContinueOnError)
	actor := flags.String("actor", "", "actor ID (optional, shows your quota)")
	jsonOut := flags.Bool("json", false, "JSON output")
	if err := flags.Parse(args); err != nil {
		return 1
	}

	// Best-effort actor resolution (status works without one).
	actorID, _ := a.resolveActor(*actor)

	st, err := a.engine().Status(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "boxline: status: %v\n", err)
		return 1
	}
	belowCap, _ := a.quota.Count()

	now := time.Now()
	var tokens float64
	var refillIn time.Duration
	if actorID != "" {
		tokens, _ = a.quota.Tokens(actorID, now)
		refillIn, _ = a.quota.RefillIn(actorID, now)
	}

	if *jsonOut {
		out := map[string]interface{}{
			"epoch":                 st.Epoch,
			"grid":                  fmt.Sprintf("%dx%d", a.grid.W, a.grid.H),
			"edges_placed":          st.EdgesPlaced,
			"edges_total":           a.grid.EdgeCount(),
			"boxes_claimed":         st.BoxesClaimed,
			"boxes_total":           a.grid.BoxCount(),
			"scores":                st.Scores,
			"complete":              st.Complete,
			"actors_below_capacity": belowCap,
		}
		if st.Winner != state.NoTeam {
			out["winner"] = st.Winner
		}
		if actorID != "" {
			out["my_quota"] = tokens
			out["my_refill_in_seconds"] = int(refillIn.Seconds())
		}
		printJSON(out)
	} else {
		fmt.Printf("epoch %s, grid %dx%d\n", st.Epoch.Format("2006-01-02 15:04:05"), a.grid.W, a.grid.H)
		fmt.Printf("edges: %d/%d placed, boxes: %d/%d claimed\n",
			st.EdgesPlaced, a.grid.EdgeCount(), st.BoxesClaimed, a.grid.BoxCount())
		fmt.Println("scores:")
		for team, score := range st.Scores {
			marker := ""
			if st.Winner == team {
				marker = " <-- leading"
			}
			fmt.Printf("  team %d: %d%s\n", team, score, marker)
		}
		switch {
		case st.Complete && st.Winner != state.NoTeam:
			fmt.Printf("game complete, team %d wins\n", st.Winner)
		case st.Complete:
			fmt.Println("game complete, tied: no winner")
		}
		fmt.Printf("quota rows below capacity: %d\n", belowCap)
		if actorID != "" {
			fmt.Printf("you (%s): %v tokens", actorID, tokens)
			if refillIn > 0 {
				fmt.Printf(", next refill in %s", fmtDuration(refillIn))
			}
			fmt.Println()
		}
	}
	return 0
}
