package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/daviddao/boxline/pkg/engine"
)

// cmdDraw places one edge. Exit code 2 signals a taxonomy rejection
// (warming up, edge taken, quota exhausted, ...), so scripts can tell a
// benign race from a hard failure.
func (a *app) cmdDraw(args []string) int {
	flags := flag.NewFlagSet("draw", flag.ContinueOnError)
	edge := flags.Int("edge", -1, "edge ID")
	at := flags.String("at", "", "edge as x,y,h or x,y,v (alternative to --edge)")
	team := flags.Int("team", -1, "team ID")
	actor := flags.String("actor", "", "actor ID")
	timeout := flags.Duration("timeout", 30*time.Second, "request timeout")
	jsonOut := flags.Bool("json", false, "JSON output")
	if err := flags.Parse(args); err != nil {
		return 1
	}

	actorID, err := a.resolveActor(*actor)
	if err != nil {
		fmt.Fprintf(os.Stderr, "boxline: %v\n", err)
		return 1
	}
	edgeID, err := a.parseEdge(*edge, *at)
	if err != nil {
		fmt.Fprintf(os.Stderr, "boxline: %v\n", err)
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	res, err := a.engine().Draw(ctx, actorID, edgeID, *team)
	code := engine.CodeOf(err)

	if *jsonOut {
		out := map[string]interface{}{
			"ok":   err == nil,
			"code": code,
		}
		if err == nil {
			out["boxes_claimed"] = res.BoxesClaimed
			out["quota_remaining"] = res.QuotaRemaining
			out["edges_placed"] = res.EdgesPlaced
		}
		var qe *engine.QuotaExhaustedError
		if errors.As(err, &qe) {
			out["refill_in_seconds"] = int(qe.RefillIn.Seconds() + 0.5)
		}
		printJSON(out)
	} else if err == nil {
		fmt.Printf("drew edge %d for team %d", edgeID, *team)
		if n := len(res.BoxesClaimed); n > 0 {
			fmt.Printf(", completed %d box(es) %v (+%d tokens back)", n, res.BoxesClaimed, n)
		}
		fmt.Printf(", %v tokens left\n", res.QuotaRemaining)
	}

	switch {
	case err == nil:
		return 0
	case code == engine.CodeInternal:
		fmt.Fprintf(os.Stderr, "boxline: draw: %v\n", err)
		return 1
	default:
		if !*jsonOut {
			fmt.Fprintf(os.Stderr, "boxline: draw rejected (%s): %v\n", code, err)
		}
		return 2
	}
}
