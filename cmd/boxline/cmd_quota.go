package main

import (
	"flag"
	"fmt"
	"os"
	"time"
)

func (a *app) cmdQuota(args []string) int {
	flags := flag.NewFlagSet("quota", flag.ContinueOnError)
	jsonOut := flags.Bool("json", false, "JSON output")
	if err := flags.Parse(args); err != nil {
		return 1
	}

	actorID := flags.Arg(0)
	if actorID == "" {
		var err error
		actorID, err = a.resolveActor("")
		if err != nil {
			fmt.Fprintln(os.Stderr, "usage: boxline quota <actor> [--json]")
			return 1
		}
	}

	now := time.Now()
	tokens, err := a.quota.Tokens(actorID, now)
	if err != nil {
		fmt.Fprintf(os.Stderr, "boxline: quota: %v\n", err)
		return 1
	}
	refillIn, err := a.quota.RefillIn(actorID, now)
	if err != nil {
		fmt.Fprintf(os.Stderr, "boxline: quota: %v\n", err)
		return 1
	}

	cfg := a.quota.Config()
	if *jsonOut {
		out := map[string]interface{}{
			"actor_id":   actorID,
			"tokens":     tokens,
			"max_tokens": cfg.MaxTokens,
		}
		if refillIn > 0 {
			out["refill_in_seconds"] = int(refillIn.Seconds())
		}
		printJSON(out)
	} else {
		fmt.Printf("%s: %v/%d tokens", actorID, tokens, cfg.MaxTokens)
		if refillIn > 0 {
			fmt.Printf(", next refill in %s", fmtDuration(refillIn))
		}
		fmt.Println()
	}
	return 0
}
