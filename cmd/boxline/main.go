// Command boxline is the operator CLI for the boxline game engine, an
// authoritative dots-and-boxes state machine driven by an append-only
// binary log, with persisted per-actor draw quotas.
package main

import (
	"fmt"
	"os"
)

const version = "1.0.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "--help", "-h", "help":
		printUsage()
		return
	case "--version", "-v", "version":
		fmt.Println("boxline", version)
		return
	case "actor":
		// No database needed to mint an identity.
		os.Exit(cmdActor(os.Args[2:]))
	}

	a, err := newApp()
	if err != nil {
		fatal("%v", err)
	}
	defer a.Close()

	switch os.Args[1] {
	case "init":
		os.Exit(a.cmdInit(os.Args[2:]))
	case "draw":
		os.Exit(a.cmdDraw(os.Args[2:]))
	case "status":
		os.Exit(a.cmdStatus(os.Args[2:]))
	case "events":
		os.Exit(a.cmdEvents(os.Args[2:]))
	case "watch":
		os.Exit(a.cmdWatch(os.Args[2:]))
	case "quota":
		os.Exit(a.cmdQuota(os.Args[2:]))
	case "sweep":
		os.Exit(a.cmdSweep(os.Args[2:]))

	default:
		fmt.Fprintf(os.Stderr, "boxline: unknown command %q\n", os.Args[1])
		fmt.Fprintln(os.Stderr, "Run 'boxline --help' for usage.")
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Print(`boxline: authoritative dots-and-boxes over an append-only log

Every edge placement is a 3-byte record in a durable log; the game state
is replayed from it. Draws spend per-actor quota tokens; completing a
box refunds its cost.

Usage:
  boxline <command> [flags]

Commands:
  init                      Create or replay the game log, print the epoch
  actor                     Mint a fresh actor ID (export as BOXLINE_ACTOR)
  draw --edge N --team T    Place one edge (or --at x,y,h|v)
  status                    Scores, progress, completion, your quota
  events [--since N]        Decode and print logged events
  watch [--from-start]      Stream events as they are appended
  quota <actor>             Show an actor's token balance and next refill
  sweep                     Prune quota rows idle past the threshold

Environment:
  BOXLINE_LOG     Game log database path (default: .boxline/log.db)
  BOXLINE_QUOTA   Quota database path (default: .boxline/quota.db)
  BOXLINE_ACTOR   Default actor ID (avoids passing --actor every time)
  BOXLINE_GRID    Grid size as WxH (default: 1000x1000)
  BOXLINE_TARGET  Optional target score that ends the game early

All commands support --json for machine-readable output.

Exit codes:
  0  success
  1  error
  2  draw rejected (warming_up, edge_taken, quota_exhausted, ...)
`)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "boxline: "+format+"\n", args...)
	os.Exit(1)
}
