package main

import (
	"flag"
	"fmt"

	"github.com/google/uuid"
)

// cmdActor mints a fresh actor identity. Actors are opaque strings to the
// engine; a UUID keeps operator-made actors from colliding with the ones
// a session layer would assign.
func cmdActor(args []string) int {
	flags := flag.NewFlagSet("actor", flag.ContinueOnError)
	jsonOut := flags.Bool("json", false, "JSON output")
	if err := flags.Parse(args); err != nil {
		return 1
	}

	id := uuid.NewString()
	if *jsonOut {
		printJSON(map[string]string{"actor_id": id})
	} else {
		fmt.Printf("export BOXLINE_ACTOR=%s\n", id)
	}
	return 0
}
