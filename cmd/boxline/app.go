package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/daviddao/boxline/pkg/engine"
	"github.com/daviddao/boxline/pkg/gamelog"
	"github.com/daviddao/boxline/pkg/grid"
	"github.com/daviddao/boxline/pkg/quota"
	"github.com/daviddao/boxline/pkg/state"
)

const (
	defaultDir     = ".boxline"
	defaultLogDB   = ".boxline/log.db"
	defaultQuotaDB = ".boxline/quota.db"
	defaultGrid    = "1000x1000"
)

// app holds shared state for all CLI subcommands.
type app struct {
	grid    grid.Grid
	log     *gamelog.SQLiteLog
	quota   *quota.Store
	actorID string // default actor from BOXLINE_ACTOR

	eng *engine.Engine // lazily constructed; most commands never need it
}

// newApp opens the databases and resolves the default actor identity.
// Creates the .boxline/ directory if using the default paths.
func newApp() (*app, error) {
	logPath := envOr("BOXLINE_LOG", defaultLogDB)
	quotaPath := envOr("BOXLINE_QUOTA", defaultQuotaDB)
	if logPath == defaultLogDB || quotaPath == defaultQuotaDB {
		if err := os.MkdirAll(defaultDir, 0755); err != nil {
			return nil, fmt.Errorf("cannot create %s: %w", defaultDir, err)
		}
	}

	g, err := parseGrid(envOr("BOXLINE_GRID", defaultGrid))
	if err != nil {
		return nil, err
	}
	l, err := gamelog.OpenSQLite(logPath)
	if err != nil {
		return nil, fmt.Errorf("cannot open log database %q: %w", logPath, err)
	}
	q, err := quota.New(quotaPath, quota.Config{})
	if err != nil {
		l.Close()
		return nil, fmt.Errorf("cannot open quota database %q: %w", quotaPath, err)
	}
	return &app{
		grid:    g,
		log:     l,
		quota:   q,
		actorID: envOr("BOXLINE_ACTOR", ""),
	}, nil
}

// Close releases the engine and both database connections.
func (a *app) Close() {
	if a.eng != nil {
		a.eng.Close()
	}
	a.log.Close()
	a.quota.Close()
}

// engine returns the authoritative writer, constructing it on first use.
// The log is not replayed until the first request goes through it.
func (a *app) engine() *engine.Engine {
	if a.eng == nil {
		var opts []engine.Option
		if target := envOr("BOXLINE_TARGET", ""); target != "" {
			if n, err := strconv.Atoi(target); err == nil && n > 0 {
				opts = append(opts, engine.WithEndCondition(state.TargetScore(n)))
			}
		}
		a.eng = engine.New(a.grid, a.log, a.quota, opts...)
	}
	return a.eng
}

// resolveActor returns the actor ID from the flag (if non-empty), falling
// back to the BOXLINE_ACTOR environment variable.
func (a *app) resolveActor(flagVal string) (string, error) {
	if flagVal != "" {
		return flagVal, nil
	}
	if a.actorID != "" {
		return a.actorID, nil
	}
	return "", fmt.Errorf("no actor ID: pass --actor or set BOXLINE_ACTOR (mint one with 'boxline actor')")
}

// parseGrid parses a "WxH" dimension string.
func parseGrid(s string) (grid.Grid, error) {
	w, h, ok := strings.Cut(strings.ToLower(s), "x")
	if !ok {
		return grid.Grid{}, fmt.Errorf("invalid grid %q: want WxH, e.g. 1000x1000", s)
	}
	wn, err := strconv.Atoi(strings.TrimSpace(w))
	if err != nil {
		return grid.Grid{}, fmt.Errorf("invalid grid width %q", w)
	}
	hn, err := strconv.Atoi(strings.TrimSpace(h))
	if err != nil {
		return grid.Grid{}, fmt.Errorf("invalid grid height %q", h)
	}
	return grid.New(wn, hn)
}

// parseEdge resolves the --edge / --at flags to an edge ID.
func (a *app) parseEdge(edgeFlag int, atFlag string) (int, error) {
	if atFlag == "" {
		return edgeFlag, nil
	}
	parts := strings.Split(atFlag, ",")
	if len(parts) != 3 {
		return 0, fmt.Errorf("invalid --at %q: want x,y,h or x,y,v", atFlag)
	}
	x, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, fmt.Errorf("invalid --at x %q", parts[0])
	}
	y, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, fmt.Errorf("invalid --at y %q", parts[1])
	}
	var o grid.Orientation
	switch strings.TrimSpace(parts[2]) {
	case "h":
		o = grid.Horizontal
	case "v":
		o = grid.Vertical
	default:
		return 0, fmt.Errorf("invalid --at orientation %q: want h or v", parts[2])
	}
	return a.grid.EdgeID(grid.EdgeCoord{X: x, Y: y, O: o})
}

// printJSON writes v to stdout as indented JSON.
func printJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

// printJSONLine writes v to stdout as one compact JSON line, for
// streaming output.
func printJSONLine(v interface{}) {
	b, _ := json.Marshal(v)
	fmt.Println(string(b))
}

// fmtDuration renders a duration in whole seconds for display.
func fmtDuration(d time.Duration) string {
	return d.Round(time.Second).String()
}
