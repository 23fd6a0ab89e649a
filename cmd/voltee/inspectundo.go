package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/VoltDB/voltdb-sub009/elog"
	"github.com/VoltDB/voltdb-sub009/metrics"
	"github.com/VoltDB/voltdb-sub009/undo"
)

var inspectUndoCommand = &cli.Command{
	Name:  "inspect-undo",
	Usage: "replay a canned register/undo/release sequence and dump the undo log's state after each step",
	Flags: []cli.Flag{
		&cli.IntFlag{Name: "quanta", Value: 3, Usage: "number of quanta to open before releasing"},
	},
	Action: runInspectUndo,
}

// loggedAction is an undo.Action that prints when it fires, standing in for
// the real per-table/per-index undo actions a plan executor would register.
type loggedAction struct {
	label string
}

func (a loggedAction) Undo()    { fmt.Printf("  undo:    %s\n", a.label) }
func (a loggedAction) Release() { fmt.Printf("  release: %s\n", a.label) }

func runInspectUndo(ctx *cli.Context) error {
	log := elog.New("cmd.inspect-undo")

	m := metrics.New("voltee", "0")
	l := undo.NewLog(resolvedConfig.Engine.MaxCachedPools, m)

	n := ctx.Int("quanta")
	dumpState := func(step string) {
		fmt.Printf("%s: open=%d freeList=%d lastUndo=%d lastRelease=%d\n",
			step, l.OpenQuantumCount(), l.FreeListSize(), l.LastUndoToken(), l.LastReleaseToken())
	}

	for token := int64(1); token <= int64(n); token++ {
		q := l.GenerateUndoQuantum(token)
		q.RegisterUndoAction(loggedAction{label: fmt.Sprintf("token-%d", token)}, nil)
		dumpState(fmt.Sprintf("after generate(%d)", token))
	}

	mid := int64(n) / 2
	if mid > 0 {
		log.Info("undoing back to token", "token", mid)
		l.Undo(mid)
		dumpState(fmt.Sprintf("after undo(%d)", mid))
	}

	remaining := l.LastUndoToken()
	if l.OpenQuantumCount() > 0 {
		log.Info("releasing remaining quanta", "through", remaining)
		l.Release(remaining)
		dumpState(fmt.Sprintf("after release(%d)", remaining))
	}

	return nil
}
