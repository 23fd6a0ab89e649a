// voltee runs one partition's execution engine standalone, against a
// fixture top end, for local experimentation and benchmarking.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"
	"github.com/urfave/cli/v2"

	"github.com/VoltDB/voltdb-sub009/elog"
	"github.com/VoltDB/voltdb-sub009/engcfg"
)

const clientIdentifier = "voltee"

var resolvedConfig engcfg.Config

func main() {
	app := &cli.App{
		Name:    clientIdentifier,
		Usage:   "standalone partition execution engine",
		Version: "0.1.0",
	}
	app.Flags = pflagsToCliFlags(engcfg.BuildFlagSet(clientIdentifier))
	app.Commands = []*cli.Command{
		serveCommand,
		benchSortCommand,
		inspectUndoCommand,
	}
	app.Before = func(ctx *cli.Context) error {
		fs := engcfg.BuildFlagSet(clientIdentifier)
		v, err := engcfg.BuildViper(fs, rawArgsAfterCommand(ctx))
		if err != nil {
			return err
		}
		cfg, err := engcfg.BuildConfig(v)
		if err != nil {
			return err
		}
		resolvedConfig = cfg
		return elog.Configure(elog.Config{
			Level:      cfg.LogLevel,
			RotatePath: cfg.LogRotate,
			JSON:       cfg.LogJSON,
		})
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// rawArgsAfterCommand hands urfave/cli's leftover os.Args slice to pflag so
// engcfg's own flag set, not cli's, resolves every --temp-table-memory-limit
// style option; cli only needs to know the command name.
func rawArgsAfterCommand(ctx *cli.Context) []string {
	return os.Args[1:]
}

// pflagsToCliFlags mirrors every engcfg pflag as a cli.StringFlag so `voltee
// --help` documents them, even though engcfg.BuildViper (not cli) is what
// actually resolves their values.
func pflagsToCliFlags(fs *pflag.FlagSet) []cli.Flag {
	var flags []cli.Flag
	fs.VisitAll(func(f *pflag.Flag) {
		flags = append(flags, &cli.StringFlag{
			Name:  f.Name,
			Usage: f.Usage,
			Value: f.DefValue,
		})
	})
	return flags
}
