package main

import (
	"fmt"
	"os"

	"github.com/fuzzpool/fuzzpool/pkg/cmd"
	"github.com/fuzzpool/fuzzpool/pkg/logging"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap/zapcore"
)

func main() {
	app := cli.NewApp()
	app.Name = "fuzzpool"
	app.Usage = "a coordinator for ensembles of fuzzing workers converging on a shared corpus"
	app.Description = "fuzzpool runs fleets of black-box fuzzing workers across one or " +
		"more nodes and keeps their corpora, crashes and hangs in sync through a " +
		"shared filesystem pool, with no locking and no central server."
	app.Commands = cmd.RootCommands
	app.Flags = cmd.RootFlags
	// Disable the built-in -v flag (version); it collides with the
	// verbosity flag. `fuzzpool version` exists instead.
	app.HideVersion = true
	app.Before = func(c *cli.Context) error {
		configureLogging(c)
		return nil
	}

	err := app.Run(os.Args)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func configureLogging(c *cli.Context) {
	// The LOG_LEVEL environment variable takes precedence.
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		var l zapcore.Level
		if err := l.UnmarshalText([]byte(level)); err != nil {
			panic(err)
		}
		logging.SetLevel(l)
		return
	}

	if c.Bool("v") {
		logging.SetLevel(zapcore.DebugLevel)
	}
}
