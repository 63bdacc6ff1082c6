package cmd

import "github.com/urfave/cli/v2"

// RootCommands collects all subcommands of the fuzzpool CLI.
var RootCommands = cli.Commands{
	&WorkerCommand,
	&SyncCommand,
	&SeedCommand,
	&StatsCommand,
	&LogCommand,
	&VersionCommand,
}

var RootFlags = []cli.Flag{
	&cli.BoolFlag{
		Name:  "v",
		Usage: "verbose output (equivalent to DEBUG log level)",
	},
}
