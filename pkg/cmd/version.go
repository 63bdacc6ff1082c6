package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

// set through ldflags at release time.
var (
	version = "dev"
	commit  = "none"
)

var VersionCommand = cli.Command{
	Name:  "version",
	Usage: "print version information",
	Action: func(c *cli.Context) error {
		fmt.Printf("fuzzpool %s (%s)\n", version, commit)
		return nil
	},
}
