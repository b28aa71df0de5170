// Command pulsectl prints leaderboards and support rosters and posts
// notifications from the command line.
package main

import (
	"os"

	"github.com/okian/devpulse/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
