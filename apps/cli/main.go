package main

import (
	"github.com/abdul-hamid-achik/end2/apps/cli/cmd"

	// Test packages register their suites from init.
	_ "github.com/abdul-hamid-achik/end2/examples/api"
	_ "github.com/abdul-hamid-achik/end2/examples/smoke"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	cmd.Execute(version, buildTime, nil)
}
