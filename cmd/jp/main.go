package main

import (
	"os"

	"github.com/jacoelho/jsonpath/internal/cli"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, exitResult := cli.Parse(os.Args)
	if exitResult != nil {
		exitResult.Print()
		return exitResult.ExitCode
	}

	result := cli.Run(cfg)
	result.Print()
	return result.ExitCode
}
