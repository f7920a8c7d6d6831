// Package main provides the agentopt command-line interface.
package main

import (
	"context"
	"os"

	cli "github.com/urfave/cli/v3"
)

func main() {
	root := &cli.Command{
		Name:                  "agentopt",
		Usage:                 "Optimize agent workflow instructions against expected outputs",
		EnableShellCompletion: true,
		Commands: []*cli.Command{
			OptimizeCommand(),
			BatchCommand(),
			CompareCommand(),
		},
	}

	err := root.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
