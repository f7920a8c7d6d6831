package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	cli "github.com/urfave/cli/v3"

	"github.com/dukex/agentopt/pkg/cmd"
	"github.com/dukex/agentopt/pkg/log"
	"github.com/dukex/agentopt/pkg/models"
)

// CompareCommand scores two agent configurations against the same input.
func CompareCommand() *cli.Command {
	return &cli.Command{
		Name:      "compare",
		Aliases:   []string{"c"},
		Usage:     "Evaluate two agent configs against the same input and expected output",
		ArgsUsage: "<config-a.json> <config-b.json>",
		Flags: append(providerFlags(),
			&cli.StringFlag{
				Name:     "input",
				Usage:    "Input text the workflows run against",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "expected",
				Usage:    "Expected output both runs are scored against",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "objective",
				Usage: "Scoring objective (accuracy, fluency, factuality, instruction_following)",
				Value: string(models.ObjectiveAccuracy),
			},
		),
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger := log.WithModule("cli")

			if command.Args().Len() != 2 {
				return fmt.Errorf("expected two agent config file arguments")
			}

			treeA, err := loadAgentConfig(command.Args().Get(0))
			if err != nil {
				return err
			}

			treeB, err := loadAgentConfig(command.Args().Get(1))
			if err != nil {
				return err
			}

			cfg, err := optimizerConfig(ctx, command)
			if err != nil {
				return err
			}

			opt := cmd.NewOptimizer(cfg, logger, nil)

			comparison, err := opt.CompareConfigurations(ctx, treeA, treeB,
				models.ExecutionInput{Data: command.String("input")},
				command.String("expected"),
				models.Objective(command.String("objective")))
			if err != nil {
				return err
			}

			fmt.Fprintf(command.Writer, "A: %.3f\nB: %.3f\nwinner: %s\n",
				comparison.ScoreA, comparison.ScoreB, comparison.Winner)

			if comparison.ShapesDiffer {
				fmt.Fprintln(command.Writer, "note: the two trees have different shapes")
			}

			for _, change := range comparison.DiffSummary {
				fmt.Fprintf(command.Writer, "  %s: %q -> %q\n",
					change.Path, change.OldInstruction, change.NewInstruction)
			}

			return nil
		},
	}
}

func loadAgentConfig(path string) (*models.AgentNode, error) {
	body, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("reading agent config %s: %w", path, err)
	}

	tree, err := models.ParseAgentConfig(body)
	if err != nil {
		return nil, fmt.Errorf("parsing agent config %s: %w", path, err)
	}

	return tree, nil
}
