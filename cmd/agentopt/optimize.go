package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	cli "github.com/urfave/cli/v3"

	"github.com/dukex/agentopt/pkg/cmd"
	"github.com/dukex/agentopt/pkg/jobs"
	"github.com/dukex/agentopt/pkg/log"
	"github.com/dukex/agentopt/pkg/optimizer"
	"github.com/dukex/agentopt/pkg/otelhelper"
)

func providerFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "api-key",
			Usage:    "API key for the LLM provider",
			Required: true,
			Sources:  cli.EnvVars("AGENTOPT_API_KEY", "OPENAI_API_KEY"),
		},
		&cli.StringFlag{
			Name:    "base-url",
			Usage:   "Base URL of an OpenAI-compatible endpoint",
			Sources: cli.EnvVars("AGENTOPT_BASE_URL"),
		},
		&cli.StringFlag{
			Name:    "suggester-model",
			Usage:   "Model used to rewrite instructions",
			Value:   "gpt-4o",
			Sources: cli.EnvVars("AGENTOPT_SUGGESTER_MODEL"),
		},
		&cli.StringFlag{
			Name:    "judge-model",
			Usage:   "Model used as the scoring judge (empty disables the judge)",
			Value:   "gpt-4o",
			Sources: cli.EnvVars("AGENTOPT_JUDGE_MODEL"),
		},
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "Log level (debug, info, warn, error)",
			Value:   "info",
			Sources: cli.EnvVars("LOG_LEVEL"),
		},
		&cli.BoolFlag{
			Name:    "tracing",
			Usage:   "Export OTLP spans for runs and iterations",
			Sources: cli.EnvVars("AGENTOPT_TRACING"),
		},
	}
}

func optimizerConfig(ctx context.Context, command *cli.Command) (cmd.OptimizerConfig, error) {
	cfg := cmd.OptimizerConfig{
		APIKey:         command.String("api-key"),
		BaseURL:        command.String("base-url"),
		SuggesterModel: command.String("suggester-model"),
		JudgeModel:     command.String("judge-model"),
	}

	if command.Bool("tracing") {
		tracer, err := otelhelper.NewTracer(ctx, "agentopt")
		if err != nil {
			return cfg, fmt.Errorf("initializing tracer: %w", err)
		}

		cfg.Tracer = tracer
	}

	return cfg, nil
}

// OptimizeCommand runs a single optimization job defined in a YAML file.
func OptimizeCommand() *cli.Command {
	return &cli.Command{
		Name:      "optimize",
		Aliases:   []string{"o"},
		Usage:     "Run one optimization job from a YAML file",
		ArgsUsage: "<job.yaml>",
		Flags: append(providerFlags(),
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write the optimized agent config JSON to this file",
			},
			&cli.StringFlag{
				Name:    "results-dir",
				Usage:   "Persist the full run result under this directory",
				Sources: cli.EnvVars("AGENTOPT_RESULTS_DIR"),
			},
		),
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger := log.WithModule("cli")

			if command.Args().Len() != 1 {
				return fmt.Errorf("expected exactly one job file argument")
			}

			input, err := jobs.Load(command.Args().First())
			if err != nil {
				return err
			}

			cfg, err := optimizerConfig(ctx, command)
			if err != nil {
				return err
			}

			opt := cmd.NewOptimizer(cfg, logger, nil)

			result, runErr := opt.Optimize(ctx, *input)

			if dir := command.String("results-dir"); dir != "" && result != nil {
				persist := cmd.NewPersistence(dir)
				if err := persist.ResultRepository().Save(ctx, result); err != nil {
					logger.ErrorContext(ctx, "Failed to persist result", "error", err)
				}
			}

			if runErr != nil {
				return runErr
			}

			report, err := optimizer.BuildReport(input.AgentConfig, result)
			if err != nil {
				return err
			}

			fmt.Fprint(command.Writer, report.String())

			if output := command.String("output"); output != "" {
				data, err := json.MarshalIndent(result.FinalAgentConfig, "", "  ")
				if err != nil {
					return err
				}

				if err := os.WriteFile(output, data, 0600); err != nil {
					return err
				}

				logger.InfoContext(ctx, "Wrote optimized agent config", "path", output)
			}

			return nil
		},
	}
}

// BatchCommand runs every job in a YAML batch file.
func BatchCommand() *cli.Command {
	return &cli.Command{
		Name:      "batch",
		Aliases:   []string{"b"},
		Usage:     "Run a batch of optimization jobs from a YAML file",
		ArgsUsage: "<jobs.yaml>",
		Flags: append(providerFlags(),
			&cli.StringFlag{
				Name:    "results-dir",
				Usage:   "Persist each run result under this directory",
				Sources: cli.EnvVars("AGENTOPT_RESULTS_DIR"),
			},
		),
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger := log.WithModule("cli")

			if command.Args().Len() != 1 {
				return fmt.Errorf("expected exactly one batch file argument")
			}

			inputs, err := jobs.LoadBatch(command.Args().First())
			if err != nil {
				return err
			}

			cfg, err := optimizerConfig(ctx, command)
			if err != nil {
				return err
			}

			opt := cmd.NewOptimizer(cfg, logger, nil)

			outcomes := opt.BatchOptimize(ctx, inputs)

			if dir := command.String("results-dir"); dir != "" {
				repo := cmd.NewPersistence(dir).ResultRepository()

				for _, outcome := range outcomes {
					if outcome.Result == nil {
						continue
					}

					if err := repo.Save(ctx, outcome.Result); err != nil {
						logger.ErrorContext(ctx, "Failed to persist result", "result_id", outcome.Result.ID, "error", err)
					}
				}
			}

			failed := 0

			for i, outcome := range outcomes {
				if outcome.Err != nil {
					failed++

					fmt.Fprintf(command.Writer, "job %d: failed: %v\n", i, outcome.Err)

					continue
				}

				report, err := optimizer.BuildReport(inputs[i].AgentConfig, outcome.Result)
				if err != nil {
					return err
				}

				fmt.Fprintf(command.Writer, "job %d: %s", i, report.String())
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d jobs failed", failed, len(outcomes))
			}

			return nil
		},
	}
}
