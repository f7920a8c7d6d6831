// Package main provides the Agentopt API server implementation.
package main

import (
	"context"
	"fmt"
	"os"

	cli "github.com/urfave/cli/v3"

	"github.com/dukex/agentopt/pkg/cmd"
	"github.com/dukex/agentopt/pkg/log"
	"github.com/dukex/agentopt/pkg/otelhelper"
)

const defaultPort = 9091

func main() {
	logger := log.WithModule("api")

	command := &cli.Command{
		Name:                  "agentopt-api",
		Usage:                 "Run and inspect agent instruction optimizations over HTTP",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Storage location for agent configs and results",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (gochannel)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
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
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger.InfoContext(ctx, "Initializing Agentopt API")

			persistence := cmd.NewPersistence(command.String("database-url"))

			defer func() {
				err := persistence.Close(ctx)
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			eventBus := cmd.NewEventBus(command.String("event-bus"), logger)
			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			if err := cmd.LogEvents(ctx, eventBus, log.WithModule("events")); err != nil {
				return fmt.Errorf("subscribing to optimization events: %w", err)
			}

			cfg := cmd.OptimizerConfig{
				APIKey:         command.String("api-key"),
				BaseURL:        command.String("base-url"),
				SuggesterModel: command.String("suggester-model"),
				JudgeModel:     command.String("judge-model"),
			}

			if command.Bool("tracing") {
				tracer, err := otelhelper.NewTracer(ctx, "agentopt-api")
				if err != nil {
					return fmt.Errorf("initializing tracer: %w", err)
				}

				cfg.Tracer = tracer
			}

			opt := cmd.NewOptimizer(cfg, logger, eventBus)

			api := NewAPI(logger, persistence, opt)

			err := api.Start(command.Int("port"))
			if err != nil {
				logger.ErrorContext(ctx, "Failed to start API server", "error", err)
			}

			return nil
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
