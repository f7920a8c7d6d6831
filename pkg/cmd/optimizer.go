package cmd

import (
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"github.com/dukex/agentopt/pkg/critic"
	"github.com/dukex/agentopt/pkg/eventbus"
	"github.com/dukex/agentopt/pkg/optimizer"
	"github.com/dukex/agentopt/pkg/providers"
	"github.com/dukex/agentopt/pkg/suggester"
	"github.com/dukex/agentopt/pkg/workflow"
)

// OptimizerConfig is the provider-level configuration shared by the CLI and
// API binaries.
type OptimizerConfig struct {
	APIKey         string
	BaseURL        string
	SuggesterModel string
	JudgeModel     string
	Tracer         trace.Tracer
}

// NewOptimizer wires a full optimizer: an LLM-backed executor, a critic with
// an optional judge, and a suggester, all sharing one provider client.
func NewOptimizer(cfg OptimizerConfig, logger *slog.Logger, bus eventbus.EventBus) *optimizer.Optimizer {
	var providerOpts []providers.OpenAIOption
	if cfg.BaseURL != "" {
		providerOpts = append(providerOpts, providers.WithBaseURL(cfg.BaseURL))
	}

	provider := providers.NewOpenAI(cfg.APIKey, providerOpts...)

	executor := workflow.NewLLMExecutor(provider, logger.With("component", "executor"))

	criticOpts := []critic.Option{}
	if cfg.JudgeModel != "" {
		criticOpts = append(criticOpts, critic.WithJudge(provider, cfg.JudgeModel))
	}

	evaluator := critic.New(logger.With("component", "critic"), criticOpts...)
	instructionSuggester := suggester.New(provider, cfg.SuggesterModel, logger.With("component", "suggester"))

	opts := []optimizer.Option{optimizer.WithLogger(logger)}
	if bus != nil {
		opts = append(opts, optimizer.WithEventBus(bus))
	}

	if cfg.Tracer != nil {
		opts = append(opts, optimizer.WithTracer(cfg.Tracer))
	}

	return optimizer.New(executor, evaluator, instructionSuggester, opts...)
}
