package web

import "github.com/dukex/agentopt/pkg/models"

// OptimizeRequest is the payload for starting one optimization run. Omitted
// tuning parameters fall back to the defaults.
type OptimizeRequest struct {
	AgentConfig    *models.AgentNode           `json:"agent_config"     validate:"required"`
	Input          models.ExecutionInput       `json:"input"`
	ExpectedOutput string                      `json:"expected_output"  validate:"required"`
	Config         *models.OptimizationConfig  `json:"config,omitempty"`
}

// BatchOptimizeRequest bundles several runs into one call.
type BatchOptimizeRequest struct {
	Jobs []OptimizeRequest `json:"jobs" validate:"required,min=1,dive"`
}

// BatchEntry is one slot of a batch response, index-aligned with the
// request's jobs.
type BatchEntry struct {
	Result *models.OptimizationResult `json:"result"`
	Error  string                     `json:"error,omitempty"`
}

// CompareRequest evaluates two configurations against the same input.
type CompareRequest struct {
	ConfigA        *models.AgentNode     `json:"config_a"        validate:"required"`
	ConfigB        *models.AgentNode     `json:"config_b"        validate:"required"`
	Input          models.ExecutionInput `json:"input"`
	ExpectedOutput string                `json:"expected_output" validate:"required"`
	Objective      models.Objective      `json:"objective,omitempty"`
}

// SaveAgentConfigRequest stores a named workflow tree.
type SaveAgentConfigRequest struct {
	ID   string            `json:"id"   validate:"required"`
	Tree *models.AgentNode `json:"tree" validate:"required"`
}

func (r OptimizeRequest) toInput() models.OptimizationInput {
	cfg := models.DefaultOptimizationConfig()
	if r.Config != nil {
		cfg = r.Config.WithDefaults()
	}

	return models.OptimizationInput{
		AgentConfig:    r.AgentConfig,
		Input:          r.Input,
		ExpectedOutput: r.ExpectedOutput,
		Config:         cfg,
	}
}
