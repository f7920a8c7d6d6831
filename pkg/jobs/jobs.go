// Package jobs loads optimization job definitions from YAML files.
package jobs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/dukex/agentopt/pkg/models"
)

// ErrInvalidJob indicates a job file that cannot be turned into an
// optimization input.
var ErrInvalidJob = errors.New("invalid job file")

// Job is the on-disk shape of one optimization job. The agent configuration
// is referenced by path so the same JSON tree can be shared across jobs.
type Job struct {
	AgentConfigPath string                     `yaml:"agent_config"`
	Input           models.ExecutionInput      `yaml:"input"`
	ExpectedOutput  string                     `yaml:"expected_output"`
	Config          *models.OptimizationConfig `yaml:"config,omitempty"`
}

// Load reads a YAML job file and resolves it into an optimization input.
// Omitted tuning parameters fall back to the defaults; a relative agent
// config path is resolved against the job file's directory.
func Load(jobPath string) (*models.OptimizationInput, error) {
	body, err := os.ReadFile(filepath.Clean(jobPath))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidJob, err)
	}

	var job Job
	if err := yaml.Unmarshal(body, &job); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidJob, err)
	}

	return job.resolve(filepath.Dir(jobPath))
}

// LoadBatch reads a YAML file holding a list of jobs.
func LoadBatch(jobPath string) ([]models.OptimizationInput, error) {
	body, err := os.ReadFile(filepath.Clean(jobPath))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidJob, err)
	}

	var batch struct {
		Jobs []Job `yaml:"jobs"`
	}

	if err := yaml.Unmarshal(body, &batch); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidJob, err)
	}

	if len(batch.Jobs) == 0 {
		return nil, fmt.Errorf("%w: no jobs defined", ErrInvalidJob)
	}

	inputs := make([]models.OptimizationInput, 0, len(batch.Jobs))

	for i, job := range batch.Jobs {
		input, err := job.resolve(filepath.Dir(jobPath))
		if err != nil {
			return nil, fmt.Errorf("job %d: %w", i, err)
		}

		inputs = append(inputs, *input)
	}

	return inputs, nil
}

func (j Job) resolve(baseDir string) (*models.OptimizationInput, error) {
	if j.AgentConfigPath == "" {
		return nil, fmt.Errorf("%w: agent_config is required", ErrInvalidJob)
	}

	if j.ExpectedOutput == "" {
		return nil, fmt.Errorf("%w: expected_output is required", ErrInvalidJob)
	}

	configPath := j.AgentConfigPath
	if !filepath.IsAbs(configPath) {
		configPath = filepath.Join(baseDir, configPath)
	}

	body, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return nil, fmt.Errorf("%w: reading agent config: %w", ErrInvalidJob, err)
	}

	tree, err := models.ParseAgentConfig(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidJob, err)
	}

	cfg := models.DefaultOptimizationConfig()
	if j.Config != nil {
		cfg = j.Config.WithDefaults()
	}

	return &models.OptimizationInput{
		AgentConfig:    tree,
		Input:          j.Input,
		ExpectedOutput: j.ExpectedOutput,
		Config:         cfg,
	}, nil
}
