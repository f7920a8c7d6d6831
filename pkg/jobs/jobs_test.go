package jobs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukex/agentopt/pkg/models"
)

const agentConfigJSON = `{
  "name": "pipeline",
  "class": "SequentialAgent",
  "sub_agents": [
    {"name": "writer", "class": "Agent", "instruction": "Write a summary.", "model": "gpt-4o-mini"}
  ]
}`

func writeFixtures(t *testing.T, jobYAML string) string {
	t.Helper()

	dir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "agent.json"), []byte(agentConfigJSON), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "job.yaml"), []byte(jobYAML), 0600))

	return filepath.Join(dir, "job.yaml")
}

func TestLoadResolvesRelativeAgentConfig(t *testing.T) {
	jobPath := writeFixtures(t, `
agent_config: agent.json
input:
  data: "source text"
  variables:
    tone: formal
expected_output: "a short summary"
config:
  max_iterations: 7
  optimization_objective: fluency
`)

	input, err := Load(jobPath)
	require.NoError(t, err)

	assert.Equal(t, "pipeline", input.AgentConfig.Name)
	assert.Equal(t, "source text", input.Input.Data)
	assert.Equal(t, "formal", input.Input.Variables["tone"])
	assert.Equal(t, "a short summary", input.ExpectedOutput)
	assert.Equal(t, 7, input.Config.MaxIterations)
	assert.Equal(t, models.ObjectiveFluency, input.Config.Objective)

	// Omitted settings keep their defaults.
	assert.InDelta(t, 0.9, input.Config.ConvergenceThreshold, 1e-9)
	assert.Equal(t, 3, input.Config.PlateauPatience)
}

func TestLoadAppliesAllDefaultsWhenConfigOmitted(t *testing.T) {
	jobPath := writeFixtures(t, `
agent_config: agent.json
input:
  data: "text"
expected_output: "expected"
`)

	input, err := Load(jobPath)
	require.NoError(t, err)

	assert.Equal(t, models.DefaultOptimizationConfig(), input.Config)
}

func TestLoadRejectsMissingAgentConfig(t *testing.T) {
	jobPath := writeFixtures(t, `
input:
  data: "text"
expected_output: "expected"
`)

	_, err := Load(jobPath)
	require.ErrorIs(t, err, ErrInvalidJob)
}

func TestLoadRejectsMissingExpectedOutput(t *testing.T) {
	jobPath := writeFixtures(t, `
agent_config: agent.json
input:
  data: "text"
`)

	_, err := Load(jobPath)
	require.ErrorIs(t, err, ErrInvalidJob)
}

func TestLoadRejectsInvalidAgentTree(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "agent.json"),
		[]byte(`{"name": "x", "class": "Agent", "instruction": ""}`), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "job.yaml"), []byte(`
agent_config: agent.json
input:
  data: "text"
expected_output: "expected"
`), 0600))

	_, err := Load(filepath.Join(dir, "job.yaml"))
	require.ErrorIs(t, err, ErrInvalidJob)
}

func TestLoadBatch(t *testing.T) {
	jobPath := writeFixtures(t, `
jobs:
  - agent_config: agent.json
    input:
      data: "first"
    expected_output: "one"
  - agent_config: agent.json
    input:
      data: "second"
    expected_output: "two"
    config:
      max_iterations: 2
`)

	inputs, err := LoadBatch(jobPath)
	require.NoError(t, err)
	require.Len(t, inputs, 2)

	assert.Equal(t, "first", inputs[0].Input.Data)
	assert.Equal(t, 5, inputs[0].Config.MaxIterations)
	assert.Equal(t, 2, inputs[1].Config.MaxIterations)
}

func TestLoadBatchRejectsEmptyList(t *testing.T) {
	jobPath := writeFixtures(t, "jobs: []\n")

	_, err := LoadBatch(jobPath)
	require.ErrorIs(t, err, ErrInvalidJob)
}
