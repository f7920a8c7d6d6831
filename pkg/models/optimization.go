package models

import "time"

// Objective is the qualitative dimension steering the critic's weighting and
// the suggester's rewrites.
type Objective string

const (
	ObjectiveAccuracy             Objective = "accuracy"
	ObjectiveFluency              Objective = "fluency"
	ObjectiveFactuality           Objective = "factuality"
	ObjectiveInstructionFollowing Objective = "instruction_following"
)

// TerminationReason is the terminal state of an optimization run. The four
// values are mutually exclusive; FAILED is the only one carrying an error.
type TerminationReason string

const (
	TerminationConverged TerminationReason = "converged"
	TerminationExhausted TerminationReason = "exhausted"
	TerminationPlateaued TerminationReason = "plateaued"
	TerminationFailed    TerminationReason = "failed"
)

// OptimizationConfig controls a single optimization run. Immutable once the
// run starts.
type OptimizationConfig struct {
	MaxIterations        int       `json:"max_iterations"         yaml:"max_iterations"         validate:"required,min=1"`
	ConvergenceThreshold float64   `json:"convergence_threshold"  yaml:"convergence_threshold"  validate:"required,gt=0,lte=1"`
	Objective            Objective `json:"optimization_objective" yaml:"optimization_objective" validate:"required,oneof=accuracy fluency factuality instruction_following"`
	PlateauThreshold     float64   `json:"plateau_threshold"      yaml:"plateau_threshold"      validate:"gte=0,lte=1"`
	PlateauPatience      int       `json:"plateau_patience"       yaml:"plateau_patience"       validate:"required,min=1"`
}

// DefaultOptimizationConfig mirrors the defaults used by the CLI and API
// when a job omits tuning parameters.
func DefaultOptimizationConfig() OptimizationConfig {
	return OptimizationConfig{
		MaxIterations:        5,
		ConvergenceThreshold: 0.9,
		Objective:            ObjectiveAccuracy,
		PlateauThreshold:     0.01,
		PlateauPatience:      3,
	}
}

// WithDefaults overlays the explicitly set fields on the default config.
// Zero values mean "not set".
func (c OptimizationConfig) WithDefaults() OptimizationConfig {
	merged := DefaultOptimizationConfig()

	if c.MaxIterations > 0 {
		merged.MaxIterations = c.MaxIterations
	}

	if c.ConvergenceThreshold > 0 {
		merged.ConvergenceThreshold = c.ConvergenceThreshold
	}

	if c.Objective != "" {
		merged.Objective = c.Objective
	}

	if c.PlateauThreshold > 0 {
		merged.PlateauThreshold = c.PlateauThreshold
	}

	if c.PlateauPatience > 0 {
		merged.PlateauPatience = c.PlateauPatience
	}

	return merged
}

// ExecutionInput is the fixed input a workflow is executed against. It is
// passed through to the executor unchanged on every iteration.
type ExecutionInput struct {
	Data      string            `json:"data"                yaml:"data"      validate:"required"`
	Variables map[string]string `json:"variables,omitempty" yaml:"variables"`
}

// OptimizationInput bundles everything one optimization run needs.
type OptimizationInput struct {
	AgentConfig    *AgentNode         `json:"agent_config"    validate:"required"`
	Input          ExecutionInput     `json:"input"           validate:"required"`
	ExpectedOutput string             `json:"expected_output" validate:"required"`
	Config         OptimizationConfig `json:"config"          validate:"required"`
}

// TraceStatus marks the outcome of one leaf invocation.
type TraceStatus string

const (
	TraceStatusOK    TraceStatus = "ok"
	TraceStatusError TraceStatus = "error"
)

// TraceEntry is the normalized record of a single leaf agent invocation.
// Entries are created by the trace extractor and read-only afterwards.
type TraceEntry struct {
	Path        string      `json:"path"`
	Instruction string      `json:"instruction"`
	Input       string      `json:"input"`
	Output      string      `json:"output"`
	StartedAt   time.Time   `json:"started_at"`
	FinishedAt  time.Time   `json:"finished_at"`
	Status      TraceStatus `json:"status"`
	Error       string      `json:"error,omitempty"`
}

// Duration is the wall-clock time the leaf invocation took.
func (e TraceEntry) Duration() time.Duration {
	return e.FinishedAt.Sub(e.StartedAt)
}

// ScoringMetrics are the deterministic lexical components of a score, kept
// on the evaluation for reporting.
type ScoringMetrics struct {
	WordOverlap float64 `json:"word_overlap"`
	Precision   float64 `json:"precision"`
	Recall      float64 `json:"recall"`
	ExactMatch  bool    `json:"exact_match"`
}

// EvaluationResult is the critic's verdict for one iteration. Immutable.
type EvaluationResult struct {
	OverallScore float64           `json:"overall_score"`
	LeafFeedback map[string]string `json:"per_leaf_feedback"`
	Rationale    string            `json:"rationale"`
	Metrics      ScoringMetrics    `json:"metrics"`
}

// InstructionEdit is one proposed rewrite of a leaf instruction.
type InstructionEdit struct {
	Path           string  `json:"path"`
	OldInstruction string  `json:"old_instruction"`
	NewInstruction string  `json:"new_instruction"`
	Reason         string  `json:"reason,omitempty"`
	Confidence     float64 `json:"confidence,omitempty"`
}

// IterationRecord captures one pass through the optimization loop. The
// history is append-only; a record is written before any edits take effect.
type IterationRecord struct {
	Iteration     int               `json:"iteration"`
	AgentConfig   *AgentNode        `json:"agent_config"`
	Output        string            `json:"output"`
	Evaluation    *EvaluationResult `json:"evaluation"`
	ProposedEdits []InstructionEdit `json:"proposed_edits,omitempty"`
	SkippedEdits  []InstructionEdit `json:"skipped_edits,omitempty"`
	EditsApplied  bool              `json:"edits_applied"`
	Failure       string            `json:"failure,omitempty"`
	Retried       bool              `json:"retried,omitempty"`
}

// OptimizationResult is the final report of a run. FinalAgentConfig is the
// best-scoring version observed, which is not necessarily the last one.
type OptimizationResult struct {
	ID                  string            `json:"id"`
	FinalScore          float64           `json:"final_score"`
	BaselineScore       float64           `json:"baseline_score"`
	IterationsRun       int               `json:"iterations_run"`
	ConvergenceAchieved bool              `json:"convergence_achieved"`
	TerminationReason   TerminationReason `json:"termination_reason"`
	BestIteration       int               `json:"best_iteration"`
	FinalAgentConfig    *AgentNode        `json:"final_agent_config"`
	History             []IterationRecord `json:"history"`
	StartedAt           time.Time         `json:"started_at"`
	FinishedAt          time.Time         `json:"finished_at"`
}

// Comparison is the outcome of evaluating two configurations against the
// same input without running the optimization loop.
type Comparison struct {
	ScoreA          float64           `json:"score_a"`
	ScoreB          float64           `json:"score_b"`
	Winner          string            `json:"winner"`
	ScoreDifference float64           `json:"score_difference"`
	DiffSummary     []InstructionEdit `json:"diff_summary,omitempty"`
	ShapesDiffer    bool              `json:"shapes_differ,omitempty"`
}
