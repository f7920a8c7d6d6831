package optimizer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dukex/agentopt/pkg/eventbus"
	"github.com/dukex/agentopt/pkg/events"
	"github.com/dukex/agentopt/pkg/models"
	"github.com/dukex/agentopt/pkg/otelhelper"
	"github.com/dukex/agentopt/pkg/suggester"
	"github.com/dukex/agentopt/pkg/workflow"
)

// maxConsecutiveApplyFailures is how many iterations in a row may fail to
// apply their edits before the run is declared failed.
const maxConsecutiveApplyFailures = 2

// Evaluator scores an execution against the expected output.
type Evaluator interface {
	Evaluate(ctx context.Context, actual, expected string, trace []models.TraceEntry, objective models.Objective) (*models.EvaluationResult, error)
}

// InstructionSuggester proposes a rewrite for one leaf instruction.
type InstructionSuggester interface {
	Suggest(ctx context.Context, path, current, feedback string, objective models.Objective) (*suggester.Suggestion, error)
}

// Optimizer drives the execute, evaluate, suggest, apply loop until the
// workflow output converges to the expected output or the run terminates.
type Optimizer struct {
	executor  workflow.Executor
	extractor *workflow.TraceExtractor
	evaluator Evaluator
	suggester InstructionSuggester
	validate  *validator.Validate
	logger    *slog.Logger
	eventBus  eventbus.EventBus
	tracer    trace.Tracer
}

// Option customizes an Optimizer.
type Option func(*Optimizer)

// WithLogger replaces the default discarding logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Optimizer) {
		o.logger = logger
	}
}

// WithEventBus enables lifecycle event publishing.
func WithEventBus(bus eventbus.EventBus) Option {
	return func(o *Optimizer) {
		o.eventBus = bus
	}
}

// WithTracer enables span emission per run and per iteration.
func WithTracer(tracer trace.Tracer) Option {
	return func(o *Optimizer) {
		o.tracer = tracer
	}
}

// New creates an optimizer over the given executor, evaluator, and
// suggester.
func New(executor workflow.Executor, evaluator Evaluator, instructionSuggester InstructionSuggester, opts ...Option) *Optimizer {
	o := &Optimizer{
		executor:  executor,
		extractor: workflow.NewTraceExtractor(),
		evaluator: evaluator,
		suggester: instructionSuggester,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, opt := range opts {
		opt(o)
	}

	return o
}

// run holds the mutable state of one optimization pass.
type run struct {
	id       string
	input    models.OptimizationInput
	history  *workflow.VersionHistory
	current  *models.AgentNode
	result   *models.OptimizationResult
	scores   []float64
	bestTree *models.AgentNode

	consecutiveApplyFailures int
}

// Optimize runs the loop for one input. The result is never nil; the error
// is non-nil exactly when the run terminated with reason "failed", and wraps
// the underlying cause.
func (o *Optimizer) Optimize(ctx context.Context, input models.OptimizationInput) (*models.OptimizationResult, error) {
	id := uuid.New().String()
	r := &run{
		id:    id,
		input: input,
		result: &models.OptimizationResult{
			ID:        id,
			StartedAt: time.Now(),
		},
	}

	if o.tracer != nil {
		var span trace.Span

		ctx, span = otelhelper.StartSpan(ctx, o.tracer, "optimizer.optimize",
			attribute.String(otelhelper.OptimizationIDKey, r.id),
			attribute.String(otelhelper.ObjectiveKey, string(input.Config.Objective)),
		)
		defer span.End()
	}

	if err := o.validateInput(input); err != nil {
		return o.fail(ctx, r, 0, fmt.Errorf("%w: %w", ErrConfiguration, err))
	}

	trace.SpanFromContext(ctx).SetAttributes(
		attribute.String(otelhelper.AgentNameKey, input.AgentConfig.Name))

	r.current = input.AgentConfig.Clone()
	r.bestTree = r.current
	r.history = workflow.NewVersionHistory(r.current)
	r.result.FinalScore = -1

	o.publish(ctx, r.id, events.OptimizationStarted{
		BaseEvent:     o.baseEvent(events.OptimizationStartedEvent, r.id),
		AgentName:     input.AgentConfig.Name,
		Objective:     input.Config.Objective,
		MaxIterations: input.Config.MaxIterations,
	})

	o.logger.InfoContext(ctx, "Starting optimization",
		"optimization_id", r.id,
		"agent", input.AgentConfig.Name,
		"objective", input.Config.Objective,
		"max_iterations", input.Config.MaxIterations)

	for i := 1; i <= input.Config.MaxIterations; i++ {
		if err := ctx.Err(); err != nil {
			return o.fail(ctx, r, i, fmt.Errorf("run cancelled: %w", err))
		}

		reason, err := o.iterate(ctx, r, i)
		if err != nil {
			return o.fail(ctx, r, i, err)
		}

		if reason != "" {
			return o.finish(ctx, r, reason), nil
		}
	}

	// The loop always terminates from inside iterate; max_iterations is
	// checked there so the exhausted reason wins over plateau on the last
	// pass.
	return o.finish(ctx, r, models.TerminationExhausted), nil
}

// iterate runs one pass and returns a non-empty termination reason when the
// run should stop. An error means the run failed.
func (o *Optimizer) iterate(ctx context.Context, r *run, iteration int) (models.TerminationReason, error) {
	if o.tracer != nil {
		var span trace.Span

		ctx, span = otelhelper.StartSpan(ctx, o.tracer, "optimizer.iteration",
			attribute.String(otelhelper.OptimizationIDKey, r.id),
			attribute.Int(otelhelper.IterationKey, iteration),
		)
		defer span.End()
	}

	record := models.IterationRecord{
		Iteration:   iteration,
		AgentConfig: r.current,
	}

	output, rawTrace, err := o.executeWithRetry(ctx, r, &record)
	if err != nil {
		record.Failure = err.Error()
		r.result.History = append(r.result.History, record)

		return "", fmt.Errorf("iteration %d: %w", iteration, err)
	}

	record.Output = output

	entries, err := o.extractor.ExtractTrace(rawTrace)
	if err != nil {
		// A malformed trace is an integration defect; retrying the same
		// executor would reproduce it.
		record.Failure = err.Error()
		r.result.History = append(r.result.History, record)

		return "", fmt.Errorf("iteration %d: %w", iteration, err)
	}

	evaluation, err := o.evaluateWithRetry(ctx, r, output, entries, &record)
	if err != nil {
		record.Failure = err.Error()
		r.result.History = append(r.result.History, record)

		return "", fmt.Errorf("iteration %d: %w", iteration, err)
	}

	for _, entry := range entries {
		o.logger.DebugContext(ctx, "Leaf executed",
			"path", entry.Path, "status", entry.Status, "duration", entry.Duration())
	}

	record.Evaluation = evaluation
	score := evaluation.OverallScore
	r.scores = append(r.scores, score)

	trace.SpanFromContext(ctx).SetAttributes(attribute.Float64(otelhelper.ScoreKey, score))

	if iteration == 1 {
		r.result.BaselineScore = score
	}

	if score > r.result.FinalScore {
		r.result.FinalScore = score
		r.result.BestIteration = iteration
		r.bestTree = r.current
	}

	o.logger.InfoContext(ctx, "Iteration evaluated",
		"optimization_id", r.id,
		"iteration", iteration,
		"score", score,
		"best_score", r.result.FinalScore)

	if reason := o.checkTermination(r, iteration, score); reason != "" {
		r.result.History = append(r.result.History, record)
		o.publishIteration(ctx, r, iteration, score, record.EditsApplied)

		return reason, nil
	}

	o.propose(ctx, r, evaluation, &record)
	o.apply(ctx, r, &record)

	r.result.History = append(r.result.History, record)
	o.publishIteration(ctx, r, iteration, score, record.EditsApplied)

	if r.consecutiveApplyFailures >= maxConsecutiveApplyFailures {
		return "", fmt.Errorf("iteration %d: edits failed to apply %d times in a row", iteration, r.consecutiveApplyFailures)
	}

	return "", nil
}

// checkTermination applies the stop conditions in fixed precedence:
// convergence, exhaustion, plateau.
func (o *Optimizer) checkTermination(r *run, iteration int, score float64) models.TerminationReason {
	cfg := r.input.Config

	if score >= cfg.ConvergenceThreshold {
		return models.TerminationConverged
	}

	if iteration == cfg.MaxIterations {
		return models.TerminationExhausted
	}

	if len(r.scores) > cfg.PlateauPatience {
		window := r.scores[len(r.scores)-cfg.PlateauPatience:]
		prior := r.scores[:len(r.scores)-cfg.PlateauPatience]

		if maxOf(window)-maxOf(prior) < cfg.PlateauThreshold {
			return models.TerminationPlateaued
		}
	}

	return ""
}

func (o *Optimizer) executeWithRetry(ctx context.Context, r *run, record *models.IterationRecord) (string, *workflow.RawTrace, error) {
	output, rawTrace, err := o.executor.Run(ctx, r.current, r.input.Input)
	if err == nil || ctx.Err() != nil {
		return output, rawTrace, err
	}

	o.logger.WarnContext(ctx, "Execution failed, retrying once",
		"optimization_id", r.id, "error", err)

	record.Retried = true

	return o.executor.Run(ctx, r.current, r.input.Input)
}

func (o *Optimizer) evaluateWithRetry(ctx context.Context, r *run, output string, entries []models.TraceEntry, record *models.IterationRecord) (*models.EvaluationResult, error) {
	evaluation, err := o.evaluator.Evaluate(ctx, output, r.input.ExpectedOutput, entries, r.input.Config.Objective)
	if err == nil || ctx.Err() != nil {
		return evaluation, err
	}

	o.logger.WarnContext(ctx, "Evaluation failed, retrying once",
		"optimization_id", r.id, "error", err)

	record.Retried = true

	return o.evaluator.Evaluate(ctx, output, r.input.ExpectedOutput, entries, r.input.Config.Objective)
}

// propose asks the suggester for a rewrite of every leaf the critic gave
// feedback for. A failed suggestion skips that leaf; the iteration degrades
// to fewer edits rather than failing.
func (o *Optimizer) propose(ctx context.Context, r *run, evaluation *models.EvaluationResult, record *models.IterationRecord) {
	for _, leaf := range r.current.Leaves() {
		feedback, ok := evaluation.LeafFeedback[leaf.Path]
		if !ok {
			continue
		}

		suggestion, err := o.suggester.Suggest(ctx, leaf.Path, leaf.Node.Instruction, feedback, r.input.Config.Objective)
		if err != nil {
			o.logger.WarnContext(ctx, "Suggestion failed, skipping leaf",
				"optimization_id", r.id, "path", leaf.Path, "error", err)

			trace.SpanFromContext(ctx).AddEvent("suggestion_skipped", trace.WithAttributes(
				attribute.String(otelhelper.AgentPathKey, leaf.Path)))

			record.SkippedEdits = append(record.SkippedEdits, models.InstructionEdit{
				Path:           leaf.Path,
				OldInstruction: leaf.Node.Instruction,
				Reason:         "suggestion failed: " + err.Error(),
			})

			continue
		}

		if suggestion.NewInstruction == leaf.Node.Instruction {
			continue
		}

		record.ProposedEdits = append(record.ProposedEdits, models.InstructionEdit{
			Path:           leaf.Path,
			OldInstruction: leaf.Node.Instruction,
			NewInstruction: suggestion.NewInstruction,
			Reason:         suggestion.Reason,
			Confidence:     suggestion.Confidence,
		})
	}
}

// apply installs the proposed edits as a new tree version. Edits that fail
// individually are recorded as skipped; a whole-tree validation failure
// stalls the iteration and counts toward the consecutive-failure limit.
func (o *Optimizer) apply(ctx context.Context, r *run, record *models.IterationRecord) {
	if len(record.ProposedEdits) == 0 {
		r.consecutiveApplyFailures = 0

		return
	}

	edits := make([]workflow.Edit, 0, len(record.ProposedEdits))
	for _, proposed := range record.ProposedEdits {
		edits = append(edits, workflow.Edit{Path: proposed.Path, NewInstruction: proposed.NewInstruction})
	}

	next, applied, skipped, err := workflow.ApplyEditsPartial(r.current, edits)

	for _, proposed := range record.ProposedEdits {
		if reason, wasSkipped := skipped[proposed.Path]; wasSkipped {
			proposed.Reason = reason.Error()
			record.SkippedEdits = append(record.SkippedEdits, proposed)
		}
	}

	if err != nil {
		r.consecutiveApplyFailures++

		o.logger.WarnContext(ctx, "Edited tree failed validation, keeping previous version",
			"optimization_id", r.id, "error", err, "consecutive_failures", r.consecutiveApplyFailures)

		return
	}

	if len(applied) == 0 {
		r.consecutiveApplyFailures++

		return
	}

	r.consecutiveApplyFailures = 0
	r.current = next
	r.history.Append(next)
	record.EditsApplied = true
}

func (o *Optimizer) finish(ctx context.Context, r *run, reason models.TerminationReason) *models.OptimizationResult {
	r.result.TerminationReason = reason
	r.result.ConvergenceAchieved = reason == models.TerminationConverged
	r.result.IterationsRun = len(r.result.History)
	r.result.FinalAgentConfig = r.bestTree
	r.result.FinishedAt = time.Now()

	o.publish(ctx, r.id, events.OptimizationFinished{
		BaseEvent:         o.baseEvent(events.OptimizationFinishedEvent, r.id),
		TerminationReason: reason,
		FinalScore:        r.result.FinalScore,
		IterationsRun:     r.result.IterationsRun,
		Duration:          r.result.FinishedAt.Sub(r.result.StartedAt),
	})

	o.logger.InfoContext(ctx, "Optimization finished",
		"optimization_id", r.id,
		"reason", reason,
		"final_score", r.result.FinalScore,
		"iterations", r.result.IterationsRun)

	return r.result
}

func (o *Optimizer) fail(ctx context.Context, r *run, iteration int, cause error) (*models.OptimizationResult, error) {
	otelhelper.SetError(trace.SpanFromContext(ctx), cause,
		attribute.String(otelhelper.OptimizationIDKey, r.id),
		attribute.Int(otelhelper.IterationKey, iteration))

	r.result.TerminationReason = models.TerminationFailed
	r.result.IterationsRun = len(r.result.History)
	r.result.FinalAgentConfig = r.bestTree
	r.result.FinishedAt = time.Now()

	if r.result.FinalScore < 0 {
		r.result.FinalScore = 0
	}

	o.publish(ctx, r.id, events.OptimizationFailed{
		BaseEvent: o.baseEvent(events.OptimizationFailedEvent, r.id),
		Error:     cause.Error(),
		Iteration: iteration,
		Duration:  r.result.FinishedAt.Sub(r.result.StartedAt),
	})

	o.logger.ErrorContext(ctx, "Optimization failed",
		"optimization_id", r.id,
		"iteration", iteration,
		"error", cause)

	if errors.Is(cause, ErrConfiguration) {
		return r.result, cause
	}

	return r.result, fmt.Errorf("%w: %w", ErrRunFailed, cause)
}

func (o *Optimizer) validateInput(input models.OptimizationInput) error {
	if input.AgentConfig == nil {
		return errors.New("agent config is required")
	}

	if err := input.AgentConfig.Validate(); err != nil {
		return err
	}

	if err := o.validate.Struct(input.Config); err != nil {
		return err
	}

	if err := o.validate.Struct(input.Input); err != nil {
		return err
	}

	if input.ExpectedOutput == "" {
		return errors.New("expected output is required")
	}

	return nil
}

func (o *Optimizer) baseEvent(eventType events.EventType, optimizationID string) events.BaseEvent {
	id := uuid.New().String()
	if o.eventBus != nil {
		id = o.eventBus.GenerateID()
	}

	return events.BaseEvent{
		ID:             id,
		Type:           eventType,
		Timestamp:      time.Now(),
		OptimizationID: optimizationID,
	}
}

func (o *Optimizer) publish(ctx context.Context, key string, event eventbus.Event) {
	if o.eventBus == nil {
		return
	}

	if err := o.eventBus.Publish(ctx, key, event); err != nil {
		o.logger.WarnContext(ctx, "Failed to publish event",
			"event_type", event.GetType(), "error", err)
	}
}

func (o *Optimizer) publishIteration(ctx context.Context, r *run, iteration int, score float64, editsApplied bool) {
	applied := 0
	if editsApplied {
		applied = len(r.result.History[len(r.result.History)-1].ProposedEdits)
	}

	o.publish(ctx, r.id, events.IterationCompleted{
		BaseEvent:    o.baseEvent(events.IterationCompletedEvent, r.id),
		Iteration:    iteration,
		Score:        score,
		BestScore:    r.result.FinalScore,
		EditsApplied: applied,
	})
}

func maxOf(values []float64) float64 {
	best := values[0]
	for _, v := range values[1:] {
		if v > best {
			best = v
		}
	}

	return best
}
