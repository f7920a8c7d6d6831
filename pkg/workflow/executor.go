package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dukex/agentopt/pkg/models"
	"github.com/dukex/agentopt/pkg/providers"
)

// RawEvent is one leaf invocation as recorded during execution, before
// normalization. Seq is a monotonic counter assigned under the recorder
// lock, so ordering is reproducible even for parallel branches.
type RawEvent struct {
	Seq         int
	Path        string
	Instruction string
	Input       string
	Output      string
	StartedAt   time.Time
	FinishedAt  time.Time
	Err         string
}

// RawTrace is the opaque execution record handed from an Executor to the
// trace extractor.
type RawTrace struct {
	Events []RawEvent
}

// Executor runs a workflow tree against an input and returns the final
// output plus the raw execution trace. Implementations must keep node call
// order deterministic for a given tree shape even though leaf outputs are
// not.
type Executor interface {
	Run(ctx context.Context, tree *models.AgentNode, input models.ExecutionInput) (string, *RawTrace, error)
}

// traceRecorder accumulates raw events during a recursive descent. It is the
// only shared state between parallel branches.
type traceRecorder struct {
	mu     sync.Mutex
	events []RawEvent
}

func (r *traceRecorder) record(event RawEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	event.Seq = len(r.events)
	r.events = append(r.events, event)
}

func (r *traceRecorder) trace() *RawTrace {
	r.mu.Lock()
	defer r.mu.Unlock()

	events := make([]RawEvent, len(r.events))
	copy(events, r.events)

	return &RawTrace{Events: events}
}

// LLMExecutor executes workflow trees by calling the LLM provider for each
// leaf agent. Sequential containers pipe each child's output into the next
// child, parallel containers fan the same input out to all children and join
// their outputs in child order, loop containers feed the output back for up
// to max_iterations passes.
type LLMExecutor struct {
	provider providers.Provider
	logger   *slog.Logger
}

// NewLLMExecutor creates an executor backed by the given provider.
func NewLLMExecutor(provider providers.Provider, logger *slog.Logger) *LLMExecutor {
	return &LLMExecutor{
		provider: provider,
		logger:   logger,
	}
}

// Run implements Executor.
func (e *LLMExecutor) Run(ctx context.Context, tree *models.AgentNode, input models.ExecutionInput) (string, *RawTrace, error) {
	if err := tree.Validate(); err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrExecution, err)
	}

	recorder := &traceRecorder{}

	output, err := e.runNode(ctx, tree, tree.Name, renderInput(input), recorder)
	if err != nil {
		return "", recorder.trace(), fmt.Errorf("%w: %w", ErrExecution, err)
	}

	return output, recorder.trace(), nil
}

func (e *LLMExecutor) runNode(ctx context.Context, node *models.AgentNode, path string, input string, recorder *traceRecorder) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	switch node.Class {
	case models.ClassAgent:
		return e.runLeaf(ctx, node, path, input, recorder)
	case models.ClassSequential:
		return e.runSequence(ctx, node.SubAgents, path, input, recorder)
	case models.ClassParallel:
		return e.runParallel(ctx, node, path, input, recorder)
	case models.ClassLoop:
		current := input

		for i := 0; i < node.MaxIterations; i++ {
			output, err := e.runSequence(ctx, node.SubAgents, path, current, recorder)
			if err != nil {
				return "", err
			}

			current = output
		}

		return current, nil
	default:
		return "", fmt.Errorf("unknown agent class %q at %s", node.Class, path)
	}
}

func (e *LLMExecutor) runSequence(ctx context.Context, children []*models.AgentNode, path string, input string, recorder *traceRecorder) (string, error) {
	current := input

	for _, child := range children {
		output, err := e.runNode(ctx, child, path+models.PathSeparator+child.Name, current, recorder)
		if err != nil {
			return "", err
		}

		current = output
	}

	return current, nil
}

func (e *LLMExecutor) runParallel(ctx context.Context, node *models.AgentNode, path string, input string, recorder *traceRecorder) (string, error) {
	outputs := make([]string, len(node.SubAgents))
	errs := make([]error, len(node.SubAgents))

	var wg sync.WaitGroup

	for i, child := range node.SubAgents {
		wg.Add(1)

		go func(i int, child *models.AgentNode) {
			defer wg.Done()

			outputs[i], errs[i] = e.runNode(ctx, child, path+models.PathSeparator+child.Name, input, recorder)
		}(i, child)
	}

	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return "", fmt.Errorf("parallel branch %s: %w", node.SubAgents[i].Name, err)
		}
	}

	return strings.Join(outputs, "\n\n"), nil
}

func (e *LLMExecutor) runLeaf(ctx context.Context, node *models.AgentNode, path string, input string, recorder *traceRecorder) (string, error) {
	prompt := node.Instruction + "\n\nInput:\n" + input
	startedAt := time.Now()

	e.logger.DebugContext(ctx, "Calling leaf agent", "path", path, "model", node.Model)

	output, err := e.provider.Generate(ctx, prompt, node.Model)

	event := RawEvent{
		Path:        path,
		Instruction: node.Instruction,
		Input:       input,
		Output:      output,
		StartedAt:   startedAt,
		FinishedAt:  time.Now(),
	}

	if err != nil {
		event.Err = err.Error()
		recorder.record(event)

		return "", fmt.Errorf("leaf %s: %w", path, err)
	}

	recorder.record(event)

	return output, nil
}

func renderInput(input models.ExecutionInput) string {
	if len(input.Variables) == 0 {
		return input.Data
	}

	keys := make([]string, 0, len(input.Variables))
	for key := range input.Variables {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	var b strings.Builder

	b.WriteString(input.Data)
	b.WriteString("\n")

	for _, key := range keys {
		b.WriteString("\n")
		b.WriteString(key)
		b.WriteString(": ")
		b.WriteString(input.Variables[key])
	}

	return b.String()
}
