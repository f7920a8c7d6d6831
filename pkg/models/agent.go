// Package models defines the core domain models for agent workflow optimization.
package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// AgentClass discriminates the node variants of an agent workflow tree.
type AgentClass string

const (
	// ClassAgent is a leaf LLM agent carrying the mutable instruction.
	ClassAgent AgentClass = "Agent"
	// ClassSequential runs its sub-agents in order, piping outputs forward.
	ClassSequential AgentClass = "SequentialAgent"
	// ClassParallel runs its sub-agents concurrently on the same input.
	ClassParallel AgentClass = "ParallelAgent"
	// ClassLoop repeats its sub-agents up to max_iterations times.
	ClassLoop AgentClass = "LoopAgent"
)

// PathSeparator joins node names into a stable path identifier.
const PathSeparator = "/"

// maxTreeDepth bounds recursion when validating and walking trees.
const maxTreeDepth = 64

var (
	ErrInvalidAgentConfig = errors.New("invalid agent configuration")
	ErrEmptyInstruction   = errors.New("leaf agent has empty instruction")
	ErrDuplicateSibling   = errors.New("duplicate sibling agent name")
	ErrTreeTooDeep        = errors.New("agent tree exceeds maximum depth")
)

// AgentNode is a node of the workflow tree. The Class field selects the
// variant; leaf fields and container fields are mutually exclusive on the
// wire. The JSON shape (name, class, instruction, model, sub_agents,
// max_iterations) is the storage and execution boundary contract and must
// not change.
type AgentNode struct {
	Name        string     `json:"name"                     validate:"required"`
	Class       AgentClass `json:"class"                    validate:"required,oneof=Agent SequentialAgent ParallelAgent LoopAgent"`
	Description string     `json:"description,omitempty"`

	// Leaf (Class == Agent) fields.
	Instruction string   `json:"instruction,omitempty"`
	Model       string   `json:"model,omitempty"`
	Tools       []string `json:"tools,omitempty"`

	// Container fields.
	SubAgents     []*AgentNode `json:"sub_agents,omitempty"`
	MaxIterations int          `json:"max_iterations,omitempty"`
}

// IsLeaf reports whether the node is a leaf LLM agent.
func (n *AgentNode) IsLeaf() bool {
	return n.Class == ClassAgent
}

// Validate checks structural invariants: known class, sibling-name
// uniqueness, non-empty instructions on leaves, max_iterations >= 1 on
// loops, and bounded depth (a decoded JSON document cannot alias nodes, but
// programmatically built trees can).
func (n *AgentNode) Validate() error {
	return n.validate(nil, 0)
}

func (n *AgentNode) validate(path []string, depth int) error {
	if depth > maxTreeDepth {
		return fmt.Errorf("%w at %s", ErrTreeTooDeep, strings.Join(path, PathSeparator))
	}

	if n.Name == "" {
		return fmt.Errorf("%w: unnamed node under %s", ErrInvalidAgentConfig, strings.Join(path, PathSeparator))
	}

	path = append(path, n.Name)

	switch n.Class {
	case ClassAgent:
		if strings.TrimSpace(n.Instruction) == "" {
			return fmt.Errorf("%w: %s", ErrEmptyInstruction, strings.Join(path, PathSeparator))
		}

		if len(n.SubAgents) > 0 {
			return fmt.Errorf("%w: leaf %s carries sub_agents", ErrInvalidAgentConfig, strings.Join(path, PathSeparator))
		}
	case ClassLoop:
		if n.MaxIterations < 1 {
			return fmt.Errorf("%w: loop %s requires max_iterations >= 1", ErrInvalidAgentConfig, strings.Join(path, PathSeparator))
		}

		if err := n.validateContainer(path, depth); err != nil {
			return err
		}
	case ClassSequential, ClassParallel:
		if n.MaxIterations != 0 {
			return fmt.Errorf("%w: %s does not support max_iterations", ErrInvalidAgentConfig, strings.Join(path, PathSeparator))
		}

		if err := n.validateContainer(path, depth); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: unknown class %q at %s", ErrInvalidAgentConfig, n.Class, strings.Join(path, PathSeparator))
	}

	return nil
}

func (n *AgentNode) validateContainer(path []string, depth int) error {
	if len(n.SubAgents) == 0 {
		return fmt.Errorf("%w: container %s has no sub_agents", ErrInvalidAgentConfig, strings.Join(path, PathSeparator))
	}

	seen := make(map[string]struct{}, len(n.SubAgents))

	for _, child := range n.SubAgents {
		if child == nil {
			return fmt.Errorf("%w: nil sub-agent under %s", ErrInvalidAgentConfig, strings.Join(path, PathSeparator))
		}

		if _, ok := seen[child.Name]; ok {
			return fmt.Errorf("%w: %q under %s", ErrDuplicateSibling, child.Name, strings.Join(path, PathSeparator))
		}

		seen[child.Name] = struct{}{}

		if err := child.validate(path, depth+1); err != nil {
			return err
		}
	}

	return nil
}

// Clone returns a deep copy of the tree. Versions handed out by the updater
// are clones, so an older version stays valid after further edits.
func (n *AgentNode) Clone() *AgentNode {
	if n == nil {
		return nil
	}

	clone := *n

	if n.Tools != nil {
		clone.Tools = append([]string(nil), n.Tools...)
	}

	if n.SubAgents != nil {
		clone.SubAgents = make([]*AgentNode, len(n.SubAgents))
		for i, child := range n.SubAgents {
			clone.SubAgents[i] = child.Clone()
		}
	}

	return &clone
}

// Leaf pairs a leaf node with its stable path.
type Leaf struct {
	Path string
	Node *AgentNode
}

// Leaves returns all leaf agents in pre-order together with their paths.
func (n *AgentNode) Leaves() []Leaf {
	var leaves []Leaf

	n.walk(nil, func(path string, node *AgentNode) {
		if node.IsLeaf() {
			leaves = append(leaves, Leaf{Path: path, Node: node})
		}
	})

	return leaves
}

// Instructions returns the instruction of every leaf keyed by path.
func (n *AgentNode) Instructions() map[string]string {
	out := make(map[string]string)

	for _, leaf := range n.Leaves() {
		out[leaf.Path] = leaf.Node.Instruction
	}

	return out
}

// FindNode resolves a slash-joined path to a node, or nil if the path does
// not exist in this tree.
func (n *AgentNode) FindNode(path string) *AgentNode {
	parts := strings.Split(path, PathSeparator)
	if len(parts) == 0 || parts[0] != n.Name {
		return nil
	}

	current := n

	for _, part := range parts[1:] {
		var next *AgentNode

		for _, child := range current.SubAgents {
			if child.Name == part {
				next = child

				break
			}
		}

		if next == nil {
			return nil
		}

		current = next
	}

	return current
}

// SameShape reports whether two trees have identical structure (names,
// classes, and child ordering), ignoring instructions.
func SameShape(a, b *AgentNode) bool {
	if a == nil || b == nil {
		return a == b
	}

	if a.Name != b.Name || a.Class != b.Class || len(a.SubAgents) != len(b.SubAgents) {
		return false
	}

	for i := range a.SubAgents {
		if !SameShape(a.SubAgents[i], b.SubAgents[i]) {
			return false
		}
	}

	return true
}

func (n *AgentNode) walk(parent []string, visit func(path string, node *AgentNode)) {
	path := make([]string, 0, len(parent)+1)
	path = append(path, parent...)
	path = append(path, n.Name)

	visit(strings.Join(path, PathSeparator), n)

	for _, child := range n.SubAgents {
		child.walk(path, visit)
	}
}

// ParseAgentConfig decodes a serialized agent configuration, checking it
// against the JSON schema first and running full structural validation
// after. Untyped maps never cross this boundary.
func ParseAgentConfig(data []byte) (*AgentNode, error) {
	if err := validateAgentConfigSchema(data); err != nil {
		return nil, err
	}

	var node AgentNode
	if err := json.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidAgentConfig, err)
	}

	if err := node.Validate(); err != nil {
		return nil, err
	}

	return &node, nil
}

// SerializeAgentConfig encodes a tree in the boundary JSON shape.
func SerializeAgentConfig(node *AgentNode) ([]byte, error) {
	data, err := json.MarshalIndent(node, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to serialize agent config: %w", err)
	}

	return data, nil
}
