package workflow

import (
	"fmt"
	"strings"

	"github.com/dukex/agentopt/pkg/models"
)

// Edit is a requested instruction rewrite for a single leaf.
type Edit struct {
	Path           string
	NewInstruction string
}

// ApplyEdits rewrites leaf instructions and returns a new tree version. The
// input tree is never mutated, so callers can keep old versions around for
// rollback. Tree shape is preserved by construction: only the instruction
// field of resolved leaves changes.
//
// The call fails on the first edit whose path does not resolve
// (ErrNodeNotFound), resolves to a container (ErrNotALeaf), or would leave a
// leaf with an empty instruction (models.ErrEmptyInstruction).
func ApplyEdits(tree *models.AgentNode, edits []Edit) (*models.AgentNode, error) {
	next := tree.Clone()

	for _, edit := range edits {
		if err := applyEdit(next, edit); err != nil {
			return nil, err
		}
	}

	if err := next.Validate(); err != nil {
		return nil, err
	}

	return next, nil
}

// ApplyEditsPartial applies every edit that can be applied and reports the
// rest as skipped, keyed by the same order they were requested in. It only
// returns an error when the resulting tree fails validation, which callers
// treat as an iteration-level failure.
func ApplyEditsPartial(tree *models.AgentNode, edits []Edit) (next *models.AgentNode, applied []Edit, skipped map[string]error, err error) {
	next = tree.Clone()
	skipped = make(map[string]error)

	for _, edit := range edits {
		if editErr := applyEdit(next, edit); editErr != nil {
			skipped[edit.Path] = editErr

			continue
		}

		applied = append(applied, edit)
	}

	if len(applied) == 0 {
		return tree, nil, skipped, nil
	}

	if err = next.Validate(); err != nil {
		return nil, nil, skipped, err
	}

	return next, applied, skipped, nil
}

func applyEdit(tree *models.AgentNode, edit Edit) error {
	node := tree.FindNode(edit.Path)
	if node == nil {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, edit.Path)
	}

	if !node.IsLeaf() {
		return fmt.Errorf("%w: %s", ErrNotALeaf, edit.Path)
	}

	if strings.TrimSpace(edit.NewInstruction) == "" {
		return fmt.Errorf("%w: %s", models.ErrEmptyInstruction, edit.Path)
	}

	node.Instruction = edit.NewInstruction

	return nil
}

// Diff compares two same-shaped trees leaf by leaf and returns the
// instruction changes. An empty result means the trees carry identical
// instructions.
func Diff(a, b *models.AgentNode) ([]models.InstructionEdit, error) {
	if !models.SameShape(a, b) {
		return nil, ErrShapeMismatch
	}

	before := a.Leaves()
	after := b.Leaves()

	var changes []models.InstructionEdit

	for i := range before {
		if before[i].Node.Instruction == after[i].Node.Instruction {
			continue
		}

		changes = append(changes, models.InstructionEdit{
			Path:           before[i].Path,
			OldInstruction: before[i].Node.Instruction,
			NewInstruction: after[i].Node.Instruction,
		})
	}

	return changes, nil
}

// VersionHistory is the append-only sequence of tree versions produced over
// an optimization run. Version 0 is the initial tree.
type VersionHistory struct {
	versions []*models.AgentNode
}

// NewVersionHistory starts a history at the given initial tree.
func NewVersionHistory(initial *models.AgentNode) *VersionHistory {
	return &VersionHistory{versions: []*models.AgentNode{initial}}
}

// Append records a new version and returns its index.
func (h *VersionHistory) Append(tree *models.AgentNode) int {
	h.versions = append(h.versions, tree)

	return len(h.versions) - 1
}

// Version returns the tree recorded at the given index.
func (h *VersionHistory) Version(index int) (*models.AgentNode, error) {
	if index < 0 || index >= len(h.versions) {
		return nil, fmt.Errorf("%w: %d", ErrNoVersion, index)
	}

	return h.versions[index], nil
}

// Latest returns the most recently recorded version.
func (h *VersionHistory) Latest() *models.AgentNode {
	return h.versions[len(h.versions)-1]
}

// Len returns the number of recorded versions.
func (h *VersionHistory) Len() int {
	return len(h.versions)
}
