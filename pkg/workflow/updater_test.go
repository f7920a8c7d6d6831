package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukex/agentopt/pkg/models"
)

func pipelineTree() *models.AgentNode {
	return &models.AgentNode{
		Name:  "pipeline",
		Class: models.ClassSequential,
		SubAgents: []*models.AgentNode{
			{
				Name:        "researcher",
				Class:       models.ClassAgent,
				Instruction: "Research the topic.",
				Model:       "gpt-4o-mini",
			},
			{
				Name:  "drafting",
				Class: models.ClassParallel,
				SubAgents: []*models.AgentNode{
					{
						Name:        "writer",
						Class:       models.ClassAgent,
						Instruction: "Write a draft.",
						Model:       "gpt-4o-mini",
					},
					{
						Name:        "fact-checker",
						Class:       models.ClassAgent,
						Instruction: "Check the facts.",
						Model:       "gpt-4o-mini",
					},
				},
			},
			{
				Name:          "refiner",
				Class:         models.ClassLoop,
				MaxIterations: 2,
				SubAgents: []*models.AgentNode{
					{
						Name:        "editor",
						Class:       models.ClassAgent,
						Instruction: "Polish the draft.",
						Model:       "gpt-4o-mini",
					},
				},
			},
		},
	}
}

func TestApplyEditsRewritesLeafWithoutMutatingInput(t *testing.T) {
	tree := pipelineTree()

	next, err := ApplyEdits(tree, []Edit{
		{Path: "pipeline/researcher", NewInstruction: "Research thoroughly with citations."},
	})
	require.NoError(t, err)

	assert.Equal(t, "Research thoroughly with citations.", next.FindNode("pipeline/researcher").Instruction)
	assert.Equal(t, "Research the topic.", tree.FindNode("pipeline/researcher").Instruction)
	assert.True(t, models.SameShape(tree, next))
}

func TestApplyEditsFailsFastOnUnknownPath(t *testing.T) {
	tree := pipelineTree()

	_, err := ApplyEdits(tree, []Edit{
		{Path: "pipeline/ghost", NewInstruction: "anything"},
	})

	require.ErrorIs(t, err, ErrNodeNotFound)
}

func TestApplyEditsRejectsContainerTargets(t *testing.T) {
	_, err := ApplyEdits(pipelineTree(), []Edit{
		{Path: "pipeline/drafting", NewInstruction: "containers have no instruction"},
	})

	require.ErrorIs(t, err, ErrNotALeaf)
}

func TestApplyEditsRejectsEmptyInstruction(t *testing.T) {
	_, err := ApplyEdits(pipelineTree(), []Edit{
		{Path: "pipeline/researcher", NewInstruction: "   "},
	})

	require.ErrorIs(t, err, models.ErrEmptyInstruction)
}

func TestApplyEditsPartialAppliesValidSubset(t *testing.T) {
	tree := pipelineTree()

	next, applied, skipped, err := ApplyEditsPartial(tree, []Edit{
		{Path: "pipeline/drafting/writer", NewInstruction: "Write a vivid draft."},
		{Path: "pipeline/ghost", NewInstruction: "anything"},
		{Path: "pipeline/refiner/editor", NewInstruction: ""},
	})
	require.NoError(t, err)

	assert.Len(t, applied, 1)
	assert.Len(t, skipped, 2)
	assert.ErrorIs(t, skipped["pipeline/ghost"], ErrNodeNotFound)
	assert.ErrorIs(t, skipped["pipeline/refiner/editor"], models.ErrEmptyInstruction)
	assert.Equal(t, "Write a vivid draft.", next.FindNode("pipeline/drafting/writer").Instruction)
}

func TestApplyEditsPartialReturnsOriginalWhenNothingApplies(t *testing.T) {
	tree := pipelineTree()

	next, applied, skipped, err := ApplyEditsPartial(tree, []Edit{
		{Path: "pipeline/ghost", NewInstruction: "anything"},
	})
	require.NoError(t, err)

	assert.Same(t, tree, next)
	assert.Empty(t, applied)
	assert.Len(t, skipped, 1)
}

func TestApplyEditsNoOpReturnsEquivalentTree(t *testing.T) {
	tree := pipelineTree()

	next, err := ApplyEdits(tree, nil)
	require.NoError(t, err)

	changes, err := Diff(tree, next)
	require.NoError(t, err)
	assert.Empty(t, changes)
}

func TestDiffReportsChangedInstructions(t *testing.T) {
	tree := pipelineTree()

	next, err := ApplyEdits(tree, []Edit{
		{Path: "pipeline/researcher", NewInstruction: "Research with sources."},
		{Path: "pipeline/refiner/editor", NewInstruction: "Tighten the prose."},
	})
	require.NoError(t, err)

	changes, err := Diff(tree, next)
	require.NoError(t, err)
	require.Len(t, changes, 2)

	assert.Equal(t, "pipeline/researcher", changes[0].Path)
	assert.Equal(t, "Research the topic.", changes[0].OldInstruction)
	assert.Equal(t, "Research with sources.", changes[0].NewInstruction)
	assert.Equal(t, "pipeline/refiner/editor", changes[1].Path)
}

func TestDiffRejectsShapeMismatch(t *testing.T) {
	other := pipelineTree()
	other.SubAgents = other.SubAgents[:2]

	_, err := Diff(pipelineTree(), other)
	require.ErrorIs(t, err, ErrShapeMismatch)
}

func TestVersionHistoryTracksVersionsInOrder(t *testing.T) {
	initial := pipelineTree()
	history := NewVersionHistory(initial)

	edited, err := ApplyEdits(initial, []Edit{
		{Path: "pipeline/researcher", NewInstruction: "Research deeply."},
	})
	require.NoError(t, err)

	index := history.Append(edited)
	assert.Equal(t, 1, index)
	assert.Equal(t, 2, history.Len())

	v0, err := history.Version(0)
	require.NoError(t, err)
	assert.Same(t, initial, v0)

	assert.Same(t, edited, history.Latest())

	_, err = history.Version(5)
	require.ErrorIs(t, err, ErrNoVersion)
}
