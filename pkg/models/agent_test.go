package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func researchPipeline() *AgentNode {
	return &AgentNode{
		Name:  "pipeline",
		Class: ClassSequential,
		SubAgents: []*AgentNode{
			{
				Name:        "researcher",
				Class:       ClassAgent,
				Instruction: "Collect the key facts from the input.",
				Model:       "gpt-4o",
			},
			{
				Name:  "drafting",
				Class: ClassParallel,
				SubAgents: []*AgentNode{
					{Name: "writer", Class: ClassAgent, Instruction: "Write a draft summary.", Model: "gpt-4o"},
					{Name: "fact-checker", Class: ClassAgent, Instruction: "List factual claims.", Model: "gpt-4o-mini"},
				},
			},
			{
				Name:          "refiner",
				Class:         ClassLoop,
				MaxIterations: 2,
				SubAgents: []*AgentNode{
					{Name: "editor", Class: ClassAgent, Instruction: "Tighten the draft.", Model: "gpt-4o"},
				},
			},
		},
	}
}

func TestAgentNodeValidate(t *testing.T) {
	require.NoError(t, researchPipeline().Validate())
}

func TestAgentNodeValidate_EmptyInstruction(t *testing.T) {
	tree := researchPipeline()
	tree.SubAgents[0].Instruction = "   "

	err := tree.Validate()

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmptyInstruction)
	assert.Contains(t, err.Error(), "pipeline/researcher")
}

func TestAgentNodeValidate_DuplicateSiblings(t *testing.T) {
	tree := researchPipeline()
	tree.SubAgents[1].SubAgents[1].Name = "writer"

	err := tree.Validate()

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicateSibling)
}

func TestAgentNodeValidate_LoopWithoutMaxIterations(t *testing.T) {
	tree := researchPipeline()
	tree.SubAgents[2].MaxIterations = 0

	assert.ErrorIs(t, tree.Validate(), ErrInvalidAgentConfig)
}

func TestAgentNodeValidate_CyclicTree(t *testing.T) {
	root := &AgentNode{Name: "root", Class: ClassSequential}
	root.SubAgents = []*AgentNode{root}

	assert.ErrorIs(t, root.Validate(), ErrTreeTooDeep)
}

func TestAgentNodeLeaves(t *testing.T) {
	leaves := researchPipeline().Leaves()

	paths := make([]string, 0, len(leaves))
	for _, leaf := range leaves {
		paths = append(paths, leaf.Path)
	}

	assert.Equal(t, []string{
		"pipeline/researcher",
		"pipeline/drafting/writer",
		"pipeline/drafting/fact-checker",
		"pipeline/refiner/editor",
	}, paths)
}

func TestAgentNodeFindNode(t *testing.T) {
	tree := researchPipeline()

	node := tree.FindNode("pipeline/drafting/writer")
	require.NotNil(t, node)
	assert.Equal(t, "writer", node.Name)
	assert.True(t, node.IsLeaf())

	assert.Nil(t, tree.FindNode("pipeline/drafting/missing"))
	assert.Nil(t, tree.FindNode("other/drafting/writer"))

	container := tree.FindNode("pipeline/drafting")
	require.NotNil(t, container)
	assert.False(t, container.IsLeaf())
}

func TestAgentNodeClone_Isolated(t *testing.T) {
	tree := researchPipeline()
	clone := tree.Clone()

	clone.SubAgents[0].Instruction = "changed"

	assert.Equal(t, "Collect the key facts from the input.", tree.SubAgents[0].Instruction)
	assert.True(t, SameShape(tree, clone))
}

func TestSameShape(t *testing.T) {
	a := researchPipeline()
	b := researchPipeline()
	b.SubAgents[0].Instruction = "different instruction, same shape"

	assert.True(t, SameShape(a, b))

	b.SubAgents = b.SubAgents[:2]
	assert.False(t, SameShape(a, b))
}

func TestParseAgentConfig_RoundTrip(t *testing.T) {
	data, err := SerializeAgentConfig(researchPipeline())
	require.NoError(t, err)

	parsed, err := ParseAgentConfig(data)
	require.NoError(t, err)

	assert.True(t, SameShape(researchPipeline(), parsed))
	assert.Equal(t, researchPipeline().Instructions(), parsed.Instructions())
}

func TestParseAgentConfig_SchemaViolations(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"missing instruction on leaf", `{"name": "a", "class": "Agent", "model": "gpt-4o"}`},
		{"unknown class", `{"name": "a", "class": "RouterAgent", "instruction": "x"}`},
		{"loop without max_iterations", `{"name": "l", "class": "LoopAgent", "sub_agents": [{"name": "a", "class": "Agent", "instruction": "x"}]}`},
		{"container without sub_agents", `{"name": "s", "class": "SequentialAgent"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseAgentConfig([]byte(tt.data))
			assert.ErrorIs(t, err, ErrSchemaViolation)
		})
	}
}

func TestParseAgentConfig_WireFieldNames(t *testing.T) {
	data := []byte(`{
		"name": "summarizer-loop",
		"class": "LoopAgent",
		"max_iterations": 3,
		"sub_agents": [
			{"name": "summarizer", "class": "Agent", "instruction": "Summarize the input.", "model": "gpt-4o"}
		]
	}`)

	tree, err := ParseAgentConfig(data)
	require.NoError(t, err)

	assert.Equal(t, ClassLoop, tree.Class)
	assert.Equal(t, 3, tree.MaxIterations)
	require.Len(t, tree.SubAgents, 1)
	assert.Equal(t, "Summarize the input.", tree.SubAgents[0].Instruction)
}
