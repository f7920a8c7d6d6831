package models

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// ErrSchemaViolation indicates a serialized agent config failed the JSON
// schema check before decoding.
var ErrSchemaViolation = errors.New("agent config schema violation")

// agentConfigSchema is the on-wire contract for serialized workflow trees.
// Leaf agents require a non-empty instruction, containers require
// sub_agents, loop containers require max_iterations >= 1.
const agentConfigSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "title": "AgentConfig",
  "$ref": "#/definitions/node",
  "definitions": {
    "node": {
      "type": "object",
      "required": ["name", "class"],
      "properties": {
        "name": {"type": "string", "minLength": 1},
        "class": {"enum": ["Agent", "SequentialAgent", "ParallelAgent", "LoopAgent"]},
        "description": {"type": "string"},
        "instruction": {"type": "string"},
        "model": {"type": "string"},
        "tools": {"type": "array", "items": {"type": "string"}},
        "sub_agents": {"type": "array", "items": {"$ref": "#/definitions/node"}},
        "max_iterations": {"type": "integer", "minimum": 1}
      },
      "allOf": [
        {
          "if": {"properties": {"class": {"const": "Agent"}}},
          "then": {"required": ["instruction"], "properties": {"instruction": {"minLength": 1}}}
        },
        {
          "if": {"properties": {"class": {"enum": ["SequentialAgent", "ParallelAgent", "LoopAgent"]}}},
          "then": {"required": ["sub_agents"], "properties": {"sub_agents": {"minItems": 1}}}
        },
        {
          "if": {"properties": {"class": {"const": "LoopAgent"}}},
          "then": {"required": ["max_iterations"]}
        }
      ]
    }
  }
}`

var agentConfigSchemaLoader = gojsonschema.NewStringLoader(agentConfigSchema)

func validateAgentConfigSchema(data []byte) error {
	result, err := gojsonschema.Validate(agentConfigSchemaLoader, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSchemaViolation, err)
	}

	if result.Valid() {
		return nil
	}

	details := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		details = append(details, desc.String())
	}

	return fmt.Errorf("%w: %s", ErrSchemaViolation, strings.Join(details, "; "))
}
