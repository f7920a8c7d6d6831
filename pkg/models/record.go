package models

import "time"

// AgentConfigRecord is a stored, named workflow tree. The record identity is
// separate from the tree's root name so the same workflow can be stored
// under several experiment IDs.
type AgentConfigRecord struct {
	ID        string     `json:"id"         validate:"required"`
	Tree      *AgentNode `json:"tree"       validate:"required"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}
