// Package persistence provides the storage abstraction for agent
// configurations and optimization results.
package persistence

import (
	"context"

	"github.com/dukex/agentopt/pkg/models"
)

type AgentConfigRepository interface {
	List(ctx context.Context) ([]*models.AgentConfigRecord, error)
	GetByID(ctx context.Context, id string) (*models.AgentConfigRecord, error)
	Save(ctx context.Context, record *models.AgentConfigRecord) error
	Delete(ctx context.Context, id string) error
}

type ResultRepository interface {
	List(ctx context.Context) ([]*models.OptimizationResult, error)
	GetByID(ctx context.Context, id string) (*models.OptimizationResult, error)
	Save(ctx context.Context, result *models.OptimizationResult) error
	Delete(ctx context.Context, id string) error
}

type Persistence interface {
	AgentConfigRepository() AgentConfigRepository
	ResultRepository() ResultRepository
	HealthCheck(ctx context.Context) error

	Close(ctx context.Context) error
}
