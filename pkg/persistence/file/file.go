// Package file provides file-based persistence for agent configurations and
// optimization results.
package file

import (
	"context"
	"os"
	"strings"

	"github.com/dukex/agentopt/pkg/persistence"
)

// Persistence implements the persistence.Persistence interface using the
// file system.
type Persistence struct {
	root            string
	agentConfigRepo *AgentConfigRepository
	resultRepo      *ResultRepository
}

// NewPersistence creates a new instance of Persistence with the specified
// root directory.
func NewPersistence(root string) persistence.Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	return &Persistence{
		root:            cleanRoot,
		agentConfigRepo: NewAgentConfigRepository(cleanRoot),
		resultRepo:      NewResultRepository(cleanRoot),
	}
}

// Close performs any necessary cleanup. For file-based persistence, there is
// nothing to clean up.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck verifies the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

func (fp *Persistence) AgentConfigRepository() persistence.AgentConfigRepository {
	return fp.agentConfigRepo
}

func (fp *Persistence) ResultRepository() persistence.ResultRepository {
	return fp.resultRepo
}
