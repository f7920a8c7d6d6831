package file

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"time"

	"github.com/dukex/agentopt/pkg/models"
	"github.com/dukex/agentopt/pkg/persistence"
)

const agentConfigsDir = "agent-configs"

// AgentConfigRepository stores agent configurations as one JSON file per
// record.
type AgentConfigRepository struct {
	root string
}

// NewAgentConfigRepository creates a new agent config repository.
func NewAgentConfigRepository(root string) *AgentConfigRepository {
	return &AgentConfigRepository{root: root}
}

// List returns all stored agent configurations sorted by creation time,
// newest first.
func (r *AgentConfigRepository) List(ctx context.Context) ([]*models.AgentConfigRecord, error) {
	dir := path.Join(r.root, agentConfigsDir)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return []*models.AgentConfigRecord{}, nil
	}

	jsonFiles, err := fs.Glob(os.DirFS(dir), "*.json")
	if err != nil {
		return nil, persistence.NewAgentConfigError("List", "", err)
	}

	records := make([]*models.AgentConfigRecord, 0, len(jsonFiles))

	for _, file := range jsonFiles {
		id := file[:len(file)-5] // Remove .json extension

		record, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to load agent config %s: %w", id, err)
		}

		records = append(records, record)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})

	return records, nil
}

// GetByID retrieves a stored agent configuration by its ID.
func (r *AgentConfigRepository) GetByID(_ context.Context, id string) (*models.AgentConfigRecord, error) {
	filePath := filepath.Clean(path.Join(r.root, agentConfigsDir, id+".json"))

	body, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.NewAgentConfigError("GetByID", id, persistence.ErrAgentConfigNotFound)
		}

		return nil, persistence.NewAgentConfigError("GetByID", id, err)
	}

	var record models.AgentConfigRecord

	err = json.Unmarshal(body, &record)
	if err != nil {
		return nil, persistence.NewAgentConfigError("GetByID", id, err)
	}

	return &record, nil
}

// Save writes the record to disk, validating the tree first.
func (r *AgentConfigRepository) Save(_ context.Context, record *models.AgentConfigRecord) error {
	if record.ID == "" {
		return persistence.NewAgentConfigError("Save", "", fmt.Errorf("record ID is required"))
	}

	if record.Tree == nil {
		return persistence.NewAgentConfigError("Save", record.ID, fmt.Errorf("record tree is required"))
	}

	if err := record.Tree.Validate(); err != nil {
		return persistence.NewAgentConfigError("Save", record.ID, err)
	}

	err := os.MkdirAll(path.Join(r.root, agentConfigsDir), 0750)
	if err != nil {
		return persistence.NewAgentConfigError("Save", record.ID, err)
	}

	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}

	record.UpdatedAt = now

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return persistence.NewAgentConfigError("Save", record.ID, err)
	}

	filePath := path.Join(r.root, agentConfigsDir, record.ID+".json")

	return os.WriteFile(filePath, data, 0600)
}

// Delete removes a stored agent configuration. Deleting a missing record is
// not an error.
func (r *AgentConfigRepository) Delete(_ context.Context, id string) error {
	filePath := path.Join(r.root, agentConfigsDir, id+".json")

	err := os.Remove(filePath)

	if err != nil && os.IsNotExist(err) {
		return nil
	}

	if err != nil {
		return persistence.NewAgentConfigError("Delete", id, err)
	}

	return nil
}
