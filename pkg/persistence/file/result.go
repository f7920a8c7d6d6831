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

	"github.com/dukex/agentopt/pkg/models"
	"github.com/dukex/agentopt/pkg/persistence"
)

const resultsDir = "results"

// ResultRepository stores optimization results as one JSON file per run.
type ResultRepository struct {
	root string
}

// NewResultRepository creates a new result repository.
func NewResultRepository(root string) *ResultRepository {
	return &ResultRepository{root: root}
}

// List returns all stored results sorted by start time, newest first.
func (r *ResultRepository) List(ctx context.Context) ([]*models.OptimizationResult, error) {
	dir := path.Join(r.root, resultsDir)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return []*models.OptimizationResult{}, nil
	}

	jsonFiles, err := fs.Glob(os.DirFS(dir), "*.json")
	if err != nil {
		return nil, persistence.NewResultError("List", "", err)
	}

	results := make([]*models.OptimizationResult, 0, len(jsonFiles))

	for _, file := range jsonFiles {
		id := file[:len(file)-5] // Remove .json extension

		result, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to load result %s: %w", id, err)
		}

		results = append(results, result)
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].StartedAt.After(results[j].StartedAt)
	})

	return results, nil
}

// GetByID retrieves a stored result by its run ID.
func (r *ResultRepository) GetByID(_ context.Context, id string) (*models.OptimizationResult, error) {
	filePath := filepath.Clean(path.Join(r.root, resultsDir, id+".json"))

	body, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.NewResultError("GetByID", id, persistence.ErrResultNotFound)
		}

		return nil, persistence.NewResultError("GetByID", id, err)
	}

	var result models.OptimizationResult

	err = json.Unmarshal(body, &result)
	if err != nil {
		return nil, persistence.NewResultError("GetByID", id, err)
	}

	return &result, nil
}

// Save writes the result to disk keyed by its run ID.
func (r *ResultRepository) Save(_ context.Context, result *models.OptimizationResult) error {
	if result.ID == "" {
		return persistence.NewResultError("Save", "", fmt.Errorf("result ID is required"))
	}

	err := os.MkdirAll(path.Join(r.root, resultsDir), 0750)
	if err != nil {
		return persistence.NewResultError("Save", result.ID, err)
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return persistence.NewResultError("Save", result.ID, err)
	}

	filePath := path.Join(r.root, resultsDir, result.ID+".json")

	return os.WriteFile(filePath, data, 0600)
}

// Delete removes a stored result. Deleting a missing result is not an error.
func (r *ResultRepository) Delete(_ context.Context, id string) error {
	filePath := path.Join(r.root, resultsDir, id+".json")

	err := os.Remove(filePath)

	if err != nil && os.IsNotExist(err) {
		return nil
	}

	if err != nil {
		return persistence.NewResultError("Delete", id, err)
	}

	return nil
}
