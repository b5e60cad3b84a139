package storage

import (
	"context"

	"ntr/internal/config"
	"ntr/internal/domain"
)

// Storage persists and loads the last run's results (e.g. for the failures viewer).
type Storage interface {
	Save(output *domain.TestResultsOutput) error
	Load() (*domain.TestResultsOutput, error)
}

// History appends run summaries to a long-lived store
type History interface {
	SaveRun(ctx context.Context, run RunRecord) error
	Recent(ctx context.Context, limit int) ([]RunRecord, error)
}

// Migrator is implemented by history stores that create their schema on demand
type Migrator interface {
	Migrate(ctx context.Context) error
}

// JSONStorage stores results in a JSON file under the configured output path.
type JSONStorage struct {
	cfg *config.Config
}

// NewJSONStorage returns a Storage that reads/writes the config's output JSON path.
func NewJSONStorage(cfg *config.Config) *JSONStorage {
	return &JSONStorage{cfg: cfg}
}
