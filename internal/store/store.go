// Package store persists the venue catalog. Two backends implement the same
// interface: postgres via pgx for shared deployments and sqlite via modernc
// for single-machine use.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/barrioguide/venue-cli/internal/config"
	"github.com/barrioguide/venue-cli/internal/geo"
	"github.com/barrioguide/venue-cli/internal/venue"
)

// RunSummary holds the end-of-run counters recorded with each sync run.
type RunSummary struct {
	Found         int  `json:"found"`
	Admitted      int  `json:"admitted"`
	Enriched      int  `json:"enriched"`
	Saved         int  `json:"saved"`
	Skipped       int  `json:"skipped"`
	Failed        int  `json:"failed"`
	BudgetCalls   int  `json:"budget_calls"`
	BudgetLimited bool `json:"budget_limited"`
}

// RunRecord is one recorded sync run.
type RunRecord struct {
	ID         string      `json:"id"`
	City       string      `json:"city"`
	Mode       string      `json:"mode"`
	Status     string      `json:"status"`
	Summary    *RunSummary `json:"summary,omitempty"`
	StartedAt  time.Time   `json:"started_at"`
	FinishedAt *time.Time  `json:"finished_at,omitempty"`
}

// Run status values.
const (
	RunStatusRunning  = "running"
	RunStatusComplete = "complete"
	RunStatusFailed   = "failed"
)

// Store defines the persistence interface for the venue catalog.
type Store interface {
	// Venues. Finders return (nil, nil) on a miss. Upsert inserts when
	// v.ID is zero (assigning it) and updates the existing row otherwise.
	FindByProviderID(ctx context.Context, providerID string) (*venue.Venue, error)
	FindByCanonicalKey(ctx context.Context, key, city string) (*venue.Venue, error)
	Upsert(ctx context.Context, v *venue.Venue) error
	ListByCity(ctx context.Context, city string) ([]venue.Venue, error)
	UpdateScore(ctx context.Context, id int64, score int, tier venue.Tier) error

	// Runs
	CreateRun(ctx context.Context, run *RunRecord) error
	CompleteRun(ctx context.Context, runID, status string, summary *RunSummary) error

	// Boundaries
	SaveBoundaries(ctx context.Context, city string, rows []geo.NamedGeometry) error
	LoadBoundaries(ctx context.Context, city string) ([]geo.NamedGeometry, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// New opens the store selected by the config driver.
func New(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "postgres":
		return NewPostgres(ctx, cfg.DatabaseURL, nil)
	case "sqlite", "":
		return NewSQLite(cfg.SQLitePath)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
}
