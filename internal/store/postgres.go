package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/barrioguide/venue-cli/internal/db"
	"github.com/barrioguide/venue-cli/internal/geo"
	"github.com/barrioguide/venue-cli/internal/venue"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// newPostgresWithPool wires an existing pool, used by tests.
func newPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS venues (
	id                   BIGSERIAL PRIMARY KEY,
	primary_id           TEXT NOT NULL UNIQUE,
	alt_ids              JSONB,
	secondary_id         TEXT,
	canonical_key        TEXT NOT NULL,
	name                 TEXT NOT NULL,
	city                 TEXT NOT NULL,
	neighborhood         TEXT NOT NULL DEFAULT '',
	latitude             DOUBLE PRECISION NOT NULL DEFAULT 0,
	longitude            DOUBLE PRECISION NOT NULL DEFAULT 0,
	rating               DOUBLE PRECISION NOT NULL DEFAULT 0,
	rating_count         INTEGER,
	has_secondary_data   BOOLEAN NOT NULL DEFAULT FALSE,
	quality_score        INTEGER,
	tier                 TEXT NOT NULL DEFAULT 'none',
	featured             BOOLEAN NOT NULL DEFAULT FALSE,
	address              TEXT,
	hours                TEXT,
	phone                TEXT,
	website              TEXT,
	price_tier           INTEGER,
	description          TEXT,
	photo_refs           JSONB,
	primary_categories   JSONB,
	secondary_categories JSONB,
	created_at           TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at           TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_venues_canonical_city ON venues(canonical_key, city);
CREATE INDEX IF NOT EXISTS idx_venues_city ON venues(city);
CREATE INDEX IF NOT EXISTS idx_venues_city_score ON venues(city, quality_score DESC);

CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	city        TEXT NOT NULL,
	mode        TEXT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'running',
	summary     JSONB,
	started_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	finished_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_runs_city ON runs(city);

CREATE TABLE IF NOT EXISTS boundaries (
	city     TEXT NOT NULL,
	name     TEXT NOT NULL,
	geometry JSONB NOT NULL,
	PRIMARY KEY (city, name)
);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

const venueColumns = `id, primary_id, alt_ids, secondary_id, canonical_key, name, city, neighborhood,
	latitude, longitude, rating, rating_count, has_secondary_data, quality_score, tier, featured,
	address, hours, phone, website, price_tier, description,
	photo_refs, primary_categories, secondary_categories, created_at, updated_at`

func (s *PostgresStore) FindByProviderID(ctx context.Context, providerID string) (*venue.Venue, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+venueColumns+` FROM venues WHERE primary_id = $1`,
		providerID,
	)
	v, err := scanVenue(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: find venue by provider id %s", providerID)
	}
	return v, nil
}

func (s *PostgresStore) FindByCanonicalKey(ctx context.Context, key, city string) (*venue.Venue, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+venueColumns+` FROM venues WHERE canonical_key = $1 AND city = $2`,
		key, city,
	)
	v, err := scanVenue(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "postgres: find venue by canonical key")
	}
	return v, nil
}

func (s *PostgresStore) Upsert(ctx context.Context, v *venue.Venue) error {
	now := time.Now().UTC()
	altIDs, photos, primaryCats, secondaryCats, err := marshalLists(v)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal venue lists")
	}

	if v.ID == 0 {
		v.CreatedAt = now
		v.UpdatedAt = now
		err := s.pool.QueryRow(ctx,
			`INSERT INTO venues (primary_id, alt_ids, secondary_id, canonical_key, name, city, neighborhood,
				latitude, longitude, rating, rating_count, has_secondary_data, quality_score, tier, featured,
				address, hours, phone, website, price_tier, description,
				photo_refs, primary_categories, secondary_categories, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26)
			 RETURNING id`,
			v.PrimaryID, altIDs, v.SecondaryID, v.CanonicalKey, v.Name, v.City, v.Neighborhood,
			v.Latitude, v.Longitude, v.Rating, v.RatingCount, v.HasSecondaryData, v.QualityScore, string(v.Tier), v.Featured,
			v.Address, v.Hours, v.Phone, v.Website, v.PriceTier, v.Description,
			photos, primaryCats, secondaryCats, v.CreatedAt, v.UpdatedAt,
		).Scan(&v.ID)
		return eris.Wrapf(err, "postgres: insert venue %s", v.PrimaryID)
	}

	v.UpdatedAt = now
	tag, err := s.pool.Exec(ctx,
		`UPDATE venues SET alt_ids = $1, secondary_id = $2, canonical_key = $3, name = $4, city = $5, neighborhood = $6,
			latitude = $7, longitude = $8, rating = $9, rating_count = $10, has_secondary_data = $11,
			quality_score = $12, tier = $13, featured = $14,
			address = $15, hours = $16, phone = $17, website = $18, price_tier = $19, description = $20,
			photo_refs = $21, primary_categories = $22, secondary_categories = $23, updated_at = $24
		 WHERE id = $25`,
		altIDs, v.SecondaryID, v.CanonicalKey, v.Name, v.City, v.Neighborhood,
		v.Latitude, v.Longitude, v.Rating, v.RatingCount, v.HasSecondaryData,
		v.QualityScore, string(v.Tier), v.Featured,
		v.Address, v.Hours, v.Phone, v.Website, v.PriceTier, v.Description,
		photos, primaryCats, secondaryCats, v.UpdatedAt,
		v.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update venue %d", v.ID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("venue not found: %d", v.ID)
	}
	return nil
}

func (s *PostgresStore) ListByCity(ctx context.Context, city string) ([]venue.Venue, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+venueColumns+` FROM venues WHERE city = $1 ORDER BY id`,
		city,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list venues for %s", city)
	}
	defer rows.Close()

	var venues []venue.Venue
	for rows.Next() {
		v, err := scanVenue(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan venue")
		}
		venues = append(venues, *v)
	}
	return venues, eris.Wrap(rows.Err(), "postgres: list venues iterate")
}

func (s *PostgresStore) UpdateScore(ctx context.Context, id int64, score int, tier venue.Tier) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE venues SET quality_score = $1, tier = $2, updated_at = $3 WHERE id = $4`,
		score, string(tier), time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update score for venue %d", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("venue not found: %d", id)
	}
	return nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, run *RunRecord) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO runs (id, city, mode, status, started_at) VALUES ($1, $2, $3, $4, $5)`,
		run.ID, run.City, run.Mode, run.Status, run.StartedAt,
	)
	return eris.Wrapf(err, "postgres: insert run %s", run.ID)
}

func (s *PostgresStore) CompleteRun(ctx context.Context, runID, status string, summary *RunSummary) error {
	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal run summary")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, summary = $2, finished_at = $3 WHERE id = $4`,
		status, summaryJSON, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) SaveBoundaries(ctx context.Context, city string, rows []geo.NamedGeometry) error {
	upsertRows := make([][]any, 0, len(rows))
	for _, r := range rows {
		upsertRows = append(upsertRows, []any{city, r.Name, r.Geometry})
	}

	_, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "boundaries",
		Columns:      []string{"city", "name", "geometry"},
		ConflictKeys: []string{"city", "name"},
	}, upsertRows)
	return eris.Wrapf(err, "postgres: save boundaries for %s", city)
}

func (s *PostgresStore) LoadBoundaries(ctx context.Context, city string) ([]geo.NamedGeometry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT name, geometry FROM boundaries WHERE city = $1 ORDER BY name`,
		city,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: load boundaries for %s", city)
	}
	defer rows.Close()

	var result []geo.NamedGeometry
	for rows.Next() {
		var r geo.NamedGeometry
		if err := rows.Scan(&r.Name, &r.Geometry); err != nil {
			return nil, eris.Wrap(err, "postgres: scan boundary")
		}
		result = append(result, r)
	}
	return result, eris.Wrap(rows.Err(), "postgres: load boundaries iterate")
}

// scanVenue reads one venue row in venueColumns order.
func scanVenue(row pgx.Row) (*venue.Venue, error) {
	var v venue.Venue
	var tier string
	var altIDs, photos, primaryCats, secondaryCats []byte

	err := row.Scan(
		&v.ID, &v.PrimaryID, &altIDs, &v.SecondaryID, &v.CanonicalKey, &v.Name, &v.City, &v.Neighborhood,
		&v.Latitude, &v.Longitude, &v.Rating, &v.RatingCount, &v.HasSecondaryData, &v.QualityScore, &tier, &v.Featured,
		&v.Address, &v.Hours, &v.Phone, &v.Website, &v.PriceTier, &v.Description,
		&photos, &primaryCats, &secondaryCats, &v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	v.Tier = venue.Tier(tier)
	for _, pair := range []struct {
		data []byte
		dst  *[]string
	}{
		{altIDs, &v.AltIDs},
		{photos, &v.PhotoRefs},
		{primaryCats, &v.PrimaryCategories},
		{secondaryCats, &v.SecondaryCategories},
	} {
		if len(pair.data) == 0 {
			continue
		}
		if err := json.Unmarshal(pair.data, pair.dst); err != nil {
			return nil, eris.Wrap(err, "unmarshal venue list column")
		}
	}
	return &v, nil
}

// marshalLists encodes the venue's string-slice fields for JSONB columns.
// Empty slices become NULL.
func marshalLists(v *venue.Venue) (altIDs, photos, primaryCats, secondaryCats []byte, err error) {
	if altIDs, err = marshalList(v.AltIDs); err != nil {
		return nil, nil, nil, nil, err
	}
	if photos, err = marshalList(v.PhotoRefs); err != nil {
		return nil, nil, nil, nil, err
	}
	if primaryCats, err = marshalList(v.PrimaryCategories); err != nil {
		return nil, nil, nil, nil, err
	}
	if secondaryCats, err = marshalList(v.SecondaryCategories); err != nil {
		return nil, nil, nil, nil, err
	}
	return altIDs, photos, primaryCats, secondaryCats, nil
}

func marshalList(list []string) ([]byte, error) {
	if len(list) == 0 {
		return nil, nil
	}
	return json.Marshal(list)
}
