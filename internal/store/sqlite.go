package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/barrioguide/venue-cli/internal/geo"
	"github.com/barrioguide/venue-cli/internal/venue"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	if dsn == "" {
		dsn = "venues.db"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS venues (
	id                   INTEGER PRIMARY KEY AUTOINCREMENT,
	primary_id           TEXT NOT NULL UNIQUE,
	alt_ids              TEXT,
	secondary_id         TEXT,
	canonical_key        TEXT NOT NULL,
	name                 TEXT NOT NULL,
	city                 TEXT NOT NULL,
	neighborhood         TEXT NOT NULL DEFAULT '',
	latitude             REAL NOT NULL DEFAULT 0,
	longitude            REAL NOT NULL DEFAULT 0,
	rating               REAL NOT NULL DEFAULT 0,
	rating_count         INTEGER,
	has_secondary_data   INTEGER NOT NULL DEFAULT 0,
	quality_score        INTEGER,
	tier                 TEXT NOT NULL DEFAULT 'none',
	featured             INTEGER NOT NULL DEFAULT 0,
	address              TEXT,
	hours                TEXT,
	phone                TEXT,
	website              TEXT,
	price_tier           INTEGER,
	description          TEXT,
	photo_refs           TEXT,
	primary_categories   TEXT,
	secondary_categories TEXT,
	created_at           DATETIME NOT NULL,
	updated_at           DATETIME NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_venues_canonical_city ON venues(canonical_key, city);
CREATE INDEX IF NOT EXISTS idx_venues_city ON venues(city);

CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	city        TEXT NOT NULL,
	mode        TEXT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'running',
	summary     TEXT,
	started_at  DATETIME NOT NULL,
	finished_at DATETIME
);

CREATE TABLE IF NOT EXISTS boundaries (
	city     TEXT NOT NULL,
	name     TEXT NOT NULL,
	geometry TEXT NOT NULL,
	PRIMARY KEY (city, name)
);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) FindByProviderID(ctx context.Context, providerID string) (*venue.Venue, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+venueColumns+` FROM venues WHERE primary_id = ?`,
		providerID,
	)
	v, err := scanVenueSQL(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "sqlite: find venue by provider id %s", providerID)
	}
	return v, nil
}

func (s *SQLiteStore) FindByCanonicalKey(ctx context.Context, key, city string) (*venue.Venue, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+venueColumns+` FROM venues WHERE canonical_key = ? AND city = ?`,
		key, city,
	)
	v, err := scanVenueSQL(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "sqlite: find venue by canonical key")
	}
	return v, nil
}

func (s *SQLiteStore) Upsert(ctx context.Context, v *venue.Venue) error {
	now := time.Now().UTC()
	altIDs, photos, primaryCats, secondaryCats, err := marshalListsText(v)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal venue lists")
	}

	if v.ID == 0 {
		v.CreatedAt = now
		v.UpdatedAt = now
		res, err := s.db.ExecContext(ctx,
			`INSERT INTO venues (primary_id, alt_ids, secondary_id, canonical_key, name, city, neighborhood,
				latitude, longitude, rating, rating_count, has_secondary_data, quality_score, tier, featured,
				address, hours, phone, website, price_tier, description,
				photo_refs, primary_categories, secondary_categories, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			v.PrimaryID, altIDs, v.SecondaryID, v.CanonicalKey, v.Name, v.City, v.Neighborhood,
			v.Latitude, v.Longitude, v.Rating, v.RatingCount, v.HasSecondaryData, v.QualityScore, string(v.Tier), v.Featured,
			v.Address, v.Hours, v.Phone, v.Website, v.PriceTier, v.Description,
			photos, primaryCats, secondaryCats, v.CreatedAt, v.UpdatedAt,
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: insert venue %s", v.PrimaryID)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return eris.Wrap(err, "sqlite: last insert id")
		}
		v.ID = id
		return nil
	}

	v.UpdatedAt = now
	res, err := s.db.ExecContext(ctx,
		`UPDATE venues SET alt_ids = ?, secondary_id = ?, canonical_key = ?, name = ?, city = ?, neighborhood = ?,
			latitude = ?, longitude = ?, rating = ?, rating_count = ?, has_secondary_data = ?,
			quality_score = ?, tier = ?, featured = ?,
			address = ?, hours = ?, phone = ?, website = ?, price_tier = ?, description = ?,
			photo_refs = ?, primary_categories = ?, secondary_categories = ?, updated_at = ?
		 WHERE id = ?`,
		altIDs, v.SecondaryID, v.CanonicalKey, v.Name, v.City, v.Neighborhood,
		v.Latitude, v.Longitude, v.Rating, v.RatingCount, v.HasSecondaryData,
		v.QualityScore, string(v.Tier), v.Featured,
		v.Address, v.Hours, v.Phone, v.Website, v.PriceTier, v.Description,
		photos, primaryCats, secondaryCats, v.UpdatedAt,
		v.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update venue %d", v.ID)
	}
	return checkRowsAffected(res, "venue")
}

func (s *SQLiteStore) ListByCity(ctx context.Context, city string) ([]venue.Venue, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+venueColumns+` FROM venues WHERE city = ? ORDER BY id`,
		city,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list venues for %s", city)
	}
	defer rows.Close() //nolint:errcheck

	var venues []venue.Venue
	for rows.Next() {
		v, err := scanVenueSQL(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan venue")
		}
		venues = append(venues, *v)
	}
	return venues, eris.Wrap(rows.Err(), "sqlite: list venues iterate")
}

func (s *SQLiteStore) UpdateScore(ctx context.Context, id int64, score int, tier venue.Tier) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE venues SET quality_score = ?, tier = ?, updated_at = ? WHERE id = ?`,
		score, string(tier), time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update score for venue %d", id)
	}
	return checkRowsAffected(res, "venue")
}

func (s *SQLiteStore) CreateRun(ctx context.Context, run *RunRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, city, mode, status, started_at) VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.City, run.Mode, run.Status, run.StartedAt,
	)
	return eris.Wrapf(err, "sqlite: insert run %s", run.ID)
}

func (s *SQLiteStore) CompleteRun(ctx context.Context, runID, status string, summary *RunSummary) error {
	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal run summary")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, summary = ?, finished_at = ? WHERE id = ?`,
		status, string(summaryJSON), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete run %s", runID)
	}
	return checkRowsAffected(res, "run")
}

func (s *SQLiteStore) SaveBoundaries(ctx context.Context, city string, rows []geo.NamedGeometry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin boundaries tx")
	}
	defer tx.Rollback() //nolint:errcheck

	for _, r := range rows {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO boundaries (city, name, geometry) VALUES (?, ?, ?)
			 ON CONFLICT (city, name) DO UPDATE SET geometry = excluded.geometry`,
			city, r.Name, string(r.Geometry),
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: save boundary %s", r.Name)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit boundaries")
}

func (s *SQLiteStore) LoadBoundaries(ctx context.Context, city string) ([]geo.NamedGeometry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, geometry FROM boundaries WHERE city = ? ORDER BY name`,
		city,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: load boundaries for %s", city)
	}
	defer rows.Close() //nolint:errcheck

	var result []geo.NamedGeometry
	for rows.Next() {
		var r geo.NamedGeometry
		var geometry string
		if err := rows.Scan(&r.Name, &geometry); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan boundary")
		}
		r.Geometry = []byte(geometry)
		result = append(result, r)
	}
	return result, eris.Wrap(rows.Err(), "sqlite: load boundaries iterate")
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanVenueSQL(row rowScanner) (*venue.Venue, error) {
	var v venue.Venue
	var tier string
	var altIDs, photos, primaryCats, secondaryCats *string

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
		data *string
		dst  *[]string
	}{
		{altIDs, &v.AltIDs},
		{photos, &v.PhotoRefs},
		{primaryCats, &v.PrimaryCategories},
		{secondaryCats, &v.SecondaryCategories},
	} {
		if pair.data == nil || *pair.data == "" {
			continue
		}
		if err := json.Unmarshal([]byte(*pair.data), pair.dst); err != nil {
			return nil, eris.Wrap(err, "unmarshal venue list column")
		}
	}
	return &v, nil
}

// marshalListsText encodes the venue's string-slice fields for TEXT columns.
// Empty slices become NULL.
func marshalListsText(v *venue.Venue) (altIDs, photos, primaryCats, secondaryCats *string, err error) {
	enc := func(list []string) (*string, error) {
		if len(list) == 0 {
			return nil, nil
		}
		data, err := json.Marshal(list)
		if err != nil {
			return nil, err
		}
		s := string(data)
		return &s, nil
	}
	if altIDs, err = enc(v.AltIDs); err != nil {
		return nil, nil, nil, nil, err
	}
	if photos, err = enc(v.PhotoRefs); err != nil {
		return nil, nil, nil, nil, err
	}
	if primaryCats, err = enc(v.PrimaryCategories); err != nil {
		return nil, nil, nil, nil, err
	}
	if secondaryCats, err = enc(v.SecondaryCategories); err != nil {
		return nil, nil, nil, nil, err
	}
	return altIDs, photos, primaryCats, secondaryCats, nil
}

func checkRowsAffected(res sql.Result, entity string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found", entity)
	}
	return nil
}
