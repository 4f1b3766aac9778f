package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gazetteer-api/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository implements store access for the gazetteer on PostgreSQL with
// PostGIS. Cities and countries live in separate tables, each with a
// unique id, a GIN text index over the normalized names and a GIST index
// over the geography point.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL repository
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// expectedIndexes are the indexes verification checks for. A missing one
// is reported, never recreated by the verifier.
var expectedIndexes = []string{
	"cities_pkey",
	"cities_search_tsv_idx",
	"cities_norm_name_trgm_idx",
	"cities_geom_idx",
	"countries_pkey",
	"countries_search_tsv_idx",
	"countries_norm_name_trgm_idx",
	"countries_geom_idx",
}

const schemaSQL = `
CREATE EXTENSION IF NOT EXISTS postgis;
CREATE EXTENSION IF NOT EXISTS pg_trgm;

CREATE TABLE IF NOT EXISTS cities (
	id BIGINT PRIMARY KEY,
	name TEXT NOT NULL,
	norm_name TEXT NOT NULL,
	alternate_names TEXT[] NOT NULL DEFAULT '{}',
	norm_alternate_names TEXT[] NOT NULL DEFAULT '{}',
	country_code TEXT NOT NULL DEFAULT '',
	population BIGINT NOT NULL DEFAULT 0,
	geom GEOGRAPHY(POINT, 4326),
	source TEXT NOT NULL,
	source_version TEXT NOT NULL,
	search_tsv TSVECTOR NOT NULL
);
CREATE INDEX IF NOT EXISTS cities_search_tsv_idx ON cities USING GIN (search_tsv);
CREATE INDEX IF NOT EXISTS cities_norm_name_trgm_idx ON cities USING GIN (norm_name gin_trgm_ops);
CREATE INDEX IF NOT EXISTS cities_geom_idx ON cities USING GIST (geom);

CREATE TABLE IF NOT EXISTS countries (
	id BIGINT PRIMARY KEY,
	name TEXT NOT NULL,
	norm_name TEXT NOT NULL,
	alternate_names TEXT[] NOT NULL DEFAULT '{}',
	norm_alternate_names TEXT[] NOT NULL DEFAULT '{}',
	country_code TEXT NOT NULL DEFAULT '',
	geom GEOGRAPHY(POINT, 4326),
	source TEXT NOT NULL,
	source_version TEXT NOT NULL,
	search_tsv TSVECTOR NOT NULL
);
CREATE INDEX IF NOT EXISTS countries_search_tsv_idx ON countries USING GIN (search_tsv);
CREATE INDEX IF NOT EXISTS countries_norm_name_trgm_idx ON countries USING GIN (norm_name gin_trgm_ops);
CREATE INDEX IF NOT EXISTS countries_geom_idx ON countries USING GIST (geom);

CREATE TABLE IF NOT EXISTS ingest_runs (
	id BIGSERIAL PRIMARY KEY,
	source TEXT NOT NULL,
	version TEXT NOT NULL,
	accepted INT NOT NULL,
	rejected INT NOT NULL,
	started_at TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ NOT NULL
);
`

// EnsureSchema creates tables and indexes if they do not exist yet.
// Safe to call on every ingestion run.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, schemaSQL); err != nil {
		return wrapStoreErr("ensure schema", err)
	}
	return nil
}

// UpsertPlace inserts or updates a single record by id in the table of
// its variant. The statement is a single round trip, so each row is
// all-or-nothing.
func (r *Repository) UpsertPlace(ctx context.Context, p models.Place) error {
	if p.AlternateNames == nil {
		p.AlternateNames = []string{}
	}
	if p.NormAlternateNames == nil {
		p.NormAlternateNames = []string{}
	}
	var lat, lon *float64
	if p.Location != nil {
		lat, lon = &p.Location.Lat, &p.Location.Lon
	}
	tsvInput := strings.TrimSpace(p.NormName + " " + strings.Join(p.NormAlternateNames, " "))

	switch p.Type {
	case models.TypeCity:
		sql := `
			INSERT INTO cities (id, name, norm_name, alternate_names, norm_alternate_names,
				country_code, population, geom, source, source_version, search_tsv)
			VALUES ($1, $2, $3, $4, $5, $6, $7,
				CASE WHEN $8::float8 IS NULL THEN NULL
					ELSE ST_SetSRID(ST_MakePoint($9::float8, $8::float8), 4326)::geography END,
				$10, $11, to_tsvector('simple', $12))
			ON CONFLICT (id) DO UPDATE SET
				name = EXCLUDED.name,
				norm_name = EXCLUDED.norm_name,
				alternate_names = EXCLUDED.alternate_names,
				norm_alternate_names = EXCLUDED.norm_alternate_names,
				country_code = EXCLUDED.country_code,
				population = EXCLUDED.population,
				geom = EXCLUDED.geom,
				source = EXCLUDED.source,
				source_version = EXCLUDED.source_version,
				search_tsv = EXCLUDED.search_tsv
		`
		_, err := r.db.Exec(ctx, sql,
			p.ID, p.Name, p.NormName, p.AlternateNames, p.NormAlternateNames,
			p.CountryCode, p.Population, lat, lon, p.Source, p.SourceVersion, tsvInput)
		if err != nil {
			return wrapStoreErr("upsert city", err)
		}
		return nil
	case models.TypeCountry:
		sql := `
			INSERT INTO countries (id, name, norm_name, alternate_names, norm_alternate_names,
				country_code, geom, source, source_version, search_tsv)
			VALUES ($1, $2, $3, $4, $5, $6,
				CASE WHEN $7::float8 IS NULL THEN NULL
					ELSE ST_SetSRID(ST_MakePoint($8::float8, $7::float8), 4326)::geography END,
				$9, $10, to_tsvector('simple', $11))
			ON CONFLICT (id) DO UPDATE SET
				name = EXCLUDED.name,
				norm_name = EXCLUDED.norm_name,
				alternate_names = EXCLUDED.alternate_names,
				norm_alternate_names = EXCLUDED.norm_alternate_names,
				country_code = EXCLUDED.country_code,
				geom = EXCLUDED.geom,
				source = EXCLUDED.source,
				source_version = EXCLUDED.source_version,
				search_tsv = EXCLUDED.search_tsv
		`
		_, err := r.db.Exec(ctx, sql,
			p.ID, p.Name, p.NormName, p.AlternateNames, p.NormAlternateNames,
			p.CountryCode, lat, lon, p.Source, p.SourceVersion, tsvInput)
		if err != nil {
			return wrapStoreErr("upsert country", err)
		}
		return nil
	default:
		return fmt.Errorf("repository: unsupported place type %q", p.Type)
	}
}

// PruneStale deletes records of the given source partition whose version
// precedes the given one, in both tables. Records of other partitions are
// untouched, so a partial re-ingest never destroys unrelated data.
func (r *Repository) PruneStale(ctx context.Context, source, version string) (int64, error) {
	var pruned int64
	for _, table := range []string{"cities", "countries"} {
		tag, err := r.db.Exec(ctx,
			fmt.Sprintf(`DELETE FROM %s WHERE source = $1 AND source_version < $2`, table),
			source, version)
		if err != nil {
			return pruned, wrapStoreErr("prune "+table, err)
		}
		pruned += tag.RowsAffected()
	}
	return pruned, nil
}

// SearchCities runs the tiered text search over the cities table:
// tier 0 exact normalized name, tier 1 prefix, tier 2 substring,
// alternate-name or token match. Within a tier rows order by distance to
// near (when given, rows without a location last), then by descending
// population.
func (r *Repository) SearchCities(ctx context.Context, query string, limit int, near *models.Point) ([]models.Match, error) {
	orderBy := "tier, population DESC, name"
	args := []any{query, prefixPattern(query), substringPattern(query), limit}
	if near != nil {
		orderBy = "tier, geom <-> ST_SetSRID(ST_MakePoint($6, $5), 4326)::geography, population DESC, name"
		args = append(args, near.Lat, near.Lon)
	}
	sql := fmt.Sprintf(`
		SELECT id, name, alternate_names, country_code, population,
			ST_Y(geom::geometry) AS latitude,
			ST_X(geom::geometry) AS longitude,
			CASE WHEN norm_name = $1 THEN 0
				WHEN norm_name LIKE $2 THEN 1
				ELSE 2 END AS tier
		FROM cities
		WHERE norm_name = $1
			OR norm_name LIKE $2
			OR norm_name LIKE $3
			OR search_tsv @@ plainto_tsquery('simple', $1)
			OR EXISTS (SELECT 1 FROM unnest(norm_alternate_names) alt WHERE alt LIKE $3)
		ORDER BY %s
		LIMIT $4
	`, orderBy)

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, wrapStoreErr("search cities", err)
	}
	defer rows.Close()

	var matches []models.Match
	for rows.Next() {
		var m models.Match
		var lat, lon *float64
		err := rows.Scan(&m.ID, &m.Name, &m.AlternateNames, &m.CountryCode, &m.Population, &lat, &lon, &m.Tier)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan city: %w", err)
		}
		m.Type = models.TypeCity
		if lat != nil && lon != nil {
			m.Location = &models.Point{Lat: *lat, Lon: *lon}
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapStoreErr("search cities", err)
	}
	return matches, nil
}

// SearchCountries is the countries counterpart of SearchCities; within a
// tier rows order by distance to near (when given), then by name.
func (r *Repository) SearchCountries(ctx context.Context, query string, limit int, near *models.Point) ([]models.Match, error) {
	orderBy := "tier, name"
	args := []any{query, prefixPattern(query), substringPattern(query), limit}
	if near != nil {
		orderBy = "tier, geom <-> ST_SetSRID(ST_MakePoint($6, $5), 4326)::geography, name"
		args = append(args, near.Lat, near.Lon)
	}
	sql := fmt.Sprintf(`
		SELECT id, name, alternate_names, country_code,
			ST_Y(geom::geometry) AS latitude,
			ST_X(geom::geometry) AS longitude,
			CASE WHEN norm_name = $1 THEN 0
				WHEN norm_name LIKE $2 THEN 1
				ELSE 2 END AS tier
		FROM countries
		WHERE norm_name = $1
			OR norm_name LIKE $2
			OR norm_name LIKE $3
			OR search_tsv @@ plainto_tsquery('simple', $1)
			OR EXISTS (SELECT 1 FROM unnest(norm_alternate_names) alt WHERE alt LIKE $3)
		ORDER BY %s
		LIMIT $4
	`, orderBy)

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, wrapStoreErr("search countries", err)
	}
	defer rows.Close()

	var matches []models.Match
	for rows.Next() {
		var m models.Match
		var lat, lon *float64
		err := rows.Scan(&m.ID, &m.Name, &m.AlternateNames, &m.CountryCode, &lat, &lon, &m.Tier)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan country: %w", err)
		}
		m.Type = models.TypeCountry
		if lat != nil && lon != nil {
			m.Location = &models.Point{Lat: *lat, Lon: *lon}
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapStoreErr("search countries", err)
	}
	return matches, nil
}

// Counts returns the live record count per variant.
func (r *Repository) Counts(ctx context.Context) (map[models.PlaceType]int64, error) {
	counts := make(map[models.PlaceType]int64, 2)
	for table, typ := range map[string]models.PlaceType{
		"cities":    models.TypeCity,
		"countries": models.TypeCountry,
	} {
		var n int64
		if err := r.db.QueryRow(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, table)).Scan(&n); err != nil {
			return nil, wrapStoreErr("count "+table, err)
		}
		counts[typ] = n
	}
	return counts, nil
}

// IndexesPresent reports, for every expected index, whether it exists.
func (r *Repository) IndexesPresent(ctx context.Context) (map[string]bool, error) {
	rows, err := r.db.Query(ctx, `
		SELECT indexname FROM pg_indexes
		WHERE schemaname = 'public' AND tablename IN ('cities', 'countries')
	`)
	if err != nil {
		return nil, wrapStoreErr("list indexes", err)
	}
	defer rows.Close()

	existing := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("repository: failed to scan index name: %w", err)
		}
		existing[name] = true
	}
	if err := rows.Err(); err != nil {
		return nil, wrapStoreErr("list indexes", err)
	}

	present := make(map[string]bool, len(expectedIndexes))
	for _, name := range expectedIndexes {
		present[name] = existing[name]
	}
	return present, nil
}

// RecordIngestRun persists the outcome of one ingestion run.
func (r *Repository) RecordIngestRun(ctx context.Context, run models.IngestRun) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO ingest_runs (source, version, accepted, rejected, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, run.Source, run.Version, run.Accepted, run.Rejected, run.StartedAt, run.FinishedAt)
	if err != nil {
		return wrapStoreErr("record ingest run", err)
	}
	return nil
}

// LastIngestTime returns the finish time of the most recent ingestion
// run, or nil when nothing has been ingested yet.
func (r *Repository) LastIngestTime(ctx context.Context) (*time.Time, error) {
	var last *time.Time
	err := r.db.QueryRow(ctx, `SELECT MAX(finished_at) FROM ingest_runs`).Scan(&last)
	if err != nil {
		return nil, wrapStoreErr("last ingest time", err)
	}
	return last, nil
}

// likeEscaper neutralizes LIKE metacharacters in user-supplied queries.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func prefixPattern(query string) string {
	return likeEscaper.Replace(query) + "%"
}

func substringPattern(query string) string {
	return "%" + likeEscaper.Replace(query) + "%"
}

func wrapStoreErr(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &models.TimeoutError{Op: "repository: " + op, Err: err}
	}
	return fmt.Errorf("repository: failed to %s: %w", op, err)
}
