//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"gazetteer-api/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/jackc/pgx/v5/pgxpool"
)

func setupTestDatabase(t *testing.T) *Repository {
	ctx := context.Background()

	// Start PostgreSQL container with PostGIS
	req := testcontainers.ContainerRequest{
		Image:        "postgis/postgis:16-3.4",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_DB":       "testdb",
			"POSTGRES_USER":     "testuser",
			"POSTGRES_PASSWORD": "testpass",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections"),
	}

	postgresC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		postgresC.Terminate(ctx)
	})

	host, err := postgresC.Host(ctx)
	require.NoError(t, err)

	port, err := postgresC.MappedPort(ctx, "5432")
	require.NoError(t, err)

	connString := "postgres://testuser:testpass@" + host + ":" + port.Port() + "/testdb?sslmode=disable"

	pool, err := pgxpool.New(ctx, connString)
	require.NoError(t, err)

	t.Cleanup(func() {
		pool.Close()
	})

	repo := NewRepository(pool)
	require.NoError(t, repo.EnsureSchema(ctx))

	return repo
}

func testCity(id int64, name, normName string, pop int64, loc *models.Point) models.Place {
	return models.Place{
		ID:            id,
		Type:          models.TypeCity,
		Name:          name,
		NormName:      normName,
		CountryCode:   "GB",
		Population:    pop,
		Location:      loc,
		Source:        "cities1000",
		SourceVersion: "20260801T000000Z",
	}
}

func TestRepository_UpsertIsIdempotent(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	repo := setupTestDatabase(t)
	ctx := context.Background()

	city := testCity(2643743, "London", "london", 8961989, &models.Point{Lat: 51.50853, Lon: -0.12574})
	require.NoError(t, repo.UpsertPlace(ctx, city))

	city.Population = 9000000
	require.NoError(t, repo.UpsertPlace(ctx, city))

	counts, err := repo.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[models.TypeCity])

	matches, err := repo.SearchCities(ctx, "london", 10, nil)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, int64(9000000), matches[0].Population)
	require.NotNil(t, matches[0].Location)
	assert.InDelta(t, 51.50853, matches[0].Location.Lat, 1e-6)
	assert.InDelta(t, -0.12574, matches[0].Location.Lon, 1e-6)
}

func TestRepository_SearchTiers(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	repo := setupTestDatabase(t)
	ctx := context.Background()

	london := testCity(2643743, "London", "london", 8961989, &models.Point{Lat: 51.50853, Lon: -0.12574})
	london.AlternateNames = []string{"Londres", "Londra"}
	london.NormAlternateNames = []string{"londres", "londra"}
	require.NoError(t, repo.UpsertPlace(ctx, london))

	londonderry := testCity(2643736, "Londonderry", "londonderry", 87153, &models.Point{Lat: 54.99721, Lon: -7.30917})
	require.NoError(t, repo.UpsertPlace(ctx, londonderry))

	littleLondon := testCity(3489741, "Little London", "little london", 4100, &models.Point{Lat: 18.25, Lon: -78.22})
	require.NoError(t, repo.UpsertPlace(ctx, littleLondon))

	matches, err := repo.SearchCities(ctx, "london", 10, nil)
	require.NoError(t, err)
	require.Len(t, matches, 3)

	// exact before prefix before token match
	assert.Equal(t, "London", matches[0].Name)
	assert.Equal(t, 0, matches[0].Tier)
	assert.Equal(t, "Londonderry", matches[1].Name)
	assert.Equal(t, 1, matches[1].Tier)
	assert.Equal(t, "Little London", matches[2].Name)
	assert.Equal(t, 2, matches[2].Tier)

	// alternate names match at tier 2
	matches, err = repo.SearchCities(ctx, "londres", 10, nil)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "London", matches[0].Name)
	assert.Equal(t, 2, matches[0].Tier)
	assert.Equal(t, []string{"Londres", "Londra"}, matches[0].AlternateNames)
}

func TestRepository_SearchNearOrdersByDistance(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	repo := setupTestDatabase(t)
	ctx := context.Background()

	parisFR := testCity(2988507, "Paris", "paris", 2138551, &models.Point{Lat: 48.85341, Lon: 2.3488})
	require.NoError(t, repo.UpsertPlace(ctx, parisFR))

	parisTX := testCity(4717560, "Paris", "paris", 24171, &models.Point{Lat: 33.66094, Lon: -95.55551})
	parisTX.CountryCode = "US"
	require.NoError(t, repo.UpsertPlace(ctx, parisTX))

	// without a reference point population wins
	matches, err := repo.SearchCities(ctx, "paris", 10, nil)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "FR", matches[0].CountryCode)

	// near Dallas the Texan Paris comes first
	matches, err = repo.SearchCities(ctx, "paris", 10, &models.Point{Lat: 32.7767, Lon: -96.797})
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "US", matches[0].CountryCode)
	assert.Equal(t, "FR", matches[1].CountryCode)
}

func TestRepository_SearchCountries(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	repo := setupTestDatabase(t)
	ctx := context.Background()

	uk := models.Place{
		ID:                 2635167,
		Type:               models.TypeCountry,
		Name:               "United Kingdom",
		NormName:           "united kingdom",
		AlternateNames:     []string{"Great Britain"},
		NormAlternateNames: []string{"great britain"},
		CountryCode:        "GB",
		Source:             "countryInfo",
		SourceVersion:      "20260801T000000Z",
	}
	require.NoError(t, repo.UpsertPlace(ctx, uk))

	matches, err := repo.SearchCountries(ctx, "united kingdom", 10, nil)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, models.TypeCountry, matches[0].Type)
	assert.Equal(t, 0, matches[0].Tier)
	assert.Nil(t, matches[0].Location)
}

func TestRepository_PruneStale(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	repo := setupTestDatabase(t)
	ctx := context.Background()

	old := testCity(1, "Oldtown", "oldtown", 100, nil)
	old.SourceVersion = "20260701T000000Z"
	require.NoError(t, repo.UpsertPlace(ctx, old))

	current := testCity(2, "Newtown", "newtown", 200, nil)
	current.SourceVersion = "20260801T000000Z"
	require.NoError(t, repo.UpsertPlace(ctx, current))

	otherSource := testCity(3, "Elsewhere", "elsewhere", 300, nil)
	otherSource.Source = "custom"
	otherSource.SourceVersion = "20260101T000000Z"
	require.NoError(t, repo.UpsertPlace(ctx, otherSource))

	pruned, err := repo.PruneStale(ctx, "cities1000", "20260801T000000Z")
	require.NoError(t, err)
	assert.Equal(t, int64(1), pruned)

	counts, err := repo.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts[models.TypeCity])

	// records of other partitions survive
	matches, err := repo.SearchCities(ctx, "elsewhere", 10, nil)
	require.NoError(t, err)
	require.Len(t, matches, 1)
}

func TestRepository_IndexesPresent(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	repo := setupTestDatabase(t)
	ctx := context.Background()

	present, err := repo.IndexesPresent(ctx)
	require.NoError(t, err)
	require.Len(t, present, len(expectedIndexes))
	for _, name := range expectedIndexes {
		assert.True(t, present[name], "index %s should exist", name)
	}
}

func TestRepository_IngestRuns(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	repo := setupTestDatabase(t)
	ctx := context.Background()

	last, err := repo.LastIngestTime(ctx)
	require.NoError(t, err)
	assert.Nil(t, last)

	first := time.Now().UTC().Add(-time.Hour).Truncate(time.Millisecond)
	require.NoError(t, repo.RecordIngestRun(ctx, models.IngestRun{
		Source:     "cities1000",
		Version:    "20260801T000000Z",
		Accepted:   140000,
		Rejected:   12,
		StartedAt:  first.Add(-5 * time.Minute),
		FinishedAt: first,
	}))

	second := time.Now().UTC().Truncate(time.Millisecond)
	require.NoError(t, repo.RecordIngestRun(ctx, models.IngestRun{
		Source:     "countryInfo",
		Version:    "20260801T000000Z",
		Accepted:   252,
		Rejected:   0,
		StartedAt:  second.Add(-time.Minute),
		FinishedAt: second,
	}))

	last, err = repo.LastIngestTime(ctx)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.WithinDuration(t, second, *last, time.Second)
}
