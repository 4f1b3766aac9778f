package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"gazetteer-api/internal/cache"
	"gazetteer-api/internal/gazetteer"
	"gazetteer-api/internal/models"

	"github.com/golang/geo/s2"
)

// SearchRepository interface for dependency injection
type SearchRepository interface {
	SearchCities(ctx context.Context, query string, limit int, near *models.Point) ([]models.Match, error)
	SearchCountries(ctx context.Context, query string, limit int, near *models.Point) ([]models.Match, error)
}

// SearchService contains the ranking logic for gazetteer lookups.
type SearchService struct {
	repo    SearchRepository
	cache   *cache.SearchCache
	timeout time.Duration
}

// NewSearchService creates a new search service; c may be nil to run
// without a cache, timeout zero to run without a store deadline.
func NewSearchService(repo SearchRepository, c *cache.SearchCache, timeout time.Duration) *SearchService {
	return &SearchService{repo: repo, cache: c, timeout: timeout}
}

// Search resolves a free-text place query into a ranked, bounded result
// list. An empty query (after normalization) is a valid match-nothing
// request and yields an empty list; invalid parameters yield a
// QueryError instead of partial results.
func (s *SearchService) Search(ctx context.Context, query string, typ models.PlaceType, limit int, near *models.Point) ([]models.Place, error) {
	if limit <= 0 {
		return nil, &models.QueryError{Reason: fmt.Sprintf("limit must be positive, got %d", limit)}
	}
	switch typ {
	case models.TypeCity, models.TypeCountry, models.TypeAny:
	default:
		return nil, &models.QueryError{Reason: fmt.Sprintf("unknown place type %q", typ)}
	}
	if near != nil {
		if err := near.Validate(); err != nil {
			return nil, &models.QueryError{Reason: err.Error()}
		}
	}

	normQuery := gazetteer.NormalizeName(query)
	if normQuery == "" {
		return []models.Place{}, nil
	}

	key := cache.Key(normQuery, typ, limit, near)
	if places, ok := s.cache.Get(ctx, key); ok {
		return places, nil
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	var matches []models.Match
	if typ == models.TypeCity || typ == models.TypeAny {
		cities, err := s.repo.SearchCities(ctx, normQuery, limit, near)
		if err != nil {
			return nil, passOrWrap("search cities", err)
		}
		matches = append(matches, cities...)
	}
	if typ == models.TypeCountry || typ == models.TypeAny {
		countries, err := s.repo.SearchCountries(ctx, normQuery, limit, near)
		if err != nil {
			return nil, passOrWrap("search countries", err)
		}
		matches = append(matches, countries...)
	}

	rankMatches(matches, near)
	if len(matches) > limit {
		matches = matches[:limit]
	}

	places := make([]models.Place, len(matches))
	for i, m := range matches {
		places[i] = m.Place
	}
	s.cache.Set(ctx, key, places)
	return places, nil
}

// rankMatches orders the merged result set: match tier first; then, when
// a reference point was supplied, ascending great-circle distance with
// location-less records last; then cities ahead of countries; then
// population descending for cities and name ascending otherwise.
func rankMatches(matches []models.Match, near *models.Point) {
	sort.SliceStable(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if a.Tier != b.Tier {
			return a.Tier < b.Tier
		}
		if near != nil {
			da, aOK := distanceTo(a.Location, near)
			db, bOK := distanceTo(b.Location, near)
			switch {
			case aOK && !bOK:
				return true
			case !aOK && bOK:
				return false
			case aOK && bOK && da != db:
				return da < db
			}
		}
		if a.Type != b.Type {
			return a.Type == models.TypeCity
		}
		if a.Type == models.TypeCity && a.Population != b.Population {
			return a.Population > b.Population
		}
		return a.Name < b.Name
	})
}

// distanceTo returns the angular distance between a record's location and
// the reference point; ok is false when the record has no location.
func distanceTo(loc *models.Point, near *models.Point) (float64, bool) {
	if loc == nil {
		return 0, false
	}
	a := s2.LatLngFromDegrees(loc.Lat, loc.Lon)
	b := s2.LatLngFromDegrees(near.Lat, near.Lon)
	return a.Distance(b).Radians(), true
}

// passOrWrap keeps typed store errors intact and wraps the rest.
func passOrWrap(op string, err error) error {
	var te *models.TimeoutError
	if errors.As(err, &te) {
		return err
	}
	return fmt.Errorf("service: failed to %s: %w", op, err)
}
