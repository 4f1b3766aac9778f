package models

import (
	"fmt"
	"time"
)

// PlaceType discriminates the two gazetteer record variants.
type PlaceType string

const (
	TypeCity    PlaceType = "city"
	TypeCountry PlaceType = "country"
	// TypeAny selects both variants in a search.
	TypeAny PlaceType = "any"
)

// Point is a WGS84 coordinate pair.
type Point struct {
	Lat float64 `json:"latitude"`
	Lon float64 `json:"longitude"`
}

// Validate reports whether the point lies within valid coordinate ranges.
func (p Point) Validate() error {
	if p.Lat < -90 || p.Lat > 90 {
		return fmt.Errorf("latitude out of range: %f", p.Lat)
	}
	if p.Lon < -180 || p.Lon > 180 {
		return fmt.Errorf("longitude out of range: %f", p.Lon)
	}
	return nil
}

// Place represents a single gazetteer record, either a city or a country.
// NormName and NormAlternateNames carry the matching-oriented forms
// (lowercased, diacritics stripped, whitespace collapsed) and are never
// serialized to clients.
type Place struct {
	ID                 int64      `json:"id"`
	Type               PlaceType  `json:"type"`
	Name               string     `json:"name"`
	NormName           string     `json:"-"`
	AlternateNames     []string   `json:"alternate_names,omitempty"`
	NormAlternateNames []string   `json:"-"`
	Location           *Point     `json:"location,omitempty"`
	CountryCode        string     `json:"country_code"`
	Population         int64      `json:"population,omitempty"`
	Source             string     `json:"-"`
	SourceVersion      string     `json:"-"`
}

// Match is a search hit together with its text-match tier:
// 0 exact normalized name, 1 prefix, 2 alternate-name/substring/token.
type Match struct {
	Place
	Tier int
}

// IngestionReport summarizes one ingestion run.
type IngestionReport struct {
	Accepted        int           `json:"accepted"`
	Rejected        int           `json:"rejected"`
	RejectedSamples []RejectedRow `json:"rejected_samples,omitempty"`
	Pruned          int64         `json:"pruned"`
	DurationMs      int64         `json:"duration_ms"`
}

// IngestRun is the persisted record of an ingestion run, used by
// verification to report the last ingest time.
type IngestRun struct {
	Source     string
	Version    string
	Accepted   int
	Rejected   int
	StartedAt  time.Time
	FinishedAt time.Time
}

// VerificationReport describes the live state of the store.
type VerificationReport struct {
	CountsByType   map[PlaceType]int64 `json:"counts_by_type"`
	IndexesPresent map[string]bool     `json:"indexes_present"`
	LastIngestAt   *time.Time          `json:"last_ingest_at,omitempty"`
}
