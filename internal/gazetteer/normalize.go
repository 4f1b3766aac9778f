package gazetteer

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"gazetteer-api/internal/models"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// foldTransformer strips combining diacritical marks: decompose, drop
// nonspacing marks, recompose.
var foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeName produces the matching-oriented form of a display name:
// lowercased, diacritics stripped, internal whitespace collapsed to
// single spaces.
func NormalizeName(name string) string {
	folded, _, err := transform.String(foldTransformer, name)
	if err != nil {
		// Transform failures on odd input degrade to case folding only.
		folded = name
	}
	return strings.Join(strings.Fields(strings.ToLower(folded)), " ")
}

// Normalize parses one tab-delimited gazetteer dump row into a Place.
// It is pure: malformed or unsupported rows come back as a RejectedRow
// value, never as a panic or an error that would abort the batch.
func Normalize(line, source, version string) (models.Place, *models.RejectedRow) {
	reject := func(format string, args ...any) (models.Place, *models.RejectedRow) {
		return models.Place{}, &models.RejectedRow{Reason: fmt.Sprintf(format, args...), Raw: line}
	}

	fields := strings.Split(line, "\t")
	if len(fields) < ColumnCount {
		return reject("expected %d columns, got %d", ColumnCount, len(fields))
	}

	id, err := strconv.ParseInt(strings.TrimSpace(fields[colGeonameID]), 10, 64)
	if err != nil {
		return reject("invalid geoname id %q", fields[colGeonameID])
	}

	name := strings.TrimSpace(fields[colName])
	normName := NormalizeName(name)
	if normName == "" {
		return reject("empty name")
	}

	typ, rr := variantFor(fields[colFeatureClass], fields[colFeatureCode])
	if rr != nil {
		rr.Raw = line
		return models.Place{}, rr
	}

	location, err := parseLocation(fields[colLatitude], fields[colLongitude])
	if err != nil {
		return reject("%v", err)
	}

	population, err := parsePopulation(fields[colPopulation])
	if err != nil {
		return reject("%v", err)
	}

	var alts, normAlts []string
	for _, alt := range strings.Split(fields[colAlternateNames], ",") {
		alt = strings.TrimSpace(alt)
		if alt == "" {
			continue
		}
		alts = append(alts, alt)
		normAlts = append(normAlts, NormalizeName(alt))
	}

	return models.Place{
		ID:                 id,
		Type:               typ,
		Name:               name,
		NormName:           normName,
		AlternateNames:     alts,
		NormAlternateNames: normAlts,
		Location:           location,
		CountryCode:        strings.TrimSpace(fields[colCountryCode]),
		Population:         population,
		Source:             source,
		SourceVersion:      version,
	}, nil
}

func variantFor(class, code string) (models.PlaceType, *models.RejectedRow) {
	class = strings.TrimSpace(class)
	code = strings.TrimSpace(code)
	switch {
	case class == featureClassPopulated:
		return models.TypeCity, nil
	case class == featureClassAdmin && strings.HasPrefix(code, countryFeaturePrefix):
		return models.TypeCountry, nil
	default:
		return "", &models.RejectedRow{Reason: fmt.Sprintf("unsupported feature %s.%s", class, code)}
	}
}

// parseLocation returns nil when both coordinate fields are empty: some
// administrative records legitimately carry no point. A half-present or
// out-of-range pair is invalid, not clamped.
func parseLocation(latField, lonField string) (*models.Point, error) {
	latField = strings.TrimSpace(latField)
	lonField = strings.TrimSpace(lonField)
	if latField == "" && lonField == "" {
		return nil, nil
	}
	lat, err := strconv.ParseFloat(latField, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid latitude %q", latField)
	}
	lon, err := strconv.ParseFloat(lonField, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid longitude %q", lonField)
	}
	p := models.Point{Lat: lat, Lon: lon}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

func parsePopulation(field string) (int64, error) {
	field = strings.TrimSpace(field)
	if field == "" {
		return 0, nil
	}
	population, err := strconv.ParseInt(field, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid population %q", field)
	}
	if population < 0 {
		return 0, fmt.Errorf("negative population %d", population)
	}
	return population, nil
}
