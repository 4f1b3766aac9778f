package gazetteer

// Column layout of the GeoNames main dump (tab-delimited). The order is
// fixed by the upstream export format and must not be inferred per run.
// See https://download.geonames.org/export/dump/ for the authoritative
// description.
const (
	colGeonameID = iota
	colName
	colASCIIName
	colAlternateNames
	colLatitude
	colLongitude
	colFeatureClass
	colFeatureCode
	colCountryCode
	colCC2
	colAdmin1
	colAdmin2
	colAdmin3
	colAdmin4
	colPopulation
	colElevation
	colDEM
	colTimezone
	colModificationDate

	// ColumnCount is the number of tab-separated fields in a dump row.
	ColumnCount = colModificationDate + 1
)

const (
	// featureClassPopulated covers cities, towns and villages.
	featureClassPopulated = "P"
	// featureClassAdmin covers administrative divisions; only the
	// country-level PCL* feature codes among them map to a variant.
	featureClassAdmin = "A"

	// countryFeaturePrefix matches PCL, PCLI, PCLD, PCLF, PCLS and PCLH.
	countryFeaturePrefix = "PCL"
)
