// Package domain models the daily COVID-19 case-count snapshot published
// by the Johns Hopkins CSSE project.
//
// # Data Source
//
// Snapshots originate from the CSSE daily report CSVs, one file per
// calendar date named MM-DD-YYYY.csv. A file covers every location the
// project tracks: country/region rows for the whole world, province/state
// rows where a country reports sub-nationally, and county rows for the
// United States. Files for a given date appear with a publishing lag, so
// the ingestor always requests "yesterday" anchored to the publisher's
// timezone (US Eastern).
//
// # CSV Conventions
//
// Columns are positional; the first row is a header and is discarded.
// Fields used by this service (0-indexed):
//
//	1  Admin2          US county name, empty for everything else
//	2  Province_State  sub-national region, empty for country-only rows
//	3  Country_Region  country name
//	4  Last_Update     source timestamp, passed through as-is
//	5  Lat             latitude, kept as a raw string
//	6  Long_           longitude, kept as a raw string
//	7  Confirmed       cumulative confirmed cases
//	8  Deaths          cumulative deaths
//	9  Recovered       cumulative recoveries
//
// A non-empty county field is the sole discriminator between county-level
// and province/country-level records.
//
// # Numeric Coercion
//
// Count fields are coerced best-effort: missing or non-numeric input
// produces an invalid [Count], never an error. Invalid counts poison sums
// ([Count.Add]) and serialize to JSON null, so corrupted upstream data is
// visibly corrupted downstream rather than silently counted as zero.
//
// # Derived Views
//
// [Generalize] rolls US county records up into one total per state while
// carrying every other record through unchanged, and [FilterCounties]
// isolates county records, optionally by name. Both are pure functions
// over an in-memory snapshot and safe for concurrent readers.
package domain
