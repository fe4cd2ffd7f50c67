package domain

import (
	"strconv"
	"strings"
)

// Daily report column positions. The upstream CSV has no stable header
// contract, so extraction is positional.
const (
	colCounty    = 1
	colProvince  = 2
	colCountry   = 3
	colUpdatedAt = 4
	colLatitude  = 5
	colLongitude = 6
	colConfirmed = 7
	colDeaths    = 8
	colRecovered = 9
)

// Count is a cumulative case count coerced from a CSV field. A missing or
// non-numeric source field yields an invalid Count rather than an error,
// and invalid counts poison any sum they participate in, so corrupted
// upstream data stays visible downstream instead of being masked as zero.
type Count struct {
	Value int64
	Valid bool
}

// NewCount returns a valid Count holding v.
func NewCount(v int64) Count {
	return Count{Value: v, Valid: true}
}

// ParseCount coerces a CSV field to a Count. It accepts plain integers and
// decimal strings (truncated); anything else is invalid.
func ParseCount(s string) Count {
	s = strings.TrimSpace(s)
	if s == "" {
		return Count{}
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return Count{Value: v, Valid: true}
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return Count{Value: int64(f), Valid: true}
	}
	return Count{}
}

// Add returns the sum of two Counts. If either side is invalid the result
// is invalid.
func (c Count) Add(other Count) Count {
	if !c.Valid || !other.Valid {
		return Count{}
	}
	return Count{Value: c.Value + other.Value, Valid: true}
}

// MarshalJSON encodes a valid Count as a JSON number and an invalid one as
// null.
func (c Count) MarshalJSON() ([]byte, error) {
	if !c.Valid {
		return []byte("null"), nil
	}
	return strconv.AppendInt(nil, c.Value, 10), nil
}

// UnmarshalJSON decodes a JSON number into a valid Count and null (or any
// non-numeric token) into an invalid one. Like ParseCount it never fails.
func (c *Count) UnmarshalJSON(data []byte) error {
	*c = ParseCount(string(data))
	return nil
}

// Stats holds the cumulative counts of one record.
type Stats struct {
	Confirmed Count `json:"confirmed"`
	Deaths    Count `json:"deaths"`
	Recovered Count `json:"recovered"`
}

// Add sums two Stats field-wise.
func (s Stats) Add(other Stats) Stats {
	return Stats{
		Confirmed: s.Confirmed.Add(other.Confirmed),
		Deaths:    s.Deaths.Add(other.Deaths),
		Recovered: s.Recovered.Add(other.Recovered),
	}
}

// Coordinates are passed through from the source unparsed; the snapshot
// contract does not interpret them.
type Coordinates struct {
	Latitude  string `json:"latitude"`
	Longitude string `json:"longitude"`
}

// Record is one geographic observation for the snapshot date. County is
// non-nil only for US county-level rows and is the sole discriminator
// between county-level and province/country-level records.
type Record struct {
	Country     string      `json:"country"`
	Province    *string     `json:"province"`
	County      *string     `json:"county"`
	UpdatedAt   string      `json:"updatedAt"`
	Stats       Stats       `json:"stats"`
	Coordinates Coordinates `json:"coordinates"`
}

// IsCounty reports whether the record is a US county-level observation.
func (r Record) IsCounty() bool {
	return r.County != nil
}

// ExtractRecord maps one raw CSV row to a Record. Rows shorter than the
// expected width yield nil/invalid values for the missing positions; the
// extractor never fails. Callers wanting stricter behavior validate row
// shape upstream.
func ExtractRecord(row []string) Record {
	return Record{
		Country:   fieldAt(row, colCountry),
		Province:  optionalFieldAt(row, colProvince),
		County:    optionalFieldAt(row, colCounty),
		UpdatedAt: fieldAt(row, colUpdatedAt),
		Stats: Stats{
			Confirmed: ParseCount(fieldAt(row, colConfirmed)),
			Deaths:    ParseCount(fieldAt(row, colDeaths)),
			Recovered: ParseCount(fieldAt(row, colRecovered)),
		},
		Coordinates: Coordinates{
			Latitude:  fieldAt(row, colLatitude),
			Longitude: fieldAt(row, colLongitude),
		},
	}
}

func fieldAt(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return row[i]
}

// optionalFieldAt maps a missing or empty field to nil.
func optionalFieldAt(row []string, i int) *string {
	s := fieldAt(row, i)
	if s == "" {
		return nil
	}
	return &s
}
