package data

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"golang.org/x/exp/slices"
)

// DataType is one of the three ingestion categories requested per job.
type DataType string

const (
	DataTypeEvents    DataType = "events"
	DataTypeUsers     DataType = "users"
	DataTypeLocations DataType = "locations"
)

// KnownDataTypes returns the closed set of ingestion categories.
func KnownDataTypes() []DataType {
	return []DataType{DataTypeEvents, DataTypeUsers, DataTypeLocations}
}

func (d DataType) IsValid() bool {
	return slices.Contains(KnownDataTypes(), d)
}

// DataTypeList is a JSON-array column of requested data types.
type DataTypeList []DataType

// Validate checks the list is a non-empty subset of the known data types, without duplicates.
func (l DataTypeList) Validate() error {
	if len(l) == 0 {
		return fmt.Errorf("at least one data type is required")
	}

	seen := make(map[DataType]bool, len(l))
	for _, d := range l {
		if !d.IsValid() {
			return fmt.Errorf("unsupported data type %q", d)
		}
		if seen[d] {
			return fmt.Errorf("duplicated data type %q", d)
		}
		seen[d] = true
	}
	return nil
}

// Value implements the driver.Valuer interface.
func (l DataTypeList) Value() (driver.Value, error) {
	b, err := json.Marshal(l)
	if err != nil {
		return nil, fmt.Errorf("marshalling data type list: %w", err)
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface.
func (l *DataTypeList) Scan(src interface{}) error {
	return scanJSON(src, l, "data type list")
}

// CountMap is a JSON-map column of label -> record count, used for both progress and
// records_processed.
type CountMap map[string]int

// Value implements the driver.Valuer interface.
func (c CountMap) Value() (driver.Value, error) {
	if c == nil {
		c = CountMap{}
	}
	b, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshalling count map: %w", err)
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface.
func (c *CountMap) Scan(src interface{}) error {
	return scanJSON(src, c, "count map")
}

var (
	_ driver.Valuer = (DataTypeList)(nil)
	_ sql.Scanner   = (*DataTypeList)(nil)
	_ driver.Valuer = (CountMap)(nil)
	_ sql.Scanner   = (*CountMap)(nil)
)

func scanJSON(src, dest interface{}, what string) error {
	var b []byte
	switch v := src.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	case nil:
		return nil
	default:
		return fmt.Errorf("unexpected %s type %T", what, src)
	}
	if err := json.Unmarshal(b, dest); err != nil {
		return fmt.Errorf("unmarshalling %s: %w", what, err)
	}
	return nil
}
