// Package result defines the canonical tabular result every runner returns,
// and the tables that map each engine's native type tags onto the small
// canonical type set.
package result

import (
	"encoding/json"
	"fmt"
)

// CanonicalType is the engine-independent column type. The zero value is
// TypeUnknown, serialized as JSON null.
type CanonicalType string

const (
	TypeUnknown  CanonicalType = ""
	TypeInteger  CanonicalType = "integer"
	TypeFloat    CanonicalType = "float"
	TypeBoolean  CanonicalType = "boolean"
	TypeDatetime CanonicalType = "datetime"
	TypeString   CanonicalType = "string"
)

// MarshalJSON encodes TypeUnknown as null.
func (t CanonicalType) MarshalJSON() ([]byte, error) {
	if t == TypeUnknown {
		return []byte("null"), nil
	}
	return json.Marshal(string(t))
}

// UnmarshalJSON accepts null (TypeUnknown) or one of the canonical names.
func (t *CanonicalType) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*t = TypeUnknown
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	switch v := CanonicalType(s); v {
	case TypeInteger, TypeFloat, TypeBoolean, TypeDatetime, TypeString:
		*t = v
		return nil
	default:
		return fmt.Errorf("unknown canonical type %q", s)
	}
}

// Mapper resolves an engine's native type tag to a canonical type.
// Map is total: unmapped tags resolve to TypeUnknown.
type Mapper map[string]CanonicalType

// Map returns the canonical type for tag, or TypeUnknown.
func (m Mapper) Map(tag string) CanonicalType {
	return m[tag]
}

// HiveTypes is the tag vocabulary HiveServer2 reports in cursor
// descriptions (TTypeId names).
var HiveTypes = Mapper{
	"BIGINT_TYPE":    TypeInteger,
	"TINYINT_TYPE":   TypeInteger,
	"SMALLINT_TYPE":  TypeInteger,
	"INT_TYPE":       TypeInteger,
	"DOUBLE_TYPE":    TypeFloat,
	"DECIMAL_TYPE":   TypeFloat,
	"FLOAT_TYPE":     TypeFloat,
	"REAL_TYPE":      TypeFloat,
	"BOOLEAN_TYPE":   TypeBoolean,
	"TIMESTAMP_TYPE": TypeDatetime,
	"DATE_TYPE":      TypeDatetime,
	"CHAR_TYPE":      TypeString,
	"STRING_TYPE":    TypeString,
	"VARCHAR_TYPE":   TypeString,
}

// ImpalaTypes is Impala's spelling of the same vocabulary. Impala reports
// no DATE tag.
var ImpalaTypes = Mapper{
	"BIGINT":    TypeInteger,
	"TINYINT":   TypeInteger,
	"SMALLINT":  TypeInteger,
	"INT":       TypeInteger,
	"DOUBLE":    TypeFloat,
	"DECIMAL":   TypeFloat,
	"FLOAT":     TypeFloat,
	"REAL":      TypeFloat,
	"BOOLEAN":   TypeBoolean,
	"TIMESTAMP": TypeDatetime,
	"CHAR":      TypeString,
	"STRING":    TypeString,
	"VARCHAR":   TypeString,
}
