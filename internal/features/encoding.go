package features

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/couchcryptid/climate-intervention-planner/internal/domain"
)

//go:embed enumeration.yaml
var enumerationYAML []byte

// Categorical fields in the encoding table.
const (
	FieldInterventionType = "intervention_type"
	FieldVegetationType   = "vegetation_type"
	FieldClimateZone      = "climate_zone"
)

var categoricalFields = []string{FieldInterventionType, FieldVegetationType, FieldClimateZone}

// EncodingTable maps categorical strings to small integer codes. It is built
// once from a fixed enumeration and never grows.
type EncodingTable struct {
	version int
	values  map[string][]string
	codes   map[string]map[string]int
}

type enumerationDoc struct {
	Version int                 `yaml:"version"`
	Fields  map[string][]string `yaml:"fields"`
}

// DefaultTable returns the table built from the embedded enumeration. It panics
// if the embedded file is malformed.
func DefaultTable() *EncodingTable {
	t, err := ParseTable(enumerationYAML)
	if err != nil {
		panic(fmt.Sprintf("load enumeration.yaml: %v", err))
	}
	return t
}

// LoadTable reads an enumeration override from disk. An empty path returns the
// embedded table.
func LoadTable(path string) (*EncodingTable, error) {
	if path == "" {
		return DefaultTable(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read encoding table: %w", err)
	}
	return ParseTable(data)
}

// ParseTable builds a table from an enumeration document. Every categorical
// field must be present, non-empty and free of duplicates.
func ParseTable(data []byte) (*EncodingTable, error) {
	var doc enumerationDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse encoding table: %w", err)
	}
	if doc.Version <= 0 {
		return nil, fmt.Errorf("encoding table: version must be positive, got %d", doc.Version)
	}

	t := &EncodingTable{
		version: doc.Version,
		values:  make(map[string][]string, len(categoricalFields)),
		codes:   make(map[string]map[string]int, len(categoricalFields)),
	}
	for _, field := range categoricalFields {
		values := doc.Fields[field]
		if len(values) == 0 {
			return nil, fmt.Errorf("encoding table: field %s has no values", field)
		}
		codes := make(map[string]int, len(values))
		for i, v := range values {
			if _, dup := codes[v]; dup {
				return nil, fmt.Errorf("encoding table: field %s lists %q twice", field, v)
			}
			codes[v] = i
		}
		t.values[field] = append([]string(nil), values...)
		t.codes[field] = codes
	}
	return t, nil
}

// Version identifies the enumeration the table was built from.
func (t *EncodingTable) Version() int { return t.version }

// Code returns the integer code of value within field. Values outside the
// enumeration fail with a *domain.UnknownCategoryError.
func (t *EncodingTable) Code(field, value string) (int, error) {
	codes, ok := t.codes[field]
	if !ok {
		return 0, fmt.Errorf("encoding table: no categorical field %q", field)
	}
	code, ok := codes[value]
	if !ok {
		return 0, &domain.UnknownCategoryError{Field: field, Value: value}
	}
	return code, nil
}

// Values lists the enumeration of a field in code order.
func (t *EncodingTable) Values(field string) []string {
	return append([]string(nil), t.values[field]...)
}
