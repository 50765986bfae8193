package domain

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// Spreadsheet column names read by the core.
const (
	FieldLabel       = "Label"
	FieldBrand       = "Brand"
	FieldName        = "Name"
	FieldPrice       = "Price"
	FieldRank        = "Rank"
	FieldIngredients = "Ingredients"
	FieldCombination = "Combination"
	FieldDry         = "Dry"
	FieldNormal      = "Normal"
	FieldOily        = "Oily"
	FieldSensitive   = "Sensitive"
)

// Metadata keys stored alongside every indexed document.
const (
	MetaProductID = "product_id"
	MetaName      = "name"
	MetaBrand     = "brand"
	MetaLabel     = "label"
	MetaPrice     = "price"
	MetaRank      = "rank"
)

// SkinTypes lists the suitability columns in display order.
var SkinTypes = []string{FieldCombination, FieldDry, FieldNormal, FieldOily, FieldSensitive}

// ProductRecord is one spreadsheet row keyed by column name.
type ProductRecord map[string]string

// Field returns the trimmed value of a column, or "" when the column is absent.
func (r ProductRecord) Field(name string) string {
	return strings.TrimSpace(r[name])
}

// Number parses a numeric column. Empty or unparseable values yield 0.
func (r ProductRecord) Number(name string) float64 {
	v, err := strconv.ParseFloat(r.Field(name), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// Metadata is the per-document attribute map persisted by the store.
type Metadata map[string]any

// Number reads a numeric metadata value. Absent, unparseable or non-finite
// values yield 0.
func (m Metadata) Number(key string) float64 {
	var f float64
	switch v := m[key].(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return 0
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0
		}
		f = parsed
	default:
		return 0
	}
	// NaN and infinities would break rank ordering.
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// String reads a string metadata value.
func (m Metadata) String(key string) string {
	s, _ := m[key].(string)
	return s
}

// IndexedDocument is the unit written to a collection.
type IndexedDocument struct {
	ID        string
	Text      string
	Metadata  Metadata
	Embedding []float32
}

// QueryResult is a single retrieved document. Distance is only meaningful
// for semantic results; lower is more similar.
type QueryResult struct {
	ID       string   `json:"id"`
	Document string   `json:"document"`
	Metadata Metadata `json:"metadata"`
	Distance *float64 `json:"distance,omitempty"`
}

// CollectionInfo describes a stored collection.
type CollectionInfo struct {
	Name          string    `json:"name"`
	SchemaVersion int       `json:"schema_version"`
	Model         string    `json:"model"`
	Dimension     int       `json:"dimension"`
	Distance      string    `json:"distance"`
	Count         int       `json:"count"`
	BuiltAt       time.Time `json:"built_at"`
}
