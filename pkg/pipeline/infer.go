package pipeline

import (
	"math"
	"strconv"
	"strings"

	"github.com/datareef/reef-engine/pkg/models"
)

// DefaultSampleSize bounds how many records schema inference examines.
const DefaultSampleSize = 100

// moneyKeywords mark columns whose decimal-looking values get the fixed
// precision storage type instead of double.
var moneyKeywords = []string{"balance", "price", "amount", "cost", "total"}

// InferSchema deduces a column type for every column from a bounded sample of
// the batch. The first value seen fixes the running type; any later value
// deducing a different type widens the column to string. Widening never
// narrows and never attempts numeric promotion across mismatched types.
//
// columns fixes the output order (first-seen across the batch's row-sets).
// A column never seen in the sample falls back to string, the universal type.
func InferSchema(records []models.Record, columns []string, sampleSize int) models.Schema {
	if sampleSize <= 0 {
		sampleSize = DefaultSampleSize
	}
	sample := records
	if len(sample) > sampleSize {
		sample = sample[:sampleSize]
	}

	types := make(map[string]models.ColumnType, len(columns))
	for _, rec := range sample {
		for _, col := range columns {
			v, ok := rec[col]
			if !ok {
				continue
			}
			deduced := deduceType(col, v)
			if running, has := types[col]; !has {
				types[col] = deduced
			} else if running != deduced {
				types[col] = models.TypeString
			}
		}
	}

	schema := make(models.Schema, 0, len(columns))
	for _, col := range columns {
		t, ok := types[col]
		if !ok {
			t = models.TypeString
		}
		schema = append(schema, models.Column{Name: col, Type: t})
	}
	return schema
}

// deduceType classifies a single value, in rule order: native boolean, native
// number, numeric-looking string, date-looking string, string.
func deduceType(column string, v any) models.ColumnType {
	switch n := v.(type) {
	case bool:
		return models.TypeBoolean
	case int, int32, int64:
		return models.TypeBigint
	case float64:
		if n == math.Trunc(n) {
			return models.TypeBigint
		}
		return models.TypeDouble
	case float32:
		if float64(n) == math.Trunc(float64(n)) {
			return models.TypeBigint
		}
		return models.TypeDouble
	case string:
		return deduceStringType(column, n)
	default:
		return models.TypeString
	}
}

func deduceStringType(column, s string) models.ColumnType {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return models.TypeString
	}

	if _, err := strconv.ParseFloat(trimmed, 64); err == nil {
		if strings.Contains(trimmed, ".") {
			if isMoneyColumn(column) {
				return models.TypeDecimal
			}
			return models.TypeDouble
		}
		return models.TypeBigint
	}

	if _, ok := parseTimestamp(trimmed); ok {
		return models.TypeTimestamp
	}

	return models.TypeString
}

func isMoneyColumn(name string) bool {
	lower := strings.ToLower(name)
	for _, kw := range moneyKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
