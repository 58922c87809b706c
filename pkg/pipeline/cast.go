package pipeline

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/datareef/reef-engine/pkg/models"
)

// CastBatch rewrites every record of the full batch so each schema column
// holds a value of its declared type. Columns absent from the schema are
// dropped; schema columns missing from a record come out null. Casting never
// fails: unparseable input becomes null, and casting an already conformant
// value is idempotent.
func CastBatch(records []models.Record, schema models.Schema) []models.Record {
	out := make([]models.Record, len(records))
	for i, rec := range records {
		casted := make(models.Record, len(schema))
		for _, col := range schema {
			casted[col.Name] = CastValue(rec[col.Name], col.Type)
		}
		out[i] = casted
	}
	return out
}

// CastValue converts one value to the declared column type.
// Missing, null, and empty-string inputs yield null for every type; post-cast
// null is the legitimate encoding of "value absent".
func CastValue(v any, t models.ColumnType) any {
	if v == nil {
		return nil
	}
	if s, ok := v.(string); ok && s == "" {
		return nil
	}

	switch t {
	case models.TypeBigint:
		return castBigint(v)
	case models.TypeDouble, models.TypeDecimal:
		return castFloat(v)
	case models.TypeBoolean:
		return castBool(v)
	case models.TypeTimestamp:
		return castTimestamp(v)
	default:
		return stringify(v)
	}
}

func castBigint(v any) any {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int32:
		return int64(n)
	case int64:
		return n
	case float64:
		return int64(n)
	case float32:
		return int64(n)
	case string:
		trimmed := strings.TrimSpace(n)
		if i, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
			return i
		}
		if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
			return int64(f)
		}
		return nil
	default:
		return nil
	}
}

func castFloat(v any) any {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(n), 64); err == nil {
			return f
		}
		return nil
	default:
		return nil
	}
}

func castBool(v any) any {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		lower := strings.ToLower(strings.TrimSpace(b))
		return lower == "true" || lower == "1"
	case float64:
		return b != 0
	case int:
		return b != 0
	case int64:
		return b != 0
	default:
		return false
	}
}

func castTimestamp(v any) any {
	switch ts := v.(type) {
	case time.Time:
		return ts.UTC().Format(isoMillis)
	case string:
		if parsed, ok := parseTimestamp(strings.TrimSpace(ts)); ok {
			return parsed.UTC().Format(isoMillis)
		}
		return nil
	default:
		return nil
	}
}

// stringify renders a value verbatim, avoiding exponent notation for numbers
// that arrived through JSON decoding.
func stringify(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		if s == math.Trunc(s) && math.Abs(s) < 1e15 {
			return strconv.FormatInt(int64(s), 10)
		}
		return strconv.FormatFloat(s, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(s, 10)
	case int:
		return strconv.Itoa(s)
	case bool:
		return strconv.FormatBool(s)
	default:
		return fmt.Sprintf("%v", v)
	}
}
