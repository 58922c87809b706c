// Package pipeline normalizes raw adapter output into flat records, validates
// batch structure, infers a column schema from a bounded sample, and casts
// every record to that schema.
package pipeline

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"io"
	"sort"
	"time"

	"github.com/datareef/reef-engine/pkg/apperrors"
	"github.com/datareef/reef-engine/pkg/models"
)

// TimestampColumn is stamped onto every translated row with the poll's
// wall-clock time.
const TimestampColumn = "timestamp"

// isoMillis renders ISO 8601 with millisecond precision; in UTC the zone
// collapses to "Z".
const isoMillis = "2006-01-02T15:04:05.000Z07:00"

// RowSet is one table's worth of translated rows sharing a single header.
// Rows stay untyped until ValidateFormat has confirmed they are flat objects.
type RowSet struct {
	Name   string
	Header []string
	Rows   []any
}

// RowCount sums rows across row-sets.
func RowCount(sets []RowSet) int {
	n := 0
	for _, s := range sets {
		n += len(s.Rows)
	}
	return n
}

// Translate collapses adapter output heterogeneity into row-sets of flat
// records and stamps every row with the poll timestamp.
//
// Decision rule: structural values (Tabular, maps, slices) are used as-is,
// with a bare object wrapped into a one-element set; strings are JSON-parsed
// when they look JSON-shaped (leading '{' or '['), otherwise treated as
// delimited text with a header row. Anything else is a hard failure.
func Translate(raw any, polledAt time.Time) ([]RowSet, error) {
	stamp := polledAt.UTC().Format(isoMillis)

	switch v := raw.(type) {
	case models.Tabular:
		return stampSets([]RowSet{fromTabular(v)}, stamp), nil
	case *models.Tabular:
		if v == nil {
			return nil, apperrors.New(apperrors.KindTranslation, "unsupported data type")
		}
		return stampSets([]RowSet{fromTabular(*v)}, stamp), nil
	case []models.Tabular:
		sets := make([]RowSet, 0, len(v))
		for _, tab := range v {
			sets = append(sets, fromTabular(tab))
		}
		return stampSets(sets, stamp), nil
	case map[string]any:
		return stampSets([]RowSet{objectSet([]any{v})}, stamp), nil
	case []map[string]any:
		rows := make([]any, len(v))
		for i, r := range v {
			rows[i] = r
		}
		return stampSets([]RowSet{objectSet(rows)}, stamp), nil
	case []models.Record:
		rows := make([]any, len(v))
		for i, r := range v {
			rows[i] = map[string]any(r)
		}
		return stampSets([]RowSet{objectSet(rows)}, stamp), nil
	case []any:
		return stampSets([]RowSet{objectSet(v)}, stamp), nil
	case string:
		return translateText([]byte(v), stamp)
	case []byte:
		return translateText(v, stamp)
	default:
		return nil, apperrors.Newf(apperrors.KindTranslation, "unsupported data type %T", raw)
	}
}

func translateText(data []byte, stamp string) ([]RowSet, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}

	if trimmed[0] == '{' || trimmed[0] == '[' {
		return translateJSON(trimmed, stamp)
	}
	return translateDelimited(trimmed, stamp)
}

func translateJSON(data []byte, stamp string) ([]RowSet, error) {
	var parsed any
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, apperrors.Wrap(apperrors.KindTranslation, err, "malformed JSON payload")
	}

	var rows []any
	switch v := parsed.(type) {
	case map[string]any:
		rows = []any{v}
	case []any:
		rows = v
	default:
		return nil, apperrors.Newf(apperrors.KindTranslation, "unsupported data type %T", parsed)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	set := RowSet{Header: firstObjectKeys(data), Rows: rows}
	if len(set.Header) == 0 {
		set = objectSet(rows)
	}
	return stampSets([]RowSet{set}, stamp), nil
}

func translateDelimited(data []byte, stamp string) ([]RowSet, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindTranslation, err, "malformed delimited text")
	}

	var rows []any
	for {
		fields, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, apperrors.Wrap(apperrors.KindTranslation, err, "malformed delimited text")
		}
		row := make(map[string]any, len(fields))
		for i, field := range fields {
			if i < len(header) {
				row[header[i]] = field
			}
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	return stampSets([]RowSet{{Header: header, Rows: rows}}, stamp), nil
}

// fromTabular converts adapter-native tabular output into a row-set.
func fromTabular(t models.Tabular) RowSet {
	rows := make([]any, len(t.Rows))
	for i, r := range t.Rows {
		rows[i] = r
	}
	header := t.Header
	if len(header) == 0 && len(t.Rows) > 0 {
		header = sortedKeys(t.Rows[0])
	}
	return RowSet{Name: t.Name, Header: header, Rows: rows}
}

// objectSet builds a row-set from untyped rows. Go maps have no key order, so
// the header falls back to sorted first-row keys for determinism; payloads
// with a meaningful column order arrive as Tabular or JSON text instead.
func objectSet(rows []any) RowSet {
	var header []string
	for _, r := range rows {
		if m, ok := r.(map[string]any); ok {
			header = sortedKeys(m)
			break
		}
	}
	return RowSet{Header: header, Rows: rows}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// stampSets writes the poll timestamp onto every object row and extends each
// header accordingly. Non-object rows are left for the validator to reject.
func stampSets(sets []RowSet, stamp string) []RowSet {
	for i := range sets {
		stamped := false
		for _, r := range sets[i].Rows {
			if m, ok := r.(map[string]any); ok {
				m[TimestampColumn] = stamp
				stamped = true
			}
		}
		if stamped && !contains(sets[i].Header, TimestampColumn) {
			sets[i].Header = append(sets[i].Header, TimestampColumn)
		}
	}
	return sets
}

func contains(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}

// firstObjectKeys extracts the key order of the first JSON object in data.
// encoding/json loses object key order when decoding into maps, so the header
// is recovered with a token walk instead.
func firstObjectKeys(data []byte) []string {
	dec := json.NewDecoder(bytes.NewReader(data))

	// Position at the opening brace of the first object.
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil
		}
		if d, ok := tok.(json.Delim); ok && d == '{' {
			break
		}
		if d, ok := tok.(json.Delim); ok && d == '[' {
			continue
		}
		// Array of scalars or similar: no object to read keys from.
		return nil
	}

	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil
		}
		key, ok := tok.(string)
		if !ok {
			return nil
		}
		keys = append(keys, key)
		if err := skipValue(dec); err != nil {
			return nil
		}
	}
	return keys
}

// skipValue consumes one JSON value, descending through nested containers.
func skipValue(dec *json.Decoder) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	d, ok := tok.(json.Delim)
	if !ok || (d != '{' && d != '[') {
		return nil
	}
	depth := 1
	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		if d, ok := tok.(json.Delim); ok {
			switch d {
			case '{', '[':
				depth++
			case '}', ']':
				depth--
			}
		}
	}
	return nil
}

// Flatten merges validated row-sets into the single batch handed to schema
// inference and casting, along with the union of columns in first-seen order.
func Flatten(sets []RowSet) ([]models.Record, []string) {
	var records []models.Record
	var columns []string
	seen := make(map[string]bool)

	for _, set := range sets {
		for _, col := range set.Header {
			if !seen[col] {
				seen[col] = true
				columns = append(columns, col)
			}
		}
		for _, r := range set.Rows {
			switch m := r.(type) {
			case map[string]any:
				records = append(records, models.Record(m))
			case models.Record:
				records = append(records, m)
			}
		}
	}
	return records, columns
}
