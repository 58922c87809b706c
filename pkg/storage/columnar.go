package storage

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/datareef/reef-engine/pkg/models"
)

// blobExt names stored parts: column-major JSON, gzip-compressed.
const blobExt = ".col.gz"

// columnarBlob is the serialized batch layout. Values are stored column-major
// in schema order; the schema travels with the blob so readers get the
// decimal(18,2) precision tag without consulting the metadata store.
type columnarBlob struct {
	Schema    models.Schema    `json:"schema"`
	RowCount  int              `json:"row_count"`
	CreatedAt time.Time        `json:"created_at"`
	Columns   map[string][]any `json:"columns"`
}

// encodeColumnar converts a casted batch into the stored blob bytes.
func encodeColumnar(records []models.Record, schema models.Schema) ([]byte, error) {
	blob := columnarBlob{
		Schema:    schema,
		RowCount:  len(records),
		CreatedAt: time.Now().UTC(),
		Columns:   make(map[string][]any, len(schema)),
	}
	for _, col := range schema {
		values := make([]any, len(records))
		for i, rec := range records {
			values[i] = rec[col.Name]
		}
		blob.Columns[col.Name] = values
	}

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if err := json.NewEncoder(gz).Encode(blob); err != nil {
		return nil, fmt.Errorf("encode columnar blob: %w", err)
	}
	if err := gz.Close(); err != nil {
		return nil, fmt.Errorf("compress columnar blob: %w", err)
	}
	return buf.Bytes(), nil
}

// decodeColumnar reads blob bytes back into row-major records, in stored row
// order. Used by tests and by downstream readers.
func decodeColumnar(data []byte) ([]models.Record, models.Schema, error) {
	gz, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("decompress columnar blob: %w", err)
	}
	defer gz.Close()

	raw, err := io.ReadAll(gz)
	if err != nil {
		return nil, nil, fmt.Errorf("read columnar blob: %w", err)
	}

	var blob columnarBlob
	if err := json.Unmarshal(raw, &blob); err != nil {
		return nil, nil, fmt.Errorf("decode columnar blob: %w", err)
	}

	records := make([]models.Record, blob.RowCount)
	for i := range records {
		records[i] = make(models.Record, len(blob.Schema))
	}
	for _, col := range blob.Schema {
		values := blob.Columns[col.Name]
		for i := 0; i < blob.RowCount && i < len(values); i++ {
			records[i][col.Name] = values[i]
		}
	}
	return records, blob.Schema, nil
}

// partName builds a unique, time-ordered object name for one appended batch.
func partName(createdAt time.Time, suffix string) string {
	return fmt.Sprintf("%s-%s%s", createdAt.UTC().Format("20060102T150405.000"), suffix, blobExt)
}
