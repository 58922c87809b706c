package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datareef/reef-engine/pkg/models"
)

var testSchema = models.Schema{
	{Name: "id", Type: models.TypeBigint},
	{Name: "name", Type: models.TypeString},
}

func testBatch(n int) []models.Record {
	records := make([]models.Record, n)
	for i := range records {
		records[i] = models.Record{"id": int64(i), "name": "row"}
	}
	return records
}

func partsOf(t *testing.T, w *LocalWriter, ws, ds uuid.UUID) []string {
	t.Helper()
	entries, err := os.ReadDir(w.sourceDir(ws, ds))
	if os.IsNotExist(err) {
		return nil
	}
	require.NoError(t, err)
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name()
	}
	return names
}

func TestLocalWriter_AppendAccumulatesParts(t *testing.T) {
	w, err := NewLocalWriter(t.TempDir())
	require.NoError(t, err)
	ws, ds := uuid.New(), uuid.New()
	ctx := context.Background()

	require.NoError(t, w.Append(ctx, ws, ds, testBatch(2), testSchema))
	require.NoError(t, w.Append(ctx, ws, ds, testBatch(3), testSchema))

	assert.Len(t, partsOf(t, w, ws, ds), 2)
}

func TestLocalWriter_ReplaceLeavesOnlyLatestBatch(t *testing.T) {
	w, err := NewLocalWriter(t.TempDir())
	require.NoError(t, err)
	ws, ds := uuid.New(), uuid.New()
	ctx := context.Background()

	require.NoError(t, w.Append(ctx, ws, ds, testBatch(2), testSchema))
	require.NoError(t, w.Append(ctx, ws, ds, testBatch(2), testSchema))
	require.NoError(t, w.Replace(ctx, ws, ds, testBatch(5), testSchema))

	parts := partsOf(t, w, ws, ds)
	require.Len(t, parts, 1)

	data, err := os.ReadFile(filepath.Join(w.sourceDir(ws, ds), parts[0]))
	require.NoError(t, err)
	records, schema, err := decodeColumnar(data)
	require.NoError(t, err)
	assert.Len(t, records, 5)
	assert.Equal(t, testSchema, schema)
}

func TestLocalWriter_DeleteRemovesEverything(t *testing.T) {
	w, err := NewLocalWriter(t.TempDir())
	require.NoError(t, err)
	ws, ds := uuid.New(), uuid.New()
	ctx := context.Background()

	require.NoError(t, w.Append(ctx, ws, ds, testBatch(1), testSchema))
	require.NoError(t, w.Delete(ctx, ws, ds))
	assert.Empty(t, partsOf(t, w, ws, ds))
}

func TestLocalWriter_TenantIsolation(t *testing.T) {
	w, err := NewLocalWriter(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()
	ws1, ds1 := uuid.New(), uuid.New()
	ws2, ds2 := uuid.New(), uuid.New()

	require.NoError(t, w.Append(ctx, ws1, ds1, testBatch(1), testSchema))
	require.NoError(t, w.Append(ctx, ws2, ds2, testBatch(1), testSchema))
	require.NoError(t, w.Delete(ctx, ws1, ds1))

	assert.Empty(t, partsOf(t, w, ws1, ds1))
	assert.Len(t, partsOf(t, w, ws2, ds2), 1)
}

func TestColumnarRoundTrip(t *testing.T) {
	records := []models.Record{
		{"id": int64(1), "name": "ada"},
		{"id": int64(2), "name": nil},
	}

	data, err := encodeColumnar(records, testSchema)
	require.NoError(t, err)

	decoded, schema, err := decodeColumnar(data)
	require.NoError(t, err)
	assert.Equal(t, testSchema, schema)
	require.Len(t, decoded, 2)
	// JSON numbers come back as float64; values and nulls survive.
	assert.Equal(t, float64(1), decoded[0]["id"])
	assert.Equal(t, "ada", decoded[0]["name"])
	assert.Nil(t, decoded[1]["name"])
}
