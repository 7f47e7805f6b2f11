package db

import (
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBulkUpsertEmptyRows(t *testing.T) {
	n, err := BulkUpsert(nil, nil, UpsertConfig{
		Table:        "public.boundaries",
		Columns:      []string{"city", "name", "geometry"},
		ConflictKeys: []string{"city", "name"},
	}, nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestBulkUpsertNoColumns(t *testing.T) {
	_, err := BulkUpsert(nil, nil, UpsertConfig{
		Table:        "public.boundaries",
		ConflictKeys: []string{"city"},
	}, [][]any{{"x", "y"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no columns specified")
}

func TestBulkUpsertNoConflictKeys(t *testing.T) {
	_, err := BulkUpsert(nil, nil, UpsertConfig{
		Table:   "public.boundaries",
		Columns: []string{"city", "name"},
	}, [][]any{{"x", "y"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no conflict keys specified")
}

func TestUpdateColumnsDefaultsToNonKeys(t *testing.T) {
	cfg := UpsertConfig{
		Columns:      []string{"city", "name", "geometry"},
		ConflictKeys: []string{"city", "name"},
	}
	assert.Equal(t, []string{"geometry"}, cfg.updateColumns())

	cfg.UpdateCols = []string{"name"}
	assert.Equal(t, []string{"name"}, cfg.updateColumns())
}

func TestMergeSQL(t *testing.T) {
	cfg := UpsertConfig{
		Table:        "boundaries",
		Columns:      []string{"city", "name", "geometry"},
		ConflictKeys: []string{"city", "name"},
	}
	got := mergeSQL(cfg, pgx.Identifier{"_staging_boundaries"})
	assert.Equal(t,
		`INSERT INTO "boundaries" ("city", "name", "geometry") `+
			`SELECT "city", "name", "geometry" FROM "_staging_boundaries" `+
			`ON CONFLICT ("city", "name") DO UPDATE SET "geometry" = EXCLUDED."geometry"`,
		got,
	)
}

func TestSanitizeTable(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"simple", `"simple"`},
		{"public.boundaries", `"public"."boundaries"`},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := sanitizeTable(tt.input)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestQuoteAndJoin(t *testing.T) {
	result := quoteAndJoin([]string{"city", "name", "geometry"})
	assert.Equal(t, `"city", "name", "geometry"`, result)
}
