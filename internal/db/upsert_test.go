package db

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var seenCfg = UpsertConfig{
	Table:           "seen_urls",
	Columns:         []string{"url_key", "url", "run_id"},
	ConflictKeys:    []string{"url_key"},
	IgnoreConflicts: true,
}

func TestBulkUpsert_EmptyRows(t *testing.T) {
	n, err := BulkUpsert(context.Background(), nil, seenCfg, nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestBulkUpsert_NoColumns(t *testing.T) {
	_, err := BulkUpsert(context.Background(), nil, UpsertConfig{
		Table:        "leads",
		ConflictKeys: []string{"id"},
	}, [][]any{{1, "a"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no columns specified")
}

func TestBulkUpsert_NoConflictKeys(t *testing.T) {
	_, err := BulkUpsert(context.Background(), nil, UpsertConfig{
		Table:   "leads",
		Columns: []string{"id", "name"},
	}, [][]any{{1, "a"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no conflict keys specified")
}

func TestBulkUpsert_NilPool(t *testing.T) {
	_, err := BulkUpsert(context.Background(), nil, seenCfg, [][]any{{"in/a", "u", "r"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nil pool")
}

func TestBulkUpsert_IgnoreConflicts(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	rows := [][]any{{"in/a", "https://www.linkedin.com/in/a", "run-1"}, {"in/b", "https://www.linkedin.com/in/b", "run-1"}}

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE "_tmp_upsert_seen_urls"`).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_seen_urls"}, seenCfg.Columns).WillReturnResult(2)
	mock.ExpectExec(`ON CONFLICT \("url_key"\) DO NOTHING`).WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	n, err := BulkUpsert(context.Background(), mock, seenCfg, rows)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkUpsert_CopyFailureRollsBack(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE`).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_seen_urls"}, seenCfg.Columns).WillReturnError(errors.New("copy failed"))
	mock.ExpectRollback()

	_, err = BulkUpsert(context.Background(), mock, seenCfg, [][]any{{"in/a", "u", "r"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "COPY into temp table")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertSQL(t *testing.T) {
	t.Run("update non-key columns", func(t *testing.T) {
		got := upsertSQL(UpsertConfig{
			Table:        "leadscout.leads",
			Columns:      []string{"run_id", "url", "tier"},
			ConflictKeys: []string{"run_id", "url"},
		}, "_tmp")
		assert.Equal(t,
			`INSERT INTO "leadscout"."leads" ("run_id", "url", "tier") SELECT DISTINCT ON ("run_id", "url") "run_id", "url", "tier" FROM "_tmp" ON CONFLICT ("run_id", "url") DO UPDATE SET "tier" = EXCLUDED."tier"`,
			got)
	})

	t.Run("only keys", func(t *testing.T) {
		got := upsertSQL(UpsertConfig{Table: "t", Columns: []string{"id"}, ConflictKeys: []string{"id"}}, "_tmp")
		assert.Contains(t, got, "DO NOTHING")
	})

	t.Run("ignore conflicts", func(t *testing.T) {
		assert.Contains(t, upsertSQL(seenCfg, "_tmp"), `ON CONFLICT ("url_key") DO NOTHING`)
	})
}

func TestSanitizeTable(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"simple", `"simple"`},
		{"leadscout.seen_urls", `"leadscout"."seen_urls"`},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeTable(tt.input))
		})
	}
}

func TestQuoteAndJoin(t *testing.T) {
	assert.Equal(t, `"id", "name", "value"`, quoteAndJoin([]string{"id", "name", "value"}))
}
