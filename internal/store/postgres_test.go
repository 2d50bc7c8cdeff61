package store

import (
	"context"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/lychee-technology/formview"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPostgresStore(mock, "docs"), mock
}

func TestCreateTableSQL(t *testing.T) {
	ddl := CreateTableSQL("")
	assert.True(t, strings.HasPrefix(ddl, `CREATE TABLE IF NOT EXISTS "documents" (`))
	assert.Contains(t, ddl, "PRIMARY KEY (type, id)")
	assert.Contains(t, CreateTableSQL(`we"ird`), `"we""ird"`)
}

func TestPostgresStoreEnsureTable(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec(`^CREATE TABLE IF NOT EXISTS "docs"`).
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))

	require.NoError(t, s.EnsureTable(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreGet(t *testing.T) {
	ctx := context.Background()
	s, mock := newMockStore(t)

	mock.ExpectQuery(`^SELECT body FROM "docs" WHERE type = \$1 AND id = \$2$`).
		WithArgs("post", "p1").
		WillReturnRows(pgxmock.NewRows([]string{"body"}).AddRow([]byte(`{"_id":"p1","_rev":"1-a","title":"Hello"}`)))
	mock.ExpectQuery(`^SELECT body FROM "docs"`).
		WithArgs("post", "p2").
		WillReturnError(pgx.ErrNoRows)

	doc, err := s.Get(ctx, "post", "p1")
	require.NoError(t, err)
	assert.Equal(t, formview.Document{"_id": "p1", "_rev": "1-a", "title": "Hello"}, doc)

	_, err = s.Get(ctx, "post", "p2")
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStorePutCreate(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`^INSERT INTO "docs" \(type, id, rev, body\)`).
		WithArgs("post", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()
	mock.ExpectRollback()

	doc, err := s.Put(context.Background(), "post", formview.Document{"title": "Hello"})
	require.NoError(t, err)
	assert.NotEmpty(t, doc.ID())
	assert.True(t, strings.HasPrefix(doc.Rev(), "1-"))
	assert.Equal(t, "post", doc.Type())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStorePutUpdate(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`^SELECT rev FROM "docs" WHERE type = \$1 AND id = \$2 FOR UPDATE$`).
		WithArgs("post", "p1").
		WillReturnRows(pgxmock.NewRows([]string{"rev"}).AddRow("1-a"))
	mock.ExpectExec(`^INSERT INTO "docs"`).
		WithArgs("post", "p1", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()
	mock.ExpectRollback()

	doc, err := s.Put(context.Background(), "post", formview.Document{"_id": "p1", "_rev": "1-a", "title": "Hello"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(doc.Rev(), "2-"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStorePutConflict(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`^SELECT rev FROM "docs"`).
		WithArgs("post", "p1").
		WillReturnRows(pgxmock.NewRows([]string{"rev"}).AddRow("2-b"))
	mock.ExpectRollback()

	_, err := s.Put(context.Background(), "post", formview.Document{"_id": "p1", "_rev": "1-a"})
	assert.ErrorIs(t, err, ErrConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreDelete(t *testing.T) {
	ctx := context.Background()
	s, mock := newMockStore(t)

	mock.ExpectExec(`^DELETE FROM "docs" WHERE type = \$1 AND id = \$2 AND rev = \$3$`).
		WithArgs("post", "p1", "1-a").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	require.NoError(t, s.Delete(ctx, "post", "p1", "1-a"))

	mock.ExpectExec(`^DELETE FROM "docs"`).
		WithArgs("post", "p1", "0-old").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectQuery(`^SELECT rev FROM "docs" WHERE type = \$1 AND id = \$2$`).
		WithArgs("post", "p1").
		WillReturnRows(pgxmock.NewRows([]string{"rev"}).AddRow("2-b"))
	assert.ErrorIs(t, s.Delete(ctx, "post", "p1", "0-old"), ErrConflict)

	mock.ExpectExec(`^DELETE FROM "docs"`).
		WithArgs("post", "gone", "1-a").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectQuery(`^SELECT rev FROM "docs"`).
		WithArgs("post", "gone").
		WillReturnError(pgx.ErrNoRows)
	assert.ErrorIs(t, s.Delete(ctx, "post", "gone", "1-a"), ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreList(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`^SELECT count\(\*\) FROM "docs" WHERE type = \$1 AND body::text ILIKE \$2$`).
		WithArgs("post", "%hello%").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery(`^SELECT body FROM "docs" WHERE type = \$1 AND body::text ILIKE \$2 AND id >= \$3 ORDER BY id LIMIT \$4$`).
		WithArgs("post", "%hello%", "b", 2).
		WillReturnRows(pgxmock.NewRows([]string{"body"}).
			AddRow([]byte(`{"_id":"b"}`)).
			AddRow([]byte(`{"_id":"c"}`)))

	docs, total, err := s.List(context.Background(), "post", ListQuery{StartKey: "b", Limit: 2, Text: "hello"})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, docs, 2)
	assert.Equal(t, "c", docs[1].ID())
	require.NoError(t, mock.ExpectationsWereMet())
}
