package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lychee-technology/formview"
	"go.uber.org/zap"
)

// Pool is the subset of *pgxpool.Pool the store uses; pgxmock pools satisfy it too.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// PostgresStore keeps documents as JSONB rows keyed by (type, id).
type PostgresStore struct {
	pool  Pool
	table string
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore creates a store on table. The table name is quoted as an identifier.
func NewPostgresStore(pool Pool, table string) *PostgresStore {
	if table == "" {
		table = "documents"
	}
	return &PostgresStore{pool: pool, table: pgx.Identifier{table}.Sanitize()}
}

// CreateTableSQL returns the DDL of the documents table.
func CreateTableSQL(table string) string {
	if table == "" {
		table = "documents"
	}
	t := pgx.Identifier{table}.Sanitize()
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	type TEXT NOT NULL,
	id TEXT NOT NULL,
	rev TEXT NOT NULL,
	body JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (type, id)
)`, t)
}

// EnsureTable creates the documents table when it does not exist.
func (s *PostgresStore) EnsureTable(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, CreateTableSQL(unquote(s.table))); err != nil {
		return fmt.Errorf("create documents table: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, typeName, id string) (formview.Document, error) {
	var body []byte
	query := fmt.Sprintf("SELECT body FROM %s WHERE type = $1 AND id = $2", s.table)
	if err := s.pool.QueryRow(ctx, query, typeName, id).Scan(&body); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get document %s/%s: %w", typeName, id, err)
	}
	return decodeBody(body)
}

func (s *PostgresStore) Put(ctx context.Context, typeName string, doc formview.Document) (formview.Document, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) // no-op if committed

	var storedRev string
	exists := false
	if id := doc.ID(); id != "" {
		query := fmt.Sprintf("SELECT rev FROM %s WHERE type = $1 AND id = $2 FOR UPDATE", s.table)
		err := tx.QueryRow(ctx, query, typeName, id).Scan(&storedRev)
		switch {
		case err == nil:
			exists = true
		case !errors.Is(err, pgx.ErrNoRows):
			return nil, fmt.Errorf("read revision %s/%s: %w", typeName, id, err)
		}
	}

	out, err := prepare(typeName, doc, storedRev, exists)
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	upsert := fmt.Sprintf(`INSERT INTO %s (type, id, rev, body) VALUES ($1, $2, $3, $4)
ON CONFLICT (type, id) DO UPDATE SET rev = EXCLUDED.rev, body = EXCLUDED.body, updated_at = now()`, s.table)
	if _, err := tx.Exec(ctx, upsert, typeName, out.ID(), out.Rev(), body); err != nil {
		return nil, fmt.Errorf("write document %s/%s: %w", typeName, out.ID(), err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	zap.S().Debugw("document stored", "type", typeName, "id", out.ID(), "rev", out.Rev())
	return out, nil
}

func (s *PostgresStore) Delete(ctx context.Context, typeName, id, rev string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE type = $1 AND id = $2 AND rev = $3", s.table)
	tag, err := s.pool.Exec(ctx, query, typeName, id, rev)
	if err != nil {
		return fmt.Errorf("delete document %s/%s: %w", typeName, id, err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}
	var storedRev string
	lookup := fmt.Sprintf("SELECT rev FROM %s WHERE type = $1 AND id = $2", s.table)
	if err := s.pool.QueryRow(ctx, lookup, typeName, id).Scan(&storedRev); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("read revision %s/%s: %w", typeName, id, err)
	}
	return ErrConflict
}

func (s *PostgresStore) List(ctx context.Context, typeName string, q ListQuery) ([]formview.Document, int, error) {
	where := "type = $1"
	args := []any{typeName}
	if q.Text != "" {
		args = append(args, "%"+q.Text+"%")
		where += fmt.Sprintf(" AND body::text ILIKE $%d", len(args))
	}

	var total int
	countQuery := fmt.Sprintf("SELECT count(*) FROM %s WHERE %s", s.table, where)
	if err := s.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count documents of %s: %w", typeName, err)
	}

	args = append(args, q.StartKey)
	where += fmt.Sprintf(" AND id >= $%d", len(args))
	var limit any
	if q.Limit > 0 {
		limit = q.Limit
	}
	args = append(args, limit)
	listQuery := fmt.Sprintf("SELECT body FROM %s WHERE %s ORDER BY id LIMIT $%d", s.table, where, len(args))

	rows, err := s.pool.Query(ctx, listQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list documents of %s: %w", typeName, err)
	}
	defer rows.Close()

	docs := make([]formview.Document, 0)
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, 0, fmt.Errorf("scan document: %w", err)
		}
		doc, err := decodeBody(body)
		if err != nil {
			return nil, 0, err
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate documents: %w", err)
	}
	return docs, total, nil
}

func decodeBody(body []byte) (formview.Document, error) {
	var doc formview.Document
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return doc, nil
}

func unquote(identifier string) string {
	if len(identifier) >= 2 && identifier[0] == '"' && identifier[len(identifier)-1] == '"' {
		return identifier[1 : len(identifier)-1]
	}
	return identifier
}
