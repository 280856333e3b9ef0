package docstore

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"coachdesk_backend/platform/apperr"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists documents in a single `documents` table with a JSONB
// payload column. Filters and ordering address top-level JSON fields.
type PostgresStore struct {
	pool *pgxpool.Pool
	sb   sq.StatementBuilderType
}

// NewPostgresStore creates a store backed by the given connection pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{
		pool: pool,
		sb:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

var fieldNamePattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]*$`)

func (s *PostgresStore) Get(ctx context.Context, collection string, tenantID, id uuid.UUID) (Document, error) {
	doc := Document{Collection: collection, TenantID: tenantID, ID: id}
	err := s.pool.QueryRow(ctx, `
		SELECT data, created_at, updated_at
		FROM documents
		WHERE tenant_id = $1 AND collection = $2 AND id = $3
	`, tenantID, collection, id).Scan(&doc.Data, &doc.CreatedAt, &doc.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, unavailable("get", err)
	}
	return doc, nil
}

func (s *PostgresStore) Query(ctx context.Context, collection string, tenantID uuid.UUID, q Query) ([]Document, error) {
	qb := s.sb.
		Select("id", "data", "created_at", "updated_at").
		From("documents").
		Where(sq.Eq{"tenant_id": tenantID, "collection": collection})

	for _, f := range q.Filters {
		expr, err := filterExpr(f)
		if err != nil {
			return nil, err
		}
		qb = qb.Where(expr)
	}

	for _, o := range q.OrderBy {
		if !fieldNamePattern.MatchString(o.Field) {
			return nil, fmt.Errorf("docstore: invalid ordering field %q", o.Field)
		}
		dir := "ASC"
		if o.Desc {
			dir = "DESC"
		}
		qb = qb.OrderBy(fmt.Sprintf("data->>'%s' %s", o.Field, dir))
	}

	if q.Limit > 0 {
		qb = qb.Limit(uint64(q.Limit))
	}

	sqlStr, args, err := qb.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, unavailable("query", err)
	}
	defer rows.Close()

	docs := make([]Document, 0)
	for rows.Next() {
		doc := Document{Collection: collection, TenantID: tenantID}
		if err := rows.Scan(&doc.ID, &doc.Data, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
			return nil, unavailable("query", err)
		}
		docs = append(docs, doc)
	}
	if rows.Err() != nil {
		return nil, unavailable("query", rows.Err())
	}

	return docs, nil
}

// BatchWrite applies all operations inside one transaction.
func (s *PostgresStore) BatchWrite(ctx context.Context, ops []WriteOp) error {
	if len(ops) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return unavailable("batch_write", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, op := range ops {
		switch op.Kind {
		case WritePut:
			_, err = tx.Exec(ctx, `
				INSERT INTO documents (tenant_id, collection, id, data)
				VALUES ($1, $2, $3, $4)
				ON CONFLICT (tenant_id, collection, id)
				DO UPDATE SET data = EXCLUDED.data, updated_at = now()
			`, op.TenantID, op.Collection, op.ID, op.Data)
		case WriteDelete:
			_, err = tx.Exec(ctx, `
				DELETE FROM documents
				WHERE tenant_id = $1 AND collection = $2 AND id = $3
			`, op.TenantID, op.Collection, op.ID)
		default:
			err = fmt.Errorf("docstore: unknown write kind %d", op.Kind)
		}
		if err != nil {
			return unavailable("batch_write", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return unavailable("batch_write", err)
	}
	return nil
}

// Tenants lists the distinct tenants with documents in the collection.
func (s *PostgresStore) Tenants(ctx context.Context, collection string) ([]uuid.UUID, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT DISTINCT tenant_id FROM documents WHERE collection = $1
	`, collection)
	if err != nil {
		return nil, unavailable("tenants", err)
	}
	defer rows.Close()

	var tenants []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, unavailable("tenants", err)
		}
		tenants = append(tenants, id)
	}
	if rows.Err() != nil {
		return nil, unavailable("tenants", rows.Err())
	}
	return tenants, nil
}

// filterExpr renders a Filter to a SQL expression over the JSONB payload.
// Values are cast so comparisons use the value's natural type rather than
// the text representation.
func filterExpr(f Filter) (sq.Sqlizer, error) {
	op, ok := sqlOps[f.Op]
	if !ok {
		return nil, fmt.Errorf("docstore: unknown filter op %q", f.Op)
	}
	if !fieldNamePattern.MatchString(f.Field) {
		return nil, fmt.Errorf("docstore: invalid filter field %q", f.Field)
	}

	switch v := f.Value.(type) {
	case string:
		return sq.Expr(fmt.Sprintf("data->>'%s' %s ?", f.Field, op), v), nil
	case bool:
		return sq.Expr(fmt.Sprintf("(data->>'%s')::boolean %s ?", f.Field, op), v), nil
	case int, int32, int64, float32, float64:
		return sq.Expr(fmt.Sprintf("(data->>'%s')::numeric %s ?", f.Field, op), v), nil
	case time.Time:
		return sq.Expr(fmt.Sprintf("(data->>'%s')::timestamptz %s ?", f.Field, op), v), nil
	case uuid.UUID:
		return sq.Expr(fmt.Sprintf("data->>'%s' %s ?", f.Field, op), v.String()), nil
	default:
		return nil, fmt.Errorf("docstore: unsupported filter value type %T", f.Value)
	}
}

var sqlOps = map[Op]string{
	OpEq:  "=",
	OpNeq: "<>",
	OpLt:  "<",
	OpLte: "<=",
	OpGt:  ">",
	OpGte: ">=",
}

func unavailable(op string, err error) error {
	return apperr.Wrap(apperr.KindUnavailable, "document store unavailable", err).WithOp("docstore." + op)
}

var _ Store = (*PostgresStore)(nil)
