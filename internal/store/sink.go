package store

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

// Execer is the subset of pgxpool.Pool the sink needs.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PGSink upserts rows keyed by an "id" column.
type PGSink struct {
	db     Execer
	logger *zap.Logger
}

func NewPGSink(db Execer, logger *zap.Logger) *PGSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PGSink{db: db, logger: logger}
}

// Upsert writes rows in one statement. columns must contain "id"; every row
// must have len(columns) values. table may be schema-qualified ("earthranger.events").
func (s *PGSink) Upsert(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	query, args, err := upsertSQL(table, columns, rows)
	if err != nil {
		return 0, err
	}
	tag, err := s.db.Exec(ctx, query, args...)
	if err != nil {
		s.logger.Error("store.pg.upsert_failed",
			zap.String("table", table),
			zap.Int("rows", len(rows)),
			zap.Error(err))
		return 0, fmt.Errorf("upsert %s: %w", table, err)
	}
	return tag.RowsAffected(), nil
}

func upsertSQL(table string, columns []string, rows [][]any) (string, []any, error) {
	hasID := false
	quoted := make([]string, len(columns))
	for i, c := range columns {
		if c == "id" {
			hasID = true
		}
		quoted[i] = pgx.Identifier{c}.Sanitize()
	}
	if !hasID {
		return "", nil, fmt.Errorf("upsert %s: columns must include id", table)
	}

	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(pgx.Identifier(strings.Split(table, ".")).Sanitize())
	b.WriteString(" (")
	b.WriteString(strings.Join(quoted, ", "))
	b.WriteString(") VALUES ")

	args := make([]any, 0, len(rows)*len(columns))
	for r, row := range rows {
		if len(row) != len(columns) {
			return "", nil, fmt.Errorf("upsert %s: row %d has %d values for %d columns", table, r, len(row), len(columns))
		}
		if r > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('(')
		for i := range row {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(len(args) + i + 1))
		}
		b.WriteByte(')')
		args = append(args, row...)
	}

	b.WriteString(` ON CONFLICT ("id") DO UPDATE SET `)
	first := true
	for i, c := range columns {
		if c == "id" {
			continue
		}
		if !first {
			b.WriteString(", ")
		}
		first = false
		b.WriteString(quoted[i])
		b.WriteString(" = EXCLUDED.")
		b.WriteString(quoted[i])
	}
	if first {
		// id is the only column
		return strings.Replace(b.String(), ` DO UPDATE SET `, ` DO NOTHING`, 1), args, nil
	}
	return b.String(), args, nil
}
