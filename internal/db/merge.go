package db

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// Merge describes a keyed load into Table: rows whose Keys already exist are
// overwritten column by column, the rest are inserted.
type Merge struct {
	Table   string
	Columns []string
	Keys    []string
}

func (m Merge) staging() pgx.Identifier {
	return pgx.Identifier{strings.ReplaceAll(m.Table, ".", "_") + "_staging"}
}

// statements renders the staging DDL and the merging INSERT.
func (m Merge) statements() (create, merge string, err error) {
	if len(m.Columns) == 0 {
		return "", "", eris.Errorf("db: merge %s: no columns", m.Table)
	}
	if len(m.Keys) == 0 {
		return "", "", eris.Errorf("db: merge %s: no key columns", m.Table)
	}

	var set []string
	for _, k := range m.Keys {
		if !slices.Contains(m.Columns, k) {
			return "", "", eris.Errorf("db: merge %s: key %q is not a loaded column", m.Table, k)
		}
	}
	for _, c := range m.Columns {
		if slices.Contains(m.Keys, c) {
			continue
		}
		col := pgx.Identifier{c}.Sanitize()
		set = append(set, col+" = EXCLUDED."+col)
	}

	target := identifier(m.Table).Sanitize()
	create = fmt.Sprintf("CREATE TEMP TABLE %s (LIKE %s INCLUDING DEFAULTS) ON COMMIT DROP",
		m.staging().Sanitize(), target)

	cols := quoteAndJoin(m.Columns)
	onConflict := "DO NOTHING"
	if len(set) > 0 {
		onConflict = "DO UPDATE SET " + strings.Join(set, ", ")
	}
	merge = fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s ON CONFLICT (%s) %s",
		target, cols, cols, m.staging().Sanitize(), quoteAndJoin(m.Keys), onConflict)
	return create, merge, nil
}

// Load stages rows with COPY and merges them into the target in a single
// transaction. It returns the number of target rows written.
func (m Merge) Load(ctx context.Context, pool Pool, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	create, merge, err := m.statements()
	if err != nil {
		return 0, err
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrapf(err, "db: merge %s: begin", m.Table)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, create); err != nil {
		return 0, eris.Wrapf(err, "db: merge %s: create staging table", m.Table)
	}
	if _, err := tx.CopyFrom(ctx, m.staging(), m.Columns, pgx.CopyFromRows(rows)); err != nil {
		return 0, eris.Wrapf(err, "db: merge %s: stage rows", m.Table)
	}
	tag, err := tx.Exec(ctx, merge)
	if err != nil {
		return 0, eris.Wrapf(err, "db: merge %s: insert", m.Table)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrapf(err, "db: merge %s: commit", m.Table)
	}
	return tag.RowsAffected(), nil
}

func quoteAndJoin(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = pgx.Identifier{c}.Sanitize()
	}
	return strings.Join(quoted, ", ")
}
