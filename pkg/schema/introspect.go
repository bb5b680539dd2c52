package schema

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/shopquery-inc/shopquery-engine/pkg/apperrors"
)

// Introspect loads the descriptor from the database's actual schema.
// It reads all user tables in the public schema with their columns in
// ordinal order. An unreachable database or an empty schema fails fast so
// the process never serves requests it cannot validate.
func Introspect(ctx context.Context, pool *pgxpool.Pool, logger *zap.Logger) (*Descriptor, error) {
	const query = `
		SELECT c.table_name, c.column_name, c.data_type
		FROM information_schema.columns c
		JOIN information_schema.tables t
		  ON t.table_schema = c.table_schema AND t.table_name = c.table_name
		WHERE c.table_schema = 'public'
		  AND t.table_type = 'BASE TABLE'
		ORDER BY c.table_name, c.ordinal_position
	`

	rows, err := pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("introspect schema: %w", err)
	}
	defer rows.Close()

	var (
		tables  []Table
		current *Table
	)
	for rows.Next() {
		var tableName, columnName, dataType string
		if err := rows.Scan(&tableName, &columnName, &dataType); err != nil {
			return nil, fmt.Errorf("scan schema row: %w", err)
		}

		if current == nil || current.Name != tableName {
			tables = append(tables, Table{Name: tableName})
			current = &tables[len(tables)-1]
		}
		current.Columns = append(current.Columns, Column{Name: columnName, DataType: dataType})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate schema rows: %w", err)
	}

	if len(tables) == 0 {
		return nil, apperrors.ErrEmptySchema
	}

	for _, t := range tables {
		logger.Debug("discovered table",
			zap.String("table", t.Name),
			zap.Int("columns", len(t.Columns)))
	}
	logger.Info("schema descriptor loaded", zap.Int("tables", len(tables)))

	return NewDescriptor(tables), nil
}
