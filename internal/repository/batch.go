package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

// DefaultMaxParams is the bind parameter ceiling of older SQLite builds.
const DefaultMaxParams = 999

// BatchSize returns how many rows with fields columns fit in one statement
// bound by maxParams parameters. It is never below one.
func BatchSize(fields, maxParams int) int {
	if fields <= 0 {
		return 1
	}
	if size := maxParams / fields; size > 1 {
		return size
	}
	return 1
}

// Chunk splits rows in order into slices of at most size elements.
func Chunk[T any](rows []T, size int) [][]T {
	if size < 1 {
		size = 1
	}
	chunks := make([][]T, 0, (len(rows)+size-1)/size)
	for start := 0; start < len(rows); start += size {
		end := start + size
		if end > len(rows) {
			end = len(rows)
		}
		chunks = append(chunks, rows[start:end])
	}
	return chunks
}

// InsertStatement describes a named multi-row insert.
type InsertStatement struct {
	Table   string
	Columns []string
	// Suffix is appended after the VALUES list, e.g. an ON CONFLICT clause.
	Suffix string
}

// SQL renders the single-row form; sqlx repeats the VALUES tuple per row.
func (s InsertStatement) SQL() string {
	binds := make([]string, len(s.Columns))
	for i, col := range s.Columns {
		binds[i] = ":" + col
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", s.Table, strings.Join(s.Columns, ", "), strings.Join(binds, ", "))
	if s.Suffix != "" {
		query += " " + s.Suffix
	}
	return query
}

// BulkInsert writes rows with one statement per chunk and returns the number
// of rows the database reports as inserted.
func BulkInsert[T any](ctx context.Context, exec sqlx.ExtContext, stmt InsertStatement, rows []T, maxParams int) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if maxParams <= 0 {
		maxParams = DefaultMaxParams
	}

	query := stmt.SQL()
	var total int64
	for _, chunk := range Chunk(rows, BatchSize(len(stmt.Columns), maxParams)) {
		res, err := sqlx.NamedExecContext(ctx, exec, query, chunk)
		if err != nil {
			return total, fmt.Errorf("bulk insert %s: %w", stmt.Table, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			total += n
		}
	}
	return total, nil
}

func deleteAll(ctx context.Context, exec sqlx.ExtContext, table string) (int64, error) {
	res, err := exec.ExecContext(ctx, "DELETE FROM "+table)
	if err != nil {
		return 0, fmt.Errorf("delete %s: %w", table, err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
