package dao

import (
	"context"
	"fmt"
	"iter"

	"github.com/jmoiron/sqlx"
)

// DefaultChunkSize is how many rows a ResultSet reads per query.
const DefaultChunkSize = 100

// RowScanner turns the current row of rows into an entity. It must not issue
// queries of its own: the cursor still holds its connection.
type RowScanner[T any] func(rows *sqlx.Rows) (T, error)

// Hydrator completes a chunk of scanned entities, typically by loading their
// settings in one query. It runs after the chunk's cursor is closed.
type Hydrator[T any] func(ctx context.Context, items []T) error

// Range selects one page of a result. Page is 1-based.
type Range struct {
	Page    int
	PerPage int
}

// window returns the LIMIT and OFFSET of the chunk that starts fetched rows
// into the range. ok is false once the range is used up.
func (r *Range) window(fetched, chunk int) (limit, offset int, ok bool) {
	if r == nil || r.PerPage <= 0 {
		return chunk, fetched, true
	}
	remain := r.PerPage - fetched
	if remain <= 0 {
		return 0, 0, false
	}
	page := max(r.Page, 1)
	return min(chunk, remain), (page-1)*r.PerPage + fetched, true
}

// ResultSet is a lazy query result that produces entities on demand.
//
// Rows are read in chunks. Each chunk is its own LIMIT/OFFSET query whose
// cursor is drained and closed before the chunk is hydrated, so a reader
// never holds more than one connection and works the same on a pool or
// inside a transaction. Rows written between chunks may be skipped or seen
// twice.
//
// Next is single-pass and must be consumed by one caller at a time. All
// re-issues the query from the start on every call, so it can be used to
// restart.
type ResultSet[T any] struct {
	h       Handle
	query   string
	args    []any
	rng     *Range
	scan    RowScanner[T]
	hydrate Hydrator[T]
	chunk   int

	buf     []T
	pos     int
	fetched int
	done    bool
}

// NewResultSet wraps query, which must carry its own ORDER BY. The query is
// not executed until the first Next, Count or All call.
func NewResultSet[T any](h Handle, query string, args []any, rng *Range, scan RowScanner[T]) *ResultSet[T] {
	return &ResultSet[T]{h: h, query: query, args: args, rng: rng, scan: scan, chunk: DefaultChunkSize}
}

// WithHydrator sets the step that completes each chunk.
func (r *ResultSet[T]) WithHydrator(fn Hydrator[T]) *ResultSet[T] {
	r.hydrate = fn
	return r
}

// WithChunkSize sets how many rows each query reads.
func (r *ResultSet[T]) WithChunkSize(n int) *ResultSet[T] {
	if n > 0 {
		r.chunk = n
	}
	return r
}

// fetch reads the chunk starting fetched rows into the result. more is false
// when no further chunk can hold rows.
func (r *ResultSet[T]) fetch(ctx context.Context, fetched int) (items []T, more bool, err error) {
	limit, offset, ok := r.rng.window(fetched, r.chunk)
	if !ok {
		return nil, false, nil
	}
	args := append(append([]any(nil), r.args...), limit, offset)
	rows, err := r.h.QueryxContext(ctx, r.h.Rebind(r.query+" LIMIT ? OFFSET ?"), args...)
	if err != nil {
		return nil, false, fmt.Errorf("query result set: %w", err)
	}
	for rows.Next() {
		item, err := r.scan(rows)
		if err != nil {
			_ = rows.Close()
			return nil, false, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, false, err
	}
	if err := rows.Close(); err != nil {
		return nil, false, err
	}
	if r.hydrate != nil && len(items) > 0 {
		if err := r.hydrate(ctx, items); err != nil {
			return nil, false, err
		}
	}
	return items, len(items) == limit, nil
}

// Next returns the next entity. ok is false once the sequence is exhausted.
func (r *ResultSet[T]) Next(ctx context.Context) (item T, ok bool, err error) {
	if r.pos >= len(r.buf) {
		if r.done {
			return item, false, nil
		}
		items, more, err := r.fetch(ctx, r.fetched)
		if err != nil {
			_ = r.Close()
			return item, false, err
		}
		r.buf, r.pos = items, 0
		r.fetched += len(items)
		r.done = !more
		if len(items) == 0 {
			return item, false, nil
		}
	}
	item = r.buf[r.pos]
	r.pos++
	return item, true, nil
}

// Close drops the buffered chunk. Further Next calls report end of sequence.
func (r *ResultSet[T]) Close() error {
	r.done = true
	r.buf, r.pos = nil, 0
	return nil
}

// Count returns the number of rows the query matches, ignoring any range.
func (r *ResultSet[T]) Count(ctx context.Context) (int, error) {
	var n int
	q := r.h.Rebind("SELECT COUNT(*) FROM (" + r.query + ") result_count")
	if err := r.h.GetContext(ctx, &n, q, r.args...); err != nil {
		return 0, fmt.Errorf("count result set: %w", err)
	}
	return n, nil
}

// All yields every entity, reading chunks from the start of the result.
func (r *ResultSet[T]) All(ctx context.Context) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T
		fetched := 0
		for {
			items, more, err := r.fetch(ctx, fetched)
			if err != nil {
				yield(zero, err)
				return
			}
			for _, item := range items {
				if !yield(item, nil) {
					return
				}
			}
			if !more {
				return
			}
			fetched += len(items)
		}
	}
}

// Collect materializes the result through All.
func (r *ResultSet[T]) Collect(ctx context.Context) ([]T, error) {
	var out []T
	for item, err := range r.All(ctx) {
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}
