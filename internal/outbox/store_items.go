package outbox

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

const itemColumns = `seq, id, enqueued_at, method, path, body`

// Enqueue durably persists a pending mutation. The item is either fully
// present or fully absent afterwards; partial writes are never observable.
func (s *Store) Enqueue(ctx context.Context, item *Item) error {
	if item == nil {
		return fmt.Errorf("%w: item is nil", ErrInvalidItem)
	}
	if strings.TrimSpace(item.ID) == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidItem)
	}
	if !IsMutating(item.Method) {
		return fmt.Errorf("%w: method %q is not a mutating verb", ErrInvalidItem, item.Method)
	}
	if strings.TrimSpace(item.Path) == "" {
		return fmt.Errorf("%w: missing path", ErrInvalidItem)
	}
	if item.EnqueuedAt.IsZero() {
		item.EnqueuedAt = time.Now().UTC()
	}

	if err := s.checkFreeSpace(); err != nil {
		return err
	}

	var body []byte
	if len(item.Body) > 0 {
		body = []byte(item.Body)
	}

	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO outbox_items (id, enqueued_at, method, path, body) VALUES (?, ?, ?, ?, ?)`,
		item.ID,
		item.EnqueuedAt.UTC().Format(time.RFC3339Nano),
		strings.ToUpper(item.Method),
		item.Path,
		body,
	)
	if err != nil {
		return fmt.Errorf("%w: insert item: %w", ErrStorage, err)
	}

	seq, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("%w: last insert id: %w", ErrStorage, err)
	}
	item.Seq = seq
	return nil
}

// ListAll returns a point-in-time snapshot of every pending item, oldest
// first. Ties on enqueued_at are broken by insertion sequence.
func (s *Store) ListAll(ctx context.Context) ([]*Item, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+itemColumns+` FROM outbox_items ORDER BY enqueued_at, seq`,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: list items: %w", ErrStorage, err)
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate items: %w", ErrStorage, err)
	}
	return items, nil
}

// GetByID fetches a single pending item, or nil when absent.
func (s *Store) GetByID(ctx context.Context, id string) (*Item, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM outbox_items WHERE id = ?`, id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return item, nil
}

// Remove deletes an item by identifier. Removing an unknown id is not an
// error; the boolean reports whether a row was deleted.
func (s *Store) Remove(ctx context.Context, id string) (bool, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM outbox_items WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("%w: delete item: %w", ErrStorage, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%w: rows affected: %w", ErrStorage, err)
	}
	return affected > 0, nil
}

// Depth returns the number of pending items.
func (s *Store) Depth(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM outbox_items`).Scan(&count); err != nil {
		return 0, fmt.Errorf("%w: count items: %w", ErrStorage, err)
	}
	return count, nil
}

// Clear removes all pending items. Operator escape hatch; normal removal is
// replay-confirmed deletion by the sync engine.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM outbox_items`)
	if err != nil {
		return 0, fmt.Errorf("%w: clear outbox: %w", ErrStorage, err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: rows affected: %w", ErrStorage, err)
	}
	return removed, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(scanner rowScanner) (*Item, error) {
	var (
		item      Item
		enqueued  string
		bodyBytes []byte
	)
	if err := scanner.Scan(&item.Seq, &item.ID, &enqueued, &item.Method, &item.Path, &bodyBytes); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: scan item: %w", ErrStorage, err)
	}
	ts, err := time.Parse(time.RFC3339Nano, enqueued)
	if err != nil {
		return nil, fmt.Errorf("%w: parse enqueued_at %q: %w", ErrStorage, enqueued, err)
	}
	item.EnqueuedAt = ts
	if len(bodyBytes) > 0 {
		item.Body = json.RawMessage(bodyBytes)
	}
	return &item, nil
}
