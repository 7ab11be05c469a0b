package data

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/exp/slices"

	"github.com/storelens/storelens-ingestion-backend/db"
	"github.com/storelens/storelens-ingestion-backend/internal/utils"
)

// EventType is the closed set of event variants. Adding a variant is a compile-time change:
// extend the constants, EventTypes(), and Validate.
type EventType string

const (
	EventTypePurchase             EventType = "purchase"
	EventTypeAddToCart            EventType = "add_to_cart"
	EventTypePageView             EventType = "page_view"
	EventTypeViewItem             EventType = "view_item"
	EventTypeSearchWithResults    EventType = "search_with_results"
	EventTypeSearchWithoutResults EventType = "search_without_results"
)

// EventTypes returns all event variants.
func EventTypes() []EventType {
	return []EventType{
		EventTypePurchase,
		EventTypeAddToCart,
		EventTypePageView,
		EventTypeViewItem,
		EventTypeSearchWithResults,
		EventTypeSearchWithoutResults,
	}
}

func (t EventType) IsValid() bool {
	return slices.Contains(EventTypes(), t)
}

func ParseEventType(s string) (EventType, error) {
	t := EventType(strings.ToLower(strings.TrimSpace(s)))
	if !t.IsValid() {
		return "", fmt.Errorf("unknown event type %q", s)
	}
	return t, nil
}

// EventRecord is one tenant-scoped behavioral event. Events have no stable primary key across
// reloads; their identity is the date-bounded replacement set they were loaded with.
type EventRecord struct {
	EventType   EventType           `db:"event_type"`
	EventDate   string              `db:"event_date"`
	UserID      *string             `db:"user_id"`
	SessionID   *string             `db:"session_id"`
	ItemID      *string             `db:"item_id"`
	Quantity    *int                `db:"quantity"`
	Revenue     decimal.NullDecimal `db:"revenue"`
	SearchTerm  *string             `db:"search_term"`
	ResultCount *int                `db:"result_count"`
	PageURL     *string             `db:"page_url"`
}

// Validate checks the per-variant schema of the record.
func (r *EventRecord) Validate() error {
	if !r.EventType.IsValid() {
		return fmt.Errorf("unknown event type %q", r.EventType)
	}
	if r.EventDate == "" {
		return fmt.Errorf("event date is required")
	}

	switch r.EventType {
	case EventTypePurchase:
		if r.ItemID == nil {
			return fmt.Errorf("purchase events require an item ID")
		}
		if !r.Revenue.Valid {
			return fmt.Errorf("purchase events require a revenue amount")
		}
	case EventTypeAddToCart, EventTypeViewItem:
		if r.ItemID == nil {
			return fmt.Errorf("%s events require an item ID", r.EventType)
		}
	case EventTypePageView:
		if r.PageURL == nil {
			return fmt.Errorf("page view events require a page URL")
		}
	case EventTypeSearchWithResults:
		if r.SearchTerm == nil {
			return fmt.Errorf("search events require a search term")
		}
		if r.ResultCount == nil || *r.ResultCount <= 0 {
			return fmt.Errorf("search_with_results events require a positive result count")
		}
	case EventTypeSearchWithoutResults:
		if r.SearchTerm == nil {
			return fmt.Errorf("search events require a search term")
		}
	}
	return nil
}

type EventModel struct {
	dbConnectionPool db.DBConnectionPool
}

// eventInsertBatchSize is the fixed number of rows per bulk INSERT statement.
const eventInsertBatchSize = 500

// ReplaceEventRange deletes all rows of the given event type whose date falls inside the
// inclusive [startDate, endDate] range, then bulk-inserts the new records, all in one
// transaction. The delete-then-insert order guarantees the range reflects exactly the latest
// extraction, and running it twice with the same records is idempotent. Returns the inserted
// count.
func (m *EventModel) ReplaceEventRange(ctx context.Context, eventType EventType, startDate, endDate string, records []EventRecord) (int, error) {
	if !eventType.IsValid() {
		return 0, fmt.Errorf("unknown event type %q", eventType)
	}
	if err := utils.ValidateDateRange(startDate, endDate); err != nil {
		return 0, fmt.Errorf("validating event date range: %w", err)
	}

	rows, err := normalizeEventRecords(eventType, records)
	if err != nil {
		return 0, err
	}

	return db.RunInTransactionWithResult(ctx, m.dbConnectionPool, nil, func(dbTx db.DBTransaction) (int, error) {
		const deleteQuery = `
			DELETE FROM events
			WHERE event_type = $1 AND event_date BETWEEN $2 AND $3
		`
		if _, err := dbTx.ExecContext(ctx, deleteQuery, eventType, startDate, endDate); err != nil {
			return 0, fmt.Errorf("deleting %s events in [%s, %s]: %w", eventType, startDate, endDate, err)
		}

		inserted := 0
		for start := 0; start < len(rows); start += eventInsertBatchSize {
			end := start + eventInsertBatchSize
			if end > len(rows) {
				end = len(rows)
			}
			if err := insertEventBatch(ctx, dbTx, rows[start:end]); err != nil {
				return 0, fmt.Errorf("inserting %s events batch starting at %d: %w", eventType, start, err)
			}
			inserted += end - start
		}
		return inserted, nil
	})
}

// normalizeEventRecords stamps the event type, normalizes date encodings and validates each
// record before anything touches the database.
func normalizeEventRecords(eventType EventType, records []EventRecord) ([]EventRecord, error) {
	rows := make([]EventRecord, 0, len(records))
	for i, r := range records {
		r.EventType = eventType

		normalizedDate, err := utils.NormalizeDate(r.EventDate)
		if err != nil {
			return nil, fmt.Errorf("normalizing date of record %d: %w", i, err)
		}
		r.EventDate = normalizedDate

		if err := r.Validate(); err != nil {
			return nil, fmt.Errorf("validating record %d: %w", i, err)
		}
		rows = append(rows, r)
	}
	return rows, nil
}

const eventInsertColumns = 10

func insertEventBatch(ctx context.Context, sqlExec db.SQLExecuter, rows []EventRecord) error {
	if len(rows) == 0 {
		return nil
	}

	valueStrings := make([]string, 0, len(rows))
	valueArgs := make([]interface{}, 0, len(rows)*eventInsertColumns)
	for i, r := range rows {
		base := i * eventInsertColumns
		placeholders := make([]string, eventInsertColumns)
		for j := range placeholders {
			placeholders[j] = fmt.Sprintf("$%d", base+j+1)
		}
		valueStrings = append(valueStrings, "("+strings.Join(placeholders, ", ")+")")
		valueArgs = append(valueArgs,
			r.EventType, r.EventDate, r.UserID, r.SessionID, r.ItemID,
			r.Quantity, r.Revenue, r.SearchTerm, r.ResultCount, r.PageURL,
		)
	}

	q := fmt.Sprintf(`
		INSERT INTO events (event_type, event_date, user_id, session_id, item_id, quantity, revenue, search_term, result_count, page_url)
		VALUES %s
	`, strings.Join(valueStrings, ", "))

	if _, err := sqlExec.ExecContext(ctx, q, valueArgs...); err != nil {
		return fmt.Errorf("bulk inserting %d event rows: %w", len(rows), err)
	}
	return nil
}

// CountEventsInRange returns the number of stored rows of one event type inside the inclusive
// date range. Used by diagnostics and tests.
func (m *EventModel) CountEventsInRange(ctx context.Context, eventType EventType, startDate, endDate string) (int, error) {
	const q = `
		SELECT COUNT(*)
		FROM events
		WHERE event_type = $1 AND event_date BETWEEN $2 AND $3
	`
	var count int
	if err := m.dbConnectionPool.GetContext(ctx, &count, q, eventType, startDate, endDate); err != nil {
		return 0, fmt.Errorf("counting %s events in [%s, %s]: %w", eventType, startDate, endDate, err)
	}
	return count, nil
}

// CoerceRevenue explicitly converts a raw numeric string from the warehouse into a decimal.
// Empty strings become NULL rather than zero, so absence stays distinguishable.
func CoerceRevenue(raw string) (decimal.NullDecimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("coercing revenue %q to decimal: %w", raw, err)
	}
	return decimal.NullDecimal{Decimal: d, Valid: true}, nil
}
