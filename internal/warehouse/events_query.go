package warehouse

import (
	"context"
	"database/sql"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/storelens/storelens-ingestion-backend/internal/data"
	"github.com/storelens/storelens-ingestion-backend/internal/utils"
)

// ClientInterface is the warehouse contract the ingestion worker consumes.
type ClientInterface interface {
	QueryDateRangeEvents(ctx context.Context, startDate, endDate string) (map[data.EventType][]data.EventRecord, error)
	Ping(ctx context.Context) error
	Close() error
}

var _ ClientInterface = (*Client)(nil)

const dateRangeEventsQuery = `
	SELECT EVENT_TYPE, EVENT_DATE, USER_ID, SESSION_ID, ITEM_ID, QUANTITY, REVENUE, SEARCH_TERM, RESULT_COUNT, PAGE_URL
	FROM EVENTS
	WHERE EVENT_DATE BETWEEN ? AND ?
	ORDER BY EVENT_DATE
`

// QueryDateRangeEvents fetches the inclusive date range in a single query and groups the rows by
// event variant. The result always contains all known variants, empty groups included, so
// downstream range replacement clears stale data for variants the source no longer reports.
func (c *Client) QueryDateRangeEvents(ctx context.Context, startDate, endDate string) (map[data.EventType][]data.EventRecord, error) {
	if err := utils.ValidateDateRange(startDate, endDate); err != nil {
		return nil, fmt.Errorf("validating warehouse query range: %w", err)
	}

	rows, err := c.db.QueryContext(ctx, dateRangeEventsQuery, startDate, endDate)
	if err != nil {
		return nil, fmt.Errorf("querying events in [%s, %s]: %w", startDate, endDate, err)
	}
	defer rows.Close()

	grouped := make(map[data.EventType][]data.EventRecord, len(data.EventTypes()))
	for _, t := range data.EventTypes() {
		grouped[t] = []data.EventRecord{}
	}

	skipped := 0
	for rows.Next() {
		record, eventType, scanErr := scanEventRow(rows)
		if scanErr != nil {
			return nil, scanErr
		}

		parsed, parseErr := data.ParseEventType(eventType)
		if parseErr != nil {
			// Unknown variants from the source are skipped, not fatal.
			skipped++
			continue
		}
		record.EventType = parsed
		grouped[parsed] = append(grouped[parsed], record)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating event rows: %w", err)
	}

	if skipped > 0 {
		log.WithContext(ctx).Warnf("skipped %d warehouse rows with unknown event types in [%s, %s]", skipped, startDate, endDate)
	}
	return grouped, nil
}

func scanEventRow(rows *sql.Rows) (data.EventRecord, string, error) {
	var (
		eventType   string
		eventDate   string
		userID      sql.NullString
		sessionID   sql.NullString
		itemID      sql.NullString
		quantity    sql.NullInt64
		revenue     sql.NullString
		searchTerm  sql.NullString
		resultCount sql.NullInt64
		pageURL     sql.NullString
	)
	if err := rows.Scan(&eventType, &eventDate, &userID, &sessionID, &itemID, &quantity, &revenue, &searchTerm, &resultCount, &pageURL); err != nil {
		return data.EventRecord{}, "", fmt.Errorf("scanning event row: %w", err)
	}

	record := data.EventRecord{
		EventDate:   eventDate,
		UserID:      nullStringPtr(userID),
		SessionID:   nullStringPtr(sessionID),
		ItemID:      nullStringPtr(itemID),
		Quantity:    nullIntPtr(quantity),
		SearchTerm:  nullStringPtr(searchTerm),
		ResultCount: nullIntPtr(resultCount),
		PageURL:     nullStringPtr(pageURL),
	}

	if revenue.Valid {
		coerced, err := data.CoerceRevenue(revenue.String)
		if err != nil {
			return data.EventRecord{}, "", fmt.Errorf("coercing revenue of event row: %w", err)
		}
		record.Revenue = coerced
	}

	return record, eventType, nil
}

func nullStringPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	return &s.String
}

func nullIntPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}
