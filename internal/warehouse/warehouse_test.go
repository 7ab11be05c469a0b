package warehouse

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storelens/storelens-ingestion-backend/internal/data"
)

func Test_NewConfig(t *testing.T) {
	testCases := []struct {
		name            string
		credentials     map[string]string
		wantErrContains string
	}{
		{
			name:            "🔴 missing account",
			credentials:     map[string]string{"user": "u", "password": "p", "database": "d", "schema": "s"},
			wantErrContains: "warehouse account is required",
		},
		{
			name:            "🔴 missing schema",
			credentials:     map[string]string{"account": "acme-xy12345", "user": "u", "password": "p", "database": "d"},
			wantErrContains: "warehouse schema is required",
		},
		{
			name:        "🟢 full credentials",
			credentials: map[string]string{"account": "acme-xy12345", "user": "u", "password": "p", "database": "d", "schema": "s", "warehouse": "wh"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewConfig(tc.credentials)
			if tc.wantErrContains != "" {
				require.ErrorContains(t, err, tc.wantErrContains)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func Test_Config_DSN(t *testing.T) {
	cfg := Config{Account: "acme-xy12345", User: "loader", Password: "p@ss w0rd", Database: "ANALYTICS", Schema: "PUBLIC"}
	assert.Equal(t, "loader:p%40ss+w0rd@acme-xy12345/ANALYTICS/PUBLIC", cfg.DSN())

	cfg.Warehouse = "LOAD_WH"
	assert.Equal(t, "loader:p%40ss+w0rd@acme-xy12345/ANALYTICS/PUBLIC?warehouse=LOAD_WH", cfg.DSN())
}

func Test_Client_QueryDateRangeEvents(t *testing.T) {
	ctx := context.Background()

	eventColumns := []string{"EVENT_TYPE", "EVENT_DATE", "USER_ID", "SESSION_ID", "ITEM_ID", "QUANTITY", "REVENUE", "SEARCH_TERM", "RESULT_COUNT", "PAGE_URL"}

	newMockClient := func(t *testing.T) (*Client, sqlmock.Sqlmock) {
		mockDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
		require.NoError(t, err)
		t.Cleanup(func() {
			require.NoError(t, mock.ExpectationsWereMet())
			_ = mockDB.Close()
		})
		return NewClientFromDB(mockDB), mock
	}

	t.Run("🔴 rejects an inverted range before querying", func(t *testing.T) {
		client, _ := newMockClient(t)
		_, err := client.QueryDateRangeEvents(ctx, "2026-03-07", "2026-03-01")
		require.ErrorContains(t, err, "validating warehouse query range")
	})

	t.Run("🟢 groups rows by variant with all keys present", func(t *testing.T) {
		client, mock := newMockClient(t)

		rows := sqlmock.NewRows(eventColumns).
			AddRow("purchase", "2026-03-01", "42", "sess-1", "sku-9", 2, "259.80", nil, nil, nil).
			AddRow("page_view", "2026-03-01", "42", "sess-1", nil, nil, nil, nil, nil, "/catalog").
			AddRow("search_without_results", "2026-03-02", nil, "sess-2", nil, nil, nil, "left-handed hammer", nil, nil)

		mock.ExpectQuery(`SELECT (.+) FROM EVENTS`).
			WithArgs("2026-03-01", "2026-03-07").
			WillReturnRows(rows)

		grouped, err := client.QueryDateRangeEvents(ctx, "2026-03-01", "2026-03-07")
		require.NoError(t, err)

		require.Len(t, grouped, len(data.EventTypes()))
		for _, eventType := range data.EventTypes() {
			require.Contains(t, grouped, eventType)
		}

		require.Len(t, grouped[data.EventTypePurchase], 1)
		purchase := grouped[data.EventTypePurchase][0]
		assert.Equal(t, data.EventTypePurchase, purchase.EventType)
		require.NotNil(t, purchase.ItemID)
		assert.Equal(t, "sku-9", *purchase.ItemID)
		require.True(t, purchase.Revenue.Valid)
		assert.Equal(t, "259.8", purchase.Revenue.Decimal.String())

		require.Len(t, grouped[data.EventTypeSearchWithoutResults], 1)
		assert.Nil(t, grouped[data.EventTypeSearchWithoutResults][0].UserID)

		assert.Empty(t, grouped[data.EventTypeAddToCart])
		assert.Empty(t, grouped[data.EventTypeViewItem])
		assert.Empty(t, grouped[data.EventTypeSearchWithResults])
	})

	t.Run("🟢 unknown variants are skipped, not fatal", func(t *testing.T) {
		client, mock := newMockClient(t)

		rows := sqlmock.NewRows(eventColumns).
			AddRow("checkout", "2026-03-01", nil, nil, nil, nil, nil, nil, nil, nil).
			AddRow("view_item", "2026-03-01", "7", "sess-3", "sku-1", nil, nil, nil, nil, nil)

		mock.ExpectQuery(`SELECT (.+) FROM EVENTS`).
			WithArgs("2026-03-01", "2026-03-01").
			WillReturnRows(rows)

		grouped, err := client.QueryDateRangeEvents(ctx, "2026-03-01", "2026-03-01")
		require.NoError(t, err)
		require.Len(t, grouped[data.EventTypeViewItem], 1)
		assert.Empty(t, grouped[data.EventTypePurchase])
	})
}
