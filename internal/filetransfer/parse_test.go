package filetransfer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_ParseUsersCSV(t *testing.T) {
	t.Run("🟢 maps columns and normalizes null sentinels", func(t *testing.T) {
		csv := []byte(`id,email,first_name,last_name,branch,signup_date
101,ana@example.com,Ana,Prado,BR-01,2025-11-02
102,NULL,n/a,,BR-02,20251103
103,carlos@example.com,Carlos,Nunes,N/A,
`)

		records, err := ParseUsersCSV(csv)
		require.NoError(t, err)
		require.Len(t, records, 3)

		assert.Equal(t, int64(101), records[0].UserID)
		require.NotNil(t, records[0].Email)
		assert.Equal(t, "ana@example.com", *records[0].Email)
		require.NotNil(t, records[0].SignupDate)
		assert.Equal(t, "2025-11-02", *records[0].SignupDate)

		assert.Nil(t, records[1].Email)
		assert.Nil(t, records[1].FirstName)
		assert.Nil(t, records[1].LastName)
		require.NotNil(t, records[1].SignupDate)
		assert.Equal(t, "2025-11-03", *records[1].SignupDate)

		assert.Nil(t, records[2].BranchCode)
		assert.Nil(t, records[2].SignupDate)
	})

	t.Run("🔴 non-numeric user id fails with the row number", func(t *testing.T) {
		csv := []byte(`id,email,first_name,last_name,branch,signup_date
abc,x@example.com,X,Y,BR-01,2025-11-02
`)
		_, err := ParseUsersCSV(csv)
		require.ErrorContains(t, err, `parsing user id "abc" on row 1`)
	})

	t.Run("🔴 malformed signup date fails with the row number", func(t *testing.T) {
		csv := []byte(`id,email,first_name,last_name,branch,signup_date
101,x@example.com,X,Y,BR-01,02/11/2025
`)
		_, err := ParseUsersCSV(csv)
		require.ErrorContains(t, err, `normalizing signup date "02/11/2025" on row 1`)
	})

	t.Run("🟢 empty file yields no records", func(t *testing.T) {
		records, err := ParseUsersCSV([]byte("id,email,first_name,last_name,branch,signup_date\n"))
		require.NoError(t, err)
		assert.Empty(t, records)
	})
}

func Test_ParseLocationsCSV(t *testing.T) {
	t.Run("🟢 maps columns and skips rows without a warehouse code", func(t *testing.T) {
		csv := []byte(`code,name,city,state,branch
WH-SP-01,São Paulo Central,São Paulo,SP,BR-01
,Orphan Row,Campinas,SP,BR-02
WH-RJ-01,Rio Norte,NULL,RJ,N/A
`)

		records, err := ParseLocationsCSV(csv)
		require.NoError(t, err)
		require.Len(t, records, 2)

		assert.Equal(t, "WH-SP-01", records[0].WarehouseCode)
		require.NotNil(t, records[0].Name)
		assert.Equal(t, "São Paulo Central", *records[0].Name)

		assert.Equal(t, "WH-RJ-01", records[1].WarehouseCode)
		assert.Nil(t, records[1].City)
		assert.Nil(t, records[1].BranchCode)
		require.NotNil(t, records[1].Region)
		assert.Equal(t, "RJ", *records[1].Region)
	})
}

func Test_normalizeNullable(t *testing.T) {
	assert.Nil(t, normalizeNullable(""))
	assert.Nil(t, normalizeNullable("  "))
	assert.Nil(t, normalizeNullable("NULL"))
	assert.Nil(t, normalizeNullable("null"))
	assert.Nil(t, normalizeNullable("n/a"))

	v := normalizeNullable("  BR-01  ")
	require.NotNil(t, v)
	assert.Equal(t, "BR-01", *v)
}
