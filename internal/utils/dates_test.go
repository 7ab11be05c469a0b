package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_NormalizeDate(t *testing.T) {
	testCases := []struct {
		value   string
		want    string
		wantErr bool
	}{
		{value: "2024-01-31", want: "2024-01-31"},
		{value: "20240131", want: "2024-01-31"},
		{value: "20241301", wantErr: true},
		{value: "2024-1-1", wantErr: true},
		{value: "yesterday", wantErr: true},
		{value: "", wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.value, func(t *testing.T) {
			got, err := NormalizeDate(tc.value)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func Test_ValidateDateRange(t *testing.T) {
	require.NoError(t, ValidateDateRange("2024-01-01", "2024-01-03"))
	require.NoError(t, ValidateDateRange("2024-01-01", "2024-01-01"))

	err := ValidateDateRange("2024-01-03", "2024-01-01")
	require.ErrorContains(t, err, "cannot be before start date")

	err = ValidateDateRange("not-a-date", "2024-01-01")
	require.ErrorContains(t, err, "invalid start date")

	err = ValidateDateRange("2024-01-01", "01/03/2024")
	require.ErrorContains(t, err, "invalid end date")
}

func Test_TruncateString(t *testing.T) {
	assert.Equal(t, "abc...xyz", TruncateString("abcdefghijklmnopqrstuvwxyz", 3))
	assert.Equal(t, "short", TruncateString("short", 3))
}
