package filetransfer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"

	"github.com/storelens/storelens-ingestion-backend/internal/data"
	"github.com/storelens/storelens-ingestion-backend/internal/utils"
)

// userCSVRow mirrors the column layout of the users snapshot file.
type userCSVRow struct {
	ID         string `csv:"id"`
	Email      string `csv:"email"`
	FirstName  string `csv:"first_name"`
	LastName   string `csv:"last_name"`
	Branch     string `csv:"branch"`
	SignupDate string `csv:"signup_date"`
}

// locationCSVRow mirrors the column layout of the locations snapshot file.
type locationCSVRow struct {
	Code   string `csv:"code"`
	Name   string `csv:"name"`
	City   string `csv:"city"`
	Region string `csv:"state"`
	Branch string `csv:"branch"`
}

// ParseUsersCSV decodes a users snapshot into dimension rows, mapping source column names onto
// the destination schema and normalizing null sentinels.
func ParseUsersCSV(contents []byte) ([]data.UserRecord, error) {
	var rows []userCSVRow
	if err := gocsv.UnmarshalBytes(contents, &rows); err != nil {
		return nil, fmt.Errorf("decoding users csv: %w", err)
	}

	records := make([]data.UserRecord, 0, len(rows))
	for i, row := range rows {
		userID, err := strconv.ParseInt(strings.TrimSpace(row.ID), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing user id %q on row %d: %w", row.ID, i+1, err)
		}

		record := data.UserRecord{
			UserID:     userID,
			Email:      normalizeNullable(row.Email),
			FirstName:  normalizeNullable(row.FirstName),
			LastName:   normalizeNullable(row.LastName),
			BranchCode: normalizeNullable(row.Branch),
		}

		if signup := normalizeNullable(row.SignupDate); signup != nil {
			normalized, err := utils.NormalizeDate(*signup)
			if err != nil {
				return nil, fmt.Errorf("normalizing signup date %q on row %d: %w", *signup, i+1, err)
			}
			record.SignupDate = &normalized
		}

		records = append(records, record)
	}
	return records, nil
}

// ParseLocationsCSV decodes a locations snapshot into dimension rows. Rows without a warehouse
// code are skipped, they cannot be keyed.
func ParseLocationsCSV(contents []byte) ([]data.LocationRecord, error) {
	var rows []locationCSVRow
	if err := gocsv.UnmarshalBytes(contents, &rows); err != nil {
		return nil, fmt.Errorf("decoding locations csv: %w", err)
	}

	records := make([]data.LocationRecord, 0, len(rows))
	for _, row := range rows {
		code := normalizeNullable(row.Code)
		if code == nil {
			continue
		}

		records = append(records, data.LocationRecord{
			WarehouseCode: *code,
			Name:          normalizeNullable(row.Name),
			City:          normalizeNullable(row.City),
			Region:        normalizeNullable(row.Region),
			BranchCode:    normalizeNullable(row.Branch),
		})
	}
	return records, nil
}

// normalizeNullable maps the source's null sentinels ("", "NULL", "N/A", any casing) to an
// explicit absent value.
func normalizeNullable(raw string) *string {
	trimmed := strings.TrimSpace(raw)
	switch strings.ToUpper(trimmed) {
	case "", "NULL", "N/A":
		return nil
	}
	return &trimmed
}
