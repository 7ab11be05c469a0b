package data

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/storelens/storelens-ingestion-backend/db"
)

// UserRecord is a tenant-scoped user dimension row, keyed by the source-system numeric user id.
type UserRecord struct {
	UserID     int64     `db:"user_id"`
	Email      *string   `db:"email"`
	FirstName  *string   `db:"first_name"`
	LastName   *string   `db:"last_name"`
	BranchCode *string   `db:"branch_code"`
	SignupDate *string   `db:"signup_date"`
	UpdatedAt  time.Time `db:"updated_at"`
}

func (r *UserRecord) Validate() error {
	if r.UserID <= 0 {
		return fmt.Errorf("user_id must be a positive source-system identifier")
	}
	return nil
}

// LocationRecord is a tenant-scoped location dimension row, keyed by the source warehouse code.
type LocationRecord struct {
	WarehouseCode string    `db:"warehouse_code"`
	Name          *string   `db:"name"`
	City          *string   `db:"city"`
	Region        *string   `db:"region"`
	BranchCode    *string   `db:"branch_code"`
	UpdatedAt     time.Time `db:"updated_at"`
}

func (r *LocationRecord) Validate() error {
	if strings.TrimSpace(r.WarehouseCode) == "" {
		return fmt.Errorf("warehouse_code is required")
	}
	return nil
}

type DimensionModel struct {
	dbConnectionPool db.DBConnectionPool
}

// dimensionUpsertBatchSize is the fixed number of rows per bulk upsert statement.
const dimensionUpsertBatchSize = 500

// UpsertUsers inserts or updates user dimension rows keyed on the natural user id. On conflict
// every mutable column is overwritten and the updated_at watermark is always refreshed, even when
// nothing else changed. Returns the number of rows written.
func (m *DimensionModel) UpsertUsers(ctx context.Context, records []UserRecord) (int, error) {
	for i := range records {
		if err := records[i].Validate(); err != nil {
			return 0, fmt.Errorf("validating user record %d: %w", i, err)
		}
	}

	written := 0
	for start := 0; start < len(records); start += dimensionUpsertBatchSize {
		end := start + dimensionUpsertBatchSize
		if end > len(records) {
			end = len(records)
		}
		if err := m.upsertUserBatch(ctx, records[start:end]); err != nil {
			return written, err
		}
		written += end - start
	}
	return written, nil
}

const userUpsertColumns = 6

func (m *DimensionModel) upsertUserBatch(ctx context.Context, records []UserRecord) error {
	valueStrings := make([]string, 0, len(records))
	valueArgs := make([]interface{}, 0, len(records)*userUpsertColumns)
	for i, r := range records {
		base := i * userUpsertColumns
		placeholders := make([]string, userUpsertColumns)
		for j := range placeholders {
			placeholders[j] = fmt.Sprintf("$%d", base+j+1)
		}
		valueStrings = append(valueStrings, "("+strings.Join(placeholders, ", ")+")")
		valueArgs = append(valueArgs, r.UserID, r.Email, r.FirstName, r.LastName, r.BranchCode, r.SignupDate)
	}

	q := fmt.Sprintf(`
		INSERT INTO users (user_id, email, first_name, last_name, branch_code, signup_date)
		VALUES %s
		ON CONFLICT (user_id) DO UPDATE
		SET
			email = EXCLUDED.email,
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			branch_code = EXCLUDED.branch_code,
			signup_date = EXCLUDED.signup_date,
			updated_at = NOW()
	`, strings.Join(valueStrings, ", "))

	if _, err := m.dbConnectionPool.ExecContext(ctx, q, valueArgs...); err != nil {
		return fmt.Errorf("upserting %d user rows: %w", len(records), err)
	}
	return nil
}

// UpsertLocations inserts or updates location dimension rows keyed on the natural warehouse
// code, with the same conflict semantics as UpsertUsers. Returns the number of rows written.
func (m *DimensionModel) UpsertLocations(ctx context.Context, records []LocationRecord) (int, error) {
	for i := range records {
		if err := records[i].Validate(); err != nil {
			return 0, fmt.Errorf("validating location record %d: %w", i, err)
		}
	}

	written := 0
	for start := 0; start < len(records); start += dimensionUpsertBatchSize {
		end := start + dimensionUpsertBatchSize
		if end > len(records) {
			end = len(records)
		}
		if err := m.upsertLocationBatch(ctx, records[start:end]); err != nil {
			return written, err
		}
		written += end - start
	}
	return written, nil
}

const locationUpsertColumns = 5

func (m *DimensionModel) upsertLocationBatch(ctx context.Context, records []LocationRecord) error {
	valueStrings := make([]string, 0, len(records))
	valueArgs := make([]interface{}, 0, len(records)*locationUpsertColumns)
	for i, r := range records {
		base := i * locationUpsertColumns
		placeholders := make([]string, locationUpsertColumns)
		for j := range placeholders {
			placeholders[j] = fmt.Sprintf("$%d", base+j+1)
		}
		valueStrings = append(valueStrings, "("+strings.Join(placeholders, ", ")+")")
		valueArgs = append(valueArgs, r.WarehouseCode, r.Name, r.City, r.Region, r.BranchCode)
	}

	q := fmt.Sprintf(`
		INSERT INTO locations (warehouse_code, name, city, region, branch_code)
		VALUES %s
		ON CONFLICT (warehouse_code) DO UPDATE
		SET
			name = EXCLUDED.name,
			city = EXCLUDED.city,
			region = EXCLUDED.region,
			branch_code = EXCLUDED.branch_code,
			updated_at = NOW()
	`, strings.Join(valueStrings, ", "))

	if _, err := m.dbConnectionPool.ExecContext(ctx, q, valueArgs...); err != nil {
		return fmt.Errorf("upserting %d location rows: %w", len(records), err)
	}
	return nil
}

// ListUserEmails returns the distinct email addresses of users with an email on file, optionally
// restricted to the given branch codes. A nil or empty branchCodes means every branch.
func (m *DimensionModel) ListUserEmails(ctx context.Context, branchCodes []string) ([]string, error) {
	q := `
		SELECT DISTINCT email
		FROM users
		WHERE email IS NOT NULL
	`
	var args []interface{}
	if len(branchCodes) > 0 {
		q += ` AND branch_code = ANY($1)`
		args = append(args, pq.StringArray(branchCodes))
	}
	q += ` ORDER BY email`

	emails := []string{}
	if err := m.dbConnectionPool.SelectContext(ctx, &emails, q, args...); err != nil {
		return nil, fmt.Errorf("listing user emails: %w", err)
	}
	return emails, nil
}
