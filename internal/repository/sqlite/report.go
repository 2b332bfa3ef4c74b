package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/zackriver/carvalue/internal/apperror"
	"github.com/zackriver/carvalue/internal/model"
	"github.com/zackriver/carvalue/internal/repository"
)

// ReportDB implements repository.ReportRepository over the shared pool.
type ReportDB struct {
	conn *sql.DB
}

var _ repository.ReportRepository = (*ReportDB)(nil)

const reportColumns = `id, price, make, model, year, longitude, latitude, mileage, approved, user_id, created_at, updated_at`

// Create inserts a new report and fills in the store-assigned ID and
// timestamps. The caller (service layer) has already validated the bounds
// and set UserID and Approved.
func (db *ReportDB) Create(ctx context.Context, report *model.Report) error {
	now := time.Now()
	report.CreatedAt = now
	report.UpdatedAt = now

	result, err := db.conn.ExecContext(ctx,
		`INSERT INTO reports (price, make, model, year, longitude, latitude, mileage, approved, user_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		report.Price,
		report.Make,
		report.Model,
		report.Year,
		report.Longitude,
		report.Latitude,
		report.Mileage,
		report.Approved,
		report.UserID,
		report.CreatedAt,
		report.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating report: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading new report id: %w", err)
	}
	report.ID = id

	return nil
}

// GetByID retrieves a single report.
func (db *ReportDB) GetByID(ctx context.Context, id int64) (*model.Report, error) {
	var r model.Report
	err := db.conn.QueryRowContext(ctx,
		`SELECT `+reportColumns+` FROM reports WHERE id = ?`,
		id,
	).Scan(
		&r.ID, &r.Price, &r.Make, &r.Model, &r.Year,
		&r.Longitude, &r.Latitude, &r.Mileage, &r.Approved,
		&r.UserID, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("report", id)
		}
		return nil, fmt.Errorf("sqlite: getting report %d: %w", id, err)
	}
	return &r, nil
}

// ListByUser returns a user's own reports, newest first.
func (db *ReportDB) ListByUser(ctx context.Context, userID int64) ([]model.Report, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+reportColumns+` FROM reports WHERE user_id = ? ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing reports for user %d: %w", userID, err)
	}
	defer rows.Close()

	reports := make([]model.Report, 0, 16)
	for rows.Next() {
		var r model.Report
		if err := rows.Scan(
			&r.ID, &r.Price, &r.Make, &r.Model, &r.Year,
			&r.Longitude, &r.Latitude, &r.Mileage, &r.Approved,
			&r.UserID, &r.CreatedAt, &r.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning report row: %w", err)
		}
		reports = append(reports, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating reports: %w", err)
	}

	return reports, nil
}

// SetApproval flips a report's approved flag (privileged moderation)
// and returns the updated record. Reports are never deleted — rejection
// just sets approved back to false.
func (db *ReportDB) SetApproval(ctx context.Context, id int64, approved bool) (*model.Report, error) {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE reports SET approved = ?, updated_at = ? WHERE id = ?`,
		approved,
		time.Now(),
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: updating report %d approval: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, apperror.NotFound("report", id)
	}

	return db.GetByID(ctx, id)
}

// Estimate runs the estimation aggregate over approved reports.
//
// The match rules, in order:
//   - approved reports only
//   - exact make and model (case-sensitive; the service trims inputs)
//   - longitude and latitude each within ±5 degrees — independent axis
//     windows, NOT a circular radius
//   - year within ±3
//
// Survivors are ordered by mileage distance DESCENDING — furthest first —
// and the top 3 are averaged. Yes, furthest: the documented behavior
// inverts the "closest comparable" heuristic you would expect. It is
// preserved verbatim and pinned by a regression test; do not "fix" the
// sort direction without product confirmation.
//
// AVG over an empty set is NULL, which comes back as a nil pointer:
// "no estimate", as opposed to an estimate of zero.
func (db *ReportDB) Estimate(ctx context.Context, profile model.EstimateProfile) (*float64, error) {
	var avg sql.NullFloat64
	err := db.conn.QueryRowContext(ctx,
		`SELECT AVG(price) FROM (
			SELECT price FROM reports
			WHERE approved = 1
			  AND make = ?
			  AND model = ?
			  AND ABS(longitude - ?) <= 5
			  AND ABS(latitude - ?) <= 5
			  AND ABS(year - ?) <= 3
			ORDER BY ABS(mileage - ?) DESC
			LIMIT 3
		)`,
		profile.Make,
		profile.Model,
		profile.Longitude,
		profile.Latitude,
		profile.Year,
		profile.Mileage,
	).Scan(&avg)
	if err != nil {
		return nil, fmt.Errorf("sqlite: estimating price: %w", err)
	}

	if !avg.Valid {
		return nil, nil
	}
	return &avg.Float64, nil
}
