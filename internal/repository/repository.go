// Package repository defines the Record Store interfaces the core depends
// on. The business layer only ever sees these interfaces — the concrete
// SQLite implementation lives in repository/sqlite, and swapping the
// storage engine means implementing these once, nothing more.
package repository

import (
	"context"

	"github.com/zackriver/carvalue/internal/model"
)

// UserRepository persists user records.
//
// Create fills in the store-assigned ID and timestamps on the passed
// struct. GetByEmail is the lookup-by-unique-key operation; email
// uniqueness itself is enforced by the store (Create and Update return a
// conflict error on a duplicate).
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	Update(ctx context.Context, user *model.User) error
	Delete(ctx context.Context, id int64) error
}

// ReportRepository persists price reports and runs the estimate aggregate.
//
// Estimate is the parametrized aggregate query behind the estimation
// engine: it considers approved reports only, applies the engine's match
// windows, and returns the averaged price of the selected comparables.
// A nil result means no comparable report matched — "no estimate", which
// is different from an estimate of zero.
type ReportRepository interface {
	Create(ctx context.Context, report *model.Report) error
	GetByID(ctx context.Context, id int64) (*model.Report, error)
	ListByUser(ctx context.Context, userID int64) ([]model.Report, error)
	SetApproval(ctx context.Context, id int64, approved bool) (*model.Report, error)
	Estimate(ctx context.Context, profile model.EstimateProfile) (*float64, error)
}
