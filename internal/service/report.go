package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/zackriver/carvalue/internal/apperror"
	"github.com/zackriver/carvalue/internal/metrics"
	"github.com/zackriver/carvalue/internal/model"
	"github.com/zackriver/carvalue/internal/repository"
)

// ReportService manages price reports and drives the estimation engine.
type ReportService struct {
	reports  repository.ReportRepository
	recorder metrics.Recorder
	logger   *slog.Logger
}

// NewReportService creates a ReportService.
func NewReportService(reports repository.ReportRepository, recorder metrics.Recorder, logger *slog.Logger) *ReportService {
	return &ReportService{
		reports:  reports,
		recorder: recorder,
		logger:   logger,
	}
}

// ReportInput is the caller-supplied part of a new report. Ownership and
// approval are never caller-supplied: the owner is the session identity,
// and every report starts unapproved.
type ReportInput struct {
	Price     float64
	Make      string
	Model     string
	Year      int
	Longitude float64
	Latitude  float64
	Mileage   int
}

// validateVehicle checks the fields shared by report submission and
// estimate queries. Make and model must already be trimmed.
func validateVehicle(vehicleMake, vehicleModel string, year int, longitude, latitude float64, mileage int) error {
	if vehicleMake == "" {
		return apperror.ValidationFailed("make", "make is required")
	}
	if vehicleModel == "" {
		return apperror.ValidationFailed("model", "model is required")
	}
	// Next year's models are on lots now, so allow one year ahead.
	if maxYear := time.Now().Year() + 1; year < model.MinYear || year > maxYear {
		return apperror.ValidationFailed("year",
			fmt.Sprintf("year must be between %d and %d", model.MinYear, maxYear))
	}
	if longitude < -180 || longitude > 180 {
		return apperror.ValidationFailed("longitude", "longitude must be between -180 and 180")
	}
	if latitude < -90 || latitude > 90 {
		return apperror.ValidationFailed("latitude", "latitude must be between -90 and 90")
	}
	if mileage < 0 || mileage > model.MaxMileage {
		return apperror.ValidationFailed("mileage",
			fmt.Sprintf("mileage must be between 0 and %d", model.MaxMileage))
	}
	return nil
}

// Create validates and stores a new report owned by the given user.
func (s *ReportService) Create(ctx context.Context, owner *model.User, in ReportInput) (*model.Report, error) {
	in.Make = strings.TrimSpace(in.Make)
	in.Model = strings.TrimSpace(in.Model)

	if in.Price < 0 {
		return nil, apperror.ValidationFailed("price", "price must not be negative")
	}
	if err := validateVehicle(in.Make, in.Model, in.Year, in.Longitude, in.Latitude, in.Mileage); err != nil {
		return nil, err
	}

	report := &model.Report{
		Price:     in.Price,
		Make:      in.Make,
		Model:     in.Model,
		Year:      in.Year,
		Longitude: in.Longitude,
		Latitude:  in.Latitude,
		Mileage:   in.Mileage,
		Approved:  false,
		UserID:    owner.ID,
	}
	if err := s.reports.Create(ctx, report); err != nil {
		return nil, fmt.Errorf("service/report: creating report: %w", err)
	}

	s.logger.Info("report submitted",
		slog.Int64("reportID", report.ID),
		slog.Int64("userID", owner.ID),
	)

	return report, nil
}

// Get returns a single report. Only the owner and privileged users may
// read it — everyone else gets not-found, so the response does not reveal
// whether the ID exists.
func (s *ReportService) Get(ctx context.Context, actor *model.User, id int64) (*model.Report, error) {
	report, err := s.reports.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/report: fetching report %d: %w", id, err)
	}
	if report.UserID != actor.ID && !actor.IsPrivileged {
		return nil, apperror.NotFound("report", id)
	}
	return report, nil
}

// ListOwn returns the actor's reports, newest first.
func (s *ReportService) ListOwn(ctx context.Context, actor *model.User) ([]model.Report, error) {
	reports, err := s.reports.ListByUser(ctx, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("service/report: listing reports: %w", err)
	}
	return reports, nil
}

// SetApproval marks a report approved or rejected and returns the updated
// row. The route serving this is restricted to privileged users.
//
// Approval is idempotent — re-approving an approved report is a no-op,
// not an error — and reversible: a moderator can reject a previously
// approved report, which removes it from the estimation pool.
func (s *ReportService) SetApproval(ctx context.Context, actor *model.User, id int64, approved bool) (*model.Report, error) {
	report, err := s.reports.SetApproval(ctx, id, approved)
	if err != nil {
		return nil, fmt.Errorf("service/report: setting approval on report %d: %w", id, err)
	}

	s.logger.Info("report moderated",
		slog.Int64("reportID", id),
		slog.Bool("approved", approved),
		slog.Int64("actorID", actor.ID),
	)

	return report, nil
}

// Estimate computes the average price of the comparable approved reports
// for the given vehicle profile. When nothing comparable exists the
// result is a not-found error — "no estimate" is an explicit outcome, not
// a zero price.
func (s *ReportService) Estimate(ctx context.Context, profile model.EstimateProfile) (float64, error) {
	profile.Make = strings.TrimSpace(profile.Make)
	profile.Model = strings.TrimSpace(profile.Model)

	if err := validateVehicle(profile.Make, profile.Model, profile.Year, profile.Longitude, profile.Latitude, profile.Mileage); err != nil {
		return 0, err
	}

	estimate, err := s.reports.Estimate(ctx, profile)
	if err != nil {
		return 0, fmt.Errorf("service/report: computing estimate: %w", err)
	}
	if estimate == nil {
		s.recorder.RecordEstimateMiss()
		return 0, apperror.NotFoundMsg("no estimate available for this vehicle profile")
	}

	s.recorder.RecordEstimateServed()

	return *estimate, nil
}
