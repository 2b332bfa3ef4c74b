package service

import (
	"context"
	"time"

	"github.com/zackriver/carvalue/internal/apperror"
	"github.com/zackriver/carvalue/internal/model"
)

// fakeUserRepo is an in-memory UserRepository. It mirrors the real
// store's contract: IDs start at 1, duplicate emails conflict, missing
// rows are ErrNotFound.
type fakeUserRepo struct {
	users  map[int64]*model.User
	nextID int64

	// failWith, when set, makes every call return this error. For testing
	// the infrastructure-failure paths.
	failWith error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[int64]*model.User{}, nextID: 1}
}

func (f *fakeUserRepo) Create(_ context.Context, user *model.User) error {
	if f.failWith != nil {
		return f.failWith
	}
	for _, existing := range f.users {
		if existing.Email == user.Email {
			return apperror.Conflict("an account with this email already exists")
		}
	}
	user.ID = f.nextID
	f.nextID++
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	clone := *user
	f.users[user.ID] = &clone
	return nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id int64) (*model.User, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	user, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	clone := *user
	return &clone, nil
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	for _, user := range f.users {
		if user.Email == email {
			clone := *user
			return &clone, nil
		}
	}
	return nil, apperror.NotFoundMsg("user not found")
}

func (f *fakeUserRepo) Update(_ context.Context, user *model.User) error {
	if f.failWith != nil {
		return f.failWith
	}
	if _, ok := f.users[user.ID]; !ok {
		return apperror.NotFound("user", user.ID)
	}
	for id, existing := range f.users {
		if id != user.ID && existing.Email == user.Email {
			return apperror.Conflict("an account with this email already exists")
		}
	}
	clone := *user
	clone.UpdatedAt = time.Now()
	f.users[user.ID] = &clone
	return nil
}

func (f *fakeUserRepo) Delete(_ context.Context, id int64) error {
	if f.failWith != nil {
		return f.failWith
	}
	if _, ok := f.users[id]; !ok {
		return apperror.NotFound("user", id)
	}
	delete(f.users, id)
	return nil
}

// fakeReportRepo is an in-memory ReportRepository. The estimate result is
// scripted rather than computed — the real averaging SQL has its own
// tests against SQLite.
type fakeReportRepo struct {
	reports map[int64]*model.Report
	nextID  int64

	estimateResult  *float64
	estimateErr     error
	lastEstimateFor *model.EstimateProfile
}

func newFakeReportRepo() *fakeReportRepo {
	return &fakeReportRepo{reports: map[int64]*model.Report{}, nextID: 1}
}

func (f *fakeReportRepo) Create(_ context.Context, report *model.Report) error {
	report.ID = f.nextID
	f.nextID++
	report.CreatedAt = time.Now()
	report.UpdatedAt = report.CreatedAt
	clone := *report
	f.reports[report.ID] = &clone
	return nil
}

func (f *fakeReportRepo) GetByID(_ context.Context, id int64) (*model.Report, error) {
	report, ok := f.reports[id]
	if !ok {
		return nil, apperror.NotFound("report", id)
	}
	clone := *report
	return &clone, nil
}

func (f *fakeReportRepo) ListByUser(_ context.Context, userID int64) ([]model.Report, error) {
	var out []model.Report
	for _, report := range f.reports {
		if report.UserID == userID {
			out = append(out, *report)
		}
	}
	return out, nil
}

func (f *fakeReportRepo) SetApproval(_ context.Context, id int64, approved bool) (*model.Report, error) {
	report, ok := f.reports[id]
	if !ok {
		return nil, apperror.NotFound("report", id)
	}
	report.Approved = approved
	report.UpdatedAt = time.Now()
	clone := *report
	return &clone, nil
}

func (f *fakeReportRepo) Estimate(_ context.Context, profile model.EstimateProfile) (*float64, error) {
	f.lastEstimateFor = &profile
	return f.estimateResult, f.estimateErr
}

// countingRecorder tracks metric calls so service tests can assert the
// counters move.
type countingRecorder struct {
	loginSuccess, loginFailure      int
	estimatesServed, estimateMisses int
}

func (r *countingRecorder) RecordHTTPRequest(int, time.Duration) {}
func (r *countingRecorder) RecordLoginSuccess()                  { r.loginSuccess++ }
func (r *countingRecorder) RecordLoginFailure()                  { r.loginFailure++ }
func (r *countingRecorder) RecordEstimateServed()                { r.estimatesServed++ }
func (r *countingRecorder) RecordEstimateMiss()                  { r.estimateMisses++ }
