package handler

import (
	"net/http"
	"strconv"

	"github.com/zackriver/carvalue/internal/apperror"
	"github.com/zackriver/carvalue/internal/model"
	"github.com/zackriver/carvalue/internal/serialize"
	"github.com/zackriver/carvalue/internal/service"
)

// ReportHandler serves report submission, retrieval, moderation, and the
// estimate endpoint.
type ReportHandler struct {
	reports *service.ReportService
}

// NewReportHandler creates a ReportHandler.
func NewReportHandler(reports *service.ReportService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

type createReportRequest struct {
	Price     float64 `json:"price"`
	Make      string  `json:"make"`
	Model     string  `json:"model"`
	Year      int     `json:"year"`
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
	Mileage   int     `json:"mileage"`
}

// Create handles POST /api/reports.
func (h *ReportHandler) Create(w http.ResponseWriter, r *http.Request) {
	act, err := actor(r)
	if err != nil {
		writeError(w, "createReport", err)
		return
	}

	var req createReportRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, "createReport", err)
		return
	}

	report, err := h.reports.Create(r.Context(), act, service.ReportInput{
		Price:     req.Price,
		Make:      req.Make,
		Model:     req.Model,
		Year:      req.Year,
		Longitude: req.Longitude,
		Latitude:  req.Latitude,
		Mileage:   req.Mileage,
	})
	if err != nil {
		writeError(w, "createReport", err)
		return
	}

	projected, err := serialize.ReportFields.Apply(report)
	if err != nil {
		writeError(w, "createReport", err)
		return
	}
	writeData(w, http.StatusCreated, "createReport", "report submitted", projected)
}

// List handles GET /api/reports: the caller's own reports, newest first.
func (h *ReportHandler) List(w http.ResponseWriter, r *http.Request) {
	act, err := actor(r)
	if err != nil {
		writeError(w, "listReports", err)
		return
	}

	reports, err := h.reports.ListOwn(r.Context(), act)
	if err != nil {
		writeError(w, "listReports", err)
		return
	}

	projected, err := serialize.ReportFields.ApplyAll(reports)
	if err != nil {
		writeError(w, "listReports", err)
		return
	}
	writeData(w, http.StatusOK, "listReports", "", projected)
}

// Get handles GET /api/reports/{id}.
func (h *ReportHandler) Get(w http.ResponseWriter, r *http.Request) {
	act, err := actor(r)
	if err != nil {
		writeError(w, "getReport", err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, "getReport", err)
		return
	}

	report, err := h.reports.Get(r.Context(), act, id)
	if err != nil {
		writeError(w, "getReport", err)
		return
	}

	projected, err := serialize.ReportFields.Apply(report)
	if err != nil {
		writeError(w, "getReport", err)
		return
	}
	writeData(w, http.StatusOK, "getReport", "", projected)
}

// Approve handles POST /api/reports/{id}/approve (privileged only,
// guarded at the route).
func (h *ReportHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.moderate(w, r, true)
}

// Reject handles POST /api/reports/{id}/reject (privileged only, guarded
// at the route).
func (h *ReportHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.moderate(w, r, false)
}

func (h *ReportHandler) moderate(w http.ResponseWriter, r *http.Request, approved bool) {
	action := "rejectReport"
	message := "report rejected"
	if approved {
		action = "approveReport"
		message = "report approved"
	}

	act, err := actor(r)
	if err != nil {
		writeError(w, action, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, action, err)
		return
	}

	report, err := h.reports.SetApproval(r.Context(), act, id, approved)
	if err != nil {
		writeError(w, action, err)
		return
	}

	projected, err := serialize.ReportFields.Apply(report)
	if err != nil {
		writeError(w, action, err)
		return
	}
	writeData(w, http.StatusOK, action, message, projected)
}

// estimateResponse is the payload of a successful estimate.
type estimateResponse struct {
	Price float64 `json:"price"`
}

// Estimate handles GET /api/estimate. The vehicle profile rides in the
// query string: make, model, year, longitude, latitude, mileage — all
// required.
func (h *ReportHandler) Estimate(w http.ResponseWriter, r *http.Request) {
	profile, err := parseEstimateQuery(r)
	if err != nil {
		writeError(w, "estimate", err)
		return
	}

	price, err := h.reports.Estimate(r.Context(), profile)
	if err != nil {
		writeError(w, "estimate", err)
		return
	}

	writeData(w, http.StatusOK, "estimate", "", estimateResponse{Price: price})
}

func parseEstimateQuery(r *http.Request) (model.EstimateProfile, error) {
	q := r.URL.Query()

	year, err := strconv.Atoi(q.Get("year"))
	if err != nil {
		return model.EstimateProfile{}, apperror.ValidationFailed("year", "year must be an integer")
	}
	longitude, err := strconv.ParseFloat(q.Get("longitude"), 64)
	if err != nil {
		return model.EstimateProfile{}, apperror.ValidationFailed("longitude", "longitude must be a number")
	}
	latitude, err := strconv.ParseFloat(q.Get("latitude"), 64)
	if err != nil {
		return model.EstimateProfile{}, apperror.ValidationFailed("latitude", "latitude must be a number")
	}
	mileage, err := strconv.Atoi(q.Get("mileage"))
	if err != nil {
		return model.EstimateProfile{}, apperror.ValidationFailed("mileage", "mileage must be an integer")
	}

	return model.EstimateProfile{
		Make:      q.Get("make"),
		Model:     q.Get("model"),
		Year:      year,
		Longitude: longitude,
		Latitude:  latitude,
		Mileage:   mileage,
	}, nil
}
