package model

import "time"

// Bounds enforced on reports and estimate profiles by the service layer.
// The HTTP layer only checks that the body parses; these are the business
// rules, so every caller (HTTP, tests, future CLI importers) gets them.
const (
	MinYear    = 1900
	MaxMileage = 1_000_000
)

// Report is a single price observation submitted by a user: "I saw this
// vehicle, at this location, with this mileage, for this price."
//
// Reports start out unapproved. Only a privileged user can flip Approved,
// and only approved reports feed the price estimate. UserID is the owning
// user (many reports per user); it is set from the session at creation
// time and never changes.
type Report struct {
	ID        int64     `json:"id"        db:"id"`
	Price     float64   `json:"price"     db:"price"`
	Make      string    `json:"make"      db:"make"`
	Model     string    `json:"model"     db:"model"`
	Year      int       `json:"year"      db:"year"`
	Longitude float64   `json:"longitude" db:"longitude"`
	Latitude  float64   `json:"latitude"  db:"latitude"`
	Mileage   int       `json:"mileage"   db:"mileage"`
	Approved  bool      `json:"approved"  db:"approved"`
	UserID    int64     `json:"userId"    db:"user_id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// EstimateProfile is the vehicle a caller wants a price for. It mirrors the
// matchable fields of Report (everything except price and approval).
type EstimateProfile struct {
	Make      string  `json:"make"`
	Model     string  `json:"model"`
	Year      int     `json:"year"`
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
	Mileage   int     `json:"mileage"`
}
