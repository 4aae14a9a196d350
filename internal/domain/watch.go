package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrWatchNotFound   = errors.New("watch not found")
	ErrInvalidDates    = errors.New("departure date must be after arrival date")
	ErrInvalidInterval = errors.New("check interval must be greater than zero")
	ErrInvalidGuests   = errors.New("guest count must be greater than zero")
)

type CheckResult string

const (
	CheckResultFound    CheckResult = "found"
	CheckResultNotFound CheckResult = "not_found"
	CheckResultError    CheckResult = "error"
)

// Site is one bookable campsite as returned by the booking API.
type Site struct {
	SiteID    string          `json:"site_id"`
	Name      string          `json:"name"`
	SiteType  string          `json:"site_type"`
	Price     decimal.Decimal `json:"price"`
	Available bool            `json:"available"`
}

// Watch is a user-defined recurring availability check.
type Watch struct {
	ID            string
	OwnerID       string
	CampgroundID  string
	ArrivalDate   time.Time
	DepartureDate time.Time
	Guests        int

	// Optional filters, AND-ed together.
	SiteType *string
	MaxPrice *decimal.Decimal
	SiteIDs  []string

	CheckIntervalMinutes int
	IsActive             bool
	NotifyOnly           bool // false = auto-book

	LastCheckedAt  *time.Time
	NextCheckAt    *time.Time
	LastResult     *CheckResult
	LastError      *string
	FoundCount     int
	LastFoundSites []Site

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (w *Watch) Validate() error {
	if !w.DepartureDate.After(w.ArrivalDate) {
		return ErrInvalidDates
	}
	if w.CheckIntervalMinutes <= 0 {
		return ErrInvalidInterval
	}
	if w.Guests <= 0 {
		return ErrInvalidGuests
	}
	return nil
}

// ArrivalPassed reports whether the arrival day is before the day of now.
// Arrival dates are calendar dates, so the comparison ignores time of day.
func (w *Watch) ArrivalPassed(now time.Time) bool {
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	ay, am, ad := w.ArrivalDate.Date()
	arrival := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	return arrival.Before(today)
}

// WatchCheck is the outcome of one executor run, written in a single update.
type WatchCheck struct {
	CheckedAt   time.Time
	NextCheckAt time.Time
	Result      CheckResult
	Sites       []Site
	Error       *string
	Deactivate  bool
}

// WatchUpdate carries the user-editable fields; nil means unchanged.
type WatchUpdate struct {
	CheckIntervalMinutes *int
	IsActive             *bool
	NotifyOnly           *bool
	SiteType             *string
	MaxPrice             *decimal.Decimal
	SiteIDs              []string
}
