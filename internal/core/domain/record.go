package domain

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const (
	// DefaultMinAge applies when neither the caller nor the environment sets a minimum.
	DefaultMinAge = 18

	MinBannerID = 0
	MaxBannerID = 99
)

var (
	ErrInvalidName      = errors.New("invalid name")
	ErrAgeFiltered      = errors.New("ignored due to age")
	ErrBannerOutOfRange = errors.New("banner id out of range")
	ErrInvalidCookie    = errors.New("invalid cookie")
	ErrMalformedLine    = errors.New("malformed record line")
)

// namePattern accepts ASCII letters and spaces. The empty name matches.
var namePattern = regexp.MustCompile(`^[a-zA-Z ]*$`)

// Record is a customer record. Fields are unexported so a Record cannot change
// after NewRecord returns it.
type Record struct {
	name     string
	age      int
	cookie   string
	bannerID int
}

// NewRecord builds a Record. It performs no validation; see Validate.
func NewRecord(name string, age int, cookie string, bannerID int) Record {
	return Record{name: name, age: age, cookie: cookie, bannerID: bannerID}
}

func (r Record) Name() string { return r.name }

func (r Record) Age() int { return r.age }

func (r Record) Cookie() string { return r.cookie }

func (r Record) BannerID() int { return r.bannerID }

// cookieForbidden are the characters that would split a fallback line.
const cookieForbidden = ",\r\n"

// Validate checks the record against the resolved age limits. The returned
// error is one of ErrInvalidName, ErrInvalidCookie, ErrAgeFiltered or
// ErrBannerOutOfRange.
func (r Record) Validate(limits AgeLimits) error {
	if !namePattern.MatchString(r.name) {
		return ErrInvalidName
	}
	if strings.ContainsAny(r.cookie, cookieForbidden) {
		return ErrInvalidCookie
	}
	if r.age < limits.Min {
		return ErrAgeFiltered
	}
	if limits.Max != nil && r.age > *limits.Max {
		return ErrAgeFiltered
	}
	if r.bannerID < MinBannerID || r.bannerID > MaxBannerID {
		return ErrBannerOutOfRange
	}
	return nil
}

// Transform converts the record to the ShowAds wire format.
func (r Record) Transform() BannerView {
	return BannerView{VisitorCookie: r.cookie, BannerID: r.bannerID}
}

// Line renders the record as a CSV line: name,age,cookie,banner_id.
func (r Record) Line() string {
	return strings.Join([]string{
		r.name,
		strconv.Itoa(r.age),
		r.cookie,
		strconv.Itoa(r.bannerID),
	}, ",")
}

// ParseLine is the inverse of Record.Line for valid records. Only the line
// terminator is stripped, so the name and cookie keep surrounding spaces.
// Columns after the fourth are ignored.
func ParseLine(line string) (Record, error) {
	fields := strings.Split(strings.TrimRight(line, "\r\n"), ",")
	if len(fields) < 4 {
		return Record{}, fmt.Errorf("%w: expected 4 fields, got %d", ErrMalformedLine, len(fields))
	}

	age, err := strconv.Atoi(strings.TrimSpace(fields[1]))
	if err != nil {
		return Record{}, fmt.Errorf("%w: age: %v", ErrMalformedLine, err)
	}
	bannerID, err := strconv.Atoi(strings.TrimSpace(fields[3]))
	if err != nil {
		return Record{}, fmt.Errorf("%w: banner_id: %v", ErrMalformedLine, err)
	}

	return NewRecord(fields[0], age, fields[2], bannerID), nil
}

// AgeFilter carries explicit per-request age bounds. Nil means "not given".
type AgeFilter struct {
	MinAge *int
	MaxAge *int
}

// AgeLimits are resolved age bounds. A nil Max means unbounded.
type AgeLimits struct {
	Min int
	Max *int
}

// DefaultAgeLimits returns the built-in limits: minimum 18, no maximum.
func DefaultAgeLimits() AgeLimits {
	return AgeLimits{Min: DefaultMinAge}
}

// Resolve applies explicit filter values over the receiver, which holds the
// environment-level defaults.
func (l AgeLimits) Resolve(f AgeFilter) AgeLimits {
	out := l
	if f.MinAge != nil {
		out.Min = *f.MinAge
	}
	if f.MaxAge != nil {
		maxAge := *f.MaxAge
		out.Max = &maxAge
	}
	return out
}
