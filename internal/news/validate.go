package news

import (
	"errors"
	"net/url"
	"strings"
	"time"
)

var (
	ErrMissingDate      = errors.New("missing publication date")
	ErrTooOld           = errors.New("published before recency window")
	ErrBadURL           = errors.New("url is not absolute http(s)")
	ErrEmptyTitle       = errors.New("empty title")
	ErrUnnormalizedTime = errors.New("publication time not normalized to UTC")
)

// NormalizeTime converts an offset-aware timestamp to UTC.
func NormalizeTime(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}

// ParseNaive parses a timestamp without zone information, interpreting it in
// zone (UTC when nil), and returns it in UTC.
func ParseNaive(layout, value string, zone *time.Location) (time.Time, error) {
	if zone == nil {
		zone = time.UTC
	}
	t, err := time.ParseInLocation(layout, strings.TrimSpace(value), zone)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// Validator is the recency and validity filter.
type Validator struct {
	Window time.Duration
}

// Valid returns nil when the candidate may enter the pipeline, otherwise the
// reason it was rejected.
func (v Validator) Valid(c Candidate, now time.Time) error {
	if c.Published.IsZero() {
		return ErrMissingDate
	}
	if c.Published.Location() != time.UTC {
		return ErrUnnormalizedTime
	}
	if c.Published.Before(now.UTC().Add(-v.Window)) {
		return ErrTooOld
	}
	if !IsHTTPURL(c.URL) {
		return ErrBadURL
	}
	if strings.TrimSpace(c.Title) == "" {
		return ErrEmptyTitle
	}
	return nil
}

// Filter keeps valid candidates in order and counts rejections by reason.
func (v Validator) Filter(cands []Candidate, now time.Time) ([]Candidate, map[string]int) {
	kept := make([]Candidate, 0, len(cands))
	rejected := map[string]int{}
	for _, c := range cands {
		if err := v.Valid(c, now); err != nil {
			rejected[err.Error()]++
			continue
		}
		kept = append(kept, c)
	}
	return kept, rejected
}

// IsHTTPURL reports whether s is an absolute http or https URL.
func IsHTTPURL(s string) bool {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil || u.Host == "" {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}
