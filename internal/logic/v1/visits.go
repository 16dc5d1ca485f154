package v1

import (
	"strconv"
	"time"
)

// Session keys written by the visit tracker.
const (
	VisitsKey    = "visits"
	LastVisitKey = "last_visit"
)

// LastVisitLayout is how last_visit is serialized in the session.
const LastVisitLayout = "2006-01-02 15:04:05.000000"

// lastVisitSuffix is the width of the fractional-second suffix stripped
// before parsing. Values of any other shape fail to parse and fall back to
// "now".
// TODO: store last_visit as RFC 3339 once existing sessions have expired.
const lastVisitSuffix = len(".000000")

const lastVisitParseLayout = "2006-01-02 15:04:05"

// VisitState is the visit counter kept in the client's session.
type VisitState struct {
	Visits    int
	LastVisit string
}

// LoadVisitState builds the state from raw session values. A missing or
// non-integer visits count defaults to 1; a missing or unparsable
// last_visit defaults to now.
func LoadVisitState(rawVisits, rawLastVisit string, now time.Time) VisitState {
	visits, err := strconv.Atoi(rawVisits)
	if err != nil {
		visits = 1
	}

	lastVisit := rawLastVisit
	if _, ok := parseLastVisit(lastVisit); !ok {
		lastVisit = FormatLastVisit(now)
	}

	return VisitState{Visits: visits, LastVisit: lastVisit}
}

// Next decides whether this request is a new visit. When at least window
// has elapsed since LastVisit, counted in whole seconds, the count grows by
// one and LastVisit moves to now. Otherwise the count resets to 1 and
// LastVisit is kept.
func (s VisitState) Next(now time.Time, window time.Duration) VisitState {
	last, ok := parseLastVisit(s.LastVisit)
	if !ok {
		last = truncateToSecond(now)
	}

	elapsed := now.Sub(last).Truncate(time.Second)
	if elapsed > 0 && elapsed >= window {
		return VisitState{Visits: s.Visits + 1, LastVisit: FormatLastVisit(now)}
	}
	return VisitState{Visits: 1, LastVisit: s.LastVisit}
}

// Counted reports whether next is an increment over s.
func (s VisitState) Counted(next VisitState) bool {
	return next.LastVisit != s.LastVisit
}

// FormatLastVisit serializes t for the session.
func FormatLastVisit(t time.Time) string {
	return t.UTC().Format(LastVisitLayout)
}

func parseLastVisit(raw string) (time.Time, bool) {
	if len(raw) <= lastVisitSuffix {
		return time.Time{}, false
	}
	t, err := time.Parse(lastVisitParseLayout, raw[:len(raw)-lastVisitSuffix])
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func truncateToSecond(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}

// SessionValues is the session surface the tracker needs.
type SessionValues interface {
	Get(key string) string
	Set(key, value string)
}

// VisitTracker applies VisitState.Next to a live session.
type VisitTracker struct {
	window time.Duration
	now    func() time.Time
}

// NewVisitTracker creates a tracker counting a new visit once window has elapsed.
func NewVisitTracker(window time.Duration) *VisitTracker {
	return &VisitTracker{window: window, now: time.Now}
}

// Track updates visits and last_visit in the session and returns the new
// state. It never fails: malformed values are replaced by defaults.
func (t *VisitTracker) Track(sess SessionValues) VisitState {
	now := t.now().UTC()
	prev := LoadVisitState(sess.Get(VisitsKey), sess.Get(LastVisitKey), now)
	next := prev.Next(now, t.window)

	sess.Set(VisitsKey, strconv.Itoa(next.Visits))
	sess.Set(LastVisitKey, next.LastVisit)
	return next
}
