// Package insights aggregates normalized sales for the dashboard. Every
// function is pure: it reads the slice it is given and returns fresh values.
package insights

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/FACorreiaa/venue-sales-report/internal/domain/sales"
)

const (
	dayLayout   = "2006-01-02"
	monthLayout = "2006-01"
)

// ErrInvalidClock is returned for an hour bound that is not HH:MM.
var ErrInvalidClock = errors.New("invalid clock time, expected HH:MM")

// HourWindow restricts sales to a time of day. Either bound may be open; when
// To is earlier than From the window wraps past midnight.
type HourWindow struct {
	// From and To are minutes after midnight.
	From    int  `json:"from"`
	To      int  `json:"to"`
	HasFrom bool `json:"has_from"`
	HasTo   bool `json:"has_to"`
}

// ParseHourWindow builds a window from two optional HH:MM strings.
func ParseHourWindow(from, to string) (HourWindow, error) {
	var w HourWindow
	if from = strings.TrimSpace(from); from != "" {
		m, err := parseClock(from)
		if err != nil {
			return HourWindow{}, err
		}
		w.From, w.HasFrom = m, true
	}
	if to = strings.TrimSpace(to); to != "" {
		m, err := parseClock(to)
		if err != nil {
			return HourWindow{}, err
		}
		w.To, w.HasTo = m, true
	}
	return w, nil
}

func parseClock(s string) (int, error) {
	hh, mm, ok := strings.Cut(s, ":")
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	return h*60 + m, nil
}

// IsOpen reports whether the window lets every time through.
func (w HourWindow) IsOpen() bool {
	return !w.HasFrom && !w.HasTo
}

// Contains reports whether t falls inside the window, bounds included.
func (w HourWindow) Contains(t time.Time) bool {
	mins := t.Hour()*60 + t.Minute()
	switch {
	case w.HasFrom && w.HasTo:
		if w.To >= w.From {
			return mins >= w.From && mins <= w.To
		}
		return mins >= w.From || mins <= w.To
	case w.HasFrom:
		return mins >= w.From
	case w.HasTo:
		return mins <= w.To
	default:
		return true
	}
}

// String renders the window as "HH:MM-HH:MM", with "--:--" for open bounds.
func (w HourWindow) String() string {
	if w.IsOpen() {
		return ""
	}
	return clockLabel(w.From, w.HasFrom) + "-" + clockLabel(w.To, w.HasTo)
}

func clockLabel(mins int, ok bool) string {
	if !ok {
		return "--:--"
	}
	return fmt.Sprintf("%02d:%02d", mins/60, mins%60)
}

// ScopeKind selects which sales a Scope keeps.
type ScopeKind string

const (
	ScopeDay   ScopeKind = "day"
	ScopeMonth ScopeKind = "month"
	ScopeRange ScopeKind = "range"
)

// ParseScopeKind accepts the English names and the dashboard's Spanish ones.
func ParseScopeKind(s string) ScopeKind {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "day", "dia", "día":
		return ScopeDay
	case "range", "rango":
		return ScopeRange
	default:
		return ScopeMonth
	}
}

// Scope is the slice of time an aggregation looks at.
type Scope struct {
	Kind ScopeKind `json:"kind"`

	// Day (YYYY-MM-DD) and Hours apply to day scopes.
	Day   string     `json:"day,omitempty"`
	Hours HourWindow `json:"hours"`

	// Month is YYYY-MM.
	Month string `json:"month,omitempty"`

	// From and To are inclusive YYYY-MM-DD bounds of a range scope.
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`
}

// Apply returns the sales inside the scope, in input order. A range scope
// missing either bound selects nothing.
func (s Scope) Apply(all []sales.Sale) []sales.Sale {
	keep := s.matcher()
	if keep == nil {
		return nil
	}
	out := make([]sales.Sale, 0, len(all))
	for _, sale := range all {
		if keep(sale) {
			out = append(out, sale)
		}
	}
	return out
}

func (s Scope) matcher() func(sales.Sale) bool {
	switch s.Kind {
	case ScopeDay:
		return func(sale sales.Sale) bool {
			return sale.DayKey() == s.Day && s.Hours.Contains(sale.OccurredAt)
		}
	case ScopeRange:
		if !validKey(dayLayout, s.From) || !validKey(dayLayout, s.To) {
			return nil
		}
		return func(sale sales.Sale) bool {
			day := sale.DayKey()
			return day >= s.From && day <= s.To
		}
	default:
		return func(sale sales.Sale) bool {
			return sale.MonthKey() == s.Month
		}
	}
}

func validKey(layout, value string) bool {
	if value == "" {
		return false
	}
	_, err := time.Parse(layout, value)
	return err == nil
}
