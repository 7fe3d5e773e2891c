package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/FACorreiaa/venue-sales-report/internal/domain/import/parser"
	"github.com/FACorreiaa/venue-sales-report/internal/domain/insights"
	"github.com/FACorreiaa/venue-sales-report/internal/domain/sales"
)

// allMonths disables the month filter.
const allMonths = "all"

// BadRequestError marks a query the handler could not interpret.
type BadRequestError struct {
	Param  string
	Reason string
}

func (e *BadRequestError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Param, e.Reason)
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(q url.Values, name string, defaultVal int) int {
	val := q.Get(name)
	if val == "" {
		return defaultVal
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return parsed
}

// parseBoolParam parses a boolean query parameter with a default value.
func parseBoolParam(q url.Values, name string, defaultVal bool) bool {
	val := q.Get(name)
	if val == "" {
		return defaultVal
	}
	return val == "true" || val == "1"
}

func parseCategory(q url.Values) (sales.Category, error) {
	raw := strings.TrimSpace(q.Get("category"))
	if raw == "" {
		return "", nil
	}
	c, ok := sales.ParseCategory(raw)
	if !ok {
		return "", &BadRequestError{Param: "category", Reason: fmt.Sprintf("unknown category %q", raw)}
	}
	return c, nil
}

func parseHours(q url.Values) (insights.HourWindow, error) {
	w, err := insights.ParseHourWindow(q.Get("hour_from"), q.Get("hour_to"))
	if err != nil {
		return insights.HourWindow{}, &BadRequestError{Param: "hour window", Reason: err.Error()}
	}
	return w, nil
}

// parseFilter reads month, q and category. A missing month keeps
// defaultMonth; "all" clears it.
func parseFilter(q url.Values, defaultMonth string) (insights.Filter, error) {
	category, err := parseCategory(q)
	if err != nil {
		return insights.Filter{}, err
	}
	f := insights.Filter{Month: defaultMonth, Text: q.Get("q"), Category: category}
	if q.Has("month") {
		f.Month = q.Get("month")
		if f.Month == allMonths {
			f.Month = ""
		}
	}
	return f, nil
}

// parseScope reads scope, day, hour_from, hour_to, from and to.
func parseScope(q url.Values, month, today string) (insights.Scope, error) {
	sc := insights.Scope{Kind: insights.ParseScopeKind(q.Get("scope")), Month: month}
	switch sc.Kind {
	case insights.ScopeDay:
		hours, err := parseHours(q)
		if err != nil {
			return insights.Scope{}, err
		}
		sc.Day, sc.Hours = dayParam(q, today), hours
	case insights.ScopeRange:
		sc.From, sc.To = q.Get("from"), q.Get("to")
	}
	return sc, nil
}

func dayParam(q url.Values, today string) string {
	if day := strings.TrimSpace(q.Get("day")); day != "" {
		return day
	}
	return today
}

func parseAmount(q url.Values, name string) float64 {
	return parser.ParseLocaleNumber(q.Get(name))
}
