package parser

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ParseLocaleNumber converts a raw cell value into a number. It never fails:
// anything that cannot be read as a number yields 0.
//
// When both '.' and ',' appear, the one occurring last is the decimal
// separator ("3.500,00" is 3500, "1,234.56" is 1234.56). A single ',' is a
// decimal comma. A separator repeated with no other separator present is a
// thousands separator.
func ParseLocaleNumber(v any) float64 {
	switch n := v.(type) {
	case nil:
		return 0
	case float64:
		return finite(n)
	case float32:
		return finite(float64(n))
	case int:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case json.Number:
		return parseNumberString(n.String())
	case decimal.Decimal:
		return n.InexactFloat64()
	case string:
		return parseNumberString(n)
	default:
		return 0
	}
}

func finite(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

func parseNumberString(raw string) float64 {
	cleaned := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' || r == ',' || r == '.' || r == '-' {
			return r
		}
		return -1
	}, strings.TrimSpace(raw))

	negative := strings.HasPrefix(cleaned, "-")
	cleaned = strings.ReplaceAll(cleaned, "-", "")
	if strings.IndexFunc(cleaned, func(r rune) bool { return r >= '0' && r <= '9' }) < 0 {
		return 0
	}

	lastComma := strings.LastIndex(cleaned, ",")
	lastDot := strings.LastIndex(cleaned, ".")

	var intPart, fracPart string
	switch {
	case lastComma >= 0 && lastDot >= 0:
		sep := lastComma
		if lastDot > lastComma {
			sep = lastDot
		}
		intPart, fracPart = cleaned[:sep], cleaned[sep+1:]
	case lastComma >= 0:
		intPart, fracPart = splitSingleSeparator(cleaned, ",")
	case lastDot >= 0:
		intPart, fracPart = splitSingleSeparator(cleaned, ".")
	default:
		intPart = cleaned
	}

	intPart = stripSeparators(intPart)
	fracPart = stripSeparators(fracPart)
	if intPart == "" {
		intPart = "0"
	}
	s := intPart
	if fracPart != "" {
		s += "." + fracPart
	}
	if negative {
		s = "-" + s
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0
	}
	return d.InexactFloat64()
}

// splitSingleSeparator treats one occurrence of sep as a decimal mark and
// several occurrences as thousands grouping.
func splitSingleSeparator(s, sep string) (string, string) {
	if strings.Count(s, sep) > 1 {
		return s, ""
	}
	idx := strings.Index(s, sep)
	return s[:idx], s[idx+1:]
}

func stripSeparators(s string) string {
	return strings.NewReplacer(",", "", ".", "").Replace(s)
}

// spreadsheetEpoch is day zero of the spreadsheet serial date system.
var spreadsheetEpoch = struct{ year, month, day int }{1899, 12, 30}

var (
	serialPattern = regexp.MustCompile(`^-?\d+(\.\d+)?$`)
	isoPattern    = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})(?:[T ](\d{1,2}):(\d{2})(?::(\d{2})(?:\.\d+)?)?)?$`)
	dmyPattern    = regexp.MustCompile(`^(\d{1,2})[/.\-](\d{1,2})[/.\-](\d{4}|\d{2})(?:[ T,]+(\d{1,2}):(\d{2})(?::(\d{2}))?)?$`)
)

// genericLayouts are tried last, in order.
var genericLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05Z0700",
	time.RFC1123Z,
	time.RFC1123,
	time.RFC850,
	time.ANSIC,
	time.UnixDate,
	"Mon Jan 02 2006 15:04:05 GMT-0700",
	"Jan 2, 2006 15:04",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006 15:04",
	"2 Jan 2006",
	"2006/01/02 15:04:05",
	"2006/01/02",
}

// ParseFlexibleDate parses a date written in any of the formats found in
// venue spreadsheets. Wall-clock values are interpreted in loc (UTC when nil).
// The second return value is false when no strategy applies; callers pick
// their own fallback.
func ParseFlexibleDate(raw string, loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.UTC
	}
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}

	if serialPattern.MatchString(s) {
		serial, err := strconv.ParseFloat(s, 64)
		if err == nil {
			return FromSerial(serial, loc), true
		}
	}

	if m := isoPattern.FindStringSubmatch(s); m != nil {
		if t, ok := buildDate(atoi(m[1]), atoi(m[2]), atoi(m[3]), m[4], m[5], m[6], loc); ok {
			return t, true
		}
	}

	if m := dmyPattern.FindStringSubmatch(s); m != nil {
		year := atoi(m[3])
		if len(m[3]) == 2 {
			year += 2000
		}
		if t, ok := buildDate(year, atoi(m[2]), atoi(m[1]), m[4], m[5], m[6], loc); ok {
			return t, true
		}
	}

	for _, layout := range genericLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseDateValue is ParseFlexibleDate for raw cell values. Numbers are read
// as spreadsheet serial dates.
func ParseDateValue(v any, loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.UTC
	}
	switch d := v.(type) {
	case nil:
		return time.Time{}, false
	case time.Time:
		return d.In(loc), !d.IsZero()
	case float64:
		if math.IsNaN(d) || math.IsInf(d, 0) {
			return time.Time{}, false
		}
		return FromSerial(d, loc), true
	case int:
		return FromSerial(float64(d), loc), true
	case int64:
		return FromSerial(float64(d), loc), true
	}
	return ParseFlexibleDate(ToString(v), loc)
}

// FromSerial converts a spreadsheet serial date (days since 1899-12-30, the
// fraction being the time of day) into a wall-clock time in loc.
func FromSerial(serial float64, loc *time.Location) time.Time {
	days := math.Floor(serial)
	millis := math.Round((serial - days) * 24 * 60 * 60 * 1000)
	base := time.Date(spreadsheetEpoch.year, time.Month(spreadsheetEpoch.month), spreadsheetEpoch.day, 0, 0, 0, 0, loc)
	return base.AddDate(0, 0, int(days)).Add(time.Duration(millis) * time.Millisecond)
}

func buildDate(year, month, day int, hh, mm, ss string, loc *time.Location) (time.Time, bool) {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	hour, minute, second := atoi(hh), atoi(mm), atoi(ss)
	if hour > 23 || minute > 59 || second > 59 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, hour, minute, second, 0, loc)
	// time.Date normalizes 31/02 into March; reject instead
	if t.Day() != day || int(t.Month()) != month {
		return time.Time{}, false
	}
	return t, true
}

func atoi(s string) int {
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

// ToString renders a raw cell value as text. Whole numbers print without a
// fractional part; structured values print as JSON.
func ToString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(s), 'f', -1, 32)
	case int:
		return strconv.Itoa(s)
	case int64:
		return strconv.FormatInt(s, 10)
	case bool:
		return strconv.FormatBool(s)
	case json.Number:
		return s.String()
	case time.Time:
		return s.Format(time.RFC3339)
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(data)
	}
}
