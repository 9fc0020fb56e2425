// Package dates converts the heterogeneous date and time encodings
// found in spreadsheet exports (Excel serial day counts, DD/MM/YYYY,
// DD-MM-YYYY, ISO strings, fractional-day times, military HHMM) into
// a single internal representation. Exports in this domain arrive in
// at least four encodings depending on tool and locale; one tolerant
// parser keeps that mess out of the ingestion call sites.
package dates

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidDate marks a cell that cannot be interpreted as a valid,
// non-future calendar date.
var ErrInvalidDate = errors.New("invalid date")

// excelEpochOffset is the number of days between the Excel/Sheets
// epoch (1899-12-30) and the Unix epoch (1970-01-01).
const excelEpochOffset = 25569

// ParseDate interprets a spreadsheet cell as a calendar date.
// Accepted encodings: numeric serial day counts, DD/MM/YYYY,
// DD-MM-YYYY (2-digit years expanded: <50 to 2000s, >=50 to 1900s)
// and ISO strings. Dates after now are rejected.
func ParseDate(cell string, now time.Time) (time.Time, error) {
	s := strings.TrimSpace(cell)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty cell", ErrInvalidDate)
	}

	if serial, err := strconv.ParseFloat(s, 64); err == nil {
		return fromSerial(serial, now)
	}

	if t, err := parseISO(s); err == nil {
		return rejectFuture(t, now)
	}

	sep := ""
	switch {
	case strings.Contains(s, "/"):
		sep = "/"
	case strings.Contains(s, "-"):
		sep = "-"
	default:
		return time.Time{}, fmt.Errorf("%w: unrecognized format %q", ErrInvalidDate, cell)
	}

	parts := strings.Split(s, sep)
	if len(parts) != 3 {
		return time.Time{}, fmt.Errorf("%w: unrecognized format %q", ErrInvalidDate, cell)
	}

	day, errD := strconv.Atoi(strings.TrimSpace(parts[0]))
	month, errM := strconv.Atoi(strings.TrimSpace(parts[1]))
	year, errY := strconv.Atoi(strings.TrimSpace(parts[2]))
	if errD != nil || errM != nil || errY != nil {
		return time.Time{}, fmt.Errorf("%w: non-numeric components in %q", ErrInvalidDate, cell)
	}

	if year < 100 {
		if year < 50 {
			year += 2000
		} else {
			year += 1900
		}
	}

	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, fmt.Errorf("%w: out of range components in %q", ErrInvalidDate, cell)
	}

	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes overflow (e.g. 31/04 becomes 01/05); treat
	// that as an invalid calendar date rather than silently shifting.
	if t.Day() != day || t.Month() != time.Month(month) {
		return time.Time{}, fmt.Errorf("%w: no such calendar date %q", ErrInvalidDate, cell)
	}
	return rejectFuture(t, now)
}

// fromSerial converts an Excel/Sheets serial day count. Serial 1 is
// 1899-12-31; the fractional part (time of day) is discarded here.
func fromSerial(serial float64, now time.Time) (time.Time, error) {
	days := math.Floor(serial)
	if days < 1 {
		return time.Time{}, fmt.Errorf("%w: serial %v out of range", ErrInvalidDate, serial)
	}
	t := time.Unix(int64((days-excelEpochOffset)*86400), 0).UTC()
	return rejectFuture(t, now)
}

func parseISO(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("not ISO")
}

func rejectFuture(t, now time.Time) (time.Time, error) {
	if t.After(now) {
		return time.Time{}, fmt.Errorf("%w: %s is in the future", ErrInvalidDate, t.Format("2006-01-02"))
	}
	return t, nil
}

// ParseTime interprets a spreadsheet cell as a time of day and
// returns it as "HH:MM". Accepted encodings: fractional-day numerics,
// military HHMM integers, and HH:MM / HH.MM strings. Invalid input
// yields the empty string; the caller decides whether that is fatal.
func ParseTime(cell string) string {
	s := strings.TrimSpace(cell)
	if s == "" {
		return ""
	}

	// Non-integral numerics above 1 (e.g. "9.05") are HH.MM strings,
	// not fractional days, so they fall through to separator parsing.
	if v, err := strconv.ParseFloat(s, 64); err == nil && (v < 1 || v == math.Trunc(v)) {
		return timeFromNumeric(v)
	}

	sep := ""
	switch {
	case strings.Contains(s, ":"):
		sep = ":"
	case strings.Contains(s, "."):
		sep = "."
	default:
		return ""
	}

	parts := strings.SplitN(s, sep, 3)
	if len(parts) < 2 {
		return ""
	}
	hh, errH := strconv.Atoi(strings.TrimSpace(parts[0]))
	mm, errM := strconv.Atoi(strings.TrimSpace(parts[1]))
	if errH != nil || errM != nil || hh < 0 || hh > 23 || mm < 0 || mm > 59 {
		return ""
	}
	return fmt.Sprintf("%02d:%02d", hh, mm)
}

func timeFromNumeric(v float64) string {
	// Fractional day (Excel time cell): 0.5 is noon.
	if v >= 0 && v < 1 {
		total := int(math.Round(v * 1440))
		if total == 1440 {
			total = 0
		}
		return fmt.Sprintf("%02d:%02d", total/60, total%60)
	}

	// Military HHMM integer: 930 is 09:30, 1745 is 17:45.
	if v == math.Trunc(v) && v >= 0 && v <= 2359 {
		n := int(v)
		hh, mm := n/100, n%100
		if hh <= 23 && mm <= 59 {
			return fmt.Sprintf("%02d:%02d", hh, mm)
		}
	}
	return ""
}
