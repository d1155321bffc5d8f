package scheduler

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// NextRun computes the first fire time strictly after the given instant for
// a five-field cron expression. Common fixed-time schedules (literal minute
// and hour, wildcard month, wildcard or literal day fields) are computed
// directly; everything else goes through the full cron parser.
func NextRun(expr string, after time.Time) (time.Time, error) {
	if next, ok := nextFixedTime(expr, after); ok {
		return next, nil
	}

	sched, err := cron.ParseStandard(expr)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse schedule %q: %w", expr, err)
	}
	return sched.Next(after), nil
}

// nextFixedTime handles the "at HH:MM daily / weekly / monthly" shapes that
// cover nearly every job in practice.
func nextFixedTime(expr string, after time.Time) (time.Time, bool) {
	fields := strings.Fields(expr)
	if len(fields) != 5 {
		return time.Time{}, false
	}

	minute, err := strconv.Atoi(fields[0])
	if err != nil || minute < 0 || minute > 59 {
		return time.Time{}, false
	}
	hour, err := strconv.Atoi(fields[1])
	if err != nil || hour < 0 || hour > 23 {
		return time.Time{}, false
	}
	if fields[3] != "*" {
		return time.Time{}, false
	}

	dom, domLiteral, ok := wildcardOrLiteral(fields[2], 1, 31)
	if !ok {
		return time.Time{}, false
	}
	dow, dowLiteral, ok := wildcardOrLiteral(fields[4], 0, 6)
	if !ok {
		return time.Time{}, false
	}
	if domLiteral && dowLiteral {
		// Standard cron fires when either day field matches; only the full
		// parser gets that union right.
		return time.Time{}, false
	}

	// Walk day by day from today; 366 days always contains the next match
	// for these shapes.
	day := time.Date(after.Year(), after.Month(), after.Day(), 0, 0, 0, 0, after.Location())
	for i := 0; i < 366; i++ {
		candidate := day.AddDate(0, 0, i)
		if domLiteral && candidate.Day() != dom {
			continue
		}
		if dowLiteral && int(candidate.Weekday()) != dow {
			continue
		}
		at := time.Date(candidate.Year(), candidate.Month(), candidate.Day(), hour, minute, 0, 0, after.Location())
		if at.After(after) {
			return at, true
		}
	}
	return time.Time{}, false
}

func wildcardOrLiteral(field string, min, max int) (value int, literal, ok bool) {
	if field == "*" {
		return 0, false, true
	}
	v, err := strconv.Atoi(field)
	if err != nil || v < min || v > max {
		return 0, false, false
	}
	return v, true, true
}
