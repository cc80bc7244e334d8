// Package ledger partitions transactions into budget cycles and derives
// per-person spending figures from them.
//
// A cycle named (year, month) runs from the cycle start day of the previous
// calendar month up to, but excluding, the start day of the named month.
// Months are 0-based: (2025, 0) is the cycle ending on the start day of
// January 2025.
package ledger

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"duoledger/internal/core"
)

// AllMonths selects the whole calendar year instead of one cycle.
const AllMonths = -1

const DefaultCycleStartDay = 20

var (
	ErrAllMonthsBudget = errors.New("budgets cannot be set for the whole year")
	ErrInvalidCycle    = errors.New("invalid cycle")
)

type CycleKey struct {
	Year  int
	Month int // 0..11 or AllMonths
}

func (k CycleKey) IsAll() bool { return k.Month == AllMonths }

func (k CycleKey) Valid() bool {
	return k.Year > 0 && (k.IsAll() || (k.Month >= 0 && k.Month <= 11))
}

// String renders "2025-01" (1-based month) or "2025-ALL".
func (k CycleKey) String() string {
	if k.IsAll() {
		return fmt.Sprintf("%04d-ALL", k.Year)
	}
	return fmt.Sprintf("%04d-%02d", k.Year, k.Month+1)
}

// ParseMonth accepts a 0-based month index or "ALL".
func ParseMonth(s string) (int, error) {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "all") {
		return AllMonths, nil
	}
	m, err := strconv.Atoi(s)
	if err != nil || m < 0 || m > 11 {
		return 0, fmt.Errorf("%w: month %q", ErrInvalidCycle, s)
	}
	return m, nil
}

// NormalizeStartDay clamps a configured start day into 1..31.
func NormalizeStartDay(day int) int {
	switch {
	case day < 1:
		return 1
	case day > 31:
		return 31
	}
	return day
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// boundary is the start day of the given 0-based month, clamped to the
// month's last day. month -1 means December of the previous year.
func boundary(year, month, day int) time.Time {
	if month < 0 {
		year, month = year-1, 11
	}
	if month > 11 {
		year, month = year+1, 0
	}
	m := time.Month(month + 1)
	if last := daysIn(year, m); day > last {
		day = last
	}
	return time.Date(year, m, day, 0, 0, 0, 0, time.UTC)
}

// Window returns the half-open interval [start, end) covered by key.
func Window(key CycleKey, startDay int) (start, end time.Time) {
	if key.IsAll() {
		return time.Date(key.Year, time.January, 1, 0, 0, 0, 0, time.UTC),
			time.Date(key.Year+1, time.January, 1, 0, 0, 0, 0, time.UTC)
	}
	day := NormalizeStartDay(startDay)
	return boundary(key.Year, key.Month-1, day), boundary(key.Year, key.Month, day)
}

// CycleOf returns the one cycle whose window contains d.
func CycleOf(d time.Time, startDay int) CycleKey {
	day := NormalizeStartDay(startDay)
	date := core.DateOf(d).Time
	y, m := date.Year(), int(date.Month())-1
	if !date.Before(boundary(y, m, day)) {
		m++
		if m > 11 {
			y, m = y+1, 0
		}
	}
	return CycleKey{Year: y, Month: m}
}

// Contains reports whether d falls inside key's window.
func Contains(key CycleKey, startDay int, d core.Date) bool {
	if d.IsZero() {
		return false
	}
	start, end := Window(key, startDay)
	return !d.Before(start) && d.Before(end)
}

// Partition returns the transactions dated inside key's window, in input
// order. Undated transactions never match.
func Partition(txs []core.Transaction, key CycleKey, startDay int) []core.Transaction {
	out := make([]core.Transaction, 0, len(txs))
	for _, tx := range txs {
		if Contains(key, startDay, tx.Date) {
			out = append(out, tx)
		}
	}
	return out
}
