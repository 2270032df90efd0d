// Package sqlstore implements domain.EntryStore on database/sql. The postgres
// and sqlite packages supply the driver, the schema and a Dialect.
package sqlstore

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Dialect captures the differences between the supported SQL engines
type Dialect int

const (
	Postgres Dialect = iota + 1
	SQLite
)

func (d Dialect) String() string {
	switch d {
	case Postgres:
		return "postgres"
	case SQLite:
		return "sqlite"
	default:
		return fmt.Sprintf("Dialect(%d)", int(d))
	}
}

// Rebind rewrites ? placeholders into the dialect's form. Queries in this
// package never contain a literal question mark.
func (d Dialect) Rebind(query string) string {
	if d != Postgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// timeArg encodes t for a query argument. SQLite keeps a fixed-width UTC text
// form so that ordering on the column matches chronological order.
func (d Dialect) timeArg(t time.Time) any {
	if d == SQLite {
		return sortableTime(t)
	}
	return t
}

// sortableLayout is the part of the SQLite form after the zero-padded year.
const sortableLayout = "-01-02T15:04:05.000000000Z"

var (
	minSortable = time.Date(0, 1, 1, 0, 0, 0, 0, time.UTC)
	maxSortable = time.Date(99999, 12, 31, 23, 59, 59, 999999999, time.UTC)
)

// sortableTime formats t as a five digit year followed by sortableLayout.
// Query bounds outside years 0..99999 are clamped; entries never get there.
func sortableTime(t time.Time) string {
	t = t.UTC()
	switch {
	case t.Before(minSortable):
		t = minSortable
	case t.After(maxSortable):
		t = maxSortable
	}
	return fmt.Sprintf("%05d", t.Year()) + t.Format(sortableLayout)
}

func parseSortableTime(s string) (time.Time, bool) {
	if len(s) != 5+len(sortableLayout) {
		return time.Time{}, false
	}
	year, err := strconv.Atoi(s[:5])
	if err != nil {
		return time.Time{}, false
	}
	// 2000 is a leap year, so every stored month and day parses.
	rest, err := time.Parse("2006"+sortableLayout, "2000"+s[5:])
	if err != nil {
		return time.Time{}, false
	}
	return time.Date(year, rest.Month(), rest.Day(), rest.Hour(), rest.Minute(), rest.Second(), rest.Nanosecond(), time.UTC), true
}

// lockStatement is executed first in every transaction.
func (d Dialect) lockStatement() string {
	if d == Postgres {
		return "SELECT pg_advisory_xact_lock(?)"
	}
	return ""
}

// ledgerLockID is the postgres advisory lock key of the single ledger.
const ledgerLockID int64 = 0x6c6564676572

// timeValue scans either a native timestamp or the SQLite text form.
type timeValue struct {
	t *time.Time
}

func (v timeValue) Scan(src any) error {
	switch s := src.(type) {
	case time.Time:
		*v.t = s.UTC()
	case []byte:
		return v.parse(string(s))
	case string:
		return v.parse(s)
	default:
		return fmt.Errorf("cannot scan %T into time", src)
	}
	return nil
}

func (v timeValue) parse(s string) error {
	if t, ok := parseSortableTime(s); ok {
		*v.t = t
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return fmt.Errorf("parse time %q: %w", s, err)
	}
	*v.t = t.UTC()
	return nil
}
