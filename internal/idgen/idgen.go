// Package idgen issues record ids. Ids are UUIDv7 strings, so they sort by
// creation time when compared lexicographically.
package idgen

import (
	"time"

	"github.com/google/uuid"
)

// New returns a fresh time-ordered id.
func New() string {
	id, err := uuid.NewV7()
	if err != nil {
		// NewV7 only fails when the system random source does.
		return uuid.NewString()
	}
	return id.String()
}

// NowMillis returns t as epoch milliseconds, the unit of every stored timestamp.
func NowMillis(t time.Time) int64 { return t.UnixMilli() }
