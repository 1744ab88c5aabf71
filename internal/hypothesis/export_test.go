package hypothesis

import (
	"database/sql"
	"time"
)

// DB exposes the internal *sql.DB for test helpers in hypothesis_test.
func (s *Store) DB() *sql.DB {
	return s.db
}

// SetTimeNow swaps the clock and returns a restore func.
func SetTimeNow(fn func() time.Time) func() {
	prev := timeNow
	timeNow = fn
	return func() { timeNow = prev }
}
