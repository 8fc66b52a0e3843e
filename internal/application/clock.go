package application

import "time"

// Precision is the finest timestamp every database backend keeps (DATETIME(6),
// TIMESTAMPTZ). Anything finer would not survive a round trip.
const Precision = time.Microsecond

// Clock source of record timestamps
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return StorageTime(time.Now()) }

// StorageTime normalizes t to UTC at Precision.
func StorageTime(t time.Time) time.Time {
	return t.UTC().Truncate(Precision)
}
