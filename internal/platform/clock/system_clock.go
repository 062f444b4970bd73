package clock

import "time"

// SystemClock returns the current UTC time at microsecond precision, the
// resolution Postgres keeps for timestamptz. Records read back from either
// backend therefore compare equal to the values the services returned.
type SystemClock struct{}

func NewSystemClock() SystemClock { return SystemClock{} }

func (SystemClock) Now() time.Time { return time.Now().UTC().Truncate(time.Microsecond) }
