package clock

import "time"

// Clock supplies timestamps for created_at, updated_at, invite expiry and
// idempotency records. Tests swap in a manual clock.
type Clock interface {
	Now() time.Time
}
