package trips

import (
	"time"

	"github.com/Overland-East-Bay/trip-wallet-api/internal/app/patch"
	"github.com/Overland-East-Bay/trip-wallet-api/internal/domain"
)

type CreateTripInput struct {
	Name         string
	StartDate    *time.Time
	EndDate      *time.Time
	BaseCurrency string
}

// CreateInviteInput controls invite expiry.
// Unspecified uses DefaultInviteHours; null issues a code that never expires.
type CreateInviteInput struct {
	ExpiresInHours patch.Optional[int]
}

const (
	DefaultInviteHours = 24
	MaxInviteHours     = 720
)

type JoinResult struct {
	TripID domain.TripID
	// Joined is false when the caller was already a member.
	Joined bool
}
