package domain

import "time"

type TripStatus string

const (
	TripStatusActive   TripStatus = "active"
	TripStatusArchived TripStatus = "archived"
)

type MemberRole string

const (
	MemberRoleOwner  MemberRole = "owner"
	MemberRoleMember MemberRole = "member"
)

// Trip is the domain representation of a shared-expense trip.
type Trip struct {
	ID          TripID
	OwnerUserID UserID
	Name        string

	StartDate *time.Time // date-only semantics at the edges
	EndDate   *time.Time // date-only semantics at the edges

	// BaseCurrency is an upper-case ISO-4217 code; immutable once set.
	BaseCurrency string
	Status       TripStatus

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TripMember is a (trip, user, role) tuple. There is exactly one per (trip, user).
type TripMember struct {
	TripID   TripID
	UserID   UserID
	Role     MemberRole
	Nickname *string
	JoinedAt time.Time
}

func (m TripMember) IsOwner() bool { return m.Role == MemberRoleOwner }

// Invite is a join code for a trip. A trip has at most one active invite.
type Invite struct {
	ID        InviteID
	TripID    TripID
	Code      string
	ExpiresAt *time.Time
	IsActive  bool

	CreatedAt       time.Time
	CreatedByUserID UserID
}

// UsableAt reports why the invite cannot be redeemed at now, or nil.
func (i Invite) UsableAt(now time.Time) error {
	if !i.IsActive {
		return &Error{Kind: KindInviteInactive, Field: "invite_code", Message: "invite is no longer active"}
	}
	if i.ExpiresAt != nil && i.ExpiresAt.Before(now) {
		return &Error{Kind: KindInviteExpired, Field: "invite_code", Message: "invite has expired"}
	}
	return nil
}
