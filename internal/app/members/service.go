// Package members is the membership registry: lookups answering whether a user
// belongs to a trip and in which role.
//
// It never takes trip locks itself. Callers that need a membership snapshot to stay
// valid across a write hold the trip lock around these calls.
package members

import (
	"context"
	"errors"
	"fmt"

	"github.com/Overland-East-Bay/trip-wallet-api/internal/domain"
	"github.com/Overland-East-Bay/trip-wallet-api/internal/ports/out/memberrepo"
	"github.com/Overland-East-Bay/trip-wallet-api/internal/ports/out/triprepo"
)

type Service struct {
	trips   triprepo.Repository
	members memberrepo.Repository
}

func NewService(tripsRepo triprepo.Repository, membersRepo memberrepo.Repository) *Service {
	return &Service{trips: tripsRepo, members: membersRepo}
}

// Trip loads a trip, mapping a missing record to TRIP_NOT_FOUND.
func (s *Service) Trip(ctx context.Context, id domain.TripID) (domain.Trip, error) {
	t, err := s.trips.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, triprepo.ErrNotFound) {
			return domain.Trip{}, &domain.Error{Kind: domain.KindTripNotFound, Field: "trip_id", Message: "trip not found"}
		}
		return domain.Trip{}, fmt.Errorf("load trip: %w", err)
	}
	return t, nil
}

func (s *Service) IsMember(ctx context.Context, trip domain.TripID, user domain.UserID) (bool, error) {
	if _, err := s.members.Get(ctx, trip, user); err != nil {
		if errors.Is(err, memberrepo.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("load member: %w", err)
	}
	return true, nil
}

// RequireMember returns the user's membership or a NOT_MEMBER error.
func (s *Service) RequireMember(ctx context.Context, trip domain.TripID, user domain.UserID) (domain.TripMember, error) {
	return s.requireMemberField(ctx, trip, user, "")
}

// RequireMemberField is RequireMember with the offending input field named in the error.
func (s *Service) RequireMemberField(ctx context.Context, trip domain.TripID, user domain.UserID, field string) (domain.TripMember, error) {
	return s.requireMemberField(ctx, trip, user, field)
}

func (s *Service) requireMemberField(ctx context.Context, trip domain.TripID, user domain.UserID, field string) (domain.TripMember, error) {
	m, err := s.members.Get(ctx, trip, user)
	if err != nil {
		if errors.Is(err, memberrepo.ErrNotFound) {
			return domain.TripMember{}, &domain.Error{
				Kind:    domain.KindNotMember,
				Field:   field,
				Message: fmt.Sprintf("user %s is not a member of this trip", user),
			}
		}
		return domain.TripMember{}, fmt.Errorf("load member: %w", err)
	}
	return m, nil
}

// RequireOwner returns the owner's membership, NOT_MEMBER for outsiders and
// ROLE_REQUIRED for plain members.
func (s *Service) RequireOwner(ctx context.Context, trip domain.TripID, user domain.UserID) (domain.TripMember, error) {
	m, err := s.RequireMember(ctx, trip, user)
	if err != nil {
		return domain.TripMember{}, err
	}
	if !m.IsOwner() {
		return domain.TripMember{}, &domain.Error{Kind: domain.KindRole, Message: "only the trip owner can do this"}
	}
	return m, nil
}

// MemberIDs snapshots the current member ids in join order.
func (s *Service) MemberIDs(ctx context.Context, trip domain.TripID) (domain.UserSet, error) {
	ms, err := s.List(ctx, trip)
	if err != nil {
		return domain.UserSet{}, err
	}
	set := domain.NewUserSet()
	for _, m := range ms {
		set.Add(m.UserID)
	}
	return set, nil
}

// List returns the trip's members in join order.
func (s *Service) List(ctx context.Context, trip domain.TripID) ([]domain.TripMember, error) {
	ms, err := s.members.ListByTrip(ctx, trip)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	return ms, nil
}
