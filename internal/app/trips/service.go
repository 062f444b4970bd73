package trips

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Overland-East-Bay/trip-wallet-api/internal/app/members"
	"github.com/Overland-East-Bay/trip-wallet-api/internal/domain"
	"github.com/Overland-East-Bay/trip-wallet-api/internal/platform/logging"
	"github.com/Overland-East-Bay/trip-wallet-api/internal/platform/triplock"
	clockport "github.com/Overland-East-Bay/trip-wallet-api/internal/ports/out/clock"
	"github.com/Overland-East-Bay/trip-wallet-api/internal/ports/out/inviterepo"
	"github.com/Overland-East-Bay/trip-wallet-api/internal/ports/out/memberrepo"
	"github.com/Overland-East-Bay/trip-wallet-api/internal/ports/out/triprepo"
)

const inviteCodeAttempts = 3

type Service struct {
	trips    triprepo.Repository
	members  memberrepo.Repository
	invites  inviterepo.Repository
	registry *members.Service
	locks    *triplock.Registry
	clk      clockport.Clock
	log      *slog.Logger

	newTripID     func() domain.TripID
	newInviteID   func() domain.InviteID
	newInviteCode func() (string, error)
}

func NewService(
	tripsRepo triprepo.Repository,
	membersRepo memberrepo.Repository,
	invitesRepo inviterepo.Repository,
	registry *members.Service,
	locks *triplock.Registry,
	clk clockport.Clock,
	log *slog.Logger,
) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		trips:    tripsRepo,
		members:  membersRepo,
		invites:  invitesRepo,
		registry: registry,
		locks:    locks,
		clk:      clk,
		log:      logging.Component(log, "trips"),
		newTripID: func() domain.TripID {
			return domain.TripID(uuid.NewString())
		},
		newInviteID: func() domain.InviteID {
			return domain.InviteID(uuid.NewString())
		},
		newInviteCode: randomInviteCode,
	}
}

// SetNewTripIDForTest overrides trip ID generation for deterministic tests.
// It should not be used in production code.
func (s *Service) SetNewTripIDForTest(fn func() domain.TripID) {
	if fn != nil {
		s.newTripID = fn
	}
}

// SetNewInviteCodeForTest overrides invite code generation for deterministic tests.
func (s *Service) SetNewInviteCodeForTest(fn func() (string, error)) {
	if fn != nil {
		s.newInviteCode = fn
	}
}

// CreateTrip creates an active trip and makes the caller its owner.
func (s *Service) CreateTrip(ctx context.Context, caller domain.UserID, in CreateTripInput) (domain.Trip, error) {
	name := domain.NormalizeHumanName(in.Name)
	if name == "" {
		return domain.Trip{}, &domain.Error{Kind: domain.KindValidation, Field: "name", Message: "must be non-empty"}
	}
	base, err := domain.NormalizeCurrency(in.BaseCurrency)
	if err != nil {
		var de *domain.Error
		if errors.As(err, &de) {
			de.Field = "base_currency"
		}
		return domain.Trip{}, err
	}
	if in.StartDate != nil && in.EndDate != nil && in.EndDate.Before(*in.StartDate) {
		return domain.Trip{}, &domain.Error{Kind: domain.KindValidation, Field: "end_date", Message: "must be on or after start_date"}
	}

	now := s.clk.Now()
	t := domain.Trip{
		ID:           s.newTripID(),
		OwnerUserID:  caller,
		Name:         name,
		StartDate:    in.StartDate,
		EndDate:      in.EndDate,
		BaseCurrency: base,
		Status:       domain.TripStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.trips.Create(ctx, t); err != nil {
		return domain.Trip{}, fmt.Errorf("create trip: %w", err)
	}
	if err := s.members.Add(ctx, domain.TripMember{
		TripID:   t.ID,
		UserID:   caller,
		Role:     domain.MemberRoleOwner,
		JoinedAt: now,
	}); err != nil {
		return domain.Trip{}, fmt.Errorf("add owner: %w", err)
	}
	s.log.InfoContext(ctx, "trip created", logging.FieldTripID, t.ID, logging.FieldUserID, caller)
	return t, nil
}

func (s *Service) GetTrip(ctx context.Context, id domain.TripID, caller domain.UserID) (domain.Trip, error) {
	t, err := s.registry.Trip(ctx, id)
	if err != nil {
		return domain.Trip{}, err
	}
	if _, err := s.registry.RequireMember(ctx, id, caller); err != nil {
		return domain.Trip{}, err
	}
	return t, nil
}

// ListMyTrips returns the caller's trips in the order they joined them.
func (s *Service) ListMyTrips(ctx context.Context, caller domain.UserID) ([]domain.Trip, error) {
	ms, err := s.members.ListByUser(ctx, caller)
	if err != nil {
		return nil, fmt.Errorf("list memberships: %w", err)
	}
	out := make([]domain.Trip, 0, len(ms))
	for _, m := range ms {
		t, err := s.trips.GetByID(ctx, m.TripID)
		if err != nil {
			if errors.Is(err, triprepo.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("load trip %s: %w", m.TripID, err)
		}
		out = append(out, t)
	}
	return out, nil
}

// CreateInvite issues a fresh join code for the trip, deactivating the previous one.
func (s *Service) CreateInvite(ctx context.Context, id domain.TripID, caller domain.UserID, in CreateInviteInput) (domain.Invite, error) {
	if _, err := s.registry.Trip(ctx, id); err != nil {
		return domain.Invite{}, err
	}
	if _, err := s.registry.RequireOwner(ctx, id, caller); err != nil {
		return domain.Invite{}, err
	}

	now := s.clk.Now()
	var expiresAt *time.Time
	switch {
	case !in.ExpiresInHours.IsSpecified():
		v := now.Add(DefaultInviteHours * time.Hour)
		expiresAt = &v
	case in.ExpiresInHours.IsNull():
	default:
		h := in.ExpiresInHours.Value()
		if h < 1 || h > MaxInviteHours {
			return domain.Invite{}, &domain.Error{
				Kind:    domain.KindValidation,
				Field:   "expires_in_hours",
				Message: fmt.Sprintf("must be between 1 and %d", MaxInviteHours),
			}
		}
		v := now.Add(time.Duration(h) * time.Hour)
		expiresAt = &v
	}

	for attempt := 0; ; attempt++ {
		code, err := s.newInviteCode()
		if err != nil {
			return domain.Invite{}, fmt.Errorf("generate invite code: %w", err)
		}
		inv := domain.Invite{
			ID:              s.newInviteID(),
			TripID:          id,
			Code:            code,
			ExpiresAt:       expiresAt,
			IsActive:        true,
			CreatedAt:       now,
			CreatedByUserID: caller,
		}
		err = s.invites.Issue(ctx, inv)
		if err == nil {
			return inv, nil
		}
		if !errors.Is(err, inviterepo.ErrAlreadyExists) || attempt+1 >= inviteCodeAttempts {
			return domain.Invite{}, fmt.Errorf("issue invite: %w", err)
		}
	}
}

// JoinTrip redeems an invite code. Joining twice is not an error.
func (s *Service) JoinTrip(ctx context.Context, caller domain.UserID, code string) (JoinResult, error) {
	inv, err := s.invites.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, inviterepo.ErrNotFound) {
			return JoinResult{}, &domain.Error{Kind: domain.KindInviteNotFound, Field: "invite_code", Message: "invite code not found"}
		}
		return JoinResult{}, fmt.Errorf("load invite: %w", err)
	}
	if err := inv.UsableAt(s.clk.Now()); err != nil {
		return JoinResult{}, err
	}

	unlock, err := s.locks.Lock(ctx, inv.TripID)
	if err != nil {
		return JoinResult{}, err
	}
	defer unlock()

	ok, err := s.registry.IsMember(ctx, inv.TripID, caller)
	if err != nil {
		return JoinResult{}, err
	}
	if ok {
		return JoinResult{TripID: inv.TripID, Joined: false}, nil
	}
	err = s.members.Add(ctx, domain.TripMember{
		TripID:   inv.TripID,
		UserID:   caller,
		Role:     domain.MemberRoleMember,
		JoinedAt: s.clk.Now(),
	})
	if err != nil {
		if errors.Is(err, memberrepo.ErrAlreadyExists) {
			return JoinResult{TripID: inv.TripID, Joined: false}, nil
		}
		return JoinResult{}, fmt.Errorf("add member: %w", err)
	}
	s.log.InfoContext(ctx, "member joined", logging.FieldTripID, inv.TripID, logging.FieldUserID, caller)
	return JoinResult{TripID: inv.TripID, Joined: true}, nil
}

func (s *Service) ListMembers(ctx context.Context, id domain.TripID, caller domain.UserID) ([]domain.TripMember, error) {
	if _, err := s.registry.Trip(ctx, id); err != nil {
		return nil, err
	}
	unlock := s.locks.RLock(id)
	defer unlock()
	if _, err := s.registry.RequireMember(ctx, id, caller); err != nil {
		return nil, err
	}
	return s.registry.List(ctx, id)
}

// RemoveMember drops target from the trip. Expenses that reference target are left
// untouched; later edits of those expenses re-validate against the new membership.
func (s *Service) RemoveMember(ctx context.Context, id domain.TripID, caller domain.UserID, target domain.UserID) error {
	t, err := s.registry.Trip(ctx, id)
	if err != nil {
		return err
	}

	unlock, err := s.locks.Lock(ctx, id)
	if err != nil {
		return err
	}
	defer unlock()

	if _, err := s.registry.RequireOwner(ctx, id, caller); err != nil {
		return err
	}
	if target == t.OwnerUserID {
		return &domain.Error{Kind: domain.KindOwnerNotRemovable, Field: "user_id", Message: "the trip owner cannot be removed"}
	}
	if err := s.members.Remove(ctx, id, target); err != nil {
		if errors.Is(err, memberrepo.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("remove member: %w", err)
	}
	s.log.InfoContext(ctx, "member removed", logging.FieldTripID, id, logging.FieldUserID, target)
	return nil
}

func randomInviteCode() (string, error) {
	b := make([]byte, 6)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
