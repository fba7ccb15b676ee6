package membership

import (
	"context"
	"fmt"
	"time"

	"gymnexus/internal/apperror"
	"gymnexus/internal/logger"
	"gymnexus/internal/telemetry"
	"gymnexus/pkg/eventstore"
)

// service implements the Service interface.
type service struct {
	repo Repository
	now  func() time.Time
}

// Option configures the membership service.
type Option func(*service)

// WithClock replaces the wall clock used for start and end dates.
func WithClock(now func() time.Time) Option {
	return func(s *service) { s.now = now }
}

// NewService creates a new membership service instance.
func NewService(repo Repository, opts ...Option) Service {
	s := &service{
		repo: repo,
		now:  func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func memberNotFound(id int64) error {
	return fmt.Errorf("member not found with id %d: %w", id, apperror.ErrNotFound)
}

func membershipNotFoundForMember(memberID int64) error {
	return fmt.Errorf("membership not found for member with id %d: %w", memberID, apperror.ErrNotFound)
}

// CreateMember registers a new member at version 1.
func (s *service) CreateMember(ctx context.Context, input MemberInput) (*Member, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	now := s.now()
	member := &Member{Version: 1, CreatedAt: now, UpdatedAt: now}
	input.applyTo(member)

	err := s.repo.Tx(ctx, func(repo Repository) error {
		if err := repo.InsertMember(ctx, member); err != nil {
			return err
		}
		return repo.AppendEvent(ctx, member.ID, member.Version, EventMemberRegistered, memberChanged(member))
	})
	if err != nil {
		return nil, err
	}

	logger.Info().Int64("member_id", member.ID).Msg("member registered")
	return member, nil
}

// GetMember returns the member with its membership, if any.
func (s *service) GetMember(ctx context.Context, id int64) (*Member, error) {
	return s.repo.GetMember(ctx, id)
}

// ListMembers returns every member ordered by id.
func (s *service) ListMembers(ctx context.Context) ([]*Member, error) {
	return s.repo.ListMembers(ctx)
}

// UpdateMember replaces the identity fields of a member. The membership is left untouched.
func (s *service) UpdateMember(ctx context.Context, id int64, input MemberInput) (*Member, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	var updated *Member
	err := s.repo.Tx(ctx, func(repo Repository) error {
		member, err := repo.GetMember(ctx, id)
		if err != nil {
			return err
		}
		input.applyTo(member)
		if err := s.touch(ctx, repo, member, EventMemberUpdated, memberChanged(member)); err != nil {
			return err
		}
		updated = member
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info().Int64("member_id", id).Int("version", updated.Version).Msg("member updated")
	return updated, nil
}

// DeleteMember removes a member together with its membership.
func (s *service) DeleteMember(ctx context.Context, id int64) error {
	err := s.repo.Tx(ctx, func(repo Repository) error {
		member, err := repo.GetMember(ctx, id)
		if err != nil {
			return err
		}
		if err := repo.DeleteMember(ctx, id); err != nil {
			return err
		}
		return repo.AppendEvent(ctx, id, member.Version+1, EventMemberDeleted, MemberChangedEvent{ID: id})
	})
	if err != nil {
		return err
	}

	logger.Info().Int64("member_id", id).Msg("member deleted")
	return nil
}

// CreateMembership attaches a new ACTIVE membership to a member that has none.
func (s *service) CreateMembership(ctx context.Context, memberID int64, t MembershipType) (*Membership, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("unknown membership type %q: %w", t, apperror.ErrInvalid)
	}

	var created *Membership
	err := s.repo.Tx(ctx, func(repo Repository) error {
		member, err := repo.GetMember(ctx, memberID)
		if err != nil {
			return err
		}
		if member.Membership != nil {
			return fmt.Errorf("member with id %d already has a membership: %w", memberID, apperror.ErrAlreadyExists)
		}

		now := s.now()
		ms := &Membership{
			MemberID:  member.ID,
			Type:      t,
			Status:    StatusActive,
			StartDate: now,
			EndDate:   EndDateFrom(t, now),
		}
		if err := repo.InsertMembership(ctx, ms); err != nil {
			return err
		}
		member.Membership = ms
		if err := s.touch(ctx, repo, member, EventMembershipCreated, membershipChanged(ms)); err != nil {
			return err
		}
		created = ms
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.transitioned("create", created)
	return created, nil
}

// RenewMembership restarts the membership of a member from now and forces it ACTIVE.
func (s *service) RenewMembership(ctx context.Context, memberID int64) (*Membership, error) {
	ms, err := s.mutate(ctx, memberID, EventMembershipRenewed, func(ms *Membership, now time.Time) {
		ms.StartDate = now
		ms.EndDate = EndDateFrom(ms.Type, now)
		ms.Status = StatusActive
	})
	if err != nil {
		return nil, err
	}
	s.transitioned("renew", ms)
	return ms, nil
}

// UpgradeMembership switches the membership of a member to t. The end date is
// recomputed from now; start date and status are kept.
func (s *service) UpgradeMembership(ctx context.Context, memberID int64, t MembershipType) (*Membership, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("unknown membership type %q: %w", t, apperror.ErrInvalid)
	}
	ms, err := s.mutate(ctx, memberID, EventMembershipUpgraded, func(ms *Membership, now time.Time) {
		ms.Type = t
		ms.EndDate = EndDateFrom(t, now)
	})
	if err != nil {
		return nil, err
	}
	s.transitioned("upgrade", ms)
	return ms, nil
}

// DeactivateMembership marks the membership of a member INACTIVE.
func (s *service) DeactivateMembership(ctx context.Context, memberID int64) error {
	ms, err := s.mutate(ctx, memberID, EventMembershipDeactivated, func(ms *Membership, _ time.Time) {
		ms.Status = StatusInactive
	})
	if err != nil {
		return err
	}
	s.transitioned("deactivate", ms)
	return nil
}

// GetMembership looks a membership up by its own id.
func (s *service) GetMembership(ctx context.Context, id int64) (*Membership, error) {
	return s.repo.GetMembership(ctx, id)
}

func (s *service) ListMemberships(ctx context.Context) ([]*Membership, error) {
	return s.repo.ListMemberships(ctx)
}

// MembershipHistory returns the recorded events of a member, oldest first.
func (s *service) MembershipHistory(ctx context.Context, memberID int64) ([]eventstore.Event, error) {
	events, err := s.repo.History(ctx, memberID)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, memberNotFound(memberID)
	}
	return events, nil
}

// ComputeEndDate returns the end date of a membership of type t starting now.
func (s *service) ComputeEndDate(t MembershipType) time.Time {
	return EndDateFrom(t, s.now())
}

// mutate loads the member's membership, applies fn and persists the result in
// one transaction.
func (s *service) mutate(ctx context.Context, memberID int64, eventType string, fn func(ms *Membership, now time.Time)) (*Membership, error) {
	var result *Membership
	err := s.repo.Tx(ctx, func(repo Repository) error {
		member, err := repo.GetMember(ctx, memberID)
		if err != nil {
			return err
		}
		if member.Membership == nil {
			return membershipNotFoundForMember(memberID)
		}

		ms := member.Membership
		fn(ms, s.now())
		if err := repo.UpdateMembership(ctx, ms); err != nil {
			return err
		}
		if err := s.touch(ctx, repo, member, eventType, membershipChanged(ms)); err != nil {
			return err
		}
		result = ms
		return nil
	})
	return result, err
}

// touch bumps the member's version and records the event for the new version.
func (s *service) touch(ctx context.Context, repo Repository, member *Member, eventType string, payload any) error {
	member.UpdatedAt = s.now()
	if err := repo.UpdateMember(ctx, member); err != nil {
		return err
	}
	return repo.AppendEvent(ctx, member.ID, member.Version, eventType, payload)
}

func (s *service) transitioned(transition string, ms *Membership) {
	telemetry.RecordMembershipTransition(transition)
	logger.Info().
		Str("transition", transition).
		Int64("member_id", ms.MemberID).
		Int64("membership_id", ms.ID).
		Str("type", string(ms.Type)).
		Str("status", string(ms.Status)).
		Time("end_date", ms.EndDate).
		Msg("membership transition")
}
