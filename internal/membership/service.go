package membership

import (
	"context"
	"time"

	"gymnexus/pkg/eventstore"
)

// Service is the member registry together with the membership lifecycle.
// Lifecycle operations other than CreateMembership, GetMembership and
// ListMemberships address the membership through its member's id.
type Service interface {
	CreateMember(ctx context.Context, input MemberInput) (*Member, error)
	GetMember(ctx context.Context, id int64) (*Member, error)
	ListMembers(ctx context.Context) ([]*Member, error)
	UpdateMember(ctx context.Context, id int64, input MemberInput) (*Member, error)
	DeleteMember(ctx context.Context, id int64) error

	CreateMembership(ctx context.Context, memberID int64, t MembershipType) (*Membership, error)
	RenewMembership(ctx context.Context, memberID int64) (*Membership, error)
	UpgradeMembership(ctx context.Context, memberID int64, t MembershipType) (*Membership, error)
	DeactivateMembership(ctx context.Context, memberID int64) error
	GetMembership(ctx context.Context, id int64) (*Membership, error)
	ListMemberships(ctx context.Context) ([]*Membership, error)
	MembershipHistory(ctx context.Context, memberID int64) ([]eventstore.Event, error)

	ComputeEndDate(t MembershipType) time.Time
}

// Repository persists member aggregates. Tx runs fn against a repository bound
// to a single transaction; calling Tx on that repository reuses it.
type Repository interface {
	Tx(ctx context.Context, fn func(Repository) error) error

	InsertMember(ctx context.Context, m *Member) error
	GetMember(ctx context.Context, id int64) (*Member, error)
	ListMembers(ctx context.Context) ([]*Member, error)
	// UpdateMember writes the identity fields if the stored version still
	// equals m.Version, then increments m.Version.
	UpdateMember(ctx context.Context, m *Member) error
	DeleteMember(ctx context.Context, id int64) error

	InsertMembership(ctx context.Context, ms *Membership) error
	UpdateMembership(ctx context.Context, ms *Membership) error
	GetMembership(ctx context.Context, id int64) (*Membership, error)
	ListMemberships(ctx context.Context) ([]*Membership, error)

	// AppendEvent records one event that moves the member aggregate to version.
	AppendEvent(ctx context.Context, memberID int64, version int, eventType string, payload any) error
	History(ctx context.Context, memberID int64) ([]eventstore.Event, error)
}
