package membership

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"gymnexus/internal/apperror"
	"gymnexus/internal/database"
	"gymnexus/pkg/eventstore"
)

const aggregateType = "member"

// Schema creates the members and memberships tables.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS members (
		id {{serial}},
		first_name TEXT NOT NULL,
		last_name TEXT NOT NULL,
		email TEXT NOT NULL,
		phone_number TEXT NOT NULL DEFAULT '',
		date_of_birth {{timestamp}},
		version INT NOT NULL DEFAULT 1,
		created_at {{timestamp}} NOT NULL,
		updated_at {{timestamp}} NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS memberships (
		id {{serial}},
		member_id BIGINT NOT NULL UNIQUE REFERENCES members (id),
		membership_type TEXT NOT NULL,
		status TEXT NOT NULL,
		start_date {{timestamp}} NOT NULL,
		end_date {{timestamp}} NOT NULL
	)`,
	eventstore.Schema,
}

const selectMember = `
	SELECT m.id, m.first_name, m.last_name, m.email, m.phone_number, m.date_of_birth,
		m.version, m.created_at, m.updated_at,
		ms.id AS membership_id, ms.membership_type, ms.status, ms.start_date, ms.end_date
	FROM members m
	LEFT JOIN memberships ms ON ms.member_id = m.id`

type memberRow struct {
	ID           int64          `db:"id"`
	FirstName    string         `db:"first_name"`
	LastName     string         `db:"last_name"`
	Email        string         `db:"email"`
	Phone        string         `db:"phone_number"`
	DateOfBirth  sql.NullTime   `db:"date_of_birth"`
	Version      int            `db:"version"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
	MembershipID sql.NullInt64  `db:"membership_id"`
	Type         sql.NullString `db:"membership_type"`
	Status       sql.NullString `db:"status"`
	StartDate    sql.NullTime   `db:"start_date"`
	EndDate      sql.NullTime   `db:"end_date"`
}

func (r memberRow) toMember() *Member {
	m := &Member{
		ID:        r.ID,
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Email:     r.Email,
		Phone:     r.Phone,
		Version:   r.Version,
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
	if r.DateOfBirth.Valid {
		d := NewDate(r.DateOfBirth.Time)
		m.DateOfBirth = &d
	}
	if r.MembershipID.Valid {
		m.Membership = &Membership{
			ID:        r.MembershipID.Int64,
			MemberID:  r.ID,
			Type:      MembershipType(r.Type.String),
			Status:    MembershipStatus(r.Status.String),
			StartDate: r.StartDate.Time.UTC(),
			EndDate:   r.EndDate.Time.UTC(),
		}
	}
	return m
}

type membershipRow struct {
	ID        int64     `db:"id"`
	MemberID  int64     `db:"member_id"`
	Type      string    `db:"membership_type"`
	Status    string    `db:"status"`
	StartDate time.Time `db:"start_date"`
	EndDate   time.Time `db:"end_date"`
}

func (r membershipRow) toMembership() *Membership {
	return &Membership{
		ID:        r.ID,
		MemberID:  r.MemberID,
		Type:      MembershipType(r.Type),
		Status:    MembershipStatus(r.Status),
		StartDate: r.StartDate.UTC(),
		EndDate:   r.EndDate.UTC(),
	}
}

// Store is the SQL implementation of Repository.
type Store struct {
	db     *sqlx.DB
	tx     *sqlx.Tx
	q      sqlx.ExtContext
	events *eventstore.EventStore
	tracer trace.Tracer
}

// NewStore creates a store over db.
func NewStore(db *sqlx.DB) *Store {
	return &Store{
		db:     db,
		q:      db,
		events: eventstore.New(),
		tracer: otel.Tracer("gymnexus/membership"),
	}
}

// Migrate creates the tables the store needs.
func (s *Store) Migrate(ctx context.Context) error {
	return database.Migrate(ctx, s.db, Schema...)
}

func (s *Store) Tx(ctx context.Context, fn func(Repository) error) error {
	if s.tx != nil {
		return fn(s)
	}
	return database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		return fn(&Store{db: s.db, tx: tx, q: tx, events: s.events, tracer: s.tracer})
	})
}

func (s *Store) InsertMember(ctx context.Context, m *Member) error {
	ctx, span := s.tracer.Start(ctx, "membership.insert_member")
	defer span.End()

	var dob any
	if m.DateOfBirth != nil {
		dob = m.DateOfBirth.Time
	}
	err := s.q.QueryRowxContext(ctx, s.q.Rebind(`
		INSERT INTO members (first_name, last_name, email, phone_number, date_of_birth, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`), m.FirstName, m.LastName, m.Email, m.Phone, dob, m.Version, m.CreatedAt, m.UpdatedAt).Scan(&m.ID)
	if err != nil {
		return fmt.Errorf("failed to insert member: %w", err)
	}
	span.SetAttributes(attribute.Int64("member.id", m.ID))
	return nil
}

func (s *Store) GetMember(ctx context.Context, id int64) (*Member, error) {
	ctx, span := s.tracer.Start(ctx, "membership.get_member",
		trace.WithAttributes(attribute.Int64("member.id", id)))
	defer span.End()

	var row memberRow
	err := sqlx.GetContext(ctx, s.q, &row, s.q.Rebind(selectMember+` WHERE m.id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, memberNotFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get member: %w", err)
	}
	return row.toMember(), nil
}

func (s *Store) ListMembers(ctx context.Context) ([]*Member, error) {
	ctx, span := s.tracer.Start(ctx, "membership.list_members")
	defer span.End()

	var rows []memberRow
	if err := sqlx.SelectContext(ctx, s.q, &rows, selectMember+` ORDER BY m.id`); err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	members := make([]*Member, 0, len(rows))
	for _, row := range rows {
		members = append(members, row.toMember())
	}
	return members, nil
}

func (s *Store) UpdateMember(ctx context.Context, m *Member) error {
	ctx, span := s.tracer.Start(ctx, "membership.update_member",
		trace.WithAttributes(
			attribute.Int64("member.id", m.ID),
			attribute.Int("expected.version", m.Version),
		))
	defer span.End()

	var dob any
	if m.DateOfBirth != nil {
		dob = m.DateOfBirth.Time
	}
	res, err := s.q.ExecContext(ctx, s.q.Rebind(`
		UPDATE members
		SET first_name = ?, last_name = ?, email = ?, phone_number = ?, date_of_birth = ?,
			version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?
	`), m.FirstName, m.LastName, m.Email, m.Phone, dob, m.UpdatedAt, m.ID, m.Version)
	if err != nil {
		return fmt.Errorf("failed to update member: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update member: %w", err)
	}
	if n == 0 {
		span.SetAttributes(attribute.Bool("conflict.detected", true))
		return fmt.Errorf("member with id %d was modified concurrently: %w", m.ID, apperror.ErrConflict)
	}
	m.Version++
	return nil
}

func (s *Store) DeleteMember(ctx context.Context, id int64) error {
	ctx, span := s.tracer.Start(ctx, "membership.delete_member",
		trace.WithAttributes(attribute.Int64("member.id", id)))
	defer span.End()

	if _, err := s.q.ExecContext(ctx, s.q.Rebind(`DELETE FROM memberships WHERE member_id = ?`), id); err != nil {
		return fmt.Errorf("failed to delete membership: %w", err)
	}
	res, err := s.q.ExecContext(ctx, s.q.Rebind(`DELETE FROM members WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete member: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete member: %w", err)
	}
	if n == 0 {
		return memberNotFound(id)
	}
	return nil
}

func (s *Store) InsertMembership(ctx context.Context, ms *Membership) error {
	ctx, span := s.tracer.Start(ctx, "membership.insert_membership",
		trace.WithAttributes(attribute.Int64("member.id", ms.MemberID)))
	defer span.End()

	err := s.q.QueryRowxContext(ctx, s.q.Rebind(`
		INSERT INTO memberships (member_id, membership_type, status, start_date, end_date)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id
	`), ms.MemberID, string(ms.Type), string(ms.Status), ms.StartDate, ms.EndDate).Scan(&ms.ID)
	if database.IsUniqueViolation(err) {
		return fmt.Errorf("member with id %d already has a membership: %w", ms.MemberID, apperror.ErrAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("failed to insert membership: %w", err)
	}
	return nil
}

func (s *Store) UpdateMembership(ctx context.Context, ms *Membership) error {
	ctx, span := s.tracer.Start(ctx, "membership.update_membership",
		trace.WithAttributes(attribute.Int64("membership.id", ms.ID)))
	defer span.End()

	_, err := s.q.ExecContext(ctx, s.q.Rebind(`
		UPDATE memberships
		SET membership_type = ?, status = ?, start_date = ?, end_date = ?
		WHERE id = ?
	`), string(ms.Type), string(ms.Status), ms.StartDate, ms.EndDate, ms.ID)
	if err != nil {
		return fmt.Errorf("failed to update membership: %w", err)
	}
	return nil
}

func (s *Store) GetMembership(ctx context.Context, id int64) (*Membership, error) {
	ctx, span := s.tracer.Start(ctx, "membership.get_membership",
		trace.WithAttributes(attribute.Int64("membership.id", id)))
	defer span.End()

	var row membershipRow
	err := sqlx.GetContext(ctx, s.q, &row, s.q.Rebind(`
		SELECT id, member_id, membership_type, status, start_date, end_date
		FROM memberships
		WHERE id = ?
	`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("membership not found with id %d: %w", id, apperror.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get membership: %w", err)
	}
	return row.toMembership(), nil
}

func (s *Store) ListMemberships(ctx context.Context) ([]*Membership, error) {
	ctx, span := s.tracer.Start(ctx, "membership.list_memberships")
	defer span.End()

	var rows []membershipRow
	err := sqlx.SelectContext(ctx, s.q, &rows, `
		SELECT id, member_id, membership_type, status, start_date, end_date
		FROM memberships
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list memberships: %w", err)
	}
	out := make([]*Membership, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toMembership())
	}
	return out, nil
}

func (s *Store) AppendEvent(ctx context.Context, memberID int64, version int, eventType string, payload any) error {
	if s.tx == nil {
		return s.Tx(ctx, func(r Repository) error {
			return r.AppendEvent(ctx, memberID, version, eventType, payload)
		})
	}

	event, err := eventstore.NewEvent(eventType, payload)
	if err != nil {
		return err
	}
	err = s.events.Append(ctx, s.tx, aggregateType, memberID, version-1, []eventstore.Event{event})
	if errors.Is(err, eventstore.ErrConcurrencyConflict) {
		return fmt.Errorf("member with id %d was modified concurrently: %w", memberID, apperror.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}
	return nil
}

func (s *Store) History(ctx context.Context, memberID int64) ([]eventstore.Event, error) {
	return s.events.Load(ctx, s.q, aggregateType, memberID)
}
