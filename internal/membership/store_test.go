package membership

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gymnexus/internal/apperror"
	"gymnexus/internal/database"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()

	dsn := filepath.Join(t.TempDir(), "members.db") + "?_time_format=sqlite"
	db, err := database.Open(ctx, database.DriverSQLite, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	store := NewStore(db)
	require.NoError(t, store.Migrate(ctx))
	return store
}

func insertTestMember(t *testing.T, store *Store, first string) *Member {
	t.Helper()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	m := &Member{FirstName: first, LastName: "Doe", Email: first + "@example.com", Version: 1, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, store.InsertMember(context.Background(), m))
	return m
}

func TestStoreMemberRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	dob := NewDate(time.Date(1990, 4, 2, 0, 0, 0, 0, time.UTC))
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	m := &Member{
		FirstName:   "John",
		LastName:    "Doe",
		Email:       "john@example.com",
		Phone:       "555-0100",
		DateOfBirth: &dob,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(t, store.InsertMember(ctx, m))
	assert.NotZero(t, m.ID)

	got, err := store.GetMember(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, "John", got.FirstName)
	assert.Equal(t, "555-0100", got.Phone)
	require.NotNil(t, got.DateOfBirth)
	assert.True(t, dob.Equal(got.DateOfBirth.Time))
	assert.True(t, now.Equal(got.CreatedAt))
	assert.Nil(t, got.Membership)

	_, err = store.GetMember(ctx, m.ID+100)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestStoreUpdateMemberDetectsStaleVersion(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	m := insertTestMember(t, store, "John")

	first, err := store.GetMember(ctx, m.ID)
	require.NoError(t, err)
	second, err := store.GetMember(ctx, m.ID)
	require.NoError(t, err)

	first.FirstName = "Jon"
	require.NoError(t, store.UpdateMember(ctx, first))
	assert.Equal(t, 2, first.Version)

	second.FirstName = "Johnny"
	err = store.UpdateMember(ctx, second)
	assert.ErrorIs(t, err, apperror.ErrConflict)

	got, err := store.GetMember(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, "Jon", got.FirstName)
	assert.Equal(t, 2, got.Version)
}

func TestStoreSecondMembershipIsAlreadyExists(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	m := insertTestMember(t, store, "Ann")

	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	ms := &Membership{MemberID: m.ID, Type: TypeBasic, Status: StatusActive, StartDate: now, EndDate: EndDateFrom(TypeBasic, now)}
	require.NoError(t, store.InsertMembership(ctx, ms))

	dup := *ms
	dup.ID = 0
	err := store.InsertMembership(ctx, &dup)
	assert.ErrorIs(t, err, apperror.ErrAlreadyExists)

	got, err := store.GetMember(ctx, m.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Membership)
	assert.Equal(t, ms.ID, got.Membership.ID)
	assert.True(t, ms.EndDate.Equal(got.Membership.EndDate))
}

func TestStoreDeleteMemberRemovesMembership(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	m := insertTestMember(t, store, "Bea")

	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	ms := &Membership{MemberID: m.ID, Type: TypePremium, Status: StatusActive, StartDate: now, EndDate: EndDateFrom(TypePremium, now)}
	require.NoError(t, store.InsertMembership(ctx, ms))

	require.NoError(t, store.DeleteMember(ctx, m.ID))

	_, err := store.GetMembership(ctx, ms.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
	assert.ErrorIs(t, store.DeleteMember(ctx, m.ID), apperror.ErrNotFound)
}

func TestStoreAppendEventRejectsVersionGap(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	m := insertTestMember(t, store, "Cy")

	require.NoError(t, store.AppendEvent(ctx, m.ID, 1, EventMemberRegistered, memberChanged(m)))
	err := store.AppendEvent(ctx, m.ID, 3, EventMemberUpdated, memberChanged(m))
	assert.ErrorIs(t, err, apperror.ErrConflict)

	events, err := store.History(ctx, m.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, EventMemberRegistered, events[0].EventType)
}

func TestStoreTxRollsBackOnError(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	var inserted int64
	err := store.Tx(ctx, func(repo Repository) error {
		now := time.Now().UTC()
		m := &Member{FirstName: "Tx", LastName: "Rollback", Email: "tx@example.com", Version: 1, CreatedAt: now, UpdatedAt: now}
		if err := repo.InsertMember(ctx, m); err != nil {
			return err
		}
		inserted = m.ID
		return apperror.ErrInvalid
	})
	require.ErrorIs(t, err, apperror.ErrInvalid)

	_, err = store.GetMember(ctx, inserted)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}
