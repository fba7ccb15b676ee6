package fitness_test

import (
	"context"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gymnexus/internal/apperror"
	"gymnexus/internal/clients"
	"gymnexus/internal/database"
	"gymnexus/internal/fitness"
	"gymnexus/internal/httpx"
	"gymnexus/internal/membership"
)

func openSQLite(t *testing.T, name string) *sqlx.DB {
	t.Helper()
	db, err := database.Open(context.Background(), database.DriverSQLite,
		filepath.Join(t.TempDir(), name)+"?_time_format=sqlite")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// TestWorkoutsFollowMemberRegistry runs the fitness service against a real
// member service over HTTP.
func TestWorkoutsFollowMemberRegistry(t *testing.T) {
	ctx := context.Background()

	memberStore := membership.NewStore(openSQLite(t, "members.db"))
	require.NoError(t, memberStore.Migrate(ctx))
	members := membership.NewService(memberStore)

	router := httpx.NewRouter(nil, false)
	membership.NewHandler(members).Routes(router)
	registry := httptest.NewServer(router)
	defer registry.Close()

	workoutStore := fitness.NewStore(openSQLite(t, "fitness.db"))
	require.NoError(t, workoutStore.Migrate(ctx))
	lookup := clients.NewMemberClient(registry.URL,
		clients.WithRetry(2, time.Millisecond),
		clients.WithTimeout(time.Second))
	ledger := fitness.NewService(workoutStore, lookup)

	john, err := members.CreateMember(ctx, membership.MemberInput{FirstName: "John", LastName: "Doe", Email: "john@example.com"})
	require.NoError(t, err)
	_, err = members.CreateMembership(ctx, john.ID, membership.TypePremium)
	require.NoError(t, err)

	w, err := ledger.CreateWorkout(ctx, john.ID, "Leg day", "")
	require.NoError(t, err)
	assert.Equal(t, "John", w.MemberFirstName)
	assert.Equal(t, john.ID, w.MemberID)

	_, err = ledger.CreateWorkout(ctx, john.ID+100, "Ghost", "")
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	_, err = members.UpdateMember(ctx, john.ID, membership.MemberInput{FirstName: "Jon", LastName: "Doe", Email: "jon@example.com"})
	require.NoError(t, err)

	fresh, err := ledger.GetMemberWorkouts(ctx, john.ID)
	require.NoError(t, err)
	require.Len(t, fresh, 1)
	assert.Equal(t, "Jon", fresh[0].MemberFirstName)

	stale, err := ledger.GetAllWorkouts(ctx)
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, "John", stale[0].MemberFirstName)

	n, err := ledger.RefreshMemberSnapshots(ctx, john.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	refreshed, err := ledger.GetWorkout(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, "Jon", refreshed.MemberFirstName)

	require.NoError(t, members.DeleteMember(ctx, john.ID))
	_, err = ledger.GetMemberWorkouts(ctx, john.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	require.NoError(t, ledger.DeleteMemberWorkouts(ctx, john.ID))
	all, err := ledger.GetAllWorkouts(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	registry.Close()
	_, err = ledger.CreateWorkout(ctx, john.ID, "Offline", "")
	assert.ErrorIs(t, err, apperror.ErrUnavailable)
}
