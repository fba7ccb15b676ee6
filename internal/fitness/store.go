package fitness

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

	"gymnexus/internal/database"
)

// Schema creates the exercise catalog and workout tables.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS exercises (
		id {{serial}},
		name TEXT NOT NULL,
		category TEXT NOT NULL DEFAULT '',
		muscle_group TEXT NOT NULL DEFAULT '',
		created_at {{timestamp}} NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS workouts (
		id {{serial}},
		member_id BIGINT NOT NULL,
		member_first_name TEXT NOT NULL,
		member_last_name TEXT NOT NULL,
		workout_name TEXT NOT NULL,
		workout_date {{timestamp}} NOT NULL,
		notes TEXT NOT NULL DEFAULT '',
		created_at {{timestamp}} NOT NULL,
		identity_synced_at {{timestamp}} NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS workouts_member_id_idx ON workouts (member_id)`,
	`CREATE TABLE IF NOT EXISTS workout_exercises (
		id {{serial}},
		workout_id BIGINT NOT NULL REFERENCES workouts (id),
		exercise_id BIGINT NOT NULL REFERENCES exercises (id),
		sets INT NOT NULL,
		reps INT NOT NULL,
		weight {{float}} NOT NULL,
		created_at {{timestamp}} NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS workout_exercises_workout_id_idx ON workout_exercises (workout_id)`,
}

const selectWorkout = `
	SELECT id, member_id, member_first_name, member_last_name, workout_name, workout_date,
		notes, created_at, identity_synced_at
	FROM workouts`

type workoutRow struct {
	ID               int64     `db:"id"`
	MemberID         int64     `db:"member_id"`
	MemberFirstName  string    `db:"member_first_name"`
	MemberLastName   string    `db:"member_last_name"`
	WorkoutName      string    `db:"workout_name"`
	WorkoutDate      time.Time `db:"workout_date"`
	Notes            string    `db:"notes"`
	CreatedAt        time.Time `db:"created_at"`
	IdentitySyncedAt time.Time `db:"identity_synced_at"`
}

func (r workoutRow) toWorkout() *Workout {
	return &Workout{
		ID:               r.ID,
		MemberID:         r.MemberID,
		MemberFirstName:  r.MemberFirstName,
		MemberLastName:   r.MemberLastName,
		WorkoutName:      r.WorkoutName,
		WorkoutDate:      r.WorkoutDate.UTC(),
		Notes:            r.Notes,
		CreatedAt:        r.CreatedAt.UTC(),
		IdentitySyncedAt: r.IdentitySyncedAt.UTC(),
		Exercises:        []WorkoutExercise{},
	}
}

type workoutExerciseRow struct {
	ID           int64     `db:"id"`
	WorkoutID    int64     `db:"workout_id"`
	ExerciseID   int64     `db:"exercise_id"`
	ExerciseName string    `db:"exercise_name"`
	Sets         int       `db:"sets"`
	Reps         int       `db:"reps"`
	Weight       float64   `db:"weight"`
	CreatedAt    time.Time `db:"created_at"`
}

type exerciseRow struct {
	ID          int64     `db:"id"`
	Name        string    `db:"name"`
	Category    string    `db:"category"`
	MuscleGroup string    `db:"muscle_group"`
	CreatedAt   time.Time `db:"created_at"`
}

func (r exerciseRow) toExercise() *Exercise {
	return &Exercise{
		ID:          r.ID,
		Name:        r.Name,
		Category:    r.Category,
		MuscleGroup: r.MuscleGroup,
		CreatedAt:   r.CreatedAt.UTC(),
	}
}

// Store is the SQL implementation of Repository.
type Store struct {
	db     *sqlx.DB
	tx     *sqlx.Tx
	q      sqlx.ExtContext
	tracer trace.Tracer
}

// NewStore creates a store over db.
func NewStore(db *sqlx.DB) *Store {
	return &Store{
		db:     db,
		q:      db,
		tracer: otel.Tracer("gymnexus/fitness"),
	}
}

// Migrate creates the tables the store needs.
func (s *Store) Migrate(ctx context.Context) error {
	return database.Migrate(ctx, s.db, Schema...)
}

func (s *Store) Tx(ctx context.Context, fn func(Repository) error) error {
	return s.withTx(ctx, func(tx *Store) error { return fn(tx) })
}

func (s *Store) withTx(ctx context.Context, fn func(*Store) error) error {
	if s.tx != nil {
		return fn(s)
	}
	return database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		return fn(&Store{db: s.db, tx: tx, q: tx, tracer: s.tracer})
	})
}

func (s *Store) InsertWorkout(ctx context.Context, w *Workout) error {
	ctx, span := s.tracer.Start(ctx, "fitness.insert_workout",
		trace.WithAttributes(attribute.Int64("member.id", w.MemberID)))
	defer span.End()

	err := s.q.QueryRowxContext(ctx, s.q.Rebind(`
		INSERT INTO workouts (member_id, member_first_name, member_last_name, workout_name, workout_date,
			notes, created_at, identity_synced_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`), w.MemberID, w.MemberFirstName, w.MemberLastName, w.WorkoutName, w.WorkoutDate,
		w.Notes, w.CreatedAt, w.IdentitySyncedAt).Scan(&w.ID)
	if err != nil {
		return fmt.Errorf("failed to insert workout: %w", err)
	}
	span.SetAttributes(attribute.Int64("workout.id", w.ID))
	return nil
}

func (s *Store) GetWorkout(ctx context.Context, id int64) (*Workout, error) {
	ctx, span := s.tracer.Start(ctx, "fitness.get_workout",
		trace.WithAttributes(attribute.Int64("workout.id", id)))
	defer span.End()

	var row workoutRow
	err := sqlx.GetContext(ctx, s.q, &row, s.q.Rebind(selectWorkout+` WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, workoutNotFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get workout: %w", err)
	}

	workouts := []*Workout{row.toWorkout()}
	if err := s.attachExercises(ctx, workouts); err != nil {
		return nil, err
	}
	return workouts[0], nil
}

func (s *Store) ListWorkouts(ctx context.Context) ([]*Workout, error) {
	ctx, span := s.tracer.Start(ctx, "fitness.list_workouts")
	defer span.End()

	return s.listWorkouts(ctx, selectWorkout+` ORDER BY id`)
}

func (s *Store) ListMemberWorkouts(ctx context.Context, memberID int64) ([]*Workout, error) {
	ctx, span := s.tracer.Start(ctx, "fitness.list_member_workouts",
		trace.WithAttributes(attribute.Int64("member.id", memberID)))
	defer span.End()

	return s.listWorkouts(ctx, s.q.Rebind(selectWorkout+` WHERE member_id = ? ORDER BY id`), memberID)
}

func (s *Store) listWorkouts(ctx context.Context, query string, args ...any) ([]*Workout, error) {
	var rows []workoutRow
	if err := sqlx.SelectContext(ctx, s.q, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list workouts: %w", err)
	}
	workouts := make([]*Workout, 0, len(rows))
	for _, row := range rows {
		workouts = append(workouts, row.toWorkout())
	}
	if err := s.attachExercises(ctx, workouts); err != nil {
		return nil, err
	}
	return workouts, nil
}

// attachExercises loads the exercise entries of workouts in one query.
func (s *Store) attachExercises(ctx context.Context, workouts []*Workout) error {
	if len(workouts) == 0 {
		return nil
	}
	byID := make(map[int64]*Workout, len(workouts))
	ids := make([]int64, 0, len(workouts))
	for _, w := range workouts {
		byID[w.ID] = w
		ids = append(ids, w.ID)
	}

	query, args, err := sqlx.In(`
		SELECT we.id, we.workout_id, we.exercise_id, e.name AS exercise_name,
			we.sets, we.reps, we.weight, we.created_at
		FROM workout_exercises we
		JOIN exercises e ON e.id = we.exercise_id
		WHERE we.workout_id IN (?)
		ORDER BY we.id
	`, ids)
	if err != nil {
		return fmt.Errorf("failed to build exercise query: %w", err)
	}

	var rows []workoutExerciseRow
	if err := sqlx.SelectContext(ctx, s.q, &rows, s.q.Rebind(query), args...); err != nil {
		return fmt.Errorf("failed to load workout exercises: %w", err)
	}
	for _, row := range rows {
		w := byID[row.WorkoutID]
		w.Exercises = append(w.Exercises, WorkoutExercise{
			ID:           row.ID,
			ExerciseID:   row.ExerciseID,
			ExerciseName: row.ExerciseName,
			Sets:         row.Sets,
			Reps:         row.Reps,
			Weight:       row.Weight,
			CreatedAt:    row.CreatedAt.UTC(),
		})
	}
	return nil
}

func (s *Store) DeleteWorkout(ctx context.Context, id int64) error {
	ctx, span := s.tracer.Start(ctx, "fitness.delete_workout",
		trace.WithAttributes(attribute.Int64("workout.id", id)))
	defer span.End()

	return s.withTx(ctx, func(tx *Store) error {
		if _, err := tx.q.ExecContext(ctx, tx.q.Rebind(`DELETE FROM workout_exercises WHERE workout_id = ?`), id); err != nil {
			return fmt.Errorf("failed to delete workout exercises: %w", err)
		}
		res, err := tx.q.ExecContext(ctx, tx.q.Rebind(`DELETE FROM workouts WHERE id = ?`), id)
		if err != nil {
			return fmt.Errorf("failed to delete workout: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to delete workout: %w", err)
		}
		if n == 0 {
			return workoutNotFound(id)
		}
		return nil
	})
}

func (s *Store) DeleteMemberWorkouts(ctx context.Context, memberID int64) (int64, error) {
	ctx, span := s.tracer.Start(ctx, "fitness.delete_member_workouts",
		trace.WithAttributes(attribute.Int64("member.id", memberID)))
	defer span.End()

	var deleted int64
	err := s.withTx(ctx, func(tx *Store) error {
		_, err := tx.q.ExecContext(ctx, tx.q.Rebind(`
			DELETE FROM workout_exercises
			WHERE workout_id IN (SELECT id FROM workouts WHERE member_id = ?)
		`), memberID)
		if err != nil {
			return fmt.Errorf("failed to delete workout exercises: %w", err)
		}
		res, err := tx.q.ExecContext(ctx, tx.q.Rebind(`DELETE FROM workouts WHERE member_id = ?`), memberID)
		if err != nil {
			return fmt.Errorf("failed to delete member workouts: %w", err)
		}
		deleted, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, err
	}
	span.SetAttributes(attribute.Int64("workouts.deleted", deleted))
	return deleted, nil
}

func (s *Store) UpdateMemberSnapshot(ctx context.Context, identity Identity, syncedAt time.Time) (int64, error) {
	ctx, span := s.tracer.Start(ctx, "fitness.update_member_snapshot",
		trace.WithAttributes(attribute.Int64("member.id", identity.ID)))
	defer span.End()

	res, err := s.q.ExecContext(ctx, s.q.Rebind(`
		UPDATE workouts
		SET member_first_name = ?, member_last_name = ?, identity_synced_at = ?
		WHERE member_id = ?
	`), identity.FirstName, identity.LastName, syncedAt, identity.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to refresh member snapshot: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to refresh member snapshot: %w", err)
	}
	span.SetAttributes(attribute.Int64("workouts.updated", n))
	return n, nil
}

func (s *Store) InsertExercise(ctx context.Context, e *Exercise) error {
	ctx, span := s.tracer.Start(ctx, "fitness.insert_exercise")
	defer span.End()

	err := s.q.QueryRowxContext(ctx, s.q.Rebind(`
		INSERT INTO exercises (name, category, muscle_group, created_at)
		VALUES (?, ?, ?, ?)
		RETURNING id
	`), e.Name, e.Category, e.MuscleGroup, e.CreatedAt).Scan(&e.ID)
	if err != nil {
		return fmt.Errorf("failed to insert exercise: %w", err)
	}
	return nil
}

func (s *Store) GetExercise(ctx context.Context, id int64) (*Exercise, error) {
	ctx, span := s.tracer.Start(ctx, "fitness.get_exercise",
		trace.WithAttributes(attribute.Int64("exercise.id", id)))
	defer span.End()

	var row exerciseRow
	err := sqlx.GetContext(ctx, s.q, &row, s.q.Rebind(`
		SELECT id, name, category, muscle_group, created_at FROM exercises WHERE id = ?
	`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, exerciseNotFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get exercise: %w", err)
	}
	return row.toExercise(), nil
}

func (s *Store) ListExercises(ctx context.Context) ([]*Exercise, error) {
	ctx, span := s.tracer.Start(ctx, "fitness.list_exercises")
	defer span.End()

	var rows []exerciseRow
	err := sqlx.SelectContext(ctx, s.q, &rows, `
		SELECT id, name, category, muscle_group, created_at FROM exercises ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list exercises: %w", err)
	}
	exercises := make([]*Exercise, 0, len(rows))
	for _, row := range rows {
		exercises = append(exercises, row.toExercise())
	}
	return exercises, nil
}

func (s *Store) AddWorkoutExercise(ctx context.Context, workoutID int64, we *WorkoutExercise) error {
	ctx, span := s.tracer.Start(ctx, "fitness.add_workout_exercise",
		trace.WithAttributes(
			attribute.Int64("workout.id", workoutID),
			attribute.Int64("exercise.id", we.ExerciseID),
		))
	defer span.End()

	err := s.q.QueryRowxContext(ctx, s.q.Rebind(`
		INSERT INTO workout_exercises (workout_id, exercise_id, sets, reps, weight, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id
	`), workoutID, we.ExerciseID, we.Sets, we.Reps, we.Weight, we.CreatedAt).Scan(&we.ID)
	if err != nil {
		return fmt.Errorf("failed to add exercise to workout: %w", err)
	}
	return nil
}

func (s *Store) RemoveWorkoutExercises(ctx context.Context, workoutID, exerciseID int64) (int64, error) {
	ctx, span := s.tracer.Start(ctx, "fitness.remove_workout_exercises",
		trace.WithAttributes(
			attribute.Int64("workout.id", workoutID),
			attribute.Int64("exercise.id", exerciseID),
		))
	defer span.End()

	res, err := s.q.ExecContext(ctx, s.q.Rebind(`
		DELETE FROM workout_exercises WHERE workout_id = ? AND exercise_id = ?
	`), workoutID, exerciseID)
	if err != nil {
		return 0, fmt.Errorf("failed to remove exercise from workout: %w", err)
	}
	return res.RowsAffected()
}
