package fitness

import (
	"context"
	"time"
)

// Service is the workout ledger.
type Service interface {
	CreateWorkout(ctx context.Context, memberID int64, name, notes string) (*Workout, error)
	GetWorkout(ctx context.Context, id int64) (*Workout, error)
	DeleteWorkout(ctx context.Context, id int64) error
	GetAllWorkouts(ctx context.Context) ([]*Workout, error)

	GetMemberWorkouts(ctx context.Context, memberID int64) ([]*Workout, error)
	RefreshMemberSnapshots(ctx context.Context, memberID int64) (int64, error)
	DeleteMemberWorkouts(ctx context.Context, memberID int64) error

	AddExerciseToWorkout(ctx context.Context, workoutID, exerciseID int64, sets, reps int, weight float64) (*Workout, error)
	RemoveExerciseFromWorkout(ctx context.Context, workoutID, exerciseID int64) (*Workout, error)

	CreateExercise(ctx context.Context, input ExerciseInput) (*Exercise, error)
	GetAllExercises(ctx context.Context) ([]*Exercise, error)
}

// Repository persists workouts and the exercise catalog.
type Repository interface {
	Tx(ctx context.Context, fn func(Repository) error) error

	InsertWorkout(ctx context.Context, w *Workout) error
	GetWorkout(ctx context.Context, id int64) (*Workout, error)
	ListWorkouts(ctx context.Context) ([]*Workout, error)
	ListMemberWorkouts(ctx context.Context, memberID int64) ([]*Workout, error)
	DeleteWorkout(ctx context.Context, id int64) error
	DeleteMemberWorkouts(ctx context.Context, memberID int64) (int64, error)
	// UpdateMemberSnapshot rewrites the stored names of every workout of the member.
	UpdateMemberSnapshot(ctx context.Context, identity Identity, syncedAt time.Time) (int64, error)

	InsertExercise(ctx context.Context, e *Exercise) error
	GetExercise(ctx context.Context, id int64) (*Exercise, error)
	ListExercises(ctx context.Context) ([]*Exercise, error)

	AddWorkoutExercise(ctx context.Context, workoutID int64, we *WorkoutExercise) error
	// RemoveWorkoutExercises deletes every entry of exerciseID from the workout.
	RemoveWorkoutExercises(ctx context.Context, workoutID, exerciseID int64) (int64, error)
}
