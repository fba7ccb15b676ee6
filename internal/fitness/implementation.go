package fitness

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"gymnexus/internal/apperror"
	"gymnexus/internal/logger"
	"gymnexus/internal/telemetry"
)

// service implements the Service interface.
type service struct {
	repo       Repository
	identities IdentityLookup
	now        func() time.Time
}

// Option configures the fitness service.
type Option func(*service)

// WithClock replaces the wall clock used for workout timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *service) { s.now = now }
}

// NewService creates a new fitness service instance.
func NewService(repo Repository, identities IdentityLookup, opts ...Option) Service {
	s := &service{
		repo:       repo,
		identities: identities,
		now:        func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func workoutNotFound(id int64) error {
	return fmt.Errorf("workout not found with id %d: %w", id, apperror.ErrNotFound)
}

func exerciseNotFound(id int64) error {
	return fmt.Errorf("exercise not found with id %d: %w", id, apperror.ErrNotFound)
}

// CreateWorkout resolves the member and records a workout carrying the
// member's current name. Nothing is stored when the lookup fails.
func (s *service) CreateWorkout(ctx context.Context, memberID int64, name, notes string) (*Workout, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("workout name is required: %w", apperror.ErrInvalid)
	}

	identity, err := s.identities.Lookup(ctx, memberID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	workout := &Workout{
		WorkoutName: name,
		WorkoutDate: now,
		Notes:       notes,
		CreatedAt:   now,
		Exercises:   []WorkoutExercise{},
	}
	workout.stamp(identity, now)

	if err := s.repo.InsertWorkout(ctx, workout); err != nil {
		return nil, err
	}

	telemetry.RecordWorkoutWrite("create")
	logger.Info().Int64("workout_id", workout.ID).Int64("member_id", workout.MemberID).Msg("workout created")
	return workout, nil
}

func (s *service) GetWorkout(ctx context.Context, id int64) (*Workout, error) {
	return s.repo.GetWorkout(ctx, id)
}

func (s *service) DeleteWorkout(ctx context.Context, id int64) error {
	if err := s.repo.DeleteWorkout(ctx, id); err != nil {
		return err
	}
	telemetry.RecordWorkoutWrite("delete")
	logger.Info().Int64("workout_id", id).Msg("workout deleted")
	return nil
}

// GetAllWorkouts returns every workout with the names stored at its last sync.
func (s *service) GetAllWorkouts(ctx context.Context) ([]*Workout, error) {
	return s.repo.ListWorkouts(ctx)
}

// GetMemberWorkouts returns the member's workouts with the names replaced by
// the member's current ones. Stored rows are not modified.
func (s *service) GetMemberWorkouts(ctx context.Context, memberID int64) ([]*Workout, error) {
	identity, err := s.identities.Lookup(ctx, memberID)
	if err != nil {
		return nil, err
	}

	workouts, err := s.repo.ListMemberWorkouts(ctx, memberID)
	if err != nil {
		return nil, err
	}
	for _, w := range workouts {
		w.MemberFirstName = identity.FirstName
		w.MemberLastName = identity.LastName
	}
	return workouts, nil
}

// RefreshMemberSnapshots writes the member's current name into every stored
// workout of the member and returns how many were updated.
func (s *service) RefreshMemberSnapshots(ctx context.Context, memberID int64) (int64, error) {
	identity, err := s.identities.Lookup(ctx, memberID)
	if err != nil {
		return 0, err
	}

	n, err := s.repo.UpdateMemberSnapshot(ctx, *identity, s.now())
	if err != nil {
		return 0, err
	}

	telemetry.RecordWorkoutWrite("refresh")
	logger.Info().Int64("member_id", memberID).Int64("workouts", n).Msg("member snapshots refreshed")
	return n, nil
}

// DeleteMemberWorkouts removes every workout of the member. The member service
// is not consulted, so workouts of deleted members can still be purged.
func (s *service) DeleteMemberWorkouts(ctx context.Context, memberID int64) error {
	n, err := s.repo.DeleteMemberWorkouts(ctx, memberID)
	if err != nil {
		return err
	}
	telemetry.RecordWorkoutWrite("delete_member")
	logger.Info().Int64("member_id", memberID).Int64("workouts", n).Msg("member workouts deleted")
	return nil
}

func (s *service) AddExerciseToWorkout(ctx context.Context, workoutID, exerciseID int64, sets, reps int, weight float64) (*Workout, error) {
	if sets < 0 || reps < 0 || weight < 0 {
		return nil, fmt.Errorf("sets, reps and weight must not be negative: %w", apperror.ErrInvalid)
	}
	if sets > math.MaxInt32 || reps > math.MaxInt32 {
		return nil, fmt.Errorf("sets and reps must not exceed %d: %w", math.MaxInt32, apperror.ErrInvalid)
	}
	if math.IsNaN(weight) || math.IsInf(weight, 0) {
		return nil, fmt.Errorf("weight must be a finite number: %w", apperror.ErrInvalid)
	}

	var workout *Workout
	err := s.repo.Tx(ctx, func(repo Repository) error {
		if _, err := repo.GetWorkout(ctx, workoutID); err != nil {
			return err
		}
		exercise, err := repo.GetExercise(ctx, exerciseID)
		if err != nil {
			return err
		}

		we := &WorkoutExercise{
			ExerciseID:   exercise.ID,
			ExerciseName: exercise.Name,
			Sets:         sets,
			Reps:         reps,
			Weight:       weight,
			CreatedAt:    s.now(),
		}
		if err := repo.AddWorkoutExercise(ctx, workoutID, we); err != nil {
			return err
		}
		workout, err = repo.GetWorkout(ctx, workoutID)
		return err
	})
	if err != nil {
		return nil, err
	}

	telemetry.RecordWorkoutWrite("add_exercise")
	return workout, nil
}

// RemoveExerciseFromWorkout drops every entry of the exercise from the workout.
// Removing an exercise the workout does not contain is not an error.
func (s *service) RemoveExerciseFromWorkout(ctx context.Context, workoutID, exerciseID int64) (*Workout, error) {
	var workout *Workout
	err := s.repo.Tx(ctx, func(repo Repository) error {
		if _, err := repo.GetWorkout(ctx, workoutID); err != nil {
			return err
		}
		n, err := repo.RemoveWorkoutExercises(ctx, workoutID, exerciseID)
		if err != nil {
			return err
		}
		logger.Debug().Int64("workout_id", workoutID).Int64("exercise_id", exerciseID).Int64("removed", n).Msg("exercise removed")
		workout, err = repo.GetWorkout(ctx, workoutID)
		return err
	})
	if err != nil {
		return nil, err
	}

	telemetry.RecordWorkoutWrite("remove_exercise")
	return workout, nil
}

func (s *service) CreateExercise(ctx context.Context, input ExerciseInput) (*Exercise, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, fmt.Errorf("exercise name is required: %w", apperror.ErrInvalid)
	}

	exercise := &Exercise{
		Name:        name,
		Category:    strings.TrimSpace(input.Category),
		MuscleGroup: strings.TrimSpace(input.MuscleGroup),
		CreatedAt:   s.now(),
	}
	if err := s.repo.InsertExercise(ctx, exercise); err != nil {
		return nil, err
	}
	return exercise, nil
}

func (s *service) GetAllExercises(ctx context.Context) ([]*Exercise, error) {
	return s.repo.ListExercises(ctx)
}
