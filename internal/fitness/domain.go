// Package fitness keeps the workout ledger and the exercise catalog. Workouts
// carry a copy of the owning member's name taken from the member service.
package fitness

import (
	"context"
	"time"
)

// Identity is the slice of a member the ledger copies into workouts.
type Identity struct {
	ID        int64  `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// IdentityLookup resolves members against the member service. Implementations
// fail with apperror.ErrNotFound for unknown members and apperror.ErrUnavailable
// when the member service cannot be reached.
type IdentityLookup interface {
	Lookup(ctx context.Context, memberID int64) (*Identity, error)
}

// Workout is one training session of a member. MemberFirstName and
// MemberLastName are the names as of IdentitySyncedAt.
type Workout struct {
	ID               int64             `json:"id"`
	MemberID         int64             `json:"memberId"`
	MemberFirstName  string            `json:"memberFirstName"`
	MemberLastName   string            `json:"memberLastName"`
	WorkoutName      string            `json:"workoutName"`
	WorkoutDate      time.Time         `json:"workoutDate"`
	Notes            string            `json:"notes"`
	CreatedAt        time.Time         `json:"createdAt"`
	IdentitySyncedAt time.Time         `json:"identitySyncedAt"`
	Exercises        []WorkoutExercise `json:"exercises"`
}

func (w *Workout) stamp(identity *Identity, at time.Time) {
	w.MemberID = identity.ID
	w.MemberFirstName = identity.FirstName
	w.MemberLastName = identity.LastName
	w.IdentitySyncedAt = at
}

// Exercise is a catalog entry.
type Exercise struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Category    string    `json:"category"`
	MuscleGroup string    `json:"muscleGroup"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ExerciseInput carries the fields of a new catalog entry.
type ExerciseInput struct {
	Name        string `json:"name"`
	Category    string `json:"category"`
	MuscleGroup string `json:"muscleGroup"`
}

// WorkoutExercise is an exercise performed within a workout, in insertion order.
type WorkoutExercise struct {
	ID           int64     `json:"id"`
	ExerciseID   int64     `json:"exerciseId"`
	ExerciseName string    `json:"exerciseName"`
	Sets         int       `json:"sets"`
	Reps         int       `json:"reps"`
	Weight       float64   `json:"weight"`
	CreatedAt    time.Time `json:"createdAt"`
}
