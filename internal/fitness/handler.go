package fitness

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"gymnexus/internal/httpx"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// Routes mounts the /fitness endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/fitness", func(r chi.Router) {
		r.Post("/workouts", h.handleCreateWorkout)
		r.Get("/workouts", h.handleListWorkouts)
		r.Get("/workouts/{workoutId}", h.handleGetWorkout)
		r.Delete("/workouts/{workoutId}", h.handleDeleteWorkout)
		r.Post("/workouts/{workoutId}/exercises", h.handleAddExercise)
		r.Delete("/workouts/{workoutId}/exercises/{exerciseId}", h.handleRemoveExercise)

		r.Get("/workouts/member/{memberId}", h.handleMemberWorkouts)
		r.Delete("/workouts/member/{memberId}", h.handleDeleteMemberWorkouts)
		r.Post("/workouts/member/{memberId}/refresh", h.handleRefreshMember)

		r.Post("/exercises", h.handleCreateExercise)
		r.Get("/exercises", h.handleListExercises)
	})
}

func (h *Handler) handleCreateWorkout(w http.ResponseWriter, r *http.Request) {
	memberID, err := httpx.QueryInt64(r, "memberId")
	if err != nil {
		httpx.Error(w, err)
		return
	}
	name, err := httpx.QueryString(r, "workoutName")
	if err != nil {
		httpx.Error(w, err)
		return
	}

	workout, err := h.service.CreateWorkout(r.Context(), memberID, name, r.URL.Query().Get("notes"))
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, workout)
}

func (h *Handler) handleListWorkouts(w http.ResponseWriter, r *http.Request) {
	workouts, err := h.service.GetAllWorkouts(r.Context())
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, workouts)
}

func (h *Handler) handleGetWorkout(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathInt64(r, "workoutId")
	if err != nil {
		httpx.Error(w, err)
		return
	}

	workout, err := h.service.GetWorkout(r.Context(), id)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, workout)
}

func (h *Handler) handleDeleteWorkout(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathInt64(r, "workoutId")
	if err != nil {
		httpx.Error(w, err)
		return
	}

	if err := h.service.DeleteWorkout(r.Context(), id); err != nil {
		httpx.Error(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleAddExercise(w http.ResponseWriter, r *http.Request) {
	workoutID, err := httpx.PathInt64(r, "workoutId")
	if err != nil {
		httpx.Error(w, err)
		return
	}
	exerciseID, err := httpx.QueryInt64(r, "exerciseId")
	if err != nil {
		httpx.Error(w, err)
		return
	}
	sets, err := httpx.QueryInt(r, "sets")
	if err != nil {
		httpx.Error(w, err)
		return
	}
	reps, err := httpx.QueryInt(r, "reps")
	if err != nil {
		httpx.Error(w, err)
		return
	}
	weight, err := httpx.QueryFloat(r, "weight")
	if err != nil {
		httpx.Error(w, err)
		return
	}

	workout, err := h.service.AddExerciseToWorkout(r.Context(), workoutID, exerciseID, sets, reps, weight)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, workout)
}

func (h *Handler) handleRemoveExercise(w http.ResponseWriter, r *http.Request) {
	workoutID, err := httpx.PathInt64(r, "workoutId")
	if err != nil {
		httpx.Error(w, err)
		return
	}
	exerciseID, err := httpx.PathInt64(r, "exerciseId")
	if err != nil {
		httpx.Error(w, err)
		return
	}

	workout, err := h.service.RemoveExerciseFromWorkout(r.Context(), workoutID, exerciseID)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, workout)
}

func (h *Handler) handleMemberWorkouts(w http.ResponseWriter, r *http.Request) {
	memberID, err := httpx.PathInt64(r, "memberId")
	if err != nil {
		httpx.Error(w, err)
		return
	}

	workouts, err := h.service.GetMemberWorkouts(r.Context(), memberID)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, workouts)
}

func (h *Handler) handleDeleteMemberWorkouts(w http.ResponseWriter, r *http.Request) {
	memberID, err := httpx.PathInt64(r, "memberId")
	if err != nil {
		httpx.Error(w, err)
		return
	}

	if err := h.service.DeleteMemberWorkouts(r.Context(), memberID); err != nil {
		httpx.Error(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type refreshResponse struct {
	MemberID  int64 `json:"memberId"`
	Refreshed int64 `json:"refreshed"`
}

func (h *Handler) handleRefreshMember(w http.ResponseWriter, r *http.Request) {
	memberID, err := httpx.PathInt64(r, "memberId")
	if err != nil {
		httpx.Error(w, err)
		return
	}

	n, err := h.service.RefreshMemberSnapshots(r.Context(), memberID)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, refreshResponse{MemberID: memberID, Refreshed: n})
}

func (h *Handler) handleCreateExercise(w http.ResponseWriter, r *http.Request) {
	var input ExerciseInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Error(w, err)
		return
	}

	exercise, err := h.service.CreateExercise(r.Context(), input)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, exercise)
}

func (h *Handler) handleListExercises(w http.ResponseWriter, r *http.Request) {
	exercises, err := h.service.GetAllExercises(r.Context())
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, exercises)
}
