package membership

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

// Routes mounts the member and membership endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/members", func(r chi.Router) {
		r.Get("/", h.handleListMembers)
		r.Post("/add", h.handleCreateMember)
		r.Get("/get/{id}", h.handleGetMember)
		r.Put("/update/{id}", h.handleUpdateMember)
		r.Delete("/delete/{id}", h.handleDeleteMember)
	})

	// renew, upgrade, deactivate and history take a member id; the plain GET
	// takes the membership's own id.
	r.Route("/memberships", func(r chi.Router) {
		r.Get("/", h.handleListMemberships)
		r.Post("/{id}", h.handleCreateMembership)
		r.Get("/{id}", h.handleGetMembership)
		r.Put("/{id}/renew", h.handleRenewMembership)
		r.Put("/{id}/upgrade", h.handleUpgradeMembership)
		r.Post("/{id}/deactivate", h.handleDeactivateMembership)
		r.Get("/{id}/history", h.handleMembershipHistory)
	})
}

func (h *Handler) handleCreateMember(w http.ResponseWriter, r *http.Request) {
	var input MemberInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Error(w, err)
		return
	}

	member, err := h.service.CreateMember(r.Context(), input)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, member)
}

func (h *Handler) handleGetMember(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathInt64(r, "id")
	if err != nil {
		httpx.Error(w, err)
		return
	}

	member, err := h.service.GetMember(r.Context(), id)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, member)
}

func (h *Handler) handleListMembers(w http.ResponseWriter, r *http.Request) {
	members, err := h.service.ListMembers(r.Context())
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, members)
}

func (h *Handler) handleUpdateMember(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathInt64(r, "id")
	if err != nil {
		httpx.Error(w, err)
		return
	}
	var input MemberInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Error(w, err)
		return
	}

	member, err := h.service.UpdateMember(r.Context(), id, input)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, member)
}

func (h *Handler) handleDeleteMember(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathInt64(r, "id")
	if err != nil {
		httpx.Error(w, err)
		return
	}

	if err := h.service.DeleteMember(r.Context(), id); err != nil {
		httpx.Error(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) handleCreateMembership(w http.ResponseWriter, r *http.Request) {
	memberID, err := httpx.PathInt64(r, "id")
	if err != nil {
		httpx.Error(w, err)
		return
	}
	t, err := queryType(r, "type")
	if err != nil {
		httpx.Error(w, err)
		return
	}

	ms, err := h.service.CreateMembership(r.Context(), memberID, t)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, ms)
}

func (h *Handler) handleRenewMembership(w http.ResponseWriter, r *http.Request) {
	memberID, err := httpx.PathInt64(r, "id")
	if err != nil {
		httpx.Error(w, err)
		return
	}

	ms, err := h.service.RenewMembership(r.Context(), memberID)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, ms)
}

func (h *Handler) handleUpgradeMembership(w http.ResponseWriter, r *http.Request) {
	memberID, err := httpx.PathInt64(r, "id")
	if err != nil {
		httpx.Error(w, err)
		return
	}
	t, err := queryType(r, "newType")
	if err != nil {
		httpx.Error(w, err)
		return
	}

	ms, err := h.service.UpgradeMembership(r.Context(), memberID, t)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, ms)
}

func (h *Handler) handleDeactivateMembership(w http.ResponseWriter, r *http.Request) {
	memberID, err := httpx.PathInt64(r, "id")
	if err != nil {
		httpx.Error(w, err)
		return
	}

	if err := h.service.DeactivateMembership(r.Context(), memberID); err != nil {
		httpx.Error(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) handleGetMembership(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathInt64(r, "id")
	if err != nil {
		httpx.Error(w, err)
		return
	}

	ms, err := h.service.GetMembership(r.Context(), id)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, ms)
}

func (h *Handler) handleListMemberships(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListMemberships(r.Context())
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *Handler) handleMembershipHistory(w http.ResponseWriter, r *http.Request) {
	memberID, err := httpx.PathInt64(r, "id")
	if err != nil {
		httpx.Error(w, err)
		return
	}

	events, err := h.service.MembershipHistory(r.Context(), memberID)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, events)
}

func queryType(r *http.Request, name string) (MembershipType, error) {
	raw, err := httpx.QueryString(r, name)
	if err != nil {
		return "", err
	}
	return ParseMembershipType(raw)
}
