package membership

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	svc, _ := newTestService(t)
	r := chi.NewRouter()
	NewHandler(svc).Routes(r)
	return r
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandlerMemberEndpoints(t *testing.T) {
	h := newTestRouter(t)

	rec := do(t, h, http.MethodPost, "/members/add",
		`{"firstName":"John","lastName":"Doe","email":"john@example.com","phoneNumber":"555","dateOfBirth":"1990-04-02"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var created map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "John", created["firstName"])
	assert.Equal(t, "Doe", created["lastName"])
	assert.Equal(t, "1990-04-02", created["dateOfBirth"])
	assert.Nil(t, created["membership"])
	id := int64(created["id"].(float64))

	rec = do(t, h, http.MethodGet, fmt.Sprintf("/members/get/%d", id), "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got Member
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "john@example.com", got.Email)

	rec = do(t, h, http.MethodPut, fmt.Sprintf("/members/update/%d", id),
		`{"firstName":"Jon","lastName":"Doe","email":"jon@example.com"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "Jon", got.FirstName)

	rec = do(t, h, http.MethodGet, "/members", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []Member
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 1)

	rec = do(t, h, http.MethodDelete, fmt.Sprintf("/members/delete/%d", id), "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, fmt.Sprintf("/members/get/%d", id), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "member not found")
}

func TestHandlerRejectsBadInput(t *testing.T) {
	h := newTestRouter(t)

	tests := []struct {
		name, method, target, body string
	}{
		{"malformed json", http.MethodPost, "/members/add", `{"firstName":`},
		{"missing email", http.MethodPost, "/members/add", `{"firstName":"A","lastName":"B"}`},
		{"bad date", http.MethodPost, "/members/add", `{"firstName":"A","lastName":"B","email":"c","dateOfBirth":"yesterday"}`},
		{"non numeric id", http.MethodGet, "/members/get/abc", ""},
		{"missing type", http.MethodPost, "/memberships/1", ""},
		{"unknown type", http.MethodPost, "/memberships/1?type=GOLD", ""},
		{"missing new type", http.MethodPut, "/memberships/1/upgrade", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, tt.method, tt.target, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}
}

func TestHandlerMembershipLifecycle(t *testing.T) {
	h := newTestRouter(t)

	rec := do(t, h, http.MethodPost, "/members/add", `{"firstName":"Ann","lastName":"Lee","email":"ann@example.com"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var member Member
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &member))

	rec = do(t, h, http.MethodPost, fmt.Sprintf("/memberships/%d?type=basic", member.ID), "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var ms map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ms))
	assert.Equal(t, "BASIC", ms["membershipType"])
	assert.Equal(t, "ACTIVE", ms["status"])
	assert.Equal(t, float64(member.ID), ms["memberId"])

	rec = do(t, h, http.MethodPost, fmt.Sprintf("/memberships/%d?type=PREMIUM", member.ID), "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, h, http.MethodPut, fmt.Sprintf("/memberships/%d/upgrade?newType=PREMIUM", member.ID), "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ms))
	assert.Equal(t, "PREMIUM", ms["membershipType"])

	rec = do(t, h, http.MethodPost, fmt.Sprintf("/memberships/%d/deactivate", member.ID), "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())

	rec = do(t, h, http.MethodPut, fmt.Sprintf("/memberships/%d/renew", member.ID), "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ms))
	assert.Equal(t, "ACTIVE", ms["status"])

	rec = do(t, h, http.MethodGet, fmt.Sprintf("/memberships/%d", int64(ms["id"].(float64))), "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/memberships", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var all []Membership
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &all))
	assert.Len(t, all, 1)

	rec = do(t, h, http.MethodGet, fmt.Sprintf("/memberships/%d/history", member.ID), "")
	require.Equal(t, http.StatusOK, rec.Code)
	var history []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &history))
	assert.Len(t, history, 5)
	assert.Equal(t, "MembershipRenewed", history[4]["eventType"])

	rec = do(t, h, http.MethodPut, "/memberships/999/renew", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
