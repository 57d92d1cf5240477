package handlers

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diewo77/pureclean/auth"
	"github.com/diewo77/pureclean/internal/models"
	"github.com/diewo77/pureclean/internal/services"
)

func TestReviewHandler(t *testing.T) {
	e := newEnv(t)
	h := NewReviewHandler(e.reviews, e.clients, e.gate, e.log)
	owner := e.account(t, "owner@example.com", "+7 900 111-11-11", models.RoleUser)
	manager := e.account(t, "boss@example.com", "+7 900 333-33-33", models.RoleManager)
	svc := e.service(t, "Coat", "1000")
	_, err := e.carts.AddItem(t.Context(), *owner.ClientID, svc.ID, 1)
	require.NoError(t, err)
	o, err := e.orders.Convert(t.Context(), owner, "")
	require.NoError(t, err)

	in := services.ReviewInput{OrderID: o.ID, Rating: 5, Comment: "Spotless"}
	rec := httptest.NewRecorder()
	h.Create(rec, request(t, http.MethodPost, "/reviews", in, owner))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, "order not delivered yet")

	for _, st := range []models.OrderStatus{models.OrderStatusInProgress, models.OrderStatusReady, models.OrderStatusDelivered} {
		_, err := e.orders.ChangeStatus(t.Context(), o.ID, st, nil)
		require.NoError(t, err)
	}

	rec = httptest.NewRecorder()
	h.Create(rec, request(t, http.MethodPost, "/reviews", in, owner))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var rv models.Review
	decodeBody(t, rec, &rv)

	rec = httptest.NewRecorder()
	h.Create(rec, request(t, http.MethodPost, "/reviews", in, owner))
	assert.Equal(t, http.StatusConflict, rec.Code)

	id := strconv.FormatUint(uint64(rv.ID), 10)
	rec = httptest.NewRecorder()
	h.SetHidden(rec, request(t, http.MethodPatch, "/reviews/"+id+"/hidden", hiddenRequest{Hidden: true}, manager, "id", id))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.List(rec, request(t, http.MethodGet, "/reviews", nil, auth.Guest))
	require.Equal(t, http.StatusOK, rec.Code)
	var visible []models.Review
	decodeBody(t, rec, &visible)
	assert.Empty(t, visible)

	rec = httptest.NewRecorder()
	h.List(rec, request(t, http.MethodGet, "/reviews?all=1", nil, owner))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	h.List(rec, request(t, http.MethodGet, "/reviews?all=1", nil, manager))
	require.Equal(t, http.StatusOK, rec.Code)
	var every []models.Review
	decodeBody(t, rec, &every)
	assert.Len(t, every, 1)

	rec = httptest.NewRecorder()
	h.Stats(rec, request(t, http.MethodGet, "/reviews/stats", nil, auth.Guest))
	require.Equal(t, http.StatusOK, rec.Code)
	var st services.ReviewStats
	decodeBody(t, rec, &st)
	assert.Equal(t, int64(1), st.Total)
	assert.Equal(t, int64(1), st.Hidden)

	rec = httptest.NewRecorder()
	h.Delete(rec, request(t, http.MethodDelete, "/reviews/"+id, nil, manager, "id", id))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestAdminUserHandler(t *testing.T) {
	e := newEnv(t)
	h := NewAdminUserHandler(e.users, e.log)
	admin := e.account(t, "admin@example.com", "+7 900 999-99-99", models.RoleAdmin)
	user := e.account(t, "user@example.com", "+7 900 111-11-11", models.RoleUser)
	id := strconv.FormatUint(uint64(user.UserID), 10)

	rec := httptest.NewRecorder()
	h.SetRole(rec, request(t, http.MethodPatch, "/admin/users/"+id+"/role", roleRequest{Role: models.RoleManager}, admin, "id", id))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	sess, found := e.users.LoadSession(t.Context(), user.UserID)
	require.True(t, found)
	assert.Equal(t, models.RoleManager, sess.Role)

	rec = httptest.NewRecorder()
	h.SetRole(rec, request(t, http.MethodPatch, "/admin/users/"+id+"/role", roleRequest{Role: "owner"}, admin, "id", id))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	self := strconv.FormatUint(uint64(admin.UserID), 10)
	rec = httptest.NewRecorder()
	h.Delete(rec, request(t, http.MethodDelete, "/admin/users/"+self, nil, admin, "id", self))
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = httptest.NewRecorder()
	h.Delete(rec, request(t, http.MethodDelete, "/admin/users/"+id, nil, admin, "id", id))
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	h.List(rec, request(t, http.MethodGet, "/admin/users", nil, admin))
	require.Equal(t, http.StatusOK, rec.Code)
	var list []models.User
	decodeBody(t, rec, &list)
	assert.Len(t, list, 1)
}
