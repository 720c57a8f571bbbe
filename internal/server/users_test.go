package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"nuge-api/internal/domain"
)

type stubUserRepo struct {
	users map[uuid.UUID]*domain.User
}

func (s *stubUserRepo) List(_ context.Context, limit, offset int) ([]domain.User, int, error) {
	var out []domain.User
	for _, u := range s.users {
		out = append(out, *u)
	}
	return out, len(s.users), nil
}

func (s *stubUserRepo) FindByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	return s.users[id], nil
}

func (s *stubUserRepo) Update(_ context.Context, id uuid.UUID, upd domain.UserUpdate) (*domain.User, error) {
	u := s.users[id]
	if u == nil {
		return nil, nil
	}
	if upd.Email != nil {
		u.Email = *upd.Email
	}
	return u, nil
}

func (s *stubUserRepo) Delete(_ context.Context, id uuid.UUID) (bool, error) {
	if _, ok := s.users[id]; !ok {
		return false, nil
	}
	delete(s.users, id)
	return true, nil
}

func bearerToken(t *testing.T, userID uuid.UUID) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": userID.String(),
		"aud": "authenticated",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testJWTSecret))
	require.NoError(t, err)
	return "Bearer " + signed
}

func userRequest(t *testing.T, srv *Server, method, path, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	w := httptest.NewRecorder()
	srv.engine.ServeHTTP(w, req)
	return w
}

func seedUser(srv *Server, id uuid.UUID) {
	repo := srv.users.(*stubUserRepo)
	if repo.users == nil {
		repo.users = make(map[uuid.UUID]*domain.User)
	}
	repo.users[id] = &domain.User{
		ID:        id,
		Email:     "user@example.com",
		Metadata:  json.RawMessage(`{"first_name":"Ada"}`),
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
}

func TestUsersRequireAuth(t *testing.T) {
	srv := newTestServer(t, &stubPaymentService{}, &stubWebhookService{})

	w := userRequest(t, srv, http.MethodGet, "/users/me", "")
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = userRequest(t, srv, http.MethodGet, "/users/me", "Bearer not-a-token")
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMyProfile(t *testing.T) {
	srv := newTestServer(t, &stubPaymentService{}, &stubWebhookService{})
	userID := uuid.New()
	seedUser(srv, userID)

	w := userRequest(t, srv, http.MethodGet, "/users/me", bearerToken(t, userID))
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, userID.String(), resp["id"])
	require.Equal(t, "user@example.com", resp["email"])
}

func TestGetUserNotFound(t *testing.T) {
	srv := newTestServer(t, &stubPaymentService{}, &stubWebhookService{})
	userID := uuid.New()
	seedUser(srv, userID)

	w := userRequest(t, srv, http.MethodGet, "/users/"+uuid.NewString(), bearerToken(t, userID))
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateOtherUserForbidden(t *testing.T) {
	srv := newTestServer(t, &stubPaymentService{}, &stubWebhookService{})
	userID := uuid.New()
	seedUser(srv, userID)

	w := userRequest(t, srv, http.MethodPatch, "/users/"+uuid.NewString(), bearerToken(t, userID))
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestDeleteOwnAccount(t *testing.T) {
	srv := newTestServer(t, &stubPaymentService{}, &stubWebhookService{})
	userID := uuid.New()
	seedUser(srv, userID)

	w := userRequest(t, srv, http.MethodDelete, "/users/"+userID.String(), bearerToken(t, userID))
	require.Equal(t, http.StatusNoContent, w.Code)

	w = userRequest(t, srv, http.MethodDelete, "/users/"+userID.String(), bearerToken(t, userID))
	require.Equal(t, http.StatusNotFound, w.Code)
}
