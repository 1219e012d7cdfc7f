package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/event-board/internal/auth"
	"github.com/sakif/event-board/internal/handler"
	"github.com/sakif/event-board/internal/model"
	sqliteRepo "github.com/sakif/event-board/internal/repository/sqlite"
	"github.com/sakif/event-board/internal/service"
)

var (
	anonymous = auth.Session{}
	adminSess = auth.Session{Identity: &model.Identity{Sub: "adminSub", Email: "boss@test.com", Name: "Boss"}, Admin: true}
	rivalSess = auth.Session{Identity: &model.Identity{Sub: "rivalSub", Email: "rival@test.com"}, Admin: true}
	userSess  = auth.Session{Identity: &model.Identity{Sub: "u1", Email: "u1@test.com", Name: "User One"}}
)

type stubVerifier struct {
	identity *model.Identity
	err      error
}

func (s *stubVerifier) Verify(_ context.Context, _ string) (*model.Identity, error) {
	return s.identity, s.err
}

// harness mounts the handlers the way the server does, minus the session
// resolver: tests put the session on the request context directly.
type harness struct {
	router   chi.Router
	store    *sqliteRepo.DB
	codec    *auth.SessionCodec
	auth     *service.AuthService
	verifier *stubVerifier
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	store, err := sqliteRepo.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	codec, err := auth.NewSessionCodec("0123456789abcdef0123456789abcdef", time.Hour)
	require.NoError(t, err)

	verifier := &stubVerifier{}
	events := service.NewEventService(store, logger, time.UTC)
	authSvc := service.NewAuthService(store, verifier, auth.NewPasswordServiceWithCost(bcrypt.MinCost), logger)
	cookies := auth.CookieConfig{SameSite: http.SameSiteLaxMode, MaxAge: time.Hour}

	eh := handler.NewEventHandler(events, logger)
	ah := handler.NewAuthHandler(authSvc, codec, cookies, logger)

	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Get("/events", eh.HandleList)
		r.Post("/events", eh.HandleCreate)
		r.Get("/events/{id}", eh.HandleGet)
		r.Put("/events/{id}", eh.HandleUpdate)
		r.Delete("/events/{id}", eh.HandleDelete)
		r.Post("/events/{id}/attend", eh.HandleJoin)
		r.Delete("/events/{id}/attend", eh.HandleLeave)

		r.Post("/login/accessToken", ah.HandleAccessTokenLogin)
		r.Post("/admin/login", ah.HandleAdminLogin)
		r.Post("/logout", ah.HandleLogout)
		r.Get("/profile", ah.HandleProfile)
		r.Get("/user-profile", ah.HandleUserProfile)
	})

	return &harness{router: r, store: store, codec: codec, auth: authSvc, verifier: verifier}
}

func (h *harness) do(t *testing.T, sess auth.Session, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set("Content-Type", "application/json")
	req = req.WithContext(auth.WithSession(req.Context(), sess))

	rr := httptest.NewRecorder()
	h.router.ServeHTTP(rr, req)
	return rr
}

// createEvent posts a valid event as adminSess and returns its id.
func (h *harness) createEvent(t *testing.T, title string) string {
	t.Helper()
	rr := h.do(t, adminSess, http.MethodPost, "/api/events",
		`{"title":"`+title+`","place":"Hall","time":"2026-03-01T18:00","category":"tech"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var res struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&res))
	return res.ID
}

func decodeEvent(t *testing.T, rr *httptest.ResponseRecorder) model.Event {
	t.Helper()
	var e model.Event
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&e))
	return e
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) handler.ErrorResponse {
	t.Helper()
	var e handler.ErrorResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&e))
	return e
}
