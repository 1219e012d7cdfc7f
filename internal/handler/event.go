package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/event-board/internal/apperror"
	"github.com/sakif/event-board/internal/auth"
	"github.com/sakif/event-board/internal/model"
	"github.com/sakif/event-board/internal/service"
)

// EventHandler serves /api/events.
//
// The handler never decides who may do what. It reads the resolved session
// from the request context and hands it to the service, which owns the
// authorization order.
type EventHandler struct {
	events *service.EventService
	logger *slog.Logger
}

// NewEventHandler creates a new EventHandler.
func NewEventHandler(events *service.EventService, logger *slog.Logger) *EventHandler {
	return &EventHandler{events: events, logger: logger}
}

// eventRequest is the create payload. A createdBy field sent by the client
// has no home here and is dropped by the decoder.
type eventRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Place       string `json:"place"`
	Time        string `json:"time"`
	Category    string `json:"category"`
	ImgURL      string `json:"img_url"`
}

type createdResponse struct {
	ID string `json:"id"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// HandleList returns every event matching the query filters.
//
// HTTP: GET /api/events?title=&place=&category=&from=YYYY-MM-DD&to=YYYY-MM-DD
func (h *EventHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	events, err := h.events.List(r.Context(), service.ListQuery{
		Title:    q.Get("title"),
		Place:    q.Get("place"),
		Category: q.Get("category"),
		From:     q.Get("from"),
		To:       q.Get("to"),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

// HandleGet returns one event.
//
// HTTP: GET /api/events/{id}
//
// A malformed id is 404 with a message; an absent one is a bare 404.
func (h *EventHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	event, err := h.events.Get(r.Context(), chi.URLParam(r, "id"))
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, event)
	case errors.Is(err, apperror.ErrMalformedID):
		writeJSON(w, http.StatusNotFound, messageResponse{Message: "Wrong event id format"})
	case errors.Is(err, apperror.ErrNotFound):
		w.WriteHeader(http.StatusNotFound)
	default:
		h.logger.Error("failed to get event", slog.String("error", err.Error()))
		writeError(w, err)
	}
}

// HandleCreate stores a new event owned by the caller.
//
// HTTP: POST /api/events → 201 {"id": "..."}
func (h *EventHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	sess := auth.SessionFromContext(r.Context())

	var req eventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		// Unreadable bodies are treated as empty so the caller is still
		// checked before the payload.
		h.logger.Debug("invalid event JSON", slog.String("error", err.Error()))
		req = eventRequest{}
	}

	event, err := h.events.Create(r.Context(), sess.Identity, sess.Admin, service.EventInput{
		Title:       req.Title,
		Description: req.Description,
		Place:       req.Place,
		Time:        req.Time,
		Category:    req.Category,
		ImgURL:      req.ImgURL,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, createdResponse{ID: event.ID})
}

// HandleUpdate applies a partial update.
//
// HTTP: PUT /api/events/{id} → 200 with the updated event
//
// Only string values are considered; anything else in the body is ignored.
func (h *EventHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	sess := auth.SessionFromContext(r.Context())

	var body map[string]any
	if err := decodeJSON(w, r, &body); err != nil {
		h.logger.Debug("invalid event patch JSON", slog.String("error", err.Error()))
		body = nil
	}

	event, err := h.events.Update(r.Context(), sess.Identity, sess.Admin, chi.URLParam(r, "id"), patchFrom(body))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// HandleDelete removes an event.
//
// HTTP: DELETE /api/events/{id} → 204
func (h *EventHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	sess := auth.SessionFromContext(r.Context())
	if err := h.events.Delete(r.Context(), sess.Identity, sess.Admin, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleJoin adds the caller to the attendee list.
//
// HTTP: POST /api/events/{id}/attend → 200 with the event
func (h *EventHandler) HandleJoin(w http.ResponseWriter, r *http.Request) {
	sess := auth.SessionFromContext(r.Context())
	event, err := h.events.Join(r.Context(), sess.Identity, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// HandleLeave removes the caller from the attendee list.
//
// HTTP: DELETE /api/events/{id}/attend → 200 with the event
func (h *EventHandler) HandleLeave(w http.ResponseWriter, r *http.Request) {
	sess := auth.SessionFromContext(r.Context())
	event, err := h.events.Leave(r.Context(), sess.Identity, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

func patchFrom(body map[string]any) model.EventPatch {
	str := func(key string) *string {
		s, ok := body[key].(string)
		if !ok {
			return nil
		}
		return &s
	}
	return model.EventPatch{
		Title:       str("title"),
		Description: str("description"),
		Place:       str("place"),
		Time:        str("time"),
		Category:    str("category"),
		ImgURL:      str("img_url"),
	}
}
