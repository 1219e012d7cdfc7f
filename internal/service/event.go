// Package service holds the business rules: who may create, change, delete,
// join and leave events, and how logins map onto stored accounts.
//
// Services take the resolved caller as plain values (*model.Identity plus
// the admin flag) and return apperror values; they know nothing about HTTP.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sakif/event-board/internal/apperror"
	"github.com/sakif/event-board/internal/model"
	"github.com/sakif/event-board/internal/repository"
)

// EventInput is the payload of a create request. Any createdBy the client
// sent has already been dropped; the owner always comes from the caller.
type EventInput struct {
	Title       string
	Description string
	Place       string
	Time        string
	Category    string
	ImgURL      string
}

// ListQuery carries the raw listing filters. From and To are YYYY-MM-DD.
type ListQuery struct {
	Title    string
	Place    string
	Category string
	From     string
	To       string
}

// EventService implements event CRUD and attendance.
type EventService struct {
	repo   repository.EventRepository
	logger *slog.Logger
	loc    *time.Location
	now    func() time.Time
}

// NewEventService returns a service reading dates in loc.
func NewEventService(repo repository.EventRepository, logger *slog.Logger, loc *time.Location) *EventService {
	if loc == nil {
		loc = time.Local
	}
	return &EventService{
		repo:   repo,
		logger: logger,
		loc:    loc,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// List returns every event matching q.
func (s *EventService) List(ctx context.Context, q ListQuery) ([]model.Event, error) {
	from, to, err := DayBounds(q.From, q.To, s.loc)
	if err != nil {
		return nil, err
	}

	events, err := s.repo.ListEvents(ctx, model.EventFilter{
		Title:    strings.TrimSpace(q.Title),
		Place:    strings.TrimSpace(q.Place),
		Category: strings.TrimSpace(q.Category),
		TimeFrom: from,
		TimeTo:   to,
	})
	if err != nil {
		s.logger.Error("failed to list events", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing events: %w", err)
	}
	return events, nil
}

// Get returns one event. A malformed id is apperror.ErrMalformedID, an
// unknown one apperror.ErrNotFound.
func (s *EventService) Get(ctx context.Context, id string) (*model.Event, error) {
	if !model.ValidEventID(id) {
		return nil, apperror.MalformedID("event")
	}
	return s.repo.GetEvent(ctx, id)
}

// Create stores a new event owned by who.
//
// Checks run in order: caller identity, admin flag, required fields, title
// uniqueness.
func (s *EventService) Create(ctx context.Context, who *model.Identity, isAdmin bool, in EventInput) (*model.Event, error) {
	if err := requireAdmin(who, isAdmin); err != nil {
		return nil, err
	}

	event := &model.Event{
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		Place:       strings.TrimSpace(in.Place),
		Category:    strings.TrimSpace(in.Category),
		ImgURL:      strings.TrimSpace(in.ImgURL),
		CreatedBy:   who.Sub,
		CreatedAt:   s.now(),
		Attendees:   []model.Attendee{},
	}

	for _, f := range []struct{ name, value string }{
		{"title", event.Title},
		{"place", event.Place},
		{"time", strings.TrimSpace(in.Time)},
		{"category", event.Category},
	} {
		if f.value == "" {
			return nil, apperror.ValidationFailed(f.name, "Missing required fields")
		}
	}

	when, err := NormalizeTime(in.Time, s.loc)
	if err != nil {
		return nil, err
	}
	event.Time = when

	exists, err := s.repo.TitleExists(ctx, event.Title)
	if err != nil {
		return nil, fmt.Errorf("checking title: %w", err)
	}
	if exists {
		return nil, apperror.DuplicateTitle(event.Title)
	}

	if err := s.repo.CreateEvent(ctx, event); err != nil {
		if !errors.Is(err, apperror.ErrConflict) {
			s.logger.Error("failed to create event",
				slog.String("title", event.Title),
				slog.String("error", err.Error()),
			)
		}
		return nil, fmt.Errorf("creating event: %w", err)
	}

	s.logger.Info("event created",
		slog.String("id", event.ID),
		slog.String("title", event.Title),
		slog.String("createdBy", event.CreatedBy),
	)
	return event, nil
}

// Update applies patch to an event owned by who and returns the result.
//
// Only non-blank fields (after trimming) count; a patch with none left is
// rejected with "No changes". The owner check runs before any look at the
// patch, so a non-owner is refused whatever they send.
func (s *EventService) Update(ctx context.Context, who *model.Identity, isAdmin bool, id string, patch model.EventPatch) (*model.Event, error) {
	event, err := s.loadOwned(ctx, who, isAdmin, id)
	if err != nil {
		return nil, err
	}

	clean, err := s.cleanPatch(patch)
	if err != nil {
		return nil, err
	}
	if clean.Title != nil && *clean.Title != event.Title {
		exists, err := s.repo.TitleExists(ctx, *clean.Title)
		if err != nil {
			return nil, fmt.Errorf("checking title: %w", err)
		}
		if exists {
			return nil, apperror.DuplicateTitle(*clean.Title)
		}
	}

	if err := s.repo.UpdateEvent(ctx, id, clean); err != nil {
		return nil, fmt.Errorf("updating event: %w", err)
	}

	clean.Apply(event)
	s.logger.Info("event updated", slog.String("id", id), slog.String("by", who.Sub))
	return event, nil
}

// Delete removes an event owned by who.
func (s *EventService) Delete(ctx context.Context, who *model.Identity, isAdmin bool, id string) error {
	if _, err := s.loadOwned(ctx, who, isAdmin, id); err != nil {
		return err
	}

	if err := s.repo.DeleteEvent(ctx, id); err != nil {
		return fmt.Errorf("deleting event: %w", err)
	}

	s.logger.Info("event deleted", slog.String("id", id), slog.String("by", who.Sub))
	return nil
}

// Join adds who to the attendee list, or refreshes their joinedAt.
// The id format is checked before the caller.
func (s *EventService) Join(ctx context.Context, who *model.Identity, id string) (*model.Event, error) {
	if !model.ValidEventID(id) {
		return nil, apperror.MalformedID("event")
	}
	if !authenticated(who) {
		return nil, apperror.Unauthenticated()
	}

	if err := s.repo.AddAttendee(ctx, id, who.Attendee(s.now())); err != nil {
		return nil, fmt.Errorf("joining event: %w", err)
	}

	s.logger.Info("attendee joined", slog.String("event", id), slog.String("user", who.Sub))
	return s.repo.GetEvent(ctx, id)
}

// Leave removes who from the attendee list. Leaving an event one never
// joined succeeds.
func (s *EventService) Leave(ctx context.Context, who *model.Identity, id string) (*model.Event, error) {
	if !model.ValidEventID(id) {
		return nil, apperror.MalformedID("event")
	}
	if !authenticated(who) {
		return nil, apperror.Unauthenticated()
	}

	if err := s.repo.RemoveAttendee(ctx, id, who.Sub); err != nil {
		return nil, fmt.Errorf("leaving event: %w", err)
	}

	s.logger.Info("attendee left", slog.String("event", id), slog.String("user", who.Sub))
	return s.repo.GetEvent(ctx, id)
}

// loadOwned enforces: identity, admin flag, id format, existence, owner.
func (s *EventService) loadOwned(ctx context.Context, who *model.Identity, isAdmin bool, id string) (*model.Event, error) {
	if err := requireAdmin(who, isAdmin); err != nil {
		return nil, err
	}
	if !model.ValidEventID(id) {
		return nil, apperror.MalformedID("event")
	}

	event, err := s.repo.GetEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	if event.CreatedBy != who.Sub {
		s.logger.Info("ownership check refused",
			slog.String("event", id),
			slog.String("owner", event.CreatedBy),
			slog.String("caller", who.Sub),
		)
		return nil, apperror.Forbidden("Only the creator of this event may change it")
	}
	return event, nil
}

// cleanPatch trims every field, drops blank ones and normalizes time.
func (s *EventService) cleanPatch(p model.EventPatch) (model.EventPatch, error) {
	keep := func(v *string) *string {
		if v == nil {
			return nil
		}
		t := strings.TrimSpace(*v)
		if t == "" {
			return nil
		}
		return &t
	}

	out := model.EventPatch{
		Title:       keep(p.Title),
		Description: keep(p.Description),
		Place:       keep(p.Place),
		Time:        keep(p.Time),
		Category:    keep(p.Category),
		ImgURL:      keep(p.ImgURL),
	}
	if out.IsEmpty() {
		return out, apperror.ValidationFailed("", "No changes")
	}
	if out.Time != nil {
		when, err := NormalizeTime(*out.Time, s.loc)
		if err != nil {
			return out, err
		}
		out.Time = &when
	}
	return out, nil
}

func authenticated(who *model.Identity) bool {
	return who != nil && who.Sub != ""
}

func requireAdmin(who *model.Identity, isAdmin bool) error {
	if !authenticated(who) {
		return apperror.Unauthenticated()
	}
	if !isAdmin {
		return apperror.Forbidden("Admin access required")
	}
	return nil
}
