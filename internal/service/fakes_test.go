package service

import (
	"context"
	"io"
	"log/slog"

	"github.com/sakif/event-board/internal/apperror"
	"github.com/sakif/event-board/internal/model"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// fakeEventRepo is an in-memory repository.EventRepository. Set the *Err
// fields to simulate store failures.
type fakeEventRepo struct {
	events map[string]*model.Event
	order  []string

	listErr   error
	createErr error
	updates   int
	deletes   int
	lastPatch model.EventPatch
}

func newFakeEventRepo() *fakeEventRepo {
	return &fakeEventRepo{events: make(map[string]*model.Event)}
}

func (f *fakeEventRepo) put(e model.Event) *model.Event {
	if e.ID == "" {
		e.ID = model.NewEventID()
	}
	if e.Attendees == nil {
		e.Attendees = []model.Attendee{}
	}
	f.events[e.ID] = &e
	f.order = append(f.order, e.ID)
	return &e
}

func (f *fakeEventRepo) ListEvents(_ context.Context, filter model.EventFilter) ([]model.Event, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := []model.Event{}
	for _, id := range f.order {
		e, ok := f.events[id]
		if !ok {
			continue
		}
		if filter.Category != "" && e.Category != filter.Category {
			continue
		}
		if filter.TimeFrom != "" && e.Time < filter.TimeFrom {
			continue
		}
		if filter.TimeTo != "" && e.Time > filter.TimeTo {
			continue
		}
		out = append(out, *e)
	}
	return out, nil
}

func (f *fakeEventRepo) GetEvent(_ context.Context, id string) (*model.Event, error) {
	e, ok := f.events[id]
	if !ok {
		return nil, apperror.NotFound("event", id)
	}
	cp := *e
	cp.Attendees = append([]model.Attendee{}, e.Attendees...)
	return &cp, nil
}

func (f *fakeEventRepo) TitleExists(_ context.Context, title string) (bool, error) {
	for _, e := range f.events {
		if e.Title == title {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeEventRepo) CreateEvent(_ context.Context, e *model.Event) error {
	if f.createErr != nil {
		return f.createErr
	}
	stored := f.put(*e)
	e.ID = stored.ID
	return nil
}

func (f *fakeEventRepo) UpdateEvent(_ context.Context, id string, p model.EventPatch) error {
	e, ok := f.events[id]
	if !ok {
		return apperror.NotFound("event", id)
	}
	f.updates++
	f.lastPatch = p
	p.Apply(e)
	return nil
}

func (f *fakeEventRepo) DeleteEvent(_ context.Context, id string) error {
	if _, ok := f.events[id]; !ok {
		return apperror.NotFound("event", id)
	}
	f.deletes++
	delete(f.events, id)
	return nil
}

func (f *fakeEventRepo) AddAttendee(_ context.Context, id string, a model.Attendee) error {
	e, ok := f.events[id]
	if !ok {
		return apperror.NotFound("event", id)
	}
	for i := range e.Attendees {
		if e.Attendees[i].UserSub == a.UserSub {
			e.Attendees[i].JoinedAt = a.JoinedAt
			return nil
		}
	}
	e.Attendees = append(e.Attendees, a)
	return nil
}

func (f *fakeEventRepo) RemoveAttendee(_ context.Context, id, sub string) error {
	e, ok := f.events[id]
	if !ok {
		return apperror.NotFound("event", id)
	}
	kept := []model.Attendee{}
	for _, a := range e.Attendees {
		if a.UserSub != sub {
			kept = append(kept, a)
		}
	}
	e.Attendees = kept
	return nil
}

// fakeUserRepo is an in-memory repository.UserRepository keyed by email.
type fakeUserRepo struct {
	byEmail   map[string]*model.User
	upsertErr error
	getErr    error
	upserts   int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{byEmail: make(map[string]*model.User)}
}

func (f *fakeUserRepo) UpsertLogin(_ context.Context, u *model.User) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.upserts++
	if existing, ok := f.byEmail[u.Email]; ok {
		existing.Sub, existing.Name, existing.Picture, existing.LastLoginAt = u.Sub, u.Name, u.Picture, u.LastLoginAt
		return nil
	}
	cp := *u
	f.byEmail[u.Email] = &cp
	return nil
}

func (f *fakeUserRepo) SaveAdmin(_ context.Context, u *model.User) error {
	cp := *u
	if existing, ok := f.byEmail[u.Email]; ok {
		cp.CreatedAt = existing.CreatedAt
		cp.LastLoginAt = existing.LastLoginAt
	}
	f.byEmail[u.Email] = &cp
	return nil
}

func (f *fakeUserRepo) GetUserBySub(_ context.Context, sub string) (*model.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	for _, u := range f.byEmail {
		if u.Sub == sub {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apperror.NotFound("user", sub)
}

func (f *fakeUserRepo) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	u, ok := f.byEmail[email]
	if !ok {
		return nil, apperror.NotFound("user", email)
	}
	cp := *u
	return &cp, nil
}

type fakeVerifier struct {
	identity *model.Identity
	err      error
}

func (f *fakeVerifier) Verify(_ context.Context, _ string) (*model.Identity, error) {
	return f.identity, f.err
}
