package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	driver "go.mongodb.org/mongo-driver/mongo"

	"github.com/sakif/event-board/internal/apperror"
	"github.com/sakif/event-board/internal/model"
)

type eventDoc struct {
	ID          primitive.ObjectID `bson:"_id"`
	Title       string             `bson:"title"`
	Description string             `bson:"description"`
	Place       string             `bson:"place"`
	Time        string             `bson:"time"`
	Category    string             `bson:"category"`
	ImgURL      string             `bson:"img_url"`
	CreatedBy   string             `bson:"createdBy"`
	CreatedAt   time.Time          `bson:"createdAt"`
	Attendees   []attendeeDoc      `bson:"attendees"`
}

type attendeeDoc struct {
	UserSub  string    `bson:"userSub"`
	Name     string    `bson:"name,omitempty"`
	Email    string    `bson:"email,omitempty"`
	Picture  string    `bson:"picture,omitempty"`
	JoinedAt time.Time `bson:"joinedAt"`
}

func (d *eventDoc) toModel() model.Event {
	e := model.Event{
		ID:          d.ID.Hex(),
		Title:       d.Title,
		Description: d.Description,
		Place:       d.Place,
		Time:        d.Time,
		Category:    d.Category,
		ImgURL:      d.ImgURL,
		CreatedBy:   d.CreatedBy,
		CreatedAt:   d.CreatedAt,
		Attendees:   make([]model.Attendee, 0, len(d.Attendees)),
	}
	for _, a := range d.Attendees {
		e.Attendees = append(e.Attendees, model.Attendee(a))
	}
	return e
}

// objectID turns an external id into an ObjectID. Ids that cannot be parsed
// can never match a document, so they are reported as not found.
func objectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, apperror.NotFound("event", id)
	}
	return oid, nil
}

// ListEvents returns the matching events in natural order.
func (db *DB) ListEvents(ctx context.Context, filter model.EventFilter) ([]model.Event, error) {
	query := bson.M{}
	if filter.Title != "" {
		query["title"] = containsCI(filter.Title)
	}
	if filter.Place != "" {
		query["place"] = containsCI(filter.Place)
	}
	if filter.Category != "" {
		query["category"] = filter.Category
	}
	if filter.TimeFrom != "" || filter.TimeTo != "" {
		window := bson.M{}
		if filter.TimeFrom != "" {
			window["$gte"] = filter.TimeFrom
		}
		if filter.TimeTo != "" {
			window["$lte"] = filter.TimeTo
		}
		query["time"] = window
	}

	cursor, err := db.events.Find(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("mongo: listing events: %w", err)
	}
	defer cursor.Close(ctx)

	events := make([]model.Event, 0)
	for cursor.Next(ctx) {
		var doc eventDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("mongo: decoding event: %w", err)
		}
		events = append(events, doc.toModel())
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("mongo: iterating events: %w", err)
	}

	return events, nil
}

// GetEvent returns one event by id.
func (db *DB) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}

	var doc eventDoc
	err = db.events.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if err != nil {
		if errors.Is(err, driver.ErrNoDocuments) {
			return nil, apperror.NotFound("event", id)
		}
		return nil, fmt.Errorf("mongo: getting event %s: %w", id, err)
	}

	e := doc.toModel()
	return &e, nil
}

// TitleExists reports whether an event already uses exactly title.
func (db *DB) TitleExists(ctx context.Context, title string) (bool, error) {
	n, err := db.events.CountDocuments(ctx, bson.M{"title": title})
	if err != nil {
		return false, fmt.Errorf("mongo: checking title: %w", err)
	}
	return n > 0, nil
}

// CreateEvent inserts event, filling in ID and CreatedAt when empty.
func (db *DB) CreateEvent(ctx context.Context, event *model.Event) error {
	if event.ID == "" {
		event.ID = model.NewEventID()
	}
	oid, err := objectID(event.ID)
	if err != nil {
		return fmt.Errorf("mongo: creating event: %w", err)
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	if event.Attendees == nil {
		event.Attendees = []model.Attendee{}
	}

	doc := eventDoc{
		ID:          oid,
		Title:       event.Title,
		Description: event.Description,
		Place:       event.Place,
		Time:        event.Time,
		Category:    event.Category,
		ImgURL:      event.ImgURL,
		CreatedBy:   event.CreatedBy,
		CreatedAt:   event.CreatedAt,
		Attendees:   make([]attendeeDoc, 0, len(event.Attendees)),
	}
	for _, a := range event.Attendees {
		doc.Attendees = append(doc.Attendees, attendeeDoc(a))
	}

	if _, err := db.events.InsertOne(ctx, doc); err != nil {
		if driver.IsDuplicateKeyError(err) {
			return apperror.DuplicateTitle(event.Title)
		}
		return fmt.Errorf("mongo: creating event: %w", err)
	}
	return nil
}

// UpdateEvent $sets the fields present in patch.
func (db *DB) UpdateEvent(ctx context.Context, id string, patch model.EventPatch) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}

	set := bson.M{}
	put := func(field string, v *string) {
		if v != nil {
			set[field] = *v
		}
	}
	put("title", patch.Title)
	put("description", patch.Description)
	put("place", patch.Place)
	put("time", patch.Time)
	put("category", patch.Category)
	put("img_url", patch.ImgURL)

	if len(set) == 0 {
		return apperror.ValidationFailed("", "No changes")
	}

	res, err := db.events.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": set})
	if err != nil {
		if driver.IsDuplicateKeyError(err) && patch.Title != nil {
			return apperror.DuplicateTitle(*patch.Title)
		}
		return fmt.Errorf("mongo: updating event %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return apperror.NotFound("event", id)
	}
	return nil
}

// DeleteEvent removes the event document.
func (db *DB) DeleteEvent(ctx context.Context, id string) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}

	res, err := db.events.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("mongo: deleting event %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return apperror.NotFound("event", id)
	}
	return nil
}

// AddAttendee refreshes joinedAt of an existing entry, otherwise pushes a
// new one. The $ne guard on the push keeps a racing second join from
// producing a duplicate entry.
func (db *DB) AddAttendee(ctx context.Context, eventID string, a model.Attendee) error {
	oid, err := objectID(eventID)
	if err != nil {
		return err
	}

	res, err := db.events.UpdateOne(ctx,
		bson.M{"_id": oid, "attendees.userSub": a.UserSub},
		bson.M{"$set": bson.M{"attendees.$.joinedAt": a.JoinedAt}},
	)
	if err != nil {
		return fmt.Errorf("mongo: refreshing attendee on %s: %w", eventID, err)
	}
	if res.MatchedCount > 0 {
		return nil
	}

	res, err = db.events.UpdateOne(ctx,
		bson.M{"_id": oid, "attendees.userSub": bson.M{"$ne": a.UserSub}},
		bson.M{"$push": bson.M{"attendees": attendeeDoc(a)}},
	)
	if err != nil {
		return fmt.Errorf("mongo: adding attendee to %s: %w", eventID, err)
	}
	if res.MatchedCount > 0 {
		return nil
	}

	// Either the event is gone or a concurrent join won the push.
	n, err := db.events.CountDocuments(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("mongo: looking up event %s: %w", eventID, err)
	}
	if n == 0 {
		return apperror.NotFound("event", eventID)
	}
	return nil
}

// RemoveAttendee pulls the entry for userSub.
func (db *DB) RemoveAttendee(ctx context.Context, eventID, userSub string) error {
	oid, err := objectID(eventID)
	if err != nil {
		return err
	}

	res, err := db.events.UpdateOne(ctx,
		bson.M{"_id": oid},
		bson.M{"$pull": bson.M{"attendees": bson.M{"userSub": userSub}}},
	)
	if err != nil {
		return fmt.Errorf("mongo: removing attendee from %s: %w", eventID, err)
	}
	if res.MatchedCount == 0 {
		return apperror.NotFound("event", eventID)
	}
	return nil
}

func containsCI(s string) primitive.Regex {
	return primitive.Regex{Pattern: regexp.QuoteMeta(s), Options: "i"}
}
