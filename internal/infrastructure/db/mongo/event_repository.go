package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/rolegate/authd/internal/core/domain"
	"github.com/rolegate/authd/internal/core/ports"
)

const collectionAuthEvents = "auth_events"

// EventRepository implements ports.AuditRepository using MongoDB.
type EventRepository struct {
	col *mongo.Collection
}

// NewEventRepository creates a new EventRepository.
func NewEventRepository(db *mongo.Database) ports.AuditRepository {
	return &EventRepository{col: db.Collection(collectionAuthEvents)}
}

// InsertEvent appends a security event to the auth_events collection.
func (r *EventRepository) InsertEvent(ctx context.Context, event *domain.AuditEvent) error {
	_, err := r.col.InsertOne(ctx, toEventDoc(event, time.Now().UTC()))
	return err
}

func toEventDoc(event *domain.AuditEvent, storedAt time.Time) bson.M {
	doc := bson.M{
		"action":    string(event.Action),
		"subject":   event.Subject,
		"timestamp": event.Timestamp.UTC(),
		"stored_at": storedAt,
	}
	if event.ID != "" {
		doc["_id"] = event.ID
	}
	if event.Actor != "" {
		doc["actor"] = event.Actor
	}
	if len(event.Details) > 0 {
		doc["details"] = event.Details
	}
	return doc
}
