package archive

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"askline/internal/board"
	"askline/pkg/models"
)

type Repository interface {
	AppendMessage(ctx context.Context, sessionID string, msg models.Message) error
	UpdateMessage(ctx context.Context, sessionID string, msg models.Message) error
	RemoveMessage(ctx context.Context, sessionID, messageID string) error
	ClearMessages(ctx context.Context, sessionID string) error
	MarkEnded(ctx context.Context, sessionID string, endedAt time.Time, stats board.Stats) error
	GetTranscript(ctx context.Context, sessionID string) (*Transcript, error)
}

type MongoDBRepository struct {
	collection *mongo.Collection
}

func NewRepository(db *mongo.Database) Repository {
	return &MongoDBRepository{
		collection: db.Collection("transcripts"),
	}
}

func (r *MongoDBRepository) AppendMessage(ctx context.Context, sessionID string, msg models.Message) error {
	filter := bson.M{"session_id": sessionID}
	update := bson.M{
		"$push": bson.M{"messages": msg},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
		"$setOnInsert": bson.M{
			"session_id": sessionID,
		},
	}

	_, err := r.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to append message to transcript: %w", err)
	}

	return nil
}

func (r *MongoDBRepository) UpdateMessage(ctx context.Context, sessionID string, msg models.Message) error {
	filter := bson.M{
		"session_id":  sessionID,
		"messages.id": msg.ID,
	}
	update := bson.M{
		"$set": bson.M{
			"messages.$": msg,
			"updated_at": time.Now().UTC(),
		},
	}

	_, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update message in transcript: %w", err)
	}

	return nil
}

func (r *MongoDBRepository) RemoveMessage(ctx context.Context, sessionID, messageID string) error {
	filter := bson.M{"session_id": sessionID}
	update := bson.M{
		"$pull": bson.M{"messages": bson.M{"id": messageID}},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	}

	_, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to remove message from transcript: %w", err)
	}

	return nil
}

func (r *MongoDBRepository) ClearMessages(ctx context.Context, sessionID string) error {
	filter := bson.M{"session_id": sessionID}
	update := bson.M{
		"$set": bson.M{
			"messages":   []models.Message{},
			"updated_at": time.Now().UTC(),
		},
	}

	_, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to clear transcript messages: %w", err)
	}

	return nil
}

func (r *MongoDBRepository) MarkEnded(ctx context.Context, sessionID string, endedAt time.Time, stats board.Stats) error {
	filter := bson.M{"session_id": sessionID}
	update := bson.M{
		"$set": bson.M{
			"ended_at":   endedAt,
			"stats":      stats,
			"updated_at": time.Now().UTC(),
		},
		"$setOnInsert": bson.M{
			"session_id": sessionID,
		},
	}

	_, err := r.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to mark transcript ended: %w", err)
	}

	return nil
}

func (r *MongoDBRepository) GetTranscript(ctx context.Context, sessionID string) (*Transcript, error) {
	filter := bson.M{"session_id": sessionID}

	var transcript Transcript
	err := r.collection.FindOne(ctx, filter).Decode(&transcript)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transcript: %w", err)
	}

	return &transcript, nil
}
