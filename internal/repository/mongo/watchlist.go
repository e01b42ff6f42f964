package mongo

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sathyapriyan07/metamovies-sub001/internal/domain"
)

const defaultWatchlistLimit = 50

type watchlistDoc struct {
	ID       string `bson:"_id"`
	UserID   string `bson:"userId"`
	ItemID   string `bson:"itemId"`
	Title    string `bson:"title"`
	Category string `bson:"category"`
	ImageURL string `bson:"imageUrl"`
	AddedAt  int64  `bson:"addedAt"`
}

type WatchlistRepository struct {
	collection *mongo.Collection
}

func NewWatchlistRepository(client *mongo.Client, dbName string) *WatchlistRepository {
	return &WatchlistRepository{collection: client.Database(dbName).Collection("watchlist")}
}

func watchlistDocID(userID uuid.UUID, itemID string) string {
	return userID.String() + ":" + strings.TrimSpace(itemID)
}

func (r *WatchlistRepository) EnsureIndexes(ctx context.Context) error {
	if r == nil || r.collection == nil {
		return nil
	}
	models := []mongo.IndexModel{
		{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "addedAt", Value: -1}}},
	}
	_, err := r.collection.Indexes().CreateMany(ctx, models)
	return err
}

// Upsert adds an entry. Re-adding refreshes display fields but keeps the
// original addedAt.
func (r *WatchlistRepository) Upsert(ctx context.Context, entry domain.WatchlistEntry) error {
	addedAt := entry.AddedAt
	if addedAt.IsZero() {
		addedAt = time.Now()
	}
	update := bson.M{
		"$set": bson.M{
			"title":    entry.Title,
			"category": string(entry.Category),
			"imageUrl": entry.ImageURL,
		},
		"$setOnInsert": bson.M{
			"userId":  entry.UserID.String(),
			"itemId":  strings.TrimSpace(entry.ItemID),
			"addedAt": addedAt.Unix(),
		},
	}
	_, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": watchlistDocID(entry.UserID, entry.ItemID)},
		update,
		options.Update().SetUpsert(true),
	)
	return err
}

func (r *WatchlistRepository) Delete(ctx context.Context, userID uuid.UUID, itemID string) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": watchlistDocID(userID, itemID)})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *WatchlistRepository) Exists(ctx context.Context, userID uuid.UUID, itemID string) (bool, error) {
	count, err := r.collection.CountDocuments(
		ctx,
		bson.M{"_id": watchlistDocID(userID, itemID)},
		options.Count().SetLimit(1),
	)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// List returns the user's entries, most recently added first.
func (r *WatchlistRepository) List(ctx context.Context, userID uuid.UUID, limit int) ([]domain.WatchlistEntry, error) {
	if limit <= 0 {
		limit = defaultWatchlistLimit
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "addedAt", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, bson.M{"userId": userID.String()}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []watchlistDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	entries := make([]domain.WatchlistEntry, 0, len(docs))
	for _, doc := range docs {
		entries = append(entries, watchlistDocToEntry(doc))
	}
	return entries, nil
}

func watchlistDocToEntry(doc watchlistDoc) domain.WatchlistEntry {
	userID, _ := uuid.Parse(doc.UserID)
	return domain.WatchlistEntry{
		UserID:   userID,
		ItemID:   doc.ItemID,
		Title:    doc.Title,
		Category: domain.Category(doc.Category),
		ImageURL: doc.ImageURL,
		AddedAt:  time.Unix(doc.AddedAt, 0).UTC(),
	}
}
