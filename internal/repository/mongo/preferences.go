package mongo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type preferencesDoc struct {
	ID             string `bson:"_id"`
	ActivePlatform string `bson:"activePlatform"`
	UpdatedAt      int64  `bson:"updatedAt"`
}

// PreferencesRepository keeps per-user UI preferences such as the selected
// platform tab.
type PreferencesRepository struct {
	collection *mongo.Collection
}

func NewPreferencesRepository(client *mongo.Client, dbName string) *PreferencesRepository {
	return &PreferencesRepository{collection: client.Database(dbName).Collection("preferences")}
}

func (r *PreferencesRepository) GetActivePlatform(ctx context.Context, userID uuid.UUID) (string, bool, error) {
	var doc preferencesDoc
	err := r.collection.FindOne(ctx, bson.M{"_id": userID.String()}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return "", false, nil
		}
		return "", false, err
	}
	platform := normalizePlatform(doc.ActivePlatform)
	if platform == "" {
		return "", false, nil
	}
	return platform, true, nil
}

func (r *PreferencesRepository) SetActivePlatform(ctx context.Context, userID uuid.UUID, platform string) error {
	update := bson.M{
		"$set": bson.M{
			"activePlatform": normalizePlatform(platform),
			"updatedAt":      time.Now().Unix(),
		},
	}
	_, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": userID.String()},
		update,
		options.Update().SetUpsert(true),
	)
	return err
}

func normalizePlatform(platform string) string {
	return strings.ToLower(strings.TrimSpace(platform))
}
