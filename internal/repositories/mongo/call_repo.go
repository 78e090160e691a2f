package mongo

import (
	"context"
	"errors"
	"time"

	"github.com/yoockh/aicruiter/internal/models"
	"github.com/yoockh/aicruiter/internal/utils"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type CallRepository interface {
	Create(ctx context.Context, c *models.CallRecord) error
	GetByCallID(ctx context.Context, callID string) (*models.CallRecord, error)
	End(ctx context.Context, callID string, endedAt time.Time, durationSeconds int64, reason, errMsg string) error
	ListByInterview(ctx context.Context, interviewID string, limit int64) ([]models.CallRecord, error)
}

type callRepo struct {
	col *mongo.Collection
}

func NewCallRepo(db *mongo.Database) CallRepository {
	return &callRepo{col: db.Collection("calls")}
}

func (r *callRepo) Create(ctx context.Context, c *models.CallRecord) error {
	if c.StartedAt.IsZero() {
		c.StartedAt = time.Now().UTC()
	}
	_, err := r.col.InsertOne(ctx, c)
	if mongo.IsDuplicateKeyError(err) {
		return utils.ErrConflict
	}
	return err
}

func (r *callRepo) GetByCallID(ctx context.Context, callID string) (*models.CallRecord, error) {
	var c models.CallRecord
	err := r.col.FindOne(ctx, bson.M{"call_id": callID}).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, utils.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *callRepo) End(ctx context.Context, callID string, endedAt time.Time, durationSeconds int64, reason, errMsg string) error {
	set := bson.M{
		"status":           "ended",
		"ended_at":         endedAt.UTC(),
		"duration_seconds": durationSeconds,
		"end_reason":       reason,
	}
	if errMsg != "" {
		set["error"] = errMsg
	}

	res, err := r.col.UpdateOne(ctx, bson.M{"call_id": callID}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return utils.ErrNotFound
	}
	return nil
}

func (r *callRepo) ListByInterview(ctx context.Context, interviewID string, limit int64) ([]models.CallRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	cur, err := r.col.Find(ctx,
		bson.M{"interview_id": interviewID},
		options.Find().
			SetSort(bson.D{{Key: "started_at", Value: -1}}).
			SetLimit(limit),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.CallRecord
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
