package services

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/AnshRaj112/moodjournal-backend/internal/database"
	"github.com/AnshRaj112/moodjournal-backend/internal/models"
)

const riskReportCollection = "risk_batch_runs"

// RiskReportStore keeps the outcome of each scoring pass.
type RiskReportStore interface {
	SaveBatchRun(ctx context.Context, run *models.RiskBatchRun) error
	ListBatchRuns(ctx context.Context, limit int64) ([]models.RiskBatchRun, error)
}

// MongoRiskReports stores batch runs in MongoDB.
type MongoRiskReports struct {
	col *mongo.Collection
}

// NewMongoRiskReports returns nil when MongoDB is not connected.
func NewMongoRiskReports() *MongoRiskReports {
	if database.DB == nil {
		return nil
	}
	return &MongoRiskReports{col: database.DB.Collection(riskReportCollection)}
}

// EnsureIndexes configures indexes for the batch run collection.
// Called on startup from main after Mongo has connected.
func (r *MongoRiskReports) EnsureIndexes(ctx context.Context) error {
	_, err := r.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "started_at", Value: -1}},
			Options: options.Index().SetName("idx_started_at"),
		},
		{
			Keys:    bson.D{{Key: "run_id", Value: 1}},
			Options: options.Index().SetName("idx_run_id").SetUnique(true),
		},
	})
	return err
}

func (r *MongoRiskReports) SaveBatchRun(ctx context.Context, run *models.RiskBatchRun) error {
	_, err := r.col.InsertOne(ctx, run)
	return err
}

// ListBatchRuns returns the most recent runs first.
func (r *MongoRiskReports) ListBatchRuns(ctx context.Context, limit int64) ([]models.RiskBatchRun, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "started_at", Value: -1}}).
		SetLimit(limit)

	cursor, err := r.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	runs := []models.RiskBatchRun{}
	if err := cursor.All(ctx, &runs); err != nil {
		return nil, err
	}
	return runs, nil
}
