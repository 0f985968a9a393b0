package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rmallick/credit-ledger/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoDB is the movement archive: an off-path mirror of posted transactions
// kept for audit and reporting. The authoritative log lives in Postgres; the
// processor feeds this collection from the posted-movement queue.
type MongoDB struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// creates a new MongoDB instance
func NewMongoDB(uri, dbName string) (*MongoDB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Mongodb: %w", err)
	}

	// pinging the database
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping Mongodb: %w", err)
	}

	collection := client.Database(dbName).Collection("movements")

	indexModels := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "account_id", Value: 1}},
		},
	}

	_, err = collection.Indexes().CreateMany(ctx, indexModels)
	if err != nil {
		return nil, fmt.Errorf("failed to create indexes: %w", err)
	}

	return &MongoDB{
		client:     client,
		collection: collection,
	}, nil
}

// closes the mongoDB connection
func (m *MongoDB) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

// ArchiveTransaction mirrors one posted movement. The transaction id is the
// document id, so redelivered events upsert instead of duplicating.
func (m *MongoDB) ArchiveTransaction(ctx context.Context, tx *models.Transaction) error {
	doc := bson.M{
		"_id":               tx.ID,
		"account_id":        tx.AccountID,
		"operation_type_id": int(tx.OperationTypeID),
		"operation":         tx.OperationTypeID.String(),
		"amount":            tx.Amount.StringFixed(models.MoneyScale),
		"event_date":        tx.EventDate,
		"archived_at":       time.Now().UTC(),
	}

	opts := options.Replace().SetUpsert(true)
	_, err := m.collection.ReplaceOne(ctx, bson.M{"_id": tx.ID}, doc, opts)
	if err != nil {
		return fmt.Errorf("failed to archive transaction: %w", err)
	}

	return nil
}

// CountByAccount reports how many movements the archive holds for an account.
func (m *MongoDB) CountByAccount(ctx context.Context, accountID string) (int64, error) {
	count, err := m.collection.CountDocuments(ctx, bson.M{"account_id": accountID})
	if err != nil {
		return 0, fmt.Errorf("failed to count archived movements: %w", err)
	}
	return count, nil
}

// GetArchivedTransaction retrieves one archived movement by transaction id.
func (m *MongoDB) GetArchivedTransaction(ctx context.Context, id int64) (bson.M, error) {
	var doc bson.M
	err := m.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to get archived movement: %w", err)
	}

	return doc, nil
}
