package storage

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/xaenox/intent-bot/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

const (
	defaultMongoDatabase   = "chatbot"
	defaultMongoCollection = "conversations"
)

type conversationDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	UserID    int64              `bson:"user_id"`
	Username  string             `bson:"username,omitempty"`
	Message   string             `bson:"message"`
	Timestamp time.Time          `bson:"timestamp"`
}

func (d *conversationDoc) toModel() *models.Conversation {
	return &models.Conversation{
		ID:        d.ID.Hex(),
		UserID:    d.UserID,
		Username:  d.Username,
		Message:   d.Message,
		Timestamp: d.Timestamp,
	}
}

type MongoStorage struct {
	client     *mongo.Client
	collection *mongo.Collection
	logger     *zap.Logger
}

func NewMongoStorage(ctx context.Context, cfg Config, logger *zap.Logger) (*MongoStorage, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("error connecting to mongodb: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("error pinging mongodb: %w", err)
	}

	database, collection := mongoNames(cfg)
	logger.Info("Connected to MongoDB",
		zap.String("database", database),
		zap.String("collection", collection))

	return &MongoStorage{
		client:     client,
		collection: client.Database(database).Collection(collection),
		logger:     logger,
	}, nil
}

// mongoNames resolves the database from the URI path, then cfg.Database.
func mongoNames(cfg Config) (database, collection string) {
	database = cfg.Database
	if u, err := url.Parse(cfg.URI); err == nil {
		if name := strings.Trim(u.Path, "/"); name != "" {
			database = name
		}
	}
	if database == "" {
		database = defaultMongoDatabase
	}
	collection = cfg.Collection
	if collection == "" {
		collection = defaultMongoCollection
	}
	return database, collection
}

func (s *MongoStorage) SaveConversation(ctx context.Context, conv *models.Conversation) error {
	doc := conversationDoc{
		ID:        primitive.NewObjectID(),
		UserID:    conv.UserID,
		Username:  conv.Username,
		Message:   conv.Message,
		Timestamp: conv.Timestamp,
	}
	if _, err := s.collection.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("error saving conversation: %w", err)
	}
	conv.ID = doc.ID.Hex()
	return nil
}

func (s *MongoStorage) ListUserIDs(ctx context.Context) ([]int64, error) {
	values, err := s.collection.Distinct(ctx, "user_id", bson.D{})
	if err != nil {
		return nil, fmt.Errorf("error listing user ids: %w", err)
	}

	ids := make([]int64, 0, len(values))
	for _, v := range values {
		switch id := v.(type) {
		case int64:
			ids = append(ids, id)
		case int32:
			ids = append(ids, int64(id))
		case float64:
			ids = append(ids, int64(id))
		default:
			s.logger.Warn("Skipping non-integer user id", zap.Any("user_id", v))
		}
	}
	return ids, nil
}

func (s *MongoStorage) GetUserConversations(ctx context.Context, userID int64) ([]*models.Conversation, error) {
	return s.find(ctx, bson.D{{Key: "user_id", Value: userID}})
}

func (s *MongoStorage) ListConversations(ctx context.Context) ([]*models.Conversation, error) {
	return s.find(ctx, bson.D{})
}

func (s *MongoStorage) find(ctx context.Context, filter bson.D) ([]*models.Conversation, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	cursor, err := s.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("error querying conversations: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []conversationDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("error decoding conversations: %w", err)
	}

	conversations := make([]*models.Conversation, 0, len(docs))
	for i := range docs {
		conversations = append(conversations, docs[i].toModel())
	}
	return conversations, nil
}

func (s *MongoStorage) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
