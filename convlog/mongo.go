package convlog

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// MongoConfig configures the MongoDB-backed log.
type MongoConfig struct {
	URI        string `yaml:"uri" json:"uri"`
	Database   string `yaml:"database" json:"database"`
	Collection string `yaml:"collection" json:"collection"`
}

type mongoMessage struct {
	ConversationID string    `bson:"conversation_id"`
	Role           string    `bson:"role"`
	Content        string    `bson:"content"`
	CreatedAt      time.Time `bson:"created_at"`
}

// MongoStore persists transcripts in a MongoDB collection.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// NewMongoStore connects to MongoDB and prepares the message collection.
func NewMongoStore(ctx context.Context, cfg MongoConfig) (*MongoStore, error) {
	if cfg.URI == "" {
		return nil, fmt.Errorf("mongo uri is required")
	}
	dbName := cfg.Database
	if dbName == "" {
		dbName = "apibridge"
	}
	collName := cfg.Collection
	if collName == "" {
		collName = "conversation_messages"
	}

	client, err := mongo.Connect(options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	coll := client.Database(dbName).Collection(collName)
	idx := mongo.IndexModel{Keys: bson.D{{Key: "conversation_id", Value: 1}, {Key: "created_at", Value: 1}}}
	if _, err := coll.Indexes().CreateOne(ctx, idx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to create index: %w", err)
	}

	return &MongoStore{client: client, coll: coll}, nil
}

// AppendMessage records one turn.
func (s *MongoStore) AppendMessage(ctx context.Context, conversationID string, role Role, content string) error {
	doc := mongoMessage{
		ConversationID: conversationID,
		Role:           string(role),
		Content:        content,
		CreatedAt:      time.Now().UTC(),
	}
	if _, err := s.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to append message: %w", err)
	}
	return nil
}

// Save is a no-op: appends are written through.
func (s *MongoStore) Save(ctx context.Context, conversationID string) error {
	return nil
}

// Load returns the conversation's messages in append order.
func (s *MongoStore) Load(ctx context.Context, conversationID string) ([]Message, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cur, err := s.coll.Find(ctx, bson.M{"conversation_id": conversationID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}
	defer cur.Close(ctx)

	var docs []mongoMessage
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode messages: %w", err)
	}
	if len(docs) == 0 {
		return nil, ErrNotFound
	}

	msgs := make([]Message, 0, len(docs))
	for _, d := range docs {
		msgs = append(msgs, Message{
			ConversationID: d.ConversationID,
			Role:           Role(d.Role),
			Content:        d.Content,
			CreatedAt:      d.CreatedAt,
		})
	}
	return msgs, nil
}

// List returns one summary per stored conversation.
func (s *MongoStore) List(ctx context.Context) ([]Summary, error) {
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$conversation_id"},
			{Key: "message_count", Value: bson.D{{Key: "$sum", Value: 1}}},
			{Key: "last_activity", Value: bson.D{{Key: "$max", Value: "$created_at"}}},
		}}},
		bson.D{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	}
	cur, err := s.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer cur.Close(ctx)

	var rows []struct {
		ID           string    `bson:"_id"`
		MessageCount int       `bson:"message_count"`
		LastActivity time.Time `bson:"last_activity"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode summaries: %w", err)
	}

	summaries := make([]Summary, 0, len(rows))
	for _, r := range rows {
		summaries = append(summaries, Summary{
			ConversationID: r.ID,
			MessageCount:   r.MessageCount,
			LastActivity:   r.LastActivity,
		})
	}
	return summaries, nil
}

// Close disconnects the client.
func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
