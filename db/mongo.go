package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"keep-notes/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type userDocument struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Email     string             `bson:"email"`
	Password  string             `bson:"password"`
	Role      string             `bson:"role"`
	CreatedAt time.Time          `bson:"created_at"`
}

type noteDocument struct {
	ID        primitive.ObjectID     `bson:"_id,omitempty"`
	Title     string                 `bson:"title"`
	Content   *string                `bson:"content"`
	Items     []models.ChecklistItem `bson:"items"`
	Color     string                 `bson:"color"`
	Pinned    bool                   `bson:"pinned"`
	OwnerID   string                 `bson:"owner_id"`
	CreatedAt time.Time              `bson:"created_at"`
}

func (d noteDocument) toModel() models.Note {
	items := d.Items
	if items == nil {
		items = []models.ChecklistItem{}
	}
	return models.Note{
		ID:        d.ID.Hex(),
		OwnerID:   d.OwnerID,
		Title:     d.Title,
		Content:   d.Content,
		Items:     items,
		Color:     d.Color,
		Pinned:    d.Pinned,
		CreatedAt: d.CreatedAt,
	}
}

// MongoStore keeps users and notes in two MongoDB collections.
type MongoStore struct {
	client *mongo.Client
	users  *mongo.Collection
	notes  *mongo.Collection
}

// ConnectMongo dials uri, verifies the connection and makes sure the unique
// email index exists.
func ConnectMongo(ctx context.Context, uri, database string) (*MongoStore, error) {
	const op = "db.ConnectMongo"

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s := NewMongoStore(client, client.Database(database))
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return s, nil
}

func NewMongoStore(client *mongo.Client, database *mongo.Database) *MongoStore {
	return &MongoStore{
		client: client,
		users:  database.Collection("users"),
		notes:  database.Collection("notes"),
	}
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	_, err := s.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return err
	}
	_, err = s.notes.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "pinned", Value: -1}},
	})
	return err
}

func (s *MongoStore) CreateUser(ctx context.Context, u models.User) (string, error) {
	doc := userDocument{
		Email:     u.Email,
		Password:  u.PasswordHash,
		Role:      string(u.Role),
		CreatedAt: time.Now().UTC(),
	}
	res, err := s.users.InsertOne(ctx, doc)
	if mongo.IsDuplicateKeyError(err) {
		return "", ErrUserExists
	}
	if err != nil {
		return "", fmt.Errorf("db.CreateUser: %w", err)
	}
	return res.InsertedID.(primitive.ObjectID).Hex(), nil
}

func (s *MongoStore) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	return s.findUser(ctx, bson.M{"email": email})
}

func (s *MongoStore) GetUserByID(ctx context.Context, id string) (models.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return models.User{}, ErrNotFound
	}
	return s.findUser(ctx, bson.M{"_id": oid})
}

func (s *MongoStore) findUser(ctx context.Context, filter bson.M) (models.User, error) {
	var doc userDocument
	err := s.users.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.User{}, ErrNotFound
	}
	if err != nil {
		return models.User{}, fmt.Errorf("db.findUser: %w", err)
	}
	role, err := models.ParseRole(doc.Role)
	if err != nil {
		return models.User{}, fmt.Errorf("db.findUser: %w", err)
	}
	return models.User{
		ID:           doc.ID.Hex(),
		Email:        doc.Email,
		PasswordHash: doc.Password,
		Role:         role,
		CreatedAt:    doc.CreatedAt,
	}, nil
}

func (s *MongoStore) CreateNote(ctx context.Context, ownerID string, f models.NoteFields) (string, error) {
	var n models.Note
	applyFields(&n, f)
	doc := noteDocument{
		Title:     n.Title,
		Content:   n.Content,
		Items:     n.Items,
		Color:     n.Color,
		Pinned:    n.Pinned,
		OwnerID:   ownerID,
		CreatedAt: time.Now().UTC(),
	}
	res, err := s.notes.InsertOne(ctx, doc)
	if err != nil {
		return "", fmt.Errorf("db.CreateNote: %w", err)
	}
	return res.InsertedID.(primitive.ObjectID).Hex(), nil
}

func (s *MongoStore) ListNotesByOwner(ctx context.Context, ownerID string) ([]models.Note, error) {
	const op = "db.ListNotesByOwner"

	opts := options.Find().SetSort(bson.D{
		{Key: "pinned", Value: -1},
		{Key: "created_at", Value: -1},
		{Key: "_id", Value: -1},
	})
	cur, err := s.notes.Find(ctx, bson.M{"owner_id": ownerID}, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	var docs []noteDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	notes := make([]models.Note, 0, len(docs))
	for _, d := range docs {
		notes = append(notes, d.toModel())
	}
	return notes, nil
}

func (s *MongoStore) UpdateNote(ctx context.Context, noteID, ownerID string, f models.NoteFields) error {
	oid, err := primitive.ObjectIDFromHex(noteID)
	if err != nil {
		return ErrNotFound
	}
	var n models.Note
	applyFields(&n, f)

	res, err := s.notes.UpdateOne(ctx,
		bson.M{"_id": oid, "owner_id": ownerID},
		bson.M{"$set": bson.M{
			"title":   n.Title,
			"content": n.Content,
			"items":   n.Items,
			"color":   n.Color,
			"pinned":  n.Pinned,
		}},
	)
	if err != nil {
		return fmt.Errorf("db.UpdateNote: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) DeleteNote(ctx context.Context, noteID, ownerID string) error {
	oid, err := primitive.ObjectIDFromHex(noteID)
	if err != nil {
		return ErrNotFound
	}
	res, err := s.notes.DeleteOne(ctx, bson.M{"_id": oid, "owner_id": ownerID})
	if err != nil {
		return fmt.Errorf("db.DeleteNote: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) ListAllNotes(ctx context.Context) ([]models.NoteSummary, error) {
	const op = "db.ListAllNotes"

	opts := options.Find().
		SetProjection(bson.M{"title": 1}).
		SetSort(bson.D{{Key: "_id", Value: 1}})
	cur, err := s.notes.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	var docs []noteDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	summaries := make([]models.NoteSummary, 0, len(docs))
	for _, d := range docs {
		summaries = append(summaries, models.NoteSummary{ID: d.ID.Hex(), Title: d.Title})
	}
	return summaries, nil
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
