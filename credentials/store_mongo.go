package credentials

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// userDocument is a document of the application's users collection.
type userDocument struct {
	ID       bson.RawValue `bson:"_id"`
	Email    string        `bson:"email"`
	Name     string        `bson:"name"`
	Role     string        `bson:"role"`
	Password string        `bson:"password"`
}

// MongoStore reads users from the users collection of a MongoDB database.
type MongoStore struct {
	client *mongo.Client
	users  *mongo.Collection
}

func openMongoStore(ctx context.Context, dsn, database string) (*MongoStore, error) {
	if database == "" {
		database = mongoDatabaseFromURI(dsn)
	}
	if database == "" {
		return nil, errors.New("credentials: no MongoDB database name given")
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(dsn))
	if err != nil {
		return nil, fmt.Errorf("credentials: failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("credentials: MongoDB is not responding: %w", err)
	}
	return &MongoStore{
		client: client,
		users:  client.Database(database).Collection("users"),
	}, nil
}

// mongoDatabaseFromURI returns the default database named in the path of a MongoDB URI.
// The host list may contain commas, so the URI is not parsed as a URL.
func mongoDatabaseFromURI(dsn string) string {
	_, rest, ok := strings.Cut(dsn, "://")
	if !ok {
		return ""
	}
	_, path, ok := strings.Cut(rest, "/")
	if !ok {
		return ""
	}
	path, _, _ = strings.Cut(path, "?")
	name, err := url.PathUnescape(path)
	if err != nil {
		return path
	}
	return name
}

func (s *MongoStore) FindUserByEmail(ctx context.Context, email string) (User, error) {
	var doc userDocument
	err := s.users.FindOne(ctx, bson.M{"email": email}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return User{}, ErrUserNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("credentials: user lookup failed: %w", err)
	}
	return User{
		ID:           documentID(doc.ID),
		Email:        doc.Email,
		Name:         doc.Name,
		Role:         doc.Role,
		PasswordHash: doc.Password,
	}, nil
}

func documentID(v bson.RawValue) string {
	if oid, ok := v.ObjectIDOK(); ok {
		return oid.Hex()
	}
	if s, ok := v.StringValueOK(); ok {
		return s
	}
	return v.String()
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
