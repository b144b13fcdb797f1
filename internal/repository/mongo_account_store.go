package repository

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/lucidcrew/account-service/internal/model"
)

// MongoAccountStore persists accounts in a MongoDB collection. It is the
// durable owner of account state; the service layer never holds long-lived
// copies.
type MongoAccountStore struct {
	col *mongo.Collection
}

func NewMongoAccountStore(db *mongo.Database) *MongoAccountStore {
	return &MongoAccountStore{col: db.Collection("accounts")}
}

// accountDoc is the persisted shape, kept separate from the domain model so
// storage tags never leak into transport.
type accountDoc struct {
	ID               primitive.ObjectID `bson:"_id,omitempty"`
	Email            string             `bson:"email"`
	PasswordHash     string             `bson:"password_hash"`
	FirstName        string             `bson:"first_name"`
	LastName         string             `bson:"last_name"`
	Phone            string             `bson:"phone,omitempty"`
	Role             string             `bson:"role"`
	Status           string             `bson:"status"`
	RefreshTokenHash *string            `bson:"refresh_token_hash"`
	CreatedAt        time.Time          `bson:"created_at"`
	UpdatedAt        time.Time          `bson:"updated_at"`
}

func (d *accountDoc) toModel() *model.Account {
	return &model.Account{
		ID:               d.ID.Hex(),
		Email:            d.Email,
		PasswordHash:     d.PasswordHash,
		FirstName:        d.FirstName,
		LastName:         d.LastName,
		Phone:            d.Phone,
		Role:             model.Role(d.Role),
		Status:           model.Status(d.Status),
		RefreshTokenHash: d.RefreshTokenHash,
		CreatedAt:        d.CreatedAt,
		UpdatedAt:        d.UpdatedAt,
	}
}

// EnsureIndexes creates the unique email index. The service does its own
// pre-insert existence check for a friendlier failure; this index is the
// authoritative backstop for concurrent registrations.
func (s *MongoAccountStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create email index: %w", err)
	}
	return nil
}

func (s *MongoAccountStore) FindByEmail(ctx context.Context, email string) (*model.Account, error) {
	var doc accountDoc
	err := s.col.FindOne(ctx, bson.M{"email": email}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find account by email: %w", err)
	}
	return doc.toModel(), nil
}

func (s *MongoAccountStore) FindByID(ctx context.Context, id string) (*model.Account, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		// Not a valid document id, so nothing can match it.
		return nil, nil
	}

	var doc accountDoc
	err = s.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find account by id: %w", err)
	}
	return doc.toModel(), nil
}

// Insert persists a new account, assigning its id and timestamps.
func (s *MongoAccountStore) Insert(ctx context.Context, draft *model.Account) (*model.Account, error) {
	now := time.Now().UTC()
	doc := accountDoc{
		ID:               primitive.NewObjectID(),
		Email:            draft.Email,
		PasswordHash:     draft.PasswordHash,
		FirstName:        draft.FirstName,
		LastName:         draft.LastName,
		Phone:            draft.Phone,
		Role:             string(draft.Role),
		Status:           string(draft.Status),
		RefreshTokenHash: draft.RefreshTokenHash,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if _, err := s.col.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, model.ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to insert account: %w", err)
	}
	return doc.toModel(), nil
}

func (s *MongoAccountStore) FindMany(ctx context.Context, filter model.AccountFilter, skip, limit int64) ([]model.Account, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(skip).
		SetLimit(limit)

	cursor, err := s.col.Find(ctx, filterQuery(filter), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer cursor.Close(ctx)

	var accounts []model.Account
	for cursor.Next(ctx) {
		var doc accountDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode account: %w", err)
		}
		accounts = append(accounts, *doc.toModel())
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate accounts: %w", err)
	}
	return accounts, nil
}

func (s *MongoAccountStore) Count(ctx context.Context, filter model.AccountFilter) (int64, error) {
	total, err := s.col.CountDocuments(ctx, filterQuery(filter))
	if err != nil {
		return 0, fmt.Errorf("failed to count accounts: %w", err)
	}
	return total, nil
}

// UpdateByID merges the supplied fields into the document and bumps the
// last-modified timestamp. Returns (nil, nil) when the id is unknown.
func (s *MongoAccountStore) UpdateByID(ctx context.Context, id string, patch model.AccountPatch) (*model.Account, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}

	set := bson.M{"updated_at": time.Now().UTC()}
	if patch.FirstName != nil {
		set["first_name"] = *patch.FirstName
	}
	if patch.LastName != nil {
		set["last_name"] = *patch.LastName
	}
	if patch.Phone != nil {
		set["phone"] = *patch.Phone
	}
	if patch.Role != nil {
		set["role"] = string(*patch.Role)
	}
	if patch.Status != nil {
		set["status"] = string(*patch.Status)
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc accountDoc
	err = s.col.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": set}, opts).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update account: %w", err)
	}
	return doc.toModel(), nil
}

// UpdateRefreshToken stores or clears (hash == nil) the refresh-token
// reference. Reports whether any document matched the id.
func (s *MongoAccountStore) UpdateRefreshToken(ctx context.Context, id string, hash *string) (bool, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return false, nil
	}

	res, err := s.col.UpdateByID(ctx, oid, bson.M{"$set": bson.M{
		"refresh_token_hash": hash,
		"updated_at":         time.Now().UTC(),
	}})
	if err != nil {
		return false, fmt.Errorf("failed to update refresh token: %w", err)
	}
	return res.MatchedCount > 0, nil
}

func filterQuery(filter model.AccountFilter) bson.M {
	query := bson.M{}
	if filter.Email != "" {
		query["email"] = primitive.Regex{Pattern: regexp.QuoteMeta(filter.Email), Options: "i"}
	}
	if filter.Role != "" {
		query["role"] = string(filter.Role)
	}
	if filter.Status != "" {
		query["status"] = string(filter.Status)
	}
	return query
}
