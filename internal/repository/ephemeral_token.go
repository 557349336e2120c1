package repository

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/siriwatk/noteflow-api/internal/model"
)

// EphemeralTokenRepository defines the interface for short-lived token
// operations: password-reset OTPs, email verification codes, and revoked
// bearer-credential markers.
type EphemeralTokenRepository interface {
	// CreateToken inserts a new ephemeral token. For kind=reset the unique
	// (user_id, kind) index makes concurrent inserts for the same user fail
	// with a duplicate-key error rather than violating the one-pending-reset
	// invariant. Token values are only unique per user; different users may
	// hold the same code at the same time.
	CreateToken(ctx context.Context, token *model.EphemeralToken) (*model.EphemeralToken, error)

	// FindByUserAndKind retrieves the most recent token of the given kind for
	// a user, regardless of expiry. Callers check ExpiresAt themselves.
	FindByUserAndKind(ctx context.Context, userID bson.ObjectID, kind model.TokenKind) (*model.EphemeralToken, error)

	// FindByUserTokenKind retrieves a token by its exact (user, value, kind)
	// triple, regardless of expiry.
	FindByUserTokenKind(ctx context.Context, userID bson.ObjectID, token string, kind model.TokenKind) (*model.EphemeralToken, error)

	// UpsertRevocation records a revoked jti. Inserting the same jti twice is
	// a no-op, which makes revocation idempotent.
	UpsertRevocation(ctx context.Context, userID bson.ObjectID, jti string, expiresAt time.Time) error

	// ExistsRevocation reports whether the given jti has been revoked.
	ExistsRevocation(ctx context.Context, jti string) (bool, error)

	// DeleteByID removes a token. Consuming an OTP is a deletion, so a
	// consumed token is never re-readable.
	DeleteByID(ctx context.Context, id bson.ObjectID) error

	// DeleteExpired removes expired tokens. Storage hygiene only: every read
	// path filters on expiry, and the TTL index reaps independently.
	DeleteExpired(ctx context.Context) (int64, error)
}

const ephemeralTokenCollection = "ephemeral_tokens"

type ephemeralTokenMongoRepository struct {
	db *mongo.Database
}

// NewEphemeralTokenMongoRepository creates a new MongoDB repository for
// ephemeral tokens.
func NewEphemeralTokenMongoRepository(
	ctx context.Context,
	logger *zerolog.Logger,
	db *mongo.Database,
) EphemeralTokenRepository {
	collection := db.Collection(ephemeralTokenCollection)

	indexes := []mongo.IndexModel{
		{
			// Only revoked-credential jtis need global uniqueness. Reset and
			// verification codes are 6 digits, so two accounts holding the
			// same code is expected; their lookups are scoped by user.
			Keys: bson.D{{Key: "token", Value: 1}, {Key: "kind", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"kind": string(model.TokenKindRevoked)}),
		},
		{
			// At most one reset OTP per user, enforced by the store rather
			// than by a check-then-insert in the application.
			Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "kind", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"kind": string(model.TokenKindReset)}),
		},
		{
			Keys: bson.D{{Key: "user_id", Value: 1}},
		},
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0), // TTL index
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create ephemeral token indexes")
	}

	return &ephemeralTokenMongoRepository{db: db}
}

func (r *ephemeralTokenMongoRepository) CreateToken(
	ctx context.Context,
	token *model.EphemeralToken,
) (*model.EphemeralToken, error) {
	token.CreatedAt = time.Now()

	result, err := r.db.Collection(ephemeralTokenCollection).InsertOne(ctx, token)
	if err != nil {
		return nil, err
	}

	if objectID, ok := result.InsertedID.(bson.ObjectID); ok {
		token.ID = objectID
	}

	return token, nil
}

func (r *ephemeralTokenMongoRepository) FindByUserAndKind(
	ctx context.Context,
	userID bson.ObjectID,
	kind model.TokenKind,
) (*model.EphemeralToken, error) {
	filter := bson.M{"user_id": userID, "kind": kind}
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}})

	var token model.EphemeralToken
	err := r.db.Collection(ephemeralTokenCollection).FindOne(ctx, filter, opts).Decode(&token)
	if err != nil {
		return nil, err
	}

	return &token, nil
}

func (r *ephemeralTokenMongoRepository) FindByUserTokenKind(
	ctx context.Context,
	userID bson.ObjectID,
	token string,
	kind model.TokenKind,
) (*model.EphemeralToken, error) {
	filter := bson.M{"user_id": userID, "token": token, "kind": kind}

	var found model.EphemeralToken
	err := r.db.Collection(ephemeralTokenCollection).FindOne(ctx, filter).Decode(&found)
	if err != nil {
		return nil, err
	}

	return &found, nil
}

func (r *ephemeralTokenMongoRepository) UpsertRevocation(
	ctx context.Context,
	userID bson.ObjectID,
	jti string,
	expiresAt time.Time,
) error {
	filter := bson.M{"token": jti, "kind": model.TokenKindRevoked}
	update := bson.M{
		"$setOnInsert": bson.M{
			"user_id":    userID,
			"token":      jti,
			"kind":       model.TokenKindRevoked,
			"expires_at": expiresAt,
			"created_at": time.Now(),
		},
	}

	_, err := r.db.Collection(ephemeralTokenCollection).UpdateOne(
		ctx,
		filter,
		update,
		options.UpdateOne().SetUpsert(true),
	)
	return err
}

func (r *ephemeralTokenMongoRepository) ExistsRevocation(ctx context.Context, jti string) (bool, error) {
	filter := bson.M{"token": jti, "kind": model.TokenKindRevoked}

	err := r.db.Collection(ephemeralTokenCollection).FindOne(ctx, filter).Err()
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return false, nil
		}
		return false, err
	}

	return true, nil
}

func (r *ephemeralTokenMongoRepository) DeleteByID(ctx context.Context, id bson.ObjectID) error {
	_, err := r.db.Collection(ephemeralTokenCollection).DeleteOne(ctx, bson.M{"_id": id})
	return err
}

func (r *ephemeralTokenMongoRepository) DeleteExpired(ctx context.Context) (int64, error) {
	filter := bson.M{
		"expires_at": bson.M{"$lt": time.Now()},
	}

	result, err := r.db.Collection(ephemeralTokenCollection).DeleteMany(ctx, filter)
	if err != nil {
		return 0, err
	}

	return result.DeletedCount, nil
}
