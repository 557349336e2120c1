package repository

import (
	"context"
	"errors"
	"regexp"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/siriwatk/noteflow-api/internal/model"
)

// NoteRepository defines the interface for note-related database operations.
// Every read and write is scoped to the owning user; a note belonging to
// someone else is indistinguishable from a note that does not exist.
type NoteRepository interface {
	CreateNote(ctx context.Context, note *model.Note) (*model.Note, error)
	GetNote(ctx context.Context, id string, userID bson.ObjectID) (*model.Note, error)
	ListNotes(ctx context.Context, userID bson.ObjectID, params FilterNotesParams) ([]*model.Note, error)
	UpdateNote(ctx context.Context, id string, userID bson.ObjectID, params UpdateNoteParams) (*model.Note, error)
	DeleteNote(ctx context.Context, id string, userID bson.ObjectID) (*model.Note, error)
}

// UpdateNoteParams defines the optional parameters for updating a note.
// Only the fields that are not nil will be updated.
type UpdateNoteParams struct {
	Title *string
	Body  *string
	Tags  *[]string
}

// FilterNotesParams defines the parameters for filtering and paginating notes.
type FilterNotesParams struct {
	Tag      *string
	Search   *string
	Limit    uint64
	Offset   uint64
	SortBy   *string
	SortDesc bool
}

const noteCollection = "notes"

type noteMongoRepository struct {
	db *mongo.Database
}

// NewNoteMongoRepository creates a new MongoDB repository for notes.
func NewNoteMongoRepository(ctx context.Context, logger *zerolog.Logger, db *mongo.Database) NoteRepository {
	collection := db.Collection(noteCollection)

	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create note indexes")
	}

	return &noteMongoRepository{db: db}
}

func (r *noteMongoRepository) CreateNote(ctx context.Context, note *model.Note) (*model.Note, error) {
	now := time.Now()
	note.CreatedAt = now
	note.UpdatedAt = now

	result, err := r.db.Collection(noteCollection).InsertOne(ctx, note)
	if err != nil {
		return nil, err
	}

	if objectID, ok := result.InsertedID.(bson.ObjectID); ok {
		note.ID = objectID
	} else {
		return nil, errors.New("failed to convert inserted ID to ObjectID")
	}

	return note, nil
}

func (r *noteMongoRepository) GetNote(ctx context.Context, id string, userID bson.ObjectID) (*model.Note, error) {
	objectID, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, mongo.ErrNoDocuments
	}

	result := r.db.Collection(noteCollection).FindOne(ctx, bson.M{"_id": objectID, "user_id": userID})
	if result.Err() != nil {
		return nil, result.Err()
	}

	var note model.Note
	if err := result.Decode(&note); err != nil {
		return nil, err
	}

	return &note, nil
}

func (r *noteMongoRepository) ListNotes(
	ctx context.Context,
	userID bson.ObjectID,
	params FilterNotesParams,
) ([]*model.Note, error) {
	findOptions := options.Find()

	limit := params.Limit
	if limit == 0 {
		limit = 20
	}
	findOptions.SetLimit(int64(limit))

	if params.Offset > 0 {
		findOptions.SetSkip(int64(params.Offset))
	}

	sortBy := "created_at"
	if params.SortBy != nil {
		sortBy = *params.SortBy
	}

	sortOrder := -1
	if !params.SortDesc {
		sortOrder = 1
	}
	findOptions.SetSort(bson.D{{Key: sortBy, Value: sortOrder}})

	cursor, err := r.db.Collection(noteCollection).Find(ctx, noteListFilter(userID, params), findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var notes []*model.Note
	for cursor.Next(ctx) {
		var note model.Note
		if err := cursor.Decode(&note); err != nil {
			return nil, err
		}
		notes = append(notes, &note)
	}

	if err := cursor.Err(); err != nil {
		return nil, err
	}

	return notes, nil
}

// noteListFilter builds the ownership-scoped query for ListNotes. The search
// term is matched as a literal substring: regex metacharacters in user input
// must not change the query.
func noteListFilter(userID bson.ObjectID, params FilterNotesParams) bson.M {
	filter := bson.M{"user_id": userID}
	if params.Tag != nil {
		filter["tags"] = *params.Tag
	}
	if params.Search != nil {
		filter["title"] = bson.M{"$regex": regexp.QuoteMeta(*params.Search), "$options": "i"}
	}
	return filter
}

func (r *noteMongoRepository) UpdateNote(
	ctx context.Context,
	id string,
	userID bson.ObjectID,
	params UpdateNoteParams,
) (*model.Note, error) {
	objectID, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, mongo.ErrNoDocuments
	}

	// Build update query
	updateMap := bson.M{}
	if params.Title != nil {
		updateMap["title"] = *params.Title
	}
	if params.Body != nil {
		updateMap["body"] = *params.Body
	}
	if params.Tags != nil {
		updateMap["tags"] = *params.Tags
	}

	if len(updateMap) == 0 {
		return nil, errors.New("no note fields to update")
	}

	updateMap["updated_at"] = time.Now()

	result := r.db.Collection(noteCollection).FindOneAndUpdate(
		ctx,
		bson.M{"_id": objectID, "user_id": userID},
		bson.M{"$set": updateMap},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)
	if result.Err() != nil {
		return nil, result.Err()
	}

	var note model.Note
	if err := result.Decode(&note); err != nil {
		return nil, err
	}

	return &note, nil
}

func (r *noteMongoRepository) DeleteNote(ctx context.Context, id string, userID bson.ObjectID) (*model.Note, error) {
	objectID, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, mongo.ErrNoDocuments
	}

	result := r.db.Collection(noteCollection).FindOneAndDelete(ctx, bson.M{"_id": objectID, "user_id": userID})
	if result.Err() != nil {
		return nil, result.Err()
	}

	var note model.Note
	if err := result.Decode(&note); err != nil {
		return nil, err
	}

	return &note, nil
}
