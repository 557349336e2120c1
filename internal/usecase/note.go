package usecase

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/siriwatk/noteflow-api/internal/model"
	"github.com/siriwatk/noteflow-api/internal/repository"
)

// NoteUsecase defines the business logic for personal notes. All operations
// are scoped to the acting user; another user's note reads as not found.
type NoteUsecase interface {
	CreateNote(ctx context.Context, userID bson.ObjectID, params CreateNoteParams) (*model.Note, error)
	GetNote(ctx context.Context, userID bson.ObjectID, id string) (*model.Note, error)
	ListNotes(ctx context.Context, userID bson.ObjectID, params repository.FilterNotesParams) ([]*model.Note, error)
	UpdateNote(ctx context.Context, userID bson.ObjectID, id string, params repository.UpdateNoteParams) (*model.Note, error)
	DeleteNote(ctx context.Context, userID bson.ObjectID, id string) error
}

// CreateNoteParams defines the parameters for creating a note.
type CreateNoteParams struct {
	Title string
	Body  string
	Tags  []string
}

type noteUsecase struct {
	noteRepo repository.NoteRepository
}

// NewNoteUsecase creates a new instance of NoteUsecase.
func NewNoteUsecase(noteRepo repository.NoteRepository) NoteUsecase {
	return &noteUsecase{noteRepo: noteRepo}
}

func (u *noteUsecase) CreateNote(
	ctx context.Context,
	userID bson.ObjectID,
	params CreateNoteParams,
) (*model.Note, error) {
	return u.noteRepo.CreateNote(ctx, &model.Note{
		UserID: userID,
		Title:  params.Title,
		Body:   params.Body,
		Tags:   params.Tags,
	})
}

func (u *noteUsecase) GetNote(ctx context.Context, userID bson.ObjectID, id string) (*model.Note, error) {
	note, err := u.noteRepo.GetNote(ctx, id, userID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNoteNotFound
		}
		return nil, err
	}

	return note, nil
}

func (u *noteUsecase) ListNotes(
	ctx context.Context,
	userID bson.ObjectID,
	params repository.FilterNotesParams,
) ([]*model.Note, error) {
	return u.noteRepo.ListNotes(ctx, userID, params)
}

func (u *noteUsecase) UpdateNote(
	ctx context.Context,
	userID bson.ObjectID,
	id string,
	params repository.UpdateNoteParams,
) (*model.Note, error) {
	note, err := u.noteRepo.UpdateNote(ctx, id, userID, params)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNoteNotFound
		}
		return nil, err
	}

	return note, nil
}

func (u *noteUsecase) DeleteNote(ctx context.Context, userID bson.ObjectID, id string) error {
	if _, err := u.noteRepo.DeleteNote(ctx, id, userID); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return ErrNoteNotFound
		}
		return err
	}

	return nil
}
