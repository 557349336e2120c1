package payload

import (
	"time"

	"github.com/siriwatk/noteflow-api/internal/model"
)

type CreateNoteRequest struct {
	Title string   `json:"title" validate:"required,max=200"`
	Body  string   `json:"body"`
	Tags  []string `json:"tags"  validate:"max=32,dive,max=64"`
}

type UpdateNoteRequest struct {
	Title *string   `json:"title" validate:"omitempty,max=200"`
	Body  *string   `json:"body"`
	Tags  *[]string `json:"tags"  validate:"omitempty,max=32,dive,max=64"`
}

type NoteResponse struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Tags      []string  `json:"tags,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewNoteResponse projects a note model into its API representation.
func NewNoteResponse(note *model.Note) *NoteResponse {
	return &NoteResponse{
		ID:        note.ID.Hex(),
		Title:     note.Title,
		Body:      note.Body,
		Tags:      note.Tags,
		CreatedAt: note.CreatedAt,
		UpdatedAt: note.UpdatedAt,
	}
}

// NewNoteListResponse projects a slice of notes.
func NewNoteListResponse(notes []*model.Note) []*NoteResponse {
	out := make([]*NoteResponse, 0, len(notes))
	for _, note := range notes {
		out = append(out, NewNoteResponse(note))
	}
	return out
}
