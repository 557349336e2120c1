package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/siriwatk/noteflow-api/internal/payload"
	"github.com/siriwatk/noteflow-api/internal/repository"
	"github.com/siriwatk/noteflow-api/internal/usecase"
	"github.com/siriwatk/noteflow-api/internal/validation"
)

// NoteHandler exposes note CRUD over HTTP. Every route sits behind
// RequireAuth, so the acting user is always on the context.
type NoteHandler struct {
	noteUsecase usecase.NoteUsecase
	validator   *validation.Validator
}

// NewNoteHandler creates a new NoteHandler instance.
func NewNoteHandler(noteUsecase usecase.NoteUsecase, validator *validation.Validator) *NoteHandler {
	return &NoteHandler{noteUsecase: noteUsecase, validator: validator}
}

// Create handles POST /api/notes.
func (h *NoteHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req payload.CreateNoteRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if details := h.validator.Struct(req); details != nil {
		respondError(w, http.StatusBadRequest, "validation failed", details...)
		return
	}

	note, err := h.noteUsecase.CreateNote(r.Context(), user.ID, usecase.CreateNoteParams{
		Title: req.Title,
		Body:  req.Body,
		Tags:  req.Tags,
	})
	if err != nil {
		respondUsecaseError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, payload.NewNoteResponse(note))
}

// Get handles GET /api/notes/{id}.
func (h *NoteHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	note, err := h.noteUsecase.GetNote(r.Context(), user.ID, chi.URLParam(r, "id"))
	if err != nil {
		respondUsecaseError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, payload.NewNoteResponse(note))
}

// List handles GET /api/notes.
func (h *NoteHandler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	params := repository.FilterNotesParams{}

	query := r.URL.Query()
	if tag := query.Get("tag"); tag != "" {
		params.Tag = &tag
	}
	if search := query.Get("q"); search != "" {
		params.Search = &search
	}
	if limit, err := strconv.ParseUint(query.Get("limit"), 10, 64); err == nil {
		params.Limit = limit
	}
	if offset, err := strconv.ParseUint(query.Get("offset"), 10, 64); err == nil {
		params.Offset = offset
	}
	if sortBy := query.Get("sort_by"); sortBy != "" {
		params.SortBy = &sortBy
	}
	params.SortDesc = query.Get("order") != "asc"

	notes, err := h.noteUsecase.ListNotes(r.Context(), user.ID, params)
	if err != nil {
		respondUsecaseError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, payload.NewNoteListResponse(notes))
}

// Update handles PUT /api/notes/{id}.
func (h *NoteHandler) Update(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req payload.UpdateNoteRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if details := h.validator.Struct(req); details != nil {
		respondError(w, http.StatusBadRequest, "validation failed", details...)
		return
	}

	note, err := h.noteUsecase.UpdateNote(r.Context(), user.ID, chi.URLParam(r, "id"), repository.UpdateNoteParams{
		Title: req.Title,
		Body:  req.Body,
		Tags:  req.Tags,
	})
	if err != nil {
		respondUsecaseError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, payload.NewNoteResponse(note))
}

// Delete handles DELETE /api/notes/{id}.
func (h *NoteHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	if err := h.noteUsecase.DeleteNote(r.Context(), user.ID, chi.URLParam(r, "id")); err != nil {
		respondUsecaseError(w, err)
		return
	}

	respondJSON(w, http.StatusNoContent, nil)
}
