package handler

import (
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/siriwatk/noteflow-api/internal/payload"
	"github.com/siriwatk/noteflow-api/internal/usecase"
)

// maxProfilePictureBytes caps a profile picture upload.
const maxProfilePictureBytes = 5 << 20

// UserHandler exposes account profile operations over HTTP.
type UserHandler struct {
	userUsecase usecase.UserUsecase
	uploadDir   string
	logger      *zerolog.Logger
}

// NewUserHandler creates a new UserHandler instance.
func NewUserHandler(userUsecase usecase.UserUsecase, uploadDir string, logger *zerolog.Logger) *UserHandler {
	return &UserHandler{
		userUsecase: userUsecase,
		uploadDir:   uploadDir,
		logger:      logger,
	}
}

// Me handles GET /api/users/me.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	respondJSON(w, http.StatusOK, payload.NewUserResponse(user))
}

// UploadProfilePicture handles PUT /api/users/me/picture. The file is stored
// under the configured upload directory and the user record keeps only an
// opaque reference to it.
func (h *UserHandler) UploadProfilePicture(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxProfilePictureBytes)
	if err := r.ParseMultipartForm(maxProfilePictureBytes); err != nil {
		respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("picture")
	if err != nil {
		respondError(w, http.StatusBadRequest, "missing picture file")
		return
	}
	defer file.Close()

	if err := os.MkdirAll(h.uploadDir, 0o755); err != nil {
		h.logger.Error().Err(err).Msg("failed to create upload directory")
		respondError(w, http.StatusInternalServerError, "something went wrong")
		return
	}

	name := uuid.NewString() + filepath.Ext(header.Filename)
	path := filepath.Join(h.uploadDir, name)

	dst, err := os.Create(path)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to create upload file")
		respondError(w, http.StatusInternalServerError, "something went wrong")
		return
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		h.logger.Error().Err(err).Msg("failed to write upload file")
		_ = os.Remove(path)
		respondError(w, http.StatusInternalServerError, "something went wrong")
		return
	}

	updated, err := h.userUsecase.UpdateProfilePicture(r.Context(), user.ID.Hex(), name)
	if err != nil {
		_ = os.Remove(path)
		respondUsecaseError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, payload.NewUserResponse(updated))
}
