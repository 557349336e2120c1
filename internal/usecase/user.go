package usecase

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/siriwatk/noteflow-api/internal/model"
	"github.com/siriwatk/noteflow-api/internal/repository"
)

// UserUsecase defines the business logic for account profile operations.
type UserUsecase interface {
	// UpdateProfilePicture stores an opaque reference to the user's uploaded
	// profile picture.
	UpdateProfilePicture(ctx context.Context, userID, reference string) (*model.User, error)
}

type userUsecase struct {
	userRepo repository.UserRepository
}

// NewUserUsecase creates a new instance of UserUsecase.
func NewUserUsecase(userRepo repository.UserRepository) UserUsecase {
	return &userUsecase{userRepo: userRepo}
}

func (u *userUsecase) UpdateProfilePicture(ctx context.Context, userID, reference string) (*model.User, error) {
	user, err := u.userRepo.UpdateUser(ctx, userID, repository.UpdateUserParams{
		ProfilePicture: &reference,
	})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	return user, nil
}
