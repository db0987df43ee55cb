package dto

import "github.com/examly/exam-go-api/internal/models"

// RegisterRequest creates a new student account.
type RegisterRequest struct {
	Name     string `json:"name" validate:"required,min=2"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// LoginRequest authenticates an existing user.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest exchanges a refresh token for a new token pair.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// TokenPairResponse carries freshly issued access and refresh tokens.
type TokenPairResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	User         UserResponse `json:"user"`
}

// UserResponse is the public profile representation.
type UserResponse struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// NewUserResponse converts a user model into its public profile.
func NewUserResponse(model models.User) UserResponse {
	return UserResponse{
		ID:    model.ID,
		Name:  model.Name,
		Email: model.Email,
		Role:  model.Role,
	}
}
