package authapi

import (
	"encoding/json"
	"time"
)

type registerRequest struct {
	Name     string          `json:"name"`
	Email    string          `json:"email"`
	Password string          `json:"password"`
	Role     string          `json:"role"`
	Profile  *profileRequest `json:"profile"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type profileRequest struct {
	Skills        *[]string       `json:"skills"`
	Interests     *[]string       `json:"interests"`
	Education     *string         `json:"education"`
	QuizCompleted *bool           `json:"quizCompleted"`
	QuizResults   json.RawMessage `json:"quizResults"`
}

type updateProfileRequest struct {
	Name    *string         `json:"name"`
	Profile *profileRequest `json:"profile"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

type deleteAccountRequest struct {
	Password string `json:"password"`
}

type profileResponse struct {
	Skills        []string        `json:"skills"`
	Interests     []string        `json:"interests"`
	Education     *string         `json:"education"`
	QuizCompleted bool            `json:"quizCompleted"`
	QuizResults   json.RawMessage `json:"quizResults"`
}

type userResponse struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Email      string          `json:"email"`
	Role       string          `json:"role"`
	Profile    profileResponse `json:"profile"`
	IsVerified bool            `json:"isVerified"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

type authResponse struct {
	Success      bool         `json:"success"`
	Message      string       `json:"message,omitempty"`
	User         userResponse `json:"user"`
	Token        string       `json:"token"`
	RefreshToken string       `json:"refreshToken,omitempty"`
	ExpiresAt    time.Time    `json:"expiresAt"`
}

type refreshResponse struct {
	Success      bool         `json:"success"`
	Token        string       `json:"token"`
	RefreshToken string       `json:"refreshToken,omitempty"`
	ExpiresAt    time.Time    `json:"expiresAt"`
	User         userResponse `json:"user"`
}

type userEnvelope struct {
	Success bool         `json:"success"`
	Message string       `json:"message,omitempty"`
	User    userResponse `json:"user"`
}

type messageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type forgotPasswordResponse struct {
	Success    bool       `json:"success"`
	Message    string     `json:"message"`
	ResetToken string     `json:"resetToken,omitempty"`
	ExpiresAt  *time.Time `json:"expiresAt,omitempty"`
}
