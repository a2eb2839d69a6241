// Package forms validates user input locally before any network call.
// Validation failures never reach the HTTP layer.
package forms

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Esmakirs9082/chat-sub000/internal/models"
)

var formValidator = validator.New()

type LoginForm struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

type RegisterForm struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Username string `json:"username" validate:"required,min=3,max=32,alphanum"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

type CharacterForm struct {
	Name        string                    `json:"name" validate:"required,min=2,max=64"`
	Description string                    `json:"description" validate:"required,max=2000"`
	AvatarURL   *string                   `json:"avatarUrl,omitempty" validate:"omitempty,url"`
	Personality []models.PersonalityTrait `json:"personality" validate:"max=20"`
	Tags        []string                  `json:"tags" validate:"max=10,dive,min=1,max=32"`
	IsNSFW      bool                      `json:"isNsfw"`
	IsPublic    bool                      `json:"isPublic"`
}

// Validate checks a form and returns a single user-facing message for the
// first failing field.
func Validate(form any) error {
	err := formValidator.Struct(form)
	if err == nil {
		return nil
	}

	if validationErrors, ok := err.(validator.ValidationErrors); ok && len(validationErrors) > 0 {
		first := validationErrors[0]
		field := strings.ToLower(first.Field())
		switch first.Tag() {
		case "required":
			return fmt.Errorf("%s is required", field)
		case "email":
			return fmt.Errorf("invalid email format")
		case "min":
			return fmt.Errorf("%s is too short", field)
		case "max":
			return fmt.Errorf("%s is too long", field)
		case "alphanum":
			return fmt.Errorf("%s must contain only letters and numbers", field)
		case "url":
			return fmt.Errorf("%s must be a valid URL", field)
		default:
			return fmt.Errorf("invalid %s", field)
		}
	}

	return fmt.Errorf("invalid form input")
}
