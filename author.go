package bloghub

import (
	"fmt"
	"strings"
)

// Author is the user a post is attributed to.
type Author struct {
	ID        uint64 `json:"id" yaml:"id" toml:"id"`
	Username  string `json:"username" yaml:"username" toml:"username" validate:"required,max=150"`
	FirstName string `json:"firstName" yaml:"first_name" toml:"first_name" validate:"max=150"`
	LastName  string `json:"lastName" yaml:"last_name" toml:"last_name" validate:"max=150"`
	Email     string `json:"email" yaml:"email" toml:"email" validate:"omitempty,email"`
}

// FullName returns the first and last name separated by a space.
func (a Author) FullName() string {
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}

// Slug returns the lowercased first and last name joined by a hyphen. This is the form
// author listings are matched against.
func (a Author) Slug() string {
	return fmt.Sprintf("%s-%s", strings.ToLower(a.FirstName), strings.ToLower(a.LastName))
}

// String returns the username.
func (a Author) String() string {
	return a.Username
}

// Validate checks the author fields.
func (a *Author) Validate() error {
	if err := validate.Struct(a); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidName, err.Error())
	}
	return nil
}
