package forms

import "strings"

// RegistrationInput is the account creation form.
type RegistrationInput struct {
	Username  string `form:"username" validate:"required,max=150"`
	Email     string `form:"email" validate:"required,email,max=254"`
	Password1 string `form:"password1" validate:"required,min=8,notnumeric"`
	Password2 string `form:"password2" validate:"required,eqfield=Password1"`
}

// Normalized returns the input with surrounding whitespace removed from the
// text fields. Passwords are kept verbatim.
func (in RegistrationInput) Normalized() RegistrationInput {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	return in
}

// Validate checks the field rules that do not need the database. Username
// uniqueness is checked by the identity service.
func (in RegistrationInput) Validate() FieldErrors {
	return check(in.Normalized())
}

// LoginInput is the sign-in form.
type LoginInput struct {
	Username string `form:"username" validate:"required"`
	Password string `form:"password" validate:"required"`
	Next     string `form:"next"`
}

// Validate only requires both credentials to be present.
func (in LoginInput) Validate() FieldErrors {
	in.Username = strings.TrimSpace(in.Username)
	return check(in)
}
