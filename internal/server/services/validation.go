package services

import (
	"net/mail"
	"strings"

	"github.com/dmitrijs2005/gophauth/internal/common"
)

const (
	minPasswordLen = 8
	// bcrypt only looks at the first 72 bytes
	maxPasswordLen = 72
)

// FieldError describes one rejected request field.
type FieldError struct {
	Field string
	Msg   string
}

// ValidationError lists every rejected field. It matches common.ErrValidation.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Field+": "+f.Msg)
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

func (e *ValidationError) Unwrap() error { return common.ErrValidation }

type validator struct {
	fields []FieldError
}

func (v *validator) fail(field, msg string) { v.fields = append(v.fields, FieldError{field, msg}) }

func (v *validator) err() error {
	if len(v.fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: v.fields}
}

func (v *validator) email(email string) {
	switch {
	case email == "":
		v.fail("email", "Email is required!")
	case !validEmail(email):
		v.fail("email", "Email id should valid email!")
	}
}

// validEmail accepts a bare address only, no display name.
func validEmail(s string) bool {
	a, err := mail.ParseAddress(s)
	return err == nil && a.Address == s && strings.Contains(s[strings.LastIndexByte(s, '@'):], ".")
}

type RegisterInput struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

func (in *RegisterInput) normalize() {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = strings.TrimSpace(in.Email)
	in.Password = strings.TrimSpace(in.Password)
}

// Validate trims every field and checks it.
func (in *RegisterInput) Validate() error {
	in.normalize()
	var v validator
	v.email(in.Email)
	if in.FirstName == "" {
		v.fail("firstName", "Firstname is required!")
	}
	if in.LastName == "" {
		v.fail("lastName", "lastname is required!")
	}
	switch {
	case in.Password == "":
		v.fail("password", "password is required!")
	case len(in.Password) < minPasswordLen:
		v.fail("password", "Password length should be at least 8 chars!")
	case len(in.Password) > maxPasswordLen:
		v.fail("password", "Password length should be at most 72 chars!")
	}
	return v.err()
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (in *LoginInput) Validate() error {
	in.Email = strings.TrimSpace(in.Email)
	in.Password = strings.TrimSpace(in.Password)
	var v validator
	v.email(in.Email)
	if in.Password == "" {
		v.fail("password", "password is required!")
	}
	return v.err()
}
