// Package users declares the identity repository used by the auth service.
// The token subsystem only reads identities; creation is part of
// registration and of the authctl tool.
package users

import (
	"context"

	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

// Repository defines persistence operations on identities.
type Repository interface {
	// Create inserts user and fills in its generated ID and CreatedAt.
	// A duplicate email yields common.ErrAlreadyExists.
	Create(ctx context.Context, user *models.User) (*models.User, error)

	// GetByEmail returns common.ErrorNotFound when no user has that email.
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	// GetByID returns common.ErrorNotFound when the id is unknown.
	GetByID(ctx context.Context, id string) (*models.User, error)
}
