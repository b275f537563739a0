// Package refreshtokens persists the server-side records that back issued
// refresh tokens. A token is only accepted while its record exists and has
// not expired; rotation and logout revoke by deleting the record.
package refreshtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

// Repository is the Refresh Token Store. Records are never updated.
//
// Find returns common.ErrorNotFound for unknown and for expired ids alike.
// Delete of an unknown id is not an error. Unavailability is reported as
// common.ErrStoreTransient.
type Repository interface {
	Create(ctx context.Context, userID string, expiresAt time.Time) (*models.RefreshToken, error)
	Find(ctx context.Context, id string) (*models.RefreshToken, error)
	Delete(ctx context.Context, id string) error
	DeleteByUser(ctx context.Context, userID string) (int64, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
