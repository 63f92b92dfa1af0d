// Package users persists auth API accounts.
package users

import (
	"context"

	"github.com/dmitrijs2005/zkvault/internal/server/models"
)

// Repository stores users. Lookups return common.ErrorNotFound for unknown
// users; Create returns common.ErrorAlreadyExists for a taken username.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByUsername(ctx context.Context, userName string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	// SetSaltIfEmpty stores salt only when the user has none and reports
	// whether it did.
	SetSaltIfEmpty(ctx context.Context, id, salt string) (bool, error)
}
