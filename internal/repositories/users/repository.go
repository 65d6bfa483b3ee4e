package users

import (
	"context"

	"github.com/sigilosec/sigilo/internal/models"
)

type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByHandle(ctx context.Context, handle string) (*models.User, error)
	Exists(ctx context.Context, handle string) (bool, error)
	// List returns all users except excludeHandle, ordered by handle.
	// An empty excludeHandle returns everyone.
	List(ctx context.Context, excludeHandle string) ([]*models.User, error)
	Count(ctx context.Context) (int64, error)
}
