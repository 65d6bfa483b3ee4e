package messages

import (
	"context"

	"github.com/sigilosec/sigilo/internal/models"
)

type Repository interface {
	Insert(ctx context.Context, msg *models.Message) error
	GetByID(ctx context.Context, id string) (*models.Message, error)
	// FindUnreadFor returns unread messages addressed to handle, newest first.
	FindUnreadFor(ctx context.Context, handle string) ([]*models.Message, error)
	// FindUnreadFrom narrows FindUnreadFor to a single sender.
	FindUnreadFrom(ctx context.Context, handle, sender string) ([]*models.Message, error)
	CountUnreadFor(ctx context.Context, handle string) (int64, error)
	// MarkRead transitions a message from unread to read. The update is
	// conditional on the current status; if the message was already read (or
	// does not exist) it returns common.ErrConflict and changes nothing.
	MarkRead(ctx context.Context, id string) error
}
