package repomanager

import (
	"context"
	"database/sql"

	"github.com/sigilosec/sigilo/internal/dbx"
	"github.com/sigilosec/sigilo/internal/repositories/messages"
	"github.com/sigilosec/sigilo/internal/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Messages(db dbx.DBTX) messages.Repository
}
