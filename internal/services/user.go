// Package services contains the business logic: user authentication/listing
// and the encrypted message lifecycle.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/sigilosec/sigilo/internal/common"
	"github.com/sigilosec/sigilo/internal/dbx"
	"github.com/sigilosec/sigilo/internal/logging"
	"github.com/sigilosec/sigilo/internal/models"
	"github.com/sigilosec/sigilo/internal/repositories/repomanager"
)

// DemoHandles are the accounts inserted by SeedDemoUsers on an empty store.
var DemoHandles = []string{"@lucas", "@igor", "@pedro", "@daniel", "@jeh"}

// UserService provides identity operations: login checks, recipient
// validation, and user listing. There are no passwords; an account is a
// handle, and message confidentiality rests entirely on the per-message
// secret key.
type UserService struct {
	db     *sql.DB
	repos  repomanager.RepositoryManager
	logger logging.Logger
}

// NewUserService constructs a UserService on top of the repository manager.
func NewUserService(db *sql.DB, repos repomanager.RepositoryManager, logger logging.Logger) *UserService {
	return &UserService{db: db, repos: repos, logger: logger}
}

// validateHandleFormat enforces the '@name' handle format.
func validateHandleFormat(handle string) error {
	if !strings.HasPrefix(handle, "@") || len(handle) < 2 {
		return fmt.Errorf("%w: handle must look like @name", common.ErrValidation)
	}
	return nil
}

// Authenticate checks that the handle is well-formed and registered.
// Unknown handles yield common.ErrNotFound.
func (s *UserService) Authenticate(ctx context.Context, handle string) error {
	if err := validateHandleFormat(handle); err != nil {
		return err
	}

	repo := s.repos.Users(s.db)
	exists, err := repo.Exists(ctx, handle)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrStorage, err)
	}
	if !exists {
		s.logger.Warn(ctx, "login failed, unknown handle", "handle", handle)
		return common.ErrNotFound
	}

	s.logger.Info(ctx, "user authenticated", "handle", handle)
	return nil
}

// ValidateRecipient checks that a message recipient is well-formed and
// registered. Violations are reported as common.ErrValidation so the caller
// can treat them as user-correctable input errors.
func (s *UserService) ValidateRecipient(ctx context.Context, handle string) error {
	if err := validateHandleFormat(handle); err != nil {
		return err
	}

	repo := s.repos.Users(s.db)
	exists, err := repo.Exists(ctx, handle)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrStorage, err)
	}
	if !exists {
		return fmt.Errorf("%w: recipient %s not found", common.ErrValidation, handle)
	}
	return nil
}

// AvailableUsers returns every registered user except the current one.
func (s *UserService) AvailableUsers(ctx context.Context, current string) ([]*models.User, error) {
	repo := s.repos.Users(s.db)
	list, err := repo.List(ctx, current)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrStorage, err)
	}
	return list, nil
}

// SeedDemoUsers inserts the demo accounts inside one transaction when the
// users table is empty. A non-empty table is left untouched.
func (s *UserService) SeedDemoUsers(ctx context.Context) error {
	repo := s.repos.Users(s.db)

	n, err := repo.Count(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrStorage, err)
	}
	if n > 0 {
		return nil
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		txRepo := s.repos.Users(tx)
		for _, handle := range DemoHandles {
			if _, err := txRepo.Create(ctx, &models.User{Handle: handle}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrStorage, err)
	}

	s.logger.Info(ctx, "demo users seeded", "count", len(DemoHandles))
	return nil
}

// IsNotFound reports whether err is the not-found sentinel. Convenience for
// front ends that only need a yes/no.
func IsNotFound(err error) bool {
	return errors.Is(err, common.ErrNotFound)
}
