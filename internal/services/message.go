package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/sigilosec/sigilo/internal/common"
	"github.com/sigilosec/sigilo/internal/cryptox"
	"github.com/sigilosec/sigilo/internal/logging"
	"github.com/sigilosec/sigilo/internal/models"
	"github.com/sigilosec/sigilo/internal/repositories/repomanager"
)

// MinBodyLength is the content-quality floor for message bodies, in
// characters. Not a security property.
const MinBodyLength = 50

// MessageService orchestrates key derivation, authenticated encryption, and
// the unread->read lifecycle against the message store. It holds no mutable
// state between calls and is safe for concurrent sessions; the single-read
// guarantee comes from the repository's conditional MarkRead.
type MessageService struct {
	db     *sql.DB
	repos  repomanager.RepositoryManager
	logger logging.Logger
	users  *UserService
}

// NewMessageService constructs a MessageService.
func NewMessageService(db *sql.DB, repos repomanager.RepositoryManager, logger logging.Logger, users *UserService) *MessageService {
	return &MessageService{db: db, repos: repos, logger: logger, users: users}
}

// Send validates inputs, encrypts the body under a key derived from the
// secret key and a fresh salt, and persists the envelope as unread.
//
// Validation happens before any key derivation so a bad request costs no KDF
// work. If persistence fails nothing is left behind and the send counts as
// failed. The secret key is only ever a parameter here; it is not part of the
// envelope and never reaches a log.
func (s *MessageService) Send(ctx context.Context, sender, recipient, body, passphrase string) (*models.Message, error) {
	if utf8.RuneCountInString(body) < MinBodyLength {
		return nil, fmt.Errorf("%w: message must be at least %d characters", common.ErrValidation, MinBodyLength)
	}
	if err := cryptox.ValidatePassphrase(passphrase); err != nil {
		return nil, err
	}
	if err := s.users.ValidateRecipient(ctx, recipient); err != nil {
		return nil, err
	}

	salt, err := cryptox.GenerateSalt()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInternal, err)
	}
	nonce, err := cryptox.GenerateNonce()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInternal, err)
	}

	key, err := cryptox.DeriveKey(passphrase, salt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInternal, err)
	}
	defer common.WipeByteArray(key)

	ciphertext, tag, err := cryptox.Encrypt(key, nonce, []byte(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInternal, err)
	}

	msg := &models.Message{
		ID:         uuid.NewString(),
		Sender:     sender,
		Recipient:  recipient,
		Ciphertext: ciphertext,
		Salt:       salt,
		Nonce:      nonce,
		AuthTag:    tag,
		Status:     models.StatusUnread,
		SentAt:     time.Now().UTC(),
	}

	repo := s.repos.Messages(s.db)
	if err := repo.Insert(ctx, msg); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrStorage, err)
	}

	s.logger.Info(ctx, "message sent", "id", msg.ID, "from", sender, "to", recipient)
	return msg, nil
}

// Read fetches the envelope, re-derives the key from the stored salt, and
// decrypts. On success it performs the conditional unread->read transition.
//
// A missing message and a message addressed to someone else both come back as
// common.ErrNotFound, so a caller cannot probe for the existence of other
// people's mail. A failed tag check comes back as common.ErrWrongKey and
// leaves the message unread. If a concurrent read wins the MarkRead race the
// losing call returns common.ErrConflict and no plaintext.
func (s *MessageService) Read(ctx context.Context, id, requester, passphrase string) (string, error) {
	repo := s.repos.Messages(s.db)

	msg, err := repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return "", common.ErrNotFound
		}
		return "", fmt.Errorf("%w: %v", common.ErrStorage, err)
	}

	if msg.Recipient != requester {
		s.logger.Warn(ctx, "read denied, not the recipient", "id", id, "requester", requester)
		return "", common.ErrNotFound
	}

	if msg.Status == models.StatusRead {
		return "", fmt.Errorf("%w: message already read", common.ErrConflict)
	}

	key, err := cryptox.DeriveKey(passphrase, msg.Salt)
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrInternal, err)
	}
	defer common.WipeByteArray(key)

	plaintext, err := cryptox.Decrypt(key, msg.Nonce, msg.Ciphertext, msg.AuthTag)
	if err != nil {
		s.logger.Warn(ctx, "decryption failed", "id", id, "requester", requester)
		return "", err
	}

	if err := repo.MarkRead(ctx, id); err != nil {
		if errors.Is(err, common.ErrConflict) {
			// Another session consumed the message between fetch and commit.
			return "", fmt.Errorf("%w: message already read", common.ErrConflict)
		}
		return "", fmt.Errorf("%w: %v", common.ErrStorage, err)
	}

	s.logger.Info(ctx, "message read", "id", id, "by", requester)
	return string(plaintext), nil
}

// UnreadCount returns the number of unread messages addressed to handle.
func (s *MessageService) UnreadCount(ctx context.Context, handle string) (int64, error) {
	repo := s.repos.Messages(s.db)
	n, err := repo.CountUnreadFor(ctx, handle)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", common.ErrStorage, err)
	}
	return n, nil
}

// Inbox returns the unread messages addressed to handle, grouped by sender.
// Within each group messages keep the repository order (newest first).
func (s *MessageService) Inbox(ctx context.Context, handle string) (map[string][]*models.Message, error) {
	repo := s.repos.Messages(s.db)
	list, err := repo.FindUnreadFor(ctx, handle)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrStorage, err)
	}

	grouped := make(map[string][]*models.Message)
	for _, m := range list {
		grouped[m.Sender] = append(grouped[m.Sender], m)
	}
	return grouped, nil
}

// UnreadFrom returns the unread messages addressed to handle from one sender,
// newest first.
func (s *MessageService) UnreadFrom(ctx context.Context, handle, sender string) ([]*models.Message, error) {
	repo := s.repos.Messages(s.db)
	list, err := repo.FindUnreadFrom(ctx, handle, sender)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrStorage, err)
	}
	return list, nil
}
