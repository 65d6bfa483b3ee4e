package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sigilosec/sigilo/internal/common"
	"github.com/sigilosec/sigilo/internal/cryptox"
	"github.com/sigilosec/sigilo/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	goodBody       = "this message body is deliberately padded to reach the fifty character floor"
	goodPassphrase = "Secret123"
)

func newMessageService(rm *fakeRepoManager) *MessageService {
	users := NewUserService(nil, rm, testLogger())
	return NewMessageService(nil, rm, testLogger(), users)
}

func defaultFakes() *fakeRepoManager {
	return &fakeRepoManager{
		u: newFakeUserRepo("@lucas", "@igor"),
		m: newFakeMessageRepo(),
	}
}

func TestSend_BodyLengthBoundary(t *testing.T) {
	s := newMessageService(defaultFakes())
	ctx := context.Background()

	_, err := s.Send(ctx, "@lucas", "@igor", strings.Repeat("x", 49), goodPassphrase)
	assert.ErrorIs(t, err, common.ErrValidation)

	msg, err := s.Send(ctx, "@lucas", "@igor", strings.Repeat("x", 50), goodPassphrase)
	require.NoError(t, err)
	assert.Equal(t, models.StatusUnread, msg.Status)
}

func TestSend_PassphrasePolicy(t *testing.T) {
	s := newMessageService(defaultFakes())
	ctx := context.Background()

	tests := []struct {
		name       string
		passphrase string
		wantErr    bool
	}{
		{"letter plus digit, 8 chars", "abcdefg1", false},
		{"no digit", "abcdefgh", true},
		{"too short", "a1", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Send(ctx, "@lucas", "@igor", goodBody, tt.passphrase)
			if tt.wantErr {
				assert.ErrorIs(t, err, common.ErrValidation)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSend_UnknownRecipient(t *testing.T) {
	s := newMessageService(defaultFakes())

	_, err := s.Send(context.Background(), "@lucas", "@ghost", goodBody, goodPassphrase)
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestSend_EnvelopeShape(t *testing.T) {
	rm := defaultFakes()
	s := newMessageService(rm)

	msg, err := s.Send(context.Background(), "@lucas", "@igor", goodBody, goodPassphrase)
	require.NoError(t, err)

	assert.NotEmpty(t, msg.ID)
	assert.Len(t, msg.Salt, cryptox.SaltLength)
	assert.Len(t, msg.Nonce, cryptox.NonceLength)
	assert.Len(t, msg.AuthTag, cryptox.TagLength)
	assert.NotContains(t, string(msg.Ciphertext), goodBody[:20], "body must not appear in ciphertext")
	assert.Equal(t, models.StatusUnread, msg.Status)
	assert.False(t, msg.SentAt.IsZero())

	stored, err := rm.m.GetByID(context.Background(), msg.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusUnread, stored.Status)
}

func TestSend_FreshSaltAndNoncePerMessage(t *testing.T) {
	s := newMessageService(defaultFakes())
	ctx := context.Background()

	m1, err := s.Send(ctx, "@lucas", "@igor", goodBody, goodPassphrase)
	require.NoError(t, err)
	m2, err := s.Send(ctx, "@lucas", "@igor", goodBody, goodPassphrase)
	require.NoError(t, err)

	assert.NotEqual(t, m1.Salt, m2.Salt)
	assert.NotEqual(t, m1.Nonce, m2.Nonce)
	assert.NotEqual(t, m1.Ciphertext, m2.Ciphertext, "same body must encrypt differently")
}

func TestSend_PersistenceFailure(t *testing.T) {
	rm := defaultFakes()
	rm.m.insertErr = errors.New("db down")
	s := newMessageService(rm)

	_, err := s.Send(context.Background(), "@lucas", "@igor", goodBody, goodPassphrase)
	assert.ErrorIs(t, err, common.ErrStorage)
	assert.Empty(t, rm.m.msgs, "failed send must leave nothing behind")
}

func TestRead_EndToEnd(t *testing.T) {
	rm := defaultFakes()
	s := newMessageService(rm)
	ctx := context.Background()

	msg, err := s.Send(ctx, "@lucas", "@igor", goodBody, goodPassphrase)
	require.NoError(t, err)

	body, err := s.Read(ctx, msg.ID, "@igor", goodPassphrase)
	require.NoError(t, err)
	assert.Equal(t, goodBody, body)

	stored, err := rm.m.GetByID(ctx, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRead, stored.Status)

	// second read must not decrypt again
	_, err = s.Read(ctx, msg.ID, "@igor", goodPassphrase)
	assert.ErrorIs(t, err, common.ErrConflict)
}

func TestRead_WrongPassphrase(t *testing.T) {
	rm := defaultFakes()
	s := newMessageService(rm)
	ctx := context.Background()

	msg, err := s.Send(ctx, "@lucas", "@igor", goodBody, goodPassphrase)
	require.NoError(t, err)

	_, err = s.Read(ctx, msg.ID, "@igor", "WrongPass1")
	assert.ErrorIs(t, err, common.ErrWrongKey)

	stored, err := rm.m.GetByID(ctx, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusUnread, stored.Status, "failed attempt must leave message unread")

	// the correct key still works afterwards
	body, err := s.Read(ctx, msg.ID, "@igor", goodPassphrase)
	require.NoError(t, err)
	assert.Equal(t, goodBody, body)
}

func TestRead_NotFoundAndOwnershipConflated(t *testing.T) {
	rm := defaultFakes()
	s := newMessageService(rm)
	ctx := context.Background()

	msg, err := s.Send(ctx, "@lucas", "@igor", goodBody, goodPassphrase)
	require.NoError(t, err)

	_, errMissing := s.Read(ctx, "no-such-id", "@igor", goodPassphrase)
	_, errForeign := s.Read(ctx, msg.ID, "@lucas", goodPassphrase)

	// a missing message and someone else's message are indistinguishable
	assert.ErrorIs(t, errMissing, common.ErrNotFound)
	assert.ErrorIs(t, errForeign, common.ErrNotFound)

	stored, err := rm.m.GetByID(ctx, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusUnread, stored.Status)
}

func TestRead_TamperedCiphertext(t *testing.T) {
	rm := defaultFakes()
	s := newMessageService(rm)
	ctx := context.Background()

	msg, err := s.Send(ctx, "@lucas", "@igor", goodBody, goodPassphrase)
	require.NoError(t, err)

	rm.m.tamper(msg.ID)

	_, err = s.Read(ctx, msg.ID, "@igor", goodPassphrase)
	assert.ErrorIs(t, err, common.ErrWrongKey)

	stored, err := rm.m.GetByID(ctx, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusUnread, stored.Status)
}

func TestRead_ConcurrentConsumerWins(t *testing.T) {
	rm := defaultFakes()
	s := newMessageService(rm)
	ctx := context.Background()

	msg, err := s.Send(ctx, "@lucas", "@igor", goodBody, goodPassphrase)
	require.NoError(t, err)

	// Simulate another session winning the conditional update between this
	// session's fetch and its commit.
	rm.m.markResult = common.ErrConflict

	_, err = s.Read(ctx, msg.ID, "@igor", goodPassphrase)
	assert.ErrorIs(t, err, common.ErrConflict)
}

func TestInboxAndCounts(t *testing.T) {
	rm := defaultFakes()
	_, err := rm.u.Create(context.Background(), &models.User{Handle: "@pedro"})
	require.NoError(t, err)
	s := newMessageService(rm)
	ctx := context.Background()

	_, err = s.Send(ctx, "@lucas", "@igor", goodBody, goodPassphrase)
	require.NoError(t, err)
	_, err = s.Send(ctx, "@lucas", "@igor", goodBody+" again", goodPassphrase)
	require.NoError(t, err)
	_, err = s.Send(ctx, "@pedro", "@igor", goodBody, goodPassphrase)
	require.NoError(t, err)

	n, err := s.UnreadCount(ctx, "@igor")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	grouped, err := s.Inbox(ctx, "@igor")
	require.NoError(t, err)
	require.Len(t, grouped, 2)
	assert.Len(t, grouped["@lucas"], 2)
	assert.Len(t, grouped["@pedro"], 1)

	fromLucas, err := s.UnreadFrom(ctx, "@igor", "@lucas")
	require.NoError(t, err)
	assert.Len(t, fromLucas, 2)

	// nothing addressed to the sender
	n, err = s.UnreadCount(ctx, "@lucas")
	require.NoError(t, err)
	assert.Zero(t, n)
}
