package services

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sigilosec/sigilo/internal/common"
	"github.com/sigilosec/sigilo/internal/dbx"
	"github.com/sigilosec/sigilo/internal/models"
	messagesrepo "github.com/sigilosec/sigilo/internal/repositories/messages"
	usersrepo "github.com/sigilosec/sigilo/internal/repositories/users"
)

// --- in-memory fakes used by the service tests ---

type fakeUserRepo struct {
	mu        sync.Mutex
	users     map[string]*models.User
	existsErr error
	listErr   error
	createErr error
	countErr  error
}

func newFakeUserRepo(handles ...string) *fakeUserRepo {
	f := &fakeUserRepo{users: make(map[string]*models.User)}
	for i, h := range handles {
		f.users[h] = &models.User{ID: fmt.Sprintf("u-%d", i+1), Handle: h, CreatedAt: time.Now()}
	}
	return f
}

func (f *fakeUserRepo) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	user.ID = fmt.Sprintf("u-%d", len(f.users)+1)
	user.CreatedAt = time.Now()
	f.users[user.Handle] = user
	return user, nil
}

func (f *fakeUserRepo) GetByHandle(ctx context.Context, handle string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[handle]
	if !ok {
		return nil, common.ErrNotFound
	}
	return u, nil
}

func (f *fakeUserRepo) Exists(ctx context.Context, handle string) (bool, error) {
	if f.existsErr != nil {
		return false, f.existsErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.users[handle]
	return ok, nil
}

func (f *fakeUserRepo) List(ctx context.Context, excludeHandle string) ([]*models.User, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []*models.User
	for h, u := range f.users {
		if h == excludeHandle {
			continue
		}
		result = append(result, u)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Handle < result[j].Handle })
	return result, nil
}

func (f *fakeUserRepo) Count(ctx context.Context) (int64, error) {
	if f.countErr != nil {
		return 0, f.countErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.users)), nil
}

type fakeMessageRepo struct {
	mu         sync.Mutex
	msgs       map[string]*models.Message
	insertErr  error
	getErr     error
	markResult error // nil means "apply the conditional update"
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{msgs: make(map[string]*models.Message)}
}

func (f *fakeMessageRepo) Insert(ctx context.Context, msg *models.Message) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs[msg.ID] = msg
	return nil
}

func (f *fakeMessageRepo) GetByID(ctx context.Context, id string) (*models.Message, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.msgs[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (f *fakeMessageRepo) FindUnreadFor(ctx context.Context, handle string) ([]*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []*models.Message
	for _, m := range f.msgs {
		if m.Recipient == handle && m.Status == models.StatusUnread {
			result = append(result, m)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].SentAt.After(result[j].SentAt) })
	return result, nil
}

func (f *fakeMessageRepo) FindUnreadFrom(ctx context.Context, handle, sender string) ([]*models.Message, error) {
	all, _ := f.FindUnreadFor(ctx, handle)
	var result []*models.Message
	for _, m := range all {
		if m.Sender == sender {
			result = append(result, m)
		}
	}
	return result, nil
}

func (f *fakeMessageRepo) CountUnreadFor(ctx context.Context, handle string) (int64, error) {
	all, _ := f.FindUnreadFor(ctx, handle)
	return int64(len(all)), nil
}

func (f *fakeMessageRepo) MarkRead(ctx context.Context, id string) error {
	if f.markResult != nil {
		return f.markResult
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.msgs[id]
	if !ok || m.Status != models.StatusUnread {
		return common.ErrConflict
	}
	m.Status = models.StatusRead
	return nil
}

// tamper flips one bit in the stored ciphertext of the given message.
func (f *fakeMessageRepo) tamper(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs[id].Ciphertext[0] ^= 0x01
}

type fakeRepoManager struct {
	u *fakeUserRepo
	m *fakeMessageRepo
}

func (f *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error  { return nil }
func (f *fakeRepoManager) Users(db dbx.DBTX) usersrepo.Repository       { return f.u }
func (f *fakeRepoManager) Messages(db dbx.DBTX) messagesrepo.Repository { return f.m }
