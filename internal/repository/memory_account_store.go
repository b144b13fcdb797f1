package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/lucidcrew/account-service/internal/model"
	"github.com/lucidcrew/account-service/internal/utils"
)

// MemoryAccountStore is an in-memory implementation of the account store,
// used in tests and local development. It mirrors the Mongo store's
// semantics, including insertion-order tie-breaking for equal timestamps.
type MemoryAccountStore struct {
	mu       sync.RWMutex
	accounts map[string]*model.Account
	seq      map[string]int
	nextSeq  int
}

func NewMemoryAccountStore() *MemoryAccountStore {
	return &MemoryAccountStore{
		accounts: make(map[string]*model.Account),
		seq:      make(map[string]int),
	}
}

func (s *MemoryAccountStore) FindByEmail(ctx context.Context, email string) (*model.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.accounts {
		if a.Email == email {
			return clone(a), nil
		}
	}
	return nil, nil
}

func (s *MemoryAccountStore) FindByID(ctx context.Context, id string) (*model.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[id]
	if !ok {
		return nil, nil
	}
	return clone(a), nil
}

func (s *MemoryAccountStore) Insert(ctx context.Context, draft *model.Account) (*model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range s.accounts {
		if a.Email == draft.Email {
			return nil, model.ErrDuplicateEmail
		}
	}

	account := clone(draft)
	account.ID = utils.GenerateID("usr")
	now := time.Now().UTC()
	account.CreatedAt = now
	account.UpdatedAt = now

	s.accounts[account.ID] = account
	s.nextSeq++
	s.seq[account.ID] = s.nextSeq
	return clone(account), nil
}

func (s *MemoryAccountStore) FindMany(ctx context.Context, filter model.AccountFilter, skip, limit int64) ([]model.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := s.match(filter)
	sort.SliceStable(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return s.seq[matched[i].ID] > s.seq[matched[j].ID]
	})

	if skip >= int64(len(matched)) {
		return nil, nil
	}
	matched = matched[skip:]
	if limit < int64(len(matched)) {
		matched = matched[:limit]
	}

	out := make([]model.Account, 0, len(matched))
	for _, a := range matched {
		out = append(out, *clone(a))
	}
	return out, nil
}

func (s *MemoryAccountStore) Count(ctx context.Context, filter model.AccountFilter) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.match(filter))), nil
}

func (s *MemoryAccountStore) UpdateByID(ctx context.Context, id string, patch model.AccountPatch) (*model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[id]
	if !ok {
		return nil, nil
	}

	if patch.FirstName != nil {
		a.FirstName = *patch.FirstName
	}
	if patch.LastName != nil {
		a.LastName = *patch.LastName
	}
	if patch.Phone != nil {
		a.Phone = *patch.Phone
	}
	if patch.Role != nil {
		a.Role = *patch.Role
	}
	if patch.Status != nil {
		a.Status = *patch.Status
	}
	a.UpdatedAt = time.Now().UTC()
	return clone(a), nil
}

func (s *MemoryAccountStore) UpdateRefreshToken(ctx context.Context, id string, hash *string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[id]
	if !ok {
		return false, nil
	}
	if hash != nil {
		h := *hash
		a.RefreshTokenHash = &h
	} else {
		a.RefreshTokenHash = nil
	}
	a.UpdatedAt = time.Now().UTC()
	return true, nil
}

// match must be called with the lock held.
func (s *MemoryAccountStore) match(filter model.AccountFilter) []*model.Account {
	needle := strings.ToLower(filter.Email)
	var matched []*model.Account
	for _, a := range s.accounts {
		if needle != "" && !strings.Contains(strings.ToLower(a.Email), needle) {
			continue
		}
		if filter.Role != "" && a.Role != filter.Role {
			continue
		}
		if filter.Status != "" && a.Status != filter.Status {
			continue
		}
		matched = append(matched, a)
	}
	return matched
}

func clone(a *model.Account) *model.Account {
	c := *a
	if a.RefreshTokenHash != nil {
		h := *a.RefreshTokenHash
		c.RefreshTokenHash = &h
	}
	return &c
}
