package service

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/lucidcrew/account-service/internal/events"
	"github.com/lucidcrew/account-service/internal/model"
	"github.com/lucidcrew/account-service/internal/utils"
)

// AccountStore is the persistence port the account manager depends on.
// Lookup methods return (nil, nil) when no account matches.
type AccountStore interface {
	FindByEmail(ctx context.Context, email string) (*model.Account, error)
	FindByID(ctx context.Context, id string) (*model.Account, error)
	Insert(ctx context.Context, draft *model.Account) (*model.Account, error)
	FindMany(ctx context.Context, filter model.AccountFilter, skip, limit int64) ([]model.Account, error)
	Count(ctx context.Context, filter model.AccountFilter) (int64, error)
	UpdateByID(ctx context.Context, id string, patch model.AccountPatch) (*model.Account, error)
	UpdateRefreshToken(ctx context.Context, id string, hash *string) (bool, error)
}

// EventSink receives domain events. Publish failures are logged, never
// retried; event delivery is not transactional with the store write.
type EventSink interface {
	Publish(ctx context.Context, stream, eventType string, data any) error
}

// AccountService owns the account lifecycle: registration, credential
// handling, profile mutation and deactivation. It holds no state of its own;
// every call is a fetch-mutate-persist cycle against the store.
type AccountService struct {
	store  AccountStore
	events EventSink
}

func NewAccountService(store AccountStore, sink EventSink) *AccountService {
	return &AccountService{store: store, events: sink}
}

// CreateAccountInput carries the registration fields. Password is the
// plaintext candidate; it is hashed before anything is persisted.
type CreateAccountInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Phone     string
	Role      model.Role
}

// Create registers a new account. The email must not already be on file;
// the store's unique index is the authoritative backstop for the check-then-
// act window here.
func (s *AccountService) Create(ctx context.Context, in CreateAccountInput) (*model.Account, error) {
	email := normalizeEmail(in.Email)

	existing, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		return nil, &model.StorageError{Op: "find by email", Err: err}
	}
	if existing != nil {
		return nil, model.ErrDuplicateEmail
	}

	role := in.Role
	if role == "" {
		role = model.RoleUser
	}
	if !role.Valid() {
		return nil, model.ErrInvalidValue
	}

	passwordHash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	draft := &model.Account{
		Email:        email,
		PasswordHash: passwordHash,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Phone:        in.Phone,
		Role:         role,
		Status:       model.StatusActive,
	}

	account, err := s.store.Insert(ctx, draft)
	if err != nil {
		return nil, &model.StorageError{Op: "insert", Err: err}
	}

	if err := s.events.Publish(ctx, events.UserEventsStream, events.UserRegistered, events.UserRegisteredEvent{
		AccountID: account.ID,
		Email:     account.Email,
		FirstName: account.FirstName,
		LastName:  account.LastName,
		Role:      string(account.Role),
	}); err != nil {
		log.Printf("Failed to publish user.registered event: %v", err)
	}

	return account, nil
}

// FindByEmail returns the account registered under email, or nil when none
// is. Absence is a normal outcome here, not an error.
func (s *AccountService) FindByEmail(ctx context.Context, email string) (*model.Account, error) {
	account, err := s.store.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, &model.StorageError{Op: "find by email", Err: err}
	}
	return account, nil
}

func (s *AccountService) FindByID(ctx context.Context, id string) (*model.Account, error) {
	account, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, &model.StorageError{Op: "find by id", Err: err}
	}
	if account == nil {
		return nil, model.ErrNotFound
	}
	return account, nil
}

// FindAll returns one page of accounts matching filter, newest first, plus
// the total match count across all pages.
func (s *AccountService) FindAll(ctx context.Context, page, size int64, filter model.AccountFilter) (*model.AccountPage, error) {
	if page < 0 {
		page = 0
	}
	if size <= 0 {
		size = 10
	}

	accounts, err := s.store.FindMany(ctx, filter, page*size, size)
	if err != nil {
		return nil, &model.StorageError{Op: "find many", Err: err}
	}
	total, err := s.store.Count(ctx, filter)
	if err != nil {
		return nil, &model.StorageError{Op: "count", Err: err}
	}

	return &model.AccountPage{Accounts: accounts, Total: total}, nil
}

// Update applies the supplied fields to the account and leaves the rest
// untouched. Role and status values outside their enumerations are rejected
// before the store is involved.
func (s *AccountService) Update(ctx context.Context, id string, patch model.AccountPatch) (*model.Account, error) {
	if patch.Role != nil && !patch.Role.Valid() {
		return nil, model.ErrInvalidValue
	}
	if patch.Status != nil && !patch.Status.Valid() {
		return nil, model.ErrInvalidValue
	}

	account, err := s.store.UpdateByID(ctx, id, patch)
	if err != nil {
		return nil, &model.StorageError{Op: "update", Err: err}
	}
	if account == nil {
		return nil, model.ErrNotFound
	}

	if err := s.events.Publish(ctx, events.UserEventsStream, events.UserUpdated, events.UserUpdatedEvent{
		AccountID:     account.ID,
		UpdatedFields: patch.Fields(),
	}); err != nil {
		log.Printf("Failed to publish user.updated event: %v", err)
	}

	return account, nil
}

// Remove deactivates the account. It is a set, not a toggle: removing an
// already-inactive account succeeds again and republishes the event.
func (s *AccountService) Remove(ctx context.Context, id string) error {
	status := model.StatusInactive
	account, err := s.store.UpdateByID(ctx, id, model.AccountPatch{Status: &status})
	if err != nil {
		return &model.StorageError{Op: "deactivate", Err: err}
	}
	if account == nil {
		return model.ErrNotFound
	}

	if err := s.events.Publish(ctx, events.UserEventsStream, events.UserDeactivated, events.UserDeactivatedEvent{
		AccountID: account.ID,
	}); err != nil {
		log.Printf("Failed to publish user.deactivated event: %v", err)
	}

	return nil
}

// ValidatePassword checks a plaintext candidate against a stored hash.
// A mismatch is (false, nil); only a corrupt hash produces an error.
func (s *AccountService) ValidatePassword(candidate, storedHash string) (bool, error) {
	return utils.VerifyPassword(candidate, storedHash)
}

// UpdateRefreshToken stores a hash of the current refresh token, or clears
// the stored reference when token is nil. No event is published.
func (s *AccountService) UpdateRefreshToken(ctx context.Context, id string, token *string) error {
	var hash *string
	if token != nil {
		h, err := utils.HashToken(*token)
		if err != nil {
			return fmt.Errorf("failed to hash refresh token: %w", err)
		}
		hash = &h
	}

	matched, err := s.store.UpdateRefreshToken(ctx, id, hash)
	if err != nil {
		return &model.StorageError{Op: "update refresh token", Err: err}
	}
	if !matched {
		return model.ErrNotFound
	}
	return nil
}

// Email comparison is case-insensitive: addresses are lower-cased once at
// the boundary so the uniqueness check and lookups always agree.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
