package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/lucidcrew/account-service/internal/events"
	"github.com/lucidcrew/account-service/internal/model"
	"github.com/lucidcrew/account-service/internal/repository"
)

// ---- capturing event sink ----

type publishedEvent struct {
	stream    string
	eventType string
	data      any
}

type capturingSink struct {
	published []publishedEvent
	err       error
}

func (s *capturingSink) Publish(ctx context.Context, stream, eventType string, data any) error {
	if s.err != nil {
		return s.err
	}
	s.published = append(s.published, publishedEvent{stream: stream, eventType: eventType, data: data})
	return nil
}

func newTestService() (*AccountService, *repository.MemoryAccountStore, *capturingSink) {
	store := repository.NewMemoryAccountStore()
	sink := &capturingSink{}
	return NewAccountService(store, sink), store, sink
}

func strPtr(s string) *string { return &s }

// ---- tests ----

func TestCreateHashesPasswordAndPublishes(t *testing.T) {
	svc, _, sink := newTestService()
	ctx := context.Background()

	account, err := svc.Create(ctx, CreateAccountInput{
		Email:     "Alice@Example.COM",
		Password:  "secret-pw-123",
		FirstName: "Alice",
		LastName:  "Smith",
		Phone:     "07700900123",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if account.ID == "" {
		t.Error("expected an assigned id")
	}
	if account.Email != "alice@example.com" {
		t.Errorf("expected lower-cased email, got %q", account.Email)
	}
	if account.Role != model.RoleUser {
		t.Errorf("expected default role USER, got %q", account.Role)
	}
	if account.Status != model.StatusActive {
		t.Errorf("expected status ACTIVE, got %q", account.Status)
	}
	if account.PasswordHash == "secret-pw-123" {
		t.Error("password stored in plaintext")
	}
	if account.CreatedAt.IsZero() || account.UpdatedAt.IsZero() {
		t.Error("expected assigned timestamps")
	}

	ok, err := svc.ValidatePassword("secret-pw-123", account.PasswordHash)
	if err != nil || !ok {
		t.Errorf("ValidatePassword(correct) = (%v, %v), want (true, nil)", ok, err)
	}
	ok, err = svc.ValidatePassword("wrong-password", account.PasswordHash)
	if err != nil || ok {
		t.Errorf("ValidatePassword(wrong) = (%v, %v), want (false, nil)", ok, err)
	}

	if len(sink.published) != 1 {
		t.Fatalf("expected 1 event, got %d", len(sink.published))
	}
	ev := sink.published[0]
	if ev.stream != events.UserEventsStream || ev.eventType != events.UserRegistered {
		t.Errorf("unexpected event %s on stream %s", ev.eventType, ev.stream)
	}
	payload, ok := ev.data.(events.UserRegisteredEvent)
	if !ok {
		t.Fatalf("unexpected payload type %T", ev.data)
	}
	if payload.AccountID != account.ID || payload.Email != "alice@example.com" ||
		payload.FirstName != "Alice" || payload.LastName != "Smith" || payload.Role != "USER" {
		t.Errorf("unexpected payload: %+v", payload)
	}
}

func TestCreateDuplicateEmail(t *testing.T) {
	svc, store, sink := newTestService()
	ctx := context.Background()

	if _, err := svc.Create(ctx, CreateAccountInput{
		Email: "a@x.com", Password: "password1", FirstName: "A", LastName: "B",
	}); err != nil {
		t.Fatalf("first Create failed: %v", err)
	}

	// Different casing must still collide.
	_, err := svc.Create(ctx, CreateAccountInput{
		Email: "A@X.com", Password: "password2", FirstName: "C", LastName: "D",
	})
	if !errors.Is(err, model.ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}

	if len(sink.published) != 1 {
		t.Errorf("failed registration must not publish, got %d events", len(sink.published))
	}
	total, _ := store.Count(ctx, model.AccountFilter{})
	if total != 1 {
		t.Errorf("failed registration must not alter the store, got %d accounts", total)
	}
}

func TestCreateRejectsUnknownRole(t *testing.T) {
	svc, _, sink := newTestService()

	_, err := svc.Create(context.Background(), CreateAccountInput{
		Email: "r@x.com", Password: "password1", FirstName: "R", LastName: "S",
		Role: model.Role("SUPERUSER"),
	})
	if !errors.Is(err, model.ErrInvalidValue) {
		t.Fatalf("expected ErrInvalidValue, got %v", err)
	}
	if len(sink.published) != 0 {
		t.Error("no event expected on failure")
	}
}

func TestFindByEmailAbsenceIsNotAnError(t *testing.T) {
	svc, _, _ := newTestService()

	account, err := svc.FindByEmail(context.Background(), "nobody@x.com")
	if err != nil {
		t.Fatalf("FindByEmail failed: %v", err)
	}
	if account != nil {
		t.Errorf("expected nil account, got %+v", account)
	}
}

func TestFindByIDNotFound(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.FindByID(context.Background(), "usr-missing000")
	if !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdatePartialPreservesUntouchedFields(t *testing.T) {
	svc, _, sink := newTestService()
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateAccountInput{
		Email: "john@x.com", Password: "password1", FirstName: "John", LastName: "Doe",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	updated, err := svc.Update(ctx, created.ID, model.AccountPatch{FirstName: strPtr("Jane")})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	if updated.FirstName != "Jane" {
		t.Errorf("expected firstName Jane, got %q", updated.FirstName)
	}
	if updated.LastName != "Doe" {
		t.Errorf("lastName must be untouched, got %q", updated.LastName)
	}
	if updated.Email != "john@x.com" {
		t.Errorf("email must be untouched, got %q", updated.Email)
	}
	if updated.UpdatedAt.Before(created.UpdatedAt) {
		t.Error("last-modified timestamp must advance")
	}

	ev := sink.published[len(sink.published)-1]
	if ev.eventType != events.UserUpdated {
		t.Fatalf("expected user.updated, got %s", ev.eventType)
	}
	payload := ev.data.(events.UserUpdatedEvent)
	if len(payload.UpdatedFields) != 1 || payload.UpdatedFields["firstName"] != "Jane" {
		t.Errorf("updatedFields must carry only the supplied fields, got %v", payload.UpdatedFields)
	}
}

func TestUpdateRejectsInvalidEnumValues(t *testing.T) {
	svc, _, sink := newTestService()
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateAccountInput{
		Email: "enum@x.com", Password: "password1", FirstName: "E", LastName: "F",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	before := len(sink.published)

	badRole := model.Role("OWNER")
	if _, err := svc.Update(ctx, created.ID, model.AccountPatch{Role: &badRole}); !errors.Is(err, model.ErrInvalidValue) {
		t.Errorf("expected ErrInvalidValue for role, got %v", err)
	}
	badStatus := model.Status("SUSPENDED")
	if _, err := svc.Update(ctx, created.ID, model.AccountPatch{Status: &badStatus}); !errors.Is(err, model.ErrInvalidValue) {
		t.Errorf("expected ErrInvalidValue for status, got %v", err)
	}

	if len(sink.published) != before {
		t.Error("rejected updates must not publish")
	}
	current, err := svc.FindByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if current.Role != model.RoleUser || current.Status != model.StatusActive {
		t.Errorf("rejected updates must not alter the account: %+v", current)
	}
}

func TestUpdateNotFound(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.Update(context.Background(), "usr-missing000", model.AccountPatch{FirstName: strPtr("X")})
	if !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRemoveIsIdempotent(t *testing.T) {
	svc, _, sink := newTestService()
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateAccountInput{
		Email: "gone@x.com", Password: "password1", FirstName: "G", LastName: "H",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := svc.Remove(ctx, created.ID); err != nil {
		t.Fatalf("first Remove failed: %v", err)
	}
	if err := svc.Remove(ctx, created.ID); err != nil {
		t.Fatalf("second Remove must succeed, got %v", err)
	}

	account, err := svc.FindByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if account.Status != model.StatusInactive {
		t.Errorf("expected INACTIVE, got %q", account.Status)
	}

	deactivations := 0
	for _, ev := range sink.published {
		if ev.eventType == events.UserDeactivated {
			deactivations++
		}
	}
	if deactivations != 2 {
		t.Errorf("expected user.deactivated republished, got %d", deactivations)
	}
}

func TestRemoveNotFound(t *testing.T) {
	svc, _, _ := newTestService()

	if err := svc.Remove(context.Background(), "usr-missing000"); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRefreshTokenRotationAndClearing(t *testing.T) {
	svc, store, sink := newTestService()
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateAccountInput{
		Email: "rt@x.com", Password: "password1", FirstName: "R", LastName: "T",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	before := len(sink.published)

	token := "refresh-token-value"
	if err := svc.UpdateRefreshToken(ctx, created.ID, &token); err != nil {
		t.Fatalf("UpdateRefreshToken failed: %v", err)
	}

	stored, _ := store.FindByID(ctx, created.ID)
	if stored.RefreshTokenHash == nil {
		t.Fatal("expected a stored refresh-token hash")
	}
	if *stored.RefreshTokenHash == token {
		t.Error("refresh token stored in plaintext")
	}
	ok, err := svc.ValidatePassword(token, *stored.RefreshTokenHash)
	if err != nil || !ok {
		t.Errorf("stored hash must verify against the token, got (%v, %v)", ok, err)
	}

	if err := svc.UpdateRefreshToken(ctx, created.ID, nil); err != nil {
		t.Fatalf("clearing failed: %v", err)
	}
	stored, _ = store.FindByID(ctx, created.ID)
	if stored.RefreshTokenHash != nil {
		t.Error("cleared reference must be absent, not a hash")
	}

	if err := svc.UpdateRefreshToken(ctx, "usr-missing000", &token); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown id, got %v", err)
	}
	if len(sink.published) != before {
		t.Error("refresh-token rotation must not publish events")
	}
}

func TestFindAllPagination(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	for i := 1; i <= 15; i++ {
		_, err := svc.Create(ctx, CreateAccountInput{
			Email:     fmt.Sprintf("user%02d@x.com", i),
			Password:  "password1",
			FirstName: "U",
			LastName:  fmt.Sprintf("%02d", i),
		})
		if err != nil {
			t.Fatalf("Create %d failed: %v", i, err)
		}
	}

	page, err := svc.FindAll(ctx, 1, 10, model.AccountFilter{})
	if err != nil {
		t.Fatalf("FindAll failed: %v", err)
	}
	if page.Total != 15 {
		t.Errorf("expected total 15, got %d", page.Total)
	}
	if len(page.Accounts) != 5 {
		t.Fatalf("expected 5 accounts on page 1, got %d", len(page.Accounts))
	}
	// Newest first: page 1 of size 10 holds the five oldest, starting with user05.
	if page.Accounts[0].Email != "user05@x.com" {
		t.Errorf("expected user05@x.com first, got %q", page.Accounts[0].Email)
	}
	if page.Accounts[4].Email != "user01@x.com" {
		t.Errorf("expected user01@x.com last, got %q", page.Accounts[4].Email)
	}
}

func TestFindAllFilterCombination(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	seed := []struct {
		email string
		role  model.Role
	}{
		{"alpha.TEST@x.com", model.RoleAdmin},
		{"beta.test@x.com", model.RoleUser},
		{"gamma@x.com", model.RoleAdmin},
		{"delta.test@x.com", model.RoleAdmin},
	}
	for _, s := range seed {
		if _, err := svc.Create(ctx, CreateAccountInput{
			Email: s.email, Password: "password1", FirstName: "F", LastName: "L", Role: s.role,
		}); err != nil {
			t.Fatalf("Create %s failed: %v", s.email, err)
		}
	}

	page, err := svc.FindAll(ctx, 0, 10, model.AccountFilter{Email: "TEST", Role: model.RoleAdmin})
	if err != nil {
		t.Fatalf("FindAll failed: %v", err)
	}
	if page.Total != 2 || len(page.Accounts) != 2 {
		t.Fatalf("expected 2 matches, got total=%d len=%d", page.Total, len(page.Accounts))
	}
	for _, a := range page.Accounts {
		if a.Role != model.RoleAdmin {
			t.Errorf("non-admin account matched: %q", a.Email)
		}
	}

	empty, err := svc.FindAll(ctx, 0, 10, model.AccountFilter{Email: "zeta"})
	if err != nil {
		t.Fatalf("FindAll failed: %v", err)
	}
	if empty.Total != 0 || len(empty.Accounts) != 0 {
		t.Errorf("expected empty result, got total=%d len=%d", empty.Total, len(empty.Accounts))
	}
}

func TestRegistrationLifecycleScenario(t *testing.T) {
	svc, _, sink := newTestService()
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateAccountInput{
		Email: "a@x.com", Password: "pw123secure", FirstName: "A", LastName: "B",
	})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if sink.published[0].eventType != events.UserRegistered {
		t.Fatalf("expected user.registered first, got %s", sink.published[0].eventType)
	}

	if _, err := svc.Create(ctx, CreateAccountInput{
		Email: "a@x.com", Password: "otherpw123", FirstName: "A", LastName: "B",
	}); !errors.Is(err, model.ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}

	inactive := model.StatusInactive
	updated, err := svc.Update(ctx, created.ID, model.AccountPatch{Status: &inactive})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.Status != model.StatusInactive {
		t.Errorf("expected INACTIVE after update, got %q", updated.Status)
	}
	if sink.published[len(sink.published)-1].eventType != events.UserUpdated {
		t.Error("expected user.updated event")
	}

	if err := svc.Remove(ctx, created.ID); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	final, err := svc.FindByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if final.Status != model.StatusInactive {
		t.Errorf("expected INACTIVE after remove, got %q", final.Status)
	}
	if sink.published[len(sink.published)-1].eventType != events.UserDeactivated {
		t.Error("expected user.deactivated event")
	}
}

func TestPublishFailureDoesNotFailTheOperation(t *testing.T) {
	store := repository.NewMemoryAccountStore()
	sink := &capturingSink{err: errors.New("stream unavailable")}
	svc := NewAccountService(store, sink)

	account, err := svc.Create(context.Background(), CreateAccountInput{
		Email: "best@x.com", Password: "password1", FirstName: "B", LastName: "E",
	})
	if err != nil {
		t.Fatalf("Create must succeed despite publish failure, got %v", err)
	}
	stored, _ := store.FindByID(context.Background(), account.ID)
	if stored == nil {
		t.Error("account must be persisted even when the event is lost")
	}
}
