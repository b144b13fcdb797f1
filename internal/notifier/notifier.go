package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	goredis "github.com/redis/go-redis/v9"

	"github.com/lucidcrew/account-service/internal/events"
)

const (
	registeredCounterKey  = "stats:registered_total"
	deactivatedCounterKey = "stats:deactivated_total"
)

// Counter is the slice of the Redis client the notifier needs.
type Counter interface {
	Incr(ctx context.Context, key string) *goredis.IntCmd
}

// Notifier consumes the user.events stream. It stands in for the downstream
// notification subsystem: it logs each lifecycle transition and keeps
// running totals in Redis.
type Notifier struct {
	counter Counter
}

func New(counter Counter) *Notifier {
	return &Notifier{counter: counter}
}

// HandleUserEvent is the stream subscriber handler.
func (n *Notifier) HandleUserEvent(ctx context.Context, event events.Event) error {
	switch event.Type {
	case events.UserRegistered:
		var data events.UserRegisteredEvent
		if err := decode(event.Data, &data); err != nil {
			return fmt.Errorf("failed to unmarshal user.registered event: %w", err)
		}
		log.Printf("Account %s registered (%s %s <%s>)", data.AccountID, data.FirstName, data.LastName, data.Email)
		n.incr(ctx, registeredCounterKey)
	case events.UserUpdated:
		var data events.UserUpdatedEvent
		if err := decode(event.Data, &data); err != nil {
			return fmt.Errorf("failed to unmarshal user.updated event: %w", err)
		}
		log.Printf("Account %s updated: %d field(s)", data.AccountID, len(data.UpdatedFields))
	case events.UserDeactivated:
		var data events.UserDeactivatedEvent
		if err := decode(event.Data, &data); err != nil {
			return fmt.Errorf("failed to unmarshal user.deactivated event: %w", err)
		}
		log.Printf("Account %s deactivated", data.AccountID)
		n.incr(ctx, deactivatedCounterKey)
	}
	return nil
}

func (n *Notifier) incr(ctx context.Context, key string) {
	if n.counter == nil {
		return
	}
	if err := n.counter.Incr(ctx, key).Err(); err != nil {
		log.Printf("Failed to increment %s: %v", key, err)
	}
}

// Event payloads arrive as generic JSON maps off the stream; re-marshal to
// get them into their typed form.
func decode(data any, out any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}
