package query

import (
	"context"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/lucidcrew/account-service/internal/cache"
	"github.com/lucidcrew/account-service/internal/model"
)

const accountViewKeyPrefix = "account:view:"

// AccountReader is the slice of the account manager the read side needs.
type AccountReader interface {
	FindByID(ctx context.Context, id string) (*model.Account, error)
	FindAll(ctx context.Context, page, size int64, filter model.AccountFilter) (*model.AccountPage, error)
}

// AccountQueryService serves sanitized account views, reading through a
// Redis cache for single-account fetches. Listings always hit the store so
// pagination totals stay exact.
type AccountQueryService struct {
	reader AccountReader
	cache  *cache.ViewCache[model.AccountView]
}

func NewAccountQueryService(reader AccountReader, redisClient *goredis.Client) *AccountQueryService {
	return &AccountQueryService{
		reader: reader,
		cache:  cache.NewViewCache[model.AccountView](redisClient, 10*time.Minute),
	}
}

// GetAccount returns the view for one account, from Redis when warm.
func (s *AccountQueryService) GetAccount(ctx context.Context, id string) (*model.AccountView, error) {
	key := accountViewKeyPrefix + id
	if view, ok := s.cache.Get(ctx, key); ok {
		return view, nil
	}

	account, err := s.reader.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	view := model.NewAccountView(account)
	s.cache.Set(ctx, key, view)
	return view, nil
}

// ListAccounts returns one page of views plus the total match count.
func (s *AccountQueryService) ListAccounts(ctx context.Context, page, size int64, filter model.AccountFilter) (*model.AccountPageView, error) {
	result, err := s.reader.FindAll(ctx, page, size, filter)
	if err != nil {
		return nil, err
	}
	return model.NewAccountPageView(result), nil
}

// RefreshView re-caches the view after a mutation.
func (s *AccountQueryService) RefreshView(ctx context.Context, account *model.Account) {
	s.cache.Set(ctx, accountViewKeyPrefix+account.ID, model.NewAccountView(account))
}

// InvalidateView drops the cached view, forcing the next read to the store.
func (s *AccountQueryService) InvalidateView(ctx context.Context, id string) {
	s.cache.Delete(ctx, accountViewKeyPrefix+id)
}
