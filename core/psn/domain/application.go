package domain

import (
	"context"
	"encoding/json"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize bounds the per-process User memoization.
const DefaultCacheSize = 100

// Application owns the injected network client and the bounded User cache.
// Entries have no TTL; they live until capacity pressure evicts them. The LRU
// is internally synchronized, so Application is safe for concurrent requests.
type Application struct {
	client NetworkClient
	users  *lru.Cache[string, *User]
}

func NewApp(client NetworkClient, cacheSize int) (*Application, error) {
	if client == nil {
		return nil, fmt.Errorf("%w: nil network client", ErrInvalidData)
	}
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	users, err := lru.New[string, *User](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("user cache: %w", err)
	}
	return &Application{client: client, users: users}, nil
}

// User returns the memoized accessor for onlineID, creating one on first use.
// At most one live accessor exists per ID between evictions.
func (app *Application) User(onlineID string) *User {
	if u, ok := app.users.Get(onlineID); ok {
		return u
	}
	u := newUser(app.client, onlineID)
	// Two requests may race to create the same accessor; PeekOrAdd keeps
	// whichever instance landed first so memoized fetches are not duplicated.
	if prev, ok, _ := app.users.PeekOrAdd(onlineID, u); ok {
		return prev
	}
	return u
}

// CachedUsers reports the current number of memoized accessors.
func (app *Application) CachedUsers() int {
	return app.users.Len()
}

// FullProfile returns the flattened profile plus the list of degraded
// sub-resources for the route layer to surface.
func (app *Application) FullProfile(ctx context.Context, onlineID string) (map[string]any, []string, error) {
	u := app.User(onlineID)
	profile, err := u.FullProfile(ctx)
	if err != nil {
		return nil, nil, err
	}
	return profile, u.Degraded(), nil
}

// RawProfile returns the unprocessed upstream profile document.
func (app *Application) RawProfile(ctx context.Context, onlineID string) (map[string]any, error) {
	return app.User(onlineID).ProfileData(ctx)
}

// TrophyTitles passes through the per-title trophy records.
func (app *Application) TrophyTitles(ctx context.Context, onlineID string, limit int) ([]json.RawMessage, error) {
	return app.User(onlineID).TrophyTitles(ctx, limit)
}

// TitleStats passes through the per-title play statistics records.
func (app *Application) TitleStats(ctx context.Context, onlineID string, limit int) ([]json.RawMessage, error) {
	return app.User(onlineID).TitleStats(ctx, limit)
}
