package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
)

type (
	// User lazily fetches and memoizes the remote sub-resources of one account.
	// Each sub-resource is fetched at most once per User lifetime; the outcome
	// (value or failure) is kept so repeated reads never hit the network again.
	// A failed fetch degrades to a zero value instead of propagating, but the
	// failure itself stays recorded so callers can tell "empty" from "broken".
	User struct {
		OnlineID string

		client NetworkClient

		// mu serializes lazy fetches; Users are shared across requests via the
		// application cache, and the upstream calls below are not idempotent in
		// cost terms.
		mu        sync.Mutex
		accountID string

		profile    resource[map[string]any]
		presence   resource[map[string]any]
		friendship resource[map[string]any]
		trophies   resource[TrophySummary]
		blocking   resource[bool]
	}

	// resource is a memoized fetch outcome. done is true once a fetch was
	// attempted, whether it produced a value or an error.
	resource[T any] struct {
		done  bool
		value T
		err   error
	}
)

func newUser(client NetworkClient, onlineID string) *User {
	return &User{OnlineID: onlineID, client: client}
}

// resolveLocked maps the online ID to an account ID, memoizing success only.
// Resolution failure is the one error that propagates to callers: without an
// account ID no sub-resource can be addressed. mu must be held.
func (u *User) resolveLocked(ctx context.Context) (string, error) {
	if u.accountID != "" {
		return u.accountID, nil
	}
	id, err := u.client.ResolveAccountID(ctx, u.OnlineID)
	if err != nil {
		return "", fmt.Errorf("resolve %q: %w", u.OnlineID, err)
	}
	u.accountID = id
	return id, nil
}

// AccountID resolves and returns the stable account identifier.
func (u *User) AccountID(ctx context.Context) (string, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.resolveLocked(ctx)
}

// load performs the fetch-once-and-degrade dance shared by all sub-resources.
// The caller must hold u.mu.
func load[T any](ctx context.Context, u *User, r *resource[T], name string, fn func(context.Context, string) (T, error)) T {
	if r.done {
		return r.value
	}
	accountID, err := u.resolveLocked(ctx)
	if err == nil {
		r.value, err = fn(ctx, accountID)
	}
	r.done = true
	if err != nil {
		r.err = err
		var zero T
		r.value = zero
		slog.WarnContext(ctx, "sub-resource degraded to empty",
			slog.String("online_id", u.OnlineID),
			slog.String("resource", name),
			slog.Any("error", err),
		)
	}
	return r.value
}

func (u *User) profileLocked(ctx context.Context) map[string]any {
	return load(ctx, u, &u.profile, "profile", u.client.Profile)
}

func (u *User) presenceLocked(ctx context.Context) map[string]any {
	return load(ctx, u, &u.presence, "presence", u.client.Presence)
}

func (u *User) friendshipLocked(ctx context.Context) map[string]any {
	return load(ctx, u, &u.friendship, "friendship", u.client.FriendshipSummary)
}

func (u *User) trophySummaryLocked(ctx context.Context) TrophySummary {
	return load(ctx, u, &u.trophies, "trophy_summary", u.client.TrophySummary)
}

func (u *User) isBlockingLocked(ctx context.Context) bool {
	return load(ctx, u, &u.blocking, "blocking", u.client.IsBlocking)
}

// ProfileData exposes the unprocessed upstream profile document. Resolution
// failure propagates; a failed profile fetch degrades to an empty map like any
// other sub-resource.
func (u *User) ProfileData(ctx context.Context) (map[string]any, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if _, err := u.resolveLocked(ctx); err != nil {
		return nil, err
	}
	return u.profileLocked(ctx), nil
}

// Degraded lists the sub-resources whose fetch failed so far, in a fixed
// order. Empty means every attempted fetch succeeded.
func (u *User) Degraded() []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	var out []string
	if u.profile.err != nil {
		out = append(out, "profile")
	}
	if u.presence.err != nil {
		out = append(out, "presence")
	}
	if u.friendship.err != nil {
		out = append(out, "friendship")
	}
	if u.trophies.err != nil {
		out = append(out, "trophy_summary")
	}
	if u.blocking.err != nil {
		out = append(out, "blocking")
	}
	return out
}

// TrophyTitles is a pass-through: not memoized, errors propagate.
func (u *User) TrophyTitles(ctx context.Context, limit int) ([]json.RawMessage, error) {
	accountID, err := u.AccountID(ctx)
	if err != nil {
		return nil, err
	}
	return u.client.TrophyTitles(ctx, accountID, limit)
}

// TitleStats is a pass-through: not memoized, errors propagate.
func (u *User) TitleStats(ctx context.Context, limit int) ([]json.RawMessage, error) {
	accountID, err := u.AccountID(ctx)
	if err != nil {
		return nil, err
	}
	return u.client.TitleStats(ctx, accountID, limit)
}
