package domain

import (
	"context"
	"encoding/json"
)

type (
	// NetworkClient is the outbound port to the console network. Implementations
	// are thin pass-throughs: one method, one upstream endpoint, no retries.
	// The gateway never interprets upstream payloads beyond decoding JSON.
	NetworkClient interface {
		// ResolveAccountID maps a user-chosen online ID to the network's stable
		// account ID. Unknown IDs return an error wrapping ErrUserNotFound.
		ResolveAccountID(ctx context.Context, onlineID string) (string, error)

		Profile(ctx context.Context, accountID string) (map[string]any, error)
		Presence(ctx context.Context, accountID string) (map[string]any, error)
		FriendshipSummary(ctx context.Context, accountID string) (map[string]any, error)
		TrophySummary(ctx context.Context, accountID string) (TrophySummary, error)
		IsBlocking(ctx context.Context, accountID string) (bool, error)

		// TrophyTitles and TitleStats return one raw JSON document per title so
		// the caller can project records independently and skip broken ones.
		// limit <= 0 means no limit.
		TrophyTitles(ctx context.Context, accountID string, limit int) ([]json.RawMessage, error)
		TitleStats(ctx context.Context, accountID string, limit int) ([]json.RawMessage, error)
	}

	// TrophySummary is the aggregate achievement standing of an account.
	TrophySummary struct {
		Level    int
		Progress int
		Tier     int
		Earned   EarnedTrophies
	}

	// EarnedTrophies counts earned trophies by rank.
	EarnedTrophies struct {
		Platinum int `json:"platinum"`
		Gold     int `json:"gold"`
		Silver   int `json:"silver"`
		Bronze   int `json:"bronze"`
	}
)
