package domain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"testing"
)

// stubClient counts upstream calls per method and serves canned data.
type stubClient struct {
	calls map[string]int

	accounts map[string]string

	profile    map[string]any
	profileErr error

	presence    map[string]any
	presenceErr error

	friendship    map[string]any
	friendshipErr error

	trophies    TrophySummary
	trophiesErr error

	blocking    bool
	blockingErr error

	titles     []json.RawMessage
	titlesErr  error
	stats      []json.RawMessage
	statsErr   error
	resolveErr error
}

func newStubClient() *stubClient {
	return &stubClient{
		calls:    map[string]int{},
		accounts: map[string]string{"ape": "123456789"},
		profile: map[string]any{
			"aboutMe":              "hello",
			"avatars":              []any{map[string]any{"size": "xl", "url": "https://img.example/x.png"}},
			"languages":            []any{"en-US"},
			"isPlus":               true,
			"isOfficiallyVerified": false,
		},
		presence: map[string]any{
			"availability": "availableToPlay",
			"primaryPlatformInfo": map[string]any{
				"onlineStatus":   "online",
				"platform":       "PS5",
				"lastOnlineDate": "2025-11-02T10:00:00Z",
			},
		},
		friendship: map[string]any{
			"friendsCount":       float64(42),
			"mutualFriendsCount": float64(3),
			"friendRelation":     "friend",
		},
		trophies: TrophySummary{
			Level:    421,
			Progress: 53,
			Tier:     4,
			Earned:   EarnedTrophies{Platinum: 2, Gold: 21, Silver: 84, Bronze: 301},
		},
	}
}

func (s *stubClient) ResolveAccountID(_ context.Context, onlineID string) (string, error) {
	s.calls["resolve"]++
	if s.resolveErr != nil {
		return "", s.resolveErr
	}
	id, ok := s.accounts[onlineID]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUserNotFound, onlineID)
	}
	return id, nil
}

func (s *stubClient) Profile(context.Context, string) (map[string]any, error) {
	s.calls["profile"]++
	return s.profile, s.profileErr
}

func (s *stubClient) Presence(context.Context, string) (map[string]any, error) {
	s.calls["presence"]++
	return s.presence, s.presenceErr
}

func (s *stubClient) FriendshipSummary(context.Context, string) (map[string]any, error) {
	s.calls["friendship"]++
	return s.friendship, s.friendshipErr
}

func (s *stubClient) TrophySummary(context.Context, string) (TrophySummary, error) {
	s.calls["trophies"]++
	return s.trophies, s.trophiesErr
}

func (s *stubClient) IsBlocking(context.Context, string) (bool, error) {
	s.calls["blocking"]++
	return s.blocking, s.blockingErr
}

func (s *stubClient) TrophyTitles(context.Context, string, int) ([]json.RawMessage, error) {
	s.calls["titles"]++
	return s.titles, s.titlesErr
}

func (s *stubClient) TitleStats(context.Context, string, int) ([]json.RawMessage, error) {
	s.calls["stats"]++
	return s.stats, s.statsErr
}

func TestFullProfileFetchesEachSubResourceOnce(t *testing.T) {
	ctx := context.Background()
	stub := newStubClient()
	u := newUser(stub, "ape")

	for range 3 {
		if _, err := u.FullProfile(ctx); err != nil {
			t.Fatalf("FullProfile: %v", err)
		}
	}

	for _, method := range []string{"resolve", "profile", "presence", "friendship", "trophies", "blocking"} {
		if got := stub.calls[method]; got != 1 {
			t.Errorf("calls[%s] = %d, want 1", method, got)
		}
	}
}

func TestFullProfileDropsEmptyKeepsZero(t *testing.T) {
	ctx := context.Background()
	stub := newStubClient()
	// Strip the profile down so string/list fields come back empty while the
	// trophy summary is an explicit all-zero answer.
	stub.profile = map[string]any{"isPlus": false}
	stub.presence = map[string]any{}
	stub.friendship = map[string]any{"friendsCount": float64(0)}
	stub.trophies = TrophySummary{}

	u := newUser(stub, "ape")
	full, err := u.FullProfile(ctx)
	if err != nil {
		t.Fatalf("FullProfile: %v", err)
	}

	for _, absent := range []string{FieldAboutMe, FieldAvatars, FieldLanguages, FieldOnlineStatus, FieldPlatform, FieldLastOnline, FieldAvailability, FieldFriendRelation} {
		if v, ok := full[absent]; ok {
			t.Errorf("key %q should be dropped, got %v", absent, v)
		}
	}
	for key, want := range map[string]any{
		FieldIsPlus:               false,
		FieldIsOfficiallyVerified: false,
		FieldIsBlocking:           false,
		FieldFriendsCount:         0,
		FieldTrophyLevel:          0,
		FieldTrophyProgress:       0,
		FieldTrophyTier:           0,
	} {
		got, ok := full[key]
		if !ok {
			t.Errorf("key %q missing, explicit zero/false must be kept", key)
			continue
		}
		if got != want {
			t.Errorf("full[%q] = %v, want %v", key, got, want)
		}
	}
	// earned_trophies is a non-empty mapping even when all counts are zero
	if _, ok := full[FieldEarnedTrophies]; !ok {
		t.Errorf("key %q missing", FieldEarnedTrophies)
	}
}

func TestFullProfileRecordsDegradedSubResources(t *testing.T) {
	ctx := context.Background()
	stub := newStubClient()
	stub.presenceErr = errors.New("presence backend down")
	stub.trophiesErr = errors.New("trophy backend down")

	u := newUser(stub, "ape")
	full, err := u.FullProfile(ctx)
	if err != nil {
		t.Fatalf("FullProfile: %v", err)
	}

	// degraded resources read as absent data, not as errors
	if _, ok := full[FieldOnlineStatus]; ok {
		t.Errorf("online_status should be dropped when presence fetch fails")
	}
	if got := full[FieldTrophyLevel]; got != 0 {
		t.Errorf("trophy_level = %v, want 0", got)
	}

	got := u.Degraded()
	sort.Strings(got)
	want := []string{"presence", "trophy_summary"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Degraded() = %v, want %v", got, want)
	}

	// failure outcome is memoized like a value: no second fetch
	if _, err := u.FullProfile(ctx); err != nil {
		t.Fatalf("FullProfile: %v", err)
	}
	if stub.calls["presence"] != 1 {
		t.Errorf("presence refetched after failure, calls = %d", stub.calls["presence"])
	}
}

func TestFullProfileUnknownUser(t *testing.T) {
	u := newUser(newStubClient(), "nobody")
	_, err := u.FullProfile(context.Background())
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("err = %v, want ErrUserNotFound", err)
	}
}

func TestResolutionFailureIsRetried(t *testing.T) {
	ctx := context.Background()
	stub := newStubClient()
	stub.resolveErr = errors.New("transient")
	u := newUser(stub, "ape")

	if _, err := u.FullProfile(ctx); err == nil {
		t.Fatal("expected resolution error")
	}
	stub.resolveErr = nil
	if _, err := u.FullProfile(ctx); err != nil {
		t.Fatalf("second FullProfile: %v", err)
	}
	if stub.calls["resolve"] != 2 {
		t.Errorf("resolve calls = %d, want 2", stub.calls["resolve"])
	}
}

func TestFilterFields(t *testing.T) {
	profile := map[string]any{
		FieldOnlineID:    "ape",
		FieldTrophyLevel: 421,
		FieldIsPlus:      true,
	}

	t.Run("unknown spellings ignored", func(t *testing.T) {
		got := FilterFields(profile, []string{FieldOnlineID, "Trophy_Level", "nonsense", FieldIsPlus})
		want := map[string]any{FieldOnlineID: "ape", FieldIsPlus: true}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("FilterFields = %v, want %v", got, want)
		}
	})

	t.Run("known but absent fields skipped", func(t *testing.T) {
		got := FilterFields(profile, []string{FieldAboutMe})
		if len(got) != 0 {
			t.Errorf("FilterFields = %v, want empty", got)
		}
	})

	t.Run("empty request passes through", func(t *testing.T) {
		if got := FilterFields(profile, nil); !reflect.DeepEqual(got, profile) {
			t.Errorf("FilterFields = %v, want full profile", got)
		}
	})

	t.Run("result is subset of allow-list", func(t *testing.T) {
		got := FilterFields(profile, []string{FieldOnlineID, "bogus", FieldTrophyLevel})
		for k := range got {
			if !KnownField(k) {
				t.Errorf("unexpected field %q in filtered result", k)
			}
		}
	})
}
