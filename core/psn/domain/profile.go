package domain

import "context"

// FullProfile assembles the flattened profile mapping from all sub-resources.
// Keys whose value is an empty string, empty list, empty map, or nil are
// dropped; explicit zeros and falses are kept. Resolution failure is the only
// error; degraded sub-resources show up via Degraded, not here.
func (u *User) FullProfile(ctx context.Context) (map[string]any, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	accountID, err := u.resolveLocked(ctx)
	if err != nil {
		return nil, err
	}

	profile := u.profileLocked(ctx)
	presence := u.presenceLocked(ctx)
	friendship := u.friendshipLocked(ctx)
	trophies := u.trophySummaryLocked(ctx)

	full := map[string]any{
		FieldOnlineID:             u.OnlineID,
		FieldAccountID:            accountID,
		FieldAboutMe:              stringField(profile, "aboutMe"),
		FieldAvatars:              listField(profile, "avatars"),
		FieldLanguages:            listField(profile, "languages"),
		FieldIsPlus:               boolField(profile, "isPlus"),
		FieldIsOfficiallyVerified: boolField(profile, "isOfficiallyVerified"),

		FieldOnlineStatus: nestedStringField(presence, "primaryPlatformInfo", "onlineStatus"),
		FieldPlatform:     nestedStringField(presence, "primaryPlatformInfo", "platform"),
		FieldLastOnline:   nestedStringField(presence, "primaryPlatformInfo", "lastOnlineDate"),
		FieldAvailability: stringField(presence, "availability"),

		FieldFriendsCount:       intField(friendship, "friendsCount"),
		FieldMutualFriendsCount: intField(friendship, "mutualFriendsCount"),
		FieldFriendRelation:     stringField(friendship, "friendRelation"),
		FieldIsBlocking:         u.isBlockingLocked(ctx),

		FieldTrophyLevel:    trophies.Level,
		FieldTrophyProgress: trophies.Progress,
		FieldTrophyTier:     trophies.Tier,
		FieldEarnedTrophies: map[string]int{
			"platinum": trophies.Earned.Platinum,
			"gold":     trophies.Earned.Gold,
			"silver":   trophies.Earned.Silver,
			"bronze":   trophies.Earned.Bronze,
		},
	}

	return dropEmpty(full), nil
}

// dropEmpty strips keys holding "no data" values. Numbers and booleans always
// survive: trophy_level 0 and is_plus false are real answers, an empty
// about_me is not.
func dropEmpty(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if emptyValue(v) {
			continue
		}
		out[k] = v
	}
	return out
}

func emptyValue(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return x == ""
	case []any:
		return len(x) == 0
	case []string:
		return len(x) == 0
	case map[string]any:
		return len(x) == 0
	case map[string]int:
		return len(x) == 0
	}
	return false
}

// Defensive readers over upstream JSON documents. Upstream payloads are not
// under our control; a missing or mistyped key reads as the zero value.

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func boolField(m map[string]any, key string) bool {
	b, _ := m[key].(bool)
	return b
}

func intField(m map[string]any, key string) int {
	// encoding/json decodes numbers into float64 inside map[string]any
	switch n := m[key].(type) {
	case float64:
		return int(n)
	case int:
		return n
	}
	return 0
}

func listField(m map[string]any, key string) []any {
	l, _ := m[key].([]any)
	return l
}

func nestedStringField(m map[string]any, outer, inner string) string {
	nested, _ := m[outer].(map[string]any)
	return stringField(nested, inner)
}
