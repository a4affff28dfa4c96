package domain

// Canonical profile field names. This is the single allow-list consumed by
// query filtering, the category shortcuts, and the batch endpoint; routes must
// never carry their own copy.
const (
	FieldOnlineID             = "online_id"
	FieldAccountID            = "account_id"
	FieldAboutMe              = "about_me"
	FieldAvatars              = "avatars"
	FieldLanguages            = "languages"
	FieldIsPlus               = "is_plus"
	FieldIsOfficiallyVerified = "is_officially_verified"
	FieldOnlineStatus         = "online_status"
	FieldPlatform             = "platform"
	FieldLastOnline           = "last_online"
	FieldAvailability         = "availability"
	FieldFriendsCount         = "friends_count"
	FieldMutualFriendsCount   = "mutual_friends_count"
	FieldFriendRelation       = "friend_relation"
	FieldIsBlocking           = "is_blocking"
	FieldTrophyLevel          = "trophy_level"
	FieldTrophyProgress       = "trophy_progress"
	FieldTrophyTier           = "trophy_tier"
	FieldEarnedTrophies       = "earned_trophies"
)

// Category subsets returned by the shortcut routes. online_id leads each so
// responses remain self-describing.
var (
	BasicFields    = []string{FieldOnlineID, FieldAboutMe, FieldAvatars}
	PresenceFields = []string{FieldOnlineID, FieldOnlineStatus, FieldPlatform, FieldLastOnline, FieldAvailability}
	FriendsFields  = []string{FieldOnlineID, FieldFriendsCount, FieldMutualFriendsCount, FieldFriendRelation}
	TrophyFields   = []string{FieldOnlineID, FieldTrophyLevel, FieldTrophyProgress, FieldTrophyTier, FieldEarnedTrophies}
)

var knownFields = map[string]struct{}{
	FieldOnlineID:             {},
	FieldAccountID:            {},
	FieldAboutMe:              {},
	FieldAvatars:              {},
	FieldLanguages:            {},
	FieldIsPlus:               {},
	FieldIsOfficiallyVerified: {},
	FieldOnlineStatus:         {},
	FieldPlatform:             {},
	FieldLastOnline:           {},
	FieldAvailability:         {},
	FieldFriendsCount:         {},
	FieldMutualFriendsCount:   {},
	FieldFriendRelation:       {},
	FieldIsBlocking:           {},
	FieldTrophyLevel:          {},
	FieldTrophyProgress:       {},
	FieldTrophyTier:           {},
	FieldEarnedTrophies:       {},
}

// KnownField reports whether name is part of the canonical allow-list.
func KnownField(name string) bool {
	_, ok := knownFields[name]
	return ok
}

// KnownFieldCount is exposed for documentation and tests.
func KnownFieldCount() int {
	return len(knownFields)
}

// FilterFields projects profile down to the requested fields. Unknown field
// spellings are dropped, as are known fields absent from the profile, so the
// result is always a subset of both the profile and the allow-list. A nil or
// empty request returns the profile untouched.
func FilterFields(profile map[string]any, requested []string) map[string]any {
	if len(requested) == 0 {
		return profile
	}
	out := make(map[string]any, len(requested))
	for _, f := range requested {
		if !KnownField(f) {
			continue
		}
		if v, ok := profile[f]; ok {
			out[f] = v
		}
	}
	return out
}
