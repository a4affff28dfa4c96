package domain

import (
	"context"
	"fmt"
	"testing"
)

func TestUserCacheReturnsSameAccessor(t *testing.T) {
	app, err := NewApp(newStubClient(), 10)
	if err != nil {
		t.Fatalf("NewApp: %v", err)
	}
	if app.User("ape") != app.User("ape") {
		t.Error("same online ID should share one accessor")
	}
	if app.User("ape") == app.User("other") {
		t.Error("distinct online IDs must not share accessors")
	}
}

func TestUserCacheEvictsLeastRecentlyUsed(t *testing.T) {
	app, err := NewApp(newStubClient(), 3)
	if err != nil {
		t.Fatalf("NewApp: %v", err)
	}

	a := app.User("a")
	b := app.User("b")
	c := app.User("c")

	// touch "a" so "b" becomes the least recently used entry
	if app.User("a") != a {
		t.Fatal("touching a cached entry must not replace it")
	}

	app.User("d") // capacity 3: evicts "b"

	if got := app.CachedUsers(); got != 3 {
		t.Errorf("CachedUsers = %d, want 3", got)
	}
	if app.User("a") != a || app.User("c") != c {
		t.Error("recently used entries must survive the insert")
	}
	if app.User("b") == b {
		t.Error("least recently used entry should have been evicted")
	}
}

func TestUserCacheNeverExceedsCapacity(t *testing.T) {
	app, err := NewApp(newStubClient(), DefaultCacheSize)
	if err != nil {
		t.Fatalf("NewApp: %v", err)
	}
	first := app.User("user-0")
	for i := range DefaultCacheSize + 1 {
		app.User(fmt.Sprintf("user-%d", i))
	}
	if got := app.CachedUsers(); got != DefaultCacheSize {
		t.Errorf("CachedUsers = %d, want %d", got, DefaultCacheSize)
	}
	// inserting the 101st distinct ID evicted user-0, so a fresh accessor
	// comes back for it
	if app.User("user-0") == first {
		t.Error("user-0 should have been evicted and rebuilt")
	}
}

func TestNewAppRejectsNilClient(t *testing.T) {
	if _, err := NewApp(nil, 10); err == nil {
		t.Fatal("NewApp(nil) should fail")
	}
}

func TestApplicationFullProfileSurfacesDegraded(t *testing.T) {
	stub := newStubClient()
	stub.friendshipErr = context.DeadlineExceeded
	app, err := NewApp(stub, 10)
	if err != nil {
		t.Fatalf("NewApp: %v", err)
	}

	profile, degraded, err := app.FullProfile(context.Background(), "ape")
	if err != nil {
		t.Fatalf("FullProfile: %v", err)
	}
	if profile[FieldOnlineID] != "ape" {
		t.Errorf("online_id = %v", profile[FieldOnlineID])
	}
	if len(degraded) != 1 || degraded[0] != "friendship" {
		t.Errorf("degraded = %v, want [friendship]", degraded)
	}
}
