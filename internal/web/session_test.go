package web

import (
	"testing"
	"time"

	"golang.org/x/oauth2"
)

func TestSessionLifecycle(t *testing.T) {
	store := NewSessionStore()

	token := &oauth2.Token{AccessToken: "access-1"}
	session, err := store.Create(token, "user-1", "User One")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	got := store.Get(session.ID)
	if got == nil || got.UserID != "user-1" || got.Token.AccessToken != "access-1" {
		t.Fatalf("Get = %+v", got)
	}

	store.Delete(session.ID)
	if store.Get(session.ID) != nil {
		t.Error("session survived Delete")
	}
}

// A refreshed token must replace the stored one, or every later request
// refreshes again against the expired original.
func TestUpdateToken(t *testing.T) {
	store := NewSessionStore()

	stale := &oauth2.Token{AccessToken: "stale", Expiry: time.Now().Add(-time.Hour)}
	session, err := store.Create(stale, "user-1", "User One")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	fresh := &oauth2.Token{AccessToken: "fresh", Expiry: time.Now().Add(time.Hour)}
	store.UpdateToken(session.ID, fresh)

	got := store.Get(session.ID)
	if got == nil {
		t.Fatal("session missing after UpdateToken")
	}
	if got.Token.AccessToken != "fresh" {
		t.Errorf("token = %q, want refreshed token", got.Token.AccessToken)
	}
}

func TestUpdateTokenUnknownSession(t *testing.T) {
	store := NewSessionStore()
	// Must not panic or create a session.
	store.UpdateToken("missing", &oauth2.Token{AccessToken: "x"})
	if store.Get("missing") != nil {
		t.Error("UpdateToken created a session")
	}
}
