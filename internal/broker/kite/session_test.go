package kite_test

import (
	"context"
	"testing"

	"stock-lot-tracker/internal/broker/kite"
	"stock-lot-tracker/internal/testutil"
)

// TestSessionManager_Login tests the request-token exchange.
//
// WHY: Login must persist the access token so a restart does not force the
// user back through the broker's login page while the token is still good.
func TestSessionManager_Login(t *testing.T) {
	t.Run("stores the token and attaches it to the client", func(t *testing.T) {
		// Setup
		db := testutil.SetupTestDB(t)
		broker := testutil.NewFakeBroker()
		manager := testutil.NewTestSessionManager(t, db, broker)

		// Execute
		session, err := manager.Login(context.Background(), "req-123")

		// Assert
		if err != nil {
			t.Fatalf("Login() returned unexpected error: %v", err)
		}
		if session.AccessToken == "" {
			t.Fatal("Expected a non-empty access token")
		}
		if broker.AccessToken != session.AccessToken {
			t.Error("Expected the token to be attached to the broker client")
		}
		if !manager.Connected() {
			t.Error("Expected the manager to report connected after login")
		}
		if manager.UserName() != "Test User" {
			t.Errorf("Expected user name from the broker session, got %q", manager.UserName())
		}
	})
}

// TestSessionManager_Restore tests startup restoration from the encrypted
// credential slot.
//
// WHY: The access token lives encrypted in the database between runs. A
// fresh manager over the same slot must come up connected; an empty slot
// must come up disconnected without error.
func TestSessionManager_Restore(t *testing.T) {
	t.Run("restores a previously stored token", func(t *testing.T) {
		// Setup
		db := testutil.SetupTestDB(t)
		creds := testutil.NewTestCredentialRepository(t, db)
		broker := testutil.NewFakeBroker()

		first := kite.NewSessionManager(broker, creds)
		if _, err := first.Login(context.Background(), "req-123"); err != nil {
			t.Fatalf("Login() returned unexpected error: %v", err)
		}
		broker.AccessToken = ""

		// Execute: a new manager over the same credential slot
		second := kite.NewSessionManager(broker, creds)
		if err := second.Restore(context.Background()); err != nil {
			t.Fatalf("Restore() returned unexpected error: %v", err)
		}

		// Assert
		if !second.Connected() {
			t.Error("Expected restored manager to report connected")
		}
		if broker.AccessToken == "" {
			t.Error("Expected restored token to be attached to the broker client")
		}
		if !second.Valid(context.Background()) {
			t.Error("Expected restored token to pass the profile probe")
		}
	})

	t.Run("empty slot starts disconnected without error", func(t *testing.T) {
		// Setup
		db := testutil.SetupTestDB(t)
		broker := testutil.NewFakeBroker()
		manager := testutil.NewTestSessionManager(t, db, broker)

		// Execute
		if err := manager.Restore(context.Background()); err != nil {
			t.Fatalf("Restore() returned unexpected error: %v", err)
		}

		// Assert
		if manager.Connected() {
			t.Error("Expected manager to start disconnected with no stored token")
		}
	})
}
