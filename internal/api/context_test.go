package api

import (
	"context"
	"testing"
)

// TestWithUserID_RoundTrip verifies the user ID can be added and extracted.
func TestWithUserID_RoundTrip(t *testing.T) {
	ctx := WithUserID(context.Background(), "user-1")

	got, err := UserIDFromContext(ctx)
	if err != nil {
		t.Fatalf("UserIDFromContext returned error: %v", err)
	}
	if got != "user-1" {
		t.Errorf("UserIDFromContext = %q, want user-1", got)
	}
}

// TestUserIDFromContext_Missing verifies error when no user is present.
func TestUserIDFromContext_Missing(t *testing.T) {
	if _, err := UserIDFromContext(context.Background()); err != ErrNoUserInContext {
		t.Errorf("error = %v, want ErrNoUserInContext", err)
	}
	if _, err := UserIDFromContext(WithUserID(context.Background(), "")); err != ErrNoUserInContext {
		t.Errorf("empty id error = %v, want ErrNoUserInContext", err)
	}
}

// TestMustUserIDFromContext_Panics verifies panic when no user in context.
func TestMustUserIDFromContext_Panics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("MustUserIDFromContext did not panic")
		}
	}()

	MustUserIDFromContext(context.Background())
}
