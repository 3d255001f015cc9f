package auth

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/eringen/dossier/store"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func newTestAuth(t *testing.T) (*Service, *fakeClock, store.Backend) {
	t.Helper()
	db, err := store.OpenSQLite(filepath.Join(t.TempDir(), "auth.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	clock := &fakeClock{t: time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)}
	s := NewService(db, WithClock(clock.now))
	if _, err := s.CreateUser(context.Background(), NewUser{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "correct horse battery",
	}); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	return s, clock, db
}

func TestSignInInvalidCredentialsAreIndistinguishable(t *testing.T) {
	s, _, _ := newTestAuth(t)
	ctx := context.Background()

	_, errWrong := s.SignIn(ctx, &MemorySlot{}, "alice", "wrong-password")
	_, errUnknown := s.SignIn(ctx, &MemorySlot{}, "nonexistent-user", "any")

	if !errors.Is(errWrong, ErrInvalidCredentials) || !errors.Is(errUnknown, ErrInvalidCredentials) {
		t.Fatalf("errors = %v / %v, want ErrInvalidCredentials", errWrong, errUnknown)
	}
	if errWrong.Error() != errUnknown.Error() {
		t.Errorf("messages differ: %q vs %q", errWrong.Error(), errUnknown.Error())
	}
	if errWrong.Error() != "Invalid credentials" {
		t.Errorf("message = %q", errWrong.Error())
	}
}

func TestSignInAndCurrentUser(t *testing.T) {
	s, clock, db := newTestAuth(t)
	ctx := context.Background()
	slot := &MemorySlot{}

	sess, err := s.SignIn(ctx, slot, "alice", "correct horse battery")
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if sess.User.Username != "alice" || sess.User.Role != "admin" {
		t.Errorf("session user = %+v", sess.User)
	}
	if want := clock.t.Add(24 * time.Hour); !sess.ExpiresAt.Equal(want) || !slot.Expires().Equal(want) {
		t.Errorf("expiry = %v, want %v", sess.ExpiresAt, want)
	}

	token, _ := slot.Load()
	if token == "" {
		t.Fatal("slot is empty after sign-in")
	}
	rows, err := db.Select(ctx, store.From("sessions"))
	if err != nil {
		t.Fatalf("select sessions: %v", err)
	}
	if len(rows) != 1 || rows[0]["token_hash"] == token {
		t.Errorf("sessions must store only the token hash: %v", rows)
	}

	u, err := s.CurrentUser(ctx, slot)
	if err != nil {
		t.Fatalf("CurrentUser: %v", err)
	}
	if u == nil || u.Username != "alice" || u.Email != "alice@example.com" {
		t.Fatalf("CurrentUser = %+v", u)
	}

	clock.t = clock.t.Add(23 * time.Hour)
	if u, _ := s.CurrentUser(ctx, slot); u == nil {
		t.Error("session should still be valid after 23h")
	}
}

func TestCurrentUserExpired(t *testing.T) {
	s, clock, db := newTestAuth(t)
	ctx := context.Background()
	slot := &MemorySlot{}
	if _, err := s.SignIn(ctx, slot, "alice", "correct horse battery"); err != nil {
		t.Fatalf("SignIn: %v", err)
	}

	clock.t = clock.t.Add(SessionTTL)
	u, err := s.CurrentUser(ctx, slot)
	if err != nil {
		t.Fatalf("CurrentUser: %v", err)
	}
	if u != nil {
		t.Errorf("expired session returned %+v", u)
	}
	if tok, _ := slot.Load(); tok != "" {
		t.Error("slot not cleared on expiry")
	}
	rows, _ := db.Select(ctx, store.From("sessions"))
	if len(rows) != 0 {
		t.Errorf("expired session row kept: %v", rows)
	}
}

func TestCurrentUserEmptyAndForgedSlot(t *testing.T) {
	s, _, _ := newTestAuth(t)
	ctx := context.Background()
	if u, err := s.CurrentUser(ctx, &MemorySlot{}); u != nil || err != nil {
		t.Errorf("empty slot = %+v, %v", u, err)
	}
	forged := &MemorySlot{}
	forged.Store("made-up-token", time.Now().Add(time.Hour))
	if u, err := s.CurrentUser(ctx, forged); u != nil || err != nil {
		t.Errorf("forged token = %+v, %v", u, err)
	}
	if tok, _ := forged.Load(); tok != "" {
		t.Error("forged token not cleared")
	}
}

func TestSignOut(t *testing.T) {
	s, _, db := newTestAuth(t)
	ctx := context.Background()
	slot := &MemorySlot{}
	if _, err := s.SignIn(ctx, slot, "alice", "correct horse battery"); err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if err := s.SignOut(ctx, slot); err != nil {
		t.Fatalf("SignOut: %v", err)
	}
	if u, _ := s.CurrentUser(ctx, slot); u != nil {
		t.Error("still signed in after SignOut")
	}
	rows, _ := db.Select(ctx, store.From("sessions"))
	if len(rows) != 0 {
		t.Errorf("session row kept: %v", rows)
	}
	// Signing out twice is fine.
	if err := s.SignOut(ctx, slot); err != nil {
		t.Errorf("second SignOut: %v", err)
	}
}

func TestCreateUser(t *testing.T) {
	s, _, _ := newTestAuth(t)
	ctx := context.Background()
	if _, err := s.CreateUser(ctx, NewUser{Username: "alice", Password: "another password"}); !errors.Is(err, ErrUserExists) {
		t.Errorf("duplicate: %v", err)
	}
	if _, err := s.CreateUser(ctx, NewUser{Username: "bob", Password: "short"}); !errors.Is(err, ErrWeakPassword) {
		t.Errorf("weak password: %v", err)
	}
	if _, err := s.CreateUser(ctx, NewUser{Username: " ", Password: "long enough"}); err == nil {
		t.Error("blank username accepted")
	}
	u, err := s.CreateUser(ctx, NewUser{Username: "bob", Password: "long enough", Role: "editor"})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if u.ID == "" || u.Role != "editor" || u.CreatedAt.IsZero() {
		t.Errorf("user = %+v", u)
	}
}

func TestPurgeExpired(t *testing.T) {
	s, clock, _ := newTestAuth(t)
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if _, err := s.SignIn(ctx, &MemorySlot{}, "alice", "correct horse battery"); err != nil {
			t.Fatalf("SignIn: %v", err)
		}
	}
	if n, err := s.PurgeExpired(ctx); err != nil || n != 0 {
		t.Errorf("fresh sessions purged: %d, %v", n, err)
	}
	clock.t = clock.t.Add(25 * time.Hour)
	if n, err := s.PurgeExpired(ctx); err != nil || n != 2 {
		t.Errorf("PurgeExpired = %d, %v, want 2", n, err)
	}
}
