// Package auth signs administrators in and out. Passwords are stored as
// bcrypt hashes. A successful sign-in issues a random token whose SHA-256 is
// kept in the sessions table; the token itself lives in a single named slot
// owned by the caller (a cookie for the web app, memory for the CLI).
package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/eringen/dossier/store"
)

const (
	// SessionTTL is the fixed lifetime of a session from sign-in.
	SessionTTL = 24 * time.Hour
	// SlotName names the one place a session token is kept.
	SlotName = "dossier_session"

	minPasswordLen = 8
)

var (
	// ErrInvalidCredentials is returned for an unknown user and for a wrong
	// password alike. Its message is shown to the user as is.
	ErrInvalidCredentials = errors.New("Invalid credentials")
	ErrUserExists         = errors.New("user already exists")
	ErrWeakPassword       = fmt.Errorf("password must be at least %d characters", minPasswordLen)
)

// User is an account as exposed to callers; it never carries the hash.
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// Session is the result of a successful sign-in.
type Session struct {
	User      User      `json:"user"`
	ExpiresAt time.Time `json:"expires"`
}

// NewUser describes an account to create.
type NewUser struct {
	Username string
	Email    string
	Role     string
	Password string
}

// Slot holds at most one session token.
type Slot interface {
	// Load returns the stored token, or "" when the slot is empty.
	Load() (string, error)
	Store(token string, expires time.Time) error
	Clear() error
}

// Service implements sign-in against the users and sessions tables.
type Service struct {
	db  store.Backend
	now func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService returns a Service backed by db.
func NewService(db store.Backend, opts ...Option) *Service {
	s := &Service{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var (
	dummyOnce sync.Once
	dummyHash []byte
)

// dummyCompare spends the same time a real comparison would, so unknown
// usernames are not distinguishable by timing.
func dummyCompare(password string) {
	dummyOnce.Do(func() {
		dummyHash, _ = bcrypt.GenerateFromPassword([]byte("dossier-placeholder"), bcrypt.DefaultCost)
	})
	_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
}

type userRow struct {
	User
	PasswordHash string `json:"password_hash"`
}

type sessionRow struct {
	TokenHash string    `json:"token_hash"`
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

func decode(row store.Row, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Squash:           true,
		Result:           out,
		DecodeHook:       mapstructure.StringToTimeHookFunc(store.TimeLayout),
	})
	if err != nil {
		return err
	}
	return dec.Decode(map[string]any(row))
}

func (s *Service) findUser(ctx context.Context, column, value string) (*userRow, error) {
	rows, err := s.db.Select(ctx, store.From("users").Eq(column, value).Range(0, 1))
	if err != nil {
		return nil, fmt.Errorf("looking up user: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	var u userRow
	if err := decode(rows[0], &u); err != nil {
		return nil, fmt.Errorf("decoding user: %w", err)
	}
	return &u, nil
}

// SignIn checks the credentials and, on success, stores a fresh session
// token in slot.
func (s *Service) SignIn(ctx context.Context, slot Slot, username, password string) (*Session, error) {
	u, err := s.findUser(ctx, "username", strings.TrimSpace(username))
	if err != nil {
		return nil, err
	}
	if u == nil {
		dummyCompare(password)
		return nil, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := newToken()
	if err != nil {
		return nil, err
	}
	now := s.now()
	expires := now.Add(SessionTTL)
	if _, err := s.db.Insert(ctx, "sessions", store.Row{
		"token_hash": hashToken(token),
		"user_id":    u.ID,
		"expires_at": expires,
		"created_at": now,
	}); err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}
	if err := slot.Store(token, expires); err != nil {
		return nil, fmt.Errorf("storing session: %w", err)
	}
	return &Session{User: u.User, ExpiresAt: expires}, nil
}

// CurrentUser returns the signed-in user, or nil when the slot is empty or
// its session is unknown or expired. An expired session is deleted and the
// slot cleared.
func (s *Service) CurrentUser(ctx context.Context, slot Slot) (*User, error) {
	token, err := slot.Load()
	if err != nil || token == "" {
		return nil, err
	}
	hash := hashToken(token)
	rows, err := s.db.Select(ctx, store.From("sessions").Eq("token_hash", hash))
	if err != nil {
		return nil, fmt.Errorf("looking up session: %w", err)
	}
	if len(rows) == 0 {
		return nil, slot.Clear()
	}
	var sess sessionRow
	if err := decode(rows[0], &sess); err != nil {
		return nil, fmt.Errorf("decoding session: %w", err)
	}
	if !s.now().Before(sess.ExpiresAt) {
		if _, err := s.db.Delete(ctx, "sessions", store.Eq("token_hash", hash)); err != nil {
			return nil, fmt.Errorf("deleting expired session: %w", err)
		}
		return nil, slot.Clear()
	}
	u, err := s.findUser(ctx, "id", sess.UserID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, slot.Clear()
	}
	return &u.User, nil
}

// SignOut clears the slot and forgets its session.
func (s *Service) SignOut(ctx context.Context, slot Slot) error {
	token, _ := slot.Load()
	if err := slot.Clear(); err != nil {
		return err
	}
	if token == "" {
		return nil
	}
	if _, err := s.db.Delete(ctx, "sessions", store.Eq("token_hash", hashToken(token))); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// CreateUser adds an account with a bcrypt-hashed password.
func (s *Service) CreateUser(ctx context.Context, nu NewUser) (User, error) {
	username := strings.TrimSpace(nu.Username)
	if username == "" {
		return User{}, errors.New("username is required")
	}
	if len(nu.Password) < minPasswordLen {
		return User{}, ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(nu.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, fmt.Errorf("hashing password: %w", err)
	}
	role := nu.Role
	if role == "" {
		role = "admin"
	}
	rows, err := s.db.Insert(ctx, "users", store.Row{
		"id":            uuid.NewString(),
		"username":      username,
		"email":         strings.TrimSpace(nu.Email),
		"role":          role,
		"password_hash": string(hash),
		"created_at":    s.now(),
	})
	if err != nil {
		if store.HasCode(err, store.CodeUniqueViolation) {
			return User{}, ErrUserExists
		}
		return User{}, fmt.Errorf("creating user: %w", err)
	}
	row, err := store.Single(rows)
	if err != nil {
		return User{}, err
	}
	var u userRow
	if err := decode(row, &u); err != nil {
		return User{}, fmt.Errorf("decoding user: %w", err)
	}
	return u.User, nil
}

// PurgeExpired deletes sessions that expired before now and reports how
// many were removed.
func (s *Service) PurgeExpired(ctx context.Context) (int, error) {
	rows, err := s.db.Delete(ctx, "sessions", store.Filter{Column: "expires_at", Op: store.OpLte, Value: s.now()})
	if err != nil {
		return 0, fmt.Errorf("purging sessions: %w", err)
	}
	return len(rows), nil
}

func newToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// MemorySlot is a Slot held in process memory.
type MemorySlot struct {
	mu      sync.Mutex
	token   string
	expires time.Time
}

func (m *MemorySlot) Load() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, nil
}

func (m *MemorySlot) Store(token string, expires time.Time) error {
	m.mu.Lock()
	m.token, m.expires = token, expires
	m.mu.Unlock()
	return nil
}

// Expires returns the expiry recorded with the token.
func (m *MemorySlot) Expires() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.expires
}

func (m *MemorySlot) Clear() error {
	m.mu.Lock()
	m.token, m.expires = "", time.Time{}
	m.mu.Unlock()
	return nil
}
