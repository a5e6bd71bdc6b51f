package authkit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return mr, rdb
}

func testConfig() Config {
	cfg := defaultConfig()
	cfg.JWT.Secret = []byte("test-secret")
	cfg.JWT.Leeway = 0
	cfg.Hash.Memory = 8 * 1024
	cfg.Hash.Time = 1
	cfg.Hash.Parallelism = 1
	cfg.Hash.SaltLength = 16
	cfg.Hash.KeyLength = 16
	return cfg
}

type mockCredentialStore struct {
	mu      sync.Mutex
	users   map[string]Credential
	byEmail map[string]string
	failAll bool
}

func newMockCredentialStore() *mockCredentialStore {
	return &mockCredentialStore{
		users:   map[string]Credential{},
		byEmail: map[string]string{},
	}
}

func (s *mockCredentialStore) put(cred Credential) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[cred.ID] = cred
	s.byEmail[cred.Email] = cred.ID
}

func (s *mockCredentialStore) get(id string) Credential {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users[id]
}

func (s *mockCredentialStore) FindByEmail(_ context.Context, email string) (Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAll {
		return Credential{}, errors.New("store down")
	}
	id, ok := s.byEmail[email]
	if !ok {
		return Credential{}, ErrUserNotFound
	}
	return s.users[id], nil
}

func (s *mockCredentialStore) FindByID(_ context.Context, id string) (Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAll {
		return Credential{}, errors.New("store down")
	}
	cred, ok := s.users[id]
	if !ok {
		return Credential{}, ErrUserNotFound
	}
	return cred, nil
}

func (s *mockCredentialStore) SetPINHash(_ context.Context, userID, hash string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAll {
		return false, errors.New("store down")
	}
	cred, ok := s.users[userID]
	if !ok {
		return false, ErrUserNotFound
	}
	existed := cred.PINSet
	cred.PINHash = hash
	cred.PINSet = true
	cred.PINAttempts = 0
	cred.PINLockedUntil = nil
	cred.UpdatedAt = time.Now().UTC()
	s.users[userID] = cred
	return existed, nil
}

func (s *mockCredentialStore) IncrementPINAttempts(_ context.Context, userID string) (uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cred, ok := s.users[userID]
	if !ok {
		return 0, ErrUserNotFound
	}
	cred.PINAttempts++
	cred.UpdatedAt = time.Now().UTC()
	s.users[userID] = cred
	return cred.PINAttempts, nil
}

func (s *mockCredentialStore) LockPIN(_ context.Context, userID string, until time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cred, ok := s.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	cred.PINLockedUntil = &until
	cred.UpdatedAt = time.Now().UTC()
	s.users[userID] = cred
	return nil
}

func (s *mockCredentialStore) ResetPINAttempts(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cred, ok := s.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	cred.PINAttempts = 0
	cred.PINLockedUntil = nil
	cred.UpdatedAt = time.Now().UTC()
	s.users[userID] = cred
	return nil
}

func (s *mockCredentialStore) UpdateProfile(_ context.Context, userID string, patch ProfilePatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cred, ok := s.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	if patch.Name != nil {
		cred.Name = *patch.Name
	}
	if patch.IsActive != nil {
		cred.IsActive = *patch.IsActive
	}
	if patch.Role != nil {
		cred.Role = *patch.Role
	}
	if patch.LastActive != nil {
		cred.LastActive = patch.LastActive
	}
	cred.UpdatedAt = time.Now().UTC()
	s.users[userID] = cred
	return nil
}

type mockQuestionStore struct {
	mu          sync.Mutex
	byUser      map[string][]SecurityQuestionRecord
	failReplace bool
}

func newMockQuestionStore() *mockQuestionStore {
	return &mockQuestionStore{byUser: map[string][]SecurityQuestionRecord{}}
}

func (s *mockQuestionStore) ReplaceForUser(_ context.Context, userID string, records []SecurityQuestionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failReplace {
		return errors.New("store down")
	}
	s.byUser[userID] = append([]SecurityQuestionRecord(nil), records...)
	return nil
}

func (s *mockQuestionStore) ListByUser(_ context.Context, userID string) ([]SecurityQuestionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]SecurityQuestionRecord(nil), s.byUser[userID]...), nil
}

type mockActivityStore struct {
	mu      sync.Mutex
	entries []ActivityLogEntry
	fail    bool
}

func newMockActivityStore() *mockActivityStore {
	return &mockActivityStore{}
}

func (s *mockActivityStore) Insert(_ context.Context, entry ActivityLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("store down")
	}
	s.entries = append(s.entries, entry)
	return nil
}

func (s *mockActivityStore) ListByUser(_ context.Context, userID string, limit, offset int) ([]ActivityLogEntry, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var forUser []ActivityLogEntry
	for i := len(s.entries) - 1; i >= 0; i-- {
		if s.entries[i].UserID == userID {
			forUser = append(forUser, s.entries[i])
		}
	}
	total := len(forUser)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return forUser[offset:end], total, nil
}

func (s *mockActivityStore) entriesFor(userID string) []ActivityLogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []ActivityLogEntry
	for _, e := range s.entries {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out
}

type mockIdentityProvider struct {
	mu        sync.Mutex
	passwords map[string]string
	signInErr error
}

func newMockIdentityProvider() *mockIdentityProvider {
	return &mockIdentityProvider{passwords: map[string]string{}}
}

func (p *mockIdentityProvider) SignIn(_ context.Context, email, password string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.signInErr != nil {
		return p.signInErr
	}
	stored, ok := p.passwords[email]
	if !ok {
		return errors.New("unknown account")
	}
	if stored != password {
		return errors.New("wrong password")
	}
	return nil
}

type testEnv struct {
	engine   *Engine
	creds    *mockCredentialStore
	question *mockQuestionStore
	activity *mockActivityStore
	identity *mockIdentityProvider
}

func newTestEngine(t *testing.T, mutate func(*Config)) *testEnv {
	t.Helper()

	cfg := testConfig()
	if mutate != nil {
		mutate(&cfg)
	}

	env := &testEnv{
		creds:    newMockCredentialStore(),
		question: newMockQuestionStore(),
		activity: newMockActivityStore(),
		identity: newMockIdentityProvider(),
	}

	engine, err := New().
		WithConfig(cfg).
		WithCredentialStore(env.creds).
		WithSecurityQuestionStore(env.question).
		WithActivityLogStore(env.activity).
		WithIdentityProvider(env.identity).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	env.engine = engine
	t.Cleanup(engine.Close)
	return env
}

func (env *testEnv) seedUser(id, email string, active bool) Credential {
	cred := Credential{
		ID:        id,
		Email:     email,
		Name:      "Test User",
		IsActive:  active,
		Role:      RoleUser,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	env.creds.put(cred)
	return cred
}

// waitForAction polls the activity store until an entry with the given action
// shows up for the user. Audit writes are asynchronous.
func waitForAction(t *testing.T, store *mockActivityStore, userID string, action Action) ActivityLogEntry {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		for _, e := range store.entriesFor(userID) {
			if e.Action == action {
				return e
			}
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("no %s entry recorded for user %s", action, userID)
	return ActivityLogEntry{}
}

func countAction(store *mockActivityStore, userID string, action Action) int {
	n := 0
	for _, e := range store.entriesFor(userID) {
		if e.Action == action {
			n++
		}
	}
	return n
}
