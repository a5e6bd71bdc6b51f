package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	authkit "github.com/allyelvis/authkit"
)

type fakeStore struct {
	mu        sync.Mutex
	users     map[string]authkit.Credential
	byEmail   map[string]string
	questions map[string][]authkit.SecurityQuestionRecord
	activity  []authkit.ActivityLogEntry
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:     map[string]authkit.Credential{},
		byEmail:   map[string]string{},
		questions: map[string][]authkit.SecurityQuestionRecord{},
	}
}

func (s *fakeStore) put(cred authkit.Credential) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[cred.ID] = cred
	s.byEmail[cred.Email] = cred.ID
}

func (s *fakeStore) FindByEmail(_ context.Context, email string) (authkit.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byEmail[email]
	if !ok {
		return authkit.Credential{}, authkit.ErrUserNotFound
	}
	return s.users[id], nil
}

func (s *fakeStore) FindByID(_ context.Context, id string) (authkit.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cred, ok := s.users[id]
	if !ok {
		return authkit.Credential{}, authkit.ErrUserNotFound
	}
	return cred, nil
}

func (s *fakeStore) SetPINHash(_ context.Context, userID, hash string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cred, ok := s.users[userID]
	if !ok {
		return false, authkit.ErrUserNotFound
	}
	existed := cred.PINSet
	cred.PINHash = hash
	cred.PINSet = true
	cred.PINAttempts = 0
	cred.PINLockedUntil = nil
	s.users[userID] = cred
	return existed, nil
}

func (s *fakeStore) IncrementPINAttempts(_ context.Context, userID string) (uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cred, ok := s.users[userID]
	if !ok {
		return 0, authkit.ErrUserNotFound
	}
	cred.PINAttempts++
	s.users[userID] = cred
	return cred.PINAttempts, nil
}

func (s *fakeStore) LockPIN(_ context.Context, userID string, until time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cred, ok := s.users[userID]
	if !ok {
		return authkit.ErrUserNotFound
	}
	cred.PINLockedUntil = &until
	s.users[userID] = cred
	return nil
}

func (s *fakeStore) ResetPINAttempts(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cred, ok := s.users[userID]
	if !ok {
		return authkit.ErrUserNotFound
	}
	cred.PINAttempts = 0
	cred.PINLockedUntil = nil
	s.users[userID] = cred
	return nil
}

func (s *fakeStore) UpdateProfile(_ context.Context, userID string, patch authkit.ProfilePatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cred, ok := s.users[userID]
	if !ok {
		return authkit.ErrUserNotFound
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
	s.users[userID] = cred
	return nil
}

func (s *fakeStore) ReplaceForUser(_ context.Context, userID string, records []authkit.SecurityQuestionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.questions[userID] = append([]authkit.SecurityQuestionRecord(nil), records...)
	return nil
}

func (s *fakeStore) ListByUser(_ context.Context, userID string) ([]authkit.SecurityQuestionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]authkit.SecurityQuestionRecord(nil), s.questions[userID]...), nil
}

func (s *fakeStore) Insert(_ context.Context, entry authkit.ActivityLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activity = append(s.activity, entry)
	return nil
}

func (s *fakeStore) questionCount(userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.questions[userID])
}

type fakeActivityStore struct {
	*fakeStore
}

func (s fakeActivityStore) ListByUser(_ context.Context, userID string, limit, offset int) ([]authkit.ActivityLogEntry, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var forUser []authkit.ActivityLogEntry
	for i := len(s.activity) - 1; i >= 0; i-- {
		if s.activity[i].UserID == userID {
			forUser = append(forUser, s.activity[i])
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

type fakeIdentity struct {
	mu        sync.Mutex
	passwords map[string]string
}

func (p *fakeIdentity) SignIn(_ context.Context, email, password string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.passwords[email] != password || password == "" {
		return errors.New("credentials rejected")
	}
	return nil
}

type apiFixture struct {
	server *httptest.Server
	client *http.Client
	store  *fakeStore
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	store := newFakeStore()
	store.put(authkit.Credential{
		ID:       "u1",
		Email:    "alice@example.com",
		Name:     "Alice",
		IsActive: true,
		Role:     authkit.RoleUser,
	})

	identity := &fakeIdentity{passwords: map[string]string{"alice@example.com": "hunter2"}}

	cfg := authkit.DefaultConfig()
	cfg.JWT.Secret = []byte("test-secret")
	cfg.Hash.Memory = 8 * 1024
	cfg.Hash.Time = 1
	cfg.Hash.KeyLength = 16

	engine, err := authkit.New().
		WithConfig(cfg).
		WithCredentialStore(store).
		WithSecurityQuestionStore(store).
		WithActivityLogStore(fakeActivityStore{store}).
		WithIdentityProvider(identity).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	handler := New(engine, NewCookieManager(CookieConfig{}))
	server := httptest.NewServer(handler.Routes())
	t.Cleanup(server.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookiejar failed: %v", err)
	}

	return &apiFixture{
		server: server,
		client: &http.Client{Jar: jar},
		store:  store,
	}
}

func (f *apiFixture) post(t *testing.T, path string, body any) *http.Response {
	t.Helper()

	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	resp, err := f.client.Post(f.server.URL+path, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST %s failed: %v", path, err)
	}
	return resp
}

func (f *apiFixture) get(t *testing.T, path string) *http.Response {
	t.Helper()

	resp, err := f.client.Get(f.server.URL + path)
	if err != nil {
		t.Fatalf("GET %s failed: %v", path, err)
	}
	return resp
}

func (f *apiFixture) login(t *testing.T) {
	t.Helper()

	resp := f.post(t, "/api/auth/login", map[string]string{
		"email":    "alice@example.com",
		"password": "hunter2",
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login returned %d", resp.StatusCode)
	}
}

func (f *apiFixture) sessionCookie(t *testing.T) *http.Cookie {
	t.Helper()

	u, _ := url.Parse(f.server.URL)
	for _, c := range f.client.Jar.Cookies(u) {
		if c.Name == "auth_token" {
			return c
		}
	}
	return nil
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()

	defer resp.Body.Close()
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body failed: %v", err)
	}
	return body
}

func TestLoginEndpointSetsCookie(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.post(t, "/api/auth/login", map[string]string{
		"email":    "alice@example.com",
		"password": "hunter2",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	body := decodeBody(t, resp)
	if body["success"] != true {
		t.Fatalf("unexpected body: %v", body)
	}
	user, _ := body["user"].(map[string]any)
	if user["id"] != "u1" || user["email"] != "alice@example.com" {
		t.Fatalf("unexpected user payload: %v", user)
	}

	cookie := f.sessionCookie(t)
	if cookie == nil || cookie.Value == "" {
		t.Fatal("expected auth_token cookie after login")
	}
}

func TestLoginEndpointFailure(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.post(t, "/api/auth/login", map[string]string{
		"email":    "alice@example.com",
		"password": "nope",
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}

	body := decodeBody(t, resp)
	if body["error"] != "Invalid email or password" {
		t.Fatalf("unexpected error body: %v", body)
	}
	if f.sessionCookie(t) != nil {
		t.Fatal("failed login must not set a session cookie")
	}
}

func TestGuardedEndpointsRequireSession(t *testing.T) {
	f := newAPIFixture(t)

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/api/auth/security-questions"},
		{http.MethodPost, "/api/auth/pin/setup"},
		{http.MethodGet, "/api/auth/session"},
		{http.MethodGet, "/api/auth/activity"},
	}

	for _, p := range paths {
		req, _ := http.NewRequest(p.method, f.server.URL+p.path, strings.NewReader("{}"))
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("%s %s failed: %v", p.method, p.path, err)
		}
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("%s %s status = %d, want 401", p.method, p.path, resp.StatusCode)
		}
		body := decodeBody(t, resp)
		if body["error"] != "Not authenticated" {
			t.Fatalf("%s %s unexpected body: %v", p.method, p.path, body)
		}
	}
}

func TestSecurityQuestionsEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	f.login(t)

	resp := f.post(t, "/api/auth/security-questions", map[string]any{
		"questions": []map[string]string{
			{"question": "First pet's name?", "answer": "Rex"},
			{"question": "City of birth?", "answer": "Lisbon"},
			{"question": "Favorite teacher?", "answer": "Ms. Moreau"},
		},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	if body["success"] != true {
		t.Fatalf("unexpected body: %v", body)
	}
	if got := f.store.questionCount("u1"); got != 3 {
		t.Fatalf("stored %d questions, want 3", got)
	}
}

func TestSecurityQuestionsEndpointTooFew(t *testing.T) {
	f := newAPIFixture(t)
	f.login(t)

	resp := f.post(t, "/api/auth/security-questions", map[string]any{
		"questions": []map[string]string{
			{"question": "First pet's name?", "answer": "Rex"},
			{"question": "City of birth?", "answer": "Lisbon"},
		},
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	if body["error"] != "At least 3 security questions are required" {
		t.Fatalf("unexpected body: %v", body)
	}
	if got := f.store.questionCount("u1"); got != 0 {
		t.Fatalf("rejected setup stored %d questions, want 0", got)
	}
}

func TestPINSetupAndLoginEndpoints(t *testing.T) {
	f := newAPIFixture(t)
	f.login(t)

	resp := f.post(t, "/api/auth/pin/setup", map[string]string{"pin": "12345"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad pin status = %d, want 400", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	if body["error"] != "PIN must be 6 digits" {
		t.Fatalf("unexpected body: %v", body)
	}

	resp = f.post(t, "/api/auth/pin/setup", map[string]string{"pin": "123456"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("pin setup status = %d, want 200", resp.StatusCode)
	}
	resp.Body.Close()

	// Fresh client, no cookies: the PIN alone authenticates.
	freshResp, err := http.Post(f.server.URL+"/api/auth/pin/login", "application/json",
		strings.NewReader(`{"email":"alice@example.com","pin":"123456"}`))
	if err != nil {
		t.Fatalf("pin login failed: %v", err)
	}
	if freshResp.StatusCode != http.StatusOK {
		t.Fatalf("pin login status = %d, want 200", freshResp.StatusCode)
	}
	freshResp.Body.Close()

	wrongResp, err := http.Post(f.server.URL+"/api/auth/pin/login", "application/json",
		strings.NewReader(`{"email":"alice@example.com","pin":"000000"}`))
	if err != nil {
		t.Fatalf("pin login failed: %v", err)
	}
	if wrongResp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("wrong pin status = %d, want 401", wrongResp.StatusCode)
	}
	body = decodeBody(t, wrongResp)
	if body["error"] != "Invalid PIN" {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestSessionEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	f.login(t)

	resp := f.get(t, "/api/auth/session")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	user, _ := body["user"].(map[string]any)
	if user["id"] != "u1" || user["name"] != "Alice" {
		t.Fatalf("unexpected user payload: %v", user)
	}
}

func TestSessionEndpointBearerFallback(t *testing.T) {
	f := newAPIFixture(t)
	f.login(t)
	cookie := f.sessionCookie(t)
	if cookie == nil {
		t.Fatal("expected a session cookie")
	}

	req, _ := http.NewRequest(http.MethodGet, f.server.URL+"/api/auth/session", nil)
	req.Header.Set("Authorization", "Bearer "+cookie.Value)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestLogoutEndpointClearsCookie(t *testing.T) {
	f := newAPIFixture(t)
	f.login(t)

	if f.sessionCookie(t) == nil {
		t.Fatal("expected a session cookie before logout")
	}

	resp := f.post(t, "/api/auth/logout", map[string]string{})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	resp.Body.Close()

	if f.sessionCookie(t) != nil {
		t.Fatal("logout must clear the session cookie")
	}

	after := f.get(t, "/api/auth/session")
	if after.StatusCode != http.StatusUnauthorized {
		t.Fatalf("post-logout session status = %d, want 401", after.StatusCode)
	}
	after.Body.Close()
}

func TestActivityEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	f.login(t)

	// Login writes asynchronously; wait for the entry to land.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		f.store.mu.Lock()
		n := len(f.store.activity)
		f.store.mu.Unlock()
		if n > 0 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	resp := f.get(t, "/api/auth/activity?limit=10")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	if total, _ := body["total"].(float64); total < 1 {
		t.Fatalf("total = %v, want >= 1", body["total"])
	}
	entries, _ := body["entries"].([]any)
	if len(entries) == 0 {
		t.Fatal("expected at least one activity entry")
	}
	first, _ := entries[0].(map[string]any)
	if first["action"] != "login" {
		t.Fatalf("unexpected first entry: %v", first)
	}
}
