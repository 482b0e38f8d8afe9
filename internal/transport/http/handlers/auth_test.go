package handlers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap/zaptest"

	"github.com/solovyshn/Blockly-for-Dwenguino/internal/core/domain"
	"github.com/solovyshn/Blockly-for-Dwenguino/internal/core/port"
	"github.com/solovyshn/Blockly-for-Dwenguino/internal/infra/config"
	"github.com/solovyshn/Blockly-for-Dwenguino/internal/infra/security"
	"github.com/solovyshn/Blockly-for-Dwenguino/internal/repository"
	"github.com/solovyshn/Blockly-for-Dwenguino/internal/transport/http/middleware"
	"github.com/solovyshn/Blockly-for-Dwenguino/internal/usecase"
)

const (
	testLandingURL    = "https://landing.example.org/welcome"
	testPassword      = "Sup3r!SecurePass#7890"
	sessionCookieName = "dwengo"
)

type memUserRepo struct {
	mu    sync.Mutex
	users map[string]domain.User
}

func (r *memUserRepo) Insert(_ context.Context, user domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.Email]; ok {
		return repository.ErrDuplicate
	}
	r.users[user.Email] = user
	return nil
}

func (r *memUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[email]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := user
	return &copied, nil
}

func (r *memUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.ID == id {
			copied := user
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memUserRepo) UpdatePassword(_ context.Context, email, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[email]
	if !ok {
		return repository.ErrNotFound
	}
	user.PasswordHash = passwordHash
	r.users[email] = user
	return nil
}

func (r *memUserRepo) Activate(_ context.Context, email string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[email]
	if !ok {
		return repository.ErrNotFound
	}
	user.Status = domain.UserStatusActive
	r.users[email] = user
	return nil
}

func (r *memUserRepo) List(_ context.Context, filter port.UserFilter) ([]domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.User, 0, len(r.users))
	for _, user := range r.users {
		if filter.Status != "" && user.Status != filter.Status {
			continue
		}
		if filter.Role != "" && user.Role != filter.Role {
			continue
		}
		out = append(out, user)
	}
	return out, nil
}

func (r *memUserRepo) idByEmail(email string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user, ok := r.users[email]; ok {
		return user.ID
	}
	return ""
}

func (r *memUserRepo) promoteToAdmin(email string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user, ok := r.users[email]; ok {
		user.Role = domain.UserRoleAdmin
		r.users[email] = user
	}
}

type memCodeRegistry struct {
	mu    sync.Mutex
	codes map[string]domain.ConfirmationCode
}

func (r *memCodeRegistry) key(purpose domain.CodePurpose, email, code string) string {
	return fmt.Sprintf("%s:%s:%s", purpose, email, code)
}

func (r *memCodeRegistry) Save(_ context.Context, code domain.ConfirmationCode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.codes[r.key(code.Purpose, code.Email, code.Code)] = code
	return nil
}

func (r *memCodeRegistry) Consume(_ context.Context, purpose domain.CodePurpose, email, code string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.codes[r.key(purpose, email, code)]
	return ok, nil
}

func (r *memCodeRegistry) Delete(_ context.Context, purpose domain.CodePurpose, email, code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := r.key(purpose, email, code)
	if _, ok := r.codes[key]; !ok {
		return repository.ErrNotFound
	}
	delete(r.codes, key)
	return nil
}

func (r *memCodeRegistry) lastCode(purpose domain.CodePurpose, email string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, code := range r.codes {
		if code.Purpose == purpose && code.Email == email {
			return code.Code
		}
	}
	return ""
}

type memTokenRepo struct {
	mu     sync.Mutex
	tokens map[string]domain.RefreshToken
}

func (r *memTokenRepo) Exists(_ context.Context, tokenHash string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.tokens[tokenHash]
	return ok, nil
}

func (r *memTokenRepo) Save(_ context.Context, token domain.RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tokens[token.TokenHash]; !ok {
		r.tokens[token.TokenHash] = token
	}
	return nil
}

func (r *memTokenRepo) DeleteByToken(_ context.Context, tokenHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tokens, tokenHash)
	return nil
}

func (r *memTokenRepo) DeleteByTokenAndEmail(_ context.Context, tokenHash, email string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if token, ok := r.tokens[tokenHash]; ok && token.Email == email {
		delete(r.tokens, tokenHash)
	}
	return nil
}

type memTelemetryRepo struct {
	mu     sync.Mutex
	events []domain.TelemetryEvent
}

func (r *memTelemetryRepo) Insert(_ context.Context, event domain.TelemetryEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *memTelemetryRepo) Count(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.events)), nil
}

func (r *memTelemetryRepo) CountSince(_ context.Context, since time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, event := range r.events {
		if event.OccurredAt.After(since) {
			count++
		}
	}
	return count, nil
}

func (r *memTelemetryRepo) ListRecent(_ context.Context, limit int) ([]domain.TelemetryEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.TelemetryEvent, len(r.events))
	copy(out, r.events)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memTelemetryRepo) last() (domain.TelemetryEvent, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == 0 {
		return domain.TelemetryEvent{}, false
	}
	return r.events[len(r.events)-1], true
}

type discardMailer struct{}

func (discardMailer) Send(context.Context, port.MailMessage) error { return nil }

type discardPublisher struct{}

func (discardPublisher) PublishUserRegistered(context.Context, domain.UserRegisteredEvent) error {
	return nil
}
func (discardPublisher) PublishUserActivated(context.Context, domain.UserActivatedEvent) error {
	return nil
}
func (discardPublisher) PublishUserLoggedIn(context.Context, domain.UserLoggedInEvent) error {
	return nil
}
func (discardPublisher) PublishUserLoggedOut(context.Context, domain.UserLoggedOutEvent) error {
	return nil
}
func (discardPublisher) PublishPasswordResetRequested(context.Context, domain.PasswordResetRequestedEvent) error {
	return nil
}
func (discardPublisher) PublishPasswordChanged(context.Context, domain.PasswordChangedEvent) error {
	return nil
}

type testEnv struct {
	router *gin.Engine
	issuer *security.TokenIssuer
	users  *memUserRepo
	codes  *memCodeRegistry
	events *memTelemetryRepo
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	issuer, err := security.NewTokenIssuer("handler-access-secret", "handler-refresh-secret", 5*time.Minute, "dwengo-test")
	if err != nil {
		t.Fatalf("new token issuer: %v", err)
	}

	users := &memUserRepo{users: make(map[string]domain.User)}
	codes := &memCodeRegistry{codes: make(map[string]domain.ConfirmationCode)}
	tokens := &memTokenRepo{tokens: make(map[string]domain.RefreshToken)}
	events := &memTelemetryRepo{}

	sessions := usecase.NewSessionService(
		usecase.SessionConfig{PublicBaseURL: "https://simulator.example.org/"},
		users,
		codes,
		tokens,
		issuer,
		discardMailer{},
		discardPublisher{},
		zaptest.NewLogger(t),
	)
	telemetry := usecase.NewTelemetryService(events, zaptest.NewLogger(t))

	cookie := middleware.NewSessionCookie(config.CookieSettings{}, "test")

	router := gin.New()
	authHandler := NewAuthHandler(sessions, cookie, testLandingURL)
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.GET("/verify-account/:userId/:secretCode", authHandler.VerifyAccount)
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/resend-activation", authHandler.ResendActivation)
		authGroup.POST("/refresh-token", authHandler.RefreshToken)
		authGroup.POST("/request-password-reset", authHandler.RequestPasswordReset)
		authGroup.POST("/reset-password", authHandler.ResetPassword)
		authGroup.POST("/logout", authHandler.Logout)
		authGroup.GET("/me", middleware.RequireAuth(cookie, sessions), authHandler.Me)
	}

	eventHandler := NewEventHandler(telemetry)
	router.POST("/events", middleware.SoftAuth(cookie, sessions), eventHandler.Record)

	adminHandler := NewAdminHandler(sessions, telemetry)
	adminGroup := router.Group("/admin")
	adminGroup.Use(middleware.RequireAdmin(cookie, sessions))
	{
		adminGroup.GET("/users", adminHandler.ListUsers)
		adminGroup.GET("/events/stats", adminHandler.EventStats)
		adminGroup.GET("/events/recent", adminHandler.RecentEvents)
	}

	return &testEnv{router: router, issuer: issuer, users: users, codes: codes, events: events}
}

func (e *testEnv) do(t *testing.T, method, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func registerBody(email string) string {
	return fmt.Sprintf(`{
		"firstname": "Alice",
		"email": %q,
		"password": %q,
		"repeated_password": %q,
		"role": "user",
		"accept_conditions": true
	}`, email, testPassword, testPassword)
}

func loginBody(email, password string) string {
	return fmt.Sprintf(`{"email": %q, "password": %q}`, email, password)
}

func (e *testEnv) register(t *testing.T, email string) {
	t.Helper()
	if rec := e.do(t, http.MethodPost, "/auth/register", registerBody(email)); rec.Code != http.StatusOK {
		t.Fatalf("register %s: status %d body %s", email, rec.Code, rec.Body.String())
	}
}

func (e *testEnv) activate(t *testing.T, email string) {
	t.Helper()

	code := e.codes.lastCode(domain.CodePurposeActivation, email)
	if code == "" {
		t.Fatalf("no activation code issued for %s", email)
	}
	userID := e.users.idByEmail(email)
	if userID == "" {
		t.Fatalf("no user registered with email %s", email)
	}

	rec := e.do(t, http.MethodGet, "/auth/verify-account/"+userID+"/"+code, "")
	if rec.Code != http.StatusFound {
		t.Fatalf("verify-account: status %d", rec.Code)
	}
	if got := rec.Header().Get("Location"); got != testLandingURL {
		t.Fatalf("expected redirect to %q, got %q", testLandingURL, got)
	}
}

func (e *testEnv) login(t *testing.T, email, password string) *http.Cookie {
	t.Helper()

	rec := e.do(t, http.MethodPost, "/auth/login", loginBody(email, password))
	if rec.Code != http.StatusOK {
		t.Fatalf("login %s: status %d body %s", email, rec.Code, rec.Body.String())
	}

	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == sessionCookieName {
			return cookie
		}
	}
	t.Fatal("login did not set the session cookie")
	return nil
}

func decodeSessionCookie(t *testing.T, cookie *http.Cookie) (accessToken, refreshToken string) {
	t.Helper()

	raw, err := base64.RawURLEncoding.DecodeString(cookie.Value)
	if err != nil {
		t.Fatalf("decode cookie value: %v", err)
	}

	var payload struct {
		AccessToken  string `json:"accessToken"`
		RefreshToken string `json:"refreshToken"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		t.Fatalf("unmarshal cookie payload: %v", err)
	}
	if !strings.HasPrefix(payload.AccessToken, "Bearer ") {
		t.Fatalf("access token must carry the Bearer prefix, got %q", payload.AccessToken)
	}

	return strings.TrimPrefix(payload.AccessToken, "Bearer "), payload.RefreshToken
}

func makeSessionCookie(t *testing.T, accessToken, refreshToken string) *http.Cookie {
	t.Helper()

	payload := map[string]string{
		"accessToken":  "Bearer " + accessToken,
		"refreshToken": refreshToken,
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal cookie payload: %v", err)
	}

	return &http.Cookie{
		Name:  sessionCookieName,
		Value: base64.RawURLEncoding.EncodeToString(raw),
	}
}

func TestRegisterReturnsAllValidationCodes(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/auth/register", `{"email": "broken"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}

	var resp ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal error body: %v", err)
	}
	if resp.Error != "validationFailed" {
		t.Fatalf("expected validationFailed, got %q", resp.Error)
	}
	if len(resp.Codes) == 0 {
		t.Fatal("expected validation codes in the response")
	}

	found := false
	for _, code := range resp.Codes {
		if code == usecase.CodeRequiredFields {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected %q in codes, got %v", usecase.CodeRequiredFields, resp.Codes)
	}
}

func TestRegisterDuplicateEmailReturns401(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice@example.com")

	rec := env.do(t, http.MethodPost, "/auth/register", registerBody("alice@example.com"))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "userAlreadyExists") {
		t.Fatalf("expected userAlreadyExists, got %s", rec.Body.String())
	}
}

func TestLoginLifecycle(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice@example.com")

	rec := env.do(t, http.MethodPost, "/auth/login", loginBody("alice@example.com", testPassword))
	if rec.Code != http.StatusUnauthorized || !strings.Contains(rec.Body.String(), "userNotActive") {
		t.Fatalf("pre-activation login: status %d body %s", rec.Code, rec.Body.String())
	}

	env.activate(t, "alice@example.com")

	rec = env.do(t, http.MethodPost, "/auth/login", loginBody("alice@example.com", "wrong-password"))
	if rec.Code != http.StatusUnauthorized || !strings.Contains(rec.Body.String(), "emailOrPasswordIncorrect") {
		t.Fatalf("wrong password login: status %d body %s", rec.Code, rec.Body.String())
	}

	cookie := env.login(t, "alice@example.com", testPassword)
	if !cookie.HttpOnly {
		t.Fatal("session cookie must be http-only")
	}
	if cookie.Secure {
		t.Fatal("session cookie must not be secure outside production")
	}

	accessToken, refreshToken := decodeSessionCookie(t, cookie)
	if accessToken == "" || refreshToken == "" {
		t.Fatal("cookie must carry both tokens")
	}
	if _, err := env.issuer.VerifyAccessToken(accessToken); err != nil {
		t.Fatalf("cookie access token must verify: %v", err)
	}
}

func TestVerifyAccountAlwaysRedirects(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/auth/verify-account/unknown-user/bad-code", "")
	if rec.Code != http.StatusFound {
		t.Fatalf("expected 302 for a bad link, got %d", rec.Code)
	}
	if got := rec.Header().Get("Location"); got != testLandingURL {
		t.Fatalf("expected redirect to %q, got %q", testLandingURL, got)
	}
}

func TestMeEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice@example.com")
	env.activate(t, "alice@example.com")

	if rec := env.do(t, http.MethodGet, "/auth/me", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing cookie: expected 401, got %d", rec.Code)
	}

	garbage := makeSessionCookie(t, "not-a-token", "not-a-token")
	if rec := env.do(t, http.MethodGet, "/auth/me", "", garbage); rec.Code != http.StatusForbidden {
		t.Fatalf("garbage token: expected 403, got %d", rec.Code)
	}

	cookie := env.login(t, "alice@example.com", testPassword)
	rec := env.do(t, http.MethodGet, "/auth/me", "", cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body %s", rec.Code, rec.Body.String())
	}

	var resp UserResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal profile: %v", err)
	}
	if resp.Email != "alice@example.com" || resp.Status != string(domain.UserStatusActive) {
		t.Fatalf("unexpected profile: %+v", resp)
	}
}

func TestRefreshTokenEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice@example.com")
	env.activate(t, "alice@example.com")

	if rec := env.do(t, http.MethodPost, "/auth/refresh-token", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing cookie: expected 401, got %d", rec.Code)
	}

	cookie := env.login(t, "alice@example.com", testPassword)
	_, refreshToken := decodeSessionCookie(t, cookie)

	rec := env.do(t, http.MethodPost, "/auth/refresh-token", "", cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("refresh: status %d body %s", rec.Code, rec.Body.String())
	}

	var refreshed *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookieName {
			refreshed = c
		}
	}
	if refreshed == nil {
		t.Fatal("refresh must rewrite the session cookie")
	}
	newAccess, newRefresh := decodeSessionCookie(t, refreshed)
	if newRefresh != refreshToken {
		t.Fatal("refresh must keep the original refresh token")
	}
	if _, err := env.issuer.VerifyAccessToken(newAccess); err != nil {
		t.Fatalf("reissued access token must verify: %v", err)
	}

	if rec := env.do(t, http.MethodPost, "/auth/logout", "", cookie); rec.Code != http.StatusOK {
		t.Fatalf("logout: status %d", rec.Code)
	}
	if rec := env.do(t, http.MethodPost, "/auth/refresh-token", "", cookie); rec.Code != http.StatusForbidden {
		t.Fatalf("refresh after logout: expected 403, got %d", rec.Code)
	}
}

func TestLogoutAlwaysSucceeds(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/auth/logout", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("logout without cookie: expected 200, got %d", rec.Code)
	}

	garbage := makeSessionCookie(t, "junk", "junk")
	rec = env.do(t, http.MethodPost, "/auth/logout", "", garbage)
	if rec.Code != http.StatusOK {
		t.Fatalf("logout with junk cookie: expected 200, got %d", rec.Code)
	}

	cleared := false
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookieName && c.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Fatal("logout must expire the session cookie")
	}
}

func TestPasswordResetEndpoints(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice@example.com")
	env.activate(t, "alice@example.com")

	rec := env.do(t, http.MethodPost, "/auth/request-password-reset", `{"email": "nobody@example.com"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("unknown email must still return 200, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodPost, "/auth/request-password-reset", `{"email": "alice@example.com"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("request reset: status %d", rec.Code)
	}

	code := env.codes.lastCode(domain.CodePurposePasswordReset, "alice@example.com")
	if code == "" {
		t.Fatal("no reset code issued")
	}

	const newPassword = "An0ther!StrongPass#4321"
	body := fmt.Sprintf(`{"email": "alice@example.com", "password": %q, "repeated_password": %q, "secretCode": "wrong"}`, newPassword, newPassword)
	rec = env.do(t, http.MethodPost, "/auth/reset-password", body)
	if rec.Code != http.StatusUnauthorized || !strings.Contains(rec.Body.String(), "invalidCode") {
		t.Fatalf("wrong code: status %d body %s", rec.Code, rec.Body.String())
	}

	body = fmt.Sprintf(`{"email": "alice@example.com", "password": %q, "repeated_password": %q, "secretCode": %q}`, newPassword, newPassword, code)
	rec = env.do(t, http.MethodPost, "/auth/reset-password", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("reset password: status %d body %s", rec.Code, rec.Body.String())
	}

	env.login(t, "alice@example.com", newPassword)
}

func TestEventsSoftGuard(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice@example.com")
	env.activate(t, "alice@example.com")

	eventBody := fmt.Sprintf(`{
		"timestamp": %q,
		"sessionId": "session-1",
		"activityId": "activity-1",
		"eventName": "blocklyChange",
		"data": {"block": "move_forward"}
	}`, time.Now().UTC().Format(time.RFC3339))

	rec := env.do(t, http.MethodPost, "/events", eventBody)
	if rec.Code != http.StatusOK {
		t.Fatalf("anonymous event: status %d body %s", rec.Code, rec.Body.String())
	}
	event, ok := env.events.last()
	if !ok {
		t.Fatal("event was not recorded")
	}
	if event.UserID != "" {
		t.Fatalf("anonymous event must have no user attribution, got %q", event.UserID)
	}

	garbage := makeSessionCookie(t, "junk", "junk")
	if rec := env.do(t, http.MethodPost, "/events", eventBody, garbage); rec.Code != http.StatusOK {
		t.Fatalf("garbage cookie must not block events: status %d", rec.Code)
	}

	cookie := env.login(t, "alice@example.com", testPassword)
	if rec := env.do(t, http.MethodPost, "/events", eventBody, cookie); rec.Code != http.StatusOK {
		t.Fatalf("authenticated event: status %d", rec.Code)
	}
	event, _ = env.events.last()
	if event.UserID != env.users.idByEmail("alice@example.com") {
		t.Fatalf("expected attribution to alice, got %q", event.UserID)
	}

	rec = env.do(t, http.MethodPost, "/events", `{"sessionId": "session-1"}`)
	if rec.Code != http.StatusUnauthorized || !strings.Contains(rec.Body.String(), usecase.CodeRequiredFields) {
		t.Fatalf("missing fields: status %d body %s", rec.Code, rec.Body.String())
	}
}

func TestEventsSoftGuardReissuesAccessToken(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice@example.com")
	env.activate(t, "alice@example.com")

	base := time.Now().UTC()
	env.issuer.WithClock(func() time.Time { return base })
	cookie := env.login(t, "alice@example.com", testPassword)

	// Age the access token past its lifetime; the refresh token stays valid.
	env.issuer.WithClock(func() time.Time { return base.Add(10 * time.Minute) })

	eventBody := fmt.Sprintf(`{"timestamp": %q, "eventName": "runClicked"}`, base.Add(10*time.Minute).Format(time.RFC3339))
	rec := env.do(t, http.MethodPost, "/events", eventBody, cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("event with expired access token: status %d body %s", rec.Code, rec.Body.String())
	}

	event, ok := env.events.last()
	if !ok || event.UserID != env.users.idByEmail("alice@example.com") {
		t.Fatalf("refresh fallback must keep attribution, got %+v ok=%v", event, ok)
	}

	var rewritten *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookieName {
			rewritten = c
		}
	}
	if rewritten == nil {
		t.Fatal("soft guard must rewrite the cookie with a fresh access token")
	}
	newAccess, _ := decodeSessionCookie(t, rewritten)
	if _, err := env.issuer.VerifyAccessToken(newAccess); err != nil {
		t.Fatalf("reissued access token must verify: %v", err)
	}
}

func TestAdminGuard(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice@example.com")
	env.activate(t, "alice@example.com")
	env.register(t, "root@example.com")
	env.activate(t, "root@example.com")
	env.users.promoteToAdmin("root@example.com")

	if rec := env.do(t, http.MethodGet, "/admin/users", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing cookie: expected 401, got %d", rec.Code)
	}

	garbage := makeSessionCookie(t, "junk", "junk")
	if rec := env.do(t, http.MethodGet, "/admin/users", "", garbage); rec.Code != http.StatusForbidden {
		t.Fatalf("garbage token: expected 403, got %d", rec.Code)
	}

	userCookie := env.login(t, "alice@example.com", testPassword)
	if rec := env.do(t, http.MethodGet, "/admin/users", "", userCookie); rec.Code != http.StatusUnauthorized {
		t.Fatalf("non-admin: expected 401, got %d", rec.Code)
	}

	adminCookie := env.login(t, "root@example.com", testPassword)
	rec := env.do(t, http.MethodGet, "/admin/users", "", adminCookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("admin listing: status %d body %s", rec.Code, rec.Body.String())
	}

	var resp UsersResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal users: %v", err)
	}
	if len(resp.Users) != 2 {
		t.Fatalf("expected two users, got %d", len(resp.Users))
	}

	rec = env.do(t, http.MethodGet, "/admin/events/stats", "", adminCookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("event stats: status %d", rec.Code)
	}
	var stats EventStatsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("unmarshal stats: %v", err)
	}
	if stats.TotalEvents != 0 {
		t.Fatalf("expected zero events, got %d", stats.TotalEvents)
	}
}
