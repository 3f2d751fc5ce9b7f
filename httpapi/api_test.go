package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	authflow "github.com/abjadnlp2026-anon/arabic-dialect-hub"
)

// stubProvider scripts provider outcomes for API-level walks.
type stubProvider struct {
	mu sync.Mutex

	signInAttempt authflow.Attempt
	signInErr     error
	signUpAttempt authflow.Attempt
	signUpErr     error
	verifyAttempt authflow.Attempt
	verifyErr     error
	prepareErr    error
	activateErr   error

	capabilities authflow.ProviderCapabilities

	prepared  int
	activated int
}

func (p *stubProvider) CreateSignIn(ctx context.Context, params authflow.SignInParams) (authflow.Attempt, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.signInAttempt, p.signInErr
}

func (p *stubProvider) CreateSignUp(ctx context.Context, params authflow.SignUpParams) (authflow.Attempt, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.signUpAttempt, p.signUpErr
}

func (p *stubProvider) PrepareEmailVerification(ctx context.Context, signUpID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prepared++
	return p.prepareErr
}

func (p *stubProvider) AttemptEmailVerification(ctx context.Context, signUpID, code string) (authflow.Attempt, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.verifyAttempt, p.verifyErr
}

func (p *stubProvider) UpdateSignUpMetadata(ctx context.Context, signUpID string, metadata authflow.ProfileMetadata) error {
	return nil
}

func (p *stubProvider) ActivateSession(ctx context.Context, sessionID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.activated++
	return p.activateErr
}

func (p *stubProvider) Capabilities() authflow.ProviderCapabilities {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.capabilities
}

func (p *stubProvider) preparedCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.prepared
}

func (p *stubProvider) activatedCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.activated
}

func newAPITestEngine(t *testing.T, p authflow.Provider) *authflow.Engine {
	t.Helper()

	cfg := authflow.DefaultConfig()
	cfg.Throttle.Enabled = false

	engine, err := authflow.New().WithConfig(cfg).WithProvider(p).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine
}

func newTestAPI(t *testing.T, p authflow.Provider) (*API, *httptest.Server) {
	t.Helper()

	api, err := New(newAPITestEngine(t, p), Config{TokenSecret: []byte("test-secret")})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(api.Close)

	srv := httptest.NewServer(api.Router())
	t.Cleanup(srv.Close)
	return api, srv
}

// snapshotBody mirrors the snapshot JSON with enum names as strings.
type snapshotBody struct {
	ID                string `json:"id"`
	Mode              string `json:"mode"`
	Step              string `json:"step"`
	Busy              bool   `json:"busy"`
	Error             string `json:"error"`
	Email             string `json:"email"`
	Username          string `json:"username"`
	SuggestedUsername string `json:"suggested_username"`
	AvatarID          int    `json:"avatar_id"`
	AvatarURL         string `json:"avatar_url"`
	ResetEmailSent    bool   `json:"reset_email_sent"`
	CodeResent        bool   `json:"code_resent"`
	NavigatedTo       string `json:"navigated_to"`
	Closed            bool   `json:"closed"`
}

func doRequest(t *testing.T, method, url, body string, cookie *http.Cookie) *http.Response {
	t.Helper()

	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, rdr)
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp
}

func decodeSnapshot(t *testing.T, resp *http.Response) snapshotBody {
	t.Helper()
	defer resp.Body.Close()

	var snap snapshotBody
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		t.Fatalf("decoding snapshot: %v", err)
	}
	return snap
}

func flowCookieFrom(t *testing.T, resp *http.Response) *http.Cookie {
	t.Helper()
	for _, c := range resp.Cookies() {
		if c.Name == defaultCookieName {
			return c
		}
	}
	t.Fatal("expected flow cookie to be set")
	return nil
}

func TestCreateSignInFlowSetsCookieAndSnapshot(t *testing.T) {
	_, srv := newTestAPI(t, &stubProvider{})

	resp := doRequest(t, http.MethodPost, srv.URL+"/flows/signin", "", nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}

	cookie := flowCookieFrom(t, resp)
	if !cookie.HttpOnly {
		t.Error("expected HttpOnly flow cookie")
	}
	if cookie.Path != "/" {
		t.Errorf("cookie path = %q, want /", cookie.Path)
	}
	if cookie.Value == "" {
		t.Error("expected non-empty cookie value")
	}

	snap := decodeSnapshot(t, resp)
	if snap.Mode != "sign_in" {
		t.Errorf("mode = %q, want sign_in", snap.Mode)
	}
	if snap.Step != "credentials" {
		t.Errorf("step = %q, want credentials", snap.Step)
	}
	if snap.AvatarID != 1 {
		t.Errorf("avatar id = %d, want the preselected 1", snap.AvatarID)
	}
}

func TestActionsWithoutCookieUnauthorized(t *testing.T) {
	_, srv := newTestAPI(t, &stubProvider{})

	for _, route := range []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/flows/current"},
		{http.MethodPost, "/flows/current/submit"},
		{http.MethodPost, "/flows/current/fields"},
		{http.MethodPost, "/flows/current/back"},
	} {
		resp := doRequest(t, route.method, srv.URL+route.path, "", nil)
		resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("%s %s: status = %d, want 401", route.method, route.path, resp.StatusCode)
		}
	}
}

func TestSignInWalkNavigates(t *testing.T) {
	provider := &stubProvider{
		signInAttempt: authflow.Attempt{ID: "sia_1", Status: authflow.AttemptComplete, CreatedSessionID: "sess_1"},
	}
	_, srv := newTestAPI(t, provider)

	created := doRequest(t, http.MethodPost, srv.URL+"/flows/signin", "", nil)
	cookie := flowCookieFrom(t, created)
	created.Body.Close()

	fields := doRequest(t, http.MethodPost, srv.URL+"/flows/current/fields",
		`{"email":"jane@x.com","password":"correct-horse"}`, cookie)
	if fields.StatusCode != http.StatusOK {
		t.Fatalf("fields status = %d, want 200", fields.StatusCode)
	}
	if snap := decodeSnapshot(t, fields); snap.Email != "jane@x.com" {
		t.Fatalf("email = %q, want jane@x.com", snap.Email)
	}

	submit := doRequest(t, http.MethodPost, srv.URL+"/flows/current/submit", "", cookie)
	if submit.StatusCode != http.StatusOK {
		t.Fatalf("submit status = %d, want 200", submit.StatusCode)
	}
	snap := decodeSnapshot(t, submit)
	if snap.NavigatedTo != "/learn" {
		t.Errorf("navigated_to = %q, want /learn", snap.NavigatedTo)
	}
	if !snap.Closed {
		t.Error("expected flow to be closed after navigation")
	}
	if provider.activatedCount() != 1 {
		t.Errorf("activations = %d, want 1", provider.activatedCount())
	}
}

func TestProviderRejectionSurfacesInSnapshotNotStatus(t *testing.T) {
	provider := &stubProvider{
		signInErr: &authflow.ProviderError{StatusCode: 422, Messages: []string{"Incorrect email or password."}},
	}
	_, srv := newTestAPI(t, provider)

	created := doRequest(t, http.MethodPost, srv.URL+"/flows/signin", "", nil)
	cookie := flowCookieFrom(t, created)
	created.Body.Close()

	doRequest(t, http.MethodPost, srv.URL+"/flows/current/fields",
		`{"email":"jane@x.com","password":"wrong"}`, cookie).Body.Close()

	submit := doRequest(t, http.MethodPost, srv.URL+"/flows/current/submit", "", cookie)
	if submit.StatusCode != http.StatusOK {
		t.Fatalf("submit status = %d, want 200 with the rejection in the snapshot", submit.StatusCode)
	}
	snap := decodeSnapshot(t, submit)
	if snap.Error != "Incorrect email or password." {
		t.Errorf("error = %q, want the provider message", snap.Error)
	}
	if snap.Step != "credentials" {
		t.Errorf("step = %q, want credentials", snap.Step)
	}
	if snap.Email != "jane@x.com" {
		t.Errorf("email = %q, want the typed address kept", snap.Email)
	}
}

func TestSignUpWalkReachesVerificationAndCompletes(t *testing.T) {
	provider := &stubProvider{
		signUpAttempt: authflow.Attempt{
			ID:                  "sua_1",
			Status:              authflow.AttemptMissingRequirements,
			MissingRequirements: []string{authflow.RequirementEmailVerification},
		},
		verifyAttempt: authflow.Attempt{ID: "sua_1", Status: authflow.AttemptComplete, CreatedSessionID: "sess_1"},
	}
	_, srv := newTestAPI(t, provider)

	created := doRequest(t, http.MethodPost, srv.URL+"/flows/signup", "", nil)
	cookie := flowCookieFrom(t, created)
	if snap := decodeSnapshot(t, created); snap.Mode != "sign_up" {
		t.Fatalf("mode = %q, want sign_up", snap.Mode)
	}

	doRequest(t, http.MethodPost, srv.URL+"/flows/current/fields",
		`{"email":"jane.doe@x.com","password":"correct-horse"}`, cookie).Body.Close()

	first := doRequest(t, http.MethodPost, srv.URL+"/flows/current/submit", "", cookie)
	snap := decodeSnapshot(t, first)
	if snap.Step != "profile" {
		t.Fatalf("step = %q, want profile after the credentials submit", snap.Step)
	}
	if !strings.HasPrefix(snap.SuggestedUsername, "janedoe") {
		t.Fatalf("suggested username = %q, want a janedoe prefix", snap.SuggestedUsername)
	}

	doRequest(t, http.MethodPost, srv.URL+"/flows/current/fields",
		`{"source_dialect":"egyptian","target_dialect":"darija","avatar_id":3}`, cookie).Body.Close()

	second := doRequest(t, http.MethodPost, srv.URL+"/flows/current/submit", "", cookie)
	snap = decodeSnapshot(t, second)
	if snap.Step != "verification" {
		t.Fatalf("step = %q, want verification, error %q", snap.Step, snap.Error)
	}
	if provider.preparedCount() != 1 {
		t.Fatalf("prepared = %d, want 1", provider.preparedCount())
	}

	doRequest(t, http.MethodPost, srv.URL+"/flows/current/fields",
		`{"code":"424242"}`, cookie).Body.Close()

	final := doRequest(t, http.MethodPost, srv.URL+"/flows/current/submit", "", cookie)
	snap = decodeSnapshot(t, final)
	if snap.NavigatedTo != "/learn" {
		t.Errorf("navigated_to = %q, want /learn", snap.NavigatedTo)
	}
	if !snap.Closed {
		t.Error("expected flow closed after verification")
	}
}

func TestBackFromVerificationReturnsToProfile(t *testing.T) {
	provider := &stubProvider{
		signUpAttempt: authflow.Attempt{
			ID:                  "sua_1",
			Status:              authflow.AttemptMissingRequirements,
			MissingRequirements: []string{authflow.RequirementEmailVerification},
		},
	}
	_, srv := newTestAPI(t, provider)

	created := doRequest(t, http.MethodPost, srv.URL+"/flows/signup", "", nil)
	cookie := flowCookieFrom(t, created)
	created.Body.Close()

	doRequest(t, http.MethodPost, srv.URL+"/flows/current/fields",
		`{"email":"jane@x.com","password":"correct-horse"}`, cookie).Body.Close()
	doRequest(t, http.MethodPost, srv.URL+"/flows/current/submit", "", cookie).Body.Close()
	doRequest(t, http.MethodPost, srv.URL+"/flows/current/fields",
		`{"source_dialect":"egyptian","target_dialect":"darija","avatar_id":3}`, cookie).Body.Close()
	doRequest(t, http.MethodPost, srv.URL+"/flows/current/submit", "", cookie).Body.Close()

	back := doRequest(t, http.MethodPost, srv.URL+"/flows/current/back", "", cookie)
	if back.StatusCode != http.StatusOK {
		t.Fatalf("back status = %d, want 200", back.StatusCode)
	}
	if snap := decodeSnapshot(t, back); snap.Step != "profile" {
		t.Fatalf("step = %q, want profile after back", snap.Step)
	}
}

func TestBackOnSignInFlowConflict(t *testing.T) {
	_, srv := newTestAPI(t, &stubProvider{})

	created := doRequest(t, http.MethodPost, srv.URL+"/flows/signin", "", nil)
	cookie := flowCookieFrom(t, created)
	created.Body.Close()

	back := doRequest(t, http.MethodPost, srv.URL+"/flows/current/back", "", cookie)
	back.Body.Close()
	if back.StatusCode != http.StatusConflict {
		t.Fatalf("back status = %d, want 409", back.StatusCode)
	}
}

func TestClosedFlowAnswersGone(t *testing.T) {
	api, srv := newTestAPI(t, &stubProvider{})

	created := doRequest(t, http.MethodPost, srv.URL+"/flows/signin", "", nil)
	cookie := flowCookieFrom(t, created)
	created.Body.Close()

	// Tear the flow down behind the API's back, as the sweeper would.
	id, err := api.tokens.parse(cookie.Value)
	if err != nil {
		t.Fatalf("parsing cookie: %v", err)
	}
	f, ok := api.reg.get(id)
	if !ok {
		t.Fatal("expected flow in registry")
	}
	f.Close()

	submit := doRequest(t, http.MethodPost, srv.URL+"/flows/current/submit", "", cookie)
	submit.Body.Close()
	if submit.StatusCode != http.StatusGone {
		t.Fatalf("submit status = %d, want 410", submit.StatusCode)
	}
}

func TestDeleteFlowIdempotentAndClearsCookie(t *testing.T) {
	api, srv := newTestAPI(t, &stubProvider{})

	created := doRequest(t, http.MethodPost, srv.URL+"/flows/signin", "", nil)
	cookie := flowCookieFrom(t, created)
	created.Body.Close()

	del := doRequest(t, http.MethodDelete, srv.URL+"/flows/current", "", cookie)
	del.Body.Close()
	if del.StatusCode != http.StatusNoContent {
		t.Fatalf("delete status = %d, want 204", del.StatusCode)
	}
	cleared := flowCookieFrom(t, del)
	if cleared.Value != "" || cleared.MaxAge >= 0 {
		t.Errorf("expected cleared cookie, got value %q max-age %d", cleared.Value, cleared.MaxAge)
	}
	if api.reg.len() != 0 {
		t.Fatalf("registry len = %d, want 0", api.reg.len())
	}

	// Stale cookie and no cookie both stay 204.
	again := doRequest(t, http.MethodDelete, srv.URL+"/flows/current", "", cookie)
	again.Body.Close()
	if again.StatusCode != http.StatusNoContent {
		t.Fatalf("repeat delete status = %d, want 204", again.StatusCode)
	}
	bare := doRequest(t, http.MethodDelete, srv.URL+"/flows/current", "", nil)
	bare.Body.Close()
	if bare.StatusCode != http.StatusNoContent {
		t.Fatalf("bare delete status = %d, want 204", bare.StatusCode)
	}

	after := doRequest(t, http.MethodGet, srv.URL+"/flows/current", "", cookie)
	after.Body.Close()
	if after.StatusCode != http.StatusUnauthorized {
		t.Fatalf("snapshot after delete status = %d, want 401", after.StatusCode)
	}
}

func TestFieldsInvalidBodyBadRequest(t *testing.T) {
	_, srv := newTestAPI(t, &stubProvider{})

	created := doRequest(t, http.MethodPost, srv.URL+"/flows/signin", "", nil)
	cookie := flowCookieFrom(t, created)
	created.Body.Close()

	resp := doRequest(t, http.MethodPost, srv.URL+"/flows/current/fields", "not json", cookie)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestForgotPasswordSetsConfirmationFlag(t *testing.T) {
	_, srv := newTestAPI(t, &stubProvider{})

	created := doRequest(t, http.MethodPost, srv.URL+"/flows/signin", "", nil)
	cookie := flowCookieFrom(t, created)
	created.Body.Close()

	doRequest(t, http.MethodPost, srv.URL+"/flows/current/fields",
		`{"email":"jane@x.com"}`, cookie).Body.Close()

	resp := doRequest(t, http.MethodPost, srv.URL+"/flows/current/forgot-password", "", cookie)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	snap := decodeSnapshot(t, resp)
	if !snap.ResetEmailSent {
		t.Error("expected reset_email_sent flag")
	}
	if snap.Step != "credentials" {
		t.Errorf("step = %q, want credentials unchanged", snap.Step)
	}
}

func TestResendOutsideVerificationConflict(t *testing.T) {
	_, srv := newTestAPI(t, &stubProvider{})

	created := doRequest(t, http.MethodPost, srv.URL+"/flows/signup", "", nil)
	cookie := flowCookieFrom(t, created)
	created.Body.Close()

	resp := doRequest(t, http.MethodPost, srv.URL+"/flows/current/resend", "", cookie)
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("status = %d, want 409", resp.StatusCode)
	}
}
