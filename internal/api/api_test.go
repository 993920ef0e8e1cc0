package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/moneymind/internal/store"
	"github.com/ajitpratap0/moneymind/internal/user"
)

type fakeRouter struct {
	mu     sync.Mutex
	reply  string
	panics bool
	calls  []string
}

func (f *fakeRouter) Route(_ context.Context, userID, message string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, userID+"|"+message)
	if f.panics {
		panic("router exploded")
	}
	return f.reply
}

type sent struct{ to, text string }

type fakeSender struct {
	mu   sync.Mutex
	sent []sent
	fail bool
}

func (f *fakeSender) Send(_ context.Context, to, text string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sent{to, text})
	return !f.fail
}

func newTestServer(t *testing.T, r *fakeRouter, s *fakeSender, auth *AuthConfig) (*Server, store.Store) {
	t.Helper()
	st := store.NewMemoryStore()
	cfg := Config{
		Host:    "127.0.0.1",
		Port:    0,
		Version: "test",
		AppLink: "https://app.example",
		Auth:    auth,
		Router:  r,
		Store:   st,
	}
	if s != nil {
		cfg.Sender = s
	}
	return NewServer(cfg), st
}

func do(t *testing.T, srv *Server, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func postJSON(path, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func postForm(path string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestHandleChat(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantCall   string
		wantReply  string
		wantDetail string
	}{
		{name: "routes message", body: `{"user_id":"u1","message":"what is a SIP"}`, wantStatus: http.StatusOK, wantCall: "u1|what is a SIP", wantReply: "answer"},
		{name: "default user", body: `{"message":"hello"}`, wantStatus: http.StatusOK, wantCall: "default_user|hello", wantReply: "answer"},
		{name: "empty message", body: `{"user_id":"u1","message":"   "}`, wantStatus: http.StatusBadRequest, wantDetail: "Message cannot be empty"},
		{name: "bad json", body: `{`, wantStatus: http.StatusBadRequest, wantDetail: "Invalid request body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &fakeRouter{reply: "answer"}
			srv, _ := newTestServer(t, r, nil, nil)

			w := do(t, srv, postJSON("/api/chat", tt.body))
			assert.Equal(t, tt.wantStatus, w.Code)

			var got map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
			if tt.wantDetail != "" {
				assert.Equal(t, tt.wantDetail, got["detail"])
				assert.Empty(t, r.calls)
				return
			}
			assert.Equal(t, tt.wantReply, got["response"])
			assert.Equal(t, "success", got["status"])
			assert.Equal(t, []string{tt.wantCall}, r.calls)
		})
	}
}

func TestHandleChat_RejectsOversizedInput(t *testing.T) {
	r := &fakeRouter{reply: "answer"}
	srv, _ := newTestServer(t, r, nil, nil)

	body, err := json.Marshal(ChatRequest{UserID: "u1", Message: strings.Repeat("a", 4001)})
	require.NoError(t, err)
	w := do(t, srv, postJSON("/api/chat", string(body)))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "message")

	w = do(t, srv, postJSON("/api/chat", `{"user_id":"+++","message":"hi"}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "user_id")
	assert.Empty(t, r.calls)
}

func TestHandleChat_RouterPanic(t *testing.T) {
	srv, _ := newTestServer(t, &fakeRouter{panics: true}, nil, nil)

	w := do(t, srv, postJSON("/api/chat", `{"user_id":"u1","message":"hi"}`))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "router exploded")
}

func TestHandleWhatsAppWebhook(t *testing.T) {
	tests := []struct {
		name     string
		form     url.Values
		routed   bool
		wantTo   string
		wantText string
	}{
		{
			name:     "routes text",
			form:     url.Values{"From": {"whatsapp:+919999"}, "Body": {"what is gold"}},
			routed:   true,
			wantTo:   "+919999",
			wantText: "answer",
		},
		{
			name:     "empty body",
			form:     url.Values{"From": {"whatsapp:+919999"}, "Body": {"  "}},
			wantTo:   "+919999",
			wantText: emptyBodyReply,
		},
		{
			name:     "media only",
			form:     url.Values{"From": {"whatsapp:+919999"}, "MediaUrl0": {"https://media.example/1.jpg"}},
			wantTo:   "+919999",
			wantText: mediaOnlyReply,
		},
		{
			name:     "app only command",
			form:     url.Values{"From": {"whatsapp:+919999"}, "Body": {"/generate_portfolio now"}},
			wantTo:   "+919999",
			wantText: "This feature is best accessed in our app. Please visit: https://app.example to continue.",
		},
		{
			name:     "exit",
			form:     url.Values{"From": {"whatsapp:+919999"}, "Body": {"EXIT"}},
			wantTo:   "+919999",
			wantText: goodbyeReply,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &fakeRouter{reply: "answer"}
			s := &fakeSender{}
			srv, _ := newTestServer(t, r, s, nil)

			w := do(t, srv, postForm("/api/webhook/whatsapp", tt.form))
			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, "OK", w.Body.String())
			assert.Contains(t, w.Header().Get("Content-Type"), "text/plain")

			if tt.routed {
				assert.Len(t, r.calls, 1)
			} else {
				assert.Empty(t, r.calls)
			}
			require.Len(t, s.sent, 1)
			assert.Equal(t, tt.wantTo, s.sent[0].to)
			assert.Equal(t, tt.wantText, s.sent[0].text)
		})
	}
}

func TestHandleWhatsAppWebhook_MissingFrom(t *testing.T) {
	r := &fakeRouter{reply: "answer"}
	s := &fakeSender{}
	srv, _ := newTestServer(t, r, s, nil)

	w := do(t, srv, postForm("/api/webhook/whatsapp", url.Values{"Body": {"hello"}}))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())
	assert.Empty(t, r.calls)
	assert.Empty(t, s.sent)
}

func TestHandleWhatsAppWebhook_RouterPanic(t *testing.T) {
	s := &fakeSender{}
	srv, _ := newTestServer(t, &fakeRouter{panics: true}, s, nil)

	w := do(t, srv, postForm("/api/webhook/whatsapp", url.Values{"From": {"whatsapp:+1"}, "Body": {"hello"}}))
	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, s.sent, 1)
	assert.Equal(t, "Error processing your request: router exploded", s.sent[0].text)
}

func TestHandleGetUser(t *testing.T) {
	srv, st := newTestServer(t, &fakeRouter{}, nil, nil)

	rec := user.New("alice")
	name := "Alice"
	rec.Profile.Name = &name
	require.True(t, st.Save(context.Background(), "alice", rec))

	pending := user.New("bob")
	pending.ConversationState.AwaitQuestion(user.IncomeSource)
	require.True(t, st.Save(context.Background(), "bob", pending))

	tests := []struct {
		id        string
		wantState string
		wantName  string
	}{
		{id: "alice", wantState: "awaiting_first_contact", wantName: "Alice"},
		{id: "bob", wantState: "awaiting_answer"},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			w := do(t, srv, httptest.NewRequest(http.MethodGet, "/api/users/"+tt.id, nil))
			require.Equal(t, http.StatusOK, w.Code)

			var got user.Record
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
			assert.Equal(t, tt.id, got.UserID)
			if tt.wantName != "" {
				require.NotNil(t, got.Profile.Name)
				assert.Equal(t, tt.wantName, *got.Profile.Name)
			}

			var state struct {
				ProfileState string `json:"profile_state"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &state))
			assert.Equal(t, tt.wantState, state.ProfileState)
		})
	}
}

func TestAuthMiddleware(t *testing.T) {
	auth := &AuthConfig{Enabled: true, HeaderName: "X-API-Key", KeyHashes: []string{HashAPIKey("secret")}}

	tests := []struct {
		name   string
		header string
		value  string
		want   int
	}{
		{name: "no key", want: http.StatusUnauthorized},
		{name: "wrong key", header: "X-API-Key", value: "nope", want: http.StatusUnauthorized},
		{name: "header key", header: "X-API-Key", value: "secret", want: http.StatusOK},
		{name: "bearer key", header: "Authorization", value: "Bearer secret", want: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newTestServer(t, &fakeRouter{}, nil, auth)
			req := httptest.NewRequest(http.MethodGet, "/api/users/bob", nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			assert.Equal(t, tt.want, do(t, srv, req).Code)
		})
	}
}

func TestAuthMiddleware_ChatIsOpen(t *testing.T) {
	auth := &AuthConfig{Enabled: true, KeyHashes: []string{HashAPIKey("secret")}}
	srv, _ := newTestServer(t, &fakeRouter{reply: "ok"}, nil, auth)

	w := do(t, srv, postJSON("/api/chat", `{"message":"hi"}`))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestKeySet(t *testing.T) {
	ks := NewKeySet([]string{" " + strings.ToUpper(HashAPIKey("k1")) + " ", ""})
	assert.Equal(t, 1, ks.Len())
	assert.True(t, ks.Valid("k1"))
	assert.False(t, ks.Valid("k2"))
	assert.False(t, ks.Valid(""))
}

func TestHandleHealth(t *testing.T) {
	st := store.NewMemoryStore()
	srv := NewServer(Config{
		Router: &fakeRouter{},
		Store:  st,
		Checks: map[string]HealthCheck{
			"store": func(context.Context) error { return nil },
		},
	})
	w := do(t, srv, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"healthy"`)

	srv = NewServer(Config{
		Router: &fakeRouter{},
		Store:  st,
		Checks: map[string]HealthCheck{
			"redis": func(context.Context) error { return errors.New("connection refused") },
		},
	})
	w = do(t, srv, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "connection refused")
}

func TestHandleRoot(t *testing.T) {
	srv, _ := newTestServer(t, &fakeRouter{}, nil, nil)

	w := do(t, srv, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var got map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "MoneyMind", got["service"])
	assert.Equal(t, "test", got["version"])
}
