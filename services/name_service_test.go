package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/flashbots/namereg/crypto"
	"github.com/flashbots/namereg/protocol"
	"github.com/flashbots/namereg/registry"
	"github.com/flashbots/namereg/testutil"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

func setupTestNameService(t *testing.T, adminToken string) (*registry.Registry, chi.Router) {
	t.Helper()

	reg := registry.New()
	svc := NewNameService(reg, &NameServiceConfig{
		Log:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		AdminToken: adminToken,
	})

	r := chi.NewRouter()
	svc.RegisterRoutes(r)
	return reg, r
}

func postUpdate(t *testing.T, router chi.Router, name string, msg any) *httptest.ResponseRecorder {
	t.Helper()

	body, err := json.Marshal(msg)
	require.NoError(t, err)

	req := httptest.NewRequest("POST", "/name/"+name, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func getName(t *testing.T, router chi.Router, name string) (*httptest.ResponseRecorder, *protocol.UpdateMessage) {
	t.Helper()

	req := httptest.NewRequest("GET", "/name/"+name, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		return w, nil
	}

	var msg protocol.UpdateMessage
	require.NoError(t, json.NewDecoder(w.Body).Decode(&msg))
	return w, &msg
}

func TestNameService_Root(t *testing.T) {
	_, router := setupTestNameService(t, "")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "hello world", w.Body.String())
}

func TestNameService_GetKey(t *testing.T) {
	reg, router := setupTestNameService(t, "")

	pub, _, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	require.NoError(t, reg.RegisterUser("unittest_user", pub))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/id/unittest_user", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, pub.Base64(), w.Body.String())

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/id/nobody", nil))
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestNameService_GetUnsetName(t *testing.T) {
	_, router := setupTestNameService(t, "")

	w, _ := getName(t, router, "test_no_name")
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestNameService_EndToEnd(t *testing.T) {
	reg, router := setupTestNameService(t, "")
	priv := testutil.RegisterTestUser(t, reg, "alice")

	sig, err := crypto.Sign(priv, []byte("alice doc1"))
	require.NoError(t, err)
	body := map[string]any{
		"user":         "alice",
		"utc":          "2024-01-02T15:04:05Z",
		"signature":    sig.Base64(),
		"new_contents": "doc1",
	}

	w := postUpdate(t, router, "home", body)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "ok", w.Body.String())

	w, first := getName(t, router, "home")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "alice", first.User)
	require.Equal(t, "doc1", first.NewContents)
	require.Equal(t, sig.Base64(), first.Signature)

	// Re-applying the identical body is idempotent
	w = postUpdate(t, router, "home", body)
	require.Equal(t, http.StatusOK, w.Code)
	_, again := getName(t, router, "home")
	require.Equal(t, first, again)

	// An unsigned update is rejected and leaves the entry alone
	body["signature"] = ""
	body["new_contents"] = "aieeee!"
	w = postUpdate(t, router, "home", body)
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Contains(t, w.Body.String(), "MalformedSignature")

	_, after := getName(t, router, "home")
	require.Equal(t, first, after)
}

func TestNameService_RejectsInvalidSignature(t *testing.T) {
	reg, router := setupTestNameService(t, "")
	testutil.RegisterTestUser(t, reg, "alice")

	_, otherPriv, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	msg, err := protocol.NewUpdateMessage(otherPriv, "alice", "doc1")
	require.NoError(t, err)

	w := postUpdate(t, router, "home", msg)
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Contains(t, w.Body.String(), "InvalidSignature")

	w, _ = getName(t, router, "home")
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestNameService_RejectsUnknownUser(t *testing.T) {
	_, router := setupTestNameService(t, "")

	_, priv, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	msg, err := protocol.NewUpdateMessage(priv, "ghost", "doc1")
	require.NoError(t, err)

	w := postUpdate(t, router, "home", msg)
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Contains(t, w.Body.String(), "UnknownUser(ghost)")
}

func TestNameService_MalformedBody(t *testing.T) {
	_, router := setupTestNameService(t, "")

	req := httptest.NewRequest("POST", "/name/home", strings.NewReader("{not json"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusBadRequest, w.Code)

	req = httptest.NewRequest("POST", "/name/home", strings.NewReader(`{"user": 42}`))
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestNameService_ConcurrentSubmissions(t *testing.T) {
	reg, router := setupTestNameService(t, "")

	const writers = 16
	msgs := make([]*protocol.UpdateMessage, writers)
	for i := range msgs {
		user := fmt.Sprintf("user%d", i)
		priv := testutil.RegisterTestUser(t, reg, user)
		msg, err := protocol.NewUpdateMessage(priv, user, fmt.Sprintf("doc%d", i))
		require.NoError(t, err)
		msgs[i] = msg
	}

	var wg sync.WaitGroup
	codes := make([]int, writers)
	for i := range msgs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			body, _ := json.Marshal(msgs[i])
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest("POST", "/name/shared", bytes.NewReader(body)))
			codes[i] = w.Code
		}(i)
	}
	wg.Wait()

	for i, code := range codes {
		require.Equal(t, http.StatusOK, code, "writer %d", i)
	}

	_, got := getName(t, router, "shared")
	require.NotNil(t, got)

	found := false
	for _, m := range msgs {
		if m.User == got.User {
			require.Equal(t, m.NewContents, got.NewContents)
			require.Equal(t, m.Signature, got.Signature)
			found = true
		}
	}
	require.True(t, found)
}

func TestNameService_AdminRegisterWithKey(t *testing.T) {
	reg, router := setupTestNameService(t, "admin:secret")

	pub, _, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	body, err := json.Marshal(&RegisterUserRequest{PublicKey: pub.Base64()})
	require.NoError(t, err)

	req := httptest.NewRequest("POST", "/admin/id/alice", bytes.NewReader(body))
	req.SetBasicAuth("admin", "secret")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp RegisterUserResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.Equal(t, "alice", resp.Username)
	require.Equal(t, pub.Base64(), resp.PublicKey)
	require.Empty(t, resp.PrivateKey)

	got, ok := reg.LookupKey("alice")
	require.True(t, ok)
	require.True(t, pub.Equal(got))
}

func TestNameService_AdminGenerateUser(t *testing.T) {
	reg, router := setupTestNameService(t, "admin:secret")

	req := httptest.NewRequest("POST", "/admin/id/icefox", nil)
	req.SetBasicAuth("admin", "secret")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp RegisterUserResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.NotEmpty(t, resp.PrivateKey)

	priv, err := crypto.ParsePrivateKey(resp.PrivateKey)
	require.NoError(t, err)

	// The generated key can sign updates the registry accepts
	msg, err := protocol.NewUpdateMessage(priv, "icefox", "doc1")
	require.NoError(t, err)
	require.NoError(t, reg.ApplyUpdate("conversation", msg))
}

func TestNameService_AdminAuthRequired(t *testing.T) {
	_, router := setupTestNameService(t, "admin:secret")

	req := httptest.NewRequest("POST", "/admin/id/alice", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest("GET", "/admin/users", nil)
	req.SetBasicAuth("admin", "wrongpassword")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestNameService_AdminRegisterInvalid(t *testing.T) {
	_, router := setupTestNameService(t, "admin:secret")

	req := httptest.NewRequest("POST", "/admin/id/alice", strings.NewReader(`{"public_key": "AAAA"}`))
	req.SetBasicAuth("admin", "secret")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusBadRequest, w.Code)

	req = httptest.NewRequest("POST", "/admin/id/alice", strings.NewReader(`{broken`))
	req.SetBasicAuth("admin", "secret")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusBadRequest, w.Code)

	// %20 decodes to a space, which usernames may not contain
	req = httptest.NewRequest("POST", "/admin/id/ali%20ce", nil)
	req.SetBasicAuth("admin", "secret")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestNameService_AdminListings(t *testing.T) {
	reg, router := setupTestNameService(t, "admin:secret")
	priv := testutil.RegisterTestUser(t, reg, "bob")
	testutil.RegisterTestUser(t, reg, "alice")

	msg, err := protocol.NewUpdateMessage(priv, "bob", "doc1")
	require.NoError(t, err)
	require.NoError(t, reg.ApplyUpdate("home", msg))

	req := httptest.NewRequest("GET", "/admin/users", nil)
	req.SetBasicAuth("admin", "secret")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var users UserListResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&users))
	require.Equal(t, []string{"alice", "bob"}, users.Users)

	req = httptest.NewRequest("GET", "/admin/names", nil)
	req.SetBasicAuth("admin", "secret")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var names NameListResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&names))
	require.Equal(t, []string{"home"}, names.Names)

	req = httptest.NewRequest("GET", "/admin/stats", nil)
	req.SetBasicAuth("admin", "secret")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var stats registry.Stats
	require.NoError(t, json.NewDecoder(w.Body).Decode(&stats))
	require.Equal(t, registry.Stats{Users: 2, Names: 1}, stats)
}

func TestNameService_AdminDisabledWithoutToken(t *testing.T) {
	reg, router := setupTestNameService(t, "")
	owner, _ := testutil.GenerateTestKeyPair(t)
	require.NoError(t, reg.RegisterUser("alice", owner))

	attacker, attackerPriv := testutil.GenerateTestKeyPair(t)
	body, err := json.Marshal(&RegisterUserRequest{PublicKey: attacker.Base64()})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("POST", "/admin/id/alice", bytes.NewReader(body)))
	require.Equal(t, http.StatusNotFound, w.Code)

	for _, path := range []string{"/admin/users", "/admin/names", "/admin/stats"} {
		w = httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", path, nil))
		require.Equal(t, http.StatusNotFound, w.Code, path)
	}

	got, ok := reg.LookupKey("alice")
	require.True(t, ok)
	require.True(t, owner.Equal(got))

	// The attacker's key still cannot write as alice
	w = postUpdate(t, router, "home", testutil.SignedUpdate(t, attackerPriv, "alice", "evil"))
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Equal(t, "InvalidSignature\n", w.Body.String())
}

func TestNameService_AdminRoutesRefuseWithoutToken(t *testing.T) {
	reg := registry.New()
	svc := NewNameService(reg, &NameServiceConfig{Log: slog.New(slog.NewTextHandler(io.Discard, nil))})

	// Mounted explicitly, the admin routes still refuse every request
	r := chi.NewRouter()
	r.Route("/admin", svc.RegisterAdminRoutes)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/admin/id/mallory", nil))
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Empty(t, reg.Users())
}

func TestNameService_MalformedUpdateBodies(t *testing.T) {
	reg, router := setupTestNameService(t, "")
	priv := testutil.RegisterTestUser(t, reg, "alice")
	valid, err := protocol.SerializeMessage(testutil.SignedUpdate(t, priv, "alice", "doc1"))
	require.NoError(t, err)

	sig, err := crypto.Sign(priv, []byte("alice doc1"))
	require.NoError(t, err)
	noUTC, err := json.Marshal(map[string]string{
		"user":         "alice",
		"signature":    sig.Base64(),
		"new_contents": "doc1",
	})
	require.NoError(t, err)

	for name, body := range map[string]string{
		"empty object":     `{}`,
		"null":             `null`,
		"missing utc":      string(noUTC),
		"trailing garbage": string(valid) + "garbage",
		"two messages":     string(valid) + "\n" + string(valid),
	} {
		req := httptest.NewRequest("POST", "/name/home", strings.NewReader(body))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		require.Equal(t, http.StatusBadRequest, w.Code, name)
		require.Contains(t, w.Body.String(), "malformed update", name)
	}

	w, _ := getName(t, router, "home")
	require.Equal(t, http.StatusNotFound, w.Code)

	// The same message without trailing data is accepted
	req := httptest.NewRequest("POST", "/name/home", bytes.NewReader(valid))
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestParseAdminToken(t *testing.T) {
	user, pass := ParseAdminToken("admin:secret:with:colons")
	require.Equal(t, "admin", user)
	require.Equal(t, "secret:with:colons", pass)

	user, pass = ParseAdminToken("solo")
	require.Equal(t, "solo", user)
	require.Empty(t, pass)
}
