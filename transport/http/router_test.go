package http

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/layer-3/creator-ledger/adapters/events"
	"github.com/layer-3/creator-ledger/adapters/memory"
	"github.com/layer-3/creator-ledger/adapters/ratelimit"
	"github.com/layer-3/creator-ledger/adapters/store"
	"github.com/layer-3/creator-ledger/adapters/tokenizer"
	"github.com/layer-3/creator-ledger/core"
	"github.com/layer-3/creator-ledger/internal/eth"
	"github.com/layer-3/creator-ledger/internal/message"
	"github.com/layer-3/creator-ledger/ports"
	"github.com/layer-3/creator-ledger/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testWallet struct {
	key   *ecdsa.PrivateKey
	addr  eth.Address
	token string
}

func newTestWallet(t *testing.T) *testWallet {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return &testWallet{key: key, addr: eth.AddressFromCommon(crypto.PubkeyToAddress(key.PublicKey))}
}

func (w *testWallet) sign(t *testing.T, msg string) string {
	t.Helper()
	sig, err := eth.SignPersonal(w.key, msg)
	require.NoError(t, err)
	return sig
}

type testServer struct {
	router  *gin.Engine
	builder *message.Builder
	admin   *testWallet
}

func newTestServer(t *testing.T, limits Limits) *testServer {
	t.Helper()

	signKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	logger := zap.NewNop()
	pub := events.NewNopPublisher(logger)
	authService := service.NewAuthService(
		service.DefaultAuthConfig(),
		tokenizer.NewJWTTokenizer(signKey, "creator-ledger"),
		store.NewMemoryStore(),
		memory.NewIdentityStore(),
		pub,
		logger,
	)
	claimService := service.NewClaimService(memory.NewClaimStore(), pub, logger, message.SystemClock{}, "https://ledger.example")

	rl := ratelimit.NewMemoryStore(time.Minute)
	t.Cleanup(rl.Close)

	admin := newTestWallet(t)
	router, err := SetupRouter(RouterDeps{
		AuthService:  authService,
		ClaimService: claimService,
		RateLimits:   rl,
		Limits:       limits,
		AdminWallets: []string{string(admin.addr.Checksummed())},
		Logger:       logger,
	})
	require.NoError(t, err)

	return &testServer{router: router, builder: message.NewBuilder(nil), admin: admin}
}

func generousLimits() Limits {
	l := ports.Limit{Max: 1000, Window: time.Minute}
	return Limits{Auth: l, Claims: l, Default: l}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

// signIn exchanges a fresh signed message for w and stores the access token
func (s *testServer) signIn(t *testing.T, w *testWallet) {
	t.Helper()

	msg := s.builder.Build(message.KindAuth, message.Fields{Address: w.addr.Normalized()})
	resp := s.do(t, http.MethodPost, "/auth/wallet", "", map[string]string{
		"walletAddress": string(w.addr.Checksummed()),
		"signature":     w.sign(t, msg),
		"message":       msg,
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	body := decode(t, resp)
	w.token = body["access_token"].(string)
}

func (s *testServer) submit(t *testing.T, w *testWallet, rawURL string) map[string]any {
	t.Helper()
	resp := s.do(t, http.MethodPost, "/api/claims", w.token, map[string]string{"url": rawURL, "title": "post"})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	return decode(t, resp)
}

// verify marks a claim verified as the admin wallet, which must be signed in
func (s *testServer) verify(t *testing.T, id string) {
	t.Helper()
	resp := s.do(t, http.MethodPatch, "/api/admin/claims/"+id, s.admin.token, map[string]string{"status": "verified"})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
}

func TestWalletSignIn(t *testing.T) {
	s := newTestServer(t, generousLimits())
	w := newTestWallet(t)

	msg := s.builder.Build(message.KindAuth, message.Fields{Address: w.addr.Normalized()})
	resp := s.do(t, http.MethodPost, "/auth/wallet", "", map[string]string{
		"walletAddress": w.addr.Normalized(),
		"signature":     w.sign(t, msg),
		"message":       msg,
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	body := decode(t, resp)
	assert.Equal(t, "Bearer", body["token_type"])
	assert.NotEmpty(t, body["access_token"])
	assert.NotEmpty(t, body["refresh_token"])
	assert.EqualValues(t, 900, body["expires_in"])

	user := body["user"].(map[string]any)
	assert.Equal(t, w.addr.Normalized(), user["wallet_address"])
	meta := user["user_metadata"].(map[string]any)
	assert.Equal(t, w.addr.Normalized(), meta["address"])

	// The same message cannot be exchanged twice
	resp = s.do(t, http.MethodPost, "/auth/wallet", "", map[string]string{
		"walletAddress": w.addr.Normalized(),
		"signature":     w.sign(t, msg),
		"message":       msg,
	})
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestWalletSignIn_Rejections(t *testing.T) {
	s := newTestServer(t, generousLimits())
	w := newTestWallet(t)
	other := newTestWallet(t)

	msg := s.builder.Build(message.KindAuth, message.Fields{Address: w.addr.Normalized()})

	tests := []struct {
		name   string
		body   any
		status int
	}{
		{"missing fields", map[string]string{"walletAddress": w.addr.Normalized()}, http.StatusBadRequest},
		{"bad address", map[string]string{"walletAddress": "0x123", "signature": "0x00", "message": msg}, http.StatusBadRequest},
		{"signed by another wallet", map[string]string{"walletAddress": w.addr.Normalized(), "signature": other.sign(t, msg), "message": msg}, http.StatusUnauthorized},
		{"not an auth message", map[string]string{"walletAddress": w.addr.Normalized(), "signature": w.sign(t, "hello"), "message": "hello"}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := s.do(t, http.MethodPost, "/auth/wallet", "", tt.body)
			assert.Equal(t, tt.status, resp.Code, resp.Body.String())
			assert.Contains(t, decode(t, resp), "error")
		})
	}
}

func TestRefreshAndLogout(t *testing.T) {
	s := newTestServer(t, generousLimits())
	w := newTestWallet(t)

	msg := s.builder.Build(message.KindAuth, message.Fields{Address: w.addr.Normalized()})
	resp := s.do(t, http.MethodPost, "/auth/wallet", "", map[string]string{
		"walletAddress": w.addr.Normalized(),
		"signature":     w.sign(t, msg),
		"message":       msg,
	})
	require.Equal(t, http.StatusOK, resp.Code)
	refresh := decode(t, resp)["refresh_token"].(string)

	resp = s.do(t, http.MethodPost, "/auth/refresh", "", map[string]string{"refresh_token": refresh})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	rotated := decode(t, resp)["refresh_token"].(string)

	// The old refresh token was rotated out
	resp = s.do(t, http.MethodPost, "/auth/refresh", "", map[string]string{"refresh_token": refresh})
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	resp = s.do(t, http.MethodPost, "/auth/logout", "", map[string]string{"refresh_token": rotated})
	assert.Equal(t, http.StatusOK, resp.Code)

	resp = s.do(t, http.MethodPost, "/auth/refresh", "", map[string]string{"refresh_token": rotated})
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	resp = s.do(t, http.MethodPost, "/auth/refresh", "", map[string]string{"refresh_token": "garbage"})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestProtectedRoutes_RequireToken(t *testing.T) {
	s := newTestServer(t, generousLimits())

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/me"},
		{http.MethodPost, "/api/claims"},
		{http.MethodPost, "/api/claims/00000000-0000-0000-0000-000000000000/endorsements"},
		{http.MethodGet, "/api/admin/duplicates"},
	} {
		t.Run(tc.path, func(t *testing.T) {
			resp := s.do(t, tc.method, tc.path, "", nil)
			assert.Equal(t, http.StatusForbidden, resp.Code)
			assert.Equal(t, "Unauthorized", decode(t, resp)["error"])

			resp = s.do(t, tc.method, tc.path, "not-a-token", nil)
			assert.Equal(t, http.StatusForbidden, resp.Code)
		})
	}
}

func TestMe(t *testing.T) {
	s := newTestServer(t, generousLimits())
	w := newTestWallet(t)
	s.signIn(t, w)

	resp := s.do(t, http.MethodGet, "/api/me", w.token, nil)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	body := decode(t, resp)
	assert.Equal(t, string(w.addr.Checksummed()), body["address"])
}

func TestProfile_OwnerVersusAnonymous(t *testing.T) {
	s := newTestServer(t, generousLimits())
	w := newTestWallet(t)
	s.signIn(t, w)

	s.submit(t, w, "https://example.com/post")
	path := "/api/profiles/" + w.addr.Normalized()

	resp := s.do(t, http.MethodGet, path, "", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	anon := decode(t, resp)
	assert.Equal(t, false, anon["owner"])
	assert.Empty(t, anon["claims"])
	assert.EqualValues(t, 0, anon["verified_count"])

	resp = s.do(t, http.MethodGet, path, w.token, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	own := decode(t, resp)
	assert.Equal(t, true, own["owner"])
	assert.Len(t, own["claims"], 1)

	// An invalid token falls back to the anonymous view
	resp = s.do(t, http.MethodGet, path, "bogus", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, false, decode(t, resp)["owner"])

	resp = s.do(t, http.MethodGet, "/api/profiles/not-an-address", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestClaimDetail_Visibility(t *testing.T) {
	s := newTestServer(t, generousLimits())
	w := newTestWallet(t)
	s.signIn(t, w)
	s.signIn(t, s.admin)

	id := s.submit(t, w, "https://example.com/post")["claim"].(map[string]any)["id"].(string)

	resp := s.do(t, http.MethodGet, "/api/claims/"+id, "", nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)

	resp = s.do(t, http.MethodGet, "/api/claims/"+id, w.token, nil)
	assert.Equal(t, http.StatusOK, resp.Code)

	resp = s.do(t, http.MethodPatch, "/api/admin/claims/"+id, s.admin.token, map[string]string{"status": "verified"})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	resp = s.do(t, http.MethodGet, "/api/claims/"+id, "", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "verified", decode(t, resp)["status"])

	resp = s.do(t, http.MethodGet, "/api/claims/not-a-uuid", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestDuplicateGrouping(t *testing.T) {
	s := newTestServer(t, generousLimits())
	alice := newTestWallet(t)
	bob := newTestWallet(t)
	s.signIn(t, alice)
	s.signIn(t, bob)
	s.signIn(t, s.admin)

	first := s.submit(t, alice, "https://example.com/Post/")
	assert.Empty(t, first["duplicates"])
	s.verify(t, first["claim"].(map[string]any)["id"].(string))

	second := s.submit(t, bob, "HTTPS://example.com/post?utm_source=feed#top")
	dups := second["duplicates"].([]any)
	require.Len(t, dups, 1)
	assert.Equal(t, alice.addr.Normalized(), dups[0].(map[string]any)["wallet_address"])

	s.submit(t, bob, "https://example.com/unrelated")

	resp := s.do(t, http.MethodGet, "/api/admin/duplicates", bob.token, nil)
	assert.Equal(t, http.StatusForbidden, resp.Code)
	assert.Equal(t, "Forbidden", decode(t, resp)["error"])

	resp = s.do(t, http.MethodGet, "/api/admin/duplicates", s.admin.token, nil)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	groups := decode(t, resp)["groups"].([]any)
	require.Len(t, groups, 1)
	group := groups[0].(map[string]any)
	assert.Equal(t, first["claim"].(map[string]any)["content_hash"], group["content_hash"])
	assert.Len(t, group["claims"], 2)
}

func TestUnreviewedClaim_HiddenFromOtherWallets(t *testing.T) {
	s := newTestServer(t, generousLimits())
	alice := newTestWallet(t)
	bob := newTestWallet(t)
	s.signIn(t, alice)
	s.signIn(t, bob)

	id := s.submit(t, alice, "https://example.com/secret-draft")["claim"].(map[string]any)["id"].(string)

	resp := s.do(t, http.MethodGet, "/api/claims/"+id, bob.token, nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)

	// Resubmitting the same content does not reveal the hidden claim
	res := s.submit(t, bob, "https://example.com/secret-draft")
	assert.Empty(t, res["duplicates"])

	msg := s.builder.Build(message.KindEndorsement, message.Fields{Address: bob.addr.Normalized(), EntryID: id, Vote: "dispute"})
	resp = s.do(t, http.MethodPost, "/api/claims/"+id+"/endorsements", bob.token, map[string]string{
		"vote":      "dispute",
		"signature": bob.sign(t, msg),
		"message":   msg,
	})
	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.NotContains(t, resp.Body.String(), "secret-draft")
}

func TestReview_Rejections(t *testing.T) {
	s := newTestServer(t, generousLimits())
	w := newTestWallet(t)
	s.signIn(t, w)
	s.signIn(t, s.admin)

	id := s.submit(t, w, "https://example.com/post")["claim"].(map[string]any)["id"].(string)

	resp := s.do(t, http.MethodPatch, "/api/admin/claims/"+id, w.token, map[string]string{"status": "verified"})
	assert.Equal(t, http.StatusForbidden, resp.Code)

	resp = s.do(t, http.MethodPatch, "/api/admin/claims/"+id, s.admin.token, map[string]string{"status": "unverified"})
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = s.do(t, http.MethodPatch, "/api/admin/claims/00000000-0000-0000-0000-000000000000", s.admin.token, map[string]string{"status": "rejected"})
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestSubmit_InvalidURL(t *testing.T) {
	s := newTestServer(t, generousLimits())
	w := newTestWallet(t)
	s.signIn(t, w)

	resp := s.do(t, http.MethodPost, "/api/claims", w.token, map[string]string{"url": "ftp://example.com/file"})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestEndorse(t *testing.T) {
	s := newTestServer(t, generousLimits())
	owner := newTestWallet(t)
	voter := newTestWallet(t)
	s.signIn(t, owner)
	s.signIn(t, voter)
	s.signIn(t, s.admin)

	id := s.submit(t, owner, "https://example.com/post")["claim"].(map[string]any)["id"].(string)
	s.verify(t, id)
	path := "/api/claims/" + id + "/endorsements"

	vote := func(w *testWallet, v string) *httptest.ResponseRecorder {
		msg := s.builder.Build(message.KindEndorsement, message.Fields{Address: w.addr.Normalized(), EntryID: id, Vote: v})
		return s.do(t, http.MethodPost, path, w.token, map[string]string{
			"vote":      v,
			"signature": w.sign(t, msg),
			"message":   msg,
		})
	}

	resp := vote(voter, "endorse")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	body := decode(t, resp)
	assert.EqualValues(t, 1, body["endorsements"])
	assert.EqualValues(t, 0, body["disputes"])

	// A second vote replaces the first
	resp = vote(voter, "dispute")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	body = decode(t, resp)
	assert.EqualValues(t, 0, body["endorsements"])
	assert.EqualValues(t, 1, body["disputes"])

	resp = vote(owner, "endorse")
	assert.Equal(t, http.StatusForbidden, resp.Code)

	resp = vote(voter, "like")
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestSignedClaim_VerifyLink(t *testing.T) {
	s := newTestServer(t, generousLimits())
	w := newTestWallet(t)
	s.signIn(t, w)

	rawURL := "https://example.com/signed"
	msg := s.builder.Build(message.KindClaim, message.Fields{Address: w.addr.Normalized(), URL: rawURL})
	resp := s.do(t, http.MethodPost, "/api/claims", w.token, map[string]string{
		"url":       rawURL,
		"signature": w.sign(t, msg),
		"message":   msg,
	})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	link, err := url.Parse(decode(t, resp)["verify_url"].(string))
	require.NoError(t, err)
	assert.Equal(t, "ledger.example", link.Host)

	resp = s.do(t, http.MethodGet, "/verify?"+link.RawQuery, "", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	body := decode(t, resp)
	assert.Equal(t, true, body["valid"])
	assert.Equal(t, string(w.addr.Checksummed()), body["address"])

	q := link.Query()
	q.Set("message", msg+" tampered")
	resp = s.do(t, http.MethodGet, "/verify?"+q.Encode(), "", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, false, decode(t, resp)["valid"])
}

func TestRateLimit_AuthScope(t *testing.T) {
	limits := generousLimits()
	limits.Auth = ports.Limit{Max: 3, Window: time.Minute}
	s := newTestServer(t, limits)

	var codes []int
	for i := 0; i < 4; i++ {
		resp := s.do(t, http.MethodPost, "/auth/wallet", "", map[string]string{})
		codes = append(codes, resp.Code)
		if i < 3 {
			assert.Equal(t, "3", resp.Header().Get("X-RateLimit-Limit"))
			assert.Equal(t, []string{"2", "1", "0"}[i], resp.Header().Get("X-RateLimit-Remaining"))
		}
	}
	assert.Equal(t, []int{400, 400, 400, 429}, codes)

	resp := s.do(t, http.MethodPost, "/auth/wallet", "", map[string]string{})
	require.Equal(t, http.StatusTooManyRequests, resp.Code)
	assert.Equal(t, "0", resp.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, resp.Header().Get("Retry-After"))

	body := decode(t, resp)
	assert.Equal(t, "Rate limit exceeded", body["error"])
	assert.Greater(t, body["retryAfter"].(float64), float64(0))

	// Other scopes are counted separately
	resp = s.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, resp.Code)
	resp = s.do(t, http.MethodPost, "/auth/refresh", "", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

type failingLimiter struct{}

func (failingLimiter) Check(_ context.Context, _ string, _ ports.Limit) (ports.RateLimitResult, error) {
	return ports.RateLimitResult{}, errors.New("redis down")
}

func TestRateLimit_FailsOpen(t *testing.T) {
	router := gin.New()
	router.GET("/x", RateLimit(failingLimiter{}, ports.Limit{Max: 1, Window: time.Minute}, "x", KeyByIP, zap.NewNop()), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
		assert.Equal(t, http.StatusNoContent, w.Code)
	}
}

func TestRateLimit_RecordsRejection(t *testing.T) {
	rl := ratelimit.NewMemoryStore(time.Minute)
	t.Cleanup(rl.Close)

	var recorded []error
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Next()
		for _, e := range c.Errors {
			recorded = append(recorded, e.Err)
		}
	})
	router.GET("/x", RateLimit(rl, ports.Limit{Max: 1, Window: time.Minute}, "x", KeyByIP, zap.NewNop()), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	for i := 0; i < 2; i++ {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))
	}

	require.Len(t, recorded, 1)
	assert.ErrorIs(t, recorded[0], core.ErrRateLimited)
}

func TestSetupRouter_RejectsInvalidAdminWallet(t *testing.T) {
	_, err := SetupRouter(RouterDeps{
		RateLimits:   failingLimiter{},
		Limits:       generousLimits(),
		AdminWallets: []string{"0xnot-an-address"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "0xnot-an-address")
}
