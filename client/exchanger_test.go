package client

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
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
	"github.com/layer-3/creator-ledger/internal/eth"
	"github.com/layer-3/creator-ledger/internal/message"
	"github.com/layer-3/creator-ledger/ports"
	"github.com/layer-3/creator-ledger/service"
	transport "github.com/layer-3/creator-ledger/transport/http"
)

func newLedgerServer(t *testing.T) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

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

	rl := ratelimit.NewMemoryStore(time.Minute)
	t.Cleanup(rl.Close)

	limit := ports.Limit{Max: 100, Window: time.Minute}
	router, err := transport.SetupRouter(transport.RouterDeps{
		AuthService:  authService,
		ClaimService: service.NewClaimService(memory.NewClaimStore(), pub, logger, message.SystemClock{}, "http://ledger.test"),
		RateLimits:   rl,
		Limits:       transport.Limits{Auth: limit, Claims: limit, Default: limit},
		Logger:       logger,
	})
	require.NoError(t, err)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func newSigner(t *testing.T) (string, SignFunc) {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	addr := crypto.PubkeyToAddress(key.PublicKey).Hex()
	return addr, func(_ context.Context, msg string) (string, error) {
		return eth.SignPersonal(key, msg)
	}
}

func TestAuthenticate_Success(t *testing.T) {
	srv := newLedgerServer(t)
	addr, sign := newSigner(t)

	e := NewExchanger(srv.URL, WithTimeout(5*time.Second))
	assert.Equal(t, Unauthenticated, e.State())
	assert.Nil(t, e.Session())

	var prompts int
	counting := func(ctx context.Context, msg string) (string, error) {
		prompts++
		assert.Equal(t, Verifying, e.State())
		return sign(ctx, msg)
	}

	s, err := e.Authenticate(context.Background(), addr, counting)
	require.NoError(t, err)
	assert.Equal(t, Authenticated, e.State())
	assert.NotEmpty(t, s.AccessToken)
	assert.Equal(t, "Bearer", s.TokenType)
	assert.Equal(t, eth.MustParseAddress(addr).Normalized(), s.User.WalletAddress)
	assert.True(t, s.ExpiresAt.After(time.Now()))

	// A cached session is reused without another prompt
	again, err := e.Authenticate(context.Background(), addr, counting)
	require.NoError(t, err)
	assert.Equal(t, s.AccessToken, again.AccessToken)
	assert.Equal(t, 1, prompts)

	refreshed, err := e.Refresh(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, s.RefreshToken, refreshed.RefreshToken)
	assert.Equal(t, refreshed.RefreshToken, e.Session().RefreshToken)

	require.NoError(t, e.SignOut(context.Background()))
	assert.Nil(t, e.Session())
	assert.Equal(t, Unauthenticated, e.State())

	_, err = e.Refresh(context.Background())
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestAuthenticate_DeclinedMakesNoRequest(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	addr, _ := newSigner(t)
	e := NewExchanger(srv.URL)

	_, err := e.Authenticate(context.Background(), addr, func(context.Context, string) (string, error) {
		return "", ErrSigningDeclined
	})
	assert.ErrorIs(t, err, ErrCancelled)
	assert.Equal(t, Unauthenticated, e.State())

	ctx, cancel := context.WithCancel(context.Background())
	_, err = e.Authenticate(ctx, addr, func(context.Context, string) (string, error) {
		cancel()
		return "", context.Canceled
	})
	assert.ErrorIs(t, err, ErrCancelled)

	assert.Zero(t, calls.Load())
}

func TestAuthenticate_InvalidAddress(t *testing.T) {
	e := NewExchanger("http://127.0.0.1:1")

	_, err := e.Authenticate(context.Background(), "0xnothex", func(context.Context, string) (string, error) {
		t.Fatal("wallet must not be prompted")
		return "", nil
	})
	assert.ErrorIs(t, err, ErrInvalidAddress)
}

func TestAuthenticate_WrongSigner(t *testing.T) {
	srv := newLedgerServer(t)
	addr, _ := newSigner(t)
	_, otherSign := newSigner(t)

	e := NewExchanger(srv.URL)
	_, err := e.Authenticate(context.Background(), addr, otherSign)
	assert.ErrorIs(t, err, ErrInvalidSignature)
	assert.Equal(t, Rejected, e.State())
	assert.Nil(t, e.Session())
}

func TestAuthenticate_StatusMapping(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		headers map[string]string
		check   func(t *testing.T, err error)
	}{
		{"bad request", http.StatusBadRequest, nil, func(t *testing.T, err error) {
			assert.ErrorIs(t, err, ErrInvalidInput)
		}},
		{"unauthorized", http.StatusUnauthorized, nil, func(t *testing.T, err error) {
			assert.ErrorIs(t, err, ErrInvalidSignature)
		}},
		{"server error", http.StatusInternalServerError, nil, func(t *testing.T, err error) {
			assert.ErrorIs(t, err, ErrIssuerFailure)
		}},
		{"rate limited", http.StatusTooManyRequests, map[string]string{"Retry-After": "42"}, func(t *testing.T, err error) {
			var rl *RateLimitedError
			require.True(t, errors.As(err, &rl))
			assert.Equal(t, 42*time.Second, rl.RetryAfter)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				for k, v := range tt.headers {
					w.Header().Set(k, v)
				}
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"error":"nope"}`))
			}))
			defer srv.Close()

			addr, sign := newSigner(t)
			_, err := NewExchanger(srv.URL).Authenticate(context.Background(), addr, sign)
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestAuthenticate_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	addr, sign := newSigner(t)
	_, err := NewExchanger(srv.URL, WithTimeout(50*time.Millisecond)).Authenticate(context.Background(), addr, sign)

	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.True(t, te.Temporary())
}
