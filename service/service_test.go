package service

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/layer-3/creator-ledger/adapters/events"
	"github.com/layer-3/creator-ledger/adapters/memory"
	"github.com/layer-3/creator-ledger/adapters/store"
	"github.com/layer-3/creator-ledger/adapters/tokenizer"
	"github.com/layer-3/creator-ledger/internal/eth"
	"github.com/layer-3/creator-ledger/internal/message"
)

// testClock is a settable clock starting at the current time
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Now().UTC()}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type wallet struct {
	key  *ecdsa.PrivateKey
	addr eth.Address
}

func newWallet(t *testing.T) wallet {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return wallet{key: key, addr: eth.AddressFromCommon(crypto.PubkeyToAddress(key.PublicKey))}
}

func (w wallet) sign(t *testing.T, msg string) string {
	t.Helper()
	sig, err := eth.SignPersonal(w.key, msg)
	require.NoError(t, err)
	return sig
}

type fixture struct {
	clock      *testClock
	builder    *message.Builder
	store      *store.MemoryStore
	identities *memory.IdentityStore
	claimStore *memory.ClaimStore
	auth       *AuthService
	authn      *Authenticator
	claims     *ClaimService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	signKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	f := &fixture{
		clock:      newTestClock(),
		store:      store.NewMemoryStore(),
		identities: memory.NewIdentityStore(),
		claimStore: memory.NewClaimStore(),
	}
	f.builder = message.NewBuilder(f.clock)

	cfg := DefaultAuthConfig()
	cfg.Clock = f.clock
	pub := events.NewNopPublisher(zap.NewNop())

	f.auth = NewAuthService(cfg, tokenizer.NewJWTTokenizer(signKey, "creator-ledger"), f.store, f.identities, pub, zap.NewNop())
	f.authn = NewAuthenticator(f.auth)
	f.claims = NewClaimService(f.claimStore, pub, zap.NewNop(), f.clock, "https://ledger.example")
	return f
}

// signIn builds and signs a fresh auth message for w
func (f *fixture) signIn(t *testing.T, w wallet) ExchangeRequest {
	t.Helper()
	msg := f.builder.Build(message.KindAuth, message.Fields{Address: w.addr.Normalized()})
	return ExchangeRequest{
		WalletAddress: w.addr.Normalized(),
		Signature:     w.sign(t, msg),
		Message:       msg,
	}
}

func ctx() context.Context {
	return context.Background()
}
