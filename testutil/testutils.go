package testutil

import (
	"testing"
	"time"

	"github.com/flashbots/namereg/crypto"
	"github.com/flashbots/namereg/protocol"
	"github.com/stretchr/testify/require"
)

// FixedTime is the timestamp used by At in most tests.
var FixedTime = time.Date(2024, 1, 2, 15, 4, 5, 0, time.UTC)

// KeyRegistrar is satisfied by registry.Registry.
type KeyRegistrar interface {
	RegisterUser(username string, pubkey crypto.PublicKey) error
}

// GenerateTestKeyPair returns a fresh Ed25519 keypair.
func GenerateTestKeyPair(t testing.TB) (crypto.PublicKey, crypto.PrivateKey) {
	t.Helper()

	pub, priv, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	return pub, priv
}

// RegisterTestUser registers a fresh key for username and returns the
// private half.
func RegisterTestUser(t testing.TB, r KeyRegistrar, username string) crypto.PrivateKey {
	t.Helper()

	pub, priv := GenerateTestKeyPair(t)
	require.NoError(t, r.RegisterUser(username, pub))
	return priv
}

// EncodedKey returns the PKCS#8 text form of priv.
func EncodedKey(t testing.TB, priv crypto.PrivateKey) string {
	t.Helper()

	encoded, err := crypto.MarshalPrivateKey(priv)
	require.NoError(t, err)
	return encoded
}

// UpdateOption customizes SignedUpdate.
type UpdateOption func(*updateOptions)

type updateOptions struct {
	clock protocol.Clock
}

// At stamps the update with a fixed time.
func At(ts time.Time) UpdateOption {
	return func(o *updateOptions) {
		o.clock = func() time.Time { return ts }
	}
}

// SignedUpdate composes an update for contentRef signed by priv.
func SignedUpdate(t testing.TB, priv crypto.PrivateKey, user, contentRef string, opts ...UpdateOption) *protocol.UpdateMessage {
	t.Helper()

	o := &updateOptions{clock: protocol.UTCNow}
	for _, opt := range opts {
		opt(o)
	}

	msg, err := protocol.NewUpdateMessageAt(o.clock, priv, user, contentRef)
	require.NoError(t, err)
	return msg
}
