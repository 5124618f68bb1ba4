package common

import (
	"fmt"
	"sort"

	"github.com/flashbots/namereg/crypto"
	"github.com/flashbots/namereg/registry"
)

// LoadOrGeneratePrivateKey parses an encoded private key, or generates a
// new one when encoded is empty.
func LoadOrGeneratePrivateKey(encoded string) (crypto.PrivateKey, error) {
	if encoded != "" {
		return crypto.ParsePrivateKey(encoded)
	}
	_, privKey, err := crypto.GenerateKeyPair()
	return privKey, err
}

// SeedRegistry registers every configured user. Users are registered in
// name order so errors are reported deterministically.
func SeedRegistry(reg *registry.Registry, users map[string]string) error {
	names := make([]string, 0, len(users))
	for name := range users {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		pubKey, err := crypto.NewPublicKeyFromBase64(users[name])
		if err != nil {
			return fmt.Errorf("user %s: %w", name, err)
		}
		if err := reg.RegisterUser(name, pubKey); err != nil {
			return fmt.Errorf("user %s: %w", name, err)
		}
	}
	return nil
}

// Bootstrap generates and registers a keypair for username, returning the
// encoded private key.
func Bootstrap(reg *registry.Registry, username string) (string, error) {
	privKey, err := LoadOrGeneratePrivateKey("")
	if err != nil {
		return "", err
	}
	pubKey, err := privKey.PublicKey()
	if err != nil {
		return "", err
	}
	if err := reg.RegisterUser(username, pubKey); err != nil {
		return "", err
	}
	return crypto.MarshalPrivateKey(privKey)
}
