package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/subtle"
	"crypto/x509"
	"encoding/base64"
	"errors"
	"fmt"
)

var (
	// ErrInvalidKey is returned when key material has the wrong size or format.
	ErrInvalidKey = errors.New("invalid key")

	// ErrMalformedSignature is returned when a signature cannot be decoded
	// from its textual encoding or has the wrong length.
	ErrMalformedSignature = errors.New("malformed signature")
)

// PublicKey represents an Ed25519 public key bound to a username.
type PublicKey []byte

// NewPublicKeyFromBytes creates a PublicKey from a byte slice.
// The input is copied and must be exactly ed25519.PublicKeySize bytes.
func NewPublicKeyFromBytes(data []byte) (PublicKey, error) {
	if len(data) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("%w: public key must be %d bytes (got %d)", ErrInvalidKey, ed25519.PublicKeySize, len(data))
	}
	pk := make([]byte, len(data))
	copy(pk, data)
	return PublicKey(pk), nil
}

// NewPublicKeyFromBase64 creates a PublicKey from its standard base64 text form.
func NewPublicKeyFromBase64(data string) (PublicKey, error) {
	rawBytes, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return NewPublicKeyFromBytes(rawBytes)
}

// Bytes returns the public key as a byte slice.
func (pk PublicKey) Bytes() []byte {
	return pk
}

// Equal compares two public keys in constant time.
func (pk PublicKey) Equal(other PublicKey) bool {
	return subtle.ConstantTimeCompare(pk, other) == 1
}

// Base64 returns the wire encoding of the public key.
func (pk PublicKey) Base64() string {
	return base64.StdEncoding.EncodeToString(pk)
}

// String returns the base64 encoding of the public key.
func (pk PublicKey) String() string {
	return pk.Base64()
}

// PrivateKey represents an Ed25519 private key (seed followed by public key).
// Private keys never leave the client except once, when the server generates
// a keypair on behalf of a new user.
type PrivateKey []byte

// NewPrivateKeyFromBytes creates a PrivateKey from a byte slice.
// This function makes a copy of the input data to ensure immutability.
func NewPrivateKeyFromBytes(data []byte) PrivateKey {
	sk := make([]byte, len(data))
	copy(sk, data)
	return PrivateKey(sk)
}

// Bytes returns the private key as a byte slice.
// This method should be used carefully as it exposes sensitive key material.
func (sk PrivateKey) Bytes() []byte {
	return sk
}

// PublicKey derives the public key corresponding to this private key.
// For Ed25519, the public key is contained within the private key structure.
func (sk PrivateKey) PublicKey() (PublicKey, error) {
	if len(sk) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("%w: private key must be %d bytes (got %d)", ErrInvalidKey, ed25519.PrivateKeySize, len(sk))
	}
	return NewPublicKeyFromBytes(sk[ed25519.SeedSize:])
}

// MarshalPrivateKey encodes the private key as base64 PKCS#8.
func MarshalPrivateKey(sk PrivateKey) (string, error) {
	if len(sk) != ed25519.PrivateKeySize {
		return "", fmt.Errorf("%w: private key must be %d bytes (got %d)", ErrInvalidKey, ed25519.PrivateKeySize, len(sk))
	}
	der, err := x509.MarshalPKCS8PrivateKey(ed25519.PrivateKey(sk))
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(der), nil
}

// ParsePrivateKey decodes a base64 private key. PKCS#8 DER (v1 or v2) and
// the raw 64-byte Ed25519 form are accepted.
func ParsePrivateKey(data string) (PrivateKey, error) {
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	if len(raw) == ed25519.PrivateKeySize {
		return NewPrivateKeyFromBytes(raw), nil
	}

	parsed, err := x509.ParsePKCS8PrivateKey(raw)
	if err != nil {
		if sk, v2err := parseOneAsymmetricKey(raw); v2err == nil {
			return sk, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%w: not an ed25519 key (%T)", ErrInvalidKey, parsed)
	}
	return NewPrivateKeyFromBytes(edKey), nil
}

// GenerateKeyPair generates a new Ed25519 key pair for signing and verification.
func GenerateKeyPair() (PublicKey, PrivateKey, error) {
	publicKey, privateKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, nil, err
	}
	return PublicKey(publicKey), PrivateKey(privateKey), nil
}

// Signature represents an Ed25519 signature over a canonical message.
type Signature []byte

// NewSignature creates a Signature from a byte slice.
// This function makes a copy of the input data to ensure immutability.
func NewSignature(data []byte) Signature {
	sig := make([]byte, len(data))
	copy(sig, data)
	return Signature(sig)
}

// DecodeSignature parses the base64 text form of a signature.
// Failures wrap ErrMalformedSignature and are never reported as a
// verification mismatch.
func DecodeSignature(data string) (Signature, error) {
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSignature, err)
	}
	if len(raw) != ed25519.SignatureSize {
		return nil, fmt.Errorf("%w: signature must be %d bytes (got %d)", ErrMalformedSignature, ed25519.SignatureSize, len(raw))
	}
	return Signature(raw), nil
}

// Bytes returns the signature as a byte slice.
func (s Signature) Bytes() []byte {
	return []byte(s)
}

// Verify checks if this signature is valid for the given data and public key.
// Verify has no side effects and never panics on malformed keys.
func (s Signature) Verify(publicKey PublicKey, data []byte) bool {
	if len(publicKey) != ed25519.PublicKeySize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(publicKey), data, s)
}

// Base64 returns the wire encoding of the signature.
func (s Signature) Base64() string {
	return base64.StdEncoding.EncodeToString(s)
}

// String returns the base64 encoding of the signature.
func (s Signature) String() string {
	return s.Base64()
}

// Sign signs data with the given private key using Ed25519.
// Ed25519 signatures are deterministic.
func Sign(privateKey PrivateKey, data []byte) (Signature, error) {
	if len(privateKey) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("%w: private key must be %d bytes (got %d)", ErrInvalidKey, ed25519.PrivateKeySize, len(privateKey))
	}
	signature := ed25519.Sign(ed25519.PrivateKey(privateKey), data)
	return Signature(signature), nil
}
