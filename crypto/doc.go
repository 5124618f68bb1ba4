// Package crypto provides the signature primitives for the name registry.
//
// Users are identified by Ed25519 public keys. The package wraps
// crypto/ed25519 with byte types that carry their wire encodings:
//
//   - PublicKey: raw 32-byte key, base64 on the wire
//   - PrivateKey: 64-byte key, exchanged as base64 PKCS#8
//   - Signature: 64-byte detached signature, base64 on the wire
//
// Decoding a signature from text and verifying it are separate steps so that
// callers can tell a malformed signature apart from one that does not match.
package crypto
