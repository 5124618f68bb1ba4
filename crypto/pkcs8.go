package crypto

import (
	"crypto/ed25519"
	"crypto/subtle"
	"encoding/asn1"
	"fmt"

	"golang.org/x/crypto/cryptobyte"
	cbasn1 "golang.org/x/crypto/cryptobyte/asn1"
)

var oidEd25519 = asn1.ObjectIdentifier{1, 3, 101, 112}

// parseOneAsymmetricKey handles RFC 5958 v2 Ed25519 keys, which carry the
// public key in an optional [1] field after the private key. The embedded
// public key must match the one derived from the seed.
func parseOneAsymmetricKey(der []byte) (PrivateKey, error) {
	var (
		input   = cryptobyte.String(der)
		key     cryptobyte.String
		algo    cryptobyte.String
		version int64
		oid     asn1.ObjectIdentifier
		privStr cryptobyte.String
		seed    cryptobyte.String
	)

	if !input.ReadASN1(&key, cbasn1.SEQUENCE) || !input.Empty() {
		return nil, fmt.Errorf("%w: malformed pkcs8 envelope", ErrInvalidKey)
	}
	if !key.ReadASN1Integer(&version) || (version != 0 && version != 1) {
		return nil, fmt.Errorf("%w: unsupported pkcs8 version", ErrInvalidKey)
	}
	if !key.ReadASN1(&algo, cbasn1.SEQUENCE) || !algo.ReadASN1ObjectIdentifier(&oid) {
		return nil, fmt.Errorf("%w: malformed algorithm identifier", ErrInvalidKey)
	}
	if !oid.Equal(oidEd25519) {
		return nil, fmt.Errorf("%w: not an ed25519 key (%s)", ErrInvalidKey, oid)
	}
	if !key.ReadASN1(&privStr, cbasn1.OCTET_STRING) || !privStr.ReadASN1(&seed, cbasn1.OCTET_STRING) {
		return nil, fmt.Errorf("%w: malformed private key", ErrInvalidKey)
	}
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("%w: seed must be %d bytes (got %d)", ErrInvalidKey, ed25519.SeedSize, len(seed))
	}

	sk := ed25519.NewKeyFromSeed(seed)

	// Attributes [0] are ignored
	key.SkipOptionalASN1(cbasn1.Tag(0).Constructed().ContextSpecific())

	var (
		pubField  cryptobyte.String
		hasPublic bool
	)
	if !key.ReadOptionalASN1(&pubField, &hasPublic, cbasn1.Tag(1).Constructed().ContextSpecific()) {
		return nil, fmt.Errorf("%w: malformed public key field", ErrInvalidKey)
	}
	if hasPublic {
		var bits asn1.BitString
		if !pubField.ReadASN1BitString(&bits) || bits.BitLength != ed25519.PublicKeySize*8 {
			return nil, fmt.Errorf("%w: malformed embedded public key", ErrInvalidKey)
		}
		if subtle.ConstantTimeCompare(bits.Bytes, sk[ed25519.SeedSize:]) != 1 {
			return nil, fmt.Errorf("%w: embedded public key does not match seed", ErrInvalidKey)
		}
	}

	return PrivateKey(sk), nil
}
