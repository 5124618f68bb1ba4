// Package protocol defines the signed update message exchanged between
// name registry clients and the server.
//
// # Update Messages
//
// An UpdateMessage asserts "user U sets a resource name to content reference C
// at time T". The signature covers only the canonical bytes
//
//	U + " " + C
//
// produced by Canonicalize. Usernames may not contain whitespace, so the
// encoding is unambiguous. The timestamp is informational.
//
// On the wire a message is JSON:
//
//	{
//	  "user": "alice",
//	  "utc": "2024-01-02T15:04:05Z",
//	  "signature": "<base64 ed25519 signature>",
//	  "new_contents": "QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG"
//	}
//
// # Replay
//
// Because neither the timestamp nor the previous value is signed, a captured
// message can be resubmitted at any time and will be accepted again while the
// signer's key is registered. Re-applying an identical message is idempotent.
//
// # Validation Errors
//
// Verification failures are reported as *ValidationError with one of three
// kinds: UnknownUser, MalformedSignature or InvalidSignature.
package protocol
