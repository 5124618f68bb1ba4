package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode"

	"github.com/flashbots/namereg/crypto"
)

// Separator joins the username and content reference in the signed bytes.
// ValidateUsername guarantees it never occurs inside a username.
const Separator = " "

var (
	// ErrInvalidUsername is returned for usernames that cannot be registered.
	ErrInvalidUsername = errors.New("invalid username")

	// ErrMalformedMessage is returned when a body is not exactly one
	// complete UpdateMessage. It is never a ValidationError.
	ErrMalformedMessage = errors.New("malformed update message")
)

// ValidateUsername checks that a username is non-empty and contains no
// whitespace, which keeps Canonicalize injective.
func ValidateUsername(user string) error {
	if user == "" {
		return fmt.Errorf("%w: empty", ErrInvalidUsername)
	}
	if strings.IndexFunc(user, unicode.IsSpace) >= 0 {
		return fmt.Errorf("%w: %q contains whitespace", ErrInvalidUsername, user)
	}
	return nil
}

// Canonicalize builds the byte string that is signed and verified for an
// update: the username, a single space, then the content reference.
func Canonicalize(user, contentRef string) []byte {
	buf := make([]byte, 0, len(user)+len(Separator)+len(contentRef))
	buf = append(buf, user...)
	buf = append(buf, Separator...)
	buf = append(buf, contentRef...)
	return buf
}

// Clock returns the current time. It is replaced in tests.
type Clock func() time.Time

// UTCNow is the default Clock.
func UTCNow() time.Time {
	return time.Now().UTC()
}

// UpdateMessage asserts that User points a resource name at NewContents.
//
// UTC is carried for display and audit only; it is not part of the signed
// bytes.
type UpdateMessage struct {
	User        string    `json:"user"`
	UTC         time.Time `json:"utc"`
	Signature   string    `json:"signature"`
	NewContents string    `json:"new_contents"`
}

// updateMessageWire detects absent fields on decode.
type updateMessageWire struct {
	User        *string    `json:"user"`
	UTC         *time.Time `json:"utc"`
	Signature   *string    `json:"signature"`
	NewContents *string    `json:"new_contents"`
}

// UnmarshalJSON requires all four fields to be present and non-null.
// An empty signature is present and left to Verify.
func (m *UpdateMessage) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return fmt.Errorf("%w: null message", ErrMalformedMessage)
	}

	var w updateMessageWire
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}

	var missing []string
	if w.User == nil {
		missing = append(missing, "user")
	}
	if w.UTC == nil {
		missing = append(missing, "utc")
	}
	if w.Signature == nil {
		missing = append(missing, "signature")
	}
	if w.NewContents == nil {
		missing = append(missing, "new_contents")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrMalformedMessage, strings.Join(missing, ", "))
	}

	*m = UpdateMessage{
		User:        *w.User,
		UTC:         *w.UTC,
		Signature:   *w.Signature,
		NewContents: *w.NewContents,
	}
	return nil
}

// DecodeUpdateMessage reads exactly one UpdateMessage from reader.
// A top-level null, a missing field or anything after the object fails
// with ErrMalformedMessage.
func DecodeUpdateMessage(reader io.Reader) (*UpdateMessage, error) {
	dec := json.NewDecoder(reader)

	var raw json.RawMessage
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("%w: trailing data after message", ErrMalformedMessage)
	}

	var msg UpdateMessage
	if err := msg.UnmarshalJSON(raw); err != nil {
		return nil, err
	}
	return &msg, nil
}

// NewUpdateMessage composes a signed update for contentRef on behalf of user.
func NewUpdateMessage(privkey crypto.PrivateKey, user, contentRef string) (*UpdateMessage, error) {
	return NewUpdateMessageAt(UTCNow, privkey, user, contentRef)
}

// NewUpdateMessageAt is NewUpdateMessage with an explicit clock.
func NewUpdateMessageAt(now Clock, privkey crypto.PrivateKey, user, contentRef string) (*UpdateMessage, error) {
	if err := ValidateUsername(user); err != nil {
		return nil, err
	}

	sig, err := crypto.Sign(privkey, Canonicalize(user, contentRef))
	if err != nil {
		return nil, err
	}

	return &UpdateMessage{
		User:        user,
		UTC:         now(),
		Signature:   sig.Base64(),
		NewContents: contentRef,
	}, nil
}

// SignedBytes returns the canonical bytes covered by the signature.
func (m *UpdateMessage) SignedBytes() []byte {
	return Canonicalize(m.User, m.NewContents)
}

// Verify checks the message signature against pubkey.
// It returns a *ValidationError of kind MalformedSignature when the signature
// text cannot be decoded, and of kind InvalidSignature on a mismatch.
func (m *UpdateMessage) Verify(pubkey crypto.PublicKey) error {
	sig, err := crypto.DecodeSignature(m.Signature)
	if err != nil {
		return &ValidationError{Kind: MalformedSignature, Err: err}
	}
	if !sig.Verify(pubkey, m.SignedBytes()) {
		return &ValidationError{Kind: InvalidSignature}
	}
	return nil
}

// Clone returns a copy of the message.
func (m *UpdateMessage) Clone() *UpdateMessage {
	c := *m
	return &c
}

// UnmarshalMessage deserializes a message from JSON bytes.
func UnmarshalMessage[T any](data []byte) (*T, error) {
	var msg T
	err := json.Unmarshal(data, &msg)
	return &msg, err
}

// SerializeMessage serializes a message to JSON bytes.
func SerializeMessage[T any](msg *T) ([]byte, error) {
	return json.Marshal(msg)
}
