package client

import (
	"context"
	"fmt"

	"github.com/flashbots/namereg/content"
	"github.com/flashbots/namereg/crypto"
	"github.com/flashbots/namereg/protocol"
)

// Publisher publishes documents under names on behalf of one user.
type Publisher struct {
	client   *Client
	store    content.Store
	username string
	key      crypto.PrivateKey
	now      protocol.Clock
}

// NewPublisher binds a user identity and a content store to c.
func NewPublisher(c *Client, store content.Store, username string, key crypto.PrivateKey) (*Publisher, error) {
	if err := protocol.ValidateUsername(username); err != nil {
		return nil, err
	}
	if _, err := key.PublicKey(); err != nil {
		return nil, err
	}
	return &Publisher{
		client:   c,
		store:    store,
		username: username,
		key:      key,
		now:      protocol.UTCNow,
	}, nil
}

// Publish stores data in the content store and points name at it.
// It returns the accepted update.
func (p *Publisher) Publish(ctx context.Context, name string, data []byte) (*protocol.UpdateMessage, error) {
	ref, err := p.store.Put(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("storing document: %w", err)
	}
	return p.Point(ctx, name, ref)
}

// Point signs and submits an update pointing name at an existing reference.
func (p *Publisher) Point(ctx context.Context, name, ref string) (*protocol.UpdateMessage, error) {
	msg, err := protocol.NewUpdateMessageAt(p.now, p.key, p.username, ref)
	if err != nil {
		return nil, err
	}
	if err := p.client.PutUpdate(ctx, name, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// Fetch reads the current entry for name and retrieves its document.
// The entry's signature is checked against the writer's registered key.
func (p *Publisher) Fetch(ctx context.Context, name string) (*protocol.UpdateMessage, []byte, error) {
	return Fetch(ctx, p.client, p.store, name)
}

// Fetch is Publisher.Fetch for readers without an identity.
func Fetch(ctx context.Context, c *Client, store content.Store, name string) (*protocol.UpdateMessage, []byte, error) {
	msg, err := c.GetUpdate(ctx, name)
	if err != nil {
		return nil, nil, err
	}

	key, err := c.GetKey(ctx, msg.User)
	if err != nil {
		return nil, nil, fmt.Errorf("fetching key for %s: %w", msg.User, err)
	}
	if err := msg.Verify(key); err != nil {
		return nil, nil, fmt.Errorf("entry for %s: %w", name, err)
	}

	data, err := store.Get(ctx, msg.NewContents)
	if err != nil {
		return nil, nil, fmt.Errorf("retrieving document: %w", err)
	}
	return msg, data, nil
}
