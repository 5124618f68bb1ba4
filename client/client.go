// Package client talks to a namereg server over HTTP.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/flashbots/namereg/crypto"
	"github.com/flashbots/namereg/protocol"
	"github.com/flashbots/namereg/services"
)

// ErrNotFound is returned when the server has no key or entry.
var ErrNotFound = errors.New("not found")

// RejectedError is returned when the server refuses a request.
type RejectedError struct {
	Status int
	Reason string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("rejected (%d): %s", e.Status, e.Reason)
}

// Client is an HTTP client for a single namereg server.
type Client struct {
	serverURL  string
	adminToken string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithAdminToken sets the user:pass credentials sent to /admin routes.
func WithAdminToken(token string) Option {
	return func(c *Client) { c.adminToken = token }
}

// New creates a client for serverURL. A bare host:port is treated as http.
func New(serverURL string, opts ...Option) *Client {
	if !strings.Contains(serverURL, "://") {
		serverURL = "http://" + serverURL
	}
	c := &Client{
		serverURL:  strings.TrimRight(serverURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetKey fetches the public key registered for username.
func (c *Client) GetKey(ctx context.Context, username string) (crypto.PublicKey, error) {
	body, err := c.do(ctx, http.MethodGet, "/id/"+url.PathEscape(username), nil, false)
	if err != nil {
		return nil, err
	}
	return crypto.NewPublicKeyFromBase64(strings.TrimSpace(string(body)))
}

// GetUpdate fetches the latest accepted update for name.
func (c *Client) GetUpdate(ctx context.Context, name string) (*protocol.UpdateMessage, error) {
	body, err := c.do(ctx, http.MethodGet, "/name/"+url.PathEscape(name), nil, false)
	if err != nil {
		return nil, err
	}
	msg, err := protocol.UnmarshalMessage[protocol.UpdateMessage](body)
	if err != nil {
		return nil, fmt.Errorf("decoding update: %w", err)
	}
	return msg, nil
}

// PutUpdate submits msg for name. A refusal is returned as *RejectedError
// carrying the server's reason, such as "InvalidSignature".
func (c *Client) PutUpdate(ctx context.Context, name string, msg *protocol.UpdateMessage) error {
	data, err := protocol.SerializeMessage(msg)
	if err != nil {
		return err
	}
	_, err = c.do(ctx, http.MethodPost, "/name/"+url.PathEscape(name), data, false)
	return err
}

// RegisterUser binds username to pubkey through the admin API.
func (c *Client) RegisterUser(ctx context.Context, username string, pubkey crypto.PublicKey) error {
	data, err := json.Marshal(&services.RegisterUserRequest{PublicKey: pubkey.Base64()})
	if err != nil {
		return err
	}
	_, err = c.do(ctx, http.MethodPost, "/admin/id/"+url.PathEscape(username), data, true)
	return err
}

// GenerateUser asks the server to generate and register a keypair for
// username. The private key is returned once and not kept by the server.
func (c *Client) GenerateUser(ctx context.Context, username string) (crypto.PrivateKey, error) {
	body, err := c.do(ctx, http.MethodPost, "/admin/id/"+url.PathEscape(username), nil, true)
	if err != nil {
		return nil, err
	}

	var resp services.RegisterUserResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decoding registration: %w", err)
	}
	if resp.PrivateKey == "" {
		return nil, errors.New("server did not return a private key")
	}
	return crypto.ParsePrivateKey(resp.PrivateKey)
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, admin bool) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.serverURL+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if admin && c.adminToken != "" {
		user, pass := services.ParseAdminToken(c.adminToken)
		req.SetBasicAuth(user, pass)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return respBody, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	default:
		return nil, &RejectedError{Status: resp.StatusCode, Reason: strings.TrimSpace(string(respBody))}
	}
}
